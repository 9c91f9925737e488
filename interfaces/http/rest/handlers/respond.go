package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"recommender/application/commands/bus"
	querybus "recommender/application/queries/bus"
	pkgerrors "recommender/pkg/errors"

	"go.uber.org/zap"
)

// QueryAsker is the read side the handlers depend on
type QueryAsker interface {
	Ask(ctx context.Context, query querybus.Query) (interface{}, error)
}

// CommandSender is the write side the handlers depend on
type CommandSender interface {
	Send(ctx context.Context, cmd bus.Command) error
}

// StatusResponse acknowledges a write
type StatusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
	Count  int    `json:"count,omitempty"`
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func invalidBody(err error) error {
	return pkgerrors.NewInvalidPayload("invalid request body: " + err.Error())
}
