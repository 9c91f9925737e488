package handlers

import (
	"fmt"
	"net/http"

	"recommender/application/queries"
	pkgerrors "recommender/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DatasetHandler serves bulk reads in the collaborator's record shape, so one instance
// can snapshot another
type DatasetHandler struct {
	queryBus     QueryAsker
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(queryBus QueryAsker, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *DatasetHandler {
	return &DatasetHandler{
		queryBus:     queryBus,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// GetDataset handles GET /data/{dataset}
func (h *DatasetHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListDatasetQuery{Dataset: chi.URLParam(r, "dataset")})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	dataset, ok := result.(queries.ListDatasetResult)
	if !ok {
		h.errorHandler.Handle(w, r, fmt.Errorf("unexpected dataset result %T", result))
		return
	}

	w.Header().Set("X-Total-Count", fmt.Sprint(dataset.Count))
	respondJSON(w, h.logger, http.StatusOK, dataset.Records)
}
