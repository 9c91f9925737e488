package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"recommender/application/commands"
	"recommender/domain/core/entities"
	pkgerrors "recommender/pkg/errors"
	"recommender/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// LogRecommendationRequest is the body of POST /log
type LogRecommendationRequest struct {
	UserID     string     `json:"user_id" validate:"required,max=128"`
	ExerciseID string     `json:"exercise_id" validate:"required,max=128"`
	Strategy   string     `json:"strategy" validate:"max=64"`
	Accepted   *bool      `json:"accepted,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// RecordProgressRequest is the body of POST /progress
type RecordProgressRequest struct {
	UserID   string  `json:"user_id" validate:"required,max=128"`
	CourseID string  `json:"course_id" validate:"required,max=128"`
	Level    *string `json:"level,omitempty" validate:"omitempty,max=64"`
}

// IngestHandler turns record-shaped bodies into write commands
type IngestHandler struct {
	commandBus   CommandSender
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
	now          func() time.Time
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(commandBus CommandSender, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		commandBus:   commandBus,
		errorHandler: errorHandler,
		logger:       logger,
		now:          time.Now,
	}
}

// UpsertNode returns the handler for POST /{resource} of a node kind
func (h *IngestHandler) UpsertNode(kind entities.NodeKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var record map[string]any
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&record); err != nil {
			h.errorHandler.Handle(w, r, invalidBody(err))
			return
		}

		node, err := entities.NodeFromRecord(kind, record)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}

		if err := h.commandBus.Send(r.Context(), commands.UpsertNodeCommand{Node: node}); err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}

		respondJSON(w, h.logger, http.StatusCreated, StatusResponse{Status: "ok", ID: node.ID})
	}
}

// UpsertEdges returns the handler for POST /{resource} of an edge kind. The body is one
// record or an array of records.
func (h *IngestHandler) UpsertEdges(kind entities.EdgeKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := decodeRecords(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}

		edges := make([]entities.Edge, 0, len(records))
		for i, record := range records {
			edge, err := entities.EdgeFromRecord(kind, record)
			if err != nil {
				if domainErr := pkgerrors.GetDomainError(err); domainErr != nil {
					err = pkgerrors.NewInvalidPayload(fmt.Sprintf("record %d: %s", i, domainErr.Message))
				}
				h.errorHandler.Handle(w, r, err)
				return
			}
			edges = append(edges, edge)
		}

		if err := h.commandBus.Send(r.Context(), commands.UpsertEdgesCommand{Kind: kind, Edges: edges}); err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}

		respondJSON(w, h.logger, http.StatusCreated, StatusResponse{Status: "ok", Count: len(edges)})
	}
}

// LogRecommendation handles POST /log
func (h *IngestHandler) LogRecommendation(w http.ResponseWriter, r *http.Request) {
	var req LogRecommendationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, invalidBody(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	at := h.now().UTC()
	if req.Timestamp != nil {
		at = req.Timestamp.UTC()
	}

	cmd := commands.LogRecommendationCommand{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		ExerciseID: req.ExerciseID,
		Strategy:   req.Strategy,
		Accepted:   req.Accepted,
		Timestamp:  at,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, StatusResponse{Status: "ok", ID: cmd.ID})
}

// RecordProgress handles POST /progress
func (h *IngestHandler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	var req RecordProgressRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, invalidBody(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	cmd := commands.RecordProgressCommand{
		UserID:    req.UserID,
		CourseID:  req.CourseID,
		Level:     req.Level,
		Timestamp: h.now().UTC(),
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, StatusResponse{Status: "ok"})
}

func decodeRecords(body io.Reader) ([]map[string]any, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, invalidBody(err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, pkgerrors.NewInvalidPayload("request body is empty")
	}

	var records []map[string]any
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, invalidBody(err)
		}
	} else {
		var record map[string]any
		if err := json.Unmarshal(trimmed, &record); err != nil {
			return nil, invalidBody(err)
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, pkgerrors.NewInvalidPayload("at least one record is required")
	}
	return records, nil
}
