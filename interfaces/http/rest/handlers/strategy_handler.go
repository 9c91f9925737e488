package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"recommender/application/queries"
	"recommender/domain/recommendation"
	pkgerrors "recommender/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StrategyHandler serves the strategy catalog, strategy runs and combined recommendations
type StrategyHandler struct {
	queryBus     QueryAsker
	catalog      *recommendation.Catalog
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler(
	queryBus QueryAsker,
	catalog *recommendation.Catalog,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *StrategyHandler {
	return &StrategyHandler{
		queryBus:     queryBus,
		catalog:      catalog,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// ListStrategies handles GET /strategies
func (h *StrategyHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListStrategiesQuery{})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}

// RunPattern handles GET /patterns/{endpoint}; the query string is the raw parameter set
func (h *StrategyHandler) RunPattern(w http.ResponseWriter, r *http.Request) {
	strategy, err := h.catalog.LookupEndpoint(chi.URLParam(r, "endpoint"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	raw := make(map[string]any)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			raw[name] = values[0]
		}
	}

	h.run(w, r, string(strategy.Key), raw)
}

// RunStrategy handles POST /strategies/{key}/run with a JSON object of parameters
func (h *StrategyHandler) RunStrategy(w http.ResponseWriter, r *http.Request) {
	raw := make(map[string]any)
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		h.errorHandler.Handle(w, r, invalidBody(err))
		return
	}

	h.run(w, r, chi.URLParam(r, "key"), raw)
}

func (h *StrategyHandler) run(w http.ResponseWriter, r *http.Request, key string, raw map[string]any) {
	result, err := h.queryBus.Ask(r.Context(), queries.RunStrategyQuery{Strategy: key, Params: raw})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}

// Recommend handles GET /recommend/{user_id}
func (h *StrategyHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetRecommendationsQuery{
		UserID: chi.URLParam(r, "user_id"),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}

// LegacyRecommend handles GET /recommend/{user_id}/legacy?limit=N
func (h *StrategyHandler) LegacyRecommend(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get(recommendation.ParamLimit); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			h.errorHandler.Handle(w, r, pkgerrors.NewParamInvalid(recommendation.ParamLimit, s, "expected an integer"))
			return
		}
		limit = n
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetLegacyRecommendationsQuery{
		UserID: chi.URLParam(r, "user_id"),
		Limit:  limit,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}
