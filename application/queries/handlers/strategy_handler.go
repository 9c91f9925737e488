package handlers

import (
	"context"
	"fmt"

	"recommender/application/queries"
	"recommender/application/queries/bus"
	"recommender/domain/recommendation"

	"go.uber.org/zap"
)

// RecommendationFacade is the part of the recommendation service the query side needs
type RecommendationFacade interface {
	ListStrategies() []recommendation.Descriptor
	RunStrategy(ctx context.Context, key string, raw map[string]any) (recommendation.Result, error)
	Recommend(ctx context.Context, userID string) (recommendation.Recommendation, error)
	LegacyRecommend(ctx context.Context, userID string, limit int) (recommendation.Recommendation, error)
}

// StrategyQueryHandler answers strategy and recommendation queries
type StrategyQueryHandler struct {
	service RecommendationFacade
	logger  *zap.Logger
}

// NewStrategyQueryHandler creates a new strategy query handler
func NewStrategyQueryHandler(service RecommendationFacade, logger *zap.Logger) *StrategyQueryHandler {
	return &StrategyQueryHandler{
		service: service,
		logger:  logger,
	}
}

// Handle implements bus.QueryHandler
func (h *StrategyQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case queries.ListStrategiesQuery:
		return h.service.ListStrategies(), nil
	case queries.RunStrategyQuery:
		return h.service.RunStrategy(ctx, q.Strategy, q.Params)
	case queries.GetRecommendationsQuery:
		return h.service.Recommend(ctx, q.UserID)
	case queries.GetLegacyRecommendationsQuery:
		return h.service.LegacyRecommend(ctx, q.UserID, q.Limit)
	default:
		return nil, fmt.Errorf("unsupported query %T", query)
	}
}
