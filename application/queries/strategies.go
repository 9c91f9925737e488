package queries

import (
	"strings"

	"recommender/domain/recommendation"
	pkgerrors "recommender/pkg/errors"
)

// ListStrategiesQuery asks for the catalog descriptors
type ListStrategiesQuery struct{}

// Validate validates the ListStrategiesQuery
func (q ListStrategiesQuery) Validate() error {
	return nil
}

// RunStrategyQuery runs one strategy with raw, unvalidated parameters.
// Parameter validation belongs to the catalog schema, not to the query.
type RunStrategyQuery struct {
	Strategy string
	Params   map[string]any
}

// Validate validates the RunStrategyQuery
func (q RunStrategyQuery) Validate() error {
	if strings.TrimSpace(q.Strategy) == "" {
		return pkgerrors.NewUnknownStrategy(q.Strategy)
	}
	return nil
}

// GetRecommendationsQuery asks for the combined recommendation of a user
type GetRecommendationsQuery struct {
	UserID string
}

// Validate validates the GetRecommendationsQuery
func (q GetRecommendationsQuery) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return pkgerrors.NewParamMissing(recommendation.ParamUserID)
	}
	return nil
}

// GetLegacyRecommendationsQuery asks for the flat course list of a user
type GetLegacyRecommendationsQuery struct {
	UserID string
	Limit  int
}

// Validate validates the GetLegacyRecommendationsQuery
func (q GetLegacyRecommendationsQuery) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return pkgerrors.NewParamMissing(recommendation.ParamUserID)
	}
	if q.Limit < 0 || q.Limit > 200 {
		return pkgerrors.NewParamOutOfRange(recommendation.ParamLimit, float64(q.Limit), 1, 200)
	}
	return nil
}
