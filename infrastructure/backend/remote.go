package backend

import (
	"bytes"
	"context"
	"encoding/json"

	"recommender/domain/recommendation"
	pkgerrors "recommender/pkg/errors"

	"go.uber.org/zap"
)

// RemoteExecutor runs strategies on the collaborator's /patterns endpoints instead of the local graph.
// It satisfies StrategyExecutor, CourseRecommender and RecommendationSource.
type RemoteExecutor struct {
	client *Client
	logger *zap.Logger
}

// NewRemoteExecutor creates a remote executor
func NewRemoteExecutor(client *Client, logger *zap.Logger) *RemoteExecutor {
	return &RemoteExecutor{client: client, logger: logger}
}

// Execute calls GET /patterns/{endpoint} with the bound parameters
func (e *RemoteExecutor) Execute(ctx context.Context, strategy recommendation.Strategy, params recommendation.Params) ([]recommendation.Row, error) {
	body, err := e.client.Get(ctx, "/patterns/"+strategy.Endpoint, params.Encode())
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

// decodeRows accepts a bare array of objects or an object carrying "rows"
func decodeRows(body []byte) ([]recommendation.Row, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, pkgerrors.NewMalformedResponse("empty body", nil)
	}

	var rows []recommendation.Row
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, pkgerrors.NewMalformedResponse(truncate(string(trimmed)), err)
		}
	case '{':
		var wrapped struct {
			Rows *[]recommendation.Row `json:"rows"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, pkgerrors.NewMalformedResponse(truncate(string(trimmed)), err)
		}
		if wrapped.Rows == nil {
			return nil, pkgerrors.NewMalformedResponse(truncate(string(trimmed)), nil)
		}
		rows = *wrapped.Rows
	default:
		return nil, pkgerrors.NewMalformedResponse(truncate(string(trimmed)), nil)
	}

	for i, row := range rows {
		if row == nil || row.ExerciseID() == "" {
			return nil, pkgerrors.NewMalformedResponse("row without exercise_id", nil).WithDetail("index", i)
		}
	}
	if rows == nil {
		rows = []recommendation.Row{}
	}
	return rows, nil
}

// Recommend calls GET /recommend/{user_id} and classifies the payload by shape
func (e *RemoteExecutor) Recommend(ctx context.Context, userID string) (recommendation.Recommendation, error) {
	body, err := e.client.Get(ctx, "/"+escape(userID), "")
	if err != nil {
		return recommendation.Recommendation{}, err
	}
	return recommendation.DecodeRecommendation(body)
}

// RecommendCourses requires the legacy array shape from GET /recommend/{user_id}
func (e *RemoteExecutor) RecommendCourses(ctx context.Context, userID string, limit int) ([]recommendation.LegacyItem, error) {
	rec, err := e.Recommend(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec.Shape != recommendation.ShapeLegacy {
		e.logger.Warn("Backend answered the structured shape where a course list was expected",
			zap.String("userID", userID),
		)
		return nil, pkgerrors.NewMalformedResponse("expected a course list, got the structured shape", nil)
	}

	items := rec.Legacy
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
