package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"recommender/domain/recommendation"
	pkgerrors "recommender/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, strategy recommendation.Strategy, params recommendation.Params) ([]recommendation.Row, error) {
	args := m.Called(ctx, strategy, params)
	rows, _ := args.Get(0).([]recommendation.Row)
	return rows, args.Error(1)
}

type MockCourses struct {
	mock.Mock
}

func (m *MockCourses) RecommendCourses(ctx context.Context, userID string, limit int) ([]recommendation.LegacyItem, error) {
	args := m.Called(ctx, userID, limit)
	items, _ := args.Get(0).([]recommendation.LegacyItem)
	return items, args.Error(1)
}

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Recommend(ctx context.Context, userID string) (recommendation.Recommendation, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(recommendation.Recommendation), args.Error(1)
}

func newService(executor *MockExecutor, timeout time.Duration) *RecommendationService {
	return NewRecommendationService(recommendation.DefaultCatalog(), executor, &MockCourses{}, nil, timeout, zap.NewNop())
}

func TestRecommendationService_RunStrategy_MissingParamSkipsExecutor(t *testing.T) {
	for _, s := range recommendation.DefaultCatalog().All() {
		t.Run(string(s.Key), func(t *testing.T) {
			// Arrange
			executor := new(MockExecutor)
			service := newService(executor, time.Second)

			// Act
			_, err := service.RunStrategy(context.Background(), string(s.Key), map[string]any{"limit": 5})

			// Assert
			assert.ErrorIs(t, err, pkgerrors.ErrParamMissing)
			executor.AssertNumberOfCalls(t, "Execute", 0)
		})
	}
}

func TestRecommendationService_RunStrategy_OutOfRangeSkipsExecutor(t *testing.T) {
	executor := new(MockExecutor)
	service := newService(executor, time.Second)

	_, err := service.RunStrategy(context.Background(), "by_errors", map[string]any{"user_id": "u1", "frequency_threshold": 1.2})

	assert.ErrorIs(t, err, pkgerrors.ErrParamOutOfRange)
	executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecommendationService_RunStrategy_UnknownStrategy(t *testing.T) {
	executor := new(MockExecutor)
	service := newService(executor, time.Second)

	_, err := service.RunStrategy(context.Background(), "by_mood", map[string]any{"user_id": "u1"})

	assert.ErrorIs(t, err, pkgerrors.ErrUnknownStrategy)
	executor.AssertNumberOfCalls(t, "Execute", 0)
}

func TestRecommendationService_RunStrategy_RanksAndLimits(t *testing.T) {
	// Arrange
	executor := new(MockExecutor)
	executor.On("Execute", mock.Anything, mock.MatchedBy(func(s recommendation.Strategy) bool {
		return s.Key == recommendation.ByDifficulty
	}), mock.Anything).Return([]recommendation.Row{
		{"exercise_id": "e2", "skill_id": "s1", "error_score": 0.7},
		{"exercise_id": "e1", "skill_id": "s1", "error_score": 0.9},
	}, nil)
	service := newService(executor, time.Second)

	// Act
	result, err := service.RunStrategy(context.Background(), "by_difficulty", map[string]any{"user_id": "u1", "limit": "1"})

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "e1", result.Rows[0].ExerciseID())
	assert.True(t, result.Truncated)
	executor.AssertExpectations(t)
}

func TestRecommendationService_RunStrategy_PassesBoundParams(t *testing.T) {
	executor := new(MockExecutor)
	executor.On("Execute", mock.Anything, mock.Anything, mock.MatchedBy(func(p recommendation.Params) bool {
		return p.UserID() == "u1" && p.Number(recommendation.ParamThreshold) == 0.6 && p.Limit() == 20 && !p.Has("extra")
	})).Return(nil, nil)
	service := newService(executor, time.Second)

	result, err := service.RunStrategy(context.Background(), "by_difficulty", map[string]any{"user_id": "u1", "extra": "x"})

	require.NoError(t, err)
	assert.Equal(t, recommendation.Result{Rows: []recommendation.Row{}, Truncated: false}, result)
	executor.AssertExpectations(t)
}

func TestRecommendationService_RunStrategy_Idempotent(t *testing.T) {
	executor := new(MockExecutor)
	executor.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return([]recommendation.Row{
		{"exercise_id": "e3", "frequency": 0.8, "error_id": "x"},
		{"exercise_id": "e1", "frequency": 0.8, "error_id": "y"},
		{"exercise_id": "e1", "frequency": 0.8, "error_id": "x"},
	}, nil)
	service := newService(executor, time.Second)
	raw := map[string]any{"user_id": "u1"}

	first, err := service.RunStrategy(context.Background(), "by_errors", raw)
	require.NoError(t, err)
	second, err := service.RunStrategy(context.Background(), "by_errors", raw)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "x", first.Rows[0]["error_id"])
}

func TestRecommendationService_RunStrategy_Timeout(t *testing.T) {
	executor := new(MockExecutor)
	executor.On("Execute", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)
	service := newService(executor, 10*time.Millisecond)

	_, err := service.RunStrategy(context.Background(), "multi_hop", map[string]any{"user_id": "u1"})

	assert.ErrorIs(t, err, pkgerrors.ErrQueryTimeout)
	assert.True(t, pkgerrors.GetDomainError(err).Retryable)
	executor.AssertNumberOfCalls(t, "Execute", 1)
}

func TestRecommendationService_RunStrategy_BackendFailureKeepsDiagnostic(t *testing.T) {
	executor := new(MockExecutor)
	executor.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp 10.0.0.1:7687: connection refused"))
	service := newService(executor, time.Second)

	_, err := service.RunStrategy(context.Background(), "by_interests", map[string]any{"user_id": "u1"})

	require.ErrorIs(t, err, pkgerrors.ErrBackendUnavailable)
	assert.Equal(t, "dial tcp 10.0.0.1:7687: connection refused", pkgerrors.GetDomainError(err).Details["diagnostic"])
	executor.AssertNumberOfCalls(t, "Execute", 1)
}

func TestRecommendationService_RunStrategy_StoreFailureIsBackendUnavailable(t *testing.T) {
	// Arrange
	cause := errors.New("ServiceUnavailable: leader election in progress")
	executor := new(MockExecutor)
	executor.On("Execute", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("stage A: %w", pkgerrors.NewDatabaseError("read HAS_DIFFICULTY edges", cause)))
	service := newService(executor, time.Second)

	// Act
	_, err := service.RunStrategy(context.Background(), "multi_hop", map[string]any{"user_id": "u1"})

	// Assert
	require.ErrorIs(t, err, pkgerrors.ErrBackendUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t,
		"graph store operation 'read HAS_DIFFICULTY edges' failed: ServiceUnavailable: leader election in progress",
		pkgerrors.GetDomainError(err).Details["diagnostic"])
}

func TestRecommendationService_RunStrategy_StoreTimeoutIsQueryTimeout(t *testing.T) {
	executor := new(MockExecutor)
	executor.On("Execute", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, pkgerrors.NewDatabaseError("get node", context.DeadlineExceeded))
	service := newService(executor, time.Second)

	_, err := service.RunStrategy(context.Background(), "by_difficulty", map[string]any{"user_id": "u1"})

	assert.ErrorIs(t, err, pkgerrors.ErrQueryTimeout)
}

func TestRecommendationService_RunStrategy_DomainErrorsPassThrough(t *testing.T) {
	executor := new(MockExecutor)
	executor.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(nil, pkgerrors.NewMalformedResponse("<html>", nil))
	service := newService(executor, time.Second)

	_, err := service.RunStrategy(context.Background(), "by_errors", map[string]any{"user_id": "u1"})

	assert.ErrorIs(t, err, pkgerrors.ErrMalformedResponse)
}

func TestRecommendationService_Recommend_Local(t *testing.T) {
	executor := new(MockExecutor)
	executor.On("Execute", mock.Anything, mock.MatchedBy(func(s recommendation.Strategy) bool { return s.Key == recommendation.ByDifficulty }), mock.Anything).
		Return([]recommendation.Row{{"exercise_id": "e1", "skill_id": "s1", "error_score": 0.9}}, nil)
	executor.On("Execute", mock.Anything, mock.MatchedBy(func(s recommendation.Strategy) bool { return s.Key == recommendation.ByErrors }), mock.Anything).
		Return([]recommendation.Row{{"exercise_id": "e2", "error_id": "x", "frequency": 0.8}}, nil)
	executor.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	service := newService(executor, time.Second)

	rec, err := service.Recommend(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, recommendation.ShapeStructured, rec.Shape)
	assert.Equal(t, "e1", rec.Structured.ByDifficulty[0].ExerciseID)
	assert.Empty(t, rec.Structured.BySimilarUsers)
	assert.Equal(t, []recommendation.ErrorInterestRec{{ExerciseID: "e2", ErrorWeight: 0.8}}, rec.Structured.ByErrorsAndInterests)
	executor.AssertNumberOfCalls(t, "Execute", 4)
}

func TestRecommendationService_Recommend_RemoteLegacyShape(t *testing.T) {
	source := new(MockSource)
	source.On("Recommend", mock.Anything, "u1").Return(recommendation.NewLegacy([]recommendation.LegacyItem{{CourseID: "c1", Score: 0.8}}), nil)
	executor := new(MockExecutor)
	service := NewRecommendationService(recommendation.DefaultCatalog(), executor, &MockCourses{}, source, time.Second, zap.NewNop())

	rec, err := service.Recommend(context.Background(), " u1 ")

	require.NoError(t, err)
	assert.Equal(t, recommendation.ShapeLegacy, rec.Shape)
	assert.Equal(t, "c1", rec.Legacy[0].CourseID)
	executor.AssertNumberOfCalls(t, "Execute", 0)
}

func TestRecommendationService_Recommend_BlankUser(t *testing.T) {
	service := newService(new(MockExecutor), time.Second)

	_, err := service.Recommend(context.Background(), "  ")

	assert.ErrorIs(t, err, pkgerrors.ErrParamMissing)
}

func TestRecommendationService_LegacyRecommend(t *testing.T) {
	courses := new(MockCourses)
	courses.On("RecommendCourses", mock.Anything, "u1", 5).Return([]recommendation.LegacyItem{{CourseID: "c2", Score: 2}}, nil)
	service := NewRecommendationService(recommendation.DefaultCatalog(), new(MockExecutor), courses, nil, time.Second, zap.NewNop())

	rec, err := service.LegacyRecommend(context.Background(), "u1", 5)

	require.NoError(t, err)
	assert.Equal(t, recommendation.ShapeLegacy, rec.Shape)
	assert.Len(t, rec.Legacy, 1)
	courses.AssertExpectations(t)
}

func TestRecommendationService_ListStrategies(t *testing.T) {
	service := newService(new(MockExecutor), time.Second)

	descriptors := service.ListStrategies()

	require.Len(t, descriptors, 5)
	assert.Equal(t, recommendation.ByDifficulty, descriptors[0].Key)
	assert.Equal(t, "error_score", descriptors[0].ScoreField)
}
