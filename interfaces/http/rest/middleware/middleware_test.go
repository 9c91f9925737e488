package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "recommender/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockLimiter) Reset(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type recordedObservation struct {
	method, route string
	status        int
}

type fakeObserver struct {
	seen []recordedObservation
}

func (f *fakeObserver) ObserveHTTP(method, route string, status int, _ time.Duration) {
	f.seen = append(f.seen, recordedObservation{method, route, status})
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestRateLimit_FailsOpenOnLimiterError(t *testing.T) {
	// Arrange
	limiter := new(MockLimiter)
	limiter.On("Allow", mock.Anything, "192.0.2.1").Return(false, errors.New("limiter broken"))
	h := RateLimit(limiter, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(http.HandlerFunc(okHandler))

	// Act
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/strategies", nil))

	// Assert
	assert.Equal(t, http.StatusNoContent, rec.Code)
	limiter.AssertExpectations(t)
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	limiter := new(MockLimiter)
	limiter.On("Allow", mock.Anything, "192.0.2.1").Return(false, nil)
	h := RateLimit(limiter, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/strategies", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	// Arrange
	observer := &fakeObserver{}
	router := chi.NewRouter()
	router.Use(Metrics(observer))
	router.Get("/recommend/{user_id}", okHandler)

	// Act
	for _, user := range []string{"u1", "u2"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/recommend/"+user, nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	// Assert
	assert.Equal(t, []recordedObservation{
		{http.MethodGet, "/recommend/{user_id}", http.StatusNoContent},
		{http.MethodGet, "/recommend/{user_id}", http.StatusNoContent},
		{http.MethodGet, "unmatched", http.StatusNotFound},
	}, observer.seen)
}
