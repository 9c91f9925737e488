package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConstructors_MatchSentinelsWithoutMutatingThem(t *testing.T) {
	err := NewParamOutOfRange("threshold", 1.5, 0, 1)

	assert.True(t, errors.Is(err, ErrParamOutOfRange))
	assert.False(t, errors.Is(err, ErrParamMissing))
	assert.Equal(t, "threshold", err.Details["param"])
	assert.Empty(t, ErrParamOutOfRange.Details)
}

func TestDomainError_IsSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("query handler failed: %w", NewParamMissing("user_id"))

	assert.True(t, errors.Is(wrapped, ErrParamMissing))
	got := GetDomainError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "user_id", got.Details["param"])
}

func TestNewBackendUnavailable_KeepsDiagnostic(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewBackendUnavailable("connection refused by bolt://neo4j:7687", cause)

	assert.True(t, err.Retryable)
	assert.Equal(t, http.StatusServiceUnavailable, err.StatusCode)
	assert.Equal(t, "connection refused by bolt://neo4j:7687", err.Details["diagnostic"])
	assert.ErrorIs(t, err, cause)
}

func TestNewQueryTimeout(t *testing.T) {
	err := NewQueryTimeout("by_difficulty", 3*time.Second, nil)

	assert.True(t, errors.Is(err, ErrQueryTimeout))
	assert.Equal(t, http.StatusGatewayTimeout, err.StatusCode)
	assert.Equal(t, "3s", err.Details["timeout"])
}

func TestValidationErrors_AsDomainError(t *testing.T) {
	v := NewValidationErrors()
	v.Add("correct_ratio", "correct_ratio must be within [0,1]")
	v.Add("user_id", "user_id is required")

	err := v.AsDomainError()

	assert.True(t, errors.Is(err, ErrInvalidPayload))
	fields := err.Details["fields"].(map[string][]string)
	assert.Equal(t, []string{"user_id is required"}, fields["user_id"])
}

func TestErrorHandler_Handle(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unknown strategy", NewUnknownStrategy("nope"), http.StatusNotFound, "UNKNOWN_STRATEGY"},
		{"param missing", fmt.Errorf("wrapped: %w", NewParamMissing("user_id")), http.StatusBadRequest, "PARAM_MISSING"},
		{"timeout", NewQueryTimeout("multi_hop", time.Second, nil), http.StatusGatewayTimeout, "QUERY_TIMEOUT"},
		{"malformed", NewMalformedResponse("null", nil), http.StatusBadGateway, "MALFORMED_RESPONSE"},
		{"app not found", NewNotFoundError("route"), http.StatusNotFound, ""},
		{"graph store", NewDatabaseError("get node", errors.New("io timeout")), http.StatusInternalServerError, ""},
		{"plain", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	handler := NewErrorHandler(zap.NewNop(), false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/patterns/by-difficulty", nil)

			handler.Handle(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, true, body["error"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["code"])
			}
		})
	}
}

func TestIsDatabase_SurvivesWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("traversal: %w", NewDatabaseError("list HAS_DIFFICULTY edges", cause))

	assert.True(t, IsDatabase(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsDatabase(cause))
	assert.False(t, IsDatabase(NewNotFoundError("route")))
}

func TestFromStoreError(t *testing.T) {
	cause := errors.New("connection reset by peer")

	tests := []struct {
		name           string
		err            error
		wantErr        error
		wantDiagnostic string
	}{
		{"store failure", NewDatabaseError("get node", cause), ErrBackendUnavailable, "graph store operation 'get node' failed: connection reset by peer"},
		{"plain failure", cause, ErrBackendUnavailable, "connection reset by peer"},
		{"domain error passes through", NewMalformedResponse("<html>", nil), ErrMalformedResponse, "<html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStoreError(tt.err)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantDiagnostic, GetDomainError(err).Details["diagnostic"])
		})
	}
	assert.NoError(t, FromStoreError(nil))
}

func TestErrorHandler_MiddlewareRecoversPanics(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), false)
	panicking := handler.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	panicking.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
