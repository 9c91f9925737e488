package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates input validation failure
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainNotFoundError indicates a resource was not found
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainInfrastructureError indicates an infrastructure-level failure
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"

	// DomainUnavailableError indicates the graph backend could not be reached
	DomainUnavailableError DomainErrorType = "UNAVAILABLE_ERROR"

	// DomainUpstreamError indicates the graph backend answered with something unusable
	DomainUpstreamError DomainErrorType = "UPSTREAM_ERROR"

	// DomainRateLimitError indicates rate limit exceeded
	DomainRateLimitError DomainErrorType = "RATE_LIMIT_ERROR"

	// DomainTimeoutError indicates operation timeout
	DomainTimeoutError DomainErrorType = "TIMEOUT_ERROR"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		Retryable:  false,
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// WithRetryable sets whether the error is retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// derive copies a sentinel so callers can attach details without touching the shared value.
func (e *DomainError) derive(message string) *DomainError {
	out := NewDomainError(e.Type, e.Code, message)
	out.Retryable = e.Retryable
	out.StatusCode = e.StatusCode
	return out
}

// domainErrorTypeToStatusCode maps error types to HTTP status codes
func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError:
		return 400 // Bad Request
	case DomainNotFoundError:
		return 404 // Not Found
	case DomainRateLimitError:
		return 429 // Too Many Requests
	case DomainUpstreamError:
		return 502 // Bad Gateway
	case DomainUnavailableError:
		return 503 // Service Unavailable
	case DomainTimeoutError:
		return 504 // Gateway Timeout
	case DomainInfrastructureError:
		return 500 // Internal Server Error
	default:
		return 500 // Internal Server Error
	}
}

// Query errors. Compare with errors.Is; build instances with the New* constructors below.

var (
	ErrUnknownStrategy = NewDomainError(
		DomainNotFoundError,
		"UNKNOWN_STRATEGY",
		"The requested strategy does not exist",
	)

	ErrParamMissing = NewDomainError(
		DomainValidationError,
		"PARAM_MISSING",
		"A required parameter is missing",
	)

	ErrParamOutOfRange = NewDomainError(
		DomainValidationError,
		"PARAM_OUT_OF_RANGE",
		"A parameter is outside its accepted range",
	)

	ErrParamInvalid = NewDomainError(
		DomainValidationError,
		"PARAM_INVALID",
		"A parameter has the wrong type",
	)

	ErrBackendUnavailable = NewDomainError(
		DomainUnavailableError,
		"BACKEND_UNAVAILABLE",
		"The graph backend is unavailable",
	).WithRetryable(true)

	ErrQueryTimeout = NewDomainError(
		DomainTimeoutError,
		"QUERY_TIMEOUT",
		"The query did not complete in time",
	).WithRetryable(true)

	ErrMalformedResponse = NewDomainError(
		DomainUpstreamError,
		"MALFORMED_RESPONSE",
		"The graph backend returned an unexpected payload",
	)

	ErrInvalidPayload = NewDomainError(
		DomainValidationError,
		"INVALID_PAYLOAD",
		"The request payload is invalid",
	)

	ErrUnknownDataset = NewDomainError(
		DomainNotFoundError,
		"UNKNOWN_DATASET",
		"The requested dataset does not exist",
	)

	ErrRateLimitExceeded = NewDomainError(
		DomainRateLimitError,
		"RATE_LIMIT_EXCEEDED",
		"Too many requests, please try again later",
	).WithRetryable(true)

	ErrEventPublishFailed = NewDomainError(
		DomainInfrastructureError,
		"EVENT_PUBLISH_FAILED",
		"Failed to publish domain event",
	).WithRetryable(true)
)

// NewUnknownStrategy reports a strategy key that is not in the catalog
func NewUnknownStrategy(key string) *DomainError {
	return ErrUnknownStrategy.derive(fmt.Sprintf("unknown strategy %q", key)).
		WithDetail("strategy", key)
}

// NewParamMissing reports a required parameter that was absent or blank
func NewParamMissing(name string) *DomainError {
	return ErrParamMissing.derive(fmt.Sprintf("parameter %q is required", name)).
		WithDetail("param", name)
}

// NewParamOutOfRange reports a numeric parameter outside [min, max]
func NewParamOutOfRange(name string, got, min, max float64) *DomainError {
	return ErrParamOutOfRange.derive(fmt.Sprintf("parameter %q must be between %g and %g, got %g", name, min, max, got)).
		WithDetail("param", name).
		WithDetail("got", got).
		WithDetail("min", min).
		WithDetail("max", max)
}

// NewParamInvalid reports a parameter value that could not be read as its declared kind
func NewParamInvalid(name string, value interface{}, reason string) *DomainError {
	return ErrParamInvalid.derive(fmt.Sprintf("parameter %q %s", name, reason)).
		WithDetail("param", name).
		WithDetail("value", fmt.Sprint(value))
}

// NewBackendUnavailable wraps a transport or store failure. The diagnostic text is kept verbatim.
func NewBackendUnavailable(diagnostic string, cause error) *DomainError {
	err := ErrBackendUnavailable.derive("graph backend unavailable").WithCause(cause)
	if diagnostic != "" {
		err.WithDetail("diagnostic", diagnostic)
	}
	return err
}

// NewQueryTimeout reports an operation that exceeded its deadline
func NewQueryTimeout(operation string, timeout time.Duration, cause error) *DomainError {
	err := ErrQueryTimeout.derive(fmt.Sprintf("%s timed out", operation)).
		WithCause(cause).
		WithDetail("operation", operation)
	if timeout > 0 {
		err.WithDetail("timeout", timeout.String())
	}
	return err
}

// FromStoreError maps a graph store or collaborator failure onto the taxonomy. Domain
// errors pass through; anything else is BACKEND_UNAVAILABLE, naming the store operation
// when there is one.
func FromStoreError(err error) error {
	if err == nil || GetDomainError(err) != nil {
		return err
	}
	diagnostic := err.Error()
	if IsDatabase(err) {
		storeErr := GetAppError(err)
		diagnostic = storeErr.Message
		if storeErr.Cause != nil {
			diagnostic += ": " + storeErr.Cause.Error()
		}
	}
	return NewBackendUnavailable(diagnostic, err)
}

// NewMalformedResponse reports a backend payload that does not match any known shape
func NewMalformedResponse(diagnostic string, cause error) *DomainError {
	err := ErrMalformedResponse.derive("unexpected response from graph backend").WithCause(cause)
	if diagnostic != "" {
		err.WithDetail("diagnostic", diagnostic)
	}
	return err
}

// NewInvalidPayload reports a request body that failed validation
func NewInvalidPayload(message string) *DomainError {
	return ErrInvalidPayload.derive(message)
}

// NewUnknownDataset reports a bulk read of a dataset that does not exist
func NewUnknownDataset(name string) *DomainError {
	return ErrUnknownDataset.derive(fmt.Sprintf("unknown dataset %q", name)).
		WithDetail("dataset", name)
}

// NewRateLimitExceeded reports a client that exhausted its request budget
func NewRateLimitExceeded(client string) *DomainError {
	return ErrRateLimitExceeded.derive(ErrRateLimitExceeded.Message).WithDetail("client", client)
}

// GetDomainError extracts a DomainError from an error chain
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ValidationErrors aggregates multiple validation errors
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*DomainError, 0),
	}
}

// Add adds a validation error
func (v *ValidationErrors) Add(field string, message string) {
	err := NewDomainError(DomainValidationError, "FIELD_VALIDATION_ERROR", message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(messages, "; "))
}

// ToMap converts validation errors to a map for JSON serialization
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)

	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}
		result[field] = append(result[field], err.Message)
	}

	return result
}

// AsDomainError folds the collection into a single INVALID_PAYLOAD error carrying the per-field messages
func (v *ValidationErrors) AsDomainError() *DomainError {
	return NewInvalidPayload(v.Error()).WithDetail("fields", v.ToMap())
}

// DomainErrorResponse represents the API error response format for domain errors
type DomainErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      DomainErrorType        `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// NewDomainErrorResponse creates an error response from a domain error
func NewDomainErrorResponse(err *DomainError, requestID string) *DomainErrorResponse {
	return &DomainErrorResponse{
		Error:     true,
		Type:      err.Type,
		Code:      err.Code,
		Message:   err.Message,
		Details:   err.Details,
		Retryable: err.Retryable,
		RequestID: requestID,
		Timestamp: fmt.Sprintf("%d", timeNow().Unix()),
	}
}

// Helper function for testing (can be mocked)
var timeNow = func() time.Time {
	return time.Now()
}
