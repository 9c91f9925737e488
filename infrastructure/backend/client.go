// Package backend talks to the REST collaborator that owns the recommendation graph.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "recommender/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const maxDiagnostic = 512

// BreakerConfig holds configuration for the circuit breaker around the collaborator
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration for the circuit breaker
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Config configures the collaborator client
type Config struct {
	BaseURL string
	Timeout time.Duration
	Breaker BreakerConfig
}

// NormalizeBaseURL trims trailing slashes and appends /recommend when missing
func NormalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if strings.HasSuffix(base, "/recommend") {
		return base
	}
	return base + "/recommend"
}

// statusError is a non-2xx answer from the collaborator
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Body)
}

// Client is a JSON-over-HTTP client guarded by a circuit breaker.
// It does not retry; retries are left to the caller.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient creates a collaborator client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	breakerCfg := cfg.Breaker
	if breakerCfg == (BreakerConfig{}) {
		breakerCfg = DefaultBreakerConfig()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "recommendation-backend",
		MaxRequests: breakerCfg.MaxRequests,
		Interval:    breakerCfg.Interval,
		Timeout:     breakerCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerCfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= breakerCfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var se *statusError
			return errors.As(err, &se) && se.Status < http.StatusInternalServerError
		},
	})

	return &Client{
		baseURL: NormalizeBaseURL(cfg.BaseURL),
		http:    httpClient,
		breaker: cb,
		logger:  logger,
	}
}

// BaseURL returns the normalized base
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get fetches path with an already-encoded query and returns the raw body
func (c *Client) Get(ctx context.Context, path, rawQuery string) ([]byte, error) {
	target := c.baseURL + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, req)
}

// Post sends body as JSON
func (c *Client) Post(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(ctx, req)
	return err
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &statusError{Status: resp.StatusCode, Body: truncate(string(body))}
		}
		return body, nil
	})

	c.logger.Debug("Backend call",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)

	if err == nil {
		return result.([]byte), nil
	}
	// Deadlines and cancellations pass through so the caller can classify them.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ctxErr)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, pkgerrors.NewBackendUnavailable("circuit breaker open: "+err.Error(), err)
	}

	var se *statusError
	if errors.As(err, &se) {
		diagnostic := se.Body
		if diagnostic == "" {
			diagnostic = http.StatusText(se.Status)
		}
		// 5xx and throttling mean the collaborator cannot serve; any other status is an
		// answer this client did not expect.
		if se.Status >= http.StatusInternalServerError || se.Status == http.StatusTooManyRequests {
			return nil, pkgerrors.NewBackendUnavailable(diagnostic, se).WithDetail("status", se.Status)
		}
		return nil, pkgerrors.NewMalformedResponse(diagnostic, se).WithDetail("status", se.Status)
	}
	return nil, pkgerrors.NewBackendUnavailable(err.Error(), err)
}

// IsNotFound reports whether err is a 404 from the collaborator
func IsNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxDiagnostic {
		return s[:maxDiagnostic] + "..."
	}
	return s
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
