package middleware

import (
	"net"
	"net/http"

	pkgerrors "recommender/pkg/errors"
	"recommender/pkg/ratelimit"

	"go.uber.org/zap"
)

// RateLimit rejects clients over their budget with RATE_LIMIT_EXCEEDED. Clients are keyed
// by remote IP, so it belongs after chi's RealIP.
func RateLimit(limiter ratelimit.RateLimiter, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r)

			allowed, err := limiter.Allow(r.Context(), client)
			if err != nil {
				// Fail open: a broken limiter must not take the API down
				logger.Warn("Rate limiter failed", zap.String("client", client), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "1")
				errorHandler.Handle(w, r, pkgerrors.NewRateLimitExceeded(client))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
