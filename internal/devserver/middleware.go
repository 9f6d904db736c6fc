package devserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/authsession/internal/logger"
	"github.com/marmos91/authsession/pkg/metrics"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// ClaimsFromContext returns the claims stored by BearerAuth, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// extractBearerToken extracts the token from a Bearer Authorization header.
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// BearerAuth rejects requests without a valid access token with a 401
// problem response and stores the claims in the request context otherwise.
func BearerAuth(tokens *TokenService, m metrics.ServerMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				metrics.RecordAuthFailure(m, "missing_token")
				Unauthorized(w, "Authorization header required")
				return
			}

			claims, err := tokens.ValidateAccessToken(tokenString)
			if err != nil {
				reason := "invalid_token"
				detail := "Invalid token"
				if errors.Is(err, ErrExpiredToken) {
					reason = "expired_token"
					detail = "Token has expired"
				}
				metrics.RecordAuthFailure(m, reason)
				Unauthorized(w, detail)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestLogger logs every request and records its metrics under the
// matched route pattern.
func requestLogger(m metrics.ServerMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.ObserveHTTP(m, r.Method, route, ww.Status(), duration)

			logArgs := []any{
				logger.KeyRequestID, requestID,
				logger.KeyMethod, r.Method,
				logger.KeyEndpoint, r.URL.Path,
				logger.KeyStatus, ww.Status(),
				logger.KeyDurationMs, float64(duration.Microseconds()) / 1000.0,
			}
			if route == "/metrics" || route == "/health" {
				logger.Debug("dev server request", logArgs...)
			} else {
				logger.Info("dev server request", logArgs...)
			}
		})
	}
}
