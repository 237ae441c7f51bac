// Package middleware provides HTTP middleware for integrating chatguard into
// an existing service: identity header extraction, request IDs, and request
// logging.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPConfig configures the HTTP middleware.
type HTTPConfig struct {
	// Header names the identity is read from.
	TenantIDHeader  string `json:"tenant_id_header"`
	UserIDHeader    string `json:"user_id_header"`
	RequestIDHeader string `json:"request_id_header"`

	// Exemptions for request logging.
	ExemptPaths   []string `json:"exempt_paths"`
	ExemptMethods []string `json:"exempt_methods"`
}

// DefaultHTTPConfig returns default HTTP middleware configuration.
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		TenantIDHeader:  "X-Tenant-ID",
		UserIDHeader:    "X-User-ID",
		RequestIDHeader: "X-Request-ID",
		ExemptPaths:     []string{"/health", "/metrics"},
		ExemptMethods:   []string{"OPTIONS"},
	}
}

// Identity is the caller identity extracted from request headers.
type Identity struct {
	TenantID  string
	UserID    string
	RequestID string
}

type contextKey struct{}

// IdentityFrom returns the identity stored by the ExtractIdentity
// middleware, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// ExtractIdentity returns middleware that reads caller identity headers,
// assigns a request ID when the caller did not send one, and echoes the
// request ID back on the response.
func ExtractIdentity(cfg *HTTPConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = DefaultHTTPConfig()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := Identity{
				TenantID:  r.Header.Get(cfg.TenantIDHeader),
				UserID:    r.Header.Get(cfg.UserIDHeader),
				RequestID: r.Header.Get(cfg.RequestIDHeader),
			}
			if id.RequestID == "" {
				id.RequestID = uuid.NewString()
			}
			w.Header().Set(cfg.RequestIDHeader, id.RequestID)

			ctx := context.WithValue(r.Context(), contextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LogRequests returns middleware that logs one line per request. Exempt
// paths and methods are passed through silently.
func LogRequests(logger *slog.Logger, cfg *HTTPConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = DefaultHTTPConfig()
	}
	exemptPaths := make(map[string]bool, len(cfg.ExemptPaths))
	for _, p := range cfg.ExemptPaths {
		exemptPaths[p] = true
	}
	exemptMethods := make(map[string]bool, len(cfg.ExemptMethods))
	for _, m := range cfg.ExemptMethods {
		exemptMethods[m] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptPaths[r.URL.Path] || exemptMethods[r.Method] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if id, ok := IdentityFrom(r.Context()); ok {
				attrs = append(attrs, "tenant_id", id.TenantID, "request_id", id.RequestID)
			}
			logger.Info("request", attrs...)
		})
	}
}
