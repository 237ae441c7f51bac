package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestExtractIdentity verifies header extraction and request ID assignment.
func TestExtractIdentity(t *testing.T) {
	var got Identity
	handler := ExtractIdentity(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFrom(r.Context())
	}))

	t.Run("headers pass through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
		req.Header.Set("X-Tenant-ID", "t1")
		req.Header.Set("X-User-ID", "u1")
		req.Header.Set("X-Request-ID", "r1")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if got.TenantID != "t1" || got.UserID != "u1" || got.RequestID != "r1" {
			t.Errorf("identity = %+v, want t1/u1/r1", got)
		}
		if echoed := rec.Header().Get("X-Request-ID"); echoed != "r1" {
			t.Errorf("echoed request id = %q, want r1", echoed)
		}
	})

	t.Run("request id generated when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if got.RequestID == "" {
			t.Fatal("no request id assigned")
		}
		if echoed := rec.Header().Get("X-Request-ID"); echoed != got.RequestID {
			t.Errorf("echoed request id = %q, want %q", echoed, got.RequestID)
		}
	})
}

// TestLogRequests verifies one log line per request with exemptions honored.
func TestLogRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := ExtractIdentity(nil)(LogRequests(logger, nil)(next))

	t.Run("logged request", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
		req.Header.Set("X-Tenant-ID", "t1")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		line := buf.String()
		if line == "" {
			t.Fatal("no log line written")
		}
		for _, want := range []string{`"path":"/v1/chat"`, `"status":418`, `"tenant_id":"t1"`} {
			if !strings.Contains(line, want) {
				t.Errorf("log line %q missing %s", line, want)
			}
		}
	})

	t.Run("exempt path is silent", func(t *testing.T) {
		buf.Reset()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
		if buf.Len() != 0 {
			t.Errorf("unexpected log output: %s", buf.String())
		}
	})

	t.Run("exempt method is silent", func(t *testing.T) {
		buf.Reset()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodOptions, "/v1/chat", nil))
		if buf.Len() != 0 {
			t.Errorf("unexpected log output: %s", buf.String())
		}
	})
}
