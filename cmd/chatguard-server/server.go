package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chatguard-ai/chatguard/middleware"
	"github.com/chatguard-ai/chatguard/pkg/orchestrate"
	"github.com/chatguard-ai/chatguard/pkg/pipeline"
)

// maxRequestBody bounds the chat request body size.
const maxRequestBody = 1 << 20

type chatRequest struct {
	Message   string `json:"message"`
	ModelType string `json:"model_type,omitempty"`
}

type chatResponse struct {
	Reply             string   `json:"reply"`
	Role              string   `json:"role"`
	Blocked           bool     `json:"blocked"`
	Sanitized         bool     `json:"sanitized"`
	TriggeredFilters  []string `json:"triggered_filters,omitempty"`
	ModerationFlagged bool     `json:"moderation_flagged"`
	ModelUsed         string   `json:"model_used,omitempty"`
	TokensUsed        int      `json:"tokens_used,omitempty"`
	RequestID         string   `json:"request_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newRouter(coordinator *pipeline.Coordinator, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /v1/chat", handleChat(coordinator, logger))
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleChat(coordinator *pipeline.Coordinator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middleware.IdentityFrom(r.Context())
		if identity.TenantID == "" || identity.UserID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "X-Tenant-ID and X-User-ID headers are required"})
			return
		}

		var req chatRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		if req.Message == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
			return
		}

		modelType := orchestrate.ModelType(req.ModelType)
		switch modelType {
		case "", orchestrate.ModelPrimary, orchestrate.ModelSecondary:
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "model_type must be primary or secondary"})
			return
		}

		result, err := coordinator.Process(r.Context(), pipeline.Request{
			TenantID:  identity.TenantID,
			UserID:    identity.UserID,
			RequestID: identity.RequestID,
			Message:   req.Message,
			ModelType: modelType,
		})
		if err != nil {
			logger.Error("processing chat request",
				"tenant_id", identity.TenantID,
				"request_id", identity.RequestID,
				"error", err,
			)
			status := http.StatusInternalServerError
			if errors.Is(err, orchestrate.ErrProviderExhausted) {
				status = http.StatusServiceUnavailable
			}
			writeJSON(w, status, errorResponse{Error: "failed to generate a response"})
			return
		}

		writeJSON(w, http.StatusOK, chatResponse{
			Reply:             result.Reply,
			Role:              string(result.Role),
			Blocked:           result.Blocked,
			Sanitized:         result.Sanitized,
			TriggeredFilters:  result.TriggeredFilters,
			ModerationFlagged: result.ModerationFlagged,
			ModelUsed:         result.ModelUsed,
			TokensUsed:        result.TokensUsed,
			RequestID:         identity.RequestID,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
