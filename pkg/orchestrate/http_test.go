package orchestrate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestHTTPProvider_Generate verifies the sidecar request shape and response
// decoding.
func TestHTTPProvider_Generate(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != generatePath {
			t.Errorf("path = %q, want %q", r.URL.Path, generatePath)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(Response{Content: "generated text", TokensUsed: 42})
	}))
	defer server.Close()

	provider := NewHTTPProvider(HTTPConfig{BaseURL: server.URL, Model: "llama-3.1-8b"})
	resp, err := provider.Generate(context.Background(), Request{
		Message:     "hello",
		Context:     []Message{{Role: RoleAssistant, Content: "earlier"}},
		MaxTokens:   256,
		Temperature: 0.5,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got.Message != "hello" {
		t.Errorf("request message = %q, want hello", got.Message)
	}
	if got.Model != "llama-3.1-8b" {
		t.Errorf("request model = %q, want llama-3.1-8b", got.Model)
	}
	if len(got.Context) != 1 || got.Context[0].Content != "earlier" {
		t.Errorf("request context = %+v, want the prior turn", got.Context)
	}

	if resp.Content != "generated text" {
		t.Errorf("content = %q, want generated text", resp.Content)
	}
	if resp.TokensUsed != 42 {
		t.Errorf("tokens = %d, want 42", resp.TokensUsed)
	}
	// ModelUsed falls back to the configured model when the sidecar omits it.
	if resp.ModelUsed != "llama-3.1-8b" {
		t.Errorf("model used = %q, want llama-3.1-8b", resp.ModelUsed)
	}
}

// TestHTTPProvider_ErrorStatus verifies that a non-200 response surfaces as
// an error.
func TestHTTPProvider_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	provider := NewHTTPProvider(HTTPConfig{BaseURL: server.URL})
	if _, err := provider.Generate(context.Background(), Request{Message: "hello"}); err == nil {
		t.Fatal("expected error for 503 response")
	}
}
