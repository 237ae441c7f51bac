package orchestrate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const generatePath = "/api/v1/generate"

// HTTPConfig holds configuration for the sidecar HTTP provider.
type HTTPConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// HTTPProvider serves requests through a self-hosted inference sidecar that
// exposes a plain JSON generate endpoint (llama.cpp style deployments).
type HTTPProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

var _ Provider = (*HTTPProvider)(nil)

type generateRequest struct {
	Message     string    `json:"message"`
	Context     []Message `json:"context,omitempty"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
}

// NewHTTPProvider creates a provider that posts to baseURL + /api/v1/generate.
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (p *HTTPProvider) Name() string {
	return "http-sidecar"
}

// Generate posts the request to the sidecar and decodes its response.
func (p *HTTPProvider) Generate(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(generateRequest{
		Message:     req.Message,
		Context:     req.Context,
		Model:       p.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Response{}, fmt.Errorf("encoding generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("building generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("calling sidecar: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return Response{}, fmt.Errorf("sidecar returned %d: %s", httpResp.StatusCode, payload)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("decoding sidecar response: %w", err)
	}
	if resp.ModelUsed == "" {
		resp.ModelUsed = p.model
	}
	return resp, nil
}
