// Package orchestrate routes chat requests to model providers with
// response caching, bounded retries, and a single-level fallback.
package orchestrate

import (
	"context"
	"time"
)

// ModelType selects which configured provider serves a request.
type ModelType string

const (
	// ModelPrimary is the main hosted model.
	ModelPrimary ModelType = "primary"
	// ModelSecondary is the self-hosted fallback model.
	ModelSecondary ModelType = "secondary"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single turn of conversation context.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Request carries one generation request to a provider.
type Request struct {
	Message     string
	Context     []Message
	MaxTokens   int
	Temperature float32
}

// Response is a provider's answer to a Request.
type Response struct {
	Content    string `json:"content"`
	ModelUsed  string `json:"model_used"`
	TokensUsed int    `json:"tokens_used"`
}

// Provider generates a model response for a single request. Implementations
// must honor context cancellation and return an error rather than a partial
// response on failure.
type Provider interface {
	// Name returns the provider name for audit and response metadata.
	Name() string

	// Generate produces a completion for the given request.
	Generate(ctx context.Context, req Request) (Response, error)
}
