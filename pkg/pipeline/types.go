// Package pipeline composes filtering, PII masking, and model orchestration
// into a single request flow for chat messages.
package pipeline

import (
	"context"
	"time"

	"github.com/chatguard-ai/chatguard/pkg/orchestrate"
)

// Request is one user chat message entering the pipeline.
type Request struct {
	TenantID  string
	UserID    string
	RequestID string
	Message   string
	ModelType orchestrate.ModelType
}

// Result is the pipeline's outcome for a single request. When Blocked is
// true, Reply carries the system-generated refusal and no model was called.
type Result struct {
	Reply             string
	Role              orchestrate.Role
	Blocked           bool
	Sanitized         bool
	TriggeredFilters  []string
	ModerationFlagged bool
	ModelUsed         string
	TokensUsed        int
}

// MessageMetadata is attached to every persisted message so downstream
// consumers can tell how the content was transformed.
type MessageMetadata struct {
	Sanitized         bool     `json:"sanitized"`
	TriggeredFilters  []string `json:"triggered_filters,omitempty"`
	Blocked           bool     `json:"blocked"`
	ModerationFlagged bool     `json:"moderation_flagged"`
	Masked            bool     `json:"masked"`
}

// StoredMessage is a single conversation turn handed to the Recorder. Content
// is always the post-masking form; raw PII never reaches persistence.
type StoredMessage struct {
	TenantID  string
	UserID    string
	RequestID string
	Role      orchestrate.Role
	Content   string
	Metadata  MessageMetadata
	CreatedAt time.Time
}

// ContextProvider supplies recent conversation history for a user. A nil
// provider means requests run without context.
type ContextProvider interface {
	History(ctx context.Context, tenantID, userID string, limit int) ([]orchestrate.Message, error)
}

// Recorder persists processed conversation turns. A nil recorder disables
// persistence.
type Recorder interface {
	Record(ctx context.Context, msg StoredMessage) error
}
