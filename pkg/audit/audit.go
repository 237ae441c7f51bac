// Package audit publishes security events emitted by the filtering and
// masking pipeline. Events carry rule names, categories, and counts, never
// the offending content or raw PII.
package audit

import (
	"context"
	"time"
)

// EventType classifies a security event.
type EventType string

const (
	EventBlocked           EventType = "prompt_blocked"
	EventSanitized         EventType = "prompt_sanitized"
	EventLengthExceeded    EventType = "prompt_length_exceeded"
	EventModerationFlagged EventType = "moderation_flagged"
	EventModerationFailure EventType = "moderation_failure"
	EventFilterError       EventType = "filter_internal_error"
	EventResidualPII       EventType = "residual_pii_detected"
)

// Details carries the structured payload of an event. Fields are the only
// facts a sink ever sees about the content: names, categories, and counts.
type Details struct {
	TriggeredRules []string `json:"triggered_rules,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	MatchCount     int      `json:"match_count,omitempty"`
	ContentLength  int      `json:"content_length,omitempty"`
	Reason         string   `json:"reason,omitempty"`
}

// Event is one security-audit record.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Details   Details   `json:"details"`
}

// Sink receives security events. Publishing is best-effort: the pipeline
// never fails a request because a sink could not accept an event.
type Sink interface {
	// Publish delivers events to the sink.
	Publish(ctx context.Context, events ...Event) error

	// Close flushes pending events and releases resources.
	Close() error
}

// Topics names the destinations events are routed to.
type Topics struct {
	Events string `json:"events" yaml:"events"`
	Blocks string `json:"blocks" yaml:"blocks"`
	Errors string `json:"errors" yaml:"errors"`
}

// DefaultTopics returns the default topic names.
func DefaultTopics() Topics {
	return Topics{
		Events: "chatguard.security.events",
		Blocks: "chatguard.security.blocks",
		Errors: "chatguard.security.errors",
	}
}

// TopicRouter determines which topics an event is published to.
type TopicRouter struct {
	topics Topics
}

// NewTopicRouter creates a router over the given topic names.
func NewTopicRouter(topics Topics) *TopicRouter {
	return &TopicRouter{topics: topics}
}

// Route returns the topic list for an event.
//
// Routing rules:
//   - every event goes to Topics.Events
//   - block outcomes (regex, length, moderation) also go to Topics.Blocks
//   - failures (moderation call, internal error) also go to Topics.Errors
func (r *TopicRouter) Route(event Event) []string {
	topics := []string{r.topics.Events}

	switch event.Type {
	case EventBlocked, EventLengthExceeded, EventModerationFlagged:
		topics = append(topics, r.topics.Blocks)
	case EventModerationFailure, EventFilterError:
		topics = append(topics, r.topics.Errors)
	}

	return topics
}
