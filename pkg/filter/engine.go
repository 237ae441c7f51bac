package filter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatguard-ai/chatguard/pkg/audit"
)

// User-facing explanations. Deliberately short and non-technical; internal
// detail stays in audit events.
const (
	lengthMessageFormat = "Your message is too long. Maximum length is %d characters."
	moderationMessage   = "Your input was flagged as inappropriate by our moderation system."
	internalErrMessage  = "An error occurred while checking your input. Please try again."
)

// Engine applies the ordered rule list and the moderation stage to one
// message at a time. The compiled rule table is immutable after
// construction; a configuration reload builds a new Engine rather than
// mutating this one.
type Engine struct {
	rules      []Rule
	settings   Settings
	moderation ModerationClient
	sink       audit.Sink
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithModeration sets the external moderation client. Without one the
// moderation stage is skipped regardless of settings.
func WithModeration(client ModerationClient) EngineOption {
	return func(e *Engine) {
		e.moderation = client
	}
}

// WithAuditSink sets the security-event sink. Publishing is best-effort.
func WithAuditSink(sink audit.Sink) EngineOption {
	return func(e *Engine) {
		e.sink = sink
	}
}

// NewEngine compiles the rule configurations and returns a ready engine.
func NewEngine(configs []RuleConfig, settings Settings, opts ...EngineOption) (*Engine, error) {
	rules, err := CompileRules(configs, settings.CaseSensitive)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		rules:    rules,
		settings: settings,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate runs the full filter state machine over content and returns a
// verdict. Verdicts are values, never errors: a BLOCK outcome is normal
// control flow. Internal faults degrade per strict mode: blocked when
// strict, or allowed with the ORIGINAL content when not. The non-strict
// path deliberately discards any partial sanitization so a half-processed
// text is never presented as sanitized.
func (e *Engine) Evaluate(ctx context.Context, content, tenantID, userID string) (verdict Verdict) {
	if !e.settings.Enabled {
		return Verdict{Allowed: true, Action: ActionAllow}
	}

	defer func() {
		if r := recover(); r != nil {
			e.emit(ctx, audit.EventFilterError, tenantID, userID, audit.Details{
				Reason: fmt.Sprintf("panic: %v", r),
			})
			if e.settings.StrictMode {
				verdict = Verdict{Action: ActionBlock, UserMessage: internalErrMessage}
			} else {
				verdict = Verdict{Allowed: true, Action: ActionAllow}
			}
		}
	}()

	// Stage 1: length check.
	if e.settings.MaxMessageLength > 0 && len(content) > e.settings.MaxMessageLength {
		e.emit(ctx, audit.EventLengthExceeded, tenantID, userID, audit.Details{
			ContentLength: len(content),
		})
		return Verdict{
			Action:      ActionBlock,
			UserMessage: fmt.Sprintf(lengthMessageFormat, e.settings.MaxMessageLength),
		}
	}

	// Stage 2: ordered regex rules.
	verdict = e.applyRules(ctx, content, tenantID, userID)
	if verdict.Action == ActionBlock {
		return verdict
	}

	// Stage 3: moderation over the stage-2 output.
	if e.settings.ModerationEnabled && e.moderation != nil {
		toCheck := content
		if verdict.Action == ActionSanitize {
			toCheck = verdict.FilteredContent
		}

		result, err := e.moderation.Check(ctx, toCheck)
		if err != nil {
			e.emit(ctx, audit.EventModerationFailure, tenantID, userID, audit.Details{
				Reason: err.Error(),
			})
			if e.settings.StrictMode {
				return Verdict{
					Action:         ActionBlock,
					UserMessage:    internalErrMessage,
					TriggeredRules: verdict.TriggeredRules,
				}
			}
			// Fail open: keep the stage-2 outcome.
			return verdict
		}

		if result.Flagged {
			e.emit(ctx, audit.EventModerationFlagged, tenantID, userID, audit.Details{
				Categories:     result.Categories,
				TriggeredRules: verdict.TriggeredRules,
			})
			return Verdict{
				Action:               ActionBlock,
				UserMessage:          moderationMessage,
				TriggeredRules:       verdict.TriggeredRules,
				ModerationFlagged:    true,
				ModerationCategories: result.Categories,
			}
		}
	}

	return verdict
}

// applyRules runs the regex stage: the first matching block rule wins
// immediately; sanitize substitutions accumulate in rule order.
func (e *Engine) applyRules(ctx context.Context, content, tenantID, userID string) Verdict {
	filtered := content
	var triggered []string
	var firstSanitizeMessage string

	for _, rule := range e.rules {
		switch rule.Action {
		case ActionBlock:
			if rule.Pattern.MatchString(filtered) {
				e.emit(ctx, audit.EventBlocked, tenantID, userID, audit.Details{
					TriggeredRules: []string{rule.Name},
				})
				return Verdict{
					Action:         ActionBlock,
					UserMessage:    rule.Message,
					TriggeredRules: []string{rule.Name},
				}
			}
		case ActionSanitize:
			if rule.Pattern.MatchString(filtered) {
				filtered = rule.Pattern.ReplaceAllString(filtered, rule.Replacement)
				triggered = append(triggered, rule.Name)
				if firstSanitizeMessage == "" {
					firstSanitizeMessage = rule.Message
				}
			}
		}
	}

	if len(triggered) == 0 {
		return Verdict{Allowed: true, Action: ActionAllow}
	}

	e.emit(ctx, audit.EventSanitized, tenantID, userID, audit.Details{
		TriggeredRules: triggered,
	})
	return Verdict{
		Allowed:         true,
		Action:          ActionSanitize,
		FilteredContent: filtered,
		UserMessage:     firstSanitizeMessage,
		TriggeredRules:  triggered,
	}
}

// emit publishes a security event, best-effort.
func (e *Engine) emit(ctx context.Context, eventType audit.EventType, tenantID, userID string, details audit.Details) {
	if e.sink == nil {
		return
	}
	_ = e.sink.Publish(ctx, audit.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
		UserID:    userID,
		Details:   details,
	})
}
