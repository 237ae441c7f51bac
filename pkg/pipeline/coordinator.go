package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatguard-ai/chatguard/pkg/audit"
	"github.com/chatguard-ai/chatguard/pkg/filter"
	"github.com/chatguard-ai/chatguard/pkg/mask"
	"github.com/chatguard-ai/chatguard/pkg/orchestrate"
	"github.com/chatguard-ai/chatguard/pkg/pii"
)

// maskingFailureMessage is returned when strict mode refuses a message whose
// PII could not be fully masked.
const maskingFailureMessage = "Your message could not be processed safely. Please remove any personal information and try again."

// defaultHistoryLimit bounds how many prior turns are sent as model context.
const defaultHistoryLimit = 10

// Config controls coordinator behavior.
type Config struct {
	// StrictMode refuses messages that still carry detectable PII after
	// masking instead of sending them to the model.
	StrictMode bool
	// HistoryLimit is the number of prior conversation turns fetched as
	// context. Zero means the default.
	HistoryLimit int
}

// Coordinator runs a chat message through filtering, input masking, model
// generation, and output masking, in that order.
type Coordinator struct {
	config   Config
	detector *pii.Detector
	masker   *mask.Masker
	engine   *filter.Engine
	models   *orchestrate.Orchestrator
	history  ContextProvider
	recorder Recorder
	sink     audit.Sink
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithContextProvider sets the conversation history source.
func WithContextProvider(p ContextProvider) Option {
	return func(c *Coordinator) {
		c.history = p
	}
}

// WithRecorder sets the persistence sink for processed turns.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		c.recorder = r
	}
}

// WithAuditSink sets the sink for pipeline-level security events.
func WithAuditSink(sink audit.Sink) Option {
	return func(c *Coordinator) {
		c.sink = sink
	}
}

// NewCoordinator wires the pipeline stages together.
func NewCoordinator(cfg Config, detector *pii.Detector, masker *mask.Masker, engine *filter.Engine, models *orchestrate.Orchestrator, opts ...Option) *Coordinator {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	c := &Coordinator{
		config:   cfg,
		detector: detector,
		masker:   masker,
		engine:   engine,
		models:   models,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Process runs one message through the full pipeline.
//
// Stage order is fixed: filter first, then input masking, then generation,
// then output masking. A blocked message never reaches the PII stage or the
// model, and persisted content is always the post-masking form.
func (c *Coordinator) Process(ctx context.Context, req Request) (Result, error) {
	modelType := req.ModelType
	if modelType == "" {
		modelType = orchestrate.ModelPrimary
	}

	verdict := c.engine.Evaluate(ctx, req.Message, req.TenantID, req.UserID)
	if !verdict.Allowed {
		res := Result{
			Reply:             verdict.UserMessage,
			Role:              orchestrate.RoleSystem,
			Blocked:           true,
			TriggeredFilters:  verdict.TriggeredRules,
			ModerationFlagged: verdict.ModerationFlagged,
		}
		masked, hadPII := c.maskText(req.Message)
		err := c.record(ctx, req, orchestrate.RoleUser, masked, MessageMetadata{
			Blocked:           true,
			TriggeredFilters:  verdict.TriggeredRules,
			ModerationFlagged: verdict.ModerationFlagged,
			Masked:            hadPII,
		})
		return res, err
	}

	content := req.Message
	sanitized := verdict.Action == filter.ActionSanitize
	if sanitized {
		content = verdict.FilteredContent
	}

	maskedInput, inputHadPII := c.maskText(content)
	if inputHadPII && c.detector.HasResidualPII(content, maskedInput) {
		c.emit(ctx, audit.EventResidualPII, req, audit.Details{
			Reason: "pii detected after masking",
		})
		if c.config.StrictMode {
			return Result{
				Reply:            maskingFailureMessage,
				Role:             orchestrate.RoleSystem,
				Blocked:          true,
				Sanitized:        sanitized,
				TriggeredFilters: verdict.TriggeredRules,
			}, nil
		}
	}

	// History fetch is best effort: a degraded history store costs context,
	// not availability.
	var turns []orchestrate.Message
	if c.history != nil {
		if h, err := c.history.History(ctx, req.TenantID, req.UserID, c.config.HistoryLimit); err == nil {
			turns = h
		}
	}

	resp, err := c.models.Generate(ctx, maskedInput, turns, modelType)
	if err != nil {
		return Result{}, fmt.Errorf("generating reply: %w", err)
	}

	maskedReply, replyHadPII := c.maskText(resp.Content)

	res := Result{
		Reply:             maskedReply,
		Role:              orchestrate.RoleAssistant,
		Sanitized:         sanitized,
		TriggeredFilters:  verdict.TriggeredRules,
		ModerationFlagged: verdict.ModerationFlagged,
		ModelUsed:         resp.ModelUsed,
		TokensUsed:        resp.TokensUsed,
	}

	meta := MessageMetadata{
		Sanitized:         sanitized,
		TriggeredFilters:  verdict.TriggeredRules,
		ModerationFlagged: verdict.ModerationFlagged,
		Masked:            inputHadPII,
	}
	if err := c.record(ctx, req, orchestrate.RoleUser, maskedInput, meta); err != nil {
		return res, err
	}
	if err := c.record(ctx, req, orchestrate.RoleAssistant, maskedReply, MessageMetadata{Masked: replyHadPII}); err != nil {
		return res, err
	}
	return res, nil
}

// ContainsPII reports whether text carries any detectable PII.
func (c *Coordinator) ContainsPII(text string) bool {
	return len(c.detector.Detect(text)) > 0
}

// MaskFields masks every value of a string map, returning a new map. Keys
// are preserved as-is.
func (c *Coordinator) MaskFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		masked, _ := c.maskText(v)
		out[k] = masked
	}
	return out
}

// maskText detects and masks PII in text, reporting whether anything was
// found.
func (c *Coordinator) maskText(text string) (string, bool) {
	matches := c.detector.Detect(text)
	if len(matches) == 0 {
		return text, false
	}
	return c.masker.Mask(text, matches), true
}

func (c *Coordinator) record(ctx context.Context, req Request, role orchestrate.Role, content string, meta MessageMetadata) error {
	if c.recorder == nil {
		return nil
	}
	err := c.recorder.Record(ctx, StoredMessage{
		TenantID:  req.TenantID,
		UserID:    req.UserID,
		RequestID: req.RequestID,
		Role:      role,
		Content:   content,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("recording %s turn: %w", role, err)
	}
	return nil
}

func (c *Coordinator) emit(ctx context.Context, eventType audit.EventType, req Request, details audit.Details) {
	if c.sink == nil {
		return
	}
	_ = c.sink.Publish(ctx, audit.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  req.TenantID,
		UserID:    req.UserID,
		RequestID: req.RequestID,
		Details:   details,
	})
}
