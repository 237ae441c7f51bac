package orchestrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chatguard-ai/chatguard/pkg/cache"
)

// cacheKeyVersion is bumped whenever the key layout or the semantics of the
// cached payload change, so stale entries from older deployments never match.
const cacheKeyVersion = "v1"

// ErrProviderExhausted is returned when every attempt against the requested
// provider, and the fallback if one applies, has failed.
var ErrProviderExhausted = errors.New("all model providers exhausted")

// ErrUnknownModel is returned when a request names a model type that has no
// configured provider.
var ErrUnknownModel = errors.New("unknown model type")

// Config controls retry, fallback, and caching behavior of the Orchestrator.
type Config struct {
	// MaxRetries is the number of attempts against the requested provider.
	MaxRetries int
	// RetryDelay is the base backoff; attempt n waits n * RetryDelay.
	RetryDelay time.Duration
	// RequestTimeout bounds each individual provider call.
	RequestTimeout time.Duration
	// FallbackEnabled allows one attempt against FallbackModel after the
	// requested provider is exhausted.
	FallbackEnabled bool
	// FallbackModel is the model type tried when fallback applies.
	FallbackModel ModelType
	// CacheTTL is how long successful responses stay cached.
	CacheTTL time.Duration
	// MaxTokens and Temperature are applied to every provider request.
	MaxTokens   int
	Temperature float32
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		RetryDelay:      time.Second,
		RequestTimeout:  30 * time.Second,
		FallbackEnabled: true,
		FallbackModel:   ModelSecondary,
		CacheTTL:        24 * time.Hour,
		MaxTokens:       1024,
		Temperature:     0.7,
	}
}

// Orchestrator dispatches generation requests to providers, consulting the
// response cache first and falling back across model types on failure.
type Orchestrator struct {
	config    Config
	store     cache.Store
	providers map[ModelType]Provider
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator over the given providers. The store
// may be nil, in which case caching is disabled.
func NewOrchestrator(cfg Config, store cache.Store, providers map[ModelType]Provider) *Orchestrator {
	return &Orchestrator{
		config:    cfg,
		store:     store,
		providers: providers,
		sleep:     sleepContext,
	}
}

// Generate returns a model response for the message, serving from cache when
// an identical request was answered within the cache TTL.
func (o *Orchestrator) Generate(ctx context.Context, message string, conversation []Message, modelType ModelType) (Response, error) {
	return o.generate(ctx, message, conversation, modelType, o.config.MaxRetries, o.config.FallbackEnabled)
}

func (o *Orchestrator) generate(ctx context.Context, message string, conversation []Message, modelType ModelType, attempts int, allowFallback bool) (Response, error) {
	provider, ok := o.providers[modelType]
	if !ok {
		return Response{}, fmt.Errorf("%w: %s", ErrUnknownModel, modelType)
	}

	key := o.cacheKey(message, conversation, modelType)
	if resp, ok := o.lookup(ctx, key); ok {
		return resp, nil
	}

	req := Request{
		Message:     message,
		Context:     conversation,
		MaxTokens:   o.config.MaxTokens,
		Temperature: o.config.Temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := o.call(ctx, provider, req)
		if err == nil {
			o.persist(ctx, key, resp)
			return resp, nil
		}
		lastErr = err

		if attempt < attempts {
			if err := o.sleep(ctx, time.Duration(attempt)*o.config.RetryDelay); err != nil {
				return Response{}, err
			}
		}
	}

	if allowFallback && modelType != o.config.FallbackModel {
		resp, err := o.generate(ctx, message, conversation, o.config.FallbackModel, 1, false)
		if err == nil {
			return resp, nil
		}
		return Response{}, fmt.Errorf("%w: %s failed after %d attempts (%v), fallback %s failed (%v)",
			ErrProviderExhausted, modelType, attempts, lastErr, o.config.FallbackModel, err)
	}

	return Response{}, fmt.Errorf("%w: %s failed after %d attempts: %v", ErrProviderExhausted, modelType, attempts, lastErr)
}

func (o *Orchestrator) call(ctx context.Context, provider Provider, req Request) (Response, error) {
	if o.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.RequestTimeout)
		defer cancel()
	}
	return provider.Generate(ctx, req)
}

// cacheKey derives a deterministic key from the request. Serializing through
// a map gives sorted JSON keys, so semantically identical requests always
// hash to the same value.
func (o *Orchestrator) cacheKey(message string, conversation []Message, modelType ModelType) string {
	turns := make([]map[string]any, 0, len(conversation))
	for _, m := range conversation {
		turns = append(turns, map[string]any{
			"role":    string(m.Role),
			"content": m.Content,
		})
	}
	payload, _ := json.Marshal(map[string]any{
		"message":    message,
		"context":    turns,
		"model_type": string(modelType),
	})
	sum := sha256.Sum256(payload)
	return "ai_response:" + cacheKeyVersion + ":" + hex.EncodeToString(sum[:])
}

// lookup fetches a cached response. Cache failures are treated as misses so a
// degraded store never blocks generation.
func (o *Orchestrator) lookup(ctx context.Context, key string) (Response, bool) {
	if o.store == nil {
		return Response{}, false
	}
	raw, err := o.store.Get(ctx, key)
	if err != nil || raw == nil {
		return Response{}, false
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, false
	}
	return resp, true
}

// persist writes a successful response to the cache, best effort.
func (o *Orchestrator) persist(ctx context.Context, key string, resp Response) {
	if o.store == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = o.store.Set(ctx, key, raw, o.config.CacheTTL)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
