package filter

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ModerationResult is the outcome of an external moderation check.
type ModerationResult struct {
	Flagged    bool
	Categories []string
}

// ModerationClient checks content against a safety-policy classifier.
type ModerationClient interface {
	Check(ctx context.Context, content string) (ModerationResult, error)
}

// OpenAIModeration implements ModerationClient against the OpenAI
// Moderations API.
type OpenAIModeration struct {
	client *openai.Client
}

// Ensure OpenAIModeration implements the ModerationClient interface.
var _ ModerationClient = (*OpenAIModeration)(nil)

// NewOpenAIModeration creates a moderation client with the given API key.
// baseURL may point at an OpenAI-compatible endpoint and is optional.
func NewOpenAIModeration(apiKey, baseURL string) *OpenAIModeration {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIModeration{client: openai.NewClientWithConfig(cfg)}
}

// NewOpenAIModerationWithClient wraps an existing client, e.g. one pointed
// at a test server.
func NewOpenAIModerationWithClient(client *openai.Client) *OpenAIModeration {
	return &OpenAIModeration{client: client}
}

// Check submits content for moderation. The caller supplies timeout and
// cancellation through ctx.
func (m *OpenAIModeration) Check(ctx context.Context, content string) (ModerationResult, error) {
	resp, err := m.client.Moderations(ctx, openai.ModerationRequest{
		Input: content,
	})
	if err != nil {
		return ModerationResult{}, fmt.Errorf("moderation request: %w", err)
	}
	if len(resp.Results) == 0 {
		return ModerationResult{}, fmt.Errorf("moderation response contained no results")
	}

	result := resp.Results[0]
	return ModerationResult{
		Flagged:    result.Flagged,
		Categories: flaggedCategories(result.Categories),
	}, nil
}

// flaggedCategories collects the names of categories the classifier flagged.
func flaggedCategories(c openai.ResultCategories) []string {
	var names []string
	for _, entry := range []struct {
		name    string
		flagged bool
	}{
		{"hate", c.Hate},
		{"hate/threatening", c.HateThreatening},
		{"harassment", c.Harassment},
		{"harassment/threatening", c.HarassmentThreatening},
		{"self-harm", c.SelfHarm},
		{"self-harm/intent", c.SelfHarmIntent},
		{"self-harm/instructions", c.SelfHarmInstructions},
		{"sexual", c.Sexual},
		{"sexual/minors", c.SexualMinors},
		{"violence", c.Violence},
		{"violence/graphic", c.ViolenceGraphic},
	} {
		if entry.flagged {
			names = append(names, entry.name)
		}
	}
	return names
}
