// Package filter evaluates raw user input against ordered regex rules and an
// external moderation check, producing a single allow/sanitize/block verdict.
package filter

import (
	"fmt"
	"regexp"
)

// Action is a filter outcome or per-rule disposition.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionSanitize Action = "sanitize"
	ActionBlock    Action = "block"
)

// RuleConfig is one prompt-filter rule as loaded from the rules artifact.
type RuleConfig struct {
	Name        string `yaml:"name" json:"name"`
	Pattern     string `yaml:"pattern" json:"pattern"`
	Action      Action `yaml:"action" json:"action"`
	Message     string `yaml:"message" json:"message"`
	Replacement string `yaml:"replacement,omitempty" json:"replacement,omitempty"`
	Category    string `yaml:"category,omitempty" json:"category,omitempty"`
}

// Rule is a compiled filter rule. Evaluation order is significant: rules run
// in configuration order and the first matching block rule short-circuits.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Action      Action
	Message     string
	Replacement string
	Category    string
}

// Settings holds the small settings map supplied alongside the rule list.
type Settings struct {
	// Enabled turns the whole engine on. A disabled engine allows
	// everything untouched.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// MaxMessageLength blocks input longer than this before any rule runs.
	MaxMessageLength int `yaml:"max_message_length" json:"max_message_length"`

	// CaseSensitive controls rule compilation; rules are case-insensitive
	// by default.
	CaseSensitive bool `yaml:"case_sensitive" json:"case_sensitive"`

	// StrictMode selects fail-closed behavior: moderation-call failures and
	// internal errors block instead of passing content through.
	StrictMode bool `yaml:"strict_mode" json:"strict_mode"`

	// ModerationEnabled gates the external moderation stage.
	ModerationEnabled bool `yaml:"moderation_enabled" json:"moderation_enabled"`
}

// DefaultSettings returns the engine defaults.
func DefaultSettings() Settings {
	return Settings{
		Enabled:          true,
		MaxMessageLength: 4096,
	}
}

// Verdict is the outcome of filtering one message.
//
// Invariants: Allowed == false exactly when Action == ActionBlock.
// FilteredContent is populated only when sanitization occurred; otherwise
// callers continue with their original content.
type Verdict struct {
	Allowed              bool     `json:"allowed"`
	Action               Action   `json:"action"`
	FilteredContent      string   `json:"filtered_content,omitempty"`
	UserMessage          string   `json:"user_message,omitempty"`
	TriggeredRules       []string `json:"triggered_rules,omitempty"`
	ModerationFlagged    bool     `json:"moderation_flagged"`
	ModerationCategories []string `json:"moderation_categories,omitempty"`
}

// CompileRules compiles rule configurations in order. A rule that fails to
// compile aborts the whole load: a silently dropped rule would weaken the
// filter without anyone noticing.
func CompileRules(configs []RuleConfig, caseSensitive bool) ([]Rule, error) {
	rules := make([]Rule, 0, len(configs))
	for _, rc := range configs {
		if rc.Name == "" {
			return nil, fmt.Errorf("filter rule with pattern %q has no name", rc.Pattern)
		}
		switch rc.Action {
		case ActionBlock, ActionSanitize:
		default:
			return nil, fmt.Errorf("filter rule %s: action %q is not valid; must be block or sanitize", rc.Name, rc.Action)
		}

		pattern := rc.Pattern
		if !caseSensitive {
			pattern = "(?i)" + pattern
		}
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("filter rule %s: compiling pattern: %w", rc.Name, err)
		}

		replacement := rc.Replacement
		if rc.Action == ActionSanitize && replacement == "" {
			replacement = "***"
		}

		rules = append(rules, Rule{
			Name:        rc.Name,
			Pattern:     compiled,
			Action:      rc.Action,
			Message:     rc.Message,
			Replacement: replacement,
			Category:    rc.Category,
		})
	}
	return rules, nil
}
