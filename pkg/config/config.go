package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/chatguard-ai/chatguard/pkg/filter"
)

// envVarPattern matches ${VAR} and ${VAR:-default} expressions.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// LoadConfig reads a YAML config file, performs environment variable
// substitution on the raw bytes, then unmarshals into a Config struct.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	data = substituteEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadRuleFile reads a filter rules artifact and parses it into a RuleFile.
// Rules files go through the same environment variable substitution as the
// main config.
func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file %s: %w", path, err)
	}

	data = substituteEnvVars(data)

	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}

	for i, rule := range rf.Rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("rules file %s: rule %d has no name", path, i)
		}
		if rule.Pattern == "" {
			return nil, fmt.Errorf("rules file %s: rule %q has no pattern", path, rule.Name)
		}
		switch filter.Action(rule.Action) {
		case filter.ActionBlock, filter.ActionSanitize:
		default:
			return nil, fmt.Errorf("rules file %s: rule %q action %q is not valid; must be block or sanitize",
				path, rule.Name, rule.Action)
		}
	}

	return &rf, nil
}

// FilterRules converts a loaded rules file into the filter engine's rule
// configuration format.
func (rf *RuleFile) FilterRules() []filter.RuleConfig {
	rules := make([]filter.RuleConfig, 0, len(rf.Rules))
	for _, r := range rf.Rules {
		rules = append(rules, filter.RuleConfig{
			Name:        r.Name,
			Pattern:     r.Pattern,
			Action:      filter.Action(r.Action),
			Replacement: r.Replacement,
			Message:     r.Message,
			Category:    r.Category,
		})
	}
	return rules
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns in content
// with the corresponding environment variable values. If a variable is not
// set and no default is provided, the expression is replaced with an empty
// string.
func substituteEnvVars(content []byte) []byte {
	return envVarPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		groups := envVarPattern.FindSubmatch(match)
		if groups == nil {
			return match
		}

		varName := string(groups[1])
		defaultVal := ""
		hasDefault := len(groups) > 2 && groups[2] != nil
		if hasDefault {
			defaultVal = string(groups[2])
		}

		val, ok := os.LookupEnv(varName)
		if !ok || val == "" {
			if hasDefault {
				return []byte(defaultVal)
			}
			return []byte("")
		}
		return []byte(val)
	})
}

// Validate performs basic validation on a loaded Config. It checks that
// required fields are set and that values are within expected ranges.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Service.ID == "" {
		return fmt.Errorf("service.id is required")
	}

	if cfg.Server.Port < 0 {
		return fmt.Errorf("server.port must be non-negative, got %d", cfg.Server.Port)
	}

	if cfg.Filter.MaxMessageLength < 0 {
		return fmt.Errorf("filter.max_message_length must be non-negative, got %d", cfg.Filter.MaxMessageLength)
	}

	backend := cfg.Cache.Backend
	if backend != "" && backend != "memory" && backend != "redis" {
		return fmt.Errorf("cache.backend %q is not valid; must be memory or redis", backend)
	}
	if backend == "redis" && cfg.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when cache.backend is redis")
	}

	sink := cfg.Audit.Sink
	if sink != "" && sink != "local" && sink != "kafka" {
		return fmt.Errorf("audit.sink %q is not valid; must be local or kafka", sink)
	}
	if cfg.Audit.Enabled && sink == "kafka" && len(cfg.Audit.Kafka.Brokers) == 0 {
		return fmt.Errorf("audit.kafka.brokers is required when audit.sink is kafka")
	}

	if cfg.Models.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("models.orchestrator.max_retries must be non-negative, got %d", cfg.Models.Orchestrator.MaxRetries)
	}
	if t := cfg.Models.Orchestrator.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("models.orchestrator.temperature must be between 0.0 and 2.0, got %f", t)
	}

	level := cfg.Logging.Level
	if level != "" {
		validLevels := map[string]bool{
			"debug": true, "info": true, "warn": true, "error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("logging.level %q is not valid; must be one of: debug, info, warn, error", level)
		}
	}

	format := cfg.Logging.Format
	if format != "" && format != "json" && format != "text" {
		return fmt.Errorf("logging.format %q is not valid; must be json or text", format)
	}

	return nil
}
