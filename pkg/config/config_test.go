package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chatguard-ai/chatguard/pkg/filter"
)

// repoRoot returns the absolute path to the repository root by walking up
// from the test file location until it finds go.mod.
func repoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find repository root (go.mod)")
		}
		dir = parent
	}
}

// TestLoadConfig parses configs/chatguard.yaml and verifies key fields.
func TestLoadConfig(t *testing.T) {
	root := repoRoot(t)
	cfgPath := filepath.Join(root, "configs", "chatguard.yaml")

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("LoadConfig(%s): %v", cfgPath, err)
	}

	if cfg.Service.ID != "chatguard" {
		t.Errorf("service.id = %q, want %q", cfg.Service.ID, "chatguard")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if !cfg.Filter.Enabled {
		t.Error("filter.enabled = false, want true")
	}
	if cfg.Filter.MaxMessageLength != 4096 {
		t.Errorf("filter.max_message_length = %d, want 4096", cfg.Filter.MaxMessageLength)
	}
	if cfg.Models.Orchestrator.MaxRetries != 3 {
		t.Errorf("models.orchestrator.max_retries = %d, want 3", cfg.Models.Orchestrator.MaxRetries)
	}
	if cfg.Models.Orchestrator.CacheTTL != 24*time.Hour {
		t.Errorf("models.orchestrator.cache_ttl = %v, want 24h", cfg.Models.Orchestrator.CacheTTL)
	}
	if cfg.Audit.Kafka.Topics.Events != "chatguard.security.events" {
		t.Errorf("audit.kafka.topics.events = %q, want chatguard.security.events", cfg.Audit.Kafka.Topics.Events)
	}
}

// TestLoadRuleFile parses configs/filter_rules.yaml and verifies the filter
// rule conversion.
func TestLoadRuleFile(t *testing.T) {
	root := repoRoot(t)
	rf, err := LoadRuleFile(filepath.Join(root, "configs", "filter_rules.yaml"))
	if err != nil {
		t.Fatalf("LoadRuleFile: %v", err)
	}

	if len(rf.Rules) == 0 {
		t.Fatal("rules file is empty")
	}
	if rf.Rules[0].Name != "prompt_injection_ignore" {
		t.Errorf("rules[0].name = %q, want prompt_injection_ignore", rf.Rules[0].Name)
	}

	rules := rf.FilterRules()
	if len(rules) != len(rf.Rules) {
		t.Fatalf("FilterRules returned %d rules, want %d", len(rules), len(rf.Rules))
	}
	if rules[0].Action != filter.ActionBlock {
		t.Errorf("rules[0].action = %q, want block", rules[0].Action)
	}
	if _, err := filter.CompileRules(rules, false); err != nil {
		t.Errorf("shipped rules do not compile: %v", err)
	}
}

// TestLoadRuleFile_Invalid verifies structural validation of rules files.
func TestLoadRuleFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "unknown action",
			content: `rules:
  - name: odd
    pattern: x
    action: quarantine
`,
			wantErr: "action",
		},
		{
			name: "missing name",
			content: `rules:
  - pattern: x
    action: block
`,
			wantErr: "name",
		},
		{
			name: "missing pattern",
			content: `rules:
  - name: odd
    action: block
`,
			wantErr: "pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rules.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			_, err := LoadRuleFile(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

// TestSubstituteEnvVars verifies ${VAR} and ${VAR:-default} expansion.
func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("CHATGUARD_TEST_SET", "actual")
	t.Setenv("CHATGUARD_TEST_EMPTY", "")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"set variable", "v: ${CHATGUARD_TEST_SET}", "v: actual"},
		{"set variable ignores default", "v: ${CHATGUARD_TEST_SET:-fallback}", "v: actual"},
		{"unset with default", "v: ${CHATGUARD_TEST_UNSET:-fallback}", "v: fallback"},
		{"empty with default", "v: ${CHATGUARD_TEST_EMPTY:-fallback}", "v: fallback"},
		{"unset without default", "v: ${CHATGUARD_TEST_UNSET}", "v: "},
		{"no expression", "v: plain", "v: plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(substituteEnvVars([]byte(tt.in))); got != tt.want {
				t.Errorf("substituteEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestValidate verifies config validation failures.
func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Service: ServiceConfig{ID: "chatguard"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"minimal valid config", func(c *Config) {}, false},
		{"missing service id", func(c *Config) { c.Service.ID = "" }, true},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, true},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, true},
		{"redis backend without addr", func(c *Config) { c.Cache.Backend = "redis" }, true},
		{"redis backend with addr", func(c *Config) {
			c.Cache.Backend = "redis"
			c.Cache.Redis.Addr = "localhost:6379"
		}, false},
		{"unknown audit sink", func(c *Config) { c.Audit.Sink = "syslog" }, true},
		{"kafka sink without brokers", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.Sink = "kafka"
		}, true},
		{"temperature out of range", func(c *Config) { c.Models.Orchestrator.Temperature = 3.5 }, true},
		{"unknown log level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
