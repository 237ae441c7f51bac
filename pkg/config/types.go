// Package config provides configuration loading and validation for the
// chatguard pipeline. It supports YAML configuration files with environment
// variable substitution.
package config

import "time"

// Config is the top-level configuration structure mirroring chatguard.yaml.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Server  ServerConfig  `yaml:"server"`
	Filter  FilterConfig  `yaml:"filter"`
	Models  ModelsConfig  `yaml:"models"`
	Cache   CacheConfig   `yaml:"cache"`
	Audit   AuditConfig   `yaml:"audit"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServiceConfig holds service identification metadata.
type ServiceConfig struct {
	ID          string `yaml:"id"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// FilterConfig holds prompt filter settings.
type FilterConfig struct {
	Enabled          bool             `yaml:"enabled"`
	MaxMessageLength int              `yaml:"max_message_length"`
	CaseSensitive    bool             `yaml:"case_sensitive"`
	StrictMode       bool             `yaml:"strict_mode"`
	RulesFile        string           `yaml:"rules_file"`
	Moderation       ModerationConfig `yaml:"moderation"`
}

// ModerationConfig holds external moderation API settings.
type ModerationConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ModelsConfig holds provider and orchestration settings.
type ModelsConfig struct {
	Primary      PrimaryModelConfig   `yaml:"primary"`
	Secondary    SecondaryModelConfig `yaml:"secondary"`
	Orchestrator OrchestratorConfig   `yaml:"orchestrator"`
}

// PrimaryModelConfig configures the hosted OpenAI-compatible provider.
type PrimaryModelConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// SecondaryModelConfig configures the self-hosted sidecar provider.
type SecondaryModelConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// OrchestratorConfig holds retry, fallback, and cache TTL settings.
type OrchestratorConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	FallbackEnabled bool          `yaml:"fallback_enabled"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	MaxTokens       int           `yaml:"max_tokens"`
	Temperature     float32       `yaml:"temperature"`
}

// CacheConfig selects and configures the response cache backend.
type CacheConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// AuditConfig selects and configures the audit event sink.
type AuditConfig struct {
	Enabled bool        `yaml:"enabled"`
	Sink    string      `yaml:"sink"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

// KafkaConfig holds Kafka connection and producer settings.
type KafkaConfig struct {
	Brokers  []string            `yaml:"brokers"`
	Topics   KafkaTopicsConfig   `yaml:"topics"`
	Producer KafkaProducerConfig `yaml:"producer"`
}

// KafkaTopicsConfig maps audit event streams to Kafka topic names.
type KafkaTopicsConfig struct {
	Events string `yaml:"events"`
	Blocks string `yaml:"blocks"`
	Errors string `yaml:"errors"`
}

// KafkaProducerConfig holds Kafka producer settings.
type KafkaProducerConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Compression   string        `yaml:"compression"`
	RequiredAcks  string        `yaml:"required_acks"`
	MaxRetries    int           `yaml:"max_retries"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RuleFile is the on-disk format of a filter rules artifact.
type RuleFile struct {
	Version string          `yaml:"version"`
	Rules   []RuleFileEntry `yaml:"rules"`
}

// RuleFileEntry is a single filter rule as written in a rules file.
type RuleFileEntry struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Action      string `yaml:"action"`
	Replacement string `yaml:"replacement"`
	Message     string `yaml:"message"`
	Category    string `yaml:"category"`
}
