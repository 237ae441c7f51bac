// Package main provides the standalone chatguard server binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chatguard-ai/chatguard/middleware"
	"github.com/chatguard-ai/chatguard/pkg/audit"
	"github.com/chatguard-ai/chatguard/pkg/cache"
	"github.com/chatguard-ai/chatguard/pkg/config"
	"github.com/chatguard-ai/chatguard/pkg/filter"
	"github.com/chatguard-ai/chatguard/pkg/mask"
	"github.com/chatguard-ai/chatguard/pkg/orchestrate"
	"github.com/chatguard-ai/chatguard/pkg/pii"
	"github.com/chatguard-ai/chatguard/pkg/pipeline"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Optional .env file for local development.
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/chatguard.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("chatguard v%s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	store := newCacheStore(cfg.Cache)
	defer store.Close()

	sink, err := newAuditSink(cfg.Audit, logger)
	if err != nil {
		return fmt.Errorf("building audit sink: %w", err)
	}
	defer sink.Close()

	engine, err := newFilterEngine(cfg.Filter, sink)
	if err != nil {
		return fmt.Errorf("building filter engine: %w", err)
	}

	orchestrator := newOrchestrator(cfg.Models, store)

	conversations := newConversationStore()
	coordinator := pipeline.NewCoordinator(
		pipeline.Config{StrictMode: cfg.Filter.StrictMode},
		pii.NewDetector(),
		mask.NewMasker(),
		engine,
		orchestrator,
		pipeline.WithContextProvider(conversations),
		pipeline.WithRecorder(conversations),
		pipeline.WithAuditSink(sink),
	)

	srv := newServer(cfg.Server, coordinator, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func newCacheStore(cfg config.CacheConfig) cache.Store {
	if cfg.Backend == "redis" {
		return cache.NewRedisStore(&cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
	}
	return cache.NewMemoryStore()
}

func newAuditSink(cfg config.AuditConfig, logger *slog.Logger) (audit.Sink, error) {
	topics := audit.DefaultTopics()
	if cfg.Kafka.Topics.Events != "" {
		topics.Events = cfg.Kafka.Topics.Events
	}
	if cfg.Kafka.Topics.Blocks != "" {
		topics.Blocks = cfg.Kafka.Topics.Blocks
	}
	if cfg.Kafka.Topics.Errors != "" {
		topics.Errors = cfg.Kafka.Topics.Errors
	}

	if !cfg.Enabled {
		return audit.NewLocalSink(topics), nil
	}
	if cfg.Sink == "kafka" {
		return audit.NewKafkaSink(&audit.KafkaConfig{
			Brokers:       cfg.Kafka.Brokers,
			Topics:        topics,
			Compression:   cfg.Kafka.Producer.Compression,
			RequiredAcks:  cfg.Kafka.Producer.RequiredAcks,
			MaxRetries:    cfg.Kafka.Producer.MaxRetries,
			FlushInterval: cfg.Kafka.Producer.FlushInterval,
		})
	}

	sink := audit.NewLocalSink(topics)
	sink.OnPublish(func(topic string, event audit.Event) {
		logger.Info("audit event",
			"topic", topic,
			"event_id", event.ID,
			"event_type", string(event.Type),
			"tenant_id", event.TenantID,
			"request_id", event.RequestID,
			"triggered_rules", event.Details.TriggeredRules,
		)
	})
	return sink, nil
}

func newFilterEngine(cfg config.FilterConfig, sink audit.Sink) (*filter.Engine, error) {
	var rules []filter.RuleConfig
	if cfg.RulesFile != "" {
		rf, err := config.LoadRuleFile(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = rf.FilterRules()
	}

	settings := filter.Settings{
		Enabled:           cfg.Enabled,
		MaxMessageLength:  cfg.MaxMessageLength,
		CaseSensitive:     cfg.CaseSensitive,
		StrictMode:        cfg.StrictMode,
		ModerationEnabled: cfg.Moderation.Enabled,
	}
	if settings.MaxMessageLength == 0 {
		settings.MaxMessageLength = filter.DefaultSettings().MaxMessageLength
	}

	opts := []filter.EngineOption{filter.WithAuditSink(sink)}
	if cfg.Moderation.Enabled {
		opts = append(opts, filter.WithModeration(filter.NewOpenAIModeration(cfg.Moderation.APIKey, cfg.Moderation.BaseURL)))
	}
	return filter.NewEngine(rules, settings, opts...)
}

func newOrchestrator(cfg config.ModelsConfig, store cache.Store) *orchestrate.Orchestrator {
	ocfg := orchestrate.DefaultConfig()
	if cfg.Orchestrator.MaxRetries > 0 {
		ocfg.MaxRetries = cfg.Orchestrator.MaxRetries
	}
	if cfg.Orchestrator.RetryDelay > 0 {
		ocfg.RetryDelay = cfg.Orchestrator.RetryDelay
	}
	if cfg.Orchestrator.RequestTimeout > 0 {
		ocfg.RequestTimeout = cfg.Orchestrator.RequestTimeout
	}
	if cfg.Orchestrator.CacheTTL > 0 {
		ocfg.CacheTTL = cfg.Orchestrator.CacheTTL
	}
	if cfg.Orchestrator.MaxTokens > 0 {
		ocfg.MaxTokens = cfg.Orchestrator.MaxTokens
	}
	if cfg.Orchestrator.Temperature > 0 {
		ocfg.Temperature = cfg.Orchestrator.Temperature
	}
	ocfg.FallbackEnabled = cfg.Orchestrator.FallbackEnabled

	providers := map[orchestrate.ModelType]orchestrate.Provider{
		orchestrate.ModelPrimary: orchestrate.NewOpenAIProvider(orchestrate.OpenAIConfig{
			APIKey:  cfg.Primary.APIKey,
			BaseURL: cfg.Primary.BaseURL,
			Model:   cfg.Primary.Model,
		}),
	}
	if cfg.Secondary.BaseURL != "" {
		providers[orchestrate.ModelSecondary] = orchestrate.NewHTTPProvider(orchestrate.HTTPConfig{
			BaseURL: cfg.Secondary.BaseURL,
			Model:   cfg.Secondary.Model,
			Timeout: cfg.Secondary.Timeout,
		})
	} else {
		ocfg.FallbackEnabled = false
	}

	return orchestrate.NewOrchestrator(ocfg, store, providers)
}

func newServer(cfg config.ServerConfig, coordinator *pipeline.Coordinator, logger *slog.Logger) *http.Server {
	host := cfg.Host
	port := cfg.Port
	if port == 0 {
		port = 8080
	}

	mwConfig := middleware.DefaultHTTPConfig()
	handler := middleware.ExtractIdentity(mwConfig)(
		middleware.LogRequests(logger, mwConfig)(
			newRouter(coordinator, logger),
		),
	)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
