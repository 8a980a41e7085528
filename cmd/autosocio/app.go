package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/autosocio/internal/agentchat"
	"github.com/MikeSquared-Agency/autosocio/internal/anthropic"
	"github.com/MikeSquared-Agency/autosocio/internal/audit"
	"github.com/MikeSquared-Agency/autosocio/internal/catalog"
	"github.com/MikeSquared-Agency/autosocio/internal/completion"
	"github.com/MikeSquared-Agency/autosocio/internal/config"
	"github.com/MikeSquared-Agency/autosocio/internal/cx"
	"github.com/MikeSquared-Agency/autosocio/internal/gemini"
	"github.com/MikeSquared-Agency/autosocio/internal/hermes"
	"github.com/MikeSquared-Agency/autosocio/internal/intent"
	"github.com/MikeSquared-Agency/autosocio/internal/marketplace"
	"github.com/MikeSquared-Agency/autosocio/internal/metrics"
	"github.com/MikeSquared-Agency/autosocio/internal/orchestrator"
	"github.com/MikeSquared-Agency/autosocio/internal/pipeline"
	"github.com/MikeSquared-Agency/autosocio/internal/processor"
	"github.com/MikeSquared-Agency/autosocio/internal/supersede"
)

const supersedeKeyPrefix = "autosocio:supersede:"

// app holds the wired service and everything that needs closing.
type app struct {
	catalog   *catalog.Catalog
	registry  *prometheus.Registry
	processor *processor.Processor
	hermes    *hermes.Client
	redis     *redis.Client
}

// buildApp wires the engines behind a processor. withBus connects NATS when
// NATS_URL is set.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger, withBus bool) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.registry)

	var err error
	if cfg.CatalogPath != "" {
		a.catalog, err = catalog.LoadFile(cfg.CatalogPath)
	} else {
		a.catalog, err = catalog.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	backend, err := newModel(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	model := completion.Wrap(backend,
		completion.Tracing(otel.Tracer("github.com/MikeSquared-Agency/autosocio")),
		completion.Logging(logger),
		completion.Metrics(m),
		completion.Retry(cfg.MaxAttempts, cfg.Backoff, func(req completion.Request, _ int, _ error) {
			m.ObserveRetry(req.Name)
		}),
		completion.Timeout(cfg.CompletionTimeout),
	)
	llm := completion.New(model, logger)

	pipe := pipeline.New(llm, logger.Named("pipeline"))
	interp := intent.New(llm, a.catalog, logger.Named("intent"))
	components := processor.Components{
		Interpreter:  interp,
		Pipeline:     pipe,
		Analyzer:     cx.New(llm, logger.Named("cx"), cx.WithRiskFieldThreshold(cfg.RiskFieldThreshold)),
		Orchestrator: orchestrator.New(llm, a.catalog, pipe, interp, logger.Named("orchestrator")),
		Auditor:      audit.New(llm, logger.Named("audit")),
		Sourcer:      marketplace.New(llm, logger.Named("marketplace")),
		Responder:    agentchat.New(llm, a.catalog, logger.Named("agentchat")),
	}

	counter, err := a.newCounter(ctx, cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	tracker := supersede.NewTracker(counter, logger.Named("supersede"), supersede.WithSupersededHook(m.ObserveSuperseded))

	var pub processor.Publisher
	if withBus && cfg.NatsURL != "" {
		a.hermes, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger.Named("hermes"))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect NATS: %w", err)
		}
		pub = a.hermes
		logger.Info("NATS connected", zap.String("url", cfg.NatsURL))
	}

	a.processor = processor.New(components, tracker, pub, m, logger.Named("processor"))
	return a, nil
}

func newModel(ctx context.Context, cfg config.Config, logger *zap.Logger) (completion.Model, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger.Named("gemini"))
		if err != nil {
			return nil, err
		}
		logger.Info("gemini client ready", zap.String("model", cfg.GeminiModel))
		return c, nil
	case config.ProviderAnthropic:
		logger.Info("anthropic client ready", zap.String("model", cfg.AnthropicModel))
		return anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, logger.Named("anthropic")), nil
	case config.ProviderFake:
		logger.Warn("using the unscripted fake model, every completion will fail")
		return completion.NewFake(), nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
}

func (a *app) newCounter(ctx context.Context, cfg config.Config, logger *zap.Logger) (supersede.Counter, error) {
	if cfg.RedisURL == "" {
		return supersede.NewMemoryCounter(), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	a.redis = redis.NewClient(opts)
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("redis connected", zap.String("addr", opts.Addr))
	return supersede.NewRedisCounter(a.redis, supersedeKeyPrefix), nil
}

// close stops NATS delivery, waits for in-flight requests to publish their
// results, and only then closes the connections.
func (a *app) close() {
	if a.hermes != nil {
		a.hermes.Unsubscribe()
	}
	if a.processor != nil {
		a.processor.Close()
	}
	if a.hermes != nil {
		a.hermes.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
