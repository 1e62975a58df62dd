package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"quote-orchestrator/internal/backend"
	"quote-orchestrator/internal/cache"
	"quote-orchestrator/internal/config"
	"quote-orchestrator/internal/convo"
	"quote-orchestrator/internal/metrics"
	"quote-orchestrator/internal/nlu"
	"quote-orchestrator/internal/quote"
	"quote-orchestrator/internal/repo"
	"quote-orchestrator/internal/session"
)

// app is the wired object graph shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	service  *convo.Service
	janitor  *session.Janitor
	closers  []io.Closer
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(cfg.MetricsNamespace, a.registry)

	var redis *cache.Redis
	if cfg.RedisAddr != "" {
		r, err := cache.New(ctx, cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TLS:      cfg.RedisTLS,
		})
		if err != nil {
			if cfg.SessionBackend == config.SessionRedis {
				return nil, err
			}
			logger.Warn("redis unavailable, branch cache disabled", "error", err)
		} else {
			redis = r
			a.closers = append(a.closers, r)
		}
	}

	oracle, err := buildOracle(ctx, cfg, logger, a.metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	var tokens backend.TokenSource
	if cfg.BackendServiceToken != "" {
		tokens = backend.StaticToken(cfg.BackendServiceToken)
	} else {
		tokens = backend.NewServiceTokenProvider(backend.ServiceTokenConfig{
			Secret:   cfg.BackendServiceSecret,
			Issuer:   cfg.BackendServiceIssuer,
			Audience: cfg.BackendServiceAudience,
			Subject:  cfg.BackendServiceSubject,
			Roles:    cfg.BackendServiceRoles,
			TTL:      cfg.BackendServiceTTL,
		})
	}
	client := backend.New(backend.Config{
		BaseURL:        cfg.BackendBaseURL,
		Timeout:        cfg.BackendTimeout,
		BranchCacheTTL: cfg.BranchCacheTTL,
	}, tokens, logger, a.metrics, redis)

	ledger, err := a.buildLedger(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	gateway := quote.NewGateway(client, ledger, logger, a.metrics)

	var store session.Store
	switch cfg.SessionBackend {
	case config.SessionRedis:
		store = session.NewRedisStore(redis, cfg.SessionIdleTimeout)
	default:
		mem := session.NewMemoryStore()
		store = mem
		if cfg.SessionIdleTimeout > 0 {
			a.janitor = session.NewJanitor(mem, cfg.SessionIdleTimeout, cfg.SessionSweepInterval, logger)
			a.janitor.OnSweep(func(_, remaining int) {
				a.metrics.ActiveSessions.Set(float64(remaining))
			})
		}
	}

	engine := convo.NewEngine(client, gateway, nlu.NewAdapter(oracle, logger), a.metrics, logger, convo.Options{
		Humanize: cfg.HumanizePrompts,
	})
	a.service = convo.NewService(store, engine, a.metrics, logger)
	return a, nil
}

// buildOracle returns nil when no model is configured; the engine then runs
// on the deterministic parsers alone.
func buildOracle(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (nlu.Oracle, error) {
	switch cfg.OracleProvider {
	case config.OracleOllama:
		return nlu.NewOllama(logger, m, nlu.OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.OllamaModel,
			Timeout: cfg.OracleTimeout,
		}), nil
	case config.OracleOpenAI:
		o, err := nlu.NewOpenAI(ctx, logger, m, nlu.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.OracleTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai oracle: %w", err)
		}
		return o, nil
	}
	logger.Info("language model disabled")
	return nil, nil
}

func (a *app) buildLedger(ctx context.Context) (quote.Ledger, error) {
	switch {
	case a.cfg.DatabaseURL != "":
		l, err := repo.NewPostgresLedger(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres ledger: %w", err)
		}
		a.closers = append(a.closers, l)
		return l, nil
	case a.cfg.LedgerSQLitePath != "":
		l, err := repo.NewSQLiteLedger(ctx, a.cfg.LedgerSQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		a.closers = append(a.closers, l)
		return l, nil
	}
	a.logger.Warn("no commit ledger configured, duplicate confirmations are only guarded by session state")
	return nil, nil
}

func (a *app) start(ctx context.Context) {
	if a.janitor != nil {
		a.janitor.Start(ctx)
	}
}

// Close stops background work and releases connections in reverse order.
func (a *app) Close() {
	if a.janitor != nil {
		a.janitor.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
