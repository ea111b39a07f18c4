package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/abd-ghreeb/venture-pulse/internal/agent"
	"github.com/abd-ghreeb/venture-pulse/internal/api"
	"github.com/abd-ghreeb/venture-pulse/internal/config"
	"github.com/abd-ghreeb/venture-pulse/internal/events"
	"github.com/abd-ghreeb/venture-pulse/internal/llm"
	"github.com/abd-ghreeb/venture-pulse/internal/prompts"
	"github.com/abd-ghreeb/venture-pulse/internal/secrets"
	"github.com/abd-ghreeb/venture-pulse/internal/seed"
	"github.com/abd-ghreeb/venture-pulse/internal/session"
	"github.com/abd-ghreeb/venture-pulse/internal/session/badger"
	"github.com/abd-ghreeb/venture-pulse/internal/session/redis"
	"github.com/abd-ghreeb/venture-pulse/internal/store"
	"github.com/abd-ghreeb/venture-pulse/internal/store/memory"
	"github.com/abd-ghreeb/venture-pulse/internal/store/postgres"
)

type server interface {
	Start(ctx context.Context, addr string) error
}

type closer func() error

// ventureDB is the venture store plus its connection lifecycle.
type ventureDB interface {
	store.VentureStore
	Close() error
}

const badgerGCInterval = 10 * time.Minute

var (
	loadConfig   = config.Load
	newLogger    = buildLogger
	newBroker    = events.NewBroker
	openPostgres = func(conn string) (ventureDB, error) {
		return postgres.NewMigrated(conn)
	}
	openRedis     = redis.New
	openBadger    = badger.Open
	newProvider   = llm.NewProvider
	resolvePrompt = prompts.Resolve
	newServer     = func(turns api.TurnHandler, ventures store.VentureStore, broker api.Broker, sessions api.Pinger, cfg config.Config, logger *zap.Logger) server {
		return api.NewServer(turns, ventures, broker, sessions, cfg, logger)
	}
	notifyContext = signal.NotifyContext
)

func runServe(parent context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := notifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ventures, closeVentures, err := openVentureStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeQuietly(closeVentures, logger)

	sessions, closeSessions, err := openSessionStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeQuietly(closeSessions, logger)

	provider, err := newProvider(llm.Config{
		Mode:             cfg.LLMMode,
		Provider:         cfg.LLMProvider,
		Model:            cfg.LLMModel,
		BaseURL:          cfg.LLMBaseURL,
		FallbackProvider: cfg.LLMFallbackProvider,
		FallbackModel:    cfg.LLMFallbackModel,
		FallbackBaseURL:  cfg.LLMFallbackBaseURL,
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenRouterAPIKey: cfg.OpenRouterAPIKey,
		GeminiAPIKey:     cfg.GeminiAPIKey,
		Temperature:      cfg.LLMTemperature,
		MaxTokens:        cfg.LLMMaxTokens,
	})
	if err != nil {
		return err
	}
	prompt, err := resolvePrompt(cfg.AnalystPromptPath)
	if err != nil {
		return fmt.Errorf("load analyst prompt: %w", err)
	}

	broker := newBroker()
	analyst := agent.New(provider, sessions, ventures,
		agent.WithPrompt(prompt),
		agent.WithMaxRounds(cfg.AgentMaxRounds),
		agent.WithHistoryWindow(cfg.HistoryWindow),
		agent.WithSummary(cfg.SummaryThreshold, cfg.SummaryKeep),
		agent.WithPublisher(broker),
		agent.WithLogger(logger),
	)

	srv := newServer(analyst, ventures, broker, sessions, cfg, logger)
	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("venture pulse listening",
		zap.String("addr", addr),
		zap.String("venture_store", cfg.VentureStore),
		zap.String("session_backend", cfg.SessionBackend),
		zap.String("llm_mode", cfg.LLMMode))
	return srv.Start(ctx, addr)
}

// openVentureStore returns the configured store. The memory store is loaded
// with the bundled fixture so it is usable without a database.
func openVentureStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.VentureStore, closer, error) {
	if cfg.VentureStore == "memory" {
		st := memory.New()
		count, err := seed.EnsureSeed(ctx, st)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("memory venture store seeded", zap.Int("ventures", count))
		return st, nil, nil
	}
	st, err := openPostgres(cfg.PostgresURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return st, st.Close, nil
}

// openSessionStore builds the session store for SESSION_BACKEND. Redis and
// Badger get an in-process fallback so a backend outage degrades to
// non-durable sessions instead of failing turns.
func openSessionStore(cfg config.Config, logger *zap.Logger) (*session.Store, closer, error) {
	opts := []session.Option{
		session.WithTTL(cfg.SessionTTL),
		session.WithLogger(logger),
	}
	if cfg.SessionSecretsKey != "" {
		key, err := secrets.ParseKey(cfg.SessionSecretsKey)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, session.WithEncryptionKey(key))
	}

	switch cfg.SessionBackend {
	case "redis":
		kv, err := openRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, memoryFallback(logger))
		return session.NewStore(kv, opts...), kv.Close, nil
	case "badger":
		kv, err := openBadger(badger.Config{Path: cfg.BadgerPath, GCInterval: badgerGCInterval, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, memoryFallback(logger))
		return session.NewStore(kv, opts...), kv.Close, nil
	default:
		logger.Warn("sessions are kept in process memory and will not survive a restart")
		return session.NewStore(session.NewMemoryKV(), opts...), nil, nil
	}
}

func memoryFallback(logger *zap.Logger) session.Option {
	logger.Info("session fallback is process memory; sessions written during a backend outage are not durable")
	return session.WithFallback(session.NewMemoryKV())
}

func closeQuietly(fn closer, logger *zap.Logger) {
	if fn == nil {
		return
	}
	if err := fn(); err != nil {
		logger.Warn("close failed", zap.Error(err))
	}
}
