package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/civicchat/orchestra"
	"github.com/civicchat/orchestra/internal/config"
	"github.com/civicchat/orchestra/internal/logging"
	"github.com/civicchat/orchestra/pkg/adapters/knowledge"
	"github.com/civicchat/orchestra/pkg/adapters/memory"
	"github.com/civicchat/orchestra/pkg/adapters/openai"
	"github.com/civicchat/orchestra/pkg/adapters/redis"
	"github.com/civicchat/orchestra/pkg/adapters/sqlite"
	"github.com/civicchat/orchestra/pkg/agents"
	"github.com/civicchat/orchestra/pkg/observability"
	"github.com/civicchat/orchestra/pkg/persistence/middleware"
	"github.com/civicchat/orchestra/pkg/ports"
	"github.com/civicchat/orchestra/pkg/threads"
	"github.com/spf13/cobra"
)

// app holds the components shared by the commands.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	engine  *orchestra.Engine
	metrics *observability.Metrics
}

// loadConfig reads --config and applies --log-level.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(level, cfg.Log.Format)
	return buildApp(cmd.Context(), cfg, logger)
}

// buildApp wires the text generation client, the agents and the engine.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	client := openai.New(openai.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Timeout:        cfg.LLM.Timeout,
		Retry: openai.RetryPolicy{
			MaxAttempts: cfg.LLM.Retry.MaxAttempts,
			BaseDelay:   cfg.LLM.Retry.BaseDelay,
			MaxDelay:    cfg.LLM.Retry.MaxDelay,
		},
	}, openai.WithLogger(logger))

	agentOpts := []agents.Option{
		agents.WithDefaultLanguage(cfg.Languages.Default),
		agents.WithSupportedLanguages(cfg.Languages.Supported...),
		agents.WithTemperature(cfg.LLM.Temperature),
		agents.WithLanguageDetector(client),
		agents.WithLogger(logger),
	}
	if cfg.Knowledge.Dir != "" {
		index, err := loadKnowledge(ctx, cfg.Knowledge.Dir, client, logger)
		if err != nil {
			return nil, err
		}
		agentOpts = append(agentOpts, agents.WithRetriever(index, cfg.Knowledge.TopK))
	}

	metrics := observability.NewMetrics()
	engine, err := orchestra.New(agents.Set(client, agentOpts...),
		orchestra.WithLogger(logger),
		orchestra.WithMaxSteps(cfg.Engine.MaxSteps),
		orchestra.WithNodeTimeout(cfg.Engine.NodeTimeout),
		orchestra.WithDefaultLanguage(cfg.Languages.Default),
		orchestra.WithLifecycleHooks(metrics.Hooks()),
		orchestra.WithLifecycleHooks(observability.LoggingHooks(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	return &app{cfg: cfg, logger: logger, engine: engine, metrics: metrics}, nil
}

func loadKnowledge(ctx context.Context, dir string, embedder ports.Embedder, logger *slog.Logger) (*knowledge.Index, error) {
	docs, err := knowledge.LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base %s: %w", dir, err)
	}
	index, err := knowledge.NewIndex(ctx, embedder, docs, knowledge.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to index knowledge base %s: %w", dir, err)
	}
	logger.Info("Knowledge base loaded", "dir", dir, "documents", len(docs), "chunks", index.Len())
	return index, nil
}

// openThreads builds the thread manager on the configured store. The returned
// function releases the store connections.
func openThreads(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*threads.Manager, func() error, error) {
	opts := []threads.Option{threads.WithLogger(logger)}

	var (
		store   ports.ThreadStore
		closeFn = func() error { return nil }
	)
	switch cfg.Driver {
	case config.DriverMemory:
		store = memory.NewStore()

	case config.DriverRedis:
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		if err := rs.Ping(ctx); err != nil {
			return nil, nil, errors.Join(fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err), rs.Close())
		}
		if cfg.Redis.Locking {
			opts = append(opts, threads.WithLocker(redis.NewLocker(rs.Client(), rs.Prefix())))
		}
		store, closeFn = rs, rs.Close

	case config.DriverSQLite:
		ss, err := sqlite.NewStore(cfg.SQLite.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		store, closeFn = ss, ss.Close

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	mws, err := storeMiddlewares(cfg)
	if err != nil {
		return nil, nil, errors.Join(err, closeFn())
	}
	return threads.NewManager(middleware.Chain(store, mws...), opts...), closeFn, nil
}

// storeMiddlewares builds the encryption and redaction decorators. Redaction
// runs before encryption on Save.
func storeMiddlewares(cfg config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if cfg.Encryption.Enabled() {
		active, fallback, err := cfg.Encryption.Decode()
		if err != nil {
			return nil, err
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	if cfg.RedactPII {
		patterns := cfg.PIIPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultPIIPatterns
		}
		pii, err := middleware.NewPIIMiddleware(patterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	return mws, nil
}
