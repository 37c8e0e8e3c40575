package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/mealplan-ai/internal/bootstrap"
	"github.com/yanqian/mealplan-ai/internal/domain/auth"
	"github.com/yanqian/mealplan-ai/internal/domain/mealplan"
	"github.com/yanqian/mealplan-ai/internal/domain/planjob"
	"github.com/yanqian/mealplan-ai/internal/infra/config"
	"github.com/yanqian/mealplan-ai/internal/infra/llm/tokenizer"
	"github.com/yanqian/mealplan-ai/internal/infra/mealplan/artifacts"
	"github.com/yanqian/mealplan-ai/internal/infra/mealplan/genlog"
	mealplanllm "github.com/yanqian/mealplan-ai/internal/infra/mealplan/llm"
	"github.com/yanqian/mealplan-ai/internal/infra/planjob/queue"
	"github.com/yanqian/mealplan-ai/internal/infra/planjob/store"
)

func provideMealPlanConfig(cfg *config.Config) mealplan.Config {
	return mealplan.Config{
		ProviderTimeout:    cfg.Plan.ProviderTimeout,
		RepairAttempts:     cfg.Plan.RepairAttempts,
		RejectInconsistent: cfg.Plan.RejectInconsistent,
		HistoryLimit:       cfg.History.DefaultLimit,
	}
}

func provideCompleter(cfg *config.Config, logger *slog.Logger) mealplan.Completer {
	return mealplanllm.NewCompleter(cfg, logger)
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) mealplan.TokenCounter {
	return tokenizer.NewCounter(cfg.LLM.Model, logger)
}

func provideArtifactStore(cfg *config.Config, logger *slog.Logger) mealplan.ArtifactStore {
	switch cfg.Artifacts.Backend {
	case "local":
		logger.Info("artifacts written to local directory", "dir", cfg.Artifacts.Dir)
		return artifacts.NewLocalStore(cfg.Artifacts.Dir)
	case "s3":
		s3 := cfg.Artifacts.S3
		st, err := artifacts.NewS3Store(artifacts.S3Options{
			Endpoint:  s3.Endpoint,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Bucket:    s3.Bucket,
			Region:    s3.Region,
			Prefix:    s3.Prefix,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize s3 artifacts, artifacts disabled", "error", err)
			return nil
		}
		logger.Info("artifacts uploaded to bucket", "bucket", s3.Bucket)
		return st
	default:
		return nil
	}
}

func provideGenerationLog(cfg *config.Config, logger *slog.Logger) (mealplan.GenerationLog, func()) {
	fallback := genlog.NewMemoryLog(cfg.History.Capacity)
	switch cfg.History.Backend {
	case "postgres":
		pool, err := newPostgresPool(cfg.History.Postgres)
		if err != nil {
			logger.Error("postgres history unavailable, using memory log", "error", err)
			return fallback, func() {}
		}
		pg := genlog.NewPostgresLog(pool)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("postgres history schema failed, using memory log", "error", err)
			pool.Close()
			return fallback, func() {}
		}
		logger.Info("postgres generation history enabled")
		return pg, pool.Close
	case "sqlite":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		lite, err := genlog.OpenSQLiteLog(ctx, cfg.History.SQLite.Path)
		if err != nil {
			logger.Error("sqlite history unavailable, using memory log", "error", err)
			return fallback, func() {}
		}
		logger.Info("sqlite generation history enabled", "path", cfg.History.SQLite.Path)
		return lite, func() { _ = lite.Close() }
	default:
		return fallback, func() {}
	}
}

func newPostgresPool(cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("history.postgres.dsn is empty")
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres pool: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// jobBackend groups the job store and its queue; both are nil when jobs are disabled.
type jobBackend struct {
	store planjob.Store
	queue queue.HandlerQueue
}

func provideJobBackend(cfg *config.Config, logger *slog.Logger) (jobBackend, func(), error) {
	if !cfg.Jobs.Enabled {
		logger.Info("async meal plan jobs disabled")
		return jobBackend{}, func() {}, nil
	}
	if cfg.Jobs.Backend != "valkey" {
		return jobBackend{
			store: store.NewMemoryStore(0, cfg.Jobs.TTL),
			queue: queue.NewImmediateQueue(cfg.Jobs.Workers, logger),
		}, func() {}, nil
	}
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		return jobBackend{}, nil, fmt.Errorf("invalid valkey configuration: %w", err)
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return jobBackend{}, nil, fmt.Errorf("create valkey client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return jobBackend{}, nil, fmt.Errorf("valkey ping: %w", err)
	}
	logger.Info("valkey job backend enabled", "addr", cfg.Valkey.Addr)
	return jobBackend{
		store: store.NewValkeyStore(client, "mealplan:job", cfg.Jobs.TTL),
		queue: queue.NewValkeyQueue(client, cfg.Jobs.QueueKey, logger),
	}, client.Close, nil
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	if strings.Contains(cfg.Valkey.Addr, "://") {
		return valkey.ParseURL(cfg.Valkey.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Valkey.Addr}}, nil
}

func provideJobService(backend jobBackend, plans mealplan.Service, logger *slog.Logger) planjob.Service {
	if backend.queue == nil {
		return nil
	}
	svc := planjob.NewService(backend.store, backend.queue, plans, logger)
	backend.queue.SetHandler(svc.Process)
	return svc
}

// provideJobWorker runs the queue consumer. The service must be wired first so the handler is set.
func provideJobWorker(backend jobBackend, _ planjob.Service) bootstrap.Worker {
	if backend.queue == nil {
		return nil
	}
	return backend.queue
}

func provideAuthService(cfg *config.Config, logger *slog.Logger) auth.Service {
	if !cfg.Auth.Enabled() {
		logger.Warn("bearer auth disabled, plan routes are open")
		return nil
	}
	return auth.NewService(auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL,
	})
}
