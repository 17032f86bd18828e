// Package commands implements the indexer CLI's subcommand actions.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/workspace-rag/internal/core/ingest"
	"github.com/jinford/workspace-rag/internal/infra/memory"
	"github.com/jinford/workspace-rag/internal/infra/openai"
	"github.com/jinford/workspace-rag/internal/infra/postgres"
	"github.com/jinford/workspace-rag/internal/platform/config"
	"github.com/jinford/workspace-rag/internal/platform/logger"
)

// AppContext bundles everything a command action needs: configuration,
// the wired Storage adapter, the LLM/embedding clients, the lock
// coordinator, and a logger.
type AppContext struct {
	Config   *config.Config
	Storage  ingest.Storage
	Embedder *openai.Embedder
	Chat     ingest.ChatClient
	Lock     *ingest.LockCoordinator
	Logger   *slog.Logger

	pool *pgxpool.Pool
}

// NewAppContext loads configuration and wires the adapters an indexing run
// needs. usePostgres selects the postgres adapter over the default
// in-memory one.
func NewAppContext(ctx context.Context, envFile string, usePostgres bool) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:    parseLevel(cfg.Log.Level),
		Format:   cfg.Log.Format,
		FilePath: cfg.Log.FilePath,
	})

	var storage ingest.Storage
	var pool *pgxpool.Pool
	if usePostgres {
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, cfg.Database.SSLMode)
		pool, err = pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		storage = postgres.NewRepository(pool)
	} else {
		storage = memory.NewStore()
	}

	embedder := openai.NewEmbedder(cfg.OpenAI.APIKey,
		openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
		openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
	)

	var chat ingest.ChatClient
	if cfg.OpenAI.APIKey != "" {
		c, err := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
		if err != nil {
			return nil, fmt.Errorf("create chat client: %w", err)
		}
		chat = c
	}

	return &AppContext{
		Config:   cfg,
		Storage:  storage,
		Embedder: embedder,
		Chat:     chat,
		Lock:     ingest.NewLockCoordinator(),
		Logger:   log,
		pool:     pool,
	}, nil
}

// Close releases any pooled resources.
func (a *AppContext) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
