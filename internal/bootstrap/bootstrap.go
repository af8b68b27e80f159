package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/cinerec/internal/config"
	"github.com/kirillkom/cinerec/internal/core/ports"
	"github.com/kirillkom/cinerec/internal/core/usecase"
	"github.com/kirillkom/cinerec/internal/infrastructure/catalog/tmdb"
	"github.com/kirillkom/cinerec/internal/infrastructure/embedding/openrouter"
	"github.com/kirillkom/cinerec/internal/infrastructure/factstore"
	"github.com/kirillkom/cinerec/internal/infrastructure/queue/nats"
	"github.com/kirillkom/cinerec/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/cinerec/internal/infrastructure/resilience"
	"github.com/kirillkom/cinerec/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue   ports.MessageQueue
	Catalog ports.CatalogStore
	Facts   ports.FactStore

	RecommendUC *usecase.RecommendUseCase
	LikeUC      *usecase.LikeUseCase
	SyncUC      *usecase.CatalogSyncUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	movieRepo := postgres.NewMovieRepository(db)
	if err := movieRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	likeRepo := postgres.NewLikeRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	embedder := openrouter.New(cfg.OpenRouterURL, cfg.OpenRouterAPIKey, cfg.OpenRouterEmbedModel).
		WithExecutor(executor)
	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	provider := tmdb.New(cfg.TMDBBaseURL, cfg.TMDBAPIKey)

	facts := factstore.New()

	pools := usecase.NewPoolBuilder(
		embedder,
		vectorIndex,
		movieRepo,
		cfg.PoolSize,
		time.Duration(cfg.EmbedTimeoutSeconds)*time.Second,
	)
	cascade := usecase.NewFallbackCascade(facts)

	recommendUC := usecase.NewRecommendUseCase(pools, cascade, facts, movieRepo, cfg.MergeLimit)
	likeUC := usecase.NewLikeUseCase(likeRepo, movieRepo, facts)
	syncUC := usecase.NewCatalogSyncUseCase(provider, movieRepo, likeRepo, facts, embedder, vectorIndex)

	// Seed the fact store from the system of record. An empty catalog is a
	// valid cold start, only the load mechanics are fatal.
	skipped, err := syncUC.ReloadFacts(ctx)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load fact store: %w", err)
	}
	slog.Info("fact_store_loaded", "items", facts.ItemCount(), "likes", facts.LikeCount(), "skipped", skipped)

	return &App{
		Config:  cfg,
		Queue:   queue,
		Catalog: movieRepo,
		Facts:   facts,

		RecommendUC: recommendUC,
		LikeUC:      likeUC,
		SyncUC:      syncUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
