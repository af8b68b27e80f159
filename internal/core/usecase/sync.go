package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/cinerec/internal/core/domain"
	"github.com/kirillkom/cinerec/internal/core/ports"
)

// SyncObserver receives ingestion observations. A nil observer disables
// recording.
type SyncObserver interface {
	RecordSyncedMovie()
	RecordSkippedFact()
	RecordIndexFailure()
}

// CatalogSyncUseCase pulls movie pages from the external provider into the
// catalog store, the fact store and the vector index. One bad record never
// aborts the batch: malformed facts are skipped, embedding failures leave
// the movie searchable by substring only.
type CatalogSyncUseCase struct {
	provider    ports.CatalogProvider
	catalog     ports.CatalogStore
	likes       ports.LikeStore
	facts       ports.FactStore
	embedder    ports.Embedder
	vectorIndex ports.VectorIndex
	observer    SyncObserver
}

func NewCatalogSyncUseCase(
	provider ports.CatalogProvider,
	catalog ports.CatalogStore,
	likes ports.LikeStore,
	facts ports.FactStore,
	embedder ports.Embedder,
	vectorIndex ports.VectorIndex,
) *CatalogSyncUseCase {
	return &CatalogSyncUseCase{
		provider:    provider,
		catalog:     catalog,
		likes:       likes,
		facts:       facts,
		embedder:    embedder,
		vectorIndex: vectorIndex,
	}
}

func (uc *CatalogSyncUseCase) WithObserver(observer SyncObserver) *CatalogSyncUseCase {
	uc.observer = observer
	return uc
}

// Sync ingests up to the given number of provider pages and returns how
// many movies were stored.
func (uc *CatalogSyncUseCase) Sync(ctx context.Context, pages int) (int, error) {
	if pages <= 0 {
		pages = 1
	}

	stored := 0
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		movies, err := uc.provider.FetchPopular(ctx, page)
		if err != nil {
			continue
		}

		for _, movie := range movies {
			if err := uc.catalog.Upsert(ctx, &movie); err != nil {
				continue
			}
			stored++
			if uc.observer != nil {
				uc.observer.RecordSyncedMovie()
			}

			if err := uc.facts.UpsertItem(movie); err != nil {
				if uc.observer != nil {
					uc.observer.RecordSkippedFact()
				}
				continue
			}
			uc.index(ctx, movie)
		}
	}
	return stored, nil
}

// ReloadFacts rebuilds the fact store from the system of record in one
// atomic generation swap. Skipped-fact count is reported, not fatal.
func (uc *CatalogSyncUseCase) ReloadFacts(ctx context.Context) (int, error) {
	movies, err := uc.catalog.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list catalog: %w", err)
	}
	likes, err := uc.likes.ListLikes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list likes: %w", err)
	}
	return uc.facts.ReplaceAll(movies, likes), nil
}

func (uc *CatalogSyncUseCase) index(ctx context.Context, movie domain.Movie) {
	document := embeddingDocument(movie)
	vector, err := uc.embedder.EmbedQuery(ctx, document)
	if err != nil || len(vector) == 0 {
		if uc.observer != nil {
			uc.observer.RecordIndexFailure()
		}
		return
	}

	metadata := map[string]any{"tmdb_id": movie.ID, "title": movie.Title}
	if err := uc.vectorIndex.Upsert(ctx, movie.ID, vector, document, metadata); err != nil {
		if uc.observer != nil {
			uc.observer.RecordIndexFailure()
		}
	}
}

func embeddingDocument(movie domain.Movie) string {
	return fmt.Sprintf(
		"Title: %s. Genres: %s. Cast: %s. Overview: %s",
		movie.Title,
		strings.Join(movie.Genres, ", "),
		strings.Join(movie.Cast, ", "),
		movie.Overview,
	)
}
