package ports

import (
	"context"

	"github.com/kirillkom/cinerec/internal/core/domain"
)

// CatalogStore is the system of record for movie metadata and likes.
type CatalogStore interface {
	Upsert(ctx context.Context, movie *domain.Movie) error
	GetByID(ctx context.Context, id int64) (*domain.Movie, error)
	GetByTitles(ctx context.Context, titles []string) ([]domain.Movie, error)
	SearchSubstring(ctx context.Context, query string) ([]int64, error)
	ListAll(ctx context.Context) ([]domain.Movie, error)
	Count(ctx context.Context) (int64, error)
}

// LikeStore persists the (user, movie) preference relation.
type LikeStore interface {
	SaveLike(ctx context.Context, userID, movieID int64) error
	DeleteLike(ctx context.Context, userID, movieID int64) error
	ListLikes(ctx context.Context) ([]domain.Like, error)
}

// RuleEvaluator answers the structured rule queries. An evaluation error is
// the caller's cue to continue with an empty result, never a request
// failure.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, query domain.RuleQuery) ([]domain.RuleMatch, error)
}

// FactStore holds the queryable projection of the catalog and the like
// relation. ReplaceAll swaps the whole fact set atomically and returns the
// number of facts skipped as malformed.
type FactStore interface {
	RuleEvaluator
	UpsertItem(movie domain.Movie) error
	AssertLike(userID, movieID int64)
	RetractLike(userID, movieID int64)
	ReplaceAll(movies []domain.Movie, likes []domain.Like) int
	ItemCount() int
	LikeCount() int
	Reset()
}

// Embedder turns query and document text into vectors. Failure is an
// expected runtime state, not a crash.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores movie vectors and answers k-nearest-neighbor queries
// with ids ordered by distance.
type VectorIndex interface {
	Upsert(ctx context.Context, id int64, vector []float32, document string, metadata map[string]any) error
	Query(ctx context.Context, vector []float32, k int) ([]int64, error)
}

// CatalogProvider fetches movie pages from the external catalog source.
type CatalogProvider interface {
	FetchPopular(ctx context.Context, page int) ([]domain.Movie, error)
}

// MessageQueue publishes/consumes catalog sync requests.
type MessageQueue interface {
	PublishSyncRequested(ctx context.Context, pages int) error
	SubscribeSyncRequested(ctx context.Context, handler func(context.Context, int) error) error
}
