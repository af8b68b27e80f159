package ports

import (
	"context"

	"github.com/kirillkom/cinerec/internal/core/domain"
)

// Recommender is the inbound contract for the retrieval-fusion engine. It
// always returns a (possibly empty) ranked sequence.
type Recommender interface {
	Recommend(ctx context.Context, req domain.RecommendationRequest) ([]domain.Recommendation, error)
}

// LikeRecorder is the inbound contract for preference updates.
type LikeRecorder interface {
	Like(ctx context.Context, userID, movieID int64) error
	Unlike(ctx context.Context, userID, movieID int64) error
}

// CatalogSyncer runs a full ingestion pass against the external provider.
type CatalogSyncer interface {
	Sync(ctx context.Context, pages int) (int, error)
}
