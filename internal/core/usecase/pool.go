package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/kirillkom/cinerec/internal/core/domain"
	"github.com/kirillkom/cinerec/internal/core/ports"
)

const (
	PoolSourceNone      = "none"
	PoolSourceSemantic  = "semantic"
	PoolSourceSubstring = "substring"
)

// PoolBuilder turns a free-text query into a bounded candidate-id pool.
// The semantic path may fail at the embedder or the vector index; either
// failure degrades to substring matching against the catalog store.
type PoolBuilder struct {
	embedder     ports.Embedder
	vectorIndex  ports.VectorIndex
	catalog      ports.CatalogStore
	poolSize     int
	embedTimeout time.Duration
}

func NewPoolBuilder(
	embedder ports.Embedder,
	vectorIndex ports.VectorIndex,
	catalog ports.CatalogStore,
	poolSize int,
	embedTimeout time.Duration,
) *PoolBuilder {
	if poolSize <= 0 {
		poolSize = 100
	}
	if embedTimeout <= 0 {
		embedTimeout = 10 * time.Second
	}
	return &PoolBuilder{
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		catalog:      catalog,
		poolSize:     poolSize,
		embedTimeout: embedTimeout,
	}
}

// Build returns a nil pool for an empty query. A non-empty query always
// yields a pool, possibly with zero members: search intent bounds the
// result universe even when nothing matches.
func (b *PoolBuilder) Build(ctx context.Context, query string) (*domain.CandidatePool, string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, PoolSourceNone
	}

	if ids := b.semanticPool(ctx, query); len(ids) > 0 {
		return domain.NewCandidatePool(ids), PoolSourceSemantic
	}

	ids, err := b.catalog.SearchSubstring(ctx, strings.ToLower(query))
	if err != nil {
		return domain.NewCandidatePool(nil), PoolSourceSubstring
	}
	return domain.NewCandidatePool(ids), PoolSourceSubstring
}

func (b *PoolBuilder) semanticPool(ctx context.Context, query string) []int64 {
	embedCtx, cancel := context.WithTimeout(ctx, b.embedTimeout)
	defer cancel()

	vector, err := b.embedder.EmbedQuery(embedCtx, query)
	if err != nil || len(vector) == 0 {
		return nil
	}

	ids, err := b.vectorIndex.Query(ctx, vector, b.poolSize)
	if err != nil {
		return nil
	}
	if len(ids) > b.poolSize {
		ids = ids[:b.poolSize]
	}
	return ids
}
