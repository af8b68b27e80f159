package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/cinerec/internal/core/domain"
)

type poolEmbedderFake struct {
	query string
	err   error
}

func (f *poolEmbedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.query = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type poolVectorFake struct {
	k   int
	ids []int64
	err error
}

func (f *poolVectorFake) Upsert(context.Context, int64, []float32, string, map[string]any) error {
	return nil
}
func (f *poolVectorFake) Query(_ context.Context, _ []float32, k int) ([]int64, error) {
	f.k = k
	if f.err != nil {
		return nil, f.err
	}
	return f.ids, nil
}

type poolCatalogFake struct {
	substringQuery string
	ids            []int64
	err            error
}

func (f *poolCatalogFake) Upsert(context.Context, *domain.Movie) error { return nil }
func (f *poolCatalogFake) GetByID(context.Context, int64) (*domain.Movie, error) {
	return nil, domain.ErrMovieNotFound
}
func (f *poolCatalogFake) GetByTitles(context.Context, []string) ([]domain.Movie, error) {
	return nil, nil
}
func (f *poolCatalogFake) SearchSubstring(_ context.Context, query string) ([]int64, error) {
	f.substringQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.ids, nil
}
func (f *poolCatalogFake) ListAll(context.Context) ([]domain.Movie, error) { return nil, nil }
func (f *poolCatalogFake) Count(context.Context) (int64, error)            { return 0, nil }

func TestPoolBuilderEmptyQueryReturnsNilPool(t *testing.T) {
	builder := NewPoolBuilder(&poolEmbedderFake{}, &poolVectorFake{}, &poolCatalogFake{}, 100, time.Second)

	pool, source := builder.Build(context.Background(), "   ")
	if pool != nil {
		t.Fatalf("expected nil pool for blank query, got %v", pool.IDs())
	}
	if source != PoolSourceNone {
		t.Fatalf("expected source %q, got %q", PoolSourceNone, source)
	}
}

func TestPoolBuilderSemanticPath(t *testing.T) {
	vector := &poolVectorFake{ids: []int64{3, 1, 2}}
	builder := NewPoolBuilder(&poolEmbedderFake{}, vector, &poolCatalogFake{}, 100, time.Second)

	pool, source := builder.Build(context.Background(), "space heist")
	if source != PoolSourceSemantic {
		t.Fatalf("expected semantic source, got %q", source)
	}
	if vector.k != 100 {
		t.Fatalf("expected k=100, got %d", vector.k)
	}
	got := pool.IDs()
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("pool must preserve vector order, got %v", got)
	}
}

func TestPoolBuilderCapsSemanticPoolSize(t *testing.T) {
	vector := &poolVectorFake{ids: []int64{1, 2, 3, 4, 5}}
	builder := NewPoolBuilder(&poolEmbedderFake{}, vector, &poolCatalogFake{}, 3, time.Second)

	pool, _ := builder.Build(context.Background(), "anything")
	if pool.Size() != 3 {
		t.Fatalf("expected pool capped at 3, got %d", pool.Size())
	}
}

func TestPoolBuilderDeduplicatesIDs(t *testing.T) {
	vector := &poolVectorFake{ids: []int64{7, 7, 9, 7}}
	builder := NewPoolBuilder(&poolEmbedderFake{}, vector, &poolCatalogFake{}, 100, time.Second)

	pool, _ := builder.Build(context.Background(), "anything")
	got := pool.IDs()
	if len(got) != 2 || got[0] != 7 || got[1] != 9 {
		t.Fatalf("expected deduped ids [7 9], got %v", got)
	}
}

func TestPoolBuilderEmbedFailureFallsBackToSubstring(t *testing.T) {
	catalog := &poolCatalogFake{ids: []int64{42}}
	builder := NewPoolBuilder(&poolEmbedderFake{err: errors.New("embed down")}, &poolVectorFake{}, catalog, 100, time.Second)

	pool, source := builder.Build(context.Background(), "The Matrix")
	if source != PoolSourceSubstring {
		t.Fatalf("expected substring source, got %q", source)
	}
	if catalog.substringQuery != "the matrix" {
		t.Fatalf("substring query must be lowercased, got %q", catalog.substringQuery)
	}
	if pool.Size() != 1 || !pool.Contains(42) {
		t.Fatalf("expected pool with id 42, got %v", pool.IDs())
	}
}

func TestPoolBuilderVectorFailureFallsBackToSubstring(t *testing.T) {
	catalog := &poolCatalogFake{ids: []int64{5}}
	builder := NewPoolBuilder(&poolEmbedderFake{}, &poolVectorFake{err: errors.New("index down")}, catalog, 100, time.Second)

	_, source := builder.Build(context.Background(), "matrix")
	if source != PoolSourceSubstring {
		t.Fatalf("expected substring source, got %q", source)
	}
}

func TestPoolBuilderTotalFailureYieldsEmptyPool(t *testing.T) {
	builder := NewPoolBuilder(
		&poolEmbedderFake{err: errors.New("embed down")},
		&poolVectorFake{},
		&poolCatalogFake{err: errors.New("db down")},
		100,
		time.Second,
	)

	pool, source := builder.Build(context.Background(), "matrix")
	if pool == nil {
		t.Fatal("failed search must still yield a bounding pool")
	}
	if pool.Size() != 0 {
		t.Fatalf("expected empty pool, got %v", pool.IDs())
	}
	if source != PoolSourceSubstring {
		t.Fatalf("expected substring source, got %q", source)
	}
}
