package factstore

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/cinerec/internal/core/domain"
)

func sampleMovies() []domain.Movie {
	return []domain.Movie{
		{ID: 1, Title: "Inception", Genres: []string{"sci-fi", "thriller"}, Moods: []string{"mind-bending"}, MinAge: 12, Popularity: 88.5},
		{ID: 2, Title: "Paddington", Genres: []string{"family", "comedy"}, Moods: []string{"heartwarming"}, MinAge: 0, Popularity: 61.2},
		{ID: 3, Title: "Heat", Genres: []string{"crime", "thriller"}, Moods: []string{"tense"}, MinAge: 16, Popularity: 74.0},
		{ID: 4, Title: "Amelie", Genres: []string{"romance", "comedy"}, Moods: []string{"heartwarming"}, MinAge: 12, Popularity: 55.9},
	}
}

func loadedStore(t *testing.T) *Store {
	t.Helper()
	store := New()
	for _, movie := range sampleMovies() {
		if err := store.UpsertItem(movie); err != nil {
			t.Fatalf("upsert %q: %v", movie.Title, err)
		}
	}
	return store
}

func TestUpsertItemRejectsMalformedFacts(t *testing.T) {
	store := New()

	if err := store.UpsertItem(domain.Movie{ID: 0, Title: "No ID"}); err == nil {
		t.Fatal("expected error for non-positive id")
	}
	if err := store.UpsertItem(domain.Movie{ID: 5, Title: "   "}); err == nil {
		t.Fatal("expected error for blank title")
	}
	if err := store.UpsertItem(domain.Movie{ID: 6, Title: string([]byte{0xff, 0xfe})}); err == nil {
		t.Fatal("expected error for invalid utf-8 title")
	}
	if got := store.ItemCount(); got != 0 {
		t.Fatalf("malformed facts must not load, got %d items", got)
	}
}

func TestUpsertItemReplacesExistingFact(t *testing.T) {
	store := New()
	if err := store.UpsertItem(domain.Movie{ID: 1, Title: "Inception", Genres: []string{"sci-fi"}, MinAge: 12}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := store.UpsertItem(domain.Movie{ID: 1, Title: "Inception", Genres: []string{"thriller"}, MinAge: 12}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	matches, err := store.Evaluate(context.Background(), domain.NewAttributeMatch("sci-fi", domain.AnyTag, 18))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("stale genre fact survived upsert: %+v", matches)
	}
}

func TestAttributeMatchFiltersGenreMoodAndAge(t *testing.T) {
	store := loadedStore(t)

	matches, err := store.Evaluate(context.Background(), domain.NewAttributeMatch("thriller", domain.AnyTag, 18))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 thriller matches, got %d", len(matches))
	}

	// Age 12 drops Heat (min age 16) even though the genre matches.
	matches, err = store.Evaluate(context.Background(), domain.NewAttributeMatch("thriller", domain.AnyTag, 12))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(matches) != 1 || matches[0].Title != "Inception" {
		t.Fatalf("expected only Inception for age 12, got %+v", matches)
	}

	matches, err = store.Evaluate(context.Background(), domain.NewAttributeMatch("comedy", "heartwarming", 18))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected Paddington and Amelie, got %+v", matches)
	}
}

func TestAttributeMatchTreatsAnyAsWildcard(t *testing.T) {
	store := loadedStore(t)

	matches, err := store.Evaluate(context.Background(), domain.NewAttributeMatch(domain.AnyTag, domain.AnyTag, 18))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(matches) != 4 {
		t.Fatalf("wildcard query should return full catalog, got %d", len(matches))
	}
	for _, m := range matches {
		if m.Explanation != "Popular pick for your age group" {
			t.Fatalf("unexpected wildcard explanation %q", m.Explanation)
		}
	}
}

func TestPoolMatchRestrictsToPoolMembers(t *testing.T) {
	store := loadedStore(t)
	pool := domain.NewCandidatePool([]int64{1, 3})

	matches, err := store.Evaluate(context.Background(), domain.NewPoolMatch(domain.AnyTag, domain.AnyTag, 18, pool))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 pool matches, got %d", len(matches))
	}
	for _, m := range matches {
		if m.ID != 1 && m.ID != 3 {
			t.Fatalf("match outside pool: %+v", m)
		}
	}
}

func TestPoolMatchEmptyPoolReturnsNothing(t *testing.T) {
	store := loadedStore(t)
	pool := domain.NewCandidatePool(nil)

	matches, err := store.Evaluate(context.Background(), domain.NewPoolMatch(domain.AnyTag, domain.AnyTag, 18, pool))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("empty pool must bound results to zero, got %d", len(matches))
	}
}

func TestPoolMatchWithoutPoolErrors(t *testing.T) {
	store := loadedStore(t)
	if _, err := store.Evaluate(context.Background(), domain.RuleQuery{Kind: domain.PoolMatch}); err == nil {
		t.Fatal("expected error for pool match without pool")
	}
}

func TestAssertLikeIsIdempotent(t *testing.T) {
	store := loadedStore(t)

	store.AssertLike(10, 1)
	store.AssertLike(10, 1)
	store.AssertLike(10, 1)

	if got := store.LikeCount(); got != 1 {
		t.Fatalf("repeated assertion must not duplicate, got %d likes", got)
	}
}

func TestRetractLikeRemovesRelation(t *testing.T) {
	store := loadedStore(t)

	store.AssertLike(10, 1)
	store.RetractLike(10, 1)
	store.RetractLike(10, 1)

	if got := store.LikeCount(); got != 0 {
		t.Fatalf("expected 0 likes after retract, got %d", got)
	}
}

func TestCollaborativeMatchFindsPeerLikes(t *testing.T) {
	store := loadedStore(t)

	// Users 10 and 20 both like Inception; 20 also likes Heat and Amelie.
	store.AssertLike(10, 1)
	store.AssertLike(20, 1)
	store.AssertLike(20, 3)
	store.AssertLike(20, 4)

	matches, err := store.Evaluate(context.Background(), domain.NewCollaborativeMatch(10, 18))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected Heat and Amelie, got %+v", matches)
	}
	for _, m := range matches {
		if m.ID == 1 {
			t.Fatalf("user's own like must be excluded: %+v", m)
		}
		if !strings.Contains(m.Explanation, domain.CollabMarker) {
			t.Fatalf("collaborative explanation missing marker: %q", m.Explanation)
		}
	}
}

func TestCollaborativeMatchRespectsAgeFloor(t *testing.T) {
	store := loadedStore(t)

	store.AssertLike(10, 1)
	store.AssertLike(20, 1)
	store.AssertLike(20, 3)

	matches, err := store.Evaluate(context.Background(), domain.NewCollaborativeMatch(10, 12))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("Heat requires age 16, got %+v", matches)
	}
}

func TestCollaborativeMatchNoLikesReturnsNothing(t *testing.T) {
	store := loadedStore(t)

	matches, err := store.Evaluate(context.Background(), domain.NewCollaborativeMatch(99, 18))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("user without likes has no peers, got %+v", matches)
	}
}

func TestReplaceAllSwapsSnapshotAndDropsOrphanLikes(t *testing.T) {
	store := loadedStore(t)
	store.AssertLike(10, 1)

	movies := []domain.Movie{
		{ID: 7, Title: "Arrival", Genres: []string{"sci-fi"}, MinAge: 12, Popularity: 70},
		{ID: 0, Title: "Broken"},
	}
	likes := []domain.Like{
		{UserID: 10, MovieID: 7},
		{UserID: 10, MovieID: 999},
	}

	skipped := store.ReplaceAll(movies, likes)
	if skipped != 1 {
		t.Fatalf("expected 1 skipped fact, got %d", skipped)
	}
	if got := store.ItemCount(); got != 1 {
		t.Fatalf("old generation must be gone, got %d items", got)
	}
	if got := store.LikeCount(); got != 1 {
		t.Fatalf("orphan like must be dropped, got %d", got)
	}

	matches, err := store.Evaluate(context.Background(), domain.NewAttributeMatch("thriller", domain.AnyTag, 18))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("pre-reload facts leaked through the swap: %+v", matches)
	}
}

func TestConcurrentEvaluateAndWrites(t *testing.T) {
	store := loadedStore(t)
	store.AssertLike(10, 1)
	store.AssertLike(20, 1)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, err := store.Evaluate(context.Background(), domain.NewAttributeMatch("thriller", domain.AnyTag, 18)); err != nil {
					t.Errorf("attribute evaluate: %v", err)
					return
				}
				if _, err := store.Evaluate(context.Background(), domain.NewCollaborativeMatch(10, 18)); err != nil {
					t.Errorf("collaborative evaluate: %v", err)
					return
				}
			}
		}()
	}

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(worker int64) {
			defer wg.Done()
			for n := int64(0); n < 200; n++ {
				movieID := 1 + n%4
				store.AssertLike(100+worker, movieID)
				store.RetractLike(100+worker, movieID)
				if err := store.UpsertItem(domain.Movie{
					ID:     movieID,
					Title:  sampleMovies()[movieID-1].Title,
					Genres: []string{"thriller"},
					MinAge: 12,
				}); err != nil {
					t.Errorf("upsert: %v", err)
					return
				}
			}
		}(int64(i))
	}

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}

func TestEvaluateHonorsCancelledContext(t *testing.T) {
	store := loadedStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Evaluate(ctx, domain.NewAttributeMatch(domain.AnyTag, domain.AnyTag, 18)); err == nil {
		t.Fatal("expected context error")
	}
}
