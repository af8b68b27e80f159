package usecase

import (
	"context"
	"strings"

	"github.com/kirillkom/cinerec/internal/core/domain"
	"github.com/kirillkom/cinerec/internal/core/ports"
)

// PipelineObserver receives per-request pipeline observations. Implemented
// by the metrics package; a nil observer disables recording.
type PipelineObserver interface {
	RecordPoolSource(source string, size int)
	RecordCascadeTier(tier string)
}

// RecommendUseCase coordinates the candidate pool, the fallback cascade,
// the collaborative signal and rank fusion into one ranked list. It always
// returns a (possibly empty) sequence: every upstream failure degrades to
// the next path instead of failing the request.
type RecommendUseCase struct {
	pools     *PoolBuilder
	cascade   *FallbackCascade
	evaluator ports.RuleEvaluator
	catalog   ports.CatalogStore
	limit     int
	observer  PipelineObserver
}

func NewRecommendUseCase(
	pools *PoolBuilder,
	cascade *FallbackCascade,
	evaluator ports.RuleEvaluator,
	catalog ports.CatalogStore,
	limit int,
) *RecommendUseCase {
	if limit <= 0 {
		limit = defaultMergeLimit
	}
	return &RecommendUseCase{
		pools:     pools,
		cascade:   cascade,
		evaluator: evaluator,
		catalog:   catalog,
		limit:     limit,
	}
}

func (uc *RecommendUseCase) WithObserver(observer PipelineObserver) *RecommendUseCase {
	uc.observer = observer
	return uc
}

func (uc *RecommendUseCase) Recommend(ctx context.Context, req domain.RecommendationRequest) ([]domain.Recommendation, error) {
	genre := normalizeTag(req.Genre)
	mood := normalizeTag(req.Mood)
	age := req.Age
	if age <= 0 {
		age = 18
	}

	query := strings.TrimSpace(req.SearchQuery)
	searchActive := query != ""

	var pool *domain.CandidatePool
	source := PoolSourceNone
	if searchActive {
		pool, source = uc.pools.Build(ctx, query)
	}
	if uc.observer != nil {
		uc.observer.RecordPoolSource(source, pool.Size())
	}

	matches, tier := uc.cascade.Run(ctx, genre, mood, age, pool)
	if uc.observer != nil {
		uc.observer.RecordCascadeTier(tier)
	}

	// Collaborative records go first so a flagged explanation survives the
	// first-insertion title dedup in fuseAndRank.
	records := make([]domain.MatchRecord, 0, len(matches))
	if req.UserID != 0 {
		records = append(records, uc.collaborative(ctx, req.UserID, age, pool)...)
	}
	for _, m := range matches {
		records = append(records, domain.MatchRecord{Title: m.Title, Explanation: m.Explanation, Score: m.Score})
	}

	ranked := fuseAndRank(records, searchActive, uc.limit)
	return uc.hydrate(ctx, ranked)
}

// collaborative fetches the co-occurrence signal. Evaluator failure means
// the signal is omitted; an active pool bounds collaborative results too.
func (uc *RecommendUseCase) collaborative(ctx context.Context, userID int64, age int, pool *domain.CandidatePool) []domain.MatchRecord {
	matches, err := uc.evaluator.Evaluate(ctx, domain.NewCollaborativeMatch(userID, age))
	if err != nil {
		return nil
	}

	out := make([]domain.MatchRecord, 0, len(matches))
	for _, m := range matches {
		if pool != nil && !pool.Contains(m.ID) {
			continue
		}
		out = append(out, domain.MatchRecord{Title: m.Title, Explanation: m.Explanation, Score: m.Score})
	}
	return out
}

// hydrate joins ranked titles back to full catalog records, preserving the
// ranked order. Titles without a catalog record are dropped; a catalog
// outage degrades to an empty list rather than a request failure.
func (uc *RecommendUseCase) hydrate(ctx context.Context, ranked []domain.MatchRecord) ([]domain.Recommendation, error) {
	if len(ranked) == 0 {
		return []domain.Recommendation{}, nil
	}

	titles := make([]string, 0, len(ranked))
	for _, record := range ranked {
		titles = append(titles, record.Title)
	}

	movies, err := uc.catalog.GetByTitles(ctx, titles)
	if err != nil {
		return []domain.Recommendation{}, nil
	}

	byTitle := make(map[string]domain.Movie, len(movies))
	for _, movie := range movies {
		if _, ok := byTitle[movie.Title]; !ok {
			byTitle[movie.Title] = movie
		}
	}

	out := make([]domain.Recommendation, 0, len(ranked))
	for _, record := range ranked {
		movie, ok := byTitle[record.Title]
		if !ok {
			continue
		}
		out = append(out, domain.Recommendation{
			Title:       movie.Title,
			Explanation: record.Explanation,
			Popularity:  movie.Popularity,
			PosterURL:   movie.PosterURL,
			Overview:    movie.Overview,
			Cast:        movie.Cast,
			Rating:      movie.Rating,
			Year:        movie.ReleaseYear,
			ID:          movie.ID,
		})
	}
	return out, nil
}

func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return domain.AnyTag
	}
	return tag
}
