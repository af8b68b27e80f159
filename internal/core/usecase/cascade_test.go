package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/cinerec/internal/core/domain"
)

// cascadeEvaluatorFake answers queries from a canned table keyed by
// genre/mood and records every query it saw.
type cascadeEvaluatorFake struct {
	results map[[2]string][]domain.RuleMatch
	queries []domain.RuleQuery
	err     error
}

func (f *cascadeEvaluatorFake) Evaluate(_ context.Context, query domain.RuleQuery) ([]domain.RuleMatch, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[[2]string{query.Genre, query.Mood}], nil
}

func TestCascadeStopsAtExactTier(t *testing.T) {
	evaluator := &cascadeEvaluatorFake{results: map[[2]string][]domain.RuleMatch{
		{"comedy", "funny"}: {{ID: 1, Title: "Paddington"}},
	}}
	cascade := NewFallbackCascade(evaluator)

	matches, tier := cascade.Run(context.Background(), "comedy", "funny", 18, nil)
	if tier != CascadeTierExact {
		t.Fatalf("expected exact tier, got %q", tier)
	}
	if len(matches) != 1 || len(evaluator.queries) != 1 {
		t.Fatalf("cascade must stop at first non-empty tier, queries=%d", len(evaluator.queries))
	}
}

func TestCascadeRelaxesMoodBeforeGenre(t *testing.T) {
	evaluator := &cascadeEvaluatorFake{results: map[[2]string][]domain.RuleMatch{
		{"comedy", domain.AnyTag}: {{ID: 2, Title: "Amelie"}},
	}}
	cascade := NewFallbackCascade(evaluator)

	_, tier := cascade.Run(context.Background(), "comedy", "dark", 18, nil)
	if tier != CascadeTierMoodRelaxed {
		t.Fatalf("expected mood_relaxed tier, got %q", tier)
	}
	second := evaluator.queries[1]
	if second.Genre != "comedy" || second.Mood != domain.AnyTag {
		t.Fatalf("second step must keep genre and relax mood, got %+v", second)
	}
}

func TestCascadeRelaxesGenreThird(t *testing.T) {
	evaluator := &cascadeEvaluatorFake{results: map[[2]string][]domain.RuleMatch{
		{domain.AnyTag, "dark"}: {{ID: 3, Title: "Heat"}},
	}}
	cascade := NewFallbackCascade(evaluator)

	_, tier := cascade.Run(context.Background(), "western", "dark", 18, nil)
	if tier != CascadeTierGenreRelaxed {
		t.Fatalf("expected genre_relaxed tier, got %q", tier)
	}
}

func TestCascadeFullyRelaxedIsTheLastResort(t *testing.T) {
	evaluator := &cascadeEvaluatorFake{results: map[[2]string][]domain.RuleMatch{
		{domain.AnyTag, domain.AnyTag}: {{ID: 4, Title: "Inception"}},
	}}
	cascade := NewFallbackCascade(evaluator)

	_, tier := cascade.Run(context.Background(), "western", "dark", 18, nil)
	if tier != CascadeTierFullyRelaxed {
		t.Fatalf("expected fully_relaxed tier, got %q", tier)
	}
	if len(evaluator.queries) != 4 {
		t.Fatalf("expected 4 cascade steps, got %d", len(evaluator.queries))
	}
}

func TestCascadeExhaustedWhenNothingMatches(t *testing.T) {
	evaluator := &cascadeEvaluatorFake{}
	cascade := NewFallbackCascade(evaluator)

	matches, tier := cascade.Run(context.Background(), "western", "dark", 18, nil)
	if tier != CascadeTierExhausted {
		t.Fatalf("expected exhausted tier, got %q", tier)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %+v", matches)
	}
}

func TestCascadeSkipsRedundantStepsForWildcards(t *testing.T) {
	evaluator := &cascadeEvaluatorFake{}
	cascade := NewFallbackCascade(evaluator)

	matches, tier := cascade.Run(context.Background(), domain.AnyTag, domain.AnyTag, 18, nil)
	if len(evaluator.queries) != 1 {
		t.Fatalf("any/any request is already fully relaxed, got %d steps", len(evaluator.queries))
	}
	if tier != CascadeTierExhausted || len(matches) != 0 {
		t.Fatalf("expected exhausted tier after the single step, got %q with %d matches", tier, len(matches))
	}
}

func TestCascadeKeepsPoolOnEveryTier(t *testing.T) {
	evaluator := &cascadeEvaluatorFake{}
	cascade := NewFallbackCascade(evaluator)
	pool := domain.NewCandidatePool([]int64{1, 2})

	cascade.Run(context.Background(), "western", "dark", 18, pool)
	for i, q := range evaluator.queries {
		if q.Kind != domain.PoolMatch {
			t.Fatalf("step %d dropped the pool constraint: %+v", i, q)
		}
		if q.Pool != pool {
			t.Fatalf("step %d swapped the pool", i)
		}
	}
}

func TestCascadeTreatsEvaluatorErrorAsEmptyTier(t *testing.T) {
	evaluator := &cascadeEvaluatorFake{err: errors.New("evaluator down")}
	cascade := NewFallbackCascade(evaluator)

	matches, tier := cascade.Run(context.Background(), "comedy", "funny", 18, nil)
	if tier != CascadeTierExhausted {
		t.Fatalf("expected exhausted tier, got %q", tier)
	}
	if matches != nil {
		t.Fatalf("expected nil matches, got %+v", matches)
	}
	if len(evaluator.queries) != 4 {
		t.Fatalf("errors must not abort the cascade, got %d steps", len(evaluator.queries))
	}
}
