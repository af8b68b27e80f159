package usecase

import (
	"context"

	"github.com/kirillkom/cinerec/internal/core/domain"
	"github.com/kirillkom/cinerec/internal/core/ports"
)

const (
	CascadeTierExact        = "exact"
	CascadeTierMoodRelaxed  = "mood_relaxed"
	CascadeTierGenreRelaxed = "genre_relaxed"
	CascadeTierFullyRelaxed = "fully_relaxed"
	CascadeTierExhausted    = "exhausted"
)

// FallbackCascade relaxes genre/mood constraints in a fixed order and stops
// at the first non-empty tier. With an active pool every tier stays
// pool-constrained; the cascade never widens past the pool.
type FallbackCascade struct {
	evaluator ports.RuleEvaluator
}

func NewFallbackCascade(evaluator ports.RuleEvaluator) *FallbackCascade {
	return &FallbackCascade{evaluator: evaluator}
}

func (c *FallbackCascade) Run(
	ctx context.Context,
	genre, mood string,
	age int,
	pool *domain.CandidatePool,
) ([]domain.RuleMatch, string) {
	type step struct {
		genre string
		mood  string
		tier  string
	}

	steps := []step{{genre, mood, CascadeTierExact}}
	if mood != domain.AnyTag {
		steps = append(steps, step{genre, domain.AnyTag, CascadeTierMoodRelaxed})
	}
	if genre != domain.AnyTag {
		steps = append(steps, step{domain.AnyTag, mood, CascadeTierGenreRelaxed})
	}
	// An any/any request already ran fully relaxed as its exact step.
	if genre != domain.AnyTag || mood != domain.AnyTag {
		steps = append(steps, step{domain.AnyTag, domain.AnyTag, CascadeTierFullyRelaxed})
	}

	for _, s := range steps {
		matches, err := c.evaluator.Evaluate(ctx, c.query(s.genre, s.mood, age, pool))
		if err != nil {
			continue
		}
		if len(matches) > 0 {
			return matches, s.tier
		}
	}
	return nil, CascadeTierExhausted
}

func (c *FallbackCascade) query(genre, mood string, age int, pool *domain.CandidatePool) domain.RuleQuery {
	if pool != nil {
		return domain.NewPoolMatch(genre, mood, age, pool)
	}
	return domain.NewAttributeMatch(genre, mood, age)
}
