package usecase

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/kirillkom/cinerec/internal/core/domain"
)

const (
	// collabBoost lifts collaborative matches above any rule-only match.
	collabBoost = 10000
	// searchBoost lifts search-scoped results above the no-search baseline.
	searchBoost = 5000

	defaultMergeLimit = 150
)

// fuseAndRank merges match records into one ranked, deduplicated list.
// Each record's effective score is its base score plus additive boosts;
// the first record seen for a title freezes that title's entry. Equal-score
// order is randomized per call by shuffling before a stable score-descending
// sort, so callers must rely only on the score ordering.
func fuseAndRank(records []domain.MatchRecord, searchActive bool, limit int) []domain.MatchRecord {
	if limit <= 0 {
		limit = defaultMergeLimit
	}

	seen := make(map[string]struct{}, len(records))
	merged := make([]domain.MatchRecord, 0, len(records))
	for _, record := range records {
		if record.Title == "" {
			continue
		}
		if _, dup := seen[record.Title]; dup {
			continue
		}
		seen[record.Title] = struct{}{}

		score := record.Score
		if strings.Contains(record.Explanation, domain.CollabMarker) {
			score += collabBoost
		}
		if searchActive {
			score += searchBoost
		}
		merged = append(merged, domain.MatchRecord{
			Title:       record.Title,
			Explanation: record.Explanation,
			Score:       score,
		})
	}

	rand.Shuffle(len(merged), func(i, j int) {
		merged[i], merged[j] = merged[j], merged[i]
	})
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
