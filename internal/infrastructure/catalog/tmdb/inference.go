package tmdb

import (
	"slices"
	"strings"
)

var genreNames = map[int]string{
	28: "action", 12: "adventure", 16: "animation", 35: "comedy", 80: "crime",
	99: "documentary", 18: "drama", 10751: "family", 14: "fantasy", 36: "history",
	27: "horror", 10402: "musical", 9648: "mystery", 10749: "romance", 878: "sci-fi",
	10770: "tv movie", 53: "thriller", 10752: "war", 37: "western",
}

const (
	genreIDAnimation = 16
	genreIDComedy    = 35
	genreIDFamily    = 10751
)

func mapGenres(genreIDs []int) []string {
	out := make([]string, 0, len(genreIDs))
	for _, id := range genreIDs {
		if name, ok := genreNames[id]; ok {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		out = []string{"drama"}
	}
	return out
}

// inferMoods derives mood tags from overview keywords and genres. TMDB has
// no mood taxonomy, so this keyword heuristic is the source of the mood
// facts the rule evaluator filters on.
func inferMoods(overview string, genres []string) []string {
	lower := strings.ToLower(overview)
	moods := make([]string, 0, 4)

	containsAny := func(words ...string) bool {
		for _, word := range words {
			if strings.Contains(lower, word) {
				return true
			}
		}
		return false
	}

	if containsAny("dark", "murder", "crime") {
		moods = append(moods, "dark")
	}
	if containsAny("funny", "hilarious") || slices.Contains(genres, "comedy") {
		moods = append(moods, "funny")
	}
	if containsAny("mind", "twist", "complex") {
		moods = append(moods, "mind-bending")
	}
	if containsAny("explosive") || slices.Contains(genres, "action") {
		moods = append(moods, "action-packed")
	}
	if containsAny("thrill", "suspense") {
		moods = append(moods, "thrilling")
	}
	if containsAny("love") || slices.Contains(genres, "romance") {
		moods = append(moods, "romantic")
	}
	if containsAny("heartwarming") || slices.Contains(genres, "family") {
		moods = append(moods, "heartwarming")
	}

	if len(moods) == 0 {
		moods = []string{"thought-provoking", "tense"}
	}
	return moods
}

func inferMinAge(adult bool, genreIDs []int) int {
	switch {
	case adult:
		return 18
	case slices.Contains(genreIDs, genreIDAnimation) || slices.Contains(genreIDs, genreIDFamily):
		return 0
	case slices.Contains(genreIDs, genreIDComedy):
		return 6
	default:
		return 12
	}
}
