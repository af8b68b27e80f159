package tmdb

import (
	"slices"
	"testing"
)

func TestMapGenresDefaultsToDrama(t *testing.T) {
	if got := mapGenres([]int{99999}); len(got) != 1 || got[0] != "drama" {
		t.Fatalf("unknown ids must default to drama, got %v", got)
	}
	if got := mapGenres(nil); len(got) != 1 || got[0] != "drama" {
		t.Fatalf("empty ids must default to drama, got %v", got)
	}
}

func TestInferMoodsFromOverviewKeywords(t *testing.T) {
	moods := inferMoods("A murder investigation full of suspense and a final twist.", nil)
	for _, want := range []string{"dark", "mind-bending", "thrilling"} {
		if !slices.Contains(moods, want) {
			t.Fatalf("expected mood %q in %v", want, moods)
		}
	}
}

func TestInferMoodsFromGenres(t *testing.T) {
	moods := inferMoods("", []string{"comedy", "romance"})
	if !slices.Contains(moods, "funny") || !slices.Contains(moods, "romantic") {
		t.Fatalf("genre-derived moods missing: %v", moods)
	}
}

func TestInferMoodsDefault(t *testing.T) {
	moods := inferMoods("An ordinary story.", []string{"drama"})
	if len(moods) != 2 || moods[0] != "thought-provoking" || moods[1] != "tense" {
		t.Fatalf("expected default moods, got %v", moods)
	}
}

func TestInferMinAge(t *testing.T) {
	if got := inferMinAge(true, nil); got != 18 {
		t.Fatalf("adult content: got %d", got)
	}
	if got := inferMinAge(false, []int{genreIDFamily}); got != 0 {
		t.Fatalf("family content: got %d", got)
	}
	if got := inferMinAge(false, []int{genreIDComedy}); got != 6 {
		t.Fatalf("comedy: got %d", got)
	}
	if got := inferMinAge(false, []int{878}); got != 12 {
		t.Fatalf("default floor: got %d", got)
	}
}
