package factstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/kirillkom/cinerec/internal/core/domain"
)

// itemFact is the reduced projection of a catalog record the evaluator
// queries against. Display metadata stays in the catalog store.
type itemFact struct {
	id          int64
	title       string
	genres      map[string]struct{}
	moods       map[string]struct{}
	minAge      int
	releaseYear int
	popularity  float64
}

// generation is one complete, immutable fact set. Reload builds a fresh
// generation and swaps it in under the write lock, so concurrent readers
// see either the old set or the new set, never a torn one.
type generation struct {
	items       map[int64]itemFact
	likesByUser map[int64]map[int64]struct{}
	likesByItem map[int64]map[int64]struct{}
}

func newGeneration() *generation {
	return &generation{
		items:       make(map[int64]itemFact),
		likesByUser: make(map[int64]map[int64]struct{}),
		likesByItem: make(map[int64]map[int64]struct{}),
	}
}

// Store is an in-memory fact store and rule evaluator. It is safe for
// concurrent use; writes are idempotent upserts.
type Store struct {
	mu  sync.RWMutex
	gen *generation
}

func New() *Store {
	return &Store{gen: newGeneration()}
}

// UpsertItem replaces the fact set for the movie's id in full. A fact that
// fails validation is rejected so a bad record cannot poison queries.
func (s *Store) UpsertItem(movie domain.Movie) error {
	fact, err := buildFact(movie)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen.items[fact.id] = fact
	return nil
}

// AssertLike records a (user, movie) preference. Repeated assertion is a
// no-op, checked under the same lock that inserts.
func (s *Store) AssertLike(userID, movieID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen.assertLike(userID, movieID)
}

// RetractLike removes a preference; absent relations are a no-op.
func (s *Store) RetractLike(userID, movieID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if users, ok := s.gen.likesByItem[movieID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(s.gen.likesByItem, movieID)
		}
	}
	if items, ok := s.gen.likesByUser[userID]; ok {
		delete(items, movieID)
		if len(items) == 0 {
			delete(s.gen.likesByUser, userID)
		}
	}
}

// ReplaceAll atomically swaps in a full snapshot of the catalog and like
// relation. Malformed movie facts are skipped and counted; the rest of the
// batch loads. Returns the number of skipped facts.
func (s *Store) ReplaceAll(movies []domain.Movie, likes []domain.Like) int {
	next := newGeneration()
	skipped := 0
	for _, movie := range movies {
		fact, err := buildFact(movie)
		if err != nil {
			skipped++
			continue
		}
		next.items[fact.id] = fact
	}
	for _, like := range likes {
		if _, ok := next.items[like.MovieID]; !ok {
			continue
		}
		next.assertLike(like.UserID, like.MovieID)
	}

	s.mu.Lock()
	s.gen = next
	s.mu.Unlock()
	return skipped
}

// Reset drops all facts. Exposed for test isolation.
func (s *Store) Reset() {
	s.mu.Lock()
	s.gen = newGeneration()
	s.mu.Unlock()
}

func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gen.items)
}

func (s *Store) LikeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, items := range s.gen.likesByUser {
		n += len(items)
	}
	return n
}

// Evaluate answers a structured rule query. Unknown query kinds degrade to
// an empty result; the caller treats empty as the cue to relax constraints.
func (s *Store) Evaluate(ctx context.Context, query domain.RuleQuery) ([]domain.RuleMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Held for the whole evaluation: per-key writes mutate the current
	// generation's maps in place, so releasing early would let a writer race
	// the map scans below.
	s.mu.RLock()
	defer s.mu.RUnlock()
	gen := s.gen

	switch query.Kind {
	case domain.AttributeMatch:
		return gen.attributeMatches(query.Genre, query.Mood, query.Age, nil), nil
	case domain.PoolMatch:
		if query.Pool == nil {
			return nil, fmt.Errorf("pool match without pool")
		}
		return gen.attributeMatches(query.Genre, query.Mood, query.Age, query.Pool), nil
	case domain.CollaborativeMatch:
		return gen.collaborativeMatches(query.UserID, query.Age), nil
	default:
		return nil, fmt.Errorf("unknown rule query kind %d", query.Kind)
	}
}

func (g *generation) assertLike(userID, movieID int64) {
	users, ok := g.likesByItem[movieID]
	if !ok {
		users = make(map[int64]struct{})
		g.likesByItem[movieID] = users
	}
	if _, exists := users[userID]; exists {
		return
	}
	users[userID] = struct{}{}

	items, ok := g.likesByUser[userID]
	if !ok {
		items = make(map[int64]struct{})
		g.likesByUser[userID] = items
	}
	items[movieID] = struct{}{}
}

func (g *generation) attributeMatches(genre, mood string, age int, pool *domain.CandidatePool) []domain.RuleMatch {
	out := make([]domain.RuleMatch, 0)
	for _, fact := range g.items {
		if pool != nil && !pool.Contains(fact.id) {
			continue
		}
		if age < fact.minAge {
			continue
		}
		if !tagSatisfied(genre, fact.genres) || !tagSatisfied(mood, fact.moods) {
			continue
		}
		out = append(out, domain.RuleMatch{
			ID:          fact.id,
			Title:       fact.title,
			Explanation: attributeExplanation(genre, mood),
			Score:       fact.popularity,
		})
	}
	return out
}

// collaborativeMatches finds movies liked by the requesting user's peers: a
// peer is any user sharing at least one liked movie. The user's own likes
// are excluded, and the age floor still applies.
func (g *generation) collaborativeMatches(userID int64, age int) []domain.RuleMatch {
	own := g.likesByUser[userID]
	if len(own) == 0 {
		return nil
	}

	peers := make(map[int64]struct{})
	for movieID := range own {
		for peer := range g.likesByItem[movieID] {
			if peer != userID {
				peers[peer] = struct{}{}
			}
		}
	}

	seen := make(map[int64]struct{})
	out := make([]domain.RuleMatch, 0)
	for peer := range peers {
		for movieID := range g.likesByUser[peer] {
			if _, liked := own[movieID]; liked {
				continue
			}
			if _, dup := seen[movieID]; dup {
				continue
			}
			seen[movieID] = struct{}{}

			fact, ok := g.items[movieID]
			if !ok || age < fact.minAge {
				continue
			}
			out = append(out, domain.RuleMatch{
				ID:          fact.id,
				Title:       fact.title,
				Explanation: "Recommended " + domain.CollabMarker,
				Score:       fact.popularity,
			})
		}
	}
	return out
}

func tagSatisfied(want string, have map[string]struct{}) bool {
	if want == domain.AnyTag || want == "" {
		return true
	}
	_, ok := have[want]
	return ok
}

func attributeExplanation(genre, mood string) string {
	switch {
	case genre != domain.AnyTag && mood != domain.AnyTag:
		return fmt.Sprintf("Matches your %s pick with a %s mood", genre, mood)
	case genre != domain.AnyTag:
		return fmt.Sprintf("Matches your %s pick", genre)
	case mood != domain.AnyTag:
		return fmt.Sprintf("Matches your %s mood", mood)
	default:
		return "Popular pick for your age group"
	}
}

func buildFact(movie domain.Movie) (itemFact, error) {
	title := strings.TrimSpace(movie.Title)
	if movie.ID <= 0 {
		return itemFact{}, domain.WrapError(domain.ErrMalformedFact, "build fact", fmt.Errorf("non-positive id %d", movie.ID))
	}
	if title == "" || !utf8.ValidString(title) {
		return itemFact{}, domain.WrapError(domain.ErrMalformedFact, "build fact", fmt.Errorf("invalid title for id %d", movie.ID))
	}

	return itemFact{
		id:          movie.ID,
		title:       title,
		genres:      lowerSet(movie.Genres),
		moods:       lowerSet(movie.Moods),
		minAge:      movie.MinAge,
		releaseYear: movie.ReleaseYear,
		popularity:  movie.Popularity,
	}, nil
}

func lowerSet(tags []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		out[tag] = struct{}{}
	}
	return out
}
