package domain

// Movie is the catalog record as held by the system of record. The fact
// store keeps a reduced projection of it for rule evaluation.
type Movie struct {
	ID          int64    `json:"tmdb_id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview"`
	PosterURL   string   `json:"poster_url"`
	ReleaseYear int      `json:"year"`
	Rating      float64  `json:"rating"`
	Popularity  float64  `json:"popularity"`
	MinAge      int      `json:"min_age"`
	Genres      []string `json:"genres"`
	Moods       []string `json:"moods"`
	Cast        []string `json:"cast"`
}

// Like is a (user, movie) preference relation. Existence is the payload.
type Like struct {
	UserID  int64
	MovieID int64
}

// CandidatePool is the ordered id set produced by a search query. A nil
// *CandidatePool means no search constraint was given; a pool with zero
// ids means the search ran and found nothing.
type CandidatePool struct {
	ids     []int64
	members map[int64]struct{}
}

func NewCandidatePool(ids []int64) *CandidatePool {
	pool := &CandidatePool{
		ids:     make([]int64, 0, len(ids)),
		members: make(map[int64]struct{}, len(ids)),
	}
	for _, id := range ids {
		if _, ok := pool.members[id]; ok {
			continue
		}
		pool.members[id] = struct{}{}
		pool.ids = append(pool.ids, id)
	}
	return pool
}

func (p *CandidatePool) Contains(id int64) bool {
	if p == nil {
		return false
	}
	_, ok := p.members[id]
	return ok
}

func (p *CandidatePool) IDs() []int64 {
	if p == nil {
		return nil
	}
	return p.ids
}

func (p *CandidatePool) Size() int {
	if p == nil {
		return 0
	}
	return len(p.ids)
}

// MatchRecord is the unit the rank-fusion stage operates on. The merge key
// is the title, not the id.
type MatchRecord struct {
	Title       string
	Explanation string
	Score       float64
}

// Recommendation is a hydrated, ranked output record.
type Recommendation struct {
	Title       string   `json:"title"`
	Explanation string   `json:"explanation"`
	Popularity  float64  `json:"popularity"`
	PosterURL   string   `json:"poster_url"`
	Overview    string   `json:"overview"`
	Cast        []string `json:"cast"`
	Rating      float64  `json:"rating"`
	Year        int      `json:"year"`
	ID          int64    `json:"tmdb_id"`
}

// RecommendationRequest carries the caller's preferences. Zero UserID means
// an anonymous request without collaborative signal.
type RecommendationRequest struct {
	Genre       string
	Mood        string
	Age         int
	SearchQuery string
	UserID      int64
}
