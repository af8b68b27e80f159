package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/cinerec/internal/core/domain"
)

const posterBaseURL = "https://image.tmdb.org/t/p/w500"

// Client fetches popular-movie pages and credits from TMDB. Calls are
// rate-limited client-side to stay under the provider's per-second cap.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(20), 20),
	}
}

type popularResponse struct {
	Results []struct {
		ID          int64   `json:"id"`
		Title       string  `json:"title"`
		Overview    string  `json:"overview"`
		PosterPath  string  `json:"poster_path"`
		ReleaseDate string  `json:"release_date"`
		VoteAverage float64 `json:"vote_average"`
		Popularity  float64 `json:"popularity"`
		Adult       bool    `json:"adult"`
		GenreIDs    []int   `json:"genre_ids"`
	} `json:"results"`
}

type creditsResponse struct {
	Cast []struct {
		Name string `json:"name"`
	} `json:"cast"`
}

// FetchPopular returns one page of popular movies with inferred moods, age
// floors and top-billed cast. Entries without a poster are skipped. A
// failed credits lookup leaves the cast empty rather than dropping the
// movie.
func (c *Client) FetchPopular(ctx context.Context, page int) ([]domain.Movie, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, fmt.Errorf("tmdb api key is not configured")
	}
	if page <= 0 {
		page = 1
	}

	var popular popularResponse
	query := url.Values{"language": {"en-US"}, "page": {strconv.Itoa(page)}}
	if err := c.getJSON(ctx, "/movie/popular", query, &popular); err != nil {
		return nil, fmt.Errorf("fetch popular page %d: %w", page, err)
	}

	out := make([]domain.Movie, 0, len(popular.Results))
	for _, entry := range popular.Results {
		if entry.PosterPath == "" {
			continue
		}

		genres := mapGenres(entry.GenreIDs)
		movie := domain.Movie{
			ID:          entry.ID,
			Title:       entry.Title,
			Overview:    entry.Overview,
			PosterURL:   posterBaseURL + entry.PosterPath,
			ReleaseYear: parseReleaseYear(entry.ReleaseDate),
			Rating:      entry.VoteAverage,
			Popularity:  entry.Popularity,
			MinAge:      inferMinAge(entry.Adult, entry.GenreIDs),
			Genres:      genres,
			Moods:       inferMoods(entry.Overview, genres),
			Cast:        c.fetchCast(ctx, entry.ID),
		}
		out = append(out, movie)
	}
	return out, nil
}

func (c *Client) fetchCast(ctx context.Context, movieID int64) []string {
	var credits creditsResponse
	path := fmt.Sprintf("/movie/%d/credits", movieID)
	if err := c.getJSON(ctx, path, url.Values{}, &credits); err != nil {
		return []string{}
	}

	limit := 5
	if len(credits.Cast) < limit {
		limit = len(credits.Cast)
	}
	cast := make([]string, 0, limit)
	for _, actor := range credits.Cast[:limit] {
		cast = append(cast, actor.Name)
	}
	return cast
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	query.Set("api_key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("tmdb status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("tmdb status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseReleaseYear(releaseDate string) int {
	if len(releaseDate) < 4 {
		return 2000
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil {
		return 2000
	}
	return year
}
