package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/cinerec/internal/core/domain"
)

// MovieRepository is the Postgres-backed catalog store: the system of
// record for movie display metadata.
type MovieRepository struct {
	db *sql.DB
}

func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *MovieRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS movies (
	tmdb_id BIGINT PRIMARY KEY,
	title TEXT NOT NULL,
	overview TEXT NOT NULL DEFAULT '',
	poster_url TEXT NOT NULL DEFAULT '',
	release_year INT NOT NULL DEFAULT 2000,
	rating DOUBLE PRECISION NOT NULL DEFAULT 0,
	popularity DOUBLE PRECISION NOT NULL DEFAULT 0,
	min_age INT NOT NULL DEFAULT 13,
	genres JSONB NOT NULL DEFAULT '[]'::jsonb,
	moods JSONB NOT NULL DEFAULT '[]'::jsonb,
	cast_members JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_movies_title ON movies(title);

CREATE TABLE IF NOT EXISTS watch_history (
	user_id BIGINT NOT NULL,
	tmdb_id BIGINT NOT NULL REFERENCES movies(tmdb_id) ON DELETE CASCADE,
	liked_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, tmdb_id)
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *MovieRepository) Upsert(ctx context.Context, movie *domain.Movie) error {
	genresJSON, moodsJSON, castJSON, err := marshalTagFields(movie)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO movies (
	tmdb_id, title, overview, poster_url, release_year, rating, popularity, min_age, genres, moods, cast_members, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (tmdb_id) DO UPDATE SET
	title = EXCLUDED.title,
	overview = EXCLUDED.overview,
	poster_url = EXCLUDED.poster_url,
	release_year = EXCLUDED.release_year,
	rating = EXCLUDED.rating,
	popularity = EXCLUDED.popularity,
	min_age = EXCLUDED.min_age,
	genres = EXCLUDED.genres,
	moods = EXCLUDED.moods,
	cast_members = EXCLUDED.cast_members,
	updated_at = EXCLUDED.updated_at
`,
		movie.ID, movie.Title, movie.Overview, movie.PosterURL, movie.ReleaseYear, movie.Rating,
		movie.Popularity, movie.MinAge, genresJSON, moodsJSON, castJSON, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert movie: %w", err)
	}
	return nil
}

func (r *MovieRepository) GetByID(ctx context.Context, id int64) (*domain.Movie, error) {
	row := r.db.QueryRowContext(ctx, selectMovieColumns+`
FROM movies
WHERE tmdb_id = $1
`, id)

	movie, err := scanMovieRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrMovieNotFound, "get movie", fmt.Errorf("tmdb_id=%d", id))
		}
		return nil, fmt.Errorf("get movie by id: %w", err)
	}
	return &movie, nil
}

// GetByTitles resolves ranked titles back to full records for hydration.
func (r *MovieRepository) GetByTitles(ctx context.Context, titles []string) ([]domain.Movie, error) {
	if len(titles) == 0 {
		return []domain.Movie{}, nil
	}

	titlesJSON, err := json.Marshal(titles)
	if err != nil {
		return nil, fmt.Errorf("marshal titles: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, selectMovieColumns+`
FROM movies
WHERE title IN (SELECT jsonb_array_elements_text($1::jsonb))
`, titlesJSON)
	if err != nil {
		return nil, fmt.Errorf("get movies by titles: %w", err)
	}
	defer rows.Close()

	return collectMovies(rows)
}

// SearchSubstring is the degraded pool path: case-insensitive substring
// match over title, overview, genre tags and cast names. LIKE
// metacharacters in the query are escaped so they match literally.
func (r *MovieRepository) SearchSubstring(ctx context.Context, query string) ([]int64, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := r.db.QueryContext(ctx, `
SELECT tmdb_id
FROM movies
WHERE lower(title) LIKE $1 ESCAPE '\'
   OR lower(overview) LIKE $1 ESCAPE '\'
   OR lower(genres::text) LIKE $1 ESCAPE '\'
   OR lower(cast_members::text) LIKE $1 ESCAPE '\'
`, pattern)
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	defer rows.Close()

	out := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan substring match: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate substring matches: %w", err)
	}
	return out, nil
}

func (r *MovieRepository) ListAll(ctx context.Context) ([]domain.Movie, error) {
	rows, err := r.db.QueryContext(ctx, selectMovieColumns+`
FROM movies
`)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	return collectMovies(rows)
}

func (r *MovieRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return count, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(query string) string {
	return likeEscaper.Replace(query)
}

const selectMovieColumns = `
SELECT tmdb_id, title, overview, poster_url, release_year, rating, popularity, min_age, genres, moods, cast_members`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovieRow(row rowScanner) (domain.Movie, error) {
	var movie domain.Movie
	var genresRaw, moodsRaw, castRaw []byte

	err := row.Scan(
		&movie.ID, &movie.Title, &movie.Overview, &movie.PosterURL, &movie.ReleaseYear,
		&movie.Rating, &movie.Popularity, &movie.MinAge, &genresRaw, &moodsRaw, &castRaw,
	)
	if err != nil {
		return domain.Movie{}, err
	}

	if err := json.Unmarshal(genresRaw, &movie.Genres); err != nil {
		return domain.Movie{}, fmt.Errorf("unmarshal genres: %w", err)
	}
	if err := json.Unmarshal(moodsRaw, &movie.Moods); err != nil {
		return domain.Movie{}, fmt.Errorf("unmarshal moods: %w", err)
	}
	if err := json.Unmarshal(castRaw, &movie.Cast); err != nil {
		return domain.Movie{}, fmt.Errorf("unmarshal cast: %w", err)
	}
	return movie, nil
}

func collectMovies(rows *sql.Rows) ([]domain.Movie, error) {
	out := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovieRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		out = append(out, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies: %w", err)
	}
	return out, nil
}

func marshalTagFields(movie *domain.Movie) ([]byte, []byte, []byte, error) {
	genresJSON, err := json.Marshal(emptyIfNil(movie.Genres))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal genres: %w", err)
	}
	moodsJSON, err := json.Marshal(emptyIfNil(movie.Moods))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal moods: %w", err)
	}
	castJSON, err := json.Marshal(emptyIfNil(movie.Cast))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal cast: %w", err)
	}
	return genresJSON, moodsJSON, castJSON, nil
}

func emptyIfNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
