package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillkom/cinerec/internal/core/domain"
)

// LikeRepository persists the (user, movie) like relation. The primary key
// on (user_id, tmdb_id) makes SaveLike idempotent at the store level.
type LikeRepository struct {
	db *sql.DB
}

func NewLikeRepository(db *sql.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

func (r *LikeRepository) SaveLike(ctx context.Context, userID, movieID int64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO watch_history (user_id, tmdb_id, liked_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, tmdb_id) DO NOTHING
`, userID, movieID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

func (r *LikeRepository) DeleteLike(ctx context.Context, userID, movieID int64) error {
	_, err := r.db.ExecContext(ctx, `
DELETE FROM watch_history
WHERE user_id = $1 AND tmdb_id = $2
`, userID, movieID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return nil
}

func (r *LikeRepository) ListLikes(ctx context.Context) ([]domain.Like, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT user_id, tmdb_id
FROM watch_history
`)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Like, 0)
	for rows.Next() {
		var like domain.Like
		if err := rows.Scan(&like.UserID, &like.MovieID); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		out = append(out, like)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate likes: %w", err)
	}
	return out, nil
}
