package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RateLimitRepository struct {
	pool *pgxpool.Pool
}

func NewRateLimitRepository(pool *pgxpool.Pool) *RateLimitRepository {
	return &RateLimitRepository{pool: pool}
}

// Hit records one request for (userID, action) and reports whether it fits in
// the window. The read, compare and write happen in one statement: the upsert
// is skipped by its WHERE clause when the live window is already full, so no
// row comes back.
func (r *RateLimitRepository) Hit(ctx context.Context, userID, action string, maxRequests int, window time.Duration, now time.Time) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`INSERT INTO rate_limits (user_id, action_type, request_count, window_start)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id, action_type) DO UPDATE SET
			request_count = CASE WHEN rate_limits.window_start < $4 THEN 1 ELSE rate_limits.request_count + 1 END,
			window_start = CASE WHEN rate_limits.window_start < $4 THEN EXCLUDED.window_start ELSE rate_limits.window_start END
		WHERE rate_limits.window_start < $4 OR rate_limits.request_count < $5
		RETURNING request_count`,
		userID, action, now, now.Add(-window), maxRequests,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to record rate limit hit: %w", err)
	}
	return true, nil
}
