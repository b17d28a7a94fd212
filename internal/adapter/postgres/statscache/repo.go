// Package statscache implements the per-user computed statistics cache using
// PostgreSQL. The table holds at most one row per user; every write replaces
// the row wholesale.
package statscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/bookline/bookline-backend/internal/adapter/postgres"
	"github.com/bookline/bookline-backend/internal/domain"
)

// Repo provides stats cache persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new stats cache repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Get returns the cached stats for a user.
// Returns domain.ErrNotFound when no row exists.
func (r *Repo) Get(ctx context.Context, userID uuid.UUID) (domain.CachedStats, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var (
		data       []byte
		computedAt time.Time
	)
	err := q.QueryRow(ctx,
		`SELECT data, computed_at FROM stats_cache WHERE user_id = $1`, userID,
	).Scan(&data, &computedAt)
	if err != nil {
		return domain.CachedStats{}, postgres.MapError(err, "stats_cache", userID)
	}

	var stats domain.CachedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return domain.CachedStats{}, fmt.Errorf("stats_cache %s unmarshal: %w", userID, err)
	}
	stats.ComputedAt = computedAt

	return stats, nil
}

// Upsert replaces the user's cached stats. The insert-or-update is a single
// atomic statement keyed by user_id, so concurrent refreshes resolve to
// last-write-wins and the row count per user never exceeds one.
func (r *Repo) Upsert(ctx context.Context, userID uuid.UUID, stats domain.CachedStats) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("stats_cache %s marshal: %w", userID, err)
	}

	_, err = q.Exec(ctx,
		`INSERT INTO stats_cache (user_id, data, computed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		     SET data = EXCLUDED.data, computed_at = EXCLUDED.computed_at`,
		userID, data, stats.ComputedAt,
	)
	if err != nil {
		return postgres.MapError(err, "stats_cache", userID)
	}

	return nil
}

// Delete removes the user's cached row, forcing recomputation on next read.
// Deleting an absent row is not an error.
func (r *Repo) Delete(ctx context.Context, userID uuid.UUID) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := q.Exec(ctx, `DELETE FROM stats_cache WHERE user_id = $1`, userID); err != nil {
		return postgres.MapError(err, "stats_cache", userID)
	}

	return nil
}

// Count returns the number of cached rows for a user. Exists to make the
// one-row-per-user invariant directly observable in tests.
func (r *Repo) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM stats_cache WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count stats_cache: %w", err)
	}

	return count, nil
}
