// Package stats serves per-user reading aggregates. All-time aggregates are
// cached as a single snapshot per user; a read recomputes the snapshot only
// when it is missing or expired, and entity mutations invalidate it.
package stats

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bookline/bookline-backend/internal/config"
	"github.com/bookline/bookline-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type aggregateRepo interface {
	BookSummary(ctx context.Context, userID uuid.UUID, year *int) (domain.BookSummaryStats, error)
	ReadingSummary(ctx context.Context, userID uuid.UUID, year *int) (domain.ReadingStats, error)
	AvailableYears(ctx context.Context, userID uuid.UUID) ([]int, error)
}

type cacheRepo interface {
	Get(ctx context.Context, userID uuid.UUID) (domain.CachedStats, error)
	Upsert(ctx context.Context, userID uuid.UUID, stats domain.CachedStats) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the stats business logic.
type Service struct {
	log        *slog.Logger
	aggregates aggregateRepo
	cache      cacheRepo
	cfg        config.StatsConfig
}

// NewService creates a new Stats service.
func NewService(
	logger *slog.Logger,
	aggregates aggregateRepo,
	cache cacheRepo,
	cfg config.StatsConfig,
) *Service {
	return &Service{
		log:        logger.With("service", "stats"),
		aggregates: aggregates,
		cache:      cache,
		cfg:        cfg,
	}
}
