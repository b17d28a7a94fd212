package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline-backend/internal/domain"
)

// Get returns the user's all-time stats snapshot, recomputing it first when
// no cached snapshot exists or the cached one is older than the configured
// TTL. Concurrent reads may race to recompute; last write wins and both
// arrive at equivalent snapshots, so the race is harmless.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (domain.CachedStats, error) {
	if userID == uuid.Nil {
		return domain.CachedStats{}, domain.NewValidationError("user_id", "required")
	}

	cached, err := s.cache.Get(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return s.Refresh(ctx, userID)
	case err != nil:
		return domain.CachedStats{}, fmt.Errorf("read cache: %w", err)
	}

	if s.cfg.CacheTTL > 0 && time.Since(cached.ComputedAt) > s.cfg.CacheTTL {
		return s.Refresh(ctx, userID)
	}
	return cached, nil
}

// Refresh recomputes the user's all-time stats from entity state and stores
// the snapshot, replacing any previous one.
func (s *Service) Refresh(ctx context.Context, userID uuid.UUID) (domain.CachedStats, error) {
	if userID == uuid.Nil {
		return domain.CachedStats{}, domain.NewValidationError("user_id", "required")
	}

	started := time.Now()

	books, err := s.aggregates.BookSummary(ctx, userID, nil)
	if err != nil {
		return domain.CachedStats{}, fmt.Errorf("book summary: %w", err)
	}
	reading, err := s.aggregates.ReadingSummary(ctx, userID, nil)
	if err != nil {
		return domain.CachedStats{}, fmt.Errorf("reading summary: %w", err)
	}

	snapshot := domain.CachedStats{
		BookSummary: books,
		Reading:     reading,
		ComputedAt:  time.Now().UTC(),
	}
	if err := s.cache.Upsert(ctx, userID, snapshot); err != nil {
		return domain.CachedStats{}, fmt.Errorf("store cache: %w", err)
	}

	s.log.DebugContext(ctx, "stats recomputed",
		"user_id", userID,
		"duration", time.Since(started),
	)
	return snapshot, nil
}

// Invalidate drops the user's cached snapshot so the next read recomputes
// it. Missing cache rows are not an error.
func (s *Service) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return domain.NewValidationError("user_id", "required")
	}

	if err := s.cache.Delete(ctx, userID); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	return nil
}

// ForYear computes the user's stats scoped to a single calendar year. Year
// views are always computed fresh; only the all-time snapshot is cached.
func (s *Service) ForYear(ctx context.Context, userID uuid.UUID, year int) (domain.CachedStats, error) {
	if userID == uuid.Nil {
		return domain.CachedStats{}, domain.NewValidationError("user_id", "required")
	}
	if year < 1 || year > 9999 {
		return domain.CachedStats{}, domain.NewValidationError("year", "out of range")
	}

	books, err := s.aggregates.BookSummary(ctx, userID, &year)
	if err != nil {
		return domain.CachedStats{}, fmt.Errorf("book summary: %w", err)
	}
	reading, err := s.aggregates.ReadingSummary(ctx, userID, &year)
	if err != nil {
		return domain.CachedStats{}, fmt.Errorf("reading summary: %w", err)
	}

	return domain.CachedStats{
		BookSummary: books,
		Reading:     reading,
		ComputedAt:  time.Now().UTC(),
	}, nil
}

// AvailableYears lists the years for which a year view has data, most
// recent first.
func (s *Service) AvailableYears(ctx context.Context, userID uuid.UUID) ([]int, error) {
	if userID == uuid.Nil {
		return nil, domain.NewValidationError("user_id", "required")
	}

	years, err := s.aggregates.AvailableYears(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("available years: %w", err)
	}
	return years, nil
}
