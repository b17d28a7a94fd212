package stats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookline/bookline-backend/internal/config"
	"github.com/bookline/bookline-backend/internal/domain"
)

// ===========================================================================
// Manual mocks (moq-style with func fields)
// ===========================================================================

type mockAggregateRepo struct {
	BookSummaryFunc    func(ctx context.Context, userID uuid.UUID, year *int) (domain.BookSummaryStats, error)
	ReadingSummaryFunc func(ctx context.Context, userID uuid.UUID, year *int) (domain.ReadingStats, error)
	AvailableYearsFunc func(ctx context.Context, userID uuid.UUID) ([]int, error)
}

func (m *mockAggregateRepo) BookSummary(ctx context.Context, userID uuid.UUID, year *int) (domain.BookSummaryStats, error) {
	if m.BookSummaryFunc != nil {
		return m.BookSummaryFunc(ctx, userID, year)
	}
	return domain.BookSummaryStats{}, nil
}

func (m *mockAggregateRepo) ReadingSummary(ctx context.Context, userID uuid.UUID, year *int) (domain.ReadingStats, error) {
	if m.ReadingSummaryFunc != nil {
		return m.ReadingSummaryFunc(ctx, userID, year)
	}
	return domain.ReadingStats{}, nil
}

func (m *mockAggregateRepo) AvailableYears(ctx context.Context, userID uuid.UUID) ([]int, error) {
	if m.AvailableYearsFunc != nil {
		return m.AvailableYearsFunc(ctx, userID)
	}
	return nil, nil
}

type mockCacheRepo struct {
	GetFunc    func(ctx context.Context, userID uuid.UUID) (domain.CachedStats, error)
	UpsertFunc func(ctx context.Context, userID uuid.UUID, stats domain.CachedStats) error
	DeleteFunc func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockCacheRepo) Get(ctx context.Context, userID uuid.UUID) (domain.CachedStats, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return domain.CachedStats{}, domain.ErrNotFound
}

func (m *mockCacheRepo) Upsert(ctx context.Context, userID uuid.UUID, stats domain.CachedStats) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, userID, stats)
	}
	return nil
}

func (m *mockCacheRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID)
	}
	return nil
}

func newTestService(aggregates *mockAggregateRepo, cache *mockCacheRepo, ttl time.Duration) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, aggregates, cache, config.StatsConfig{CacheTTL: ttl})
}

// ===========================================================================
// Get
// ===========================================================================

func TestGet_CacheHit(t *testing.T) {
	userID := uuid.New()
	cached := domain.CachedStats{
		BookSummary: domain.BookSummaryStats{TotalBooks: 12},
		ComputedAt:  time.Now().UTC(),
	}

	computed := false
	aggregates := &mockAggregateRepo{
		BookSummaryFunc: func(ctx context.Context, _ uuid.UUID, _ *int) (domain.BookSummaryStats, error) {
			computed = true
			return domain.BookSummaryStats{}, nil
		},
	}
	cache := &mockCacheRepo{
		GetFunc: func(ctx context.Context, id uuid.UUID) (domain.CachedStats, error) {
			assert.Equal(t, userID, id)
			return cached, nil
		},
	}

	svc := newTestService(aggregates, cache, 0)
	got, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, int64(12), got.BookSummary.TotalBooks)
	assert.False(t, computed, "cache hit must not recompute")
}

func TestGet_CacheMissRecomputes(t *testing.T) {
	userID := uuid.New()

	aggregates := &mockAggregateRepo{
		BookSummaryFunc: func(ctx context.Context, _ uuid.UUID, year *int) (domain.BookSummaryStats, error) {
			assert.Nil(t, year)
			return domain.BookSummaryStats{TotalBooks: 3}, nil
		},
		ReadingSummaryFunc: func(ctx context.Context, _ uuid.UUID, year *int) (domain.ReadingStats, error) {
			return domain.ReadingStats{BooksAllTime: 2}, nil
		},
	}
	var stored *domain.CachedStats
	cache := &mockCacheRepo{
		UpsertFunc: func(ctx context.Context, _ uuid.UUID, stats domain.CachedStats) error {
			stored = &stats
			return nil
		},
	}

	svc := newTestService(aggregates, cache, 0)
	got, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, int64(3), got.BookSummary.TotalBooks)
	assert.Equal(t, int64(2), got.Reading.BooksAllTime)
	assert.False(t, got.ComputedAt.IsZero())
	require.NotNil(t, stored, "recomputed snapshot must be written back")
	assert.Equal(t, got, *stored)
}

func TestGet_ExpiredSnapshotRecomputes(t *testing.T) {
	userID := uuid.New()
	stale := domain.CachedStats{
		BookSummary: domain.BookSummaryStats{TotalBooks: 1},
		ComputedAt:  time.Now().Add(-2 * time.Hour),
	}

	aggregates := &mockAggregateRepo{
		BookSummaryFunc: func(ctx context.Context, _ uuid.UUID, _ *int) (domain.BookSummaryStats, error) {
			return domain.BookSummaryStats{TotalBooks: 5}, nil
		},
	}
	cache := &mockCacheRepo{
		GetFunc: func(ctx context.Context, _ uuid.UUID) (domain.CachedStats, error) {
			return stale, nil
		},
	}

	svc := newTestService(aggregates, cache, time.Hour)
	got, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.BookSummary.TotalBooks)
}

func TestGet_FreshSnapshotWithinTTL(t *testing.T) {
	userID := uuid.New()
	fresh := domain.CachedStats{
		BookSummary: domain.BookSummaryStats{TotalBooks: 1},
		ComputedAt:  time.Now().Add(-time.Minute),
	}

	cache := &mockCacheRepo{
		GetFunc: func(ctx context.Context, _ uuid.UUID) (domain.CachedStats, error) {
			return fresh, nil
		},
	}

	svc := newTestService(&mockAggregateRepo{}, cache, time.Hour)
	got, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.BookSummary.TotalBooks)
}

func TestGet_ZeroUser(t *testing.T) {
	svc := newTestService(&mockAggregateRepo{}, &mockCacheRepo{}, 0)
	_, err := svc.Get(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ===========================================================================
// Refresh / Invalidate
// ===========================================================================

func TestRefresh_AggregateErrorLeavesCacheAlone(t *testing.T) {
	aggregates := &mockAggregateRepo{
		BookSummaryFunc: func(ctx context.Context, _ uuid.UUID, _ *int) (domain.BookSummaryStats, error) {
			return domain.BookSummaryStats{}, errors.New("query timeout")
		},
	}
	upserted := false
	cache := &mockCacheRepo{
		UpsertFunc: func(ctx context.Context, _ uuid.UUID, _ domain.CachedStats) error {
			upserted = true
			return nil
		},
	}

	svc := newTestService(aggregates, cache, 0)
	_, err := svc.Refresh(context.Background(), uuid.New())
	require.Error(t, err)
	assert.False(t, upserted)
}

type refreshPassKey struct{}

func TestRefresh_ConcurrentCallsKeepOneCoherentRow(t *testing.T) {
	userID := uuid.New()

	// Both aggregate reads of one Refresh pull the same per-call value, so a
	// stored snapshot mixing two calls shows mismatched counters.
	aggregates := &mockAggregateRepo{
		BookSummaryFunc: func(ctx context.Context, _ uuid.UUID, _ *int) (domain.BookSummaryStats, error) {
			return domain.BookSummaryStats{TotalBooks: ctx.Value(refreshPassKey{}).(int64)}, nil
		},
		ReadingSummaryFunc: func(ctx context.Context, _ uuid.UUID, _ *int) (domain.ReadingStats, error) {
			return domain.ReadingStats{BooksAllTime: ctx.Value(refreshPassKey{}).(int64)}, nil
		},
	}

	var mu sync.Mutex
	rows := make(map[uuid.UUID]domain.CachedStats)
	cache := &mockCacheRepo{
		UpsertFunc: func(ctx context.Context, id uuid.UUID, stats domain.CachedStats) error {
			mu.Lock()
			defer mu.Unlock()
			rows[id] = stats
			return nil
		},
	}

	svc := newTestService(aggregates, cache, 0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pass := range []int64{5, 9} {
		wg.Add(1)
		go func(i int, pass int64) {
			defer wg.Done()
			ctx := context.WithValue(context.Background(), refreshPassKey{}, pass)
			_, errs[i] = svc.Refresh(ctx, userID)
		}(i, pass)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "refresh %d", i)
	}

	require.Len(t, rows, 1, "concurrent refreshes must keep one row per user")
	got := rows[userID]
	assert.Equal(t, got.BookSummary.TotalBooks, got.Reading.BooksAllTime,
		"stored snapshot mixes two computations")
	assert.Contains(t, []int64{5, 9}, got.BookSummary.TotalBooks)
}

func TestInvalidate(t *testing.T) {
	userID := uuid.New()
	var deleted []uuid.UUID
	cache := &mockCacheRepo{
		DeleteFunc: func(ctx context.Context, id uuid.UUID) error {
			deleted = append(deleted, id)
			return nil
		},
	}

	svc := newTestService(&mockAggregateRepo{}, cache, 0)
	require.NoError(t, svc.Invalidate(context.Background(), userID))
	assert.Equal(t, []uuid.UUID{userID}, deleted)
}

// ===========================================================================
// Year views
// ===========================================================================

func TestForYear_NotCached(t *testing.T) {
	userID := uuid.New()

	var seenYear *int
	aggregates := &mockAggregateRepo{
		ReadingSummaryFunc: func(ctx context.Context, _ uuid.UUID, year *int) (domain.ReadingStats, error) {
			seenYear = year
			return domain.ReadingStats{BooksAllTime: 4}, nil
		},
	}
	cacheTouched := false
	cache := &mockCacheRepo{
		GetFunc: func(ctx context.Context, _ uuid.UUID) (domain.CachedStats, error) {
			cacheTouched = true
			return domain.CachedStats{}, domain.ErrNotFound
		},
		UpsertFunc: func(ctx context.Context, _ uuid.UUID, _ domain.CachedStats) error {
			cacheTouched = true
			return nil
		},
	}

	svc := newTestService(aggregates, cache, 0)
	got, err := svc.ForYear(context.Background(), userID, 2023)
	require.NoError(t, err)

	require.NotNil(t, seenYear)
	assert.Equal(t, 2023, *seenYear)
	assert.Equal(t, int64(4), got.Reading.BooksAllTime)
	assert.False(t, cacheTouched, "year views bypass the cache")
}

func TestForYear_OutOfRange(t *testing.T) {
	svc := newTestService(&mockAggregateRepo{}, &mockCacheRepo{}, 0)
	_, err := svc.ForYear(context.Background(), uuid.New(), 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAvailableYears(t *testing.T) {
	aggregates := &mockAggregateRepo{
		AvailableYearsFunc: func(ctx context.Context, _ uuid.UUID) ([]int, error) {
			return []int{2024, 2023, 2020}, nil
		},
	}

	svc := newTestService(aggregates, &mockCacheRepo{}, 0)
	years, err := svc.AvailableYears(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2023, 2020}, years)
}
