package statscache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookline/bookline-backend/internal/adapter/postgres/statscache"
	"github.com/bookline/bookline-backend/internal/adapter/postgres/testhelper"
	"github.com/bookline/bookline-backend/internal/domain"
)

// newRepo sets up a test DB and returns a ready Repo + pool.
func newRepo(t *testing.T) (*statscache.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return statscache.New(pool), pool
}

func sampleStats(totalBooks int64, computedAt time.Time) domain.CachedStats {
	return domain.CachedStats{
		BookSummary: domain.BookSummaryStats{
			TotalBooks:  totalBooks,
			GenreCounts: []domain.NameCount{{Name: "Fantasy", Count: 3}},
		},
		Reading: domain.ReadingStats{
			BooksAllTime: totalBooks,
		},
		ComputedAt: computedAt,
	}
}

func TestRepo_Get_Missing(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)

	user := testhelper.SeedUser(t, pool)

	_, err := repo.Get(context.Background(), user.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get on empty cache: got %v, want ErrNotFound", err)
	}
}

func TestRepo_Upsert_AndGet(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	computedAt := time.Now().UTC().Truncate(time.Microsecond)

	if err := repo.Upsert(ctx, user.ID, sampleStats(7, computedAt)); err != nil {
		t.Fatalf("Upsert: unexpected error: %v", err)
	}

	got, err := repo.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("Get: unexpected error: %v", err)
	}
	if got.BookSummary.TotalBooks != 7 {
		t.Errorf("TotalBooks: got %d, want 7", got.BookSummary.TotalBooks)
	}
	if len(got.BookSummary.GenreCounts) != 1 || got.BookSummary.GenreCounts[0].Name != "Fantasy" {
		t.Errorf("GenreCounts mismatch: %+v", got.BookSummary.GenreCounts)
	}
	if !got.ComputedAt.Equal(computedAt) {
		t.Errorf("ComputedAt: got %v, want %v", got.ComputedAt, computedAt)
	}
}

func TestRepo_Upsert_ReplacesExistingRow(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	first := time.Now().UTC().Truncate(time.Microsecond)
	second := first.Add(time.Minute)

	if err := repo.Upsert(ctx, user.ID, sampleStats(1, first)); err != nil {
		t.Fatalf("first Upsert: unexpected error: %v", err)
	}
	if err := repo.Upsert(ctx, user.ID, sampleStats(2, second)); err != nil {
		t.Fatalf("second Upsert: unexpected error: %v", err)
	}

	got, err := repo.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("Get: unexpected error: %v", err)
	}
	if got.BookSummary.TotalBooks != 2 {
		t.Errorf("TotalBooks: got %d, want 2 (last write wins)", got.BookSummary.TotalBooks)
	}
	if !got.ComputedAt.Equal(second) {
		t.Errorf("ComputedAt: got %v, want %v", got.ComputedAt, second)
	}

	count, err := repo.Count(ctx, user.ID)
	if err != nil {
		t.Fatalf("Count: unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("row count: got %d, want 1", count)
	}
}

func TestRepo_Upsert_ConcurrentWritersKeepOneRow(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)
	base := time.Now().UTC().Truncate(time.Microsecond)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Upsert(ctx, user.ID, sampleStats(int64(i+1), base.Add(time.Duration(i)*time.Second)))
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d: unexpected error: %v", i, err)
		}
	}

	count, err := repo.Count(ctx, user.ID)
	if err != nil {
		t.Fatalf("Count: unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("row count after concurrent upserts: got %d, want 1", count)
	}

	got, err := repo.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("Get: unexpected error: %v", err)
	}
	// sampleStats sets both counters from the same value, so a surviving row
	// that mixed two writers would fail this check.
	if got.BookSummary.TotalBooks != got.Reading.BooksAllTime {
		t.Errorf("row mixes writers: TotalBooks=%d BooksAllTime=%d",
			got.BookSummary.TotalBooks, got.Reading.BooksAllTime)
	}
}

func TestRepo_Delete(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool)

	// Deleting an absent row succeeds.
	if err := repo.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete on empty cache: unexpected error: %v", err)
	}

	if err := repo.Upsert(ctx, user.ID, sampleStats(3, time.Now().UTC())); err != nil {
		t.Fatalf("Upsert: unexpected error: %v", err)
	}
	if err := repo.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete: unexpected error: %v", err)
	}

	if _, err := repo.Get(ctx, user.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get after delete: got %v, want ErrNotFound", err)
	}
}
