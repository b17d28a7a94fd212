package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookline/bookline-backend/internal/adapter/postgres"
	"github.com/bookline/bookline-backend/internal/adapter/postgres/testhelper"
)

// bookExists checks whether a book row with the given title exists.
func bookExists(t *testing.T, pool *pgxpool.Pool, title string) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(
		context.Background(),
		`SELECT EXISTS(SELECT 1 FROM books WHERE title = $1)`,
		title,
	).Scan(&exists)
	if err != nil {
		t.Fatalf("bookExists query: %v", err)
	}
	return exists
}

// eventCount returns the total number of timeline events.
func eventCount(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM timeline_events`).Scan(&n); err != nil {
		t.Fatalf("eventCount query: %v", err)
	}
	return n
}

func TestRunInTx_Commit(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	title := "commit-" + uuid.NewString()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, pool)
		_, err := q.Exec(ctx,
			`INSERT INTO books (title, created_at, updated_at) VALUES ($1, now(), now())`,
			title,
		)
		return err
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}

	if !bookExists(t, pool, title) {
		t.Fatal("expected book to exist after committed transaction")
	}
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	title := "rollback-" + uuid.NewString()
	sentinel := errors.New("business logic error")
	before := eventCount(t, pool)

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, pool)

		var bookID int64
		if scanErr := q.QueryRow(ctx,
			`INSERT INTO books (title, created_at, updated_at) VALUES ($1, now(), now()) RETURNING id`,
			title,
		).Scan(&bookID); scanErr != nil {
			t.Fatalf("insert book inside tx failed: %v", scanErr)
		}

		if _, execErr := q.Exec(ctx,
			`INSERT INTO timeline_events (entity_type, entity_id, action, occurred_at, title)
			 VALUES ('book', $1, 'added', $2, $3)`,
			bookID, time.Now().UTC(), title,
		); execErr != nil {
			t.Fatalf("insert event inside tx failed: %v", execErr)
		}

		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}

	if bookExists(t, pool, title) {
		t.Fatal("expected book NOT to exist after rolled-back transaction")
	}
	if after := eventCount(t, pool); after != before {
		t.Fatalf("timeline event count changed across rollback: before=%d after=%d", before, after)
	}
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	title := "panic-" + uuid.NewString()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic to be re-raised")
		}
		if r != "test panic" {
			t.Fatalf("expected panic value %q, got %v", "test panic", r)
		}

		if bookExists(t, pool, title) {
			t.Fatal("expected book NOT to exist after panic-rolled-back transaction")
		}
	}()

	_ = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, pool)
		_, err := q.Exec(ctx,
			`INSERT INTO books (title, created_at, updated_at) VALUES ($1, now(), now())`,
			title,
		)
		if err != nil {
			t.Fatalf("insert inside tx failed: %v", err)
		}
		panic("test panic")
	})
}

func TestRunInTx_QuerierFromCtx_UsesTx(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	title := "ctx-" + uuid.NewString()

	// Insert inside a transaction, then verify it's visible within the same tx
	// but NOT outside until commit.
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, pool)
		if _, err := q.Exec(ctx,
			`INSERT INTO books (title, created_at, updated_at) VALUES ($1, now(), now())`,
			title,
		); err != nil {
			return err
		}

		// Visible within the transaction.
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE title = $1)`, title).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			t.Error("insert not visible inside its own transaction")
		}

		// Not visible to the pool (read committed, separate connection).
		if bookExists(t, pool, title) {
			t.Error("uncommitted insert visible outside the transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}

	if !bookExists(t, pool, title) {
		t.Fatal("expected book to exist after commit")
	}
}
