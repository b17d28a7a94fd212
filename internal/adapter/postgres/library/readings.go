package library

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	postgres "github.com/bookline/bookline-backend/internal/adapter/postgres"
	"github.com/bookline/bookline-backend/internal/domain"
)

const readingColumns = "id, user_id, book_id, status, rating, format, started_at, finished_at, created_at, updated_at"

// CreateReading inserts a new reading session.
func (r *Repo) CreateReading(ctx context.Context, reading domain.Reading) (domain.Reading, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	err := q.QueryRow(ctx,
		`INSERT INTO readings (user_id, book_id, status, rating, format, started_at, finished_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		reading.UserID, reading.BookID, string(reading.Status), reading.Rating,
		formatPtr(reading.Format), reading.StartedAt, reading.FinishedAt,
		reading.CreatedAt, reading.UpdatedAt,
	).Scan(&reading.ID)
	if err != nil {
		return domain.Reading{}, postgres.MapError(err, "reading", reading.BookID)
	}

	return reading, nil
}

// GetReading returns a reading by primary key.
func (r *Repo) GetReading(ctx context.Context, id int64) (domain.Reading, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+readingColumns+` FROM readings WHERE id = $1`, id)

	reading, err := scanReading(row)
	if err != nil {
		return domain.Reading{}, postgres.MapError(err, "reading", id)
	}

	return reading, nil
}

// UpdateReading rewrites a reading's mutable fields.
func (r *Repo) UpdateReading(ctx context.Context, reading domain.Reading) (domain.Reading, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx,
		`UPDATE readings
		 SET status = $1, rating = $2, format = $3, started_at = $4, finished_at = $5, updated_at = $6
		 WHERE id = $7
		 RETURNING `+readingColumns,
		string(reading.Status), reading.Rating, formatPtr(reading.Format),
		reading.StartedAt, reading.FinishedAt, reading.UpdatedAt, reading.ID,
	)

	updated, err := scanReading(row)
	if err != nil {
		return domain.Reading{}, postgres.MapError(err, "reading", reading.ID)
	}

	return updated, nil
}

// DeleteReading removes a reading session.
func (r *Repo) DeleteReading(ctx context.Context, id int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, `DELETE FROM readings WHERE id = $1`, id)
	if err != nil {
		return postgres.MapError(err, "reading", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reading %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ShelveBook adds or moves a book on a user's shelf.
func (r *Repo) ShelveBook(ctx context.Context, userBook domain.UserBook) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := q.Exec(ctx,
		`INSERT INTO user_books (user_id, book_id, shelf, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, book_id) DO UPDATE SET shelf = EXCLUDED.shelf`,
		userBook.UserID, userBook.BookID, string(userBook.Shelf), userBook.CreatedAt,
	)
	if err != nil {
		return postgres.MapError(err, "user_book", userBook.BookID)
	}

	return nil
}

// UnshelveBook removes a book from a user's shelf.
func (r *Repo) UnshelveBook(ctx context.Context, userID uuid.UUID, bookID int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx,
		`DELETE FROM user_books WHERE user_id = $1 AND book_id = $2`,
		userID, bookID,
	)
	if err != nil {
		return postgres.MapError(err, "user_book", bookID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user_book %d: %w", bookID, domain.ErrNotFound)
	}

	return nil
}

type readingRow interface {
	Scan(dest ...any) error
}

func scanReading(row readingRow) (domain.Reading, error) {
	var (
		reading domain.Reading
		status  string
		format  *string
	)
	err := row.Scan(
		&reading.ID, &reading.UserID, &reading.BookID, &status, &reading.Rating,
		&format, &reading.StartedAt, &reading.FinishedAt, &reading.CreatedAt, &reading.UpdatedAt,
	)
	if err != nil {
		return domain.Reading{}, err
	}

	reading.Status = domain.ReadingStatus(status)
	if format != nil {
		f := domain.ReadingFormat(*format)
		reading.Format = &f
	}

	return reading, nil
}

func formatPtr(f *domain.ReadingFormat) *string {
	if f == nil {
		return nil
	}
	s := string(*f)
	return &s
}
