package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookline/bookline-backend/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedUser creates a user row and returns the filled domain.User.
func SeedUser(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	user := domain.User{
		ID:        uuid.New(),
		Name:      "Test User " + uniqueSuffix(),
		CreatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO users (id, name, created_at) VALUES ($1, $2, $3)`,
		user.ID, user.Name, user.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUser insert: %v", err)
	}

	return user
}

// SeedAuthor creates an author row.
func SeedAuthor(t *testing.T, pool *pgxpool.Pool, name string) domain.Author {
	t.Helper()
	ctx := context.Background()

	if name == "" {
		name = "Author " + uniqueSuffix()
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	author := domain.Author{Name: name, CreatedAt: now, UpdatedAt: now}

	err := pool.QueryRow(ctx,
		`INSERT INTO authors (name, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id`,
		author.Name, author.CreatedAt, author.UpdatedAt,
	).Scan(&author.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedAuthor insert: %v", err)
	}

	return author
}

// SeedGenre creates a genre row.
func SeedGenre(t *testing.T, pool *pgxpool.Pool, name string) domain.Genre {
	t.Helper()
	ctx := context.Background()

	if name == "" {
		name = "Genre " + uniqueSuffix()
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	genre := domain.Genre{Name: name, CreatedAt: now, UpdatedAt: now}

	err := pool.QueryRow(ctx,
		`INSERT INTO genres (name, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id`,
		genre.Name, genre.CreatedAt, genre.UpdatedAt,
	).Scan(&genre.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedGenre insert: %v", err)
	}

	return genre
}

// SeedBook creates a book row, optionally linked to authors.
func SeedBook(t *testing.T, pool *pgxpool.Pool, title string, authorIDs ...int64) domain.Book {
	t.Helper()
	ctx := context.Background()

	if title == "" {
		title = "Book " + uniqueSuffix()
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	book := domain.Book{Title: title, CreatedAt: now, UpdatedAt: now}

	err := pool.QueryRow(ctx,
		`INSERT INTO books (title, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id`,
		book.Title, book.CreatedAt, book.UpdatedAt,
	).Scan(&book.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedBook insert: %v", err)
	}

	for _, authorID := range authorIDs {
		_, err := pool.Exec(ctx,
			`INSERT INTO book_authors (book_id, author_id, role) VALUES ($1, $2, 'author')`,
			book.ID, authorID,
		)
		if err != nil {
			t.Fatalf("testhelper: SeedBook link author: %v", err)
		}
	}

	return book
}

// SeedReading creates a reading row for the given user and book.
func SeedReading(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, bookID int64, status domain.ReadingStatus) domain.Reading {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	reading := domain.Reading{
		UserID:    userID,
		BookID:    bookID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == domain.ReadingStatusRead {
		started := now.AddDate(0, 0, -10)
		reading.StartedAt = &started
		reading.FinishedAt = &now
	}

	err := pool.QueryRow(ctx,
		`INSERT INTO readings (user_id, book_id, status, started_at, finished_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		reading.UserID, reading.BookID, string(reading.Status),
		reading.StartedAt, reading.FinishedAt, reading.CreatedAt, reading.UpdatedAt,
	).Scan(&reading.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedReading insert: %v", err)
	}

	return reading
}
