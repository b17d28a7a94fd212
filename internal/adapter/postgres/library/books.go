package library

import (
	"context"
	"fmt"

	postgres "github.com/bookline/bookline-backend/internal/adapter/postgres"
	"github.com/bookline/bookline-backend/internal/domain"
)

const bookColumns = "id, title, page_count, year_published, primary_genre_id, secondary_genre_id, created_at, updated_at"

// CreateBook inserts a book and its author links. Must run inside a
// transaction when author links are present so the links never land without
// the book.
func (r *Repo) CreateBook(ctx context.Context, book domain.Book, authorIDs []int64) (domain.Book, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	err := q.QueryRow(ctx,
		`INSERT INTO books (title, page_count, year_published, primary_genre_id, secondary_genre_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		book.Title, book.PageCount, book.YearPublished,
		book.PrimaryGenreID, book.SecondaryGenreID, book.CreatedAt, book.UpdatedAt,
	).Scan(&book.ID)
	if err != nil {
		return domain.Book{}, postgres.MapError(err, "book", book.Title)
	}

	for _, authorID := range authorIDs {
		if _, err := q.Exec(ctx,
			`INSERT INTO book_authors (book_id, author_id, role) VALUES ($1, $2, 'author')`,
			book.ID, authorID,
		); err != nil {
			return domain.Book{}, postgres.MapError(err, "book_author", authorID)
		}
	}

	return book, nil
}

// GetBook returns a book by primary key.
func (r *Repo) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)

	book, err := scanBook(row)
	if err != nil {
		return domain.Book{}, postgres.MapError(err, "book", id)
	}

	return book, nil
}

// UpdateBook rewrites a book's mutable fields.
func (r *Repo) UpdateBook(ctx context.Context, book domain.Book) (domain.Book, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx,
		`UPDATE books
		 SET title = $1, page_count = $2, year_published = $3,
		     primary_genre_id = $4, secondary_genre_id = $5, updated_at = $6
		 WHERE id = $7
		 RETURNING `+bookColumns,
		book.Title, book.PageCount, book.YearPublished,
		book.PrimaryGenreID, book.SecondaryGenreID, book.UpdatedAt, book.ID,
	)

	updated, err := scanBook(row)
	if err != nil {
		return domain.Book{}, postgres.MapError(err, "book", book.ID)
	}

	return updated, nil
}

// DeleteBook removes a book; author links and readings cascade.
func (r *Repo) DeleteBook(ctx context.Context, id int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return postgres.MapError(err, "book", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("book %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ReplaceBookAuthors rewrites a book's author links.
func (r *Repo) ReplaceBookAuthors(ctx context.Context, bookID int64, authorIDs []int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := q.Exec(ctx, `DELETE FROM book_authors WHERE book_id = $1`, bookID); err != nil {
		return postgres.MapError(err, "book_author", bookID)
	}
	for _, authorID := range authorIDs {
		if _, err := q.Exec(ctx,
			`INSERT INTO book_authors (book_id, author_id, role) VALUES ($1, $2, 'author')`,
			bookID, authorID,
		); err != nil {
			return postgres.MapError(err, "book_author", authorID)
		}
	}

	return nil
}

type bookRow interface {
	Scan(dest ...any) error
}

func scanBook(row bookRow) (domain.Book, error) {
	var book domain.Book
	err := row.Scan(
		&book.ID, &book.Title, &book.PageCount, &book.YearPublished,
		&book.PrimaryGenreID, &book.SecondaryGenreID, &book.CreatedAt, &book.UpdatedAt,
	)
	return book, err
}
