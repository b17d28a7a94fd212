package library

import (
	"context"
	"fmt"

	postgres "github.com/bookline/bookline-backend/internal/adapter/postgres"
	"github.com/bookline/bookline-backend/internal/domain"
)

// CreateAuthor inserts a new author and returns it with the assigned ID.
func (r *Repo) CreateAuthor(ctx context.Context, author domain.Author) (domain.Author, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	err := q.QueryRow(ctx,
		`INSERT INTO authors (name, created_at, updated_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		author.Name, author.CreatedAt, author.UpdatedAt,
	).Scan(&author.ID)
	if err != nil {
		return domain.Author{}, postgres.MapError(err, "author", author.Name)
	}

	return author, nil
}

// GetAuthor returns an author by primary key.
func (r *Repo) GetAuthor(ctx context.Context, id int64) (domain.Author, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var author domain.Author
	err := q.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM authors WHERE id = $1`, id,
	).Scan(&author.ID, &author.Name, &author.CreatedAt, &author.UpdatedAt)
	if err != nil {
		return domain.Author{}, postgres.MapError(err, "author", id)
	}

	return author, nil
}

// UpdateAuthor renames an author.
func (r *Repo) UpdateAuthor(ctx context.Context, author domain.Author) (domain.Author, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	err := q.QueryRow(ctx,
		`UPDATE authors SET name = $1, updated_at = $2 WHERE id = $3
		 RETURNING id, name, created_at, updated_at`,
		author.Name, author.UpdatedAt, author.ID,
	).Scan(&author.ID, &author.Name, &author.CreatedAt, &author.UpdatedAt)
	if err != nil {
		return domain.Author{}, postgres.MapError(err, "author", author.ID)
	}

	return author, nil
}

// DeleteAuthor removes an author. Returns domain.ErrNotFound when absent.
func (r *Repo) DeleteAuthor(ctx context.Context, id int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return postgres.MapError(err, "author", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("author %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// authorNamesForBook returns the names of the book's contributors with the
// "author" role, ordered by name for stable event payloads.
func (r *Repo) authorNamesForBook(ctx context.Context, bookID int64) ([]string, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx,
		`SELECT a.name
		 FROM book_authors ba
		 JOIN authors a ON a.id = ba.author_id
		 WHERE ba.book_id = $1 AND ba.role = 'author'
		 ORDER BY a.name`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("author names for book %d: %w", bookID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan author name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}
