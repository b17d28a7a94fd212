package library

import (
	"context"
	"fmt"

	postgres "github.com/bookline/bookline-backend/internal/adapter/postgres"
	"github.com/bookline/bookline-backend/internal/domain"
)

// CreateGenre inserts a new genre and returns it with the assigned ID.
// Genre names are unique; duplicates map to domain.ErrAlreadyExists.
func (r *Repo) CreateGenre(ctx context.Context, genre domain.Genre) (domain.Genre, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	err := q.QueryRow(ctx,
		`INSERT INTO genres (name, created_at, updated_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		genre.Name, genre.CreatedAt, genre.UpdatedAt,
	).Scan(&genre.ID)
	if err != nil {
		return domain.Genre{}, postgres.MapError(err, "genre", genre.Name)
	}

	return genre, nil
}

// GetGenre returns a genre by primary key.
func (r *Repo) GetGenre(ctx context.Context, id int64) (domain.Genre, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var genre domain.Genre
	err := q.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM genres WHERE id = $1`, id,
	).Scan(&genre.ID, &genre.Name, &genre.CreatedAt, &genre.UpdatedAt)
	if err != nil {
		return domain.Genre{}, postgres.MapError(err, "genre", id)
	}

	return genre, nil
}

// UpdateGenre renames a genre.
func (r *Repo) UpdateGenre(ctx context.Context, genre domain.Genre) (domain.Genre, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	err := q.QueryRow(ctx,
		`UPDATE genres SET name = $1, updated_at = $2 WHERE id = $3
		 RETURNING id, name, created_at, updated_at`,
		genre.Name, genre.UpdatedAt, genre.ID,
	).Scan(&genre.ID, &genre.Name, &genre.CreatedAt, &genre.UpdatedAt)
	if err != nil {
		return domain.Genre{}, postgres.MapError(err, "genre", genre.ID)
	}

	return genre, nil
}

// DeleteGenre removes a genre. Books referencing it fall back to NULL via the
// foreign key, so their snapshots lose the genre on the next rebuild.
func (r *Repo) DeleteGenre(ctx context.Context, id int64) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, `DELETE FROM genres WHERE id = $1`, id)
	if err != nil {
		return postgres.MapError(err, "genre", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("genre %d: %w", id, domain.ErrNotFound)
	}

	return nil
}
