package library

import (
	"context"
	"fmt"

	postgres "github.com/bookline/bookline-backend/internal/adapter/postgres"
	"github.com/bookline/bookline-backend/internal/domain"
)

// Snapshot resolves the current display snapshot for any tracked entity in a
// single read. This is the read-by-key interface the recorder and rebuilder
// consume; domain.ErrNotFound means the entity no longer exists (an orphaned
// event for the rebuilder).
func (r *Repo) Snapshot(ctx context.Context, key domain.EntityKey) (domain.EntitySnapshot, error) {
	switch key.Type {
	case domain.EntityTypeAuthor:
		author, err := r.GetAuthor(ctx, key.ID)
		if err != nil {
			return nil, err
		}
		return domain.AuthorSnapshot{Name: author.Name}, nil

	case domain.EntityTypeGenre:
		genre, err := r.GetGenre(ctx, key.ID)
		if err != nil {
			return nil, err
		}
		return domain.GenreSnapshot{Name: genre.Name}, nil

	case domain.EntityTypeBook:
		return r.bookSnapshot(ctx, key.ID)

	case domain.EntityTypeReading:
		return r.readingSnapshot(ctx, key.ID)

	default:
		return nil, domain.NewValidationError("entity_type", fmt.Sprintf("unknown entity type %q", key.Type))
	}
}

// bookSnapshot fetches a book with its genre names resolved, then its author
// names. One round trip per concern; the rebuilder amortizes these lookups
// across every event of the same book.
func (r *Repo) bookSnapshot(ctx context.Context, bookID int64) (domain.EntitySnapshot, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var snapshot domain.BookSnapshot
	err := q.QueryRow(ctx,
		`SELECT b.title, b.page_count, g1.name, g2.name
		 FROM books b
		 LEFT JOIN genres g1 ON g1.id = b.primary_genre_id
		 LEFT JOIN genres g2 ON g2.id = b.secondary_genre_id
		 WHERE b.id = $1`,
		bookID,
	).Scan(&snapshot.Title, &snapshot.PageCount, &snapshot.PrimaryGenre, &snapshot.SecondaryGenre)
	if err != nil {
		return nil, postgres.MapError(err, "book", bookID)
	}

	snapshot.AuthorNames, err = r.authorNamesForBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// readingSnapshot fetches a reading joined with its parent book, then the
// book's author names.
func (r *Repo) readingSnapshot(ctx context.Context, readingID int64) (domain.EntitySnapshot, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var (
		snapshot domain.ReadingSnapshot
		status   string
		format   *string
	)
	err := q.QueryRow(ctx,
		`SELECT r.book_id, b.title, r.status, r.rating, r.format
		 FROM readings r
		 JOIN books b ON b.id = r.book_id
		 WHERE r.id = $1`,
		readingID,
	).Scan(&snapshot.BookID, &snapshot.BookTitle, &status, &snapshot.Rating, &format)
	if err != nil {
		return nil, postgres.MapError(err, "reading", readingID)
	}

	snapshot.Status = domain.ReadingStatus(status)
	if format != nil {
		f := domain.ReadingFormat(*format)
		snapshot.Format = &f
	}

	snapshot.AuthorNames, err = r.authorNamesForBook(ctx, snapshot.BookID)
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}
