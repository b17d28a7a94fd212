package library

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline-backend/internal/domain"
)

// CreateBook adds a book with its author links and records it on the
// timeline.
func (s *Service) CreateBook(ctx context.Context, in BookInput) (domain.Book, error) {
	if err := in.Validate(); err != nil {
		return domain.Book{}, err
	}

	now := time.Now().UTC()
	var book domain.Book
	err := s.mutate(ctx, in.Actor, func(ctx context.Context) error {
		var err error
		book, err = s.entities.CreateBook(ctx, domain.Book{
			Title:            in.Title,
			PageCount:        in.PageCount,
			YearPublished:    in.YearPublished,
			PrimaryGenreID:   in.PrimaryGenreID,
			SecondaryGenreID: in.SecondaryGenreID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}, in.AuthorIDs)
		if err != nil {
			return err
		}
		return s.record(ctx, in.Actor, bookKey(book.ID), domain.ActionAdded)
	})
	if err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// GetBook returns a book by ID.
func (s *Service) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	return s.entities.GetBook(ctx, id)
}

// UpdateBook replaces a book's fields and author links. Older timeline
// events keep their stored payload until the next rebuild refreshes them.
func (s *Service) UpdateBook(ctx context.Context, id int64, in BookInput) (domain.Book, error) {
	if err := in.Validate(); err != nil {
		return domain.Book{}, err
	}
	if id <= 0 {
		return domain.Book{}, domain.NewValidationError("id", "required")
	}

	var book domain.Book
	err := s.mutate(ctx, in.Actor, func(ctx context.Context) error {
		var err error
		book, err = s.entities.UpdateBook(ctx, domain.Book{
			ID:               id,
			Title:            in.Title,
			PageCount:        in.PageCount,
			YearPublished:    in.YearPublished,
			PrimaryGenreID:   in.PrimaryGenreID,
			SecondaryGenreID: in.SecondaryGenreID,
			UpdatedAt:        time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := s.entities.ReplaceBookAuthors(ctx, id, in.AuthorIDs); err != nil {
			return err
		}
		return s.record(ctx, in.Actor, bookKey(id), domain.ActionUpdated)
	})
	if err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// DeleteBook removes a book. The deletion event is recorded before the row
// goes away; events of the deleted book become orphans handled by the
// rebuilder's orphan policy.
func (s *Service) DeleteBook(ctx context.Context, actor uuid.UUID, id int64) error {
	if actor == uuid.Nil {
		return domain.NewValidationError("actor", "required")
	}
	if id <= 0 {
		return domain.NewValidationError("id", "required")
	}

	return s.mutate(ctx, actor, func(ctx context.Context) error {
		if err := s.record(ctx, actor, bookKey(id), domain.ActionDeleted); err != nil {
			return err
		}
		return s.entities.DeleteBook(ctx, id)
	})
}

func bookKey(id int64) domain.EntityKey {
	return domain.EntityKey{Type: domain.EntityTypeBook, ID: id}
}
