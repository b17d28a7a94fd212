package library

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline-backend/internal/domain"
)

// CreateAuthor adds an author and records it on the timeline.
func (s *Service) CreateAuthor(ctx context.Context, in CreateAuthorInput) (domain.Author, error) {
	if err := in.Validate(); err != nil {
		return domain.Author{}, err
	}

	now := time.Now().UTC()
	var author domain.Author
	err := s.mutate(ctx, in.Actor, func(ctx context.Context) error {
		var err error
		author, err = s.entities.CreateAuthor(ctx, domain.Author{
			Name:      in.Name,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		return s.record(ctx, in.Actor, authorKey(author.ID), domain.ActionAdded)
	})
	if err != nil {
		return domain.Author{}, err
	}
	return author, nil
}

// GetAuthor returns an author by ID.
func (s *Service) GetAuthor(ctx context.Context, id int64) (domain.Author, error) {
	return s.entities.GetAuthor(ctx, id)
}

// UpdateAuthor renames an author. The timeline rebuilder later refreshes
// older events that still carry the previous name.
func (s *Service) UpdateAuthor(ctx context.Context, in UpdateAuthorInput) (domain.Author, error) {
	if err := in.Validate(); err != nil {
		return domain.Author{}, err
	}

	var author domain.Author
	err := s.mutate(ctx, in.Actor, func(ctx context.Context) error {
		var err error
		author, err = s.entities.UpdateAuthor(ctx, domain.Author{
			ID:        in.ID,
			Name:      in.Name,
			UpdatedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		return s.record(ctx, in.Actor, authorKey(in.ID), domain.ActionUpdated)
	})
	if err != nil {
		return domain.Author{}, err
	}
	return author, nil
}

// DeleteAuthor removes an author. The deletion event is recorded before the
// row goes away, so the timeline keeps the author's last known name.
func (s *Service) DeleteAuthor(ctx context.Context, actor uuid.UUID, id int64) error {
	if actor == uuid.Nil {
		return domain.NewValidationError("actor", "required")
	}
	if id <= 0 {
		return domain.NewValidationError("id", "required")
	}

	return s.mutate(ctx, actor, func(ctx context.Context) error {
		if err := s.record(ctx, actor, authorKey(id), domain.ActionDeleted); err != nil {
			return err
		}
		return s.entities.DeleteAuthor(ctx, id)
	})
}

func authorKey(id int64) domain.EntityKey {
	return domain.EntityKey{Type: domain.EntityTypeAuthor, ID: id}
}
