package library

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline-backend/internal/domain"
)

// CreateGenre adds a genre and records it on the timeline.
func (s *Service) CreateGenre(ctx context.Context, in CreateGenreInput) (domain.Genre, error) {
	if err := in.Validate(); err != nil {
		return domain.Genre{}, err
	}

	now := time.Now().UTC()
	var genre domain.Genre
	err := s.mutate(ctx, in.Actor, func(ctx context.Context) error {
		var err error
		genre, err = s.entities.CreateGenre(ctx, domain.Genre{
			Name:      in.Name,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		return s.record(ctx, in.Actor, genreKey(genre.ID), domain.ActionAdded)
	})
	if err != nil {
		return domain.Genre{}, err
	}
	return genre, nil
}

// GetGenre returns a genre by ID.
func (s *Service) GetGenre(ctx context.Context, id int64) (domain.Genre, error) {
	return s.entities.GetGenre(ctx, id)
}

// UpdateGenre renames a genre.
func (s *Service) UpdateGenre(ctx context.Context, in UpdateGenreInput) (domain.Genre, error) {
	if err := in.Validate(); err != nil {
		return domain.Genre{}, err
	}

	var genre domain.Genre
	err := s.mutate(ctx, in.Actor, func(ctx context.Context) error {
		var err error
		genre, err = s.entities.UpdateGenre(ctx, domain.Genre{
			ID:        in.ID,
			Name:      in.Name,
			UpdatedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		return s.record(ctx, in.Actor, genreKey(in.ID), domain.ActionUpdated)
	})
	if err != nil {
		return domain.Genre{}, err
	}
	return genre, nil
}

// DeleteGenre removes a genre, recording the deletion first so the event
// keeps the genre's last known name.
func (s *Service) DeleteGenre(ctx context.Context, actor uuid.UUID, id int64) error {
	if actor == uuid.Nil {
		return domain.NewValidationError("actor", "required")
	}
	if id <= 0 {
		return domain.NewValidationError("id", "required")
	}

	return s.mutate(ctx, actor, func(ctx context.Context) error {
		if err := s.record(ctx, actor, genreKey(id), domain.ActionDeleted); err != nil {
			return err
		}
		return s.entities.DeleteGenre(ctx, id)
	})
}

func genreKey(id int64) domain.EntityKey {
	return domain.EntityKey{Type: domain.EntityTypeGenre, ID: id}
}
