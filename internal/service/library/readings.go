package library

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline-backend/internal/domain"
)

// CreateReading starts tracking a book for the acting user. The timeline
// action follows the initial status: "started" for an in-progress reading,
// "finished" or "abandoned" when the reading is logged retroactively.
func (s *Service) CreateReading(ctx context.Context, in ReadingInput) (domain.Reading, error) {
	if err := in.Validate(); err != nil {
		return domain.Reading{}, err
	}

	now := time.Now().UTC()
	reading := domain.Reading{
		UserID:     in.Actor,
		BookID:     in.BookID,
		Status:     in.Status,
		Rating:     in.Rating,
		Format:     in.Format,
		StartedAt:  in.StartedAt,
		FinishedAt: in.FinishedAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyStatusTimes(&reading, now)

	err := s.mutate(ctx, in.Actor, func(ctx context.Context) error {
		var err error
		reading, err = s.entities.CreateReading(ctx, reading)
		if err != nil {
			return err
		}
		return s.record(ctx, in.Actor, readingKey(reading.ID), in.Status.Action())
	})
	if err != nil {
		return domain.Reading{}, err
	}
	return reading, nil
}

// GetReading returns a reading by ID.
func (s *Service) GetReading(ctx context.Context, id int64) (domain.Reading, error) {
	return s.entities.GetReading(ctx, id)
}

// UpdateReading changes a reading. A status change records the action of
// the new status ("finished", "abandoned", "started"); any other change
// records a plain update.
func (s *Service) UpdateReading(ctx context.Context, id int64, in ReadingInput) (domain.Reading, error) {
	if err := in.Validate(); err != nil {
		return domain.Reading{}, err
	}
	if id <= 0 {
		return domain.Reading{}, domain.NewValidationError("id", "required")
	}

	var reading domain.Reading
	err := s.mutate(ctx, in.Actor, func(ctx context.Context) error {
		current, err := s.entities.GetReading(ctx, id)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		next := domain.Reading{
			ID:         id,
			UserID:     current.UserID,
			BookID:     current.BookID,
			Status:     in.Status,
			Rating:     in.Rating,
			Format:     in.Format,
			StartedAt:  in.StartedAt,
			FinishedAt: in.FinishedAt,
			CreatedAt:  current.CreatedAt,
			UpdatedAt:  now,
		}
		applyStatusTimes(&next, now)

		reading, err = s.entities.UpdateReading(ctx, next)
		if err != nil {
			return err
		}

		action := domain.ActionUpdated
		if current.Status != in.Status {
			action = in.Status.Action()
		}
		return s.record(ctx, in.Actor, readingKey(id), action)
	})
	if err != nil {
		return domain.Reading{}, err
	}
	return reading, nil
}

// DeleteReading removes a reading, recording the deletion first.
func (s *Service) DeleteReading(ctx context.Context, actor uuid.UUID, id int64) error {
	if actor == uuid.Nil {
		return domain.NewValidationError("actor", "required")
	}
	if id <= 0 {
		return domain.NewValidationError("id", "required")
	}

	return s.mutate(ctx, actor, func(ctx context.Context) error {
		if err := s.record(ctx, actor, readingKey(id), domain.ActionDeleted); err != nil {
			return err
		}
		return s.entities.DeleteReading(ctx, id)
	})
}

// ShelveBook places a book on one of the user's shelves and records a
// "shelved" event for the book.
func (s *Service) ShelveBook(ctx context.Context, in ShelveInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	return s.mutate(ctx, in.Actor, func(ctx context.Context) error {
		err := s.entities.ShelveBook(ctx, domain.UserBook{
			UserID:    in.Actor,
			BookID:    in.BookID,
			Shelf:     in.Shelf,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		return s.record(ctx, in.Actor, bookKey(in.BookID), domain.ActionShelved)
	})
}

// UnshelveBook takes a book off the user's shelf. Removal is not a timeline
// action; only stats change.
func (s *Service) UnshelveBook(ctx context.Context, actor uuid.UUID, bookID int64) error {
	if actor == uuid.Nil {
		return domain.NewValidationError("actor", "required")
	}
	if bookID <= 0 {
		return domain.NewValidationError("book_id", "required")
	}

	return s.mutate(ctx, actor, func(ctx context.Context) error {
		return s.entities.UnshelveBook(ctx, actor, bookID)
	})
}

// applyStatusTimes fills implied timestamps: a reading that is in progress
// has started, a finished or abandoned one has ended.
func applyStatusTimes(r *domain.Reading, now time.Time) {
	if r.StartedAt == nil && r.Status != domain.ReadingStatusRead {
		r.StartedAt = &now
	}
	if r.FinishedAt == nil && (r.Status == domain.ReadingStatusRead || r.Status == domain.ReadingStatusAbandoned) {
		r.FinishedAt = &now
	}
}

func readingKey(id int64) domain.EntityKey {
	return domain.EntityKey{Type: domain.EntityTypeReading, ID: id}
}
