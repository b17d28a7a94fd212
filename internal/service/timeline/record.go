package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline-backend/internal/domain"
)

// RecordInput holds the parameters for recording a timeline event.
type RecordInput struct {
	// UserID is nil for events without an acting user.
	UserID *uuid.UUID
	Key    domain.EntityKey
	Action domain.EventAction

	// OccurredAt defaults to the current time when zero.
	OccurredAt time.Time
}

// Validate checks all fields and collects all errors.
func (i *RecordInput) Validate() error {
	var errs []domain.FieldError

	if !i.Key.Type.IsValid() {
		errs = append(errs, domain.FieldError{Field: "entity_type", Message: "invalid value"})
	}
	if i.Key.ID <= 0 {
		errs = append(errs, domain.FieldError{Field: "entity_id", Message: "required"})
	}
	if i.Action == "" {
		errs = append(errs, domain.FieldError{Field: "action", Message: "required"})
	}
	if i.UserID != nil && *i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "must not be the zero UUID"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// Record captures the entity's current display state and appends a timeline
// event carrying it. It participates in the caller's transaction, so an event
// is stored if and only if the surrounding entity mutation commits. For
// deletion events the caller must invoke Record before removing the entity
// row, while the snapshot is still readable.
func (s *Service) Record(ctx context.Context, in RecordInput) (domain.TimelineEvent, error) {
	if err := in.Validate(); err != nil {
		return domain.TimelineEvent{}, err
	}

	snap, err := s.snapshots.Snapshot(ctx, in.Key)
	if err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("snapshot %s/%d: %w", in.Key.Type, in.Key.ID, err)
	}

	payload, err := domain.BuildEventPayload(snap)
	if err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("build payload %s/%d: %w", in.Key.Type, in.Key.ID, err)
	}

	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	event := domain.TimelineEvent{
		UserID:      in.UserID,
		EntityType:  in.Key.Type,
		EntityID:    in.Key.ID,
		Action:      in.Action,
		OccurredAt:  occurredAt,
		Title:       payload.Title,
		Details:     payload.Details,
		Genres:      payload.Genres,
		ReadingData: payload.ReadingData,
	}

	stored, err := s.events.Append(ctx, event)
	if err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("append event: %w", err)
	}

	s.log.DebugContext(ctx, "timeline event recorded",
		"event_id", stored.ID,
		"entity_type", stored.EntityType,
		"entity_id", stored.EntityID,
		"action", stored.Action,
	)
	return stored, nil
}

// Forget removes all events referencing an entity. It is the prune side of
// entity deletion; most deletions instead record a final "deleted" event and
// keep history.
func (s *Service) Forget(ctx context.Context, key domain.EntityKey) (int64, error) {
	if !key.Type.IsValid() {
		return 0, domain.NewValidationError("entity_type", "invalid value")
	}

	deleted, err := s.events.DeleteByEntity(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("delete events %s/%d: %w", key.Type, key.ID, err)
	}
	return deleted, nil
}
