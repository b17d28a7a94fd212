package timeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline-backend/internal/domain"
)

// Feed scopes.
const (
	ScopeMine   = "mine"
	ScopeGlobal = "global"
)

// ListInput holds the parameters for reading a timeline page.
type ListInput struct {
	Scope  string
	UserID uuid.UUID
	Cursor *string
	Limit  int
}

// Validate checks all fields and collects all errors.
func (i *ListInput) Validate() error {
	var errs []domain.FieldError

	switch i.Scope {
	case ScopeMine, ScopeGlobal:
	default:
		errs = append(errs, domain.FieldError{Field: "scope", Message: "invalid value (allowed: mine, global)"})
	}
	if i.Scope == ScopeMine && i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// ListResult contains one page of timeline events, newest first.
type ListResult struct {
	Events      []domain.TimelineEvent
	HasNextPage bool

	// NextCursor is set when HasNextPage is true; passing it back returns
	// the following page.
	NextCursor *string
}

// List returns one page of the timeline feed. Pagination is keyset-based:
// the cursor pins the page boundary to the last seen (occurred_at, id) pair,
// so events appended between requests never shift or duplicate pages.
func (s *Service) List(ctx context.Context, in ListInput) (*ListResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	cursor, err := decodeCursor(in.Cursor)
	if err != nil {
		return nil, err
	}
	limit := clampLimit(in.Limit, s.cfg.MaxPageSize, s.cfg.DefaultPageSize)

	// Fetch one extra row to detect whether a next page exists.
	var events []domain.TimelineEvent
	if in.Scope == ScopeMine {
		events, err = s.events.ListByUser(ctx, in.UserID, cursor, limit+1)
	} else {
		events, err = s.events.ListGlobal(ctx, cursor, limit+1)
	}
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	result := &ListResult{Events: events}
	if len(events) > limit {
		result.Events = events[:limit]
		result.HasNextPage = true
		last := result.Events[limit-1]
		next := encodeCursor(domain.EventCursor{OccurredAt: last.OccurredAt, ID: last.ID})
		result.NextCursor = &next
	}
	return result, nil
}

// EntityHistory returns every event recorded for one entity, oldest first.
func (s *Service) EntityHistory(ctx context.Context, key domain.EntityKey) ([]domain.TimelineEvent, error) {
	if !key.Type.IsValid() {
		return nil, domain.NewValidationError("entity_type", "invalid value")
	}

	events, err := s.events.ListByEntity(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list entity events: %w", err)
	}
	return events, nil
}

// Cursor wire format: base64url("<occurred_at unix micros>|<event id>").
// Opaque to clients; the encoding may change between releases.

func encodeCursor(c domain.EventCursor) string {
	raw := strconv.FormatInt(c.OccurredAt.UnixMicro(), 10) + "|" + strconv.FormatInt(c.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s *string) (*domain.EventCursor, error) {
	if s == nil || *s == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(*s)
	if err != nil {
		return nil, domain.NewValidationError("cursor", "malformed")
	}
	micros, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, domain.NewValidationError("cursor", "malformed")
	}

	m, err := strconv.ParseInt(micros, 10, 64)
	if err != nil {
		return nil, domain.NewValidationError("cursor", "malformed")
	}
	eventID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, domain.NewValidationError("cursor", "malformed")
	}

	return &domain.EventCursor{OccurredAt: time.UnixMicro(m).UTC(), ID: eventID}, nil
}
