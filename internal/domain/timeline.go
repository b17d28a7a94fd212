package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimelineEvent is one recorded action on one tracked entity.
//
// ID, EntityType, EntityID, Action, and OccurredAt are set once at append time
// and never change. Title, Details, Genres, and ReadingData are a denormalized
// display snapshot and may be rewritten by the snapshot rebuilder when the
// underlying entity changes.
type TimelineEvent struct {
	ID         int64
	UserID     *uuid.UUID
	EntityType EntityType
	EntityID   int64
	Action     EventAction
	OccurredAt time.Time

	Title       string
	Details     []EventDetail
	Genres      []string
	ReadingData *ReadingData
}

// EventCursor is the keyset pagination position within a timeline listing:
// the (occurred_at, id) pair of the last event already seen. Unlike row
// offsets, concurrent inserts never shift or duplicate page boundaries.
type EventCursor struct {
	OccurredAt time.Time
	ID         int64
}

// EntityKey identifies one tracked entity across the timeline store.
type EntityKey struct {
	Type EntityType
	ID   int64
}

// EventDetail is one display-ready label/value pair inside an event payload.
type EventDetail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ReadingData is the reading-specific slice of an event payload, kept for
// quick reference without a join back to the readings table.
type ReadingData struct {
	BookID int64  `json:"book_id"`
	Rating *int   `json:"rating"`
	Status string `json:"status"`
}

// EventPayload is the refreshable part of a timeline event, derived from an
// entity snapshot both at record time and during rebuilds.
type EventPayload struct {
	Title       string
	Details     []EventDetail
	Genres      []string
	ReadingData *ReadingData
}

// EntitySnapshot is the tagged union of per-entity-type display state. The
// recorder and rebuilder dispatch on EntityType to build the right payload.
type EntitySnapshot interface {
	EntityType() EntityType
	payload() (EventPayload, error)
}

// AuthorSnapshot is the display state of an author.
type AuthorSnapshot struct {
	Name string
}

func (AuthorSnapshot) EntityType() EntityType { return EntityTypeAuthor }

func (s AuthorSnapshot) payload() (EventPayload, error) {
	if strings.TrimSpace(s.Name) == "" {
		return EventPayload{}, NewValidationError("name", "author name is required")
	}
	return EventPayload{Title: s.Name}, nil
}

// GenreSnapshot is the display state of a genre.
type GenreSnapshot struct {
	Name string
}

func (GenreSnapshot) EntityType() EntityType { return EntityTypeGenre }

func (s GenreSnapshot) payload() (EventPayload, error) {
	if strings.TrimSpace(s.Name) == "" {
		return EventPayload{}, NewValidationError("name", "genre name is required")
	}
	return EventPayload{Title: s.Name}, nil
}

// BookSnapshot is the display state of a book, with author and genre names
// already resolved.
type BookSnapshot struct {
	Title          string
	AuthorNames    []string
	PrimaryGenre   *string
	SecondaryGenre *string
	PageCount      *int
}

func (BookSnapshot) EntityType() EntityType { return EntityTypeBook }

func (s BookSnapshot) payload() (EventPayload, error) {
	if strings.TrimSpace(s.Title) == "" {
		return EventPayload{}, NewValidationError("title", "book title is required")
	}

	details := []EventDetail{authorDetail(s.AuthorNames)}

	var genres []string
	for _, g := range []*string{s.PrimaryGenre, s.SecondaryGenre} {
		if g != nil && *g != "" {
			genres = append(genres, *g)
		}
	}
	if len(genres) > 0 {
		details = append(details, EventDetail{Label: "Genres", Value: strings.Join(genres, ", ")})
	}
	if s.PageCount != nil {
		details = append(details, EventDetail{Label: "Pages", Value: fmt.Sprintf("%d", *s.PageCount)})
	}

	return EventPayload{Title: s.Title, Details: details, Genres: genres}, nil
}

// ReadingSnapshot is the display state of a reading session, with the parent
// book title and author names already resolved.
type ReadingSnapshot struct {
	BookID      int64
	BookTitle   string
	AuthorNames []string
	Status      ReadingStatus
	Rating      *int
	Format      *ReadingFormat
}

func (ReadingSnapshot) EntityType() EntityType { return EntityTypeReading }

func (s ReadingSnapshot) payload() (EventPayload, error) {
	if strings.TrimSpace(s.BookTitle) == "" {
		return EventPayload{}, NewValidationError("book_title", "parent book title is required")
	}
	if !s.Status.IsValid() {
		return EventPayload{}, NewValidationError("status", fmt.Sprintf("unknown reading status %q", s.Status))
	}

	details := []EventDetail{authorDetail(s.AuthorNames)}
	if s.Format != nil {
		details = append(details, EventDetail{Label: "Format", Value: s.Format.DisplayLabel()})
	}
	if s.Rating != nil {
		details = append(details, EventDetail{Label: "Rating", Value: FormatRating(*s.Rating)})
	}

	return EventPayload{
		Title:   s.BookTitle,
		Details: details,
		ReadingData: &ReadingData{
			BookID: s.BookID,
			Rating: s.Rating,
			Status: string(s.Status),
		},
	}, nil
}

// BuildEventPayload derives the denormalized payload for a snapshot.
// Returns *ValidationError when required fields for the entity type are absent.
func BuildEventPayload(snapshot EntitySnapshot) (EventPayload, error) {
	if snapshot == nil {
		return EventPayload{}, NewValidationError("snapshot", "entity snapshot is required")
	}
	return snapshot.payload()
}

// authorDetail joins author names into a single display detail.
// Books without a known author render as "Unknown".
func authorDetail(names []string) EventDetail {
	value := "Unknown"
	if len(names) > 0 {
		value = strings.Join(names, ", ")
	}
	return EventDetail{Label: "Author", Value: value}
}

// FormatRating renders a half-star rating stored as an integer number of
// half-stars (e.g. 7 -> "3.5").
func FormatRating(halfStars int) string {
	if halfStars%2 == 0 {
		return fmt.Sprintf("%d", halfStars/2)
	}
	return fmt.Sprintf("%.1f", float64(halfStars)/2)
}
