package library

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline-backend/internal/domain"
)

// CreateAuthorInput holds the parameters for creating an author.
type CreateAuthorInput struct {
	Actor uuid.UUID
	Name  string
}

// Validate checks all fields and collects all errors.
func (i *CreateAuthorInput) Validate() error {
	var errs []domain.FieldError

	errs = appendActorErr(errs, i.Actor)
	errs = appendNameErrs(errs, i.Name)

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// UpdateAuthorInput holds the parameters for renaming an author.
type UpdateAuthorInput struct {
	Actor uuid.UUID
	ID    int64
	Name  string
}

// Validate checks all fields and collects all errors.
func (i *UpdateAuthorInput) Validate() error {
	var errs []domain.FieldError

	errs = appendActorErr(errs, i.Actor)
	errs = appendIDErr(errs, i.ID)
	errs = appendNameErrs(errs, i.Name)

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// CreateGenreInput holds the parameters for creating a genre.
type CreateGenreInput struct {
	Actor uuid.UUID
	Name  string
}

// Validate checks all fields and collects all errors.
func (i *CreateGenreInput) Validate() error {
	var errs []domain.FieldError

	errs = appendActorErr(errs, i.Actor)
	errs = appendNameErrs(errs, i.Name)

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// UpdateGenreInput holds the parameters for renaming a genre.
type UpdateGenreInput struct {
	Actor uuid.UUID
	ID    int64
	Name  string
}

// Validate checks all fields and collects all errors.
func (i *UpdateGenreInput) Validate() error {
	var errs []domain.FieldError

	errs = appendActorErr(errs, i.Actor)
	errs = appendIDErr(errs, i.ID)
	errs = appendNameErrs(errs, i.Name)

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// BookInput holds the parameters shared by book creation and update.
type BookInput struct {
	Actor            uuid.UUID
	Title            string
	AuthorIDs        []int64
	PageCount        *int
	YearPublished    *int
	PrimaryGenreID   *int64
	SecondaryGenreID *int64
}

// Validate checks all fields and collects all errors.
func (i *BookInput) Validate() error {
	var errs []domain.FieldError

	errs = appendActorErr(errs, i.Actor)
	if strings.TrimSpace(i.Title) == "" {
		errs = append(errs, domain.FieldError{Field: "title", Message: "required"})
	} else if len(i.Title) > 500 {
		errs = append(errs, domain.FieldError{Field: "title", Message: "too long (max 500)"})
	}
	if len(i.AuthorIDs) > 20 {
		errs = append(errs, domain.FieldError{Field: "author_ids", Message: "too many (max 20)"})
	}
	for _, id := range i.AuthorIDs {
		if id <= 0 {
			errs = append(errs, domain.FieldError{Field: "author_ids", Message: "must be positive"})
			break
		}
	}
	if i.PageCount != nil && *i.PageCount <= 0 {
		errs = append(errs, domain.FieldError{Field: "page_count", Message: "must be positive"})
	}
	if i.YearPublished != nil && (*i.YearPublished < -3000 || *i.YearPublished > 9999) {
		errs = append(errs, domain.FieldError{Field: "year_published", Message: "out of range"})
	}
	if i.PrimaryGenreID != nil && i.SecondaryGenreID != nil && *i.PrimaryGenreID == *i.SecondaryGenreID {
		errs = append(errs, domain.FieldError{Field: "secondary_genre_id", Message: "must differ from primary"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// ReadingInput holds the parameters shared by reading creation and update.
type ReadingInput struct {
	Actor      uuid.UUID
	BookID     int64
	Status     domain.ReadingStatus
	Rating     *int
	Format     *domain.ReadingFormat
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Validate checks all fields and collects all errors.
func (i *ReadingInput) Validate() error {
	var errs []domain.FieldError

	errs = appendActorErr(errs, i.Actor)
	if i.BookID <= 0 {
		errs = append(errs, domain.FieldError{Field: "book_id", Message: "required"})
	}
	if !i.Status.IsValid() {
		errs = append(errs, domain.FieldError{Field: "status", Message: "invalid value"})
	}
	if i.Rating != nil && (*i.Rating < 1 || *i.Rating > 10) {
		errs = append(errs, domain.FieldError{Field: "rating", Message: "must be between 1 and 10 half-stars"})
	}
	if i.Format != nil && !i.Format.IsValid() {
		errs = append(errs, domain.FieldError{Field: "format", Message: "invalid value"})
	}
	if i.StartedAt != nil && i.FinishedAt != nil && i.FinishedAt.Before(*i.StartedAt) {
		errs = append(errs, domain.FieldError{Field: "finished_at", Message: "must not precede started_at"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// ShelveInput holds the parameters for placing a book on a shelf.
type ShelveInput struct {
	Actor  uuid.UUID
	BookID int64
	Shelf  domain.Shelf
}

// Validate checks all fields and collects all errors.
func (i *ShelveInput) Validate() error {
	var errs []domain.FieldError

	errs = appendActorErr(errs, i.Actor)
	if i.BookID <= 0 {
		errs = append(errs, domain.FieldError{Field: "book_id", Message: "required"})
	}
	if !i.Shelf.IsValid() {
		errs = append(errs, domain.FieldError{Field: "shelf", Message: "invalid value"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

func appendActorErr(errs []domain.FieldError, actor uuid.UUID) []domain.FieldError {
	if actor == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "actor", Message: "required"})
	}
	return errs
}

func appendIDErr(errs []domain.FieldError, id int64) []domain.FieldError {
	if id <= 0 {
		errs = append(errs, domain.FieldError{Field: "id", Message: "required"})
	}
	return errs
}

func appendNameErrs(errs []domain.FieldError, name string) []domain.FieldError {
	if strings.TrimSpace(name) == "" {
		errs = append(errs, domain.FieldError{Field: "name", Message: "required"})
	} else if len(name) > 300 {
		errs = append(errs, domain.FieldError{Field: "name", Message: "too long (max 300)"})
	}
	return errs
}
