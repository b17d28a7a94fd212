package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline-backend/internal/domain"
	"github.com/bookline/bookline-backend/internal/service/library"
	"github.com/bookline/bookline-backend/pkg/ctxutil"
)

// libraryService defines the minimal interface needed by LibraryHandler.
type libraryService interface {
	CreateAuthor(ctx context.Context, in library.CreateAuthorInput) (domain.Author, error)
	GetAuthor(ctx context.Context, id int64) (domain.Author, error)
	UpdateAuthor(ctx context.Context, in library.UpdateAuthorInput) (domain.Author, error)
	DeleteAuthor(ctx context.Context, actor uuid.UUID, id int64) error

	CreateGenre(ctx context.Context, in library.CreateGenreInput) (domain.Genre, error)
	GetGenre(ctx context.Context, id int64) (domain.Genre, error)
	UpdateGenre(ctx context.Context, in library.UpdateGenreInput) (domain.Genre, error)
	DeleteGenre(ctx context.Context, actor uuid.UUID, id int64) error

	CreateBook(ctx context.Context, in library.BookInput) (domain.Book, error)
	GetBook(ctx context.Context, id int64) (domain.Book, error)
	UpdateBook(ctx context.Context, id int64, in library.BookInput) (domain.Book, error)
	DeleteBook(ctx context.Context, actor uuid.UUID, id int64) error

	CreateReading(ctx context.Context, in library.ReadingInput) (domain.Reading, error)
	GetReading(ctx context.Context, id int64) (domain.Reading, error)
	UpdateReading(ctx context.Context, id int64, in library.ReadingInput) (domain.Reading, error)
	DeleteReading(ctx context.Context, actor uuid.UUID, id int64) error

	ShelveBook(ctx context.Context, in library.ShelveInput) error
	UnshelveBook(ctx context.Context, actor uuid.UUID, bookID int64) error
}

// LibraryHandler serves catalog REST endpoints.
type LibraryHandler struct {
	svc libraryService
	log *slog.Logger
}

// NewLibraryHandler creates a LibraryHandler.
func NewLibraryHandler(svc libraryService, logger *slog.Logger) *LibraryHandler {
	return &LibraryHandler{svc: svc, log: logger.With("handler", "library")}
}

// requireUser resolves the authenticated user or writes a 401.
func (h *LibraryHandler) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
	}
	return userID, ok
}

// ---------------------------------------------------------------------------
// Authors
// ---------------------------------------------------------------------------

type nameRequest struct {
	Name string `json:"name"`
}

// CreateAuthor handles POST /api/authors.
func (h *LibraryHandler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	author, err := h.svc.CreateAuthor(r.Context(), library.CreateAuthorInput{Actor: actor, Name: req.Name})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, author)
}

// GetAuthor handles GET /api/authors/{id}.
func (h *LibraryHandler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	author, err := h.svc.GetAuthor(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

// UpdateAuthor handles PUT /api/authors/{id}.
func (h *LibraryHandler) UpdateAuthor(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	author, err := h.svc.UpdateAuthor(r.Context(), library.UpdateAuthorInput{Actor: actor, ID: id, Name: req.Name})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

// DeleteAuthor handles DELETE /api/authors/{id}.
func (h *LibraryHandler) DeleteAuthor(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.svc.DeleteAuthor(r.Context(), actor, id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Genres
// ---------------------------------------------------------------------------

// CreateGenre handles POST /api/genres.
func (h *LibraryHandler) CreateGenre(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	genre, err := h.svc.CreateGenre(r.Context(), library.CreateGenreInput{Actor: actor, Name: req.Name})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, genre)
}

// GetGenre handles GET /api/genres/{id}.
func (h *LibraryHandler) GetGenre(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	genre, err := h.svc.GetGenre(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, genre)
}

// UpdateGenre handles PUT /api/genres/{id}.
func (h *LibraryHandler) UpdateGenre(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	genre, err := h.svc.UpdateGenre(r.Context(), library.UpdateGenreInput{Actor: actor, ID: id, Name: req.Name})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, genre)
}

// DeleteGenre handles DELETE /api/genres/{id}.
func (h *LibraryHandler) DeleteGenre(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.svc.DeleteGenre(r.Context(), actor, id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

type bookRequest struct {
	Title            string  `json:"title"`
	AuthorIDs        []int64 `json:"author_ids"`
	PageCount        *int    `json:"page_count"`
	YearPublished    *int    `json:"year_published"`
	PrimaryGenreID   *int64  `json:"primary_genre_id"`
	SecondaryGenreID *int64  `json:"secondary_genre_id"`
}

func (req bookRequest) toInput(actor uuid.UUID) library.BookInput {
	return library.BookInput{
		Actor:            actor,
		Title:            req.Title,
		AuthorIDs:        req.AuthorIDs,
		PageCount:        req.PageCount,
		YearPublished:    req.YearPublished,
		PrimaryGenreID:   req.PrimaryGenreID,
		SecondaryGenreID: req.SecondaryGenreID,
	}
}

// CreateBook handles POST /api/books.
func (h *LibraryHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	book, err := h.svc.CreateBook(r.Context(), req.toInput(actor))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// GetBook handles GET /api/books/{id}.
func (h *LibraryHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	book, err := h.svc.GetBook(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// UpdateBook handles PUT /api/books/{id}.
func (h *LibraryHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	book, err := h.svc.UpdateBook(r.Context(), id, req.toInput(actor))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// DeleteBook handles DELETE /api/books/{id}.
func (h *LibraryHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.svc.DeleteBook(r.Context(), actor, id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Readings
// ---------------------------------------------------------------------------

type readingRequest struct {
	BookID     int64      `json:"book_id"`
	Status     string     `json:"status"`
	Rating     *int       `json:"rating"`
	Format     *string    `json:"format"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

func (req readingRequest) toInput(actor uuid.UUID) library.ReadingInput {
	in := library.ReadingInput{
		Actor:      actor,
		BookID:     req.BookID,
		Status:     domain.ReadingStatus(req.Status),
		Rating:     req.Rating,
		StartedAt:  req.StartedAt,
		FinishedAt: req.FinishedAt,
	}
	if req.Format != nil {
		f := domain.ReadingFormat(*req.Format)
		in.Format = &f
	}
	return in
}

// CreateReading handles POST /api/readings.
func (h *LibraryHandler) CreateReading(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req readingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	reading, err := h.svc.CreateReading(r.Context(), req.toInput(actor))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

// GetReading handles GET /api/readings/{id}.
func (h *LibraryHandler) GetReading(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	reading, err := h.svc.GetReading(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

// UpdateReading handles PUT /api/readings/{id}.
func (h *LibraryHandler) UpdateReading(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req readingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	reading, err := h.svc.UpdateReading(r.Context(), id, req.toInput(actor))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

// DeleteReading handles DELETE /api/readings/{id}.
func (h *LibraryHandler) DeleteReading(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.svc.DeleteReading(r.Context(), actor, id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Shelves
// ---------------------------------------------------------------------------

type shelveRequest struct {
	Shelf string `json:"shelf"`
}

// ShelveBook handles PUT /api/books/{id}/shelf.
func (h *LibraryHandler) ShelveBook(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req shelveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	err = h.svc.ShelveBook(r.Context(), library.ShelveInput{
		Actor:  actor,
		BookID: id,
		Shelf:  domain.Shelf(req.Shelf),
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnshelveBook handles DELETE /api/books/{id}/shelf.
func (h *LibraryHandler) UnshelveBook(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.svc.UnshelveBook(r.Context(), actor, id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
