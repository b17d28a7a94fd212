// Package library implements entity management for the tracked catalog:
// authors, genres, books, readings, and shelves. Every mutation runs inside
// one transaction together with its timeline event, so entity state and
// timeline history cannot diverge, and drops the acting user's cached stats.
package library

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bookline/bookline-backend/internal/domain"
	svctimeline "github.com/bookline/bookline-backend/internal/service/timeline"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type entityRepo interface {
	CreateAuthor(ctx context.Context, author domain.Author) (domain.Author, error)
	GetAuthor(ctx context.Context, id int64) (domain.Author, error)
	UpdateAuthor(ctx context.Context, author domain.Author) (domain.Author, error)
	DeleteAuthor(ctx context.Context, id int64) error

	CreateGenre(ctx context.Context, genre domain.Genre) (domain.Genre, error)
	GetGenre(ctx context.Context, id int64) (domain.Genre, error)
	UpdateGenre(ctx context.Context, genre domain.Genre) (domain.Genre, error)
	DeleteGenre(ctx context.Context, id int64) error

	CreateBook(ctx context.Context, book domain.Book, authorIDs []int64) (domain.Book, error)
	GetBook(ctx context.Context, id int64) (domain.Book, error)
	UpdateBook(ctx context.Context, book domain.Book) (domain.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	ReplaceBookAuthors(ctx context.Context, bookID int64, authorIDs []int64) error

	CreateReading(ctx context.Context, reading domain.Reading) (domain.Reading, error)
	GetReading(ctx context.Context, id int64) (domain.Reading, error)
	UpdateReading(ctx context.Context, reading domain.Reading) (domain.Reading, error)
	DeleteReading(ctx context.Context, id int64) error

	ShelveBook(ctx context.Context, userBook domain.UserBook) error
	UnshelveBook(ctx context.Context, userID uuid.UUID, bookID int64) error
}

type eventRecorder interface {
	Record(ctx context.Context, in svctimeline.RecordInput) (domain.TimelineEvent, error)
}

type statsInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the catalog business logic.
type Service struct {
	log      *slog.Logger
	entities entityRepo
	recorder eventRecorder
	stats    statsInvalidator
	tx       txManager
}

// NewService creates a new Library service.
func NewService(
	logger *slog.Logger,
	entities entityRepo,
	recorder eventRecorder,
	stats statsInvalidator,
	tx txManager,
) *Service {
	return &Service{
		log:      logger.With("service", "library"),
		entities: entities,
		recorder: recorder,
		stats:    stats,
		tx:       tx,
	}
}

// mutate wraps an entity mutation in a transaction and drops the acting
// user's cached stats within the same transaction. The cached snapshot
// disappears exactly when the mutation commits; the next stats read
// recomputes it from the new state.
func (s *Service) mutate(ctx context.Context, actor uuid.UUID, fn func(ctx context.Context) error) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return s.stats.Invalidate(ctx, actor)
	})
}

// record appends a timeline event for the given entity within the current
// transaction.
func (s *Service) record(ctx context.Context, actor uuid.UUID, key domain.EntityKey, action domain.EventAction) error {
	_, err := s.recorder.Record(ctx, svctimeline.RecordInput{
		UserID: &actor,
		Key:    key,
		Action: action,
	})
	return err
}
