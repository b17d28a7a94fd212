// Package timeline implements the event timeline: recording events alongside
// entity mutations, serving paginated feeds, and rebuilding denormalized
// event payloads after entity changes.
package timeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bookline/bookline-backend/internal/config"
	"github.com/bookline/bookline-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type eventRepo interface {
	Append(ctx context.Context, event domain.TimelineEvent) (domain.TimelineEvent, error)
	UpdatePayloadByEntity(ctx context.Context, key domain.EntityKey, payload domain.EventPayload) (int64, error)
	DeleteByEntity(ctx context.Context, key domain.EntityKey) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *domain.EventCursor, limit int) ([]domain.TimelineEvent, error)
	ListGlobal(ctx context.Context, cursor *domain.EventCursor, limit int) ([]domain.TimelineEvent, error)
	ListByEntity(ctx context.Context, key domain.EntityKey) ([]domain.TimelineEvent, error)
	DistinctEntities(ctx context.Context, after *domain.EntityKey, limit int) ([]domain.EntityKey, error)
}

type snapshotReader interface {
	Snapshot(ctx context.Context, key domain.EntityKey) (domain.EntitySnapshot, error)
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the timeline business logic.
type Service struct {
	log       *slog.Logger
	events    eventRepo
	snapshots snapshotReader
	cfg       config.TimelineConfig
}

// NewService creates a new Timeline service.
func NewService(
	logger *slog.Logger,
	events eventRepo,
	snapshots snapshotReader,
	cfg config.TimelineConfig,
) *Service {
	return &Service{
		log:       logger.With("service", "timeline"),
		events:    events,
		snapshots: snapshots,
		cfg:       cfg,
	}
}

// clampLimit ensures a page size is within (0, max], defaulting from 0.
func clampLimit(limit, max, defaultVal int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit > max {
		return max
	}
	return limit
}
