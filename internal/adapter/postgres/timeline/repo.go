// Package timeline implements the timeline event store using PostgreSQL.
// Event identity columns are written once by Append; only the denormalized
// payload columns are ever rewritten, and only through UpdatePayloadByEntity.
package timeline

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/bookline/bookline-backend/internal/adapter/postgres"
	"github.com/bookline/bookline-backend/internal/domain"
)

// psql builds queries with PostgreSQL-style $N placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const eventColumns = "id, user_id, entity_type, entity_id, action, occurred_at, title, details_json, genres_json, reading_data_json"

// Repo provides timeline event persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new timeline event repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Append inserts a new timeline event and returns it with the assigned ID.
// Runs on the transaction from ctx when present, so an entity mutation and its
// event commit or roll back together.
func (r *Repo) Append(ctx context.Context, event domain.TimelineEvent) (domain.TimelineEvent, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	detailsJSON, genresJSON, readingJSON, err := marshalPayload(domain.EventPayload{
		Title:       event.Title,
		Details:     event.Details,
		Genres:      event.Genres,
		ReadingData: event.ReadingData,
	})
	if err != nil {
		return domain.TimelineEvent{}, err
	}

	err = q.QueryRow(ctx,
		`INSERT INTO timeline_events
		     (user_id, entity_type, entity_id, action, occurred_at, title, details_json, genres_json, reading_data_json)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		event.UserID, string(event.EntityType), event.EntityID, event.Action,
		event.OccurredAt, event.Title, detailsJSON, genresJSON, readingJSON,
	).Scan(&event.ID)
	if err != nil {
		return domain.TimelineEvent{}, postgres.MapError(err, "timeline_event", event.EntityID)
	}

	return event, nil
}

// UpdatePayloadByEntity rewrites the payload columns of every event that
// references the given entity. Identity columns are untouched. Rows whose
// payload already matches are skipped, so the returned count is the number
// of events that actually changed.
func (r *Repo) UpdatePayloadByEntity(ctx context.Context, key domain.EntityKey, payload domain.EventPayload) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	detailsJSON, genresJSON, readingJSON, err := marshalPayload(payload)
	if err != nil {
		return 0, err
	}

	tag, err := q.Exec(ctx,
		`UPDATE timeline_events
		 SET title = $1, details_json = $2, genres_json = $3, reading_data_json = $4
		 WHERE entity_type = $5 AND entity_id = $6
		   AND (title, details_json, genres_json, reading_data_json)
		       IS DISTINCT FROM ($1, $2::jsonb, $3::jsonb, $4::jsonb)`,
		payload.Title, detailsJSON, genresJSON, readingJSON,
		string(key.Type), key.ID,
	)
	if err != nil {
		return 0, postgres.MapError(err, "timeline_event", key.ID)
	}

	return tag.RowsAffected(), nil
}

// DeleteByEntity removes every event referencing the given entity. Used only
// by the rebuilder's prune orphan policy.
func (r *Repo) DeleteByEntity(ctx context.Context, key domain.EntityKey) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx,
		`DELETE FROM timeline_events WHERE entity_type = $1 AND entity_id = $2`,
		string(key.Type), key.ID,
	)
	if err != nil {
		return 0, postgres.MapError(err, "timeline_event", key.ID)
	}

	return tag.RowsAffected(), nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// ListByUser returns events attributed to the user, newest first, starting
// after the cursor when one is given.
func (r *Repo) ListByUser(ctx context.Context, userID uuid.UUID, cursor *domain.EventCursor, limit int) ([]domain.TimelineEvent, error) {
	return r.list(ctx, &userID, cursor, limit)
}

// ListGlobal returns events for all users, newest first, starting after the
// cursor when one is given.
func (r *Repo) ListGlobal(ctx context.Context, cursor *domain.EventCursor, limit int) ([]domain.TimelineEvent, error) {
	return r.list(ctx, nil, cursor, limit)
}

func (r *Repo) list(ctx context.Context, userID *uuid.UUID, cursor *domain.EventCursor, limit int) ([]domain.TimelineEvent, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	builder := psql.Select(eventColumns).
		From("timeline_events").
		OrderBy("occurred_at DESC", "id DESC").
		Limit(uint64(limit))

	if userID != nil {
		builder = builder.Where(sq.Eq{"user_id": *userID})
	}
	if cursor != nil {
		// Row-value comparison keeps the keyset stable under concurrent inserts.
		builder = builder.Where(sq.Expr("(occurred_at, id) < (?, ?)", cursor.OccurredAt, cursor.ID))
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build timeline list query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list timeline_events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByEntity returns all events for one entity, ascending by
// (occurred_at, id), the order they were recorded in. Used by the rebuilder.
func (r *Repo) ListByEntity(ctx context.Context, key domain.EntityKey) ([]domain.TimelineEvent, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM timeline_events
		 WHERE entity_type = $1 AND entity_id = $2
		 ORDER BY occurred_at ASC, id ASC`,
		string(key.Type), key.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("list timeline_events by entity: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// DistinctEntities returns distinct (entity_type, entity_id) keys present in
// the store, ordered by key, starting after the given key. This is the
// rebuilder's resumable scan: each call picks up where the last batch ended.
func (r *Repo) DistinctEntities(ctx context.Context, after *domain.EntityKey, limit int) ([]domain.EntityKey, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	builder := psql.Select("DISTINCT entity_type", "entity_id").
		From("timeline_events").
		OrderBy("entity_type ASC", "entity_id ASC").
		Limit(uint64(limit))

	if after != nil {
		builder = builder.Where(sq.Expr("(entity_type, entity_id) > (?, ?)", string(after.Type), after.ID))
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build distinct entities query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list distinct entities: %w", err)
	}
	defer rows.Close()

	var keys []domain.EntityKey
	for rows.Next() {
		var (
			entityType string
			entityID   int64
		)
		if err := rows.Scan(&entityType, &entityID); err != nil {
			return nil, fmt.Errorf("scan entity key: %w", err)
		}
		keys = append(keys, domain.EntityKey{Type: domain.EntityType(entityType), ID: entityID})
	}

	return keys, rows.Err()
}

// ---------------------------------------------------------------------------
// Row mapping
// ---------------------------------------------------------------------------

func scanEvents(rows pgx.Rows) ([]domain.TimelineEvent, error) {
	var events []domain.TimelineEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (domain.TimelineEvent, error) {
	var (
		event       domain.TimelineEvent
		entityType  string
		detailsJSON []byte
		genresJSON  []byte
		readingJSON []byte
	)

	err := row.Scan(
		&event.ID, &event.UserID, &entityType, &event.EntityID, &event.Action,
		&event.OccurredAt, &event.Title, &detailsJSON, &genresJSON, &readingJSON,
	)
	if err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("scan timeline_event: %w", err)
	}
	event.EntityType = domain.EntityType(entityType)

	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &event.Details); err != nil {
			return domain.TimelineEvent{}, fmt.Errorf("timeline_event %d unmarshal details: %w", event.ID, err)
		}
	}
	if len(genresJSON) > 0 {
		if err := json.Unmarshal(genresJSON, &event.Genres); err != nil {
			return domain.TimelineEvent{}, fmt.Errorf("timeline_event %d unmarshal genres: %w", event.ID, err)
		}
	}
	if len(readingJSON) > 0 {
		if err := json.Unmarshal(readingJSON, &event.ReadingData); err != nil {
			return domain.TimelineEvent{}, fmt.Errorf("timeline_event %d unmarshal reading data: %w", event.ID, err)
		}
	}

	return event, nil
}

// marshalPayload encodes the payload columns. Details and genres are always
// stored as JSON arrays (never NULL) so repeated rebuilds of the same state
// produce byte-identical columns; reading data is NULL for non-reading events.
func marshalPayload(payload domain.EventPayload) (details, genres, reading []byte, err error) {
	d := payload.Details
	if d == nil {
		d = []domain.EventDetail{}
	}
	details, err = json.Marshal(d)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal event details: %w", err)
	}

	g := payload.Genres
	if g == nil {
		g = []string{}
	}
	genres, err = json.Marshal(g)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal event genres: %w", err)
	}

	if payload.ReadingData != nil {
		reading, err = json.Marshal(payload.ReadingData)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal reading data: %w", err)
		}
	}

	return details, genres, reading, nil
}
