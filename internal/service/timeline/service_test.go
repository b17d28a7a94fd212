package timeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookline/bookline-backend/internal/config"
	"github.com/bookline/bookline-backend/internal/domain"
)

// ===========================================================================
// Manual mocks (moq-style with func fields)
// ===========================================================================

type mockEventRepo struct {
	AppendFunc                func(ctx context.Context, event domain.TimelineEvent) (domain.TimelineEvent, error)
	UpdatePayloadByEntityFunc func(ctx context.Context, key domain.EntityKey, payload domain.EventPayload) (int64, error)
	DeleteByEntityFunc        func(ctx context.Context, key domain.EntityKey) (int64, error)
	ListByUserFunc            func(ctx context.Context, userID uuid.UUID, cursor *domain.EventCursor, limit int) ([]domain.TimelineEvent, error)
	ListGlobalFunc            func(ctx context.Context, cursor *domain.EventCursor, limit int) ([]domain.TimelineEvent, error)
	ListByEntityFunc          func(ctx context.Context, key domain.EntityKey) ([]domain.TimelineEvent, error)
	DistinctEntitiesFunc      func(ctx context.Context, after *domain.EntityKey, limit int) ([]domain.EntityKey, error)
}

func (m *mockEventRepo) Append(ctx context.Context, event domain.TimelineEvent) (domain.TimelineEvent, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, event)
	}
	event.ID = 1
	return event, nil
}

func (m *mockEventRepo) UpdatePayloadByEntity(ctx context.Context, key domain.EntityKey, payload domain.EventPayload) (int64, error) {
	if m.UpdatePayloadByEntityFunc != nil {
		return m.UpdatePayloadByEntityFunc(ctx, key, payload)
	}
	return 0, nil
}

func (m *mockEventRepo) DeleteByEntity(ctx context.Context, key domain.EntityKey) (int64, error) {
	if m.DeleteByEntityFunc != nil {
		return m.DeleteByEntityFunc(ctx, key)
	}
	return 0, nil
}

func (m *mockEventRepo) ListByUser(ctx context.Context, userID uuid.UUID, cursor *domain.EventCursor, limit int) ([]domain.TimelineEvent, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, cursor, limit)
	}
	return nil, nil
}

func (m *mockEventRepo) ListGlobal(ctx context.Context, cursor *domain.EventCursor, limit int) ([]domain.TimelineEvent, error) {
	if m.ListGlobalFunc != nil {
		return m.ListGlobalFunc(ctx, cursor, limit)
	}
	return nil, nil
}

func (m *mockEventRepo) ListByEntity(ctx context.Context, key domain.EntityKey) ([]domain.TimelineEvent, error) {
	if m.ListByEntityFunc != nil {
		return m.ListByEntityFunc(ctx, key)
	}
	return nil, nil
}

func (m *mockEventRepo) DistinctEntities(ctx context.Context, after *domain.EntityKey, limit int) ([]domain.EntityKey, error) {
	if m.DistinctEntitiesFunc != nil {
		return m.DistinctEntitiesFunc(ctx, after, limit)
	}
	return nil, nil
}

type mockSnapshotReader struct {
	SnapshotFunc func(ctx context.Context, key domain.EntityKey) (domain.EntitySnapshot, error)
}

func (m *mockSnapshotReader) Snapshot(ctx context.Context, key domain.EntityKey) (domain.EntitySnapshot, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, key)
	}
	return nil, domain.ErrNotFound
}

// ===========================================================================
// Helpers
// ===========================================================================

func testConfig() config.TimelineConfig {
	return config.TimelineConfig{
		DefaultPageSize:  20,
		MaxPageSize:      100,
		RebuildBatchSize: 2,
		OrphanPolicy:     OrphanFreeze,
	}
}

func newTestService(events *mockEventRepo, snapshots *mockSnapshotReader) *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), events, snapshots, testConfig())
}

func strPtr(s string) *string { return &s }

// ===========================================================================
// Record
// ===========================================================================

func TestRecord_BookEvent(t *testing.T) {
	userID := uuid.New()
	key := domain.EntityKey{Type: domain.EntityTypeBook, ID: 42}

	snapshots := &mockSnapshotReader{
		SnapshotFunc: func(ctx context.Context, k domain.EntityKey) (domain.EntitySnapshot, error) {
			assert.Equal(t, key, k)
			return domain.BookSnapshot{
				Title:        "Dune",
				AuthorNames:  []string{"Frank Herbert"},
				PrimaryGenre: strPtr("Sci-Fi"),
			}, nil
		},
	}
	var appended domain.TimelineEvent
	events := &mockEventRepo{
		AppendFunc: func(ctx context.Context, e domain.TimelineEvent) (domain.TimelineEvent, error) {
			appended = e
			e.ID = 7
			return e, nil
		},
	}

	svc := newTestService(events, snapshots)
	stored, err := svc.Record(context.Background(), RecordInput{
		UserID: &userID,
		Key:    key,
		Action: domain.ActionAdded,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), stored.ID)
	assert.Equal(t, "Dune", appended.Title)
	assert.Equal(t, domain.ActionAdded, appended.Action)
	assert.Equal(t, key.ID, appended.EntityID)
	assert.Equal(t, []string{"Sci-Fi"}, appended.Genres)
	assert.False(t, appended.OccurredAt.IsZero())
	require.NotNil(t, appended.UserID)
	assert.Equal(t, userID, *appended.UserID)
}

func TestRecord_KeepsExplicitTimestamp(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	snapshots := &mockSnapshotReader{
		SnapshotFunc: func(ctx context.Context, k domain.EntityKey) (domain.EntitySnapshot, error) {
			return domain.AuthorSnapshot{Name: "Ursula K. Le Guin"}, nil
		},
	}
	events := &mockEventRepo{}

	svc := newTestService(events, snapshots)
	stored, err := svc.Record(context.Background(), RecordInput{
		Key:        domain.EntityKey{Type: domain.EntityTypeAuthor, ID: 3},
		Action:     domain.ActionUpdated,
		OccurredAt: at,
	})
	require.NoError(t, err)
	assert.Equal(t, at, stored.OccurredAt)
	assert.Nil(t, stored.UserID)
}

func TestRecord_ValidationErrors(t *testing.T) {
	svc := newTestService(&mockEventRepo{}, &mockSnapshotReader{})

	tests := []struct {
		name string
		in   RecordInput
	}{
		{"bad entity type", RecordInput{Key: domain.EntityKey{Type: "movie", ID: 1}, Action: domain.ActionAdded}},
		{"zero entity id", RecordInput{Key: domain.EntityKey{Type: domain.EntityTypeBook}, Action: domain.ActionAdded}},
		{"missing action", RecordInput{Key: domain.EntityKey{Type: domain.EntityTypeBook, ID: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), tt.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRecord_SnapshotNotFound(t *testing.T) {
	svc := newTestService(&mockEventRepo{}, &mockSnapshotReader{})

	_, err := svc.Record(context.Background(), RecordInput{
		Key:    domain.EntityKey{Type: domain.EntityTypeBook, ID: 99},
		Action: domain.ActionAdded,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ===========================================================================
// List
// ===========================================================================

func feedEvents(n int, base time.Time) []domain.TimelineEvent {
	events := make([]domain.TimelineEvent, n)
	for i := range events {
		events[i] = domain.TimelineEvent{
			ID:         int64(n - i),
			EntityType: domain.EntityTypeBook,
			EntityID:   int64(i + 1),
			Action:     domain.ActionAdded,
			OccurredAt: base.Add(-time.Duration(i) * time.Minute),
			Title:      "Book",
		}
	}
	return events
}

func TestList_FirstPageWithNext(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	userID := uuid.New()

	events := &mockEventRepo{
		ListByUserFunc: func(ctx context.Context, uid uuid.UUID, cursor *domain.EventCursor, limit int) ([]domain.TimelineEvent, error) {
			assert.Equal(t, userID, uid)
			assert.Nil(t, cursor)
			assert.Equal(t, 4, limit) // requested 3 plus the next-page probe
			return feedEvents(4, base), nil
		},
	}

	svc := newTestService(events, &mockSnapshotReader{})
	result, err := svc.List(context.Background(), ListInput{Scope: ScopeMine, UserID: userID, Limit: 3})
	require.NoError(t, err)

	assert.Len(t, result.Events, 3)
	assert.True(t, result.HasNextPage)
	require.NotNil(t, result.NextCursor)

	// The cursor must decode back to the last returned event's position.
	decoded, err := decodeCursor(result.NextCursor)
	require.NoError(t, err)
	last := result.Events[2]
	assert.Equal(t, last.ID, decoded.ID)
	assert.Equal(t, last.OccurredAt, decoded.OccurredAt)
}

func TestList_LastPage(t *testing.T) {
	events := &mockEventRepo{
		ListGlobalFunc: func(ctx context.Context, cursor *domain.EventCursor, limit int) ([]domain.TimelineEvent, error) {
			return feedEvents(2, time.Now()), nil
		},
	}

	svc := newTestService(events, &mockSnapshotReader{})
	result, err := svc.List(context.Background(), ListInput{Scope: ScopeGlobal, Limit: 5})
	require.NoError(t, err)

	assert.Len(t, result.Events, 2)
	assert.False(t, result.HasNextPage)
	assert.Nil(t, result.NextCursor)
}

func TestList_CursorPassedThrough(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	encoded := encodeCursor(domain.EventCursor{OccurredAt: at, ID: 17})

	var seen *domain.EventCursor
	events := &mockEventRepo{
		ListGlobalFunc: func(ctx context.Context, cursor *domain.EventCursor, limit int) ([]domain.TimelineEvent, error) {
			seen = cursor
			return nil, nil
		},
	}

	svc := newTestService(events, &mockSnapshotReader{})
	_, err := svc.List(context.Background(), ListInput{Scope: ScopeGlobal, Cursor: &encoded})
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, int64(17), seen.ID)
	assert.Equal(t, at, seen.OccurredAt)
}

func TestList_Validation(t *testing.T) {
	svc := newTestService(&mockEventRepo{}, &mockSnapshotReader{})

	t.Run("bad scope", func(t *testing.T) {
		_, err := svc.List(context.Background(), ListInput{Scope: "everyone"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("mine without user", func(t *testing.T) {
		_, err := svc.List(context.Background(), ListInput{Scope: ScopeMine})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("malformed cursor", func(t *testing.T) {
		bad := "not-a-cursor!"
		_, err := svc.List(context.Background(), ListInput{Scope: ScopeGlobal, Cursor: &bad})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestList_LimitClamped(t *testing.T) {
	var seenLimit int
	events := &mockEventRepo{
		ListGlobalFunc: func(ctx context.Context, cursor *domain.EventCursor, limit int) ([]domain.TimelineEvent, error) {
			seenLimit = limit
			return nil, nil
		},
	}

	svc := newTestService(events, &mockSnapshotReader{})

	_, err := svc.List(context.Background(), ListInput{Scope: ScopeGlobal, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 101, seenLimit)

	_, err = svc.List(context.Background(), ListInput{Scope: ScopeGlobal})
	require.NoError(t, err)
	assert.Equal(t, 21, seenLimit)
}

// ===========================================================================
// Rebuild
// ===========================================================================

func TestRebuild_WalksAllBatches(t *testing.T) {
	// 3 entities with batch size 2: two batches, the second one short.
	all := []domain.EntityKey{
		{Type: domain.EntityTypeAuthor, ID: 1},
		{Type: domain.EntityTypeBook, ID: 1},
		{Type: domain.EntityTypeBook, ID: 2},
	}

	events := &mockEventRepo{
		DistinctEntitiesFunc: func(ctx context.Context, after *domain.EntityKey, limit int) ([]domain.EntityKey, error) {
			require.Equal(t, 2, limit)
			if after == nil {
				return all[:2], nil
			}
			assert.Equal(t, all[1], *after)
			return all[2:], nil
		},
		UpdatePayloadByEntityFunc: func(ctx context.Context, key domain.EntityKey, payload domain.EventPayload) (int64, error) {
			return 2, nil
		},
	}
	snapshots := &mockSnapshotReader{
		SnapshotFunc: func(ctx context.Context, key domain.EntityKey) (domain.EntitySnapshot, error) {
			if key.Type == domain.EntityTypeAuthor {
				return domain.AuthorSnapshot{Name: "A"}, nil
			}
			return domain.BookSnapshot{Title: "B"}, nil
		},
	}

	svc := newTestService(events, snapshots)
	report, err := svc.Rebuild(context.Background(), RebuildInput{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.Scanned)
	assert.Equal(t, int64(6), report.Updated)
	assert.Equal(t, int64(0), report.Orphaned)
	assert.Equal(t, int64(0), report.Errors)
	require.NotNil(t, report.LastKey)
	assert.Equal(t, all[2], *report.LastKey)
}

func TestRebuild_OrphanFreeze(t *testing.T) {
	deleted := false
	events := &mockEventRepo{
		DistinctEntitiesFunc: func(ctx context.Context, after *domain.EntityKey, limit int) ([]domain.EntityKey, error) {
			if after != nil {
				return nil, nil
			}
			return []domain.EntityKey{{Type: domain.EntityTypeBook, ID: 404}}, nil
		},
		DeleteByEntityFunc: func(ctx context.Context, key domain.EntityKey) (int64, error) {
			deleted = true
			return 0, nil
		},
	}
	snapshots := &mockSnapshotReader{} // every snapshot is ErrNotFound

	svc := newTestService(events, snapshots)
	report, err := svc.Rebuild(context.Background(), RebuildInput{})
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.Orphaned)
	assert.Equal(t, int64(0), report.Errors)
	assert.False(t, deleted, "freeze must keep orphaned events")
}

func TestRebuild_OrphanPrune(t *testing.T) {
	var pruned []domain.EntityKey
	events := &mockEventRepo{
		DistinctEntitiesFunc: func(ctx context.Context, after *domain.EntityKey, limit int) ([]domain.EntityKey, error) {
			if after != nil {
				return nil, nil
			}
			return []domain.EntityKey{{Type: domain.EntityTypeReading, ID: 9}}, nil
		},
		DeleteByEntityFunc: func(ctx context.Context, key domain.EntityKey) (int64, error) {
			pruned = append(pruned, key)
			return 3, nil
		},
	}

	svc := newTestService(events, &mockSnapshotReader{})
	report, err := svc.Rebuild(context.Background(), RebuildInput{OrphanPolicy: OrphanPrune})
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.Orphaned)
	assert.Equal(t, []domain.EntityKey{{Type: domain.EntityTypeReading, ID: 9}}, pruned)
}

func TestRebuild_ErrorSkipsEntity(t *testing.T) {
	events := &mockEventRepo{
		DistinctEntitiesFunc: func(ctx context.Context, after *domain.EntityKey, limit int) ([]domain.EntityKey, error) {
			if after != nil {
				return nil, nil
			}
			return []domain.EntityKey{
				{Type: domain.EntityTypeBook, ID: 1},
				{Type: domain.EntityTypeBook, ID: 2},
			}, nil
		},
		UpdatePayloadByEntityFunc: func(ctx context.Context, key domain.EntityKey, payload domain.EventPayload) (int64, error) {
			return 1, nil
		},
	}
	snapshots := &mockSnapshotReader{
		SnapshotFunc: func(ctx context.Context, key domain.EntityKey) (domain.EntitySnapshot, error) {
			if key.ID == 1 {
				return nil, errors.New("connection reset")
			}
			return domain.BookSnapshot{Title: "Survivor"}, nil
		},
	}

	svc := newTestService(events, snapshots)
	report, err := svc.Rebuild(context.Background(), RebuildInput{})
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.Scanned)
	assert.Equal(t, int64(1), report.Errors)
	assert.Equal(t, int64(1), report.Updated)
}

func TestRebuild_CancelledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	events := &mockEventRepo{
		DistinctEntitiesFunc: func(_ context.Context, after *domain.EntityKey, limit int) ([]domain.EntityKey, error) {
			// Cancel after handing out the first full batch.
			cancel()
			return []domain.EntityKey{
				{Type: domain.EntityTypeBook, ID: 1},
				{Type: domain.EntityTypeBook, ID: 2},
			}, nil
		},
		UpdatePayloadByEntityFunc: func(ctx context.Context, key domain.EntityKey, payload domain.EventPayload) (int64, error) {
			return 1, nil
		},
	}
	snapshots := &mockSnapshotReader{
		SnapshotFunc: func(ctx context.Context, key domain.EntityKey) (domain.EntitySnapshot, error) {
			return domain.BookSnapshot{Title: "X"}, nil
		},
	}

	svc := newTestService(events, snapshots)
	report, err := svc.Rebuild(ctx, RebuildInput{})
	require.ErrorIs(t, err, context.Canceled)

	// The interrupted report still carries the resume point.
	assert.Equal(t, int64(2), report.Scanned)
	require.NotNil(t, report.LastKey)
	assert.Equal(t, domain.EntityKey{Type: domain.EntityTypeBook, ID: 2}, *report.LastKey)
}

func TestRebuild_ResumeFrom(t *testing.T) {
	resume := domain.EntityKey{Type: domain.EntityTypeBook, ID: 5}

	var firstAfter *domain.EntityKey
	called := false
	events := &mockEventRepo{
		DistinctEntitiesFunc: func(ctx context.Context, after *domain.EntityKey, limit int) ([]domain.EntityKey, error) {
			if !called {
				called = true
				firstAfter = after
			}
			return nil, nil
		},
	}

	svc := newTestService(events, &mockSnapshotReader{})
	_, err := svc.Rebuild(context.Background(), RebuildInput{ResumeFrom: &resume})
	require.NoError(t, err)

	require.NotNil(t, firstAfter)
	assert.Equal(t, resume, *firstAfter)
}

func TestRebuild_BadOrphanPolicy(t *testing.T) {
	svc := newTestService(&mockEventRepo{}, &mockSnapshotReader{})
	_, err := svc.Rebuild(context.Background(), RebuildInput{OrphanPolicy: "discard"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
