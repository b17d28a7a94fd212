package timeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookline/bookline-backend/internal/domain"
)

// Orphan policies for events whose entity no longer exists.
const (
	// OrphanFreeze keeps orphaned events with their last known payload.
	OrphanFreeze = "freeze"
	// OrphanPrune deletes orphaned events.
	OrphanPrune = "prune"
)

// RebuildInput holds the parameters for a payload rebuild run.
type RebuildInput struct {
	// ResumeFrom restarts a previous run after the given entity. Nil starts
	// from the beginning.
	ResumeFrom *domain.EntityKey

	// BatchSize and OrphanPolicy override the configured values when set.
	BatchSize    int
	OrphanPolicy string
}

// RebuildReport summarizes one rebuild run.
type RebuildReport struct {
	// Scanned counts distinct entities visited.
	Scanned int64
	// Updated counts events whose payload was rewritten.
	Updated int64
	// Orphaned counts entities that no longer exist but still have events.
	Orphaned int64
	// Errors counts entities skipped because of a failure.
	Errors int64

	// LastKey is the final entity visited. When a run is interrupted it is
	// the resume point for the next one.
	LastKey *domain.EntityKey
}

// Rebuild re-derives the display payload of every timeline event from
// current entity state. It walks distinct entities in key order, one batch
// at a time, refreshing all events of an entity together. Running it twice
// in a row leaves the second run with zero payload changes to make.
//
// A failing entity is counted and skipped rather than aborting the run.
// Context cancellation stops between batches; the report's LastKey then
// resumes the walk.
func (s *Service) Rebuild(ctx context.Context, in RebuildInput) (*RebuildReport, error) {
	batchSize := in.BatchSize
	if batchSize <= 0 {
		batchSize = s.cfg.RebuildBatchSize
	}
	policy := in.OrphanPolicy
	if policy == "" {
		policy = s.cfg.OrphanPolicy
	}
	if policy != OrphanFreeze && policy != OrphanPrune {
		return nil, domain.NewValidationError("orphan_policy", "invalid value (allowed: freeze, prune)")
	}

	s.log.InfoContext(ctx, "rebuild started", "batch_size", batchSize, "orphan_policy", policy)

	report := &RebuildReport{}
	after := in.ResumeFrom
	for {
		if err := ctx.Err(); err != nil {
			s.log.WarnContext(ctx, "rebuild interrupted", "scanned", report.Scanned, "last_key", report.LastKey)
			return report, err
		}

		keys, err := s.events.DistinctEntities(ctx, after, batchSize)
		if err != nil {
			return report, fmt.Errorf("list entities: %w", err)
		}
		if len(keys) == 0 {
			break
		}

		for _, key := range keys {
			report.Scanned++
			k := key
			report.LastKey = &k

			if err := s.rebuildEntity(ctx, key, policy, report); err != nil {
				report.Errors++
				s.log.ErrorContext(ctx, "rebuild entity failed",
					"entity_type", key.Type, "entity_id", key.ID, "error", err)
			}
		}

		if len(keys) < batchSize {
			break
		}
		after = report.LastKey
	}

	s.log.InfoContext(ctx, "rebuild finished",
		"scanned", report.Scanned,
		"updated", report.Updated,
		"orphaned", report.Orphaned,
		"errors", report.Errors,
	)
	return report, nil
}

func (s *Service) rebuildEntity(ctx context.Context, key domain.EntityKey, policy string, report *RebuildReport) error {
	snap, err := s.snapshots.Snapshot(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		report.Orphaned++
		if policy == OrphanPrune {
			if _, err := s.events.DeleteByEntity(ctx, key); err != nil {
				return fmt.Errorf("prune orphan: %w", err)
			}
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	payload, err := domain.BuildEventPayload(snap)
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	updated, err := s.events.UpdatePayloadByEntity(ctx, key, payload)
	if err != nil {
		return fmt.Errorf("update payload: %w", err)
	}
	report.Updated += updated
	return nil
}
