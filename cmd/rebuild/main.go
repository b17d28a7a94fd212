// Command rebuild re-derives every timeline event payload from the current
// entity state. It is intended to be invoked manually after bulk edits or
// schema changes, not as an in-process goroutine.
//
// An interrupted run logs the last visited entity; pass it back via
// -resume-type and -resume-id to continue where it stopped.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookline/bookline-backend/internal/adapter/postgres"
	"github.com/bookline/bookline-backend/internal/adapter/postgres/library"
	timelinerepo "github.com/bookline/bookline-backend/internal/adapter/postgres/timeline"
	"github.com/bookline/bookline-backend/internal/app"
	"github.com/bookline/bookline-backend/internal/config"
	"github.com/bookline/bookline-backend/internal/domain"
	timelinesvc "github.com/bookline/bookline-backend/internal/service/timeline"
)

func main() {
	batchSize := flag.Int("batch-size", 0, "entities per batch (0 = configured default)")
	orphanPolicy := flag.String("orphan-policy", "", "freeze or prune (empty = configured default)")
	resumeType := flag.String("resume-type", "", "entity type to resume after")
	resumeID := flag.Int64("resume-id", 0, "entity id to resume after")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	svc := timelinesvc.NewService(logger, timelinerepo.New(pool), library.New(pool), cfg.Timeline)

	in := timelinesvc.RebuildInput{
		BatchSize:    *batchSize,
		OrphanPolicy: *orphanPolicy,
	}
	if *resumeType != "" {
		in.ResumeFrom = &domain.EntityKey{
			Type: domain.EntityType(*resumeType),
			ID:   *resumeID,
		}
	}

	report, err := svc.Rebuild(ctx, in)
	if err != nil {
		if report != nil && report.LastKey != nil {
			logger.Error("rebuild interrupted",
				slog.String("error", err.Error()),
				slog.String("resume_type", string(report.LastKey.Type)),
				slog.Int64("resume_id", report.LastKey.ID),
			)
		} else {
			logger.Error("rebuild failed", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}

	logger.Info("rebuild completed",
		slog.Int64("scanned", report.Scanned),
		slog.Int64("updated", report.Updated),
		slog.Int64("orphaned", report.Orphaned),
		slog.Int64("errors", report.Errors),
	)
}
