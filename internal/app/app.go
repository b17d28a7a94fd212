package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bookline/bookline-backend/internal/adapter/postgres"
	"github.com/bookline/bookline-backend/internal/adapter/postgres/library"
	"github.com/bookline/bookline-backend/internal/adapter/postgres/stats"
	"github.com/bookline/bookline-backend/internal/adapter/postgres/statscache"
	timelinerepo "github.com/bookline/bookline-backend/internal/adapter/postgres/timeline"
	"github.com/bookline/bookline-backend/internal/auth"
	"github.com/bookline/bookline-backend/internal/config"
	librarysvc "github.com/bookline/bookline-backend/internal/service/library"
	statssvc "github.com/bookline/bookline-backend/internal/service/stats"
	timelinesvc "github.com/bookline/bookline-backend/internal/service/timeline"
	"github.com/bookline/bookline-backend/internal/transport/middleware"
)

// Run is the application entry point. It loads configuration, connects to
// the database, wires repositories, services and HTTP handlers, and serves
// until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	// 1. Database.
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)

	// 2. Repositories.
	libraryRepo := library.New(pool)
	timelineRepo := timelinerepo.New(pool)
	statsCacheRepo := statscache.New(pool)
	statsRepo := stats.New(pool)

	// 3. Services.
	timelineService := timelinesvc.NewService(logger, timelineRepo, libraryRepo, cfg.Timeline)
	statsService := statssvc.NewService(logger, statsRepo, statsCacheRepo, cfg.Stats)
	libraryService := librarysvc.NewService(logger, libraryRepo, timelineService, statsService, txm)

	// 4. Token validation.
	jwtMgr := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)

	// 5. HTTP handlers and routes.
	mux := newMux(pool, libraryService, timelineService, statsService, logger)

	mws := []middleware.Middleware{
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
		middleware.Auth(jwtMgr),
	}
	if cfg.Server.RateLimitPerMinute > 0 {
		limiter := middleware.NewRateLimiter(time.Minute)
		defer limiter.Stop()
		mws = append(mws, limiter.Limit(cfg.Server.RateLimitPerMinute))
	}
	handler := middleware.Chain(mws...)(mux)

	// 6. Server with graceful shutdown.
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
