package app

import (
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	librarysvc "github.com/bookline/bookline-backend/internal/service/library"
	statssvc "github.com/bookline/bookline-backend/internal/service/stats"
	timelinesvc "github.com/bookline/bookline-backend/internal/service/timeline"
	"github.com/bookline/bookline-backend/internal/transport/rest"
)

// newMux registers all REST routes.
func newMux(
	pool *pgxpool.Pool,
	libraryService *librarysvc.Service,
	timelineService *timelinesvc.Service,
	statsService *statssvc.Service,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()

	healthHandler := rest.NewHealthHandler(pool, BuildVersion())
	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /health", healthHandler.Health)

	libraryHandler := rest.NewLibraryHandler(libraryService, logger)
	mux.HandleFunc("POST /api/authors", libraryHandler.CreateAuthor)
	mux.HandleFunc("GET /api/authors/{id}", libraryHandler.GetAuthor)
	mux.HandleFunc("PUT /api/authors/{id}", libraryHandler.UpdateAuthor)
	mux.HandleFunc("DELETE /api/authors/{id}", libraryHandler.DeleteAuthor)

	mux.HandleFunc("POST /api/genres", libraryHandler.CreateGenre)
	mux.HandleFunc("GET /api/genres/{id}", libraryHandler.GetGenre)
	mux.HandleFunc("PUT /api/genres/{id}", libraryHandler.UpdateGenre)
	mux.HandleFunc("DELETE /api/genres/{id}", libraryHandler.DeleteGenre)

	mux.HandleFunc("POST /api/books", libraryHandler.CreateBook)
	mux.HandleFunc("GET /api/books/{id}", libraryHandler.GetBook)
	mux.HandleFunc("PUT /api/books/{id}", libraryHandler.UpdateBook)
	mux.HandleFunc("DELETE /api/books/{id}", libraryHandler.DeleteBook)
	mux.HandleFunc("PUT /api/books/{id}/shelf", libraryHandler.ShelveBook)
	mux.HandleFunc("DELETE /api/books/{id}/shelf", libraryHandler.UnshelveBook)

	mux.HandleFunc("POST /api/readings", libraryHandler.CreateReading)
	mux.HandleFunc("GET /api/readings/{id}", libraryHandler.GetReading)
	mux.HandleFunc("PUT /api/readings/{id}", libraryHandler.UpdateReading)
	mux.HandleFunc("DELETE /api/readings/{id}", libraryHandler.DeleteReading)

	timelineHandler := rest.NewTimelineHandler(timelineService, logger)
	mux.HandleFunc("GET /api/timeline", timelineHandler.Feed)
	mux.HandleFunc("GET /api/timeline/{entity_type}/{id}", timelineHandler.EntityHistory)

	statsHandler := rest.NewStatsHandler(statsService, logger)
	mux.HandleFunc("GET /api/stats", statsHandler.Stats)
	mux.HandleFunc("GET /api/stats/years", statsHandler.Years)

	adminHandler := rest.NewAdminHandler(timelineService, logger)
	mux.HandleFunc("POST /api/admin/timeline/rebuild", adminHandler.Rebuild)
	mux.HandleFunc("DELETE /api/admin/timeline/{entity_type}/{id}", adminHandler.Forget)

	return mux
}
