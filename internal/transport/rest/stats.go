package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/bookline/bookline-backend/internal/domain"
	"github.com/bookline/bookline-backend/pkg/ctxutil"
)

// statsService defines the minimal interface needed by StatsHandler.
type statsService interface {
	Get(ctx context.Context, userID uuid.UUID) (domain.CachedStats, error)
	ForYear(ctx context.Context, userID uuid.UUID, year int) (domain.CachedStats, error)
	AvailableYears(ctx context.Context, userID uuid.UUID) ([]int, error)
}

// StatsHandler serves stats REST endpoints.
type StatsHandler struct {
	svc statsService
	log *slog.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(svc statsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, log: logger.With("handler", "stats")}
}

// Stats returns the user's aggregate stats. Without a year parameter the
// cached all-time snapshot is served, recomputed transparently when absent.
// GET /api/stats[?year=2023]
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, r, h.log, domain.NewValidationError("year", "must be an integer"))
			return
		}
		stats, err := h.svc.ForYear(r.Context(), userID, year)
		if err != nil {
			respondError(w, r, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}

	stats, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Years lists the years that have reading activity.
// GET /api/stats/years
func (h *StatsHandler) Years(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	years, err := h.svc.AvailableYears(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if years == nil {
		years = []int{}
	}
	writeJSON(w, http.StatusOK, map[string][]int{"years": years})
}
