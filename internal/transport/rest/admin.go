package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bookline/bookline-backend/internal/domain"
	"github.com/bookline/bookline-backend/internal/service/timeline"
	"github.com/bookline/bookline-backend/internal/transport/middleware"
)

type rebuildService interface {
	Rebuild(ctx context.Context, in timeline.RebuildInput) (*timeline.RebuildReport, error)
	Forget(ctx context.Context, key domain.EntityKey) (int64, error)
}

// AdminHandler serves admin REST endpoints.
type AdminHandler struct {
	rebuilder rebuildService
	log       *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(rebuilder rebuildService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		rebuilder: rebuilder,
		log:       logger.With("handler", "admin"),
	}
}

type rebuildRequest struct {
	BatchSize    int    `json:"batch_size,omitempty"`
	OrphanPolicy string `json:"orphan_policy,omitempty"`
	ResumeType   string `json:"resume_entity_type,omitempty"`
	ResumeID     int64  `json:"resume_entity_id,omitempty"`
}

type rebuildResponse struct {
	Scanned  int64 `json:"scanned"`
	Updated  int64 `json:"updated"`
	Orphaned int64 `json:"orphaned"`
	Errors   int64 `json:"errors"`

	LastEntityType string `json:"last_entity_type,omitempty"`
	LastEntityID   int64  `json:"last_entity_id,omitempty"`
}

// Rebuild refreshes the denormalized payload of all timeline events.
// POST /api/admin/timeline/rebuild
func (h *AdminHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req rebuildRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, h.log, err)
			return
		}
	}

	in := timeline.RebuildInput{
		BatchSize:    req.BatchSize,
		OrphanPolicy: req.OrphanPolicy,
	}
	if req.ResumeID > 0 {
		in.ResumeFrom = &domain.EntityKey{
			Type: domain.EntityType(req.ResumeType),
			ID:   req.ResumeID,
		}
	}

	report, err := h.rebuilder.Rebuild(r.Context(), in)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	resp := rebuildResponse{
		Scanned:  report.Scanned,
		Updated:  report.Updated,
		Orphaned: report.Orphaned,
		Errors:   report.Errors,
	}
	if report.LastKey != nil {
		resp.LastEntityType = string(report.LastKey.Type)
		resp.LastEntityID = report.LastKey.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// Forget purges every event of one entity from the timeline.
// DELETE /api/admin/timeline/{entity_type}/{id}
func (h *AdminHandler) Forget(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	entityType := domain.EntityType(r.PathValue("entity_type"))
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	deleted, err := h.rebuilder.Forget(r.Context(), domain.EntityKey{Type: entityType, ID: id})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if err := middleware.RequireAdmin(r.Context()); err != nil {
		respondError(w, r, h.log, err)
		return false
	}
	return true
}
