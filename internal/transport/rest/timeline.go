package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bookline/bookline-backend/internal/domain"
	"github.com/bookline/bookline-backend/internal/service/timeline"
	"github.com/bookline/bookline-backend/pkg/ctxutil"
)

// timelineService defines the minimal interface needed by TimelineHandler.
type timelineService interface {
	List(ctx context.Context, in timeline.ListInput) (*timeline.ListResult, error)
	EntityHistory(ctx context.Context, key domain.EntityKey) ([]domain.TimelineEvent, error)
}

// TimelineHandler serves timeline REST endpoints.
type TimelineHandler struct {
	svc timelineService
	log *slog.Logger
}

// NewTimelineHandler creates a TimelineHandler.
func NewTimelineHandler(svc timelineService, logger *slog.Logger) *TimelineHandler {
	return &TimelineHandler{svc: svc, log: logger.With("handler", "timeline")}
}

type eventResponse struct {
	ID          int64                `json:"id"`
	EntityType  string               `json:"entity_type"`
	EntityID    int64                `json:"entity_id"`
	Action      string               `json:"action"`
	OccurredAt  string               `json:"occurred_at"`
	Title       string               `json:"title"`
	Details     []domain.EventDetail `json:"details"`
	Genres      []string             `json:"genres"`
	ReadingData *domain.ReadingData  `json:"reading_data,omitempty"`
}

type timelinePageResponse struct {
	Events      []eventResponse `json:"events"`
	HasNextPage bool            `json:"has_next_page"`
	NextCursor  *string         `json:"next_cursor,omitempty"`
}

// Feed returns one page of the timeline.
// GET /api/timeline?scope=mine|global&cursor=...&limit=20
func (h *TimelineHandler) Feed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	in := timeline.ListInput{
		Scope: q.Get("scope"),
		Limit: intQuery(q.Get("limit")),
	}
	if in.Scope == "" {
		in.Scope = timeline.ScopeGlobal
	}
	if c := q.Get("cursor"); c != "" {
		in.Cursor = &c
	}

	if in.Scope == timeline.ScopeMine {
		userID, ok := ctxutil.UserIDFromCtx(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required for scope=mine")
			return
		}
		in.UserID = userID
	}

	result, err := h.svc.List(r.Context(), in)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	resp := timelinePageResponse{
		Events:      make([]eventResponse, 0, len(result.Events)),
		HasNextPage: result.HasNextPage,
		NextCursor:  result.NextCursor,
	}
	for _, e := range result.Events {
		resp.Events = append(resp.Events, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// EntityHistory returns every event of one entity, oldest first.
// GET /api/timeline/{entity_type}/{id}
func (h *TimelineHandler) EntityHistory(w http.ResponseWriter, r *http.Request) {
	entityType := domain.EntityType(r.PathValue("entity_type"))
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	events, err := h.svc.EntityHistory(r.Context(), domain.EntityKey{Type: entityType, ID: id})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	resp := make([]eventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toEventResponse(e domain.TimelineEvent) eventResponse {
	return eventResponse{
		ID:          e.ID,
		EntityType:  string(e.EntityType),
		EntityID:    e.EntityID,
		Action:      e.Action,
		OccurredAt:  e.OccurredAt.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
		Title:       e.Title,
		Details:     e.Details,
		Genres:      e.Genres,
		ReadingData: e.ReadingData,
	}
}

func intQuery(raw string) int {
	n, _ := strconv.Atoi(raw)
	return n
}
