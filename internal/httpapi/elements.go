package httpapi

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fibermap/editor-go/internal/geo"
	"fibermap/editor-go/internal/network"
	"fibermap/editor-go/internal/sqlcgen"
)

type editEvent struct {
	ID          int64          `json:"id"`
	SessionID   *string        `json:"session_id,omitempty"`
	Action      string         `json:"action"`
	ElementKind string         `json:"element_kind"`
	ElementID   *string        `json:"element_id,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

const (
	defaultEditEventLimit = 50
	maxEditEventLimit     = 500
)

func (h *Handler) handleListElements(w http.ResponseWriter, r *http.Request) {
	if !h.ensureWorkflow(w) {
		return
	}
	items := h.workflow.Collection().List()

	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, err := network.ParseKind(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_kind", err.Error(), nil)
			return
		}
		items = slices.DeleteFunc(items, func(e network.Element) bool { return e.Kind != kind })
	}

	if raw := r.URL.Query().Get("bbox"); raw != "" {
		box, err := geo.ParseBBox(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid bbox", map[string]any{"error": err.Error()})
			return
		}
		items = slices.DeleteFunc(items, func(e network.Element) bool {
			return len(e.Coordinates) == 0 || !geo.Bounds(e.Coordinates).Intersects(box)
		})
	}

	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleRefreshElements(w http.ResponseWriter, r *http.Request) {
	if !h.ensureWorkflow(w) {
		return
	}
	c := h.workflow.Collection()
	if err := c.Refresh(r.Context()); err != nil {
		h.writeError(w, http.StatusBadGateway, "transport_error", "failed to load elements", map[string]any{"error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"trigger":  c.Trigger(),
		"elements": c.List(),
	})
}

func (h *Handler) handleDeleteElement(w http.ResponseWriter, r *http.Request) {
	kind, err := network.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_kind", err.Error(), nil)
		return
	}
	id := chi.URLParam(r, "id")
	if !h.ensureWorkflow(w) {
		return
	}
	if err := h.workflow.Delete(r.Context(), kind, id); err != nil {
		h.writeEditorError(w, err)
		return
	}
	h.recordEdit(r, "", "delete", kind, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// recordEdit appends to the edit log when a database is configured. Failures
// are logged and never fail the request.
func (h *Handler) recordEdit(r *http.Request, sessionID, action string, kind network.Kind, elementID string, details map[string]any) {
	if h.events == nil {
		return
	}
	arg := sqlcgen.InsertEditEventParams{
		Action:      action,
		ElementKind: string(kind),
		Details:     details,
	}
	if sessionID != "" {
		arg.SessionID = &sessionID
	}
	if elementID != "" {
		arg.ElementID = &elementID
	}
	if err := h.events.InsertEditEvent(r.Context(), arg); err != nil {
		h.log.Warn().Err(err).Str("action", action).Str("kind", string(kind)).Msg("record edit event failed")
	}
}

func (h *Handler) handleListEditEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEditEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "limit must be a positive integer", nil)
			return
		}
		limit = min(n, maxEditEventLimit)
	}
	if h.events == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured", nil)
		return
	}

	rows, err := h.events.ListEditEvents(r.Context(), int32(limit))
	if err != nil {
		h.log.Error().Err(err).Msg("list edit events failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to list edit events", nil)
		return
	}

	resp := make([]editEvent, 0, len(rows))
	for _, e := range rows {
		resp = append(resp, editEvent{
			ID:          e.ID,
			SessionID:   e.SessionID,
			Action:      e.Action,
			ElementKind: e.ElementKind,
			ElementID:   e.ElementID,
			Details:     e.Details,
			CreatedAt:   e.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}
