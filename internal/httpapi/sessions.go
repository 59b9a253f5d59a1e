package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"fibermap/editor-go/internal/editor"
	"fibermap/editor-go/internal/geo"
	"fibermap/editor-go/internal/network"
	"fibermap/editor-go/internal/sqlcgen"
)

type sessionView struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Selection editor.Snapshot `json:"selection"`
	Animating bool            `json:"animating"`
}

type parentRequest struct {
	ElementID string          `json:"element_id"`
	Point     *geo.Coordinate `json:"point,omitempty"`
}

type vertexRequest struct {
	Point *geo.Coordinate `json:"point"`
}

type verticesRequest struct {
	Coordinates []geo.Coordinate `json:"coordinates"`
}

type viewport struct {
	Center    geo.Coordinate `json:"center"`
	Zoom      float64        `json:"zoom"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

const maxZoom = 22

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeEditorError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) ensureWorkflow(w http.ResponseWriter) bool {
	if h.workflow == nil {
		h.writeError(w, http.StatusServiceUnavailable, "backend_unavailable", "element backend not configured", nil)
		return false
	}
	return true
}

func (h *Handler) sessionView(s *editor.Session) sessionView {
	snap := s.Selection.Snapshot()
	if h.workflow != nil {
		snap = h.workflow.Snapshot(s)
	}
	return sessionView{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Selection: snap,
		Animating: s.Animating(),
	}
}

func validPoints(points ...geo.Coordinate) bool {
	for _, p := range points {
		if !p.Valid() {
			return false
		}
	}
	return true
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	h.writeJSON(w, http.StatusCreated, h.sessionView(s))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.sessionView(s))
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.sessions.Remove(id) {
		h.writeEditorError(w, editor.ErrSessionNotFound)
		return
	}
	if h.viewports != nil {
		if err := h.viewports.DeleteSessionViewport(r.Context(), id); err != nil {
			h.log.Warn().Err(err).Str("session_id", id).Msg("delete viewport failed")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSelectParent(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req parentRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if req.ElementID == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "element_id is required", nil)
		return
	}
	if req.Point != nil && !req.Point.Valid() {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "point is out of range", nil)
		return
	}
	if !h.ensureWorkflow(w) {
		return
	}
	if err := h.workflow.SelectParent(s, req.ElementID, req.Point); err != nil {
		h.writeEditorError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.sessionView(s))
}

func (h *Handler) handleAppendVertex(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req vertexRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if req.Point != nil && !req.Point.Valid() {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "point is out of range", nil)
		return
	}
	s.Selection.AppendVertex(req.Point)
	h.writeJSON(w, http.StatusOK, h.sessionView(s))
}

func (h *Handler) handleSetVertices(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req verticesRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if !validPoints(req.Coordinates...) {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "coordinates are out of range", nil)
		return
	}
	s.Selection.SetCoordinates(req.Coordinates)
	h.writeJSON(w, http.StatusOK, h.sessionView(s))
}

func (h *Handler) handleRemoveVertex(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "index must be an integer", nil)
		return
	}
	s.Selection.RemoveVertex(index)
	h.writeJSON(w, http.StatusOK, h.sessionView(s))
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Selection.Reset()
	h.writeJSON(w, http.StatusOK, h.sessionView(s))
}

func (h *Handler) handleResolveNearby(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	kind, err := editor.ParseNearbyKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.writeEditorError(w, err)
		return
	}
	if !h.ensureWorkflow(w) {
		return
	}
	if err := h.workflow.ResolveNearby(r.Context(), s, kind); err != nil {
		h.writeEditorError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.sessionView(s))
}

func (h *Handler) handleSubmitOptions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if !h.ensureWorkflow(w) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.workflow.SubmitOptions(s))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	kind, err := network.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_kind", err.Error(), nil)
		return
	}
	var form network.Form
	if err := decodeJSONStrict(r, &form); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if !h.ensureWorkflow(w) {
		return
	}

	saved, err := h.workflow.Submit(r.Context(), s, kind, form)
	if err != nil {
		h.writeEditorError(w, err)
		return
	}
	h.recordEdit(r, s.ID, "create", kind, saved.ID, map[string]any{"name": saved.Name, "parent": saved.Parent})
	h.writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) handleDrainNotices(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, s.Notices.Drain())
}

func (h *Handler) ensureViewports(w http.ResponseWriter) bool {
	if h.viewports == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured", nil)
		return false
	}
	return true
}

func toViewport(v sqlcgen.SessionViewport) viewport {
	updated := v.UpdatedAt
	return viewport{
		Center:    geo.Coordinate{Lat: v.CenterLat, Lng: v.CenterLng},
		Zoom:      v.Zoom,
		UpdatedAt: &updated,
	}
}

func (h *Handler) handleGetViewport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if !h.ensureViewports(w) {
		return
	}

	row, err := h.viewports.GetSessionViewport(r.Context(), s.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.writeError(w, http.StatusNotFound, "not_found", "viewport not saved", map[string]any{"session_id": s.ID})
			return
		}
		h.log.Error().Err(err).Str("session_id", s.ID).Msg("get viewport failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to fetch viewport", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, toViewport(row))
}

func (h *Handler) handlePutViewport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req viewport
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if !req.Center.Valid() || req.Zoom < 0 || req.Zoom > maxZoom {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "center or zoom out of range", nil)
		return
	}
	if !h.ensureViewports(w) {
		return
	}

	row, err := h.viewports.UpsertSessionViewport(r.Context(), sqlcgen.UpsertSessionViewportParams{
		SessionID: s.ID,
		CenterLat: req.Center.Lat,
		CenterLng: req.Center.Lng,
		Zoom:      req.Zoom,
	})
	if err != nil {
		h.log.Error().Err(err).Str("session_id", s.ID).Msg("upsert viewport failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to save viewport", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, toViewport(row))
}
