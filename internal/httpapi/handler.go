package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"fibermap/editor-go/internal/db"
	"fibermap/editor-go/internal/editor"
	"fibermap/editor-go/internal/metrics"
	"fibermap/editor-go/internal/sqlcgen"
)

type viewportQueries interface {
	GetSessionViewport(ctx context.Context, sessionID string) (sqlcgen.SessionViewport, error)
	UpsertSessionViewport(ctx context.Context, arg sqlcgen.UpsertSessionViewportParams) (sqlcgen.SessionViewport, error)
	DeleteSessionViewport(ctx context.Context, sessionID string) error
}

type editEventQueries interface {
	InsertEditEvent(ctx context.Context, arg sqlcgen.InsertEditEventParams) error
	ListEditEvents(ctx context.Context, limit int32) ([]sqlcgen.EditEvent, error)
}

// Options wires the editor core into the handler.
type Options struct {
	Sessions *editor.Registry
	Workflow *editor.Workflow
	Metrics  *metrics.Metrics
	// RequestTimeout bounds every request; it must exceed the backend timeout.
	RequestTimeout time.Duration
}

type Handler struct {
	log      zerolog.Logger
	pool     *db.Pool
	metrics  *metrics.Metrics
	sessions *editor.Registry
	workflow *editor.Workflow
	timeout  time.Duration

	viewports viewportQueries
	events    editEventQueries
}

func NewHandler(log zerolog.Logger, pool *db.Pool, opts Options) *Handler {
	h := &Handler{
		log:      log,
		pool:     pool,
		metrics:  opts.Metrics,
		sessions: opts.Sessions,
		workflow: opts.Workflow,
		timeout:  opts.RequestTimeout,
	}
	if h.sessions == nil {
		h.sessions = editor.NewRegistry(log, opts.Metrics, editor.RegistryOptions{})
	}
	if h.timeout <= 0 {
		h.timeout = 30 * time.Second
	}
	if q := pool.Queries(); q != nil {
		h.viewports = q
		h.events = q
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.timeout))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", h.handleCreateSession)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.handleGetSession)
					r.Delete("/", h.handleDeleteSession)
					r.Post("/parent", h.handleSelectParent)
					r.Post("/vertices", h.handleAppendVertex)
					r.Put("/vertices", h.handleSetVertices)
					r.Delete("/vertices/{index}", h.handleRemoveVertex)
					r.Post("/reset", h.handleReset)
					r.Post("/nearby/{kind}", h.handleResolveNearby)
					r.Get("/submit-options", h.handleSubmitOptions)
					r.Post("/submit/{kind}", h.handleSubmit)
					r.Get("/notices", h.handleDrainNotices)
					r.Get("/viewport", h.handleGetViewport)
					r.Put("/viewport", h.handlePutViewport)
				})
			})

			r.Route("/elements", func(r chi.Router) {
				r.Get("/", h.handleListElements)
				r.Post("/refresh", h.handleRefreshElements)
				r.Delete("/{kind}/{id}", h.handleDeleteElement)
			})

			r.Get("/edit-events", h.handleListEditEvents)
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), elapsed)

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

// writeEditorError maps a workflow failure onto the error envelope.
func (h *Handler) writeEditorError(w http.ResponseWriter, err error) {
	var e *editor.Error
	switch {
	case errors.Is(err, editor.ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, "session_not_found", "session not found", nil)
	case errors.Is(err, editor.ErrSuperseded):
		h.writeError(w, http.StatusConflict, "superseded", "selection changed while the request was in flight", nil)
	case errors.As(err, &e):
		status := http.StatusInternalServerError
		switch e.Kind {
		case editor.ErrorValidation:
			status = http.StatusBadRequest
		case editor.ErrorNotFound:
			status = http.StatusNotFound
		case editor.ErrorPathNotFound:
			status = http.StatusUnprocessableEntity
		case editor.ErrorTransport:
			status = http.StatusBadGateway
		}
		var details map[string]any
		if e.Err != nil && status == http.StatusBadGateway {
			details = map[string]any{"error": e.Err.Error()}
		}
		h.writeError(w, status, e.Code, e.Message, details)
	default:
		h.log.Error().Err(err).Msg("unexpected editor error")
		h.writeError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleReadyZ reports ready without a database; viewports are optional.
func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"ready":    true,
		"database": h.pool != nil,
		"sessions": h.sessions.Len(),
	})
}
