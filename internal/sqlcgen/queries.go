package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const getSessionViewport = `-- name: GetSessionViewport :one
SELECT session_id,
       center_lat,
       center_lng,
       zoom,
       updated_at
FROM session_viewports
WHERE session_id = $1
`

func (q *Queries) GetSessionViewport(ctx context.Context, sessionID string) (SessionViewport, error) {
	row := q.db.QueryRow(ctx, getSessionViewport, sessionID)
	var i SessionViewport
	err := row.Scan(&i.SessionID, &i.CenterLat, &i.CenterLng, &i.Zoom, &i.UpdatedAt)
	return i, err
}

const upsertSessionViewport = `-- name: UpsertSessionViewport :one
INSERT INTO session_viewports (session_id, center_lat, center_lng, zoom, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (session_id) DO UPDATE
SET center_lat = EXCLUDED.center_lat,
    center_lng = EXCLUDED.center_lng,
    zoom = EXCLUDED.zoom,
    updated_at = now()
RETURNING session_id, center_lat, center_lng, zoom, updated_at
`

type UpsertSessionViewportParams struct {
	SessionID string
	CenterLat float64
	CenterLng float64
	Zoom      float64
}

func (q *Queries) UpsertSessionViewport(ctx context.Context, arg UpsertSessionViewportParams) (SessionViewport, error) {
	row := q.db.QueryRow(ctx, upsertSessionViewport, arg.SessionID, arg.CenterLat, arg.CenterLng, arg.Zoom)
	var i SessionViewport
	err := row.Scan(&i.SessionID, &i.CenterLat, &i.CenterLng, &i.Zoom, &i.UpdatedAt)
	return i, err
}

const deleteSessionViewport = `-- name: DeleteSessionViewport :exec
DELETE FROM session_viewports
WHERE session_id = $1
`

func (q *Queries) DeleteSessionViewport(ctx context.Context, sessionID string) error {
	_, err := q.db.Exec(ctx, deleteSessionViewport, sessionID)
	return err
}

const insertEditEvent = `-- name: InsertEditEvent :exec
INSERT INTO edit_events (
  session_id,
  action,
  element_kind,
  element_id,
  details
)
VALUES ($1, $2, $3, $4, COALESCE($5, '{}'::jsonb))
`

type InsertEditEventParams struct {
	SessionID   *string
	Action      string
	ElementKind string
	ElementID   *string
	Details     map[string]any
}

func (q *Queries) InsertEditEvent(ctx context.Context, arg InsertEditEventParams) error {
	_, err := q.db.Exec(ctx, insertEditEvent, arg.SessionID, arg.Action, arg.ElementKind, arg.ElementID, arg.Details)
	return err
}

const listEditEvents = `-- name: ListEditEvents :many
SELECT id,
       session_id,
       action,
       element_kind,
       element_id,
       details,
       created_at
FROM edit_events
ORDER BY created_at DESC, id DESC
LIMIT $1
`

func (q *Queries) ListEditEvents(ctx context.Context, limit int32) ([]EditEvent, error) {
	rows, err := q.db.Query(ctx, listEditEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []EditEvent
	for rows.Next() {
		var i EditEvent
		if err := rows.Scan(&i.ID, &i.SessionID, &i.Action, &i.ElementKind, &i.ElementID, &i.Details, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
