package sqlcgen

import "time"

type SessionViewport struct {
	SessionID string
	CenterLat float64
	CenterLng float64
	Zoom      float64
	UpdatedAt time.Time
}

type EditEvent struct {
	ID          int64
	SessionID   *string
	Action      string
	ElementKind string
	ElementID   *string
	Details     map[string]any
	CreatedAt   time.Time
}
