// Package editor holds the drawing state of each editor session, the element
// collection mirrored from the backend, and the workflows that attach new
// elements to existing ones.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"fibermap/editor-go/internal/backend"
	"fibermap/editor-go/internal/geo"
	"fibermap/editor-go/internal/metrics"
	"fibermap/editor-go/internal/network"
	"fibermap/editor-go/internal/observability"
	"fibermap/editor-go/internal/routing"
)

// Backend is the subset of the element store the workflows call.
type Backend interface {
	NearestPointToPoint(ctx context.Context, target geo.Coordinate) (backend.Nearest, error)
	NearestSplitter(ctx context.Context, target geo.Coordinate) (backend.Nearest, error)
	CreateElement(ctx context.Context, p network.Payload) (network.Element, error)
	DeleteElement(ctx context.Context, kind network.Kind, id string) error
}

// Geometry measures drafts and finds the connector from a line to a point.
type Geometry interface {
	Length(points []geo.Coordinate) float64
	FindPath(line []geo.Coordinate, target geo.Coordinate) []geo.Coordinate
}

// Router returns a travel route between two points.
type Router interface {
	Route(ctx context.Context, origin, destination geo.Coordinate, mode string) ([]geo.Coordinate, error)
}

// NearbyKind is the element kind a nearby lookup snaps to.
type NearbyKind string

const (
	NearbyPointToPoint NearbyKind = "ptp"
	NearbySplitter     NearbyKind = "splitter"
)

func ParseNearbyKind(s string) (NearbyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ptp", "pointtopoint":
		return NearbyPointToPoint, nil
	case "splitter":
		return NearbySplitter, nil
	default:
		return "", newError(ErrorValidation, "invalid_kind", fmt.Sprintf("nearby lookup does not support %q", s), nil)
	}
}

type Workflow struct {
	log        zerolog.Logger
	backend    Backend
	geometry   Geometry
	router     Router
	collection *Collection
	metrics    *metrics.Metrics
}

func NewWorkflow(log zerolog.Logger, b Backend, g Geometry, r Router, c *Collection, m *metrics.Metrics) *Workflow {
	return &Workflow{
		log:        log,
		backend:    b,
		geometry:   g,
		router:     r,
		collection: c,
		metrics:    m,
	}
}

func (w *Workflow) Collection() *Collection {
	return w.collection
}

// Length measures a draft with the configured geometry.
func (w *Workflow) Length(points []geo.Coordinate) float64 {
	return w.geometry.Length(points)
}

// ResolveNearby connects the session's single selected target to the nearest
// element of kind. On success the selection is restarted under that element
// and the connecting path is animated into it. On failure the selection is
// left untouched and an error notice is recorded.
func (w *Workflow) ResolveNearby(ctx context.Context, s *Session, kind NearbyKind) (err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "nearby.resolve",
		attribute.String("kind", string(kind)),
		attribute.String("session_id", s.ID),
	)
	defer func() {
		w.metrics.ObserveNearbyResolution(string(kind), outcome(err), time.Since(start))
		if err != nil && !errors.Is(err, ErrSuperseded) {
			s.Notices.Error(UserMessage(err))
		}
		observability.EndSpan(span, err)
	}()

	target, gen, err := s.Selection.target()
	if err != nil {
		return err
	}

	var (
		parent network.Element
		path   []geo.Coordinate
	)
	switch kind {
	case NearbyPointToPoint:
		parent, path, err = w.resolvePointToPoint(ctx, target)
	case NearbySplitter:
		parent, path, err = w.resolveSplitter(ctx, target)
	default:
		err = newError(ErrorValidation, "invalid_kind", fmt.Sprintf("nearby lookup does not support %q", kind), nil)
	}
	if err != nil {
		return err
	}

	animGen, ok := s.Selection.begin(gen, parent)
	if !ok {
		w.log.Debug().Str("session_id", s.ID).Str("kind", string(kind)).Msg("nearby result dropped; selection changed")
		return ErrSuperseded
	}

	span.SetAttributes(attribute.String("element_id", parent.ID), attribute.Int("vertices", len(path)))
	w.log.Info().
		Str("session_id", s.ID).
		Str("kind", string(kind)).
		Str("element_id", parent.ID).
		Int("vertices", len(path)).
		Msg("nearby connection resolved")

	s.animate(animGen, path, w.metrics)
	return nil
}

func (w *Workflow) resolvePointToPoint(ctx context.Context, target geo.Coordinate) (network.Element, []geo.Coordinate, error) {
	found, err := w.backend.NearestPointToPoint(ctx, target)
	if err != nil {
		return network.Element{}, nil, lookupError(err, "point-to-point connection")
	}
	if found.ID == "" || len(found.Coordinates) == 0 {
		return network.Element{}, nil, newError(ErrorNotFound, "ptp_not_found", "point-to-point connection not found", nil)
	}

	parent := w.collected(network.KindPointToPoint, found)
	path := w.geometry.FindPath(found.Coordinates, target)
	if len(path) == 0 {
		return network.Element{}, nil, newError(ErrorPathNotFound, "path_not_found", "no valid path found to the point-to-point connection", nil)
	}
	return parent, path, nil
}

func (w *Workflow) resolveSplitter(ctx context.Context, target geo.Coordinate) (network.Element, []geo.Coordinate, error) {
	found, err := w.backend.NearestSplitter(ctx, target)
	if err != nil {
		return network.Element{}, nil, lookupError(err, "splitter")
	}
	if found.ID == "" || len(found.Coordinates) == 0 {
		return network.Element{}, nil, newError(ErrorNotFound, "splitter_not_found", "splitter not found", nil)
	}

	parent := w.collected(network.KindSplitter, found)
	from, ok := parent.LastPoint()
	if !ok {
		return network.Element{}, nil, newError(ErrorNotFound, "splitter_not_found", "splitter has no end point", nil)
	}

	route, err := w.router.Route(ctx, from, target, routing.ModeWalking)
	if err != nil {
		w.log.Warn().Err(err).Str("element_id", found.ID).Msg("splitter route failed")
		route = nil
	}
	if len(route) == 0 {
		return network.Element{}, nil, newError(ErrorPathNotFound, "path_not_found", "no walking route found to the splitter", err)
	}

	path := make([]geo.Coordinate, 0, len(route)+2)
	path = append(path, from)
	path = append(path, route...)
	path = append(path, target)
	return parent, path, nil
}

// collected returns the collection's copy of the resolved element, adding a
// provisional one first if the collection does not know it yet.
func (w *Workflow) collected(kind network.Kind, found backend.Nearest) network.Element {
	if e, ok := w.collection.Get(found.ID); ok {
		return e
	}
	e := network.Element{
		ID:          found.ID,
		Kind:        kind,
		Coordinates: geo.Clone(found.Coordinates),
	}
	w.collection.Add(e)
	return e
}

func lookupError(err error, what string) error {
	// A malformed answer counts as no match.
	if errors.Is(err, backend.ErrNotFound) || errors.Is(err, backend.ErrMalformed) {
		return newError(ErrorNotFound, "not_found", what+" not found", err)
	}
	return newError(ErrorTransport, "transport_error", "failed to look up nearby "+what, err)
}
