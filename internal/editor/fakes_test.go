package editor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fibermap/editor-go/internal/backend"
	"fibermap/editor-go/internal/geo"
	"fibermap/editor-go/internal/network"
)

type fakeBackend struct {
	nearestPTP      func(ctx context.Context, target geo.Coordinate) (backend.Nearest, error)
	nearestSplitter func(ctx context.Context, target geo.Coordinate) (backend.Nearest, error)
	create          func(ctx context.Context, p network.Payload) (network.Element, error)
	remove          func(ctx context.Context, kind network.Kind, id string) error
	list            func(ctx context.Context) ([]network.Element, error)

	calls int
}

func (f *fakeBackend) NearestPointToPoint(ctx context.Context, target geo.Coordinate) (backend.Nearest, error) {
	f.calls++
	if f.nearestPTP == nil {
		return backend.Nearest{}, backend.ErrNotFound
	}
	return f.nearestPTP(ctx, target)
}

func (f *fakeBackend) NearestSplitter(ctx context.Context, target geo.Coordinate) (backend.Nearest, error) {
	f.calls++
	if f.nearestSplitter == nil {
		return backend.Nearest{}, backend.ErrNotFound
	}
	return f.nearestSplitter(ctx, target)
}

func (f *fakeBackend) CreateElement(ctx context.Context, p network.Payload) (network.Element, error) {
	f.calls++
	if f.create == nil {
		return network.Element{ID: "new", Kind: p.Kind, Coordinates: p.Coordinates}, nil
	}
	return f.create(ctx, p)
}

func (f *fakeBackend) DeleteElement(ctx context.Context, kind network.Kind, id string) error {
	f.calls++
	if f.remove == nil {
		return nil
	}
	return f.remove(ctx, kind, id)
}

func (f *fakeBackend) ListElements(ctx context.Context) ([]network.Element, error) {
	if f.list == nil {
		return []network.Element{}, nil
	}
	return f.list(ctx)
}

type fakeGeometry struct {
	findPath func(line []geo.Coordinate, target geo.Coordinate) []geo.Coordinate
}

func (g fakeGeometry) Length(points []geo.Coordinate) float64 {
	return geo.Length(points)
}

func (g fakeGeometry) FindPath(line []geo.Coordinate, target geo.Coordinate) []geo.Coordinate {
	if g.findPath == nil {
		return nil
	}
	return g.findPath(line, target)
}

type fakeRouter struct {
	route func(ctx context.Context, origin, destination geo.Coordinate, mode string) ([]geo.Coordinate, error)
}

func (r fakeRouter) Route(ctx context.Context, origin, destination geo.Coordinate, mode string) ([]geo.Coordinate, error) {
	if r.route == nil {
		return nil, nil
	}
	return r.route(ctx, origin, destination, mode)
}

type harness struct {
	backend    *fakeBackend
	geometry   *fakeGeometry
	router     *fakeRouter
	collection *Collection
	workflow   *Workflow
	registry   *Registry
}

func newHarness(interval time.Duration) *harness {
	h := &harness{
		backend:  &fakeBackend{},
		geometry: &fakeGeometry{},
		router:   &fakeRouter{},
	}
	log := zerolog.Nop()
	h.collection = NewCollection(log, h.backend, nil)
	h.workflow = NewWorkflow(log, h.backend, h.geometry, h.router, h.collection, nil)
	h.registry = NewRegistry(log, nil, RegistryOptions{StepInterval: interval})
	return h
}

func pt(lat, lng float64) *geo.Coordinate {
	return &geo.Coordinate{Lat: lat, Lng: lng}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}
