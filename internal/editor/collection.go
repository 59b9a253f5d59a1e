package editor

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"fibermap/editor-go/internal/metrics"
	"fibermap/editor-go/internal/network"
	"fibermap/editor-go/internal/observability"
)

// Source lists every stored element.
type Source interface {
	ListElements(ctx context.Context) ([]network.Element, error)
}

// Collection mirrors the backend's elements for rendering. Local additions are
// provisional until the next full refresh replaces them.
type Collection struct {
	log     zerolog.Logger
	src     Source
	metrics *metrics.Metrics

	mu      sync.RWMutex
	items   []network.Element
	trigger uint64
	applied uint64
}

func NewCollection(log zerolog.Logger, src Source, m *metrics.Metrics) *Collection {
	return &Collection{log: log, src: src, metrics: m}
}

// Refresh reloads the whole collection. Each call takes the next trigger
// value; a response is dropped if a later trigger was already applied.
func (c *Collection) Refresh(ctx context.Context) (err error) {
	c.mu.Lock()
	c.trigger++
	t := c.trigger
	c.mu.Unlock()

	ctx, span := observability.StartSpan(ctx, "collection.refresh", attribute.Int64("trigger", int64(t)))
	defer func() { observability.EndSpan(span, err) }()

	items, err := c.src.ListElements(ctx)
	if err != nil {
		c.metrics.ObserveCollectionRefresh("error", -1)
		c.log.Warn().Err(err).Uint64("trigger", t).Msg("collection refresh failed")
		return err
	}

	c.mu.Lock()
	if t <= c.applied {
		c.mu.Unlock()
		c.metrics.ObserveCollectionRefresh("stale", -1)
		return nil
	}
	c.applied = t
	c.items = items
	n := len(c.items)
	c.mu.Unlock()

	c.metrics.ObserveCollectionRefresh("ok", n)
	c.log.Debug().Uint64("trigger", t).Int("elements", n).Msg("collection refreshed")
	return nil
}

// Add appends e for immediate display.
func (c *Collection) Add(e network.Element) {
	c.mu.Lock()
	c.items = append(c.items, e.Clone())
	n := len(c.items)
	c.mu.Unlock()

	c.log.Debug().Str("id", e.ID).Str("kind", string(e.Kind)).Int("elements", n).Msg("element added locally")
}

// Get returns the most recent element with id.
func (c *Collection) Get(id string) (network.Element, bool) {
	if id == "" {
		return network.Element{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.items) - 1; i >= 0; i-- {
		if c.items[i].ID == id {
			return c.items[i].Clone(), true
		}
	}
	return network.Element{}, false
}

// List returns one entry per id, the most recent one winning.
func (c *Collection) List() []network.Element {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]int, len(c.items))
	out := make([]network.Element, 0, len(c.items))
	for _, e := range c.items {
		if i, ok := seen[e.ID]; ok && e.ID != "" {
			out[i] = e.Clone()
			continue
		}
		seen[e.ID] = len(out)
		out = append(out, e.Clone())
	}
	return out
}

// Trigger is the number of refreshes requested so far.
func (c *Collection) Trigger() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trigger
}
