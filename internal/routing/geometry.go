// Package routing provides the geometry and routing capabilities the nearby
// connection workflow consumes: path length, snapping a target onto an existing
// line, and walking routes from a directions service.
package routing

import (
	"math"

	"github.com/dhconnelly/rtreego"

	"fibermap/editor-go/internal/geo"
)

const (
	rectTolerance = 1e-9
	minChildren   = 2
	maxChildren   = 8
)

// Geometry computes lengths and connecting paths in-process.
type Geometry struct {
	// StepMeters spaces intermediate vertices on the connecting segment so the
	// drawn line grows in steps. Zero yields just the snap point and the target.
	StepMeters float64
}

func NewGeometry(stepMeters float64) *Geometry {
	if stepMeters < 0 {
		stepMeters = 0
	}
	return &Geometry{StepMeters: stepMeters}
}

func (g *Geometry) Length(points []geo.Coordinate) float64 {
	return geo.Length(points)
}

// segment is one edge of the line projected onto a local plane centred on the
// target, x scaled by cos(lat) so distances are comparable on both axes.
type segment struct {
	a, b       geo.Coordinate
	ax, ay     float64
	bx, by     float64
	minX, minY float64
	maxX, maxY float64
	rect       *rtreego.Rect
}

func (s *segment) Bounds() *rtreego.Rect {
	return s.rect
}

func (s *segment) boxDistance(x, y float64) float64 {
	dx := math.Max(0, math.Max(s.minX-x, x-s.maxX))
	dy := math.Max(0, math.Max(s.minY-y, y-s.maxY))
	return math.Hypot(dx, dy)
}

// closest returns the parameter t of the point on the segment nearest (x,y)
// and its planar distance.
func (s *segment) closest(x, y float64) (float64, float64) {
	dx := s.bx - s.ax
	dy := s.by - s.ay
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = ((x-s.ax)*dx + (y-s.ay)*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}
	px := s.ax + t*dx
	py := s.ay + t*dy
	return t, math.Hypot(x-px, y-py)
}

type plane struct {
	origin geo.Coordinate
	scale  float64
}

func newPlane(origin geo.Coordinate) plane {
	return plane{origin: origin, scale: math.Cos(origin.Lat * math.Pi / 180)}
}

func (p plane) project(c geo.Coordinate) (float64, float64) {
	return (c.Lng - p.origin.Lng) * p.scale, c.Lat - p.origin.Lat
}

// FindPath snaps target onto the nearest point of line and returns the
// vertices leading from that point to target. An empty line yields nil.
func (g *Geometry) FindPath(line []geo.Coordinate, target geo.Coordinate) []geo.Coordinate {
	switch len(line) {
	case 0:
		return nil
	case 1:
		return g.connect(line[0], target)
	}

	snap, ok := nearestOnLine(line, target)
	if !ok {
		return nil
	}
	return g.connect(snap, target)
}

func nearestOnLine(line []geo.Coordinate, target geo.Coordinate) (geo.Coordinate, bool) {
	pl := newPlane(target)
	tree := rtreego.NewTree(2, minChildren, maxChildren)

	count := 0
	for i := 0; i+1 < len(line); i++ {
		s := &segment{a: line[i], b: line[i+1]}
		s.ax, s.ay = pl.project(s.a)
		s.bx, s.by = pl.project(s.b)
		s.minX, s.maxX = math.Min(s.ax, s.bx), math.Max(s.ax, s.bx)
		s.minY, s.maxY = math.Min(s.ay, s.by), math.Max(s.ay, s.by)

		rect, err := rtreego.NewRect(
			rtreego.Point{s.minX, s.minY},
			[]float64{math.Max(s.maxX-s.minX, rectTolerance), math.Max(s.maxY-s.minY, rectTolerance)},
		)
		if err != nil {
			continue
		}
		s.rect = rect
		tree.Insert(s)
		count++
	}
	if count == 0 {
		return geo.Coordinate{}, false
	}

	// Candidates arrive ordered by box distance; once a box is farther than
	// the best exact hit nothing after it can win.
	best := math.Inf(1)
	var snap geo.Coordinate
	for _, item := range tree.NearestNeighbors(count, rtreego.Point{0, 0}) {
		s, ok := item.(*segment)
		if !ok || s == nil {
			continue
		}
		if s.boxDistance(0, 0) > best {
			break
		}
		t, d := s.closest(0, 0)
		if d < best {
			best = d
			snap = geo.Coordinate{
				Lat: s.a.Lat + t*(s.b.Lat-s.a.Lat),
				Lng: s.a.Lng + t*(s.b.Lng-s.a.Lng),
			}
		}
	}
	return snap, !math.IsInf(best, 1)
}

func (g *Geometry) connect(from, to geo.Coordinate) []geo.Coordinate {
	dist := geo.Distance(from, to)
	if dist < 0.01 {
		return []geo.Coordinate{to}
	}

	steps := 1
	if g.StepMeters > 0 {
		steps = max(1, int(math.Ceil(dist/g.StepMeters)))
	}

	out := make([]geo.Coordinate, 0, steps+1)
	out = append(out, from)
	for i := 1; i < steps; i++ {
		f := float64(i) / float64(steps)
		out = append(out, geo.Coordinate{
			Lat: from.Lat + f*(to.Lat-from.Lat),
			Lng: from.Lng + f*(to.Lng-from.Lng),
		})
	}
	out = append(out, to)
	return out
}
