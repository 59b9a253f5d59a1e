package editor

import (
	"sync"

	"fibermap/editor-go/internal/geo"
	"fibermap/editor-go/internal/network"
)

// State is the drawing phase a selection is in.
type State string

const (
	// StateIdle has no parent and no coordinates.
	StateIdle State = "idle"
	// StateDrawing has a parent and accepts vertices for a branch.
	StateDrawing State = "drawing"
	// StateSingleTarget has one free point, the anchor of a nearby lookup.
	StateSingleTarget State = "single_target"
	// StateMultiPoint is a free-floating point-to-point draft.
	StateMultiPoint State = "multi_point"
)

// Snapshot is a copy of a selection safe to hand out.
type Snapshot struct {
	Parent      *network.Element `json:"parent"`
	Coordinates []geo.Coordinate `json:"coordinates"`
	State       State            `json:"state"`
	Generation  uint64           `json:"generation"`
	// Length is filled in by the workflow; the selection has no geometry.
	Length float64 `json:"length"`
}

// Selection is the draft being drawn and the element it branches from.
//
// Every user-driven change bumps the generation. Animated vertices carry the
// generation they were scheduled under and are dropped once it moves on, so a
// reset or a newer edit always wins over a pending animation.
type Selection struct {
	mu     sync.Mutex
	parent *network.Element
	coords []geo.Coordinate
	gen    uint64

	notify Notifier
	stop   func()
}

// NewSelection returns an idle selection. stop, if set, is called after every
// user-driven change to cancel pending animation steps.
func NewSelection(notify Notifier, stop func()) *Selection {
	return &Selection{notify: notify, stop: stop}
}

func stateOf(parent *network.Element, n int) State {
	switch {
	case parent != nil:
		return StateDrawing
	case n == 0:
		return StateIdle
	case n == 1:
		return StateSingleTarget
	default:
		return StateMultiPoint
	}
}

func (s *Selection) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stateOf(s.parent, len(s.coords))
}

// Ready reports whether the draft can be submitted: a parent is set, or a
// parent-less line has more than one vertex.
func (s *Selection) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parent != nil || len(s.coords) > 1
}

func (s *Selection) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Coordinates: make([]geo.Coordinate, len(s.coords)),
		State:       stateOf(s.parent, len(s.coords)),
		Generation:  s.gen,
	}
	copy(snap.Coordinates, s.coords)
	if s.parent != nil {
		p := s.parent.Clone()
		snap.Parent = &p
	}
	return snap
}

// SelectParent makes e the branch point. With a point the draft restarts at
// exactly that point; without one the current coordinates are kept.
func (s *Selection) SelectParent(e network.Element, point *geo.Coordinate) {
	s.mu.Lock()
	p := e.Clone()
	s.parent = &p
	if point != nil {
		s.coords = []geo.Coordinate{*point}
	}
	s.gen++
	s.mu.Unlock()

	s.changed()
	if s.notify != nil {
		s.notify.Info(string(e.Kind) + " selected")
	}
}

// AppendVertex extends the draft by one point. A nil point is ignored.
func (s *Selection) AppendVertex(point *geo.Coordinate) {
	if point == nil {
		return
	}
	s.mu.Lock()
	s.coords = append(s.coords, *point)
	s.gen++
	s.mu.Unlock()

	s.changed()
}

// SetCoordinates replaces the whole path, as after a drag on the editable line.
func (s *Selection) SetCoordinates(points []geo.Coordinate) {
	s.mu.Lock()
	s.coords = geo.Clone(points)
	if s.coords == nil {
		s.coords = []geo.Coordinate{}
	}
	s.gen++
	s.mu.Unlock()

	s.changed()
}

// RemoveVertex deletes the vertex at index; out of range is a no-op.
func (s *Selection) RemoveVertex(index int) bool {
	s.mu.Lock()
	if index < 0 || index >= len(s.coords) {
		s.mu.Unlock()
		return false
	}
	s.coords = append(s.coords[:index:index], s.coords[index+1:]...)
	s.gen++
	s.mu.Unlock()

	s.changed()
	return true
}

// Reset clears parent and coordinates together and cancels any animation.
func (s *Selection) Reset() {
	s.mu.Lock()
	s.parent = nil
	s.coords = []geo.Coordinate{}
	s.gen++
	s.mu.Unlock()

	s.changed()
}

// resetAt clears the selection only if nothing changed since gen was read.
func (s *Selection) resetAt(gen uint64) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	s.parent = nil
	s.coords = []geo.Coordinate{}
	s.gen++
	s.mu.Unlock()

	s.changed()
	return true
}

func (s *Selection) changed() {
	if s.stop != nil {
		s.stop()
	}
}

// target returns the single selected point and the generation it was read at.
func (s *Selection) target() (geo.Coordinate, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch len(s.coords) {
	case 0:
		return geo.Coordinate{}, s.gen, ErrNoTargetSelected
	case 1:
		return s.coords[0], s.gen, nil
	default:
		return geo.Coordinate{}, s.gen, ErrMultipleTargets
	}
}

// begin restarts the draft under parent if nothing changed since gen was
// read. It returns the generation animated vertices must carry.
func (s *Selection) begin(gen uint64, parent network.Element) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return 0, false
	}
	p := parent.Clone()
	s.parent = &p
	s.coords = []geo.Coordinate{}
	s.gen++
	return s.gen, true
}

// appendAt appends c only while the selection is still at gen.
func (s *Selection) appendAt(gen uint64, c geo.Coordinate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return false
	}
	s.coords = append(s.coords, c)
	return true
}
