package editor

import (
	"testing"

	"github.com/rs/zerolog"

	"fibermap/editor-go/internal/geo"
	"fibermap/editor-go/internal/network"
)

func TestSelectionStates(t *testing.T) {
	s := NewSelection(nil, nil)
	if got := s.State(); got != StateIdle {
		t.Fatalf("expected idle, got %s", got)
	}

	s.AppendVertex(pt(1, 1))
	if got := s.State(); got != StateSingleTarget {
		t.Fatalf("expected single_target, got %s", got)
	}
	if s.Ready() {
		t.Fatalf("single point should not be ready")
	}

	s.AppendVertex(pt(2, 2))
	if got := s.State(); got != StateMultiPoint {
		t.Fatalf("expected multi_point, got %s", got)
	}
	if !s.Ready() {
		t.Fatalf("two free points should be ready")
	}

	s.SelectParent(network.Element{ID: "a", Kind: network.KindSplitter}, nil)
	if got := s.State(); got != StateDrawing {
		t.Fatalf("expected drawing, got %s", got)
	}
	if n := len(s.Snapshot().Coordinates); n != 2 {
		t.Fatalf("select without point should keep coordinates, got %d", n)
	}
}

func TestSelectionSelectParentWithPointRestartsDraft(t *testing.T) {
	notices := NewNotices(zerolog.Nop(), 0)
	s := NewSelection(notices, nil)
	s.AppendVertex(pt(1, 1))
	s.AppendVertex(pt(2, 2))

	s.SelectParent(network.Element{ID: "p", Kind: network.KindPointToPoint}, pt(3, 4))

	snap := s.Snapshot()
	if snap.Parent == nil || snap.Parent.ID != "p" {
		t.Fatalf("expected parent p, got %#v", snap.Parent)
	}
	if len(snap.Coordinates) != 1 || snap.Coordinates[0] != (geo.Coordinate{Lat: 3, Lng: 4}) {
		t.Fatalf("expected draft [3,4], got %v", snap.Coordinates)
	}

	got := notices.Drain()
	if len(got) != 1 || got[0].Message != "pointToPoint selected" || got[0].Level != NoticeInfo {
		t.Fatalf("unexpected notices: %#v", got)
	}
}

func TestSelectionAppendNilIsNoop(t *testing.T) {
	s := NewSelection(nil, nil)
	before := s.Snapshot().Generation
	s.AppendVertex(nil)
	snap := s.Snapshot()
	if len(snap.Coordinates) != 0 || snap.Generation != before {
		t.Fatalf("nil append changed the selection: %#v", snap)
	}
}

func TestSelectionResetClearsBothFields(t *testing.T) {
	stopped := 0
	s := NewSelection(nil, func() { stopped++ })
	s.SelectParent(network.Element{ID: "p", Kind: network.KindReseller}, pt(1, 1))
	s.AppendVertex(pt(2, 2))

	s.Reset()

	snap := s.Snapshot()
	if snap.Parent != nil || len(snap.Coordinates) != 0 || snap.State != StateIdle {
		t.Fatalf("expected idle after reset, got %#v", snap)
	}
	if stopped != 3 {
		t.Fatalf("expected stop on every change, got %d", stopped)
	}
}

func TestSelectionSnapshotIsACopy(t *testing.T) {
	s := NewSelection(nil, nil)
	s.SelectParent(network.Element{ID: "p", Kind: network.KindReseller, Coordinates: []geo.Coordinate{{Lat: 1, Lng: 1}}}, pt(1, 1))

	snap := s.Snapshot()
	snap.Coordinates[0].Lat = 99
	snap.Parent.Coordinates[0].Lat = 99

	again := s.Snapshot()
	if again.Coordinates[0].Lat != 1 || again.Parent.Coordinates[0].Lat != 1 {
		t.Fatalf("snapshot aliases selection state")
	}
}

func TestSelectionEdits(t *testing.T) {
	s := NewSelection(nil, nil)
	s.SetCoordinates([]geo.Coordinate{{Lat: 1}, {Lat: 2}, {Lat: 3}})

	if s.RemoveVertex(5) {
		t.Fatalf("out of range removal should be a no-op")
	}
	if !s.RemoveVertex(1) {
		t.Fatalf("expected removal")
	}
	got := s.Snapshot().Coordinates
	if len(got) != 2 || got[0].Lat != 1 || got[1].Lat != 3 {
		t.Fatalf("unexpected coordinates %v", got)
	}

	s.SetCoordinates(nil)
	if s.State() != StateIdle {
		t.Fatalf("expected idle after clearing coordinates")
	}
}

func TestSelectionTargetPreconditions(t *testing.T) {
	s := NewSelection(nil, nil)
	if _, _, err := s.target(); err != ErrNoTargetSelected {
		t.Fatalf("expected ErrNoTargetSelected, got %v", err)
	}
	s.AppendVertex(pt(1, 1))
	if c, _, err := s.target(); err != nil || c.Lat != 1 {
		t.Fatalf("expected target, got %v %v", c, err)
	}
	s.AppendVertex(pt(2, 2))
	if _, _, err := s.target(); err != ErrMultipleTargets {
		t.Fatalf("expected ErrMultipleTargets, got %v", err)
	}
}

func TestSelectionBeginRejectsStaleGeneration(t *testing.T) {
	s := NewSelection(nil, nil)
	s.AppendVertex(pt(1, 1))
	_, gen, _ := s.target()

	s.AppendVertex(pt(2, 2))
	if _, ok := s.begin(gen, network.Element{ID: "p"}); ok {
		t.Fatalf("begin should fail after the selection changed")
	}

	_, gen, _ = s.target()
	animGen, ok := s.begin(gen, network.Element{ID: "p"})
	if !ok {
		t.Fatalf("begin should succeed on the current generation")
	}
	if !s.appendAt(animGen, geo.Coordinate{Lat: 5}) {
		t.Fatalf("appendAt should accept the animation generation")
	}
	s.AppendVertex(pt(6, 6))
	if s.appendAt(animGen, geo.Coordinate{Lat: 7}) {
		t.Fatalf("appendAt should drop steps after a user edit")
	}
}
