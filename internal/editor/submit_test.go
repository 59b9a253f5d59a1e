package editor

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"testing"
	"time"

	"fibermap/editor-go/internal/backend"
	"fibermap/editor-go/internal/geo"
	"fibermap/editor-go/internal/network"
)

func TestSubmitPointToPointAddsAndResets(t *testing.T) {
	h := newHarness(time.Millisecond)
	var sent network.Payload
	h.backend.create = func(_ context.Context, p network.Payload) (network.Element, error) {
		sent = p
		return network.Element{ID: "ptp-1", Kind: p.Kind, Coordinates: p.Coordinates, TotalCore: p.TotalCore}, nil
	}
	s := h.registry.Create()
	s.Selection.AppendVertex(pt(0, 0))
	s.Selection.AppendVertex(pt(0, 0.01))

	saved, err := h.workflow.Submit(context.Background(), s, network.KindPointToPoint, network.Form{Name: "trunk", CoreCount: 12})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if saved.ID != "ptp-1" {
		t.Fatalf("unexpected saved element %#v", saved)
	}
	if sent.Length < 1000 || sent.Length > 1200 {
		t.Fatalf("expected length around 1113m, got %f", sent.Length)
	}
	if _, ok := h.collection.Get("ptp-1"); !ok {
		t.Fatalf("point-to-point should be added to the collection")
	}
	if h.collection.Trigger() != 0 {
		t.Fatalf("point-to-point submit should not refresh")
	}
	if s.Selection.State() != StateIdle {
		t.Fatalf("selection should be reset after submit")
	}
	if n := lastNotice(t, s); n.Level != NoticeSuccess || n.Message != "Successfully added new pointToPoint connection" {
		t.Fatalf("unexpected notice %#v", n)
	}
}

func TestSubmitBranchRefreshesCollection(t *testing.T) {
	h := newHarness(time.Millisecond)
	parent := network.Element{ID: "r", Kind: network.KindReseller, TotalCore: 4, Children: []network.Child{{Color: "Blue"}}}
	h.collection.Add(parent)
	refreshed := 0
	h.backend.list = func(context.Context) ([]network.Element, error) {
		refreshed++
		return []network.Element{parent}, nil
	}

	var sent network.Payload
	h.backend.create = func(_ context.Context, p network.Payload) (network.Element, error) {
		sent = p
		return network.Element{ID: "s-1", Kind: p.Kind}, nil
	}

	s := h.registry.Create()
	s.Selection.SelectParent(parent, pt(1, 1))
	s.Selection.AppendVertex(pt(1.001, 1.001))

	if _, err := h.workflow.Submit(context.Background(), s, network.KindSplitter, network.Form{SplitterLimit: 8, PortNo: "3"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sent.Parent != "r" || sent.Kind != network.KindSplitter {
		t.Fatalf("unexpected payload %#v", sent)
	}
	if refreshed != 1 {
		t.Fatalf("expected one refresh, got %d", refreshed)
	}
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness(time.Millisecond)
	s := h.registry.Create()

	_, err := h.workflow.Submit(context.Background(), s, network.KindPointToPoint, network.Form{CoreCount: 12})
	if !errors.Is(err, ErrNothingToSubmit) {
		t.Fatalf("expected ErrNothingToSubmit, got %v", err)
	}

	s.Selection.AppendVertex(pt(0, 0))
	s.Selection.AppendVertex(pt(1, 1))
	_, err = h.workflow.Submit(context.Background(), s, network.KindHome, network.Form{CoreColor: "Blue"})
	if k, _ := KindOf(err); k != ErrorValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = h.workflow.Submit(context.Background(), s, network.KindPointToPoint, network.Form{CoreCount: 7})
	if k, _ := KindOf(err); k != ErrorValidation {
		t.Fatalf("expected validation error for core count, got %v", err)
	}
	if h.backend.calls != 0 {
		t.Fatalf("invalid forms should not reach the backend")
	}
	if s.Selection.State() != StateMultiPoint {
		t.Fatalf("failed submit should keep the draft")
	}
}

func TestSubmitBackendRejection(t *testing.T) {
	h := newHarness(time.Millisecond)
	h.backend.create = func(context.Context, network.Payload) (network.Element, error) {
		return network.Element{}, &backend.APIError{Status: http.StatusBadRequest, Message: "name already taken"}
	}
	s := h.registry.Create()
	s.Selection.SetCoordinates([]geo.Coordinate{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}})

	_, err := h.workflow.Submit(context.Background(), s, network.KindPointToPoint, network.Form{CoreCount: 2})
	if k, _ := KindOf(err); k != ErrorValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := lastNotice(t, s); n.Message != "name already taken" {
		t.Fatalf("expected backend message, got %#v", n)
	}

	h.backend.create = func(context.Context, network.Payload) (network.Element, error) {
		return network.Element{}, errors.New("connection reset")
	}
	_, err = h.workflow.Submit(context.Background(), s, network.KindPointToPoint, network.Form{CoreCount: 2})
	if k, _ := KindOf(err); k != ErrorTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestSubmitOptions(t *testing.T) {
	h := newHarness(time.Millisecond)
	parent := network.Element{ID: "p", Kind: network.KindPointToPoint, TotalCore: 4, Children: []network.Child{{Color: "Orange"}}}
	h.collection.Add(parent)

	s := h.registry.Create()
	opts := h.workflow.SubmitOptions(s)
	if len(opts.Kinds) != 0 || len(opts.CoreColors) != 0 {
		t.Fatalf("empty draft should offer nothing: %#v", opts)
	}

	if err := h.workflow.SelectParent(s, "p", pt(1, 1)); err != nil {
		t.Fatalf("select parent: %v", err)
	}
	opts = h.workflow.SubmitOptions(s)
	if !slices.Equal(opts.Kinds, []network.Kind{network.KindReseller, network.KindCompany}) {
		t.Fatalf("unexpected kinds %v", opts.Kinds)
	}
	if slices.Contains(opts.CoreColors, "Orange") || len(opts.CoreColors) != 3 {
		t.Fatalf("unexpected colors %v", opts.CoreColors)
	}

	if err := h.workflow.SelectParent(s, "missing", nil); err == nil {
		t.Fatalf("expected unknown element to fail")
	}
}

func TestDeleteRefreshes(t *testing.T) {
	h := newHarness(time.Millisecond)
	var gotKind network.Kind
	var gotID string
	h.backend.remove = func(_ context.Context, kind network.Kind, id string) error {
		gotKind, gotID = kind, id
		return nil
	}
	if err := h.workflow.Delete(context.Background(), network.KindHome, "h1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotKind != network.KindHome || gotID != "h1" || h.collection.Trigger() != 1 {
		t.Fatalf("unexpected delete %s %s trigger=%d", gotKind, gotID, h.collection.Trigger())
	}

	h.backend.remove = func(context.Context, network.Kind, string) error { return backend.ErrNotFound }
	if k, _ := KindOf(h.workflow.Delete(context.Background(), network.KindHome, "h1")); k != ErrorNotFound {
		t.Fatalf("expected not_found")
	}
}

func TestSubmitKeepsDraftStartedWhileSaving(t *testing.T) {
	h := newHarness(time.Millisecond)
	started := make(chan struct{})
	release := make(chan struct{})
	h.backend.create = func(_ context.Context, p network.Payload) (network.Element, error) {
		close(started)
		<-release
		return network.Element{ID: "ptp-1", Kind: p.Kind, Coordinates: p.Coordinates}, nil
	}

	s := h.registry.Create()
	s.Selection.AppendVertex(pt(0, 0))
	s.Selection.AppendVertex(pt(1, 1))

	type result struct {
		saved network.Element
		err   error
	}
	done := make(chan result, 1)
	go func() {
		saved, err := h.workflow.Submit(context.Background(), s, network.KindPointToPoint, network.Form{CoreCount: 12})
		done <- result{saved, err}
	}()

	<-started
	s.Selection.Reset()
	s.Selection.AppendVertex(pt(5, 5))
	s.Selection.AppendVertex(pt(6, 6))
	close(release)

	res := <-done
	if res.err != nil || res.saved.ID != "ptp-1" {
		t.Fatalf("submit: %#v %v", res.saved, res.err)
	}
	want := []geo.Coordinate{{Lat: 5, Lng: 5}, {Lat: 6, Lng: 6}}
	if got := s.Selection.Snapshot().Coordinates; !slices.Equal(got, want) {
		t.Fatalf("newer draft was lost: got %v, want %v", got, want)
	}
	if _, ok := h.collection.Get("ptp-1"); !ok {
		t.Fatalf("saved element should still be collected")
	}
}

func TestSubmitRejectsFullParent(t *testing.T) {
	h := newHarness(time.Millisecond)
	parent := network.Element{
		ID: "p", Kind: network.KindPointToPoint, TotalCore: 2,
		Children: []network.Child{{Color: "Blue"}, {Color: "Orange"}},
	}
	h.collection.Add(parent)
	s := h.registry.Create()
	s.Selection.SelectParent(parent, pt(1, 1))

	_, err := h.workflow.Submit(context.Background(), s, network.KindCompany, network.Form{Name: "acme"})
	if k, _ := KindOf(err); k != ErrorValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if h.backend.calls != 0 {
		t.Fatalf("a full parent should not reach the backend")
	}
}
