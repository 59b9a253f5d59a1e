package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fibermap/editor-go/internal/geo"
	"fibermap/editor-go/internal/network"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(zerolog.Nop(), srv.URL, time.Second)
}

func TestNearestPointToPoint_TransposesGeometry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ptp-connection" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		var target geo.Coordinate
		if err := json.Unmarshal([]byte(r.URL.Query().Get("coordinates")), &target); err != nil {
			t.Fatalf("coordinates query is not json: %v", err)
		}
		if target != (geo.Coordinate{Lat: 10, Lng: 20}) {
			t.Fatalf("unexpected target %+v", target)
		}
		_, _ = io.WriteString(w, `{"data":{"location":{"_id":"A","coordinates":[[20,10],[21,11]]}}}`)
	})

	got, err := c.NearestPointToPoint(context.Background(), geo.Coordinate{Lat: 10, Lng: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "A" || len(got.Coordinates) != 2 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got.Coordinates[1] != (geo.Coordinate{Lat: 11, Lng: 21}) {
		t.Fatalf("expected [lng,lat] to become {lat:11,lng:21}, got %+v", got.Coordinates[1])
	}
}

func TestNearestPointToPoint_MissingLocation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{}}`)
	})
	got, err := c.NearestPointToPoint(context.Background(), geo.Coordinate{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "" || got.Coordinates != nil {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestNearestSplitter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/splitter-connection" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"data":{"lastPoint":{"_id":"S","coordinates":[-46.6,-23.5]}}}`)
	})
	got, err := c.NearestSplitter(context.Background(), geo.Coordinate{Lat: -23.4, Lng: -46.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "S" || len(got.Coordinates) != 1 || got.Coordinates[0] != (geo.Coordinate{Lat: -23.5, Lng: -46.6}) {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestListElements(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[
			{"_id":"p1","type":"pointToPoint","totalCore":"12","coordinates":[[1,2],{"lat":3,"lng":4}],
			 "childrens":[{"_id":"r1","type":"reseller","color":"Blue"}]},
			{"_id":"c1","type":"company","coreColor":"Orange","parent":{"_id":"p1"},"portNo":7,"totalCore":2},
			{"_id":"s1","type":"splitter","splitterLimit":"8","parent":null}
		]}`)
	})

	got, err := c.ListElements(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(got))
	}
	p := got[0]
	if p.TotalCore != 12 || p.Coordinates[0] != (geo.Coordinate{Lat: 2, Lng: 1}) || p.Coordinates[1] != (geo.Coordinate{Lat: 3, Lng: 4}) {
		t.Fatalf("unexpected ptp: %+v", p)
	}
	if len(p.Children) != 1 || p.Children[0].Color != "Blue" {
		t.Fatalf("unexpected children: %+v", p.Children)
	}
	if got[1].Color != "Orange" || got[1].Parent != "p1" || got[1].PortNo != "7" {
		t.Fatalf("unexpected company: %+v", got[1])
	}
	if got[2].SplitterLimit != 8 || got[2].Parent != "" {
		t.Fatalf("unexpected splitter: %+v", got[2])
	}
}

func TestCreateElement(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/corporate-connection" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["coreColor"] != "Green" || body["parent"] != "p1" {
			t.Fatalf("unexpected body: %v", body)
		}
		coords, _ := body["coordinates"].([]any)
		first, _ := coords[0].([]any)
		if len(first) != 2 || first[0] != 20.0 || first[1] != 10.0 {
			t.Fatalf("expected [lng,lat] on the wire, got %v", coords)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"_id":"c9","type":"company","coordinates":[[20,10]]}}`)
	})

	e, err := c.CreateElement(context.Background(), network.Payload{
		Kind:        network.KindCompany,
		Parent:      "p1",
		Name:        "acme",
		Color:       "Green",
		Coordinates: []geo.Coordinate{{Lat: 10, Lng: 20}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != "c9" || e.Kind != network.KindCompany || e.Coordinates[0] != (geo.Coordinate{Lat: 10, Lng: 20}) {
		t.Fatalf("unexpected element: %+v", e)
	}
}

func TestCreateElement_ValidationMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"errors":[{"msg":"name is required"}]}`)
	})
	_, err := c.CreateElement(context.Background(), network.Payload{Kind: network.KindPointToPoint})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "name is required" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestDeleteElement(t *testing.T) {
	var gotPath, gotID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotID = r.URL.Query().Get("id")
		if gotID == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.DeleteElement(context.Background(), network.KindSplitter, "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/splitter-connection" || gotID != "s1" {
		t.Fatalf("unexpected request %q id=%q", gotPath, gotID)
	}
	if err := c.DeleteElement(context.Background(), network.KindSplitter, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(zerolog.Nop(), srv.URL, time.Second)
	_, err := c.ListElements(context.Background())
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a plain transport error, got %v", err)
	}
}

func TestNearestLookups_MalformedBody(t *testing.T) {
	bodies := map[string]string{
		"coordinates not a list": `{"data":{"location":{"_id":"A","coordinates":"oops"}}}`,
		"numeric id":             `{"data":{"location":{"_id":42,"coordinates":[[1,2]]}}}`,
		"html":                   `<html>bad gateway</html>`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})
			if _, err := c.NearestPointToPoint(context.Background(), geo.Coordinate{}); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"lastPoint":{"_id":"S","coordinates":{"lat":"x"}}}}`)
	})
	if _, err := c.NearestSplitter(context.Background(), geo.Coordinate{}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for splitter, got %v", err)
	}
}
