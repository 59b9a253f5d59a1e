package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_nilMetrics(t *testing.T) {
	var m *Metrics
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if got := rr.Body.String(); !strings.Contains(got, "metrics unavailable") {
		t.Fatalf("expected body to mention metrics unavailable, got %q", got)
	}

	// Observers on a nil receiver are no-ops.
	m.ObserveNearbyResolution("ptp", "ok", time.Second)
	m.IncAnimationStep()
	m.IncSubmission("home", "ok")
	m.ObserveCollectionRefresh("ok", 3)
	m.SetActiveSessions(1)
}

func TestHandler_exposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/readyz", http.StatusOK, 12*time.Millisecond)
	m.ObserveNearbyResolution("ptp", "ok", 300*time.Millisecond)
	m.IncAnimationStep()
	m.IncAnimationStep()
	m.IncSubmission("splitter", "error")
	m.ObserveCollectionRefresh("ok", 42)
	m.SetActiveSessions(3)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body := rr.Body.String()
	for _, want := range []string{
		"fibermap_http_requests_total{method=\"GET\",path=\"/readyz\",status=\"200\"} 1",
		"fibermap_nearby_resolutions_total{kind=\"ptp\",outcome=\"ok\"} 1",
		"fibermap_nearby_resolution_duration_seconds_count{kind=\"ptp\"} 1",
		"fibermap_animation_steps_total 2",
		"fibermap_submissions_total{kind=\"splitter\",outcome=\"error\"} 1",
		"fibermap_collection_refreshes_total{outcome=\"ok\"} 1",
		"fibermap_collection_elements 42",
		"fibermap_editor_sessions 3",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output; body=%s", want, body)
		}
	}
}
