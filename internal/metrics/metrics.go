package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	nearbyResolutions   *prometheus.CounterVec
	nearbyDuration      *prometheus.HistogramVec
	animationSteps      prometheus.Counter
	submissions         *prometheus.CounterVec
	collectionRefreshes *prometheus.CounterVec
	collectionSize      prometheus.Gauge
	activeSessions      prometheus.Gauge
}

// New creates a fresh Metrics registry with HTTP and editor metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fibermap",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by editor-go",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fibermap",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by editor-go",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	nearbyResolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fibermap",
		Name:      "nearby_resolutions_total",
		Help:      "Nearby connection resolutions by target kind and outcome",
	}, []string{"kind", "outcome"})

	nearbyDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fibermap",
		Name:      "nearby_resolution_duration_seconds",
		Help:      "Time from nearby request to animation start",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"kind"})

	animationSteps := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fibermap",
		Name:      "animation_steps_total",
		Help:      "Vertices applied to drafts by the path animation",
	})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fibermap",
		Name:      "submissions_total",
		Help:      "Draft submissions by element kind and outcome",
	}, []string{"kind", "outcome"})

	collectionRefreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fibermap",
		Name:      "collection_refreshes_total",
		Help:      "Full element collection reloads by outcome",
	}, []string{"outcome"})

	collectionSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fibermap",
		Name:      "collection_elements",
		Help:      "Elements currently held in the collection",
	})

	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fibermap",
		Name:      "editor_sessions",
		Help:      "Open editor sessions",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		nearbyResolutions,
		nearbyDuration,
		animationSteps,
		submissions,
		collectionRefreshes,
		collectionSize,
		activeSessions,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		nearbyResolutions:   nearbyResolutions,
		nearbyDuration:      nearbyDuration,
		animationSteps:      animationSteps,
		submissions:         submissions,
		collectionRefreshes: collectionRefreshes,
		collectionSize:      collectionSize,
		activeSessions:      activeSessions,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveNearbyResolution records one nearby connection attempt.
func (m *Metrics) ObserveNearbyResolution(kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.nearbyResolutions.WithLabelValues(kind, outcome).Inc()
	m.nearbyDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// IncAnimationStep counts one animated vertex.
func (m *Metrics) IncAnimationStep() {
	if m == nil {
		return
	}
	m.animationSteps.Inc()
}

// IncSubmission counts one draft submission.
func (m *Metrics) IncSubmission(kind, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind, outcome).Inc()
}

// ObserveCollectionRefresh counts a reload and, on success, the resulting size.
func (m *Metrics) ObserveCollectionRefresh(outcome string, size int) {
	if m == nil {
		return
	}
	m.collectionRefreshes.WithLabelValues(outcome).Inc()
	if size >= 0 {
		m.collectionSize.Set(float64(size))
	}
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
