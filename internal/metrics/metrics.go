package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
// All methods are no-ops on a nil receiver.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	scanRuns            *prometheus.CounterVec
	scanFailures        *prometheus.CounterVec
	scanDuration        *prometheus.HistogramVec
	lifecycleEvents     *prometheus.CounterVec
	hookFailures        *prometheus.CounterVec
	snapshotFailures    prometheus.Counter
	devices             *prometheus.GaugeVec
}

// New creates a fresh Metrics registry with HTTP, scan and inventory metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pingpoint",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pingpoint",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	scanRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pingpoint",
		Name:      "scan_runs_total",
		Help:      "Total number of scans attempted per source",
	}, []string{"source"})

	scanFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pingpoint",
		Name:      "scan_failures_total",
		Help:      "Scans that returned an error and were skipped",
	}, []string{"source"})

	scanDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pingpoint",
		Name:      "scan_duration_seconds",
		Help:      "Duration of scans from start to finish",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"source"})

	lifecycleEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pingpoint",
		Name:      "lifecycle_events_total",
		Help:      "Device lifecycle transitions by type",
	}, []string{"type"})

	hookFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pingpoint",
		Name:      "hook_failures_total",
		Help:      "Notification and enrichment side effects that failed",
	}, []string{"hook"})

	snapshotFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pingpoint",
		Name:      "snapshot_write_failures_total",
		Help:      "Snapshot writes that failed and left the previous snapshot in place",
	})

	devices := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pingpoint",
		Name:      "devices",
		Help:      "Known devices by status",
	}, []string{"status"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		scanRuns,
		scanFailures,
		scanDuration,
		lifecycleEvents,
		hookFailures,
		snapshotFailures,
		devices,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		scanRuns:            scanRuns,
		scanFailures:        scanFailures,
		scanDuration:        scanDuration,
		lifecycleEvents:     lifecycleEvents,
		hookFailures:        hookFailures,
		snapshotFailures:    snapshotFailures,
		devices:             devices,
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

// ObserveScan records one scan attempt and its outcome.
func (m *Metrics) ObserveScan(source string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.scanRuns.WithLabelValues(source).Inc()
	m.scanDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err != nil {
		m.scanFailures.WithLabelValues(source).Inc()
	}
}

// IncLifecycleEvent counts one device transition.
func (m *Metrics) IncLifecycleEvent(eventType string) {
	if m == nil {
		return
	}
	m.lifecycleEvents.WithLabelValues(eventType).Inc()
}

// IncHookFailure counts a failed side effect.
func (m *Metrics) IncHookFailure(hook string) {
	if m == nil {
		return
	}
	m.hookFailures.WithLabelValues(hook).Inc()
}

// IncSnapshotFailure counts a failed snapshot write.
func (m *Metrics) IncSnapshotFailure() {
	if m == nil {
		return
	}
	m.snapshotFailures.Inc()
}

// SetDeviceCounts sets the device gauges.
func (m *Metrics) SetDeviceCounts(online, offline int) {
	if m == nil {
		return
	}
	m.devices.WithLabelValues("online").Set(float64(online))
	m.devices.WithLabelValues("offline").Set(float64(offline))
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
