package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_nilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveScan("nmap", time.Second, nil)
	m.IncHookFailure("notify")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if got := rr.Body.String(); !strings.Contains(got, "metrics unavailable") {
		t.Fatalf("expected body to mention metrics unavailable, got %q", got)
	}
}

func TestHandler_exposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/api/devices", http.StatusOK, 12*time.Millisecond)
	m.ObserveScan("edgemax", 2*time.Second, nil)
	m.ObserveScan("edgemax", time.Second, errors.New("ssh: handshake failed"))
	m.IncLifecycleEvent("device_joined")
	m.IncHookFailure("notify")
	m.IncSnapshotFailure()
	m.SetDeviceCounts(3, 1)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body := rr.Body.String()
	for _, want := range []string{
		`pingpoint_http_requests_total{method="GET",path="/api/devices",status="200"} 1`,
		`pingpoint_scan_runs_total{source="edgemax"} 2`,
		`pingpoint_scan_failures_total{source="edgemax"} 1`,
		`pingpoint_scan_duration_seconds_count{source="edgemax"} 2`,
		`pingpoint_lifecycle_events_total{type="device_joined"} 1`,
		`pingpoint_hook_failures_total{hook="notify"} 1`,
		`pingpoint_snapshot_write_failures_total 1`,
		`pingpoint_devices{status="online"} 3`,
		`pingpoint_devices{status="offline"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}
