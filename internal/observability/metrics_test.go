package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshotIsACopy(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/auth/login", "POST", 200, time.Millisecond)
	m.RecordRequest("/auth/login", "POST", 200, time.Millisecond)
	m.RecordError("/auth/login", "POST", "RATE_LIMITED")
	m.RecordSecurity("RATE_LIMITED")

	snap := m.Snapshot()
	if got := snap.Requests["/auth/login|POST|200"]; got != 2 {
		t.Fatalf("requests = %d", got)
	}
	if got := snap.Errors["/auth/login|POST|RATE_LIMITED"]; got != 1 {
		t.Fatalf("errors = %d", got)
	}
	snap.Security["RATE_LIMITED"] = 99
	if got := m.Snapshot().Security["RATE_LIMITED"]; got != 1 {
		t.Fatalf("snapshot leaked internal map, got %d", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordError("/", "GET", "X")
	m.RecordSecurity("X")
	if s := m.Snapshot(); s.Requests != nil {
		t.Fatalf("expected empty snapshot")
	}
}
