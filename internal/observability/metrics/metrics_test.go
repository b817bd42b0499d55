package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPlatformMetricsObserve(t *testing.T) {
	m := NewPlatformMetrics(prometheus.NewRegistry())
	m.ObserveChatTurn("schedule", "ok", 0.25)
	m.ObserveWorkflowRun("completed", "")
	m.ObserveAnalysis(false)
	m.ObserveAnalysis(true)
	m.ObserveBookingAttempt("booked")
}

func TestPlatformMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPlatformMetrics(reg)
	m.ObserveWorkflowRun("failed", "find_slots")

	fams, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, f := range fams {
		if f.GetName() == "practice_workflow_runs_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected workflow counter to be registered")
	}
}

func TestPlatformMetricsNilSafe(t *testing.T) {
	var m *PlatformMetrics
	m.ObserveChatTurn("schedule", "ok", 0.1)
	m.ObserveWorkflowRun("completed", "")
	m.ObserveAnalysis(false)
	m.ObserveBookingAttempt("conflict")
}
