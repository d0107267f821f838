package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCounters(t *testing.T) {
	prom := NewPrometheus()
	prom.Metrics.CyclesEvaluated.Inc()
	prom.Metrics.SnapshotsConsumed.Inc()
	prom.Metrics.PlansEmitted.Inc()
	prom.Metrics.PlansSuppressed.Inc()
	prom.Metrics.RecordsRejected.Inc()
	prom.Metrics.SymbolsExcluded.Inc()
	prom.Metrics.ToxicityTripped.Inc()
	prom.Metrics.CapsAdjusted.Inc()
	prom.Metrics.EmergencyEntered.Inc()
	prom.Metrics.PauseEngaged.Inc()
	prom.Metrics.PauseReleased.Inc()
	prom.Metrics.CheckpointsSaved.Inc()

	assertCounter(t, prom.cyclesEvaluated, 1)
	assertCounter(t, prom.snapshotsConsumed, 1)
	assertCounter(t, prom.plansEmitted, 1)
	assertCounter(t, prom.plansSuppressed, 1)
	assertCounter(t, prom.recordsRejected, 1)
	assertCounter(t, prom.symbolsExcluded, 1)
	assertCounter(t, prom.toxicityTripped, 1)
	assertCounter(t, prom.capsAdjusted, 1)
	assertCounter(t, prom.emergencyEntered, 1)
	assertCounter(t, prom.pauseEngaged, 1)
	assertCounter(t, prom.pauseReleased, 1)
	assertCounter(t, prom.checkpointsSaved, 1)
}

func TestNoopMetricsAreSafe(t *testing.T) {
	m := NewNoop()
	m.CyclesEvaluated.Inc()
	m.PlansEmitted.Inc()
	m.RecordsRejected.Inc()
}

func assertCounter(t *testing.T, counter prometheus.Counter, expected float64) {
	t.Helper()
	if got := testutil.ToFloat64(counter); got != expected {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}
