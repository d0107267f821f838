package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "grinder"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry          *prometheus.Registry
	cyclesEvaluated   prometheus.Counter
	snapshotsConsumed prometheus.Counter
	plansEmitted      prometheus.Counter
	plansSuppressed   prometheus.Counter
	recordsRejected   prometheus.Counter
	symbolsExcluded   prometheus.Counter
	toxicityTripped   prometheus.Counter
	capsAdjusted      prometheus.Counter
	emergencyEntered  prometheus.Counter
	pauseEngaged      prometheus.Counter
	pauseReleased     prometheus.Counter
	checkpointsSaved  prometheus.Counter
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	cyclesEvaluated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "cycles_evaluated_total",
		Help:      "Total number of evaluation cycles completed.",
	})
	snapshotsConsumed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "snapshots_consumed_total",
		Help:      "Total number of snapshots accepted into pipelines.",
	})
	plansEmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "plans_emitted_total",
		Help:      "Total number of grid plans emitted.",
	})
	plansSuppressed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "plans_suppressed_total",
		Help:      "Total number of symbols evaluated without a plan.",
	})
	recordsRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "records_rejected_total",
		Help:      "Total number of feed records rejected by the parser.",
	})
	symbolsExcluded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "symbols_excluded_total",
		Help:      "Total number of per-cycle selection exclusions.",
	})
	toxicityTripped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "toxicity_tripped_total",
		Help:      "Total number of toxicity gate trips at HIGH or above.",
	})
	capsAdjusted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "caps_adjusted_total",
		Help:      "Total number of plans adjusted by the caps enforcer.",
	})
	emergencyEntered := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "emergency_entered_total",
		Help:      "Total number of symbol evaluations classified EMERGENCY.",
	})
	pauseEngaged := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "pause_engaged_total",
		Help:      "Total number of operator pause engagements.",
	})
	pauseReleased := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "pause_released_total",
		Help:      "Total number of operator pause releases.",
	})
	checkpointsSaved := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "checkpoints_saved_total",
		Help:      "Total number of pipeline checkpoints persisted.",
	})

	registry.MustRegister(
		cyclesEvaluated, snapshotsConsumed, plansEmitted, plansSuppressed,
		recordsRejected, symbolsExcluded, toxicityTripped, capsAdjusted,
		emergencyEntered, pauseEngaged, pauseReleased, checkpointsSaved,
	)

	m := &Metrics{
		CyclesEvaluated:   promCounter{cyclesEvaluated},
		SnapshotsConsumed: promCounter{snapshotsConsumed},
		PlansEmitted:      promCounter{plansEmitted},
		PlansSuppressed:   promCounter{plansSuppressed},
		RecordsRejected:   promCounter{recordsRejected},
		SymbolsExcluded:   promCounter{symbolsExcluded},
		ToxicityTripped:   promCounter{toxicityTripped},
		CapsAdjusted:      promCounter{capsAdjusted},
		EmergencyEntered:  promCounter{emergencyEntered},
		PauseEngaged:      promCounter{pauseEngaged},
		PauseReleased:     promCounter{pauseReleased},
		CheckpointsSaved:  promCounter{checkpointsSaved},
	}

	return &Prometheus{
		Metrics:           m,
		registry:          registry,
		cyclesEvaluated:   cyclesEvaluated,
		snapshotsConsumed: snapshotsConsumed,
		plansEmitted:      plansEmitted,
		plansSuppressed:   plansSuppressed,
		recordsRejected:   recordsRejected,
		symbolsExcluded:   symbolsExcluded,
		toxicityTripped:   toxicityTripped,
		capsAdjusted:      capsAdjusted,
		emergencyEntered:  emergencyEntered,
		pauseEngaged:      pauseEngaged,
		pauseReleased:     pauseReleased,
		checkpointsSaved:  checkpointsSaved,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
