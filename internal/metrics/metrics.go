package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	CyclesEvaluated   Counter
	SnapshotsConsumed Counter
	PlansEmitted      Counter
	PlansSuppressed   Counter
	RecordsRejected   Counter
	SymbolsExcluded   Counter
	ToxicityTripped   Counter
	CapsAdjusted      Counter
	EmergencyEntered  Counter
	PauseEngaged      Counter
	PauseReleased     Counter
	CheckpointsSaved  Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		CyclesEvaluated:   n,
		SnapshotsConsumed: n,
		PlansEmitted:      n,
		PlansSuppressed:   n,
		RecordsRejected:   n,
		SymbolsExcluded:   n,
		ToxicityTripped:   n,
		CapsAdjusted:      n,
		EmergencyEntered:  n,
		PauseEngaged:      n,
		PauseReleased:     n,
		CheckpointsSaved:  n,
	}
}
