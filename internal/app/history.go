package app

import (
	"github.com/bnzr-team/grinder-sub003/internal/engine"
)

// recordHistory fans one cycle's output into the async history writer.
// Enqueue never blocks; rows dropped under backpressure are counted by
// the writer itself.
func (a *App) recordHistory(res engine.CycleResult) {
	if a.history == nil {
		return
	}
	for _, plan := range res.Plans {
		a.history.EnqueuePlan(plan)
	}
	for _, vec := range res.Features {
		a.history.EnqueueVector(vec)
	}
}
