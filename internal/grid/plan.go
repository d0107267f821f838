package grid

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/features"
	"github.com/bnzr-team/grinder-sub003/internal/regime"
)

// Plan is the sole hand-off contract to the execution collaborator.
// SizeSchedule entries are base-asset quantities, never notionals, one
// per rung walking away from mid. Levels equals len(SizeSchedule) when
// sizes are present; protective plans keep the intended geometry with
// an empty schedule.
type Plan struct {
	Symbol       string   `json:"symbol"`
	TS           int64    `json:"ts_ms"`
	Regime       string   `json:"regime"`
	ReasonCodes  []string `json:"reason_codes"`
	WidthUpBps   int64    `json:"width_up_bps"`
	WidthDownBps int64    `json:"width_down_bps"`
	StepBps      int64    `json:"step_bps"`
	Levels       int      `json:"levels"`
	SizeSchedule []string `json:"size_schedule"`
	DDBudgetUSD  string   `json:"dd_budget_usd"`
	CapsApplied  []string `json:"caps_applied"`
}

// BuildInput is everything one plan needs; Mid is the exact decimal mid
// from the snapshot, not the float mirror used for scoring.
type BuildInput struct {
	TS        int64
	Mid       decimal.Decimal
	Features  features.Vector
	Decision  regime.Decision
	BudgetUSD decimal.Decimal
	Caps      CapsInput
}

// Assembler packages stress, step, sizing and caps into plans.
type Assembler struct {
	stress         config.StressConfig
	grid           config.GridConfig
	caps           config.CapsConfig
	barIntervalMin int
}

func NewAssembler(cfg *config.Config) *Assembler {
	return &Assembler{
		stress:         cfg.Stress,
		grid:           cfg.Grid,
		caps:           cfg.Caps,
		barIntervalMin: cfg.Engine.BarIntervalMin,
	}
}

// Build assembles the plan for one selected symbol. The second result
// is false when the regime suppresses output entirely.
func (a *Assembler) Build(in BuildInput) (Plan, bool) {
	mode := in.Decision.Regime.Mode()
	if mode == regime.PlanNone {
		return Plan{}, false
	}
	width := StressWidth(a.stress, in.Decision.Regime, in.Features, a.barIntervalMin)
	step := Step(a.grid, in.Decision.Regime, in.Features.NATR)
	levels := Levels(a.grid, width.DownPct, step)

	plan := Plan{
		Symbol:       in.Features.Symbol,
		TS:           in.TS,
		Regime:       string(in.Decision.Regime),
		ReasonCodes:  append([]string{}, in.Decision.Reasons...),
		WidthUpBps:   roundBps(width.UpPct),
		WidthDownBps: roundBps(width.DownPct),
		StepBps:      roundBps(step),
		Levels:       levels,
		SizeSchedule: []string{},
		DDBudgetUSD:  in.BudgetUSD.StringFixed(2),
		CapsApplied:  []string{},
	}

	if mode == regime.PlanProtective {
		plan.ReasonCodes = append(plan.ReasonCodes, protectiveReasons(in.Decision.Regime)...)
		return plan, true
	}

	prices := LevelPrices(in.Mid, plan.StepBps, levels)
	if len(prices) < levels {
		levels = len(prices)
		plan.Levels = levels
	}
	qtys, err := Schedule(a.grid, prices, plan.StepBps, plan.WidthDownBps, in.BudgetUSD)
	if err != nil {
		if errors.Is(err, ErrDegenerateGrid) {
			plan.ReasonCodes = append(plan.ReasonCodes, "degenerate_geometry", "reduce_only")
			return plan, true
		}
		return Plan{}, false
	}
	res := EnforceCaps(a.caps, a.grid.QtyDecimals, in.Caps, prices, qtys)
	plan.CapsApplied = append(plan.CapsApplied, res.Applied...)
	if res.Escalate {
		plan.ReasonCodes = append(plan.ReasonCodes, "caps_escalated", "reduce_only")
		return plan, true
	}
	plan.Levels = len(res.Qtys)
	schedule := make([]string, len(res.Qtys))
	for i, qty := range res.Qtys {
		schedule[i] = qty.StringFixed(int32(a.grid.QtyDecimals))
	}
	plan.SizeSchedule = schedule
	return plan, true
}

func protectiveReasons(r regime.Regime) []string {
	switch r {
	case regime.VolShock:
		return []string{"adds_disabled", "reduce_only"}
	case regime.ThinBook:
		return []string{"throttle", "reduce_only"}
	}
	return nil
}

// roundBps quantizes a price fraction to integer basis points, half
// away from zero.
func roundBps(pct float64) int64 {
	return int64(math.Round(pct * 10000))
}
