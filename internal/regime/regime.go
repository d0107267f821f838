package regime

// Regime is the discrete market state driving grid construction.
type Regime string

const (
	Range     Regime = "RANGE"
	TrendUp   Regime = "TREND_UP"
	TrendDown Regime = "TREND_DOWN"
	VolShock  Regime = "VOL_SHOCK"
	ThinBook  Regime = "THIN_BOOK"
	Toxic     Regime = "TOXIC"
	Paused    Regime = "PAUSED"
	Emergency Regime = "EMERGENCY"
)

type PlanMode int

const (
	// PlanFull: full grid geometry and size schedule.
	PlanFull PlanMode = iota
	// PlanProtective: geometry only, empty size schedule, reduce-only bias.
	PlanProtective
	// PlanNone: no plan; the collaborator must cancel and stop.
	PlanNone
)

// Mode maps a regime to its plan output behavior.
func (r Regime) Mode() PlanMode {
	switch r {
	case Range, TrendUp, TrendDown:
		return PlanFull
	case VolShock, ThinBook:
		return PlanProtective
	default:
		return PlanNone
	}
}
