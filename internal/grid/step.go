package grid

import (
	"math"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/regime"
)

// Step is the grid spacing as a price fraction. Volatility sets the
// spacing, shocked regimes widen it, and the floor keeps quiet symbols
// from collapsing into dust-sized rungs.
func Step(cfg config.GridConfig, r regime.Regime, natr float64) float64 {
	step := cfg.Alpha * natr * shockMultiplier(cfg, r)
	if step < cfg.StepMinPct {
		step = cfg.StepMinPct
	}
	return step
}

func shockMultiplier(cfg config.GridConfig, r regime.Regime) float64 {
	switch r {
	case regime.VolShock:
		return cfg.ShockStepMult
	case regime.ThinBook:
		return cfg.ThinStepMult
	default:
		return 1
	}
}

// Levels is ceil(width/step) clamped to the configured band. The upper
// clamp bounds worst-case order count at low volatility.
func Levels(cfg config.GridConfig, widthPct, stepPct float64) int {
	levels := cfg.LevelsMin
	if stepPct > 0 {
		levels = int(math.Ceil(widthPct / stepPct))
	}
	if levels < cfg.LevelsMin {
		levels = cfg.LevelsMin
	}
	if levels > cfg.LevelsMax {
		levels = cfg.LevelsMax
	}
	return levels
}
