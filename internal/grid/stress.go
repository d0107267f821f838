package grid

import (
	"math"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/features"
	"github.com/bnzr-team/grinder-sub003/internal/regime"
)

// Width is the stressed grid coverage per side, as price fractions.
type Width struct {
	UpPct   float64
	DownPct float64
}

// StressWidth models the adverse move over the regime horizon:
// clamp(k_tail * NATR * sqrt(horizon/interval) * l2_penalty, X_min, X_cap).
// Trend regimes skew the result, wider against the trend and narrower
// with it; both sides stay inside the clamp band.
func StressWidth(cfg config.StressConfig, r regime.Regime, v features.Vector, barIntervalMin int) Width {
	if !v.HasNATR || barIntervalMin <= 0 {
		return Width{UpPct: cfg.XMinPct, DownPct: cfg.XMinPct}
	}
	horizon, kTail := horizonFor(cfg, r)
	bars := horizon / float64(barIntervalMin)
	x := clampPct(kTail*v.NATR*math.Sqrt(bars)*l2Penalty(cfg, v), cfg.XMinPct, cfg.XCapPct)
	w := Width{UpPct: x, DownPct: x}
	switch r {
	case regime.TrendUp:
		w.DownPct = clampPct(x*cfg.TrendPenalty, cfg.XMinPct, cfg.XCapPct)
		w.UpPct = clampPct(x/cfg.TrendPenalty, cfg.XMinPct, cfg.XCapPct)
	case regime.TrendDown:
		w.UpPct = clampPct(x*cfg.TrendPenalty, cfg.XMinPct, cfg.XCapPct)
		w.DownPct = clampPct(x/cfg.TrendPenalty, cfg.XMinPct, cfg.XCapPct)
	}
	return w
}

func horizonFor(cfg config.StressConfig, r regime.Regime) (minutes, kTail float64) {
	switch r {
	case regime.TrendUp, regime.TrendDown:
		return float64(cfg.HorizonTrendMin), cfg.KTailTrend
	case regime.VolShock, regime.ThinBook:
		return float64(cfg.HorizonShockMin), cfg.KTailShock
	default:
		return float64(cfg.HorizonRangeMin), cfg.KTailRange
	}
}

// l2Penalty widens stress when walking the reference quantity through
// the book is costly. A book that cannot absorb it carries the impact
// sentinel and lands on the maximum penalty; no book means no penalty.
func l2Penalty(cfg config.StressConfig, v features.Vector) float64 {
	if !v.HasBook || cfg.ImpactRefBps <= 0 {
		return 1
	}
	worst := v.ImpactBuyBps
	if v.ImpactSellBps > worst {
		worst = v.ImpactSellBps
	}
	pen := 1 + float64(worst)/float64(cfg.ImpactRefBps)
	if pen > cfg.L2PenaltyMax {
		pen = cfg.L2PenaltyMax
	}
	return pen
}

func clampPct(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
