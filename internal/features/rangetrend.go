package features

import (
	"math"

	"github.com/bnzr-team/grinder-sub003/internal/market"
)

// RangeScore measures chop over the last horizon bar returns: the sum
// of absolute returns divided by the absolute net return. High values
// mean the path wandered without going anywhere.
func RangeScore(bars []market.Bar, horizon int) (float64, bool) {
	if horizon < 2 || len(bars) < horizon+1 {
		return 0, false
	}
	start := len(bars) - horizon
	sumAbs := 0.0
	for i := start; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev <= 0 {
			return 0, false
		}
		sumAbs += math.Abs(bars[i].Close/prev - 1)
	}
	first := bars[start-1].Close
	net := math.Abs(bars[len(bars)-1].Close/first - 1)
	return sumAbs / (net + eps), true
}

// TrendStrength is the fast/slow EMA divergence normalized by normPct
// and clamped to [-1, 1]. Sign gives direction, magnitude gives
// conviction; saturation keeps the value comparable across symbols.
func TrendStrength(bars []market.Bar, fast, slow int, normPct float64) (float64, bool) {
	if fast < 1 || slow <= fast || len(bars) < slow || normPct <= 0 {
		return 0, false
	}
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	emaFast := ema(closes, fast)
	emaSlow := ema(closes, slow)
	if emaSlow <= 0 {
		return 0, false
	}
	raw := (emaFast - emaSlow) / emaSlow / normPct
	return clamp(raw, -1, 1), true
}

// ema seeds with the SMA of the first period values, then folds the
// rest with the standard 2/(period+1) multiplier.
func ema(values []float64, period int) float64 {
	if len(values) < period {
		return 0
	}
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	current := seed / float64(period)
	mult := 2.0 / float64(period+1)
	for _, v := range values[period:] {
		current = (v-current)*mult + current
	}
	return current
}

// LastBarReturn is the latest closed bar's close-over-close return.
func LastBarReturn(bars []market.Bar) (float64, bool) {
	if len(bars) < 2 {
		return 0, false
	}
	prev := bars[len(bars)-2].Close
	if prev <= 0 {
		return 0, false
	}
	return bars[len(bars)-1].Close/prev - 1, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
