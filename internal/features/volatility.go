package features

import (
	"math"

	"github.com/bnzr-team/grinder-sub003/internal/market"
)

// ATR is the simple average true range over the last period bars. It
// needs period+1 closed bars for the previous-close term and reports
// false when the window is short.
func ATR(bars []market.Bar, period int) (float64, bool) {
	if period < 1 || len(bars) < period+1 {
		return 0, false
	}
	start := len(bars) - period
	sum := 0.0
	for i := start; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr := bars[i].High - bars[i].Low
		if hc := math.Abs(bars[i].High - prevClose); hc > tr {
			tr = hc
		}
		if lc := math.Abs(bars[i].Low - prevClose); lc > tr {
			tr = lc
		}
		sum += tr
	}
	return sum / float64(period), true
}

// NATR normalizes ATR by the latest close so volatility is comparable
// across symbols.
func NATR(bars []market.Bar, period int) (float64, bool) {
	atr, ok := ATR(bars, period)
	if !ok {
		return 0, false
	}
	last := bars[len(bars)-1].Close
	if last <= 0 {
		return 0, false
	}
	return atr / last, true
}
