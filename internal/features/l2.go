package features

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bnzr-team/grinder-sub003/internal/market"
)

// ImpactSentinelBps is reported when the walked side cannot absorb the
// reference quantity. Callers get the flag as well; the sentinel keeps
// downstream arithmetic total.
const ImpactSentinelBps = 500

// WallNeutralX1000 is the wall score when a side has fewer than three
// levels; max/median is meaningless on tiny samples.
const WallNeutralX1000 = 1000

// DepthQty sums resting quantity over the first n levels of a side.
func DepthQty(levels []market.Level, n int) decimal.Decimal {
	if n > len(levels) {
		n = len(levels)
	}
	total := decimal.Zero
	for _, lvl := range levels[:n] {
		total = total.Add(lvl.Qty)
	}
	return total
}

// DepthImbalanceBps is (bid_depth-ask_depth)/(bid_depth+ask_depth) in
// basis points, clamped to [-10000, 10000].
func DepthImbalanceBps(bidDepth, askDepth decimal.Decimal) int64 {
	denom := bidDepth.Add(askDepth)
	if denom.Sign() <= 0 {
		return 0
	}
	bps := bidDepth.Sub(askDepth).Div(denom).Mul(bpsScale).Round(0).IntPart()
	if bps > 10000 {
		return 10000
	}
	if bps < -10000 {
		return -10000
	}
	return bps
}

// ImpactBps walks a marketable order of qtyRef through one book side
// and reports VWAP slippage past the touch in basis points. The second
// result is true when the side lacks depth for the full quantity, in
// which case the sentinel is returned.
func ImpactBps(side []market.Level, qtyRef decimal.Decimal) (int64, bool) {
	if len(side) == 0 || qtyRef.Sign() <= 0 {
		return ImpactSentinelBps, true
	}
	remaining := qtyRef
	cost := decimal.Zero
	for _, lvl := range side {
		fill := lvl.Qty
		if fill.GreaterThan(remaining) {
			fill = remaining
		}
		cost = cost.Add(lvl.Price.Mul(fill))
		remaining = remaining.Sub(fill)
		if remaining.Sign() <= 0 {
			break
		}
	}
	if remaining.Sign() > 0 {
		return ImpactSentinelBps, true
	}
	vwap := cost.Div(qtyRef)
	touch := side[0].Price
	bps := vwap.Sub(touch).Abs().Div(touch).Mul(bpsScale).Round(0).IntPart()
	return bps, false
}

// WallScoreX1000 is max(qty)/median(qty) over the first n levels,
// scaled by 1000. Sides with fewer than three levels score neutral.
func WallScoreX1000(levels []market.Level, n int) int64 {
	if n > len(levels) {
		n = len(levels)
	}
	if n < 3 {
		return WallNeutralX1000
	}
	qtys := make([]decimal.Decimal, n)
	maxQty := levels[0].Qty
	for i := 0; i < n; i++ {
		qtys[i] = levels[i].Qty
		if levels[i].Qty.GreaterThan(maxQty) {
			maxQty = levels[i].Qty
		}
	}
	sort.Slice(qtys, func(i, j int) bool { return qtys[i].LessThan(qtys[j]) })
	var median decimal.Decimal
	if n%2 == 1 {
		median = qtys[n/2]
	} else {
		median = qtys[n/2-1].Add(qtys[n/2]).Div(decimal.NewFromInt(2))
	}
	if median.Sign() <= 0 {
		return WallNeutralX1000
	}
	return maxQty.Div(median).Mul(decimal.NewFromInt(1000)).Round(0).IntPart()
}
