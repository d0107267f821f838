package features

import "github.com/shopspring/decimal"

// eps guards denominators in ratio features. Fixed so replays of the
// same stream can never disagree.
const eps = 1e-9

var bpsScale = decimal.NewFromInt(10000)

// SpreadBps is (ask-bid)/mid in basis points, computed in exact decimal
// and rounded half away from zero at the integer-bps boundary.
func SpreadBps(bid, ask decimal.Decimal) int64 {
	mid := bid.Add(ask).Div(decimal.NewFromInt(2))
	return ask.Sub(bid).Div(mid).Mul(bpsScale).Round(0).IntPart()
}

// ImbalanceL1 is (bid_qty-ask_qty)/(bid_qty+ask_qty+eps) in [-1, 1].
func ImbalanceL1(bidQty, askQty decimal.Decimal) float64 {
	b := bidQty.InexactFloat64()
	a := askQty.InexactFloat64()
	return (b - a) / (b + a + eps)
}

// ThinQtyL1 is min(bid_qty, ask_qty), the single-level thinness proxy.
func ThinQtyL1(bidQty, askQty decimal.Decimal) float64 {
	if bidQty.LessThan(askQty) {
		return bidQty.InexactFloat64()
	}
	return askQty.InexactFloat64()
}
