package features

// Vector is the per-symbol feature snapshot consumed by regime
// classification, selection scoring and grid construction. Every block
// that can be unavailable carries a Has flag; consumers must check the
// flag instead of reading zeros.
type Vector struct {
	Symbol string
	TS     int64

	// L1 block, always present for a parsed snapshot.
	Mid         float64
	SpreadBps   int64
	ImbalanceL1 float64
	ThinQtyL1   float64

	// Volatility block, needs atr_period+1 closed bars.
	ATR     float64
	NATR    float64
	HasNATR bool

	// Range/trend block, needs the slow EMA window.
	RangeScore    float64
	TrendStrength float64
	HasRangeTrend bool

	// Last closed-bar return, needs two closed bars.
	LastBarReturn    float64
	HasLastBarReturn bool

	// L2 block, present only when the snapshot carried a book.
	HasBook            bool
	DepthBidQty        float64
	DepthAskQty        float64
	DepthImbalanceBps  int64
	ImpactBuyBps       int64
	ImpactSellBps      int64
	ImpactInsufficient bool
	WallBidX1000       int64
	WallAskX1000       int64

	// Funding passthrough when the feed carries it.
	FundingRate float64
	HasFunding  bool
}
