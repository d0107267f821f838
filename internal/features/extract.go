package features

import (
	"github.com/shopspring/decimal"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/market"
)

// Extractor turns a market snapshot plus bar history into a feature
// vector. It is stateless; all windows come in as arguments so the same
// inputs always yield the same vector.
type Extractor struct {
	atrPeriod    int
	emaFast      int
	emaSlow      int
	rangeHorizon int
	trendNorm    float64
	depthLevels  int
	qtyRef       decimal.Decimal
}

func NewExtractor(cfg config.FeaturesConfig) (*Extractor, error) {
	qtyRef, err := decimal.NewFromString(cfg.ImpactQtyRef)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		atrPeriod:    cfg.ATRPeriod,
		emaFast:      cfg.EMAFast,
		emaSlow:      cfg.EMASlow,
		rangeHorizon: cfg.RangeHorizonBars,
		trendNorm:    cfg.TrendNormPct,
		depthLevels:  cfg.DepthLevels,
		qtyRef:       qtyRef,
	}, nil
}

func (e *Extractor) Extract(snap market.Snapshot, bars []market.Bar) Vector {
	v := Vector{
		Symbol:      snap.Symbol,
		TS:          snap.TS,
		Mid:         snap.Mid().InexactFloat64(),
		SpreadBps:   SpreadBps(snap.Bid, snap.Ask),
		ImbalanceL1: ImbalanceL1(snap.BidQty, snap.AskQty),
		ThinQtyL1:   ThinQtyL1(snap.BidQty, snap.AskQty),
		FundingRate: snap.FundingRate,
		HasFunding:  snap.HasFunding,
	}

	v.ATR, v.HasNATR = ATR(bars, e.atrPeriod)
	if v.HasNATR {
		v.NATR, v.HasNATR = NATR(bars, e.atrPeriod)
	}
	rangeScore, okRange := RangeScore(bars, e.rangeHorizon)
	trend, okTrend := TrendStrength(bars, e.emaFast, e.emaSlow, e.trendNorm)
	if okRange && okTrend {
		v.RangeScore = rangeScore
		v.TrendStrength = trend
		v.HasRangeTrend = true
	}
	v.LastBarReturn, v.HasLastBarReturn = LastBarReturn(bars)

	if snap.Book != nil {
		v.HasBook = true
		bidDepth := DepthQty(snap.Book.Bids, e.depthLevels)
		askDepth := DepthQty(snap.Book.Asks, e.depthLevels)
		v.DepthBidQty = bidDepth.InexactFloat64()
		v.DepthAskQty = askDepth.InexactFloat64()
		v.DepthImbalanceBps = DepthImbalanceBps(bidDepth, askDepth)
		buyBps, buyShort := ImpactBps(snap.Book.Asks, e.qtyRef)
		sellBps, sellShort := ImpactBps(snap.Book.Bids, e.qtyRef)
		v.ImpactBuyBps = buyBps
		v.ImpactSellBps = sellBps
		v.ImpactInsufficient = buyShort || sellShort
		v.WallBidX1000 = WallScoreX1000(snap.Book.Bids, e.depthLevels)
		v.WallAskX1000 = WallScoreX1000(snap.Book.Asks, e.depthLevels)
	}
	return v
}
