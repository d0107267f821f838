package features

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bnzr-team/grinder-sub003/internal/market"
)

func lvl(price, qty string) market.Level {
	return market.Level{Price: decimal.RequireFromString(price), Qty: decimal.RequireFromString(qty)}
}

func TestImpactBpsWalksTheBook(t *testing.T) {
	asks := []market.Level{lvl("70830.00", "0.001"), lvl("70851.25", "0.002")}
	bps, short := ImpactBps(asks, decimal.RequireFromString("0.003"))
	if short {
		t.Fatalf("expected full fill")
	}
	if bps != 2 {
		t.Fatalf("expected 2 bps, got %d", bps)
	}
}

func TestImpactBpsSingleLevelIsZero(t *testing.T) {
	asks := []market.Level{lvl("100", "5"), lvl("101", "5")}
	bps, short := ImpactBps(asks, decimal.RequireFromString("2"))
	if short || bps != 0 {
		t.Fatalf("expected zero slippage at the touch, got %d short=%v", bps, short)
	}
}

func TestImpactBpsInsufficientDepth(t *testing.T) {
	asks := []market.Level{lvl("100", "0.5")}
	bps, short := ImpactBps(asks, decimal.RequireFromString("2"))
	if !short {
		t.Fatalf("expected insufficient depth flag")
	}
	if bps != ImpactSentinelBps {
		t.Fatalf("expected sentinel %d, got %d", ImpactSentinelBps, bps)
	}
}

func TestWallScoreDetectsOutlier(t *testing.T) {
	side := []market.Level{
		lvl("100", "0.120"),
		lvl("99", "2.500"),
		lvl("98", "0.140"),
		lvl("97", "0.160"),
		lvl("96", "0.180"),
	}
	if got := WallScoreX1000(side, 5); got != 15625 {
		t.Fatalf("expected 15625, got %d", got)
	}
}

func TestWallScoreNeutralUnderThreeLevels(t *testing.T) {
	side := []market.Level{lvl("100", "1"), lvl("99", "9")}
	if got := WallScoreX1000(side, 5); got != WallNeutralX1000 {
		t.Fatalf("expected neutral %d, got %d", WallNeutralX1000, got)
	}
}

func TestWallScoreEvenCountUsesMiddlePair(t *testing.T) {
	side := []market.Level{
		lvl("100", "1"),
		lvl("99", "2"),
		lvl("98", "3"),
		lvl("97", "4"),
	}
	// median (2+3)/2 = 2.5, max 4 -> 1600
	if got := WallScoreX1000(side, 4); got != 1600 {
		t.Fatalf("expected 1600, got %d", got)
	}
}

func TestDepthImbalanceBps(t *testing.T) {
	bid := decimal.RequireFromString("3")
	ask := decimal.RequireFromString("1")
	if got := DepthImbalanceBps(bid, ask); got != 5000 {
		t.Fatalf("expected 5000, got %d", got)
	}
	if got := DepthImbalanceBps(ask, bid); got != -5000 {
		t.Fatalf("expected -5000, got %d", got)
	}
	if got := DepthImbalanceBps(bid, decimal.Zero); got != 10000 {
		t.Fatalf("expected clamp at 10000, got %d", got)
	}
}

func TestDepthQtyHonorsLevelCount(t *testing.T) {
	side := []market.Level{lvl("100", "1"), lvl("99", "2"), lvl("98", "4")}
	if got := DepthQty(side, 2); got.String() != "3" {
		t.Fatalf("expected 3, got %s", got)
	}
	if got := DepthQty(side, 10); got.String() != "7" {
		t.Fatalf("expected 7 over all levels, got %s", got)
	}
}
