package grid

import (
	"math"
	"testing"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/features"
	"github.com/bnzr-team/grinder-sub003/internal/regime"
)

func stressCfg() config.StressConfig {
	return config.StressConfig{
		HorizonRangeMin: 30,
		HorizonTrendMin: 45,
		HorizonShockMin: 60,
		KTailRange:      2,
		KTailTrend:      2.5,
		KTailShock:      3,
		XMinPct:         0.004,
		XCapPct:         0.06,
		ImpactRefBps:    50,
		L2PenaltyMax:    1.5,
		TrendPenalty:    1.3,
	}
}

func calmVector() features.Vector {
	return features.Vector{Symbol: "BTCUSDT", Mid: 100, NATR: 0.002, HasNATR: true}
}

func TestStressWidthRangeSymmetric(t *testing.T) {
	w := StressWidth(stressCfg(), regime.Range, calmVector(), 1)
	want := 2 * 0.002 * math.Sqrt(30)
	if w.UpPct != want || w.DownPct != want {
		t.Fatalf("expected symmetric width %v, got %v/%v", want, w.UpPct, w.DownPct)
	}
}

func TestStressWidthClampBand(t *testing.T) {
	quiet := calmVector()
	quiet.NATR = 0.00001
	w := StressWidth(stressCfg(), regime.Range, quiet, 1)
	if w.DownPct != 0.004 {
		t.Fatalf("expected floor 0.004, got %v", w.DownPct)
	}

	wild := calmVector()
	wild.NATR = 0.05
	w = StressWidth(stressCfg(), regime.Range, wild, 1)
	if w.DownPct != 0.06 {
		t.Fatalf("expected cap 0.06, got %v", w.DownPct)
	}
}

func TestStressWidthTrendSkew(t *testing.T) {
	cfg := stressCfg()
	w := StressWidth(cfg, regime.TrendUp, calmVector(), 1)
	x := 2.5 * 0.002 * math.Sqrt(45)
	if w.DownPct != x*1.3 {
		t.Fatalf("expected widened down side %v, got %v", x*1.3, w.DownPct)
	}
	if w.UpPct != x/1.3 {
		t.Fatalf("expected narrowed up side %v, got %v", x/1.3, w.UpPct)
	}

	down := StressWidth(cfg, regime.TrendDown, calmVector(), 1)
	if down.UpPct <= down.DownPct {
		t.Fatalf("expected down-trend skew against the move, got %v/%v", down.UpPct, down.DownPct)
	}
}

func TestStressWidthL2PenaltyWidens(t *testing.T) {
	base := StressWidth(stressCfg(), regime.Range, calmVector(), 1)

	costly := calmVector()
	costly.HasBook = true
	costly.ImpactBuyBps = 500
	costly.ImpactSellBps = 3
	w := StressWidth(stressCfg(), regime.Range, costly, 1)
	if w.DownPct != base.DownPct*1.5 {
		t.Fatalf("expected max penalty 1.5x, got %v vs base %v", w.DownPct, base.DownPct)
	}
}

func TestStressWidthWarmupFallsToFloor(t *testing.T) {
	v := calmVector()
	v.HasNATR = false
	w := StressWidth(stressCfg(), regime.Range, v, 1)
	if w.UpPct != 0.004 || w.DownPct != 0.004 {
		t.Fatalf("expected floor on both sides, got %v/%v", w.UpPct, w.DownPct)
	}
}
