package regime

import (
	"testing"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/features"
)

func regimeCfg() config.RegimeConfig {
	return config.RegimeConfig{
		NATRShock:       0.004,
		ThinNotionalUSD: 25000,
		TrendThreshold:  0.35,
	}
}

func healthyVector() features.Vector {
	return features.Vector{
		Symbol:        "BTCUSDT",
		Mid:           70000,
		SpreadBps:     1,
		ThinQtyL1:     2,
		NATR:          0.001,
		HasNATR:       true,
		RangeScore:    8,
		TrendStrength: 0.1,
		HasRangeTrend: true,
	}
}

func TestClassifyRangeByDefault(t *testing.T) {
	h := NewHeuristic(regimeCfg())
	d := h.Classify(Input{Features: healthyVector()})
	if d.Regime != Range {
		t.Fatalf("expected RANGE, got %s", d.Regime)
	}
	if len(d.Reasons) != 1 || d.Reasons[0] != "range_default" {
		t.Fatalf("expected range_default reason, got %v", d.Reasons)
	}
	if d.Confidence <= 0.8 {
		t.Fatalf("expected high confidence for weak trend, got %v", d.Confidence)
	}
}

func TestClassifyTrendBySign(t *testing.T) {
	h := NewHeuristic(regimeCfg())

	up := healthyVector()
	up.TrendStrength = 0.6
	d := h.Classify(Input{Features: up})
	if d.Regime != TrendUp {
		t.Fatalf("expected TREND_UP, got %s", d.Regime)
	}
	if d.Confidence != 0.6 {
		t.Fatalf("expected confidence 0.6, got %v", d.Confidence)
	}

	down := healthyVector()
	down.TrendStrength = -0.6
	d = h.Classify(Input{Features: down})
	if d.Regime != TrendDown {
		t.Fatalf("expected TREND_DOWN, got %s", d.Regime)
	}
	if d.Confidence != 0.6 {
		t.Fatalf("expected confidence 0.6, got %v", d.Confidence)
	}
}

func TestClassifyVolShockBeatsTrend(t *testing.T) {
	h := NewHeuristic(regimeCfg())
	v := healthyVector()
	v.TrendStrength = 0.9
	v.NATR = 0.008
	d := h.Classify(Input{Features: v})
	if d.Regime != VolShock {
		t.Fatalf("expected VOL_SHOCK over TREND_UP, got %s", d.Regime)
	}
	if d.Reasons[0] != "vol_shock" {
		t.Fatalf("expected vol_shock reason, got %v", d.Reasons)
	}
}

func TestClassifyThinBookBeatsVolShock(t *testing.T) {
	h := NewHeuristic(regimeCfg())
	v := healthyVector()
	v.NATR = 0.008
	v.ThinQtyL1 = 0.0001
	d := h.Classify(Input{Features: v})
	if d.Regime != ThinBook {
		t.Fatalf("expected THIN_BOOK over VOL_SHOCK, got %s", d.Regime)
	}
}

func TestClassifyToxicityHigh(t *testing.T) {
	h := NewHeuristic(regimeCfg())
	d := h.Classify(Input{
		Features: healthyVector(),
		Toxicity: features.GateResult{
			Severity: features.SeverityHigh,
			Action:   features.ActionPause,
			Reasons:  []string{"spread_spike"},
		},
	})
	if d.Regime != Toxic {
		t.Fatalf("expected TOXIC, got %s", d.Regime)
	}
	if len(d.Reasons) != 2 || d.Reasons[0] != "toxicity_high" || d.Reasons[1] != "spread_spike" {
		t.Fatalf("expected trigger plus gate reasons, got %v", d.Reasons)
	}
}

func TestClassifyExtremeEscalatesToEmergency(t *testing.T) {
	h := NewHeuristic(regimeCfg())
	d := h.Classify(Input{
		Features: healthyVector(),
		Toxicity: features.GateResult{
			Severity: features.SeverityExtreme,
			Action:   features.ActionEmergency,
			Reasons:  []string{"price_jump_extreme"},
		},
	})
	if d.Regime != Emergency {
		t.Fatalf("expected EMERGENCY, got %s", d.Regime)
	}
	if d.Reasons[0] != "toxicity_extreme" {
		t.Fatalf("expected toxicity_extreme trigger, got %v", d.Reasons)
	}
}

func TestClassifyKillSwitch(t *testing.T) {
	h := NewHeuristic(regimeCfg())
	d := h.Classify(Input{KillSwitch: true, Features: healthyVector()})
	if d.Regime != Emergency {
		t.Fatalf("expected EMERGENCY, got %s", d.Regime)
	}
	if d.Reasons[0] != "kill_switch" {
		t.Fatalf("expected kill_switch reason, got %v", d.Reasons)
	}
}

func TestClassifyPausedShortCircuitsEverything(t *testing.T) {
	h := NewHeuristic(regimeCfg())
	d := h.Classify(Input{
		Paused:     true,
		KillSwitch: true,
		Toxicity:   features.GateResult{Severity: features.SeverityExtreme},
		Features:   healthyVector(),
	})
	if d.Regime != Paused {
		t.Fatalf("expected PAUSED to win, got %s", d.Regime)
	}
	if d.Reasons[0] != "operator_paused" {
		t.Fatalf("expected operator_paused reason, got %v", d.Reasons)
	}
}

func TestClassifyMissingTrendFallsToRange(t *testing.T) {
	h := NewHeuristic(regimeCfg())
	v := healthyVector()
	v.HasRangeTrend = false
	v.HasNATR = false
	d := h.Classify(Input{Features: v})
	if d.Regime != Range {
		t.Fatalf("expected RANGE during warmup, got %s", d.Regime)
	}
	if d.Confidence != 0.5 {
		t.Fatalf("expected reduced confidence, got %v", d.Confidence)
	}
}

func TestRulesInIsolation(t *testing.T) {
	cfg := regimeCfg()

	if _, ok := RulePaused(cfg, Input{Features: healthyVector()}); ok {
		t.Fatalf("RulePaused claimed an unpaused input")
	}
	if d, ok := RulePaused(cfg, Input{Paused: true}); !ok || d.Regime != Paused {
		t.Fatalf("RulePaused: expected PAUSED, got %v %v", d.Regime, ok)
	}

	if _, ok := RuleVolShock(cfg, Input{Features: healthyVector()}); ok {
		t.Fatalf("RuleVolShock claimed calm volatility")
	}
	shocked := healthyVector()
	shocked.NATR = cfg.NATRShock
	if d, ok := RuleVolShock(cfg, Input{Features: shocked}); !ok || d.Regime != VolShock {
		t.Fatalf("RuleVolShock: expected VOL_SHOCK at threshold, got %v %v", d.Regime, ok)
	}

	warming := healthyVector()
	warming.HasRangeTrend = false
	if _, ok := RuleTrend(cfg, Input{Features: warming}); ok {
		t.Fatalf("RuleTrend claimed an input without trend data")
	}
	if d, ok := RuleRange(cfg, Input{Features: warming}); !ok || d.Regime != Range {
		t.Fatalf("RuleRange must be total, got %v %v", d.Regime, ok)
	}
}

func TestPlanModes(t *testing.T) {
	cases := []struct {
		regime Regime
		mode   PlanMode
	}{
		{Range, PlanFull},
		{TrendUp, PlanFull},
		{TrendDown, PlanFull},
		{VolShock, PlanProtective},
		{ThinBook, PlanProtective},
		{Toxic, PlanNone},
		{Paused, PlanNone},
		{Emergency, PlanNone},
	}
	for _, tc := range cases {
		if got := tc.regime.Mode(); got != tc.mode {
			t.Fatalf("%s: expected mode %d, got %d", tc.regime, tc.mode, got)
		}
	}
}
