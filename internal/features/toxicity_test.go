package features

import (
	"testing"

	"github.com/bnzr-team/grinder-sub003/internal/config"
)

func toxCfg() config.ToxicityConfig {
	return config.ToxicityConfig{
		SpreadCeilingBps: 25,
		SpreadSpikeMult:  2,
		JumpNATRMult:     3,
		JumpExtremeMult:  6,
		ImpactAlertBps:   40,
	}
}

func TestToxicityCleanVectorIsLow(t *testing.T) {
	v := Vector{SpreadBps: 5, HasNATR: true, NATR: 0.002, HasLastBarReturn: true, LastBarReturn: 0.001}
	res := Toxicity(toxCfg(), v, false)
	if res.Severity != SeverityLow || res.Action != ActionNormal {
		t.Fatalf("expected LOW/NORMAL, got %v/%v", res.Severity, res.Action)
	}
	if len(res.Reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", res.Reasons)
	}
}

func TestToxicityStaleFeedIsHigh(t *testing.T) {
	res := Toxicity(toxCfg(), Vector{SpreadBps: 5}, true)
	if res.Severity != SeverityHigh || res.Action != ActionPause {
		t.Fatalf("expected HIGH/PAUSE, got %v/%v", res.Severity, res.Action)
	}
	if len(res.Reasons) != 1 || res.Reasons[0] != "stale_feed" {
		t.Fatalf("expected stale_feed reason, got %v", res.Reasons)
	}
}

func TestToxicitySpreadLevels(t *testing.T) {
	wide := Toxicity(toxCfg(), Vector{SpreadBps: 30}, false)
	if wide.Severity != SeverityMid || wide.Action != ActionThrottle {
		t.Fatalf("expected MID/THROTTLE for wide spread, got %v/%v", wide.Severity, wide.Action)
	}
	spike := Toxicity(toxCfg(), Vector{SpreadBps: 51}, false)
	if spike.Severity != SeverityHigh {
		t.Fatalf("expected HIGH for spread spike, got %v", spike.Severity)
	}
}

func TestToxicityJumpEscalates(t *testing.T) {
	v := Vector{SpreadBps: 5, HasNATR: true, NATR: 0.002, HasLastBarReturn: true, LastBarReturn: -0.007}
	res := Toxicity(toxCfg(), v, false)
	if res.Severity != SeverityHigh {
		t.Fatalf("expected HIGH for 3.5x natr jump, got %v", res.Severity)
	}
	v.LastBarReturn = -0.013
	res = Toxicity(toxCfg(), v, false)
	if res.Severity != SeverityExtreme || res.Action != ActionEmergency {
		t.Fatalf("expected EXTREME/EMERGENCY for 6.5x natr jump, got %v/%v", res.Severity, res.Action)
	}
}

func TestToxicityImpactRules(t *testing.T) {
	short := Vector{SpreadBps: 5, HasBook: true, ImpactInsufficient: true}
	res := Toxicity(toxCfg(), short, false)
	if res.Severity != SeverityHigh {
		t.Fatalf("expected HIGH for insufficient depth, got %v", res.Severity)
	}
	elevated := Vector{SpreadBps: 5, HasBook: true, ImpactBuyBps: 45, ImpactSellBps: 10}
	res = Toxicity(toxCfg(), elevated, false)
	if res.Severity != SeverityMid {
		t.Fatalf("expected MID for elevated impact, got %v", res.Severity)
	}
}

func TestToxicityMissingDataNeverTripsJump(t *testing.T) {
	// Without NATR the jump rule must stay silent instead of reading zeros.
	v := Vector{SpreadBps: 5, HasLastBarReturn: true, LastBarReturn: 0.5}
	res := Toxicity(toxCfg(), v, false)
	if res.Severity != SeverityLow {
		t.Fatalf("expected LOW without natr, got %v", res.Severity)
	}
}

func TestToxicityKeepsAllReasons(t *testing.T) {
	v := Vector{
		SpreadBps:          60,
		HasNATR:            true,
		NATR:               0.002,
		HasLastBarReturn:   true,
		LastBarReturn:      0.02,
		HasBook:            true,
		ImpactInsufficient: true,
	}
	res := Toxicity(toxCfg(), v, true)
	if res.Severity != SeverityExtreme {
		t.Fatalf("expected EXTREME, got %v", res.Severity)
	}
	want := []string{"stale_feed", "spread_spike", "price_jump_extreme", "impact_depth"}
	if len(res.Reasons) != len(want) {
		t.Fatalf("expected %d reasons, got %v", len(want), res.Reasons)
	}
	for i, reason := range want {
		if res.Reasons[i] != reason {
			t.Fatalf("expected reason %q at %d, got %v", reason, i, res.Reasons)
		}
	}
}
