package regime

import (
	"math"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/features"
)

// Input bundles everything a classification reads. Latches are supplied
// by the caller; classification itself keeps no memory between cycles.
type Input struct {
	Paused     bool
	KillSwitch bool
	Toxicity   features.GateResult
	Features   features.Vector
}

// Decision carries the regime plus the reason codes that fired it, first
// code being the trigger.
type Decision struct {
	Regime     Regime
	Reasons    []string
	Confidence float64
}

// Classifier is the plug point for alternative scorers; the heuristic
// below is the deterministic default.
type Classifier interface {
	Classify(in Input) Decision
}

// Rule is one precedence entry: it either claims the input with a
// decision or passes to the next rule.
type Rule func(cfg config.RegimeConfig, in Input) (Decision, bool)

// Heuristic evaluates an ordered rule list, first match wins. The final
// rule is total, so Classify always returns a decision.
type Heuristic struct {
	cfg   config.RegimeConfig
	rules []Rule
}

func NewHeuristic(cfg config.RegimeConfig) *Heuristic {
	return &Heuristic{
		cfg: cfg,
		rules: []Rule{
			RulePaused,
			RuleKillSwitch,
			RuleToxicityExtreme,
			RuleToxicityHigh,
			RuleThinBook,
			RuleVolShock,
			RuleTrend,
			RuleRange,
		},
	}
}

func (h *Heuristic) Classify(in Input) Decision {
	for _, rule := range h.rules {
		if d, ok := rule(h.cfg, in); ok {
			return d
		}
	}
	return Decision{Regime: Range, Reasons: []string{"range_default"}, Confidence: 0.5}
}

func RulePaused(_ config.RegimeConfig, in Input) (Decision, bool) {
	if !in.Paused {
		return Decision{}, false
	}
	return Decision{Regime: Paused, Reasons: []string{"operator_paused"}, Confidence: 1}, true
}

func RuleKillSwitch(_ config.RegimeConfig, in Input) (Decision, bool) {
	if !in.KillSwitch {
		return Decision{}, false
	}
	return Decision{Regime: Emergency, Reasons: []string{"kill_switch"}, Confidence: 1}, true
}

func RuleToxicityExtreme(_ config.RegimeConfig, in Input) (Decision, bool) {
	if in.Toxicity.Severity < features.SeverityExtreme {
		return Decision{}, false
	}
	return Decision{
		Regime:     Emergency,
		Reasons:    append([]string{"toxicity_extreme"}, in.Toxicity.Reasons...),
		Confidence: 1,
	}, true
}

func RuleToxicityHigh(_ config.RegimeConfig, in Input) (Decision, bool) {
	if in.Toxicity.Severity < features.SeverityHigh {
		return Decision{}, false
	}
	return Decision{
		Regime:     Toxic,
		Reasons:    append([]string{"toxicity_high"}, in.Toxicity.Reasons...),
		Confidence: 0.9,
	}, true
}

func RuleThinBook(cfg config.RegimeConfig, in Input) (Decision, bool) {
	if in.Features.ThinQtyL1*in.Features.Mid >= cfg.ThinNotionalUSD {
		return Decision{}, false
	}
	return Decision{Regime: ThinBook, Reasons: []string{"thin_book"}, Confidence: 0.9}, true
}

func RuleVolShock(cfg config.RegimeConfig, in Input) (Decision, bool) {
	if !in.Features.HasNATR || in.Features.NATR < cfg.NATRShock {
		return Decision{}, false
	}
	return Decision{Regime: VolShock, Reasons: []string{"vol_shock"}, Confidence: 0.9}, true
}

func RuleTrend(cfg config.RegimeConfig, in Input) (Decision, bool) {
	if !in.Features.HasRangeTrend {
		return Decision{}, false
	}
	strength := in.Features.TrendStrength
	if strength >= cfg.TrendThreshold {
		return Decision{Regime: TrendUp, Reasons: []string{"trend_up"}, Confidence: strength}, true
	}
	if strength <= -cfg.TrendThreshold {
		return Decision{Regime: TrendDown, Reasons: []string{"trend_down"}, Confidence: -strength}, true
	}
	return Decision{}, false
}

// RuleRange is total: with trend data it grades confidence by how far
// the symbol sits from the trend threshold, during warmup it claims the
// input at reduced confidence.
func RuleRange(_ config.RegimeConfig, in Input) (Decision, bool) {
	confidence := 0.5
	if in.Features.HasRangeTrend {
		confidence = 1 - math.Abs(in.Features.TrendStrength)
	}
	return Decision{Regime: Range, Reasons: []string{"range_default"}, Confidence: confidence}, true
}
