package features

import (
	"math"

	"github.com/bnzr-team/grinder-sub003/internal/config"
)

type Severity int

const (
	SeverityLow Severity = iota
	SeverityMid
	SeverityHigh
	SeverityExtreme
)

func (s Severity) String() string {
	switch s {
	case SeverityMid:
		return "MID"
	case SeverityHigh:
		return "HIGH"
	case SeverityExtreme:
		return "EXTREME"
	default:
		return "LOW"
	}
}

type Action string

const (
	ActionNormal    Action = "NORMAL"
	ActionThrottle  Action = "THROTTLE"
	ActionPause     Action = "PAUSE"
	ActionEmergency Action = "EMERGENCY"
)

// GateResult is the toxicity verdict for one symbol: the worst severity
// across all triggers, the action it maps to and the reason codes that
// fired, in rule order.
type GateResult struct {
	Severity Severity
	Action   Action
	Reasons  []string
}

// Toxicity combines spread spikes, book impact, jump magnitude and feed
// staleness into a single severity. Rules only raise severity; the
// mapping to an action is fixed.
func Toxicity(cfg config.ToxicityConfig, v Vector, feedStale bool) GateResult {
	res := GateResult{Severity: SeverityLow}

	if feedStale {
		res.raise(SeverityHigh, "stale_feed")
	}
	if cfg.SpreadCeilingBps > 0 {
		spike := int64(float64(cfg.SpreadCeilingBps) * cfg.SpreadSpikeMult)
		if v.SpreadBps > spike {
			res.raise(SeverityHigh, "spread_spike")
		} else if v.SpreadBps > cfg.SpreadCeilingBps {
			res.raise(SeverityMid, "spread_wide")
		}
	}
	if v.HasLastBarReturn && v.HasNATR && v.NATR > 0 {
		jump := math.Abs(v.LastBarReturn) / v.NATR
		if jump >= cfg.JumpExtremeMult {
			res.raise(SeverityExtreme, "price_jump_extreme")
		} else if jump >= cfg.JumpNATRMult {
			res.raise(SeverityHigh, "price_jump")
		}
	}
	if v.HasBook {
		if v.ImpactInsufficient {
			res.raise(SeverityHigh, "impact_depth")
		} else if worstImpact(v) > cfg.ImpactAlertBps {
			res.raise(SeverityMid, "impact_elevated")
		}
	}

	res.Action = actionFor(res.Severity)
	return res
}

func worstImpact(v Vector) int64 {
	if v.ImpactBuyBps > v.ImpactSellBps {
		return v.ImpactBuyBps
	}
	return v.ImpactSellBps
}

func (r *GateResult) raise(sev Severity, reason string) {
	if sev > r.Severity {
		r.Severity = sev
	}
	r.Reasons = append(r.Reasons, reason)
}

func actionFor(sev Severity) Action {
	switch sev {
	case SeverityExtreme:
		return ActionEmergency
	case SeverityHigh:
		return ActionPause
	case SeverityMid:
		return ActionThrottle
	default:
		return ActionNormal
	}
}
