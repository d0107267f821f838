package universe

import (
	"math"
	"sort"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/features"
)

// Candidate is one symbol's state at the selection barrier. Stale is
// decided upstream from snapshot age; the selector never reads clocks.
type Candidate struct {
	Symbol   string
	Stale    bool
	Toxicity features.GateResult
	Features features.Vector
}

// Scored carries the selection score plus the components the budget
// allocator reuses.
type Scored struct {
	Symbol     string
	Score      float64
	Liquidity  float64
	ToxPenalty float64
}

type Exclusion struct {
	Symbol string
	Reason string
}

// Selection is the cross-symbol result: ranked survivors capped at K,
// and every dropped symbol with the reason that dropped it.
type Selection struct {
	Selected []Scored
	Excluded []Exclusion
}

// Selector applies the hard gates, scores survivors and keeps the top
// K. All ordering is deterministic: candidates are walked in symbol
// order and ranking ties break by symbol ascending.
type Selector struct {
	cfg              config.SelectConfig
	spreadCeilingBps int64
}

func NewSelector(cfg *config.Config) *Selector {
	return &Selector{cfg: cfg.Select, spreadCeilingBps: cfg.Toxicity.SpreadCeilingBps}
}

func (s *Selector) Select(candidates []Candidate) Selection {
	ordered := append([]Candidate(nil), candidates...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Symbol < ordered[j].Symbol })

	sel := Selection{Selected: []Scored{}, Excluded: []Exclusion{}}
	for _, c := range ordered {
		if reason, ok := s.gate(c); !ok {
			sel.Excluded = append(sel.Excluded, Exclusion{Symbol: c.Symbol, Reason: reason})
			continue
		}
		sel.Selected = append(sel.Selected, s.score(c))
	}
	sort.SliceStable(sel.Selected, func(i, j int) bool {
		if sel.Selected[i].Score != sel.Selected[j].Score {
			return sel.Selected[i].Score > sel.Selected[j].Score
		}
		return sel.Selected[i].Symbol < sel.Selected[j].Symbol
	})
	if s.cfg.K > 0 && len(sel.Selected) > s.cfg.K {
		for _, dropped := range sel.Selected[s.cfg.K:] {
			sel.Excluded = append(sel.Excluded, Exclusion{Symbol: dropped.Symbol, Reason: "below_top_k"})
		}
		sel.Selected = sel.Selected[:s.cfg.K]
	}
	return sel
}

// gate drops a symbol before scoring. The first tripped gate names the
// exclusion; order here fixes which reason wins when several apply.
func (s *Selector) gate(c Candidate) (string, bool) {
	if c.Stale {
		return "stale_feed", false
	}
	v := c.Features
	if !v.HasNATR || !v.HasRangeTrend {
		return "warmup", false
	}
	if c.Toxicity.Severity >= features.SeverityHigh {
		return "toxicity_high", false
	}
	if v.ThinQtyL1*v.Mid < s.cfg.ThinGateNotionalUSD {
		return "thin_book", false
	}
	if s.spreadCeilingBps > 0 && v.SpreadBps > s.spreadCeilingBps {
		return "spread_ceiling", false
	}
	if s.cfg.MaxAbsFunding > 0 && v.HasFunding && math.Abs(v.FundingRate) > s.cfg.MaxAbsFunding {
		return "extreme_funding", false
	}
	return "", true
}

func (s *Selector) score(c Candidate) Scored {
	v := c.Features
	rangeNorm := v.RangeScore / s.cfg.RangeCap
	if rangeNorm > 1 {
		rangeNorm = 1
	}
	if rangeNorm < 0 {
		rangeNorm = 0
	}
	liq := s.liquidity(v)
	tox := ToxPenalty(c.Toxicity.Severity)
	score := s.cfg.WRange*rangeNorm + s.cfg.WLiquidity*liq -
		s.cfg.WToxicity*tox - s.cfg.WTrend*math.Abs(v.TrendStrength)
	return Scored{Symbol: c.Symbol, Score: score, Liquidity: liq, ToxPenalty: tox}
}

// liquidity is the L1 thin proxy normalized against a reference
// notional, discounted by up to half when book impact is costly.
func (s *Selector) liquidity(v features.Vector) float64 {
	liq := v.ThinQtyL1 * v.Mid / s.cfg.LiqRefUSD
	if liq > 1 {
		liq = 1
	}
	if v.HasBook {
		worst := v.ImpactBuyBps
		if v.ImpactSellBps > worst {
			worst = v.ImpactSellBps
		}
		if worst > features.ImpactSentinelBps {
			worst = features.ImpactSentinelBps
		}
		liq *= 1 - 0.5*float64(worst)/float64(features.ImpactSentinelBps)
	}
	return liq
}

// ToxPenalty grades surviving severities for scoring and budget
// weighting; HIGH and above never reach scoring.
func ToxPenalty(sev features.Severity) float64 {
	switch sev {
	case features.SeverityLow:
		return 0
	case features.SeverityMid:
		return 0.25
	default:
		return 1
	}
}
