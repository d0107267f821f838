package universe

import (
	"testing"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/features"
)

func selectorConfig() *config.Config {
	return &config.Config{
		Toxicity: config.ToxicityConfig{SpreadCeilingBps: 25},
		Select: config.SelectConfig{
			K:                   3,
			WRange:              1,
			WLiquidity:          1,
			WToxicity:           1,
			WTrend:              0.5,
			RangeCap:            20,
			LiqRefUSD:           50000,
			ThinGateNotionalUSD: 10000,
			MaxAbsFunding:       0.002,
		},
	}
}

func healthyCandidate(symbol string) Candidate {
	return Candidate{
		Symbol: symbol,
		Features: features.Vector{
			Symbol:        symbol,
			Mid:           10000,
			SpreadBps:     2,
			ThinQtyL1:     25,
			NATR:          0.001,
			HasNATR:       true,
			RangeScore:    10,
			TrendStrength: 0.1,
			HasRangeTrend: true,
		},
	}
}

func TestSelectGateReasons(t *testing.T) {
	s := NewSelector(selectorConfig())

	stale := healthyCandidate("AAAUSDT")
	stale.Stale = true

	warmup := healthyCandidate("BBBUSDT")
	warmup.Features.HasNATR = false

	toxic := healthyCandidate("CCCUSDT")
	toxic.Toxicity = features.GateResult{Severity: features.SeverityHigh, Reasons: []string{"spread_spike"}}

	thin := healthyCandidate("DDDUSDT")
	thin.Features.ThinQtyL1 = 0.5

	wide := healthyCandidate("EEEUSDT")
	wide.Features.SpreadBps = 26

	funded := healthyCandidate("FFFUSDT")
	funded.Features.FundingRate = 0.01
	funded.Features.HasFunding = true

	sel := s.Select([]Candidate{funded, wide, thin, toxic, warmup, stale, healthyCandidate("GGGUSDT")})

	if len(sel.Selected) != 1 || sel.Selected[0].Symbol != "GGGUSDT" {
		t.Fatalf("expected only the healthy symbol, got %+v", sel.Selected)
	}
	want := map[string]string{
		"AAAUSDT": "stale_feed",
		"BBBUSDT": "warmup",
		"CCCUSDT": "toxicity_high",
		"DDDUSDT": "thin_book",
		"EEEUSDT": "spread_ceiling",
		"FFFUSDT": "extreme_funding",
	}
	if len(sel.Excluded) != len(want) {
		t.Fatalf("expected %d exclusions, got %+v", len(want), sel.Excluded)
	}
	for _, ex := range sel.Excluded {
		if want[ex.Symbol] != ex.Reason {
			t.Fatalf("%s: expected reason %s, got %s", ex.Symbol, want[ex.Symbol], ex.Reason)
		}
	}
}

func TestSelectExclusionsWalkSymbolsInOrder(t *testing.T) {
	s := NewSelector(selectorConfig())
	a := healthyCandidate("AAAUSDT")
	a.Stale = true
	b := healthyCandidate("BBBUSDT")
	b.Stale = true
	sel := s.Select([]Candidate{b, a})
	if sel.Excluded[0].Symbol != "AAAUSDT" || sel.Excluded[1].Symbol != "BBBUSDT" {
		t.Fatalf("expected symbol-ordered exclusions, got %+v", sel.Excluded)
	}
}

func TestSelectTakesTopKWithAudit(t *testing.T) {
	s := NewSelector(selectorConfig())
	// Range score rises with the symbol letter, so ranking reverses
	// the alphabet.
	symbols := []string{"AAAUSDT", "BBBUSDT", "CCCUSDT", "DDDUSDT", "EEEUSDT"}
	candidates := make([]Candidate, len(symbols))
	for i, sym := range symbols {
		c := healthyCandidate(sym)
		c.Features.RangeScore = float64(2 + 4*i)
		candidates[i] = c
	}
	sel := s.Select(candidates)
	if len(sel.Selected) != 3 {
		t.Fatalf("expected 3 selected, got %d", len(sel.Selected))
	}
	got := []string{sel.Selected[0].Symbol, sel.Selected[1].Symbol, sel.Selected[2].Symbol}
	wantOrder := []string{"EEEUSDT", "DDDUSDT", "CCCUSDT"}
	for i := range wantOrder {
		if got[i] != wantOrder[i] {
			t.Fatalf("rank %d: expected %s, got %s", i, wantOrder[i], got[i])
		}
	}
	dropped := map[string]bool{}
	for _, ex := range sel.Excluded {
		if ex.Reason != "below_top_k" {
			t.Fatalf("unexpected exclusion %+v", ex)
		}
		dropped[ex.Symbol] = true
	}
	if !dropped["AAAUSDT"] || !dropped["BBBUSDT"] {
		t.Fatalf("expected the two weakest symbols dropped, got %+v", sel.Excluded)
	}
}

func TestSelectTieBreaksBySymbolAscending(t *testing.T) {
	s := NewSelector(selectorConfig())
	candidates := []Candidate{
		healthyCandidate("DDDUSDT"),
		healthyCandidate("BBBUSDT"),
		healthyCandidate("AAAUSDT"),
		healthyCandidate("CCCUSDT"),
	}
	for run := 0; run < 5; run++ {
		sel := s.Select(candidates)
		if len(sel.Selected) != 3 {
			t.Fatalf("run %d: expected 3 selected, got %d", run, len(sel.Selected))
		}
		got := []string{sel.Selected[0].Symbol, sel.Selected[1].Symbol, sel.Selected[2].Symbol}
		want := []string{"AAAUSDT", "BBBUSDT", "CCCUSDT"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("run %d rank %d: expected %s, got %s", run, i, want[i], got[i])
			}
		}
		if sel.Excluded[0].Symbol != "DDDUSDT" || sel.Excluded[0].Reason != "below_top_k" {
			t.Fatalf("run %d: expected DDDUSDT dropped by tie-break, got %+v", run, sel.Excluded)
		}
	}
}

func TestSelectScoreFormula(t *testing.T) {
	s := NewSelector(selectorConfig())
	c := healthyCandidate("BTCUSDT")
	c.Features.RangeScore = 10
	c.Features.TrendStrength = 0.2
	c.Toxicity = features.GateResult{Severity: features.SeverityMid, Reasons: []string{"spread_wide"}}

	sel := s.Select([]Candidate{c})
	if len(sel.Selected) != 1 {
		t.Fatalf("expected selection, got %+v", sel.Excluded)
	}
	got := sel.Selected[0]
	// 1*0.5 (range) + 1*1 (liquidity saturated) - 1*0.25 (MID) - 0.5*0.2.
	want := 0.5 + 1 - 0.25 - 0.1
	if got.Score != want {
		t.Fatalf("expected score %v, got %v", want, got.Score)
	}
	if got.Liquidity != 1 || got.ToxPenalty != 0.25 {
		t.Fatalf("expected components 1/0.25, got %v/%v", got.Liquidity, got.ToxPenalty)
	}
}

func TestSelectLiquidityImpactDiscount(t *testing.T) {
	s := NewSelector(selectorConfig())
	c := healthyCandidate("BTCUSDT")
	c.Features.HasBook = true
	c.Features.ImpactBuyBps = features.ImpactSentinelBps
	c.Features.ImpactInsufficient = true

	sel := s.Select([]Candidate{c})
	if len(sel.Selected) != 1 {
		t.Fatalf("expected selection, got %+v", sel.Excluded)
	}
	if sel.Selected[0].Liquidity != 0.5 {
		t.Fatalf("expected sentinel impact to halve liquidity, got %v", sel.Selected[0].Liquidity)
	}
}
