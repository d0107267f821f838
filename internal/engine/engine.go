package engine

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/features"
	"github.com/bnzr-team/grinder-sub003/internal/grid"
	"github.com/bnzr-team/grinder-sub003/internal/market"
	"github.com/bnzr-team/grinder-sub003/internal/metrics"
	"github.com/bnzr-team/grinder-sub003/internal/regime"
	"github.com/bnzr-team/grinder-sub003/internal/universe"
)

// AccountState is caller-supplied telemetry for the caps stage. The
// engine never talks to an exchange; whoever runs it decides what the
// current exposure is.
type AccountState struct {
	EquityUSD            float64
	InventoryNotionalUSD map[string]float64
	PortfolioNotionalUSD float64
	OpenOrders           map[string]int
	OpenOrdersPortfolio  int
}

// CycleInput drives one evaluation pass. NowMS is the only clock the
// engine ever sees.
type CycleInput struct {
	NowMS      int64
	Paused     bool
	KillSwitch bool
	Account    AccountState
}

// CycleResult is everything one pass produced: plans in symbol order
// for the selected set, the selection audit, and the per-symbol
// decisions and vectors for sinks.
type CycleResult struct {
	TS        int64
	Plans     []grid.Plan
	Selection universe.Selection
	Decisions map[string]regime.Decision
	Features  map[string]features.Vector
}

// Engine wires the per-symbol pipelines to the cross-symbol stages.
// Cycle is a pure function of (ingested snapshots, config, input); all
// ordering is lexicographic by symbol.
type Engine struct {
	cfg        *config.Config
	log        *zap.Logger
	metrics    *metrics.Metrics
	extractor  *features.Extractor
	classifier regime.Classifier
	assembler  *grid.Assembler
	selector   *universe.Selector

	symbols   []string
	pipelines map[string]*SymbolPipeline
}

func New(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*Engine, error) {
	extractor, err := features.NewExtractor(cfg.Features)
	if err != nil {
		return nil, err
	}
	symbols := append([]string(nil), cfg.Engine.Symbols...)
	sort.Strings(symbols)
	pipelines := make(map[string]*SymbolPipeline, len(symbols))
	for _, sym := range symbols {
		pipelines[sym] = NewSymbolPipeline(sym, cfg.Engine.BarIntervalMin, cfg.Engine.LookbackBars)
	}
	return &Engine{
		cfg:        cfg,
		log:        log,
		metrics:    m,
		extractor:  extractor,
		classifier: regime.NewHeuristic(cfg.Regime),
		assembler:  grid.NewAssembler(cfg),
		selector:   universe.NewSelector(cfg),
		symbols:    symbols,
		pipelines:  pipelines,
	}, nil
}

// Ingest routes one parsed snapshot to its pipeline.
func (e *Engine) Ingest(snap market.Snapshot) error {
	p, ok := e.pipelines[snap.Symbol]
	if !ok {
		return ErrUnknownSymbol
	}
	if err := p.Apply(snap); err != nil {
		return err
	}
	e.metrics.SnapshotsConsumed.Inc()
	return nil
}

// Symbols returns the configured universe in evaluation order.
func (e *Engine) Symbols() []string {
	return append([]string(nil), e.symbols...)
}

type symbolEval struct {
	candidate universe.Candidate
	decision  regime.Decision
	mid       decimal.Decimal
	hasSnap   bool
}

// Cycle runs stages one through thirteen: per-symbol evaluation fans
// out across goroutines into index-addressed slots, the selection
// barrier joins them, and plan assembly walks the selected symbols in
// lexicographic order so the order-rate cap threads deterministically.
func (e *Engine) Cycle(in CycleInput) CycleResult {
	evals := make([]symbolEval, len(e.symbols))
	var wg sync.WaitGroup
	for i, sym := range e.symbols {
		wg.Add(1)
		go func(slot int, p *SymbolPipeline) {
			defer wg.Done()
			evals[slot] = e.evaluate(p, in)
		}(i, e.pipelines[sym])
	}
	wg.Wait()

	res := CycleResult{
		TS:        in.NowMS,
		Plans:     []grid.Plan{},
		Decisions: make(map[string]regime.Decision, len(e.symbols)),
		Features:  make(map[string]features.Vector, len(e.symbols)),
	}
	candidates := make([]universe.Candidate, len(evals))
	bySymbol := make(map[string]*symbolEval, len(evals))
	for i := range evals {
		ev := &evals[i]
		candidates[i] = ev.candidate
		bySymbol[ev.candidate.Symbol] = ev
		res.Decisions[ev.candidate.Symbol] = ev.decision
		res.Features[ev.candidate.Symbol] = ev.candidate.Features
		if ev.candidate.Toxicity.Severity >= features.SeverityHigh {
			e.metrics.ToxicityTripped.Inc()
		}
		if ev.decision.Regime == regime.Emergency {
			e.metrics.EmergencyEntered.Inc()
		}
	}

	res.Selection = e.selector.Select(candidates)
	for range res.Selection.Excluded {
		e.metrics.SymbolsExcluded.Inc()
	}
	alloc := universe.Allocate(e.cfg.Budget, res.Selection.Selected)

	selected := make([]string, 0, len(res.Selection.Selected))
	for _, s := range res.Selection.Selected {
		selected = append(selected, s.Symbol)
	}
	sort.Strings(selected)

	ordersUsed := 0
	for _, sym := range selected {
		ev := bySymbol[sym]
		plan, ok := e.assembler.Build(grid.BuildInput{
			TS:        in.NowMS,
			Mid:       ev.mid,
			Features:  ev.candidate.Features,
			Decision:  ev.decision,
			BudgetUSD: alloc[sym],
			Caps: grid.CapsInput{
				EquityUSD:            in.Account.EquityUSD,
				InventoryNotionalUSD: in.Account.InventoryNotionalUSD[sym],
				PortfolioNotionalUSD: in.Account.PortfolioNotionalUSD,
				OpenOrdersSymbol:     in.Account.OpenOrders[sym],
				OpenOrdersPortfolio:  in.Account.OpenOrdersPortfolio,
				OrdersUsedCycle:      ordersUsed,
			},
		})
		if !ok {
			e.metrics.PlansSuppressed.Inc()
			continue
		}
		ordersUsed += len(plan.SizeSchedule)
		if len(plan.CapsApplied) > 0 {
			e.metrics.CapsAdjusted.Inc()
		}
		res.Plans = append(res.Plans, plan)
		e.metrics.PlansEmitted.Inc()
	}

	e.metrics.CyclesEvaluated.Inc()
	e.log.Debug("cycle evaluated",
		zap.Int64("ts_ms", in.NowMS),
		zap.Int("selected", len(selected)),
		zap.Int("plans", len(res.Plans)),
		zap.Int("excluded", len(res.Selection.Excluded)))
	return res
}

// evaluate runs the per-symbol stages. It never blocks and reads only
// its own pipeline, which is what makes the fan-out safe.
func (e *Engine) evaluate(p *SymbolPipeline, in CycleInput) symbolEval {
	ev := symbolEval{}
	snap, ok := p.Last()
	stale := !ok || in.NowMS-snap.TS > e.cfg.Engine.StaleAfter.Milliseconds()

	var vector features.Vector
	if ok {
		vector = e.extractor.Extract(snap, p.Bars())
		ev.mid = snap.Mid()
		ev.hasSnap = true
	} else {
		vector = features.Vector{Symbol: p.symbol}
	}

	tox := features.Toxicity(e.cfg.Toxicity, vector, stale)
	ev.candidate = universe.Candidate{
		Symbol:   p.symbol,
		Stale:    stale,
		Toxicity: tox,
		Features: vector,
	}
	ev.decision = e.classifier.Classify(regime.Input{
		Paused:     in.Paused,
		KillSwitch: in.KillSwitch,
		Toxicity:   tox,
		Features:   vector,
	})
	return ev
}

// States snapshots every pipeline for checkpointing.
func (e *Engine) States() map[string]PipelineState {
	out := make(map[string]PipelineState, len(e.symbols))
	for _, sym := range e.symbols {
		out[sym] = e.pipelines[sym].State()
	}
	return out
}

// RestoreStates rebuilds pipelines from a checkpoint; symbols missing
// from the checkpoint keep their fresh pipelines.
func (e *Engine) RestoreStates(states map[string]PipelineState) {
	for sym, st := range states {
		if p, ok := e.pipelines[sym]; ok {
			p.Restore(st, e.cfg.Engine.LookbackBars)
		}
	}
}
