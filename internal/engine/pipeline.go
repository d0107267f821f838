package engine

import (
	"errors"

	"github.com/bnzr-team/grinder-sub003/internal/market"
)

var (
	ErrUnknownSymbol = errors.New("engine: symbol not configured")
	ErrOutOfOrder    = errors.New("engine: snapshot older than pipeline head")
)

// SymbolPipeline owns one symbol's cross-cycle state: the bar ring and
// the latest accepted snapshot. Nothing else in the engine persists
// between cycles.
type SymbolPipeline struct {
	symbol  string
	builder *market.BarBuilder
	last    market.Snapshot
	hasLast bool
}

func NewSymbolPipeline(symbol string, intervalMin, lookbackBars int) *SymbolPipeline {
	return &SymbolPipeline{
		symbol:  symbol,
		builder: market.NewBarBuilder(intervalMin, lookbackBars),
	}
}

// Apply folds one snapshot into the pipeline. Timestamps must not move
// backwards; equal timestamps are fine, books update within one
// millisecond.
func (p *SymbolPipeline) Apply(snap market.Snapshot) error {
	if p.hasLast && snap.TS < p.last.TS {
		return ErrOutOfOrder
	}
	mid, _ := snap.Mid().Float64()
	p.builder.Apply(snap.TS, mid)
	p.last = snap
	p.hasLast = true
	return nil
}

// Last returns the newest accepted snapshot.
func (p *SymbolPipeline) Last() (market.Snapshot, bool) {
	return p.last, p.hasLast
}

func (p *SymbolPipeline) Bars() []market.Bar {
	return p.builder.Bars()
}

// PipelineState is the checkpointable view of a pipeline. The snapshot
// itself is not persisted; a restarted runner waits for the next tick.
type PipelineState struct {
	LastTS  int64                  `msgpack:"last_ts"`
	Builder market.BarBuilderState `msgpack:"builder"`
}

func (p *SymbolPipeline) State() PipelineState {
	st := PipelineState{Builder: p.builder.State()}
	if p.hasLast {
		st.LastTS = p.last.TS
	}
	return st
}

// Restore rebuilds the bar ring from a checkpoint. The last snapshot is
// deliberately dropped: it would be stale by restart time anyway.
func (p *SymbolPipeline) Restore(st PipelineState, lookbackBars int) {
	p.builder = market.RestoreBarBuilder(st.Builder, lookbackBars)
	p.hasLast = false
	p.last = market.Snapshot{}
}
