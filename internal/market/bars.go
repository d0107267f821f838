package market

// Bar is one closed mid-price bar. OHLC values are plain floats; bars
// feed statistical indicators, not money math.
type Bar struct {
	Start int64   `msgpack:"start" json:"start"`
	Open  float64 `msgpack:"open" json:"open"`
	High  float64 `msgpack:"high" json:"high"`
	Low   float64 `msgpack:"low" json:"low"`
	Close float64 `msgpack:"close" json:"close"`
}

// BarBuilderState is the serializable snapshot of a builder, used for
// checkpoint save/restore.
type BarBuilderState struct {
	IntervalMS int64 `msgpack:"interval_ms" json:"interval_ms"`
	Bars       []Bar `msgpack:"bars" json:"bars"`
	Open       *Bar  `msgpack:"open_bar" json:"open_bar"`
}

// BarBuilder folds a stream of (ts, mid) updates into fixed-interval
// bars and retains a bounded window of closed ones, oldest first.
type BarBuilder struct {
	intervalMS int64
	capacity   int
	open       *Bar
	bars       []Bar
}

func NewBarBuilder(intervalMin, lookbackBars int) *BarBuilder {
	if intervalMin < 1 {
		intervalMin = 1
	}
	if lookbackBars < 1 {
		lookbackBars = 1
	}
	return &BarBuilder{
		intervalMS: int64(intervalMin) * 60_000,
		capacity:   lookbackBars,
	}
}

// Apply folds one update into the current bar. It returns the closed
// bar when the update crosses a bar boundary. Updates older than the
// open bar are dropped; ordering is the feed's contract, not repaired
// here.
func (b *BarBuilder) Apply(tsMS int64, mid float64) (Bar, bool) {
	bucket := tsMS - tsMS%b.intervalMS
	if b.open == nil {
		b.open = &Bar{Start: bucket, Open: mid, High: mid, Low: mid, Close: mid}
		return Bar{}, false
	}
	if bucket < b.open.Start {
		return Bar{}, false
	}
	if bucket == b.open.Start {
		if mid > b.open.High {
			b.open.High = mid
		}
		if mid < b.open.Low {
			b.open.Low = mid
		}
		b.open.Close = mid
		return Bar{}, false
	}
	closed := *b.open
	b.push(closed)
	b.open = &Bar{Start: bucket, Open: mid, High: mid, Low: mid, Close: mid}
	return closed, true
}

func (b *BarBuilder) push(bar Bar) {
	b.bars = append(b.bars, bar)
	if len(b.bars) > b.capacity {
		b.bars = b.bars[len(b.bars)-b.capacity:]
	}
}

// Bars returns a copy of the closed-bar window, oldest first.
func (b *BarBuilder) Bars() []Bar {
	out := make([]Bar, len(b.bars))
	copy(out, b.bars)
	return out
}

func (b *BarBuilder) Len() int {
	return len(b.bars)
}

func (b *BarBuilder) State() BarBuilderState {
	st := BarBuilderState{IntervalMS: b.intervalMS, Bars: b.Bars()}
	if b.open != nil {
		open := *b.open
		st.Open = &open
	}
	return st
}

func RestoreBarBuilder(st BarBuilderState, lookbackBars int) *BarBuilder {
	intervalMin := int(st.IntervalMS / 60_000)
	b := NewBarBuilder(intervalMin, lookbackBars)
	for _, bar := range st.Bars {
		b.push(bar)
	}
	if st.Open != nil {
		open := *st.Open
		b.open = &open
	}
	return b
}
