package market

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const SchemaVersion = 0

const (
	RecordTypeL2   = "l2_snapshot"
	RecordTypeTick = "tick"
)

var (
	ErrSchema    = errors.New("unsupported record schema")
	ErrMalformed = errors.New("malformed record")
)

// Snapshot is the per-symbol engine input built from one feed record.
// Book is nil for tick records; consumers must treat depth features as
// unavailable in that case rather than defaulting them.
type Snapshot struct {
	TS     int64
	Symbol string
	Venue  string

	Bid    decimal.Decimal
	Ask    decimal.Decimal
	BidQty decimal.Decimal
	AskQty decimal.Decimal

	Last    decimal.Decimal
	HasLast bool

	FundingRate float64
	HasFunding  bool

	Book *Book
}

// Mid is the L1 midpoint.
func (s Snapshot) Mid() decimal.Decimal {
	return s.Bid.Add(s.Ask).Div(two)
}

type rawRecord struct {
	Type   string     `json:"type"`
	V      *int       `json:"v"`
	TSMS   int64      `json:"ts_ms"`
	Symbol string     `json:"symbol"`
	Venue  string     `json:"venue"`
	Depth  int        `json:"depth"`
	Bids   [][]string `json:"bids"`
	Asks   [][]string `json:"asks"`

	Bid     string   `json:"bid"`
	Ask     string   `json:"ask"`
	BidQty  string   `json:"bid_qty"`
	AskQty  string   `json:"ask_qty"`
	Last    string   `json:"last"`
	Funding *float64 `json:"funding"`
}

// ParseRecord decodes and validates one feed line. Anything that fails
// validation is rejected with a typed error; records are never repaired.
func ParseRecord(line []byte) (Snapshot, error) {
	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.V == nil || *raw.V != SchemaVersion {
		return Snapshot{}, fmt.Errorf("%w: version %v", ErrSchema, raw.V)
	}
	if raw.TSMS <= 0 {
		return Snapshot{}, fmt.Errorf("%w: ts_ms %d", ErrMalformed, raw.TSMS)
	}
	if raw.Symbol == "" {
		return Snapshot{}, fmt.Errorf("%w: missing symbol", ErrMalformed)
	}
	switch raw.Type {
	case RecordTypeL2:
		return parseL2(raw)
	case RecordTypeTick:
		return parseTick(raw)
	default:
		return Snapshot{}, fmt.Errorf("%w: type %q", ErrSchema, raw.Type)
	}
}

func parseL2(raw rawRecord) (Snapshot, error) {
	if raw.Depth <= 0 {
		return Snapshot{}, fmt.Errorf("%w: depth %d", ErrMalformed, raw.Depth)
	}
	if len(raw.Bids) != raw.Depth || len(raw.Asks) != raw.Depth {
		return Snapshot{}, fmt.Errorf("%w: depth %d with %d bids and %d asks", ErrMalformed, raw.Depth, len(raw.Bids), len(raw.Asks))
	}
	bids, err := parseLevels(raw.Bids)
	if err != nil {
		return Snapshot{}, fmt.Errorf("bids: %w", err)
	}
	asks, err := parseLevels(raw.Asks)
	if err != nil {
		return Snapshot{}, fmt.Errorf("asks: %w", err)
	}
	book := &Book{Symbol: raw.Symbol, TS: raw.TSMS, Venue: raw.Venue, Bids: bids, Asks: asks}
	if err := book.Validate(); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		TS:     raw.TSMS,
		Symbol: raw.Symbol,
		Venue:  raw.Venue,
		Bid:    book.Bids[0].Price,
		Ask:    book.Asks[0].Price,
		BidQty: book.Bids[0].Qty,
		AskQty: book.Asks[0].Qty,
		Book:   book,
	}
	applyFunding(&snap, raw.Funding)
	return snap, nil
}

func parseTick(raw rawRecord) (Snapshot, error) {
	bid, err := parsePositive(raw.Bid, "bid")
	if err != nil {
		return Snapshot{}, err
	}
	ask, err := parsePositive(raw.Ask, "ask")
	if err != nil {
		return Snapshot{}, err
	}
	bidQty, err := parsePositive(raw.BidQty, "bid_qty")
	if err != nil {
		return Snapshot{}, err
	}
	askQty, err := parsePositive(raw.AskQty, "ask_qty")
	if err != nil {
		return Snapshot{}, err
	}
	if bid.GreaterThanOrEqual(ask) {
		return Snapshot{}, fmt.Errorf("bid %s >= ask %s: %w", bid, ask, ErrCrossedBook)
	}
	snap := Snapshot{
		TS:     raw.TSMS,
		Symbol: raw.Symbol,
		Venue:  raw.Venue,
		Bid:    bid,
		Ask:    ask,
		BidQty: bidQty,
		AskQty: askQty,
	}
	if raw.Last != "" {
		last, err := parsePositive(raw.Last, "last")
		if err != nil {
			return Snapshot{}, err
		}
		snap.Last = last
		snap.HasLast = true
	}
	applyFunding(&snap, raw.Funding)
	return snap, nil
}

func applyFunding(snap *Snapshot, funding *float64) {
	if funding == nil {
		return
	}
	snap.FundingRate = *funding
	snap.HasFunding = true
}

func parseLevels(raw [][]string) ([]Level, error) {
	levels := make([]Level, 0, len(raw))
	for i, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: level %d has %d fields", ErrMalformed, i, len(pair))
		}
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("%w: level %d price %q", ErrMalformed, i, pair[0])
		}
		qty, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("%w: level %d qty %q", ErrMalformed, i, pair[1])
		}
		levels = append(levels, Level{Price: price, Qty: qty})
	}
	return levels, nil
}

func parsePositive(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: missing %s", ErrMalformed, field)
	}
	val, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %q", ErrMalformed, field, raw)
	}
	if val.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %s not positive", ErrMalformed, field, raw)
	}
	return val, nil
}
