package market

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyBook    = errors.New("book side is empty")
	ErrUnsortedBook = errors.New("book levels out of order")
	ErrCrossedBook  = errors.New("book is crossed")
	ErrBadLevel     = errors.New("book level is invalid")
)

// Level is one resting price level. Prices and quantities stay exact
// decimals end to end; floats never touch book data.
type Level struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Book is a depth snapshot. Bids are best-first (strictly descending),
// asks are best-first (strictly ascending).
type Book struct {
	Symbol string
	TS     int64
	Venue  string
	Bids   []Level
	Asks   []Level
}

func (b *Book) Validate() error {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return ErrEmptyBook
	}
	if err := validateSide(b.Bids, true); err != nil {
		return fmt.Errorf("bids: %w", err)
	}
	if err := validateSide(b.Asks, false); err != nil {
		return fmt.Errorf("asks: %w", err)
	}
	if b.Bids[0].Price.GreaterThanOrEqual(b.Asks[0].Price) {
		return fmt.Errorf("bid %s >= ask %s: %w", b.Bids[0].Price, b.Asks[0].Price, ErrCrossedBook)
	}
	return nil
}

func validateSide(levels []Level, descending bool) error {
	for i, lvl := range levels {
		if lvl.Price.Sign() <= 0 {
			return fmt.Errorf("level %d price %s: %w", i, lvl.Price, ErrBadLevel)
		}
		if lvl.Qty.Sign() <= 0 {
			return fmt.Errorf("level %d qty %s: %w", i, lvl.Qty, ErrBadLevel)
		}
		if i == 0 {
			continue
		}
		prev := levels[i-1].Price
		if descending {
			if !lvl.Price.LessThan(prev) {
				return fmt.Errorf("level %d price %s not below %s: %w", i, lvl.Price, prev, ErrUnsortedBook)
			}
		} else if !lvl.Price.GreaterThan(prev) {
			return fmt.Errorf("level %d price %s not above %s: %w", i, lvl.Price, prev, ErrUnsortedBook)
		}
	}
	return nil
}

func (b *Book) BestBid() Level {
	return b.Bids[0]
}

func (b *Book) BestAsk() Level {
	return b.Asks[0]
}

// Mid is the arithmetic midpoint of the top of book.
func (b *Book) Mid() decimal.Decimal {
	return b.Bids[0].Price.Add(b.Asks[0].Price).Div(two)
}

var two = decimal.NewFromInt(2)
