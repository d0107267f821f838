package grid

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bnzr-team/grinder-sub003/internal/config"
)

// ErrDegenerateGrid means no ladder level sits above the stressed
// boundary, so the loss budget cannot bind a size.
var ErrDegenerateGrid = errors.New("grid: no level above stress boundary")

var (
	one      = decimal.NewFromInt(1)
	bpsScale = decimal.NewFromInt(10000)
)

// LevelPrices lays the add ladder below mid: rung i rests at
// mid*(1 - i*step_bps/10^4). Rungs at or below zero price are dropped.
func LevelPrices(mid decimal.Decimal, stepBps int64, levels int) []decimal.Decimal {
	if stepBps <= 0 || levels <= 0 || mid.Sign() <= 0 {
		return nil
	}
	prices := make([]decimal.Decimal, 0, levels)
	for i := 1; i <= levels; i++ {
		off := stepBps * int64(i)
		if off >= 10000 {
			break
		}
		prices = append(prices, mid.Mul(one.Sub(decimal.New(off, -4))))
	}
	return prices
}

// lossTerms gives each rung's adverse loss per unit notional when price
// settles on the stressed boundary: (width - i*step)/(10^4 - i*step) in
// bps space, floored at zero for rungs at or past the boundary.
func lossTerms(stepBps, widthDownBps int64, levels int) []decimal.Decimal {
	terms := make([]decimal.Decimal, levels)
	for i := 1; i <= levels; i++ {
		off := stepBps * int64(i)
		if off >= widthDownBps || off >= 10000 {
			terms[i-1] = decimal.Zero
			continue
		}
		num := decimal.NewFromInt(widthDownBps - off)
		den := decimal.NewFromInt(10000 - off)
		terms[i-1] = num.Div(den)
	}
	return terms
}

// Schedule computes per-rung base-asset quantities so that the worst
// case, price settling on the stressed lower boundary, loses exactly
// the symbol budget. Quantities round only here, at the output
// boundary.
func Schedule(cfg config.GridConfig, prices []decimal.Decimal, stepBps, widthDownBps int64, budgetUSD decimal.Decimal) ([]decimal.Decimal, error) {
	if len(prices) == 0 || stepBps <= 0 || budgetUSD.Sign() <= 0 {
		return nil, ErrDegenerateGrid
	}
	terms := lossTerms(stepBps, widthDownBps, len(prices))
	switch cfg.Sizing {
	case "equal":
		return equalNotional(cfg, prices, terms, budgetUSD)
	case "tapered":
		return tapered(cfg, prices, terms, budgetUSD)
	}
	return nil, fmt.Errorf("grid: unknown sizing %q", cfg.Sizing)
}

// equalNotional puts the same quote amount on every rung. The loss
// coefficient is the closed-form sum of per-rung loss terms.
func equalNotional(cfg config.GridConfig, prices, terms []decimal.Decimal, budget decimal.Decimal) ([]decimal.Decimal, error) {
	coeff := decimal.Zero
	for _, term := range terms {
		coeff = coeff.Add(term)
	}
	if coeff.Sign() <= 0 {
		return nil, ErrDegenerateGrid
	}
	perRung := budget.Div(coeff)
	qtys := make([]decimal.Decimal, len(prices))
	for i, price := range prices {
		qtys[i] = perRung.Div(price).Round(int32(cfg.QtyDecimals))
	}
	return qtys, nil
}

// tapered grows rung notional linearly with depth, near rungs small and
// far rungs up to max_weight_ratio times larger, shifting exposure away
// from the first fills. Worst-case loss still equals the budget.
func tapered(cfg config.GridConfig, prices, terms []decimal.Decimal, budget decimal.Decimal) ([]decimal.Decimal, error) {
	n := len(prices)
	weights := make([]decimal.Decimal, n)
	if n == 1 {
		weights[0] = one
	} else {
		span := decimal.NewFromInt(int64(n - 1))
		ratio := decimal.NewFromFloat(cfg.MaxWeightRatio)
		for i := 0; i < n; i++ {
			weights[i] = one.Add(ratio.Sub(one).Mul(decimal.NewFromInt(int64(i))).Div(span))
		}
	}
	denom := decimal.Zero
	for i, term := range terms {
		denom = denom.Add(weights[i].Mul(term))
	}
	if denom.Sign() <= 0 {
		return nil, ErrDegenerateGrid
	}
	scale := budget.Div(denom)
	qtys := make([]decimal.Decimal, n)
	for i, price := range prices {
		qtys[i] = scale.Mul(weights[i]).Div(price).Round(int32(cfg.QtyDecimals))
	}
	return qtys, nil
}
