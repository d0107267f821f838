package universe

import (
	"github.com/shopspring/decimal"

	"github.com/bnzr-team/grinder-sub003/internal/config"
)

// Allocation maps symbol to its drawdown budget slice.
type Allocation map[string]decimal.Decimal

// PortfolioBudget is the total drawdown budget: the absolute override
// when set, otherwise equity times the budget fraction.
func PortfolioBudget(cfg config.BudgetConfig) decimal.Decimal {
	if cfg.DDBudgetUSD > 0 {
		return decimal.NewFromFloat(cfg.DDBudgetUSD)
	}
	return decimal.NewFromFloat(cfg.EquityUSD).Mul(decimal.NewFromFloat(cfg.DDBudgetPct))
}

// Allocate splits the portfolio budget across the selected symbols.
// The weighted allocator sets w_i proportional to liquidity*(1-tox),
// falling back to equal shares when every weight is zero. The last
// symbol takes the division remainder so the slices always sum to the
// portfolio budget exactly.
func Allocate(cfg config.BudgetConfig, selected []Scored) Allocation {
	out := make(Allocation, len(selected))
	if len(selected) == 0 {
		return out
	}
	total := PortfolioBudget(cfg)

	weights := make([]decimal.Decimal, len(selected))
	sum := decimal.Zero
	if cfg.Allocator == "weighted" {
		for i, s := range selected {
			w := decimal.NewFromFloat(s.Liquidity * (1 - s.ToxPenalty))
			if w.Sign() < 0 {
				w = decimal.Zero
			}
			weights[i] = w
			sum = sum.Add(w)
		}
	}
	if sum.Sign() <= 0 {
		for i := range weights {
			weights[i] = decimal.NewFromInt(1)
		}
		sum = decimal.NewFromInt(int64(len(selected)))
	}

	allocated := decimal.Zero
	for i, s := range selected {
		if i == len(selected)-1 {
			out[s.Symbol] = total.Sub(allocated)
			break
		}
		slice := total.Mul(weights[i]).Div(sum)
		out[s.Symbol] = slice
		allocated = allocated.Add(slice)
	}
	return out
}
