package grid

import (
	"github.com/shopspring/decimal"

	"github.com/bnzr-team/grinder-sub003/internal/config"
)

// CapsInput is the account telemetry caps are checked against. The
// caller supplies it; the enforcer never reads live state.
type CapsInput struct {
	EquityUSD            float64
	InventoryNotionalUSD float64
	PortfolioNotionalUSD float64
	OpenOrdersSymbol     int
	OpenOrdersPortfolio  int
	OrdersUsedCycle      int
}

// CapsResult carries the adjusted schedule plus the audit trail. When
// Escalate is set the schedule is empty and the plan downgrades to a
// protective emission.
type CapsResult struct {
	Qtys     []decimal.Decimal
	Applied  []string
	Escalate bool
}

// EnforceCaps applies the hard caps in their fixed order: inventory
// notional, effective leverage, open orders per symbol then portfolio,
// order rate. Notional breaches scale sizes down, count breaches drop
// the farthest rungs, a cap with no headroom escalates. Each cap sees
// the schedule as adjusted by the caps before it.
func EnforceCaps(cfg config.CapsConfig, qtyDecimals int, in CapsInput, prices []decimal.Decimal, qtys []decimal.Decimal) CapsResult {
	res := CapsResult{Qtys: append([]decimal.Decimal(nil), qtys...)}

	if cfg.MaxInventoryNotionalUSD > 0 {
		allowed := decimal.NewFromFloat(cfg.MaxInventoryNotionalUSD - in.InventoryNotionalUSD)
		res.capNotional(allowed, prices, qtyDecimals, "inventory_notional")
	}
	if !res.Escalate && cfg.MaxEffectiveLeverage > 0 && in.EquityUSD > 0 {
		allowed := decimal.NewFromFloat(cfg.MaxEffectiveLeverage*in.EquityUSD - in.PortfolioNotionalUSD)
		res.capNotional(allowed, prices, qtyDecimals, "effective_leverage")
	}
	if !res.Escalate && cfg.MaxOpenOrdersSymbol > 0 {
		res.capCount(cfg.MaxOpenOrdersSymbol-in.OpenOrdersSymbol, "open_orders_symbol")
	}
	if !res.Escalate && cfg.MaxOpenOrdersPortfolio > 0 {
		res.capCount(cfg.MaxOpenOrdersPortfolio-in.OpenOrdersPortfolio, "open_orders_portfolio")
	}
	if !res.Escalate && cfg.MaxOrdersPerCycle > 0 {
		res.capCount(cfg.MaxOrdersPerCycle-in.OrdersUsedCycle, "order_rate")
	}
	if !res.Escalate && len(res.Qtys) > 0 && PlanNotional(prices, res.Qtys).Sign() <= 0 {
		res.escalate("dust_schedule")
	}
	return res
}

// PlanNotional is the total quote-denominated size of a schedule.
func PlanNotional(prices, qtys []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for i, qty := range qtys {
		if i >= len(prices) {
			break
		}
		total = total.Add(qty.Mul(prices[i]))
	}
	return total
}

// capNotional scales every size by allowed/planned, truncated toward
// zero so the cap holds exactly.
func (r *CapsResult) capNotional(allowedUSD decimal.Decimal, prices []decimal.Decimal, qtyDecimals int, name string) {
	planned := PlanNotional(prices, r.Qtys)
	if planned.LessThanOrEqual(allowedUSD) {
		return
	}
	if allowedUSD.Sign() <= 0 {
		r.escalate(name)
		return
	}
	scale := allowedUSD.Div(planned)
	for i, qty := range r.Qtys {
		r.Qtys[i] = qty.Mul(scale).Truncate(int32(qtyDecimals))
	}
	r.Applied = append(r.Applied, name+":scale_sizes")
}

// capCount drops the farthest rungs to fit the remaining order slots.
func (r *CapsResult) capCount(allowed int, name string) {
	if len(r.Qtys) <= allowed {
		return
	}
	if allowed <= 0 {
		r.escalate(name)
		return
	}
	r.Qtys = r.Qtys[:allowed]
	r.Applied = append(r.Applied, name+":reduce_levels")
}

func (r *CapsResult) escalate(name string) {
	r.Qtys = nil
	r.Escalate = true
	r.Applied = append(r.Applied, name+":escalate")
}
