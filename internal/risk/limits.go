// Package risk clamps proposed stakes against exposure limits and throttles
// them during drawdown.
package risk

import "github.com/shopspring/decimal"

// Limit caps a dollar quantity. The effective cap is the tighter of
// Pct * bankroll and Abs; a zero field is ignored and a zero Limit is
// unlimited.
type Limit struct {
	Pct float64
	Abs float64
}

// Cap returns the effective cap for bankroll, or false when unlimited.
func (l Limit) Cap(bankroll float64) (decimal.Decimal, bool) {
	var (
		c  decimal.Decimal
		ok bool
	)
	if l.Abs > 0 {
		c, ok = decimal.NewFromFloat(l.Abs), true
	}
	if l.Pct > 0 {
		p := decimal.NewFromFloat(l.Pct).Mul(decimal.NewFromFloat(bankroll))
		if !ok || p.LessThan(c) {
			c, ok = p, true
		}
	}
	return c, ok
}

// Limits is the full set of checks, applied in field order.
type Limits struct {
	PerTrade        Limit
	PerCounterparty Limit
	PerMarket       Limit
	PerMarketSide   Limit
	Total           Limit

	// MaxDrawdown is a fraction of peak equity. Zero disables the throttle.
	MaxDrawdown    float64
	DrawdownFactor float64

	MinTrade float64
}

// DefaultLimits returns the production defaults. Per-trade size is already
// capped by the sizing strategy, so PerTrade is unlimited here.
func DefaultLimits() Limits {
	return Limits{
		PerCounterparty: Limit{Pct: 0.10},
		PerMarketSide:   Limit{Abs: 27},
		Total:           Limit{Pct: 0.30, Abs: 108},
		MaxDrawdown:     0.15,
		DrawdownFactor:  0.5,
		MinTrade:        1.0,
	}
}
