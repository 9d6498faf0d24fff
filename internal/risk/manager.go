package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// ReasonTooSmall is appended when clamping leaves less than the minimum
// trade.
const ReasonTooSmall = "too small after risk adjustment"

// drawdownKnee is the share of MaxDrawdown beyond which stakes shrink.
const drawdownKnee = 0.5

// DrawdownSource reports the current drawdown as a fraction of peak.
type DrawdownSource interface {
	Drawdown() float64
}

// Manager applies Limits to proposed stakes. It keeps no exposure state of
// its own; callers pass the exposure the trade would add to.
type Manager struct {
	limits   Limits
	bankroll float64
	drawdown DrawdownSource
}

// NewManager creates a Manager. drawdown may be nil to disable the throttle.
func NewManager(limits Limits, bankroll float64, drawdown DrawdownSource) *Manager {
	return &Manager{limits: limits, bankroll: bankroll, drawdown: drawdown}
}

// Limits returns the configured limits.
func (m *Manager) Limits() Limits { return m.limits }

// Check clamps amount against every limit in order. Each check can only
// lower the amount and records why it did. The final amount is truncated
// to cents, so it never exceeds amount.
func (m *Manager) Check(amount float64, view domain.ExposureView) domain.RiskVerdict {
	var reasons []string
	amt := decimal.NewFromFloat(amount)
	if amt.IsNegative() {
		amt = decimal.Zero
	}

	clamp := func(name string, l Limit, committed float64) {
		limit, ok := l.Cap(m.bankroll)
		if !ok {
			return
		}
		used := decimal.NewFromFloat(committed)
		room := limit.Sub(used)
		if room.IsNegative() {
			room = decimal.Zero
		}
		if amt.GreaterThan(room) {
			reasons = append(reasons, fmt.Sprintf("%s limit %s with %s committed: reduced %s to %s",
				name, limit.StringFixed(2), used.StringFixed(2), amt.StringFixed(2), room.StringFixed(2)))
			amt = room
		}
	}

	clamp("per-trade", m.limits.PerTrade, 0)
	clamp("per-counterparty", m.limits.PerCounterparty, view.Counterparty)
	clamp("per-market", m.limits.PerMarket, view.Market)
	clamp("per-market-side", m.limits.PerMarketSide, view.MarketSide)
	clamp("total", m.limits.Total, view.Total)

	if m.drawdown != nil && m.limits.MaxDrawdown > 0 {
		dd := m.drawdown.Drawdown()
		progress := dd / m.limits.MaxDrawdown
		switch {
		case progress >= 1:
			reasons = append(reasons, fmt.Sprintf("drawdown %.1f%% at or beyond max %.1f%%",
				dd*100, m.limits.MaxDrawdown*100))
			return domain.RiskVerdict{Reasons: reasons}
		case progress > drawdownKnee:
			factor := 1 - m.limits.DrawdownFactor*progress
			if factor < 0 {
				factor = 0
			}
			reduced := amt.Mul(decimal.NewFromFloat(factor))
			reasons = append(reasons, fmt.Sprintf("drawdown %.1f%%: reduced %s to %s",
				dd*100, amt.StringFixed(2), reduced.StringFixed(2)))
			amt = reduced
		}
	}

	amt = amt.Truncate(2)
	if amt.LessThan(decimal.NewFromFloat(m.limits.MinTrade)) || !amt.IsPositive() {
		reasons = append(reasons, ReasonTooSmall)
		return domain.RiskVerdict{Reasons: reasons}
	}
	return domain.RiskVerdict{
		Approved:    true,
		FinalAmount: amt.InexactFloat64(),
		Reasons:     reasons,
	}
}
