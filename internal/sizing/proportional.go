package sizing

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// SkipTooSmall is the Skip reason for stakes under the minimum trade.
const SkipTooSmall = "too small"

// Params tune the proportional rule.
type Params struct {
	Multiplier     float64
	BoostRatio     float64 // ratios above this get Boost
	Boost          float64
	DampenRatio    float64 // ratios below this get Dampen
	Dampen         float64
	MaxBankrollPct float64
	MaxTrade       float64
	MinTrade       float64

	// CounterpartyBankroll, when zero, is estimated as the average size
	// divided by AssumedBetFraction.
	CounterpartyBankroll float64
	AssumedBetFraction   float64
}

// Shared defaults for the presets.
const (
	DefaultAssumedBetFraction = 0.02
	DefaultMinTrade           = 1.0
	DefaultMaxTrade           = 25.0
)

// Conservative copies at face value with mild tiering.
func Conservative() Params {
	return Params{
		Multiplier: 1.0, BoostRatio: 1.5, Boost: 1.1, DampenRatio: 0.5, Dampen: 0.9,
		MaxBankrollPct: 0.10, MaxTrade: DefaultMaxTrade, MinTrade: DefaultMinTrade,
		AssumedBetFraction: DefaultAssumedBetFraction,
	}
}

// Moderate scales stakes up by half.
func Moderate() Params {
	return Params{
		Multiplier: 1.5, BoostRatio: 1.5, Boost: 1.15, DampenRatio: 0.5, Dampen: 0.9,
		MaxBankrollPct: 0.15, MaxTrade: DefaultMaxTrade, MinTrade: DefaultMinTrade,
		AssumedBetFraction: DefaultAssumedBetFraction,
	}
}

// Aggressive doubles stakes and leans harder on conviction.
func Aggressive() Params {
	return Params{
		Multiplier: 2.0, BoostRatio: 1.5, Boost: 1.2, DampenRatio: 0.5, Dampen: 0.8,
		MaxBankrollPct: 0.20, MaxTrade: DefaultMaxTrade, MinTrade: DefaultMinTrade,
		AssumedBetFraction: DefaultAssumedBetFraction,
	}
}

// Merge returns p with every non-zero field of o applied on top.
func (p Params) Merge(o Params) Params {
	set := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	set(&p.Multiplier, o.Multiplier)
	set(&p.BoostRatio, o.BoostRatio)
	set(&p.Boost, o.Boost)
	set(&p.DampenRatio, o.DampenRatio)
	set(&p.Dampen, o.Dampen)
	set(&p.MaxBankrollPct, o.MaxBankrollPct)
	set(&p.MaxTrade, o.MaxTrade)
	set(&p.MinTrade, o.MinTrade)
	set(&p.CounterpartyBankroll, o.CounterpartyBankroll)
	set(&p.AssumedBetFraction, o.AssumedBetFraction)
	return p
}

// Proportional sizes a copy in proportion to the origin bet's share of the
// counterparty's estimated bankroll.
type Proportional struct {
	name string
	p    Params
}

// NewProportional creates a named proportional strategy.
func NewProportional(name string, p Params) *Proportional {
	if p.AssumedBetFraction <= 0 {
		p.AssumedBetFraction = DefaultAssumedBetFraction
	}
	return &Proportional{name: name, p: p}
}

func (s *Proportional) Name() string { return s.name }

// Params returns the strategy's parameters.
func (s *Proportional) Params() Params { return s.p }

// Size implements Strategy.
func (s *Proportional) Size(in Input) domain.SizingDecision {
	d := domain.SizingDecision{Strategy: s.name, Average: in.Average}
	size := in.Signal.NotionalSize
	if size <= 0 || in.Average <= 0 || in.Bankroll <= 0 {
		d.Skip = SkipTooSmall
		return d
	}

	d.Ratio = size / in.Average

	cp := s.p.CounterpartyBankroll
	if cp <= 0 {
		cp = in.Average / s.p.AssumedBetFraction
	}

	proposed := decimal.NewFromFloat(size).
		Mul(decimal.NewFromFloat(in.Bankroll)).
		Div(decimal.NewFromFloat(cp)).
		Mul(decimal.NewFromFloat(s.p.Multiplier)).
		Mul(decimal.NewFromFloat(s.tier(d.Ratio))).
		Round(2)

	if limit, ok := s.cap(in.Bankroll); ok && proposed.GreaterThan(limit) {
		proposed = limit
	}

	d.Proposed = proposed.InexactFloat64()
	if proposed.LessThan(decimal.NewFromFloat(s.p.MinTrade)) {
		d.Skip = SkipTooSmall
	}
	return d
}

func (s *Proportional) tier(ratio float64) float64 {
	switch {
	case s.p.BoostRatio > 0 && ratio > s.p.BoostRatio && s.p.Boost > 0:
		return s.p.Boost
	case ratio < s.p.DampenRatio && s.p.Dampen > 0:
		return s.p.Dampen
	default:
		return 1
	}
}

// cap is min(MaxTrade, MaxBankrollPct * bankroll), truncated to cents so a
// clamped stake never exceeds either bound.
func (s *Proportional) cap(bankroll float64) (decimal.Decimal, bool) {
	var (
		limit decimal.Decimal
		ok    bool
	)
	if s.p.MaxTrade > 0 {
		limit, ok = decimal.NewFromFloat(s.p.MaxTrade), true
	}
	if s.p.MaxBankrollPct > 0 {
		pct := decimal.NewFromFloat(s.p.MaxBankrollPct).Mul(decimal.NewFromFloat(bankroll))
		if !ok || pct.LessThan(limit) {
			limit, ok = pct, true
		}
	}
	return limit.Truncate(2), ok
}
