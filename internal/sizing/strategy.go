// Package sizing turns an origin trade size into a proposed destination
// stake. Strategies are named variants of one proportional rule and are
// looked up through a Registry.
package sizing

import "github.com/alanyoungcy/polycopy/internal/domain"

// Input is everything a strategy may look at.
type Input struct {
	Signal domain.TradeSignal
	// Average is the trader's recent mean size, or the configured default
	// when no history exists yet.
	Average  float64
	Bankroll float64
}

// Strategy proposes a stake for one signal. Implementations must be pure.
type Strategy interface {
	Name() string
	Size(in Input) domain.SizingDecision
}
