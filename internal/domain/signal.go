package domain

import "time"

// Side is the outcome a position is taken on.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Invert returns the opposite outcome.
func (s Side) Invert() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Direction is whether the origin trade bought or sold outcome tokens.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// MarketType classifies the proposition a market settles on.
type MarketType string

const (
	MarketWinner MarketType = "winner"
	MarketSpread MarketType = "spread"
	MarketTotal  MarketType = "total"
)

// TradeSignal is the canonical form of one origin trade. It is built once by
// the parser and never mutated afterwards.
type TradeSignal struct {
	OriginID     string
	Trader       string // origin address that placed the trade
	Category     string // "nba", "nfl", ...; empty when uncategorized
	Entities     [2]string
	Subject      string // bet-side entity, when the payload names one
	MarketType   MarketType
	Line         *float64
	Side         Side
	Direction    Direction
	NotionalSize float64
	Title        string
	Slug         string
	ObservedAt   time.Time

	// Degraded lists fields that could not be read from the payload and
	// fell back to a default.
	Degraded []string
}

// HasEntities reports whether both sides of the pairing are known.
func (s TradeSignal) HasEntities() bool {
	return s.Entities[0] != "" && s.Entities[1] != ""
}
