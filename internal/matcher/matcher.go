package matcher

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/entity"
)

const (
	baseConfidence = 0.9
	lineBonus      = 0.1

	// lineTolerance is the widest gap between origin and destination lines
	// that still counts as the same proposition.
	lineTolerance = 1.0
	lineEpsilon   = 1e-9
)

// Matcher picks the destination instrument for a signal. Only exact
// (category, pair) buckets are consulted; there is no fuzzy fallback across
// pairs.
type Matcher struct {
	index    *Index
	entities *entity.Normalizer
}

// New creates a Matcher over index. entities is used to check which team a
// spread title is about.
func New(index *Index, entities *entity.Normalizer) *Matcher {
	return &Matcher{index: index, entities: entities}
}

// Match returns the best instrument for sig, or false when there is none.
// The result depends only on sig and the snapshot current at the call.
func (m *Matcher) Match(sig domain.TradeSignal) (domain.MatchResult, bool) {
	if sig.Category == "" || !sig.HasEntities() {
		return domain.MatchResult{}, false
	}
	return m.matchIn(m.index.load(), sig)
}

func (m *Matcher) matchIn(snap *snapshot, sig domain.TradeSignal) (domain.MatchResult, bool) {
	var (
		best  domain.MatchResult
		found bool
	)
	for _, inst := range snap.bucket(sig.Category, sig.Entities[0], sig.Entities[1]) {
		if inst.MarketType != sig.MarketType {
			continue
		}

		lineMatched := false
		switch sig.MarketType {
		case domain.MarketSpread:
			if sig.Subject == "" || !m.entities.Mentions(sig.Category, sig.Subject, inst.Title) {
				continue
			}
			if !linesAgree(sig.Line, inst.Line, true) {
				continue
			}
			lineMatched = true
		case domain.MarketTotal:
			if !linesAgree(sig.Line, inst.Line, false) {
				continue
			}
			lineMatched = true
		case domain.MarketWinner:
			if sig.Subject != "" && inst.Subject != "" && sig.Subject != inst.Subject {
				continue
			}
		}

		conf := baseConfidence
		matchType := domain.MatchExact
		if lineMatched {
			conf += lineBonus
			matchType = domain.MatchExactLine
		}
		conf = math.Min(conf, 1)

		// Strictly greater keeps the earliest candidate on a tie.
		if !found || conf > best.Confidence {
			best = domain.MatchResult{
				Instrument:      inst,
				DestinationSide: destinationSide(sig, inst),
				Confidence:      conf,
				MatchType:       matchType,
			}
			found = true
		}
	}
	return best, found
}

// linesAgree reports whether both lines are present and within tolerance.
// Spread signs differ between venues, so spreads compare magnitudes.
func linesAgree(origin, dest *float64, absolute bool) bool {
	if origin == nil || dest == nil {
		return false
	}
	a, b := *origin, *dest
	if absolute {
		a, b = math.Abs(a), math.Abs(b)
	}
	return math.Abs(a-b) <= lineTolerance+lineEpsilon
}

// destinationSide maps the origin side onto the instrument. Destination
// totals are phrased over or under; only "over" keeps the origin side.
func destinationSide(sig domain.TradeSignal, inst domain.DestinationInstrument) domain.Side {
	if sig.MarketType == domain.MarketTotal && inst.Affirmative != "over" {
		return sig.Side.Invert()
	}
	return sig.Side
}

// Describe renders a match for logs.
func Describe(r domain.MatchResult) string {
	return fmt.Sprintf("%s %s (%s, %.2f)", r.Instrument.ID, r.DestinationSide, r.MatchType, r.Confidence)
}
