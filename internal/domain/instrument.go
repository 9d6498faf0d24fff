package domain

// DestinationInstrument is a tradable contract on the destination venue,
// reduced to the attributes the matcher keys on.
type DestinationInstrument struct {
	ID         string
	EventID    string
	Category   string
	Entities   [2]string
	Subject    string // entity the YES outcome refers to, if any
	MarketType MarketType
	Line       *float64
	Title      string

	// Affirmative is "over" or "under" for totals and empty otherwise.
	Affirmative string
}

// Match types reported on MatchResult.
const (
	MatchExact     = "exact"
	MatchExactLine = "exact_line"
)

// MatchResult pairs a signal with the instrument chosen for it.
type MatchResult struct {
	Instrument      DestinationInstrument
	DestinationSide Side
	Confidence      float64
	MatchType       string
}

// Line returns a pointer to v. It exists so literals can populate the
// optional Line fields.
func Line(v float64) *float64 {
	return &v
}
