// Package parser turns raw origin trade payloads into canonical
// TradeSignals. Untyped maps stop here; everything downstream works on
// domain.TradeSignal.
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/entity"
)

// sizeFields lists where the notional can live, most specific first.
var sizeFields = []string{"usdcSize", "amount", "size"}

// subjectPhrase marks titles whose first named team is the one the question
// is about ("Will Utah beat Denver?").
var subjectPhrase = regexp.MustCompile(`\b(beat|beats|win|wins|cover|covers)\b`)

// Parser converts raw payloads to signals. It holds no mutable state.
type Parser struct {
	entities *entity.Normalizer
	now      func() time.Time
}

// New creates a Parser that resolves team names through entities.
func New(entities *entity.Normalizer) *Parser {
	return &Parser{entities: entities, now: time.Now}
}

// WithClock returns a copy of p that stamps signals lacking a timestamp
// with now().
func (p *Parser) WithClock(now func() time.Time) *Parser {
	cp := *p
	cp.now = now
	return &cp
}

// Parse builds a TradeSignal from raw. Any failure, including a panic in
// extraction, is returned as a *domain.ParseError.
func (p *Parser) Parse(raw map[string]any) (sig domain.TradeSignal, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig = domain.TradeSignal{}
			err = &domain.ParseError{Reason: "internal", Cause: fmt.Errorf("%v", r)}
		}
	}()
	if raw == nil {
		return domain.TradeSignal{}, &domain.ParseError{Reason: "empty payload"}
	}
	return p.parse(view(raw))
}

func (p *Parser) parse(v payload) (domain.TradeSignal, error) {
	var sig domain.TradeSignal

	sig.OriginID = originID(v)
	if sig.OriginID == "" {
		return domain.TradeSignal{}, &domain.ParseError{Reason: "missing origin id"}
	}

	size, ok := v.firstPositive(sizeFields...)
	if !ok {
		return domain.TradeSignal{}, &domain.ParseError{OriginID: sig.OriginID, Reason: "no positive size"}
	}
	sig.NotionalSize = size

	sig.Title = v.title()
	sig.Slug = v.slug()
	sig.Category = Category(sig.Title + " " + sig.Slug)
	if sig.Category == "" {
		return domain.TradeSignal{}, &domain.ParseError{OriginID: sig.OriginID, Reason: "uncategorized"}
	}

	sig.Trader = strings.ToLower(v.flat("proxyWallet", "user", "trader"))

	mt, ok := MarketType(sig.Title)
	if !ok {
		if fromSlug, slugOK := MarketType(strings.ReplaceAll(sig.Slug, "-", " ")); slugOK {
			mt = fromSlug
		} else {
			sig.Degraded = append(sig.Degraded, "market_type")
		}
	}
	sig.MarketType = mt

	if mt == domain.MarketSpread || mt == domain.MarketTotal {
		if line, ok := LineFromText(sig.Title); ok {
			sig.Line = domain.Line(line)
		} else if line, ok := LineFromIdentifier(sig.Slug); ok {
			sig.Line = domain.Line(line)
		} else if line, ok := LineFromIdentifier(v.marketID()); ok {
			sig.Line = domain.Line(line)
		} else {
			sig.Degraded = append(sig.Degraded, "line")
		}
	}

	p.resolveEntities(&sig)
	if !sig.HasEntities() {
		sig.Degraded = append(sig.Degraded, "entities")
	}

	sig.Direction = domain.DirectionBuy
	switch strings.ToLower(v.flat("side")) {
	case "sell":
		sig.Direction = domain.DirectionSell
	case "buy":
	default:
		sig.Degraded = append(sig.Degraded, "direction")
	}

	p.resolveSide(&sig, v)

	if ts, ok := asTime(v.raw["timestamp"]); ok {
		sig.ObservedAt = ts
	} else {
		sig.ObservedAt = p.now().UTC()
	}

	return sig, nil
}

func originID(v payload) string {
	if id := v.flat("id"); id != "" {
		return id
	}
	tx := v.flat("transactionHash")
	if tx == "" {
		return ""
	}
	if asset := v.flat("asset"); asset != "" {
		return tx + ":" + asset
	}
	return tx
}

// resolveEntities fills Entities and, where the title names one side only,
// Subject. A positional slug ("nba-bos-nyk-2026-01-17") wins when both of
// its team tokens resolve.
func (p *Parser) resolveEntities(sig *domain.TradeSignal) {
	cat := sig.Category
	a, b := slugTeams(sig.Slug)

	var ra, rb string
	var okA, okB bool
	if a != "" {
		ra, okA = p.entities.NormalizeIn(cat, a)
		rb, okB = p.entities.NormalizeIn(cat, b)
	}
	hits := p.entities.Scan(cat, sig.Title)

	if sig.MarketType == domain.MarketSpread && len(hits) > 0 {
		sig.Subject = hits[0]
		switch {
		case okA && okB:
			sig.Entities = [2]string{ra, rb}
		case a != "":
			// Spread titles only name the bet side; the opponent is
			// whichever slug token is not the subject.
			other := p.entities.Resolve(cat, a)
			if other == sig.Subject {
				other = p.entities.Resolve(cat, b)
			}
			sig.Entities = [2]string{sig.Subject, other}
		case len(hits) >= 2:
			sig.Entities = [2]string{hits[0], hits[1]}
		default:
			sig.Entities = [2]string{sig.Subject, ""}
		}
		return
	}

	switch {
	case okA && okB:
		sig.Entities = [2]string{ra, rb}
	case len(hits) >= 2:
		sig.Entities = [2]string{hits[0], hits[1]}
	case a != "":
		sig.Entities = [2]string{p.entities.Resolve(cat, a), p.entities.Resolve(cat, b)}
	case len(hits) == 1:
		sig.Entities = [2]string{hits[0], ""}
	}

	if sig.MarketType == domain.MarketWinner && len(hits) > 0 && subjectPhrase.MatchString(strings.ToLower(sig.Title)) {
		sig.Subject = hits[0]
	}
}

// slugTeams returns the two positional team tokens of a slug shaped
// "category-teamA-teamB-...", or empty strings.
func slugTeams(slug string) (string, string) {
	parts := strings.Split(strings.ToLower(slug), "-")
	if len(parts) < 3 {
		return "", ""
	}
	a, b := parts[1], parts[2]
	if len(a) < 2 || len(b) < 2 || !hasLetter(a) || !hasLetter(b) {
		return "", ""
	}
	return a, b
}

func hasLetter(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return true
		}
	}
	return false
}

// resolveSide applies the side policy:
//
//   - outcome "yes"/"over" is yes, "no"/"under" is no;
//   - an outcome naming a team is yes on that team, or no when the title
//     already fixed a different subject;
//   - otherwise outcomeIndex 0 is yes and 1 is no;
//   - otherwise yes, flagged as degraded.
//
// A sell then inverts the result: selling an outcome is copied as taking
// the other side.
func (p *Parser) resolveSide(sig *domain.TradeSignal, v payload) {
	outcome := strings.ToLower(v.flat("outcome"))
	side, resolved := domain.SideYes, false

	switch outcome {
	case "yes", "over":
		side, resolved = domain.SideYes, true
	case "no", "under":
		side, resolved = domain.SideNo, true
	case "":
	default:
		if team, ok := p.entities.NormalizeIn(sig.Category, outcome); ok {
			resolved = true
			switch {
			case sig.Subject == "":
				sig.Subject = team
			case sig.Subject != team:
				side = domain.SideNo
			}
		}
	}

	if !resolved {
		if idx, ok := asFloat(v.raw["outcomeIndex"]); ok && (idx == 0 || idx == 1) {
			resolved = true
			if idx == 1 {
				side = domain.SideNo
			}
		}
	}
	if !resolved {
		sig.Degraded = append(sig.Degraded, "side")
	}

	if sig.Direction == domain.DirectionSell {
		side = side.Invert()
	}
	sig.Side = side
}
