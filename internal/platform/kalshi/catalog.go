package kalshi

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/entity"
	"github.com/alanyoungcy/polycopy/internal/parser"
)

// DefaultSeries are the game, spread and total series for every supported
// league.
var DefaultSeries = []string{
	"KXNBAGAME", "KXNBASPREAD", "KXNBATOTAL",
	"KXNFLGAME", "KXNFLSPREAD", "KXNFLTOTAL",
	"KXNHLGAME", "KXNHLSPREAD", "KXNHLTOTAL",
	"KXNCAAMBGAME", "KXNCAAMBSPREAD", "KXNCAAMBTOTAL",
	"KXCFBGAME", "KXCFBSPREAD", "KXCFBTOTAL",
}

var leagues = map[string]string{
	"NBA":    "nba",
	"NFL":    "nfl",
	"NHL":    "nhl",
	"NCAAMB": "cbb",
	"CFB":    "cfb",
}

var seriesKinds = []struct {
	suffix string
	kind   domain.MarketType
}{
	{"SPREAD", domain.MarketSpread},
	{"TOTAL", domain.MarketTotal},
	{"GAME", domain.MarketWinner},
}

var (
	eventDate    = regexp.MustCompile(`^\d{2}[A-Z]{3}\d{2}`)
	tickerLetter = regexp.MustCompile(`^[A-Z]+`)
	underWord    = regexp.MustCompile(`(?i)\bunder\b`)
)

const marketsPageSize = 1000

// MarketLister is the slice of Client the catalog needs.
type MarketLister interface {
	GetMarkets(ctx context.Context, q MarketsQuery) ([]Market, string, error)
}

// Catalog implements domain.MarketCatalog over the configured series.
type Catalog struct {
	client   MarketLister
	entities *entity.Normalizer
	series   []string
	logger   *slog.Logger
}

// NewCatalog creates a Catalog. An empty series list means DefaultSeries.
func NewCatalog(client MarketLister, entities *entity.Normalizer, series []string, logger *slog.Logger) *Catalog {
	if len(series) == 0 {
		series = DefaultSeries
	}
	return &Catalog{
		client:   client,
		entities: entities,
		series:   series,
		logger:   logger.With(slog.String("component", "kalshi_catalog")),
	}
}

// Instruments pages every open market of every series. A series whose
// ticker cannot be classified is skipped with a warning; a failed request
// aborts the whole refresh so a partial catalog never replaces a full one.
func (c *Catalog) Instruments(ctx context.Context) ([]domain.DestinationInstrument, error) {
	var out []domain.DestinationInstrument
	for _, series := range c.series {
		category, kind, ok := ClassifySeries(series)
		if !ok {
			c.logger.WarnContext(ctx, "unrecognised series", slog.String("series", series))
			continue
		}

		cursor := ""
		kept, skipped := 0, 0
		for {
			markets, next, err := c.client.GetMarkets(ctx, MarketsQuery{
				SeriesTicker: series,
				Status:       "open",
				Cursor:       cursor,
				Limit:        marketsPageSize,
			})
			if err != nil {
				return nil, fmt.Errorf("kalshi: list series %s: %w", series, err)
			}
			for _, m := range markets {
				inst, ok := c.instrument(m, category, kind)
				if !ok {
					skipped++
					continue
				}
				out = append(out, inst)
				kept++
			}
			if next == "" || next == cursor || len(markets) == 0 {
				break
			}
			cursor = next
		}
		c.logger.DebugContext(ctx, "series loaded",
			slog.String("series", series),
			slog.Int("kept", kept),
			slog.Int("skipped", skipped),
		)
	}
	return out, nil
}

// ClassifySeries derives the category and market type from a series ticker
// such as KXNBASPREAD.
func ClassifySeries(series string) (string, domain.MarketType, bool) {
	s := strings.TrimPrefix(strings.ToUpper(series), "KX")
	for _, sk := range seriesKinds {
		if !strings.HasSuffix(s, sk.suffix) {
			continue
		}
		if category, ok := leagues[strings.TrimSuffix(s, sk.suffix)]; ok {
			return category, sk.kind, true
		}
	}
	return "", "", false
}

func (c *Catalog) instrument(m Market, category string, kind domain.MarketType) (domain.DestinationInstrument, bool) {
	// Multi-leg combos list their legs comma separated.
	if m.Ticker == "" || strings.Contains(m.Title, ",") {
		return domain.DestinationInstrument{}, false
	}

	inst := domain.DestinationInstrument{
		ID:         m.Ticker,
		EventID:    m.EventTicker,
		Category:   category,
		MarketType: kind,
		Title:      m.Title,
	}

	a, b, ok := c.pair(category, m)
	if !ok {
		return domain.DestinationInstrument{}, false
	}
	inst.Entities = [2]string{a, b}

	suffix := tickerSuffix(m.Ticker)
	switch kind {
	case domain.MarketWinner, domain.MarketSpread:
		if team := tickerLetter.FindString(suffix); team != "" {
			if canonical, ok := c.entities.Lookup(category, team); ok {
				inst.Subject = canonical
			}
		}
	}

	if kind == domain.MarketSpread || kind == domain.MarketTotal {
		inst.Line = line(m)
	}
	if kind == domain.MarketTotal {
		inst.Affirmative = "over"
		if underWord.MatchString(m.Title) {
			inst.Affirmative = "under"
		}
	}
	return inst, true
}

// pair resolves the two participants, from the title when it names both
// and otherwise from the team letters of the event ticker.
func (c *Catalog) pair(category string, m Market) (string, string, bool) {
	if hits := c.entities.Scan(category, m.Title); len(hits) >= 2 {
		return hits[0], hits[1], true
	}
	return c.splitEventTeams(category, m.EventTicker)
}

// splitEventTeams splits "KXNBAGAME-26JAN17BOSNYK" into bos and nyk at the
// first cut where both halves resolve.
func (c *Catalog) splitEventTeams(category, eventTicker string) (string, string, bool) {
	i := strings.LastIndex(eventTicker, "-")
	if i < 0 {
		return "", "", false
	}
	teams := eventDate.ReplaceAllString(strings.ToUpper(eventTicker[i+1:]), "")
	for cut := 2; cut <= len(teams)-2; cut++ {
		a, okA := c.entities.Lookup(category, teams[:cut])
		if !okA {
			continue
		}
		if b, okB := c.entities.Lookup(category, teams[cut:]); okB && a != b {
			return a, b, true
		}
	}
	return "", "", false
}

func tickerSuffix(ticker string) string {
	parts := strings.Split(ticker, "-")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-1]
}

func line(m Market) *float64 {
	if m.FloorStrike != nil {
		return domain.Line(*m.FloorStrike)
	}
	if v, ok := parser.LineFromText(m.Title); ok {
		return domain.Line(v)
	}
	if v, ok := parser.LineFromIdentifier(m.Ticker); ok {
		return domain.Line(v)
	}
	return nil
}

var _ domain.MarketCatalog = (*Catalog)(nil)
