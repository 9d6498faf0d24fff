package parser

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/entity"
)

var fixedNow = time.Date(2026, 1, 17, 18, 0, 0, 0, time.UTC)

func newParser() *Parser {
	n := entity.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return New(n).WithClock(func() time.Time { return fixedNow })
}

func TestParseFlatWinner(t *testing.T) {
	p := newParser()

	sig, err := p.Parse(map[string]any{
		"transactionHash": "0xabc",
		"asset":           "123",
		"proxyWallet":     "0xWHALE",
		"title":           "Celtics vs. Knicks",
		"slug":            "nba-bos-nyk-2026-01-17",
		"usdcSize":        "100",
		"size":            250.0,
		"side":            "BUY",
		"outcome":         "Celtics",
		"outcomeIndex":    0,
		"timestamp":       1768672800,
	})
	require.NoError(t, err)

	assert.Equal(t, "0xabc:123", sig.OriginID)
	assert.Equal(t, "0xwhale", sig.Trader)
	assert.Equal(t, "nba", sig.Category)
	assert.Equal(t, [2]string{"bos", "nyk"}, sig.Entities)
	assert.Equal(t, domain.MarketWinner, sig.MarketType)
	assert.Nil(t, sig.Line)
	assert.Equal(t, domain.SideYes, sig.Side)
	assert.Equal(t, "bos", sig.Subject)
	assert.InDelta(t, 100.0, sig.NotionalSize, 1e-9)
	assert.Equal(t, time.Unix(1768672800, 0).UTC(), sig.ObservedAt)
	assert.Empty(t, sig.Degraded)
}

func TestParseNestedMarketShape(t *testing.T) {
	p := newParser()

	sig, err := p.Parse(map[string]any{
		"id":     "trade-1",
		"amount": 40.0,
		"side":   "buy",
		"market": map[string]any{
			"question": "Lakers vs. Warriors O/U 229.5",
			"slug":     "nba-lal-gsw-2026-01-17",
			"id":       "mkt-9",
		},
		"outcome": "Over",
	})
	require.NoError(t, err)

	assert.Equal(t, "trade-1", sig.OriginID)
	assert.Equal(t, domain.MarketTotal, sig.MarketType)
	require.NotNil(t, sig.Line)
	assert.InDelta(t, 229.5, *sig.Line, 1e-9)
	assert.Equal(t, domain.SideYes, sig.Side)
	assert.Equal(t, [2]string{"lal", "gsw"}, sig.Entities)
	assert.Equal(t, fixedNow, sig.ObservedAt)
}

func TestParseSpreadRecoversOpponentFromSlug(t *testing.T) {
	p := newParser()

	sig, err := p.Parse(map[string]any{
		"id":       "t-2",
		"usdcSize": 55,
		"side":     "BUY",
		"title":    "Spread: Celtics (-5.5)",
		"slug":     "nba-bos-xyz-2026-01-17-spread",
		"outcome":  "Celtics",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MarketSpread, sig.MarketType)
	assert.Equal(t, "bos", sig.Subject)
	assert.Equal(t, [2]string{"bos", "xyz"}, sig.Entities)
	require.NotNil(t, sig.Line)
	assert.InDelta(t, -5.5, *sig.Line, 1e-9)
	assert.Equal(t, domain.SideYes, sig.Side)
}

func TestParseSpreadOpponentOutcomeIsNo(t *testing.T) {
	p := newParser()

	sig, err := p.Parse(map[string]any{
		"id":       "t-3",
		"usdcSize": 10,
		"side":     "BUY",
		"title":    "Spread: Celtics (-5.5)",
		"slug":     "nba-bos-nyk-2026-01-17",
		"outcome":  "Knicks",
	})
	require.NoError(t, err)
	assert.Equal(t, "bos", sig.Subject)
	assert.Equal(t, domain.SideNo, sig.Side)
}

func TestParseSellInvertsSide(t *testing.T) {
	p := newParser()

	tests := []struct {
		name    string
		side    string
		outcome string
		index   any
		want    domain.Side
	}{
		{"buy yes", "BUY", "Yes", nil, domain.SideYes},
		{"sell yes", "SELL", "Yes", nil, domain.SideNo},
		{"buy no", "BUY", "No", nil, domain.SideNo},
		{"sell no", "SELL", "No", nil, domain.SideYes},
		{"sell index 0", "SELL", "", 0, domain.SideNo},
		{"buy index 1", "BUY", "", 1, domain.SideNo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := map[string]any{
				"id":       "t-" + tt.name,
				"usdcSize": 10,
				"side":     tt.side,
				"title":    "Will Boston beat New York?",
				"slug":     "nba-bos-nyk-2026-01-17",
			}
			if tt.outcome != "" {
				raw["outcome"] = tt.outcome
			}
			if tt.index != nil {
				raw["outcomeIndex"] = tt.index
			}
			sig, err := p.Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sig.Side)
		})
	}
}

func TestParseSizePriority(t *testing.T) {
	p := newParser()

	sig, err := p.Parse(map[string]any{
		"id":       "t-4",
		"usdcSize": 0,
		"amount":   "-3",
		"size":     "12.5",
		"title":    "Celtics vs. Knicks",
		"slug":     "nba-bos-nyk",
	})
	require.NoError(t, err)
	assert.InDelta(t, 12.5, sig.NotionalSize, 1e-9)
	assert.Contains(t, sig.Degraded, "side")
	assert.Contains(t, sig.Degraded, "direction")
}

func TestParseRejects(t *testing.T) {
	p := newParser()

	tests := []struct {
		name   string
		raw    map[string]any
		reason string
	}{
		{"nil payload", nil, "empty payload"},
		{"no id", map[string]any{"usdcSize": 10, "title": "NBA: Celtics vs. Knicks"}, "missing origin id"},
		{"no size", map[string]any{"id": "x", "usdcSize": 0, "title": "NBA: Celtics vs. Knicks"}, "no positive size"},
		{"uncategorized", map[string]any{"id": "y", "usdcSize": 5, "title": "Will it rain in Paris?", "slug": "rain-paris"}, "uncategorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrUnparseable))

			var pe *domain.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.reason, pe.Reason)
		})
	}
}

func TestParseUncategorizedKeepsOriginID(t *testing.T) {
	p := newParser()
	_, err := p.Parse(map[string]any{"id": "keep-me", "usdcSize": 5, "title": "Will it rain?"})

	var pe *domain.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "keep-me", pe.OriginID)
}

func TestParseRecoversFromPanics(t *testing.T) {
	p := &Parser{} // nil normalizer panics inside entity resolution

	_, err := p.Parse(map[string]any{
		"id":       "boom",
		"usdcSize": 5,
		"title":    "Celtics vs. Knicks",
		"slug":     "nba-bos-nyk",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnparseable))
}

func TestCategory(t *testing.T) {
	tests := []struct {
		text, want string
	}{
		{"College Basketball: Duke vs. UNC", "cbb"},
		{"cbb-duke-unc-2026-01-17", "cbb"},
		{"nfl-buf-kc-2026-01-18", "nfl"},
		{"NBA: Celtics vs. Knicks", "nba"},
		{"nhl-bos-tor", "nhl"},
		{"Conflict resolution", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Category(tt.text), "Category(%q)", tt.text)
	}
}

func TestMarketTypeOrdering(t *testing.T) {
	tests := []struct {
		title string
		want  domain.MarketType
		ok    bool
	}{
		{"Celtics vs. Knicks", domain.MarketWinner, true},
		{"Celtics vs. Knicks: Spread Celtics (-5.5)", domain.MarketSpread, true},
		{"Boston wins by over 5.5 points?", domain.MarketSpread, true},
		{"Celtics vs. Knicks O/U 220.5", domain.MarketTotal, true},
		{"Total points over 45.5", domain.MarketTotal, true},
		{"Celtics vs. Knicks: Under 220.5", domain.MarketTotal, true},
		{"NBA: Will the Celtics win over the Knicks?", domain.MarketWinner, true},
		{"Will the Knicks pull off an upset under pressure?", domain.MarketWinner, false},
		{"Something else", domain.MarketWinner, false},
	}
	for _, tt := range tests {
		got, ok := MarketType(tt.title)
		assert.Equal(t, tt.want, got, tt.title)
		assert.Equal(t, tt.ok, ok, tt.title)
	}
}

func TestLineExtraction(t *testing.T) {
	v, ok := LineFromText("76ers vs. Celtics O/U 220.5")
	require.True(t, ok)
	assert.InDelta(t, 220.5, v, 1e-9)

	v, ok = LineFromText("Celtics (-5.5)")
	require.True(t, ok)
	assert.InDelta(t, -5.5, v, 1e-9)

	_, ok = LineFromText("76ers vs. Celtics")
	assert.False(t, ok)

	v, ok = LineFromIdentifier("nba-bos-nyk-2026-01-17-spread-home-5pt5")
	require.True(t, ok)
	assert.InDelta(t, 5.5, v, 1e-9)

	v, ok = LineFromIdentifier("KXNBATOTAL-26JAN17BOSNYK-T220")
	require.True(t, ok)
	assert.InDelta(t, 220, v, 1e-9)

	_, ok = LineFromIdentifier("nba-bos-nyk-2026-01-17")
	assert.False(t, ok)
}
