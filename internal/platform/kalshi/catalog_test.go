package kalshi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/entity"
)

type fakeLister struct {
	pages map[string][][]Market // series -> pages
	calls []MarketsQuery
	err   error
}

func (f *fakeLister) GetMarkets(_ context.Context, q MarketsQuery) ([]Market, string, error) {
	f.calls = append(f.calls, q)
	if f.err != nil {
		return nil, "", f.err
	}
	pages := f.pages[q.SeriesTicker]
	idx := 0
	if q.Cursor != "" {
		idx = int(q.Cursor[0] - '0')
	}
	if idx >= len(pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(pages) {
		next = string(rune('0' + idx + 1))
	}
	return pages[idx], next, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCatalog(l MarketLister, series ...string) *Catalog {
	return NewCatalog(l, entity.New(discard()), series, discard())
}

func TestClassifySeries(t *testing.T) {
	tests := []struct {
		series   string
		category string
		kind     domain.MarketType
		ok       bool
	}{
		{"KXNBAGAME", "nba", domain.MarketWinner, true},
		{"KXNFLSPREAD", "nfl", domain.MarketSpread, true},
		{"KXNCAAMBTOTAL", "cbb", domain.MarketTotal, true},
		{"KXCFBGAME", "cfb", domain.MarketWinner, true},
		{"KXMLBGAME", "", "", false},
		{"KXNBA", "", "", false},
	}
	for _, tt := range tests {
		category, kind, ok := ClassifySeries(tt.series)
		assert.Equal(t, tt.ok, ok, tt.series)
		assert.Equal(t, tt.category, category, tt.series)
		assert.Equal(t, tt.kind, kind, tt.series)
	}
}

func TestInstrumentsWinner(t *testing.T) {
	l := &fakeLister{pages: map[string][][]Market{
		"KXNBAGAME": {
			{{Ticker: "KXNBAGAME-26JAN17BOSNYK-BOS", EventTicker: "KXNBAGAME-26JAN17BOSNYK", Title: "Boston vs New York Winner?"}},
			{{Ticker: "KXNBAGAME-26JAN17BOSNYK-NYK", EventTicker: "KXNBAGAME-26JAN17BOSNYK", Title: "Boston vs New York Winner?"}},
		},
	}}

	got, err := newCatalog(l, "KXNBAGAME").Instruments(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, l.calls, 2, "follows the cursor")
	assert.Equal(t, "open", l.calls[0].Status)

	assert.Equal(t, "nba", got[0].Category)
	assert.Equal(t, domain.MarketWinner, got[0].MarketType)
	assert.Equal(t, [2]string{"bos", "nyk"}, got[0].Entities)
	assert.Equal(t, "bos", got[0].Subject)
	assert.Equal(t, "nyk", got[1].Subject)
	assert.Nil(t, got[0].Line)
}

func TestInstrumentsSpreadFromEventTicker(t *testing.T) {
	l := &fakeLister{pages: map[string][][]Market{
		"KXNBASPREAD": {{
			{Ticker: "KXNBASPREAD-26JAN17BOSNYK-BOS5", EventTicker: "KXNBASPREAD-26JAN17BOSNYK", Title: "Boston wins by over 5.5 points?", FloorStrike: domain.Line(5.5)},
			{Ticker: "KXNBASPREAD-26JAN17BOSNYK-NYK7", EventTicker: "KXNBASPREAD-26JAN17BOSNYK", Title: "New York wins by over 7.5 points?"},
		}},
	}}

	got, err := newCatalog(l, "KXNBASPREAD").Instruments(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, [2]string{"bos", "nyk"}, got[0].Entities)
	assert.Equal(t, "bos", got[0].Subject)
	require.NotNil(t, got[0].Line)
	assert.InDelta(t, 5.5, *got[0].Line, 1e-9)

	assert.Equal(t, "nyk", got[1].Subject)
	require.NotNil(t, got[1].Line, "falls back to the title")
	assert.InDelta(t, 7.5, *got[1].Line, 1e-9)
}

func TestInstrumentsTotalAffirmative(t *testing.T) {
	l := &fakeLister{pages: map[string][][]Market{
		"KXNBATOTAL": {{
			{Ticker: "KXNBATOTAL-26JAN17BOSNYK-T220", EventTicker: "KXNBATOTAL-26JAN17BOSNYK", Title: "Boston at New York: Total Points"},
			{Ticker: "KXNBATOTAL-26JAN17BOSNYK-U221", EventTicker: "KXNBATOTAL-26JAN17BOSNYK", Title: "Under 221.5 points scored?"},
		}},
	}}

	got, err := newCatalog(l, "KXNBATOTAL").Instruments(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "over", got[0].Affirmative)
	require.NotNil(t, got[0].Line, "falls back to the ticker")
	assert.InDelta(t, 220, *got[0].Line, 1e-9)
	assert.Empty(t, got[0].Subject)

	assert.Equal(t, "under", got[1].Affirmative)
	assert.InDelta(t, 221.5, *got[1].Line, 1e-9)
}

func TestInstrumentsSkipsCombosAndUnresolved(t *testing.T) {
	l := &fakeLister{pages: map[string][][]Market{
		"KXNBAGAME": {{
			{Ticker: "KXNBAGAME-COMBO-1", EventTicker: "KXNBAGAME-COMBO", Title: "Boston, New York and Miami all win?"},
			{Ticker: "KXNBAGAME-26JAN17ZZZQQQ-ZZZ", EventTicker: "KXNBAGAME-26JAN17ZZZQQQ", Title: "Who wins?"},
		}},
	}}

	got, err := newCatalog(l, "KXNBAGAME", "KXMLBGAME").Instruments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Len(t, l.calls, 1, "unknown series is never requested")
}

func TestInstrumentsFailureAbortsRefresh(t *testing.T) {
	l := &fakeLister{err: errors.New("boom")}
	_, err := newCatalog(l).Instruments(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KXNBAGAME")
}
