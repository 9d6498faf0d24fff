package sizing

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signal(trader string, size float64) domain.TradeSignal {
	return domain.TradeSignal{OriginID: "o", Trader: trader, NotionalSize: size}
}

func TestProportionalScenarioC(t *testing.T) {
	s := NewProportional(PresetConservative, Conservative())
	d := s.Size(Input{Signal: signal("w", 100), Average: 100, Bankroll: 433})

	assert.Empty(t, d.Skip)
	assert.InDelta(t, 8.66, d.Proposed, 1e-9)
	assert.InDelta(t, 1.0, d.Ratio, 1e-9)
	assert.Equal(t, PresetConservative, d.Strategy)
}

// Every preset obeys the same contract; only the constants differ.
func TestPresetsContract(t *testing.T) {
	r := DefaultRegistry(Params{})

	tests := []struct {
		preset   string
		size     float64
		bankroll float64
		want     float64
		skip     bool
	}{
		{PresetConservative, 100, 433, 8.66, false},
		{PresetModerate, 100, 433, 12.99, false},
		{PresetAggressive, 100, 433, 17.32, false},

		// ratio 2 boosts
		{PresetConservative, 200, 433, 19.05, false},
		{PresetModerate, 200, 433, 25, false},

		// ratio 0.4 dampens
		{PresetConservative, 40, 433, 3.12, false},
		{PresetAggressive, 40, 433, 5.54, false},

		// bankroll percentage is tighter than max trade
		{PresetConservative, 1000, 100, 10, false},
		{PresetModerate, 1000, 100, 15, false},
		{PresetAggressive, 1000, 100, 20, false},

		// max trade is tighter than bankroll percentage
		{PresetAggressive, 1000, 433, 25, false},

		{PresetConservative, 5, 433, 0.39, true},
		{PresetAggressive, 5, 433, 0.69, true},
	}
	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			s, err := r.Get(tt.preset)
			require.NoError(t, err)

			d := s.Size(Input{Signal: signal("w", tt.size), Average: 100, Bankroll: tt.bankroll})
			assert.InDelta(t, tt.want, d.Proposed, 1e-9, "size=%v bankroll=%v", tt.size, tt.bankroll)
			if tt.skip {
				assert.Equal(t, SkipTooSmall, d.Skip)
			} else {
				assert.Empty(t, d.Skip)
			}
		})
	}
}

func TestPresetsMonotoneInSize(t *testing.T) {
	for _, name := range []string{PresetConservative, PresetModerate, PresetAggressive} {
		s, err := DefaultRegistry(Params{}).Get(name)
		require.NoError(t, err)

		prev := -1.0
		for size := 1.0; size <= 2000; size += 7 {
			d := s.Size(Input{Signal: signal("w", size), Average: 100, Bankroll: 433})
			assert.GreaterOrEqual(t, d.Proposed, prev, "%s at size %v", name, size)
			prev = d.Proposed
		}
	}
}

func TestProportionalCounterpartyBankroll(t *testing.T) {
	p := Conservative()
	p.CounterpartyBankroll = 1000
	s := NewProportional("fixed", p)

	d := s.Size(Input{Signal: signal("w", 20), Average: 100, Bankroll: 433})
	// 20 * 433 / 1000 = 8.66, dampened by 0.9
	assert.InDelta(t, 7.79, d.Proposed, 1e-9)
}

func TestProportionalNeverRoundsUpToMinimum(t *testing.T) {
	p := Conservative()
	p.MinTrade = 5
	s := NewProportional("min", p)

	d := s.Size(Input{Signal: signal("w", 50), Average: 100, Bankroll: 433})
	assert.InDelta(t, 4.33, d.Proposed, 1e-9)
	assert.Equal(t, SkipTooSmall, d.Skip)
}

func TestMergeOverrides(t *testing.T) {
	p := Moderate().Merge(Params{MaxTrade: 50, Multiplier: 3})
	assert.InDelta(t, 50.0, p.MaxTrade, 1e-9)
	assert.InDelta(t, 3.0, p.Multiplier, 1e-9)
	assert.InDelta(t, 1.15, p.Boost, 1e-9)
	assert.InDelta(t, 0.15, p.MaxBankrollPct, 1e-9)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry(Params{})
	assert.Equal(t, []string{PresetAggressive, PresetConservative, PresetModerate}, r.List())

	_, err := r.Get("yolo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yolo")
}

func TestEngineUsesHistoryBeforeCurrentTrade(t *testing.T) {
	s, err := DefaultRegistry(Params{}).Get(PresetConservative)
	require.NoError(t, err)
	e := NewEngine(s, EngineConfig{Bankroll: 433}, discard())

	first := signal("0xabc", 100)
	d := e.Size(first)
	assert.InDelta(t, DefaultAverage, d.Average, 1e-9)
	assert.InDelta(t, 8.66, d.Proposed, 1e-9)
	e.Observe(first)

	e.Observe(signal("0xabc", 300))
	assert.InDelta(t, 200.0, e.Average("0xabc"), 1e-9)
	assert.Equal(t, 2, e.History("0xabc"))

	assert.InDelta(t, DefaultAverage, e.Average("0xother"), 1e-9)
	assert.Equal(t, "conservative", e.Strategy())
}

func TestWindowEvictsOldest(t *testing.T) {
	w := newWindow(3)
	_, ok := w.mean()
	assert.False(t, ok)

	for _, v := range []float64{10, 20, 30, 40, 50} {
		w.add(v)
	}
	m, ok := w.mean()
	require.True(t, ok)
	assert.InDelta(t, 40.0, m, 1e-9)
	assert.Equal(t, 3, w.len())
}

func TestEngineIgnoresNonPositiveSizes(t *testing.T) {
	s, err := DefaultRegistry(Params{}).Get(PresetModerate)
	require.NoError(t, err)
	e := NewEngine(s, EngineConfig{Bankroll: 100, WindowSize: 2, DefaultAverage: 50}, discard())

	e.Observe(signal("t", 0))
	assert.Equal(t, 0, e.History("t"))
	assert.InDelta(t, 50.0, e.Average("t"), 1e-9)
}
