package entity

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Golden State", "goldenstate"},
		{"St. Louis", "stlouis"},
		{"  BOS ", "bos"},
		{"76ers", "76ers"},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Key(tt.in), "Key(%q)", tt.in)
	}
}

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "bos-nyk", PairKey("nyk", "bos"))
	assert.Equal(t, PairKey("a", "b"), PairKey("b", "a"))
}

func TestNormalizeInUsesCategoryTable(t *testing.T) {
	n := New(testLogger())

	tests := []struct {
		category, raw, want string
	}{
		{"nba", "Celtics", "bos"},
		{"nba", "BOS", "bos"},
		{"nba", "new york", "nyk"},
		{"nfl", "Chicago", "chi"},
		{"nfl", "Bears", "chi"},
		{"nhl", "St. Louis", "stl"},
		{"nhl", "Golden Knights", "vgk"},
	}
	for _, tt := range tests {
		got, ok := n.NormalizeIn(tt.category, tt.raw)
		require.True(t, ok, "NormalizeIn(%q, %q)", tt.category, tt.raw)
		assert.Equal(t, tt.want, got)
	}
}

func TestNormalizeUnknownAliasIsNone(t *testing.T) {
	n := New(testLogger())

	got, ok := n.NormalizeIn("nba", "Springfield Isotopes")
	assert.False(t, ok)
	assert.Empty(t, got)

	// Stable across calls.
	got2, ok2 := n.NormalizeIn("nba", "Springfield Isotopes")
	assert.Equal(t, ok, ok2)
	assert.Equal(t, got, got2)
}

func TestNormalizeIsReferentiallyStable(t *testing.T) {
	n := New(testLogger())
	for i := 0; i < 3; i++ {
		c, ok := n.Normalize("Boston")
		require.True(t, ok)
		assert.Equal(t, "bos", c)
	}
}

func TestSameEntity(t *testing.T) {
	n := New(testLogger())

	assert.True(t, n.SameEntity("nba", "Celtics", "BOS"))
	assert.False(t, n.SameEntity("nba", "Celtics", "Knicks"))
	// Unmapped on both sides: literal comparison.
	assert.True(t, n.SameEntity("nba", "Isotopes!", "isotopes"))
	// One side unmapped: literals differ.
	assert.False(t, n.SameEntity("nba", "Celtics", "Isotopes"))
}

func TestScanFindsAliasesInOrder(t *testing.T) {
	n := New(testLogger())

	assert.Equal(t, []string{"bos", "nyk"}, n.Scan("nba", "Celtics vs. Knicks"))
	assert.Equal(t, []string{"gsw", "lal"}, n.Scan("nba", "Golden State Warriors at Los Angeles Lakers"))
	assert.Equal(t, []string{"phi"}, n.Scan("nba", "76ers (-4.5)"))
	assert.Empty(t, n.Scan("nba", "Who was the winner?"))
}

func TestMentions(t *testing.T) {
	n := New(testLogger())

	assert.True(t, n.Mentions("nba", "bos", "Boston wins by over 5.5 points?"))
	assert.True(t, n.Mentions("nba", "bos", "BOS -5.5"))
	assert.False(t, n.Mentions("nba", "nyk", "Boston wins by over 5.5 points?"))
	assert.False(t, n.Mentions("nba", "", "Boston"))
}

func TestOverlayExtendsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nba:\n  bos: [beantown]\nwnba:\n  nyl: [liberty]\n"), 0o644))

	overlay, err := LoadOverlay(path)
	require.NoError(t, err)

	n := New(testLogger(), overlay)

	c, ok := n.NormalizeIn("nba", "Beantown")
	require.True(t, ok)
	assert.Equal(t, "bos", c)

	c, ok = n.NormalizeIn("wnba", "Liberty")
	require.True(t, ok)
	assert.Equal(t, "nyl", c)
}

func TestLoadOverlayMissingFile(t *testing.T) {
	_, err := LoadOverlay(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
