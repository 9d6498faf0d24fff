package jsonl

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func collect(t *testing.T, l *TradeLog) []domain.DecisionRecord {
	t.Helper()
	var out []domain.DecisionRecord
	require.NoError(t, l.Replay(context.Background(), func(r domain.DecisionRecord) error {
		out = append(out, r)
		return nil
	}))
	return out
}

func TestAppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trades.jsonl")
	l, err := Open(path, discard())
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	at := time.Date(2026, 1, 17, 12, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(ctx, domain.DecisionRecord{ID: "1", OriginID: "a", Outcome: domain.OutcomeExecuted, Amount: 8.66, DecidedAt: at}))
	require.NoError(t, l.Append(ctx, domain.DecisionRecord{ID: "2", OriginID: "b", Outcome: domain.OutcomeUnmatched, DecidedAt: at}))

	recs := collect(t, l)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].OriginID)
	assert.InDelta(t, 8.66, recs[0].Amount, 1e-9)
	assert.Equal(t, domain.OutcomeUnmatched, recs[1].Outcome)
	assert.Equal(t, at, recs[1].DecidedAt)

	snap, err := l.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(snap), "\n"))
}

func TestReplayMissingFile(t *testing.T) {
	l := &TradeLog{path: filepath.Join(t.TempDir(), "none.jsonl"), logger: discard()}
	assert.Empty(t, collect(t, l))
}

func TestReplaySkipsTornLastLine(t *testing.T) {
	input := `{"id":"1","origin_id":"a","outcome":"executed","decided_at":"2026-01-17T12:00:00Z"}
{"id":"2","origin_id":"b","outcome":"skipped","decided_at":"2026-01-17T12:00:00Z"}
{"id":"3","origin_id":"c","outc`

	var got []string
	err := replay(context.Background(), strings.NewReader(input), discard(), func(r domain.DecisionRecord) error {
		got = append(got, r.OriginID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestReplayRejectsCorruptMiddleLine(t *testing.T) {
	input := `{"id":"1","origin_id":"a","outcome":"executed","decided_at":"2026-01-17T12:00:00Z"}
not json
{"id":"3","origin_id":"c","outcome":"skipped","decided_at":"2026-01-17T12:00:00Z"}
`
	err := replay(context.Background(), strings.NewReader(input), discard(), func(domain.DecisionRecord) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestOpenRepairsTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	good := `{"id":"1","origin_id":"a","outcome":"executed","decided_at":"2026-01-17T12:00:00Z"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(good+`{"id":"2","orig`), 0o644))

	l, err := Open(path, discard())
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Append(context.Background(), domain.DecisionRecord{ID: "3", OriginID: "c", Outcome: domain.OutcomeSkipped}))

	recs := collect(t, l)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].OriginID)
	assert.Equal(t, "c", recs[1].OriginID)
}

func TestAppendAfterClose(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "t.jsonl"), discard())
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.Error(t, l.Append(context.Background(), domain.DecisionRecord{OriginID: "x"}))
}
