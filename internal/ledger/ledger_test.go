package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

type memLog struct {
	mu      sync.Mutex
	records []domain.DecisionRecord
	failing error
}

func (m *memLog) Append(_ context.Context, rec domain.DecisionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memLog) Replay(_ context.Context, fn func(domain.DecisionRecord) error) error {
	m.mu.Lock()
	recs := append([]domain.DecisionRecord(nil), m.records...)
	m.mu.Unlock()
	for _, r := range recs {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func newLedger(t *testing.T, log *memLog) *Ledger {
	t.Helper()
	l := New(log, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, l.Load(context.Background()))
	return l
}

func approve(amount float64) func(domain.ExposureView) domain.RiskVerdict {
	return func(domain.ExposureView) domain.RiskVerdict {
		return domain.RiskVerdict{Approved: true, FinalAmount: amount}
	}
}

func executed(origin, market string, side domain.Side, trader string, amount float64) domain.DecisionRecord {
	return domain.DecisionRecord{
		ID: "rec-" + origin, OriginID: origin, Trader: trader, Outcome: domain.OutcomeExecuted,
		InstrumentID: market, MarketKey: market, Side: side, Amount: amount, DecidedAt: time.Now().UTC(),
	}
}

func TestClaimRejectsDuplicates(t *testing.T) {
	l := newLedger(t, &memLog{})

	require.NoError(t, l.Claim("a"))
	err := l.Claim("a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateSignal))

	l.Release("a")
	require.NoError(t, l.Claim("a"))
	require.NoError(t, l.Settle(context.Background(), domain.DecisionRecord{OriginID: "a", Outcome: domain.OutcomeUnmatched}))

	err = l.Claim("a")
	assert.True(t, errors.Is(err, domain.ErrDuplicateSignal))
	assert.Zero(t, l.InFlight())
}

func TestReserveCommitMovesExposure(t *testing.T) {
	log := &memLog{}
	l := newLedger(t, log)
	ctx := context.Background()
	keys := Keys{Market: "M1", Side: domain.SideYes, Trader: "0xw"}

	require.NoError(t, l.Claim("o1"))
	r, v := l.Reserve("o1", keys, approve(10))
	require.NotNil(t, r)
	assert.True(t, v.Approved)

	// Pending exposure is visible to the next decision.
	var seen domain.ExposureView
	l.Reserve("peek", keys, func(view domain.ExposureView) domain.RiskVerdict {
		seen = view
		return domain.RiskVerdict{}
	})
	assert.Equal(t, domain.ExposureView{Total: 10, Counterparty: 10, Market: 10, MarketSide: 10}, seen)

	require.NoError(t, l.Commit(ctx, r, executed("o1", "M1", domain.SideYes, "0xw", 10)))

	st := l.Status()
	assert.Equal(t, 1, st.ProcessedCount)
	assert.InDelta(t, 10.0, st.TotalExposure, 1e-9)
	assert.Equal(t, map[string]float64{"M1": 10}, st.PerMarketExposure)
	assert.InDelta(t, 10.0, l.Exposure("M1:yes"), 1e-9)
	assert.InDelta(t, 10.0, l.Exposure("trader:0xw"), 1e-9)

	l.Reserve("peek", keys, func(view domain.ExposureView) domain.RiskVerdict {
		seen = view
		return domain.RiskVerdict{}
	})
	assert.InDelta(t, 10.0, seen.MarketSide, 1e-9, "commit must not double count the reservation")
	assert.Len(t, log.records, 1)
}

func TestCancelReturnsHold(t *testing.T) {
	l := newLedger(t, &memLog{})
	keys := Keys{Market: "M1", Side: domain.SideNo, Trader: "0xw"}

	r, _ := l.Reserve("o1", keys, approve(12.5))
	require.NotNil(t, r)
	l.Cancel(r)
	l.Cancel(r)

	var seen domain.ExposureView
	l.Reserve("o2", keys, func(view domain.ExposureView) domain.RiskVerdict {
		seen = view
		return domain.RiskVerdict{}
	})
	assert.Equal(t, domain.ExposureView{}, seen)
	assert.Zero(t, l.Status().TotalExposure)
}

func TestRejectedReserveHoldsNothing(t *testing.T) {
	l := newLedger(t, &memLog{})
	r, v := l.Reserve("o1", Keys{Market: "M"}, func(domain.ExposureView) domain.RiskVerdict {
		return domain.RiskVerdict{Reasons: []string{"nope"}}
	})
	assert.Nil(t, r)
	assert.False(t, v.Approved)
	assert.Equal(t, []string{"nope"}, v.Reasons)
}

func TestConcurrentReservationsRespectCap(t *testing.T) {
	l := newLedger(t, &memLog{})
	keys := Keys{Market: "M", Side: domain.SideYes, Trader: "t"}
	const limit = 27.0

	decide := func(view domain.ExposureView) domain.RiskVerdict {
		room := limit - view.MarketSide
		if room < 5 {
			return domain.RiskVerdict{Reasons: []string{"full"}}
		}
		return domain.RiskVerdict{Approved: true, FinalAmount: 5}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	approved := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r, _ := l.Reserve("x", keys, decide); r != nil {
				mu.Lock()
				approved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, approved)
}

func TestLoadReplaysLog(t *testing.T) {
	log := &memLog{records: []domain.DecisionRecord{
		executed("o1", "M1", domain.SideYes, "0xa", 10),
		{OriginID: "o2", Outcome: domain.OutcomeUnmatched},
		executed("o3", "M1", domain.SideNo, "0xb", 5.25),
		executed("o4", "M2", domain.SideYes, "0xa", 7),
		executed("o1", "M1", domain.SideYes, "0xa", 10), // repeated id counts once
	}}
	l := newLedger(t, log)

	st := l.Status()
	assert.Equal(t, 4, st.ProcessedCount)
	assert.InDelta(t, 22.25, st.TotalExposure, 1e-9)
	assert.InDelta(t, 15.25, st.PerMarketExposure["M1"], 1e-9)
	assert.InDelta(t, 7.0, st.PerMarketExposure["M2"], 1e-9)
	assert.InDelta(t, 17.0, l.Exposure("trader:0xa"), 1e-9)
	assert.True(t, l.Processed("o2"))

	// Loading twice yields the same state.
	require.NoError(t, l.Load(context.Background()))
	assert.Equal(t, st, l.Status())
}

func TestCommitMarksProcessedEvenWhenLogFails(t *testing.T) {
	log := &memLog{failing: errors.New("disk full")}
	l := newLedger(t, log)

	require.NoError(t, l.Claim("o1"))
	r, _ := l.Reserve("o1", Keys{Market: "M", Side: domain.SideYes, Trader: "t"}, approve(3))
	err := l.Commit(context.Background(), r, executed("o1", "M", domain.SideYes, "t", 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.True(t, l.Processed("o1"))
	assert.InDelta(t, 3.0, l.Status().TotalExposure, 1e-9)
}

func TestLoadPropagatesReplayError(t *testing.T) {
	l := New(failingReplay{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := l.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger: load")
}

type failingReplay struct{}

func (failingReplay) Append(context.Context, domain.DecisionRecord) error { return nil }
func (failingReplay) Replay(context.Context, func(domain.DecisionRecord) error) error {
	return errors.New("corrupt")
}
