package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/parser"
)

// Processor handles one raw origin trade.
type Processor interface {
	Process(ctx context.Context, raw map[string]any) domain.Outcome
}

// FeedRecorder receives fetch failure metrics.
type FeedRecorder interface {
	RecordFeedError(address string)
}

// PollerConfig tunes the Poller.
type PollerConfig struct {
	Addresses   []string
	Interval    time.Duration
	MaxBackoff  time.Duration
	Limit       int // trades fetched per address per cycle
	Concurrency int // addresses fetched at once
	// Lookback, when positive, drops trades older than start-Lookback on the
	// first cycle.
	Lookback time.Duration
}

// addressState is the per-address poll bookkeeping.
type addressState struct {
	watermark time.Time
	failures  int
	nextPoll  time.Time
}

// Poller fetches each watched address and feeds new trades, oldest first,
// to the processor.
type Poller struct {
	feed      domain.OriginFeed
	processor Processor
	metrics   FeedRecorder
	cfg       PollerConfig
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	state map[string]*addressState
}

// NewPoller creates a Poller. metrics may be nil.
func NewPoller(feed domain.OriginFeed, processor Processor, metrics FeedRecorder, cfg PollerConfig, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxBackoff < cfg.Interval {
		cfg.MaxBackoff = cfg.Interval
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	p := &Poller{
		feed:      feed,
		processor: processor,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "poller")),
		now:       time.Now,
		state:     make(map[string]*addressState, len(cfg.Addresses)),
	}
	var start time.Time
	if cfg.Lookback > 0 {
		start = p.now().Add(-cfg.Lookback).UTC()
	}
	for _, addr := range cfg.Addresses {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" {
			continue
		}
		p.state[addr] = &addressState{watermark: start}
	}
	return p
}

// Backoff is the wait after the n-th consecutive failure: base, then
// doubling per further failure, capped at max.
func Backoff(base, max time.Duration, failures int) time.Duration {
	d := base
	for i := 1; i < failures && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	return d
}

// Poll runs one cycle over every address that is not backing off. It
// returns only when ctx is cancelled mid-cycle.
func (p *Poller) Poll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	now := p.now()
	for addr := range p.state {
		if !p.due(addr, now) {
			continue
		}
		addr := addr
		g.Go(func() error {
			p.pollAddress(gctx, addr)
			return gctx.Err()
		})
	}
	return g.Wait()
}

func (p *Poller) due(addr string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !now.Before(p.state[addr].nextPoll)
}

func (p *Poller) pollAddress(ctx context.Context, addr string) {
	trades, err := p.feed.Activity(ctx, addr, p.cfg.Limit)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.fail(ctx, addr, err)
		return
	}

	p.mu.Lock()
	st := p.state[addr]
	if st.failures > 0 {
		p.logger.InfoContext(ctx, "origin feed recovered",
			slog.String("address", addr),
			slog.Int("failures", st.failures),
		)
	}
	st.failures = 0
	st.nextPoll = time.Time{}
	watermark := st.watermark
	p.mu.Unlock()

	fresh, latest := selectFresh(trades, watermark)
	for _, raw := range fresh {
		if ctx.Err() != nil {
			return
		}
		out := p.processor.Process(ctx, raw)
		if out.Kind.Terminal() {
			continue
		}
		// Hold the watermark at the failed trade so the next cycle offers
		// it again. Trades after it are re-offered too; the ledger dedupes.
		if ts, ok := parser.Timestamp(raw); ok && ts.Before(latest) {
			latest = ts
		}
		p.logger.DebugContext(ctx, "trade will be retried",
			slog.String("address", addr),
			slog.String("origin_id", out.OriginID),
		)
	}

	if latest.After(watermark) {
		p.mu.Lock()
		if latest.After(st.watermark) {
			st.watermark = latest
		}
		p.mu.Unlock()
	}
}

func (p *Poller) fail(ctx context.Context, addr string, err error) {
	p.mu.Lock()
	st := p.state[addr]
	st.failures++
	wait := Backoff(p.cfg.Interval, p.cfg.MaxBackoff, st.failures)
	st.nextPoll = p.now().Add(wait)
	failures := st.failures
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordFeedError(addr)
	}
	p.logger.WarnContext(ctx, "origin fetch failed",
		slog.String("address", addr),
		slog.Int("failures", failures),
		slog.Duration("backoff", wait),
		slog.String("error", err.Error()),
	)
}

// selectFresh drops trades older than watermark and orders the rest oldest
// first. Trades at exactly the watermark are kept; the ledger dedupes them.
// Trades without a timestamp are kept and sort after timestamped ones.
func selectFresh(trades []map[string]any, watermark time.Time) ([]map[string]any, time.Time) {
	type stamped struct {
		raw map[string]any
		ts  time.Time
		ok  bool
		pos int
	}

	latest := watermark
	kept := make([]stamped, 0, len(trades))
	for i, raw := range trades {
		if raw == nil {
			continue
		}
		ts, ok := parser.Timestamp(raw)
		if ok && ts.Before(watermark) {
			continue
		}
		if ok && ts.After(latest) {
			latest = ts
		}
		// The feed serves newest first; reversing the position keeps equal
		// timestamps in the order they happened.
		kept = append(kept, stamped{raw: raw, ts: ts, ok: ok, pos: len(trades) - i})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ts.Equal(b.ts) {
			return a.ts.Before(b.ts)
		}
		return a.pos < b.pos
	})

	out := make([]map[string]any, len(kept))
	for i, k := range kept {
		out[i] = k.raw
	}
	return out, latest
}

// Watermark returns the latest trade time seen for addr.
func (p *Poller) Watermark(addr string) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.state[strings.ToLower(addr)]; ok {
		return st.watermark
	}
	return time.Time{}
}

// RunLoop polls immediately and then on every tick until ctx is cancelled.
func (p *Poller) RunLoop(ctx context.Context) error {
	p.logger.Info("poller started",
		slog.Int("addresses", len(p.state)),
		slog.Duration("interval", p.cfg.Interval),
	)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.logger.ErrorContext(ctx, "poll cycle failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
