// Package ledger owns the processed-signal set and the exposure book. Every
// state change that must survive a restart goes through the trade log
// first, and Load rebuilds the whole ledger by replaying it.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

const totalKey = "total"

// Keys identifies the exposure buckets a trade touches.
type Keys struct {
	Market string
	Side   domain.Side
	Trader string
}

func (k Keys) marketSide() string { return k.Market + ":" + string(k.Side) }
func (k Keys) trader() string     { return "trader:" + k.Trader }

func (k Keys) all() []string {
	return []string{k.Market, k.marketSide(), k.trader(), totalKey}
}

// KeysFor derives the exposure keys of a decision record.
func KeysFor(rec domain.DecisionRecord) Keys {
	return Keys{Market: rec.MarketKey, Side: rec.Side, Trader: rec.Trader}
}

// Reservation holds exposure for a trade between the risk check and the
// exchange's answer.
type Reservation struct {
	id       uint64
	OriginID string
	Keys     Keys
	Amount   float64
	Verdict  domain.RiskVerdict
}

// Ledger is safe for concurrent use.
type Ledger struct {
	log    domain.TradeLog
	logger *slog.Logger

	mu        sync.Mutex
	processed map[string]struct{}
	inFlight  map[string]struct{}
	committed map[string]decimal.Decimal
	pending   map[string]decimal.Decimal
	markets   map[string]struct{}
	reserved  map[uint64]*Reservation
	nextID    uint64
}

// New creates an empty Ledger backed by log. Call Load before use.
func New(log domain.TradeLog, logger *slog.Logger) *Ledger {
	l := &Ledger{
		log:    log,
		logger: logger.With(slog.String("component", "ledger")),
	}
	l.reset()
	return l
}

func (l *Ledger) reset() {
	l.processed = make(map[string]struct{})
	l.inFlight = make(map[string]struct{})
	l.committed = make(map[string]decimal.Decimal)
	l.pending = make(map[string]decimal.Decimal)
	l.markets = make(map[string]struct{})
	l.reserved = make(map[uint64]*Reservation)
}

// Load discards in-memory state and replays the trade log. Every record
// marks its origin processed; executed records add their amount to
// exposure. A repeated origin id is counted once.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reset()
	var records, executed int
	err := l.log.Replay(ctx, func(rec domain.DecisionRecord) error {
		records++
		if rec.OriginID == "" {
			return nil
		}
		if _, seen := l.processed[rec.OriginID]; seen {
			l.logger.Warn("duplicate origin id in trade log", slog.String("origin_id", rec.OriginID))
			return nil
		}
		l.processed[rec.OriginID] = struct{}{}
		if rec.Outcome == domain.OutcomeExecuted && rec.Amount > 0 {
			l.commitLocked(rec)
			executed++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ledger: load: %w", err)
	}

	l.logger.InfoContext(ctx, "ledger loaded",
		slog.Int("records", records),
		slog.Int("processed", len(l.processed)),
		slog.Int("executed", executed),
		slog.String("total_exposure", l.committed[totalKey].StringFixed(2)),
	)
	return nil
}

// Claim marks originID in flight. It fails with domain.ErrDuplicateSignal
// when the id is already processed or claimed.
func (l *Ledger) Claim(originID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.processed[originID]; ok {
		return fmt.Errorf("ledger: claim %s: processed: %w", originID, domain.ErrDuplicateSignal)
	}
	if _, ok := l.inFlight[originID]; ok {
		return fmt.Errorf("ledger: claim %s: in flight: %w", originID, domain.ErrDuplicateSignal)
	}
	l.inFlight[originID] = struct{}{}
	return nil
}

// Release drops a claim without marking the id processed, leaving it
// eligible for another attempt.
func (l *Ledger) Release(originID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, originID)
}

// Processed reports whether a terminal decision exists for originID.
func (l *Ledger) Processed(originID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.processed[originID]
	return ok
}

// Settle records a terminal decision that moved no money. The id is marked
// processed even if the log write fails; the error is returned so the
// caller can report it.
func (l *Ledger) Settle(ctx context.Context, rec domain.DecisionRecord) error {
	err := l.log.Append(ctx, rec)

	l.mu.Lock()
	l.processed[rec.OriginID] = struct{}{}
	delete(l.inFlight, rec.OriginID)
	l.mu.Unlock()

	if err != nil {
		return fmt.Errorf("ledger: settle %s: %w", rec.OriginID, err)
	}
	return nil
}

// Reserve computes the exposure keys already carry, committed plus pending,
// asks decide for a verdict, and holds the approved amount. The view, the
// decision and the hold happen under one lock, so concurrent trades on the
// same market cannot both pass a limit only one of them fits. A nil
// Reservation is returned when decide rejects.
func (l *Ledger) Reserve(originID string, keys Keys, decide func(domain.ExposureView) domain.RiskVerdict) (*Reservation, domain.RiskVerdict) {
	l.mu.Lock()
	defer l.mu.Unlock()

	view := domain.ExposureView{
		Total:        l.exposureLocked(totalKey),
		Counterparty: l.exposureLocked(keys.trader()),
		Market:       l.exposureLocked(keys.Market),
		MarketSide:   l.exposureLocked(keys.marketSide()),
	}
	verdict := decide(view)
	if !verdict.Approved || verdict.FinalAmount <= 0 {
		return nil, verdict
	}

	l.nextID++
	r := &Reservation{
		id:       l.nextID,
		OriginID: originID,
		Keys:     keys,
		Amount:   verdict.FinalAmount,
		Verdict:  verdict,
	}
	l.reserved[r.id] = r
	l.addLocked(l.pending, keys, decimal.NewFromFloat(r.Amount))
	return r, verdict
}

// Cancel returns a reservation's hold.
func (l *Ledger) Cancel(r *Reservation) {
	if r == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropLocked(r)
}

// Commit writes rec to the trade log, then moves the reservation to
// committed exposure and marks the origin processed. The order behind rec
// is already live, so memory is updated even when the write fails.
func (l *Ledger) Commit(ctx context.Context, r *Reservation, rec domain.DecisionRecord) error {
	err := l.log.Append(ctx, rec)

	l.mu.Lock()
	if r != nil {
		l.dropLocked(r)
	}
	if rec.Amount > 0 {
		l.commitLocked(rec)
	}
	l.processed[rec.OriginID] = struct{}{}
	delete(l.inFlight, rec.OriginID)
	l.mu.Unlock()

	if err != nil {
		return fmt.Errorf("ledger: commit %s: %w", rec.OriginID, err)
	}
	return nil
}

// Exposure returns the committed exposure on key.
func (l *Ledger) Exposure(key string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.committed[key].InexactFloat64()
}

// Status summarises committed state. Per-market figures cover both sides.
func (l *Ledger) Status() domain.Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	markets := make(map[string]float64, len(l.markets))
	for m := range l.markets {
		markets[m] = l.committed[m].InexactFloat64()
	}
	return domain.Status{
		ProcessedCount:    len(l.processed),
		TotalExposure:     l.committed[totalKey].InexactFloat64(),
		PerMarketExposure: markets,
	}
}

// InFlight returns how many claims are outstanding.
func (l *Ledger) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inFlight)
}

func (l *Ledger) exposureLocked(key string) float64 {
	return l.committed[key].Add(l.pending[key]).InexactFloat64()
}

func (l *Ledger) commitLocked(rec domain.DecisionRecord) {
	keys := KeysFor(rec)
	l.addLocked(l.committed, keys, decimal.NewFromFloat(rec.Amount))
	l.markets[keys.Market] = struct{}{}
}

func (l *Ledger) addLocked(book map[string]decimal.Decimal, keys Keys, amt decimal.Decimal) {
	for _, k := range keys.all() {
		book[k] = book[k].Add(amt)
	}
}

func (l *Ledger) dropLocked(r *Reservation) {
	if _, ok := l.reserved[r.id]; !ok {
		return
	}
	delete(l.reserved, r.id)
	amt := decimal.NewFromFloat(r.Amount)
	for _, k := range r.Keys.all() {
		v := l.pending[k].Sub(amt)
		if !v.IsPositive() {
			delete(l.pending, k)
			continue
		}
		l.pending[k] = v
	}
}
