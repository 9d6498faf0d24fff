// Package copier runs one origin trade through parse, match, size, risk and
// execution, and records exactly one terminal decision per origin id.
package copier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/ledger"
	"github.com/alanyoungcy/polycopy/internal/matcher"
)

// Reasons attached to outcomes produced by the copier itself.
const (
	ReasonNoMatch    = "no destination market"
	ReasonRateLimit  = "trade rate limit"
	ReasonDuplicate  = "already processed"
	ReasonLockHeld   = "claimed by another worker"
	ReasonStagePanic = "internal error"
)

// Throttle window keys.
const (
	hourlyKey = "copy:trades:hourly"
	dailyKey  = "copy:trades:daily"
)

// Parser turns raw payloads into signals.
type Parser interface {
	Parse(raw map[string]any) (domain.TradeSignal, error)
}

// Matcher finds the destination instrument for a signal.
type Matcher interface {
	Match(sig domain.TradeSignal) (domain.MatchResult, bool)
}

// Sizer proposes stakes and learns from every parsed signal.
type Sizer interface {
	Size(sig domain.TradeSignal) domain.SizingDecision
	Observe(sig domain.TradeSignal)
}

// RiskChecker clamps a proposed stake against current exposure.
type RiskChecker interface {
	Check(amount float64, view domain.ExposureView) domain.RiskVerdict
}

// OutcomeNotifier delivers operator alerts for outcomes.
type OutcomeNotifier interface {
	NotifyOutcome(ctx context.Context, o domain.Outcome) error
}

// Recorder receives metrics for outcomes.
type Recorder interface {
	RecordOutcome(kind domain.OutcomeKind, amount float64)
}

// Config tunes the copier.
type Config struct {
	SubmitTimeout time.Duration
	LockTTL       time.Duration
	// HourlyCap and DailyCap bound order submissions. A slot is taken only
	// after risk approves a trade, and a submission the exchange rejects
	// still counts. Zero disables the window.
	HourlyCap int
	DailyCap  int
}

// Deps are the copier's collaborators. Locks, Limiter, Stream, Audit,
// Notifier and Metrics are optional.
type Deps struct {
	Parser   Parser
	Matcher  Matcher
	Sizer    Sizer
	Risk     RiskChecker
	Ledger   *ledger.Ledger
	Exchange domain.ExchangeClient

	Locks    domain.LockManager
	Limiter  domain.RateLimiter
	Stream   domain.DecisionStream
	Audit    domain.AuditStore
	Notifier OutcomeNotifier
	Metrics  Recorder
}

// Copier is safe for concurrent use; concurrent calls for the same origin
// id resolve to one decision and duplicates.
type Copier struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Copier.
func New(deps Deps, cfg Config, logger *slog.Logger) *Copier {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 10 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &Copier{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "copier")),
		now:    time.Now,
	}
}

// Status reports ledger state.
func (c *Copier) Status() domain.Status {
	return c.deps.Ledger.Status()
}

// Process takes one raw origin trade to an Outcome. It never panics.
func (c *Copier) Process(ctx context.Context, raw map[string]any) (out domain.Outcome) {
	defer func() {
		c.finish(ctx, out)
	}()

	sig, err := c.parse(raw)
	if err != nil {
		return c.unparseable(ctx, err)
	}

	if c.deps.Locks != nil {
		unlock, err := c.deps.Locks.Acquire(ctx, "copy:"+sig.OriginID, c.cfg.LockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			return duplicate(sig, ReasonLockHeld)
		case err != nil:
			c.logger.WarnContext(ctx, "lock unavailable, relying on local claim",
				slog.String("origin_id", sig.OriginID),
				slog.String("error", err.Error()),
			)
		default:
			defer unlock()
		}
	}
	if err := c.deps.Ledger.Claim(sig.OriginID); err != nil {
		return duplicate(sig, ReasonDuplicate)
	}
	// History is updated after sizing so a trade is not part of its own
	// average. A retried execution failure is observed once, when it settles.
	defer func() {
		if out.Kind.Terminal() {
			c.deps.Sizer.Observe(sig)
		}
	}()

	out = domain.Outcome{OriginID: sig.OriginID, Signal: &sig}

	match, ok, err := c.match(sig)
	if err != nil || !ok {
		out.Kind = domain.OutcomeUnmatched
		out.Reasons = []string{ReasonNoMatch}
		out.Err = domain.ErrNoMatch
		if err != nil {
			out.Reasons = append(out.Reasons, ReasonStagePanic)
			out.Err = fmt.Errorf("%w: %v", domain.ErrNoMatch, err)
		}
		c.settle(ctx, &out)
		return out
	}
	out.Match = &match

	sizing, err := c.size(sig)
	if err != nil {
		sizing = domain.SizingDecision{Skip: ReasonStagePanic}
	}
	out.Sizing = &sizing
	if sizing.Skip != "" {
		out.Kind = domain.OutcomeSkipped
		out.Reasons = []string{sizing.Skip}
		out.Err = domain.ErrTooSmall
		c.settle(ctx, &out)
		return out
	}

	keys := ledger.Keys{Market: match.Instrument.ID, Side: match.DestinationSide, Trader: sig.Trader}
	res, verdict := c.deps.Ledger.Reserve(sig.OriginID, keys, c.decide(sizing.Proposed))
	out.Verdict = &verdict
	if res == nil {
		out.Kind = domain.OutcomeRejected
		out.Reasons = verdict.Reasons
		out.Err = &domain.RiskRejection{Reasons: verdict.Reasons}
		c.settle(ctx, &out)
		return out
	}
	if !c.allow(ctx) {
		c.deps.Ledger.Cancel(res)
		out.Kind = domain.OutcomeRejected
		out.Reasons = []string{ReasonRateLimit}
		out.Err = &domain.RiskRejection{Reasons: out.Reasons}
		c.settle(ctx, &out)
		return out
	}

	intent := domain.OrderIntent{
		OriginID:     sig.OriginID,
		InstrumentID: match.Instrument.ID,
		Side:         match.DestinationSide,
		Amount:       res.Amount,
	}
	receipt, err := c.submit(ctx, intent)
	if err != nil {
		c.deps.Ledger.Cancel(res)
		c.deps.Ledger.Release(sig.OriginID)
		out.Kind = domain.OutcomeExecutionFailed
		out.Reasons = []string{err.Error()}
		out.Err = &domain.ExecutionError{InstrumentID: intent.InstrumentID, Cause: err}
		c.audit(ctx, "copy_failed", map[string]any{
			"origin_id":     sig.OriginID,
			"instrument_id": intent.InstrumentID,
			"side":          string(intent.Side),
			"amount":        intent.Amount,
			"error":         err.Error(),
		})
		return out
	}

	out.Kind = domain.OutcomeExecuted
	out.OrderID = receipt.OrderID
	out.Reasons = verdict.Reasons
	out.Amount = res.Amount
	if receipt.Cost > 0 && receipt.Cost < res.Amount {
		out.Amount = receipt.Cost
	}
	rec := c.record(out)
	rec.DryRun = receipt.DryRun
	if err := c.deps.Ledger.Commit(ctx, res, rec); err != nil {
		c.logger.ErrorContext(ctx, "trade log write failed for executed order",
			slog.String("origin_id", sig.OriginID),
			slog.String("order_id", receipt.OrderID),
			slog.String("error", err.Error()),
		)
		c.audit(ctx, "trade_log_failed", map[string]any{
			"origin_id": sig.OriginID,
			"order_id":  receipt.OrderID,
			"error":     err.Error(),
		})
	}
	return out
}

func (c *Copier) unparseable(ctx context.Context, err error) domain.Outcome {
	out := domain.Outcome{Kind: domain.OutcomeUnparseable, Err: err}
	var pe *domain.ParseError
	if errors.As(err, &pe) {
		out.OriginID = pe.OriginID
		out.Reasons = []string{pe.Reason}
	} else {
		out.Reasons = []string{err.Error()}
	}
	if out.OriginID == "" {
		return out
	}
	if claimErr := c.deps.Ledger.Claim(out.OriginID); claimErr != nil {
		return domain.Outcome{Kind: domain.OutcomeDuplicate, OriginID: out.OriginID,
			Reasons: []string{ReasonDuplicate}, Err: domain.ErrDuplicateSignal}
	}
	c.settle(ctx, &out)
	return out
}

func duplicate(sig domain.TradeSignal, reason string) domain.Outcome {
	return domain.Outcome{
		Kind:     domain.OutcomeDuplicate,
		OriginID: sig.OriginID,
		Reasons:  []string{reason},
		Err:      domain.ErrDuplicateSignal,
	}
}

// settle writes a terminal no-money decision. A failed write is logged; the
// decision stands.
func (c *Copier) settle(ctx context.Context, out *domain.Outcome) {
	if err := c.deps.Ledger.Settle(ctx, c.record(*out)); err != nil {
		c.logger.ErrorContext(ctx, "trade log write failed",
			slog.String("origin_id", out.OriginID),
			slog.String("outcome", string(out.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

// allow applies the hourly and daily trade windows. Limiter failures do not
// block trading.
func (c *Copier) allow(ctx context.Context) bool {
	if c.deps.Limiter == nil {
		return true
	}
	windows := []struct {
		key    string
		limit  int
		period time.Duration
	}{
		{hourlyKey, c.cfg.HourlyCap, time.Hour},
		{dailyKey, c.cfg.DailyCap, 24 * time.Hour},
	}
	for _, w := range windows {
		if w.limit <= 0 {
			continue
		}
		ok, err := c.deps.Limiter.Allow(ctx, w.key, w.limit, w.period)
		if err != nil {
			c.logger.WarnContext(ctx, "rate limiter unavailable",
				slog.String("key", w.key),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			return false
		}
	}
	return true
}

func (c *Copier) submit(ctx context.Context, intent domain.OrderIntent) (receipt domain.ExecutionReceipt, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("copier: submit panicked: %v", r)
		}
	}()
	sctx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	defer cancel()
	return c.deps.Exchange.Submit(sctx, intent)
}

func (c *Copier) parse(raw map[string]any) (sig domain.TradeSignal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.ParseError{Reason: ReasonStagePanic, Cause: fmt.Errorf("%v", r)}
		}
	}()
	return c.deps.Parser.Parse(raw)
}

func (c *Copier) match(sig domain.TradeSignal) (res domain.MatchResult, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, ok, err = domain.MatchResult{}, false, fmt.Errorf("copier: match panicked: %v", r)
		}
	}()
	res, ok = c.deps.Matcher.Match(sig)
	return res, ok, nil
}

func (c *Copier) size(sig domain.TradeSignal) (d domain.SizingDecision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("copier: size panicked: %v", r)
		}
	}()
	return c.deps.Sizer.Size(sig), nil
}

// decide wraps the risk check so a panic becomes a rejection instead of
// unwinding through the ledger.
func (c *Copier) decide(proposed float64) func(domain.ExposureView) domain.RiskVerdict {
	return func(view domain.ExposureView) (v domain.RiskVerdict) {
		defer func() {
			if r := recover(); r != nil {
				v = domain.RiskVerdict{Reasons: []string{ReasonStagePanic}}
			}
		}()
		return c.deps.Risk.Check(proposed, view)
	}
}

func (c *Copier) audit(ctx context.Context, event string, detail map[string]any) {
	if c.deps.Audit == nil {
		return
	}
	if err := c.deps.Audit.Log(ctx, event, detail); err != nil {
		c.logger.WarnContext(ctx, "audit write failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// record builds the trade log row for out.
func (c *Copier) record(out domain.Outcome) domain.DecisionRecord {
	rec := domain.DecisionRecord{
		ID:        uuid.NewString(),
		OriginID:  out.OriginID,
		Outcome:   out.Kind,
		Reasons:   out.Reasons,
		OrderID:   out.OrderID,
		Amount:    out.Amount,
		DecidedAt: c.now().UTC(),
	}
	if s := out.Signal; s != nil {
		rec.Trader = s.Trader
		rec.Category = s.Category
		rec.MarketType = s.MarketType
		if s.HasEntities() {
			rec.Entities = []string{s.Entities[0], s.Entities[1]}
		}
	}
	if m := out.Match; m != nil {
		rec.InstrumentID = m.Instrument.ID
		rec.MarketKey = m.Instrument.ID
		rec.Side = m.DestinationSide
		rec.Confidence = m.Confidence
		rec.MatchType = m.MatchType
	}
	if s := out.Sizing; s != nil {
		rec.Proposed = s.Proposed
	}
	return rec
}

// finish fans a decision out to the stream, notifier and metrics. Failures
// here are logged and never change the outcome.
func (c *Copier) finish(ctx context.Context, out domain.Outcome) {
	amount := out.Amount

	attrs := []slog.Attr{
		slog.String("origin_id", out.OriginID),
		slog.String("outcome", string(out.Kind)),
		slog.Any("reasons", out.Reasons),
		slog.Float64("amount", amount),
		slog.String("order_id", out.OrderID),
	}
	if out.Match != nil {
		attrs = append(attrs, slog.String("match", matcher.Describe(*out.Match)))
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "copy decision", attrs...)

	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordOutcome(out.Kind, amount)
	}
	if out.Kind == domain.OutcomeDuplicate {
		return
	}

	if c.deps.Stream != nil && out.Kind.Terminal() && out.OriginID != "" {
		rec := c.record(out)
		if err := c.deps.Stream.Publish(ctx, rec); err != nil {
			c.logger.WarnContext(ctx, "decision stream publish failed",
				slog.String("origin_id", out.OriginID),
				slog.String("error", err.Error()),
			)
		}
	}
	if c.deps.Notifier != nil {
		if err := c.deps.Notifier.NotifyOutcome(ctx, out); err != nil {
			c.logger.WarnContext(ctx, "notify failed",
				slog.String("origin_id", out.OriginID),
				slog.String("error", err.Error()),
			)
		}
	}
}
