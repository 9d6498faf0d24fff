package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// EquityObserver tracks equity for drawdown.
type EquityObserver interface {
	Observe(equity float64)
	Drawdown() float64
}

// BankrollRecorder receives balance metrics.
type BankrollRecorder interface {
	RecordBankroll(balance, drawdown float64)
}

// BalanceWatcher feeds the destination balance into the drawdown tracker.
// Equity is cash plus the stake committed to open copies, so placing an
// order does not read as a loss.
type BalanceWatcher struct {
	exchange domain.ExchangeClient
	equity   EquityObserver
	exposure func() float64
	metrics  BankrollRecorder
	logger   *slog.Logger
}

// NewBalanceWatcher creates a BalanceWatcher. exposure and metrics may be
// nil.
func NewBalanceWatcher(exchange domain.ExchangeClient, equity EquityObserver, exposure func() float64, metrics BankrollRecorder, logger *slog.Logger) *BalanceWatcher {
	return &BalanceWatcher{
		exchange: exchange,
		equity:   equity,
		exposure: exposure,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "balance_watcher")),
	}
}

// Check reads the balance once and records it.
func (b *BalanceWatcher) Check(ctx context.Context) error {
	balance, err := b.exchange.Balance(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: read balance: %w", err)
	}
	equity := balance
	if b.exposure != nil {
		equity += b.exposure()
	}
	b.equity.Observe(equity)
	dd := b.equity.Drawdown()
	if b.metrics != nil {
		b.metrics.RecordBankroll(balance, dd)
	}
	b.logger.DebugContext(ctx, "balance observed",
		slog.Float64("balance", balance),
		slog.Float64("equity", equity),
		slog.Float64("drawdown", dd),
	)
	return nil
}

// RunLoop checks immediately and then on every tick until ctx is cancelled.
func (b *BalanceWatcher) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := b.Check(ctx); err != nil && ctx.Err() == nil {
			b.logger.WarnContext(ctx, "balance check failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			b.logger.Info("balance loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
