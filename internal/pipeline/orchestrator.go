// Package pipeline runs the long-lived loops of copy mode: catalog refresh,
// origin polling, balance tracking and trade log archival.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Schedule holds the loop intervals. A zero interval disables its loop.
type Schedule struct {
	CatalogRefresh time.Duration
	Balance        time.Duration
	Archive        time.Duration
	ArchiveCron    string // overrides Archive when set
}

// Orchestrator manages the pipeline goroutines.
type Orchestrator struct {
	refresher *IndexRefresher
	poller    *Poller
	balance   *BalanceWatcher // nil in dry-run
	archive   *ArchiveLoop    // nil without object storage
	schedule  Schedule
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. balance and archive may be nil.
func NewOrchestrator(
	refresher *IndexRefresher,
	poller *Poller,
	balance *BalanceWatcher,
	archive *ArchiveLoop,
	schedule Schedule,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		refresher: refresher,
		poller:    poller,
		balance:   balance,
		archive:   archive,
		schedule:  schedule,
		logger:    logger.With(slog.String("component", "orchestrator")),
	}
}

// Run starts every enabled loop under an errgroup. A loop returning a
// non-context error cancels the others and Run returns that error; a
// cancelled ctx stops everything cleanly.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("catalog_refresh", o.schedule.CatalogRefresh),
		slog.Duration("balance", o.schedule.Balance),
		slog.Duration("archive", o.schedule.Archive),
		slog.String("archive_cron", o.schedule.ArchiveCron),
	)

	g, ctx := errgroup.WithContext(ctx)

	if o.schedule.CatalogRefresh > 0 {
		g.Go(func() error {
			return loopErr(ctx, "index refresh", o.refresher.RunLoop(ctx, o.schedule.CatalogRefresh))
		})
	}

	g.Go(func() error {
		return loopErr(ctx, "poller", o.poller.RunLoop(ctx))
	})

	if o.balance != nil && o.schedule.Balance > 0 {
		g.Go(func() error {
			return loopErr(ctx, "balance", o.balance.RunLoop(ctx, o.schedule.Balance))
		})
	}

	if o.archive != nil {
		switch {
		case o.schedule.ArchiveCron != "":
			g.Go(func() error {
				return loopErr(ctx, "archive", o.archive.RunCron(ctx, o.schedule.ArchiveCron))
			})
		case o.schedule.Archive > 0:
			g.Go(func() error {
				return loopErr(ctx, "archive", o.archive.RunInterval(ctx, o.schedule.Archive))
			})
		}
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}

// loopErr turns a loop's exit into the errgroup result: nil on shutdown.
func loopErr(ctx context.Context, name string, err error) error {
	if ctx.Err() != nil || err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
