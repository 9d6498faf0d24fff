package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	s3blob "github.com/alanyoungcy/polycopy/internal/blob/s3"
	"github.com/alanyoungcy/polycopy/internal/config"
	"github.com/alanyoungcy/polycopy/internal/copier"
	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/ledger"
	"github.com/alanyoungcy/polycopy/internal/matcher"
	"github.com/alanyoungcy/polycopy/internal/parser"
	"github.com/alanyoungcy/polycopy/internal/pipeline"
	"github.com/alanyoungcy/polycopy/internal/risk"
	"github.com/alanyoungcy/polycopy/internal/server"
	"github.com/alanyoungcy/polycopy/internal/server/handler"
	"github.com/alanyoungcy/polycopy/internal/sizing"
)

// CopyMode loads the ledger, builds the first index and then runs the
// pipeline loops and the ops server until ctx is cancelled.
func (a *App) CopyMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering copy mode",
		slog.Int("addresses", len(a.cfg.Origin.Addresses)),
		slog.String("strategy", a.cfg.Sizing.Strategy),
		slog.Bool("dry_run", a.cfg.Copy.DryRun),
	)

	led, err := loadLedger(ctx, deps, a.logger)
	if err != nil {
		return err
	}

	strategy, err := sizing.DefaultRegistry(sizingParams(a.cfg.Sizing)).Get(strings.ToLower(a.cfg.Sizing.Strategy))
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	engine := sizing.NewEngine(strategy, sizing.EngineConfig{
		Bankroll:       a.cfg.Sizing.Bankroll,
		WindowSize:     a.cfg.Sizing.WindowSize,
		DefaultAverage: a.cfg.Sizing.DefaultAverage,
	}, a.logger)

	drawdown := risk.NewDrawdown(a.cfg.Sizing.Bankroll)
	riskMgr := risk.NewManager(riskLimits(a.cfg), a.cfg.Sizing.Bankroll, drawdown)

	index := matcher.NewIndex()
	cp := copier.New(copier.Deps{
		Parser:   parser.New(deps.Entities),
		Matcher:  matcher.New(index, deps.Entities),
		Sizer:    engine,
		Risk:     riskMgr,
		Ledger:   led,
		Exchange: deps.Exchange,
		Locks:    deps.Locks,
		Limiter:  deps.Limiter,
		Stream:   deps.Stream,
		Audit:    deps.Audit,
		Notifier: deps.Notifier,
		Metrics:  deps.Metrics,
	}, copier.Config{
		SubmitTimeout: a.cfg.Copy.SubmitTimeout.Duration,
		LockTTL:       a.cfg.Copy.LockTTL.Duration,
		HourlyCap:     a.cfg.Copy.HourlyCap,
		DailyCap:      a.cfg.Copy.DailyCap,
	}, a.logger)

	refresher := pipeline.NewIndexRefresher(deps.Catalog, index, deps.Metrics, a.logger)
	if _, err := refresher.Refresh(ctx); err != nil {
		// The refresh loop retries; until then every trade is no_match.
		a.logger.WarnContext(ctx, "initial index build failed", slog.String("error", err.Error()))
	}

	poller := pipeline.NewPoller(deps.Feed, cp, deps.Metrics, pipeline.PollerConfig{
		Addresses:   a.cfg.Origin.Addresses,
		Interval:    a.cfg.Origin.PollInterval.Duration,
		MaxBackoff:  a.cfg.Origin.MaxBackoff.Duration,
		Limit:       a.cfg.Origin.FetchLimit,
		Concurrency: a.cfg.Origin.Concurrency,
		Lookback:    a.cfg.Origin.Lookback.Duration,
	}, a.logger)

	var balance *pipeline.BalanceWatcher
	if !a.cfg.Copy.DryRun {
		exposure := func() float64 { return led.Status().TotalExposure }
		balance = pipeline.NewBalanceWatcher(deps.Exchange, drawdown, exposure, deps.Metrics, a.logger)
		if err := balance.Check(ctx); err != nil {
			a.logger.WarnContext(ctx, "initial balance check failed", slog.String("error", err.Error()))
		}
	}

	var archive *pipeline.ArchiveLoop
	if deps.BlobWriter != nil {
		archiver := s3blob.NewArchiver(deps.BlobWriter, deps.TradeLog, deps.Audit, a.logger)
		archive = pipeline.NewArchiveLoop(archiver, a.logger)
	}

	orch := pipeline.NewOrchestrator(refresher, poller, balance, archive, pipeline.Schedule{
		CatalogRefresh: a.cfg.Kalshi.CatalogRefresh.Duration,
		Balance:        a.cfg.Kalshi.BalanceRefresh.Duration,
		Archive:        a.cfg.S3.ArchiveInterval.Duration,
		ArchiveCron:    a.cfg.S3.ArchiveCron,
	}, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orch.Run(gctx) })

	if a.cfg.Server.Enabled {
		srv := server.NewServer(server.Config{Port: a.cfg.Server.Port}, server.Handlers{
			Health:  handler.NewHealthHandler(index, a.cfg.Mode),
			Status:  handler.NewStatusHandler(cp, strategy.Name(), a.cfg.Copy.DryRun),
			Metrics: deps.Metrics.Handler(),
		}, deps.Metrics.Middleware, a.logger)
		g.Go(func() error { return srv.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// StatusMode replays the trade log and logs the ledger summary, plus the
// newest archive when object storage is configured.
func (a *App) StatusMode(ctx context.Context, deps *Dependencies) error {
	led, err := loadLedger(ctx, deps, a.logger)
	if err != nil {
		return err
	}

	st := led.Status()
	a.logger.InfoContext(ctx, "ledger status",
		slog.Int("processed_count", st.ProcessedCount),
		slog.Float64("total_exposure", st.TotalExposure),
		slog.Any("per_market_exposure", st.PerMarketExposure),
	)

	if deps.BlobLister == nil {
		return nil
	}
	latest, err := s3blob.Latest(ctx, deps.BlobLister)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.logger.InfoContext(ctx, "no trade log archive yet")
	case err != nil:
		return fmt.Errorf("app: latest archive: %w", err)
	default:
		a.logger.InfoContext(ctx, "latest trade log archive",
			slog.String("path", latest.Path),
			slog.Int64("bytes", latest.Size),
			slog.Time("last_modified", latest.LastModified),
		)
	}
	return nil
}

func loadLedger(ctx context.Context, deps *Dependencies, logger *slog.Logger) (*ledger.Ledger, error) {
	led := ledger.New(deps.TradeLog, logger)
	if err := led.Load(ctx); err != nil {
		return nil, fmt.Errorf("app: load ledger: %w", err)
	}
	return led, nil
}

// sizingParams maps the sizing section onto preset overrides. Zero fields
// keep the preset.
func sizingParams(c config.SizingConfig) sizing.Params {
	return sizing.Params{
		Multiplier:           c.Multiplier,
		MaxBankrollPct:       c.MaxBankrollPct,
		MaxTrade:             c.MaxTrade,
		MinTrade:             c.MinTrade,
		CounterpartyBankroll: c.CounterpartyBankroll,
		AssumedBetFraction:   c.AssumedBetFraction,
	}
}

func riskLimits(cfg *config.Config) risk.Limits {
	limit := func(l config.LimitConfig) risk.Limit { return risk.Limit{Pct: l.Pct, Abs: l.Abs} }
	minTrade := cfg.Sizing.MinTrade
	if minTrade <= 0 {
		minTrade = sizing.DefaultMinTrade
	}
	return risk.Limits{
		PerTrade:        limit(cfg.Risk.PerTrade),
		PerCounterparty: limit(cfg.Risk.PerCounterparty),
		PerMarket:       limit(cfg.Risk.PerMarket),
		PerMarketSide:   limit(cfg.Risk.PerMarketSide),
		Total:           limit(cfg.Risk.Total),
		MaxDrawdown:     cfg.Risk.MaxDrawdown,
		DrawdownFactor:  cfg.Risk.DrawdownFactor,
		MinTrade:        minTrade,
	}
}
