package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	s3blob "github.com/alanyoungcy/polycopy/internal/blob/s3"
	"github.com/alanyoungcy/polycopy/internal/cache/redis"
	"github.com/alanyoungcy/polycopy/internal/config"
	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/entity"
	"github.com/alanyoungcy/polycopy/internal/metrics"
	"github.com/alanyoungcy/polycopy/internal/notify"
	"github.com/alanyoungcy/polycopy/internal/pipeline"
	"github.com/alanyoungcy/polycopy/internal/platform/kalshi"
	"github.com/alanyoungcy/polycopy/internal/platform/polymarket"
	"github.com/alanyoungcy/polycopy/internal/store/jsonl"
	"github.com/alanyoungcy/polycopy/internal/store/postgres"
)

// feedTimeout bounds a single origin activity request.
const feedTimeout = 15 * time.Second

// TradeLog is the durable decision log plus the snapshot the archiver
// uploads. Both backends implement it.
type TradeLog interface {
	domain.TradeLog
	s3blob.Snapshotter
}

// Dependencies bundles every infrastructure collaborator the modes need. It
// is constructed by Wire and torn down by the returned cleanup function.
// Optional collaborators are nil when their section is disabled.
type Dependencies struct {
	Entities *entity.Normalizer
	TradeLog TradeLog

	// Destination venue
	Catalog  domain.MarketCatalog
	Exchange domain.ExchangeClient

	// Origin venue
	Feed domain.OriginFeed

	// Optional
	Audit      domain.AuditStore
	Locks      domain.LockManager
	Limiter    domain.RateLimiter
	Stream     domain.DecisionStream
	BlobWriter domain.BlobWriter
	BlobLister domain.BlobLister

	Notifier *notify.Notifier
	Metrics  *metrics.Metrics
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{}

	// --- Entities ---
	var overlays []entity.Table
	if cfg.Entities.OverlayPath != "" {
		overlay, err := entity.LoadOverlay(cfg.Entities.OverlayPath)
		if err != nil {
			return fail(fmt.Errorf("wire: entity overlay: %w", err))
		}
		overlays = append(overlays, overlay)
	}
	deps.Entities = entity.New(logger, overlays...)

	// --- PostgreSQL (trade log backend and/or audit) ---
	var pg *postgres.Client
	if cfg.NeedsPostgres() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Supabase.DSN,
			Host:     cfg.Supabase.Host,
			Port:     cfg.Supabase.Port,
			Database: cfg.Supabase.Database,
			User:     cfg.Supabase.User,
			Password: cfg.Supabase.Password,
			SSLMode:  cfg.Supabase.SSLMode,
			MaxConns: cfg.Supabase.PoolMaxConns,
			MinConns: cfg.Supabase.PoolMinConns,
		}, logger)
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Supabase.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}
		pg = pgClient
		if cfg.Supabase.Audit {
			deps.Audit = postgres.NewAuditStore(pgClient.Pool())
		}
	}

	// --- Trade log ---
	switch cfg.Copy.TradeLog {
	case "postgres":
		deps.TradeLog = postgres.NewDecisionStore(pg.Pool())
	default:
		tradeLog, err := jsonl.Open(cfg.Copy.TradeLogPath, logger)
		if err != nil {
			return fail(fmt.Errorf("wire: trade log: %w", err))
		}
		closers = append(closers, func() { _ = tradeLog.Close() })
		deps.TradeLog = tradeLog
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Locks = redis.NewLockManager(redisClient)
		deps.Limiter = redis.NewRateLimiter(redisClient)
		if cfg.Redis.Stream != "" {
			deps.Stream = redis.NewDecisionStream(redisClient, cfg.Redis.Stream)
		}
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		if cfg.S3.ArchiveCron != "" {
			if err := pipeline.ValidateCron(cfg.S3.ArchiveCron); err != nil {
				return fail(fmt.Errorf("wire: s3 archive_cron: %w", err))
			}
		}
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobLister = s3blob.NewReader(s3Client)
	}

	// --- Venues ---
	deps.Feed = polymarket.NewActivityClient(cfg.Origin.DataHost, &http.Client{Timeout: feedTimeout})

	kc := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKey)
	deps.Catalog = kalshi.NewCatalog(kc, deps.Entities, cfg.Kalshi.Series, logger)
	if cfg.Copy.DryRun {
		deps.Exchange = kalshi.NewDryRunExchange(cfg.Sizing.Bankroll, cfg.Kalshi.LimitPrice, logger)
	} else {
		if err := kc.LoadRSAPrivateKey(cfg.Kalshi.RsaPrivateKeyPath); err != nil {
			return fail(fmt.Errorf("wire: kalshi key: %w", err))
		}
		deps.Exchange = kalshi.NewExchange(kc, cfg.Kalshi.LimitPrice, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	deps.Metrics = metrics.Default()

	logger.InfoContext(ctx, "dependencies wired",
		slog.String("trade_log", cfg.Copy.TradeLog),
		slog.Bool("postgres", pg != nil),
		slog.Bool("redis", cfg.Redis.Enabled),
		slog.Bool("s3", cfg.S3.Enabled),
		slog.Bool("dry_run", cfg.Copy.DryRun),
		slog.String("notify", strings.Join(cfg.Notify.Events, ",")),
	)

	return deps, cleanup, nil
}
