// Package config defines the top-level configuration for polycopy and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYCOPY_* environment variables.
type Config struct {
	Origin   OriginConfig   `toml:"origin"`
	Kalshi   KalshiConfig   `toml:"kalshi"`
	Copy     CopyConfig     `toml:"copy"`
	Sizing   SizingConfig   `toml:"sizing"`
	Risk     RiskConfig     `toml:"risk"`
	Entities EntitiesConfig `toml:"entities"`
	Supabase SupabaseConfig `toml:"supabase"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// OriginConfig describes the Polymarket addresses to watch and how to poll
// them.
type OriginConfig struct {
	DataHost     string   `toml:"data_host"`
	Addresses    []string `toml:"addresses"`
	PollInterval duration `toml:"poll_interval"`
	FetchLimit   int      `toml:"fetch_limit"`
	MaxBackoff   duration `toml:"max_backoff"`
	Concurrency  int      `toml:"concurrency"`
	// Lookback drops trades older than this on the first poll of each
	// address. Zero copies whatever the feed returns.
	Lookback duration `toml:"lookback"`
}

// KalshiConfig holds Kalshi exchange API credentials and catalog settings.
type KalshiConfig struct {
	ApiKey            string   `toml:"api_key"`
	RsaPrivateKeyPath string   `toml:"rsa_private_key_path"`
	BaseURL           string   `toml:"base_url"`
	Series            []string `toml:"series"`
	CatalogRefresh    duration `toml:"catalog_refresh"`
	BalanceRefresh    duration `toml:"balance_refresh"`
	LimitPrice        int64    `toml:"limit_price"`
}

// CopyConfig holds execution parameters.
type CopyConfig struct {
	DryRun        bool     `toml:"dry_run"`
	TradeLog      string   `toml:"trade_log"` // "jsonl" or "postgres"
	TradeLogPath  string   `toml:"trade_log_path"`
	SubmitTimeout duration `toml:"submit_timeout"`
	LockTTL       duration `toml:"lock_ttl"`
	HourlyCap     int      `toml:"hourly_cap"`
	DailyCap      int      `toml:"daily_cap"`
}

// SizingConfig selects the sizing preset. Zero-valued overrides keep the
// preset's value.
type SizingConfig struct {
	Strategy             string  `toml:"strategy"`
	Bankroll             float64 `toml:"bankroll"`
	WindowSize           int     `toml:"window_size"`
	DefaultAverage       float64 `toml:"default_average"`
	CounterpartyBankroll float64 `toml:"counterparty_bankroll"`
	AssumedBetFraction   float64 `toml:"assumed_bet_fraction"`
	MinTrade             float64 `toml:"min_trade"`
	MaxTrade             float64 `toml:"max_trade"`
	Multiplier           float64 `toml:"multiplier"`
	MaxBankrollPct       float64 `toml:"max_bankroll_pct"`
}

// LimitConfig is one exposure cap. Zero fields are ignored.
type LimitConfig struct {
	Pct float64 `toml:"pct"`
	Abs float64 `toml:"abs"`
}

// RiskConfig holds the exposure limits and drawdown throttle.
type RiskConfig struct {
	PerTrade        LimitConfig `toml:"per_trade"`
	PerCounterparty LimitConfig `toml:"per_counterparty"`
	PerMarket       LimitConfig `toml:"per_market"`
	PerMarketSide   LimitConfig `toml:"per_market_side"`
	Total           LimitConfig `toml:"total"`
	MaxDrawdown     float64     `toml:"max_drawdown"`
	DrawdownFactor  float64     `toml:"drawdown_factor"`
}

// EntitiesConfig points at an optional alias overlay.
type EntitiesConfig struct {
	OverlayPath string `toml:"overlay_path"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
	// Audit writes pipeline events to audit_log. It needs a reachable
	// database even when the trade log is jsonl.
	Audit bool `toml:"audit"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
	Stream     string `toml:"stream"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	UseSSL          bool     `toml:"use_ssl"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	ArchiveInterval duration `toml:"archive_interval"`
	// ArchiveCron, when set, replaces ArchiveInterval.
	ArchiveCron string `toml:"archive_cron"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds ops HTTP server parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// NotifyConfig holds notification channel settings.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Origin: OriginConfig{
			DataHost:     "https://data-api.polymarket.com",
			PollInterval: duration{5 * time.Second},
			FetchLimit:   20,
			MaxBackoff:   duration{5 * time.Minute},
			Concurrency:  4,
		},
		Kalshi: KalshiConfig{
			BaseURL:        "https://api.elections.kalshi.com/trade-api/v2",
			CatalogRefresh: duration{10 * time.Minute},
			BalanceRefresh: duration{time.Minute},
			LimitPrice:     99,
		},
		Copy: CopyConfig{
			DryRun:        true,
			TradeLog:      "jsonl",
			TradeLogPath:  "data/trades.jsonl",
			SubmitTimeout: duration{15 * time.Second},
			LockTTL:       duration{time.Minute},
		},
		Sizing: SizingConfig{
			Strategy:           "conservative",
			Bankroll:           360,
			WindowSize:         50,
			DefaultAverage:     100,
			AssumedBetFraction: 0.02,
		},
		Risk: RiskConfig{
			PerCounterparty: LimitConfig{Pct: 0.10},
			PerMarketSide:   LimitConfig{Abs: 27},
			Total:           LimitConfig{Pct: 0.30, Abs: 108},
			MaxDrawdown:     0.15,
			DrawdownFactor:  0.5,
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "polycopy:",
			Stream:     "copy_decisions",
		},
		S3: S3Config{
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "polycopy-data",
			ForcePathStyle:  true,
			ArchiveInterval: duration{time.Hour},
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8000,
		},
		Notify: NotifyConfig{
			Events: []string{"copy_executed", "copy_failed"},
		},
		Mode:     "copy",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"copy":   true,
	"status": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validStrategies = map[string]bool{
	"conservative": true,
	"moderate":     true,
	"aggressive":   true,
}

var validTradeLogs = map[string]bool{
	"jsonl":    true,
	"postgres": true,
}

// NeedsPostgres reports whether any enabled component talks to the database.
func (c *Config) NeedsPostgres() bool {
	return c.Copy.TradeLog == "postgres" || c.Supabase.Audit
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: copy, status)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Origin
	if c.Mode == "copy" && len(c.Origin.Addresses) == 0 {
		errs = append(errs, "origin: at least one address is required for mode copy")
	}
	if c.Origin.DataHost == "" {
		errs = append(errs, "origin: data_host must not be empty")
	}
	if c.Origin.PollInterval.Duration <= 0 {
		errs = append(errs, "origin: poll_interval must be > 0")
	}
	if c.Origin.MaxBackoff.Duration < c.Origin.PollInterval.Duration {
		errs = append(errs, "origin: max_backoff must not be shorter than poll_interval")
	}
	if c.Origin.FetchLimit < 1 {
		errs = append(errs, "origin: fetch_limit must be >= 1")
	}
	if c.Origin.Concurrency < 1 {
		errs = append(errs, "origin: concurrency must be >= 1")
	}

	// Kalshi: live copying needs credentials.
	if c.Mode == "copy" && !c.Copy.DryRun {
		if c.Kalshi.ApiKey == "" {
			errs = append(errs, "kalshi: api_key is required unless copy.dry_run is set")
		}
		if c.Kalshi.RsaPrivateKeyPath == "" {
			errs = append(errs, "kalshi: rsa_private_key_path is required unless copy.dry_run is set")
		}
	}
	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	if c.Kalshi.LimitPrice < 1 || c.Kalshi.LimitPrice > 99 {
		errs = append(errs, fmt.Sprintf("kalshi: limit_price must be 1-99 cents, got %d", c.Kalshi.LimitPrice))
	}
	if c.Kalshi.CatalogRefresh.Duration <= 0 {
		errs = append(errs, "kalshi: catalog_refresh must be > 0")
	}

	// Copy
	if !validTradeLogs[c.Copy.TradeLog] {
		errs = append(errs, fmt.Sprintf("copy: unknown trade_log %q (valid: jsonl, postgres)", c.Copy.TradeLog))
	}
	if c.Copy.TradeLog == "jsonl" && c.Copy.TradeLogPath == "" {
		errs = append(errs, "copy: trade_log_path is required for the jsonl trade log")
	}
	if c.Copy.SubmitTimeout.Duration <= 0 {
		errs = append(errs, "copy: submit_timeout must be > 0")
	}
	if (c.Copy.HourlyCap > 0 || c.Copy.DailyCap > 0) && !c.Redis.Enabled {
		errs = append(errs, "copy: hourly_cap and daily_cap need redis.enabled")
	}
	if c.Copy.HourlyCap < 0 || c.Copy.DailyCap < 0 {
		errs = append(errs, "copy: trade caps must be >= 0")
	}

	// Sizing
	if !validStrategies[strings.ToLower(c.Sizing.Strategy)] {
		errs = append(errs, fmt.Sprintf("sizing: unknown strategy %q (valid: conservative, moderate, aggressive)", c.Sizing.Strategy))
	}
	if c.Sizing.Bankroll <= 0 {
		errs = append(errs, "sizing: bankroll must be > 0")
	}
	if c.Sizing.WindowSize < 1 {
		errs = append(errs, "sizing: window_size must be >= 1")
	}
	if c.Sizing.DefaultAverage <= 0 {
		errs = append(errs, "sizing: default_average must be > 0")
	}
	if c.Sizing.AssumedBetFraction < 0 || c.Sizing.AssumedBetFraction > 1 {
		errs = append(errs, "sizing: assumed_bet_fraction must be within [0, 1]")
	}
	if c.Sizing.MaxTrade > 0 && c.Sizing.MinTrade > c.Sizing.MaxTrade {
		errs = append(errs, "sizing: min_trade must not exceed max_trade")
	}

	// Risk
	for name, l := range map[string]LimitConfig{
		"per_trade":        c.Risk.PerTrade,
		"per_counterparty": c.Risk.PerCounterparty,
		"per_market":       c.Risk.PerMarket,
		"per_market_side":  c.Risk.PerMarketSide,
		"total":            c.Risk.Total,
	} {
		if l.Pct < 0 || l.Pct > 1 || l.Abs < 0 {
			errs = append(errs, fmt.Sprintf("risk: %s needs pct within [0, 1] and abs >= 0", name))
		}
	}
	if c.Risk.MaxDrawdown < 0 || c.Risk.MaxDrawdown >= 1 {
		errs = append(errs, "risk: max_drawdown must be within [0, 1)")
	}
	if c.Risk.DrawdownFactor < 0 || c.Risk.DrawdownFactor > 1 {
		errs = append(errs, "risk: drawdown_factor must be within [0, 1]")
	}

	// Supabase
	if c.NeedsPostgres() {
		if strings.TrimSpace(c.Supabase.DSN) == "" {
			if c.Supabase.Host == "" {
				errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
			}
			if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
				errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
			}
			if c.Supabase.Database == "" {
				errs = append(errs, "supabase: database must not be empty")
			}
		}
		if c.Supabase.PoolMaxConns < 1 {
			errs = append(errs, "supabase: pool_max_conns must be >= 1")
		}
		if c.Supabase.PoolMinConns < 0 {
			errs = append(errs, "supabase: pool_min_conns must be >= 0")
		}
		if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
			errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.ArchiveCron == "" && c.S3.ArchiveInterval.Duration <= 0 {
			errs = append(errs, "s3: archive_interval must be > 0 when archive_cron is empty")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
