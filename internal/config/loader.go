package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYCOPY_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYCOPY_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Origin ──
	setStr(&cfg.Origin.DataHost, "POLYCOPY_ORIGIN_DATA_HOST")
	setStringSlice(&cfg.Origin.Addresses, "POLYCOPY_ORIGIN_ADDRESSES")
	setDuration(&cfg.Origin.PollInterval, "POLYCOPY_ORIGIN_POLL_INTERVAL")
	setInt(&cfg.Origin.FetchLimit, "POLYCOPY_ORIGIN_FETCH_LIMIT")
	setDuration(&cfg.Origin.MaxBackoff, "POLYCOPY_ORIGIN_MAX_BACKOFF")
	setInt(&cfg.Origin.Concurrency, "POLYCOPY_ORIGIN_CONCURRENCY")
	setDuration(&cfg.Origin.Lookback, "POLYCOPY_ORIGIN_LOOKBACK")

	// ── Kalshi ──
	setStr(&cfg.Kalshi.ApiKey, "POLYCOPY_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "POLYCOPY_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.BaseURL, "POLYCOPY_KALSHI_BASE_URL")
	setStringSlice(&cfg.Kalshi.Series, "POLYCOPY_KALSHI_SERIES")
	setDuration(&cfg.Kalshi.CatalogRefresh, "POLYCOPY_KALSHI_CATALOG_REFRESH")
	setDuration(&cfg.Kalshi.BalanceRefresh, "POLYCOPY_KALSHI_BALANCE_REFRESH")
	setInt64(&cfg.Kalshi.LimitPrice, "POLYCOPY_KALSHI_LIMIT_PRICE")

	// ── Copy ──
	setBool(&cfg.Copy.DryRun, "POLYCOPY_COPY_DRY_RUN")
	setStr(&cfg.Copy.TradeLog, "POLYCOPY_COPY_TRADE_LOG")
	setStr(&cfg.Copy.TradeLogPath, "POLYCOPY_COPY_TRADE_LOG_PATH")
	setDuration(&cfg.Copy.SubmitTimeout, "POLYCOPY_COPY_SUBMIT_TIMEOUT")
	setDuration(&cfg.Copy.LockTTL, "POLYCOPY_COPY_LOCK_TTL")
	setInt(&cfg.Copy.HourlyCap, "POLYCOPY_COPY_HOURLY_CAP")
	setInt(&cfg.Copy.DailyCap, "POLYCOPY_COPY_DAILY_CAP")

	// ── Sizing ──
	setStr(&cfg.Sizing.Strategy, "POLYCOPY_SIZING_STRATEGY")
	setFloat64(&cfg.Sizing.Bankroll, "POLYCOPY_SIZING_BANKROLL")
	setInt(&cfg.Sizing.WindowSize, "POLYCOPY_SIZING_WINDOW_SIZE")
	setFloat64(&cfg.Sizing.DefaultAverage, "POLYCOPY_SIZING_DEFAULT_AVERAGE")
	setFloat64(&cfg.Sizing.CounterpartyBankroll, "POLYCOPY_SIZING_COUNTERPARTY_BANKROLL")
	setFloat64(&cfg.Sizing.AssumedBetFraction, "POLYCOPY_SIZING_ASSUMED_BET_FRACTION")
	setFloat64(&cfg.Sizing.MinTrade, "POLYCOPY_SIZING_MIN_TRADE")
	setFloat64(&cfg.Sizing.MaxTrade, "POLYCOPY_SIZING_MAX_TRADE")
	setFloat64(&cfg.Sizing.Multiplier, "POLYCOPY_SIZING_MULTIPLIER")
	setFloat64(&cfg.Sizing.MaxBankrollPct, "POLYCOPY_SIZING_MAX_BANKROLL_PCT")

	// ── Risk ──
	setFloat64(&cfg.Risk.PerTrade.Abs, "POLYCOPY_RISK_PER_TRADE_ABS")
	setFloat64(&cfg.Risk.PerCounterparty.Pct, "POLYCOPY_RISK_PER_COUNTERPARTY_PCT")
	setFloat64(&cfg.Risk.PerMarketSide.Abs, "POLYCOPY_RISK_PER_MARKET_SIDE_ABS")
	setFloat64(&cfg.Risk.Total.Pct, "POLYCOPY_RISK_TOTAL_PCT")
	setFloat64(&cfg.Risk.Total.Abs, "POLYCOPY_RISK_TOTAL_ABS")
	setFloat64(&cfg.Risk.MaxDrawdown, "POLYCOPY_RISK_MAX_DRAWDOWN")
	setFloat64(&cfg.Risk.DrawdownFactor, "POLYCOPY_RISK_DRAWDOWN_FACTOR")

	// ── Entities ──
	setStr(&cfg.Entities.OverlayPath, "POLYCOPY_ENTITIES_OVERLAY_PATH")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "POLYCOPY_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "POLYCOPY_SUPABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "POLYCOPY_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "POLYCOPY_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "POLYCOPY_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "POLYCOPY_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "POLYCOPY_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "POLYCOPY_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "POLYCOPY_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "POLYCOPY_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "POLYCOPY_SUPABASE_RUN_MIGRATIONS")
	setBool(&cfg.Supabase.Audit, "POLYCOPY_SUPABASE_AUDIT")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "POLYCOPY_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "POLYCOPY_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYCOPY_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYCOPY_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYCOPY_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYCOPY_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYCOPY_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "POLYCOPY_REDIS_KEY_PREFIX")
	setStr(&cfg.Redis.Stream, "POLYCOPY_REDIS_STREAM")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "POLYCOPY_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POLYCOPY_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYCOPY_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYCOPY_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYCOPY_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYCOPY_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYCOPY_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYCOPY_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveInterval, "POLYCOPY_S3_ARCHIVE_INTERVAL")
	setStr(&cfg.S3.ArchiveCron, "POLYCOPY_S3_ARCHIVE_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "POLYCOPY_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "POLYCOPY_SERVER_PORT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POLYCOPY_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYCOPY_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POLYCOPY_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POLYCOPY_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "POLYCOPY_MODE")
	setStr(&cfg.LogLevel, "POLYCOPY_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
