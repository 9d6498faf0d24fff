package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/sizing"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polycopy.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validConfig() Config {
	cfg := Defaults()
	cfg.Origin.Addresses = []string{"0xabc"}
	return cfg
}

func TestDefaultsNeedOnlyAddresses(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "origin: at least one address")

	cfg = validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestDefaultsMatchSizingEngine(t *testing.T) {
	cfg := Defaults()
	assert.InDelta(t, sizing.DefaultAverage, cfg.Sizing.DefaultAverage, 1e-9)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeTOML(t, `
mode = "copy"

[origin]
addresses = ["0xAAA", "0xBBB"]
poll_interval = "10s"

[sizing]
strategy = "aggressive"
bankroll = 500.0

[risk.total]
pct = 0.25
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"0xAAA", "0xBBB"}, cfg.Origin.Addresses)
	assert.Equal(t, 10*time.Second, cfg.Origin.PollInterval.Duration)
	assert.Equal(t, 20, cfg.Origin.FetchLimit, "untouched fields keep defaults")
	assert.Equal(t, "aggressive", cfg.Sizing.Strategy)
	assert.InDelta(t, 500.0, cfg.Sizing.Bankroll, 1e-9)
	assert.InDelta(t, 0.25, cfg.Risk.Total.Pct, 1e-9)
	assert.InDelta(t, 108.0, cfg.Risk.Total.Abs, 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeTOML(t, `
[origin]
poll_interval = "soon"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	path := writeTOML(t, `
[origin]
addresses = ["0xfile"]
`)
	t.Setenv("POLYCOPY_ORIGIN_ADDRESSES", " 0x1 , 0x2 ,")
	t.Setenv("POLYCOPY_COPY_DRY_RUN", "false")
	t.Setenv("POLYCOPY_KALSHI_API_KEY", "key-id")
	t.Setenv("POLYCOPY_KALSHI_LIMIT_PRICE", "95")
	t.Setenv("POLYCOPY_ORIGIN_MAX_BACKOFF", "2m")
	t.Setenv("POLYCOPY_SIZING_BANKROLL", "not-a-number")
	t.Setenv("POLYCOPY_MODE", "status")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"0x1", "0x2"}, cfg.Origin.Addresses)
	assert.False(t, cfg.Copy.DryRun)
	assert.Equal(t, "key-id", cfg.Kalshi.ApiKey)
	assert.Equal(t, int64(95), cfg.Kalshi.LimitPrice)
	assert.Equal(t, 2*time.Minute, cfg.Origin.MaxBackoff.Duration)
	assert.InDelta(t, 360.0, cfg.Sizing.Bankroll, 1e-9, "unparseable values are ignored")
	assert.Equal(t, "status", cfg.Mode)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "backtest"
	cfg.LogLevel = "trace"
	cfg.Sizing.Strategy = "yolo"
	cfg.Kalshi.LimitPrice = 120
	cfg.Copy.TradeLog = "sqlite"
	cfg.Risk.MaxDrawdown = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		`unknown mode "backtest"`,
		`unknown log_level "trace"`,
		`sizing: unknown strategy "yolo"`,
		"kalshi: limit_price must be 1-99 cents",
		`copy: unknown trade_log "sqlite"`,
		"risk: max_drawdown",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidateConditionalSections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"live copy needs kalshi key", func(c *Config) { c.Copy.DryRun = false }, "kalshi: api_key is required"},
		{"caps need redis", func(c *Config) { c.Copy.HourlyCap = 5 }, "need redis.enabled"},
		{"postgres log needs a database", func(c *Config) {
			c.Copy.TradeLog = "postgres"
			c.Supabase.Host = ""
		}, "supabase: host must not be empty"},
		{"s3 needs a bucket", func(c *Config) {
			c.S3.Enabled = true
			c.S3.Bucket = ""
		}, "s3: bucket must not be empty"},
		{"telegram pair", func(c *Config) { c.Notify.TelegramToken = "t" }, "telegram_chat_id must be set together"},
		{"backoff below interval", func(c *Config) { c.Origin.MaxBackoff.Duration = time.Second }, "max_backoff"},
		{"risk pct range", func(c *Config) { c.Risk.PerMarket.Pct = 2 }, "risk: per_market needs pct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStatusModeSkipsAddresses(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "status"
	assert.NoError(t, cfg.Validate())
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Kalshi.ApiKey = "kalshi-key"
	cfg.Supabase.Password = "pg-pass"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Notify.DiscordWebhookURL = "https://discord.example/hook"

	out := RedactedConfig(&cfg)
	assert.Equal(t, redacted, out.Kalshi.ApiKey)
	assert.Equal(t, redacted, out.Supabase.Password)
	assert.Equal(t, redacted, out.S3.SecretKey)
	assert.Equal(t, redacted, out.Notify.DiscordWebhookURL)
	assert.Empty(t, out.Redis.Password, "empty secrets stay empty")

	out.Origin.Addresses[0] = "mutated"
	assert.Equal(t, "kalshi-key", cfg.Kalshi.ApiKey)
	assert.Equal(t, "0xabc", cfg.Origin.Addresses[0])
}

func TestNeedsPostgres(t *testing.T) {
	cfg := Defaults()
	assert.False(t, cfg.NeedsPostgres())
	cfg.Supabase.Audit = true
	assert.True(t, cfg.NeedsPostgres())
}
