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
// built-in defaults, applies ARBSTREAMER_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
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

// applyEnvOverrides reads well-known ARBSTREAMER_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Session ──
	setStr(&cfg.Session.MM1, "ARBSTREAMER_SESSION_MM1")
	setStr(&cfg.Session.MM2, "ARBSTREAMER_SESSION_MM2")
	setStr(&cfg.Session.TargetCurrency, "ARBSTREAMER_SESSION_TARGET_CURRENCY")
	setFloat64(&cfg.Session.MinCoinUnit, "ARBSTREAMER_SESSION_MIN_COIN_UNIT")
	setFloat64(&cfg.Session.MinCoinMultiplier, "ARBSTREAMER_SESSION_MIN_COIN_MULTIPLIER")
	setFloat64(&cfg.Session.NewSpreadThreshold, "ARBSTREAMER_SESSION_NEW_SPREAD_THRESHOLD")
	setFloat64(&cfg.Session.NewRoyalSpread, "ARBSTREAMER_SESSION_NEW_ROYAL_SPREAD")
	setFloat64(&cfg.Session.RevSpreadThreshold, "ARBSTREAMER_SESSION_REV_SPREAD_THRESHOLD")
	setFloat64(&cfg.Session.RevRoyalSpread, "ARBSTREAMER_SESSION_REV_ROYAL_SPREAD")
	setFloat64(&cfg.Session.ExhaustBooster, "ARBSTREAMER_SESSION_EXHAUST_BOOSTER")
	setFloat64(&cfg.Session.ExhaustInhibitor, "ARBSTREAMER_SESSION_EXHAUST_INHIBITOR")
	setDuration(&cfg.Session.SettlementDuration, "ARBSTREAMER_SESSION_SETTLEMENT_DURATION")
	setDuration(&cfg.Session.LoopInterval, "ARBSTREAMER_SESSION_LOOP_INTERVAL")
	setInt(&cfg.Session.Division, "ARBSTREAMER_SESSION_DIVISION")
	setInt(&cfg.Session.Depth, "ARBSTREAMER_SESSION_DEPTH")
	setInt64(&cfg.Session.ConsecutionTime, "ARBSTREAMER_SESSION_CONSECUTION_TIME")
	setBool(&cfg.Session.IsVirtual, "ARBSTREAMER_SESSION_IS_VIRTUAL")

	// ── Collector ──
	setStringSlice(&cfg.Collector.Currencies, "ARBSTREAMER_COLLECTOR_CURRENCIES")
	setDuration(&cfg.Collector.Interval, "ARBSTREAMER_COLLECTOR_INTERVAL")
	setDuration(&cfg.Collector.TickTimeout, "ARBSTREAMER_COLLECTOR_TICK_TIMEOUT")

	// ── OCAT ──
	setStringSlice(&cfg.OCAT.Exchanges, "ARBSTREAMER_OCAT_EXCHANGES")
	setStringSlice(&cfg.OCAT.Currencies, "ARBSTREAMER_OCAT_CURRENCIES")
	setDuration(&cfg.OCAT.Lookback, "ARBSTREAMER_OCAT_LOOKBACK")
	setInt(&cfg.OCAT.TopN, "ARBSTREAMER_OCAT_TOP_N")

	// ── Upbit ──
	setStr(&cfg.Upbit.BaseURL, "ARBSTREAMER_UPBIT_BASE_URL")
	setStr(&cfg.Upbit.AccessKey, "ARBSTREAMER_UPBIT_ACCESS_KEY")
	setStr(&cfg.Upbit.SecretKey, "ARBSTREAMER_UPBIT_SECRET_KEY")
	setFloat64(&cfg.Upbit.TakerFee, "ARBSTREAMER_UPBIT_TAKER_FEE")

	// ── Bithumb ──
	setStr(&cfg.Bithumb.BaseURL, "ARBSTREAMER_BITHUMB_BASE_URL")
	setStr(&cfg.Bithumb.ApiKey, "ARBSTREAMER_BITHUMB_API_KEY")
	setStr(&cfg.Bithumb.ApiSecret, "ARBSTREAMER_BITHUMB_API_SECRET")
	setFloat64(&cfg.Bithumb.TakerFee, "ARBSTREAMER_BITHUMB_TAKER_FEE")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "ARBSTREAMER_FEED_ENABLED")
	setStr(&cfg.Feed.WsURL, "ARBSTREAMER_FEED_WS_URL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ARBSTREAMER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARBSTREAMER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBSTREAMER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBSTREAMER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBSTREAMER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBSTREAMER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBSTREAMER_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBSTREAMER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBSTREAMER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBSTREAMER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARBSTREAMER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBSTREAMER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBSTREAMER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBSTREAMER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBSTREAMER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBSTREAMER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ARBSTREAMER_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ARBSTREAMER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBSTREAMER_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBSTREAMER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBSTREAMER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBSTREAMER_S3_SECRET_KEY")
	setStr(&cfg.S3.KeyPrefix, "ARBSTREAMER_S3_KEY_PREFIX")
	setBool(&cfg.S3.UseSSL, "ARBSTREAMER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARBSTREAMER_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.SlackWebhookURL, "ARBSTREAMER_NOTIFY_SLACK_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBSTREAMER_MODE")
	setStr(&cfg.LogLevel, "ARBSTREAMER_LOG_LEVEL")
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
