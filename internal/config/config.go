// Package config defines the top-level configuration for the arbitrage
// streamer and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBSTREAMER_* environment
// variables.
type Config struct {
	Session   SessionConfig   `toml:"session"`
	Collector CollectorConfig `toml:"collector"`
	OCAT      OCATConfig      `toml:"ocat"`
	Upbit     UpbitConfig     `toml:"upbit"`
	Bithumb   BithumbConfig   `toml:"bithumb"`
	Feed      FeedConfig      `toml:"feed"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// SessionConfig holds the parameters of one live trading session. All values
// are fixed before the session starts; the decision loop never prompts.
type SessionConfig struct {
	MM1            string `toml:"mm1"`
	MM2            string `toml:"mm2"`
	TargetCurrency string `toml:"target_currency"`

	// MinCoinUnit is the venue minimum order size for the target currency;
	// MinCoinMultiplier scales it to the tradable unit the analyzer prices.
	MinCoinUnit       float64 `toml:"min_coin_unit"`
	MinCoinMultiplier float64 `toml:"min_coin_multiplier"`

	NewSpreadThreshold float64 `toml:"new_spread_threshold"`
	NewRoyalSpread     float64 `toml:"new_royal_spread"`
	RevSpreadThreshold float64 `toml:"rev_spread_threshold"`
	RevRoyalSpread     float64 `toml:"rev_royal_spread"`

	// ExhaustBooster and ExhaustInhibitor scale the elapsed-time fraction
	// before the exhaustion comparison: > 1 booster paces trades earlier,
	// > 1 inhibitor holds them back. Both default to 1 (neutral).
	ExhaustBooster   float64 `toml:"exhaust_booster"`
	ExhaustInhibitor float64 `toml:"exhaust_inhibitor"`

	SettlementDuration duration `toml:"settlement_duration"`
	LoopInterval       duration `toml:"loop_interval"`

	Division        int   `toml:"division"`
	Depth           int   `toml:"depth"`
	ConsecutionTime int64 `toml:"consecution_time"`

	IsVirtual bool `toml:"is_virtual"`
}

// MinTradableCoin returns the scaled minimum tradable unit.
func (s SessionConfig) MinTradableCoin() float64 {
	return s.MinCoinUnit * s.MinCoinMultiplier
}

// CollectorConfig holds the orderbook collection job parameters.
type CollectorConfig struct {
	Currencies  []string `toml:"currencies"`
	Interval    duration `toml:"interval"`
	TickTimeout duration `toml:"tick_timeout"`
}

// OCATConfig holds the optimal-combination analysis parameters. Every
// exchange pair times every currency is ranked over the lookback window.
type OCATConfig struct {
	Exchanges  []string `toml:"exchanges"`
	Currencies []string `toml:"currencies"`
	Lookback   duration `toml:"lookback"`
	TopN       int      `toml:"top_n"`
}

// UpbitConfig holds Upbit API credentials and fee parameters.
type UpbitConfig struct {
	BaseURL   string  `toml:"base_url"`
	AccessKey string  `toml:"access_key"`
	SecretKey string  `toml:"secret_key"`
	TakerFee  float64 `toml:"taker_fee"`
}

// BithumbConfig holds Bithumb API credentials and fee parameters.
type BithumbConfig struct {
	BaseURL   string  `toml:"base_url"`
	ApiKey    string  `toml:"api_key"`
	ApiSecret string  `toml:"api_secret"`
	TakerFee  float64 `toml:"taker_fee"`
}

// FeedConfig holds the live websocket feed parameters.
type FeedConfig struct {
	Enabled bool   `toml:"enabled"`
	WsURL   string `toml:"ws_url"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for ledger export.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	KeyPrefix      string `toml:"key_prefix"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials. An empty webhook URL
// disables the channel.
type NotifyConfig struct {
	SlackWebhookURL string `toml:"slack_webhook_url"`
}

// duration wraps time.Duration for TOML string decoding ("5s", "6h").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. These
// match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Session: SessionConfig{
			MM1:                "upbit",
			MM2:                "bithumb",
			TargetCurrency:     "bch",
			MinCoinUnit:        0.005,
			MinCoinMultiplier:  1.0,
			NewSpreadThreshold: 0,
			NewRoyalSpread:     0.01,
			RevSpreadThreshold: 0,
			RevRoyalSpread:     0.01,
			ExhaustBooster:     1.0,
			ExhaustInhibitor:   1.0,
			SettlementDuration: duration{6 * time.Hour},
			LoopInterval:       duration{5 * time.Second},
			Division:           2,
			Depth:              5,
			ConsecutionTime:    30,
			IsVirtual:          true,
		},
		Collector: CollectorConfig{
			Currencies:  []string{"bch"},
			Interval:    duration{5 * time.Second},
			TickTimeout: duration{4 * time.Second},
		},
		OCAT: OCATConfig{
			Exchanges:  []string{"upbit", "bithumb"},
			Currencies: []string{"bch", "btc", "eth", "xrp"},
			Lookback:   duration{24 * time.Hour},
			TopN:       5,
		},
		Upbit: UpbitConfig{
			BaseURL:  "https://api.upbit.com/v1",
			TakerFee: 0.0025,
		},
		Bithumb: BithumbConfig{
			BaseURL:  "https://api.bithumb.com",
			TakerFee: 0.0025,
		},
		Feed: FeedConfig{
			Enabled: false,
			WsURL:   "wss://api.upbit.com/websocket/v1",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbstreamer",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbstreamer-data",
			KeyPrefix:      "ledger",
			ForcePathStyle: true,
		},
		Mode:     "stream",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"collect": true,
	"ocat":    true,
	"stream":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: collect, ocat, stream)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Session
	if c.Session.MM1 == "" || c.Session.MM2 == "" {
		errs = append(errs, "session: mm1 and mm2 must not be empty")
	}
	if c.Session.MM1 == c.Session.MM2 {
		errs = append(errs, "session: mm1 and mm2 must differ")
	}
	if c.Session.TargetCurrency == "" {
		errs = append(errs, "session: target_currency must not be empty")
	}
	if c.Session.MinCoinUnit <= 0 {
		errs = append(errs, "session: min_coin_unit must be > 0")
	}
	if c.Session.MinCoinMultiplier < 1 {
		errs = append(errs, "session: min_coin_multiplier must be >= 1")
	}
	for name, v := range map[string]float64{
		"new_spread_threshold": c.Session.NewSpreadThreshold,
		"new_royal_spread":     c.Session.NewRoyalSpread,
		"rev_spread_threshold": c.Session.RevSpreadThreshold,
		"rev_royal_spread":     c.Session.RevRoyalSpread,
	} {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("session: %s must be >= 0, got %g", name, v))
		}
	}
	// A royal spread below its threshold is unreachable: the royal override is
	// only consulted after the plain threshold is met.
	if c.Session.NewRoyalSpread < c.Session.NewSpreadThreshold {
		errs = append(errs, fmt.Sprintf("session: new_royal_spread %g must be >= new_spread_threshold %g",
			c.Session.NewRoyalSpread, c.Session.NewSpreadThreshold))
	}
	if c.Session.RevRoyalSpread < c.Session.RevSpreadThreshold {
		errs = append(errs, fmt.Sprintf("session: rev_royal_spread %g must be >= rev_spread_threshold %g",
			c.Session.RevRoyalSpread, c.Session.RevSpreadThreshold))
	}
	if c.Session.ExhaustBooster <= 0 {
		errs = append(errs, "session: exhaust_booster must be > 0")
	}
	if c.Session.ExhaustInhibitor <= 0 {
		errs = append(errs, "session: exhaust_inhibitor must be > 0")
	}
	if c.Session.SettlementDuration.Duration <= 0 {
		errs = append(errs, "session: settlement_duration must be positive")
	}
	if c.Session.LoopInterval.Duration <= 0 {
		errs = append(errs, "session: loop_interval must be positive")
	}
	if c.Session.Division < 1 {
		errs = append(errs, "session: division must be >= 1")
	}
	if c.Session.Depth < 1 {
		errs = append(errs, "session: depth must be >= 1")
	}
	if c.Session.ConsecutionTime < 0 {
		errs = append(errs, "session: consecution_time must be >= 0")
	}

	// Collector
	if c.Mode == "collect" {
		if len(c.Collector.Currencies) == 0 {
			errs = append(errs, "collector: at least one currency is required for collect mode")
		}
		if c.Collector.Interval.Duration <= 0 {
			errs = append(errs, "collector: interval must be positive")
		}
	}

	// OCAT
	if c.Mode == "ocat" {
		if len(c.OCAT.Exchanges) < 2 {
			errs = append(errs, "ocat: at least two exchanges are required")
		}
		if len(c.OCAT.Currencies) == 0 {
			errs = append(errs, "ocat: at least one currency is required")
		}
		if c.OCAT.Lookback.Duration <= 0 {
			errs = append(errs, "ocat: lookback must be positive")
		}
		if c.OCAT.TopN < 1 {
			errs = append(errs, "ocat: top_n must be >= 1")
		}
	}

	// Fees
	if c.Upbit.TakerFee < 0 || c.Upbit.TakerFee >= 1 {
		errs = append(errs, fmt.Sprintf("upbit: taker_fee must be in [0,1), got %g", c.Upbit.TakerFee))
	}
	if c.Bithumb.TakerFee < 0 || c.Bithumb.TakerFee >= 1 {
		errs = append(errs, fmt.Sprintf("bithumb: taker_fee must be in [0,1), got %g", c.Bithumb.TakerFee))
	}

	// Live sessions need private API credentials on both venues.
	if c.Mode == "stream" && !c.Session.IsVirtual {
		if c.Upbit.AccessKey == "" || c.Upbit.SecretKey == "" {
			errs = append(errs, "upbit: access_key and secret_key are required for a live session")
		}
		if c.Bithumb.ApiKey == "" || c.Bithumb.ApiSecret == "" {
			errs = append(errs, "bithumb: api_key and api_secret are required for a live session")
		}
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
