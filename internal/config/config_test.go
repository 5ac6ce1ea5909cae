package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "stream", cfg.Mode)
	assert.Equal(t, 6*time.Hour, cfg.Session.SettlementDuration.Duration)
}

func TestMinTradableCoin(t *testing.T) {
	s := SessionConfig{MinCoinUnit: 0.005, MinCoinMultiplier: 3}
	assert.InDelta(t, 0.015, s.MinTradableCoin(), 1e-12)
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "backtest"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "nope"
	cfg.Session.MM2 = cfg.Session.MM1
	cfg.Session.MinCoinUnit = 0
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "unknown mode")
	assert.Contains(t, msg, "mm1 and mm2 must differ")
	assert.Contains(t, msg, "min_coin_unit")
	assert.Contains(t, msg, "redis: addr")
	assert.GreaterOrEqual(t, strings.Count(msg, "\n"), 4)
}

func TestValidateRoyalSpreadAtLeastThreshold(t *testing.T) {
	cfg := Defaults()
	cfg.Session.NewSpreadThreshold = 0.02
	cfg.Session.NewRoyalSpread = 0.01

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "new_royal_spread")

	cfg = Defaults()
	cfg.Session.RevSpreadThreshold = 0.02
	cfg.Session.RevRoyalSpread = 0.01

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rev_royal_spread")

	cfg = Defaults()
	cfg.Session.NewSpreadThreshold = 0.01
	cfg.Session.NewRoyalSpread = 0.01
	require.NoError(t, cfg.Validate())
}

func TestValidateLiveSessionRequiresCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Session.IsVirtual = false

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upbit: access_key and secret_key")
	assert.Contains(t, err.Error(), "bithumb: api_key and api_secret")

	cfg.Upbit.AccessKey = "a"
	cfg.Upbit.SecretKey = "b"
	cfg.Bithumb.ApiKey = "c"
	cfg.Bithumb.ApiSecret = "d"
	require.NoError(t, cfg.Validate())
}

func TestValidateVirtualSessionNeedsNoCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Session.IsVirtual = true
	require.NoError(t, cfg.Validate())
}

func TestValidateOCATMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "ocat"
	cfg.OCAT.Exchanges = []string{"upbit"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two exchanges")
}

func TestValidatePostgresDSNSkipsHostChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Host = ""
	cfg.Postgres.Port = 0
	cfg.Postgres.Database = ""
	cfg.Postgres.DSN = "postgres://user:pass@db:5432/arbstreamer"
	require.NoError(t, cfg.Validate())
}

func TestDurationUnmarshalText(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	require.Error(t, d.UnmarshalText([]byte("not-a-duration")))

	out, err := duration{time.Minute}.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m0s", string(out))
}
