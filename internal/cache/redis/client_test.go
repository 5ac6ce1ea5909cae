package redis

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfigOptions(t *testing.T) {
	cfg := ClientConfig{
		Addr:       "redis.internal:6380",
		Password:   "secret",
		DB:         3,
		PoolSize:   25,
		MaxRetries: 4,
	}

	opts := cfg.options()
	assert.Equal(t, "redis.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 25, opts.PoolSize)
	assert.Equal(t, 4, opts.MaxRetries)
	assert.Nil(t, opts.TLSConfig)
}

func TestClientConfigOptionsTLS(t *testing.T) {
	cfg := ClientConfig{Addr: "localhost:6379", TLSEnabled: true}

	opts := cfg.options()
	require.NotNil(t, opts.TLSConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), opts.TLSConfig.MinVersion)
}
