package config

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_PORT", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("RAZORPAY_KEY_ID", "")
	t.Setenv("RAZORPAY_KEY_SECRET", "")

	cfg := Load()
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 1440, cfg.AccessTTLMin)
	assert.Equal(t, 5*time.Minute, cfg.SettingsCacheTTL)
	assert.False(t, cfg.Razorpay.Configured())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("SETTINGS_CACHE_TTL", "90s")
	t.Setenv("MAIL_QUEUE_ENABLED", "yes")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test")
	t.Setenv("RAZORPAY_KEY_SECRET", "shh")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("BCRYPT_COST", "not-a-number")

	cfg := Load()
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, 90*time.Second, cfg.SettingsCacheTTL)
	assert.True(t, cfg.Mail.QueueEnabled)
	assert.True(t, cfg.Razorpay.Configured())
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 10, cfg.BcryptCost)
}

func TestLoadRateLimitConfig_Normalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadCacheConfig_Methods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head,,")
	cfg := LoadCacheConfig()
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("warn", &buf)
	l.Info("hidden")
	l.Warn("shown", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}
