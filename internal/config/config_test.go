package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_NAME", "orderdesk")
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.App.Port)
	assert.Equal(t, ":4000", cfg.App.Addr())
	assert.Equal(t, "3306", cfg.DB.Port)
	assert.Equal(t, 900*time.Second, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, "/v1/auth", cfg.Auth.CookiePath)
	assert.False(t, cfg.Auth.CookieSecure)
	assert.Equal(t, int64(15*1024*1024), cfg.Uploads.MaxBytes)
	assert.Equal(t, "workflow.events", cfg.Broker.Queue)
	assert.Equal(t, 2*time.Second, cfg.Broker.DialTimeout)
	assert.Equal(t, "@hourly", cfg.Jobs.TokenSweepSpec)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL_SECONDS", "60")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "1")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTTL)
	assert.True(t, cfg.Auth.CookieSecure)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
}

func TestLoad_ReportsEveryMissingVariable(t *testing.T) {
	for _, k := range []string{"DB_USER", "DB_HOST", "DB_NAME", "ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET"} {
		t.Setenv(k, "")
	}

	_, err := Load()
	require.Error(t, err)
	for _, k := range []string{"DB_USER", "DB_HOST", "DB_NAME", "ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET"} {
		assert.Contains(t, err.Error(), k)
	}
}

func TestLoad_RejectsBadTTL(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL_SECONDS", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_TTL_SECONDS")
}

func TestLoad_RejectsSharedSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("REFRESH_TOKEN_SECRET", "access-secret")

	_, err := Load()
	require.Error(t, err)
}

func TestRateLimitConfig_Normalize(t *testing.T) {
	cfg := RateLimitConfig{Capacity: 0, RefillInterval: 0, TTL: 0}.normalize()

	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.AuthCapacity)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.Equal(t, 5*time.Second, cfg.TTL)

	auth := cfg.WithCapacity(3, "rl-auth")
	assert.Equal(t, 3, auth.Capacity)
	assert.Equal(t, "rl-auth", auth.Prefix)
}
