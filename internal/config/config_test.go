package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/matching?sslmode=disable")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 90, cfg.MatchLogRetentionDays)
	assert.Equal(t, 30, cfg.WSRateLimitPerMin)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	os.Unsetenv("DATABASE_URL")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("MATCH_LOG_RETENTION_DAYS", "30")
	t.Setenv("WS_RATE_LIMIT_PER_MINUTE", "120")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, 30, cfg.MatchLogRetentionDays)
	assert.Equal(t, 120, cfg.WSRateLimitPerMin)
}

func TestValidateProductionSecrets(t *testing.T) {
	cfg := &Config{JWTSecret: "secret", RedisURL: "rediss://host:6380"}
	assert.Error(t, cfg.Validate(true))

	cfg.JWTSecret = strings.Repeat("a", 32)
	assert.NoError(t, cfg.Validate(true))

	// development accepts anything
	cfg.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate(false))
}
