package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/hospital")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, "04:00", cfg.ReminderAt)
	assert.Equal(t, int64(5<<20), cfg.UploadMaxBytes)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/hospital")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.EqualError(t, err, "JWT_SECRET is required")

	t.Setenv("POSTGRES_DSN", "")
	_, err = Load()
	assert.EqualError(t, err, "POSTGRES_DSN is required")
}

func TestLoadParsesOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_URL", "redis://svc:pw@cache:6380")
	t.Setenv("LOCK_TTL", "7")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("TIMEZONE", "Asia/Manila")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, "svc", cfg.RedisUsername)
	assert.Equal(t, "pw", cfg.RedisPassword)
	assert.Equal(t, 7*time.Second, cfg.LockTTL)
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Manila", loc.String())
}

func TestLoadRejectsUnknownTimeZone(t *testing.T) {
	setRequired(t)
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}

func TestPostgresPoolOptions(t *testing.T) {
	setRequired(t)
	t.Setenv("POSTGRES_MAX_CONNS", "8")
	t.Setenv("POSTGRES_CONNECT_ATTEMPTS", "")

	cfg, err := Load()
	require.NoError(t, err)

	opts := cfg.PostgresPool()
	assert.Equal(t, "postgres://localhost/hospital", opts.DSN)
	assert.Equal(t, int32(8), opts.MaxConns)
	assert.Equal(t, 5, opts.Attempts)
}
