package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noFiles skips dotenv loading so tests only see what they set.
var noFiles = Options{EnvFiles: []string{}}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(noFiles)
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.Equal(t, "Africa/Nairobi", cfg.App.Timezone)
	assert.NotNil(t, cfg.App.Location)
	assert.Equal(t, 5*time.Second, cfg.Engine.StorageTimeout)
	assert.Equal(t, 8, cfg.Engine.ApplyMaxAttempts)
	assert.Equal(t, 90*24*time.Hour, cfg.Engine.ActivityRetention)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.UsesPostgres())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("STORAGE_TIMEOUT", "250ms")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DATABASE_URL", "postgres://impact:impact@db:5432/impact")

	cfg, err := Load(noFiles)
	require.NoError(t, err)

	assert.Equal(t, time.UTC.String(), cfg.App.Location.String())
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.StorageTimeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.True(t, cfg.UsesPostgres())
}

func TestLoad_DotEnvAndConfigFile(t *testing.T) {
	// Registered first so cleanup unsets what godotenv writes.
	t.Setenv("APPLY_MAX_ATTEMPTS", "")
	require.NoError(t, os.Unsetenv("APPLY_MAX_ATTEMPTS"))

	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("APPLY_MAX_ATTEMPTS=3\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte("HTTP_ADDR=:9999\n"), 0o600))

	cfg, err := Load(Options{EnvFiles: []string{dotenv, filepath.Join(dir, "missing.env")}, ConfigPath: dir})
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Engine.ApplyMaxAttempts)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	_, err := Load(noFiles)
	assert.ErrorContains(t, err, "APP_TIMEZONE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"production needs database", func(c *Config) { c.App.Environment = EnvProduction }, "DATABASE_URL is required"},
		{"production needs ingest key", func(c *Config) { c.App.Environment = EnvProduction }, "INGEST_API_KEY_HASH is required"},
		{"hash must be bcrypt", func(c *Config) { c.HTTP.IngestAPIKeyHash = "plain" }, "must be a bcrypt hash"},
		{"redis needs addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "REDIS_ADDR"},
		{"positive storage timeout", func(c *Config) { c.Engine.StorageTimeout = 0 }, "STORAGE_TIMEOUT"},
		{"attempts", func(c *Config) { c.Engine.ApplyMaxAttempts = 0 }, "APPLY_MAX_ATTEMPTS"},
		{"retention", func(c *Config) { c.Engine.ActivityRetention = time.Hour }, "ACTIVITY_RETENTION"},
		{"scheduler intervals", func(c *Config) { c.Scheduler.PruneInterval = 0 }, "PRUNE_INTERVAL"},
		{"log level", func(c *Config) { c.Observability.LogLevel = "loud" }, "LOG_LEVEL"},
		{"environment", func(c *Config) { c.App.Environment = "qa" }, "APP_ENV"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(noFiles)
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
