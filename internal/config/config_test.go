package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/repository"
)

var allKeys = []string{
	"APP_ENV", "PORT", "DB_DRIVER", "DB_PATH", "DB_HOST", "DB_PORT", "DB_USER",
	"DB_PASSWORD", "DB_NAME", "REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD",
	"REDIS_DB", "LOG_LEVEL", "LOG_FILE", "RATE_LIMIT",
}

// clearEnv unsets every key for the test; t.Setenv restores the originals.
func clearEnv(t *testing.T) {
	for _, k := range allKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("Success: defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)

		assert.Equal(t, repository.DriverSQLite, cfg.DBDriver)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 100, cfg.RateLimit)
		assert.False(t, cfg.RedisEnabled())
		assert.False(t, cfg.IsProduction())
		assert.Equal(t, cfg.DBPath, cfg.DSN())
	})

	t.Run("Success: environment overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_DRIVER", "pgx")
		t.Setenv("DB_USER", "u")
		t.Setenv("DB_PASSWORD", "p")
		t.Setenv("DB_HOST", "db")
		t.Setenv("DB_PORT", "6543")
		t.Setenv("DB_NAME", "streaks")
		t.Setenv("REDIS_HOST", "cache")
		t.Setenv("REDIS_DB", "2")
		t.Setenv("APP_ENV", "production")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)

		assert.Equal(t, "postgres://u:p@db:6543/streaks?sslmode=disable", cfg.DSN())
		assert.True(t, cfg.RedisEnabled())
		assert.Equal(t, 2, cfg.RedisDB)
		assert.True(t, cfg.IsProduction())
	})

	t.Run("Success: .env file fills unset keys only", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "9000")

		envFile := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envFile, []byte("PORT=7000\nLOG_LEVEL=debug\n"), 0o600))

		cfg, err := Load(envFile)
		require.NoError(t, err)
		assert.Equal(t, "9000", cfg.Port)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("Fail: unsupported driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_DRIVER", "mysql")
		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		assert.ErrorIs(t, err, repository.ErrUnsupportedDriver)
	})

	t.Run("Fail: malformed number", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RATE_LIMIT", "lots")
		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		assert.ErrorContains(t, err, "RATE_LIMIT")
	})
}
