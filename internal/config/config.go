package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/repository"
)

type Config struct {
	AppEnv string
	Port   string

	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	LogLevel string
	LogFile  string

	// RateLimit is requests per minute per client; 0 disables the limiter.
	RateLimit int
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw)
	}
	return v, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "kanso.db"
	}
	return filepath.Join(home, ".kanso", "kanso.db")
}

// Load reads the process environment after merging an optional .env file.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", f, err)
			}
		}
	}

	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		DBDriver:      getEnv("DB_DRIVER", repository.DriverSQLite),
		DBPath:        getEnv("DB_PATH", defaultDBPath()),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "kanso_user"),
		DBPassword:    getEnv("DB_PASSWORD", ""),
		DBName:        getEnv("DB_NAME", "kanso_db"),
		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
	}

	var err error
	if cfg.RedisDB, err = cache.ParseDB(os.Getenv("REDIS_DB")); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getEnvInt("RATE_LIMIT", 100); err != nil {
		return nil, err
	}

	switch cfg.DBDriver {
	case repository.DriverSQLite, repository.DriverPgx, repository.DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", repository.ErrUnsupportedDriver, cfg.DBDriver)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// RedisEnabled is false when REDIS_HOST is unset; the cache is optional.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// DSN returns the data source for the configured driver: a file path for
// SQLite, a postgres URL otherwise.
func (c *Config) DSN() string {
	if c.DBDriver == repository.DriverSQLite {
		return c.DBPath
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}
