package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mcoot/dutchscore/internal/factory"
	"github.com/mcoot/dutchscore/internal/notify"
	redisstorage "github.com/mcoot/dutchscore/internal/storage/redis"
)

// Config holds CLI configuration
type Config struct {
	Storage   string
	DBPath    string
	RedisURL  string
	ServerURL string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Storage:   getEnvOrDefault("DUTCH_STORAGE", factory.StorageTypeSQLite),
		DBPath:    getEnvOrDefault("DUTCH_DB_PATH", defaultDBPath()),
		RedisURL:  os.Getenv("DUTCH_REDIS_URL"),
		ServerURL: getEnvOrDefault("DUTCH_SERVER", "http://localhost:8080"),
		Output:    "text",
		Verbose:   false,
	}
}

// Validate checks flag values that cobra cannot
func (c *Config) Validate() error {
	if c.Output != "text" && c.Output != "json" {
		return fmt.Errorf("invalid output format %q: must be 'text' or 'json'", c.Output)
	}
	return nil
}

// Logger returns the CLI logger. Logs are discarded unless verbose.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	if !c.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// FactoryConfig builds the application config for local commands
func (c *Config) FactoryConfig(logger *slog.Logger, notifier notify.Notifier) (factory.Config, error) {
	fc := factory.Config{
		Logger:      logger,
		StorageType: c.Storage,
		Notifier:    notifier,
	}

	switch c.Storage {
	case factory.StorageTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(c.DBPath), 0700); err != nil {
			return fc, fmt.Errorf("failed to create data directory: %w", err)
		}
		fc.SQLitePath = c.DBPath
	case factory.StorageTypeRedis:
		if c.RedisURL == "" {
			return fc, errors.New("--redis-url (or DUTCH_REDIS_URL) is required with redis storage")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		fc.RedisConfig = &redisCfg
	}

	return fc, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".dutch", factory.DefaultSQLitePath)
	}
	return filepath.Join(home, ".dutch", factory.DefaultSQLitePath)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
