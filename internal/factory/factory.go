package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/dutchscore/internal/dependencies/clock"
	"github.com/mcoot/dutchscore/internal/dependencies/random"
	"github.com/mcoot/dutchscore/internal/dependencies/uuid"
	"github.com/mcoot/dutchscore/internal/notify"
	"github.com/mcoot/dutchscore/internal/relay"
	"github.com/mcoot/dutchscore/internal/services/game"
	"github.com/mcoot/dutchscore/internal/services/persistence"
	"github.com/mcoot/dutchscore/internal/services/scoring"
	"github.com/mcoot/dutchscore/internal/storage"
	"github.com/mcoot/dutchscore/internal/storage/memory"
	redisstorage "github.com/mcoot/dutchscore/internal/storage/redis"
	"github.com/mcoot/dutchscore/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeSQLite = "sqlite"
	StorageTypeRedis  = "redis"
)

// DefaultSQLitePath is used when the sqlite medium is selected without a path
const DefaultSQLitePath = "dutch.db"

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock    clock.Clock
	Random   random.Random
	UUID     uuid.Generator
	Notifier notify.Notifier

	// Services
	ScoringService *scoring.Service
	Persistence    *persistence.Adapter
	GameStore      *game.Store
	Relay          *relay.Server
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage medium ("memory", "sqlite" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// SQLitePath is the database file for the sqlite medium
	SQLitePath string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// RelayConfig holds relay settings; the zero value means relay.DefaultConfig()
	RelayConfig relay.Config
	// Notifier receives user-facing messages from the game store (optional)
	// If nil, notifications are logged
	Notifier notify.Notifier
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}

	relayCfg := cfg.RelayConfig
	if relayCfg.PingPeriod == 0 {
		relayCfg = relay.DefaultConfig()
	}

	return newWithDependencies(store, clock.New(), random.New(), uuid.New(), notifier, relayCfg, logger), nil
}

func openStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = DefaultSQLitePath
		}
		return sqlite.Open(path)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'sqlite' or 'redis'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	ids uuid.Generator,
	notifier notify.Notifier,
	relayCfg relay.Config,
	logger *slog.Logger,
) *App {
	scoringService := scoring.New(logger)
	adapter := persistence.New(store, ids, logger)
	gameStore := game.NewStore(scoringService, adapter, notifier, clk, ids, logger)
	relayServer := relay.NewServer(relayCfg, scoringService, clk, rnd, ids, logger)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		UUID:           ids,
		Notifier:       notifier,
		ScoringService: scoringService,
		Persistence:    adapter,
		GameStore:      gameStore,
		Relay:          relayServer,
	}
}

// Close releases the relay connections and the storage medium
func (a *App) Close() error {
	a.Relay.Close()
	return a.Storage.Close()
}
