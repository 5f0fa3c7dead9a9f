package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mcoot/dutchscore/internal/api"
	"github.com/mcoot/dutchscore/internal/factory"
	"github.com/mcoot/dutchscore/internal/relay"
)

// loadConfig reads the server settings from the environment. Relay rooms
// live in memory only, so the server always runs on memory storage.
func loadConfig(getenv func(string) string, logger *slog.Logger) (factory.Config, api.ServerConfig, error) {
	cfg := factory.Config{
		Logger:      logger,
		StorageType: factory.StorageTypeMemory,
		RelayConfig: relay.DefaultConfig(),
	}
	serverConfig := api.DefaultServerConfig()

	// Idle relay rooms are dropped after ROOM_TTL
	if ttl := getenv("ROOM_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil || d <= 0 {
			return cfg, serverConfig, fmt.Errorf("invalid ROOM_TTL %q", ttl)
		}
		cfg.RelayConfig.RoomTTL = d
	}

	if port := getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return cfg, serverConfig, fmt.Errorf("invalid PORT %q", port)
		}
		serverConfig.Port = p
	}

	return cfg, serverConfig, nil
}
