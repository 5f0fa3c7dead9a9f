// Package persistence saves and restores the local game state on a storage
// medium. Errors never escape: they are logged and reported as a false or
// nil result so the game keeps running in memory.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mcoot/dutchscore/internal/dependencies/uuid"
	"github.com/mcoot/dutchscore/internal/model"
	"github.com/mcoot/dutchscore/internal/storage"
)

// StateKey is the key the current state layout is stored under
const StateKey = "dutch-game-state"

// Adapter persists GameState snapshots
type Adapter struct {
	storage    storage.Storage
	uuid       uuid.Generator
	migrations []Migration
	logger     *slog.Logger
}

// New creates an Adapter over the given medium using the built-in migrations
func New(storage storage.Storage, uuid uuid.Generator, logger *slog.Logger) *Adapter {
	return &Adapter{
		storage:    storage,
		uuid:       uuid,
		migrations: Migrations(),
		logger:     logger.With(slog.String("component", "persistence")),
	}
}

// Save writes the state under StateKey. It reports whether the write succeeded.
func (a *Adapter) Save(ctx context.Context, state model.GameState) bool {
	data, err := json.Marshal(state)
	if err != nil {
		a.logger.Error("failed to encode game state", slog.String("error", err.Error()))
		return false
	}

	if err := a.storage.Set(ctx, StateKey, data); err != nil {
		a.logger.Error("failed to save game state",
			slog.String("key", StateKey),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// Load reads the saved state, migrating legacy layouts forward when the
// current key is empty. It returns nil when there is nothing usable.
func (a *Adapter) Load(ctx context.Context) *model.GameState {
	data, err := a.storage.Get(ctx, StateKey)
	switch {
	case err == nil:
		return a.decodeCurrent(ctx, data)
	case errors.Is(err, model.ErrKeyNotFound):
		return a.migrate(ctx)
	default:
		a.logger.Error("failed to load game state",
			slog.String("key", StateKey),
			slog.String("error", err.Error()),
		)
		return nil
	}
}

// Clear removes the current and every legacy key
func (a *Adapter) Clear(ctx context.Context) {
	keys := []string{StateKey}
	for _, m := range a.migrations {
		keys = append(keys, m.Key)
	}
	for _, key := range keys {
		if err := a.storage.Delete(ctx, key); err != nil {
			a.logger.Error("failed to clear game state",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (a *Adapter) decodeCurrent(ctx context.Context, data []byte) *model.GameState {
	var state model.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		a.logger.Error("discarding unreadable game state", slog.String("error", err.Error()))
		a.deleteKey(ctx, StateKey)
		return nil
	}

	if len(state.Players) == 0 {
		a.deleteKey(ctx, StateKey)
		return nil
	}

	applyDefaults(&state)
	return &state
}

func (a *Adapter) migrate(ctx context.Context) *model.GameState {
	for _, m := range a.migrations {
		data, err := a.storage.Get(ctx, m.Key)
		if errors.Is(err, model.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			a.logger.Error("failed to read legacy game state",
				slog.String("key", m.Key),
				slog.String("error", err.Error()),
			)
			continue
		}

		state, err := m.Convert(data)
		if err != nil {
			a.logger.Warn("could not convert legacy game state",
				slog.String("key", m.Key),
				slog.String("error", err.Error()),
			)
			continue
		}

		if len(state.Players) == 0 {
			a.deleteKey(ctx, m.Key)
			continue
		}

		applyDefaults(&state)
		if state.GameID == nil {
			id := model.GameID(a.uuid.NewString())
			state.GameID = &id
		}

		// The legacy copy is only dropped once the new layout is written
		if a.Save(ctx, state) {
			a.deleteKey(ctx, m.Key)
		}

		a.logger.Info("migrated legacy game state",
			slog.String("from", m.Key),
			slog.Int("players", len(state.Players)),
			slog.Int("rounds", len(state.RoundHistory)),
		)
		return &state
	}
	return nil
}

func (a *Adapter) deleteKey(ctx context.Context, key string) {
	if err := a.storage.Delete(ctx, key); err != nil {
		a.logger.Error("failed to delete key",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// applyDefaults fills fields older layouts did not carry
func applyDefaults(state *model.GameState) {
	if state.RoundHistory == nil {
		state.RoundHistory = []model.RoundHistoryEntry{}
	}
	if state.ScoreLimit <= 0 {
		state.ScoreLimit = model.DefaultScoreLimit
	}
	for i := range state.Players {
		if state.Players[i].Rounds == nil {
			state.Players[i].Rounds = []model.Round{}
		}
	}
}
