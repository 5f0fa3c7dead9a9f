package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/mcoot/dutchscore/internal/model"
	"github.com/mcoot/dutchscore/internal/services/integrity"
)

// Migration converts a payload stored under a legacy key into the current layout
type Migration struct {
	Key     string
	Convert func(data []byte) (model.GameState, error)
}

// Legacy keys, newest first
const (
	LegacyStateKeyV2   = "dutch-game-state-v2"
	LegacyPlayersKeyV1 = "dutch-players"
)

// Migrations returns the legacy layouts in the order they are tried
func Migrations() []Migration {
	return []Migration{
		{Key: LegacyStateKeyV2, Convert: convertStateV2},
		{Key: LegacyPlayersKeyV1, Convert: convertPlayersV1},
	}
}

// convertStateV2 reads the previous full-state layout, which lacked the game
// id and integrity check timestamp
func convertStateV2(data []byte) (model.GameState, error) {
	var state model.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.GameState{}, fmt.Errorf("decode v2 state: %w", err)
	}
	return state, nil
}

// convertPlayersV1 reads the original bare player array. Round history was not
// stored, so it is rebuilt from the player rounds.
func convertPlayersV1(data []byte) (model.GameState, error) {
	var players []model.Player
	if err := json.Unmarshal(data, &players); err != nil {
		return model.GameState{}, fmt.Errorf("decode v1 players: %w", err)
	}

	state := model.NewGameState()
	state.Players = players
	if len(players) == 0 {
		return state, nil
	}

	repaired, _ := integrity.RepairRoundHistory(state)
	return repaired, nil
}
