package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundHistoryEntryOmitsZeroTimestamp(t *testing.T) {
	data, err := json.Marshal(RoundHistoryEntry{Scores: []float64{5, 7}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"scores":[5,7]}`, string(data))

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err = json.Marshal(RoundHistoryEntry{Scores: []float64{5, 7}, DutchPlayerID: "p1", Timestamp: at})
	require.NoError(t, err)
	assert.JSONEq(t, `{"scores":[5,7],"dutchPlayerId":"p1","timestamp":"2024-03-01T12:00:00Z"}`, string(data))
}

func TestPhase(t *testing.T) {
	state := NewGameState()
	assert.Equal(t, PhaseSetup, state.Phase())

	state.Players = []Player{{ID: "p1", Name: "Alice", Rounds: []Round{}}}
	assert.Equal(t, PhasePlaying, state.Phase())

	state.IsGameOver = true
	assert.Equal(t, PhaseFinished, state.Phase())
}
