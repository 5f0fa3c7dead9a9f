package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/dutchscore/internal/model"
)

func TestCalculateNoRounds(t *testing.T) {
	stats := Calculate(model.Player{ID: "a", Name: "Alice", Rounds: []model.Round{}})

	assert.Equal(t, 0, stats.RoundsPlayed)
	assert.Nil(t, stats.BestRound)
	assert.Nil(t, stats.WorstRound)
	assert.Equal(t, 0.0, stats.AverageScore)
}

func TestCalculate(t *testing.T) {
	player := model.Player{
		ID:   "a",
		Name: "Alice",
		Rounds: []model.Round{
			{Score: 0, IsDutch: true},
			{Score: 2, IsDutch: true},
			{Score: 20},
			{Score: 6, IsDutch: true},
		},
	}

	stats := Calculate(player)

	assert.Equal(t, 4, stats.RoundsPlayed)
	assert.Equal(t, 7.0, stats.AverageScore)
	require.NotNil(t, stats.BestRound)
	require.NotNil(t, stats.WorstRound)
	assert.Equal(t, 0.0, *stats.BestRound)
	assert.Equal(t, 20.0, *stats.WorstRound)
	assert.Equal(t, 3, stats.DutchCount)
	assert.Equal(t, 1, stats.CurrentDutchStreak)
	assert.Equal(t, 2, stats.LongestDutchStreak)
	assert.Equal(t, 1, stats.ZeroRounds)
}

func TestApplyDoesNotTouchTotals(t *testing.T) {
	players := []model.Player{{ID: "a", Name: "Alice", TotalScore: 999, Rounds: []model.Round{{Score: 5}}}}

	result := Apply(players)

	require.NotNil(t, result[0].Stats)
	assert.Equal(t, 999.0, result[0].TotalScore)
	assert.Nil(t, players[0].Stats, "input must not be modified")
}
