// Package stats derives display-only aggregates from a player's rounds.
// Nothing here is ever written back to totals.
package stats

import "github.com/mcoot/dutchscore/internal/model"

// Calculate computes the aggregates for a single player
func Calculate(player model.Player) model.PlayerStats {
	stats := model.PlayerStats{RoundsPlayed: len(player.Rounds)}
	if len(player.Rounds) == 0 {
		return stats
	}

	best := player.Rounds[0].Score
	worst := player.Rounds[0].Score
	sum := 0.0
	streak := 0

	for _, round := range player.Rounds {
		sum += round.Score
		best = min(best, round.Score)
		worst = max(worst, round.Score)

		if round.Score == 0 {
			stats.ZeroRounds++
		}

		if round.IsDutch {
			stats.DutchCount++
			streak++
			stats.LongestDutchStreak = max(stats.LongestDutchStreak, streak)
		} else {
			streak = 0
		}
	}

	stats.AverageScore = sum / float64(len(player.Rounds))
	stats.BestRound = &best
	stats.WorstRound = &worst
	stats.CurrentDutchStreak = streak

	return stats
}

// Apply returns copies of players with freshly computed stats
func Apply(players []model.Player) []model.Player {
	result := model.ClonePlayers(players)
	for i := range result {
		s := Calculate(result[i])
		result[i].Stats = &s
	}
	return result
}
