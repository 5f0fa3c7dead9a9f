// Package integrity keeps stored player totals honest.
//
// A player's TotalScore is a cache of the sum of their round scores. The
// functions here recompute that sum, detect drift, and repair it. They are
// run before and after every round mutation and whenever state is loaded.
package integrity

import (
	"fmt"
	"math"
	"strings"

	"github.com/mcoot/dutchscore/internal/model"
)

// Tolerance absorbs floating-point rounding when comparing totals
const Tolerance = 0.01

// Check is the result of comparing one player's stored and computed totals
type Check struct {
	IsValid         bool
	CalculatedTotal float64
	StoredTotal     float64
}

// Correction records a total that was (or would be) replaced
type Correction struct {
	PlayerID   model.PlayerID `json:"playerId"`
	PlayerName string         `json:"playerName"`
	From       float64        `json:"from"`
	To         float64        `json:"to"`
}

// FixResult is returned by ValidateAndFixPlayers
type FixResult struct {
	Players     []model.Player
	HasErrors   bool
	Corrections []Correction
}

// Audit is the read-only diagnostic produced by AuditScoreIntegrity
type Audit struct {
	IsValid     bool
	Errors      []string
	Corrections []Correction
}

// RecalculatePlayerTotalScore sums the player's round scores.
// A player whose rounds hold non-finite scores is treated as invalid and scores 0.
func RecalculatePlayerTotalScore(player model.Player) float64 {
	total := 0.0
	for _, round := range player.Rounds {
		if math.IsNaN(round.Score) || math.IsInf(round.Score, 0) {
			return 0
		}
		total += round.Score
	}
	return total
}

// CheckScoreIntegrity compares the stored total with the recomputed one
func CheckScoreIntegrity(player model.Player) Check {
	calculated := RecalculatePlayerTotalScore(player)
	return Check{
		IsValid:         totalsMatch(player.TotalScore, calculated),
		CalculatedTotal: calculated,
		StoredTotal:     player.TotalScore,
	}
}

// ValidateAndFixPlayers returns copies of players with drifted totals replaced
// by their recomputed values. Structurally invalid records are passed through
// unchanged and flagged. The input slice is never modified.
func ValidateAndFixPlayers(players []model.Player) FixResult {
	result := FixResult{Players: make([]model.Player, len(players))}

	for i, player := range players {
		fixed := player.Clone()
		if !wellFormed(player) {
			result.Players[i] = fixed
			result.HasErrors = true
			continue
		}

		check := CheckScoreIntegrity(player)
		if !check.IsValid {
			fixed.TotalScore = check.CalculatedTotal
			result.HasErrors = true
			result.Corrections = append(result.Corrections, Correction{
				PlayerID:   player.ID,
				PlayerName: player.Name,
				From:       check.StoredTotal,
				To:         check.CalculatedTotal,
			})
		}
		result.Players[i] = fixed
	}

	return result
}

// AuditScoreIntegrity reports every integrity problem without modifying players
func AuditScoreIntegrity(players []model.Player) Audit {
	audit := Audit{IsValid: true}

	for i, player := range players {
		if !wellFormed(player) {
			audit.IsValid = false
			audit.Errors = append(audit.Errors, fmt.Sprintf("player %d: malformed record (id=%q, name=%q)", i+1, player.ID, player.Name))
			continue
		}

		check := CheckScoreIntegrity(player)
		if check.IsValid {
			continue
		}
		audit.IsValid = false
		audit.Errors = append(audit.Errors, fmt.Sprintf("%s: stored total %g does not match rounds total %g",
			player.Name, check.StoredTotal, check.CalculatedTotal))
		audit.Corrections = append(audit.Corrections, Correction{
			PlayerID:   player.ID,
			PlayerName: player.Name,
			From:       check.StoredTotal,
			To:         check.CalculatedTotal,
		})
	}

	return audit
}

// CheckRoundHistory verifies the game-level invariants: every player has one
// round per history entry, entries line up with the player list, per-player
// scores agree with the history, and a Dutch player had the lowest score.
func CheckRoundHistory(state model.GameState) error {
	rounds := len(state.RoundHistory)
	for _, p := range state.Players {
		if len(p.Rounds) != rounds {
			return fmt.Errorf("%w: %s has %d rounds, history has %d", model.ErrScoreConsistency, p.Name, len(p.Rounds), rounds)
		}
	}

	for r, entry := range state.RoundHistory {
		if len(entry.Scores) != len(state.Players) {
			return fmt.Errorf("%w: round %d has %d scores for %d players", model.ErrScoreConsistency, r+1, len(entry.Scores), len(state.Players))
		}

		lowest := math.Inf(1)
		for _, p := range state.Players {
			lowest = math.Min(lowest, p.Rounds[r].Score)
		}

		for i, p := range state.Players {
			round := p.Rounds[r]
			if !totalsMatch(round.Score, entry.Scores[i]) {
				return fmt.Errorf("%w: round %d score for %s differs from history", model.ErrScoreConsistency, r+1, p.Name)
			}
			if round.IsDutch != (entry.DutchPlayerID != "" && entry.DutchPlayerID == p.ID) {
				return fmt.Errorf("%w: round %d Dutch flag for %s differs from history", model.ErrScoreConsistency, r+1, p.Name)
			}
			if round.IsDutch && round.Score > lowest {
				return fmt.Errorf("%w: round %d Dutch player %s did not have the lowest score", model.ErrScoreConsistency, r+1, p.Name)
			}
		}
	}

	return nil
}

// RepairRoundHistory rebuilds the game-level history from the player rounds
// when the two have drifted apart. Players with fewer rounds than the longest
// are padded with zero-score rounds. It reports whether anything changed.
func RepairRoundHistory(state model.GameState) (model.GameState, bool) {
	if CheckRoundHistory(state) == nil {
		return state, false
	}

	repaired := state.Clone()
	longest := 0
	for _, p := range repaired.Players {
		longest = max(longest, len(p.Rounds))
	}
	for i := range repaired.Players {
		for len(repaired.Players[i].Rounds) < longest {
			repaired.Players[i].Rounds = append(repaired.Players[i].Rounds, model.Round{})
		}
		repaired.Players[i].TotalScore = RecalculatePlayerTotalScore(repaired.Players[i])
	}

	history := make([]model.RoundHistoryEntry, longest)
	for r := range history {
		entry := model.RoundHistoryEntry{Scores: make([]float64, len(repaired.Players))}
		if r < len(state.RoundHistory) {
			entry.Timestamp = state.RoundHistory[r].Timestamp
		}
		lowest := math.Inf(1)
		for _, p := range repaired.Players {
			lowest = math.Min(lowest, p.Rounds[r].Score)
		}
		for i, p := range repaired.Players {
			entry.Scores[i] = p.Rounds[r].Score
			if !p.Rounds[r].IsDutch {
				continue
			}
			// Keep a single Dutch player per round, and only if they scored lowest
			if entry.DutchPlayerID != "" || p.Rounds[r].Score > lowest {
				repaired.Players[i].Rounds[r].IsDutch = false
				continue
			}
			entry.DutchPlayerID = p.ID
		}
		history[r] = entry
	}
	repaired.RoundHistory = history

	return repaired, true
}

func wellFormed(p model.Player) bool {
	if p.ID == "" || strings.TrimSpace(p.Name) == "" {
		return false
	}
	return !math.IsNaN(p.TotalScore) && !math.IsInf(p.TotalScore, 0)
}

func totalsMatch(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance
}
