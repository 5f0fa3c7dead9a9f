// Package validation checks proposed rounds against the game rules and
// parses raw user input into typed values before it reaches the engine.
package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mcoot/dutchscore/internal/model"
)

// ValidateRoundData reports whether a proposed round is acceptable.
// scores and playerIDs are positionally aligned. An empty dutchPlayerID
// means no Dutch player was designated for the round.
func ValidateRoundData(scores []float64, dutchPlayerID model.PlayerID, playerIDs []model.PlayerID) bool {
	if len(scores) != len(playerIDs) {
		return false
	}

	dutchIdx := -1
	if dutchPlayerID != "" {
		for i, id := range playerIDs {
			if id == dutchPlayerID {
				dutchIdx = i
				break
			}
		}
		if dutchIdx == -1 {
			return false
		}
	}

	for _, score := range scores {
		if !ValidScore(score) {
			return false
		}
	}

	if dutchIdx >= 0 && scores[dutchIdx] > MinScore(scores) {
		return false
	}

	return true
}

// ValidScore reports whether a single round score is within the rules
func ValidScore(score float64) bool {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return false
	}
	return score >= 0 && score <= model.MaxRoundScore
}

// AllFinite reports whether every score is a real number
func AllFinite(scores []float64) bool {
	for _, score := range scores {
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return false
		}
	}
	return true
}

// MinScore returns the lowest score, or +Inf for an empty slice
func MinScore(scores []float64) float64 {
	lowest := math.Inf(1)
	for _, score := range scores {
		if score < lowest {
			lowest = score
		}
	}
	return lowest
}

// ParseScores converts user-entered scores into numbers.
// Any entry that is blank or not a finite number fails the whole parse.
func ParseScores(raw []string) ([]float64, error) {
	scores := make([]float64, len(raw))
	for i, s := range raw {
		value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("%w: %q is not a number", model.ErrInvalidScores, s)
		}
		scores[i] = value
	}
	return scores, nil
}

// DerefScores converts wire scores, rejecting missing entries
func DerefScores(raw []*float64) ([]float64, error) {
	scores := make([]float64, len(raw))
	for i, s := range raw {
		if s == nil {
			return nil, fmt.Errorf("%w: score %d is missing", model.ErrInvalidScores, i+1)
		}
		scores[i] = *s
	}
	return scores, nil
}

// ValidatePlayerNames trims names and rejects blanks.
// Names need not be unique; players are told apart by ID.
func ValidatePlayerNames(names []string) ([]string, error) {
	result := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, model.ErrInvalidPlayerName
		}
		result = append(result, trimmed)
	}
	return result, nil
}
