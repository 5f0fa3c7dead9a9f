package model

import "time"

// GameID uniquely identifies a game session
type GameID string

// DefaultScoreLimit is the total at which a game ends when none is configured
const DefaultScoreLimit = 100

// MaxRoundScore is the highest score a single player can take in one round
const MaxRoundScore = 500

// Phase is the lifecycle stage of a game session
type Phase string

const (
	PhaseSetup    Phase = "setup"    // No players yet
	PhasePlaying  Phase = "playing"  // Players present, game not over
	PhaseFinished Phase = "finished" // A player reached the score limit
)

// RoundHistoryEntry records one round at game level, aligned with the player list
type RoundHistoryEntry struct {
	Scores        []float64 `json:"scores"`
	DutchPlayerID PlayerID  `json:"dutchPlayerId,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitzero"`
}

// GameState is the canonical state of one game session.
// len(RoundHistory) must equal len(Players[i].Rounds) for every player.
type GameState struct {
	Players            []Player            `json:"players"`
	RoundHistory       []RoundHistoryEntry `json:"roundHistory"`
	ScoreLimit         int                 `json:"scoreLimit"`
	GameStartTime      *time.Time          `json:"gameStartTime"`
	IsGameOver         bool                `json:"isGameOver"`
	GameID             *GameID             `json:"gameId"`
	LastIntegrityCheck *time.Time          `json:"lastIntegrityCheck"`
}

// NewGameState returns the initial empty state
func NewGameState() GameState {
	return GameState{
		Players:      []Player{},
		RoundHistory: []RoundHistoryEntry{},
		ScoreLimit:   DefaultScoreLimit,
	}
}

// Phase derives the lifecycle stage from the state
func (s *GameState) Phase() Phase {
	switch {
	case len(s.Players) == 0:
		return PhaseSetup
	case s.IsGameOver:
		return PhaseFinished
	default:
		return PhasePlaying
	}
}

// RoundCount returns the number of recorded rounds
func (s *GameState) RoundCount() int {
	return len(s.RoundHistory)
}

// LimitReached reports whether any player's total has reached the score limit
func (s *GameState) LimitReached() bool {
	if s.ScoreLimit <= 0 {
		return false
	}
	for _, p := range s.Players {
		if p.TotalScore >= float64(s.ScoreLimit) {
			return true
		}
	}
	return false
}

// Leader returns the player with the lowest total, or nil when there are no players
func (s *GameState) Leader() *Player {
	if len(s.Players) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(s.Players); i++ {
		if s.Players[i].TotalScore < s.Players[best].TotalScore {
			best = i
		}
	}
	return &s.Players[best]
}

// Clone returns a deep copy of the state
func (s GameState) Clone() GameState {
	clone := s
	clone.Players = ClonePlayers(s.Players)
	if s.RoundHistory != nil {
		clone.RoundHistory = make([]RoundHistoryEntry, len(s.RoundHistory))
		for i, entry := range s.RoundHistory {
			clone.RoundHistory[i] = entry.Clone()
		}
	}
	if s.GameStartTime != nil {
		t := *s.GameStartTime
		clone.GameStartTime = &t
	}
	if s.GameID != nil {
		id := *s.GameID
		clone.GameID = &id
	}
	if s.LastIntegrityCheck != nil {
		t := *s.LastIntegrityCheck
		clone.LastIntegrityCheck = &t
	}
	return clone
}

// Clone returns a deep copy of the entry
func (e RoundHistoryEntry) Clone() RoundHistoryEntry {
	clone := e
	if e.Scores != nil {
		clone.Scores = make([]float64, len(e.Scores))
		copy(clone.Scores, e.Scores)
	}
	return clone
}
