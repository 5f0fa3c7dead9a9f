package model

// PlayerID uniquely identifies a player within a game
type PlayerID string

// Round is a single player's result for one hand
type Round struct {
	Score   float64 `json:"score"`
	IsDutch bool    `json:"isDutch"`
}

// PlayerStats are display aggregates derived from a player's rounds.
// They are recomputed after every mutation and never read back into totals.
type PlayerStats struct {
	RoundsPlayed       int      `json:"roundsPlayed"`
	AverageScore       float64  `json:"averageScore"`
	BestRound          *float64 `json:"bestRound"`  // Lowest score taken, nil with no rounds
	WorstRound         *float64 `json:"worstRound"` // Highest score taken, nil with no rounds
	DutchCount         int      `json:"dutchCount"`
	CurrentDutchStreak int      `json:"currentDutchStreak"`
	LongestDutchStreak int      `json:"longestDutchStreak"`
	ZeroRounds         int      `json:"zeroRounds"`
}

// Player represents a participant and their round history
type Player struct {
	ID          PlayerID     `json:"id"`
	Name        string       `json:"name"`
	TotalScore  float64      `json:"totalScore"` // Cache of sum(Rounds[].Score)
	Rounds      []Round      `json:"rounds"`
	AvatarColor string       `json:"avatarColor,omitempty"`
	Emoji       string       `json:"emoji,omitempty"`
	Stats       *PlayerStats `json:"stats,omitempty"`
}

// Clone returns a deep copy of the player
func (p Player) Clone() Player {
	clone := p
	if p.Rounds != nil {
		clone.Rounds = make([]Round, len(p.Rounds))
		copy(clone.Rounds, p.Rounds)
	}
	if p.Stats != nil {
		stats := *p.Stats
		if p.Stats.BestRound != nil {
			best := *p.Stats.BestRound
			stats.BestRound = &best
		}
		if p.Stats.WorstRound != nil {
			worst := *p.Stats.WorstRound
			stats.WorstRound = &worst
		}
		clone.Stats = &stats
	}
	return clone
}

// ClonePlayers deep-copies a player list
func ClonePlayers(players []Player) []Player {
	if players == nil {
		return nil
	}
	result := make([]Player, len(players))
	for i := range players {
		result[i] = players[i].Clone()
	}
	return result
}

// IDs returns the player IDs in order
func IDs(players []Player) []PlayerID {
	ids := make([]PlayerID, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}

// FindPlayer returns the index of the player with the given ID, or -1
func FindPlayer(players []Player, id PlayerID) int {
	for i := range players {
		if players[i].ID == id {
			return i
		}
	}
	return -1
}

// Cosmetic palettes assigned sequentially to new players
var (
	AvatarColors = []string{"#ef4444", "#3b82f6", "#22c55e", "#eab308", "#a855f7", "#f97316", "#14b8a6", "#ec4899"}
	PlayerEmojis = []string{"🎯", "🃏", "🎲", "🦊", "🐙", "🚀", "🌵", "🍀"}
)

// AvatarFor returns the placeholder avatar color and emoji for the n-th player
func AvatarFor(n int) (color, emoji string) {
	if n < 0 {
		n = 0
	}
	return AvatarColors[n%len(AvatarColors)], PlayerEmojis[n%len(PlayerEmojis)]
}
