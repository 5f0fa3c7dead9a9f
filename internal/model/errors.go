package model

import "errors"

// Common errors used across the application
var (
	// Round mutation errors
	ErrNoPlayers        = errors.New("no players")
	ErrScoreCount       = errors.New("incorrect score count")
	ErrInvalidScores    = errors.New("invalid scores")
	ErrInvalidRound     = errors.New("invalid round data")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrScoreConsistency = errors.New("score consistency error")
	ErrMutationFailed   = errors.New("round mutation failed")

	// Game errors
	ErrNotEnoughPlayers  = errors.New("at least two players are required")
	ErrInvalidPlayerName = errors.New("invalid player name")
	ErrDuplicatePlayer   = errors.New("duplicate player id")
	ErrInvalidScoreLimit = errors.New("score limit must be positive")
	ErrGameOver          = errors.New("game is already over")
	ErrNoGame            = errors.New("no game in progress")

	// Room errors
	ErrRoomNotFound   = errors.New("game not found")
	ErrInvalidMessage = errors.New("invalid message")

	// Storage errors
	ErrKeyNotFound = errors.New("key not found")
)
