package model

import "time"

// RoomCode is the short human-readable code used to join a relay room
type RoomCode string

// RoomStatus represents the lifecycle of a relay room
type RoomStatus string

const (
	RoomStatusCreated RoomStatus = "created" // Host connected, no one else yet
	RoomStatusActive  RoomStatus = "active"  // At least one other player joined
	RoomStatusOver    RoomStatus = "over"    // A player reached the score limit
)

// Room holds the authoritative state for one multiplayer game
type Room struct {
	Code      RoomCode
	HostID    PlayerID
	Status    RoomStatus
	State     GameState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefreshStatus recomputes the room status from its game state
func (r *Room) RefreshStatus() {
	switch {
	case r.State.IsGameOver:
		r.Status = RoomStatusOver
	case len(r.State.Players) > 1:
		r.Status = RoomStatusActive
	default:
		r.Status = RoomStatusCreated
	}
}
