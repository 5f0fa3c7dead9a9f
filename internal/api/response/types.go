package response

import (
	"time"

	"github.com/mcoot/dutchscore/internal/model"
)

// Room represents a relay room in API responses
type Room struct {
	Code      string          `json:"code"`
	Status    string          `json:"status"`
	HostID    string          `json:"host_id,omitempty"`
	Leader    *string         `json:"leader"`
	Rounds    int             `json:"rounds"`
	GameState model.GameState `json:"game_state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RoomFromModel converts model.Room
func RoomFromModel(r model.Room) Room {
	var leader *string
	if p := r.State.Leader(); p != nil && r.State.RoundCount() > 0 {
		id := string(p.ID)
		leader = &id
	}
	return Room{
		Code:      string(r.Code),
		Status:    string(r.Status),
		HostID:    string(r.HostID),
		Leader:    leader,
		Rounds:    r.State.RoundCount(),
		GameState: r.State,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Health is the response for the health check
type Health struct {
	Status  string `json:"status"`
	Rooms   int    `json:"rooms"`
	Hubs    int    `json:"hubs"`
	Clients int    `json:"clients"`
}
