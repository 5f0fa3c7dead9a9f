package relay

import "time"

// Config holds relay connection and room housekeeping settings
type Config struct {
	// Heartbeat: the server pings every PingPeriod and drops a connection
	// that has not answered within PongWait
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration

	MaxMessageSize int64
	SendBufferSize int

	// Rooms without clients are dropped once idle for RoomTTL
	RoomTTL       time.Duration
	SweepInterval time.Duration
}

// DefaultConfig returns sensible defaults for the relay
func DefaultConfig() Config {
	return Config{
		PingPeriod:     30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 16 * 1024,
		SendBufferSize: 64,
		RoomTTL:        2 * time.Hour,
		SweepInterval:  5 * time.Minute,
	}
}
