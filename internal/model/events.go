package model

import "time"

// MessageType identifies a relay protocol message
type MessageType string

const (
	// Client to relay
	MsgCreateGame MessageType = "create_game"
	MsgJoinGame   MessageType = "join_game"
	MsgAddRound   MessageType = "add_round"
	MsgUndoRound  MessageType = "undo_round"
	MsgPing       MessageType = "ping"

	// Relay to client
	MsgConnected          MessageType = "connected"
	MsgGameCreated        MessageType = "game_created"
	MsgGameJoined         MessageType = "game_joined"
	MsgPlayerJoined       MessageType = "player_joined"
	MsgRoundAdded         MessageType = "round_added"
	MsgRoundUndone        MessageType = "round_undone"
	MsgPlayerDisconnected MessageType = "player_disconnected"
	MsgError              MessageType = "error"
	MsgPong               MessageType = "pong"
)

// Envelope carries the fields every protocol message has
type Envelope struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"` // Epoch milliseconds
}

// NewEnvelope stamps a message type with the given time
func NewEnvelope(t MessageType, now time.Time) Envelope {
	return Envelope{Type: t, Timestamp: now.UnixMilli()}
}

// PlayerSeed describes a player supplied when creating a room
type PlayerSeed struct {
	ID          PlayerID `json:"id,omitempty"`
	Name        string   `json:"name"`
	AvatarColor string   `json:"avatarColor,omitempty"`
	Emoji       string   `json:"emoji,omitempty"`
}

// CreateGameMessage asks the relay to allocate a room
type CreateGameMessage struct {
	Envelope
	Players    []PlayerSeed `json:"players"`
	ScoreLimit int          `json:"scoreLimit"`
	UserID     PlayerID     `json:"userId"`
	PlayerName string       `json:"playerName"`
}

// JoinGameMessage asks to join an existing room
type JoinGameMessage struct {
	Envelope
	GameID     RoomCode `json:"gameId"`
	UserID     PlayerID `json:"userId"`
	PlayerName string   `json:"playerName"`
}

// AddRoundMessage records a round in a room.
// Scores are pointers so that missing or null entries can be rejected.
type AddRoundMessage struct {
	Envelope
	GameID        RoomCode   `json:"gameId"`
	Scores        []*float64 `json:"scores"`
	DutchPlayerID PlayerID   `json:"dutchPlayerId,omitempty"`
}

// UndoRoundMessage removes the last round in a room
type UndoRoundMessage struct {
	Envelope
	GameID RoomCode `json:"gameId"`
}

// ConnectedMessage is sent once a socket is accepted
type ConnectedMessage struct {
	Envelope
	ClientID string `json:"clientId"`
}

// GameCreatedMessage answers create_game
type GameCreatedMessage struct {
	Envelope
	GameID    RoomCode  `json:"gameId"`
	GameState GameState `json:"gameState"`
	RoomCode  RoomCode  `json:"roomCode"`
}

// GameJoinedMessage answers join_game to the joiner
type GameJoinedMessage struct {
	Envelope
	GameID    RoomCode  `json:"gameId"`
	GameState GameState `json:"gameState"`
}

// PlayerJoinedMessage is broadcast to the other clients of a room on join
type PlayerJoinedMessage struct {
	Envelope
	Player    Player    `json:"player"`
	GameState GameState `json:"gameState"`
}

// RoundAddedMessage is broadcast to every client of a room
type RoundAddedMessage struct {
	Envelope
	Round     RoundHistoryEntry `json:"round"`
	GameState GameState         `json:"gameState"`
}

// RoundUndoneMessage is broadcast to every client of a room
type RoundUndoneMessage struct {
	Envelope
	GameState GameState `json:"gameState"`
}

// PlayerDisconnectedMessage tells the remaining clients a player dropped
type PlayerDisconnectedMessage struct {
	Envelope
	Player Player `json:"player"`
}

// ErrorMessage reports a failure to the originating client only
type ErrorMessage struct {
	Envelope
	Message string `json:"message"`
}
