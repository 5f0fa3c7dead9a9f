package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/dutchscore/internal/model"
	"github.com/mcoot/dutchscore/internal/services/integrity"
	"github.com/mcoot/dutchscore/internal/services/stats"
	"github.com/mcoot/dutchscore/internal/services/validation"
)

// handleMessage decodes and dispatches one inbound message. Every failure is
// reported to the sender only.
func (s *Server) handleMessage(c *Client, data []byte) {
	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		c.sendError(model.ErrInvalidMessage.Error())
		return
	}

	var err error
	switch env.Type {
	case model.MsgCreateGame:
		var msg model.CreateGameMessage
		if err = decode(data, &msg); err == nil {
			err = s.createGame(c, msg)
		}
	case model.MsgJoinGame:
		var msg model.JoinGameMessage
		if err = decode(data, &msg); err == nil {
			err = s.joinGame(c, msg)
		}
	case model.MsgAddRound:
		var msg model.AddRoundMessage
		if err = decode(data, &msg); err == nil {
			err = s.addRound(c, msg)
		}
	case model.MsgUndoRound:
		var msg model.UndoRoundMessage
		if err = decode(data, &msg); err == nil {
			err = s.undoRound(c, msg)
		}
	case model.MsgPing:
		c.sendJSON(model.NewEnvelope(model.MsgPong, s.clock.Now()))
	default:
		err = fmt.Errorf("%w: unknown message type %q", model.ErrInvalidMessage, env.Type)
	}

	if err != nil {
		c.logger.Info("relay message rejected",
			slog.String("type", string(env.Type)),
			slog.String("error", err.Error()))
		c.sendError(err.Error())
	}
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return model.ErrInvalidMessage
	}
	return nil
}

func (s *Server) createGame(c *Client, msg model.CreateGameMessage) error {
	players, err := s.seedPlayers(msg)
	if err != nil {
		return err
	}

	entry, ok := s.allocateRoom()
	if !ok {
		return errors.New("could not allocate a room code")
	}

	now := s.clock.Now()
	gameID := model.GameID(s.uuid.NewString())

	s.leaveRoom(c, entry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	state := model.NewGameState()
	if msg.ScoreLimit > 0 {
		state.ScoreLimit = msg.ScoreLimit
	}
	state.Players = stats.Apply(players)
	state.GameID = &gameID
	state.GameStartTime = &now
	state.LastIntegrityCheck = &now

	entry.room.HostID = msg.UserID
	entry.room.State = state
	entry.room.CreatedAt = now
	entry.room.UpdatedAt = now
	entry.room.RefreshStatus()

	s.attach(c, entry, msg.UserID)

	c.logger.Info("room created",
		slog.String("room", string(entry.room.Code)),
		slog.Int("players", len(players)),
		slog.Int("score_limit", state.ScoreLimit))

	c.sendJSON(model.GameCreatedMessage{
		Envelope:  model.NewEnvelope(model.MsgGameCreated, now),
		GameID:    entry.room.Code,
		GameState: state.Clone(),
		RoomCode:  entry.room.Code,
	})
	return nil
}

// seedPlayers builds the initial player list. With no explicit list the host
// is the only player.
func (s *Server) seedPlayers(msg model.CreateGameMessage) ([]model.Player, error) {
	seeds := msg.Players
	if len(seeds) == 0 {
		seeds = []model.PlayerSeed{{ID: msg.UserID, Name: msg.PlayerName}}
	}

	names := make([]string, len(seeds))
	for i, seed := range seeds {
		names[i] = seed.Name
	}
	names, err := validation.ValidatePlayerNames(names)
	if err != nil {
		return nil, err
	}

	players := make([]model.Player, len(seeds))
	seen := make(map[model.PlayerID]bool, len(seeds))
	for i, seed := range seeds {
		id := seed.ID
		if id == "" {
			id = model.PlayerID(s.uuid.NewString())
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", model.ErrDuplicatePlayer, id)
		}
		seen[id] = true

		color, emoji := model.AvatarFor(i)
		if seed.AvatarColor != "" {
			color = seed.AvatarColor
		}
		if seed.Emoji != "" {
			emoji = seed.Emoji
		}
		players[i] = model.Player{
			ID:          id,
			Name:        names[i],
			Rounds:      []model.Round{},
			AvatarColor: color,
			Emoji:       emoji,
		}
	}
	return players, nil
}

func (s *Server) joinGame(c *Client, msg model.JoinGameMessage) error {
	entry := s.lookup(msg.GameID)
	if entry == nil {
		return model.ErrRoomNotFound
	}

	s.leaveRoom(c, entry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.closed {
		return model.ErrRoomNotFound
	}
	if entry.room.Status == model.RoomStatusOver {
		return model.ErrGameOver
	}

	userID := msg.UserID
	if userID == "" {
		userID = model.PlayerID(s.uuid.NewString())
	}

	now := s.clock.Now()
	state := &entry.room.State
	idx := model.FindPlayer(state.Players, userID)
	if idx < 0 {
		name := strings.TrimSpace(msg.PlayerName)
		if name == "" {
			name = fmt.Sprintf("Player %d", len(state.Players)+1)
		}
		state.Players = append(state.Players, newLateJoiner(userID, name, len(state.Players), state.RoundCount()))
		for i := range state.RoundHistory {
			state.RoundHistory[i].Scores = append(state.RoundHistory[i].Scores, 0)
		}
		s.realignHistory(entry)
		state.Players = stats.Apply(state.Players)
		idx = len(state.Players) - 1
		entry.room.UpdatedAt = now
		entry.room.RefreshStatus()
	}

	s.attach(c, entry, userID)

	c.logger.Info("room joined",
		slog.String("room", string(entry.room.Code)),
		slog.String("user_id", string(userID)),
		slog.Int("players", len(state.Players)))

	snapshot := state.Clone()
	c.sendJSON(model.GameJoinedMessage{
		Envelope:  model.NewEnvelope(model.MsgGameJoined, now),
		GameID:    entry.room.Code,
		GameState: snapshot,
	})
	entry.hub.BroadcastExcept(s.encode(model.PlayerJoinedMessage{
		Envelope:  model.NewEnvelope(model.MsgPlayerJoined, now),
		Player:    snapshot.Players[idx],
		GameState: snapshot,
	}), c)
	return nil
}

// newLateJoiner creates a player who missed the first rounds. They are
// credited zero for each so their rounds line up with the history.
func newLateJoiner(id model.PlayerID, name string, position, rounds int) model.Player {
	color, emoji := model.AvatarFor(position)
	return model.Player{
		ID:          id,
		Name:        name,
		Rounds:      make([]model.Round, rounds),
		AvatarColor: color,
		Emoji:       emoji,
	}
}

func (s *Server) addRound(c *Client, msg model.AddRoundMessage) error {
	entry := s.lookup(msg.GameID)
	if entry == nil {
		return model.ErrRoomNotFound
	}

	scores, err := validation.DerefScores(msg.Scores)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.closed {
		return model.ErrRoomNotFound
	}
	state := &entry.room.State
	if state.IsGameOver {
		return model.ErrGameOver
	}

	result, err := s.scoring.AddRoundToPlayers(state.Players, scores, msg.DutchPlayerID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	round := model.RoundHistoryEntry{
		Scores:        scores,
		DutchPlayerID: msg.DutchPlayerID,
		Timestamp:     now,
	}
	state.Players = result.Players
	state.RoundHistory = append(state.RoundHistory, round)
	s.realignHistory(entry)
	state.Players = stats.Apply(state.Players)
	state.IsGameOver = state.LimitReached()
	state.LastIntegrityCheck = &now
	entry.room.UpdatedAt = now
	entry.room.RefreshStatus()

	s.logger.Info("round added",
		slog.String("room", string(entry.room.Code)),
		slog.Int("round", state.RoundCount()),
		slog.Int("corrections", len(result.Corrections)),
		slog.Bool("game_over", state.IsGameOver))

	s.publish(c, entry, model.RoundAddedMessage{
		Envelope:  model.NewEnvelope(model.MsgRoundAdded, now),
		Round:     round.Clone(),
		GameState: state.Clone(),
	})
	return nil
}

func (s *Server) undoRound(c *Client, msg model.UndoRoundMessage) error {
	entry := s.lookup(msg.GameID)
	if entry == nil {
		return model.ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.closed {
		return model.ErrRoomNotFound
	}
	state := &entry.room.State

	result, err := s.scoring.RemoveLastRoundFromPlayers(state.Players)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	state.Players = result.Players
	if n := len(state.RoundHistory); n > 0 {
		state.RoundHistory = state.RoundHistory[:n-1]
	}
	s.realignHistory(entry)
	state.Players = stats.Apply(state.Players)
	state.IsGameOver = false
	state.LastIntegrityCheck = &now
	entry.room.UpdatedAt = now
	entry.room.RefreshStatus()

	s.logger.Info("round undone",
		slog.String("room", string(entry.room.Code)),
		slog.Int("rounds", state.RoundCount()))

	s.publish(c, entry, model.RoundUndoneMessage{
		Envelope:  model.NewEnvelope(model.MsgRoundUndone, now),
		GameState: state.Clone(),
	})
	return nil
}

// realignHistory makes the room history agree with the player rounds again.
// A zero back-filled for a late joiner can undercut a past Dutch score, in
// which case that round loses its Dutch marker. The caller holds entry.mu.
func (s *Server) realignHistory(entry *roomEntry) {
	repaired, changed := integrity.RepairRoundHistory(entry.room.State)
	if !changed {
		return
	}
	entry.room.State = repaired
	if err := integrity.CheckRoundHistory(repaired); err != nil {
		s.logger.Error("room history still inconsistent after repair",
			slog.String("room", string(entry.room.Code)),
			slog.String("error", err.Error()))
		return
	}
	s.logger.Info("room history realigned", slog.String("room", string(entry.room.Code)))
}

// publish broadcasts a room update. A sender outside the room also gets a
// copy so that one-shot clients see the result of their own request.
func (s *Server) publish(c *Client, entry *roomEntry, v any) {
	data := s.encode(v)
	entry.hub.Broadcast(data)
	if c.room != entry {
		c.sendRaw(data)
	}
}

// leaveRoom detaches a client from its current room unless that room is next.
// It must not be called with any room lock held.
func (s *Server) leaveRoom(c *Client, next *roomEntry) {
	prev := c.room
	if prev == nil || prev == next {
		return
	}
	prev.mu.Lock()
	delete(prev.members, c)
	prev.mu.Unlock()
	prev.hub.Unregister(c)
	c.room = nil
}

// attach adds a client to a room. The caller holds entry.mu.
func (s *Server) attach(c *Client, entry *roomEntry, userID model.PlayerID) {
	c.room = entry
	c.userID = userID
	if !entry.members[c] {
		entry.members[c] = true
		entry.hub.Register(c)
	}
}

func (s *Server) encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode relay message", slog.String("error", err.Error()))
		return nil
	}
	return data
}
