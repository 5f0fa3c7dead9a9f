// Package relay is the realtime room broadcaster. Each room keeps its
// authoritative GameState in memory and every mutation is fanned out to the
// websocket clients in that room. Nothing is persisted.
package relay

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/dutchscore/internal/dependencies/clock"
	"github.com/mcoot/dutchscore/internal/dependencies/random"
	"github.com/mcoot/dutchscore/internal/dependencies/uuid"
	"github.com/mcoot/dutchscore/internal/model"
	"github.com/mcoot/dutchscore/internal/services/scoring"
)

// maxRoomCodeAttempts bounds room code allocation
const maxRoomCodeAttempts = 10

// roomEntry guards one room. Messages for a room are applied one at a time.
type roomEntry struct {
	mu      sync.Mutex
	room    model.Room
	hub     *Hub
	members map[*Client]bool
	closed  bool
}

// Server accepts websocket connections and owns every room
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	hubs     *HubManager
	scoring  *scoring.Service
	clock    clock.Clock
	random   random.Random
	uuid     uuid.Generator
	logger   *slog.Logger

	mu      sync.RWMutex
	rooms   map[model.RoomCode]*roomEntry
	clients map[*Client]bool
}

// NewServer creates a relay Server
func NewServer(
	cfg Config,
	scoringService *scoring.Service,
	clock clock.Clock,
	random random.Random,
	uuid uuid.Generator,
	logger *slog.Logger,
) *Server {
	logger = logger.With(slog.String("component", "relay"))
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		hubs:    NewHubManager(logger),
		scoring: scoringService,
		clock:   clock,
		random:  random,
		uuid:    uuid,
		logger:  logger,
		rooms:   make(map[model.RoomCode]*roomEntry),
		clients: make(map[*Client]bool),
	}
}

// HandleWS upgrades the request and serves the connection until it closes
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(s, conn, s.uuid.NewString())
	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	client.logger.Info("relay client connected", slog.String("remote_addr", r.RemoteAddr))

	go client.writePump()
	client.sendJSON(model.ConnectedMessage{
		Envelope: model.NewEnvelope(model.MsgConnected, s.clock.Now()),
		ClientID: client.id,
	})

	client.readPump()

	s.disconnect(client)
	s.mu.Lock()
	delete(s.clients, client)
	s.mu.Unlock()
	close(client.send)

	client.logger.Info("relay client disconnected",
		slog.Duration("connection_duration", s.clock.Now().Sub(client.connectedAt)))
}

// Room returns a snapshot of a room
func (s *Server) Room(code model.RoomCode) (model.Room, error) {
	entry := s.lookup(code)
	if entry == nil {
		return model.Room{}, model.ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.closed {
		return model.Room{}, model.ErrRoomNotFound
	}
	room := entry.room
	room.State = entry.room.State.Clone()
	return room, nil
}

// RoomCount returns the number of live rooms
func (s *Server) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// HubCount returns the number of running broadcast hubs. It matches
// RoomCount unless a room is being torn down.
func (s *Server) HubCount() int {
	return s.hubs.HubCount()
}

// ClientCount returns the number of open connections
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Sweep drops rooms that have no members and have not changed since before
// now minus the room TTL. It returns how many rooms were dropped.
func (s *Server) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for code, entry := range s.rooms {
		entry.mu.Lock()
		idle := len(entry.members) == 0 && now.Sub(entry.room.UpdatedAt) >= s.cfg.RoomTTL
		if idle {
			entry.closed = true
			delete(s.rooms, code)
			s.hubs.RemoveHub(code)
			removed++
		}
		entry.mu.Unlock()
	}

	if removed > 0 {
		s.logger.Info("idle rooms swept", slog.Int("removed", removed), slog.Int("remaining", len(s.rooms)))
	}
	return removed
}

// RunSweeper sweeps idle rooms every SweepInterval until ctx is done
func (s *Server) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.clock.Now())
		}
	}
}

// Close disconnects every client and stops every hub
func (s *Server) Close() {
	s.mu.Lock()
	for client := range s.clients {
		_ = client.conn.Close()
	}
	s.mu.Unlock()
	s.hubs.CloseAll()
}

func (s *Server) lookup(code model.RoomCode) *roomEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[normalizeCode(code)]
}

// allocateRoom reserves a fresh room code and registers an empty entry for it
func (s *Server) allocateRoom() (*roomEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxRoomCodeAttempts; attempt++ {
		code := model.RoomCode(random.RoomCode(s.random))
		if code == "" {
			continue
		}
		if _, taken := s.rooms[code]; taken {
			continue
		}
		now := s.clock.Now()
		entry := &roomEntry{
			room:    model.Room{Code: code, Status: model.RoomStatusCreated, CreatedAt: now, UpdatedAt: now},
			hub:     s.hubs.GetOrCreateHub(code),
			members: make(map[*Client]bool),
		}
		s.rooms[code] = entry
		return entry, true
	}
	return nil, false
}

// disconnect detaches a closing client from its room and tells the others
func (s *Server) disconnect(c *Client) {
	entry := c.room
	if entry == nil {
		return
	}
	c.room = nil

	entry.mu.Lock()
	defer entry.mu.Unlock()

	delete(entry.members, c)
	entry.hub.Unregister(c)
	if entry.closed {
		return
	}

	idx := model.FindPlayer(entry.room.State.Players, c.userID)
	if idx < 0 {
		return
	}
	entry.hub.Broadcast(s.encode(model.PlayerDisconnectedMessage{
		Envelope: model.NewEnvelope(model.MsgPlayerDisconnected, s.clock.Now()),
		Player:   entry.room.State.Players[idx].Clone(),
	}))
}

func normalizeCode(code model.RoomCode) model.RoomCode {
	return model.RoomCode(strings.ToUpper(strings.TrimSpace(string(code))))
}
