package relay

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/dutchscore/internal/model"
)

// Client is one websocket connection. Its read goroutine handles every
// inbound message, so userID and room need no locking.
type Client struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	server      *Server
	connectedAt time.Time
	logger      *slog.Logger

	userID model.PlayerID
	room   *roomEntry
}

func newClient(s *Server, conn *websocket.Conn, id string) *Client {
	return &Client{
		id:          id,
		conn:        conn,
		send:        make(chan []byte, s.cfg.SendBufferSize),
		server:      s,
		connectedAt: s.clock.Now(),
		logger:      s.logger.With(slog.String("client_id", id)),
	}
}

// readPump reads messages until the connection fails or is closed
func (c *Client) readPump() {
	cfg := c.server.cfg
	c.conn.SetReadLimit(cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("relay read error", slog.String("error", err.Error()))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		c.server.handleMessage(c, data)
	}
}

// writePump drains the send channel and keeps the connection alive with pings
func (c *Client) writePump() {
	cfg := c.server.cfg
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendJSON queues a message for this client only
func (c *Client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to encode relay message", slog.String("error", err.Error()))
		return
	}
	c.sendRaw(data)
}

// sendRaw queues an encoded message for this client only
func (c *Client) sendRaw(data []byte) {
	select {
	case c.send <- data:
	default:
		c.logger.Warn("relay message dropped - client buffer full")
	}
}

func (c *Client) sendError(message string) {
	c.sendJSON(model.ErrorMessage{
		Envelope: model.NewEnvelope(model.MsgError, c.server.clock.Now()),
		Message:  message,
	})
}
