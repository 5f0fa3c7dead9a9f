package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/dutchscore/internal/model"
)

const (
	relayHandshakeTimeout = 10 * time.Second
	relayWriteWait        = 10 * time.Second
	relayReplyWait        = 10 * time.Second
)

// relayEvent is any message received from the relay
type relayEvent struct {
	Time      time.Time                `json:"time"`
	Type      model.MessageType        `json:"type"`
	Timestamp int64                    `json:"timestamp"`
	ClientID  string                   `json:"clientId,omitempty"`
	GameID    model.RoomCode           `json:"gameId,omitempty"`
	RoomCode  model.RoomCode           `json:"roomCode,omitempty"`
	GameState *model.GameState         `json:"gameState,omitempty"`
	Player    *model.Player            `json:"player,omitempty"`
	Round     *model.RoundHistoryEntry `json:"round,omitempty"`
	Message   string                   `json:"message,omitempty"`
}

// RelayConn is a client connection to the relay websocket
type RelayConn struct {
	conn     *websocket.Conn
	clientID string
}

// relayURL turns the server base URL into the websocket endpoint
func relayURL(serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(serverURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

// DialRelay connects to the relay and waits for the connected message
func DialRelay(ctx context.Context, serverURL string) (*RelayConn, error) {
	wsURL, err := relayURL(serverURL)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: relayHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}

	rc := &RelayConn{conn: conn}
	ev, err := rc.Await(model.MsgConnected)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	rc.clientID = ev.ClientID
	return rc, nil
}

// Send writes one protocol message
func (r *RelayConn) Send(v any) error {
	_ = r.conn.SetWriteDeadline(time.Now().Add(relayWriteWait))
	if err := r.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

// Next blocks until the next message arrives
func (r *RelayConn) Next() (relayEvent, error) {
	var ev relayEvent
	_, data, err := r.conn.ReadMessage()
	if err != nil {
		return ev, err
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("failed to parse relay message: %w", err)
	}
	ev.Time = time.Now()
	return ev, nil
}

// Await reads until one of the wanted message types arrives, skipping
// broadcasts about other clients. A relay error message becomes an error.
func (r *RelayConn) Await(want ...model.MessageType) (relayEvent, error) {
	_ = r.conn.SetReadDeadline(time.Now().Add(relayReplyWait))
	defer func() { _ = r.conn.SetReadDeadline(time.Time{}) }()

	for {
		ev, err := r.Next()
		if err != nil {
			return ev, err
		}
		if ev.Type == model.MsgError {
			return ev, errors.New(ev.Message)
		}
		if slices.Contains(want, ev.Type) {
			return ev, nil
		}
	}
}

// Stream calls fn for every message until ctx is done or the connection drops
func (r *RelayConn) Stream(ctx context.Context, fn func(relayEvent)) error {
	stop := context.AfterFunc(ctx, func() { _ = r.conn.Close() })
	defer stop()

	for {
		ev, err := r.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		fn(ev)
	}
}

// Close says goodbye and closes the connection
func (r *RelayConn) Close() error {
	_ = r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(relayWriteWait))
	return r.conn.Close()
}
