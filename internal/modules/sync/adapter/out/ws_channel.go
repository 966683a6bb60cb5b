package out

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	boarddomain "minicalen/internal/modules/board/domain"
	syncout "minicalen/internal/modules/sync/port/out"
	apperrors "minicalen/internal/platform/errors"
	"minicalen/internal/wire"
)

const reconnectDelay = 5 * time.Second

// WSChannel keeps one WebSocket connection to the relay alive,
// reconnecting with a fixed delay and rejoining the current session
// after each reconnect. Events carrying this client's own user id are
// dropped on arrival so the relay can never echo a publish back.
type WSChannel struct {
	endpoint string
	userID   string
	log      zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	joined    string
	handlers  map[int]func(string, boarddomain.Snapshot)
	nextToken int
	closed    bool
	done      chan struct{}
}

func NewWSChannel(serverURL, userID string, log zerolog.Logger) (syncout.Channel, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"

	c := &WSChannel{
		endpoint: u.String(),
		userID:   userID,
		log:      log,
		handlers: map[int]func(string, boarddomain.Snapshot){},
		done:     make(chan struct{}),
	}
	go c.connectLoop()
	return c, nil
}

func (c *WSChannel) connectLoop() {
	for {
		c.connectOnce()
		select {
		case <-c.done:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *WSChannel) connectOnce() {
	conn, _, err := websocket.DefaultDialer.Dial(c.endpoint, nil)
	if err != nil {
		c.log.Warn().Err(err).Str("endpoint", c.endpoint).Msg("relay dial failed")
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.connected = true
	joined := c.joined
	c.mu.Unlock()

	c.log.Info().Str("endpoint", c.endpoint).Msg("relay connected")
	if joined != "" {
		if err := c.send(wire.Event{Type: wire.EventJoinSession, SessionID: joined, FromUser: c.userID}); err != nil {
			c.log.Warn().Err(err).Str("session", joined).Msg("rejoin failed")
		}
	}

	c.readLoop(conn)

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.connected = false
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *WSChannel) readLoop(conn *websocket.Conn) {
	for {
		event := wire.Event{}
		if err := conn.ReadJSON(&event); err != nil {
			c.log.Debug().Err(err).Msg("relay read ended")
			return
		}

		switch event.Type {
		case wire.EventStateUpdate:
			if event.State == nil || event.FromUser == c.userID {
				continue
			}
			c.dispatch(event.SessionID, *event.State)
		case wire.EventSessionJoined:
			c.log.Debug().Str("session", event.SessionID).Msg("session joined")
		case wire.EventUserJoined, wire.EventUserLeft:
			c.log.Debug().Str("session", event.SessionID).Str("user", event.UserID).Msg(event.Type)
		}
	}
}

func (c *WSChannel) dispatch(sessionID string, snap boarddomain.Snapshot) {
	c.mu.Lock()
	fns := make([]func(string, boarddomain.Snapshot), 0, len(c.handlers))
	for _, fn := range c.handlers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(sessionID, snap.Clone())
	}
}

func (c *WSChannel) send(event wire.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return apperrors.ErrTransport
	}
	if err := c.conn.WriteJSON(event); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrTransport, err)
	}
	return nil
}

// Join leaves any previously joined session first, then enters the
// room for sessionID. The target is remembered even when the relay is
// unreachable, so a later reconnect joins it.
func (c *WSChannel) Join(sessionID string) error {
	c.mu.Lock()
	previous := c.joined
	c.joined = sessionID
	c.mu.Unlock()

	if previous != "" && previous != sessionID {
		if err := c.send(wire.Event{Type: wire.EventLeaveSession, SessionID: previous, FromUser: c.userID}); err != nil {
			c.log.Debug().Err(err).Str("session", previous).Msg("leave before join failed")
		}
	}
	return c.send(wire.Event{Type: wire.EventJoinSession, SessionID: sessionID, FromUser: c.userID})
}

func (c *WSChannel) Leave(sessionID string) error {
	c.mu.Lock()
	if c.joined == sessionID {
		c.joined = ""
	}
	c.mu.Unlock()
	return c.send(wire.Event{Type: wire.EventLeaveSession, SessionID: sessionID, FromUser: c.userID})
}

func (c *WSChannel) Publish(sessionID string, snap boarddomain.Snapshot) error {
	state := snap.Clone()
	return c.send(wire.Event{
		Type:      wire.EventStateChange,
		SessionID: sessionID,
		State:     &state,
		FromUser:  c.userID,
	})
}

func (c *WSChannel) Subscribe(fn func(string, boarddomain.Snapshot)) func() {
	c.mu.Lock()
	token := c.nextToken
	c.nextToken++
	c.handlers[token] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.handlers, token)
		c.mu.Unlock()
	}
}

func (c *WSChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *WSChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	close(c.done)
	if conn != nil {
		return conn.Close()
	}
	return nil
}
