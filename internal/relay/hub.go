package relay

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"minicalen/internal/platform/id"
	"minicalen/internal/wire"
)

// Hub tracks connected clients and their session rooms. A state-change
// is persisted and then forwarded to every room member except its
// sender; the relay never merges, it stores and forwards.
type Hub struct {
	store *SQLiteSessionStore
	idGen id.Generator
	log   zerolog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	rooms   map[string]map[*client]struct{}
}

type client struct {
	conn    *websocket.Conn
	userID  string
	session string
	writeMu sync.Mutex
}

func (c *client) send(event wire.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(event)
}

func NewHub(store *SQLiteSessionStore, idGen id.Generator, log zerolog.Logger) *Hub {
	return &Hub{
		store:   store,
		idGen:   idGen,
		log:     log,
		clients: map[*client]struct{}{},
		rooms:   map[string]map[*client]struct{}{},
	}
}

// HandleConnection owns one WebSocket connection until it drops.
func (h *Hub) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	c := &client{conn: conn, userID: h.idGen.New()}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Info().Str("user", c.userID).Msg("client connected")

	defer func() {
		h.drop(c)
		_ = conn.Close()
		h.log.Info().Str("user", c.userID).Msg("client disconnected")
	}()

	for {
		event := wire.Event{}
		if err := conn.ReadJSON(&event); err != nil {
			return
		}

		switch event.Type {
		case wire.EventJoinSession:
			h.join(c, event.SessionID)
		case wire.EventLeaveSession:
			h.leave(c, event.SessionID)
		case wire.EventStateChange:
			h.forward(ctx, c, event)
		default:
			h.log.Debug().Str("type", event.Type).Msg("ignoring event")
		}
	}
}

func (h *Hub) join(c *client, sessionID string) {
	if sessionID == "" {
		return
	}
	h.mu.Lock()
	if c.session != "" && c.session != sessionID {
		h.removeFromRoomLocked(c, c.session)
	}
	room, ok := h.rooms[sessionID]
	if !ok {
		room = map[*client]struct{}{}
		h.rooms[sessionID] = room
	}
	room[c] = struct{}{}
	c.session = sessionID
	members := h.roomMembersLocked(sessionID)
	h.mu.Unlock()

	if err := c.send(wire.Event{Type: wire.EventSessionJoined, SessionID: sessionID, UserID: c.userID}); err != nil {
		h.log.Warn().Err(err).Str("user", c.userID).Msg("session-joined write failed")
	}
	for _, member := range members {
		if member == c {
			continue
		}
		if err := member.send(wire.Event{Type: wire.EventUserJoined, SessionID: sessionID, UserID: c.userID}); err != nil {
			h.log.Warn().Err(err).Str("user", member.userID).Msg("user-joined write failed")
		}
	}
	h.log.Info().Str("user", c.userID).Str("session", sessionID).Msg("joined session")
}

func (h *Hub) leave(c *client, sessionID string) {
	h.mu.Lock()
	h.removeFromRoomLocked(c, sessionID)
	if c.session == sessionID {
		c.session = ""
	}
	members := h.roomMembersLocked(sessionID)
	h.mu.Unlock()

	for _, member := range members {
		if err := member.send(wire.Event{Type: wire.EventUserLeft, SessionID: sessionID, UserID: c.userID}); err != nil {
			h.log.Warn().Err(err).Str("user", member.userID).Msg("user-left write failed")
		}
	}
	h.log.Info().Str("user", c.userID).Str("session", sessionID).Msg("left session")
}

// forward persists the change and relays it to the rest of the room.
// Persistence failure does not block the relay; peers still get the
// update and the next write will try the disk again.
func (h *Hub) forward(ctx context.Context, sender *client, event wire.Event) {
	if event.SessionID == "" || event.State == nil {
		return
	}

	if _, err := h.store.Save(ctx, event.SessionID, *event.State); err != nil {
		h.log.Error().Err(err).Str("session", event.SessionID).Msg("persist forwarded state failed")
	}

	h.mu.Lock()
	members := h.roomMembersLocked(event.SessionID)
	h.mu.Unlock()

	update := wire.Event{
		Type:      wire.EventStateUpdate,
		SessionID: event.SessionID,
		State:     event.State,
		FromUser:  event.FromUser,
	}
	for _, member := range members {
		if member == sender {
			continue
		}
		if err := member.send(update); err != nil {
			h.log.Warn().Err(err).Str("user", member.userID).Msg("state-update write failed")
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	session := c.session
	h.removeFromRoomLocked(c, session)
	delete(h.clients, c)
	members := h.roomMembersLocked(session)
	h.mu.Unlock()

	if session == "" {
		return
	}
	for _, member := range members {
		if err := member.send(wire.Event{Type: wire.EventUserLeft, SessionID: session, UserID: c.userID}); err != nil {
			h.log.Warn().Err(err).Str("user", member.userID).Msg("user-left write failed")
		}
	}
}

func (h *Hub) removeFromRoomLocked(c *client, sessionID string) {
	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

func (h *Hub) roomMembersLocked(sessionID string) []*client {
	room := h.rooms[sessionID]
	out := make([]*client, 0, len(room))
	for member := range room {
		out = append(out, member)
	}
	return out
}
