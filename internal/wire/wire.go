// Package wire defines the event envelope exchanged between clients
// and the relay over the persistent connection.
package wire

import "minicalen/internal/modules/board/domain"

const (
	EventJoinSession   = "join-session"
	EventLeaveSession  = "leave-session"
	EventStateChange   = "state-change"
	EventSessionJoined = "session-joined"
	EventUserJoined    = "user-joined"
	EventUserLeft      = "user-left"
	EventStateUpdate   = "state-update"
)

// Event is the single envelope for every message on the channel. State
// is only present on state-change and state-update; FromUser names the
// originating connection so the relay can skip echoing the sender.
type Event struct {
	Type      string           `json:"type"`
	SessionID string           `json:"sessionId,omitempty"`
	State     *domain.Snapshot `json:"state,omitempty"`
	FromUser  string           `json:"fromUser,omitempty"`
	UserID    string           `json:"userId,omitempty"`
	Message   string           `json:"message,omitempty"`
}
