package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidSessionID = errors.New("session id is invalid")

// Session identifies the shared document this client is attached to.
// A zero ID means no session yet; once assigned the id never changes
// for the lifetime of the client.
type Session struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func (s Session) Active() bool {
	return s.ID != ""
}

func (s Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrInvalidSessionID
	}
	return nil
}

// SessionInfo is one row of the relay's session listing.
type SessionInfo struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}
