package store

import (
	"encoding/json"
	"time"
)

// DefaultSessionTTL is applied when a session is created without an explicit deadline.
const DefaultSessionTTL = 30 * time.Minute

// SessionState is the conversation step a session is waiting on.
// It is stored as free-form text.
type SessionState string

const (
	SessionStateAwaitingTicketSelection SessionState = "AWAITING_TICKET_SELECTION"
	SessionStateAwaitingConfirmation    SessionState = "AWAITING_CONFIRMATION"
	SessionStateAwaitingQuickTime       SessionState = "AWAITING_QUICK_TIME"
)

func (s SessionState) String() string {
	return string(s)
}

// Session is one in-flight multi-step interaction.
type Session struct {
	ID        string
	UserID    string
	Platform  string
	State     SessionState
	Payload   json.RawMessage
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the session deadline has passed at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type CreateSession struct {
	UserID   string
	Platform string
	State    SessionState
	Payload  json.RawMessage
	// ExpiresAt defaults to CreatedAt plus the store TTL when nil.
	ExpiresAt *time.Time

	// Set by the store.
	CreatedAt time.Time
}

type FindSession struct {
	ID       *string
	UserID   *string
	Platform *string
	State    *SessionState

	// Now excludes sessions whose deadline is not after it.
	Now time.Time
}

type UpdateSession struct {
	ID      string
	State   SessionState
	Payload json.RawMessage

	Now time.Time
}

type DeleteSession struct {
	ID       *string
	UserID   *string
	Platform *string
	State    *SessionState
}
