package domain

import "time"

// SessionKind distinguishes lobby sessions from per-game sessions. Only game
// sessions may settle money.
type SessionKind string

const (
	SessionKindLobby SessionKind = "lobby"
	SessionKindGame  SessionKind = "game"
)

// SessionStatus is the lifecycle state of a session row.
type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusClosed SessionStatus = "closed"
)

// Session is a signed-token session the operator opened for a player.
// The gateway only reads these rows to cross-check authenticate callbacks.
type Session struct {
	ID        int64         `json:"session_id"`
	PlayerID  int64         `json:"player_id"`
	Token     string        `json:"-"`
	Kind      SessionKind   `json:"kind"`
	BankID    string        `json:"bank_id,omitempty"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

// IsActive reports whether the session is usable at the given instant.
func (s *Session) IsActive(now time.Time) bool {
	if s.Status != SessionStatusActive {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
