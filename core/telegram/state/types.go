package state

import (
	"context"
	"time"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores conversation state and temporary data for a user.
type Session struct {
	State     State             `json:"state"`
	TempData  map[string]string `json:"temp,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// IdleSession returns a fresh session with no active conversation.
func IdleSession() Session {
	return Session{State: StateIdle}
}

// Idle reports whether no conversation is in progress.
func (s Session) Idle() bool {
	return s.State == "" || s.State == StateIdle
}

// Temp returns a temporary value by key.
func (s Session) Temp(key string) (string, bool) {
	v, ok := s.TempData[key]
	return v, ok
}

// WithTemp returns a copy of the session with key set to value.
func (s Session) WithTemp(key, value string) Session {
	data := make(map[string]string, len(s.TempData)+1)
	for k, v := range s.TempData {
		data[k] = v
	}
	data[key] = value
	s.TempData = data
	return s
}

// Store persists sessions keyed by Telegram user id.
// Get returns an idle session when nothing is stored for the user.
type Store interface {
	Get(ctx context.Context, userID int64) (Session, error)
	Save(ctx context.Context, userID int64, s Session) error
	Clear(ctx context.Context, userID int64) error
}
