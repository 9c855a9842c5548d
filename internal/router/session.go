package router

import (
	"sync"
	"time"
)

// Role identifies who authored a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid checks if the role is a valid value
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Turn is one entry of a session transcript.
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session is one user's conversation. Inputs on a session are handled one
// at a time; different sessions run concurrently.
type Session struct {
	ID string

	// mu serializes Handle calls on this session.
	mu sync.Mutex

	tmu   sync.RWMutex
	turns []Turn
}

// NewSession creates an empty session.
func NewSession(id string) *Session {
	return &Session{ID: id}
}

func (s *Session) append(turns ...Turn) {
	s.tmu.Lock()
	s.turns = append(s.turns, turns...)
	s.tmu.Unlock()
}

// Transcript returns a copy of the turns so far, oldest first.
func (s *Session) Transcript() []Turn {
	s.tmu.RLock()
	defer s.tmu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len is the number of turns recorded.
func (s *Session) Len() int {
	s.tmu.RLock()
	defer s.tmu.RUnlock()
	return len(s.turns)
}
