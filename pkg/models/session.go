package models

import (
	"sync"
	"time"
)

// Session is one user's conversation. History holds only finished
// question/answer turns; the working scratchpad of a run in flight never
// lands here.
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	mu      sync.Mutex
	history []Message
}

// NewSession creates an empty session.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds messages to the session history.
func (s *Session) Append(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msgs...)
	s.UpdatedAt = time.Now()
}

// History returns a copy of the session history.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len reports the number of messages in the history.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
