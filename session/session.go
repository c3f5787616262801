package session

import (
	"sync"
	"time"
)

// Turn is one completed conversational exchange entry. Role is "user" or
// "assistant"; Agent names the specialist that produced an assistant turn.
type Turn struct {
	Role      string    `json:"role"`
	Agent     string    `json:"agent,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the logical conversation identified by a caller-supplied
// opaque id, stable across reconnects. It owns the accumulated turn
// history plus arbitrary key/value state (active handoff domain, agent
// blobs). It is safe for concurrent access.
type Session struct {
	ID      string         `json:"id"`
	Turns   []Turn         `json:"turns"`
	State   map[string]any `json:"state"`
	Created time.Time      `json:"created"`
	Updated time.Time      `json:"updated"`

	mu sync.RWMutex
}

// New creates an empty session with the given id.
func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, Turns: []Turn{}, State: map[string]any{}, Created: now, Updated: now}
}

// AddTurn appends a turn to the history updating the Updated timestamp.
func (s *Session) AddTurn(role, agent, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Turns = append(s.Turns, Turn{Role: role, Agent: agent, Content: content, Timestamp: time.Now().UTC()})
	s.Updated = time.Now().UTC()
}

// History returns a defensive copy of the full turn history.
func (s *Session) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.Turns))
	copy(out, s.Turns)
	return out
}

// Window returns the configured slice of prior turns: n == -1 yields the
// full history, n == 0 yields none, n > 0 yields the last n turns. The
// returned slice is a copy fixed at call time.
func (s *Session) Window(n int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case n < 0:
		out := make([]Turn, len(s.Turns))
		copy(out, s.Turns)
		return out
	case n == 0:
		return []Turn{}
	default:
		start := len(s.Turns) - n
		if start < 0 {
			start = 0
		}
		out := make([]Turn, len(s.Turns)-start)
		copy(out, s.Turns[start:])
		return out
	}
}

// GetState returns the value and existence flag for a state key.
func (s *Session) GetState(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.State[key]
	return v, ok
}

// SetState sets a key/value pair in session state.
func (s *Session) SetState(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State[key] = value
	s.Updated = time.Now().UTC()
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{
		ID:      s.ID,
		Turns:   make([]Turn, len(s.Turns)),
		State:   make(map[string]any, len(s.State)),
		Created: s.Created,
		Updated: s.Updated,
	}
	copy(clone.Turns, s.Turns)
	for k, v := range s.State {
		clone.State[k] = v
	}
	return clone
}
