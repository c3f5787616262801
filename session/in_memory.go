package session

import "sync"

// InMemoryStore is a volatile Store keeping sessions and checkpoints in
// process-local maps. It is safe for concurrent access and best suited
// for tests or ephemeral demo servers. Sessions are cloned on read and
// write to prevent external mutation of internal state.
type InMemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	checkpoints map[string][]*Checkpoint
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:    make(map[string]*Session),
		checkpoints: make(map[string][]*Checkpoint),
	}
}

// Get returns an existing session (clone) or creates a new one lazily.
func (s *InMemoryStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess.Clone(), nil
	}
	sess := New(id)
	s.sessions[id] = sess
	return sess.Clone(), nil
}

// Put stores a clone of the provided session snapshot.
func (s *InMemoryStore) Put(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// SaveCheckpoint appends the checkpoint to the session's history.
func (s *InMemoryStore) SaveCheckpoint(cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[cp.SessionID] = append(s.checkpoints[cp.SessionID], cp)
	return nil
}

// LatestCheckpoint returns the most recently saved checkpoint.
func (s *InMemoryStore) LatestCheckpoint(sessionID string) (*Checkpoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cps := s.checkpoints[sessionID]
	if len(cps) == 0 {
		return nil, false, nil
	}
	return cps[len(cps)-1], true, nil
}
