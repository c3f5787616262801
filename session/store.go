package session

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Checkpoint is a durable snapshot of an orchestration run keyed by
// session id and round. State is an opaque blob owned by the engine;
// resuming from a checkpoint must reproduce the exact ledger state that
// produced it.
type Checkpoint struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Round     int             `json:"round"`
	State     json.RawMessage `json:"state"`
	Created   time.Time       `json:"created"`
}

// NewCheckpoint wraps a state blob in a checkpoint with a sortable id so
// "latest" is well defined even when a round persists more than once
// (plan review suspension, stall resets).
func NewCheckpoint(sessionID string, round int, state json.RawMessage) *Checkpoint {
	return &Checkpoint{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		Round:     round,
		State:     state,
		Created:   time.Now().UTC(),
	}
}

// Store persists sessions and orchestration checkpoints. It is the only
// resource shared across sessions; implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the session for id, lazily creating it on first access.
	Get(id string) (*Session, error)
	// Put persists the session snapshot.
	Put(s *Session) error
	// SaveCheckpoint persists a checkpoint for the session.
	SaveCheckpoint(cp *Checkpoint) error
	// LatestCheckpoint returns the most recent checkpoint for the
	// session, reporting false when none exists.
	LatestCheckpoint(sessionID string) (*Checkpoint, bool, error)
}
