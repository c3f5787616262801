package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS checkpoints (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	round INTEGER NOT NULL,
	state TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON checkpoints (session_id, id)
`

// SQLiteStore is a durable Store backed by modernc.org/sqlite. Sessions
// and checkpoint state are stored as JSON blobs keyed by id, matching the
// keyed read/write contract of the state store boundary.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, applies pragmas and runs
// migrations. Use ":memory:" for an ephemeral database.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	for _, raw := range strings.Split(schemaSQL, ";") {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w (statement=%q)", err, stmt)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Get loads the session for id, lazily creating an empty one on first access.
func (s *SQLiteStore) Get(id string) (*Session, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		sess := New(id)
		if err := s.Put(sess); err != nil {
			return nil, err
		}
		return sess, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

// Put upserts the session snapshot as a JSON blob.
func (s *SQLiteStore) Put(sess *Session) error {
	data, err := json.Marshal(sess.Clone())
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.Exec(`
		INSERT INTO sessions (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, sess.ID, string(data), now, now)
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// SaveCheckpoint inserts the checkpoint row.
func (s *SQLiteStore) SaveCheckpoint(cp *Checkpoint) error {
	_, err := s.db.Exec(`INSERT INTO checkpoints (id, session_id, round, state, created_at) VALUES (?, ?, ?, ?, ?)`,
		cp.ID, cp.SessionID, cp.Round, string(cp.State), cp.Created.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

// LatestCheckpoint returns the newest checkpoint for the session. The ulid
// primary key is lexicographically time ordered, so ordering by id is
// ordering by creation.
func (s *SQLiteStore) LatestCheckpoint(sessionID string) (*Checkpoint, bool, error) {
	var cp Checkpoint
	var state, createdAt string
	err := s.db.QueryRow(`
		SELECT id, session_id, round, state, created_at FROM checkpoints
		WHERE session_id = ? ORDER BY id DESC LIMIT 1
	`, sessionID).Scan(&cp.ID, &cp.SessionID, &cp.Round, &state, &createdAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint: %w", err)
	}
	cp.State = json.RawMessage(state)
	cp.Created, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &cp, true, nil
}
