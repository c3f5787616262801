package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/aseangps/agenthub/logging"
	"github.com/aseangps/agenthub/protocol"
)

// Conn is a live outbound channel to one client. Implementations must be
// safe for sequential use by the hub; Send returning an error marks the
// connection dead and causes it to be dropped from its session.
type Conn interface {
	Send(ctx context.Context, data []byte) error
}

// sessionConns holds the ordered connection set for one session. The
// per-session mutex serializes sends so events broadcast from different
// goroutines still reach every connection in broadcast-call order.
type sessionConns struct {
	mu    sync.Mutex
	conns []Conn
}

// Hub is an explicitly constructed, dependency-injected connection
// manager. Many connections may bind to the same session (multi-tab); a
// connection binds to exactly one session at a time and never migrates.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*sessionConns
	logger   logging.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub's logger.
func WithLogger(l logging.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// New constructs an empty Hub.
func New(optFns ...Option) *Hub {
	h := &Hub{sessions: make(map[string]*sessionConns), logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(h)
	}
	return h
}

// Connect binds conn to the session, creating the session entry on first
// registration. Binding an already-bound connection is a no-op.
func (h *Hub) Connect(sessionID string, conn Conn) {
	h.mu.Lock()
	sc, ok := h.sessions[sessionID]
	if !ok {
		sc = &sessionConns{}
		h.sessions[sessionID] = sc
	}
	h.mu.Unlock()

	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, c := range sc.conns {
		if c == conn {
			return
		}
	}
	sc.conns = append(sc.conns, conn)
	h.logger.Debug("connection bound", "session_id", sessionID, "connections", len(sc.conns))
}

// Disconnect unbinds conn from the session. Sibling connections of the
// same session are unaffected. Unknown pairs are ignored.
func (h *Hub) Disconnect(sessionID string, conn Conn) {
	h.mu.RLock()
	sc, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.remove(conn)
	h.logger.Debug("connection unbound", "session_id", sessionID, "connections", len(sc.conns))
}

// Broadcast delivers ev to every connection currently bound to the
// session, in the order Broadcast was called (FIFO per session). Sessions
// with zero connections are skipped, not failed. A send failure to one
// connection drops that connection and does not block or fail delivery to
// its siblings.
func (h *Hub) Broadcast(ctx context.Context, sessionID string, ev protocol.Event) {
	h.mu.RLock()
	sc, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "session_id", sessionID, "error", err.Error())
		return
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, c := range append([]Conn(nil), sc.conns...) {
		if err := c.Send(ctx, data); err != nil {
			sc.remove(c)
			h.logger.Warn("dropping failed connection", "session_id", sessionID, "error", err.Error())
		}
	}
}

// ConnectionCount returns the number of live connections bound to the session.
func (h *Hub) ConnectionCount(sessionID string) int {
	h.mu.RLock()
	sc, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.conns)
}

// SessionSink returns a Sink that broadcasts every pushed event to the
// given session. It is the wiring point for agents that push progress
// events internally.
func (h *Hub) SessionSink(sessionID string) protocol.Sink {
	return protocol.SinkFunc(func(ctx context.Context, ev protocol.Event) {
		if ev.SessionID == "" {
			ev.SessionID = sessionID
		}
		h.Broadcast(ctx, sessionID, ev)
	})
}

// remove deletes conn from the set preserving order. Caller holds sc.mu.
func (sc *sessionConns) remove(conn Conn) {
	for i, c := range sc.conns {
		if c == conn {
			sc.conns = append(sc.conns[:i], sc.conns[i+1:]...)
			return
		}
	}
}
