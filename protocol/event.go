package protocol

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType discriminates the wire-level meaning of an Event.
type EventType string

// Recognized event types. The first six form the base vocabulary every
// client understands; the remainder are orchestration sub-events emitted
// while a multi-agent run is in flight.
const (
	EventInfo        EventType = "info"
	EventError       EventType = "error"
	EventToken       EventType = "token"
	EventMessage     EventType = "message"
	EventFinalResult EventType = "final_result"
	EventDone        EventType = "done"

	EventOrchestratorMessage EventType = "orchestrator_message"
	EventAgentDelta          EventType = "agent_delta"
	EventAgentMessage        EventType = "agent_message"
	EventFinal               EventType = "final"
)

// Event is the unit of communication pushed to every connection viewing a
// session. Events are broadcast, never targeted at a single connection, and
// must be treated as immutable after construction.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	Agent     string         `json:"agent,omitempty"`
	Content   string         `json:"content,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent creates a bare event of the given type for a session.
// Prefer the typed constructors below for common categories.
func NewEvent(typ EventType, sessionID string) Event {
	return Event{
		ID:        NewID(),
		Type:      typ,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}

// NewInfoEvent creates an informational notice for a session.
func NewInfoEvent(sessionID, content string) Event {
	e := NewEvent(EventInfo, sessionID)
	e.Content = content
	return e
}

// NewErrorEvent wraps a failure message. The connection stays open; an
// error event never implies the transport is torn down.
func NewErrorEvent(sessionID, message string) Event {
	e := NewEvent(EventError, sessionID)
	e.Content = message
	return e
}

// NewTokenEvent carries a single streamed token fragment from an agent.
func NewTokenEvent(sessionID, agent, token string) Event {
	e := NewEvent(EventToken, sessionID)
	e.Agent = agent
	e.Content = token
	return e
}

// NewMessageEvent carries a complete intermediate agent message.
func NewMessageEvent(sessionID, agent, content string) Event {
	e := NewEvent(EventMessage, sessionID)
	e.Agent = agent
	e.Content = content
	return e
}

// NewFinalResultEvent carries the single final answer of a plain
// request/response invocation.
func NewFinalResultEvent(sessionID, agent, content string) Event {
	e := NewEvent(EventFinalResult, sessionID)
	e.Agent = agent
	e.Content = content
	return e
}

// NewDoneEvent marks the end of processing for a session's active request.
// Exactly one done event terminates every request, successful or not.
func NewDoneEvent(sessionID string) Event {
	return NewEvent(EventDone, sessionID)
}

// NewID generates a unique identifier for events.
func NewID() string { return uuid.NewString() }

// IsTerminal reports whether the event closes out the active request.
func (e Event) IsTerminal() bool { return e.Type == EventDone }

// Sink receives events produced while a request is being processed.
// Implementations must tolerate concurrent Push calls for different
// sessions; pushes for one session arrive in production order.
type Sink interface {
	Push(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event)

// Push calls the wrapped function.
func (f SinkFunc) Push(ctx context.Context, ev Event) { f(ctx, ev) }

// NopSink discards every event. Used when no progress streaming is wired.
type NopSink struct{}

// Push discards the event.
func (NopSink) Push(context.Context, Event) {}
