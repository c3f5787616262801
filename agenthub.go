// Package agenthub provides a high-level façade over the session hub,
// agent registry and runtime adapter, enabling quick construction of
// multi-client agent session services. Most applications interact with
// this package by:
//  1. Creating an AgentHub via New() (optionally overriding the default
//     in-memory session store)
//  2. Registering one or more agent profiles (plain, token-streaming,
//     event-streaming)
//  3. Handling prompts asynchronously (Handle) or synchronously (HandleSync)
//
// The façade delegates fan-out to hub.Hub and dispatch to agent.Adapter
// while keeping setup ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a
// durable session store and a structured logger.
package agenthub

import (
	"context"

	"github.com/aseangps/agenthub/agent"
	"github.com/aseangps/agenthub/hub"
	"github.com/aseangps/agenthub/logging"
	"github.com/aseangps/agenthub/protocol"
	"github.com/aseangps/agenthub/session"
)

// Options configures the AgentHub instance.
type Options struct {
	// Profile selects which registered agent profile serves sessions.
	Profile string

	// SessionStore persists sessions and checkpoints (defaults to an
	// in-memory implementation if not provided).
	SessionStore session.Store

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// AgentHub is the high-level façade aggregating the hub, the registry and
// the runtime adapter.
type AgentHub struct {
	opts     Options
	hub      *hub.Hub
	registry *agent.Registry
	adapter  *agent.Adapter
}

// New creates a new AgentHub instance with optional overrides. The unset
// store defaults to in-memory.
func New(optFns ...func(o *Options)) *AgentHub {
	opts := Options{
		Profile:      "assistant",
		SessionStore: session.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	h := hub.New(hub.WithLogger(opts.Logger))
	registry := agent.NewRegistry()
	adapter := agent.NewAdapter(h, opts.SessionStore, registry, opts.Profile, func(o *agent.Options) {
		o.Logger = opts.Logger
	})

	return &AgentHub{opts: opts, hub: h, registry: registry, adapter: adapter}
}

// RegisterProfile binds a profile key to an agent factory.
func (m *AgentHub) RegisterProfile(profile string, f agent.Factory) {
	m.registry.Register(profile, f)
}

// Hub exposes the connection fan-out layer for transport wiring.
func (m *AgentHub) Hub() *hub.Hub { return m.hub }

// Adapter exposes the runtime adapter for transport wiring.
func (m *AgentHub) Adapter() *agent.Adapter { return m.adapter }

// Connect attaches a connection to a session's broadcast group.
func (m *AgentHub) Connect(sessionID string, conn hub.Conn) {
	m.hub.Connect(sessionID, conn)
}

// Disconnect detaches a connection from a session's broadcast group.
func (m *AgentHub) Disconnect(sessionID string, conn hub.Conn) {
	m.hub.Disconnect(sessionID, conn)
}

// Handle runs one prompt for a session, streaming events to the session's
// connections. It returns agent.ErrBusy when a request is already in
// flight for the session.
func (m *AgentHub) Handle(ctx context.Context, sessionID, prompt, accessToken string) error {
	return m.adapter.Handle(ctx, sessionID, prompt, accessToken)
}

// HandleSync runs one prompt to completion and returns the final answer.
// Events still fan out to any connected clients of the session.
func (m *AgentHub) HandleSync(ctx context.Context, sessionID, prompt, accessToken string) (string, error) {
	return m.adapter.HandleSync(ctx, sessionID, prompt, accessToken)
}

// Broadcast pushes an event to every connection of the session.
func (m *AgentHub) Broadcast(ctx context.Context, sessionID string, ev protocol.Event) {
	m.hub.Broadcast(ctx, sessionID, ev)
}
