package handoff

import (
	"context"

	"github.com/aseangps/agenthub/protocol"
)

// RouterAgent exposes the router as an event-streaming agent instance
// bound to one session. On a transfer it emits an agent_message handoff
// notice before the specialist's final answer; there is no orchestrator
// round on this path.
type RouterAgent struct {
	sessionID string
	router    *Router
}

// NewRouterAgent binds the router to a session.
func NewRouterAgent(router *Router, sessionID string) *RouterAgent {
	return &RouterAgent{sessionID: sessionID, router: router}
}

// Name returns the agent's identifier.
func (a *RouterAgent) Name() string { return "handoff-router" }

// Description returns what the agent is for.
func (a *RouterAgent) Description() string {
	return "Routes prompts between domain specialists with bounded context transfer"
}

// Run routes one prompt and streams the outcome.
func (a *RouterAgent) Run(ctx context.Context, prompt string, sink protocol.Sink) error {
	res, err := a.router.Route(ctx, a.sessionID, prompt)
	if err != nil {
		return err
	}

	if res.Transferred {
		ev := protocol.NewEvent(protocol.EventAgentMessage, a.sessionID)
		ev.Agent = res.Domain
		ev.Content = "conversation transferred to " + res.Domain
		ev.Data = map[string]any{"from_domain": res.FromDomain, "context_turns": res.ContextTurns}
		sink.Push(ctx, ev)
	}

	ev := protocol.NewEvent(protocol.EventFinal, a.sessionID)
	ev.Agent = res.Domain
	ev.Content = res.Answer
	sink.Push(ctx, ev)
	return nil
}
