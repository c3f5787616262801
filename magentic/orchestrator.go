package magentic

import (
	"context"
	"errors"

	"github.com/aseangps/agenthub/protocol"
)

// Orchestrator exposes the engine as an event-streaming agent instance
// bound to one session, so the runtime adapter can dispatch multi-agent
// sessions through the same contract as any other variant.
type Orchestrator struct {
	sessionID string
	engine    *Engine
}

// NewOrchestrator binds the engine to a session.
func NewOrchestrator(engine *Engine, sessionID string) *Orchestrator {
	return &Orchestrator{sessionID: sessionID, engine: engine}
}

// Name returns the agent's identifier.
func (o *Orchestrator) Name() string { return "orchestrator" }

// Description returns what the agent is for.
func (o *Orchestrator) Description() string {
	return "Bounded multi-round planner delegating to specialist participants"
}

// Run drives one orchestration run, streaming plan, contribution and
// final events through sink. A plan-review suspension is a normal
// outcome of the request, not an error: the reviewer's decision arrives
// as a separate external call.
func (o *Orchestrator) Run(ctx context.Context, prompt string, sink protocol.Sink) error {
	err := o.engine.Run(ctx, o.sessionID, prompt, sink)
	if errors.Is(err, ErrPlanPending) {
		return nil
	}
	return err
}
