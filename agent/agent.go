package agent

import (
	"context"

	"github.com/aseangps/agenthub/protocol"
)

// Agent is the base identity contract shared by all variants. A concrete
// instance additionally satisfies exactly one of the capability
// interfaces below; an instance satisfying none is a capability error.
type Agent interface {
	Name() string
	Description() string
}

// PlainAgent is the single-shot request/response variant. The returned
// string is the full final answer.
type PlainAgent interface {
	Agent
	Chat(ctx context.Context, prompt string) (string, error)
}

// TokenStreamingAgent yields token fragments as they are produced. The
// token channel closing signals the answer is complete; a value on the
// error channel aborts the request.
type TokenStreamingAgent interface {
	Agent
	ChatStream(ctx context.Context, prompt string) (<-chan string, <-chan error)
}

// EventStreamingAgent emits its own typed events (plan updates, deltas,
// per-agent messages, the final answer) through the sink while
// processing. The adapter must not also broadcast a plain final result
// for this variant - the agent owns its terminal final event.
type EventStreamingAgent interface {
	Agent
	Run(ctx context.Context, prompt string, sink protocol.Sink) error
}
