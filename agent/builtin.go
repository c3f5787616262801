package agent

import (
	"context"

	"github.com/aseangps/agenthub/model"
	"github.com/aseangps/agenthub/session"
)

// historyWindow bounds how many prior turns the built-in agents replay to
// the model on each prompt.
const historyWindow = 20

// Assistant is the built-in plain (single-shot) specialist backed by a
// language model. It replays a bounded window of session history so the
// conversation survives reconnects.
type Assistant struct {
	name        string
	description string
	system      string
	llm         model.Model
	sess        *session.Session
}

// NewAssistant constructs a plain chat agent bound to a session.
func NewAssistant(name, system string, llm model.Model, sess *session.Session) *Assistant {
	return &Assistant{
		name:        name,
		description: "Single-shot conversational assistant",
		system:      system,
		llm:         llm,
		sess:        sess,
	}
}

// Name returns the agent's identifier.
func (a *Assistant) Name() string { return a.name }

// Description returns what the agent is for.
func (a *Assistant) Description() string { return a.description }

// Chat implements PlainAgent.
func (a *Assistant) Chat(ctx context.Context, prompt string) (string, error) {
	return a.llm.Complete(ctx, buildRequest(a.system, a.sess, prompt))
}

// Streamer is the built-in token-streaming variant of Assistant.
type Streamer struct {
	Assistant
}

// NewStreamer constructs a token-streaming chat agent bound to a session.
func NewStreamer(name, system string, llm model.Model, sess *session.Session) *Streamer {
	s := &Streamer{Assistant: *NewAssistant(name, system, llm, sess)}
	s.description = "Token-streaming conversational assistant"
	return s
}

// ChatStream implements TokenStreamingAgent.
func (s *Streamer) ChatStream(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	return s.llm.Stream(ctx, buildRequest(s.system, s.sess, prompt))
}

func buildRequest(system string, sess *session.Session, prompt string) model.Request {
	req := model.Request{System: system}
	if sess != nil {
		for _, turn := range sess.Window(historyWindow) {
			req.Messages = append(req.Messages, model.Message{Role: turn.Role, Content: turn.Content})
		}
	}
	req.Messages = append(req.Messages, model.Message{Role: "user", Content: prompt})
	return req
}
