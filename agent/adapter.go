package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aseangps/agenthub/hub"
	"github.com/aseangps/agenthub/logging"
	"github.com/aseangps/agenthub/protocol"
	"github.com/aseangps/agenthub/session"
)

// ErrBusy is returned when a session already has an in-flight request.
// Within one session prompts are processed strictly sequentially; a
// concurrent prompt is rejected, not interleaved.
var ErrBusy = errors.New("session already has a request in flight")

// ErrNoCapability marks an agent instance exposing no supported
// invocation interface.
var ErrNoCapability = errors.New("agent exposes no supported invocation interface")

// Options configures an Adapter.
type Options struct {
	Logger logging.Logger
}

// Adapter drives one request for one session: it resolves (or reuses) the
// session's agent instance, dispatches by capability in fixed priority
// order (event-streaming, token-streaming, plain), pushes resulting
// events through the hub and always terminates the request with a done
// event. Failures and panics become error events; they never propagate to
// the transport layer.
type Adapter struct {
	hub      *hub.Hub
	store    session.Store
	registry *Registry
	profile  string
	logger   *logging.RunLogger

	mu        sync.Mutex
	inflight  map[string]struct{}
	instances map[string]Agent
}

// NewAdapter constructs an Adapter serving the given deployment profile.
func NewAdapter(h *hub.Hub, store session.Store, registry *Registry, profile string, optFns ...func(o *Options)) *Adapter {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Adapter{
		hub:       h,
		store:     store,
		registry:  registry,
		profile:   profile,
		logger:    logging.NewRunLogger(opts.Logger, "adapter"),
		inflight:  make(map[string]struct{}),
		instances: make(map[string]Agent),
	}
}

// acquire claims the session's single request slot.
func (a *Adapter) acquire(sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, busy := a.inflight[sessionID]; busy {
		return ErrBusy
	}
	a.inflight[sessionID] = struct{}{}
	return nil
}

func (a *Adapter) release(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inflight, sessionID)
}

// instance returns the session's agent, constructing it on first use. The
// instance is owned exclusively by its session for the process lifetime.
func (a *Adapter) instance(sessionID, accessToken string) (Agent, error) {
	a.mu.Lock()
	if inst, ok := a.instances[sessionID]; ok {
		a.mu.Unlock()
		return inst, nil
	}
	a.mu.Unlock()

	sess, err := a.store.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	inst, err := a.registry.New(a.profile, sess, accessToken)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.instances[sessionID]; ok {
		return existing, nil
	}
	a.instances[sessionID] = inst
	return inst, nil
}

// Handle processes one prompt for a session, broadcasting all resulting
// events to every connection bound to that session. The only error it
// returns is ErrBusy; every other failure is surfaced as an error event
// followed by done.
func (a *Adapter) Handle(ctx context.Context, sessionID, prompt, accessToken string) error {
	if err := a.acquire(sessionID); err != nil {
		a.hub.Broadcast(ctx, sessionID, protocol.NewErrorEvent(sessionID, err.Error()))
		return err
	}
	defer a.release(sessionID)

	defer a.hub.Broadcast(ctx, sessionID, protocol.NewDoneEvent(sessionID))
	defer func() {
		if r := recover(); r != nil {
			a.logger.WithSession(sessionID, "").Error("request panicked", "panic", fmt.Sprint(r))
			a.hub.Broadcast(ctx, sessionID, protocol.NewErrorEvent(sessionID, fmt.Sprintf("internal error: %v", r)))
		}
	}()

	inst, err := a.instance(sessionID, accessToken)
	if err != nil {
		a.hub.Broadcast(ctx, sessionID, protocol.NewErrorEvent(sessionID, err.Error()))
		return nil
	}

	final, streamed, err := a.dispatch(ctx, sessionID, prompt, inst, a.hub.SessionSink(sessionID))
	if err != nil {
		a.hub.Broadcast(ctx, sessionID, protocol.NewErrorEvent(sessionID, err.Error()))
		return nil
	}
	if !streamed {
		a.hub.Broadcast(ctx, sessionID, protocol.NewFinalResultEvent(sessionID, inst.Name(), final))
		a.persistTurns(sessionID, inst.Name(), prompt, final)
	}
	return nil
}

// HandleSync processes one prompt and returns the final synthesized
// answer without intermediate events, equivalent to draining the
// streaming path to its final event.
func (a *Adapter) HandleSync(ctx context.Context, sessionID, prompt, accessToken string) (string, error) {
	if err := a.acquire(sessionID); err != nil {
		return "", err
	}
	defer a.release(sessionID)

	inst, err := a.instance(sessionID, accessToken)
	if err != nil {
		return "", err
	}

	var captured string
	capture := protocol.SinkFunc(func(_ context.Context, ev protocol.Event) {
		if ev.Type == protocol.EventFinal || ev.Type == protocol.EventFinalResult {
			captured = ev.Content
		}
	})

	final, streamed, err := a.dispatch(ctx, sessionID, prompt, inst, capture)
	if err != nil {
		return "", err
	}
	if streamed {
		return captured, nil
	}
	a.persistTurns(sessionID, inst.Name(), prompt, final)
	return final, nil
}

// dispatch invokes the instance through its capability interface.
// Priority is fixed: event-streaming first, then single-shot token
// streaming, then plain chat. streamed reports that the agent emitted its
// own terminal event, so the caller must not broadcast a final result
// (no double delivery).
func (a *Adapter) dispatch(ctx context.Context, sessionID, prompt string, inst Agent, sink protocol.Sink) (final string, streamed bool, err error) {
	switch impl := inst.(type) {
	case EventStreamingAgent:
		return "", true, impl.Run(ctx, prompt, sink)

	case TokenStreamingAgent:
		tokens, errs := impl.ChatStream(ctx, prompt)
		var b strings.Builder
		for tok := range tokens {
			b.WriteString(tok)
			sink.Push(ctx, protocol.NewTokenEvent(sessionID, inst.Name(), tok))
		}
		if streamErr := <-errs; streamErr != nil {
			return "", false, streamErr
		}
		return b.String(), false, nil

	case PlainAgent:
		answer, chatErr := impl.Chat(ctx, prompt)
		if chatErr != nil {
			return "", false, chatErr
		}
		return answer, false, nil

	default:
		return "", false, ErrNoCapability
	}
}

// persistTurns records the exchange for variants that do not manage their
// own session history. Persistence failures are logged, not surfaced: the
// answer was already delivered.
func (a *Adapter) persistTurns(sessionID, agentName, prompt, answer string) {
	sess, err := a.store.Get(sessionID)
	if err != nil {
		a.logger.WithSession(sessionID, "").Warn("persist turns: load session", "error", err.Error())
		return
	}
	sess.AddTurn("user", "", prompt)
	sess.AddTurn("assistant", agentName, answer)
	if err := a.store.Put(sess); err != nil {
		a.logger.WithSession(sessionID, "").Warn("persist turns: store session", "error", err.Error())
	}
}
