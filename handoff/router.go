package handoff

import (
	"context"
	"fmt"

	"github.com/aseangps/agenthub/logging"
	"github.com/aseangps/agenthub/model"
	"github.com/aseangps/agenthub/session"
)

// stateKeyDomain is the session state key holding the active domain, so
// routing survives reconnects and process restarts.
const stateKeyDomain = "handoff_domain"

// Responder is the invocation contract of a domain specialist on the
// routed path: one prompt in, one direct answer out.
type Responder interface {
	Respond(ctx context.Context, prompt string) (string, error)
}

// Specialist is a named domain expert registered with the router.
type Specialist struct {
	Domain      string
	Description string
	Responder   Responder
}

// ModelSpecialist backs a Specialist with a language model and a fixed
// system prompt.
type ModelSpecialist struct {
	system string
	llm    model.Model
}

// NewModelSpecialist constructs a model-backed responder.
func NewModelSpecialist(system string, llm model.Model) *ModelSpecialist {
	return &ModelSpecialist{system: system, llm: llm}
}

// Respond runs a single completion for the prompt.
func (s *ModelSpecialist) Respond(ctx context.Context, prompt string) (string, error) {
	return s.llm.Complete(ctx, model.Request{
		System:   s.system,
		Messages: []model.Message{{Role: "user", Content: prompt}},
	})
}

// Result is the outcome of routing one prompt.
type Result struct {
	Answer      string
	Domain      string
	FromDomain  string
	Transferred bool
	// ContextTurns is the number of prior turns carried on a transfer.
	ContextTurns int
}

// Router owns the per-session active-domain state machine. Each turn
// costs exactly one classification call plus one specialist invocation.
type Router struct {
	specialists []Specialist
	byDomain    map[string]Specialist
	classifier  Classifier
	window      Window
	store       session.Store
	logger      *logging.RunLogger
}

// RouterOptions holds optional Router dependencies.
type RouterOptions struct {
	Logger logging.Logger
}

// NewRouter constructs a Router. The first specialist's domain is the
// default for fresh sessions; the transfer window is fixed for the
// deployment.
func NewRouter(specialists []Specialist, classifier Classifier, window Window, store session.Store, optFns ...func(o *RouterOptions)) (*Router, error) {
	if len(specialists) == 0 {
		return nil, fmt.Errorf("at least one specialist is required")
	}
	opts := RouterOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	byDomain := make(map[string]Specialist, len(specialists))
	for _, s := range specialists {
		if _, dup := byDomain[s.Domain]; dup {
			return nil, fmt.Errorf("duplicate specialist domain %q", s.Domain)
		}
		byDomain[s.Domain] = s
	}
	return &Router{
		specialists: specialists,
		byDomain:    byDomain,
		classifier:  classifier,
		window:      window,
		store:       store,
		logger:      logging.NewRunLogger(opts.Logger, "handoff"),
	}, nil
}

// Domains returns the configured domain names in registration order.
func (r *Router) Domains() []string {
	out := make([]string, len(r.specialists))
	for i, s := range r.specialists {
		out[i] = s.Domain
	}
	return out
}

// Route classifies the prompt against the session's active domain,
// transfers control (with the bounded context window) when a different
// domain fits better, and returns the specialist's direct answer. A
// classification failure keeps the current domain rather than failing
// the turn.
func (r *Router) Route(ctx context.Context, sessionID, prompt string) (Result, error) {
	log := r.logger.WithSession(sessionID, "")

	sess, err := r.store.Get(sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("load session: %w", err)
	}

	current := r.specialists[0].Domain
	if v, ok := sess.GetState(stateKeyDomain); ok {
		if d, ok := v.(string); ok {
			if _, known := r.byDomain[d]; known {
				current = d
			}
		}
	}

	target, err := r.classifier.Classify(ctx, prompt, current, r.Domains())
	if err != nil {
		log.Warn("classification failed, keeping domain", "domain", current, "error", err.Error())
		target = current
	}
	if _, known := r.byDomain[target]; !known {
		target = current
	}

	res := Result{Domain: target, FromDomain: current}
	specialistPrompt := prompt

	if target != current {
		// Window is fixed at handoff time; it never silently grows.
		turns := r.window.Select(sess)
		res.Transferred = true
		res.ContextTurns = len(turns)
		if preamble := RenderContext(current, turns); preamble != "" {
			specialistPrompt = preamble + "\nUser: " + prompt
		}
		sess.SetState(stateKeyDomain, target)
		log.LogHandoff(current, target, len(turns))
	}

	answer, err := r.byDomain[target].Responder.Respond(ctx, specialistPrompt)
	if err != nil {
		return Result{}, fmt.Errorf("specialist %s: %w", target, err)
	}
	res.Answer = answer

	sess.AddTurn("user", "", prompt)
	sess.AddTurn("assistant", target, answer)
	if err := r.store.Put(sess); err != nil {
		return Result{}, fmt.Errorf("store session: %w", err)
	}
	return res, nil
}
