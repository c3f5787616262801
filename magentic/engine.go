package magentic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aseangps/agenthub/hub"
	"github.com/aseangps/agenthub/logging"
	"github.com/aseangps/agenthub/protocol"
	"github.com/aseangps/agenthub/session"
)

var (
	// ErrPlanPending signals that the run suspended for plan review and
	// will be resumed by an external approve or reject call.
	ErrPlanPending = errors.New("plan review pending")
	// ErrRunNotFound signals that no checkpointed run exists for the session.
	ErrRunNotFound = errors.New("no resumable run for session")
	// ErrReviewNotPending signals an approve/reject call for a run that
	// is not parked in plan review.
	ErrReviewNotPending = errors.New("run is not awaiting plan review")
)

// Config bounds one orchestration run.
type Config struct {
	// MaxRounds forces a finalize (not a failure) once exceeded.
	MaxRounds int
	// MaxStalls is the number of consecutive no-progress rounds tolerated
	// before the plan is reset.
	MaxStalls int
	// MaxResets is the number of plan resets tolerated before the run fails.
	MaxResets int
	// EnablePlanReview gates every produced plan behind an external
	// approval before delegation starts.
	EnablePlanReview bool
	// RoundTimeout caps one round of participant dispatch. Zero disables it.
	RoundTimeout time.Duration
	// EmitTransitions streams a progress event for every state transition.
	EmitTransitions bool
}

// DefaultConfig returns conservative production bounds.
func DefaultConfig() Config {
	return Config{
		MaxRounds:       5,
		MaxStalls:       3,
		MaxResets:       2,
		RoundTimeout:    2 * time.Minute,
		EmitTransitions: true,
	}
}

// Options holds optional Engine dependencies.
type Options struct {
	// Hub, when set, lets externally resumed runs (approve/reject/resume)
	// broadcast to the session's connections.
	Hub *hub.Hub
	// Logger provides structured logging.
	Logger logging.Logger
}

// Engine is the bounded multi-round planner/delegator. It is constructed
// once per deployment with an ordered participant set and a manager
// policy, and serves many sessions concurrently; all per-run state lives
// in checkpoints, never in the Engine itself.
type Engine struct {
	participants []Participant
	byName       map[string]Participant
	manager      Manager
	cfg          Config
	store        session.Store
	hub          *hub.Hub
	logger       *logging.RunLogger
}

// New constructs an Engine.
func New(participants []Participant, manager Manager, cfg Config, store session.Store, optFns ...func(o *Options)) *Engine {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	byName := make(map[string]Participant, len(participants))
	for _, p := range participants {
		byName[p.Name()] = p
	}
	return &Engine{
		participants: participants,
		byName:       byName,
		manager:      manager,
		cfg:          cfg,
		store:        store,
		hub:          opts.Hub,
		logger:       logging.NewRunLogger(opts.Logger, "magentic"),
	}
}

// runState is the checkpoint-persisted snapshot of one run. Resuming from
// it reproduces the exact round counter and plan state that produced it.
type runState struct {
	RunID   string `json:"run_id"`
	Prompt  string `json:"prompt"`
	State   State  `json:"state"`
	Ledger  Ledger `json:"ledger"`
	Failure string `json:"failure,omitempty"`
}

// Run drives a fresh orchestration run for the session, emitting progress
// through sink. It returns ErrPlanPending when the run suspends for plan
// review, nil on a completed run, and the run failure otherwise.
func (e *Engine) Run(ctx context.Context, sessionID, prompt string, sink protocol.Sink) error {
	rs := &runState{RunID: ulid.Make().String(), Prompt: prompt, State: StateInit}

	if sess, err := e.store.Get(sessionID); err == nil {
		sess.AddTurn("user", "", prompt)
		if err := e.store.Put(sess); err != nil {
			e.logger.WithSession(sessionID, rs.RunID).Warn("persist user turn", "error", err.Error())
		}
	}

	return e.loop(ctx, sessionID, rs, sink)
}

// Approve resumes a run parked in plan review and executes the approved
// plan to completion. The pending plan event is re-broadcast on resume so
// connections that joined while the run was suspended still see it;
// events emitted before the suspension are not replayed.
func (e *Engine) Approve(ctx context.Context, sessionID string) error {
	rs, err := e.loadRun(sessionID)
	if err != nil {
		return err
	}
	if rs.State != StatePlanReviewPending {
		return ErrReviewNotPending
	}

	sink := e.sessionSink(sessionID)
	if rs.Ledger.Plan != nil {
		ev := protocol.NewEvent(protocol.EventOrchestratorMessage, sessionID)
		ev.RunID = rs.RunID
		ev.Agent = "orchestrator"
		ev.Content = rs.Ledger.Plan.Render()
		ev.Data = map[string]any{"round": rs.Ledger.Round, "review": "approved"}
		sink.Push(ctx, ev)
	}

	e.transition(ctx, sessionID, rs, StateDelegating, sink)
	if err := e.checkpoint(sessionID, rs); err != nil {
		return err
	}
	return e.finish(ctx, sessionID, rs, sink)
}

// Reject discards the pending plan. The rejection counts as a plan reset;
// within bounds the run re-plans, beyond them it fails.
func (e *Engine) Reject(ctx context.Context, sessionID, reason string) error {
	rs, err := e.loadRun(sessionID)
	if err != nil {
		return err
	}
	if rs.State != StatePlanReviewPending {
		return ErrReviewNotPending
	}

	sink := e.sessionSink(sessionID)
	msg := "plan rejected"
	if reason != "" {
		msg = fmt.Sprintf("plan rejected: %s", reason)
	}
	sink.Push(ctx, protocol.NewInfoEvent(sessionID, msg))

	rs.Ledger.ResetCount++
	if rs.Ledger.ResetCount > e.cfg.MaxResets {
		rs.Failure = fmt.Sprintf("plan reset limit exceeded (%d)", e.cfg.MaxResets)
		rs.State = StateFailed
	} else {
		rs.Ledger.Plan = nil
		rs.Ledger.StallCount = 0
		e.transition(ctx, sessionID, rs, StatePlanning, sink)
	}
	if err := e.checkpoint(sessionID, rs); err != nil {
		return err
	}
	return e.finish(ctx, sessionID, rs, sink)
}

// Resume re-enters the latest checkpointed run for the session, picking
// up at the recorded state rather than restarting from scratch. A run
// parked in plan review stays parked (ErrPlanPending).
func (e *Engine) Resume(ctx context.Context, sessionID string) error {
	rs, err := e.loadRun(sessionID)
	if err != nil {
		return err
	}
	if rs.State.Terminal() {
		return nil
	}
	if rs.State == StatePlanReviewPending {
		return ErrPlanPending
	}
	return e.finish(ctx, sessionID, rs, e.sessionSink(sessionID))
}

// ReviewPending reports whether the session's latest checkpointed run is
// parked awaiting a plan review decision.
func (e *Engine) ReviewPending(sessionID string) (bool, error) {
	rs, err := e.loadRun(sessionID)
	if errors.Is(err, ErrRunNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rs.State == StatePlanReviewPending, nil
}

// LatestLedger returns the ledger of the most recent checkpoint.
func (e *Engine) LatestLedger(sessionID string) (*Ledger, bool, error) {
	rs, err := e.loadRun(sessionID)
	if errors.Is(err, ErrRunNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	ledger := rs.Ledger
	return &ledger, true, nil
}

// loop advances the state machine until the run completes, fails or
// suspends. All ledger mutations checkpoint before the loop proceeds.
func (e *Engine) loop(ctx context.Context, sessionID string, rs *runState, sink protocol.Sink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch rs.State {
		case StateInit:
			e.transition(ctx, sessionID, rs, StatePlanning, sink)

		case StatePlanning:
			rs.Ledger.Round++
			if rs.Ledger.Round > e.cfg.MaxRounds {
				e.transition(ctx, sessionID, rs, StateFinalize, sink)
				continue
			}

			plan, err := e.manager.Plan(ctx, &rs.Ledger, rs.Prompt, e.participants)
			if err != nil {
				rs.Failure = err.Error()
				rs.State = StateFailed
				continue
			}
			rs.Ledger.Plan = &plan

			ev := protocol.NewEvent(protocol.EventOrchestratorMessage, sessionID)
			ev.RunID = rs.RunID
			ev.Agent = "orchestrator"
			ev.Content = plan.Render()
			ev.Data = map[string]any{"round": rs.Ledger.Round}
			sink.Push(ctx, ev)

			if e.cfg.EnablePlanReview {
				e.transition(ctx, sessionID, rs, StatePlanReviewPending, sink)
				if err := e.checkpoint(sessionID, rs); err != nil {
					rs.Failure = err.Error()
					rs.State = StateFailed
					continue
				}
				sink.Push(ctx, protocol.NewInfoEvent(sessionID, "plan awaiting review"))
				return ErrPlanPending
			}

			// Persisted after the transition: a run resumed from this
			// checkpoint executes the recorded plan instead of planning a
			// new round.
			e.transition(ctx, sessionID, rs, StateDelegating, sink)
			if err := e.checkpoint(sessionID, rs); err != nil {
				rs.Failure = err.Error()
				rs.State = StateFailed
				continue
			}

		case StatePlanReviewPending:
			// Reachable only through Resume without a review decision.
			return ErrPlanPending

		case StateDelegating:
			contribs := e.delegate(ctx, sessionID, rs, sink)
			e.transition(ctx, sessionID, rs, StateCollecting, sink)
			rs.Ledger.Merge(contribs)
			if err := e.checkpoint(sessionID, rs); err != nil {
				rs.Failure = err.Error()
				rs.State = StateFailed
				continue
			}

		case StateCollecting:
			e.transition(ctx, sessionID, rs, StateStallCheck, sink)

		case StateStallCheck:
			round := rs.Ledger.RoundContributions(rs.Ledger.Round)
			if e.manager.MadeProgress(&rs.Ledger, round) {
				rs.Ledger.StallCount = 0
			} else {
				rs.Ledger.StallCount++
			}

			switch {
			case rs.Ledger.Round >= e.cfg.MaxRounds:
				// Forced termination, not a failure.
				e.transition(ctx, sessionID, rs, StateFinalize, sink)

			case rs.Ledger.StallCount > e.cfg.MaxStalls:
				rs.Ledger.ResetCount++
				if rs.Ledger.ResetCount > e.cfg.MaxResets {
					rs.Failure = fmt.Sprintf("plan reset limit exceeded (%d)", e.cfg.MaxResets)
					rs.State = StateFailed
					continue
				}
				rs.Ledger.Plan = nil
				rs.Ledger.StallCount = 0
				e.transition(ctx, sessionID, rs, StatePlanning, sink)

			default:
				e.transition(ctx, sessionID, rs, StatePlanning, sink)
			}

			if err := e.checkpoint(sessionID, rs); err != nil {
				rs.Failure = err.Error()
				rs.State = StateFailed
			}

		case StateFinalize:
			answer, err := e.manager.Finalize(ctx, &rs.Ledger, rs.Prompt)
			if err != nil {
				rs.Failure = err.Error()
				rs.State = StateFailed
				continue
			}

			ev := protocol.NewEvent(protocol.EventFinal, sessionID)
			ev.RunID = rs.RunID
			ev.Agent = "orchestrator"
			ev.Content = answer
			sink.Push(ctx, ev)

			if sess, err := e.store.Get(sessionID); err == nil {
				sess.AddTurn("assistant", "orchestrator", answer)
				if err := e.store.Put(sess); err != nil {
					e.logger.WithSession(sessionID, rs.RunID).Warn("persist final turn", "error", err.Error())
				}
			}

			e.transition(ctx, sessionID, rs, StateDone, sink)
			if err := e.checkpoint(sessionID, rs); err != nil {
				e.logger.WithSession(sessionID, rs.RunID).Warn("checkpoint final state", "error", err.Error())
			}
			return nil

		case StateFailed:
			if err := e.checkpoint(sessionID, rs); err != nil {
				e.logger.WithSession(sessionID, rs.RunID).Warn("checkpoint failed state", "error", err.Error())
			}
			return fmt.Errorf("orchestration failed: %s", rs.Failure)

		case StateDone:
			return nil

		default:
			return fmt.Errorf("orchestration in unknown state %q", rs.State)
		}
	}
}

// delegate dispatches the current plan's assignments concurrently and
// waits for all contributions (or the round timeout). A participant
// failure is recorded as a degraded contribution; the round continues.
func (e *Engine) delegate(ctx context.Context, sessionID string, rs *runState, sink protocol.Sink) []Contribution {
	plan := rs.Ledger.Plan
	if plan == nil || len(plan.Assignments) == 0 {
		return nil
	}

	dctx := ctx
	if e.cfg.RoundTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, e.cfg.RoundTimeout)
		defer cancel()
	}

	log := e.logger.WithSession(sessionID, rs.RunID)
	results := make([]Contribution, len(plan.Assignments))

	var wg sync.WaitGroup
	for i, as := range plan.Assignments {
		wg.Add(1)
		go func(i int, as Assignment) {
			defer wg.Done()

			c := Contribution{Round: rs.Ledger.Round, Participant: as.Participant, Task: as.Task}
			start := time.Now()

			p, ok := e.byName[as.Participant]
			if !ok {
				c.Degraded = true
				c.Error = fmt.Sprintf("unknown participant %q", as.Participant)
			} else if out, err := p.Execute(dctx, as.Task); err != nil {
				c.Degraded = true
				c.Error = err.Error()
				log.LogParticipantCall(as.Participant, time.Since(start), err)
			} else {
				c.Content = out
				log.LogParticipantCall(as.Participant, time.Since(start), nil)
			}

			ev := protocol.NewEvent(protocol.EventAgentMessage, sessionID)
			ev.RunID = rs.RunID
			ev.Agent = as.Participant
			ev.Content = c.Content
			if c.Degraded {
				ev.Data = map[string]any{"degraded": true, "error": c.Error}
			}
			// The timeout context bounds Execute only. Pushing on it after
			// expiry would fail the send and drop healthy connections.
			sink.Push(ctx, ev)

			results[i] = c
		}(i, as)
	}
	wg.Wait()

	return results
}

// transition records and optionally streams a state change.
func (e *Engine) transition(ctx context.Context, sessionID string, rs *runState, to State, sink protocol.Sink) {
	e.logger.WithSession(sessionID, rs.RunID).LogTransition(rs.State.String(), to.String(), rs.Ledger.Round)
	if e.cfg.EmitTransitions {
		ev := protocol.NewEvent(protocol.EventInfo, sessionID)
		ev.RunID = rs.RunID
		ev.Content = "state: " + to.String()
		ev.Data = map[string]any{"from": rs.State.String(), "to": to.String(), "round": rs.Ledger.Round}
		sink.Push(ctx, ev)
	}
	rs.State = to
}

// checkpoint persists the run snapshot keyed by session and round.
func (e *Engine) checkpoint(sessionID string, rs *runState) error {
	blob, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("encode run state: %w", err)
	}
	if err := e.store.SaveCheckpoint(session.NewCheckpoint(sessionID, rs.Ledger.Round, blob)); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// loadRun decodes the latest checkpointed run for the session.
func (e *Engine) loadRun(sessionID string) (*runState, error) {
	cp, ok, err := e.store.LatestCheckpoint(sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRunNotFound
	}
	var rs runState
	if err := json.Unmarshal(cp.State, &rs); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", cp.ID, err)
	}
	return &rs, nil
}

// finish drives an externally resumed run to its next boundary, acting as
// the outermost event boundary for that continuation: failures become an
// error event, and a terminal done event closes it out. A run suspending
// again for review emits neither.
func (e *Engine) finish(ctx context.Context, sessionID string, rs *runState, sink protocol.Sink) error {
	err := e.loop(ctx, sessionID, rs, sink)
	if errors.Is(err, ErrPlanPending) {
		return err
	}
	if err != nil {
		sink.Push(ctx, protocol.NewErrorEvent(sessionID, err.Error()))
	}
	sink.Push(ctx, protocol.NewDoneEvent(sessionID))
	return err
}

// sessionSink routes externally resumed runs to the session's live
// connections when a hub is wired, and discards events otherwise.
func (e *Engine) sessionSink(sessionID string) protocol.Sink {
	if e.hub != nil {
		return e.hub.SessionSink(sessionID)
	}
	return protocol.NopSink{}
}
