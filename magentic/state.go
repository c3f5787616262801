package magentic

// State is one step of the orchestration run lifecycle.
type State string

const (
	StateInit              State = "init"
	StatePlanning          State = "planning"
	StatePlanReviewPending State = "plan_review_pending"
	StateDelegating        State = "delegating"
	StateCollecting        State = "collecting"
	StateStallCheck        State = "stall_check"
	StateFinalize          State = "finalize"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// String returns the state's wire label.
func (s State) String() string { return string(s) }

// Terminal reports whether the run cannot advance past this state.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }
