package magentic

import (
	"fmt"
	"strings"
)

// Assignment delegates one task description to a named participant.
type Assignment struct {
	Participant string `json:"participant"`
	Task        string `json:"task"`
}

// Plan is the manager policy's current task breakdown for a round.
type Plan struct {
	Summary     string       `json:"summary"`
	Assignments []Assignment `json:"assignments"`
}

// Render returns a human-readable plan description for progress events.
func (p Plan) Render() string {
	var b strings.Builder
	if p.Summary != "" {
		b.WriteString(p.Summary)
		b.WriteString("\n")
	}
	for _, a := range p.Assignments {
		fmt.Fprintf(&b, "- %s: %s\n", a.Participant, a.Task)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Contribution is a participant's structured result for one delegated
// task. Degraded marks a locally recovered participant failure; the round
// continues with it recorded.
type Contribution struct {
	Round       int    `json:"round"`
	Participant string `json:"participant"`
	Task        string `json:"task"`
	Content     string `json:"content"`
	Degraded    bool   `json:"degraded,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Ledger is the mutable record of one orchestration run: the round
// counter (strictly increasing for the run's lifetime), stall and reset
// counters (never exceeding their configured maxima without terminating
// the run), the current plan and all merged contributions.
type Ledger struct {
	Round         int            `json:"round"`
	StallCount    int            `json:"stall_count"`
	ResetCount    int            `json:"reset_count"`
	Plan          *Plan          `json:"plan,omitempty"`
	Contributions []Contribution `json:"contributions"`
}

// Merge appends the round's contributions to the ledger snapshot.
func (l *Ledger) Merge(contribs []Contribution) {
	l.Contributions = append(l.Contributions, contribs...)
}

// RoundContributions returns the contributions recorded for one round.
func (l *Ledger) RoundContributions(round int) []Contribution {
	var out []Contribution
	for _, c := range l.Contributions {
		if c.Round == round {
			out = append(out, c)
		}
	}
	return out
}
