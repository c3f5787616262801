package magentic

import (
	"context"
	"fmt"
	"strings"

	"github.com/aseangps/agenthub/model"
)

// Manager is the policy driving planning, progress evaluation and final
// synthesis. A manager failure is unrecoverable for the run; participant
// failures are not routed through it.
type Manager interface {
	// Plan produces or revises the task plan for the next round.
	Plan(ctx context.Context, ledger *Ledger, prompt string, participants []Participant) (Plan, error)
	// MadeProgress reports whether the round moved the task forward.
	MadeProgress(ledger *Ledger, round []Contribution) bool
	// Finalize synthesizes the final answer from the ledger.
	Finalize(ctx context.Context, ledger *Ledger, prompt string) (string, error)
}

// LLMManager drives planning and synthesis through a language model. Plan
// output is expected as one "participant: task" line per assignment;
// unparseable output falls back to fanning the prompt out to every
// participant so a sloppy model never wedges the run.
type LLMManager struct {
	llm model.Model
}

// NewLLMManager constructs a model-backed manager policy.
func NewLLMManager(llm model.Model) *LLMManager { return &LLMManager{llm: llm} }

// Plan asks the model for a per-participant task breakdown.
func (m *LLMManager) Plan(ctx context.Context, ledger *Ledger, prompt string, participants []Participant) (Plan, error) {
	var roster strings.Builder
	for _, p := range participants {
		fmt.Fprintf(&roster, "- %s: %s\n", p.Name(), p.Description())
	}

	var progress strings.Builder
	for _, c := range ledger.Contributions {
		fmt.Fprintf(&progress, "[round %d] %s: %s\n", c.Round, c.Participant, c.Content)
	}

	system := "You are an orchestration manager. Break the request into one task per useful specialist. " +
		"Answer with one line per assignment in the form 'name: task'. Only use the listed specialists."
	user := fmt.Sprintf("Request: %s\n\nSpecialists:\n%s\nProgress so far:\n%s", prompt, roster.String(), progress.String())

	out, err := m.llm.Complete(ctx, model.Request{
		System:   system,
		Messages: []model.Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return Plan{}, fmt.Errorf("manager plan: %w", err)
	}

	plan := parsePlan(out, participants)
	if len(plan.Assignments) == 0 {
		for _, p := range participants {
			plan.Assignments = append(plan.Assignments, Assignment{Participant: p.Name(), Task: prompt})
		}
	}
	plan.Summary = strings.TrimSpace(out)
	return plan, nil
}

// MadeProgress treats any non-degraded, non-empty contribution as forward
// progress for the round.
func (m *LLMManager) MadeProgress(_ *Ledger, round []Contribution) bool {
	for _, c := range round {
		if !c.Degraded && strings.TrimSpace(c.Content) != "" {
			return true
		}
	}
	return false
}

// Finalize asks the model to synthesize the final answer from the ledger.
func (m *LLMManager) Finalize(ctx context.Context, ledger *Ledger, prompt string) (string, error) {
	var work strings.Builder
	for _, c := range ledger.Contributions {
		if c.Degraded {
			continue
		}
		fmt.Fprintf(&work, "%s: %s\n", c.Participant, c.Content)
	}

	out, err := m.llm.Complete(ctx, model.Request{
		System: "Synthesize a single final answer for the user from the specialists' contributions.",
		Messages: []model.Message{
			{Role: "user", Content: fmt.Sprintf("Request: %s\n\nContributions:\n%s", prompt, work.String())},
		},
	})
	if err != nil {
		return "", fmt.Errorf("manager finalize: %w", err)
	}
	return out, nil
}

// parsePlan extracts "name: task" lines naming a known participant.
func parsePlan(out string, participants []Participant) Plan {
	known := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		known[p.Name()] = struct{}{}
	}

	var plan Plan
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		name, task, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		task = strings.TrimSpace(task)
		if _, exists := known[name]; !exists || task == "" {
			continue
		}
		plan.Assignments = append(plan.Assignments, Assignment{Participant: name, Task: task})
	}
	return plan
}
