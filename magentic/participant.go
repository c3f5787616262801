package magentic

import (
	"context"

	"github.com/aseangps/agenthub/model"
)

// Participant is a named specialist registered with the engine. The
// contract is stateless: it accepts a delegated task description and
// returns its contribution text.
type Participant interface {
	Name() string
	Description() string
	Execute(ctx context.Context, task string) (string, error)
}

// Specialist is a model-backed Participant with a fixed system prompt.
type Specialist struct {
	name        string
	description string
	system      string
	llm         model.Model
}

// NewSpecialist constructs a model-backed participant.
func NewSpecialist(name, description, system string, llm model.Model) *Specialist {
	return &Specialist{name: name, description: description, system: system, llm: llm}
}

// Name returns the participant's identifier.
func (s *Specialist) Name() string { return s.name }

// Description returns what the participant is suited for.
func (s *Specialist) Description() string { return s.description }

// Execute runs a single completion for the delegated task.
func (s *Specialist) Execute(ctx context.Context, task string) (string, error) {
	return s.llm.Complete(ctx, model.Request{
		System:   s.system,
		Messages: []model.Message{{Role: "user", Content: task}},
	})
}
