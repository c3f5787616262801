package handoff

import (
	"fmt"
	"strings"

	"github.com/aseangps/agenthub/session"
)

// Window is the per-deployment context transfer budget: AllTurns carries
// the full history, NoTurns carries nothing, any positive value carries
// the last N turns. It is configured once at router construction, never
// per call, and the slice it selects is fixed at handoff time.
type Window int

const (
	// AllTurns transfers the full conversation history.
	AllTurns Window = -1
	// NoTurns transfers no prior context.
	NoTurns Window = 0
)

// Select returns the turns the window admits from the session.
func (w Window) Select(sess *session.Session) []session.Turn {
	return sess.Window(int(w))
}

// RenderContext formats transferred turns as a preamble for the target
// specialist. Empty when the window admits nothing.
func RenderContext(fromDomain string, turns []session.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation transferred from the %s specialist. Prior turns:\n", fromDomain)
	for _, t := range turns {
		role := t.Role
		if t.Agent != "" {
			role = t.Agent
		}
		fmt.Fprintf(&b, "%s: %s\n", role, t.Content)
	}
	return b.String()
}
