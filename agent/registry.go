package agent

import (
	"fmt"
	"sync"

	"github.com/aseangps/agenthub/session"
)

// Factory builds an agent instance for a session. The session carries the
// persisted state blob the instance restores from; accessToken is an
// opaque credential forwarded from the client, possibly empty.
type Factory func(sess *session.Session, accessToken string) (Agent, error)

// Registry maps a configuration-time profile key to an agent factory.
// Which variant a session uses is a deployment-time choice resolved once
// at startup, not a per-request parameter.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a profile key to a factory, replacing any previous binding.
func (r *Registry) Register(profile string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[profile] = f
}

// New builds an agent instance for the given profile and session.
func (r *Registry) New(profile string, sess *session.Session, accessToken string) (Agent, error) {
	r.mu.RLock()
	f, ok := r.factories[profile]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown agent profile %q", profile)
	}
	return f(sess, accessToken)
}

// Profiles returns the registered profile keys.
func (r *Registry) Profiles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	return out
}
