// Package agent provides the uniform invocation contract over agent
// variants with different capability sets. Capability is a compile-time
// trait of the variant: an implementation satisfies PlainAgent,
// TokenStreamingAgent or EventStreamingAgent, resolved once at
// construction and never re-probed per call.
//
// The Adapter drives one request for one session end to end: instance
// resolution through the Registry, capability dispatch in fixed priority
// order, event fan-out through the hub, turn persistence, and the
// terminal done event that closes every request.
package agent
