// Package protocol defines the typed event vocabulary and client message
// contract shared by every other component. It captures:
//
//   - Events (immutable tagged records broadcast to session viewers)
//   - ClientMessage (the inbound registration / prompt envelope)
//   - Sink (the push target for internally generated agent events)
//   - Session identity rules (opaque caller-supplied ids)
//
// The package intentionally carries no transport or persistence concerns;
// it exists so higher layers (hub, agent, magentic, handoff, server) agree
// on a single wire shape without depending on each other.
package protocol
