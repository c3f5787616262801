// Package session defines the conversational session container and the
// keyed state store behind it. The Store interface covers both
// conversation state and orchestration checkpoints so the backend (memory
// map vs. durable sqlite) can be swapped without affecting callers.
//
// Add additional backends (Redis, Postgres, …) alongside the existing
// implementations without changing any calling code - only the wiring
// layer decides which implementation to instantiate.
package session
