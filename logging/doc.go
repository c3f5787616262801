// Package logging provides a minimal logging interface and adapters for agenthub.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the hub, adapter, engine and router use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - RunLogger adding session/run context plus domain helpers for state
//     transitions, participant calls and handoffs
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
