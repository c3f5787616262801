// Package hub tracks which live connections belong to which session and
// fans out events to all of them. It is the only structure mutated by
// multiple concurrent callers (connect/disconnect racing with broadcast),
// so it carries its own synchronization independent of session processing.
package hub
