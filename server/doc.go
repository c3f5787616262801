// Package server exposes the HTTP surface of agenthub: a websocket stream
// endpoint for interactive sessions plus small JSON endpoints for single-shot
// chat and plan review decisions.
package server
