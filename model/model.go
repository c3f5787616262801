package model

import "context"

// Message is one conversational entry in a model request. Role is "user"
// or "assistant"; system instructions travel separately on the Request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request captures the normalized model input produced by callers.
type Request struct {
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`
}

// Info carries metadata describing a model implementation.
type Info struct {
	Name     string
	Provider string
}

// Model is the minimal generation contract. Complete returns the full
// final answer; Stream yields token fragments followed by channel close.
// Both respect context cancellation.
type Model interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) (<-chan string, <-chan error)
	Info() Info
}
