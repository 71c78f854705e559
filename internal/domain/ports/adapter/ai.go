package adapter

import (
	"context"
	"errors"
	"fmt"
)

// Message represents one role-tagged message on the wire.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ModelInfo describes a model.
type ModelInfo struct {
	Name        string
	Description string
	MaxTokens   int
	Supports    []string
}

// ChatOptions carries the per-request model parameters.
type ChatOptions struct {
	Model           string
	Temperature     float64
	MaxTokens       int
	PresencePenalty float64
	// IncludeAssistantTurns controls whether assistant messages are kept in
	// the outbound list. When false the provider adapter drops them before
	// building the request.
	IncludeAssistantTurns bool
}

// StreamChunk is one event from an in-flight completion. Content is the
// cumulative text accumulated so far, not a delta; consumers overwrite, they
// do not append. A chunk with Done=true is the single terminal event.
type StreamChunk struct {
	Content string
	Done    bool
}

// StreamHandle is one in-flight completion request.
//
// Recv blocks until the next event. After a chunk with Done=true, or after
// an error, no further events are delivered. Cancel is best-effort: it asks
// the provider to stop, but a terminal event may still arrive afterwards,
// so consumers must stay idempotent.
type StreamHandle interface {
	Recv(ctx context.Context) (StreamChunk, error)
	Cancel()
}

// AIStreamer is the port for the remote completion transport.
type AIStreamer interface {
	Submit(ctx context.Context, messages []Message, opts ChatOptions) (StreamHandle, error)
	ListModels(ctx context.Context) ([]string, error)
	GetModelInfo(model string) (ModelInfo, error)
}

// StatusError wraps a transport failure that carries an HTTP-equivalent
// status code, so the orchestrator can distinguish authorization failures.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport status %d", e.Code)
	}
	return fmt.Sprintf("transport status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

func (e *StatusError) StatusCode() int { return e.Code }

// StatusCodeOf extracts a status code from err, or 0 when none is attached.
func StatusCodeOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
