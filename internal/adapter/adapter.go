// Package adapter defines the inference adapter contract: an
// abstraction over "start a streaming generation, yield text deltas,
// cancel an active stream" that keeps every concrete model provider out
// of the orchestrator's core.
package adapter

import "context"

// Role identifies the speaker of a message in the outgoing request.
type Role string

// Known roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the outgoing message list built by the
// orchestrator's continuation protocol.
type Message struct {
	Role    Role
	Content string
}

// Adapter is the contract every concrete model client satisfies. Stream
// opens a streaming generation and yields textual deltas only — no
// structured events — until the model completes or the context is
// cancelled. Cancel cancels the currently active stream; it is safe to
// call when no stream is active, and it must not return until any
// underlying async close has completed, so the caller can safely start a
// new stream immediately afterward.
type Adapter interface {
	Stream(ctx context.Context, messages []Message, systemPrompt string, temperature float64) (<-chan Delta, error)
	Cancel()
}

// Delta is one unit sent over the channel returned by Stream: either a
// text fragment or a terminal error/completion signal.
type Delta struct {
	Text string

	// Err is set on the final Delta when the stream ended abnormally.
	// A clean end-of-stream closes the channel without a final Err delta.
	Err error
}
