package adapter

import (
	"context"
	"sync"
)

// Scripted is a fixture Adapter that replays a fixed sequence of
// responses, one per Stream call, regardless of the messages or
// temperature passed in. It is used by orchestrator tests in place of a
// real model, and by the CLI's --script flag to let a user
// drive the orchestrator's retry/backtrack machinery from a file instead
// of a live API.
type Scripted struct {
	mu        sync.Mutex
	responses []string
	calls     []Call
	cancelled int
}

// Call records one Stream invocation for later assertions.
type Call struct {
	Messages     []Message
	SystemPrompt string
	Temperature  float64
}

// NewScripted returns a Scripted adapter that yields responses in order,
// one per Stream call. Each response is delivered as a single Delta
// chunk; tests wanting finer-grained chunking should call Stream less
// and feed a parser directly instead.
func NewScripted(responses ...string) *Scripted {
	return &Scripted{responses: responses}
}

// Stream returns the next scripted response as a single delta followed
// by channel close. Calling Stream more times than there are responses
// yields an empty, immediately-closed stream.
func (s *Scripted) Stream(ctx context.Context, messages []Message, systemPrompt string, temperature float64) (<-chan Delta, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Messages: messages, SystemPrompt: systemPrompt, Temperature: temperature})
	idx := len(s.calls) - 1
	s.mu.Unlock()

	out := make(chan Delta, 1)
	if idx < len(s.responses) {
		resp := s.responses[idx]
		if resp != "" {
			out <- Delta{Text: resp}
		}
	}
	close(out)
	return out, nil
}

// Cancel is a no-op: Stream always completes synchronously before
// returning, so there is never an in-flight scripted stream to cancel.
// It still counts the call so tests can assert the orchestrator invoked
// cancellation.
func (s *Scripted) Cancel() {
	s.mu.Lock()
	s.cancelled++
	s.mu.Unlock()
}

// Calls returns every Stream call observed so far, in order.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CancelCount returns how many times Cancel was invoked.
func (s *Scripted) CancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}
