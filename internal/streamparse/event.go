package streamparse

import "ravel/internal/signal"

// Kind distinguishes the three event variants the parser emits.
type Kind int

// Event variants, emitted in stream order.
const (
	KindText Kind = iota
	KindCheckpoint
	KindBacktrack
)

// Event is a tagged union: exactly one variant's fields are meaningful,
// selected by Kind.
type Event struct {
	Kind Kind

	// Text, set when Kind == KindText.
	Text string

	// ID, set when Kind == KindCheckpoint or KindBacktrack.
	ID string

	// Reason, set when Kind == KindBacktrack.
	Reason string

	// Rephrase, set when Kind == KindBacktrack and a rephrase: field was
	// present in the marker.
	Rephrase    string
	HasRephrase bool

	// Mode, set when Kind == KindBacktrack and a mode: field was present.
	// The orchestrator — not the parser — validates this against the
	// known cognitive modes.
	Mode    signal.Mode
	HasMode bool

	// Temperature, set when Kind == KindBacktrack and a temp: field was
	// present and syntactically parseable. The orchestrator — not the
	// parser — validates the value lies in [0, 1].
	Temperature    float64
	HasTemperature bool
}
