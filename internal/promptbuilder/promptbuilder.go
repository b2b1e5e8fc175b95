// Package promptbuilder assembles the system prompt the orchestrator sends
// on every retry: the marker grammar the model must emit, its current
// cognitive mode and temperature, and the accumulated hints from prior
// backtracks.
//
// A single deterministic function producing a prompt from a fixed set of
// inputs, with no caching or external state.
package promptbuilder

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"ravel/internal/signal"
)

// MaxHintLength caps a single sanitised hint. Hints come from model output
// (the backtrack reason), so length and character content are not trusted.
const MaxHintLength = 200

const grammarBlock = `You may emit two inline control markers while generating your response.
They are never shown to the user; do not mention them in your reply.

Checkpoint: ` + signal.Open + signal.KeywordCheckpoint + `ID` + signal.Close + `
  Marks the current position as a named rewind point.

Backtrack: ` + signal.Open + signal.KeywordBacktrack + `ID|reason` + signal.Close + `
  Discards everything generated since checkpoint ID and resumes from it,
  carrying "reason" forward as guidance. Optional extra fields, separated
  by '|': ` + signal.FieldRephrase + `text, ` + signal.FieldMode + `name, ` + signal.FieldTemp + `0.0-1.0.

Use these only when you judge your own output has gone wrong and a prior
checkpoint is a better place to resume from.`

// Build returns the system prompt for the given accumulated hints,
// cognitive mode, and effective temperature. It is a pure function: the
// same inputs always produce the same output, and it performs no I/O.
func Build(hints []string, mode signal.Mode, temperature float64) string {
	var b strings.Builder

	b.WriteString(grammarBlock)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Current cognitive mode: %s (temperature %s).\n", mode, strconv.FormatFloat(temperature, 'f', 2, 64))

	if len(hints) == 0 {
		return b.String()
	}

	b.WriteString("\nPrior attempts at this response were rewound for the following reasons, most recent last:\n")
	for i, h := range hints {
		fmt.Fprintf(&b, "%d. %s\n", i+1, sanitizeHint(h))
	}

	return b.String()
}

// sanitizeHint strips non-printable characters and caps length: hint
// sanitisation is the builder's concern, not the orchestrator's.
func sanitizeHint(h string) string {
	var b strings.Builder
	for _, r := range h {
		if b.Len() >= MaxHintLength {
			break
		}
		if r == '\n' || r == '\t' {
			b.WriteRune(' ')
			continue
		}
		if unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
