package tui

import (
	"fmt"
	"strings"
)

// View renders the viewport, the status line, and the input box.
func (m Model) View() string {
	if m.quitting {
		return "bye.\n"
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	if m.streaming {
		b.WriteString("  ")
		b.WriteString(m.spinner.View())
		b.WriteString(" generating")
	}
	if m.lastErr != "" {
		b.WriteString(fmt.Sprintf("\n%s", styleError.Render(m.lastErr)))
	}
	b.WriteString("\n")
	b.WriteString(m.textarea.View())
	return b.String()
}
