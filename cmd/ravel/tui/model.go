// Package tui provides the interactive chat interface for ravel: a
// terminal view of a single cognitive-backtracking run, driven by the
// orchestrator's callbacks.
//
// Textarea + viewport + spinner composed into a bubbletea.Model, with a
// buffered channel of background events drained by a self-rearming
// tea.Cmd (Model.events drained by waitForEvent), covering the handful of
// states the orchestrator's callback contract actually drives: streaming
// text, a backtrack banner, an error panel, and a committed/rendered turn.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"ravel/internal/orchestrator"
	"ravel/internal/signal"
)

var (
	styleUser       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	styleAssistant  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	styleBacktrack  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("3"))
	styleError      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	styleStatusLine = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// turnEvent is what the goroutine driving Processor.Run sends back to
// the bubbletea event loop. Exactly one non-zero field is set.
type turnEvent struct {
	text       string
	backtrack  *orchestrator.BacktrackEvent
	errMessage string
	done       string
	closed     bool // events channel drained; stop re-arming waitForEvent
}

// Model is the chat interface's bubbletea.Model.
type Model struct {
	proc       *orchestrator.Processor
	maxRewinds int

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	width, height int

	transcript   strings.Builder // rendered Markdown of committed turns
	currentTurn  strings.Builder // raw visible text of the in-flight turn
	streaming    bool
	rewindsUsed  int
	mode         signal.Mode
	lastErr      string
	events       chan turnEvent
	quitting     bool
}

// New builds a Model backed by proc. maxRewinds is display-only (the
// budget itself lives in the processor's Config).
func New(proc *orchestrator.Processor, maxRewinds int) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask ravel something... (Enter to send, Ctrl+C to quit)"
	ta.Focus()
	ta.CharLimit = 8000
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(76),
	)

	return Model{
		proc:       proc,
		maxRewinds: maxRewinds,
		textarea:   ta,
		viewport:   vp,
		spinner:    sp,
		renderer:   renderer,
		mode:       signal.DefaultMode,
		width:      80,
		height:     24,
	}
}

// Init starts the spinner ticking; no run is in flight yet.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// startRun launches Processor.Run in a goroutine wired to a fresh events
// channel, and returns the tea.Cmd that begins draining it.
func (m *Model) startRun(userMessage string) tea.Cmd {
	m.events = make(chan turnEvent, 64)
	events := m.events

	go func() {
		defer close(events)
		m.proc.Run(context.Background(), userMessage, orchestrator.Callbacks{
			OnText: func(segment string) {
				events <- turnEvent{text: segment}
			},
			OnBacktrack: func(ev orchestrator.BacktrackEvent, newPrefix string) {
				e := ev
				events <- turnEvent{backtrack: &e}
			},
			OnError: func(message string) {
				events <- turnEvent{errMessage: message}
			},
			OnDone: func(fullText string) {
				events <- turnEvent{done: fullText}
			},
		})
	}()

	return waitForEvent(events)
}

// waitForEvent returns a tea.Cmd that yields the next event from ch, or
// a closed turnEvent once the run has finished and ch has drained.
func waitForEvent(ch chan turnEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return turnEvent{closed: true}
		}
		return ev
	}
}

func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (m Model) statusLine() string {
	return styleStatusLine.Render(fmt.Sprintf(
		"mode=%s  rewinds=%d/%d",
		m.mode, m.rewindsUsed, m.maxRewinds,
	))
}
