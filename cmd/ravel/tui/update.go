package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update drives the chat loop: keystrokes into the textarea, window
// resizes into the viewport/textarea, and turnEvents from the active
// Processor.Run call into the transcript.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.textarea.SetWidth(msg.Width - 4)
		m.viewport.Width = msg.Width - 2
		m.viewport.Height = msg.Height - 6
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEnter:
			if m.streaming {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.streaming = true
			m.currentTurn.Reset()
			m.lastErr = ""
			m.appendTranscriptRaw(styleUser.Render("you") + "\n" + input + "\n\n")
			return m, m.startRun(input)
		}

	case turnEvent:
		return m.handleTurnEvent(msg)

	case spinner.TickMsg:
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, spCmd
	}

	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(taCmd, vpCmd)
}

func (m Model) handleTurnEvent(ev turnEvent) (tea.Model, tea.Cmd) {
	switch {
	case ev.closed:
		m.streaming = false
		return m, nil

	case ev.text != "":
		m.currentTurn.WriteString(ev.text)
		m.refreshLiveView()
		return m, waitForEvent(m.events)

	case ev.backtrack != nil:
		m.rewindsUsed++
		m.mode = ev.backtrack.Mode
		m.currentTurn.Reset()
		m.currentTurn.WriteString(styleBacktrack.Render(fmt.Sprintf("[rewound: %s]", ev.backtrack.Reason)) + "\n")
		m.refreshLiveView()
		return m, waitForEvent(m.events)

	case ev.errMessage != "":
		m.streaming = false
		m.lastErr = ev.errMessage
		m.appendTranscriptRaw(styleError.Render("error: "+ev.errMessage) + "\n\n")
		return m, nil

	case ev.done != "":
		m.streaming = false
		m.currentTurn.Reset()
		m.appendTranscriptRaw(styleAssistant.Render("ravel") + "\n" + m.renderMarkdown(ev.done) + "\n\n")
		m.rewindsUsed = 0
		return m, nil
	}
	return m, waitForEvent(m.events)
}

// refreshLiveView re-renders the viewport with committed history plus
// the in-flight turn's text, so a backtrack's reset is visible
// immediately: per the ordering guarantee, no other event is delivered
// between on_backtrack and the next on_text, so re-rendering here is safe.
func (m *Model) refreshLiveView() {
	live := m.transcript.String() + styleAssistant.Render("ravel") + "\n" + m.currentTurn.String()
	m.viewport.SetContent(live)
	m.viewport.GotoBottom()
}

func (m *Model) appendTranscriptRaw(s string) {
	m.transcript.WriteString(s)
	m.viewport.SetContent(m.transcript.String())
	m.viewport.GotoBottom()
}
