// Package command is the ":" palette. It only collects text; parsing and
// execution happen in the app.
package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasktimer/internal/theme"
)

// maxHistory bounds the recalled command lines.
const maxHistory = 50

// CommandMsg is emitted when the user executes a command.
type CommandMsg string

// CancelMsg is emitted when the palette is dismissed without a command.
type CancelMsg struct{}

// Model is the command palette view. Up and down recall earlier lines;
// tab accepts the shown completion.
type Model struct {
	input   textinput.Model
	target  string
	history []string
	// recall is the history position being shown; len(history) means the
	// line being typed.
	recall int
	draft  string
	width  int
	height int
}

// New creates a command palette offering names as completions.
func New(names []string, width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "command, e.g. send! or note call back"
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(names)
	ti.Width = width - 6

	return Model{input: ti, width: width, height: height}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// SetTarget sets the description of what commands will act on, shown
// under the input.
func (m *Model) SetTarget(target string) {
	m.target = target
}

// Focus clears the input and gives it keyboard focus.
func (m *Model) Focus() tea.Cmd {
	m.input.Reset()
	m.recall = len(m.history)
	m.draft = ""
	return m.input.Focus()
}

// History returns the executed lines, oldest first.
func (m Model) History() []string { return m.history }

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			m.input.Blur()
			if line == "" {
				return m, func() tea.Msg { return CancelMsg{} }
			}
			m.remember(line)
			return m, func() tea.Msg { return CommandMsg(line) }
		case "esc":
			m.input.Reset()
			m.input.Blur()
			return m, func() tea.Msg { return CancelMsg{} }
		case "up":
			m.step(-1)
			return m, nil
		case "down":
			m.step(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) remember(line string) {
	if n := len(m.history); n == 0 || m.history[n-1] != line {
		m.history = append(m.history, line)
	}
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.recall = len(m.history)
}

// step moves through history by delta, keeping the typed line as a draft.
func (m *Model) step(delta int) {
	next := m.recall + delta
	if next < 0 || next > len(m.history) {
		return
	}
	if m.recall == len(m.history) {
		m.draft = m.input.Value()
	}
	m.recall = next
	if next == len(m.history) {
		m.input.SetValue(m.draft)
	} else {
		m.input.SetValue(m.history[next])
	}
	m.input.CursorEnd()
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	lines := []string{titleStyle.Render("Command"), m.input.View()}
	if m.target != "" {
		lines = append(lines, theme.HelpStyle.Render("on: "+m.target))
	}
	if len(m.history) > 0 {
		lines = append(lines, theme.DimmedStyle.Render("↑/↓ recall earlier commands"))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}
