package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasktimer/internal/keys"
	"github.com/nhle/tasktimer/internal/theme"
)

// paletteColumns is how many command names are listed per line.
const paletteColumns = 5

// Model is the help overlay view.
type Model struct {
	keys     *keys.KeyMap
	help     help.Model
	commands []string
	width    int
	height   int
}

// New creates a new help view model listing the key bindings and the
// palette command names.
func New(keys *keys.KeyMap, commands []string, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:     keys,
		help:     h,
		commands: commands,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Keyboard Shortcuts")

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	parts := []string{title, helpText}
	if len(m.commands) > 0 {
		parts = append(parts,
			"",
			titleStyle.Render("Palette Commands"),
			theme.HelpStyle.Render(columns(m.commands, paletteColumns)),
			theme.HelpStyle.Render(`send! / send-section! / send-all! also start the timer; "due" takes YYYY-MM-DD`),
		)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// columns lays names out n per line, padded to the longest name.
func columns(names []string, n int) string {
	width := 0
	for _, name := range names {
		if len(name) > width {
			width = len(name)
		}
	}

	var b strings.Builder
	for i, name := range names {
		b.WriteString(name)
		switch {
		case i == len(names)-1:
		case (i+1)%n == 0:
			b.WriteByte('\n')
		default:
			b.WriteString(strings.Repeat(" ", width-len(name)+2))
		}
	}
	return b.String()
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
