// Package bulkadd is the form for pasting a whole checklist at once.
package bulkadd

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasktimer/internal/theme"
)

// SubmitMsg carries the pasted text.
type SubmitMsg struct {
	Text string
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

const placeholder = `### Setup
install deps
configure env
### Ship
tag release`

// Model is the bulk-add form.
type Model struct {
	form   *huh.Form
	text   *string
	width  int
	height int
}

// New creates a bulk-add form model.
func New(width, height int) Model {
	return Model{
		text:   new(string),
		width:  width,
		height: height,
	}
}

// Start resets the form and returns its init command.
func (m *Model) Start() tea.Cmd {
	*m.text = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Checklist").
				Description("A ### line opens a section and --- closes it. Other lines become items.").
				Placeholder(placeholder).
				Lines(12).
				Value(m.text).
				Validate(validateHasSection),
		),
	).WithWidth(m.formWidth())
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		text := *m.text
		return m, func() tea.Msg { return SubmitMsg{Text: text} }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Bulk Add") + "\n" + m.form.View()
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func validateHasSection(s string) error {
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "###") {
			return nil
		}
	}
	return fmt.Errorf("start a section with ###")
}
