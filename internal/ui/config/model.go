// Package config is the preferences editor. It writes the YAML config
// file; the running app picks the change up through the file watcher.
package config

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasktimer/internal/logging"
	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/theme"
)

// SavedMsg signals the configuration was written to disk.
type SavedMsg struct {
	Config *model.AppConfig
}

// CancelMsg is dispatched when the user leaves without saving.
type CancelMsg struct{}

// SaveFunc persists a configuration.
type SaveFunc func(path string, cfg *model.AppConfig) error

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	showCompleted bool
	confirmWindow string
	tickMs        int
	logLevel      string
}

// Model is the Bubble Tea model for the preferences form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	base   model.AppConfig
	path   string
	save   SaveFunc
	status string
	width  int
	height int
}

// New creates a preferences editor writing to path. save defaults to
// model.SaveConfig.
func New(path string, save SaveFunc, width, height int) Model {
	if save == nil {
		save = model.SaveConfig
	}
	return Model{
		fb:     &formBindings{},
		path:   path,
		save:   save,
		width:  width,
		height: height,
	}
}

// Start fills the form from cfg.
func (m *Model) Start(cfg *model.AppConfig) tea.Cmd {
	m.base = *cfg
	m.status = ""
	m.fb.showCompleted = cfg.Checklist.ShowCompleted
	m.fb.confirmWindow = strconv.Itoa(cfg.Checklist.ConfirmWindowSec)
	m.fb.tickMs = cfg.Timer.TickMs
	m.fb.logLevel = cfg.Log.Level
	m.form = m.buildForm()
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
		cfg := m.result()
		if err := m.save(m.path, cfg); err != nil {
			m.status = fmt.Sprintf("Error saving config: %v", err)
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		return m, func() tea.Msg { return SavedMsg{Config: cfg} }
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

	content := titleStyle.Render("Preferences") + "\n" +
		theme.DimmedStyle.Render(m.path) + "\n\n" + m.form.View()
	if m.status != "" {
		content += "\n" + lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.status)
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	levels := make([]huh.Option[string], 0, len(logging.ValidLevels()))
	for _, l := range logging.ValidLevels() {
		levels = append(levels, huh.NewOption(l, l))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Show completed items").
				Value(&m.fb.showCompleted),
			huh.NewInput().
				Title("Confirmation window (seconds)").
				Description("How long a destructive command waits for a second press.").
				Value(&m.fb.confirmWindow).
				Validate(validatePositive),
			huh.NewSelect[int]().
				Title("Timer refresh").
				Options(
					huh.NewOption("250ms", 250),
					huh.NewOption("500ms", 500),
					huh.NewOption("1s", 1000),
				).
				Value(&m.fb.tickMs),
			huh.NewSelect[string]().
				Title("Log level").
				Options(levels...).
				Value(&m.fb.logLevel),
		),
	).WithWidth(m.formWidth())
}

// result applies the form values to the configuration it started from.
func (m Model) result() *model.AppConfig {
	cfg := m.base
	cfg.Checklist.ShowCompleted = m.fb.showCompleted
	if n, err := strconv.Atoi(strings.TrimSpace(m.fb.confirmWindow)); err == nil {
		cfg.Checklist.ConfirmWindowSec = n
	}
	cfg.Timer.TickMs = m.fb.tickMs
	cfg.Log.Level = m.fb.logLevel
	return &cfg
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a whole number of seconds")
	}
	return nil
}
