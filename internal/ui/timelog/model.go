package timelog

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasktimer/internal/command"
	"github.com/nhle/tasktimer/internal/keys"
	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/theme"
	tl "github.com/nhle/tasktimer/internal/timelog"
	"github.com/nhle/tasktimer/internal/ui"
)

// Source is what the time-log pane reads from the open task.
type Source interface {
	TimeLog() tl.Snapshot
	Live() tl.Live
}

// row is an entry or an archived session.
type row struct {
	entry   *model.TimeLogEntry
	session *model.TimeLogSession
}

func (r row) ids() (entryID, sessionID int64) {
	if r.entry != nil {
		return r.entry.ID, 0
	}
	return 0, r.session.ID
}

type inputMode int

const (
	inputNone inputMode = iota
	inputAddEntry
	inputRenameEntry
	inputRenameSession
)

// Model is the time-log pane of the task view.
type Model struct {
	src   Source
	keys  *keys.KeyMap
	input textinput.Model
	mode  inputMode

	selEntry   int64
	selSession int64
	lastIndex  int

	target row
	width  int
	height int
}

// New creates a time-log pane reading from src.
func New(src Source, k *keys.KeyMap, width, height int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Width = width - 6

	return Model{
		src:    src,
		keys:   k,
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Editing reports whether the inline text input has focus.
func (m Model) Editing() bool { return m.mode != inputNone }

// Selection returns the entry or session under the cursor.
func (m Model) Selection() (entryID, sessionID int64) {
	rows := m.rows(m.src.TimeLog())
	if len(rows) == 0 {
		return 0, 0
	}
	return rows[m.index(rows)].ids()
}

// ResetCursor moves the selection to the first row.
func (m *Model) ResetCursor() {
	m.selEntry, m.selSession, m.lastIndex = 0, 0, 0
	m.mode = inputNone
	m.input.Blur()
}

// Update handles messages for the time-log pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.mode != inputNone {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	if m.mode != inputNone {
		return m.handleInputKeys(keyMsg)
	}
	return m.handleNormalKeys(keyMsg)
}

func (m Model) handleInputKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		mode, target := m.mode, m.target
		m.mode = inputNone
		m.input.Reset()
		m.input.Blur()
		if text == "" {
			return m, nil
		}
		return m, submit(mode, target, text)

	case "esc":
		m.mode = inputNone
		m.input.Reset()
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func submit(mode inputMode, target row, text string) tea.Cmd {
	switch mode {
	case inputAddEntry:
		return ui.Execute(command.Command{Kind: command.KindAddEntry, Text: text})
	case inputRenameEntry:
		return ui.Execute(command.Command{Kind: command.KindRenameEntry, Text: text}.
			WithEntry(target.entry.ID))
	case inputRenameSession:
		return ui.Execute(command.Command{Kind: command.KindRenameSession, Text: text}.
			WithSession(target.session.ID))
	}
	return nil
}

func (m Model) startInput(mode inputMode, target row, prompt, value string) (Model, tea.Cmd) {
	m.mode = mode
	m.target = target
	m.input.Placeholder = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	cmd := m.input.Focus()
	return m, cmd
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.AddItem) {
		return m.startInput(inputAddEntry, row{}, "entry description", "")
	}

	rows := m.rows(m.src.TimeLog())
	if len(rows) == 0 {
		return m, nil
	}
	idx := m.index(rows)
	cur := rows[idx]

	switch {
	case key.Matches(msg, m.keys.Up):
		m.selectIndex(rows, idx-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.selectIndex(rows, idx+1)
		return m, nil

	case key.Matches(msg, m.keys.StartStop), key.Matches(msg, m.keys.Select):
		if cur.entry != nil {
			if cur.entry.IsHeader() {
				return m, nil
			}
			return m, ui.Execute(command.Command{Kind: command.KindStartEntry}.
				WithEntry(cur.entry.ID))
		}
		return m, ui.Execute(command.Command{Kind: command.KindRestoreSession}.
			WithSession(cur.session.ID))

	case key.Matches(msg, m.keys.Edit):
		if cur.entry != nil {
			return m.startInput(inputRenameEntry, cur, "entry description", cur.entry.Description)
		}
		return m.startInput(inputRenameSession, cur, "session title", cur.session.Title)

	case key.Matches(msg, m.keys.Delete):
		if cur.entry != nil {
			return m, ui.Execute(command.Command{Kind: command.KindDeleteEntry}.
				WithEntry(cur.entry.ID))
		}
		return m, ui.Execute(command.Command{Kind: command.KindDeleteSession}.
			WithSession(cur.session.ID))
	}

	return m, nil
}

func (m Model) rows(snap tl.Snapshot) []row {
	rows := make([]row, 0, len(snap.Entries)+len(snap.Sessions))
	for i := range snap.Entries {
		rows = append(rows, row{entry: &snap.Entries[i]})
	}
	for i := range snap.Sessions {
		rows = append(rows, row{session: &snap.Sessions[i]})
	}
	return rows
}

func (m Model) index(rows []row) int {
	for i, r := range rows {
		e, s := r.ids()
		if e == m.selEntry && s == m.selSession {
			return i
		}
	}
	i := m.lastIndex
	if i >= len(rows) {
		i = len(rows) - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (m *Model) selectIndex(rows []row, i int) {
	if i < 0 || i >= len(rows) {
		return
	}
	m.selEntry, m.selSession = rows[i].ids()
	m.lastIndex = i
}

// View renders the time-log pane.
func (m Model) View() string {
	snap := m.src.TimeLog()
	live := m.src.Live()
	rows := m.rows(snap)

	var lines []string
	if len(snap.Entries) == 0 {
		lines = append(lines, theme.DimmedStyle.Render(
			"  Time log is empty. Send items with s, or press a to add an entry."))
	}

	idx := -1
	if len(rows) > 0 {
		idx = m.index(rows)
	}
	for i, r := range rows {
		if r.session != nil && (i == 0 || rows[i-1].entry != nil) {
			lines = append(lines, "", theme.SectionTitleStyle.Render("Sessions"))
		}
		lines = append(lines, m.renderRow(r, snap.TaskID, live, i == idx))
	}

	total := tl.TotalDuration(snap.Entries, snap.TaskID, live)
	lines = append(lines, "", theme.SectionTitleStyle.Render("Total "+ui.FormatDuration(total)))

	content := strings.Join(lines, "\n")
	if m.mode != inputNone {
		content = lipgloss.JoinVertical(lipgloss.Left, content,
			lipgloss.NewStyle().Padding(0, 1).Render(m.input.View()))
	}
	return lipgloss.NewStyle().MaxHeight(m.height).Render(content)
}

func (m Model) renderRow(r row, taskID string, live tl.Live, selected bool) string {
	style := theme.ListItemStyle
	if selected {
		style = theme.SelectedItemStyle
	}

	if r.session != nil {
		s := r.session
		return style.Render(fmt.Sprintf("%s  %s", s.Title, theme.DimmedStyle.Render(
			fmt.Sprintf("%d entries, %s", len(s.Entries), ui.FormatDuration(s.TotalDuration())))))
	}

	e := r.entry
	if e.IsHeader() {
		return style.Render(theme.SectionTitleStyle.Render("── " + e.Description + " ──"))
	}

	running := live.Running && live.TaskID == taskID && live.EntryID == e.ID
	dur := ui.FormatDuration(tl.EntryDuration(*e, taskID, live))
	if running {
		return style.Render(theme.TimerStyle.Render("▶ "+e.Description) + "  " + theme.TimerStyle.Render(dur))
	}
	return style.Render("  " + e.Description + "  " + theme.DimmedStyle.Render(dur))
}

// SetSize updates the pane dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}
