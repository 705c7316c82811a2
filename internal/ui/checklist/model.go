package checklist

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasktimer/internal/command"
	"github.com/nhle/tasktimer/internal/keys"
	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/settings"
	"github.com/nhle/tasktimer/internal/theme"
	"github.com/nhle/tasktimer/internal/ui"
)

// Source is what the checklist view reads from the open task.
type Source interface {
	Tree() []model.ChecklistSection
	Settings() *settings.Checklist
	ItemDuration(itemID int64) int64
}

// row is one selectable line: a section heading or an item.
type row struct {
	section model.ChecklistSection
	item    *model.ChecklistItem
}

func (r row) isItem() bool { return r.item != nil }

func (r row) itemID() int64 {
	if r.item == nil {
		return 0
	}
	return r.item.ID
}

type inputMode int

const (
	inputNone inputMode = iota
	inputAddItem
	inputEditItem
	inputRenameSection
)

// Model is the checklist pane of the task view.
type Model struct {
	src   Source
	keys  *keys.KeyMap
	input textinput.Model
	mode  inputMode

	// The selection is tracked by id so it survives edits that reorder or
	// remove rows; lastIndex is the fallback when the row disappears.
	selSection int64
	selItem    int64
	lastIndex  int

	target row
	now    func() time.Time
	width  int
	height int
}

// New creates a checklist pane reading from src.
func New(src Source, k *keys.KeyMap, width, height int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Width = width - 6

	return Model{
		src:    src,
		keys:   k,
		input:  ti,
		now:    time.Now,
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

// Selection returns the section and item under the cursor. itemID is 0
// when a section heading is selected; both are 0 for an empty checklist.
func (m Model) Selection() (sectionID, itemID int64) {
	rows := m.rows()
	if len(rows) == 0 {
		return 0, 0
	}
	r := rows[m.index(rows)]
	return r.section.ID, r.itemID()
}

// ResetCursor moves the selection to the first row.
func (m *Model) ResetCursor() {
	m.selSection, m.selItem, m.lastIndex = 0, 0, 0
	m.mode = inputNone
	m.input.Blur()
}

// Update handles messages for the checklist pane.
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
		return m, m.submit(mode, target, text)

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

func (m Model) submit(mode inputMode, target row, text string) tea.Cmd {
	switch mode {
	case inputAddItem:
		return ui.Execute(command.Command{Kind: command.KindAddItems, Text: text}.
			WithSection(target.section.ID))
	case inputEditItem:
		return ui.Execute(command.Command{Kind: command.KindEditItem, Text: text}.
			WithItem(target.section.ID, target.itemID()))
	case inputRenameSection:
		return ui.Execute(command.Command{Kind: command.KindRenameSection, Text: text}.
			WithSection(target.section.ID))
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
	rows := m.rows()

	switch {
	case key.Matches(msg, m.keys.AddSection):
		return m, ui.Execute(command.Command{Kind: command.KindAddSection})
	case key.Matches(msg, m.keys.BulkAdd):
		return m, func() tea.Msg { return ui.BulkAddRequestMsg{} }
	case key.Matches(msg, m.keys.Undo):
		return m, ui.Execute(command.Command{Kind: command.KindUndo})
	case key.Matches(msg, m.keys.Redo):
		return m, ui.Execute(command.Command{Kind: command.KindRedo})
	case key.Matches(msg, m.keys.ShowCompleted):
		return m, ui.Execute(command.Command{Kind: command.KindToggleShowCompleted})
	}

	if len(rows) == 0 {
		if key.Matches(msg, m.keys.AddItem) {
			return m, ui.Execute(command.Command{Kind: command.KindAddSection})
		}
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

	case key.Matches(msg, m.keys.Toggle):
		if cur.isItem() {
			return m, ui.Execute(command.Command{Kind: command.KindToggleItem}.
				WithItem(cur.section.ID, cur.itemID()))
		}
		return m, ui.Execute(command.Command{Kind: command.KindToggleSectionOpen}.
			WithSection(cur.section.ID))

	case key.Matches(msg, m.keys.Fold):
		m.selSection, m.selItem = cur.section.ID, 0
		return m, ui.Execute(command.Command{Kind: command.KindToggleSectionOpen}.
			WithSection(cur.section.ID))

	case key.Matches(msg, m.keys.AddItem):
		return m.startInput(inputAddItem, cur, "new item", "")

	case key.Matches(msg, m.keys.Edit):
		if cur.isItem() {
			return m.startInput(inputEditItem, cur, "item text", cur.item.Text)
		}
		return m.startInput(inputRenameSection, cur, "section title", cur.section.Title)

	case key.Matches(msg, m.keys.Delete):
		if cur.isItem() {
			return m, ui.Execute(command.Command{Kind: command.KindDeleteItem}.
				WithItem(cur.section.ID, cur.itemID()))
		}
		return m, ui.Execute(command.Command{Kind: command.KindDeleteSection}.
			WithSection(cur.section.ID))

	case key.Matches(msg, m.keys.MoveUp):
		if cur.isItem() {
			return m, ui.Execute(command.Command{Kind: command.KindMoveItemUp}.
				WithItem(cur.section.ID, cur.itemID()))
		}
		return m, ui.Execute(command.Command{Kind: command.KindMoveSectionUp}.
			WithSection(cur.section.ID))

	case key.Matches(msg, m.keys.MoveDown):
		if cur.isItem() {
			return m, ui.Execute(command.Command{Kind: command.KindMoveItemDown}.
				WithItem(cur.section.ID, cur.itemID()))
		}
		return m, ui.Execute(command.Command{Kind: command.KindMoveSectionDown}.
			WithSection(cur.section.ID))

	case key.Matches(msg, m.keys.Send), key.Matches(msg, m.keys.SendStart):
		start := key.Matches(msg, m.keys.SendStart)
		if cur.isItem() {
			return m, ui.Execute(command.Command{Kind: command.KindSendItem, Start: start}.
				WithItem(cur.section.ID, cur.itemID()))
		}
		return m, ui.Execute(command.Command{Kind: command.KindSendSection, Start: start}.
			WithSection(cur.section.ID))
	}

	return m, nil
}

// rows flattens the visible tree into selectable lines.
func (m Model) rows() []row {
	view := m.src.Settings()
	var rows []row
	for _, s := range view.VisibleSections(m.src.Tree()) {
		rows = append(rows, row{section: s})
		items := view.VisibleItems(s)
		for i := range items {
			rows = append(rows, row{section: s, item: &items[i]})
		}
	}
	return rows
}

// index finds the selected row, falling back to the last known position.
func (m Model) index(rows []row) int {
	for i, r := range rows {
		if r.section.ID == m.selSection && r.itemID() == m.selItem {
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
	m.selSection = rows[i].section.ID
	m.selItem = rows[i].itemID()
	m.lastIndex = i
}

// View renders the checklist pane.
func (m Model) View() string {
	rows := m.rows()
	view := m.src.Settings()

	if len(m.src.Tree()) == 0 {
		empty := lipgloss.NewStyle().
			Width(m.width).
			Foreground(theme.ColorGray).
			Padding(1, 2).
			Render("No checklist yet.\n\nPress A to add a section or b to paste a list.")
		return lipgloss.JoinVertical(lipgloss.Left, empty, m.inputView())
	}

	var lines []string
	selLine := 0
	if len(rows) > 0 {
		idx := m.index(rows)
		for i, r := range rows {
			if i == idx {
				selLine = len(lines)
			}
			lines = append(lines, m.renderRow(r, view, i == idx)...)
		}
	}

	if n := view.HiddenCount(); n > 0 {
		lines = append(lines, theme.DimmedStyle.Render(
			fmt.Sprintf("  %d hidden section(s), :show-all to restore", n)))
	}

	body := window(lines, selLine, m.height-2)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.inputView())
}

func (m Model) inputView() string {
	if m.mode == inputNone {
		return ""
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(m.input.View())
}

func (m Model) renderRow(r row, view *settings.Checklist, selected bool) []string {
	style := theme.ListItemStyle
	if selected {
		style = theme.SelectedItemStyle
	}

	if !r.isItem() {
		arrow := "▾"
		if !view.IsOpen(r.section.ID) {
			arrow = "▸"
		}
		line := fmt.Sprintf("%s %s  %s", arrow,
			theme.SectionTitleStyle.Render(r.section.Title),
			theme.DimmedStyle.Render(fmt.Sprintf("%d/%d",
				r.section.CompletedCount(), len(r.section.Items))))
		return []string{style.Render(line)}
	}

	it := r.item
	box := "[ ]"
	text := it.Text
	if it.IsCompleted {
		box = "[x]"
		text = theme.DoneStyle.Render(text)
	} else if it.HighlightColor != nil {
		text = theme.HighlightStyle(*it.HighlightColor).Render(text)
	}

	parts := []string{"  " + box, text}
	if it.DueDate != nil {
		label, overdue := ui.FormatDue(*it.DueDate, m.now())
		if overdue && !it.IsCompleted {
			parts = append(parts, theme.OverdueStyle.Render(label))
		} else {
			parts = append(parts, theme.DueDateStyle.Render(label))
		}
	}
	if it.LoggedTime != nil {
		parts = append(parts, theme.TimerStyle.Render(ui.FormatDuration(m.src.ItemDuration(it.ID))))
	}

	lines := []string{style.Render(strings.Join(parts, " "))}
	if it.Note != nil {
		lines = append(lines, theme.NoteStyle.Render("note: "+*it.Note))
	}
	if it.Response != nil {
		lines = append(lines, theme.NoteStyle.Render("response: "+*it.Response))
	}
	return lines
}

// window keeps the selected line visible within height lines.
func window(lines []string, sel, height int) string {
	if height <= 0 || len(lines) <= height {
		return strings.Join(lines, "\n")
	}
	start := 0
	if sel >= height {
		start = sel - height + 1
	}
	end := start + height
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

// SetSize updates the pane dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}
