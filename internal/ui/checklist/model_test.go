package checklist

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tasktimer/internal/command"
	"github.com/nhle/tasktimer/internal/keys"
	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/settings"
	"github.com/nhle/tasktimer/internal/ui"
)

type fakeSource struct {
	tree []model.ChecklistSection
	view *settings.Checklist
}

func (f *fakeSource) Tree() []model.ChecklistSection { return f.tree }
func (f *fakeSource) Settings() *settings.Checklist { return f.view }
func (f *fakeSource) ItemDuration(itemID int64) int64 { return 90_000 }

func newSource() *fakeSource {
	return &fakeSource{
		tree: []model.ChecklistSection{
			{ID: 1, Title: "Setup", Items: []model.ChecklistItem{
				{ID: 10, Text: "install", LoggedTime: model.Int64Ptr(0)},
				{ID: 11, Text: "configure", IsCompleted: true, Note: model.StringPtr("")},
			}},
			{ID: 2, Title: "Ship", Items: []model.ChecklistItem{
				{ID: 20, Text: "release"},
			}},
		},
		view: settings.NewChecklist(),
	}
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func executed(t *testing.T, cmd tea.Cmd) command.Command {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	msg, ok := cmd().(ui.ExecuteMsg)
	if !ok {
		t.Fatalf("expected ExecuteMsg, got %T", cmd())
	}
	return msg.Command
}

func TestModel_NavigationAndToggle(t *testing.T) {
	src := newSource()
	m := New(src, keys.DefaultKeyMap(), 80, 24)

	if s, i := m.Selection(); s != 1 || i != 0 {
		t.Fatalf("initial Selection() = (%d, %d), want (1, 0)", s, i)
	}

	m, _ = m.Update(runeKey("j"))
	if s, i := m.Selection(); s != 1 || i != 10 {
		t.Fatalf("Selection() after j = (%d, %d), want (1, 10)", s, i)
	}

	_, cmd := m.Update(runeKey(" "))
	got := executed(t, cmd)
	if got.Kind != command.KindToggleItem || got.SectionID != 1 || got.ItemID != 10 {
		t.Errorf("toggle produced %+v", got)
	}

	_, cmd = m.Update(runeKey("S"))
	got = executed(t, cmd)
	if got.Kind != command.KindSendItem || !got.Start || got.ItemID != 10 {
		t.Errorf("send-and-start produced %+v", got)
	}
}

func TestModel_SectionActions(t *testing.T) {
	src := newSource()
	m := New(src, keys.DefaultKeyMap(), 80, 24)

	tests := []struct {
		key  string
		want command.Kind
	}{
		{" ", command.KindToggleSectionOpen},
		{"d", command.KindDeleteSection},
		{"J", command.KindMoveSectionDown},
		{"s", command.KindSendSection},
		{"A", command.KindAddSection},
		{"u", command.KindUndo},
	}
	for _, tt := range tests {
		_, cmd := m.Update(runeKey(tt.key))
		got := executed(t, cmd)
		if got.Kind != tt.want {
			t.Errorf("key %q: Kind = %v, want %v", tt.key, got.Kind, tt.want)
		}
	}
}

func TestModel_AddItemInput(t *testing.T) {
	src := newSource()
	m := New(src, keys.DefaultKeyMap(), 80, 24)

	m, _ = m.Update(runeKey("a"))
	if !m.Editing() {
		t.Fatal("expected input mode after a")
	}
	m, _ = m.Update(runeKey("write docs"))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.Editing() {
		t.Error("input mode not closed after enter")
	}
	got := executed(t, cmd)
	if got.Kind != command.KindAddItems || got.SectionID != 1 || got.Text != "write docs" {
		t.Errorf("add item produced %+v", got)
	}
}

func TestModel_SelectionFollowsRemovedRow(t *testing.T) {
	src := newSource()
	m := New(src, keys.DefaultKeyMap(), 80, 24)

	m, _ = m.Update(runeKey("j"))
	m, _ = m.Update(runeKey("j"))
	if _, i := m.Selection(); i != 11 {
		t.Fatalf("Selection() item = %d, want 11", i)
	}

	src.view.ToggleShowCompleted()
	if s, i := m.Selection(); s != 2 || i != 0 {
		t.Errorf("Selection() after hiding completed = (%d, %d), want (2, 0)", s, i)
	}
}

func TestModel_View(t *testing.T) {
	src := newSource()
	m := New(src, keys.DefaultKeyMap(), 80, 24)

	out := m.View()
	for _, want := range []string{"Setup", "install", "1:30", "note:", "release"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	src.view.Hide(2)
	out = m.View()
	if strings.Contains(out, "release") {
		t.Error("hidden section still rendered")
	}
	if !strings.Contains(out, "1 hidden section") {
		t.Error("hidden count not rendered")
	}

	empty := New(&fakeSource{view: settings.NewChecklist()}, keys.DefaultKeyMap(), 80, 24)
	if !strings.Contains(empty.View(), "No checklist yet") {
		t.Error("empty state not rendered")
	}
}
