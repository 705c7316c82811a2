package app

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tasktimer/internal/idgen"
	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/notify"
	"github.com/nhle/tasktimer/internal/store"
	"github.com/nhle/tasktimer/internal/timelog"
	"github.com/nhle/tasktimer/internal/timer"
	palette "github.com/nhle/tasktimer/internal/ui/command"
	"github.com/nhle/tasktimer/internal/ui/tasklist"
	"github.com/nhle/tasktimer/internal/workspace"
	"github.com/nhle/tasktimer/tests/testutil"
)

func newTestModel(t *testing.T) (Model, *store.SQLiteStore, *workspace.Workspace) {
	t.Helper()

	st := testutil.NewTestStore(t)
	ids := idgen.New()
	inbox := notify.NewInbox(st, nil)
	svc := timelog.NewService(timer.New(), inbox, ids)
	ws := workspace.New(st, svc, inbox, ids, nil, nil)

	m := New(Deps{Store: st, Workspace: ws, Inbox: inbox})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), st, ws
}

func createTask(t *testing.T, st *store.SQLiteStore, title string) model.Task {
	t.Helper()
	task, err := st.CreateTask(context.Background(), model.Task{Title: title})
	require.NoError(t, err)
	return task
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// runPalette opens the palette with ":" and submits text.
func runPalette(t *testing.T, m Model, text string) Model {
	t.Helper()
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{':'}})
	require.Equal(t, ViewCommand, m.currentView)
	return update(t, m, palette.CommandMsg(text))
}

func TestApp_OpenTaskFromList(t *testing.T) {
	m, st, ws := newTestModel(t)
	task := createTask(t, st, "Release")

	m = update(t, m, tasklist.SelectedTaskMsg{TaskID: task.ID})

	assert.Equal(t, ViewTask, m.currentView)
	require.NotNil(t, ws.Task())
	assert.Equal(t, task.ID, ws.Task().ID)
	assert.Contains(t, m.View(), "Release")
}

func TestApp_PaletteRunsWorkspaceCommands(t *testing.T) {
	m, st, ws := newTestModel(t)
	task := createTask(t, st, "Release")
	m = update(t, m, tasklist.SelectedTaskMsg{TaskID: task.ID})

	m = runPalette(t, m, "bulk-add ### Prep")
	assert.Equal(t, ViewTask, m.currentView)
	require.Len(t, ws.Tree(), 1)
	assert.Equal(t, "Prep", ws.Tree()[0].Title)

	m = runPalette(t, m, "undo")
	assert.Empty(t, ws.Tree())

	runPalette(t, m, "redo")
	assert.Len(t, ws.Tree(), 1)
}

func TestApp_PaletteErrors(t *testing.T) {
	m, st, _ := newTestModel(t)

	m = runPalette(t, m, "undo")
	assert.Equal(t, "Open a task first", m.toast)

	task := createTask(t, st, "Release")
	m = update(t, m, tasklist.SelectedTaskMsg{TaskID: task.ID})

	m = runPalette(t, m, "frobnicate")
	assert.Contains(t, m.toast, "Unknown command")

	m = runPalette(t, m, "add")
	assert.Contains(t, m.toast, "needs an argument")
}

func TestApp_DestructiveCommandNeedsSecondPress(t *testing.T) {
	m, st, ws := newTestModel(t)
	task := createTask(t, st, "Release")
	m = update(t, m, tasklist.SelectedTaskMsg{TaskID: task.ID})

	m = runPalette(t, m, "add-entry draft")
	require.Len(t, ws.TimeLog().Entries, 1)

	m = runPalette(t, m, "wipe-log")
	assert.Len(t, ws.TimeLog().Entries, 1, "first press only arms the confirmation")
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.toast, "Press again")

	m = runPalette(t, m, "wipe-log")
	assert.Empty(t, ws.TimeLog().Entries)
	assert.Nil(t, m.confirm)
}

func TestApp_ConfirmationExpires(t *testing.T) {
	m, st, ws := newTestModel(t)
	task := createTask(t, st, "Release")
	m = update(t, m, tasklist.SelectedTaskMsg{TaskID: task.ID})
	m = runPalette(t, m, "add-entry draft")

	m = runPalette(t, m, "wipe-log")
	require.NotNil(t, m.confirm)
	m = update(t, m, confirmExpiredMsg{seq: m.confirm.seq})
	assert.Nil(t, m.confirm)

	runPalette(t, m, "wipe-log")
	assert.Len(t, ws.TimeLog().Entries, 1)
}

func TestApp_CannotDeleteOpenTask(t *testing.T) {
	m, st, _ := newTestModel(t)
	task := createTask(t, st, "Release")
	m = update(t, m, tasklist.SelectedTaskMsg{TaskID: task.ID})

	m.deleteTaskConfirmed(task)
	assert.Contains(t, m.toast, "Cannot delete the open task")
	assert.Nil(t, m.confirm)

	got, err := st.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}

func TestApp_InboxCountsUnread(t *testing.T) {
	m, st, _ := newTestModel(t)
	ctx := context.Background()
	require.NoError(t, st.CreateNotification(ctx, model.Notification{
		Kind:    model.NotificationItemCompleted,
		Message: "Completed: tag",
	}))

	msg := m.loadInbox()()
	m = update(t, m, msg)
	assert.Equal(t, 1, m.unreadCount)
	require.Len(t, m.notifications, 1)

	m = update(t, m, m.markAllRead()())
	assert.Zero(t, m.unreadCount)
	assert.Empty(t, m.notifications)
}
