package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tasktimer/internal/command"
	"github.com/nhle/tasktimer/internal/idgen"
	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/notify"
	"github.com/nhle/tasktimer/internal/store"
	"github.com/nhle/tasktimer/internal/timelog"
	"github.com/nhle/tasktimer/internal/timer"
	"github.com/nhle/tasktimer/tests/testutil"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	clk   *fakeClock
	store *store.SQLiteStore
	timer *timer.Timer
	svc   *timelog.Service
	rec   *notify.Recorder
	ws    *Workspace
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	tm := timer.NewWithClock(clk.now)
	rec := &notify.Recorder{}
	ids := idgen.NewWithClock(clk.now)
	svc := timelog.NewService(tm, rec, ids, timelog.WithClock(clk.now))
	st := testutil.NewTestStore(t)

	return &fixture{
		clk:   clk,
		store: st,
		timer: tm,
		svc:   svc,
		rec:   rec,
		ws:    New(st, svc, rec, ids, nil, nil),
	}
}

func (f *fixture) newTask(t *testing.T, title string) string {
	t.Helper()
	task, err := f.store.CreateTask(context.Background(), model.Task{Title: title})
	require.NoError(t, err)
	return task.ID
}

func (f *fixture) exec(t *testing.T, cmd command.Command) bool {
	t.Helper()
	changed, err := f.ws.Execute(context.Background(), cmd)
	require.NoError(t, err)
	return changed
}

// seed opens a new task with one section holding the given items.
func (f *fixture) seed(t *testing.T, title string, items string) (taskID string, sectionID int64) {
	t.Helper()
	taskID = f.newTask(t, title)
	require.NoError(t, f.ws.Open(context.Background(), taskID))
	require.True(t, f.exec(t, command.Command{Kind: command.KindAddSection}))
	sectionID = f.ws.Tree()[0].ID
	require.True(t, f.exec(t, command.Command{Kind: command.KindAddItems, Text: items}.WithSection(sectionID)))
	return taskID, sectionID
}

func TestWorkspace_RequiresOpenTask(t *testing.T) {
	f := newFixture(t)
	_, err := f.ws.Execute(context.Background(), command.Command{Kind: command.KindUndo})
	assert.ErrorIs(t, err, ErrNoTask)

	err = f.ws.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWorkspace_UnknownKind(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ws.Open(context.Background(), f.newTask(t, "t")))

	_, err := f.ws.Execute(context.Background(), command.Command{Kind: command.KindInvalid})
	assert.ErrorIs(t, err, command.ErrUnknownCommand)
}

func TestWorkspace_ChecklistScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	taskID := f.newTask(t, "groceries")
	require.NoError(t, f.ws.Open(ctx, taskID))
	assert.Empty(t, f.ws.Tree())

	require.True(t, f.exec(t, command.Command{Kind: command.KindAddSection}))
	s1 := f.ws.Tree()[0]
	assert.Equal(t, "New Section", s1.Title)

	require.True(t, f.exec(t, command.Command{Kind: command.KindAddItems, Text: "Buy milk\nCall bank"}.WithSection(s1.ID)))
	items := f.ws.Tree()[0].Items
	require.Len(t, items, 2)

	require.True(t, f.exec(t, command.Command{Kind: command.KindToggleItem}.WithItem(s1.ID, items[0].ID)))
	require.Len(t, f.rec.Items, 1)
	assert.Equal(t, "Buy milk", f.rec.Items[0].Item.Text)
	assert.Equal(t, s1.ID, f.rec.Items[0].SectionID)
	assert.Empty(t, f.rec.Sections)
	assert.True(t, f.ws.Tree()[0].Items[0].IsCompleted)

	require.True(t, f.exec(t, command.Command{Kind: command.KindUndo}))
	assert.False(t, f.ws.Tree()[0].Items[0].IsCompleted)
	require.True(t, f.exec(t, command.Command{Kind: command.KindUndo}))
	assert.Empty(t, f.ws.Tree()[0].Items)

	require.True(t, f.exec(t, command.Command{Kind: command.KindRedo}))
	require.True(t, f.exec(t, command.Command{Kind: command.KindRedo}))
	assert.Len(t, f.ws.Tree()[0].Items, 2)
	assert.True(t, f.ws.Tree()[0].Items[0].IsCompleted)
	assert.False(t, f.ws.CanRedo())
	assert.Len(t, f.rec.Items, 1, "replaying a toggle must not fire another completion")

	state, err := f.store.LoadTaskState(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, f.ws.Tree(), state.Checklist)
}

func TestWorkspace_SectionCompletedEvent(t *testing.T) {
	f := newFixture(t)
	_, sec := f.seed(t, "t", "only")
	item := f.ws.Tree()[0].Items[0]

	f.exec(t, command.Command{Kind: command.KindToggleItem}.WithItem(sec, item.ID))
	require.Len(t, f.rec.Sections, 1)
	assert.Equal(t, sec, f.rec.Sections[0].SectionID)

	// Unchecking fires nothing; re-checking fires exactly one more.
	f.exec(t, command.Command{Kind: command.KindToggleItem}.WithItem(sec, item.ID))
	assert.Len(t, f.rec.Items, 1)
	f.exec(t, command.Command{Kind: command.KindToggleItem}.WithItem(sec, item.ID))
	assert.Len(t, f.rec.Items, 2)
}

func TestWorkspace_NoOpsDoNotSave(t *testing.T) {
	f := newFixture(t)
	_, sec := f.seed(t, "t", "a")

	assert.False(t, f.exec(t, command.Command{Kind: command.KindMoveSectionUp}.WithSection(sec)))
	assert.False(t, f.exec(t, command.Command{Kind: command.KindRedo}))
	assert.False(t, f.exec(t, command.Command{Kind: command.KindToggleShowCompleted}))
	assert.False(t, f.ws.Settings().ShowCompleted)
}

func TestWorkspace_SendItemAndStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	taskID, sec := f.seed(t, "t", "write tests")
	item := f.ws.Tree()[0].Items[0]
	assert.Nil(t, item.LoggedTime)

	require.True(t, f.exec(t, command.Command{Kind: command.KindSendItem, Start: true}.WithItem(sec, item.ID)))

	item = f.ws.Tree()[0].Items[0]
	require.NotNil(t, item.LoggedTime, "sending marks the item as timed")
	assert.Zero(t, *item.LoggedTime)

	entries := f.ws.TimeLog().Entries
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsRunning)
	assert.True(t, entries[0].LinkedTo(item.ID))

	f.clk.advance(90 * time.Second)
	assert.Equal(t, int64(90_000), f.ws.ItemDuration(item.ID))

	require.True(t, f.exec(t, command.Command{Kind: command.KindStopTimer}))
	state, err := f.store.LoadTaskState(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, state.TimeLog, 1)
	assert.False(t, state.TimeLog[0].IsRunning)
	assert.Equal(t, int64(90_000), state.TimeLog[0].Duration)
}

func TestWorkspace_UndoAfterSendKeepsTrackedTime(t *testing.T) {
	f := newFixture(t)
	_, sec := f.seed(t, "t", "a\nb")
	items := f.ws.Tree()[0].Items
	a, b := items[0], items[1]

	require.True(t, f.exec(t, command.Command{Kind: command.KindToggleItem}.WithItem(sec, b.ID)))
	require.True(t, f.exec(t, command.Command{Kind: command.KindSendItem, Start: true}.WithItem(sec, a.ID)))
	f.clk.advance(60 * time.Second)
	require.True(t, f.exec(t, command.Command{Kind: command.KindStopTimer}))

	require.True(t, f.exec(t, command.Command{Kind: command.KindUndo}))

	items = f.ws.Tree()[0].Items
	assert.False(t, items[1].IsCompleted, "undo reverts the toggle")
	require.NotNil(t, items[0].LoggedTime, "undo keeps the item timed")
	assert.Len(t, f.ws.TimeLog().Entries, 1)
	assert.Equal(t, int64(60_000), f.ws.ItemDuration(a.ID))

	require.True(t, f.exec(t, command.Command{Kind: command.KindRedo}))
	assert.True(t, f.ws.Tree()[0].Items[1].IsCompleted)
	assert.NotNil(t, f.ws.Tree()[0].Items[0].LoggedTime)
}

func TestWorkspace_SendCompletedSectionShowsMessage(t *testing.T) {
	f := newFixture(t)
	_, sec := f.seed(t, "t", "done")
	item := f.ws.Tree()[0].Items[0]
	f.exec(t, command.Command{Kind: command.KindToggleItem}.WithItem(sec, item.ID))

	assert.False(t, f.exec(t, command.Command{Kind: command.KindSendSection}.WithSection(sec)))
	assert.False(t, f.exec(t, command.Command{Kind: command.KindSendAll}))
	assert.Len(t, f.rec.Messages, 2)
	assert.Empty(t, f.ws.TimeLog().Entries)
}

func TestWorkspace_StartInOtherTaskPersistsStoppedEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	taskA, secA := f.seed(t, "A", "a1")
	itemA := f.ws.Tree()[0].Items[0]
	f.exec(t, command.Command{Kind: command.KindSendItem, Start: true}.WithItem(secA, itemA.ID))
	f.clk.advance(5 * time.Second)

	_, secB := f.seed(t, "B", "b1")
	assert.True(t, f.svc.Loaded(taskA), "running task stays loaded after switching away")

	itemB := f.ws.Tree()[0].Items[0]
	f.exec(t, command.Command{Kind: command.KindSendItem, Start: true}.WithItem(secB, itemB.ID))

	state, err := f.store.LoadTaskState(ctx, taskA)
	require.NoError(t, err)
	require.Len(t, state.TimeLog, 1)
	assert.False(t, state.TimeLog[0].IsRunning)
	assert.Equal(t, int64(5_000), state.TimeLog[0].Duration)
	assert.Len(t, state.Checklist, 1, "background save keeps the checklist")
	assert.False(t, f.svc.Loaded(taskA))
}

func TestWorkspace_WipeLogResetsHistory(t *testing.T) {
	f := newFixture(t)
	_, sec := f.seed(t, "t", "x")
	item := f.ws.Tree()[0].Items[0]
	f.exec(t, command.Command{Kind: command.KindSendItem}.WithItem(sec, item.ID))
	require.True(t, f.ws.CanUndo())

	require.True(t, f.exec(t, command.Command{Kind: command.KindWipeLog}))
	assert.Empty(t, f.ws.TimeLog().Entries)
	assert.False(t, f.ws.CanUndo())
	assert.Len(t, f.ws.Tree()[0].Items, 1, "wiping the log keeps the checklist")
}

func TestWorkspace_OpenResetsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	taskID, _ := f.seed(t, "t", "x")
	require.True(t, f.ws.CanUndo())

	require.NoError(t, f.ws.Open(ctx, f.newTask(t, "other")))
	require.NoError(t, f.ws.Open(ctx, taskID))
	assert.False(t, f.ws.CanUndo())
	assert.Len(t, f.ws.Tree(), 1)
}

func TestWorkspace_ItemFields(t *testing.T) {
	f := newFixture(t)
	_, sec := f.seed(t, "t", "x")
	id := f.ws.Tree()[0].Items[0].ID

	f.exec(t, command.Command{Kind: command.KindSetNote}.WithItem(sec, id))
	item := f.ws.Tree()[0].Items[0]
	require.NotNil(t, item.Note)
	assert.Equal(t, "", *item.Note, "an added note starts empty")

	f.exec(t, command.Command{Kind: command.KindSetHighlight, Text: "yellow"}.WithItem(sec, id))
	f.exec(t, command.Command{Kind: command.KindSetDueDate, Due: 1_700_000_000_000}.WithItem(sec, id))
	item = f.ws.Tree()[0].Items[0]
	assert.Equal(t, "yellow", *item.HighlightColor)
	assert.Equal(t, int64(1_700_000_000_000), *item.DueDate)

	f.exec(t, command.Command{Kind: command.KindClearNote}.WithItem(sec, id))
	f.exec(t, command.Command{Kind: command.KindSetHighlight, Text: "none"}.WithItem(sec, id))
	item = f.ws.Tree()[0].Items[0]
	assert.Nil(t, item.Note)
	assert.Nil(t, item.HighlightColor)
}

func TestWorkspace_Sessions(t *testing.T) {
	f := newFixture(t)
	_, sec := f.seed(t, "t", "x\ny")
	f.exec(t, command.Command{Kind: command.KindSendSection}.WithSection(sec))
	require.Len(t, f.ws.TimeLog().Entries, 3)

	require.True(t, f.exec(t, command.Command{Kind: command.KindArchiveSession, Text: "Day 1"}))
	snap := f.ws.TimeLog()
	assert.Empty(t, snap.Entries)
	require.Len(t, snap.Sessions, 1)
	assert.Equal(t, "Day 1", snap.Sessions[0].Title)

	sessID := snap.Sessions[0].ID
	require.True(t, f.exec(t, command.Command{Kind: command.KindRestoreSession}.WithSession(sessID)))
	assert.Len(t, f.ws.TimeLog().Entries, 3)
	require.True(t, f.exec(t, command.Command{Kind: command.KindDeleteSession}.WithSession(sessID)))
	assert.Empty(t, f.ws.TimeLog().Sessions)
}

func TestWorkspace_RefreshTaskKeepsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	assert.ErrorIs(t, f.ws.RefreshTask(ctx), ErrNoTask)

	taskID, _ := f.seed(t, "old", "x")
	task, err := f.store.GetTask(ctx, taskID)
	require.NoError(t, err)
	task.Title = "new"
	require.NoError(t, f.store.UpdateTask(ctx, *task))

	require.NoError(t, f.ws.RefreshTask(ctx))
	assert.Equal(t, "new", f.ws.Task().Title)
	assert.True(t, f.ws.CanUndo())
}
