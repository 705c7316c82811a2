// Package workspace is the façade the UI talks to for the open task. It
// owns the task's checklist editor, drives the shared time-log service and
// saves after every change.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nhle/tasktimer/internal/checklist"
	"github.com/nhle/tasktimer/internal/command"
	"github.com/nhle/tasktimer/internal/idgen"
	"github.com/nhle/tasktimer/internal/logging"
	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/notify"
	"github.com/nhle/tasktimer/internal/settings"
	"github.com/nhle/tasktimer/internal/timelog"
)

// ErrNoTask is returned by operations that need an open task.
var ErrNoTask = errors.New("no task open")

// Store is the persistence the workspace needs.
type Store interface {
	GetTask(ctx context.Context, id string) (*model.Task, error)
	LoadTaskState(ctx context.Context, taskID string) (model.TaskState, error)
	SaveTaskState(ctx context.Context, taskID string, state model.TaskState) error
}

// IDSource hands out ids and can be moved past ids loaded from storage.
type IDSource interface {
	idgen.Source
	Observe(id int64)
}

// Workspace holds the open task. Methods are meant to be called from the
// UI's update loop.
type Workspace struct {
	store    Store
	timelog  *timelog.Service
	notifier notify.Notifier
	ids      IDSource
	settings *settings.Checklist
	log      *logging.Logger

	task   *model.Task
	editor *checklist.Editor

	// pending collects tasks whose time log changed through the shared
	// timer (for example a stop caused by starting an entry elsewhere).
	pendingMu sync.Mutex
	pending   map[string]bool
}

// New returns a Workspace with no task open.
func New(
	s Store,
	svc *timelog.Service,
	n notify.Notifier,
	ids IDSource,
	view *settings.Checklist,
	log *logging.Logger,
) *Workspace {
	if log == nil {
		log = logging.NopLogger()
	}
	if view == nil {
		view = settings.NewChecklist()
	}
	w := &Workspace{
		store:    s,
		timelog:  svc,
		notifier: n,
		ids:      ids,
		settings: view,
		log:      log.WithComponent("workspace"),
		pending:  make(map[string]bool),
	}
	svc.Subscribe(w.markPending)
	return w
}

func (w *Workspace) markPending(snap timelog.Snapshot) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.pending[snap.TaskID] = true
}

func (w *Workspace) takePending() []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	ids := make([]string, 0, len(w.pending))
	for id := range w.pending {
		ids = append(ids, id)
	}
	w.pending = make(map[string]bool)
	return ids
}

// Open loads a task and makes it current. The checklist history always
// starts fresh at the loaded tree. The previous task's time log stays
// loaded only while the timer is running one of its entries.
func (w *Workspace) Open(ctx context.Context, taskID string) error {
	task, err := w.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("opening task %s: %w", taskID, err)
	}
	state, err := w.store.LoadTaskState(ctx, taskID)
	if err != nil {
		return fmt.Errorf("loading state for task %s: %w", taskID, err)
	}

	if err := w.flush(ctx); err != nil {
		return err
	}
	if w.task != nil && w.task.ID != taskID {
		w.unloadIdle(w.task.ID)
		w.settings.Reset()
	}

	w.ids.Observe(checklist.MaxID(state.Checklist))
	w.timelog.Load(taskID, state.TimeLog, state.Sessions)
	w.task = task
	w.editor = checklist.NewEditor(state.Checklist, w.ids, w.log)
	w.editor.OnReplay(w.replayed)

	// Load may have folded a stale running entry; persist that now.
	if err := w.save(ctx); err != nil {
		return err
	}

	w.log.Info("task opened", "task_id", taskID,
		"sections", len(state.Checklist), "entries", len(state.TimeLog))
	return nil
}

// Close stops the timer and saves every affected task.
func (w *Workspace) Close(ctx context.Context) error {
	if !w.timelog.StopTimer() {
		return nil
	}
	if err := w.save(ctx); err != nil {
		return err
	}
	return w.flush(ctx)
}

// RefreshTask re-reads the open task's row, for example after its title
// was edited. The checklist and its history are untouched.
func (w *Workspace) RefreshTask(ctx context.Context) error {
	if w.task == nil {
		return ErrNoTask
	}
	task, err := w.store.GetTask(ctx, w.task.ID)
	if err != nil {
		return fmt.Errorf("refreshing task %s: %w", w.task.ID, err)
	}
	w.task = task
	return nil
}

// Task returns the open task, or nil.
func (w *Workspace) Task() *model.Task { return w.task }

// Settings returns the checklist view settings.
func (w *Workspace) Settings() *settings.Checklist { return w.settings }

// Tree returns the current checklist tree.
func (w *Workspace) Tree() []model.ChecklistSection {
	if w.editor == nil {
		return nil
	}
	return w.editor.Tree()
}

// TimeLog returns the open task's entries and sessions.
func (w *Workspace) TimeLog() timelog.Snapshot {
	if w.task == nil {
		return timelog.Snapshot{}
	}
	return w.timelog.Snapshot(w.task.ID)
}

// ItemDuration returns the duration to display next to an item.
func (w *Workspace) ItemDuration(itemID int64) int64 {
	if w.task == nil {
		return 0
	}
	return w.timelog.ItemDuration(w.task.ID, itemID)
}

// Live samples the active timer.
func (w *Workspace) Live() timelog.Live { return w.timelog.Live() }

// CanUndo reports whether there is a checklist change to undo.
func (w *Workspace) CanUndo() bool { return w.editor != nil && w.editor.History().CanUndo() }

// CanRedo reports whether there is a checklist change to redo.
func (w *Workspace) CanRedo() bool { return w.editor != nil && w.editor.History().CanRedo() }

// Execute runs cmd against the open task and saves if anything changed.
// It reports whether the command changed state.
func (w *Workspace) Execute(ctx context.Context, cmd command.Command) (bool, error) {
	if w.task == nil || w.editor == nil {
		return false, ErrNoTask
	}

	changed, err := w.dispatch(cmd)
	if err != nil {
		return false, err
	}

	w.log.Debug("command executed", "task_id", w.task.ID, "command", cmd.Kind.String(), "changed", changed)
	if !changed {
		return false, nil
	}
	if err := w.save(ctx); err != nil {
		return true, err
	}
	return true, w.flush(ctx)
}

func (w *Workspace) dispatch(cmd command.Command) (bool, error) {
	taskID := w.task.ID
	ed := w.editor

	switch cmd.Kind {
	case command.KindAddSection:
		return ed.AddSection() != 0, nil
	case command.KindDeleteSection:
		return ed.DeleteSection(cmd.SectionID), nil
	case command.KindDuplicateSection:
		return ed.DuplicateSection(cmd.SectionID), nil
	case command.KindMoveSectionUp:
		return ed.MoveSection(cmd.SectionID, checklist.Up), nil
	case command.KindMoveSectionDown:
		return ed.MoveSection(cmd.SectionID, checklist.Down), nil
	case command.KindRenameSection:
		return ed.RenameSection(cmd.SectionID, cmd.Text), nil
	case command.KindBulkAdd:
		added := ed.BulkAdd(cmd.Text)
		if len(added) == 0 {
			w.notifier.Message(taskID, "Nothing to add: start a section with ###")
		}
		return len(added) > 0, nil

	case command.KindAddItems:
		return ed.AddItems(cmd.SectionID, cmd.Text), nil
	case command.KindToggleItem:
		return w.toggle(cmd.SectionID, cmd.ItemID), nil
	case command.KindDeleteItem:
		return ed.DeleteItem(cmd.SectionID, cmd.ItemID), nil
	case command.KindDeleteChecked:
		if cmd.AllSections {
			return ed.DeleteChecked(nil), nil
		}
		sectionID := cmd.SectionID
		return ed.DeleteChecked(&sectionID), nil
	case command.KindMoveItemUp:
		return ed.MoveItem(cmd.SectionID, cmd.ItemID, checklist.Up), nil
	case command.KindMoveItemDown:
		return ed.MoveItem(cmd.SectionID, cmd.ItemID, checklist.Down), nil
	case command.KindEditItem:
		return ed.EditItemText(cmd.SectionID, cmd.ItemID, cmd.Text), nil
	case command.KindSetNote:
		return ed.SetNote(cmd.SectionID, cmd.ItemID, model.StringPtr(cmd.Text)), nil
	case command.KindClearNote:
		return ed.SetNote(cmd.SectionID, cmd.ItemID, nil), nil
	case command.KindSetResponse:
		return ed.SetResponse(cmd.SectionID, cmd.ItemID, model.StringPtr(cmd.Text)), nil
	case command.KindClearResponse:
		return ed.SetResponse(cmd.SectionID, cmd.ItemID, nil), nil
	case command.KindSetDueDate:
		return ed.SetDueDate(cmd.SectionID, cmd.ItemID, model.Int64Ptr(cmd.Due)), nil
	case command.KindClearDueDate:
		return ed.SetDueDate(cmd.SectionID, cmd.ItemID, nil), nil
	case command.KindSetHighlight:
		var color *string
		if cmd.Text != "" && cmd.Text != "none" {
			color = model.StringPtr(cmd.Text)
		}
		return ed.SetHighlightColor(cmd.SectionID, cmd.ItemID, color), nil

	case command.KindSendItem:
		return w.sendItem(cmd.SectionID, cmd.ItemID, cmd.Start), nil
	case command.KindSendSection:
		return w.sendSection(cmd.SectionID, cmd.Start), nil
	case command.KindSendAll:
		return w.sendAll(cmd.Start), nil
	case command.KindStartEntry:
		return w.timelog.ToggleEntry(taskID, cmd.EntryID), nil
	case command.KindStopTimer:
		return w.timelog.StopTimer(), nil
	case command.KindDeleteEntry:
		return w.timelog.DeleteEntry(taskID, cmd.EntryID), nil
	case command.KindRenameEntry:
		return w.timelog.RenameEntry(taskID, cmd.EntryID, cmd.Text), nil
	case command.KindAddEntry:
		w.timelog.AddEntry(taskID, cmd.Text)
		return true, nil
	case command.KindWipeLog:
		if !w.timelog.WipeLog(taskID) {
			return false, nil
		}
		// Undoing past a wipe would resurrect items whose time is gone.
		ed.Reset(ed.Tree())
		return true, nil
	case command.KindArchiveSession:
		_, ok := w.timelog.ArchiveSession(taskID, cmd.Text)
		return ok, nil
	case command.KindRenameSession:
		return w.timelog.RenameSession(taskID, cmd.SessionID, cmd.Text), nil
	case command.KindDeleteSession:
		return w.timelog.DeleteSession(taskID, cmd.SessionID), nil
	case command.KindRestoreSession:
		return w.timelog.RestoreSession(taskID, cmd.SessionID) > 0, nil

	case command.KindUndo:
		return ed.Undo(), nil
	case command.KindRedo:
		return ed.Redo(), nil

	// View settings change what is shown, not what is stored.
	case command.KindToggleShowCompleted:
		w.settings.ToggleShowCompleted()
		return false, nil
	case command.KindToggleSectionOpen:
		w.settings.ToggleOpen(cmd.SectionID)
		return false, nil
	case command.KindHideSection:
		w.settings.Hide(cmd.SectionID)
		return false, nil
	case command.KindShowAllSections:
		w.settings.ShowAll()
		return false, nil

	default:
		return false, fmt.Errorf("%s: %w", cmd.Kind, command.ErrUnknownCommand)
	}
}

func (w *Workspace) replayed(tree []model.ChecklistSection) {
	total, done := checklist.Counts(tree)
	w.log.Debug("checklist replayed", "task_id", w.task.ID,
		"history_index", w.editor.History().Index(), "items", total, "done", done)
}

func (w *Workspace) toggle(sectionID, itemID int64) bool {
	before := w.editor.Tree()
	evt := w.editor.ToggleItem(sectionID, itemID)
	changed := !checklist.SameTree(before, w.editor.Tree())
	if evt == nil {
		return changed
	}

	taskID := w.task.ID
	w.notifier.ItemCompleted(taskID, notify.ItemEvent{
		Item:         evt.Item,
		SectionID:    evt.SectionID,
		SectionTitle: evt.SectionTitle,
	})
	if evt.SectionCompleted {
		w.notifier.SectionCompleted(taskID, notify.SectionEvent{
			SectionID:    evt.SectionID,
			SectionTitle: evt.SectionTitle,
		})
	}
	return changed
}

func (w *Workspace) sendItem(sectionID, itemID int64, start bool) bool {
	w.editor.MarkItemTimed(sectionID, itemID)
	item, section, ok := checklist.FindItem(w.editor.Tree(), itemID)
	if !ok || section.ID != sectionID {
		return false
	}
	w.timelog.SendItem(w.task.ID, item, start)
	return true
}

func (w *Workspace) sendSection(sectionID int64, start bool) bool {
	w.editor.MarkOpenItemsTimed(&sectionID)
	section, ok := checklist.FindSection(w.editor.Tree(), sectionID)
	if !ok {
		return false
	}
	return len(w.timelog.SendSection(w.task.ID, section, start)) > 0
}

func (w *Workspace) sendAll(start bool) bool {
	w.editor.MarkOpenItemsTimed(nil)
	return len(w.timelog.SendAll(w.task.ID, w.editor.Tree(), start)) > 0
}

// save writes the open task's checklist and time log.
func (w *Workspace) save(ctx context.Context) error {
	if w.task == nil {
		return nil
	}
	snap := w.timelog.Snapshot(w.task.ID)
	state := model.TaskState{
		Checklist: w.editor.Tree(),
		TimeLog:   snap.Entries,
		Sessions:  snap.Sessions,
	}
	if err := w.store.SaveTaskState(ctx, w.task.ID, state); err != nil {
		w.log.Error("saving task state", "task_id", w.task.ID, "error", err)
		return fmt.Errorf("saving task %s: %w", w.task.ID, err)
	}
	return nil
}

// flush saves the time log of every task other than the open one that the
// shared timer touched since the last flush. The open task is saved by save.
func (w *Workspace) flush(ctx context.Context) error {
	for _, taskID := range w.takePending() {
		if w.task != nil && taskID == w.task.ID {
			continue
		}
		if !w.timelog.Loaded(taskID) {
			continue
		}
		state, err := w.store.LoadTaskState(ctx, taskID)
		if err != nil {
			return fmt.Errorf("loading state for task %s: %w", taskID, err)
		}
		snap := w.timelog.Snapshot(taskID)
		state.TimeLog = snap.Entries
		state.Sessions = snap.Sessions
		if err := w.store.SaveTaskState(ctx, taskID, state); err != nil {
			return fmt.Errorf("saving time log of task %s: %w", taskID, err)
		}
		w.log.Debug("background time log saved", "task_id", taskID)
		w.unloadIdle(taskID)
	}
	return nil
}

// unloadIdle drops a task's time log from the service unless the timer is
// running one of its entries.
func (w *Workspace) unloadIdle(taskID string) {
	if live := w.timelog.Live(); live.Running && live.TaskID == taskID {
		return
	}
	w.timelog.Unload(taskID)
}
