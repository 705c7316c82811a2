// Package timelog links checklist items to a task's time log and derives
// the durations shown next to each item.
//
// The Service owns the time log of every open task and drives the shared
// ActiveTimer. Every operation is a single state transition under one lock:
// appending an entry and starting the timer on it happen together, and
// subscribers only ever see the state after the transition completed.
package timelog

import (
	"fmt"
	"sync"
	"time"

	"github.com/nhle/tasktimer/internal/idgen"
	"github.com/nhle/tasktimer/internal/logging"
	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/notify"
	"github.com/nhle/tasktimer/internal/timer"
)

// ActiveTimer is the stopwatch shared by all tasks.
type ActiveTimer interface {
	Start(taskID string, entryID int64, baseMs int64)
	Stop() (timer.Stopped, bool)
	Current() (taskID string, entryID int64, ok bool)
	LiveElapsed() int64
}

// Live is a point-in-time reading of the active timer.
type Live struct {
	Running   bool
	TaskID    string
	EntryID   int64
	ElapsedMs int64
}

// ReadLive samples t.
func ReadLive(t ActiveTimer) Live {
	taskID, entryID, ok := t.Current()
	if !ok {
		return Live{}
	}
	return Live{Running: true, TaskID: taskID, EntryID: entryID, ElapsedMs: t.LiveElapsed()}
}

// Snapshot is the published state of one task's time log.
type Snapshot struct {
	TaskID   string
	Entries  []model.TimeLogEntry
	Sessions []model.TimeLogSession
}

type taskLog struct {
	entries  []model.TimeLogEntry
	sessions []model.TimeLogSession
}

// Service owns the time logs of loaded tasks.
type Service struct {
	mu        sync.Mutex
	logs      map[string]*taskLog
	timer     ActiveTimer
	notifier  notify.Notifier
	ids       idgen.Source
	now       func() time.Time
	log       *logging.Logger
	listeners []func(Snapshot)
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.log = l.WithComponent("timelog") }
}

// NewService returns a Service driving t and reporting through n.
func NewService(t ActiveTimer, n notify.Notifier, ids idgen.Source, opts ...Option) *Service {
	s := &Service{
		logs:     make(map[string]*taskLog),
		timer:    t,
		notifier: n,
		ids:      ids,
		now:      time.Now,
		log:      logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to receive a snapshot of every task whose log
// changed. Snapshots are delivered after the lock is released.
func (s *Service) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Load installs a task's persisted log. An entry persisted as running that
// is not the timer's current entry (for example after a restart) has the
// time since its start folded into its duration and is marked stopped.
func (s *Service) Load(taskID string, entries []model.TimeLogEntry, sessions []model.TimeLogSession) {
	s.mu.Lock()

	curTask, curEntry, running := s.timer.Current()
	nowMs := s.now().UnixMilli()

	tl := &taskLog{
		entries:  cloneEntries(entries),
		sessions: append([]model.TimeLogSession(nil), sessions...),
	}
	for i := range tl.entries {
		e := &tl.entries[i]
		s.observe(e.ID)
		if !e.IsRunning {
			continue
		}
		if running && curTask == taskID && curEntry == e.ID {
			continue
		}
		if e.StartTime != nil && nowMs > *e.StartTime {
			e.Duration += nowMs - *e.StartTime
		}
		e.IsRunning = false
		e.StartTime = nil
		s.log.Info("folded stale running entry", "task_id", taskID, "entry_id", e.ID)
	}
	for _, sess := range tl.sessions {
		s.observe(sess.ID)
	}
	s.logs[taskID] = tl

	s.mu.Unlock()
}

// Unload forgets a task's log. The timer is stopped first if it is running
// one of the task's entries, and the final state is published.
func (s *Service) Unload(taskID string) {
	s.mu.Lock()
	changed := s.stopIfTaskLocked(taskID)
	snaps := s.snapshotsLocked(changed)
	delete(s.logs, taskID)
	s.mu.Unlock()

	s.publish(snaps)
}

// Loaded reports whether a task's log is held by the service.
func (s *Service) Loaded(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.logs[taskID]
	return ok
}

// Snapshot returns the current state of a task's log.
func (s *Service) Snapshot(taskID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(taskID)
}

// Entries returns a task's current entries.
func (s *Service) Entries(taskID string) []model.TimeLogEntry {
	return s.Snapshot(taskID).Entries
}

// Live samples the active timer.
func (s *Service) Live() Live {
	return ReadLive(s.timer)
}

// ItemDuration returns the duration to display for a checklist item.
func (s *Service) ItemDuration(taskID string, itemID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	tl := s.logs[taskID]
	if tl == nil {
		return 0
	}
	return DisplayedDuration(tl.entries, itemID, taskID, ReadLive(s.timer))
}

// SendItem appends an entry for item and, when start is set, starts the
// timer on it in the same transition.
func (s *Service) SendItem(taskID string, item model.ChecklistItem, start bool) model.TimeLogEntry {
	s.mu.Lock()
	tl := s.ensureLocked(taskID)
	entry := s.newItemEntry(item)
	tl.entries = appendEntries(tl.entries, entry)

	changed := map[string]bool{taskID: true}
	if start {
		s.startLocked(taskID, entry.ID, changed)
		entry = tl.entries[len(tl.entries)-1]
	}
	snaps := s.snapshotsLocked(changed)
	s.mu.Unlock()

	s.log.Info("item sent to timer", "task_id", taskID, "item_id", item.ID, "entry_id", entry.ID, "start", start)
	s.publish(snaps)
	return entry
}

// SendSection appends a header entry for section followed by one entry per
// incomplete item. A section with no incomplete items is reported through
// the notifier and leaves the log untouched.
func (s *Service) SendSection(taskID string, section model.ChecklistSection, start bool) []model.TimeLogEntry {
	open := section.IncompleteItems()
	if len(open) == 0 {
		s.notifier.Message(taskID, fmt.Sprintf("No incomplete items in %q to send to the timer", section.Title))
		return nil
	}

	s.mu.Lock()
	tl := s.ensureLocked(taskID)
	added := s.sectionEntries(section.Title, open)
	tl.entries = appendEntries(tl.entries, added...)

	changed := map[string]bool{taskID: true}
	if start {
		s.startLocked(taskID, added[1].ID, changed)
	}
	added = cloneEntries(tl.entries[len(tl.entries)-len(added):])
	snaps := s.snapshotsLocked(changed)
	s.mu.Unlock()

	s.log.Info("section sent to timer", "task_id", taskID, "section_id", section.ID, "entries", len(added), "start", start)
	s.publish(snaps)
	return added
}

// SendAll sends every section that still has incomplete items, in document
// order. Sections without incomplete items are skipped entirely.
func (s *Service) SendAll(taskID string, tree []model.ChecklistSection, start bool) []model.TimeLogEntry {
	var added []model.TimeLogEntry
	for _, section := range tree {
		open := section.IncompleteItems()
		if len(open) == 0 {
			continue
		}
		added = append(added, s.sectionEntries(section.Title, open)...)
	}
	if len(added) == 0 {
		s.notifier.Message(taskID, "No incomplete items to send to the timer")
		return nil
	}

	s.mu.Lock()
	tl := s.ensureLocked(taskID)
	tl.entries = appendEntries(tl.entries, added...)

	changed := map[string]bool{taskID: true}
	if start {
		s.startLocked(taskID, added[1].ID, changed)
	}
	added = cloneEntries(tl.entries[len(tl.entries)-len(added):])
	snaps := s.snapshotsLocked(changed)
	s.mu.Unlock()

	s.log.Info("checklist sent to timer", "task_id", taskID, "entries", len(added), "start", start)
	s.publish(snaps)
	return added
}

// AddEntry appends a manual entry that is not linked to any item.
func (s *Service) AddEntry(taskID, description string) model.TimeLogEntry {
	s.mu.Lock()
	tl := s.ensureLocked(taskID)
	created := s.now().UnixMilli()
	entry := model.TimeLogEntry{
		ID:          s.ids.Next(),
		Description: description,
		Type:        model.EntryTypeEntry,
		CreatedAt:   &created,
	}
	tl.entries = appendEntries(tl.entries, entry)
	snaps := s.snapshotsLocked(map[string]bool{taskID: true})
	s.mu.Unlock()

	s.publish(snaps)
	return entry
}

// StartEntry starts the timer on an existing entry, stopping (and
// persisting) whatever was running before. Headers cannot be started.
func (s *Service) StartEntry(taskID string, entryID int64) bool {
	s.mu.Lock()
	tl := s.logs[taskID]
	if tl == nil {
		s.mu.Unlock()
		return false
	}
	idx := entryIndex(tl.entries, entryID)
	if idx < 0 || tl.entries[idx].IsHeader() {
		s.mu.Unlock()
		return false
	}
	if curTask, curEntry, ok := s.timer.Current(); ok && curTask == taskID && curEntry == entryID {
		s.mu.Unlock()
		return false
	}

	changed := map[string]bool{taskID: true}
	s.startLocked(taskID, entryID, changed)
	snaps := s.snapshotsLocked(changed)
	s.mu.Unlock()

	s.publish(snaps)
	return true
}

// StopTimer stops the active timer and writes its elapsed time into the
// entry it was running. Reports whether anything was running.
func (s *Service) StopTimer() bool {
	s.mu.Lock()
	changed := make(map[string]bool)
	ok := s.stopLocked(changed)
	snaps := s.snapshotsLocked(changed)
	s.mu.Unlock()

	s.publish(snaps)
	return ok
}

// ToggleEntry starts the entry if it is idle, or stops it if it is running.
func (s *Service) ToggleEntry(taskID string, entryID int64) bool {
	if curTask, curEntry, ok := s.timer.Current(); ok && curTask == taskID && curEntry == entryID {
		return s.StopTimer()
	}
	return s.StartEntry(taskID, entryID)
}

// RenameEntry changes an entry description.
func (s *Service) RenameEntry(taskID string, entryID int64, description string) bool {
	return s.mutateEntry(taskID, entryID, func(e *model.TimeLogEntry) bool {
		if e.Description == description {
			return false
		}
		e.Description = description
		return true
	})
}

// SetEntryDuration overwrites an idle entry's duration.
func (s *Service) SetEntryDuration(taskID string, entryID int64, durationMs int64) bool {
	if durationMs < 0 {
		return false
	}
	return s.mutateEntry(taskID, entryID, func(e *model.TimeLogEntry) bool {
		if e.IsRunning || e.IsHeader() || e.Duration == durationMs {
			return false
		}
		e.Duration = durationMs
		return true
	})
}

// DeleteEntry removes an entry, stopping the timer first if it was running it.
func (s *Service) DeleteEntry(taskID string, entryID int64) bool {
	s.mu.Lock()
	tl := s.logs[taskID]
	if tl == nil {
		s.mu.Unlock()
		return false
	}
	if entryIndex(tl.entries, entryID) < 0 {
		s.mu.Unlock()
		return false
	}

	changed := map[string]bool{taskID: true}
	if curTask, curEntry, ok := s.timer.Current(); ok && curTask == taskID && curEntry == entryID {
		s.stopLocked(changed)
	}
	idx := entryIndex(tl.entries, entryID)
	next := make([]model.TimeLogEntry, 0, len(tl.entries)-1)
	next = append(next, tl.entries[:idx]...)
	tl.entries = append(next, tl.entries[idx+1:]...)
	snaps := s.snapshotsLocked(changed)
	s.mu.Unlock()

	s.publish(snaps)
	return true
}

// WipeLog stops the timer if it belongs to the task and clears every entry.
// Sessions are kept.
func (s *Service) WipeLog(taskID string) bool {
	s.mu.Lock()
	tl := s.logs[taskID]
	if tl == nil || len(tl.entries) == 0 {
		s.mu.Unlock()
		return false
	}
	changed := s.stopIfTaskLocked(taskID)
	changed[taskID] = true
	tl.entries = []model.TimeLogEntry{}
	snaps := s.snapshotsLocked(changed)
	s.mu.Unlock()

	s.log.Info("time log wiped", "task_id", taskID)
	s.publish(snaps)
	return true
}

// ArchiveSession moves the current entries into a new named session and
// clears the log. The timer is stopped first so the session holds final
// durations. An empty log is reported through the notifier.
func (s *Service) ArchiveSession(taskID, title string) (model.TimeLogSession, bool) {
	s.mu.Lock()
	tl := s.logs[taskID]
	if tl == nil || len(tl.entries) == 0 {
		s.mu.Unlock()
		s.notifier.Message(taskID, "Time log is empty; nothing to archive")
		return model.TimeLogSession{}, false
	}

	changed := s.stopIfTaskLocked(taskID)
	changed[taskID] = true
	now := s.now()
	if title == "" {
		title = "Session " + now.Format("2006-01-02 15:04")
	}
	sess := model.TimeLogSession{
		ID:        s.ids.Next(),
		Title:     title,
		Entries:   cloneEntries(tl.entries),
		CreatedAt: now.UnixMilli(),
	}
	tl.sessions = append(append([]model.TimeLogSession(nil), tl.sessions...), sess)
	tl.entries = []model.TimeLogEntry{}
	snaps := s.snapshotsLocked(changed)
	s.mu.Unlock()

	s.log.Info("session archived", "task_id", taskID, "session_id", sess.ID, "entries", len(sess.Entries))
	s.publish(snaps)
	return sess, true
}

// RenameSession changes a session title.
func (s *Service) RenameSession(taskID string, sessionID int64, title string) bool {
	return s.mutateSessions(taskID, func(sessions []model.TimeLogSession) ([]model.TimeLogSession, bool) {
		idx := sessionIndex(sessions, sessionID)
		if idx < 0 || title == "" || sessions[idx].Title == title {
			return sessions, false
		}
		out := append([]model.TimeLogSession(nil), sessions...)
		out[idx].Title = title
		return out, true
	})
}

// DeleteSession removes an archived session.
func (s *Service) DeleteSession(taskID string, sessionID int64) bool {
	return s.mutateSessions(taskID, func(sessions []model.TimeLogSession) ([]model.TimeLogSession, bool) {
		idx := sessionIndex(sessions, sessionID)
		if idx < 0 {
			return sessions, false
		}
		out := make([]model.TimeLogSession, 0, len(sessions)-1)
		out = append(out, sessions[:idx]...)
		return append(out, sessions[idx+1:]...), true
	})
}

// RestoreSession appends a copy of an archived session's entries to the
// current log under fresh ids. The session itself is kept.
func (s *Service) RestoreSession(taskID string, sessionID int64) int {
	s.mu.Lock()
	tl := s.logs[taskID]
	if tl == nil {
		s.mu.Unlock()
		return 0
	}
	idx := sessionIndex(tl.sessions, sessionID)
	if idx < 0 || len(tl.sessions[idx].Entries) == 0 {
		s.mu.Unlock()
		return 0
	}

	restored := cloneEntries(tl.sessions[idx].Entries)
	for i := range restored {
		restored[i].ID = s.ids.Next()
		restored[i].IsRunning = false
		restored[i].StartTime = nil
	}
	tl.entries = appendEntries(tl.entries, restored...)
	snaps := s.snapshotsLocked(map[string]bool{taskID: true})
	s.mu.Unlock()

	s.publish(snaps)
	return len(restored)
}

// DisplayedDuration is the duration shown for a checklist item: the sum of
// every linked entry's duration, except that the entry the active timer is
// currently running contributes its live elapsed time instead.
func DisplayedDuration(entries []model.TimeLogEntry, itemID int64, taskID string, live Live) int64 {
	var total int64
	for _, e := range entries {
		if !e.LinkedTo(itemID) {
			continue
		}
		if live.Running && live.TaskID == taskID && live.EntryID == e.ID {
			total += live.ElapsedMs
			continue
		}
		total += e.Duration
	}
	return total
}

// EntryDuration is the duration shown for a single entry.
func EntryDuration(e model.TimeLogEntry, taskID string, live Live) int64 {
	if live.Running && live.TaskID == taskID && live.EntryID == e.ID {
		return live.ElapsedMs
	}
	return e.Duration
}

// TotalDuration sums every playable entry, using live time for the running one.
func TotalDuration(entries []model.TimeLogEntry, taskID string, live Live) int64 {
	var total int64
	for _, e := range entries {
		if e.IsHeader() {
			continue
		}
		total += EntryDuration(e, taskID, live)
	}
	return total
}

// observe moves the id source past ids that were loaded from storage.
func (s *Service) observe(id int64) {
	if obs, ok := s.ids.(interface{ Observe(int64) }); ok {
		obs.Observe(id)
	}
}

func (s *Service) newItemEntry(item model.ChecklistItem) model.TimeLogEntry {
	created := s.now().UnixMilli()
	itemID := item.ID
	var seed int64
	if item.LoggedTime != nil {
		seed = *item.LoggedTime
	}
	return model.TimeLogEntry{
		ID:              s.ids.Next(),
		Description:     item.Text,
		Duration:        seed,
		Type:            model.EntryTypeEntry,
		CreatedAt:       &created,
		ChecklistItemID: &itemID,
	}
}

func (s *Service) sectionEntries(title string, open []model.ChecklistItem) []model.TimeLogEntry {
	created := s.now().UnixMilli()
	out := make([]model.TimeLogEntry, 0, len(open)+1)
	out = append(out, model.TimeLogEntry{
		ID:          s.ids.Next(),
		Description: title,
		Type:        model.EntryTypeHeader,
		CreatedAt:   &created,
	})
	for _, it := range open {
		out = append(out, s.newItemEntry(it))
	}
	return out
}

func (s *Service) ensureLocked(taskID string) *taskLog {
	tl := s.logs[taskID]
	if tl == nil {
		tl = &taskLog{entries: []model.TimeLogEntry{}}
		s.logs[taskID] = tl
	}
	return tl
}

// startLocked stops whatever is running, then marks entryID running and
// starts the timer on it.
func (s *Service) startLocked(taskID string, entryID int64, changed map[string]bool) {
	s.stopLocked(changed)

	tl := s.logs[taskID]
	idx := entryIndex(tl.entries, entryID)
	if idx < 0 {
		return
	}
	started := s.now().UnixMilli()
	tl.entries = cloneEntries(tl.entries)
	e := &tl.entries[idx]
	e.IsRunning = true
	e.StartTime = &started
	s.timer.Start(taskID, entryID, e.Duration)
	changed[taskID] = true
}

// stopLocked stops the timer and folds its elapsed time into the entry.
func (s *Service) stopLocked(changed map[string]bool) bool {
	stopped, ok := s.timer.Stop()
	if !ok {
		return false
	}
	tl := s.logs[stopped.TaskID]
	if tl == nil {
		s.log.Warn("stopped timer for unloaded task", "task_id", stopped.TaskID, "entry_id", stopped.EntryID)
		return true
	}
	idx := entryIndex(tl.entries, stopped.EntryID)
	if idx < 0 {
		return true
	}
	tl.entries = cloneEntries(tl.entries)
	e := &tl.entries[idx]
	e.Duration = stopped.ElapsedMs
	e.IsRunning = false
	e.StartTime = nil
	changed[stopped.TaskID] = true
	return true
}

func (s *Service) stopIfTaskLocked(taskID string) map[string]bool {
	changed := make(map[string]bool)
	if curTask, _, ok := s.timer.Current(); ok && curTask == taskID {
		s.stopLocked(changed)
	}
	return changed
}

func (s *Service) mutateEntry(taskID string, entryID int64, fn func(*model.TimeLogEntry) bool) bool {
	s.mu.Lock()
	tl := s.logs[taskID]
	if tl == nil {
		s.mu.Unlock()
		return false
	}
	idx := entryIndex(tl.entries, entryID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	next := cloneEntries(tl.entries)
	if !fn(&next[idx]) {
		s.mu.Unlock()
		return false
	}
	tl.entries = next
	snaps := s.snapshotsLocked(map[string]bool{taskID: true})
	s.mu.Unlock()

	s.publish(snaps)
	return true
}

func (s *Service) mutateSessions(
	taskID string,
	fn func([]model.TimeLogSession) ([]model.TimeLogSession, bool),
) bool {
	s.mu.Lock()
	tl := s.logs[taskID]
	if tl == nil {
		s.mu.Unlock()
		return false
	}
	next, ok := fn(tl.sessions)
	if !ok {
		s.mu.Unlock()
		return false
	}
	tl.sessions = next
	snaps := s.snapshotsLocked(map[string]bool{taskID: true})
	s.mu.Unlock()

	s.publish(snaps)
	return true
}

func (s *Service) snapshotLocked(taskID string) Snapshot {
	tl := s.logs[taskID]
	if tl == nil {
		return Snapshot{TaskID: taskID, Entries: []model.TimeLogEntry{}}
	}
	return Snapshot{
		TaskID:   taskID,
		Entries:  cloneEntries(tl.entries),
		Sessions: append([]model.TimeLogSession(nil), tl.sessions...),
	}
}

func (s *Service) snapshotsLocked(changed map[string]bool) []Snapshot {
	snaps := make([]Snapshot, 0, len(changed))
	for taskID := range changed {
		if _, ok := s.logs[taskID]; ok {
			snaps = append(snaps, s.snapshotLocked(taskID))
		}
	}
	return snaps
}

func (s *Service) publish(snaps []Snapshot) {
	if len(snaps) == 0 {
		return
	}
	s.mu.Lock()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.mu.Unlock()

	for _, snap := range snaps {
		for _, fn := range listeners {
			fn(snap)
		}
	}
}

func appendEntries(entries []model.TimeLogEntry, add ...model.TimeLogEntry) []model.TimeLogEntry {
	out := make([]model.TimeLogEntry, 0, len(entries)+len(add))
	out = append(out, entries...)
	return append(out, add...)
}

func cloneEntries(entries []model.TimeLogEntry) []model.TimeLogEntry {
	out := make([]model.TimeLogEntry, len(entries))
	copy(out, entries)
	return out
}

func entryIndex(entries []model.TimeLogEntry, id int64) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func sessionIndex(sessions []model.TimeLogSession, id int64) int {
	for i, sess := range sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}
