// Package timer holds the single active stopwatch shared by all tasks.
package timer

import (
	"sync"
	"time"
)

// Stopped describes the entry a timer was running when it stopped.
type Stopped struct {
	TaskID    string
	EntryID   int64
	ElapsedMs int64
}

// Timer tracks at most one running time-log entry. It is safe for
// concurrent use.
type Timer struct {
	mu        sync.Mutex
	now       func() time.Time
	running   bool
	taskID    string
	entryID   int64
	baseMs    int64
	startedAt time.Time
}

// New returns an idle Timer using the wall clock.
func New() *Timer {
	return &Timer{now: time.Now}
}

// NewWithClock returns an idle Timer reading time from now.
func NewWithClock(now func() time.Time) *Timer {
	return &Timer{now: now}
}

// Start begins timing entryID of taskID, continuing from baseMs. A timer
// that is already running is replaced without reporting; callers that need
// the previous elapsed time must call Stop first.
func (t *Timer) Start(taskID string, entryID int64, baseMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = true
	t.taskID = taskID
	t.entryID = entryID
	t.baseMs = baseMs
	t.startedAt = t.now()
}

// Stop halts the timer and reports what it was running.
func (t *Timer) Stop() (Stopped, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return Stopped{}, false
	}
	s := Stopped{
		TaskID:    t.taskID,
		EntryID:   t.entryID,
		ElapsedMs: t.elapsedLocked(),
	}
	t.running = false
	t.taskID = ""
	t.entryID = 0
	t.baseMs = 0
	return s, true
}

// Current returns the running entry, if any.
func (t *Timer) Current() (taskID string, entryID int64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.taskID, t.entryID, t.running
}

// LiveElapsed returns the running entry's total duration in milliseconds,
// including the base it was started from. Zero when idle.
func (t *Timer) LiveElapsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return 0
	}
	return t.elapsedLocked()
}

func (t *Timer) elapsedLocked() int64 {
	d := t.now().Sub(t.startedAt)
	if d < 0 {
		d = 0
	}
	return t.baseMs + d.Milliseconds()
}
