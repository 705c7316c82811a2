// Package history implements a linear undo/redo stack of immutable snapshots.
//
// The stack always holds at least one snapshot: index 0 is the state at load
// (or at the last Reset), and the current snapshot is the one at Index().
// Recording after an undo discards every snapshot above the current index, so
// there is never more than one redo branch.
package history

import "sync"

// Stack is a linear snapshot history. Snapshots must be treated as
// immutable by every caller; the stack stores them without copying.
type Stack[T any] struct {
	mu         sync.Mutex
	snapshots  []T
	index      int
	replaying  int
	suppressed int
	listeners  []func(T)
}

// New returns a Stack whose only snapshot is initial.
func New[T any](initial T) *Stack[T] {
	return &Stack[T]{snapshots: []T{initial}}
}

// Subscribe registers fn to receive the new current snapshot after every
// Undo, Redo and Reset. Listeners run with the replay guard set; any Record
// they trigger is dropped.
func (s *Stack[T]) Subscribe(fn func(T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Record truncates the history to the current index and appends snapshot as
// the new current state. Returns false when the call was suppressed because
// it happened while an undo or redo was being replayed.
func (s *Stack[T]) Record(snapshot T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replaying > 0 {
		s.suppressed++
		return false
	}

	s.snapshots = append(s.snapshots[:s.index+1:s.index+1], snapshot)
	s.index = len(s.snapshots) - 1
	return true
}

// Rewrite applies fn to every snapshot in the history, including the redo
// branch, without recording a step or notifying listeners. fn must return
// its input unchanged when it has nothing to do.
func (s *Stack[T]) Rewrite(fn func(T) T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, snap := range s.snapshots {
		s.snapshots[i] = fn(snap)
	}
}

// Undo moves one step back. It returns the new current snapshot and whether
// the index changed; at index 0 it is a no-op.
func (s *Stack[T]) Undo() (T, bool) {
	s.mu.Lock()
	if s.index == 0 {
		cur := s.snapshots[s.index]
		s.mu.Unlock()
		return cur, false
	}
	s.index--
	return s.replay()
}

// Redo moves one step forward. At the top of the stack it is a no-op.
func (s *Stack[T]) Redo() (T, bool) {
	s.mu.Lock()
	if s.index >= len(s.snapshots)-1 {
		cur := s.snapshots[s.index]
		s.mu.Unlock()
		return cur, false
	}
	s.index++
	return s.replay()
}

// Reset replaces the whole history with a single snapshot.
func (s *Stack[T]) Reset(snapshot T) {
	s.mu.Lock()
	s.snapshots = []T{snapshot}
	s.index = 0
	s.replay()
}

// replay delivers the current snapshot to listeners with the replay guard
// raised, then lowers it. The guard counts nesting so a listener that undoes
// or redoes does not reopen recording for the listeners still running.
// Must be called with s.mu held; it releases it.
func (s *Stack[T]) replay() (T, bool) {
	cur := s.snapshots[s.index]
	listeners := append([]func(T){}, s.listeners...)
	s.replaying++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.replaying--
		s.mu.Unlock()
	}()

	for _, fn := range listeners {
		fn(cur)
	}
	return cur, true
}

// Current returns the snapshot at the current index.
func (s *Stack[T]) Current() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[s.index]
}

// CanUndo reports whether Undo would change the current snapshot.
func (s *Stack[T]) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index > 0
}

// CanRedo reports whether Redo would change the current snapshot.
func (s *Stack[T]) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index < len(s.snapshots)-1
}

// Index returns the current position in the history.
func (s *Stack[T]) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Len returns the number of snapshots held.
func (s *Stack[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// Replaying reports whether an undo, redo or reset is currently being
// delivered to listeners.
func (s *Stack[T]) Replaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaying > 0
}

// Suppressed returns how many Record calls were dropped during replays.
func (s *Stack[T]) Suppressed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suppressed
}
