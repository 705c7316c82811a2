// Package idgen produces numeric identifiers for checklist sections, items,
// time-log entries and sessions.
//
// Identifiers come from a monotonic counter seeded from the wall clock in
// microseconds. Every call to Next returns a value strictly greater than any
// value previously returned or observed, so two identifiers from the same
// generator can never collide, even when many are created within the same
// millisecond.
package idgen

import (
	"sync"
	"time"
)

// Source hands out unique identifiers.
type Source interface {
	Next() int64
}

// Generator is a monotonic Source. It is safe for concurrent use.
type Generator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// New returns a Generator seeded from the current time.
func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock returns a Generator that seeds from the given clock.
// Used by tests to make the seed deterministic.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// Next returns a new identifier.
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	candidate := g.now().UnixMicro()
	if candidate <= g.last {
		candidate = g.last + 1
	}
	g.last = candidate
	return candidate
}

// Observe records an identifier that already exists (for example one loaded
// from the database) so that Next never returns it or anything below it.
func (g *Generator) Observe(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id > g.last {
		g.last = id
	}
}

// Sequence is a deterministic Source counting up from a start value.
type Sequence struct {
	mu   sync.Mutex
	next int64
}

// NewSequence returns a Sequence whose first identifier is start.
func NewSequence(start int64) *Sequence {
	return &Sequence{next: start}
}

// Next returns the next identifier in the sequence.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	return id
}
