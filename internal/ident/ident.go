// Package ident issues the integer identifiers used as primary keys for
// notes, cards and review log rows. Ids are wall-clock milliseconds, so
// they sort by creation time, with a strictly-increasing guard for calls
// landing in the same millisecond or under a clock that steps backwards.
package ident

import (
	"sync"
	"time"
)

// Generator issues unique, monotonically increasing int64 ids.
// The zero value is not usable; call New.
type Generator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// New returns a Generator backed by the system clock.
func New() *Generator {
	return NewWithClock(time.Now)
}

// NewWithClock returns a Generator with an injected clock, for tests.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// NextID returns the next id. It never fails: when the clock yields a
// value at or below the last issued id, the id is last+1 instead.
func (g *Generator) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
