// Package cooldown provides named, cancellable timed gates driven by an
// injected timer primitive.
package cooldown

import (
	"sync/atomic"
	"time"
)

// Handle cancels one scheduled callback.
type Handle interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped a pending callback. Safe to call multiple times.
	Stop() bool
}

// Timers is the scheduling primitive supplied by the host engine.
type Timers interface {
	Now() time.Time
	// AfterFunc schedules fn to run after d. fn must be invoked on the
	// owner's loop, never concurrently with other owner code.
	AfterFunc(d time.Duration, fn func()) Handle
}

// ManualTimers is a deterministic virtual clock. Callbacks run only inside
// Advance, in deadline order (ties in scheduling order).
// It is not safe for concurrent use.
type ManualTimers struct {
	now     time.Time
	seq     uint64
	pending []*manualTimer
}

type manualTimer struct {
	deadline time.Time
	seq      uint64
	fn       func()
	done     bool
}

func (t *manualTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	return true
}

// NewManualTimers creates a virtual clock reading start.
func NewManualTimers(start time.Time) *ManualTimers {
	return &ManualTimers{now: start}
}

// Now returns the current virtual time.
func (m *ManualTimers) Now() time.Time { return m.now }

// AfterFunc schedules fn at Now()+d. Negative d is treated as zero; a zero
// delay fires on the next Advance call.
func (m *ManualTimers) AfterFunc(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{deadline: m.now.Add(d), seq: m.seq, fn: fn}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves the clock forward by d, firing every callback whose deadline
// falls within the window. Callbacks scheduled while advancing fire in the
// same call when their deadline is also due.
//
// Postcondition: Now() == previous Now() + d.
func (m *ManualTimers) Advance(d time.Duration) {
	target := m.now.Add(d)
	for {
		next := m.nextDue(target)
		if next == nil {
			break
		}
		next.done = true
		if next.deadline.After(m.now) {
			m.now = next.deadline
		}
		next.fn()
	}
	m.now = target
	m.compact()
}

// Pending returns the number of callbacks that have neither fired nor been stopped.
func (m *ManualTimers) Pending() int {
	n := 0
	for _, t := range m.pending {
		if !t.done {
			n++
		}
	}
	return n
}

func (m *ManualTimers) nextDue(target time.Time) *manualTimer {
	var best *manualTimer
	for _, t := range m.pending {
		if t.done || t.deadline.After(target) {
			continue
		}
		if best == nil || t.deadline.Before(best.deadline) ||
			(t.deadline.Equal(best.deadline) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (m *ManualTimers) compact() {
	live := m.pending[:0]
	for _, t := range m.pending {
		if !t.done {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(m.pending); i++ {
		m.pending[i] = nil
	}
	m.pending = live
}

// LoopTimers schedules on the wall clock with time.AfterFunc but never runs a
// callback on the timer goroutine: due callbacks are posted to a mailbox the
// owning loop empties with Drain. This keeps the coordinator single-threaded.
type LoopTimers struct {
	mailbox chan func()
}

type loopTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
}

func (t *loopTimer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}
	return t.timer.Stop()
}

// NewLoopTimers creates LoopTimers whose mailbox buffers up to size callbacks.
//
// Precondition: size > 0.
func NewLoopTimers(size int) *LoopTimers {
	if size <= 0 {
		panic("cooldown.NewLoopTimers: precondition violated: size must be > 0")
	}
	return &LoopTimers{mailbox: make(chan func(), size)}
}

// Now returns the wall-clock time.
func (l *LoopTimers) Now() time.Time { return time.Now() }

// AfterFunc posts fn to the mailbox after d.
//
// Postcondition: fn never runs once Stop has returned on the owner's loop.
func (l *LoopTimers) AfterFunc(d time.Duration, fn func()) Handle {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		if t.stopped.Load() {
			return
		}
		l.mailbox <- func() {
			if t.stopped.Load() {
				return
			}
			fn()
		}
	})
	return t
}

// Mailbox exposes the queue of due callbacks for select loops.
func (l *LoopTimers) Mailbox() <-chan func() { return l.mailbox }

// Drain runs every queued callback without blocking and returns how many ran.
func (l *LoopTimers) Drain() int {
	n := 0
	for {
		select {
		case fn := <-l.mailbox:
			fn()
			n++
		default:
			return n
		}
	}
}
