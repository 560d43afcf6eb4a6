package cooldown

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// Token identifies one started cooldown. A token outlives its entry: once the
// key is restarted or expires, cancelling the old token is a no-op.
type Token struct {
	Key string
	gen uint64
}

// Live reports whether the token was issued for a scheduled timer.
func (t Token) Live() bool { return t.gen != 0 }

type entry struct {
	readyAt  time.Time
	gen      uint64
	handle   Handle
	onExpire func()
}

// Scheduler tracks named timed gates: ability cooldowns, invulnerability
// windows, and modifier expiries.
//
// Invariant: at most one live entry per key.
// It is not safe for concurrent use; callbacks must arrive on the owner's loop.
type Scheduler struct {
	timers  Timers
	entries map[string]*entry
	gen     uint64
	closed  bool
	logger  *zap.Logger
}

// NewScheduler creates a Scheduler over timers.
//
// Precondition: timers must be non-nil; logger may be nil.
func NewScheduler(timers Timers, logger *zap.Logger) *Scheduler {
	if timers == nil {
		panic("cooldown.NewScheduler: precondition violated: timers must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		timers:  timers,
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// Now returns the scheduler's clock reading.
func (s *Scheduler) Now() time.Time { return s.timers.Now() }

// Start opens a gate on key for d, replacing any active gate on the same key
// (its timer is cancelled and its onExpire never runs). onExpire may be nil.
// A non-positive d resolves immediately: nothing is stored and onExpire runs
// before Start returns.
//
// Postcondition: IsReady(key) is false until d has elapsed, or true when d <= 0.
// After Close, Start schedules nothing and returns a zero Token.
func (s *Scheduler) Start(key string, d time.Duration, onExpire func()) Token {
	if s.closed {
		return Token{}
	}
	s.drop(key)
	if d <= 0 {
		if onExpire != nil {
			onExpire()
		}
		return Token{Key: key}
	}
	s.gen++
	gen := s.gen
	e := &entry{
		readyAt:  s.timers.Now().Add(d),
		gen:      gen,
		onExpire: onExpire,
	}
	e.handle = s.timers.AfterFunc(d, func() { s.expire(key, gen) })
	s.entries[key] = e
	s.logger.Debug("cooldown started",
		zap.String("key", key),
		zap.Duration("duration", d),
	)
	return Token{Key: key, gen: gen}
}

// IsReady reports whether now >= readyAt for key. A key that was never
// started is ready. A stale entry without an expiry callback is dropped;
// one with a callback stays until the callback has run.
func (s *Scheduler) IsReady(key string) bool {
	e, ok := s.entries[key]
	if !ok {
		return true
	}
	if s.timers.Now().Before(e.readyAt) {
		return false
	}
	if e.onExpire == nil {
		e.handle.Stop()
		delete(s.entries, key)
	}
	return true
}

// Remaining returns the time left on key, or zero when it is ready.
func (s *Scheduler) Remaining(key string) time.Duration {
	e, ok := s.entries[key]
	if !ok {
		return 0
	}
	left := e.readyAt.Sub(s.timers.Now())
	if left < 0 {
		return 0
	}
	return left
}

// Cancel stops the gate named by tok if it is still the live entry for its
// key. The expiry callback does not run.
//
// Postcondition: returns true iff a live entry was removed.
func (s *Scheduler) Cancel(tok Token) bool {
	e, ok := s.entries[tok.Key]
	if !ok || !tok.Live() || e.gen != tok.gen {
		return false
	}
	e.handle.Stop()
	delete(s.entries, tok.Key)
	return true
}

// Active returns the keys with a live entry, sorted.
func (s *Scheduler) Active() []string {
	out := make([]string, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Close cancels every outstanding timer synchronously. Callbacks already
// queued by the timer primitive are ignored when they arrive.
//
// Postcondition: no onExpire registered before Close will ever run.
func (s *Scheduler) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for k, e := range s.entries {
		e.handle.Stop()
		delete(s.entries, k)
	}
}

// Closed reports whether Close has been called.
func (s *Scheduler) Closed() bool { return s.closed }

func (s *Scheduler) drop(key string) {
	if e, ok := s.entries[key]; ok {
		e.handle.Stop()
		delete(s.entries, key)
	}
}

func (s *Scheduler) expire(key string, gen uint64) {
	if s.closed {
		return
	}
	e, ok := s.entries[key]
	if !ok || e.gen != gen {
		return
	}
	delete(s.entries, key)
	s.logger.Debug("cooldown expired", zap.String("key", key))
	if e.onExpire != nil {
		e.onExpire()
	}
}
