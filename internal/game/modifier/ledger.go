// Package modifier tracks source-keyed additive stat modifiers from
// equipment and timed buffs.
package modifier

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/game/cooldown"
	"github.com/cory-johannsen/brawl/internal/game/stats"
)

// Permanent is the duration for a modifier that never expires.
const Permanent time.Duration = -1

// ErrEmptySource is returned when Apply is called without a source id.
var ErrEmptySource = errors.New("modifier: source id must be non-empty")

// Modifier is one applied set of deltas.
type Modifier struct {
	SourceID string
	Deltas   stats.Deltas
	// ExpiresAt is zero for permanent modifiers.
	ExpiresAt time.Time
}

// Permanent reports whether the modifier has no expiry.
func (m Modifier) Permanent() bool { return m.ExpiresAt.IsZero() }

// ExpiryKey returns the scheduler key that drives expiry of sourceID.
func ExpiryKey(sourceID string) string { return "modifier:" + sourceID }

// Ledger holds the active modifiers of one character.
//
// Invariant: at most one modifier per SourceID; Totals equals the sum of the
// recorded deltas of every active modifier.
// It is not safe for concurrent use; the caller must serialise access.
type Ledger struct {
	sched    *cooldown.Scheduler
	mods     map[string]*Modifier
	tokens   map[string]cooldown.Token
	onChange func()
	closed   bool
	logger   *zap.Logger
}

// NewLedger creates an empty Ledger whose expiries run on sched. onChange is
// called synchronously after every mutation, before the mutating call returns.
//
// Precondition: sched must be non-nil.
func NewLedger(sched *cooldown.Scheduler, onChange func(), logger *zap.Logger) *Ledger {
	if sched == nil {
		panic("modifier.NewLedger: precondition violated: sched must be non-nil")
	}
	if onChange == nil {
		onChange = func() {}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		sched:    sched,
		mods:     make(map[string]*Modifier),
		tokens:   make(map[string]cooldown.Token),
		onChange: onChange,
		logger:   logger,
	}
}

// Apply records deltas under sourceID. Re-applying an active source replaces
// its deltas and its expiry. A positive d schedules expiry after d; Permanent
// (any negative d) never expires; zero removes the source.
//
// Precondition: sourceID must be non-empty.
// Postcondition: Has(sourceID) is true for d != 0; the recompute hook has run.
func (l *Ledger) Apply(sourceID string, deltas stats.Deltas, d time.Duration) error {
	if sourceID == "" {
		return ErrEmptySource
	}
	if l.closed {
		return nil
	}
	if d == 0 {
		l.Revert(sourceID)
		return nil
	}
	l.cancelExpiry(sourceID)
	m := &Modifier{SourceID: sourceID, Deltas: deltas.Clone()}
	if d > 0 {
		m.ExpiresAt = l.sched.Now().Add(d)
	}
	l.mods[sourceID] = m
	if d > 0 {
		l.tokens[sourceID] = l.sched.Start(ExpiryKey(sourceID), d, func() { l.expire(sourceID) })
	}
	l.logger.Debug("modifier applied",
		zap.String("source", sourceID),
		zap.Duration("duration", d),
	)
	l.onChange()
	return nil
}

// Revert removes exactly the deltas recorded for sourceID and cancels its
// pending expiry. Unknown ids are a no-op.
//
// Postcondition: returns true iff a modifier was removed; Has(sourceID) is false.
func (l *Ledger) Revert(sourceID string) bool {
	if l.closed {
		return false
	}
	if _, ok := l.mods[sourceID]; !ok {
		return false
	}
	l.cancelExpiry(sourceID)
	delete(l.mods, sourceID)
	l.logger.Debug("modifier reverted", zap.String("source", sourceID))
	l.onChange()
	return true
}

// Tick reverts every timed modifier with ExpiresAt <= now and returns the
// reverted ids in sorted order. The recompute hook runs once if anything changed.
func (l *Ledger) Tick(now time.Time) []string {
	if l.closed {
		return nil
	}
	expired := l.due(now)
	for _, id := range expired {
		l.cancelExpiry(id)
		delete(l.mods, id)
	}
	if len(expired) > 0 {
		l.logger.Debug("modifiers expired", zap.Strings("sources", expired))
		l.onChange()
	}
	return expired
}

// Totals returns the summed deltas of all active modifiers. Sources are added
// in sorted id order so the float sums are reproducible.
func (l *Ledger) Totals() stats.Deltas {
	out := make(stats.Deltas)
	for _, id := range l.Active() {
		m := l.mods[id]
		for _, s := range m.Deltas.Keys() {
			out[s] += m.Deltas[s]
		}
	}
	return out
}

// Has reports whether sourceID is active.
func (l *Ledger) Has(sourceID string) bool {
	_, ok := l.mods[sourceID]
	return ok
}

// Get returns a copy of the modifier recorded under sourceID.
func (l *Ledger) Get(sourceID string) (Modifier, bool) {
	m, ok := l.mods[sourceID]
	if !ok {
		return Modifier{}, false
	}
	cp := *m
	cp.Deltas = m.Deltas.Clone()
	return cp, true
}

// Remaining returns the time left on sourceID. It returns Permanent for a
// permanent modifier and zero for an unknown one.
func (l *Ledger) Remaining(sourceID string) time.Duration {
	m, ok := l.mods[sourceID]
	if !ok {
		return 0
	}
	if m.Permanent() {
		return Permanent
	}
	left := m.ExpiresAt.Sub(l.sched.Now())
	if left < 0 {
		return 0
	}
	return left
}

// Active returns the active source ids, sorted.
func (l *Ledger) Active() []string {
	out := make([]string, 0, len(l.mods))
	for id := range l.mods {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close cancels every pending expiry. Recorded modifiers are left in place
// and every later call is a no-op.
func (l *Ledger) Close() {
	if l.closed {
		return
	}
	for id := range l.tokens {
		l.cancelExpiry(id)
	}
	l.closed = true
}

// Closed reports whether Close has been called.
func (l *Ledger) Closed() bool { return l.closed }

// String implements fmt.Stringer for log output.
func (l *Ledger) String() string {
	return fmt.Sprintf("Ledger{active=%v}", l.Active())
}

func (l *Ledger) expire(sourceID string) {
	if l.closed {
		return
	}
	delete(l.tokens, sourceID)
	if _, ok := l.mods[sourceID]; ok {
		delete(l.mods, sourceID)
		l.logger.Debug("modifier expired", zap.String("source", sourceID))
	}
	// Anything else already due goes in the same recompute.
	for _, id := range l.due(l.sched.Now()) {
		l.cancelExpiry(id)
		delete(l.mods, id)
	}
	l.onChange()
}

func (l *Ledger) due(now time.Time) []string {
	var out []string
	for id, m := range l.mods {
		if !m.Permanent() && !m.ExpiresAt.After(now) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (l *Ledger) cancelExpiry(sourceID string) {
	if tok, ok := l.tokens[sourceID]; ok {
		l.sched.Cancel(tok)
		delete(l.tokens, sourceID)
	}
}
