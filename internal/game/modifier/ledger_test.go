package modifier_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/brawl/internal/game/cooldown"
	"github.com/cory-johannsen/brawl/internal/game/modifier"
	"github.com/cory-johannsen/brawl/internal/game/stats"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type harness struct {
	clock   *cooldown.ManualTimers
	sched   *cooldown.Scheduler
	ledger  *modifier.Ledger
	changes int
}

func newHarness() *harness {
	h := &harness{clock: cooldown.NewManualTimers(epoch)}
	h.sched = cooldown.NewScheduler(h.clock, nil)
	h.ledger = modifier.NewLedger(h.sched, func() { h.changes++ }, nil)
	return h
}

func TestLedger_ApplyAndRevert(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.ledger.Apply("item:sword", stats.Deltas{stats.PhysicalAttack: 10}, modifier.Permanent))
	assert.True(t, h.ledger.Has("item:sword"))
	assert.Equal(t, 10.0, h.ledger.Totals()[stats.PhysicalAttack])
	assert.Equal(t, modifier.Permanent, h.ledger.Remaining("item:sword"))
	assert.Equal(t, 1, h.changes)

	assert.True(t, h.ledger.Revert("item:sword"))
	assert.False(t, h.ledger.Has("item:sword"))
	assert.Zero(t, h.ledger.Totals()[stats.PhysicalAttack])
	assert.Equal(t, 2, h.changes)
}

func TestLedger_RevertUnknownIsNoOp(t *testing.T) {
	h := newHarness()
	assert.False(t, h.ledger.Revert("nope"))
	assert.Zero(t, h.changes)
}

func TestLedger_EmptySourceRejected(t *testing.T) {
	h := newHarness()
	assert.ErrorIs(t, h.ledger.Apply("", stats.Deltas{}, modifier.Permanent), modifier.ErrEmptySource)
}

func TestLedger_ReapplyReplacesDeltasAndExpiry(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.ledger.Apply("ability:rage", stats.Deltas{stats.PhysicalAttack: 5}, time.Second))
	h.clock.Advance(800 * time.Millisecond)
	require.NoError(t, h.ledger.Apply("ability:rage", stats.Deltas{stats.PhysicalAttack: 8}, time.Second))

	assert.Equal(t, 8.0, h.ledger.Totals()[stats.PhysicalAttack])
	h.clock.Advance(500 * time.Millisecond)
	assert.True(t, h.ledger.Has("ability:rage"), "the first expiry must have been cancelled")
	h.clock.Advance(500 * time.Millisecond)
	assert.False(t, h.ledger.Has("ability:rage"))
}

func TestLedger_TimedModifierExpiresViaScheduler(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.ledger.Apply("ability:haste", stats.Deltas{stats.Speed: 20}, 5*time.Second))
	assert.Equal(t, []string{modifier.ExpiryKey("ability:haste")}, h.sched.Active())

	h.clock.Advance(4 * time.Second)
	assert.Equal(t, time.Second, h.ledger.Remaining("ability:haste"))

	before := h.changes
	h.clock.Advance(time.Second)
	assert.False(t, h.ledger.Has("ability:haste"))
	assert.Zero(t, h.ledger.Totals()[stats.Speed])
	assert.Equal(t, before+1, h.changes)
	assert.Empty(t, h.sched.Active())
}

func TestLedger_TickRevertsDueOnly(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.ledger.Apply("a", stats.Deltas{stats.Speed: 1}, time.Second))
	require.NoError(t, h.ledger.Apply("b", stats.Deltas{stats.Speed: 2}, 3*time.Second))
	require.NoError(t, h.ledger.Apply("c", stats.Deltas{stats.Speed: 4}, modifier.Permanent))

	got := h.ledger.Tick(epoch.Add(2 * time.Second))
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, []string{"b", "c"}, h.ledger.Active())
	assert.Equal(t, []string{modifier.ExpiryKey("b")}, h.sched.Active())
}

func TestLedger_ZeroDurationRemovesSource(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.ledger.Apply("x", stats.Deltas{stats.Speed: 1}, modifier.Permanent))
	require.NoError(t, h.ledger.Apply("x", stats.Deltas{stats.Speed: 1}, 0))
	assert.False(t, h.ledger.Has("x"))
}

func TestLedger_CloseMidBuffNeverReverts(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.ledger.Apply("ability:shield", stats.Deltas{stats.PhysicalDefense: 10}, 5*time.Second))
	h.clock.Advance(time.Second)
	require.Equal(t, 4*time.Second, h.ledger.Remaining("ability:shield"))

	h.ledger.Close()
	h.sched.Close()
	changes := h.changes
	assert.NotPanics(t, func() { h.clock.Advance(10 * time.Second) })
	assert.Equal(t, changes, h.changes)
	assert.True(t, h.ledger.Has("ability:shield"))
	assert.Zero(t, h.clock.Pending())
	assert.False(t, h.ledger.Revert("ability:shield"))
}

func TestLedger_AppliedDeltasAreCopied(t *testing.T) {
	h := newHarness()
	d := stats.Deltas{stats.MaxHealth: 10}
	require.NoError(t, h.ledger.Apply("item:ring", d, modifier.Permanent))
	d[stats.MaxHealth] = 999
	m, ok := h.ledger.Get("item:ring")
	require.True(t, ok)
	assert.Equal(t, 10.0, m.Deltas[stats.MaxHealth])
}

type op struct {
	source string
	deltas stats.Deltas
}

func genOps(t *rapid.T) []op {
	n := rapid.IntRange(1, 8).Draw(t, "n")
	ops := make([]op, n)
	for i := range ops {
		d := stats.Deltas{}
		for _, s := range []stats.Stat{stats.PhysicalAttack, stats.Speed, stats.MaxHealth} {
			if rapid.Bool().Draw(t, "has_"+string(s)) {
				d[s] = float64(rapid.IntRange(-50, 50).Draw(t, "v_"+string(s)))
			}
		}
		ops[i] = op{source: string(rune('a' + i)), deltas: d}
	}
	return ops
}

func TestPropertyLedger_ApplyRevertSymmetry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := newHarness()
		attrs := stats.Attributes{Strength: 5, Agility: 5, Vitality: 5, Intelligence: 5}
		baseline := stats.Recompute(attrs, h.ledger.Totals(), stats.Melee)

		ops := genOps(t)
		for _, o := range ops {
			require.NoError(t, h.ledger.Apply(o.source, o.deltas, modifier.Permanent))
		}
		order := rapid.Permutation(ops).Draw(t, "revert_order")
		for _, o := range order {
			require.True(t, h.ledger.Revert(o.source))
		}
		assert.Equal(t, baseline, stats.Recompute(attrs, h.ledger.Totals(), stats.Melee))
	})
}

func TestPropertyLedger_TotalsIndependentOfApplyOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ops := genOps(t)
		first := newHarness()
		for _, o := range ops {
			require.NoError(t, first.ledger.Apply(o.source, o.deltas, modifier.Permanent))
		}
		second := newHarness()
		for _, o := range rapid.Permutation(ops).Draw(t, "apply_order") {
			require.NoError(t, second.ledger.Apply(o.source, o.deltas, modifier.Permanent))
		}
		assert.Equal(t, first.ledger.Totals(), second.ledger.Totals())
	})
}
