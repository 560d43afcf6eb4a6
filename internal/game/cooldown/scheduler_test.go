package cooldown_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/brawl/internal/game/cooldown"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newScheduler() (*cooldown.Scheduler, *cooldown.ManualTimers) {
	clock := cooldown.NewManualTimers(epoch)
	return cooldown.NewScheduler(clock, nil), clock
}

func TestScheduler_GatesUntilDeadline(t *testing.T) {
	s, clock := newScheduler()
	s.Start("attack", 1500*time.Millisecond, nil)

	clock.Advance(1499 * time.Millisecond)
	assert.False(t, s.IsReady("attack"))
	assert.Equal(t, time.Millisecond, s.Remaining("attack"))

	clock.Advance(time.Millisecond)
	assert.True(t, s.IsReady("attack"))
	assert.Zero(t, s.Remaining("attack"))
}

func TestScheduler_UnknownKeyIsReady(t *testing.T) {
	s, _ := newScheduler()
	assert.True(t, s.IsReady("never"))
}

func TestScheduler_OnExpireFiresOnce(t *testing.T) {
	s, clock := newScheduler()
	calls := 0
	s.Start("buff", time.Second, func() { calls++ })
	clock.Advance(2 * time.Second)
	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, calls)
	assert.Empty(t, s.Active())
}

func TestScheduler_RestartReplacesOldTimer(t *testing.T) {
	s, clock := newScheduler()
	var fired []string
	s.Start("skill", time.Second, func() { fired = append(fired, "old") })
	clock.Advance(500 * time.Millisecond)
	s.Start("skill", time.Second, func() { fired = append(fired, "new") })

	clock.Advance(600 * time.Millisecond)
	assert.Empty(t, fired, "the replaced timer must not fire")
	assert.False(t, s.IsReady("skill"))

	clock.Advance(400 * time.Millisecond)
	assert.Equal(t, []string{"new"}, fired)
	assert.True(t, s.IsReady("skill"))
}

func TestScheduler_CancelStaleTokenIsNoOp(t *testing.T) {
	s, _ := newScheduler()
	old := s.Start("skill", time.Second, nil)
	current := s.Start("skill", time.Second, nil)

	assert.False(t, s.Cancel(old))
	assert.False(t, s.IsReady("skill"))
	assert.True(t, s.Cancel(current))
	assert.True(t, s.IsReady("skill"))
	assert.False(t, s.Cancel(current), "second cancel must be a no-op")
}

func TestScheduler_CancelSuppressesCallback(t *testing.T) {
	s, clock := newScheduler()
	called := false
	tok := s.Start("buff", time.Second, func() { called = true })
	require.True(t, s.Cancel(tok))
	clock.Advance(5 * time.Second)
	assert.False(t, called)
	assert.Zero(t, clock.Pending())
}

func TestScheduler_ZeroDurationResolvesImmediately(t *testing.T) {
	s, _ := newScheduler()
	called := false
	tok := s.Start("instant", 0, func() { called = true })
	assert.True(t, called)
	assert.False(t, tok.Live())
	assert.True(t, s.IsReady("instant"))
}

func TestScheduler_CloseCancelsEverything(t *testing.T) {
	s, clock := newScheduler()
	calls := 0
	s.Start("a", time.Second, func() { calls++ })
	s.Start("b", 2*time.Second, func() { calls++ })
	s.Close()

	clock.Advance(10 * time.Second)
	assert.Zero(t, calls)
	assert.True(t, s.Closed())

	tok := s.Start("c", time.Second, func() { calls++ })
	assert.False(t, tok.Live())
	clock.Advance(10 * time.Second)
	assert.Zero(t, calls)
}

func TestScheduler_StaleEntryWithoutCallbackDroppedLazily(t *testing.T) {
	s, clock := newScheduler()
	s.Start("attack", time.Second, nil)
	require.Equal(t, []string{"attack"}, s.Active())
	clock.Advance(time.Second)
	assert.True(t, s.IsReady("attack"))
	assert.Empty(t, s.Active())
}

func TestPropertyScheduler_ReadyExactlyAtDeadline(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, clock := newScheduler()
		ms := rapid.IntRange(1, 10_000).Draw(t, "duration_ms")
		d := time.Duration(ms) * time.Millisecond
		s.Start("k", d, nil)
		clock.Advance(d - time.Millisecond)
		assert.False(t, s.IsReady("k"))
		clock.Advance(time.Millisecond)
		assert.True(t, s.IsReady("k"))
	})
}

func TestPropertyScheduler_AtMostOneLiveEntryPerKey(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, clock := newScheduler()
		fired := 0
		n := rapid.IntRange(1, 20).Draw(t, "restarts")
		for i := 0; i < n; i++ {
			s.Start("k", time.Duration(rapid.IntRange(1, 100).Draw(t, "ms"))*time.Millisecond, func() { fired++ })
			assert.LessOrEqual(t, len(s.Active()), 1)
		}
		clock.Advance(time.Second)
		assert.Equal(t, 1, fired, "only the last start may fire")
	})
}
