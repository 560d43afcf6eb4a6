package sim_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/brawl/internal/game/animation"
	"github.com/cory-johannsen/brawl/internal/sim"
)

func clips(t *testing.T) *animation.Registry {
	t.Helper()
	r := animation.NewRegistry()
	for _, c := range []animation.Config{
		{Key: "idle", TotalFrames: 4, FrameRate: 10, Loop: true},
		{Key: "slash", TotalFrames: 6, TriggerFrame: 3, FrameRate: 10},
	} {
		if err := r.Register(c); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func TestPlayer_LoopWraps(t *testing.T) {
	p := sim.NewPlayer(clips(t))
	p.Play("idle")
	frame, done := p.Advance(500 * time.Millisecond)
	assert.Equal(t, 1, frame)
	assert.False(t, done)
}

func TestPlayer_OneShotFinishesOnce(t *testing.T) {
	p := sim.NewPlayer(clips(t))
	p.Play("slash")

	frame, done := p.Advance(350 * time.Millisecond)
	assert.Equal(t, 3, frame)
	assert.False(t, done)

	frame, done = p.Advance(time.Second)
	assert.Equal(t, 5, frame, "a finished clip reports its last frame")
	assert.True(t, done)

	_, done = p.Advance(time.Second)
	assert.False(t, done, "completion is reported once")

	p.Play("slash")
	assert.Equal(t, -1, p.Frame())
	assert.Equal(t, 2, p.Plays())
}

func TestPlayer_UnknownClipIsStatic(t *testing.T) {
	p := sim.NewPlayer(clips(t))
	p.Play("missing")
	frame, done := p.Advance(10 * time.Second)
	assert.Equal(t, -1, frame)
	assert.False(t, done)
	assert.Equal(t, "missing", p.Key())
}
