package sim_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/brawl/internal/sim"
)

func TestBody_JumpAndLand(t *testing.T) {
	b := sim.NewBody(10)
	assert.True(t, b.Grounded())

	b.SetVelocity(100, -600)
	assert.False(t, b.Grounded())
	b.Step(100 * time.Millisecond)
	assert.Less(t, b.Y, 0.0, "rising above the floor")
	assert.InDelta(t, 20.0, b.X, 1e-9)

	for range 100 {
		b.Step(16 * time.Millisecond)
	}
	assert.Equal(t, 0.0, b.Y)
	_, vy := b.Velocity()
	assert.Equal(t, 0.0, vy)
	assert.True(t, b.Grounded())
}

func TestBody_ClampStopsAtWalls(t *testing.T) {
	b := sim.NewBody(0)
	b.SetVelocity(-500, 0)
	b.Step(time.Second)
	b.Clamp(-100, 100)
	assert.Equal(t, -100.0, b.X)
	vx, _ := b.Velocity()
	assert.Equal(t, 0.0, vx)
}

func TestProperty_BodyNeverSinksBelowFloor(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := sim.NewBody(0)
		b.SetVelocity(
			rapid.Float64Range(-500, 500).Draw(rt, "vx"),
			rapid.Float64Range(-1000, 1000).Draw(rt, "vy"),
		)
		steps := rapid.IntRange(1, 200).Draw(rt, "steps")
		for range steps {
			b.Step(16 * time.Millisecond)
			if b.Y > 0 {
				rt.Fatalf("body below floor: y=%g", b.Y)
			}
		}
	})
}
