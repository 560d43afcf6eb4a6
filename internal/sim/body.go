// Package sim is a headless host for characters: it supplies the physics
// body, clip player, target enumeration and fixed-step loop a game engine
// would otherwise provide.
package sim

import "time"

// DefaultGravity is the downward acceleration in px/s². Screen coordinates:
// +y points down and the ground is y == 0.
const DefaultGravity = 1800.0

// Hitbox size of every fighter. Feet sit at the body position.
const (
	BodyWidth  = 40.0
	BodyHeight = 80.0
)

// Body is a kinematic point with gravity and a flat floor.
type Body struct {
	X, Y    float64
	vx, vy  float64
	Gravity float64
}

// NewBody places a grounded body at x.
func NewBody(x float64) *Body {
	return &Body{X: x, Gravity: DefaultGravity}
}

// Grounded reports whether the body stands on the floor and is not moving up.
func (b *Body) Grounded() bool { return b.Y >= 0 && b.vy >= 0 }

// Velocity returns the current velocity.
func (b *Body) Velocity() (vx, vy float64) { return b.vx, b.vy }

// SetVelocity replaces the velocity.
func (b *Body) SetVelocity(vx, vy float64) { b.vx, b.vy = vx, vy }

// Step integrates one tick with semi-implicit Euler and lands the body on the floor.
//
// Postcondition: Y <= 0.
func (b *Body) Step(dt time.Duration) {
	s := dt.Seconds()
	if !b.Grounded() {
		b.vy += b.Gravity * s
	}
	b.X += b.vx * s
	b.Y += b.vy * s
	if b.Y >= 0 {
		b.Y = 0
		if b.vy > 0 {
			b.vy = 0
		}
	}
}

// Clamp keeps X inside [minX, maxX] and stops horizontal motion at a wall.
func (b *Body) Clamp(minX, maxX float64) {
	switch {
	case b.X < minX:
		b.X, b.vx = minX, 0
	case b.X > maxX:
		b.X, b.vx = maxX, 0
	}
}

// Center returns the middle of the hitbox.
func (b *Body) Center() (x, y float64) { return b.X, b.Y - BodyHeight/2 }

// box is an axis-aligned rectangle given by its center and half extents.
type box struct {
	cx, cy, hw, hh float64
}

func (b *Body) box() box {
	x, y := b.Center()
	return box{cx: x, cy: y, hw: BodyWidth / 2, hh: BodyHeight / 2}
}

func (a box) overlaps(o box) bool {
	return abs(a.cx-o.cx) <= a.hw+o.hw && abs(a.cy-o.cy) <= a.hh+o.hh
}

func (a box) contains(x, y float64) bool {
	return abs(a.cx-x) <= a.hw && abs(a.cy-y) <= a.hh
}

// touchesCircle reports whether the circle at (x, y) with radius r reaches a.
func (a box) touchesCircle(x, y, r float64) bool {
	dx := max(abs(x-a.cx)-a.hw, 0)
	dy := max(abs(y-a.cy)-a.hh, 0)
	return dx*dx+dy*dy <= r*r
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
