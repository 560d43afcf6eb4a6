package combat

import (
	"math"
	"time"

	"github.com/cory-johannsen/brawl/internal/game/ability"
)

// Shape is a resolved hit area relative to the attacker's position, already
// mirrored for the attacker's facing.
type Shape struct {
	Kind    ability.ShapeKind
	OffsetX float64
	OffsetY float64
	Width   float64
	Height  float64
	Radius  float64
	// VX, VY is the projectile velocity.
	VX, VY float64
}

// EffectKind names an extra effect of a hit.
type EffectKind string

const (
	EffectBuff EffectKind = "buff"
	EffectStun EffectKind = "stun"
)

// Effect is one extra effect carried by a Result.
type Effect struct {
	Kind     EffectKind
	SourceID string
	Duration time.Duration
}

// Result is the outcome of one fired keyframe.
type Result struct {
	AttackerID string
	AbilityID  string
	Damage     int
	DamageType ability.DamageType
	IsCritical bool
	Range      float64
	Shape      Shape
	Effects    []Effect
}

// Stun returns the stun duration carried by r, or zero.
func (r *Result) Stun() time.Duration {
	for _, e := range r.Effects {
		if e.Kind == EffectStun {
			return e.Duration
		}
	}
	return 0
}

// Mitigate applies flat defense to incoming damage and floors the
// difference, so fractional defense still counts. At least one point always
// gets through.
//
// Postcondition: result >= 1.
func Mitigate(incoming int, defense float64) int {
	out := math.Floor(float64(incoming) - defense)
	if out < 1 {
		return 1
	}
	return int(out)
}

// DefaultShapes is the hit area per attack style for abilities that do not
// declare their own. Offsets are for a right-facing attacker.
var DefaultShapes = map[ability.Style]ability.ShapeSpec{
	ability.StyleMelee:  {Kind: ability.ShapeRect, Width: 60, Height: 40, OffsetX: 30},
	ability.StyleCaster: {Kind: ability.ShapeRadius, Radius: 80},
	ability.StyleRanged: {Kind: ability.ShapeProjectile, Speed: 420},
}

// ShapeFor resolves the hit area of a for an attacker with style facing
// right (facing >= 0) or left (facing < 0).
func ShapeFor(a *ability.Ability, style ability.Style, facing int) Shape {
	spec, ok := DefaultShapes[style]
	if a.Shape != nil {
		spec, ok = *a.Shape, true
	}
	if !ok {
		spec = DefaultShapes[ability.StyleMelee]
	}
	dir := 1.0
	if facing < 0 {
		dir = -1
	}
	s := Shape{Kind: spec.Kind}
	switch spec.Kind {
	case ability.ShapeRect:
		s.Width, s.Height = spec.Width, spec.Height
		s.OffsetX, s.OffsetY = spec.OffsetX*dir, spec.OffsetY
		if a.Range > 0 && a.Shape == nil {
			s.Width = a.Range
			s.OffsetX = a.Range / 2 * dir
		}
	case ability.ShapeRadius:
		s.Radius = spec.Radius
		s.OffsetX, s.OffsetY = spec.OffsetX*dir, spec.OffsetY
		if a.Range > 0 && a.Shape == nil {
			s.Radius = a.Range
		}
	case ability.ShapeProjectile:
		s.VX = spec.Speed * dir
	}
	return s
}
