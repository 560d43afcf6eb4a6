// Package ability defines basic attacks and skills loaded from YAML content.
package ability

import (
	"errors"
	"fmt"
	"time"

	"github.com/cory-johannsen/brawl/internal/game/stats"
)

// Kind separates basic attacks from unlockable skills.
type Kind string

const (
	KindBasic Kind = "basic"
	KindSkill Kind = "skill"
)

// DamageType selects the attacking and the mitigating stat.
type DamageType string

const (
	Physical DamageType = "physical"
	Magic    DamageType = "magic"
)

// AttackStat returns the stat that scales outgoing damage of type t.
func (t DamageType) AttackStat() stats.Stat {
	if t == Magic {
		return stats.MagicAttack
	}
	return stats.PhysicalAttack
}

// DefenseStat returns the stat that mitigates incoming damage of type t.
func (t DamageType) DefenseStat() stats.Stat {
	if t == Magic {
		return stats.MagicDefense
	}
	return stats.PhysicalDefense
}

// ShapeKind names a hit-area descriptor.
type ShapeKind string

const (
	ShapeRect       ShapeKind = "rect"
	ShapeRadius     ShapeKind = "radius"
	ShapeProjectile ShapeKind = "projectile"
)

// ShapeSpec is the declared hit area of an ability. Offsets are given for a
// right-facing character.
type ShapeSpec struct {
	Kind    ShapeKind `yaml:"kind"`
	Width   float64   `yaml:"width"`
	Height  float64   `yaml:"height"`
	OffsetX float64   `yaml:"offset_x"`
	OffsetY float64   `yaml:"offset_y"`
	Radius  float64   `yaml:"radius"`
	Speed   float64   `yaml:"speed"`
}

// Validate reports whether the fields required by Kind are set.
func (s ShapeSpec) Validate() error {
	switch s.Kind {
	case ShapeRect:
		if s.Width <= 0 || s.Height <= 0 {
			return errors.New("rect shape needs positive width and height")
		}
	case ShapeRadius:
		if s.Radius <= 0 {
			return errors.New("radius shape needs a positive radius")
		}
	case ShapeProjectile:
		if s.Speed <= 0 {
			return errors.New("projectile shape needs a positive speed")
		}
	default:
		return fmt.Errorf("unknown shape kind %q", s.Kind)
	}
	return nil
}

// BuffSpec is a timed modifier the ability applies to its user.
type BuffSpec struct {
	Deltas     stats.Deltas `yaml:"deltas"`
	DurationMs int          `yaml:"duration_ms"`
}

// Duration returns the buff length.
func (b BuffSpec) Duration() time.Duration { return time.Duration(b.DurationMs) * time.Millisecond }

// Ability is the static definition of an attack or skill.
type Ability struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Kind        Kind       `yaml:"kind"`
	DamageType  DamageType `yaml:"damage_type"`
	Multiplier  float64    `yaml:"multiplier"`
	ManaCost    int        `yaml:"mana_cost"`
	CooldownMs  int        `yaml:"cooldown_ms"`
	Animation   string     `yaml:"animation"`
	Range       float64    `yaml:"range"`
	Shape       *ShapeSpec `yaml:"shape"`
	Buff        *BuffSpec  `yaml:"buff"`
	// StunMs, when positive, is broadcast to whatever the hit lands on.
	StunMs int `yaml:"stun_ms"`
}

// Cooldown returns the ability's cooldown.
func (a *Ability) Cooldown() time.Duration { return time.Duration(a.CooldownMs) * time.Millisecond }

// Stun returns the broadcast stun length.
func (a *Ability) Stun() time.Duration { return time.Duration(a.StunMs) * time.Millisecond }

// DealsDamage reports whether the ability produces a damaging hit.
func (a *Ability) DealsDamage() bool { return a.Multiplier > 0 }

// Validate checks a loaded definition.
func (a *Ability) Validate() error {
	if a.ID == "" {
		return errors.New("ability: id must be non-empty")
	}
	if a.Kind != KindBasic && a.Kind != KindSkill {
		return fmt.Errorf("ability %q: kind must be basic or skill, got %q", a.ID, a.Kind)
	}
	if a.DamageType != Physical && a.DamageType != Magic {
		return fmt.Errorf("ability %q: damage_type must be physical or magic, got %q", a.ID, a.DamageType)
	}
	if a.Multiplier < 0 || a.ManaCost < 0 || a.CooldownMs < 0 || a.StunMs < 0 {
		return fmt.Errorf("ability %q: multiplier, mana_cost, cooldown_ms and stun_ms must be >= 0", a.ID)
	}
	if a.Animation == "" {
		return fmt.Errorf("ability %q: animation must be non-empty", a.ID)
	}
	if a.Shape != nil {
		if err := a.Shape.Validate(); err != nil {
			return fmt.Errorf("ability %q: %w", a.ID, err)
		}
	}
	if a.Buff != nil {
		if a.Buff.DurationMs <= 0 {
			return fmt.Errorf("ability %q: buff duration_ms must be > 0", a.ID)
		}
		for s := range a.Buff.Deltas {
			if !s.Valid() {
				return fmt.Errorf("ability %q: buff names unknown stat %q", a.ID, s)
			}
		}
	}
	return nil
}

// BuffSourceID is the ledger source id under which a's buff is recorded.
func BuffSourceID(id string) string { return "ability:" + id }

// Style is a class's attack style. It picks the hit shape of abilities that
// do not declare their own.
type Style string

const (
	StyleMelee  Style = "melee"
	StyleCaster Style = "caster"
	StyleRanged Style = "ranged"
)

// Valid reports whether s is a known style.
func (s Style) Valid() bool {
	return s == StyleMelee || s == StyleCaster || s == StyleRanged
}
