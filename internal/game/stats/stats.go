// Package stats computes a character's derived combat statistics from base
// attributes, a class strategy, and summed modifier deltas.
package stats

import (
	"fmt"
	"sort"
)

// Attributes holds the base build of a character.
//
// Invariant: every field is >= 0.
type Attributes struct {
	Strength     int `json:"strength" yaml:"strength"`
	Agility      int `json:"agility" yaml:"agility"`
	Vitality     int `json:"vitality" yaml:"vitality"`
	Intelligence int `json:"intelligence" yaml:"intelligence"`
}

// Validate reports an error when any attribute is negative.
func (a Attributes) Validate() error {
	switch {
	case a.Strength < 0:
		return fmt.Errorf("strength must be >= 0, got %d", a.Strength)
	case a.Agility < 0:
		return fmt.Errorf("agility must be >= 0, got %d", a.Agility)
	case a.Vitality < 0:
		return fmt.Errorf("vitality must be >= 0, got %d", a.Vitality)
	case a.Intelligence < 0:
		return fmt.Errorf("intelligence must be >= 0, got %d", a.Intelligence)
	}
	return nil
}

// Grow returns a copy with every attribute increased by n.
//
// Precondition: n >= 0.
// Postcondition: every field of the result is >= the matching field of a.
func (a Attributes) Grow(n int) Attributes {
	if n < 0 {
		n = 0
	}
	return Attributes{
		Strength:     a.Strength + n,
		Agility:      a.Agility + n,
		Vitality:     a.Vitality + n,
		Intelligence: a.Intelligence + n,
	}
}

// Stat names one field of Derived. It is the key type of Deltas.
type Stat string

const (
	PhysicalAttack  Stat = "physical_attack"
	MagicAttack     Stat = "magic_attack"
	PhysicalDefense Stat = "physical_defense"
	MagicDefense    Stat = "magic_defense"
	Speed           Stat = "speed"
	JumpForce       Stat = "jump_force"
	MaxHealth       Stat = "max_health"
	MaxMana         Stat = "max_mana"
	CriticalChance  Stat = "critical_chance"
)

// AllStats lists every Stat in a fixed order.
var AllStats = []Stat{
	PhysicalAttack, MagicAttack, PhysicalDefense, MagicDefense,
	Speed, JumpForce, MaxHealth, MaxMana, CriticalChance,
}

// Valid reports whether s names a known stat.
func (s Stat) Valid() bool {
	for _, k := range AllStats {
		if k == s {
			return true
		}
	}
	return false
}

// Deltas maps stats to additive adjustments.
type Deltas map[Stat]float64

// Clone returns an independent copy of d.
func (d Deltas) Clone() Deltas {
	out := make(Deltas, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Keys returns the stats present in d in AllStats order.
func (d Deltas) Keys() []Stat {
	out := make([]Stat, 0, len(d))
	for _, s := range AllStats {
		if _, ok := d[s]; ok {
			out = append(out, s)
		}
	}
	// unknown stats sort after the known ones so iteration order stays fixed
	var unknown []Stat
	for s := range d {
		if !s.Valid() {
			unknown = append(unknown, s)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return append(out, unknown...)
}

// Derived holds the combat-usable numbers of a character.
//
// Derived values are never clamped; penalty modifiers may push them negative.
type Derived struct {
	PhysicalAttack  float64 `json:"physical_attack"`
	MagicAttack     float64 `json:"magic_attack"`
	PhysicalDefense float64 `json:"physical_defense"`
	MagicDefense    float64 `json:"magic_defense"`
	Speed           float64 `json:"speed"`
	JumpForce       float64 `json:"jump_force"`
	MaxHealth       float64 `json:"max_health"`
	MaxMana         float64 `json:"max_mana"`
	CriticalChance  float64 `json:"critical_chance"`
}

// Get returns the value of stat s, or 0 for an unknown stat.
func (d Derived) Get(s Stat) float64 {
	switch s {
	case PhysicalAttack:
		return d.PhysicalAttack
	case MagicAttack:
		return d.MagicAttack
	case PhysicalDefense:
		return d.PhysicalDefense
	case MagicDefense:
		return d.MagicDefense
	case Speed:
		return d.Speed
	case JumpForce:
		return d.JumpForce
	case MaxHealth:
		return d.MaxHealth
	case MaxMana:
		return d.MaxMana
	case CriticalChance:
		return d.CriticalChance
	default:
		return 0
	}
}

// field returns a pointer to the field backing s, or nil for an unknown stat.
func (d *Derived) field(s Stat) *float64 {
	switch s {
	case PhysicalAttack:
		return &d.PhysicalAttack
	case MagicAttack:
		return &d.MagicAttack
	case PhysicalDefense:
		return &d.PhysicalDefense
	case MagicDefense:
		return &d.MagicDefense
	case Speed:
		return &d.Speed
	case JumpForce:
		return &d.JumpForce
	case MaxHealth:
		return &d.MaxHealth
	case MaxMana:
		return &d.MaxMana
	case CriticalChance:
		return &d.CriticalChance
	default:
		return nil
	}
}

// Plus returns d with every delta added, in AllStats order. Unknown stats are ignored.
func (d Derived) Plus(deltas Deltas) Derived {
	for _, s := range deltas.Keys() {
		if f := d.field(s); f != nil {
			*f += deltas[s]
		}
	}
	return d
}

// With returns d with stat s set to v. Unknown stats leave d unchanged.
func (d Derived) With(s Stat, v float64) Derived {
	if f := d.field(s); f != nil {
		*f = v
	}
	return d
}

// Base computes the class-agnostic derived stats for a.
func Base(a Attributes) Derived {
	return Derived{
		PhysicalAttack:  5 + float64(a.Strength)*2,
		MagicAttack:     5 + float64(a.Intelligence)*2,
		PhysicalDefense: 5 + float64(a.Vitality),
		MagicDefense:    5 + float64(a.Intelligence),
		Speed:           100 + float64(a.Agility)*5,
		JumpForce:       350 + float64(a.Agility)*2,
		MaxHealth:       100 + float64(a.Vitality)*10,
		MaxMana:         50 + float64(a.Intelligence)*5,
	}
}

// Recompute is the single writer of Derived values: base stats, then the
// strategy's adjustments, then the summed modifier deltas.
//
// Precondition: s may be nil (treated as the class-agnostic base).
// Postcondition: identical inputs yield bit-identical output.
func Recompute(a Attributes, mods Deltas, s Strategy) Derived {
	d := Base(a)
	if s != nil {
		d = s.Adjust(a, d)
	}
	return d.Plus(mods)
}
