// Package character is the aggregate root that owns one character's stats,
// modifier ledger, cooldown scheduler, animation machine and combat resolver.
package character

import (
	"errors"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/game/ability"
	"github.com/cory-johannsen/brawl/internal/game/animation"
	"github.com/cory-johannsen/brawl/internal/game/combat"
	"github.com/cory-johannsen/brawl/internal/game/cooldown"
	"github.com/cory-johannsen/brawl/internal/game/dice"
	"github.com/cory-johannsen/brawl/internal/game/event"
	"github.com/cory-johannsen/brawl/internal/game/item"
	"github.com/cory-johannsen/brawl/internal/game/modifier"
	"github.com/cory-johannsen/brawl/internal/game/ruleset"
	"github.com/cory-johannsen/brawl/internal/game/stats"
)

var (
	// ErrAlreadyDead is returned by actions on a dead character.
	ErrAlreadyDead = errors.New("character: already dead")
	// ErrTornDown is returned by actions on a character after Teardown.
	ErrTornDown = errors.New("character: torn down")
	// ErrStunned is returned by actions while a stun is active.
	ErrStunned = errors.New("character: stunned")
	// ErrUnknownItem is returned by Equip for an undefined item.
	ErrUnknownItem = errors.New("character: unknown item")
	// ErrNoBody is returned by Move and Jump when no physics body is attached.
	ErrNoBody = errors.New("character: no body attached")
)

const (
	invulnerableKey = "invulnerable"
	stunKey         = "stun"
)

// Body is the physics collaborator.
type Body interface {
	Grounded() bool
	Velocity() (vx, vy float64)
	SetVelocity(vx, vy float64)
}

// Renderer is the presentation collaborator.
type Renderer interface {
	// Play starts the clip named key.
	Play(key string)
	// Wear shows appearance in slot; an empty appearance clears the slot.
	Wear(slot item.Slot, appearance string)
}

// Tuning holds the numbers that are configuration rather than content.
type Tuning struct {
	InvulnerabilityWindow time.Duration
	CriticalDamage        float64
	Animation             animation.Options
	BaseExpThreshold      int
	SkillPointsPerLevel   int
	AttributeGrowth       int
}

// DefaultTuning returns the values used when no configuration overrides them.
func DefaultTuning() Tuning {
	return Tuning{
		InvulnerabilityWindow: 800 * time.Millisecond,
		CriticalDamage:        combat.DefaultCriticalDamage,
		Animation:             animation.DefaultOptions(),
		BaseExpThreshold:      100,
		SkillPointsPerLevel:   1,
		AttributeGrowth:       1,
	}
}

// Deps are the shared content registries and collaborators a character is
// built from. Body, Renderer and Bus may be nil.
type Deps struct {
	Abilities  *ability.Registry
	Items      *item.Registry
	Clips      *animation.Registry
	Strategies *stats.Strategies
	Timers     cooldown.Timers
	Dice       dice.Source
	Bus        event.Bus
	Body       Body
	Renderer   Renderer
	Logger     *zap.Logger
}

// Damage is the payload of a character.damaged event.
type Damage struct {
	Amount     int
	DamageType ability.DamageType
	Attacker   string
	Health     int
}

// Character is a single-threaded aggregate: every method must be called
// from the owner's loop, the same loop that runs scheduler callbacks.
type Character struct {
	id    string
	name  string
	class *ruleset.Class

	strategy stats.Strategy
	attrs    stats.Attributes
	derived  stats.Derived

	level       int
	experience  int
	nextExp     int
	skillPoints int
	health      int
	mana        int
	facing      int

	equipped map[item.Slot]*item.Item

	sched    *cooldown.Scheduler
	ledger   *modifier.Ledger
	machine  *animation.Machine
	resolver *combat.Resolver

	deps   Deps
	tuning Tuning
	dead   bool
	closed bool
	logger *zap.Logger
}

// ID returns the character's unique id.
func (c *Character) ID() string { return c.id }

// Name returns the display name.
func (c *Character) Name() string { return c.name }

// Class returns the class definition.
func (c *Character) Class() *ruleset.Class { return c.class }

// Stats returns the current derived stats.
func (c *Character) Stats() stats.Derived { return c.derived }

// Attributes returns the base attributes.
func (c *Character) Attributes() stats.Attributes { return c.attrs }

// State returns the animation state.
func (c *Character) State() animation.State { return c.machine.State() }

// Health returns current health.
func (c *Character) Health() int { return c.health }

// Mana returns current mana.
func (c *Character) Mana() int { return c.mana }

// MaxHealth returns floor(MaxHealth), never negative.
func (c *Character) MaxHealth() int { return floorNonNeg(c.derived.MaxHealth) }

// MaxMana returns floor(MaxMana), never negative.
func (c *Character) MaxMana() int { return floorNonNeg(c.derived.MaxMana) }

// Level returns the current level.
func (c *Character) Level() int { return c.level }

// Experience returns experience toward the next level.
func (c *Character) Experience() int { return c.experience }

// NextLevelExperience returns the threshold for the next level.
func (c *Character) NextLevelExperience() int { return c.nextExp }

// SkillPoints returns unspent skill points.
func (c *Character) SkillPoints() int { return c.skillPoints }

// Facing is +1 for right and -1 for left.
func (c *Character) Facing() int { return c.facing }

// Dead reports whether the character has died.
func (c *Character) Dead() bool { return c.dead }

// Invulnerable reports whether the post-hit window is open.
func (c *Character) Invulnerable() bool { return !c.sched.IsReady(invulnerableKey) }

// Stunned reports whether a stun is active.
func (c *Character) Stunned() bool { return !c.sched.IsReady(stunKey) }

// CooldownRemaining returns the time left before abilityID is ready.
func (c *Character) CooldownRemaining(abilityID string) time.Duration {
	return c.sched.Remaining(combat.CooldownKey(abilityID))
}

// BuffRemaining returns the time left on sourceID, modifier.Permanent for a
// permanent source, or zero when it is not active.
func (c *Character) BuffRemaining(sourceID string) time.Duration {
	return c.ledger.Remaining(sourceID)
}

// Modifiers returns the active ledger source ids.
func (c *Character) Modifiers() []string { return c.ledger.Active() }

// UnlockedSkills returns every usable skill: those unlocked by level plus
// those granted by equipment, sorted and without duplicates.
func (c *Character) UnlockedSkills() []string {
	set := make(map[string]struct{})
	for _, id := range c.class.UnlockedAt(c.level) {
		set[id] = struct{}{}
	}
	for _, it := range c.equipped {
		for _, id := range it.GrantsSkills {
			set[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (c *Character) unlocked(abilityID string) bool {
	for _, id := range c.UnlockedSkills() {
		if id == abilityID {
			return true
		}
	}
	return false
}

// recompute is the only writer of c.derived. Health and mana are clamped to
// the new maxima.
func (c *Character) recompute() {
	c.derived = stats.Recompute(c.attrs, c.ledger.Totals(), c.strategy)
	c.health = clamp(c.health, 0, c.MaxHealth())
	c.mana = clamp(c.mana, 0, c.MaxMana())
}

func (c *Character) publish(topic event.Topic, payload any) {
	c.deps.Bus.Publish(event.Event{
		Topic:   topic,
		Source:  c.id,
		At:      c.sched.Now(),
		Payload: payload,
	})
}

// gate returns the error shared by every action on a dead, torn down or
// stunned character.
func (c *Character) gate(checkStun bool) error {
	switch {
	case c.closed:
		return ErrTornDown
	case c.dead:
		return ErrAlreadyDead
	case checkStun && c.Stunned():
		return ErrStunned
	}
	return nil
}

func floorNonNeg(v float64) int {
	f := math.Floor(v)
	if f < 0 {
		return 0
	}
	return int(f)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// owner adapts Character to combat.Owner without exporting SpendMana.
type owner struct{ c *Character }

func (o owner) ID() string           { return o.c.id }
func (o owner) Stats() stats.Derived { return o.c.derived }
func (o owner) Mana() int            { return o.c.mana }
func (o owner) SpendMana(n int)      { o.c.mana = clamp(o.c.mana-n, 0, o.c.MaxMana()) }
func (o owner) Facing() int          { return o.c.facing }
