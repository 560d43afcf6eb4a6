package character

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/game/ability"
	"github.com/cory-johannsen/brawl/internal/game/animation"
	"github.com/cory-johannsen/brawl/internal/game/combat"
	"github.com/cory-johannsen/brawl/internal/game/event"
)

// Attack starts the class's basic attack. The hit itself is delivered by
// FrameUpdate once the attack clip reaches its keyframe.
//
// Postcondition: on error nothing has changed.
func (c *Character) Attack() error {
	if err := c.gate(true); err != nil {
		return err
	}
	return c.resolver.ResolveBasicAttack()
}

// UseSkill starts skill abilityID: mana is spent and the cooldown started
// together, or not at all.
func (c *Character) UseSkill(abilityID string) error {
	if err := c.gate(true); err != nil {
		return err
	}
	a, ok := c.deps.Abilities.Get(abilityID)
	if !ok || a.Kind != ability.KindSkill {
		return fmt.Errorf("%w: %q", combat.ErrUnknownAbility, abilityID)
	}
	if !c.unlocked(abilityID) {
		return fmt.Errorf("%w: %q", combat.ErrSkillLocked, abilityID)
	}
	return c.resolver.ResolveAbility(abilityID)
}

// TakeDamage applies an incoming hit and returns the health actually lost.
// It returns 0 while invulnerable, once dead, after teardown, or for a
// non-positive amount. A surviving hit opens the invulnerability window and
// requests Hurt; a lethal one moves to Die exactly once.
func (c *Character) TakeDamage(amount int, damageType ability.DamageType, attacker string) int {
	if c.closed || c.dead || amount <= 0 {
		return 0
	}
	if c.Invulnerable() {
		c.logger.Debug("damage ignored while invulnerable", zap.String("attacker", attacker))
		return 0
	}
	dealt := combat.Mitigate(amount, c.derived.Get(damageType.DefenseStat()))
	if dealt > c.health {
		dealt = c.health
	}
	c.health -= dealt
	c.publish(event.TopicDamaged, Damage{Amount: dealt, DamageType: damageType, Attacker: attacker, Health: c.health})
	if c.health == 0 {
		c.die(attacker)
		return dealt
	}
	c.sched.Start(invulnerableKey, c.tuning.InvulnerabilityWindow, nil)
	if err := c.machine.Request(animation.Request{Kind: animation.KindHurt, Key: c.class.Hurt()}); err != nil {
		c.logger.Warn("hurt not played", zap.Error(err))
	}
	return dealt
}

// Stun blocks actions and movement for d.
func (c *Character) Stun(d time.Duration) {
	if c.gate(false) != nil || d <= 0 {
		return
	}
	c.sched.Start(stunKey, d, nil)
	if body := c.deps.Body; body != nil {
		_, vy := body.Velocity()
		body.SetVelocity(0, vy)
	}
}

// Update advances the animation machine from sig. Input ignored because an
// Attack or Hurt clip holds the lock is reported as animation.ErrInvalidTransition.
func (c *Character) Update(sig animation.Signals) error {
	if err := c.gate(false); err != nil {
		return err
	}
	if sig.VX > 0 {
		c.facing = 1
	} else if sig.VX < 0 {
		c.facing = -1
	}
	return c.machine.Update(sig)
}

// SyncBody samples the attached body and calls Update.
func (c *Character) SyncBody() error {
	if c.deps.Body == nil {
		return ErrNoBody
	}
	vx, vy := c.deps.Body.Velocity()
	return c.Update(animation.Signals{Grounded: c.deps.Body.Grounded(), VX: vx, VY: vy})
}

// FrameUpdate reports the current frame of the playing clip. It returns the
// hit result on the frame the attack keyframe fires, and nil otherwise.
func (c *Character) FrameUpdate(frame int) *combat.Result {
	if c.gate(false) != nil {
		return nil
	}
	kf, ok := c.machine.Frame(frame)
	if !ok {
		return nil
	}
	return c.resolver.Keyframe(kf)
}

// AnimationComplete reports that the clip key finished playing.
func (c *Character) AnimationComplete(key string) error {
	if err := c.gate(false); err != nil {
		return err
	}
	return c.machine.Complete(key)
}

// Move sets horizontal velocity to dir * Speed. dir is clamped to [-1, 1].
func (c *Character) Move(dir int) error {
	if err := c.gate(true); err != nil {
		return err
	}
	if c.deps.Body == nil {
		return ErrNoBody
	}
	if c.machine.Locked() {
		return animation.ErrInvalidTransition
	}
	dir = clamp(dir, -1, 1)
	if dir != 0 {
		c.facing = dir
	}
	_, vy := c.deps.Body.Velocity()
	c.deps.Body.SetVelocity(float64(dir)*c.derived.Speed, vy)
	return nil
}

// Jump launches a grounded character upward with JumpForce.
func (c *Character) Jump() error {
	if err := c.gate(true); err != nil {
		return err
	}
	if c.deps.Body == nil {
		return ErrNoBody
	}
	if c.machine.Locked() || !c.deps.Body.Grounded() {
		return animation.ErrInvalidTransition
	}
	vx, _ := c.deps.Body.Velocity()
	c.deps.Body.SetVelocity(vx, -c.derived.JumpForce)
	return nil
}

// Teardown cancels every timer the character owns. Later scheduler
// callbacks never reach the character and every action fails with ErrTornDown.
// Teardown is idempotent.
func (c *Character) Teardown() {
	if c.closed {
		return
	}
	c.release()
	c.closed = true
	c.logger.Info("character torn down")
	c.publish(event.TopicTeardown, nil)
}

func (c *Character) die(killer string) {
	if c.dead {
		return
	}
	c.dead = true
	err := c.machine.Request(animation.Request{Kind: animation.KindDie, Key: c.class.DeathAnimation})
	if err != nil && !errors.Is(err, animation.ErrInvalidTransition) {
		c.logger.Warn("die request failed", zap.Error(err))
	}
	c.release()
	c.logger.Info("character died", zap.String("killer", killer))
	c.publish(event.TopicDied, killer)
}

// release cancels all pending timers: modifier expiries first, then the
// scheduler itself.
func (c *Character) release() {
	c.ledger.Close()
	c.sched.Close()
}
