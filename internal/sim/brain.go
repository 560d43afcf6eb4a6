package sim

import (
	"github.com/cory-johannsen/brawl/internal/game/ability"
	"github.com/cory-johannsen/brawl/internal/game/dice"
)

// Reach is how close a fighter of each style gets before it attacks.
var Reach = map[ability.Style]float64{
	ability.StyleMelee:  55,
	ability.StyleCaster: 90,
	ability.StyleRanged: 450,
}

// Brain drives one fighter: approach the nearest enemy, then attack,
// preferring a ready skill some of the time.
type Brain struct {
	roller     *dice.Roller
	SkillBias  float64
	JumpChance float64
}

// NewBrain creates a Brain drawing decisions from roller.
func NewBrain(roller *dice.Roller) *Brain {
	return &Brain{roller: roller, SkillBias: 0.35, JumpChance: 0.01}
}

// Act issues this tick's input for f. Rejected inputs are expected (cooldowns,
// locks, stuns) and ignored; the next tick tries again.
func (b *Brain) Act(a *Arena, f *Fighter) {
	ch := f.Character
	if ch.Dead() || ch.Stunned() {
		return
	}
	tx, ok := a.nearestEnemy(f)
	if !ok {
		_ = ch.Move(0)
		return
	}
	dx := tx - f.Body.X
	dir := 1
	if dx < 0 {
		dir = -1
	}

	if abs(dx) > Reach[ch.Class().Style] {
		_ = ch.Move(dir)
		if f.Body.Grounded() && b.roller.Chance("jump:"+ch.Name(), b.JumpChance) {
			_ = ch.Jump()
		}
		return
	}

	if ch.Facing() != dir {
		_ = ch.Move(dir)
	}
	_ = ch.Move(0)

	if skills := ch.UnlockedSkills(); len(skills) > 0 && b.roller.Chance("skill:"+ch.Name(), b.SkillBias) {
		first := b.roller.Intn(len(skills))
		for i := range skills {
			if ch.UseSkill(skills[(first+i)%len(skills)]) == nil {
				return
			}
		}
	}
	_ = ch.Attack()
}
