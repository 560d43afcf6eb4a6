// Package combat gates attacks and skills, and turns a fired keyframe into a
// hit result with damage, shape and extra effects.
package combat

import (
	"errors"

	"github.com/cory-johannsen/brawl/internal/game/animation"
)

var (
	// ErrCooldownActive is returned when the ability's cooldown has not elapsed.
	ErrCooldownActive = errors.New("combat: cooldown active")
	// ErrInsufficientResource is returned when the caster lacks the mana cost.
	ErrInsufficientResource = errors.New("combat: insufficient resource")
	// ErrUnknownAbility is returned for an ability id with no definition.
	ErrUnknownAbility = errors.New("combat: unknown ability")
	// ErrSkillLocked is returned when a skill has not been unlocked.
	ErrSkillLocked = errors.New("combat: skill locked")

	ErrInvalidTransition      = animation.ErrInvalidTransition
	ErrMissingAnimationConfig = animation.ErrMissingAnimationConfig
)
