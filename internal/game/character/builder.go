package character

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/game/animation"
	"github.com/cory-johannsen/brawl/internal/game/combat"
	"github.com/cory-johannsen/brawl/internal/game/cooldown"
	"github.com/cory-johannsen/brawl/internal/game/event"
	"github.com/cory-johannsen/brawl/internal/game/item"
	"github.com/cory-johannsen/brawl/internal/game/modifier"
	"github.com/cory-johannsen/brawl/internal/game/ruleset"
)

// New builds a level 1 character of class with full health and mana.
// The class's strategy is resolved once here; an unknown strategy falls back
// to the class-agnostic base.
//
// Precondition: name must be non-empty; class must be non-nil; deps.Abilities,
// deps.Clips, deps.Strategies, deps.Timers and deps.Dice must be non-nil.
// Postcondition: Returns a Character in Idle, or a non-nil error.
func New(name string, class *ruleset.Class, deps Deps, tuning Tuning) (*Character, error) {
	if name == "" {
		return nil, errors.New("character name must not be empty")
	}
	if class == nil {
		return nil, errors.New("class must not be nil")
	}
	if err := class.Validate(); err != nil {
		return nil, err
	}
	if deps.Abilities == nil || deps.Clips == nil || deps.Strategies == nil || deps.Timers == nil || deps.Dice == nil {
		return nil, errors.New("abilities, clips, strategies, timers and dice must not be nil")
	}
	if _, ok := deps.Abilities.Get(class.BasicAttack); !ok {
		return nil, fmt.Errorf("class %q: %w: basic attack %q", class.ID, combat.ErrUnknownAbility, class.BasicAttack)
	}
	if err := tuning.Animation.Validate(); err != nil {
		return nil, fmt.Errorf("animation tuning: %w", err)
	}
	if deps.Items == nil {
		deps.Items = item.NewRegistry()
	}
	if deps.Bus == nil {
		deps.Bus = event.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if tuning.BaseExpThreshold <= 0 {
		tuning.BaseExpThreshold = DefaultTuning().BaseExpThreshold
	}

	id := uuid.NewString()
	logger := deps.Logger.With(zap.String("character", id), zap.String("class", class.ID))
	c := &Character{
		id:       id,
		name:     name,
		class:    class,
		strategy: deps.Strategies.Resolve(class.Strategy),
		attrs:    class.Attributes,
		level:    1,
		nextExp:  tuning.BaseExpThreshold,
		facing:   1,
		equipped: make(map[item.Slot]*item.Item),
		deps:     deps,
		tuning:   tuning,
		logger:   logger,
	}
	c.sched = cooldown.NewScheduler(deps.Timers, logger)
	c.ledger = modifier.NewLedger(c.sched, c.recompute, logger)
	c.machine = animation.NewMachine(deps.Clips, tuning.Animation, func(abilityID string) bool {
		return c.sched.IsReady(combat.CooldownKey(abilityID))
	}, logger)
	if deps.Renderer != nil {
		c.machine.OnEnter(func(_ animation.State, key string) { deps.Renderer.Play(key) })
	}
	c.resolver = combat.NewResolver(combat.Config{
		Owner:          owner{c},
		Style:          class.Style,
		BasicAttack:    class.BasicAttack,
		Abilities:      deps.Abilities,
		Scheduler:      c.sched,
		Machine:        c.machine,
		Ledger:         c.ledger,
		Dice:           deps.Dice,
		Bus:            deps.Bus,
		CriticalDamage: tuning.CriticalDamage,
		Logger:         deps.Logger,
	})
	c.recompute()
	c.restoreAll()
	logger.Info("character created",
		zap.String("name", name),
		zap.String("strategy", c.strategy.ID()),
	)
	return c, nil
}

func (c *Character) restoreAll() {
	c.health = c.MaxHealth()
	c.mana = c.MaxMana()
}
