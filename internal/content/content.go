// Package content loads every static definition the arena needs and
// cross-checks the references between them.
package content

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/config"
	"github.com/cory-johannsen/brawl/internal/game/ability"
	"github.com/cory-johannsen/brawl/internal/game/animation"
	"github.com/cory-johannsen/brawl/internal/game/item"
	"github.com/cory-johannsen/brawl/internal/game/ruleset"
	"github.com/cory-johannsen/brawl/internal/game/stats"
	"github.com/cory-johannsen/brawl/internal/scripting"
)

// Bundle holds the loaded registries. Every registry is read-only once Load
// returns, so a Bundle may be shared by concurrently running arenas.
type Bundle struct {
	Abilities  *ability.Registry
	Clips      *animation.Registry
	Classes    *ruleset.ClassRegistry
	Items      *item.Registry
	Strategies *stats.Strategies
	// Scripts owns the Lua VMs behind scripted strategies. Nil when
	// scripting is disabled.
	Scripts *scripting.Manager
}

// Load reads abilities, animation clips, classes and items from the
// configured directories, registers the built-in and scripted strategies,
// and verifies every cross reference.
//
// Precondition: cfg.AbilitiesDir, AnimationsDir, ClassesDir and ItemsDir name
// readable directories. An empty ScriptsDir disables scripting.
// Postcondition: Returns a verified Bundle or a non-nil error listing every
// broken reference. The caller must Close the Bundle.
func Load(cfg config.ContentConfig, logger *zap.Logger) (*Bundle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abilities, err := ability.LoadDirectory(cfg.AbilitiesDir)
	if err != nil {
		return nil, fmt.Errorf("loading abilities: %w", err)
	}
	clips, err := animation.LoadDirectory(cfg.AnimationsDir)
	if err != nil {
		return nil, fmt.Errorf("loading animations: %w", err)
	}
	classes, err := ruleset.LoadClassRegistry(cfg.ClassesDir)
	if err != nil {
		return nil, fmt.Errorf("loading classes: %w", err)
	}
	items, err := item.LoadDirectory(cfg.ItemsDir)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}

	b := &Bundle{
		Abilities:  abilities,
		Clips:      clips,
		Classes:    classes,
		Items:      items,
		Strategies: stats.DefaultStrategies(logger),
	}
	if cfg.ScriptsDir != "" {
		b.Scripts = scripting.NewManager(0, logger)
		if _, err := b.Scripts.LoadDirectory(cfg.ScriptsDir); err != nil {
			b.Close()
			return nil, fmt.Errorf("loading scripts: %w", err)
		}
		b.Scripts.RegisterInto(b.Strategies)
	}

	if err := b.Verify(); err != nil {
		b.Close()
		return nil, err
	}
	logger.Info("content loaded",
		zap.Int("abilities", len(abilities.All())),
		zap.Int("animations", len(clips.Keys())),
		zap.Strings("classes", classes.IDs()),
		zap.Int("items", len(items.All())),
		zap.Strings("strategies", b.Strategies.IDs()),
	)
	return b, nil
}

// Verify checks every class against the abilities and clips, that every
// class strategy is registered, and that every item-granted skill exists.
func (b *Bundle) Verify() error {
	var errs []error
	for _, id := range b.Classes.IDs() {
		c, _ := b.Classes.Class(id)
		if err := c.Verify(b.Abilities, b.Clips); err != nil {
			errs = append(errs, err)
		}
		if _, ok := b.Strategies.Get(c.Strategy); !ok {
			errs = append(errs, fmt.Errorf("class %q: unknown strategy %q", c.ID, c.Strategy))
		}
	}
	for _, it := range b.Items.All() {
		for _, skill := range it.GrantsSkills {
			a, ok := b.Abilities.Get(skill)
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("item %q: grants unknown skill %q", it.ID, skill))
			case a.Kind != ability.KindSkill:
				errs = append(errs, fmt.Errorf("item %q: grants %q which is not a skill", it.ID, skill))
			default:
				if _, ok := b.Clips.Get(a.Animation); !ok {
					errs = append(errs, fmt.Errorf("item %q: skill %q has no animation config %q", it.ID, skill, a.Animation))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Close releases the scripting VMs.
func (b *Bundle) Close() {
	if b.Scripts != nil {
		b.Scripts.Close()
	}
}
