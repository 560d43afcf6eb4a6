// Package ruleset loads class definitions: stat strategy, attack style,
// starting attributes and skill unlocks.
package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/brawl/internal/game/ability"
	"github.com/cory-johannsen/brawl/internal/game/animation"
	"github.com/cory-johannsen/brawl/internal/game/stats"
)

// SkillUnlock grants an ability once the character reaches Level.
type SkillUnlock struct {
	Ability string `yaml:"ability"`
	Level   int    `yaml:"level"`
}

// Class defines a playable class.
//
// Precondition: ID, Strategy, Style and BasicAttack must be non-empty after loading.
type Class struct {
	ID             string           `yaml:"id"`
	Name           string           `yaml:"name"`
	Description    string           `yaml:"description"`
	Strategy       string           `yaml:"strategy"`
	Style          ability.Style    `yaml:"attack_style"`
	Attributes     stats.Attributes `yaml:"attributes"`
	BasicAttack    string           `yaml:"basic_attack"`
	Skills         []SkillUnlock    `yaml:"skills"`
	HurtAnimation  string           `yaml:"hurt_animation"`
	DeathAnimation string           `yaml:"death_animation"`
}

// DefaultHurtAnimation is used when a class does not name its hurt clip.
const DefaultHurtAnimation = "hurt"

// Hurt returns the hurt clip key.
func (c *Class) Hurt() string {
	if c.HurtAnimation == "" {
		return DefaultHurtAnimation
	}
	return c.HurtAnimation
}

// UnlockedAt returns the skills available at level, sorted by unlock level
// then id.
func (c *Class) UnlockedAt(level int) []string {
	skills := append([]SkillUnlock(nil), c.Skills...)
	sort.SliceStable(skills, func(i, j int) bool {
		if skills[i].Level != skills[j].Level {
			return skills[i].Level < skills[j].Level
		}
		return skills[i].Ability < skills[j].Ability
	})
	var out []string
	for _, s := range skills {
		if s.Level <= level {
			out = append(out, s.Ability)
		}
	}
	return out
}

// Validate checks the fields that need no other content.
func (c *Class) Validate() error {
	if c.ID == "" {
		return errors.New("class: id must be non-empty")
	}
	if c.Strategy == "" {
		return fmt.Errorf("class %q: strategy must be non-empty", c.ID)
	}
	if !c.Style.Valid() {
		return fmt.Errorf("class %q: unknown attack_style %q", c.ID, c.Style)
	}
	if c.BasicAttack == "" {
		return fmt.Errorf("class %q: basic_attack must be non-empty", c.ID)
	}
	if err := c.Attributes.Validate(); err != nil {
		return fmt.Errorf("class %q: %w", c.ID, err)
	}
	for _, s := range c.Skills {
		if s.Ability == "" || s.Level < 1 {
			return fmt.Errorf("class %q: skill unlock needs an ability and level >= 1", c.ID)
		}
	}
	return nil
}

// Verify cross-checks c against loaded abilities and animation clips.
//
// Postcondition: returns nil iff every referenced ability exists with the
// right kind and every referenced clip is configured.
func (c *Class) Verify(abilities *ability.Registry, clips *animation.Registry) error {
	var errs []error
	check := func(id string, kind ability.Kind) {
		a, ok := abilities.Get(id)
		if !ok {
			errs = append(errs, fmt.Errorf("class %q: unknown ability %q", c.ID, id))
			return
		}
		if a.Kind != kind {
			errs = append(errs, fmt.Errorf("class %q: ability %q is %s, want %s", c.ID, id, a.Kind, kind))
		}
		if _, ok := clips.Get(a.Animation); !ok {
			errs = append(errs, fmt.Errorf("class %q: ability %q has no animation config %q", c.ID, id, a.Animation))
		}
	}
	check(c.BasicAttack, ability.KindBasic)
	for _, s := range c.Skills {
		check(s.Ability, ability.KindSkill)
	}
	if _, ok := clips.Get(c.Hurt()); !ok {
		errs = append(errs, fmt.Errorf("class %q: no animation config for hurt clip %q", c.ID, c.Hurt()))
	}
	return errors.Join(errs...)
}

// LoadClasses reads every .yaml/.yml file in dir as one Class.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed classes, sorted by id, or a non-nil error.
func LoadClasses(dir string) ([]*Class, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	classes := make([]*Class, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var c Class
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("parsing class file %s: %w", path, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		classes = append(classes, &c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].ID < classes[j].ID })
	return classes, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
