package character

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/game/event"
)

// LevelUpPayload is published on character.level_up.
type LevelUpPayload struct {
	Level       int
	SkillPoints int
	Unlocked    []string
}

// NextThreshold returns the experience needed to leave a level given the
// previous threshold: floor(prev * 1.5).
func NextThreshold(prev int) int {
	return int(math.Floor(float64(prev) * 1.5))
}

// ThresholdAt returns the experience needed to leave level, starting from base.
func ThresholdAt(base, level int) int {
	next := base
	for l := 1; l < level; l++ {
		next = NextThreshold(next)
	}
	return next
}

// LevelUp advances one level: excess experience rolls over, the threshold
// grows, skill points are granted, every attribute grows, stats are
// recomputed and health and mana are fully restored.
func (c *Character) LevelUp() error {
	if err := c.gate(false); err != nil {
		return err
	}
	c.level++
	c.experience = max(0, c.experience-c.nextExp)
	c.nextExp = NextThreshold(c.nextExp)
	c.skillPoints += c.tuning.SkillPointsPerLevel
	c.attrs = c.attrs.Grow(c.tuning.AttributeGrowth)
	c.recompute()
	c.restoreAll()
	c.logger.Info("level up",
		zap.Int("level", c.level),
		zap.Int("experience", c.experience),
		zap.Int("next", c.nextExp),
	)
	c.publish(event.TopicLevelUp, LevelUpPayload{
		Level:       c.level,
		SkillPoints: c.skillPoints,
		Unlocked:    c.class.UnlockedAt(c.level),
	})
	return nil
}

// GainExperience adds xp and levels up as many times as it covers.
// It returns the number of levels gained.
func (c *Character) GainExperience(xp int) (int, error) {
	if err := c.gate(false); err != nil {
		return 0, err
	}
	if xp <= 0 {
		return 0, nil
	}
	c.experience += xp
	levels := 0
	for c.experience >= c.nextExp {
		if err := c.LevelUp(); err != nil {
			return levels, err
		}
		levels++
	}
	return levels, nil
}
