package character

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cory-johannsen/brawl/internal/game/stats"
)

// Snapshot is the persisted progression of a character. Cooldowns, health
// and animation state are not persisted.
type Snapshot struct {
	ClassID           string           `json:"classId"`
	Level             int              `json:"level"`
	Experience        int              `json:"experience"`
	SkillPoints       int              `json:"skillPoints"`
	Attributes        stats.Attributes `json:"attributes"`
	EquippedSourceIDs []string         `json:"equippedSourceIds"`
	ActiveBuffs       []BuffSnapshot   `json:"activeBuffs"`
}

// BuffSnapshot is one timed modifier with its remaining time. Deltas is set
// only for sources that no ability defines, such as consumables applied
// through ApplyBuff; ability buffs take their deltas from content on Restore.
type BuffSnapshot struct {
	SourceID    string       `json:"sourceId"`
	RemainingMs int64        `json:"remainingMs"`
	Deltas      stats.Deltas `json:"deltas,omitempty"`
}

const itemPrefix = "item:"
const abilityPrefix = "ability:"

// Snapshot captures the character's progression, equipment and timed buffs.
func (c *Character) Snapshot() Snapshot {
	s := Snapshot{
		ClassID:           c.class.ID,
		Level:             c.level,
		Experience:        c.experience,
		SkillPoints:       c.skillPoints,
		Attributes:        c.attrs,
		EquippedSourceIDs: []string{},
		ActiveBuffs:       []BuffSnapshot{},
	}
	for _, id := range c.Equipped() {
		s.EquippedSourceIDs = append(s.EquippedSourceIDs, itemPrefix+id)
	}
	for _, src := range c.ledger.Active() {
		if strings.HasPrefix(src, itemPrefix) {
			continue
		}
		left := c.ledger.Remaining(src)
		if left <= 0 {
			continue
		}
		b := BuffSnapshot{SourceID: src, RemainingMs: left.Milliseconds()}
		if !strings.HasPrefix(src, abilityPrefix) {
			m, _ := c.ledger.Get(src)
			b.Deltas = m.Deltas
		}
		s.ActiveBuffs = append(s.ActiveBuffs, b)
	}
	return s
}

// Restore replaces the character's progression, equipment and buffs with s.
// Every source is re-applied through the ledger. Health and mana are fully
// restored.
//
// Postcondition: on error nothing has changed.
func (c *Character) Restore(s Snapshot) error {
	if err := c.gate(false); err != nil {
		return err
	}
	if s.ClassID != "" && s.ClassID != c.class.ID {
		return fmt.Errorf("snapshot class %q does not match %q", s.ClassID, c.class.ID)
	}
	if s.Level < 1 || s.Experience < 0 || s.SkillPoints < 0 {
		return errors.New("snapshot level must be >= 1; experience and skill points >= 0")
	}
	if err := s.Attributes.Validate(); err != nil {
		return fmt.Errorf("snapshot attributes: %w", err)
	}
	var items []string
	for _, src := range s.EquippedSourceIDs {
		id, ok := strings.CutPrefix(src, itemPrefix)
		if !ok {
			return fmt.Errorf("snapshot equipment %q is not an item source", src)
		}
		if _, ok := c.deps.Items.Get(id); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownItem, id)
		}
		items = append(items, id)
	}
	type buff struct {
		src    string
		deltas stats.Deltas
		left   time.Duration
	}
	var buffs []buff
	for _, b := range s.ActiveBuffs {
		deltas, err := c.buffDeltas(b)
		if err != nil {
			return err
		}
		if b.RemainingMs <= 0 {
			continue
		}
		buffs = append(buffs, buff{src: b.SourceID, deltas: deltas, left: time.Duration(b.RemainingMs) * time.Millisecond})
	}

	for _, id := range c.Equipped() {
		c.Unequip(id)
	}
	for _, src := range c.ledger.Active() {
		c.ledger.Revert(src)
	}
	c.level = s.Level
	c.experience = s.Experience
	c.skillPoints = s.SkillPoints
	c.nextExp = ThresholdAt(c.tuning.BaseExpThreshold, s.Level)
	c.attrs = s.Attributes
	for _, id := range items {
		if err := c.Equip(id); err != nil {
			return err
		}
	}
	for _, b := range buffs {
		if err := c.ledger.Apply(b.src, b.deltas, b.left); err != nil {
			return err
		}
	}
	c.recompute()
	c.restoreAll()
	return nil
}


// buffDeltas resolves the deltas a snapshot buff re-applies: the ability's
// buff for an ability source, the recorded deltas for any other timed source.
func (c *Character) buffDeltas(b BuffSnapshot) (stats.Deltas, error) {
	if strings.HasPrefix(b.SourceID, itemPrefix) {
		return nil, fmt.Errorf("snapshot buff %q is an item source", b.SourceID)
	}
	if id, ok := strings.CutPrefix(b.SourceID, abilityPrefix); ok {
		a, ok := c.deps.Abilities.Get(id)
		if !ok || a.Buff == nil {
			return nil, fmt.Errorf("snapshot buff %q names no buffing ability", b.SourceID)
		}
		return a.Buff.Deltas, nil
	}
	if b.SourceID == "" || len(b.Deltas) == 0 {
		return nil, fmt.Errorf("snapshot buff %q carries no deltas", b.SourceID)
	}
	for st := range b.Deltas {
		if !st.Valid() {
			return nil, fmt.Errorf("snapshot buff %q: unknown stat %q", b.SourceID, st)
		}
	}
	return b.Deltas.Clone(), nil
}
