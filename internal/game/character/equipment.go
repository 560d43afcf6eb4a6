package character

import (
	"fmt"
	"sort"
	"time"

	"github.com/cory-johannsen/brawl/internal/game/item"
	"github.com/cory-johannsen/brawl/internal/game/modifier"
	"github.com/cory-johannsen/brawl/internal/game/stats"
)

// Equip wears itemID, replacing whatever occupies its slot. Its deltas are
// recorded permanently in the ledger under the item's source id.
func (c *Character) Equip(itemID string) error {
	if err := c.gate(false); err != nil {
		return err
	}
	it, ok := c.deps.Items.Get(itemID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}
	if old, ok := c.equipped[it.Slot]; ok {
		if old.ID == it.ID {
			return nil
		}
		c.Unequip(old.ID)
	}
	if err := c.ledger.Apply(it.SourceID(), it.Deltas, modifier.Permanent); err != nil {
		return err
	}
	c.equipped[it.Slot] = it
	if r := c.deps.Renderer; r != nil {
		r.Wear(it.Slot, it.Appearance)
	}
	return nil
}

// Unequip removes itemID and reverts exactly its deltas. It reports whether
// the item was worn.
func (c *Character) Unequip(itemID string) bool {
	if c.gate(false) != nil {
		return false
	}
	for slot, it := range c.equipped {
		if it.ID != itemID {
			continue
		}
		delete(c.equipped, slot)
		c.ledger.Revert(it.SourceID())
		if r := c.deps.Renderer; r != nil {
			r.Wear(slot, "")
		}
		return true
	}
	return false
}

// Equipped returns the worn item ids, sorted.
func (c *Character) Equipped() []string {
	out := make([]string, 0, len(c.equipped))
	for _, it := range c.equipped {
		out = append(out, it.ID)
	}
	sort.Strings(out)
	return out
}

// EquippedIn returns the item in slot.
func (c *Character) EquippedIn(slot item.Slot) (*item.Item, bool) {
	it, ok := c.equipped[slot]
	return it, ok
}

// ApplyBuff records a timed modifier under sourceID for d.
func (c *Character) ApplyBuff(sourceID string, deltas stats.Deltas, d time.Duration) error {
	if err := c.gate(false); err != nil {
		return err
	}
	return c.ledger.Apply(sourceID, deltas, d)
}

// RemoveBuff reverts sourceID early.
func (c *Character) RemoveBuff(sourceID string) bool {
	if c.gate(false) != nil {
		return false
	}
	return c.ledger.Revert(sourceID)
}
