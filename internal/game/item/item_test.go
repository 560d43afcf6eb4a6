package item_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/brawl/internal/game/item"
	"github.com/cory-johannsen/brawl/internal/game/stats"
)

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	body := `
items:
  - id: iron_sword
    name: Iron Sword
    slot: weapon
    deltas: {physical_attack: 8}
    appearance: sword_iron
  - id: sage_ring
    name: Sage Ring
    slot: accessory
    deltas: {magic_attack: 4, max_mana: 20}
    grants_skills: [fireball]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "starter.yaml"), []byte(body), 0o644))
	reg, err := item.LoadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, reg.All(), 2)

	ring, ok := reg.Get("sage_ring")
	require.True(t, ok)
	assert.Equal(t, "item:sage_ring", ring.SourceID())
	assert.Equal(t, 20.0, ring.Deltas[stats.MaxMana])
	assert.Equal(t, []string{"fireball"}, ring.GrantsSkills)
}

func TestItem_Validate(t *testing.T) {
	assert.Error(t, (&item.Item{Slot: item.SlotArmor}).Validate())
	assert.Error(t, (&item.Item{ID: "x", Slot: "head"}).Validate())
	assert.Error(t, (&item.Item{ID: "x", Slot: item.SlotArmor, Deltas: stats.Deltas{"luck": 1}}).Validate())
	assert.NoError(t, (&item.Item{ID: "x", Slot: item.SlotArmor}).Validate())
}
