// Package item defines equipment whose stat deltas are recorded in the
// modifier ledger while equipped.
package item

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/brawl/internal/game/stats"
)

// Slot is where an item is worn. One item per slot.
type Slot string

const (
	SlotWeapon    Slot = "weapon"
	SlotArmor     Slot = "armor"
	SlotAccessory Slot = "accessory"
)

// Item is the static definition of one piece of equipment.
type Item struct {
	ID           string       `yaml:"id"`
	Name         string       `yaml:"name"`
	Slot         Slot         `yaml:"slot"`
	Deltas       stats.Deltas `yaml:"deltas"`
	GrantsSkills []string     `yaml:"grants_skills"`
	// Appearance is an opaque sprite key handed to the renderer.
	Appearance string `yaml:"appearance"`
}

// SourceID is the ledger source id for the item's deltas.
func (it *Item) SourceID() string { return "item:" + it.ID }

// Validate checks a loaded definition.
func (it *Item) Validate() error {
	if it.ID == "" {
		return errors.New("item: id must be non-empty")
	}
	switch it.Slot {
	case SlotWeapon, SlotArmor, SlotAccessory:
	default:
		return fmt.Errorf("item %q: unknown slot %q", it.ID, it.Slot)
	}
	for s := range it.Deltas {
		if !s.Valid() {
			return fmt.Errorf("item %q: unknown stat %q", it.ID, s)
		}
	}
	return nil
}

// Registry holds item definitions keyed by id.
type Registry struct {
	items map[string]*Item
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*Item)}
}

// Register validates it and adds it.
//
// Precondition: it must not be nil.
func (r *Registry) Register(it *Item) error {
	if it == nil {
		panic("item.Registry.Register: precondition violated: it must not be nil")
	}
	if err := it.Validate(); err != nil {
		return err
	}
	r.items[it.ID] = it
	return nil
}

// Get returns the item with id.
func (r *Registry) Get(id string) (*Item, bool) {
	it, ok := r.items[id]
	return it, ok
}

// All returns every item sorted by id.
func (r *Registry) All() []*Item {
	out := make([]*Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir. Each file holds an
// `items: [...]` list.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading item dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var f struct {
			Items []*Item `yaml:"items"`
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		for _, it := range f.Items {
			if err := reg.Register(it); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	return reg, nil
}
