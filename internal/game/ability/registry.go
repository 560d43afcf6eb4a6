package ability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry holds ability definitions keyed by id.
type Registry struct {
	byID map[string]*Ability
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Ability)}
}

// Register validates a and adds it, replacing any definition with the same id.
//
// Precondition: a must not be nil.
func (r *Registry) Register(a *Ability) error {
	if a == nil {
		panic("ability.Registry.Register: precondition violated: a must not be nil")
	}
	if err := a.Validate(); err != nil {
		return err
	}
	r.byID[a.ID] = a
	return nil
}

// Get returns the ability with id.
func (r *Registry) Get(id string) (*Ability, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// All returns every ability sorted by id.
func (r *Registry) All() []*Ability {
	out := make([]*Ability, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type file struct {
	Abilities []*Ability `yaml:"abilities"`
}

// Decode reads an `abilities: [...]` document into r.
func (r *Registry) Decode(src io.Reader) error {
	var f file
	dec := yaml.NewDecoder(src)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return fmt.Errorf("decoding abilities: %w", err)
	}
	for _, a := range f.Abilities {
		if err := r.Register(a); err != nil {
			return err
		}
	}
	return nil
}

// LoadDirectory reads every *.yaml file in dir into a new Registry.
//
// Precondition: dir must be a readable directory.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ability dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %q: %w", path, err)
		}
		err = reg.Decode(fh)
		fh.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
	}
	return reg, nil
}
