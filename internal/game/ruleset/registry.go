package ruleset

import "sort"

// ClassRegistry provides lookup of classes by id.
type ClassRegistry struct {
	classes map[string]*Class
}

// NewClassRegistry returns an empty ClassRegistry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{classes: make(map[string]*Class)}
}

// Register adds c; the last registration for an id wins.
//
// Precondition: c must be non-nil with a non-empty ID.
func (r *ClassRegistry) Register(c *Class) {
	if c == nil {
		panic("ClassRegistry.Register: precondition violated: class must be non-nil")
	}
	if c.ID == "" {
		panic("ClassRegistry.Register: precondition violated: class ID must be non-empty")
	}
	r.classes[c.ID] = c
}

// Class returns the class with id.
func (r *ClassRegistry) Class(id string) (*Class, bool) {
	c, ok := r.classes[id]
	return c, ok
}

// IDs returns the registered ids, sorted.
func (r *ClassRegistry) IDs() []string {
	out := make([]string, 0, len(r.classes))
	for id := range r.classes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LoadClassRegistry loads dir with LoadClasses and registers every class.
func LoadClassRegistry(dir string) (*ClassRegistry, error) {
	classes, err := LoadClasses(dir)
	if err != nil {
		return nil, err
	}
	reg := NewClassRegistry()
	for _, c := range classes {
		reg.Register(c)
	}
	return reg, nil
}
