package animation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTriggerRatio places the hit frame of a clip that does not declare
// one at floor(TotalFrames * DefaultTriggerRatio).
const DefaultTriggerRatio = 0.5

// Config is the playback description of one animation clip.
type Config struct {
	Key          string
	TotalFrames  int
	TriggerFrame int
	FrameRate    float64
	Loop         bool
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if c.Key == "" {
		return errors.New("animation config: key must be non-empty")
	}
	if c.TotalFrames <= 0 {
		return fmt.Errorf("animation config %q: total_frames must be > 0", c.Key)
	}
	if c.TriggerFrame < 0 || c.TriggerFrame >= c.TotalFrames {
		return fmt.Errorf("animation config %q: trigger_frame %d outside [0, %d)", c.Key, c.TriggerFrame, c.TotalFrames)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("animation config %q: frame_rate must be > 0", c.Key)
	}
	return nil
}

type configYAML struct {
	Key          string  `yaml:"key"`
	TotalFrames  int     `yaml:"total_frames"`
	TriggerFrame *int    `yaml:"trigger_frame"`
	FrameRate    float64 `yaml:"frame_rate"`
	Loop         bool    `yaml:"loop"`
}

func (y configYAML) config() Config {
	c := Config{
		Key:         y.Key,
		TotalFrames: y.TotalFrames,
		FrameRate:   y.FrameRate,
		Loop:        y.Loop,
	}
	if c.FrameRate == 0 {
		c.FrameRate = 12
	}
	if y.TriggerFrame != nil {
		c.TriggerFrame = *y.TriggerFrame
	} else {
		c.TriggerFrame = int(float64(y.TotalFrames) * DefaultTriggerRatio)
	}
	return c
}

type fileYAML struct {
	Animations []configYAML `yaml:"animations"`
}

// Registry holds clip configs keyed by animation key.
type Registry struct {
	configs map[string]Config
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]Config)}
}

// Register validates c and stores it, replacing any config with the same key.
func (r *Registry) Register(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	r.configs[c.Key] = c
	return nil
}

// Get returns the config for key.
func (r *Registry) Get(key string) (Config, bool) {
	c, ok := r.configs[key]
	return c, ok
}

// Keys returns every registered key, sorted.
func (r *Registry) Keys() []string {
	out := make([]string, 0, len(r.configs))
	for k := range r.configs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Decode reads one YAML document of the form `animations: [...]` into r.
//
// Postcondition: on error r is unchanged.
func (r *Registry) Decode(src io.Reader) error {
	var f fileYAML
	dec := yaml.NewDecoder(src)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return fmt.Errorf("decoding animations: %w", err)
	}
	parsed := make([]Config, 0, len(f.Animations))
	for _, y := range f.Animations {
		c := y.config()
		if err := c.Validate(); err != nil {
			return err
		}
		parsed = append(parsed, c)
	}
	for _, c := range parsed {
		r.configs[c.Key] = c
	}
	return nil
}

// LoadDirectory reads every *.yaml file in dir into a new Registry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error naming the first bad file.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading animation dir %q: %w", dir, err)
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
		if err := reg.Decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
	}
	return reg, nil
}
