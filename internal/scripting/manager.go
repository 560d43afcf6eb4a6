package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/game/stats"
)

// IDGlobal optionally overrides the strategy id derived from the file name.
const IDGlobal = "strategy_id"

// ErrNoAdjust is returned when a script does not define adjust.
var ErrNoAdjust = errors.New("scripting: script does not define adjust")

// Manager owns one sandboxed VM per loaded strategy script.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	strategies map[string]*Strategy
	instLimit  int
	logger     *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: instLimit >= 0 (0 uses DefaultInstructionLimit); logger may be nil.
// Postcondition: Returns a non-nil Manager with no strategies.
func NewManager(instLimit int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		strategies: make(map[string]*Strategy),
		instLimit:  instLimit,
		logger:     logger,
	}
}

// LoadFile creates a sandboxed VM, registers the engine module, runs path
// and binds its adjust function. Loading a second script with the same id
// replaces and closes the first.
//
// Precondition: path names a readable .lua file.
// Postcondition: on success the strategy is registered under its id.
func (m *Manager) LoadFile(path string) (*Strategy, error) {
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	L := NewSandboxedState()
	m.RegisterModules(L, id)

	release := WithBudget(L, m.instLimit)
	err := L.DoFile(path)
	release()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: loading %q: %w", path, err)
	}

	if v, ok := L.GetGlobal(IDGlobal).(lua.LString); ok && v != "" {
		id = string(v)
	}
	fn, ok := L.GetGlobal(AdjustFunc).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("%w: %q", ErrNoAdjust, path)
	}

	s := &Strategy{
		id:     id,
		path:   path,
		limit:  m.instLimit,
		logger: m.logger,
		L:      L,
		fn:     fn,
	}

	m.mu.Lock()
	old := m.strategies[id]
	m.strategies[id] = s
	m.mu.Unlock()
	if old != nil {
		m.logger.Info("scripting: replacing strategy",
			zap.String("strategy", id),
			zap.String("old", old.path),
			zap.String("new", path),
		)
		old.Close()
	}
	return s, nil
}

// LoadDirectory loads every *.lua file in dir in lexicographic order. A
// failure stops loading and is returned; strategies loaded before it stay
// registered.
//
// Precondition: dir must be a readable directory.
func (m *Manager) LoadDirectory(dir string) ([]*Strategy, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	out := make([]*Strategy, 0, len(files))
	for _, path := range files {
		s, err := m.LoadFile(path)
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Get returns the strategy registered under id.
func (m *Manager) Get(id string) (*Strategy, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.strategies[id]
	return s, ok
}

// IDs returns the loaded strategy ids in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.strategies))
	for id := range m.strategies {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RegisterInto adds every loaded strategy to table, replacing built-ins
// with the same id.
//
// Precondition: table must be non-nil.
func (m *Manager) RegisterInto(table *stats.Strategies) {
	for _, id := range m.IDs() {
		s, _ := m.Get(id)
		table.Register(s)
	}
}

// Close closes every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.strategies
	m.strategies = make(map[string]*Strategy)
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
