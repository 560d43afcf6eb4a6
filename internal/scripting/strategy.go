package scripting

import (
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/game/stats"
)

// AdjustFunc is the Lua global every strategy script must define:
//
//	function adjust(attrs, stats) ... return stats end
//
// attrs holds strength, agility, vitality and intelligence. stats holds every
// derived stat keyed by its stats.Stat name. Returning nil keeps the edits
// made to stats in place.
const AdjustFunc = "adjust"

// Strategy is a stats.Strategy backed by one Lua VM.
//
// Adjust is safe for concurrent use; calls are serialized on the VM.
type Strategy struct {
	id     string
	path   string
	limit  int
	logger *zap.Logger

	mu sync.Mutex
	L  *lua.LState
	fn *lua.LFunction
}

var _ stats.Strategy = (*Strategy)(nil)

// ID returns the strategy id.
func (s *Strategy) ID() string { return s.id }

// Path returns the file the strategy was loaded from.
func (s *Strategy) Path() string { return s.path }

// Adjust calls the script's adjust function. A Lua runtime error or an
// exhausted instruction budget is logged at Warn and leaves d unchanged, so
// a broken script degrades to base stats instead of failing recomputation.
//
// Postcondition: stats missing from the returned table keep their input value.
func (s *Strategy) Adjust(a stats.Attributes, d stats.Derived) stats.Derived {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.L == nil {
		return d
	}
	L := s.L

	attrs := L.NewTable()
	L.SetField(attrs, "strength", lua.LNumber(a.Strength))
	L.SetField(attrs, "agility", lua.LNumber(a.Agility))
	L.SetField(attrs, "vitality", lua.LNumber(a.Vitality))
	L.SetField(attrs, "intelligence", lua.LNumber(a.Intelligence))

	in := L.NewTable()
	for _, st := range stats.AllStats {
		L.SetField(in, string(st), lua.LNumber(d.Get(st)))
	}

	release := WithBudget(L, s.limit)
	err := L.CallByParam(lua.P{Fn: s.fn, NRet: 1, Protect: true}, attrs, in)
	release()
	if err != nil {
		s.logger.Warn("scripting: strategy runtime error",
			zap.String("strategy", s.id),
			zap.Error(err),
		)
		return d
	}

	ret := L.Get(-1)
	L.Pop(1)
	out, ok := ret.(*lua.LTable)
	if !ok {
		if ret != lua.LNil {
			s.logger.Warn("scripting: strategy returned a non-table",
				zap.String("strategy", s.id),
				zap.String("type", ret.Type().String()),
			)
			return d
		}
		out = in
	}

	for _, st := range stats.AllStats {
		if n, ok := out.RawGetString(string(st)).(lua.LNumber); ok {
			d = d.With(st, float64(n))
		}
	}
	return d
}

// Close releases the VM. Adjust on a closed strategy returns its input.
func (s *Strategy) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.L != nil {
		s.L.Close()
		s.L = nil
	}
}
