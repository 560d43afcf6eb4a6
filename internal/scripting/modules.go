package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/brawl/internal/game/stats"
)

// RegisterModules installs the engine global into L:
//
//	engine.stats         array of every stat name
//	engine.clamp(v,lo,hi)
//	engine.log(msg)      debug log line tagged with the script id
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState, scriptID string) {
	engine := L.NewTable()

	names := L.NewTable()
	for _, s := range stats.AllStats {
		names.Append(lua.LString(s))
	}
	L.SetField(engine, "stats", names)

	L.SetField(engine, "clamp", L.NewFunction(func(L *lua.LState) int {
		v := float64(L.CheckNumber(1))
		lo := float64(L.CheckNumber(2))
		hi := float64(L.CheckNumber(3))
		if v < lo {
			v = lo
		}
		if v > hi {
			v = hi
		}
		L.Push(lua.LNumber(v))
		return 1
	}))

	logger := m.logger
	L.SetField(engine, "log", L.NewFunction(func(L *lua.LState) int {
		logger.Debug("lua", zap.String("script", scriptID), zap.String("msg", L.CheckString(1)))
		return 0
	}))

	L.SetGlobal("engine", engine)
}
