package stats

import (
	"sort"

	"go.uber.org/zap"
)

// BaseStrategyID names the class-agnostic strategy that makes no adjustment.
const BaseStrategyID = "base"

// Strategy is a per-class stat weighting applied on top of Base.
//
// Implementations must be pure: Adjust may depend only on its arguments.
type Strategy interface {
	ID() string
	Adjust(a Attributes, d Derived) Derived
}

type funcStrategy struct {
	id string
	fn func(Attributes, Derived) Derived
}

func (f funcStrategy) ID() string { return f.id }

func (f funcStrategy) Adjust(a Attributes, d Derived) Derived { return f.fn(a, d) }

// NewStrategy wraps a pure adjustment function as a Strategy.
//
// Precondition: id must be non-empty; fn must not be nil.
func NewStrategy(id string, fn func(Attributes, Derived) Derived) Strategy {
	if id == "" {
		panic("stats.NewStrategy: precondition violated: id must be non-empty")
	}
	if fn == nil {
		panic("stats.NewStrategy: precondition violated: fn must not be nil")
	}
	return funcStrategy{id: id, fn: fn}
}

// Base strategy: no class weighting.
var BaseStrategy = NewStrategy(BaseStrategyID, func(_ Attributes, d Derived) Derived { return d })

// Melee favours physical attack and defense at the cost of magic defense and speed.
var Melee = NewStrategy("melee", func(a Attributes, d Derived) Derived {
	d.PhysicalAttack += float64(a.Strength) * 0.5
	d.PhysicalDefense += float64(a.Vitality) * 0.5
	d.MagicDefense -= 3
	d.Speed -= 10
	return d
})

// Caster boosts magic attack and defense and lowers physical defense.
var Caster = NewStrategy("caster", func(a Attributes, d Derived) Derived {
	d.MagicAttack += float64(a.Intelligence) * 0.5
	d.MagicDefense += float64(a.Intelligence) * 0.5
	d.PhysicalDefense -= 3
	return d
})

// Ranged converts agility into physical attack, speed, and critical chance.
var Ranged = NewStrategy("ranged", func(a Attributes, d Derived) Derived {
	d.PhysicalAttack += float64(a.Agility) * 0.5
	d.Speed += float64(a.Agility) * 2
	d.CriticalChance = 0.15 + float64(a.Agility)*0.01
	return d
})

// Strategies is the class strategy table, keyed by strategy id.
// It is not safe for concurrent mutation; register everything before use.
type Strategies struct {
	byID   map[string]Strategy
	logger *zap.Logger
}

// NewStrategies returns a table holding only BaseStrategy.
//
// Precondition: logger may be nil (a no-op logger is used).
func NewStrategies(logger *zap.Logger) *Strategies {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Strategies{byID: make(map[string]Strategy), logger: logger}
	t.Register(BaseStrategy)
	return t
}

// DefaultStrategies returns a table with the melee, caster, and ranged strategies.
func DefaultStrategies(logger *zap.Logger) *Strategies {
	t := NewStrategies(logger)
	t.Register(Melee)
	t.Register(Caster)
	t.Register(Ranged)
	return t
}

// Register adds s, replacing any strategy with the same id.
//
// Precondition: s must be non-nil.
func (t *Strategies) Register(s Strategy) {
	if s == nil {
		panic("stats.Strategies.Register: precondition violated: strategy must be non-nil")
	}
	t.byID[s.ID()] = s
}

// Get returns the strategy for id without fallback.
func (t *Strategies) Get(id string) (Strategy, bool) {
	s, ok := t.byID[id]
	return s, ok
}

// Resolve returns the strategy for id. An unknown id falls back to
// BaseStrategy and logs a warning; Resolve never fails.
//
// Postcondition: returns a non-nil Strategy.
func (t *Strategies) Resolve(id string) Strategy {
	if s, ok := t.byID[id]; ok {
		return s
	}
	t.logger.Warn("unknown class strategy, using base stats",
		zap.String("strategy", id),
	)
	return BaseStrategy
}

// IDs returns the registered strategy ids in sorted order.
func (t *Strategies) IDs() []string {
	out := make([]string, 0, len(t.byID))
	for id := range t.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
