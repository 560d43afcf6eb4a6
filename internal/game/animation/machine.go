package animation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

var (
	// ErrInvalidTransition is returned when the current state does not accept an input.
	ErrInvalidTransition = errors.New("animation: invalid transition")
	// ErrMissingAnimationConfig is returned when a request names an unregistered clip.
	ErrMissingAnimationConfig = errors.New("animation: missing animation config")
	// ErrNotReady is returned when the readiness gate rejects an attack request.
	ErrNotReady = errors.New("animation: ability not ready")
)

// Signals is the physical input sampled from the body each update.
type Signals struct {
	Grounded bool
	VX, VY   float64
}

// Kind distinguishes explicit requests.
type Kind int

const (
	KindAttack Kind = iota
	KindHurt
	KindDie
)

func (k Kind) String() string {
	switch k {
	case KindAttack:
		return "attack"
	case KindHurt:
		return "hurt"
	case KindDie:
		return "die"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Request is an explicit state request. Key names the clip to play;
// AbilityID is set for attacks and skills.
type Request struct {
	Kind      Kind
	AbilityID string
	Key       string
}

// Options tune signal interpretation.
type Options struct {
	// MoveEpsilon is the |vx| above which a grounded body counts as moving.
	MoveEpsilon float64
	// RisingThreshold and FallingThreshold bound the airborne hysteresis band.
	// Screen coordinates: negative vy is upward.
	RisingThreshold  float64
	FallingThreshold float64
}

// DefaultOptions returns the thresholds used when none are configured.
func DefaultOptions() Options {
	return Options{MoveEpsilon: 1, RisingThreshold: -10, FallingThreshold: 10}
}

// Validate reports whether the thresholds form a usable band.
func (o Options) Validate() error {
	if o.MoveEpsilon < 0 {
		return fmt.Errorf("move epsilon must be >= 0, got %v", o.MoveEpsilon)
	}
	if o.RisingThreshold > o.FallingThreshold {
		return fmt.Errorf("rising threshold %v must not exceed falling threshold %v", o.RisingThreshold, o.FallingThreshold)
	}
	return nil
}

// ReadyFunc reports whether abilityID may start now.
type ReadyFunc func(abilityID string) bool

// EnterFunc observes state entries; key is the clip to play.
type EnterFunc func(s State, key string)

const (
	eventAttack = "attack"
	eventHurt   = "hurt"
	eventDie    = "die"
)

func moveEvent(target State) string    { return "to_" + string(target) }
func recoverEvent(target State) string { return "recover_" + string(target) }

func transitions() fsm.Events {
	var events fsm.Events
	for _, target := range free {
		var src []string
		for _, s := range free {
			if s != target {
				src = append(src, string(s))
			}
		}
		events = append(events,
			fsm.EventDesc{Name: moveEvent(target), Src: src, Dst: string(target)},
			fsm.EventDesc{Name: recoverEvent(target), Src: []string{string(Attack), string(Hurt)}, Dst: string(target)},
		)
	}
	freeSrc := make([]string, 0, len(free))
	for _, s := range free {
		freeSrc = append(freeSrc, string(s))
	}
	living := append(append([]string{}, freeSrc...), string(Attack), string(Hurt))
	events = append(events,
		fsm.EventDesc{Name: eventAttack, Src: freeSrc, Dst: string(Attack)},
		fsm.EventDesc{Name: eventHurt, Src: living, Dst: string(Hurt)},
		fsm.EventDesc{Name: eventDie, Src: living, Dst: string(Die)},
	)
	return events
}

// Machine is one character's animation state machine.
//
// Invariant: Die is terminal; while Attack or Hurt is active only a Complete
// for the same key, a hurt request, or a die request changes state.
// It is not safe for concurrent use.
type Machine struct {
	fsm      *fsm.FSM
	configs  *Registry
	opts     Options
	ready    ReadyFunc
	lockKey  string
	keyframe *Keyframe
	last     Signals
	air      State
	onEnter  []EnterFunc
	logger   *zap.Logger
}

// NewMachine creates a Machine in Idle.
//
// Precondition: configs must be non-nil. ready may be nil (always ready).
func NewMachine(configs *Registry, opts Options, ready ReadyFunc, logger *zap.Logger) *Machine {
	if configs == nil {
		panic("animation.NewMachine: precondition violated: configs must be non-nil")
	}
	if ready == nil {
		ready = func(string) bool { return true }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		fsm:     fsm.NewFSM(string(Idle), transitions(), fsm.Callbacks{}),
		configs: configs,
		opts:    opts,
		ready:   ready,
		last:    Signals{Grounded: true},
		logger:  logger,
	}
}

// State returns the current state.
func (m *Machine) State() State { return State(m.fsm.Current()) }

// Locked reports whether movement input is currently ignored.
func (m *Machine) Locked() bool { return m.lockKey != "" }

// ActiveKey returns the clip holding the lock, or "" when unlocked.
func (m *Machine) ActiveKey() string { return m.lockKey }

// ActiveAbility returns the ability bound to the current attack, or "".
func (m *Machine) ActiveAbility() string {
	if m.keyframe == nil {
		return ""
	}
	return m.keyframe.AbilityID
}

// Keyframe returns a copy of the pending keyframe binding, if any.
func (m *Machine) Keyframe() (Keyframe, bool) {
	if m.keyframe == nil {
		return Keyframe{}, false
	}
	return *m.keyframe, true
}

// Signals returns the last physical signals seen.
func (m *Machine) Signals() Signals { return m.last }

// OnEnter registers fn to be called after every state entry, and after a
// hurt request restarts the Hurt clip.
func (m *Machine) OnEnter(fn EnterFunc) {
	if fn != nil {
		m.onEnter = append(m.onEnter, fn)
	}
}

// Update records sig and moves between the free states.
//
// Postcondition: returns ErrInvalidTransition, leaving state unchanged, when
// dead or locked. The signals and the airborne band are still tracked while
// locked so Complete picks the same follow-up state an unlocked machine would.
func (m *Machine) Update(sig Signals) error {
	if m.State().Terminal() {
		return ErrInvalidTransition
	}
	m.last = sig
	if m.Locked() {
		m.target(sig)
		return ErrInvalidTransition
	}
	target := m.target(sig)
	if target == m.State() {
		return nil
	}
	return m.fire(moveEvent(target), target, string(target))
}

// Request applies an explicit attack, hurt, or die request.
func (m *Machine) Request(r Request) error {
	state := m.State()
	if state.Terminal() {
		return ErrInvalidTransition
	}
	switch r.Kind {
	case KindDie:
		m.lockKey = ""
		m.keyframe = nil
		key := r.Key
		if key == "" {
			key = string(Die)
		}
		return m.fire(eventDie, Die, key)
	case KindHurt:
		if _, ok := m.configs.Get(r.Key); !ok {
			return m.missing(r)
		}
		m.keyframe = nil
		m.lockKey = r.Key
		return m.fire(eventHurt, Hurt, r.Key)
	case KindAttack:
		if m.Locked() {
			return ErrInvalidTransition
		}
		cfg, ok := m.configs.Get(r.Key)
		if !ok {
			return m.missing(r)
		}
		if !m.ready(r.AbilityID) {
			return ErrNotReady
		}
		if !m.fsm.Can(eventAttack) {
			return ErrInvalidTransition
		}
		m.keyframe = &Keyframe{
			AbilityID:    r.AbilityID,
			Key:          r.Key,
			TriggerFrame: cfg.TriggerFrame,
			TotalFrames:  cfg.TotalFrames,
		}
		m.lockKey = r.Key
		return m.fire(eventAttack, Attack, r.Key)
	}
	return fmt.Errorf("%w: unknown request kind %v", ErrInvalidTransition, r.Kind)
}

// Complete releases the lock held by key and picks the next state from the
// last signals. A completion for a clip that does not hold the lock is
// rejected with ErrInvalidTransition.
func (m *Machine) Complete(key string) error {
	state := m.State()
	if state.Terminal() {
		return ErrInvalidTransition
	}
	if !m.Locked() {
		target := m.target(m.last)
		if target == state {
			return nil
		}
		return m.fire(moveEvent(target), target, string(target))
	}
	if key != m.lockKey {
		return ErrInvalidTransition
	}
	m.lockKey = ""
	m.keyframe = nil
	target := m.target(m.last)
	return m.fire(recoverEvent(target), target, string(target))
}

// Frame reports the hit trigger for the pending keyframe. It returns the
// binding and true exactly once per attack playthrough, on the first frame
// at or past the trigger frame.
func (m *Machine) Frame(index int) (Keyframe, bool) {
	if m.State() != Attack || m.keyframe == nil {
		return Keyframe{}, false
	}
	if !m.keyframe.check(index) {
		return Keyframe{}, false
	}
	m.logger.Debug("keyframe fired",
		zap.String("ability", m.keyframe.AbilityID),
		zap.Int("frame", index),
	)
	return *m.keyframe, true
}

func (m *Machine) target(sig Signals) State {
	if sig.Grounded {
		m.air = ""
		if math.Abs(sig.VX) > m.opts.MoveEpsilon {
			return Move
		}
		return Idle
	}
	switch {
	case sig.VY < m.opts.RisingThreshold:
		m.air = JumpRising
	case sig.VY > m.opts.FallingThreshold:
		m.air = JumpFalling
	case m.air == "":
		if sig.VY < 0 {
			m.air = JumpRising
		} else {
			m.air = JumpFalling
		}
	}
	return m.air
}

func (m *Machine) fire(event string, dst State, key string) error {
	from := m.State()
	err := m.fsm.Event(context.Background(), event)
	var same fsm.NoTransitionError
	if err != nil && !errors.As(err, &same) {
		return fmt.Errorf("%w: %s from %s: %v", ErrInvalidTransition, event, from, err)
	}
	m.logger.Debug("animation state entered",
		zap.String("from", string(from)),
		zap.String("to", string(dst)),
		zap.String("key", key),
	)
	for _, fn := range m.onEnter {
		fn(dst, key)
	}
	return nil
}

func (m *Machine) missing(r Request) error {
	m.logger.Warn("animation request without config",
		zap.String("kind", r.Kind.String()),
		zap.String("key", r.Key),
		zap.String("ability", r.AbilityID),
	)
	return fmt.Errorf("%w: %q", ErrMissingAnimationConfig, r.Key)
}
