// Package animation drives the per-character animation state machine:
// physical signals and explicit requests in, state changes and single-fire
// keyframe triggers out.
package animation

// State is one animation state.
type State string

const (
	Idle        State = "idle"
	Move        State = "move"
	JumpRising  State = "jump_rising"
	JumpFalling State = "jump_falling"
	Attack      State = "attack"
	Hurt        State = "hurt"
	Die         State = "die"
)

// AllStates lists every state in declaration order.
var AllStates = []State{Idle, Move, JumpRising, JumpFalling, Attack, Hurt, Die}

// Locked reports whether s ignores movement input until its clip completes.
func (s State) Locked() bool { return s == Attack || s == Hurt }

// Airborne reports whether s is one of the jump substates.
func (s State) Airborne() bool { return s == JumpRising || s == JumpFalling }

// Terminal reports whether s has no outgoing transitions.
func (s State) Terminal() bool { return s == Die }

// free are the states movement input may leave.
var free = []State{Idle, Move, JumpRising, JumpFalling}

// Keyframe binds one attack playthrough to its hit trigger.
//
// Invariant: Fired goes false to true at most once per playthrough.
type Keyframe struct {
	AbilityID    string
	Key          string
	TriggerFrame int
	TotalFrames  int
	Fired        bool
}

// check marks the keyframe fired when frame reaches the trigger.
// It reports whether this call fired it.
func (k *Keyframe) check(frame int) bool {
	if k.Fired || frame < k.TriggerFrame {
		return false
	}
	k.Fired = true
	return true
}
