// Package dice provides the randomness abstraction used for critical-hit
// draws and damage rolls.
package dice

import (
	"fmt"
	"math"
)

// Source is the randomness provider.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// ChanceResolution is the granularity of Chance draws.
const ChanceResolution = 10000

// Chance draws once from src and reports whether the draw falls under p.
// p <= 0 never succeeds without consuming a draw; p >= 1 always succeeds.
//
// Precondition: src must be non-nil.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Intn(ChanceResolution) < int(math.Round(p*ChanceResolution))
}

// Result is the audit trail of one rolled expression.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type Result struct {
	Expression string
	Dice       []int
	Modifier   int
}

// Total returns the sum of the dice plus the modifier.
func (r Result) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String formats r as "2d6+3 [4 5] +3 = 12".
func (r Result) String() string {
	return fmt.Sprintf("%s %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}
