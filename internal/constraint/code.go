// Package constraint wraps the external feasibility oracle (environment
// collision, self collision, closed-chain projection, manipulator Cartesian
// bounds) behind the two-phase per-ramp FeasibilityChecker described in
// spec.md §4.2: endpoint/switch-point configuration feasibility, then
// per-segment path feasibility with optional geometry re-projection.
package constraint

import "fmt"

// Code is the CFO_* bit field spec.md §4.6 enumerates. Zero means success;
// any other value is a bitwise-OR of failure classes.
type Code uint32

const (
	// CodeStateSettingError: the oracle rejected SetState. The core skips
	// the current shortcut iteration on this code.
	CodeStateSettingError Code = 1 << iota
	// CodeCheckTimeBasedConstraints: the segment is too fast; the core
	// slows down velocity/acceleration and retries, carrying SurpassMult.
	CodeCheckTimeBasedConstraints
	// CodeCheckEnvCollision: environment geometry conflict.
	CodeCheckEnvCollision
	// CodeCheckSelfCollision: self-collision conflict.
	CodeCheckSelfCollision
	// CodeFinalValuesNotReached: terminal drift exceeded ε_x.
	CodeFinalValuesNotReached
	// CodeCheckWithPerturbation is OR'd onto outgoing masks by the core
	// when perturbation checking is enabled; it is never returned from
	// ConfigFeasible/SegmentFeasible on its own.
	CodeCheckWithPerturbation
	// CodeFillCheckedConfiguration is OR'd onto outgoing masks when
	// projection outputs must be captured.
	CodeFillCheckedConfiguration
)

// CodeAny is the "any bit set" sentinel spec.md §7 assigns to an oracle call
// that panicked or otherwise failed outside its own return contract.
const CodeAny Code = 0xffff

// Mask selects which constraint classes Check2/SegmentFeasible verify. It
// shares Code's bit layout.
type Mask = Code

// FullMask verifies every constraint class.
const FullMask Mask = CodeStateSettingError | CodeCheckTimeBasedConstraints |
	CodeCheckEnvCollision | CodeCheckSelfCollision | CodeFinalValuesNotReached

func (c Code) String() string {
	if c == 0 {
		return "ok"
	}
	names := []struct {
		bit  Code
		name string
	}{
		{CodeStateSettingError, "StateSettingError"},
		{CodeCheckTimeBasedConstraints, "CheckTimeBasedConstraints"},
		{CodeCheckEnvCollision, "CheckEnvCollision"},
		{CodeCheckSelfCollision, "CheckSelfCollision"},
		{CodeFinalValuesNotReached, "FinalValuesNotReached"},
		{CodeCheckWithPerturbation, "CheckWithPerturbation"},
		{CodeFillCheckedConfiguration, "FillCheckedConfiguration"},
	}
	s := ""
	for _, n := range names {
		if c&n.bit != 0 {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	if s == "" {
		return fmt.Sprintf("Code(0x%x)", uint32(c))
	}
	return s
}

// Has reports whether every bit in want is set in c.
func (c Code) Has(want Code) bool { return c&want == want }

// Any reports whether c carries any failure bit.
func (c Code) Any() bool { return c != 0 }
