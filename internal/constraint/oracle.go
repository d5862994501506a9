package constraint

// ConstraintFilterReturn is populated by the oracle when it performs
// configuration projection: a list of sampled times in (0, T] and the
// corresponding re-projected configurations. It is empty when the oracle
// performs no projection.
type ConstraintFilterReturn struct {
	Times   []float64
	Configs [][]float64
}

// Empty reports whether the oracle returned no projected samples.
func (c *ConstraintFilterReturn) Empty() bool { return c == nil || len(c.Times) == 0 }

// Oracle is the external constraint collaborator: environment collision,
// self-collision, closed-chain manifold projection, and (via
// CheckPathAllConstraints) time-based constraint checking. The smoother
// core never implements these checks itself — they are supplied by the
// host environment.
type Oracle interface {
	// ConfigFeasible checks a single configuration/velocity pair against
	// the constraint classes in mask.
	ConfigFeasible(q, v []float64, mask Mask) (Code, error)

	// CheckPathAllConstraints checks the straight-line segment from a to b
	// (with boundary velocities da, db) over duration dt. If it projects
	// configurations onto a constraint manifold, it populates ret with the
	// sampled times and projected configurations.
	CheckPathAllConstraints(a, b, da, db []float64, dt float64, mask Mask) (Code, *ConstraintFilterReturn, error)

	// NeedDerivativeForFeasibility reports whether ConfigFeasible/segment
	// evaluation requires velocity alongside configuration.
	NeedDerivativeForFeasibility() bool
}

// ManipChecker evaluates manipulator Cartesian speed/acceleration bounds
// against a reconstructed sequence of sub-ramps. It is optional: a nil
// ManipChecker disables the manipulator check branch of SegmentFeasible.
type ManipChecker interface {
	Check(segments []Segment) (Code, float64, error)

	// GetMaxVelocitiesAccelerations narrows vLim/aLim in place to whatever
	// the manipulator's Cartesian speed/acceleration bounds allow at a
	// configuration moving with velocity dx (spec.md §4.4 step 4, evaluated
	// at both endpoints of a shortcut candidate).
	GetMaxVelocitiesAccelerations(dx, vLim, aLim []float64)
}

// ManipConfigurer is an optional interface a ManipChecker may implement to
// receive the planner-level manipulator parameters spec.md §6 names
// (manipname, fCosManipAngleThresh, maxmanipspeed, maxmanipaccel) before
// planning starts. Evaluating these against a kinematic chain is outside
// this module's scope (spec.md's Non-goals reserve manipulator Cartesian
// evaluation for the caller); ConfigureManip is the seam that lets a
// caller-supplied ManipChecker consume them instead of them being parsed
// from input and silently discarded.
type ManipConfigurer interface {
	ConfigureManip(name string, cosAngleThresh, maxSpeed, maxAccel float64)
}

// NeighStateFn projects a configuration onto a constraint manifold (e.g. a
// closed kinematic chain), used by InitialRamper's manifold conditioning
// pass. hardOnly restricts the projection to hard constraints only.
type NeighStateFn func(from, offset []float64, hardOnly bool) ([]float64, bool)

// SetStateFn sets the oracle's notion of the current configuration to q, the
// first half of the SetStateValues/getStateFn canonicalization round trip
// spec.md §4.4 step 3 performs on a shortcut candidate's endpoints. It
// returns CodeStateSettingError if the oracle rejects q.
type SetStateFn func(q []float64) (Code, error)

// GetStateFn returns the oracle's canonicalized configuration after the most
// recent SetStateFn call (e.g. projection onto a constraint manifold), the
// second half of spec.md §4.4 step 3's round trip.
type GetStateFn func() []float64
