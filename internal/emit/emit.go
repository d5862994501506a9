// Package emit expands a DynamicPath's switch-time structure into a flat
// output waypoint sequence (spec.md §4.5, the Emitter), re-checking any
// ramp that was never constraint-checked at its current geometry and
// retrying under time dilation when that check fails.
package emit

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/cxd309/parabolic-smoother/internal/constraint"
	"github.com/cxd309/parabolic-smoother/internal/ramp"
	"github.com/cxd309/parabolic-smoother/internal/trajectory"
)

// ErrDilationExhausted is returned when none of the time-dilation factors
// let a not-yet-checked ramp pass feasibility (spec.md §4.5/§7's fatal
// emission failure class).
var ErrDilationExhausted = errors.New("emit: no dilation factor passed feasibility")

// dilationFactors are applied in order, each on top of the previous one;
// their product is close to 2x, the cap spec.md §4.5 names ("product ≈ 2×").
var dilationFactors = []float64{1.05, 1.10, 1.15, 1.20, 1.25}

// Waypoint is one emitted output-trajectory row: a position group tagged
// quadratic, a velocity group tagged linear, the elapsed time since the
// previously emitted waypoint, and the iswaypoint flag spec.md §4.5/§6
// describe.
type Waypoint struct {
	Position   []float64
	Velocity   []float64
	DeltaTime  float64
	IsWaypoint bool
	PosInterp  string
	VelInterp  string
}

const (
	posInterpQuadratic = "quadratic"
	velInterpLinear    = "linear"
)

// Options configures Emit.
type Options struct {
	Checker *constraint.Checker
	// StepLength is the jitter-avoidance trim (spec.md §4.5's "2 · stepLength")
	// applied to the first and last ramp before their re-check.
	StepLength float64
	// OutputAccelChanges toggles emitting one waypoint per switch time
	// versus only one waypoint per ramp end (spec.md's "_outputaccelchanges").
	OutputAccelChanges bool
	Logger             *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Emit re-verifies any unchecked ramp in path (dilating its duration on
// failure) and expands the result into a waypoint sequence. path is
// mutated in place when a dilation replaces a ramp.
func Emit(path *trajectory.DynamicPath, opt Options) ([]Waypoint, error) {
	if opt.Checker != nil {
		if err := verifyUncheckedRamps(path, opt); err != nil {
			return nil, err
		}
	}
	waypoints := expand(path, opt)
	if err := AssertDurationEquivalence(waypoints, path.EndTime()); err != nil {
		opt.logger().Warn("emit: duration equivalence assertion failed", "error", err)
		return nil, err
	}
	return waypoints, nil
}

func verifyUncheckedRamps(path *trajectory.DynamicPath, opt Options) error {
	last := len(path.Ramps) - 1
	for i, r := range path.Ramps {
		if r.ConstraintChecked {
			continue
		}

		trimmed := r
		boundary := false
		switch i {
		case 0:
			trimmed = r.TrimFront(2 * opt.StepLength)
			boundary = true
		case last:
			trimmed = r.TrimBack(2 * opt.StepLength)
			boundary = true
		}

		// Perturbation checking is disabled for the first and last ramp
		// during emission verification (spec.md's "_bUsePerturbation ...
		// disabled for the first and last ramp").
		var res constraint.Result
		var err error
		if boundary {
			res, _, err = opt.Checker.Check2NoPerturbation(trimmed, constraint.FullMask)
		} else {
			res, _, err = opt.Checker.Check2(trimmed, constraint.FullMask)
		}
		if err == nil && !res.Code.Any() {
			path.Ramps[i].ConstraintChecked = true
			continue
		}

		replacement, derr := dilate(r, path, opt, boundary)
		if derr != nil {
			opt.logger().Warn("emit: dilation exhausted for ramp", "ramp", i, "error", derr)
			return fmt.Errorf("emit: ramp %d: %w", i, ErrDilationExhausted)
		}
		replacement.ConstraintChecked = true
		path.Ramps[i] = replacement
	}
	path.Recompute()
	return nil
}

// dilate multiplies the ramp's duration by each factor in dilationFactors in
// turn, re-solving the *untrimmed* ramp at the dilated duration and
// re-checking it. It returns the first passing candidate. If the re-solve at
// some factor fails to solve, the loop breaks without trying a larger
// factor — preserved as spec.md §9 flags, rather than escalating to the next
// factor.
func dilate(r ramp.RampND, path *trajectory.DynamicPath, opt Options, boundary bool) (ramp.RampND, error) {
	x0, v0, x1, v1 := r.X0(), r.V0(), r.X1(), r.V1()
	T := r.Duration()

	for _, f := range dilationFactors {
		T *= f
		axisRamps, ok := ramp.SolveAccelBounded(x0, v0, x1, v1, T, path.Limits.AMax, path.Limits.VMax, path.Limits.XLo, path.Limits.XHi)
		if !ok {
			break
		}
		candidate := ramp.RampND{Ramps: axisRamps}
		var res constraint.Result
		var err error
		if boundary {
			res, _, err = opt.Checker.Check2NoPerturbation(candidate, constraint.FullMask)
		} else {
			res, _, err = opt.Checker.Check2(candidate, constraint.FullMask)
		}
		if err != nil {
			break
		}
		if !res.Code.Any() {
			return candidate, nil
		}
	}
	return ramp.RampND{}, ErrDilationExhausted
}

// expand walks path's final ramp sequence and produces one waypoint per
// emitted switch time (or one per ramp end, when OutputAccelChanges is
// false), plus a leading waypoint at t=0.
func expand(path *trajectory.DynamicPath, opt Options) []Waypoint {
	if len(path.Ramps) == 0 {
		return nil
	}

	x0, v0 := path.Ramps[0].Eval(0)
	out := []Waypoint{{
		Position:  x0,
		Velocity:  v0,
		DeltaTime: 0,
		PosInterp: posInterpQuadratic,
		VelInterp: velInterpLinear,
	}}

	lastEmitted := 0.0
	for i, r := range path.Ramps {
		start := path.RampStartTime(i)
		var localTimes []float64
		if opt.OutputAccelChanges {
			localTimes = r.SwitchTimes(path.Tol.Time)
		} else {
			localTimes = []float64{r.Duration()}
		}
		for _, lt := range localTimes {
			if lt <= path.Tol.Time {
				continue
			}
			globalT := start + lt
			x, v := r.Eval(lt)
			out = append(out, Waypoint{
				Position:   x,
				Velocity:   v,
				DeltaTime:  globalT - lastEmitted,
				IsWaypoint: lt >= r.Duration()-path.Tol.Time,
				PosInterp:  posInterpQuadratic,
				VelInterp:  velInterpLinear,
			})
			lastEmitted = globalT
		}
	}
	return out
}

// TotalDeltaTime sums every waypoint's DeltaTime, used to assert emission
// duration equivalence (spec.md §8 invariant 6).
func TotalDeltaTime(waypoints []Waypoint) float64 {
	sum := 0.0
	for _, w := range waypoints {
		sum += w.DeltaTime
	}
	return sum
}

// AssertDurationEquivalence checks TotalDeltaTime(waypoints) against
// expected within 0.01s, the tolerance spec.md §8 invariant 6 names.
func AssertDurationEquivalence(waypoints []Waypoint, expected float64) error {
	if math.Abs(TotalDeltaTime(waypoints)-expected) > 0.01 {
		return fmt.Errorf("emit: emitted duration %.6f does not match expected %.6f within 0.01s",
			TotalDeltaTime(waypoints), expected)
	}
	return nil
}
