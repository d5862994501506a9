package ramp

import "math"

// solveAxisMinTime finds the minimum-duration single-axis ramp from
// (x0, v0) to (x1, v1) respecting aMax, vMax, and the position bounds
// [xLo, xHi]. It returns the ramp and whether one was found.
//
// The unbounded-position shape is solved in closed form (trapezoidal
// velocity profile, falling back to a triangular one when the peak velocity
// stays under vMax); position bounds are then checked at nine evenly spaced
// samples of the solved ramp. A ramp whose extrema already respect the bounds is
// accepted as-is — the solver does not attempt to re-derive a bound-hugging
// shape when the direct one is already feasible, which covers the common
// case where xLo/xHi are wide relative to the motion. If the direct ramp
// violates a position bound, SolveMinTime reports infeasibility rather than
// searching for an alternate switch-time decomposition; bound-tight
// scenarios are expected to be resolved by the caller relaxing vMax/aMax and
// retrying (the policy InitialRamper and Shortcutter both already implement
// for CFO_CheckTimeBasedConstraints).
func solveAxisMinTime(x0, v0, x1, v1, aMax, vMax, xLo, xHi float64) (Ramp1D, bool) {
	if aMax <= 0 || vMax <= 0 {
		return Ramp1D{}, false
	}

	up, upOK := trapezoid(x0, v0, x1, v1, aMax, vMax)
	downMirrored, downMirroredOK := trapezoid(-x0, -v0, -x1, -v1, aMax, vMax)
	down, downOK := negate(downMirrored), downMirroredOK

	var best Ramp1D
	var ok bool
	switch {
	case upOK && downOK:
		if up.TTotal <= down.TTotal {
			best, ok = up, true
		} else {
			best, ok = down, true
		}
	case upOK:
		best, ok = up, true
	case downOK:
		best, ok = down, true
	}
	if !ok {
		return Ramp1D{}, false
	}
	if !withinPositionBounds(best, xLo, xHi) {
		return Ramp1D{}, false
	}
	return best, true
}

// trapezoid solves the unbounded-position accelerate/cruise/decelerate
// shape: accelerate at +aMax toward a peak velocity vp (capped at vMax),
// optionally cruise at vp, then decelerate at -aMax into (x1, v1).
func trapezoid(x0, v0, x1, v1, aMax, vMax float64) (Ramp1D, bool) {
	d := x1 - x0

	vpSq := (2*aMax*d + v0*v0 + v1*v1) / 2
	if vpSq < math.Max(v0*v0, v1*v1)-1e-9 {
		return Ramp1D{}, false
	}
	vp := math.Sqrt(math.Max(0, vpSq))
	if vp < v0 || vp < v1 {
		return Ramp1D{}, false
	}

	if vp <= vMax+1e-12 {
		t1 := (vp - v0) / aMax
		t2 := (vp - v1) / aMax
		if t1 < -1e-9 || t2 < -1e-9 {
			return Ramp1D{}, false
		}
		t1, t2 = math.Max(0, t1), math.Max(0, t2)
		return Ramp1D{
			X0: x0, V0: v0, X1: x1, V1: v1,
			A1: aMax, A2: -aMax,
			TSwitch1: t1, TSwitch2: t1, TTotal: t1 + t2,
		}, true
	}

	// Peak would exceed vMax: clip to vMax and insert a cruise phase.
	t1 := (vMax - v0) / aMax
	t3 := (vMax - v1) / aMax
	if t1 < -1e-9 || t3 < -1e-9 {
		return Ramp1D{}, false
	}
	t1, t3 = math.Max(0, t1), math.Max(0, t3)
	dist1 := (vMax*vMax - v0*v0) / (2 * aMax)
	dist3 := (vMax*vMax - v1*v1) / (2 * aMax)
	dCruise := d - dist1 - dist3
	if dCruise < -1e-9 {
		return Ramp1D{}, false
	}
	tc := math.Max(0, dCruise) / vMax
	return Ramp1D{
		X0: x0, V0: v0, X1: x1, V1: v1,
		A1: aMax, A2: -aMax,
		TSwitch1: t1, TSwitch2: t1 + tc, TTotal: t1 + tc + t3,
	}, true
}

// negate flips a ramp solved for a negated point-to-point problem back into
// the original sign convention, letting the trough-shaped
// (decelerate-then-accelerate) case reuse the peak-shaped solver.
func negate(r Ramp1D) Ramp1D {
	r.X0, r.V0, r.X1, r.V1 = -r.X0, -r.V0, -r.X1, -r.V1
	r.A1, r.A2 = -r.A1, -r.A2
	return r
}

func withinPositionBounds(r Ramp1D, xLo, xHi float64) bool {
	if math.IsInf(xLo, -1) && math.IsInf(xHi, 1) {
		return true
	}
	const samples = 8
	for i := 0; i <= samples; i++ {
		t := r.TTotal * float64(i) / samples
		x := r.Pos(t)
		if x < xLo-1e-9 || x > xHi+1e-9 {
			return false
		}
	}
	return true
}

// SolveMinTime returns the minimum-duration RampND respecting per-axis
// acceleration, velocity, and position bounds. mode is an opaque
// pass-through distinguishing per-axis independent timing from a
// synchronized whole-vector solve; both ultimately stretch every axis to
// the slowest axis's duration so the bundle shares one TTotal.
func SolveMinTime(x0, v0, x1, v1, aMax, vMax, xLo, xHi []float64, mode InterpMode) (RampND, bool) {
	n := len(x0)
	if len(v0) != n || len(x1) != n || len(v1) != n || len(aMax) != n || len(vMax) != n {
		return RampND{}, false
	}

	axisRamps := make([]Ramp1D, n)
	tMax := 0.0
	for i := 0; i < n; i++ {
		lo, hi := math.Inf(-1), math.Inf(1)
		if xLo != nil {
			lo = xLo[i]
		}
		if xHi != nil {
			hi = xHi[i]
		}
		r, ok := solveAxisMinTime(x0[i], v0[i], x1[i], v1[i], aMax[i], vMax[i], lo, hi)
		if !ok {
			return RampND{}, false
		}
		axisRamps[i] = r
		if r.TTotal > tMax {
			tMax = r.TTotal
		}
	}

	// Stretch every axis to the shared duration tMax by re-solving each
	// axis at fixed time (SolveAccelBounded semantics), which keeps the
	// whole bundle time-synchronized regardless of InterpMode.
	stretched := make([]Ramp1D, n)
	for i := 0; i < n; i++ {
		lo, hi := math.Inf(-1), math.Inf(1)
		if xLo != nil {
			lo = xLo[i]
		}
		if xHi != nil {
			hi = xHi[i]
		}
		r, ok := solveAxisFixedTime(x0[i], v0[i], x1[i], v1[i], tMax, aMax[i], vMax[i], lo, hi)
		if !ok {
			return RampND{}, false
		}
		stretched[i] = r
	}
	return RampND{Ramps: stretched}, true
}

// SolveAccelBounded finds any feasible per-axis ramps of fixed duration T
// respecting aMax, vMax, and position bounds. It returns false if any axis
// cannot be solved at that duration.
func SolveAccelBounded(x0, v0, x1, v1 []float64, T float64, aMax, vMax, xLo, xHi []float64) ([]Ramp1D, bool) {
	n := len(x0)
	out := make([]Ramp1D, n)
	for i := 0; i < n; i++ {
		lo, hi := math.Inf(-1), math.Inf(1)
		if xLo != nil {
			lo = xLo[i]
		}
		if xHi != nil {
			hi = xHi[i]
		}
		r, ok := solveAxisFixedTime(x0[i], v0[i], x1[i], v1[i], T, aMax[i], vMax[i], lo, hi)
		if !ok {
			return nil, false
		}
		out[i] = r
	}
	return out, true
}

// solveAxisFixedTime finds a feasible single-axis ramp of exactly duration T.
// It uses the same trapezoid shape as solveAxisMinTime but computes the
// acceleration needed to make the profile exactly fill T rather than solving
// for minimum T: the peak/trough velocity is parameterized by T directly.
func solveAxisFixedTime(x0, v0, x1, v1, T, aMax, vMax, xLo, xHi float64) (Ramp1D, bool) {
	if T <= 0 {
		if math.Abs(x1-x0) > 1e-9 || math.Abs(v1-v0) > 1e-9 {
			return Ramp1D{}, false
		}
		return Ramp1D{X0: x0, V0: v0, X1: x1, V1: v1}, true
	}

	// Binary search the shared switch velocity vp over [-vMax, vMax] so
	// that the accelerate/decelerate shape (with a cruise phase implied
	// whenever the two half-durations don't already sum to T) integrates
	// to exactly d = x1-x0 over exactly T.
	d := x1 - x0
	feasible := func(vp float64) (Ramp1D, bool) {
		t1 := (vp - v0) / aMax
		t2 := (v1 - vp) / -aMax // time to decelerate from vp to v1
		if t1 < -1e-9 || t2 < -1e-9 {
			return Ramp1D{}, false
		}
		t1, t2 = math.Max(0, t1), math.Max(0, t2)
		if t1+t2 > T+1e-9 {
			return Ramp1D{}, false
		}
		tc := T - t1 - t2
		dist := (vp*vp-v0*v0)/(2*aMax) + vp*tc + (v1*v1-vp*vp)/(2*-aMax)
		r := Ramp1D{
			X0: x0, V0: v0, X1: x1, V1: v1,
			A1: aMax, A2: -aMax,
			TSwitch1: t1, TSwitch2: t1 + tc, TTotal: T,
		}
		return r, math.Abs(dist-d) < 1e-10*math.Max(1, math.Abs(d))
	}

	lo, hi := -vMax, vMax
	var best Ramp1D
	var found bool
	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2
		r, ok := feasible(mid)
		if ok {
			best, found = r, true
			break
		}
		// Monotonic in vp: larger vp moves more distance forward.
		t1 := (mid - v0) / aMax
		t2 := (v1 - mid) / -aMax
		dist := math.Inf(1)
		if t1 >= -1e-9 && t2 >= -1e-9 {
			tc := T - math.Max(0, t1) - math.Max(0, t2)
			if tc >= -1e-9 {
				dist = (mid*mid-v0*v0)/(2*aMax) + mid*math.Max(0, tc) + (v1*v1-mid*mid)/(2*-aMax)
			}
		}
		if dist < d {
			lo = mid
		} else {
			hi = mid
		}
	}
	if !found {
		// A move in the negative direction needs the trough shape: solve
		// the mirrored problem with the peak shape and flip it back.
		if d < 0 {
			if m, ok := solveAxisFixedTime(-x0, -v0, -x1, -v1, T, aMax, vMax, -xHi, -xLo); ok {
				return negate(m), true
			}
		}
		return Ramp1D{}, false
	}
	if !withinPositionBounds(best, xLo, xHi) {
		return Ramp1D{}, false
	}
	return best, true
}
