package initialramp

import (
	"errors"

	"github.com/cxd309/parabolic-smoother/internal/constraint"
)

// ErrManifoldInsertionLimit is returned when manifold conditioning's
// consecutive-insertion counter, which gains 2 per midpoint insertion and
// drops 1 per non-splitting advance, exceeds 10 (spec.md §4.3 step 1's
// bound); an unbroken run of insertions trips it on the sixth.
var ErrManifoldInsertionLimit = errors.New("initialramp: exceeded consecutive manifold insertion bound")

// ErrManifoldStateRejected is returned when the oracle rejects the state set
// at a candidate midpoint, or when neighstatefn itself fails to project
// it — either is a hard failure of the whole construction, not a skip,
// matching parabolicsmoother.cpp's `return false` on the same condition.
var ErrManifoldStateRejected = errors.New("initialramp: oracle rejected manifold midpoint")

// conditionManifold iterates over consecutive waypoint pairs, projecting
// each Euclidean midpoint with neighstatefn and inserting the projection
// when it diverges from the midpoint by more than 1e-5 (squared distance).
// It returns the conditioned waypoint sequence and the set of waypoint
// indices adjacent to an insertion, which must be force-verified on their
// first feasibility check regardless of verifyInitialPath.
func conditionManifold(waypoints [][]float64, setstatefn constraint.SetStateFn, neighstatefn constraint.NeighStateFn) ([][]float64, map[int]bool, error) {
	forceVerify := map[int]bool{}
	if neighstatefn == nil {
		return waypoints, forceVerify, nil
	}

	w := append([][]float64{}, waypoints...)
	i := 0
	insertionsInARow := 0
	for i < len(w)-1 {
		mid := midpoint(w[i], w[i+1])
		offset := scale(sub(w[i+1], w[i]), 0.5)

		if setstatefn != nil {
			if code, err := setstatefn(mid); err != nil || code.Any() {
				return nil, nil, ErrManifoldStateRejected
			}
		}
		projected, ok := neighstatefn(w[i], offset, false)
		if !ok {
			return nil, nil, ErrManifoldStateRejected
		}
		if squaredDist(projected, mid) <= 1e-5 {
			i++
			insertionsInARow = decay(insertionsInARow)
			continue
		}

		insertionsInARow += 2
		if insertionsInARow > 10 {
			return nil, nil, ErrManifoldInsertionLimit
		}
		w = append(w[:i+1], append([][]float64{projected}, w[i+1:]...)...)
		// Force-verify the ramp leading out of the inserted point into its
		// (now-shifted) original right neighbor, not the ramp into the
		// unchanged left point.
		forceVerify[i+1] = true
		forceVerify[i+2] = true
		// Retry from i: the newly inserted point becomes w[i+1] and is
		// re-examined against both of its new neighbors.
	}
	return w, forceVerify, nil
}

// decay implements the original's nConsecutiveExpansions-- on a successful,
// non-splitting advance: the counter drains rather than resets, so an
// alternating insert/advance/insert/advance sequence still trips
// ErrManifoldInsertionLimit once enough insertions accumulate.
func decay(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}

func midpoint(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = (a[i] + b[i]) / 2
	}
	return out
}

func scale(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * s
	}
	return out
}

func squaredDist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
