package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/parabolic-smoother/internal/constraint"
	"github.com/cxd309/parabolic-smoother/internal/ramp"
	"github.com/cxd309/parabolic-smoother/internal/trajectory"
)

func twoRampPath(t *testing.T) *trajectory.DynamicPath {
	t.Helper()
	limits := trajectory.Limits{
		VMax: []float64{1, 1},
		AMax: []float64{1, 1},
		XLo:  []float64{-100, -100},
		XHi:  []float64{100, 100},
	}
	r1, ok := ramp.SolveMinTime([]float64{0, 0}, []float64{0, 0}, []float64{1, 0}, []float64{0, 0},
		limits.AMax, limits.VMax, limits.XLo, limits.XHi, ramp.InterpSynchronized)
	require.True(t, ok)
	r2, ok := ramp.SolveMinTime([]float64{1, 0}, []float64{0, 0}, []float64{1, 1}, []float64{0, 0},
		limits.AMax, limits.VMax, limits.XLo, limits.XHi, ramp.InterpSynchronized)
	require.True(t, ok)
	r1.ConstraintChecked, r2.ConstraintChecked = true, true
	return trajectory.New([]ramp.RampND{r1, r2}, limits, trajectory.DefaultTolerances())
}

func TestEmitTwoDOFNoConstraintsDurationEquivalence(t *testing.T) {
	// Scenario 1 of spec.md §8.
	path := twoRampPath(t)
	waypoints, err := Emit(path, Options{OutputAccelChanges: true})
	require.NoError(t, err)
	require.NoError(t, AssertDurationEquivalence(waypoints, path.EndTime()))

	last := waypoints[len(waypoints)-1]
	assert.InDelta(t, 0, last.Velocity[0], 1e-6)
	assert.InDelta(t, 0, last.Velocity[1], 1e-6)
	assert.True(t, last.IsWaypoint)
}

func TestEmitWithoutAccelChangesEmitsOnlyRampEnds(t *testing.T) {
	path := twoRampPath(t)
	waypoints, err := Emit(path, Options{OutputAccelChanges: false})
	require.NoError(t, err)
	// One origin waypoint plus one per ramp end.
	assert.Len(t, waypoints, 1+len(path.Ramps))
	require.NoError(t, AssertDurationEquivalence(waypoints, path.EndTime()))
}

// acceptAllOracle approves every configuration/segment.
type acceptAllOracle struct{}

func (acceptAllOracle) ConfigFeasible(q, v []float64, mask constraint.Mask) (constraint.Code, error) {
	return 0, nil
}
func (acceptAllOracle) CheckPathAllConstraints(a, b, da, db []float64, dt float64, mask constraint.Mask) (constraint.Code, *constraint.ConstraintFilterReturn, error) {
	return 0, nil, nil
}
func (acceptAllOracle) NeedDerivativeForFeasibility() bool { return false }

// onceRejectOracle rejects the first CheckPathAllConstraints call with the
// given code, then accepts everything afterward — simulating a ramp that
// fails at its original timing but passes once dilated.
type onceRejectOracle struct {
	rejected bool
	code     constraint.Code
}

func (o *onceRejectOracle) ConfigFeasible(q, v []float64, mask constraint.Mask) (constraint.Code, error) {
	return 0, nil
}

func (o *onceRejectOracle) CheckPathAllConstraints(a, b, da, db []float64, dt float64, mask constraint.Mask) (constraint.Code, *constraint.ConstraintFilterReturn, error) {
	if !o.rejected {
		o.rejected = true
		return o.code, nil, nil
	}
	return 0, nil, nil
}
func (o *onceRejectOracle) NeedDerivativeForFeasibility() bool { return false }

func newChecker(oracle constraint.Oracle) *constraint.Checker {
	return &constraint.Checker{
		Oracle:      oracle,
		VMax:        []float64{1, 1},
		Tol:         []float64{1e-3, 1e-3},
		EpsTime:     1e-7,
		EpsPosition: 1e-5,
		EpsVelocity: 1e-5,
		EpsFloat:    1e-9,
	}
}

func TestEmitDilatesUncheckedRampOnFirstFailure(t *testing.T) {
	// Scenario 5 of spec.md §8: a ramp that fails collision at its original
	// timing but passes once dilated must be replaced, not rejected.
	path := twoRampPath(t)
	path.Ramps[0].ConstraintChecked = false
	before := path.EndTime()

	checker := newChecker(&onceRejectOracle{code: constraint.CodeCheckEnvCollision})
	waypoints, err := Emit(path, Options{Checker: checker, OutputAccelChanges: true})
	require.NoError(t, err)
	assert.Greater(t, path.EndTime(), before)
	require.NoError(t, AssertDurationEquivalence(waypoints, path.EndTime()))
}

func TestEmitFailsWhenNoDilationPasses(t *testing.T) {
	path := twoRampPath(t)
	path.Ramps[0].ConstraintChecked = false

	checker := newChecker(rejectAlwaysOracle{})
	_, err := Emit(path, Options{Checker: checker, OutputAccelChanges: true})
	assert.ErrorIs(t, err, ErrDilationExhausted)
}

type rejectAlwaysOracle struct{}

func (rejectAlwaysOracle) ConfigFeasible(q, v []float64, mask constraint.Mask) (constraint.Code, error) {
	return 0, nil
}
func (rejectAlwaysOracle) CheckPathAllConstraints(a, b, da, db []float64, dt float64, mask constraint.Mask) (constraint.Code, *constraint.ConstraintFilterReturn, error) {
	return constraint.CodeCheckEnvCollision, nil, nil
}
func (rejectAlwaysOracle) NeedDerivativeForFeasibility() bool { return false }
