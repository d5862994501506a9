package shortcut

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/parabolic-smoother/internal/constraint"
	"github.com/cxd309/parabolic-smoother/internal/ramp"
	"github.com/cxd309/parabolic-smoother/internal/trajectory"
)

func twoDOFSquarePath(t *testing.T) *trajectory.DynamicPath {
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

// acceptAllOracle approves every configuration and segment; it never
// projects geometry.
type acceptAllOracle struct{}

func (acceptAllOracle) ConfigFeasible(q, v []float64, mask constraint.Mask) (constraint.Code, error) {
	return 0, nil
}
func (acceptAllOracle) CheckPathAllConstraints(a, b, da, db []float64, dt float64, mask constraint.Mask) (constraint.Code, *constraint.ConstraintFilterReturn, error) {
	return 0, nil, nil
}
func (acceptAllOracle) NeedDerivativeForFeasibility() bool { return false }

func newChecker() *constraint.Checker {
	return &constraint.Checker{
		Oracle:      acceptAllOracle{},
		VMax:        []float64{1, 1},
		Tol:         []float64{1e-3, 1e-3},
		EpsTime:     1e-7,
		EpsPosition: 1e-5,
		EpsVelocity: 1e-5,
		EpsFloat:    1e-9,
	}
}

func TestShortcutMergesCornerIntoDiagonal(t *testing.T) {
	// Scenario 2 of spec.md §8: the right-angle two-leg path has a diagonal
	// shortcut spanning its full duration that the checker should accept.
	path := twoDOFSquarePath(t)
	before := path.EndTime()

	sc := New(Options{
		Sampler:       &FixedSampler{Pairs: [][2]float64{{0, before}}},
		Checker:       newChecker(),
		MaxIterations: 1,
		MinSpan:       1e-6,
	})
	accepted, err := sc.Run(path)
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)
	assert.Less(t, path.EndTime(), before)
	assert.NoError(t, path.Validate())
}

// timeRejectingOracle rejects any segment whose sampled duration is below
// minDuration, simulating a time-based constraint the caller must slow down
// and retry against.
type timeRejectingOracle struct {
	minDuration float64
}

func (timeRejectingOracle) ConfigFeasible(q, v []float64, mask constraint.Mask) (constraint.Code, error) {
	return 0, nil
}

func (o timeRejectingOracle) CheckPathAllConstraints(a, b, da, db []float64, dt float64, mask constraint.Mask) (constraint.Code, *constraint.ConstraintFilterReturn, error) {
	if dt < o.minDuration {
		return constraint.CodeCheckTimeBasedConstraints, nil, nil
	}
	return 0, nil, nil
}
func (timeRejectingOracle) NeedDerivativeForFeasibility() bool { return false }

func TestShortcutSlowsDownOnTimeBasedRejection(t *testing.T) {
	// Scenario 3 of spec.md §8: a shortcut that is initially too fast for
	// the oracle's time-based constraint gets slowed down and retried
	// instead of rejected outright.
	path := twoDOFSquarePath(t)
	before := path.EndTime()

	checker := newChecker()
	checker.Oracle = timeRejectingOracle{minDuration: before * 0.7}

	sc := New(Options{
		Sampler:       &FixedSampler{Pairs: [][2]float64{{0, before}}},
		Checker:       checker,
		MaxIterations: 1,
		MinSpan:       1e-6,
	})
	accepted, err := sc.Run(path)
	require.NoError(t, err)
	// The first, fastest candidate is rejected as too fast; the retry loop
	// slows down until the oracle accepts a (still improved) candidate, or
	// gives up within its 4-try budget without corrupting the path.
	assert.NoError(t, path.Validate())
	if accepted == 1 {
		assert.Less(t, path.EndTime(), before)
	} else {
		assert.Equal(t, before, path.EndTime())
	}
}

func TestShortcutInterruptionStopsEarly(t *testing.T) {
	// Scenario 6 of spec.md §8: the progress callback can halt the loop
	// before it exhausts MaxIterations, and whatever was accepted so far is
	// preserved.
	path := twoDOFSquarePath(t)
	before := path.EndTime()

	sc := New(Options{
		Sampler:       &FixedSampler{Pairs: [][2]float64{{0, before}}},
		Checker:       newChecker(),
		MaxIterations: 100,
		MinSpan:       1e-6,
		Progress: func(iteration, accepted int) ProgressAction {
			if iteration >= 1 {
				return ProgressInterrupt
			}
			return ProgressContinue
		},
	})
	accepted, err := sc.Run(path)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, 1, accepted)
}

func TestShortcutSkipsSpansBelowMinSpan(t *testing.T) {
	// Iteration 0 always attempts the full [0, endTime] span, which here is
	// already the minimum-time straight ramp and yields no savings; a
	// second, sampler-driven iteration with a span below MinSpan must also
	// be skipped rather than spliced in.
	limits := trajectory.Limits{
		VMax: []float64{1, 1}, AMax: []float64{1, 1},
		XLo: []float64{-100, -100}, XHi: []float64{100, 100},
	}
	r, ok := ramp.SolveMinTime([]float64{0, 0}, []float64{0, 0}, []float64{1, 0}, []float64{0, 0},
		limits.AMax, limits.VMax, limits.XLo, limits.XHi, ramp.InterpSynchronized)
	require.True(t, ok)
	r.ConstraintChecked = true
	path := trajectory.New([]ramp.RampND{r}, limits, trajectory.DefaultTolerances())
	before := path.EndTime()

	sc := New(Options{
		Sampler:       &FixedSampler{Pairs: [][2]float64{{0, 1e-9}}},
		Checker:       newChecker(),
		MaxIterations: 2,
		MinSpan:       1e-3,
	})
	accepted, err := sc.Run(path)
	require.NoError(t, err)
	assert.Equal(t, 0, accepted)
	assert.Equal(t, before, path.EndTime())
}
