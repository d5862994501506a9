package initialramp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/parabolic-smoother/internal/constraint"
)

// projectToward returns a NeighStateFn that always reports the Euclidean
// midpoint shifted by shift along every axis, diverging from the true
// midpoint enough to force an insertion on every call.
func projectToward(shift float64) constraint.NeighStateFn {
	return func(from, offset []float64, hardOnly bool) ([]float64, bool) {
		mid := make([]float64, len(from))
		for i := range from {
			mid[i] = from[i] + offset[i] + shift
		}
		return mid, true
	}
}

// projectOnce behaves like projectToward on its first call, then reports the
// true midpoint exactly on every later call, so the loop converges after one
// insertion instead of diverging forever.
func projectOnce(shift float64) constraint.NeighStateFn {
	called := false
	return func(from, offset []float64, hardOnly bool) ([]float64, bool) {
		mid := make([]float64, len(from))
		for i := range from {
			mid[i] = from[i] + offset[i]
		}
		if !called {
			called = true
			for i := range mid {
				mid[i] += shift
			}
		}
		return mid, true
	}
}

func TestConditionManifoldNoOpWithoutNeighStateFn(t *testing.T) {
	w := [][]float64{{0, 0}, {1, 0}, {2, 0}}
	out, forceVerify, err := conditionManifold(w, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, w, out)
	assert.Empty(t, forceVerify)
}

func TestConditionManifoldInsertsDivergentProjection(t *testing.T) {
	w := [][]float64{{0, 0}, {2, 0}}
	out, forceVerify, err := conditionManifold(w, nil, projectOnce(1))
	require.NoError(t, err)
	require.Len(t, out, 3)
	// The inserted point and its shifted right neighbor are force-verified;
	// the unchanged left point is not.
	assert.True(t, forceVerify[1])
	assert.True(t, forceVerify[2])
	assert.False(t, forceVerify[0])
}

func TestConditionManifoldHardFailsOnRejectedProjection(t *testing.T) {
	w := [][]float64{{0, 0}, {2, 0}}
	rejecting := func(from, offset []float64, hardOnly bool) ([]float64, bool) {
		return nil, false
	}
	_, _, err := conditionManifold(w, nil, rejecting)
	assert.ErrorIs(t, err, ErrManifoldStateRejected)
}

func TestConditionManifoldHardFailsOnStateSetRejection(t *testing.T) {
	w := [][]float64{{0, 0}, {2, 0}}
	rejecting := func(q []float64) (constraint.Code, error) {
		return constraint.CodeStateSettingError, nil
	}
	_, _, err := conditionManifold(w, rejecting, projectToward(1))
	assert.ErrorIs(t, err, ErrManifoldStateRejected)
}

func TestConditionManifoldTripsInsertionLimitOnPersistentDivergence(t *testing.T) {
	// projectToward never converges within 1e-5 of the true midpoint, so the
	// same pair keeps inserting (+=2 per insertion) until the counter passes
	// 10, rather than looping forever.
	w := [][]float64{{0, 0}, {2, 0}}
	_, _, err := conditionManifold(w, nil, projectToward(1))
	assert.ErrorIs(t, err, ErrManifoldInsertionLimit)
}
