package ramp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveMinTimeTwoDOFNoConstraints(t *testing.T) {
	// Scenario 1 of spec.md §8: vMax=(1,1), aMax=(1,1), a single leg from
	// (0,0) to (1,0): each axis takes 2s (1s accelerate, 1s decelerate).
	r, ok := SolveMinTime(
		[]float64{0, 0}, []float64{0, 0},
		[]float64{1, 0}, []float64{0, 0},
		[]float64{1, 1}, []float64{1, 1},
		nil, nil, InterpSynchronized,
	)
	require.True(t, ok)
	assert.InDelta(t, 2, r.Duration(), 1e-6)

	x, v := r.Eval(r.Duration())
	assert.InDelta(t, 1, x[0], 1e-6)
	assert.InDelta(t, 0, x[1], 1e-6)
	assert.InDelta(t, 0, v[0], 1e-6)
	assert.InDelta(t, 0, v[1], 1e-6)
}

func TestSolveMinTimeShortcutMerge(t *testing.T) {
	// Scenario 2: waypoints (0,0)->(1,0)->(2,0) merged into one ramp. With
	// vMax=1 the peak velocity is capped, so the ramp accelerates for 1s,
	// cruises for 1s and decelerates for 1s: 3 seconds in all.
	r, ok := SolveMinTime(
		[]float64{0, 0}, []float64{0, 0},
		[]float64{2, 0}, []float64{0, 0},
		[]float64{1, 1}, []float64{1, 1},
		nil, nil, InterpSynchronized,
	)
	require.True(t, ok)
	assert.InDelta(t, 3.0, r.Duration(), 1e-6)
}

func TestSolveAccelBoundedMatchesRequestedDuration(t *testing.T) {
	ramps, ok := SolveAccelBounded(
		[]float64{0}, []float64{0}, []float64{1}, []float64{0},
		3.0,
		[]float64{1}, []float64{1}, nil, nil,
	)
	require.True(t, ok)
	require.Len(t, ramps, 1)
	assert.InDelta(t, 3.0, ramps[0].TTotal, 1e-6)
	assert.InDelta(t, 1, ramps[0].Pos(3.0), 1e-6)
}

func TestSetPosVelTimeMatchesEndpoint(t *testing.T) {
	r := SetPosVelTime([]float64{0, 0}, []float64{0, 0}, []float64{2, 1}, []float64{0, 0}, 2.0)
	x, _ := r.Eval(2.0)
	assert.InDelta(t, 2, x[0], 1e-9)
	assert.InDelta(t, 1, x[1], 1e-9)
}

func TestRampNDTrimRoundTrip(t *testing.T) {
	r, ok := SolveMinTime(
		[]float64{0}, []float64{0}, []float64{4}, []float64{0},
		[]float64{1}, []float64{1}, nil, nil, InterpSynchronized,
	)
	require.True(t, ok)

	front := r.TrimFront(1.0)
	back := r.TrimBack(1.0)
	assert.InDelta(t, r.Duration()-1, front.Duration(), 1e-9)
	assert.InDelta(t, r.Duration()-1, back.Duration(), 1e-9)
}
