package ramp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRamp1DEvaluatesEndpoints(t *testing.T) {
	r, ok := solveAxisMinTime(0, 0, 1, 0, 1, 1, -10, 10)
	require.True(t, ok)

	assert.InDelta(t, 0, r.Pos(0), 1e-9)
	assert.InDelta(t, 0, r.Vel(0), 1e-9)
	assert.InDelta(t, 1, r.Pos(r.TTotal), 1e-6)
	assert.InDelta(t, 0, r.Vel(r.TTotal), 1e-6)
}

func TestRamp1DZeroEndpointVelocityUnitMove(t *testing.T) {
	// vMax=1, aMax=1, d=1: accelerate 1s, decelerate 1s, total 2s (scenario
	// 1 of the end-to-end test matrix, single axis).
	r, ok := solveAxisMinTime(0, 0, 1, 0, 1, 1, -100, 100)
	require.True(t, ok)
	assert.InDelta(t, 2, r.TTotal, 1e-6)
}

func TestRamp1DTrimFrontBack(t *testing.T) {
	r, ok := solveAxisMinTime(0, 0, 4, 0, 1, 1, -100, 100)
	require.True(t, ok)

	trimmed := r.TrimFront(0.5)
	assert.InDelta(t, r.Pos(0.5), trimmed.X0, 1e-9)
	assert.InDelta(t, r.TTotal-0.5, trimmed.TTotal, 1e-9)

	back := r.TrimBack(0.5)
	assert.InDelta(t, r.Pos(r.TTotal-0.5), back.X1, 1e-9)
	assert.InDelta(t, r.TTotal-0.5, back.TTotal, 1e-9)
}

func TestRamp1DSwitchTimesExcludesEndpoints(t *testing.T) {
	// Unit move at the velocity limit (vp==vMax): a pure triangular
	// profile with exactly one interior switch.
	r, ok := solveAxisMinTime(0, 0, 1, 0, 1, 1, -100, 100)
	require.True(t, ok)
	sw := r.SwitchTimes(1e-9)
	require.Len(t, sw, 1)
	assert.InDelta(t, r.TSwitch1, sw[0], 1e-9)
}

func TestRamp1DSwitchTimesIncludesCruisePhase(t *testing.T) {
	// A longer move at the same limits inserts a cruise phase, giving two
	// distinct interior switches.
	r, ok := solveAxisMinTime(0, 0, 4, 0, 1, 1, -100, 100)
	require.True(t, ok)
	sw := r.SwitchTimes(1e-9)
	require.Len(t, sw, 2)
}
