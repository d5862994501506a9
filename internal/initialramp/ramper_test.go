package initialramp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/parabolic-smoother/internal/trajectory"
)

func baseOptions() Options {
	return Options{
		VMax: []float64{1, 1},
		AMax: []float64{1, 1},
		XLo:  []float64{-100, -100},
		XHi:  []float64{100, 100},
		EpsX: 1e-5,
		Tol:  trajectory.DefaultTolerances(),
	}
}

func TestFromWaypointsTwoDOFNoConstraints(t *testing.T) {
	// Scenario 1 of spec.md §8.
	waypoints := [][]float64{{0, 0}, {1, 0}, {1, 1}}
	path, err := FromWaypoints(waypoints, baseOptions())
	require.NoError(t, err)

	require.Len(t, path.Ramps, 2)
	assert.InDelta(t, 4, path.EndTime(), 1e-6)
	for _, r := range path.Ramps {
		assert.InDelta(t, 2, r.Duration(), 1e-6)
	}
	assert.NoError(t, path.Validate())
}

func TestFromWaypointsSingleWaypoint(t *testing.T) {
	path, err := FromWaypoints([][]float64{{1, 2}}, baseOptions())
	require.NoError(t, err)
	require.Len(t, path.Ramps, 1)
	assert.InDelta(t, 0, path.EndTime(), 1e-9)
}

func TestFromWaypointsCollapsesCollinearTriple(t *testing.T) {
	waypoints := [][]float64{{0, 0}, {1, 0}, {2, 0}}
	path, err := FromWaypoints(waypoints, baseOptions())
	require.NoError(t, err)
	// The collinear midpoint collapses away, leaving one ramp end-to-end.
	require.Len(t, path.Ramps, 1)
}
