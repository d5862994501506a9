package initialramp

import (
	"log/slog"

	"github.com/cxd309/parabolic-smoother/internal/ramp"
	"github.com/cxd309/parabolic-smoother/internal/trajectory"
)

// TimedWaypoint is one input row when the incoming trajectory already
// carries per-segment timing and a quadratic interpolation tag (spec.md §6:
// "When both are present, the core consumes the incoming per-ramp timings
// verbatim to seed the DynamicPath").
type TimedWaypoint struct {
	Position  []float64 `json:"position"`
	Velocity  []float64 `json:"velocity"`
	DeltaTime float64   `json:"delta_time"` // duration of the segment ending at this waypoint; zero for the first row
}

// FromTimedWaypoints builds a DynamicPath directly from pre-timed segments,
// skipping the collapsing/conditioning InitialRamper otherwise performs
// since the caller has already committed to explicit timing.
//
// A segment whose DeltaTime is zero is dropped rather than
// producing a degenerate zero-duration ramp — open question in spec.md §9:
// this loses any embedded instantaneous discontinuity, preserved here but
// logged rather than silently swallowed.
func FromTimedWaypoints(waypoints []TimedWaypoint, limits trajectory.Limits, tol trajectory.Tolerances, logger *slog.Logger) *trajectory.DynamicPath {
	if logger == nil {
		logger = slog.Default()
	}
	if len(waypoints) == 0 {
		return trajectory.New(nil, limits, tol)
	}

	ramps := make([]ramp.RampND, 0, len(waypoints)-1)
	for i := 1; i < len(waypoints); i++ {
		prev, cur := waypoints[i-1], waypoints[i]
		if cur.DeltaTime <= 0 {
			logger.Warn("initialramp: dropping zero-duration timed segment", "index", i)
			continue
		}
		r := ramp.SetPosVelTime(prev.Position, prev.Velocity, cur.Position, cur.Velocity, cur.DeltaTime)
		ramps = append(ramps, r)
	}
	return trajectory.New(ramps, limits, tol)
}
