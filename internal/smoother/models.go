package smoother

import (
	"github.com/cxd309/parabolic-smoother/internal/emit"
	"github.com/cxd309/parabolic-smoother/internal/initialramp"
	"github.com/cxd309/parabolic-smoother/internal/ramp"
)

// Params holds the per-axis bounds and planner knobs spec.md §6 enumerates
// under the planner parameter object. Function-valued parameters
// (_setstatevaluesfn, _getstatefn, _neighstatefn, the manipulator checker)
// are not JSON-serializable and live on Options instead.
type Params struct {
	VMax             []float64 `json:"vmax"`
	AMax             []float64 `json:"amax"`
	XLo              []float64 `json:"xlo"`
	XHi              []float64 `json:"xhi"`
	ConfigResolution []float64 `json:"config_resolution,omitempty"`
	PointTolerance   float64   `json:"point_tolerance,omitempty"`

	MaxIterations      int             `json:"max_iterations"`
	StepLength         float64         `json:"step_length"`
	MultiDOFInterp     ramp.InterpMode `json:"multi_dof_interp"`
	HasTimestamps      bool            `json:"has_timestamps"`
	OutputAccelChanges bool            `json:"output_accel_changes"`
	VerifyInitialPath  bool            `json:"verify_initial_path"`
	SearchVelAccelMult float64         `json:"search_vel_accel_mult"`
	// UsePerturbation is spec.md §6's _bUsePerturbation: ORs
	// CodeCheckWithPerturbation onto every outgoing mask except, per
	// spec.md's own carve-out, the first/last ramp during emission
	// verification (see emit.Emit's Check2NoPerturbation calls).
	UsePerturbation bool `json:"use_perturbation"`

	CosManipAngleThresh float64 `json:"cos_manip_angle_thresh,omitempty"`
	ManipName           string  `json:"manip_name,omitempty"`
	MaxManipSpeed       float64 `json:"max_manip_speed,omitempty"`
	MaxManipAccel       float64 `json:"max_manip_accel,omitempty"`

	RandomSeed uint64 `json:"random_seed"`
}

// DefaultParams returns Params with spec.md §6's named default of 100
// max iterations and a neutral 0.8 search multiplier.
func DefaultParams() Params {
	return Params{
		MaxIterations:      100,
		SearchVelAccelMult: 0.8,
	}
}

// SmoothingInput is the JSON-serializable entry-point payload: either a raw
// waypoint sequence (InitialRamper synthesizes timing) or a pre-timed
// sequence (consumed verbatim), per spec.md §6.
type SmoothingInput struct {
	Params         Params                      `json:"params"`
	Waypoints      [][]float64                 `json:"waypoints,omitempty"`
	TimedWaypoints []initialramp.TimedWaypoint `json:"timed_waypoints,omitempty"`
}

// Status mirrors spec.md §6's exit status enumeration.
type Status string

const (
	StatusSuccess     Status = "Success"
	StatusFailed      Status = "Failed"
	StatusInterrupted Status = "Interrupted"
)

// SmoothingResult is the JSON-serializable output of PlanPath.
type SmoothingResult struct {
	RunID             string          `json:"run_id"`
	Status            Status          `json:"status"`
	Waypoints         []emit.Waypoint `json:"waypoints,omitempty"`
	Duration          float64         `json:"duration"`
	ShortcutsAccepted int             `json:"shortcuts_accepted"`
	FailureReason     string          `json:"failure_reason,omitempty"`
}
