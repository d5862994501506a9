package initialramp

import (
	"errors"
	"fmt"

	"github.com/cxd309/parabolic-smoother/internal/constraint"
	"github.com/cxd309/parabolic-smoother/internal/ramp"
	"github.com/cxd309/parabolic-smoother/internal/trajectory"
)

// ErrRetriesExhausted is returned when a waypoint pair cannot be solved
// within the 30-retry slow-down budget spec.md §4.3 allows.
var ErrRetriesExhausted = errors.New("initialramp: exceeded 30 slow-down retries")

const maxSlowdownRetries = 30

// Options configures FromWaypoints.
type Options struct {
	VMax, AMax, XLo, XHi []float64
	NeighStateFn         constraint.NeighStateFn
	SetStateFn           constraint.SetStateFn
	Checker              *constraint.Checker
	VerifyInitialPath    bool
	EpsX                 float64
	Tol                  trajectory.Tolerances
}

// FromWaypoints converts a linear waypoint sequence into a DynamicPath with
// one ramp per adjacent pair of the collapsed, manifold-conditioned
// sequence (a single constant-pose ramp for one waypoint), with zero
// velocity at the first and last waypoint and zero intermediate velocities
// (spec.md §4.3's "_SetMilestones").
func FromWaypoints(waypoints [][]float64, opt Options) (*trajectory.DynamicPath, error) {
	collapsed := CollapseWaypoints(waypoints, opt.EpsX)
	conditioned, forceVerify, err := conditionManifold(collapsed, opt.SetStateFn, opt.NeighStateFn)
	if err != nil {
		return nil, err
	}

	if len(conditioned) < 2 {
		// A single-waypoint input produces a constant-pose single ramp
		// (spec.md §8 boundary case).
		if len(conditioned) == 1 {
			n := len(conditioned[0])
			zero := make([]float64, n)
			r := ramp.SetPosVelTime(conditioned[0], zero, conditioned[0], zero, 0)
			r.ConstraintChecked = true
			limits := trajectory.Limits{VMax: opt.VMax, AMax: opt.AMax, XLo: opt.XLo, XHi: opt.XHi}
			return trajectory.New([]ramp.RampND{r}, limits, opt.Tol), nil
		}
		return nil, fmt.Errorf("initialramp: need at least one waypoint")
	}

	n := len(conditioned[0])
	zero := make([]float64, n)

	ramps := make([]ramp.RampND, 0, len(conditioned)-1)
	for i := 0; i+1 < len(conditioned); i++ {
		r, err := solvePairWithRetry(conditioned[i], conditioned[i+1], zero, zero, opt, forceVerify[i] || forceVerify[i+1])
		if err != nil {
			return nil, fmt.Errorf("initialramp: waypoint %d->%d: %w", i, i+1, err)
		}
		ramps = append(ramps, r)
	}

	limits := trajectory.Limits{VMax: opt.VMax, AMax: opt.AMax, XLo: opt.XLo, XHi: opt.XHi}
	return trajectory.New(ramps, limits, opt.Tol), nil
}

func solvePairWithRetry(w0, w1, v0, v1 []float64, opt Options, forceVerify bool) (ramp.RampND, error) {
	vLim := append([]float64{}, opt.VMax...)
	aLim := append([]float64{}, opt.AMax...)

	mask := constraint.CodeCheckTimeBasedConstraints
	if opt.VerifyInitialPath {
		mask |= constraint.CodeCheckEnvCollision | constraint.CodeCheckSelfCollision
	}

	for attempt := 0; attempt < maxSlowdownRetries; attempt++ {
		candidate, ok := ramp.SolveMinTime(w0, v0, w1, v1, aLim, vLim, opt.XLo, opt.XHi, ramp.InterpSynchronized)
		if !ok {
			return ramp.RampND{}, ramp.ErrInfeasible
		}

		if opt.Checker == nil {
			if !opt.VerifyInitialPath && !forceVerify {
				candidate.ConstraintChecked = true
			}
			return candidate, nil
		}

		res, _, err := opt.Checker.Check2(candidate, mask)
		if err != nil {
			return ramp.RampND{}, err
		}
		if !res.Code.Any() {
			if !opt.VerifyInitialPath && !forceVerify {
				candidate.ConstraintChecked = true
			}
			return candidate, nil
		}
		if res.Code.Has(constraint.CodeCheckTimeBasedConstraints) {
			s := res.SurpassMult
			if s <= 0 {
				s = 0.5
			}
			for i := range vLim {
				vLim[i] *= s
				aLim[i] *= s
			}
			continue
		}
		return ramp.RampND{}, fmt.Errorf("initialramp: %w", errCodeFailure(res.Code))
	}
	return ramp.RampND{}, ErrRetriesExhausted
}

func errCodeFailure(c constraint.Code) error {
	return fmt.Errorf("feasibility check failed with code %s", c)
}
