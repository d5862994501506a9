package shortcut

import (
	"errors"
	"log/slog"
	"math"

	"github.com/cxd309/parabolic-smoother/internal/constraint"
	"github.com/cxd309/parabolic-smoother/internal/ramp"
	"github.com/cxd309/parabolic-smoother/internal/trajectory"
)

// ErrInterrupted is returned by Run when the progress callback requests an
// early stop (spec.md §4.4's interruption path). The DynamicPath passed to
// Run already carries every shortcut accepted before the interruption —
// there is no -1 sentinel return the way the original loop signals it,
// since Go callers check the error instead.
var ErrInterrupted = errors.New("shortcut: interrupted by progress callback")

// ProgressAction is returned by a Progress callback to say whether the
// iterative loop should keep going.
type ProgressAction int

const (
	ProgressContinue ProgressAction = iota
	ProgressInterrupt
)

// ProgressFunc is polled once per iteration, before any sampling happens.
// iteration is the 0-based loop counter; accepted is the running count of
// shortcuts spliced in so far.
type ProgressFunc func(iteration, accepted int) ProgressAction

const maxSlowdownTries = 4

// Options configures a Shortcutter.
type Options struct {
	Sampler       Sampler
	Checker       *constraint.Checker // nil disables feasibility checking (geometry-only acceptance)
	Manip         constraint.ManipChecker
	SetStateFn    constraint.SetStateFn
	GetStateFn    constraint.GetStateFn
	MaxIterations int
	// MinSpan is the smallest (t2-t1) worth attempting; spans at or below it
	// are skipped without consuming a slowdown retry.
	MinSpan float64
	// SearchVelAccelMult is fSearchVelAccelMult from spec.md §6; its
	// reciprocal is the recovery gain applied to fstarttimemult after every
	// accepted shortcut, letting later iterations creep back toward the
	// full vmax/amax bound instead of staying permanently slowed down.
	// Defaults to 0.8 (spec.md's planner parameter default) when zero.
	SearchVelAccelMult float64
	Progress           ProgressFunc
	Logger             *slog.Logger
}

// Shortcutter runs the randomized iterative minimum-time replacement loop
// (spec.md §4.4, "_Shortcut") against a DynamicPath, splicing in a faster
// sub-path wherever the oracle accepts one.
type Shortcutter struct {
	opt Options
}

// New returns a Shortcutter configured by opt.
func New(opt Options) *Shortcutter {
	return &Shortcutter{opt: opt}
}

func (s *Shortcutter) logger() *slog.Logger {
	if s.opt.Logger != nil {
		return s.opt.Logger
	}
	return slog.Default()
}

// Run mutates path in place, attempting MaxIterations random shortcuts.
// It returns the number of shortcuts accepted. On interruption it returns
// ErrInterrupted alongside however many shortcuts were accepted before the
// interruption; every other error is fatal and leaves path in its last
// successfully spliced state.
func (s *Shortcutter) Run(path *trajectory.DynamicPath) (accepted int, err error) {
	if s.opt.MaxIterations <= 0 {
		return 0, nil
	}
	// fStartTimeMult tracks the cumulative slow-down applied across accepted
	// shortcuts, mirroring the teacher engine's retry-by-scaling bookkeeping:
	// once a region of the path has proven it needs a slower bound, later
	// shortcuts start from that bound instead of the original vmax/amax.
	fStartTimeMult := 1.0
	searchMult := s.opt.SearchVelAccelMult
	if searchMult <= 0 {
		searchMult = 0.8
	}

	for iter := 0; iter < s.opt.MaxIterations; iter++ {
		if s.opt.Progress != nil && s.opt.Progress(iter, accepted) == ProgressInterrupt {
			return accepted, ErrInterrupted
		}

		endTime := path.EndTime()
		if endTime <= s.opt.MinSpan {
			continue
		}

		var t1, t2 float64
		if iter == 0 {
			// One guaranteed global attempt before any random sampling.
			t1, t2 = 0, endTime
		} else {
			t1, t2 = s.opt.Sampler.Sample(endTime)
			if t1 > t2 {
				t1, t2 = t2, t1
			}
		}
		if t2-t1 <= s.opt.MinSpan {
			continue
		}

		i1, u1 := path.RampIndexAt(t1)
		i2, u2 := path.RampIndexAt(t2)
		if i1 == i2 && u1 >= u2 {
			continue
		}

		x0, v0 := path.Ramps[i1].Eval(u1)
		x1, v1 := path.Ramps[i2].Eval(u2)

		// Step 3: canonicalize both endpoints through the oracle's
		// SetStateValues/getStateFn round trip (spec.md §4.4 step 3) before
		// they're used for anything else. A state-setting rejection skips
		// this iteration outright rather than failing the whole run.
		var skip bool
		x0, skip = s.canonicalize(x0)
		if skip {
			continue
		}
		x1, skip = s.canonicalize(x1)
		if skip {
			continue
		}

		// Step 4: local vLim/aLim, narrowed by the manipulator checker (if
		// any) at both endpoints, then floored to the endpoint velocities
		// and ceilinged by fstarttimemult (spec.md §4.4 step 4).
		vLim, aLim, skip := s.localLimits(path, x0, v0, x1, v1, fStartTimeMult)
		if skip {
			continue
		}

		if s.attempt(path, i1, i2, u1, u2, t2-t1, x0, v0, x1, v1, vLim, aLim, fStartTimeMult, searchMult, &fStartTimeMult) {
			accepted++
		}
	}
	return accepted, nil
}

// canonicalize runs the SetStateFn/GetStateFn round trip on q (spec.md §4.4
// step 3). It returns (q, false) unchanged when no SetStateFn is configured,
// or (canonicalized q, false) on success. skip is true when the oracle
// rejected the state set (CodeStateSettingError) or errored, telling the
// caller to abandon this iteration.
func (s *Shortcutter) canonicalize(q []float64) (out []float64, skip bool) {
	if s.opt.SetStateFn == nil {
		return q, false
	}
	code, err := s.opt.SetStateFn(q)
	if err != nil {
		s.logger().Warn("shortcut: oracle error during state set, skipping iteration", "error", err)
		return q, true
	}
	if code.Any() {
		return q, true
	}
	if s.opt.GetStateFn != nil {
		return s.opt.GetStateFn(), false
	}
	return q, false
}

// localLimits computes the per-iteration vLim/aLim (spec.md §4.4 step 4):
// start from the path-wide bounds, narrow via the manipulator checker (when
// configured) evaluated at both endpoints, then apply the per-axis
// floor/ceiling that keeps the limits from dropping below what the
// candidate's own endpoint velocities already require.
func (s *Shortcutter) localLimits(path *trajectory.DynamicPath, x0, v0, x1, v1 []float64, fStartTimeMult float64) (vLim, aLim []float64, skip bool) {
	vLim = append([]float64{}, path.Limits.VMax...)
	aLim = append([]float64{}, path.Limits.AMax...)

	if s.opt.Manip != nil {
		if _, rejected := s.canonicalize(x0); rejected {
			return nil, nil, true
		}
		s.opt.Manip.GetMaxVelocitiesAccelerations(v0, vLim, aLim)
		if _, rejected := s.canonicalize(x1); rejected {
			return nil, nil, true
		}
		s.opt.Manip.GetMaxVelocitiesAccelerations(v1, vLim, aLim)
	}

	for i := range vLim {
		minV := math.Max(math.Abs(v0[i]), math.Abs(v1[i]))
		if vLim[i] < minV {
			vLim[i] = minV
		} else {
			vLim[i] = math.Min(vLim[i], math.Max(minV, path.Limits.VMax[i]*fStartTimeMult))
		}
		aLim[i] = math.Min(aLim[i], path.Limits.AMax[i]*fStartTimeMult)
	}
	return vLim, aLim, false
}

// attempt runs the up-to-4-try slow-down loop for one sampled (t1, t2) pair
// and splices the result into path on success.
func (s *Shortcutter) attempt(
	path *trajectory.DynamicPath,
	i1, i2 int,
	u1, u2, originalSpan float64,
	x0, v0, x1, v1, vLim, aLim []float64,
	fcurmult, searchMult float64,
	fStartTimeMult *float64,
) bool {
	for try := 0; try < maxSlowdownTries; try++ {
		candidate, ok := ramp.SolveMinTime(x0, v0, x1, v1, aLim, vLim, path.Limits.XLo, path.Limits.XHi, ramp.InterpSynchronized)
		if !ok {
			return false
		}
		if candidate.Duration() >= originalSpan-path.Tol.Time {
			// No time saved; not worth a splice even if feasible.
			return false
		}

		segs := []ramp.RampND{candidate}
		if s.opt.Checker != nil {
			res, checkedSegs, err := s.opt.Checker.Check2(candidate, constraint.FullMask)
			if err != nil {
				s.logger().Warn("shortcut: oracle error, skipping iteration", "error", err)
				return false
			}
			if res.Code.Any() {
				if res.Code.Has(constraint.CodeStateSettingError) {
					return false
				}
				if res.Code.Has(constraint.CodeCheckTimeBasedConstraints) {
					mult := res.SurpassMult
					if mult <= 0 {
						mult = 0.5
					}
					for i := range vLim {
						vLim[i] *= mult
						aLim[i] *= mult
					}
					fcurmult = clampMult(fcurmult * mult)
					continue
				}
				// Collision or final-values-not-reached: this shortcut is
				// rejected outright, no retry helps.
				return false
			}
			segs = checkedSegs

			// Step 5c: the checked terminal velocity drifted from what was
			// requested. Re-solve one additional minimum-time ramp from the
			// last checked segment's start to the candidate's actual target
			// and splice it in directly, trusting it's close enough to skip
			// a further Check2 pass (spec.md §4.4 step 5c). A duration that
			// deviates by more than 0.01s is CFO_FinalValuesNotReached: give
			// up on this iteration rather than splice in a ramp whose timing
			// no longer matches what was checked.
			if res.DifferentVelocity && len(segs) > 0 {
				last := segs[len(segs)-1]
				resolved, ok := ramp.SolveMinTime(last.X0(), last.V0(), x1, v1, aLim, vLim, path.Limits.XLo, path.Limits.XHi, ramp.InterpSynchronized)
				if !ok {
					s.logger().Warn("shortcut: failed to resolve different-velocity ramp")
					return false
				}
				if math.Abs(resolved.Duration()-last.Duration()) > 0.01 {
					return false
				}
				resolved.ConstraintChecked = true
				segs = append(segs[:len(segs)-1], resolved)
			}
		} else {
			candidate.ConstraintChecked = true
		}

		s.splice(path, i1, i2, u1, u2, segs)
		*fStartTimeMult = math.Min(1, fcurmult/searchMult)
		return true
	}
	return false
}

// splice rebuilds the ramp slice in [i1, i2] as: the retained head of ramp
// i1 up to u1, the newly solved middle segments, and the retained tail of
// ramp i2 from u2 onward. Per spec.md §4.4 step 6, the head's far endpoint
// and the tail's near endpoint are then force-overwritten to the middle
// segments' own actual endpoints (accum.front().x0 / accum.back().x1)
// rather than left at whatever TrimBack/TrimFront recomputed from the
// original ramp's own trajectory — canonicalize's SetStateFn/GetStateFn
// round trip can perturb x0/x1 away from the pre-canonicalization sample,
// and without this override the splice would be C0-discontinuous.
func (s *Shortcutter) splice(path *trajectory.DynamicPath, i1, i2 int, u1, u2 float64, middle []ramp.RampND) {
	var replacement []ramp.RampND
	head := path.Ramps[i1]
	if u1 > path.Tol.Time {
		trimmed := head.TrimBack(head.Duration() - u1)
		if len(middle) > 0 {
			trimmed = overwriteX1(trimmed, middle[0].X0())
		}
		replacement = append(replacement, trimmed)
	}
	replacement = append(replacement, middle...)
	tail := path.Ramps[i2]
	if u2 < tail.Duration()-path.Tol.Time {
		trimmed := tail.TrimFront(u2)
		if len(middle) > 0 {
			trimmed = overwriteX0(trimmed, middle[len(middle)-1].X1())
		}
		replacement = append(replacement, trimmed)
	}
	path.Splice(i1, i2+1, replacement)
}

// overwriteX1 returns a copy of r with every axis's terminal position
// forced to x1, leaving velocity and acceleration fields untouched.
func overwriteX1(r ramp.RampND, x1 []float64) ramp.RampND {
	out := r.Clone()
	for i := range out.Ramps {
		out.Ramps[i].X1 = x1[i]
	}
	return out
}

// overwriteX0 returns a copy of r with every axis's initial position forced
// to x0, leaving velocity and acceleration fields untouched.
func overwriteX0(r ramp.RampND, x0 []float64) ramp.RampND {
	out := r.Clone()
	for i := range out.Ramps {
		out.Ramps[i].X0 = x0[i]
	}
	return out
}

// clampMult keeps a cumulative slow-down multiplier from drifting below a
// floor that would make every subsequent candidate immediately infeasible.
func clampMult(m float64) float64 {
	return math.Max(m, 1e-3)
}
