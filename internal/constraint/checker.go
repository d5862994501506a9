package constraint

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/cxd309/parabolic-smoother/internal/ramp"
)

// Segment is a RampND covering one constraint-checked sub-interval of a
// larger ramp; SegmentFeasible and ManipChecker both operate on these.
type Segment = ramp.RampND

// Result is Check2's/SegmentFeasible's verdict: a failure code plus the two
// pieces of caller-actionable context spec.md §4.2/§4.6 describe — the
// slow-down factor for a time-based rejection, and whether the checked
// terminal velocity differs from what was requested.
type Result struct {
	Code              Code
	SurpassMult       float64 // meaningful only when Code has CodeCheckTimeBasedConstraints
	DifferentVelocity bool
}

func ok() Result { return Result{} }

// Checker wraps an Oracle (and optional ManipChecker) and implements the
// per-ramp two-phase feasibility check.
type Checker struct {
	Oracle          Oracle
	Manip           ManipChecker
	VMax            []float64
	Tol             []float64 // tol[i] = configResolution[i] * pointTolerance
	EpsTime         float64
	EpsPosition     float64
	EpsVelocity     float64
	EpsFloat        float64
	UsePerturbation bool
	Logger          *slog.Logger
}

func (c *Checker) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Check2 validates rampnd against mask, subdividing it at its own switch
// times and re-solving velocities when the oracle projects geometry. It ORs
// CodeCheckWithPerturbation onto mask when c.UsePerturbation is set.
func (c *Checker) Check2(rampnd ramp.RampND, mask Mask) (Result, []ramp.RampND, error) {
	return c.check2(rampnd, mask, c.UsePerturbation)
}

// Check2NoPerturbation behaves like Check2 but never ORs
// CodeCheckWithPerturbation onto mask, regardless of c.UsePerturbation.
// Emit uses this for the first and last ramp during emission verification,
// where perturbation checking is disabled per spec.md's "_bUsePerturbation
// ... disabled for the first and last ramp during emission verification."
func (c *Checker) Check2NoPerturbation(rampnd ramp.RampND, mask Mask) (Result, []ramp.RampND, error) {
	return c.check2(rampnd, mask, false)
}

func (c *Checker) check2(rampnd ramp.RampND, mask Mask, usePerturbation bool) (Result, []ramp.RampND, error) {
	for _, tol := range c.Tol {
		if tol <= 0 {
			return Result{Code: CodeAny}, nil, errAssertTolerance
		}
	}

	emask := mask
	if usePerturbation {
		emask |= CodeCheckWithPerturbation
	}
	T := rampnd.Duration()
	switches := rampnd.SwitchTimes(c.EpsTime)
	S := append([]float64{0}, switches...)
	if len(S) == 0 || S[len(S)-1] < T-c.EpsTime {
		S = append(S, T)
	}
	sort.Float64s(S)
	S = dedupeTimes(S, c.EpsTime)

	x0, v0 := rampnd.Eval(0)
	if code, err := c.configFeasible(x0, v0, emask); err != nil {
		return Result{Code: CodeAny}, nil, err
	} else if code.Any() {
		return Result{Code: code}, nil, nil
	}
	x1, v1 := rampnd.Eval(T)
	if code, err := c.configFeasible(x1, v1, emask); err != nil {
		return Result{Code: CodeAny}, nil, err
	} else if code.Any() {
		return Result{Code: code}, nil, nil
	}

	// Midpoint-first switch-time sweep: swap index 0 with the midpoint so
	// the most informative sample is checked earliest.
	perm := make([]int, len(S))
	for i := range perm {
		perm[i] = i
	}
	if len(perm) > 1 {
		mid := len(perm) / 2
		perm[0], perm[mid] = perm[mid], perm[0]
	}
	for _, k := range perm {
		t := S[k]
		q, v := rampnd.Eval(t)
		var vArg []float64
		if c.Oracle.NeedDerivativeForFeasibility() {
			vArg = v
		}
		code, err := c.configFeasible(q, vArg, emask)
		if err != nil {
			return Result{Code: CodeAny}, nil, err
		}
		if code.Any() {
			return Result{Code: code}, nil, nil
		}
	}

	// Per-segment sweep over adjacent pairs of the sorted switch-time set.
	var outramps []ramp.RampND
	qStart, vStart := rampnd.Eval(0)
	for k := 1; k < len(S); k++ {
		dt := S[k] - S[k-1]
		if dt <= c.EpsFloat {
			continue
		}
		qEnd, vEnd := rampnd.Eval(S[k])

		if c.Oracle.NeedDerivativeForFeasibility() {
			dt, vEnd = c.reconcileVelocity(qStart, qEnd, vStart, vEnd, dt)
		}

		res, segs, err := c.segmentFeasible(qStart, qEnd, vStart, vEnd, dt, emask)
		if err != nil {
			return Result{Code: CodeAny}, nil, err
		}
		if res.Code.Any() {
			return res, nil, nil
		}
		outramps = append(outramps, segs...)

		last := segs[len(segs)-1]
		qStart, vStart = last.X1(), last.V1()
	}

	if mask == FullMask {
		for i := range outramps {
			outramps[i].ConstraintChecked = true
		}
	}

	result := Result{}
	if !closeVec(qStart, x1, c.EpsPosition) {
		return Result{Code: CodeFinalValuesNotReached}, outramps, nil
	}
	if !closeVec(vStart, v1, c.EpsVelocity) {
		result.DifferentVelocity = true
	}
	return result, outramps, nil
}

// reconcileVelocity implements spec.md §4.2 step 6a: when projection drift
// makes the naive terminal velocity inconsistent with the observed
// displacement, recompute a weighted-consistent Δt and vEnd.
func (c *Checker) reconcileVelocity(qStart, qEnd, vStart, vEnd []float64, dt float64) (float64, []float64) {
	var weightedNum, weightedDen float64
	for i := range qStart {
		avgV := (vStart[i] + vEnd[i]) / 2
		if math.Abs(avgV) <= c.EpsFloat {
			continue
		}
		w := math.Abs(qEnd[i] - qStart[i])
		dtExpected := (qEnd[i] - qStart[i]) / avgV
		weightedNum += w * dtExpected
		weightedDen += w
	}
	if weightedDen <= c.EpsFloat {
		return dt, vEnd
	}
	dtPrime := weightedNum / weightedDen
	if math.Abs(dt-dtPrime) <= c.EpsTime {
		return dt, vEnd
	}
	newVEnd := make([]float64, len(vEnd))
	for i := range vEnd {
		if dtPrime <= c.EpsFloat {
			newVEnd[i] = vStart[i]
			continue
		}
		newVEnd[i] = 2*(qEnd[i]-qStart[i])/dtPrime - vStart[i]
	}
	return dtPrime, newVEnd
}

// segmentFeasible implements spec.md §4.2's SegmentFeasible sub-algorithm.
func (c *Checker) segmentFeasible(a, b, da, db []float64, dt float64, mask Mask) (Result, []ramp.RampND, error) {
	if dt <= c.EpsFloat {
		return ok(), []ramp.RampND{ramp.SetPosVelTime(a, da, b, db, dt)}, nil
	}

	code, ret, err := c.checkPathAllConstraints(a, b, da, db, dt, mask)
	if err != nil {
		return Result{Code: CodeAny}, nil, err
	}
	if code.Any() {
		res := Result{Code: code}
		if code.Has(CodeCheckTimeBasedConstraints) {
			res.SurpassMult = 0.8
		}
		return res, nil, nil
	}

	var segs []ramp.RampND
	if ret.Empty() {
		r := ramp.SetPosVelTime(a, da, b, db, dt)
		r.ConstraintChecked = true
		segs = []ramp.RampND{r}
	} else {
		qPrev, tPrev, vPrev := a, 0.0, da
		for i, tk := range ret.Times {
			qk := ret.Configs[i]
			dtk := tk - tPrev
			if dtk <= c.EpsFloat {
				continue
			}
			vk := make([]float64, len(qk))
			for j := range qk {
				vk[j] = 2*(qk[j]-qPrev[j])/dtk - vPrev[j]
			}
			for j, vmax := range c.VMax {
				if math.Abs(vk[j]) > vmax+c.EpsFloat {
					mult := math.Max(0.9*vmax/math.Abs(vk[j]), 0.1*0.9)
					return Result{Code: CodeCheckTimeBasedConstraints, SurpassMult: mult}, nil, nil
				}
			}
			r := ramp.SetPosVelTime(qPrev, vPrev, qk, vk, dtk)
			r.ConstraintChecked = true
			segs = append(segs, r)
			qPrev, tPrev, vPrev = qk, tk, vk
		}
		if tPrev < dt-c.EpsFloat {
			r := ramp.SetPosVelTime(qPrev, vPrev, b, db, dt-tPrev)
			r.ConstraintChecked = true
			segs = append(segs, r)
		}
	}

	if c.Manip != nil && mask.Has(CodeCheckTimeBasedConstraints) {
		mcode, mult, err := c.Manip.Check(segs)
		if err != nil {
			return Result{Code: CodeAny}, nil, err
		}
		if mcode.Any() {
			return Result{Code: mcode, SurpassMult: mult}, nil, nil
		}
	}

	return ok(), segs, nil
}

// configFeasible calls the oracle's ConfigFeasible, converting a panic into
// CodeAny plus an error the same way an ordinary oracle error is handled —
// the oracle is an external collaborator and must never take the planner
// down with it.
func (c *Checker) configFeasible(q, v []float64, mask Mask) (code Code, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger().Warn("oracle ConfigFeasible panicked", "panic", r)
			code, err = CodeAny, fmt.Errorf("oracle ConfigFeasible panicked: %v", r)
		}
	}()
	code, err = c.Oracle.ConfigFeasible(q, v, mask)
	if err != nil {
		c.logger().Debug("oracle ConfigFeasible failed", "error", err)
		return CodeAny, err
	}
	return code, nil
}

// checkPathAllConstraints calls the oracle's CheckPathAllConstraints under
// the same panic-to-CodeAny recovery as configFeasible.
func (c *Checker) checkPathAllConstraints(a, b, da, db []float64, dt float64, mask Mask) (code Code, ret *ConstraintFilterReturn, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger().Warn("oracle CheckPathAllConstraints panicked", "panic", r)
			code, ret, err = CodeAny, nil, fmt.Errorf("oracle CheckPathAllConstraints panicked: %v", r)
		}
	}()
	return c.Oracle.CheckPathAllConstraints(a, b, da, db, dt, mask)
}

func closeVec(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func dedupeTimes(sorted []float64, eps float64) []float64 {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, t := range sorted[1:] {
		if t-out[len(out)-1] > eps {
			out = append(out, t)
		}
	}
	return out
}
