// Package trajectory implements DynamicPath: an ordered, C0/C1-continuous
// sequence of RampND segments carrying the velocity/acceleration/position
// limits it was built with. DynamicPath is created by InitialRamper,
// mutated by Shortcutter's splice operation, and consumed by Emitter, which
// may replace a ramp with a time-dilated one.
package trajectory

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cxd309/parabolic-smoother/internal/ramp"
)

// ErrDiscontinuousJoin is returned by Validate when two adjacent ramps do
// not share a position/velocity endpoint within tolerance.
var ErrDiscontinuousJoin = errors.New("trajectory: adjacent ramps are not C0/C1 continuous")

// Limits carries the immutable per-axis bound vectors a DynamicPath was
// built with.
type Limits struct {
	VMax []float64
	AMax []float64
	XLo  []float64
	XHi  []float64
}

// Tolerances groups the design-constant tolerances used throughout the
// smoother (spec.md §3's ε_t, ε_x, ε_v, ε_lin).
type Tolerances struct {
	Time      float64
	Position  float64
	Velocity  float64
	Collinear float64
}

// DefaultTolerances returns the tolerance set used when none is supplied.
func DefaultTolerances() Tolerances {
	return Tolerances{Time: 1e-7, Position: 1e-5, Velocity: 1e-5, Collinear: 1e-5}
}

// DynamicPath is an ordered sequence of RampNDs forming one continuous
// trajectory, plus the limits it was solved under.
type DynamicPath struct {
	Ramps  []ramp.RampND
	Limits Limits
	Tol    Tolerances

	// rampStartTime[i] is the cumulative start time of Ramps[i]; it is
	// recomputed whenever the ramp slice is mutated.
	rampStartTime []float64
	endTime       float64
}

// New builds a DynamicPath from an ordered ramp slice and limits,
// recomputing its cumulative timing.
func New(ramps []ramp.RampND, limits Limits, tol Tolerances) *DynamicPath {
	p := &DynamicPath{Ramps: ramps, Limits: limits, Tol: tol}
	p.Recompute()
	return p
}

// Dim returns the number of axes.
func (p *DynamicPath) Dim() int { return len(p.Limits.VMax) }

// EndTime returns the total duration of the path.
func (p *DynamicPath) EndTime() float64 { return p.endTime }

// RampStartTime returns the cumulative start time of ramp i.
func (p *DynamicPath) RampStartTime(i int) float64 { return p.rampStartTime[i] }

// Recompute rebuilds the cumulative start-time table and total duration
// after the ramp slice has been mutated directly (e.g. by Shortcutter's
// splice). Switch-time sets are never cached here; they are recomputed on
// demand per ramp.
func (p *DynamicPath) Recompute() {
	p.rampStartTime = make([]float64, len(p.Ramps))
	t := 0.0
	for i, r := range p.Ramps {
		p.rampStartTime[i] = t
		t += r.Duration()
	}
	p.endTime = t
}

// RampIndexAt returns the index of the ramp owning global time t, and the
// local time within that ramp, using upper_bound-minus-one semantics.
func (p *DynamicPath) RampIndexAt(t float64) (idx int, local float64) {
	i := sort.Search(len(p.rampStartTime), func(i int) bool { return p.rampStartTime[i] > t }) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(p.Ramps) {
		i = len(p.Ramps) - 1
	}
	local = t - p.rampStartTime[i]
	if local < 0 {
		local = 0
	}
	if local > p.Ramps[i].Duration() {
		local = p.Ramps[i].Duration()
	}
	return i, local
}

// Eval returns the configuration and velocity at global time t.
func (p *DynamicPath) Eval(t float64) (x, v []float64) {
	i, local := p.RampIndexAt(t)
	return p.Ramps[i].Eval(local)
}

// Validate checks the join-continuity invariant (spec.md §8 invariant 1) for
// every adjacent ramp pair, and that every ramp's own endpoints match its
// declared X0/V0/X1/V1 (invariant 2).
func (p *DynamicPath) Validate() error {
	for i := 0; i < len(p.Ramps); i++ {
		r := p.Ramps[i]
		x, v := r.Eval(0)
		if !closeVec(x, r.X0(), p.Tol.Position) || !closeVec(v, r.V0(), p.Tol.Velocity) {
			return fmt.Errorf("ramp %d: %w (start)", i, ErrDiscontinuousJoin)
		}
		x, v = r.Eval(r.Duration())
		if !closeVec(x, r.X1(), p.Tol.Position) || !closeVec(v, r.V1(), p.Tol.Velocity) {
			return fmt.Errorf("ramp %d: %w (end)", i, ErrDiscontinuousJoin)
		}
	}
	for i := 0; i+1 < len(p.Ramps); i++ {
		a, b := p.Ramps[i], p.Ramps[i+1]
		if !closeVec(a.X1(), b.X0(), p.Tol.Position) {
			return fmt.Errorf("ramps %d/%d: %w", i, i+1, ErrDiscontinuousJoin)
		}
		if !closeVec(a.V1(), b.V0(), p.Tol.Velocity) {
			return fmt.Errorf("ramps %d/%d: %w", i, i+1, ErrDiscontinuousJoin)
		}
	}
	return nil
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

// Splice replaces the ramps in [i1, i2) with replacement and recomputes
// timing. It does not adjust the neighbouring ramps' endpoints, so
// continuity at the joins is up to the caller. DynamicPath is a flat ordered
// sequence with no back-references; there is no cyclic graph to maintain.
func (p *DynamicPath) Splice(i1, i2 int, replacement []ramp.RampND) {
	tail := append([]ramp.RampND{}, p.Ramps[i2:]...)
	p.Ramps = append(p.Ramps[:i1], append(replacement, tail...)...)
	p.Recompute()
}
