package ramp

import (
	"math"
	"sort"
)

// RampND is a time-synchronized bundle of N Ramp1Ds sharing one total
// duration. ConstraintChecked memoizes that this ramp, at its current
// geometry, has already been validated against the full constraint mask.
type RampND struct {
	Ramps             []Ramp1D
	ConstraintChecked bool
}

// Dim returns the number of axes.
func (r RampND) Dim() int { return len(r.Ramps) }

// Duration returns the shared total duration. Ramps with zero axes have
// zero duration.
func (r RampND) Duration() float64 {
	if len(r.Ramps) == 0 {
		return 0
	}
	return r.Ramps[0].TTotal
}

// X0, V0, X1, V1 return the endpoint configuration/velocity vectors.
func (r RampND) X0() []float64 { return r.axisField(func(a Ramp1D) float64 { return a.X0 }) }
func (r RampND) V0() []float64 { return r.axisField(func(a Ramp1D) float64 { return a.V0 }) }
func (r RampND) X1() []float64 { return r.axisField(func(a Ramp1D) float64 { return a.X1 }) }
func (r RampND) V1() []float64 { return r.axisField(func(a Ramp1D) float64 { return a.V1 }) }

func (r RampND) axisField(f func(Ramp1D) float64) []float64 {
	out := make([]float64, len(r.Ramps))
	for i, a := range r.Ramps {
		out[i] = f(a)
	}
	return out
}

// Eval returns the configuration and velocity at time t.
func (r RampND) Eval(t float64) (x, v []float64) {
	x = make([]float64, len(r.Ramps))
	v = make([]float64, len(r.Ramps))
	for i, a := range r.Ramps {
		x[i] = a.Pos(t)
		v[i] = a.Vel(t)
	}
	return x, v
}

// SwitchTimes returns the sorted, de-duplicated union of {0, T} and every
// axis's interior switch times, to tolerance epsT. It is recomputed on
// demand and never cached, since a ramp's switch structure changes after
// every splice.
func (r RampND) SwitchTimes(epsT float64) []float64 {
	T := r.Duration()
	set := []float64{0, T}
	for _, a := range r.Ramps {
		set = append(set, a.SwitchTimes(epsT)...)
	}
	sort.Float64s(set)
	return dedupe(set, epsT)
}

func dedupe(sorted []float64, eps float64) []float64 {
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

// SetPosVelTime constructs a linear-velocity-profile (single constant
// acceleration phase, no interior switch) RampND of duration T from x0,v0 to
// x1,v1. The acceleration is derived directly from matching position, so the
// resulting ramp's V1 is always internally consistent with its X1; any
// divergence from a caller-requested terminal velocity is the caller's to
// detect by comparing against their own target.
func SetPosVelTime(x0, v0, x1, v1 []float64, T float64) RampND {
	n := len(x0)
	ramps := make([]Ramp1D, n)
	for i := 0; i < n; i++ {
		var a float64
		if T > 0 {
			a = 2 * (x1[i] - x0[i] - v0[i]*T) / (T * T)
		}
		v1i := v0[i] + a*T
		ramps[i] = Ramp1D{
			X0: x0[i], V0: v0[i], X1: x1[i], V1: v1i,
			A1: a, A2: a,
			TSwitch1: T, TSwitch2: T, TTotal: T,
		}
	}
	return RampND{Ramps: ramps}
}

// TrimFront shifts every axis's start inward by dt.
func (r RampND) TrimFront(dt float64) RampND {
	out := RampND{Ramps: make([]Ramp1D, len(r.Ramps))}
	for i, a := range r.Ramps {
		out.Ramps[i] = a.TrimFront(dt)
	}
	return out
}

// TrimBack shifts every axis's end inward by dt.
func (r RampND) TrimBack(dt float64) RampND {
	out := RampND{Ramps: make([]Ramp1D, len(r.Ramps))}
	for i, a := range r.Ramps {
		out.Ramps[i] = a.TrimBack(dt)
	}
	return out
}

// Clone returns an independent copy of the ramp bundle.
func (r RampND) Clone() RampND {
	out := RampND{Ramps: make([]Ramp1D, len(r.Ramps)), ConstraintChecked: r.ConstraintChecked}
	copy(out.Ramps, r.Ramps)
	return out
}

// MaxSpeed returns the largest |velocity| attained by axis i over the ramp,
// sampled at its own switch times plus the endpoints (exact for a piecewise
// linear velocity profile, since extrema only occur at switches).
func (r RampND) MaxSpeed(i int) float64 {
	a := r.Ramps[i]
	max := math.Max(math.Abs(a.V0), math.Abs(a.V1))
	if m := math.Abs(a.vMid()); m > max {
		max = m
	}
	return max
}
