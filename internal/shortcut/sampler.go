// Package shortcut implements the randomized iterative minimum-time
// replacement loop (spec.md §4.4, "_Shortcut") that consumes and mutates a
// DynamicPath.
package shortcut

import "math/rand/v2"

// Sampler draws the two candidate times for one shortcut iteration. It is
// seeded once per PlanPath call from the planner's configured seed so
// repeated calls on the same input reproduce the same output (spec.md §9's
// randomness contract); a separate, process-time-seeded sampler is used
// elsewhere for log-file naming and never participates here.
type Sampler interface {
	Sample(endTime float64) (t1, t2 float64)
}

// randSampler is the default Sampler, backed by math/rand/v2 — no
// third-party RNG appears anywhere in the retrieved pack, so the standard
// library source is used directly, wrapped behind this interface so tests
// can substitute a deterministic sequence.
type randSampler struct {
	rng *rand.Rand
}

// NewSampler returns the default seeded Sampler.
func NewSampler(seed uint64) Sampler {
	return &randSampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *randSampler) Sample(endTime float64) (float64, float64) {
	return s.rng.Float64() * endTime, s.rng.Float64() * endTime
}

// FixedSampler replays a predetermined sequence of (t1, t2) pairs, used by
// scenario tests that need exact control over which sub-path is
// shortcut-attempted (spec.md §8 scenarios 2, 3, 6).
type FixedSampler struct {
	Pairs [][2]float64
	i     int
}

func (s *FixedSampler) Sample(endTime float64) (float64, float64) {
	if s.i >= len(s.Pairs) {
		return 0, endTime
	}
	p := s.Pairs[s.i]
	s.i++
	return p[0], p[1]
}
