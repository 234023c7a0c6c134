package executor

// forwardDiff samples the quintic (5th order) Bézier "smoothstep"
// velocity profile v(t) = v0 + (v1-v0)*(10t^3 - 15t^4 + 6t^5), t in
// [0,1], which has zero first AND second derivative at both endpoints
// (matching the jerk-limited ramp the planner's zoid math assumes).
// Rather than evaluating the polynomial directly at each of n sample
// points, it is seeded once from six evenly spaced evaluations and
// then advanced purely by repeated addition: the standard
// forward-difference trick for sampling a fixed-degree polynomial at
// uniform steps without re-evaluating it.
type forwardDiff struct {
	v          float64 // next sample to emit
	f1, f2, f3, f4, f5 float64
}

// newForwardDiff builds a sampler that will emit n samples of the
// smoothstep velocity ramp from v0 to v1 across n equal steps,
// returning the velocity to hold for each of the n segments (sample i
// is evaluated at the segment's midpoint, t=(i+0.5)/n, the usual
// midpoint rule for approximating the average velocity over a short
// constant-velocity segment).
func newForwardDiff(v0, v1 float64, n int) *forwardDiff {
	if n < 1 {
		n = 1
	}
	h := 1.0 / float64(n)
	dv := v1 - v0

	smooth := func(t float64) float64 {
		return v0 + dv*(10*t*t*t-15*t*t*t*t+6*t*t*t*t*t)
	}

	// Seed the forward-difference table from six samples at
	// t = -0.5h, 0.5h, 1.5h, 2.5h, 3.5h, 4.5h (midpoints of the first
	// five steps, plus one before t=0 to build the fifth difference).
	var s [6]float64
	for i := range s {
		s[i] = smooth((float64(i) - 0.5) * h)
	}

	// Finite-difference table: successive differences of s[] give the
	// coefficients the recurrence needs to reproduce a quintic exactly.
	d1 := [5]float64{}
	for i := 0; i < 5; i++ {
		d1[i] = s[i+1] - s[i]
	}
	d2 := [4]float64{}
	for i := 0; i < 4; i++ {
		d2[i] = d1[i+1] - d1[i]
	}
	d3 := [3]float64{}
	for i := 0; i < 3; i++ {
		d3[i] = d2[i+1] - d2[i]
	}
	d4 := [2]float64{}
	for i := 0; i < 2; i++ {
		d4[i] = d3[i+1] - d3[i]
	}
	d5 := d4[1] - d4[0]

	// f1 holds the constant 5th difference; f5 is the 1st difference,
	// added directly to v each step. Sample() walks the chain from the
	// top down, so the lowest-order (f1) register never changes.
	return &forwardDiff{
		v:  s[1], // first real sample, at t=0.5h
		f5: d1[1],
		f4: d2[1],
		f3: d3[1],
		f2: d4[1],
		f1: d5,
	}
}

// Sample returns the current velocity and advances the table to the
// next one.
func (fd *forwardDiff) Sample() float64 {
	out := fd.v
	fd.v += fd.f5
	fd.f5 += fd.f4
	fd.f4 += fd.f3
	fd.f3 += fd.f2
	fd.f2 += fd.f1
	return out
}
