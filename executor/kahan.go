package executor

// kahan is a Kahan (compensated) summation accumulator, used to keep
// thousands of small per-segment position increments from drifting
// the commanded axis position over a long program.
type kahan struct {
	sum float64
	c   float64
}

// Add folds delta into the running sum, returning the updated sum.
func (k *kahan) Add(delta float64) float64 {
	y := delta - k.c
	t := k.sum + y
	k.c = (t - k.sum) - y
	k.sum = t
	return k.sum
}

// Set resyncs the accumulator to an exact value, clearing the
// compensation term. Used when a section boundary snaps to a
// precomputed waypoint rather than an accumulated one.
func (k *kahan) Set(v float64) {
	k.sum = v
	k.c = 0
}
