// Package stepper implements the DDA (digital differential analyzer)
// pulse engine and the one-slot segment loader. A fixed-rate
// timer tick integrates a per-motor accumulator; when it crosses zero
// the motor steps. Segments are handed off from the executor through a
// single shared "prep" slot guarded by a single-writer/single-reader
// discipline: the executor (or, in the hosted model, whatever drives
// EXEC) writes the slot, the loader reads it at DDA priority.
//
// Register-level chip configuration is delegated to the tmc2209 and
// tmc5160 packages through the tinygo-gated adapter files here.
package stepper

import (
	"time"

	"tinygo.org/x/g2go/motion"
)

const (
	// DDASubsteps is the sub-pixel multiplier (substeps per microstep)
	// the accumulator uses to minimize rounding drift.
	DDASubsteps = 32

	// StepCorrectionThreshold is how many steps of following error must
	// accumulate before a nudge correction is injected.
	StepCorrectionThreshold = 2

	// NudgeHoldoffSegments bounds how often a correction may be applied:
	// at most one nudge every this-many prepared segments.
	NudgeHoldoffSegments = 4

	// MaxNudgeSteps bounds a single correction injection.
	MaxNudgeSteps = 1
)

// MotorState is the per-motor DDA accumulator state.
type MotorState struct {
	SubstepIncrement int64 // magnitude, substeps added per DDA tick
	Accumulator      int64 // signed; crossing zero on the positive side steps
	Direction        bool  // true = positive travel
	PrevDirection    bool
	StepCount        int64 // lifetime step pulses emitted, for determinism checks
}

// Segment is one fixed-duration slice of a block, as handed from the
// executor to the stepper preparer.
type Segment struct {
	Travel         motion.Steps // per-motor signed step delta for this segment
	FollowingError motion.Steps // encoder - commanded, time-aligned
	Time           time.Duration
	Dwell          bool // true: no stepping, DDA stays stopped, system tick counts down
}
