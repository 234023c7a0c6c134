// Package executor implements the runtime move executor: the
// low-priority loop that walks a RUNNING block's HEAD/BODY/TAIL
// sections, samples the quintic-Bézier velocity profile one segment at
// a time, converts each segment's incremental travel into motor steps
// through a kinematics.Transform, and hands the result to a
// stepper.Preparer. The surrounding goroutine/queue wiring follows
// the same single-writer handoff discipline the stepper package uses
// for its prep slot.
package executor

import (
	"tinygo.org/x/g2go/alarm"
	"tinygo.org/x/g2go/kinematics"
	"tinygo.org/x/g2go/motion"
	"tinygo.org/x/g2go/planner"
	"tinygo.org/x/g2go/stepper"
)

const (
	// NomSegmentMS is the nominal segment duration target.
	NomSegmentMS = 5.0
	// MinSegmentMS is the floor below which a section is folded into
	// its neighbor rather than producing a vanishingly short segment.
	MinSegmentMS = 0.75

	NomSegmentTime = NomSegmentMS / 1000
	MinSegmentTime = MinSegmentMS / 1000

	// travelEpsilonSteps suppresses spurious single-step emissions from
	// floating-point noise: a pre-rounding axis-space step delta this
	// small is truncated to zero rather than committed.
	travelEpsilonSteps = 0.01
)

// Section names one of a block's three velocity-ramp regions.
type Section int

const (
	SectionHead Section = iota
	SectionBody
	SectionTail
)

func (s Section) String() string {
	switch s {
	case SectionHead:
		return "HEAD"
	case SectionBody:
		return "BODY"
	case SectionTail:
		return "TAIL"
	default:
		return "?"
	}
}

// sectionState is whether a section's segment count/sampler has been
// set up yet.
type sectionState int

const (
	sectionDone sectionState = iota
	sectionNew
	sectionRunning
)

// EncoderReader abstracts per-motor position feedback for following-
// error computation. When nil, following error is always reported as
// zero (no step-correction nudging is attempted).
type EncoderReader interface {
	ReadStepsSinceHome(motor int) int32
}

// Executor is the runtime move executor. One Executor drives one
// stepper.Preparer; on each EXEC trigger the controller loop calls
// ExecSegment repeatedly until it reports nothing more to do, keeping
// segment production a cooperative low-priority task.
type Executor struct {
	Queue      *planner.Queue
	Kinematics kinematics.Transform
	StepsPerMM motion.Vector
	Prep       *stepper.Preparer
	Alarm      *alarm.Latch
	Encoders   EncoderReader

	current *planner.Block

	section      Section
	secState     sectionState
	waypoints    [3]motion.Vector // HEAD-end, BODY-end, TAIL-end axis positions
	segIndex     int
	segCount     int
	segTime      float64 // seconds, this section's per-segment duration
	bypassV      float64 // constant velocity used when segCount == 1
	fd           *forwardDiff

	// sectionDistanceDone is the scalar distance traveled so far within
	// the current section, used both for the final-segment waypoint
	// snap and by the feed-hold math to find how much of a section
	// remains.
	sectionDistanceDone float64

	positionK        [motion.AXES]kahan
	lastSteps        motion.Steps
	delayedSteps     motion.Steps // commanded steps one segment behind, for following-error alignment

	hold         holdState
	holdLeftover float64 // scalar distance left unconsumed when a hold parked mid-block
	lastVelocity float64
	oobDwell     float64 // armed out-of-band dwell, seconds; see RequestOutOfBandDwell

	// ProbeTrip, when set, is polled once per segment while executing a
	// probe move (G38.x); returning true ends the move immediately at
	// the segment's target position.
	ProbeTrip func() bool
	probeTripped bool
}

// NewExecutor wires the collaborators an Executor needs. stepsPerMM
// gives the per-motor step scale used both for the kinematics call and
// for the travel-epsilon noise filter.
func NewExecutor(q *planner.Queue, xform kinematics.Transform, stepsPerMM motion.Vector, prep *stepper.Preparer, lat *alarm.Latch) *Executor {
	return &Executor{
		Queue:      q,
		Kinematics: xform,
		StepsPerMM: stepsPerMM,
		Prep:       prep,
		Alarm:      lat,
	}
}

// Velocity returns the velocity of the most recently produced segment,
// the planner's entry velocity for a command block and the status
// report's "vel" field.
func (e *Executor) Velocity() float64 { return e.lastVelocity }

// Active reports whether a block is currently being executed.
func (e *Executor) Active() bool { return e.current != nil }

// Position returns the executor's current commanded axis position.
func (e *Executor) Position() motion.Vector {
	var out motion.Vector
	for i := range out {
		out[i] = e.positionK[i].sum
	}
	return out
}
