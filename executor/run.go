package executor

import (
	"tinygo.org/x/g2go/motion"
	"tinygo.org/x/g2go/planner"
	"tinygo.org/x/g2go/stepper"
)

// ExecSegment is the EXEC-priority step: produce and hand off exactly
// one stepper.Segment, or do nothing if the prep slot is still full or
// no block is available. Returns false when there was no work to do
// (idle), used by the controller to decide whether to back off.
func (e *Executor) ExecSegment() bool {
	if e.Alarm != nil && e.Alarm.Latched() {
		return false
	}

	worked := false
	for {
		// At most one prepared segment per slot handoff: if the
		// loader still owns the slot, producing another would
		// overwrite an unconsumed segment. Re-checked every pass
		// because a dwell load fills the slot mid-loop.
		if e.Prep.State() != stepper.OwnedByExec {
			return worked
		}

		if e.current == nil {
			if !e.loadNextBlock() {
				if e.oobDwell > 0 {
					e.Prep.PrepLine(motion.Steps{}, motion.Steps{}, e.oobDwell, true)
					e.oobDwell = 0
					return true
				}
				return worked
			}
			worked = true
			continue
		}
		b := e.current

		// A hold requested while mid-HEAD waits for the section
		// boundary: the acceleration's jerk profile is already locked
		// in, so the decel can only begin at body/tail entry.
		if e.hold == holdSync && !(e.section == SectionHead && e.secState == sectionRunning) {
			e.engageFeedHold(b)
		}

		if e.advanceToRunnableSection(b) {
			continue
		}
		if e.current == nil {
			continue
		}

		if e.secState == sectionNew {
			e.beginSection(b)
		}
		if e.hold == holdMotionStopped {
			return worked
		}
		return e.produceSegment(b) || worked
	}
}

// advanceToRunnableSection skips a section that is zero-length or has
// already run to completion, and finishes the block once TAIL is
// exhausted. Returns true if the caller should loop again (state
// changed), having possibly cleared e.current.
func (e *Executor) advanceToRunnableSection(b *planner.Block) bool {
	if e.secState == sectionRunning {
		return false
	}
	length, _, _, _ := lengthOf(b, e.section)
	if e.secState == sectionNew && length > 0 {
		return false
	}
	switch e.section {
	case SectionHead:
		e.section, e.secState = SectionBody, sectionNew
		return true
	case SectionBody:
		e.section, e.secState = SectionTail, sectionNew
		return true
	case SectionTail:
		if e.hold == holdMotionStopped {
			return false
		}
		e.finishBlock(b)
		return true
	}
	return false
}

// loadNextBlock pulls the next RUNNING (or about-to-run) block off the
// queue and resets the section walk for it. Returns false if the
// queue is empty.
func (e *Executor) loadNextBlock() bool {
	b := e.Queue.Peek()
	if b == nil {
		return false
	}
	if b.BufferState != planner.FullyPlanned && b.BufferState != planner.Running {
		return false
	}

	switch b.Type {
	case planner.BlockALINE:
		b.BufferState = planner.Running
		b.BlockState = planner.InitialAction
		renormalize(b)
		e.current = b
		e.section = SectionHead
		e.secState = sectionNew
		e.sectionDistanceDone = 0
		e.computeWaypoints(b)
		e.probeTripped = false
	case planner.BlockDwell:
		b.BufferState = planner.Running
		e.Prep.PrepLine(motion.Steps{}, motion.Steps{}, b.DwellSeconds, true)
		e.Queue.Release(b)
		return true
	case planner.BlockCommand, planner.BlockSpindleSpeed, planner.BlockJSONWait:
		b.BufferState = planner.Running
		if b.Command != nil {
			b.Command()
		}
		e.Queue.Release(b)
		return true
	case planner.BlockStop, planner.BlockEnd:
		b.BufferState = planner.Running
		e.Queue.Release(b)
		return true
	default:
		e.Queue.Release(b)
		return true
	}
	return true
}

// computeWaypoints precomputes the exact axis position at the end of
// each section, so the final segment of a section can snap to it
// instead of drifting from repeated floating-point accumulation.
func (e *Executor) computeWaypoints(b *planner.Block) {
	start := e.Position()
	at := func(dist float64) motion.Vector {
		var out motion.Vector
		for i := range out {
			out[i] = start[i] + b.Unit[i]*dist
		}
		return out
	}
	// Summing section lengths rather than using b.Length keeps the
	// waypoints honest for a hold-truncated block, whose sections no
	// longer cover the full planned length.
	e.waypoints[SectionHead] = at(b.HeadLength)
	e.waypoints[SectionBody] = at(b.HeadLength + b.BodyLength)
	e.waypoints[SectionTail] = at(b.HeadLength + b.BodyLength + b.TailLength)
}

// finishBlock releases a fully executed block, runs any probe
// end-of-move resolution, and clears e.current so the next ExecSegment
// call loads the next queued block.
func (e *Executor) finishBlock(b *planner.Block) {
	if b.Probe != "" && !e.probeTripped && b.ProbeResult != nil {
		b.ProbeResult(false, e.Position())
	}
	e.current = nil
	e.Queue.Release(b)
}

// produceSegment samples the velocity for the current segment,
// integrates it into an axis-space target, converts that target to
// motor steps, and prepares a stepper.Segment from the delta.
func (e *Executor) produceSegment(b *planner.Block) bool {
	e.segIndex++
	v := e.sampleVelocity()
	e.lastVelocity = v
	delta := v * e.segTime
	e.sectionDistanceDone += delta

	isLast := e.segIndex >= e.segCount
	var target motion.Vector
	if isLast {
		target = e.waypoints[e.section]
		for i := range target {
			e.positionK[i].Set(target[i])
		}
	} else {
		for i := range target {
			target[i] = e.positionK[i].Add(b.Unit[i] * delta)
		}
	}

	travel, steps := e.commitTarget(target)

	var followErr motion.Steps
	if e.Encoders != nil {
		for m := 0; m < motion.MOTORS; m++ {
			followErr[m] = e.Encoders.ReadStepsSinceHome(m) - e.delayedSteps[m]
		}
	}
	e.delayedSteps = e.lastSteps
	e.lastSteps = steps

	if b.Probe != "" && e.ProbeTrip != nil && e.ProbeTrip() {
		e.probeTripped = true
		tripPos := target
		if b.ProbeResult != nil {
			b.ProbeResult(true, tripPos)
		}
		e.finishBlock(b)
		return true
	}

	e.Prep.PrepLine(travel, followErr, e.segTime, false)

	if isLast {
		e.onSectionComplete(b)
	}
	return true
}

// commitTarget converts an axis-space target into motor steps via the
// configured kinematics.Transform and returns the per-motor delta since
// the last committed target, suppressing sub-epsilon noise.
func (e *Executor) commitTarget(target motion.Vector) (travel motion.Steps, steps motion.Steps) {
	steps = e.Kinematics.ToSteps(target, e.StepsPerMM)
	for m := 0; m < motion.MOTORS; m++ {
		raw := target[m] * e.StepsPerMM[m]
		if absf(raw-float64(e.lastSteps[m])) < travelEpsilonSteps {
			steps[m] = e.lastSteps[m]
			continue
		}
		travel[m] = steps[m] - e.lastSteps[m]
	}
	return travel, steps
}

func (e *Executor) onSectionComplete(b *planner.Block) {
	switch e.hold {
	case holdDecelToZero:
		e.hold = holdMotionStopped
	case holdDecelContinue:
		// Velocity didn't reach zero within this block; the next block
		// will be engaged with the reduced carry-over entry velocity
		// and the hold continues from SYNC.
		e.hold = holdSync
	}
	e.sectionDistanceDone = 0
	switch e.section {
	case SectionHead:
		e.section, e.secState = SectionBody, sectionNew
	case SectionBody:
		e.section, e.secState = SectionTail, sectionNew
	case SectionTail:
		e.secState = sectionDone
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
