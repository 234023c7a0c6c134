package executor

import (
	"math"

	"tinygo.org/x/g2go/planner"
)

// holdState is the feed-hold state machine driven from the controller
// loop's stop request down through motion actually reaching zero
// velocity and back:
// OFF -> SYNC -> DECEL_CONTINUE|DECEL_TO_ZERO -> MOTION_STOPPED.
// DECEL_COMPLETE/MOTION_STOPPING collapse into a single tick here since
// nothing observable happens between them in this implementation.
type holdState int

const (
	holdOff holdState = iota
	holdSync
	holdDecelContinue
	holdDecelToZero
	holdMotionStopped
)

// RequestFeedHold asks the executor to decelerate to a stop at the
// next safe section boundary. The hold state is a plain field with no
// synchronization, so a call is not safe concurrently with ExecSegment
// or Resume running on another goroutine.
func (e *Executor) RequestFeedHold() {
	if e.hold == holdOff {
		e.hold = holdSync
	}
}

// Holding reports whether a feed hold is in progress or complete.
func (e *Executor) Holding() bool {
	return e.hold != holdOff
}

// Stopped reports whether motion has fully stopped under a feed hold
// and is waiting for Resume.
func (e *Executor) Stopped() bool {
	return e.hold == holdMotionStopped
}

// Resume clears a completed feed hold, re-planning whatever length
// was left unconsumed in the parked block into a fresh ramp toward
// the original target.
func (e *Executor) Resume() {
	if e.hold != holdMotionStopped || e.current == nil {
		return
	}
	b := e.current
	remaining := e.holdLeftover
	e.hold = holdOff
	e.holdLeftover = 0
	if remaining <= 1e-9 {
		// Nothing left to travel: the parked block is already done.
		e.finishBlock(b)
		return
	}

	headLen, headTime := rampDistance(0, b.CruiseVelocity, b.Jerk)
	tailLen, tailTime := rampDistance(b.SavedExit, b.CruiseVelocity, b.Jerk)
	if headLen+tailLen > remaining {
		// Not enough room to reach cruise again: collapse to a single
		// triangular ramp back down to the saved exit target, peaking
		// where head and tail together cover the remaining length.
		lo, hi := b.SavedExit, b.CruiseVelocity
		for i := 0; i < 60; i++ {
			mid := (lo + hi) / 2
			h, _ := rampDistance(0, mid, b.Jerk)
			t, _ := rampDistance(b.SavedExit, mid, b.Jerk)
			if h+t < remaining {
				lo = mid
			} else {
				hi = mid
			}
		}
		vpeak := (lo + hi) / 2
		headLen, headTime = rampDistance(0, vpeak, b.Jerk)
		tailLen, tailTime = rampDistance(b.SavedExit, vpeak, b.Jerk)
		b.CruiseVelocity = vpeak
	}
	bodyLen := remaining - headLen - tailLen
	if bodyLen < 0 {
		bodyLen = 0
	}
	bodyTime := 0.0
	if b.CruiseVelocity > 0 {
		bodyTime = bodyLen / b.CruiseVelocity
	}

	b.EntryVelocity = 0
	b.HeadLength, b.HeadTime = headLen, headTime
	b.BodyLength, b.BodyTime = bodyLen, bodyTime
	b.TailLength, b.TailTime = tailLen, tailTime
	b.ExitVelocity = b.SavedExit
	renormalize(b)

	e.computeWaypoints(b)
	e.section = SectionHead
	e.secState = sectionNew
	e.sectionDistanceDone = 0
}

// RequestOutOfBandDwell arms a dwell that lives outside the planner
// queue, used on feed-hold exit to let mechanics settle before motion
// restarts. It may only be armed while the executor is idle and is
// consumed at the next loader cycle; arming mid-move is refused.
func (e *Executor) RequestOutOfBandDwell(seconds float64) bool {
	if e.current != nil || e.Holding() || seconds <= 0 {
		return false
	}
	e.oobDwell = seconds
	return true
}

// engageFeedHold runs once, at the first safe section boundary after a
// hold was requested: it truncates the rest of the move into a
// deceleration-to-zero tail, as short as the jerk limit and remaining
// block length allow, and records whatever length that tail didn't
// cover so Resume can pick it back up later.
func (e *Executor) engageFeedHold(b *planner.Block) {
	b.SavedExit = b.ExitVelocity
	v0 := e.currentSectionEntryVelocity(b)
	remaining := b.Length - e.distanceCompletedInBlock(b)

	brakeLen, brakeTime := rampDistance(0, v0, b.Jerk)
	if brakeLen <= remaining {
		b.TailLength, b.TailTime = brakeLen, brakeTime
		b.ExitVelocity = 0
		e.hold = holdDecelToZero
		e.holdLeftover = remaining - brakeLen
	} else {
		// Braking distance doesn't fit: decelerate as much as the
		// remaining length allows and carry the reduced velocity into
		// the next block, which re-engages the hold on load.
		b.TailLength = remaining
		b.TailTime = 2 * remaining / math.Max(v0, 1e-9)
		b.ExitVelocity = v0 * (1 - remaining/math.Max(brakeLen, 1e-9))
		if b.ExitVelocity < 0 {
			b.ExitVelocity = 0
		}
		e.hold = holdDecelContinue
		e.holdLeftover = 0
	}
	b.HeadLength, b.HeadTime = 0, 0
	b.BodyLength, b.BodyTime = 0, 0
	b.CruiseVelocity = v0
	e.computeWaypoints(b)

	e.section = SectionTail
	e.secState = sectionNew
	e.sectionDistanceDone = 0
}

func (e *Executor) currentSectionEntryVelocity(b *planner.Block) float64 {
	switch e.section {
	case SectionHead:
		return b.EntryVelocity
	default:
		return b.CruiseVelocity
	}
}

func (e *Executor) distanceCompletedInBlock(b *planner.Block) float64 {
	var done float64
	switch e.section {
	case SectionBody:
		done += b.HeadLength
	case SectionTail:
		done += b.HeadLength + b.BodyLength
	}
	return done + e.sectionDistanceDone
}

// rampDistance mirrors planner.rampDistance: the length and duration
// of a jerk-symmetric S-curve ramp between v0 and v1.
func rampDistance(v0, v1, jerk float64) (length, dur float64) {
	if v1 <= v0 || jerk <= 0 {
		return 0, 0
	}
	dur = 2 * math.Sqrt((v1-v0)/jerk)
	length = (v0 + v1) / 2 * dur
	return length, dur
}
