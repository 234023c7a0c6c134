package stepper

import (
	"sync/atomic"
	"time"

	"tinygo.org/x/g2go/motion"
)

// PrepBufferState is the one-slot handoff flag between exec (writer)
// and the loader (reader): OwnedByExec means the slot is free for the
// executor to fill; OwnedByLoader means a segment is ready and the
// loader may take it at the next DDA-tick boundary.
type PrepBufferState int32

const (
	OwnedByExec PrepBufferState = iota
	OwnedByLoader
)

// Preparer holds the single shared prep slot. It is SPSC: st_prep_line
// (called from EXEC) is the only writer, the loader (called from the
// DDA tick) is the only reader. The buffer-state field is the
// release/acquire flag, so ordinary field writes below are safe
// without a mutex as long as that invariant holds.
type Preparer struct {
	state atomic.Int32
	seg   Segment

	nudgeHoldoff [motion.MOTORS]int
}

func NewPreparer() *Preparer {
	p := &Preparer{}
	p.state.Store(int32(OwnedByExec))
	return p
}

// State reports the current ownership of the slot.
func (p *Preparer) State() PrepBufferState {
	return PrepBufferState(p.state.Load())
}

// PrepLine is st_prep_line: computes nudge-corrected travel and stores
// the segment, then releases ownership to the loader. Returns false
// (and does nothing) if the slot is still owned by the loader — the
// caller must not overwrite a segment the loader hasn't consumed yet.
func (p *Preparer) PrepLine(travel, followingError motion.Steps, segTime_s float64, dwell bool) bool {
	if p.State() == OwnedByLoader {
		return false
	}
	corrected := p.applyNudge(travel, followingError)
	p.seg = Segment{
		Travel:         corrected,
		FollowingError: followingError,
		Time:           time.Duration(segTime_s * float64(time.Second)),
		Dwell:          dwell,
	}
	p.state.Store(int32(OwnedByLoader))
	return true
}

// applyNudge injects a bounded correction into travel when following
// error exceeds StepCorrectionThreshold and a motor's holdoff counter
// has expired, then decrements that motor's holdoff.
func (p *Preparer) applyNudge(travel, followingError motion.Steps) motion.Steps {
	out := travel
	for m := 0; m < motion.MOTORS; m++ {
		if p.nudgeHoldoff[m] > 0 {
			p.nudgeHoldoff[m]--
			continue
		}
		err := followingError[m]
		if err > StepCorrectionThreshold {
			out[m] -= clampNudge(err)
			p.nudgeHoldoff[m] = NudgeHoldoffSegments
		} else if err < -StepCorrectionThreshold {
			out[m] += clampNudge(-err)
			p.nudgeHoldoff[m] = NudgeHoldoffSegments
		}
	}
	return out
}

func clampNudge(magnitude int32) int32 {
	if magnitude > MaxNudgeSteps {
		return MaxNudgeSteps
	}
	return magnitude
}

// Take is called only by the loader (DDA priority) and by hosted test
// harnesses standing in for it: if a segment is ready it is copied out
// and the slot released back to the exec side.
func (p *Preparer) Take() (Segment, bool) {
	if p.State() != OwnedByLoader {
		return Segment{}, false
	}
	seg := p.seg
	p.state.Store(int32(OwnedByExec))
	return seg, true
}
