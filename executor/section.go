package executor

import (
	"math"

	"tinygo.org/x/g2go/planner"
)

// renormalize folds any section shorter than MinSegmentTime into a
// neighbor: a head or tail too short to carry even one segment is
// absorbed into the body, and a body too short is split in half
// between head and tail.
// Running this once per loaded block means the section walk never has
// to special-case a near-zero-length section.
func renormalize(b *planner.Block) {
	if b.HeadTime > 0 && b.HeadTime < MinSegmentTime {
		b.BodyLength += b.HeadLength
		b.BodyTime += b.HeadTime
		b.HeadLength, b.HeadTime = 0, 0
	}
	if b.TailTime > 0 && b.TailTime < MinSegmentTime {
		b.BodyLength += b.TailLength
		b.BodyTime += b.TailTime
		b.TailLength, b.TailTime = 0, 0
	}
	if b.BodyTime > 0 && b.BodyTime < MinSegmentTime {
		halfLen, halfTime := b.BodyLength/2, b.BodyTime/2
		b.HeadLength += halfLen
		b.HeadTime += halfTime
		b.TailLength += halfLen
		b.TailTime += halfTime
		b.BodyLength, b.BodyTime = 0, 0
	}
}

// sectionSegmentCount picks how many slices a section's total time
// divides into. Rounding up keeps every segment at or under the
// nominal duration; the count is at least one so a nonzero-length
// section is never skipped.
func sectionSegmentCount(sectionTime float64) int {
	if sectionTime <= 0 {
		return 0
	}
	n := int(math.Ceil(sectionTime / NomSegmentTime))
	if n < 1 {
		n = 1
	}
	return n
}

// lengthOf returns a section's planned length and total time.
func lengthOf(b *planner.Block, s Section) (length, tm, v0, v1 float64) {
	switch s {
	case SectionHead:
		return b.HeadLength, b.HeadTime, b.EntryVelocity, b.CruiseVelocity
	case SectionBody:
		return b.BodyLength, b.BodyTime, b.CruiseVelocity, b.CruiseVelocity
	case SectionTail:
		return b.TailLength, b.TailTime, b.CruiseVelocity, b.ExitVelocity
	}
	return 0, 0, 0, 0
}

// beginSection sets up segment count, per-segment duration, and either
// a forward-difference velocity sampler (multi-segment section) or a
// constant bypass velocity (length/segment_time, the single-segment
// shortcut).
func (e *Executor) beginSection(b *planner.Block) {
	length, tm, v0, v1 := lengthOf(b, e.section)
	n := sectionSegmentCount(tm)
	e.segCount = n
	e.segIndex = 0
	if n <= 1 {
		e.fd = nil
		if tm > 0 {
			e.bypassV = length / tm
		} else {
			e.bypassV = 0
		}
		e.segTime = tm
	} else {
		e.segTime = tm / float64(n)
		e.fd = newForwardDiff(v0, v1, n)
	}
	e.secState = sectionRunning
}

// sampleVelocity returns the velocity to hold for the current segment
// and advances whichever sampler is active.
func (e *Executor) sampleVelocity() float64 {
	if e.fd != nil {
		return e.fd.Sample()
	}
	return e.bypassV
}
