package planner

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func mkALINE(q *Queue, length, jerk, vmax float64) *Block {
	b := q.GetWriteBlock()
	b.Type = BlockALINE
	b.Length = length
	b.Jerk = jerk
	b.AbsoluteVmax = vmax
	b.CruiseVmax = vmax
	b.CruiseVset = vmax
	b.JunctionVmax = vmax
	b.ExitVmax = vmax
	q.CommitWrite(b)
	return b
}

func TestAdmissionAndRelease(t *testing.T) {
	c := qt.New(t)
	q := New(4, 1)
	c.Assert(q.Available(), qt.Equals, 4)

	b1 := mkALINE(q, 10, 100, 50)
	c.Assert(q.Available(), qt.Equals, 3)

	q.Release(b1)
	c.Assert(q.Available(), qt.Equals, 4)
}

func TestForwardPlanTrapezoid(t *testing.T) {
	c := qt.New(t)
	b := &Block{Type: BlockALINE, Length: 100, Jerk: 500, CruiseVset: 20, CruiseVmax: 20, AbsoluteVmax: 20, ExitVelocity: 0}
	ForwardPlan(b, 0)
	c.Assert(b.BufferState, qt.Equals, FullyPlanned)
	c.Assert(b.CruiseVelocity, qt.Equals, 20.0)
	total := b.HeadLength + b.BodyLength + b.TailLength
	c.Assert(nearlyEqual(total, b.Length, 1e-3), qt.IsTrue)
}

func TestForwardPlanTriangleWhenTooShort(t *testing.T) {
	c := qt.New(t)
	b := &Block{Type: BlockALINE, Length: 0.5, Jerk: 500, CruiseVset: 100, CruiseVmax: 100, AbsoluteVmax: 100, ExitVelocity: 0}
	ForwardPlan(b, 0)
	c.Assert(b.CruiseVelocity < 100, qt.IsTrue)
	total := b.HeadLength + b.BodyLength + b.TailLength
	c.Assert(nearlyEqual(total, b.Length, 1e-3), qt.IsTrue)
}

func TestCommitWriteSeedsOptimisticExit(t *testing.T) {
	c := qt.New(t)
	q := New(8, 1)
	b := mkALINE(q, 10, 500, 100)
	c.Assert(b.ExitVelocity, qt.Equals, 100.0)

	// Promoting the queue tail collapses the seeded exit to a stop.
	c.Assert(FinalizeTail(q), qt.IsTrue)
	c.Assert(b.ExitVelocity, qt.Equals, 0.0)
	c.Assert(b.BufferState, qt.Equals, BackPlanned)
}

func TestBackPlanSharpCornerLowersEntry(t *testing.T) {
	c := qt.New(t)
	q := New(8, 1)
	a := mkALINE(q, 10, 500, 100)
	a.JunctionVmax = 100
	b := mkALINE(q, 10, 500, 100)
	b.JunctionVmax = 0.5 // sharp corner: near-zero allowed cornering speed
	b.ExitVelocity = 0

	for i := 0; i < 5; i++ {
		BackPlan(q)
	}
	c.Assert(a.ExitVelocity <= 0.5+1e-6, qt.IsTrue)
}

func TestBackPlanColinearMovesApproachCruise(t *testing.T) {
	c := qt.New(t)
	q := New(64, 1)
	var blocks []*Block
	for i := 0; i < 20; i++ {
		b := mkALINE(q, 0.5, 5000, 200)
		blocks = append(blocks, b)
	}
	for i := 0; i < 10; i++ {
		BackPlan(q)
	}
	// Interior blocks should be allowed close to cruise velocity since
	// junction_vmax is unconstrained (colinear, same direction).
	mid := blocks[len(blocks)/2]
	c.Assert(mid.ExitVelocity > 100, qt.IsTrue)
}

func TestForwardPlanChainWithSeededExits(t *testing.T) {
	c := qt.New(t)
	q := New(64, 1)
	var blocks []*Block
	for i := 0; i < 8; i++ {
		blocks = append(blocks, mkALINE(q, 0.5, 5000, 200))
	}
	for i := 0; i < 8; i++ {
		BackPlan(q)
	}
	c.Assert(FinalizeTail(q), qt.IsTrue)
	for i := 0; i < 8; i++ {
		BackPlan(q)
	}

	// Forward-plan the whole chain, carrying each exit into the next
	// entry, and hold the section-sum and continuity invariants at
	// every block.
	carry := 0.0
	for _, b := range blocks {
		ForwardPlan(b, carry)
		c.Assert(b.EntryVelocity, qt.Equals, carry)
		total := b.HeadLength + b.BodyLength + b.TailLength
		c.Assert(nearlyEqual(total, b.Length, 1e-3), qt.IsTrue,
			qt.Commentf("block %d sections sum %v, length %v", b.Index(), total, b.Length))
		c.Assert(b.ExitVelocity <= b.CruiseVelocity+1e-9, qt.IsTrue)
		carry = b.ExitVelocity
	}
	// The promoted tail comes to a stop.
	c.Assert(blocks[len(blocks)-1].ExitVelocity, qt.Equals, 0.0)
}

func nearlyEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}
