package stepper

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"tinygo.org/x/g2go/alarm"
	"tinygo.org/x/g2go/halsim"
	"tinygo.org/x/g2go/motion"
	"tinygo.org/x/g2go/timebase"
)

func newTestEngine(c *qt.C) (*Engine, *Preparer) {
	board := halsim.NewBoard(motion.MOTORS)
	clocks := timebase.New(board, 200_000)
	// loadNext arms the simulated DDA timer; give it a period no test
	// outlives so only the tests' direct ddaTick calls advance the engine.
	board.DDATimer().SetPeriod(time.Hour)
	prep := NewPreparer()
	eng := NewEngine(board, clocks, prep, alarm.New())
	return eng, prep
}

// TestStepCountMatchesTravel checks that the sum of emitted pulses
// equals the integer accumulated target-step change for a single
// segment run synchronously (no goroutines): driving the tick function
// directly rather than through the simulated timer keeps the test
// deterministic.
func TestStepCountMatchesTravel(t *testing.T) {
	c := qt.New(t)
	eng, prep := newTestEngine(c)

	var travel motion.Steps
	travel[0] = 1000
	travel[1] = -500

	ok := prep.PrepLine(travel, motion.Steps{}, 0.1, false)
	c.Assert(ok, qt.IsTrue)
	c.Assert(eng.loadNext(), qt.IsTrue)

	ticks := eng.ticksRemaining
	for i := int64(0); i < ticks; i++ {
		eng.ddaTick()
	}

	counts := eng.StepCounts()
	c.Assert(counts[0], qt.Equals, int64(1000))
	c.Assert(eng.motors[1].StepCount, qt.Equals, int64(500))
}

// TestDirectionFlipPreservesPhase checks the accumulator-reflection
// rule: after a flip, running the reverse segment for the same
// duration should emit the same number of steps (within rounding),
// the step phase carried across a direction reversal.
func TestDirectionFlipPreservesPhase(t *testing.T) {
	c := qt.New(t)
	eng, prep := newTestEngine(c)

	var fwd motion.Steps
	fwd[0] = 400
	c.Assert(prep.PrepLine(fwd, motion.Steps{}, 0.05, false), qt.IsTrue)
	c.Assert(eng.loadNext(), qt.IsTrue)
	for eng.ticksRemaining > 0 {
		eng.ddaTick()
	}
	forwardSteps := eng.motors[0].StepCount

	var rev motion.Steps
	rev[0] = -400
	c.Assert(prep.PrepLine(rev, motion.Steps{}, 0.05, false), qt.IsTrue)
	c.Assert(eng.loadNext(), qt.IsTrue)
	for eng.ticksRemaining > 0 {
		eng.ddaTick()
	}
	reverseSteps := eng.motors[0].StepCount - forwardSteps

	c.Assert(reverseSteps, qt.Equals, int64(400))
}

// TestDeterminism runs the same segment twice from a fresh engine and
// expects identical step counts.
func TestDeterminism(t *testing.T) {
	c := qt.New(t)

	run := func() int64 {
		eng, prep := newTestEngine(c)
		var travel motion.Steps
		travel[2] = 777
		prep.PrepLine(travel, motion.Steps{}, 0.2, false)
		eng.loadNext()
		for eng.ticksRemaining > 0 {
			eng.ddaTick()
		}
		return eng.motors[2].StepCount
	}

	a, b := run(), run()
	c.Assert(a, qt.Equals, b)
	c.Assert(a, qt.Equals, int64(777))
}

// TestPrepNudgeCorrection exercises the step-correction threshold: a
// following error beyond the threshold should adjust travel by at
// most MaxNudgeSteps, and the holdoff should then suppress a second
// correction on the very next segment.
func TestPrepNudgeCorrection(t *testing.T) {
	c := qt.New(t)
	prep := NewPreparer()

	var travel, err motion.Steps
	travel[0] = 100
	err[0] = 5 // beyond StepCorrectionThreshold

	c.Assert(prep.PrepLine(travel, err, 0.01, false), qt.IsTrue)
	seg, ok := prep.Take()
	c.Assert(ok, qt.IsTrue)
	c.Assert(seg.Travel[0], qt.Equals, int32(99))

	// Holdoff should suppress a correction on the immediately
	// following segment even though the error is still large.
	c.Assert(prep.PrepLine(travel, err, 0.01, false), qt.IsTrue)
	seg2, _ := prep.Take()
	c.Assert(seg2.Travel[0], qt.Equals, int32(100))
}

// TestDwellStopsDDA confirms a dwell segment stops the DDA timer and
// is consumed by the system tick countdown rather than stepping.
func TestDwellStopsDDA(t *testing.T) {
	c := qt.New(t)
	eng, prep := newTestEngine(c)

	c.Assert(prep.PrepLine(motion.Steps{}, motion.Steps{}, 0.005, true), qt.IsTrue)
	c.Assert(eng.loadNext(), qt.IsTrue)
	c.Assert(eng.running, qt.IsFalse)
	c.Assert(eng.dwellTicksLeft > 0, qt.IsTrue)

	for eng.dwellTicksLeft > 0 {
		eng.systemTick()
	}
}
