package stepper

import (
	"time"

	"tinygo.org/x/g2go/alarm"
	"tinygo.org/x/g2go/hal"
	"tinygo.org/x/g2go/motion"
	"tinygo.org/x/g2go/timebase"
)

// Engine is the DDA pulse generator plus the segment loader.
// Its tick method is the only work done at DDA priority; it never
// allocates and never blocks.
type Engine struct {
	board  hal.Board
	clocks *timebase.Clocks
	prep   *Preparer
	alarm  *alarm.Latch

	motors [motion.MOTORS]MotorState

	segmentSubsteps int64 // dda_ticks * DDASubsteps for the running segment
	ticksRemaining  int64
	dwellTicksLeft  uint64
	running         bool

	// OnSegmentDone is called once per completed segment (after the
	// loader has attempted to load the next one); the controller wires
	// this to request an EXEC cycle so the planner/executor stay one
	// segment ahead.
	OnSegmentDone func()
}

func NewEngine(board hal.Board, clocks *timebase.Clocks, prep *Preparer, lat *alarm.Latch) *Engine {
	return &Engine{board: board, clocks: clocks, prep: prep, alarm: lat}
}

// Start begins the loader: it immediately attempts to load a first
// segment and, if one is ready, starts the DDA tick.
func (e *Engine) Start() {
	e.clocks.StartSystemTick(e.systemTick)
	e.loadNext()
}

// systemTick drives the dwell countdown (the DDA timer is stopped for
// the duration of a dwell).
func (e *Engine) systemTick() {
	if e.dwellTicksLeft == 0 {
		return
	}
	e.dwellTicksLeft--
	if e.dwellTicksLeft == 0 {
		e.loadNext()
	}
}

// loadNext is the loader: if the prep slot holds a ready segment,
// copy it into the running motor state and (re)start the DDA timer.
// Returns false if there was nothing ready (starvation: the caller
// keeps motors energized and leaves the timer stopped).
func (e *Engine) loadNext() bool {
	seg, ok := e.prep.Take()
	if !ok {
		if e.running {
			e.clocks.StopDDATick()
			e.running = false
		}
		return false
	}

	if seg.Dwell {
		e.clocks.StopDDATick()
		e.running = false
		ticks := uint64(seg.Time / systemTickPeriod)
		if ticks == 0 {
			ticks = 1
		}
		e.dwellTicksLeft = ticks
		return true
	}

	ticks := int64(seg.Time.Seconds()*float64(e.clocks.DDAFrequencyHz()) + 0.5)
	if ticks < 1 {
		ticks = 1
	}
	newThreshold := ticks * DDASubsteps

	for m := 0; m < motion.MOTORS; m++ {
		ms := &e.motors[m]
		travel := seg.Travel[m]
		dir := travel >= 0
		mag := int64(abs32(travel)) * DDASubsteps

		switch {
		case ms.SubstepIncrement != 0 && dir != ms.Direction:
			// Direction flip mid-move: reflect the accumulator through
			// its midpoint to preserve the partial step phase.
			ms.Accumulator = -(e.segmentSubsteps + ms.Accumulator)
		case e.segmentSubsteps != 0 && newThreshold != e.segmentSubsteps:
			// Segment time changed: scale the accumulator so the
			// sub-step phase survives the new threshold.
			corr := float64(newThreshold) / float64(e.segmentSubsteps)
			ms.Accumulator = int64(float64(ms.Accumulator) * corr)
		}

		ms.PrevDirection = ms.Direction
		ms.Direction = dir
		ms.SubstepIncrement = mag
		e.board.DirPin(m).Set(hal.Level(dir))
	}

	e.segmentSubsteps = newThreshold
	e.ticksRemaining = ticks
	if !e.running {
		e.clocks.StartDDATick(e.ddaTick)
		e.running = true
	}
	return true
}

// ddaTick runs at DDA priority. For each motor, integrate the
// accumulator; when it crosses zero on the positive side, emit a step
// edge and subtract the segment's substep threshold.
func (e *Engine) ddaTick() {
	if e.ticksRemaining <= 0 {
		return
	}
	if e.segmentSubsteps <= 0 || e.segmentSubsteps > maxAccumulatorBound {
		e.alarm.Trip(alarm.Panic, "stepper: segment substep threshold out of bounds")
		e.clocks.StopDDATick()
		e.running = false
		return
	}

	for m := 0; m < motion.MOTORS; m++ {
		ms := &e.motors[m]
		if ms.SubstepIncrement == 0 {
			continue
		}
		ms.Accumulator += ms.SubstepIncrement
		if ms.Accumulator > 0 {
			e.step(m, ms.Direction)
			ms.StepCount++
			ms.Accumulator -= e.segmentSubsteps
		}
	}

	e.ticksRemaining--
	if e.ticksRemaining == 0 {
		if e.OnSegmentDone != nil {
			e.OnSegmentDone()
		}
		e.loadNext()
	}
}

func (e *Engine) step(motor int, dir bool) {
	pin := e.board.StepPin(motor)
	pin.Set(hal.High)
	pin.Set(hal.Low)
}

// StepCounts returns the lifetime step-pulse count per motor, used by
// the determinism and total-distance testable properties.
func (e *Engine) StepCounts() [motion.MOTORS]int64 {
	var out [motion.MOTORS]int64
	for m := range e.motors {
		out[m] = e.motors[m].StepCount
	}
	return out
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// maxAccumulatorBound guards the accumulator against overflow: the
// threshold is bounded by MAX_SEGMENT_TIME * FREQUENCY_DDA * DDA_SUBSTEPS,
// kept comfortably inside int32 range even though Accumulator here is
// int64 for headroom during simulation.
const maxAccumulatorBound = 10 * 200_000 * DDASubsteps // 10s @ 200kHz DDA

// systemTickPeriod is the nominal period of the ~1kHz system tick,
// used to convert a dwell's segment time into tick counts.
const systemTickPeriod = time.Second / timebase.SystemTickHz
