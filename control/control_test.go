package control

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"tinygo.org/x/g2go/alarm"
	"tinygo.org/x/g2go/canonical"
	"tinygo.org/x/g2go/config"
	marlin "tinygo.org/x/g2go/dialect/marlin"
	"tinygo.org/x/g2go/executor"
	"tinygo.org/x/g2go/halsim"
	"tinygo.org/x/g2go/motion"
	"tinygo.org/x/g2go/peripherals"
	"tinygo.org/x/g2go/planner"
	"tinygo.org/x/g2go/report"
	"tinygo.org/x/g2go/stepper"
	"tinygo.org/x/g2go/timebase"
	"tinygo.org/x/g2go/transport"
)

type fakeIO struct {
	in  []byte
	out []byte
}

func (f *fakeIO) Buffered() int { return len(f.in) }

func (f *fakeIO) ReadByte() (byte, error) {
	c := f.in[0]
	f.in = f.in[1:]
	return c, nil
}

func (f *fakeIO) Write(p []byte) (int, error) {
	f.out = append(f.out, p...)
	return len(p), nil
}

func (f *fakeIO) feed(s string) { f.in = append(f.in, s...) }

// rig is a full hosted stack driven deterministically: RunOnce with a
// hand-advanced clock and a manual drain of the prep slot standing in
// for the DDA loader.
type rig struct {
	io   *fakeIO
	loop *Loop
	q    *planner.Queue
	exec *executor.Executor
	prep *stepper.Preparer
	lat  *alarm.Latch
	now  time.Time

	segments []stepper.Segment
}

func newRig() *rig {
	board := halsim.NewBoard(motion.MOTORS)
	clocks := timebase.New(board, timebase.DefaultDDAFrequencyHz)
	lat := alarm.New()
	reg := config.New()
	reg.Declare("axis.x.jerk", 500, 1, 100000)

	q := planner.New(planner.DefaultCapacity, planner.DefaultHeadroom)
	machine := canonical.New(q, reg)
	prep := stepper.NewPreparer()
	engine := stepper.NewEngine(board, clocks, prep, lat)
	exec := executor.NewExecutor(q, machine.Kinematics, machine.StepsPerMM, prep, lat)

	io := &fakeIO{}
	lines := transport.NewLines(io)

	loop := New(&Loop{
		Lines:   lines,
		Machine: machine,
		Queue:   q,
		Exec:    exec,
		Engine:  engine,
		Clocks:  clocks,
		Alarm:   lat,
		Config:  reg,
		Board:   board,
		Reporter: report.NewReporter(func() report.Status {
			return report.Status{State: "test"}
		}, lines),
	})
	// Status reports are exercised separately; keep the transcript
	// clean of periodic traffic unless a test asks for it.
	loop.Reporter.Interval = time.Hour

	return &rig{io: io, loop: loop, q: q, exec: exec, prep: prep, lat: lat, now: time.Now()}
}

// step runs n cooperative passes, advancing 5ms each and draining any
// prepared segment the way the DDA loader would.
func (r *rig) step(n int) {
	for i := 0; i < n; i++ {
		r.now = r.now.Add(5 * time.Millisecond)
		r.loop.RunOnce(r.now)
		if seg, ok := r.prep.Take(); ok {
			r.segments = append(r.segments, seg)
		}
	}
}

func (r *rig) totalSteps(axis int) int32 {
	var total int32
	for _, s := range r.segments {
		total += s.Travel[axis]
	}
	return total
}

func TestEndToEndSingleMove(t *testing.T) {
	c := qt.New(t)
	r := newRig()
	r.io.feed("G21 G90 G0 X0 Y0 Z0\nG1 X100 F6000\n")

	r.step(2000)

	// 6000 mm/min = 100 mm/s cruise over a 100 mm line at 80
	// steps/mm.
	c.Assert(r.totalSteps(motion.AxisX), qt.Equals, int32(8000))
	pos := r.exec.Position()
	c.Assert(math.Abs(pos[motion.AxisX]-100) < 1e-6, qt.IsTrue)
	c.Assert(r.q.Count(), qt.Equals, 0)
}

func TestEndToEndCornerJunction(t *testing.T) {
	c := qt.New(t)
	r := newRig()
	r.io.feed("G21 G90 G1 X10 F600\nG1 Y10\n")

	// Pump until both blocks are queued, before they execute away.
	for i := 0; i < 50 && r.q.Count() < 2; i++ {
		r.now = r.now.Add(time.Millisecond)
		r.loop.RunOnce(r.now)
	}
	blocks := r.q.Blocks()
	c.Assert(blocks, qt.HasLen, 2)

	// 90 degree corner: dot(unitA, unitB) = 0 means the junction
	// ceiling collapses to near zero relative to the 10 mm/s cruise.
	c.Assert(blocks[1].JunctionVmax < 1.0, qt.IsTrue)

	r.step(3000)
	pos := r.exec.Position()
	c.Assert(math.Abs(pos[motion.AxisX]-10) < 1e-6, qt.IsTrue)
	c.Assert(math.Abs(pos[motion.AxisY]-10) < 1e-6, qt.IsTrue)
}

func TestEndToEndFeedHoldAndResume(t *testing.T) {
	c := qt.New(t)
	r := newRig()
	r.io.feed("G21 G90 G1 X100 F3000\n")

	r.step(60)
	c.Assert(r.exec.Active(), qt.IsTrue)

	r.io.feed("!")
	r.step(400)
	c.Assert(r.exec.Stopped(), qt.IsTrue)
	held := r.exec.Position()[motion.AxisX]
	c.Assert(held > 0 && held < 100, qt.IsTrue)

	// Position during the hold matches the emitted steps exactly.
	c.Assert(r.totalSteps(motion.AxisX), qt.Equals, int32(math.Round(held*80)))

	r.io.feed("~")
	r.step(2000)
	c.Assert(r.exec.Active(), qt.IsFalse)
	c.Assert(math.Abs(r.exec.Position()[motion.AxisX]-100) < 1e-6, qt.IsTrue)
	c.Assert(r.totalSteps(motion.AxisX), qt.Equals, int32(8000))
}

func TestEndToEndChecksummedLine(t *testing.T) {
	c := qt.New(t)
	r := newRig()

	sum := func(s string) byte {
		var x byte
		for i := 0; i < len(s); i++ {
			x ^= s[i]
		}
		return x
	}

	good := "N5 G1 X1 F600"
	r.io.feed(fmt.Sprintf("%s*%d\n", good, sum(good)))
	r.step(20)
	c.Assert(r.q.Count() > 0 || r.exec.Active() || r.totalSteps(motion.AxisX) > 0, qt.IsTrue)
	r.step(1000)
	c.Assert(r.totalSteps(motion.AxisX), qt.Equals, int32(80))

	// A wrong checksum is rejected and never reaches the planner.
	before := r.totalSteps(motion.AxisX)
	r.io.feed(fmt.Sprintf("%s*%d\n", "N6 G1 X2", sum("N6 G1 X2")^0x55))
	r.step(100)
	c.Assert(strings.Contains(string(r.io.out), "CHECKSUM_MATCH_FAILED"), qt.IsTrue)
	c.Assert(r.totalSteps(motion.AxisX), qt.Equals, before)
}

func TestEndToEndDwell(t *testing.T) {
	c := qt.New(t)
	r := newRig()
	r.io.feed("G4 P0.5\n")
	r.step(50)

	var dwells int
	for _, s := range r.segments {
		if s.Dwell {
			dwells++
			c.Assert(s.Time, qt.Equals, 500*time.Millisecond)
		}
	}
	c.Assert(dwells, qt.Equals, 1)
}

func TestAlarmGatesNewMotion(t *testing.T) {
	c := qt.New(t)
	r := newRig()
	r.lat.Trip(alarm.Alarm, "test latch")

	r.io.feed("G1 X10 F600\n")
	r.step(50)

	c.Assert(r.q.Count(), qt.Equals, 0)
	c.Assert(r.totalSteps(motion.AxisX), qt.Equals, int32(0))
	c.Assert(strings.Contains(string(r.io.out), "alarm"), qt.IsTrue)
}

func TestConfigLineReadWrite(t *testing.T) {
	c := qt.New(t)
	r := newRig()

	r.io.feed("$axis.x.jerk 800\n")
	r.step(5)
	v, ok := r.loop.Config.Get("axis.x.jerk")
	c.Assert(ok, qt.IsTrue)
	c.Assert(v, qt.Equals, 800.0)

	// Out-of-range write is rejected; the field keeps its prior value.
	r.io.feed("$axis.x.jerk 9999999\n")
	r.step(5)
	v, _ = r.loop.Config.Get("axis.x.jerk")
	c.Assert(v, qt.Equals, 800.0)
	c.Assert(strings.Contains(string(r.io.out), "out of range"), qt.IsTrue)

	r.io.feed("$axis.x.jerk\n")
	r.step(5)
	c.Assert(strings.Contains(string(r.io.out), `{"axis.x.jerk":800}`), qt.IsTrue)
}

func TestStatusRequestBypassesRateLimit(t *testing.T) {
	c := qt.New(t)
	r := newRig()
	r.io.feed("?")
	r.step(3)
	c.Assert(strings.Contains(string(r.io.out), `"stat":"test"`), qt.IsTrue)
}

func TestInlineJSONStatusViaM100(t *testing.T) {
	c := qt.New(t)
	r := newRig()
	r.io.feed("M100 ({\"sr\":null})\n")
	r.step(30)
	c.Assert(strings.Contains(string(r.io.out), `"stat":"test"`), qt.IsTrue)
}

func TestInlineJSONConfigWrite(t *testing.T) {
	c := qt.New(t)
	r := newRig()
	r.io.feed("M100 ({\"axis.x.jerk\":900})\n")
	r.step(30)
	v, ok := r.loop.Config.Get("axis.x.jerk")
	c.Assert(ok, qt.IsTrue)
	c.Assert(v, qt.Equals, 900.0)
}

func TestMarlinM114TriggersStatusReport(t *testing.T) {
	c := qt.New(t)
	r := newRig()
	tr := &marlin.Translator{Sink: peripherals.LogSink{}}
	r.loop.Translate = tr.Translate

	r.io.feed("M114\n")
	r.step(30)
	c.Assert(strings.Contains(string(r.io.out), `"stat":"test"`), qt.IsTrue)
}

func TestProgramEndClosesQuit(t *testing.T) {
	c := qt.New(t)
	r := newRig()
	r.loop.Quit = make(chan struct{})
	quit := r.loop.Quit

	r.io.feed("M2\n")
	r.step(10)

	select {
	case <-quit:
	default:
		c.Fatal("M2 did not close Quit")
	}
}
