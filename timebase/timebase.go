// Package timebase implements the three logical clocks the motion
// core runs on. The system tick drives the cooperative controller loop
// and dwell countdowns; the DDA tick drives the stepper pulse engine;
// two software-triggered, low-priority "interrupts" (EXEC and FWD_PLAN)
// are modeled as buffered one-slot request channels instead of real
// interrupt lines, for a hosted build.
package timebase

import (
	"time"

	"tinygo.org/x/g2go/hal"
)

const (
	// SystemTickHz is the ~1kHz system tick driving the controller loop.
	SystemTickHz = 1000
	// DefaultDDAFrequencyHz is the default stepper pulse-engine rate.
	DefaultDDAFrequencyHz = 200_000
)

// Trigger is a software-triggered, coalescing low-priority event: if a
// request arrives while one is already pending, it is dropped (at most
// one pending request at a time), mirroring a software interrupt flag
// that can only be "set", not queued.
type Trigger struct {
	ch chan struct{}
}

func NewTrigger() *Trigger {
	return &Trigger{ch: make(chan struct{}, 1)}
}

// Request marks the trigger pending; a no-op if already pending.
func (t *Trigger) Request() {
	select {
	case t.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the trigger fires.
func (t *Trigger) Wait() {
	<-t.ch
}

// C is a non-blocking channel a select statement can watch directly.
func (t *Trigger) C() <-chan struct{} {
	return t.ch
}

// Clocks owns the system tick and DDA tick hardware timers plus the two
// software triggers (EXEC, FWD_PLAN).
type Clocks struct {
	board    hal.Board
	sysTick  hal.Timer
	ddaTick  hal.Timer
	Exec     *Trigger
	FwdPlan  *Trigger
	ddaHz    int
	tickSeq  uint64
}

func New(board hal.Board, ddaFrequencyHz int) *Clocks {
	if ddaFrequencyHz <= 0 {
		ddaFrequencyHz = DefaultDDAFrequencyHz
	}
	c := &Clocks{
		board:   board,
		sysTick: board.SystemTimer(),
		ddaTick: board.DDATimer(),
		Exec:    NewTrigger(),
		FwdPlan: NewTrigger(),
		ddaHz:   ddaFrequencyHz,
	}
	c.sysTick.SetPeriod(time.Second / SystemTickHz)
	c.ddaTick.SetPeriod(time.Second / time.Duration(ddaFrequencyHz))
	return c
}

// DDAFrequencyHz reports the configured DDA interrupt rate.
func (c *Clocks) DDAFrequencyHz() int { return c.ddaHz }

// StartSystemTick begins the ~1kHz tick, calling fire on every tick.
func (c *Clocks) StartSystemTick(fire func()) {
	c.sysTick.Start(func() {
		c.tickSeq++
		fire()
	})
}

// StartDDATick begins the DDA-rate tick, calling fire on every tick.
// The stepper package is the sole caller; it starts/stops this per
// segment rather than leaving it free-running.
func (c *Clocks) StartDDATick(fire func()) {
	c.ddaTick.Start(fire)
}

func (c *Clocks) StopDDATick() {
	c.ddaTick.Stop()
}

func (c *Clocks) DDARunning() bool {
	return c.ddaTick.Running()
}

// SystemTicks returns the number of system ticks observed so far.
func (c *Clocks) SystemTicks() uint64 { return c.tickSeq }
