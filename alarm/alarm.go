// Package alarm centralizes the panic/alarm latch: any runtime
// exception (NaN/infinite segment time, a structure-magic assertion,
// segment_time below MIN) latches the machine into alarm, halts the
// DDA timer, and blocks all new motion until the controller loop
// clears it and the platform is reset or re-homed.
package alarm

import (
	"sync/atomic"

	"github.com/golang/glog"
)

// Level distinguishes the severity used to pick the status LED blink
// rate (normal/alarm/shutdown/panic).
type Level int32

const (
	Normal Level = iota
	Alarm
	Shutdown
	Panic
)

// BlinkRateMS returns the LED blink period for a given level in
// milliseconds (normal 3000, alarm 750, shutdown 300, panic 100).
func (l Level) BlinkRateMS() int {
	switch l {
	case Alarm:
		return 750
	case Shutdown:
		return 300
	case Panic:
		return 100
	default:
		return 3000
	}
}

// Latch is a process-wide alarm flag. It is safe to read from any
// goroutine (DDA, exec, controller loop) and written only through
// Trip/Clear.
type Latch struct {
	level  atomic.Int32
	reason atomic.Value // string
}

func New() *Latch {
	l := &Latch{}
	l.reason.Store("")
	return l
}

// Trip latches the machine at the given level with a diagnostic
// reason. ISR-safe: never allocates beyond storing the reason string,
// never blocks.
func (l *Latch) Trip(level Level, reason string) {
	l.level.Store(int32(level))
	l.reason.Store(reason)
	glog.Errorf("alarm latched: level=%d reason=%s", level, reason)
}

// Clear releases the latch, returning to Normal. Only the controller
// loop calls this, and only after confirming it is safe to resume:
// exiting the stopped state requires re-planning the remainder.
func (l *Latch) Clear() {
	l.level.Store(int32(Normal))
	l.reason.Store("")
}

// Level returns the current latch level.
func (l *Latch) Level() Level {
	return Level(l.level.Load())
}

// Latched reports whether any new motion must be refused: alarm state
// gates all new motion, so any move attempted while latched returns
// without queueing.
func (l *Latch) Latched() bool {
	return l.Level() != Normal
}

// Reason returns the diagnostic string attached to the current latch.
func (l *Latch) Reason() string {
	v, _ := l.reason.Load().(string)
	return v
}
