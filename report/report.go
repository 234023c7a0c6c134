// Package report emits rate-limited machine status over the serial
// line transport, with an optional observe-only MQTT mirror. Reports
// are JSON objects on their own line, assembled with the same ASCII
// float formatter the config surface uses so positions round-trip
// through the wire format.
package report

import (
	"time"

	"tinygo.org/x/g2go/alarm"
	"tinygo.org/x/g2go/motion"
)

// DefaultInterval is the minimum spacing between unsolicited status
// reports. A '?' realtime request bypasses it.
const DefaultInterval = 250 * time.Millisecond

// Status is one report's payload: the machine state a host UI needs to
// track a running job.
type Status struct {
	State     string        // "idle", "run", "hold", "alarm", "shutdown", "panic"
	Line      int64         // active G-code line number
	Position  motion.Vector // commanded machine position, mm
	Velocity  float64       // current segment velocity, mm/s
	FeedRate  float64       // programmed feed, mm/min
	Available int           // planner buffers available
	Level     alarm.Level
}

// LineWriter is the serial side of the report path.
type LineWriter interface {
	WriteLine(s string)
}

// Reporter owns the rate limiter and the encode buffer. Source is
// polled at emission time so a report always reflects current state.
type Reporter struct {
	Source   func() Status
	Out      LineWriter
	Mirror   *Mirror // optional
	Interval time.Duration

	last time.Time
	buf  []byte
}

func NewReporter(source func() Status, out LineWriter) *Reporter {
	return &Reporter{
		Source:   source,
		Out:      out,
		Interval: DefaultInterval,
		buf:      make([]byte, 0, 256),
	}
}

// Service emits a report if the rate limiter allows one. The
// controller loop calls this once per pass; it returns true when a
// report went out.
func (r *Reporter) Service(now time.Time) bool {
	if now.Sub(r.last) < r.Interval {
		return false
	}
	r.emit(now)
	return true
}

// Request emits immediately, bypassing the rate limiter ('?' realtime
// status request).
func (r *Reporter) Request(now time.Time) {
	r.emit(now)
}

func (r *Reporter) emit(now time.Time) {
	r.last = now
	s := r.Source()
	r.buf = appendStatusJSON(r.buf[:0], &s)
	line := string(r.buf)
	r.Out.WriteLine(line)
	if r.Mirror != nil {
		r.Mirror.Offer(line)
	}
}

// appendStatusJSON hand-assembles the status object. Reports are the
// hottest serialization path in the firmware; building them into a
// reused buffer keeps the cooperative loop allocation-light.
func appendStatusJSON(b []byte, s *Status) []byte {
	b = append(b, `{"sr":{"stat":"`...)
	b = append(b, s.State...)
	b = append(b, `","line":`...)
	b = appendInt(b, s.Line)
	b = append(b, `,"posx":`...)
	b = AppendFloat(b, s.Position[motion.AxisX], 3)
	b = append(b, `,"posy":`...)
	b = AppendFloat(b, s.Position[motion.AxisY], 3)
	b = append(b, `,"posz":`...)
	b = AppendFloat(b, s.Position[motion.AxisZ], 3)
	b = append(b, `,"vel":`...)
	b = AppendFloat(b, s.Velocity, 2)
	b = append(b, `,"feed":`...)
	b = AppendFloat(b, s.FeedRate, 1)
	b = append(b, `,"qr":`...)
	b = appendInt(b, int64(s.Available))
	b = append(b, `}}`...)
	return b
}

func appendInt(b []byte, v int64) []byte {
	if v < 0 {
		b = append(b, '-')
		v = -v
	}
	var tmp [20]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	return append(b, tmp[i:]...)
}

// StateName maps an alarm level and motion activity onto the report
// state string.
func StateName(level alarm.Level, moving, holding bool) string {
	switch level {
	case alarm.Alarm:
		return "alarm"
	case alarm.Shutdown:
		return "shutdown"
	case alarm.Panic:
		return "panic"
	}
	if holding {
		return "hold"
	}
	if moving {
		return "run"
	}
	return "idle"
}
