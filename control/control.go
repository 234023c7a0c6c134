// Package control implements the cooperative controller loop:
// input pumping, G-code parsing, back-planning, power and thermal
// management, and status reporting, run as an ordered task list where
// each task does a bounded amount of work per pass. Interrupt-priority
// work (DDA, EXEC, FWD_PLAN) preempts it via the timebase triggers;
// the loop itself never holds a lock across a task boundary.
package control

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"

	"tinygo.org/x/g2go/alarm"
	"tinygo.org/x/g2go/canonical"
	"tinygo.org/x/g2go/config"
	"tinygo.org/x/g2go/executor"
	"tinygo.org/x/g2go/gcode"
	"tinygo.org/x/g2go/hal"
	"tinygo.org/x/g2go/motion"
	"tinygo.org/x/g2go/peripherals"
	"tinygo.org/x/g2go/planner"
	"tinygo.org/x/g2go/report"
	"tinygo.org/x/g2go/stepper"
	"tinygo.org/x/g2go/timebase"
	"tinygo.org/x/g2go/transport"
)

// MotorIdleTimeout is how long after the last motion the motors stay
// energized before the power-management task de-energizes them.
const MotorIdleTimeout = 2 * time.Second

// Loop owns the cooperative task list and every collaborator it
// drives. Build one with New and call Run (or RunOnce from a custom
// scheduler).
type Loop struct {
	Lines    *transport.Lines
	Machine  *canonical.Machine
	Queue    *planner.Queue
	Exec     *executor.Executor
	Engine   *stepper.Engine
	Clocks   *timebase.Clocks
	Alarm    *alarm.Latch
	Config   *config.Registry
	Reporter *report.Reporter
	Heaters  []*peripherals.BangBang
	Board    hal.Board

	// LED is the status LED blinked at the alarm level's rate. Optional.
	LED hal.DigitalPin

	// Translate, when set, rewrites each incoming G-code line into zero
	// or more native lines before parsing (the Marlin dialect shim).
	Translate func(line string) []string

	// Quit is closed by an M2/M30 program end so a hosted run can
	// terminate; embedded builds leave it nil and loop forever.
	Quit chan struct{}

	pendingLines []string
	lastArrival  time.Time
	lastMotion   time.Time
	motorsOn     bool
	ledOn        bool
	ledFlip      time.Time
}

// New wires a Loop and hooks the realtime-character and segment-done
// paths. The caller supplies fully constructed collaborators; New only
// connects them.
func New(l *Loop) *Loop {
	l.Lines.Realtime = l.realtime
	l.Engine.OnSegmentDone = l.Clocks.Exec.Request
	l.Machine.JSON = l.handleInlineJSON
	now := time.Now()
	l.lastArrival = now
	l.lastMotion = now
	return l
}

// realtime handles the single-character commands the transport excises
// from the byte stream, ahead of any queued lines.
func (l *Loop) realtime(c byte) {
	switch c {
	case transport.CharFeedHold:
		l.Exec.RequestFeedHold()
	case transport.CharCycleStart:
		if l.Alarm.Latched() {
			glog.Warning("control: cycle start ignored while alarm latched")
			return
		}
		l.Exec.Resume()
		l.Clocks.Exec.Request()
	case transport.CharStatusReq:
		l.Reporter.Request(time.Now())
	case transport.CharReset:
		l.Alarm.Trip(alarm.Shutdown, "host reset request")
		l.Clocks.StopDDATick()
	}
}

// Run executes the task list until Quit closes (if set). The sleep
// keeps the hosted build from spinning; on an embedded target the loop
// body would instead run from the idle context.
func (l *Loop) Run() {
	for {
		select {
		case <-l.quitChan():
			return
		default:
		}
		if !l.RunOnce(time.Now()) {
			time.Sleep(time.Millisecond)
		}
	}
}

func (l *Loop) quitChan() chan struct{} {
	if l.Quit != nil {
		return l.Quit
	}
	// A nil channel never fires; loop forever.
	return nil
}

// RunOnce executes one pass of the cooperative task list in priority
// order. Returns true if any task did work.
func (l *Loop) RunOnce(now time.Time) bool {
	did := false

	// 1. Pump input bytes into assembled lines.
	if l.Lines.Pump() {
		did = true
	}

	// 2. Feed at most one line to the parser per pass, gated on
	// planner admission so back-planning always has look-ahead depth.
	if l.serviceLine(now) {
		did = true
	}

	// 3. Low-priority triggers: EXEC and FWD_PLAN. In the hosted model
	// the loop drains them; on hardware these would be software
	// interrupts preempting us.
	if l.serviceTriggers() {
		did = true
	}

	// 4. Back-planning callback.
	if planner.BackPlan(l.Queue) > 0 {
		did = true
	}
	if now.Sub(l.lastArrival) > planner.DefaultBlockTimeoutMS*time.Millisecond {
		if planner.FinalizeTail(l.Queue) {
			l.Clocks.FwdPlan.Request()
			did = true
		}
	}

	// 5. Motor power and thermal management.
	l.servicePower(now)
	for _, h := range l.Heaters {
		h.Service()
	}

	// 6. Status reporting (rate-limited) and the status LED.
	if l.Reporter != nil && l.Reporter.Service(now) {
		did = true
	}
	if l.Reporter != nil && l.Reporter.Mirror != nil {
		l.Reporter.Mirror.Service()
	}
	l.serviceLED(now)

	return did
}

// serviceLine takes one pending or freshly assembled line and routes
// it: '$' config/debug lines to the config surface, everything else
// through the optional dialect translator into the G-code parser.
func (l *Loop) serviceLine(now time.Time) bool {
	if len(l.pendingLines) == 0 {
		line, ok := l.Lines.NextLine()
		if !ok {
			return false
		}
		if isConfigLine(line) {
			l.handleConfigLine(line)
			return true
		}
		if l.Translate != nil {
			l.pendingLines = l.Translate(line)
			if len(l.pendingLines) == 0 {
				return true
			}
		} else {
			l.pendingLines = []string{line}
		}
	}

	// Admission: hold the line until the planner has headroom, so a
	// full queue back-pressures the host instead of blocking here.
	if l.Queue.Available() <= planner.DefaultHeadroom {
		return false
	}

	line := l.pendingLines[0]
	l.pendingLines = l.pendingLines[1:]
	l.feedParser(line, now)
	return true
}

func (l *Loop) feedParser(line string, now time.Time) {
	if l.Alarm.Latched() {
		l.Lines.WriteLine(`{"er":{"msg":"alarm latched, line rejected"}}`)
		return
	}

	parsed, err := gcode.Parse(line)
	if err != nil {
		glog.Errorf("control: parse %q: %v", line, err)
		l.Lines.WriteLine(`{"er":{"msg":"` + err.Error() + `"}}`)
		return
	}
	if parsed.BlockDelete || (len(parsed.Words) == 0 && parsed.Comment == nil) {
		return
	}
	if err := gcode.Dispatch(parsed, l.Machine); err != nil {
		glog.Errorf("control: dispatch %q: %v", line, err)
		l.Lines.WriteLine(`{"er":{"msg":"` + err.Error() + `"}}`)
		return
	}
	l.lastArrival = now

	// An active comment on an ordinary line is serviced immediately;
	// on an M100-family line the payload instead rides the planner
	// queue and is serviced when the executor reaches it.
	if parsed.Comment != nil && !hasJSONWait(parsed) {
		l.handleInlineJSON(parsed.Comment)
	}

	for _, code := range parsed.MCodes() {
		if code == "M2" || code == "M30" {
			planner.FinalizeTail(l.Queue)
			if l.Quit != nil {
				close(l.Quit)
				l.Quit = nil
			}
		}
	}
}

func hasJSONWait(l *gcode.Line) bool {
	for _, code := range l.MCodes() {
		if code == "M100" || code == "M100.1" || code == "M101" {
			return true
		}
	}
	return false
}

// handleInlineJSON services an M100-family payload when the executor
// reaches it in the motion stream: "sr" requests a status report, any
// other numeric field is a config write. A nil payload is a bare
// status request. Comment text was upper-cased during normalization;
// this surface's key space is case-insensitive, so fold back down
// before decoding.
func (l *Loop) handleInlineJSON(p *config.ActiveComment) {
	now := time.Now()
	if p == nil {
		if l.Reporter != nil {
			l.Reporter.Request(now)
		}
		return
	}
	if p.Msg != "" {
		l.Lines.WriteLine(`{"msg":"` + p.Msg + `"}`)
	}
	raw, _ := p.Fields["raw"].(string)
	if raw == "" {
		return
	}
	var kv map[string]interface{}
	if err := json.Unmarshal([]byte(strings.ToLower(raw)), &kv); err != nil {
		l.Lines.WriteLine(`{"er":{"msg":"malformed inline json"}}`)
		return
	}
	for k, v := range kv {
		if k == "sr" {
			if l.Reporter != nil {
				l.Reporter.Request(now)
			}
			continue
		}
		if num, ok := v.(float64); ok {
			if err := l.Config.Set(k, num); err != nil {
				l.Lines.WriteLine(`{"er":{"msg":"` + err.Error() + `"}}`)
			}
		}
	}
}

// serviceTriggers drains the EXEC and FWD_PLAN software interrupts.
func (l *Loop) serviceTriggers() bool {
	did := false
	select {
	case <-l.Clocks.FwdPlan.C():
		if planner.Advance(l.Queue, l.Exec.Velocity()) {
			did = true
		}
	default:
	}
	select {
	case <-l.Clocks.Exec.C():
		for l.Exec.ExecSegment() {
			did = true
		}
		l.Clocks.FwdPlan.Request()
	default:
	}
	// Keep the executor fed even before the first segment-done
	// callback: if a runnable block exists and nothing is prepared,
	// kick EXEC.
	if l.Exec.Active() || l.runnableQueued() {
		l.Clocks.Exec.Request()
	}
	return did
}

func (l *Loop) runnableQueued() bool {
	b := l.Queue.Peek()
	if b == nil {
		return false
	}
	if b.Type != planner.BlockALINE {
		return b.BufferState >= planner.BackPlanned
	}
	if b.BufferState == planner.BackPlanned {
		l.Clocks.FwdPlan.Request()
	}
	return b.BufferState >= planner.FullyPlanned
}

// servicePower energizes motors whenever the DDA is running and
// de-energizes them after MotorIdleTimeout of inactivity.
func (l *Loop) servicePower(now time.Time) {
	active := l.Clocks.DDARunning()
	if active {
		l.lastMotion = now
	}
	want := active || now.Sub(l.lastMotion) < MotorIdleTimeout
	if want == l.motorsOn {
		return
	}
	l.motorsOn = want
	for m := 0; m < motion.MOTORS; m++ {
		// Enable is active low on most stepper drivers.
		l.Board.EnablePin(m).Set(hal.Level(!want))
	}
	if !want {
		glog.V(1).Info("control: motors de-energized after idle timeout")
	}
}

// serviceLED blinks the status LED at the current alarm level's rate.
func (l *Loop) serviceLED(now time.Time) {
	if l.LED == nil {
		return
	}
	period := time.Duration(l.Alarm.Level().BlinkRateMS()) * time.Millisecond / 2
	if now.Sub(l.ledFlip) < period {
		return
	}
	l.ledFlip = now
	l.ledOn = !l.ledOn
	l.LED.Set(hal.Level(l.ledOn))
}
