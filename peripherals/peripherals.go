// Package peripherals declares the command-callback sinks the motion
// core drives but does not implement: spindle, coolant, heaters, fans.
// Planner command blocks invoke these from the executor at the exact
// in-stream point the G-code placed them, so a sink must never block;
// anything slow belongs behind its own queue.
package peripherals

import "github.com/golang/glog"

// Sink receives peripheral commands in planner-queue order.
type Sink interface {
	Spindle(on, cw bool, speedRPM float64)
	Coolant(mist, flood bool)
	Heater(channel int, targetC float64)
	Fan(channel int, duty float64)
}

// LogSink logs every command and does nothing else; the hosted default
// when no hardware sink is attached.
type LogSink struct{}

func (LogSink) Spindle(on, cw bool, speedRPM float64) {
	glog.Infof("spindle on=%v cw=%v rpm=%v", on, cw, speedRPM)
}

func (LogSink) Coolant(mist, flood bool) {
	glog.Infof("coolant mist=%v flood=%v", mist, flood)
}

func (LogSink) Heater(channel int, targetC float64) {
	glog.Infof("heater %d target=%vC", channel, targetC)
}

func (LogSink) Fan(channel int, duty float64) {
	glog.Infof("fan %d duty=%v", channel, duty)
}
