// Package marlin is the optional Marlin-dialect shim: a pure
// translation layer ahead of the G-code parser that rewrites Marlin's
// printer-flavored commands into native lines and peripheral-sink
// calls. It is runtime-gated: install Translator.Translate on the
// controller loop to enable it, leave it nil for the native dialect.
package marlin

import (
	"strconv"
	"strings"

	"github.com/golang/glog"

	"tinygo.org/x/g2go/peripherals"
)

// Heater channel assignments for translated temperature commands.
const (
	HotendChannel = 0
	BedChannel    = 1
)

// Translator rewrites one Marlin line into zero or more native lines.
// Temperature and fan commands are routed straight to the peripheral
// sink (they have no native G-code form); motion and modal commands
// pass through or are rewritten.
type Translator struct {
	Sink peripherals.Sink
}

// Translate implements the controller loop's dialect hook.
func (t *Translator) Translate(line string) []string {
	fields := strings.Fields(strings.ToUpper(strings.TrimSpace(line)))
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "M104": // set hotend temperature
		t.Sink.Heater(HotendChannel, wordValue(fields, 'S'))
		return nil
	case "M109": // set hotend temperature and wait
		// The wait half needs a temperature-reached condition the
		// planner cannot express; translate as set-and-continue.
		glog.Warning("marlin: M109 treated as M104 (no wait)")
		t.Sink.Heater(HotendChannel, wordValue(fields, 'S'))
		return nil
	case "M140": // set bed temperature
		t.Sink.Heater(BedChannel, wordValue(fields, 'S'))
		return nil
	case "M190":
		glog.Warning("marlin: M190 treated as M140 (no wait)")
		t.Sink.Heater(BedChannel, wordValue(fields, 'S'))
		return nil
	case "M106": // fan on, S0-255
		t.Sink.Fan(0, wordValue(fields, 'S')/255)
		return nil
	case "M107": // fan off
		t.Sink.Fan(0, 0)
		return nil
	case "M17", "M84", "M18":
		// Stepper energize/idle is the power manager's job.
		return nil
	case "M82", "M83":
		glog.Warningf("marlin: %s extruder distance mode unsupported, dropped", fields[0])
		return nil
	case "M114": // report position
		return []string{"M100 ({\"sr\":null})"}
	case "G29":
		glog.Warning("marlin: G29 bed leveling unsupported, dropped")
		return nil
	}

	return []string{line}
}

// wordValue returns the numeric value of the first field starting with
// letter, or 0 if absent.
func wordValue(fields []string, letter byte) float64 {
	for _, f := range fields[1:] {
		if len(f) > 0 && f[0] == letter {
			v, err := strconv.ParseFloat(f[1:], 64)
			if err != nil {
				return 0
			}
			return v
		}
	}
	return 0
}
