package peripherals

import (
	"github.com/golang/glog"

	"tinygo.org/x/g2go/thermal"
)

// HeaterHysteresisC is the bang-bang dead band: the element switches
// off at target and back on once the reading has fallen this far below
// it.
const HeaterHysteresisC = 2.0

// faultLimit is how many consecutive sensor errors the controller
// tolerates before latching the heater off.
const faultLimit = 3

// Element switches the physical heater output.
type Element interface {
	SetHeating(on bool)
}

// BangBang is a hysteresis heater controller for one channel. The
// controller loop calls Service periodically (it is one of the
// cooperative power-management tasks); each call takes one sensor
// reading and updates the element.
type BangBang struct {
	Sensor  *thermal.Sensor
	Element Element
	Channel int

	target  float64
	current float64
	heating bool
	faults  int
	faulted bool
}

// SetTarget sets the setpoint in Celsius. A target of zero disables
// the channel and clears any latched fault.
func (b *BangBang) SetTarget(targetC float64) {
	b.target = targetC
	if targetC == 0 {
		b.setHeating(false)
		b.faulted = false
		b.faults = 0
	}
}

// Target returns the current setpoint.
func (b *BangBang) Target() float64 { return b.target }

// Faulted reports whether the channel latched off on sensor errors.
func (b *BangBang) Faulted() bool { return b.faulted }

// CurrentC returns the most recent good reading taken by Service.
func (b *BangBang) CurrentC() float64 { return b.current }

// Service takes one reading and switches the element. Safe to call
// with no target set.
func (b *BangBang) Service() {
	if b.target <= 0 || b.faulted {
		b.setHeating(false)
		return
	}
	temp, err := b.Sensor.ReadCelsius()
	if err != nil {
		b.faults++
		glog.Errorf("heater %d: sensor error (%d/%d): %v", b.Channel, b.faults, faultLimit, err)
		if b.faults >= faultLimit {
			b.faulted = true
			b.setHeating(false)
			glog.Errorf("heater %d: latched off after repeated sensor errors", b.Channel)
		}
		return
	}
	b.faults = 0
	b.current = temp

	switch {
	case temp >= b.target:
		b.setHeating(false)
	case temp < b.target-HeaterHysteresisC:
		b.setHeating(true)
	}
}

func (b *BangBang) setHeating(on bool) {
	if on == b.heating {
		return
	}
	b.heating = on
	if b.Element != nil {
		b.Element.SetHeating(on)
	}
}
