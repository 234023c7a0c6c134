//go:build tinygo

package stepper

import "tinygo.org/x/g2go/tmc2209"

// TMC2209Adapter wires a tmc2209.Device into the stepper.Driver
// interface for UART-connected driver boards.
type TMC2209Adapter struct {
	chip *tmc2209.Device
}

func NewTMC2209Adapter(comm tmc2209.RegisterComm, address uint8) *TMC2209Adapter {
	return &TMC2209Adapter{chip: tmc2209.NewDevice(comm, address)}
}

func (a *TMC2209Adapter) Configure() error {
	return a.chip.Setup()
}

func (a *TMC2209Adapter) SetRunCurrent(fraction float64) error {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	run := uint8(fraction * 100)
	// Hold at half the run current keeps position without cooking the
	// motor during planner stalls.
	return a.chip.SetCurrents(run, run/2)
}

func (a *TMC2209Adapter) SetMicrosteps(steps uint16) error {
	return a.chip.SetMicrosteps(steps)
}

func (a *TMC2209Adapter) StealthChop(enable bool) error {
	return a.chip.SetStealthChop(enable)
}
