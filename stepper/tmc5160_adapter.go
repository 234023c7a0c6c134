//go:build tinygo

package stepper

import "tinygo.org/x/g2go/tmc5160"

// stealthChopCrossoverSPS is the velocity above which the 5160 swaps
// quiet voltage-PWM for torque-stiff SpreadCycle.
const stealthChopCrossoverSPS = 8000

// TMC5160Adapter wires a tmc5160.Device into the stepper.Driver
// interface for SPI-connected driver boards.
type TMC5160Adapter struct {
	chip *tmc5160.Device
}

func NewTMC5160Adapter(comm tmc5160.RegisterComm, address uint8, stepper tmc5160.Stepper) *TMC5160Adapter {
	return &TMC5160Adapter{chip: tmc5160.NewDevice(comm, address, stepper)}
}

func (a *TMC5160Adapter) Configure() error {
	return a.chip.Setup()
}

func (a *TMC5160Adapter) SetRunCurrent(fraction float64) error {
	return a.chip.SetCurrentFraction(float32(fraction))
}

func (a *TMC5160Adapter) SetMicrosteps(steps uint16) error {
	return a.chip.SetMicrosteps(steps)
}

func (a *TMC5160Adapter) StealthChop(enable bool) error {
	return a.chip.SetStealthChop(enable, stealthChopCrossoverSPS)
}
