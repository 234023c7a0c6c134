// Package hal declares the hardware abstraction surface: one small
// interface per peripheral kind, generalized from the direct use of
// TinyGo's "machine" package (machine.UART, machine.SPI, machine.Pin)
// in tmc2209/uartcomm.go and tmc5160/spicomm.go. The motion core only
// ever depends on these interfaces; a production build supplies
// TinyGo-backed implementations, a hosted build (or test) supplies
// halsim's in-memory ones.
package hal

import "time"

// Level is a digital pin level.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// DigitalPin is a single GPIO line: direction/step/enable/limit/probe.
type DigitalPin interface {
	Set(Level)
	Get() Level
}

// EdgeWatcher reports rising/falling transitions on a DigitalPin without
// the caller busy-polling it; used for limit switches and probe input.
type EdgeWatcher interface {
	DigitalPin
	WaitEdge(rising bool, timeout time.Duration) bool
}

// Timer models a single hardware timer/counter driving a periodic
// interrupt at a configurable period. Start/Stop are idempotent.
type Timer interface {
	SetPeriod(period time.Duration)
	Start(fire func())
	Stop()
	Running() bool
}

// ADC reads a single analog channel (encoder feedback, current sense).
type ADC interface {
	ReadRaw() uint16
}

// Watchdog must be kicked periodically or it resets the device.
type Watchdog interface {
	Configure(timeout time.Duration)
	Update()
}

// Board bundles everything the motion core needs from the platform:
// the system tick, the DDA tick, and access to per-motor pins.
type Board interface {
	SystemTimer() Timer
	DDATimer() Timer
	StepPin(motor int) DigitalPin
	DirPin(motor int) DigitalPin
	EnablePin(motor int) DigitalPin
	LimitPin(motor int) EdgeWatcher
	ProbePin(motor int) EdgeWatcher
	Watchdog() Watchdog
}
