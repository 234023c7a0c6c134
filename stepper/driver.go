package stepper

// Driver is the high-level operations the motion core needs from a
// stepper driver chip, independent of whether it talks UART (TMC2209)
// or SPI (TMC5160). Register-level chip adapters implementing this
// live in tmc2209_adapter.go and tmc5160_adapter.go, both gated to
// TinyGo builds since their comm layers are machine-backed.
type Driver interface {
	// Configure performs chip setup (comm configuration, register
	// defaults) once at startup.
	Configure() error
	// SetRunCurrent scales the driver's run current as a fraction
	// (0..1) of its configured peak current.
	SetRunCurrent(fraction float64) error
	// SetMicrosteps selects the chip's microstep resolution.
	SetMicrosteps(steps uint16) error
	// StealthChop enables or disables quiet (StealthChop-style) mode
	// where the chip supports it; a no-op Driver may ignore it.
	StealthChop(enable bool) error
}

// NullDriver is a Driver that does nothing, used by hosted tests and
// the halsim-backed CLI where no physical chip is attached.
type NullDriver struct{}

func (NullDriver) Configure() error                  { return nil }
func (NullDriver) SetRunCurrent(fraction float64) error { return nil }
func (NullDriver) SetMicrosteps(steps uint16) error  { return nil }
func (NullDriver) StealthChop(enable bool) error     { return nil }
