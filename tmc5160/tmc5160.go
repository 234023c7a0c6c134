package tmc5160

import "errors"

// RegisterComm is the register transport under a Device: SPI on
// hardware, an in-memory fake in tests.
type RegisterComm interface {
	Setup() error
	WriteRegister(register uint8, value uint32, address uint8) error
	ReadRegister(register uint8, address uint8) (uint32, error)
}

var (
	ErrNoComm      = errors.New("tmc5160: communication interface not set")
	ErrDriverFault = errors.New("tmc5160: driver reports a hard fault")
)

// Device is one TMC5160 on the SPI bus, addressed by its chip-select
// index.
type Device struct {
	comm     RegisterComm
	address  uint8
	stepper  Stepper
	chopconf uint32
}

func NewDevice(comm RegisterComm, address uint8, stepper Stepper) *Device {
	return &Device{comm: comm, address: address, stepper: stepper, chopconf: chopconfDefault}
}

// Stepper returns the motor parameters the device was built with.
func (d *Device) Stepper() Stepper { return d.stepper }

// Setup configures the chop timing and microstep resolution from the
// stepper parameters. The ramp generator stays disarmed; pulses come
// from the step/dir pins.
func (d *Device) Setup() error {
	if d.comm == nil {
		return ErrNoComm
	}
	if err := d.comm.Setup(); err != nil {
		return err
	}
	if err := d.WriteRegister(GCONF, 0); err != nil {
		return err
	}
	mres, ok := MresBits(d.stepper.MSteps)
	if !ok {
		return errors.New("tmc5160: unsupported microstep count")
	}
	d.chopconf = WithMres(d.chopconf, mres)
	return d.WriteRegister(CHOPCONF, d.chopconf)
}

func (d *Device) WriteRegister(reg uint8, value uint32) error {
	if d.comm == nil {
		return ErrNoComm
	}
	return d.comm.WriteRegister(reg, value, d.address)
}

func (d *Device) ReadRegister(reg uint8) (uint32, error) {
	if d.comm == nil {
		return 0, ErrNoComm
	}
	return d.comm.ReadRegister(reg, d.address)
}

// SetCurrentFraction scales motor current as a fraction of the
// hardware full scale via GLOBAL_SCALER, with IHOLD_IRUN left at full
// range so the scaler is the single knob.
func (d *Device) SetCurrentFraction(fraction float32) error {
	if fraction < 0 {
		fraction = 0
	}
	if err := d.WriteRegister(GLOBAL_SCALER, GlobalScaler(fraction)); err != nil {
		return err
	}
	return d.WriteRegister(IHOLD_IRUN, IholdIrun(16, 31, 6))
}

// SetMicrosteps reprograms the microstep resolution.
func (d *Device) SetMicrosteps(microsteps uint16) error {
	mres, ok := MresBits(microsteps)
	if !ok {
		return errors.New("tmc5160: unsupported microstep count")
	}
	d.stepper.MSteps = microsteps
	d.chopconf = WithMres(d.chopconf, mres)
	return d.WriteRegister(CHOPCONF, d.chopconf)
}

// SetStealthChop toggles voltage-PWM mode, with the crossover
// threshold derived from the stepper's parameters.
func (d *Device) SetStealthChop(enable bool, thresholdSPS float32) error {
	var gconf uint32
	if enable {
		gconf = gconfEnPWMMode
		if err := d.WriteRegister(TPWMTHRS, d.stepper.TSTEPFor(thresholdSPS)); err != nil {
			return err
		}
	}
	return d.WriteRegister(GCONF, gconf)
}

// CheckFaults reads DRV_STATUS and reports a hard fault as an error.
func (d *Device) CheckFaults() error {
	status, err := d.ReadRegister(DRV_STATUS)
	if err != nil {
		return err
	}
	if DrvStatusFaults(status) != 0 {
		return ErrDriverFault
	}
	return nil
}
