package tmc2209

import "errors"

// RegisterComm is the register transport under a Device: UART on
// hardware, an in-memory fake in tests.
type RegisterComm interface {
	Setup() error
	WriteRegister(register uint8, value uint32, address uint8) error
	ReadRegister(register uint8, address uint8) (uint32, error)
}

var (
	ErrNoComm       = errors.New("tmc2209: communication interface not set")
	ErrWrongVersion = errors.New("tmc2209: IOIN version mismatch, wiring or address wrong")
	ErrDriverFault  = errors.New("tmc2209: driver reports a hard fault")
)

// Device is one TMC2209 on the UART line, selected by its 2-bit
// MS1/MS2 address.
type Device struct {
	comm     RegisterComm
	address  uint8
	chopconf uint32
}

func NewDevice(comm RegisterComm, address uint8) *Device {
	return &Device{comm: comm, address: address, chopconf: chopconfDefault}
}

// Setup brings the chip into the state the DDA engine expects:
// UART-controlled currents, CHOPCONF-selected microstepping, and the
// version register verified so a wiring fault fails loudly at startup
// instead of as silently missed steps.
func (d *Device) Setup() error {
	if d.comm == nil {
		return ErrNoComm
	}
	if err := d.comm.Setup(); err != nil {
		return err
	}
	ioin, err := d.ReadRegister(IOIN)
	if err != nil {
		return err
	}
	if IoinVersion(ioin) != expectedVersion {
		return ErrWrongVersion
	}
	if err := d.WriteRegister(GCONF, gconfPDNDisable|gconfMstepRegSel); err != nil {
		return err
	}
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

// SetCurrents programs run and hold current as percent of full scale,
// with the standard 2^18-clock power-down ramp.
func (d *Device) SetCurrents(runPercent, holdPercent uint8) error {
	return d.WriteRegister(IHOLD_IRUN, IholdIrun(CurrentScale(holdPercent), CurrentScale(runPercent), 4))
}

// SetMicrosteps selects the microstep resolution (1..256, power of
// two).
func (d *Device) SetMicrosteps(microsteps uint16) error {
	mres, ok := MresBits(microsteps)
	if !ok {
		return errors.New("tmc2209: unsupported microstep count")
	}
	d.chopconf = WithMres(d.chopconf, mres)
	return d.WriteRegister(CHOPCONF, d.chopconf)
}

// SetStealthChop switches between quiet StealthChop (true) and
// torque-stiff SpreadCycle (false).
func (d *Device) SetStealthChop(enable bool) error {
	gconf := uint32(gconfPDNDisable | gconfMstepRegSel)
	if !enable {
		gconf |= gconfSpreadCycle
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

// datagramCRC is the CRC8 (poly 0x07, LSB-first feed) the chip's UART
// datagrams carry as their last byte.
func datagramCRC(data []byte) uint8 {
	crc := uint8(0)
	for _, b := range data {
		for i := 0; i < 8; i++ {
			if (crc>>7)^(b&0x01) == 1 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
			b >>= 1
		}
	}
	return crc
}
