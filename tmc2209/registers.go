// Package tmc2209 drives the Trinamic TMC2209 stepper driver over its
// single-wire UART register interface. Only the registers the motion
// core configures are modeled; step/dir pulses come from the DDA
// engine, never from the chip's internal ramp generator.
package tmc2209

// Register addresses.
const (
	GCONF      = 0x00
	GSTAT      = 0x01
	IFCNT      = 0x02
	IOIN       = 0x06
	IHOLD_IRUN = 0x10
	TPOWERDOWN = 0x11
	TSTEP      = 0x12
	TPWMTHRS   = 0x13
	VACTUAL    = 0x22
	CHOPCONF   = 0x6C
	DRV_STATUS = 0x6F
	PWMCONF    = 0x70
)

// GCONF bits the core toggles.
const (
	gconfPDNDisable  = 1 << 6 // UART controls IHOLD_IRUN, PDN pin ignored
	gconfMstepRegSel = 1 << 7 // microstep resolution from CHOPCONF.MRES
	gconfSpreadCycle = 1 << 2 // 1 = SpreadCycle, 0 = StealthChop
)

// expectedVersion is IOIN's VERSION field for a TMC2209.
const expectedVersion = 0x21

// IholdIrun packs hold/run current settings (each 0..31) and the
// hold-delay ramp into the IHOLD_IRUN register layout.
func IholdIrun(ihold, irun, iholdDelay uint8) uint32 {
	return uint32(ihold&0x1F) | uint32(irun&0x1F)<<8 | uint32(iholdDelay&0x0F)<<16
}

// CurrentScale maps a percent of full-scale current onto the chip's
// 0..31 current-scale field.
func CurrentScale(percent uint8) uint8 {
	if percent > 100 {
		percent = 100
	}
	return uint8(uint32(percent) * 31 / 100)
}

// chopconfDefault is CHOPCONF with spreadcycle timing TOFF=3, HSTRT=5,
// HEND=0, TBL=0, bit 28 (INTPOL) set, and MRES 0, i.e. 256 microsteps;
// SetMicrosteps overlays MRES.
const chopconfDefault = 0x10000053

// MresBits converts a microstep-per-fullstep count into CHOPCONF's
// MRES field value. The field encodes 256>>MRES microsteps, so MRES 0
// is 256 and MRES 8 is full step. Returns false for a count the chip
// cannot do.
func MresBits(microsteps uint16) (uint32, bool) {
	mres := uint32(8)
	for s := uint16(1); s <= 256; s <<= 1 {
		if s == microsteps {
			return mres & 0x0F, true
		}
		mres--
	}
	return 0, false
}

// WithMres overlays an MRES field value onto a CHOPCONF image.
func WithMres(chopconf, mres uint32) uint32 {
	return chopconf&^(0x0F<<24) | mres<<24
}

// IoinVersion extracts the VERSION field from an IOIN read.
func IoinVersion(ioin uint32) uint8 {
	return uint8(ioin >> 24)
}

// DRV_STATUS flag bits.
const (
	drvOvertempWarn = 1 << 0
	drvOvertemp     = 1 << 1
	drvShortGndA    = 1 << 2
	drvShortGndB    = 1 << 3
	drvShortVsA     = 1 << 4
	drvShortVsB     = 1 << 5
)

// DrvStatusFaults masks DRV_STATUS down to the hard fault flags:
// over-temperature shutdown and the four short-circuit detectors.
// Open-load and the over-temperature pre-warning are excluded; both
// fire spuriously at standstill currents.
func DrvStatusFaults(drvStatus uint32) uint32 {
	return drvStatus & (drvOvertemp | drvShortGndA | drvShortGndB | drvShortVsA | drvShortVsB)
}
