package tmc5160

import (
	"github.com/orsinium-labs/tinymath"

	"tinygo.org/x/g2go/xmath"
)

// maxVMAX is the ceiling of the chip's VMAX velocity register.
const maxVMAX = 8388096

// maxTSTEP is the ceiling of the TSTEP/TPWMTHRS time-per-step fields.
const maxTSTEP = 1048575

// Stepper carries the electrical and mechanical parameters of the
// attached motor, the inputs for converting between the machine's
// steps-per-second world and the chip's clock-relative register units.
type Stepper struct {
	Angle       float32 // full-step angle, degrees
	GearRatio   float32
	VelocitySPS float32 // current velocity, microsteps/s
	VSupply     float32
	RCoil       float32
	LCoil       float32
	IPeak       float32
	RSense      float32
	MSteps      uint16
	FclkMHz     uint8
}

// NewDefaultStepper returns the parameters of the garden-variety NEMA
// motor the test rig uses: 1.8 degrees, 12 V, 2 A peak, 16 microsteps.
func NewDefaultStepper() Stepper {
	return Stepper{
		Angle:     1.8,
		GearRatio: 1.0,
		VSupply:   12.0,
		RCoil:     1.2,
		LCoil:     0.005,
		IPeak:     2.0,
		RSense:    0.1,
		MSteps:    16,
		FclkMHz:   12,
	}
}

// tRefScale is 2^24, the chip's internal velocity time base numerator.
const tRefScale = 16777216

// VMAXFor converts a desired velocity in microsteps/s into the VMAX
// register's clock-relative unit.
func (s *Stepper) VMAXFor(sps float32) uint32 {
	tref := tRefScale / (float32(s.FclkMHz) * 1e6)
	v := sps * s.GearRatio * tref
	// Clamp before converting; an out-of-range float-to-uint
	// conversion is not defined to saturate.
	if v >= maxVMAX {
		return maxVMAX
	}
	if v <= 0 {
		return 0
	}
	return uint32(tinymath.Round(v))
}

// AMAXFor converts a desired acceleration (microsteps/s^2) reached over
// the given velocity change into the AMAX register unit.
func (s *Stepper) AMAXFor(accel, dv float32) uint32 {
	if accel <= 0 {
		return 0
	}
	vmax := s.VMAXFor(dv)
	a := float32(uint64(vmax)*131072) / accel / (float32(s.FclkMHz) * 1e6)
	if a >= 65535 {
		return 65535
	}
	if a <= 0 {
		return 0
	}
	return uint32(a)
}

// TSTEPFor converts a threshold speed in microsteps/s into the
// time-per-step unit TPWMTHRS wants (the StealthChop/SpreadCycle
// crossover point).
func (s *Stepper) TSTEPFor(sps float32) uint32 {
	vmax := s.VMAXFor(sps)
	if vmax == 0 {
		return maxTSTEP
	}
	t := float32(tRefScale/vmax) * float32(s.MSteps) / 256
	return xmath.Clamp(uint32(tinymath.Round(t)), 0, maxTSTEP)
}
