package tmc5160

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

type fakeComm struct {
	regs map[uint8]uint32
}

func newFakeComm() *fakeComm { return &fakeComm{regs: map[uint8]uint32{}} }

func (f *fakeComm) Setup() error { return nil }

func (f *fakeComm) WriteRegister(reg uint8, value uint32, addr uint8) error {
	f.regs[reg] = value
	return nil
}

func (f *fakeComm) ReadRegister(reg uint8, addr uint8) (uint32, error) {
	return f.regs[reg], nil
}

func TestSetupProgramsMres(t *testing.T) {
	c := qt.New(t)
	comm := newFakeComm()
	d := NewDevice(comm, 0, NewDefaultStepper())
	c.Assert(d.Setup(), qt.IsNil)
	// 16 microsteps -> MRES 4.
	c.Assert(comm.regs[CHOPCONF]>>24&0x0F, qt.Equals, uint32(4))
}

func TestGlobalScaler(t *testing.T) {
	c := qt.New(t)
	c.Assert(GlobalScaler(1.0), qt.Equals, uint32(0)) // 0 = full scale
	c.Assert(GlobalScaler(0.5), qt.Equals, uint32(128))
	c.Assert(GlobalScaler(0.01), qt.Equals, uint32(32)) // clamped floor
}

func TestSetCurrentFraction(t *testing.T) {
	c := qt.New(t)
	comm := newFakeComm()
	d := NewDevice(comm, 0, NewDefaultStepper())
	c.Assert(d.SetCurrentFraction(0.5), qt.IsNil)
	c.Assert(comm.regs[GLOBAL_SCALER], qt.Equals, uint32(128))
	c.Assert(comm.regs[IHOLD_IRUN]&0x1F00>>8, qt.Equals, uint32(31))
}

func TestVMAXConversionRoundTrip(t *testing.T) {
	c := qt.New(t)
	s := NewDefaultStepper()

	// 10000 microsteps/s at 12 MHz: VMAX = sps * 2^24 / fclk.
	vmax := s.VMAXFor(10000)
	c.Assert(vmax > 0, qt.IsTrue)
	c.Assert(vmax <= maxVMAX, qt.IsTrue)

	// A velocity beyond the register ceiling clamps.
	c.Assert(s.VMAXFor(1e12), qt.Equals, uint32(maxVMAX))
}

func TestTSTEPThreshold(t *testing.T) {
	c := qt.New(t)
	s := NewDefaultStepper()
	// Zero speed means "never cross over".
	c.Assert(s.TSTEPFor(0), qt.Equals, uint32(maxTSTEP))
	// Faster crossover speed means fewer clocks per step.
	slow := s.TSTEPFor(1000)
	fast := s.TSTEPFor(20000)
	c.Assert(fast < slow, qt.IsTrue)
}

func TestStealthChopThresholdWrite(t *testing.T) {
	c := qt.New(t)
	comm := newFakeComm()
	d := NewDevice(comm, 0, NewDefaultStepper())

	c.Assert(d.SetStealthChop(true, 5000), qt.IsNil)
	c.Assert(comm.regs[GCONF], qt.Equals, uint32(gconfEnPWMMode))
	c.Assert(comm.regs[TPWMTHRS] > 0, qt.IsTrue)

	c.Assert(d.SetStealthChop(false, 0), qt.IsNil)
	c.Assert(comm.regs[GCONF], qt.Equals, uint32(0))
}

func TestCheckFaults(t *testing.T) {
	c := qt.New(t)
	comm := newFakeComm()
	d := NewDevice(comm, 0, NewDefaultStepper())

	c.Assert(d.CheckFaults(), qt.IsNil)
	comm.regs[DRV_STATUS] = drvOvertemp
	c.Assert(d.CheckFaults(), qt.Equals, ErrDriverFault)
}