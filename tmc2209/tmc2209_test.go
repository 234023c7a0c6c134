package tmc2209

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

// fakeComm records writes and serves scripted reads.
type fakeComm struct {
	regs   map[uint8]uint32
	writes []uint8
}

func newFakeComm() *fakeComm {
	return &fakeComm{regs: map[uint8]uint32{
		IOIN: uint32(expectedVersion) << 24,
	}}
}

func (f *fakeComm) Setup() error { return nil }

func (f *fakeComm) WriteRegister(reg uint8, value uint32, addr uint8) error {
	f.regs[reg] = value
	f.writes = append(f.writes, reg)
	return nil
}

func (f *fakeComm) ReadRegister(reg uint8, addr uint8) (uint32, error) {
	return f.regs[reg], nil
}

func TestSetupVerifiesVersion(t *testing.T) {
	c := qt.New(t)
	comm := newFakeComm()
	d := NewDevice(comm, 0)
	c.Assert(d.Setup(), qt.IsNil)
	c.Assert(comm.regs[GCONF]&gconfPDNDisable != 0, qt.IsTrue)
	c.Assert(comm.regs[GCONF]&gconfMstepRegSel != 0, qt.IsTrue)

	comm.regs[IOIN] = 0x11 << 24
	c.Assert(d.Setup(), qt.Equals, ErrWrongVersion)
}

func TestIholdIrunPacking(t *testing.T) {
	c := qt.New(t)
	c.Assert(IholdIrun(31, 31, 15), qt.Equals, uint32(0x000F1F1F))
	c.Assert(IholdIrun(0, 16, 4), qt.Equals, uint32(0x00041000))
}

func TestCurrentScale(t *testing.T) {
	c := qt.New(t)
	c.Assert(CurrentScale(0), qt.Equals, uint8(0))
	c.Assert(CurrentScale(100), qt.Equals, uint8(31))
	c.Assert(CurrentScale(50), qt.Equals, uint8(15))
	c.Assert(CurrentScale(200), qt.Equals, uint8(31))
}

func TestMresBits(t *testing.T) {
	c := qt.New(t)
	mres, ok := MresBits(256)
	c.Assert(ok, qt.IsTrue)
	c.Assert(mres, qt.Equals, uint32(0))

	mres, ok = MresBits(16)
	c.Assert(ok, qt.IsTrue)
	c.Assert(mres, qt.Equals, uint32(4))

	mres, ok = MresBits(1)
	c.Assert(ok, qt.IsTrue)
	c.Assert(mres, qt.Equals, uint32(8))

	_, ok = MresBits(3)
	c.Assert(ok, qt.IsFalse)
}

func TestSetMicrostepsOverlaysChopconf(t *testing.T) {
	c := qt.New(t)
	comm := newFakeComm()
	d := NewDevice(comm, 0)
	c.Assert(d.SetMicrosteps(32), qt.IsNil)

	mres := comm.regs[CHOPCONF] >> 24 & 0x0F
	c.Assert(mres, qt.Equals, uint32(3))
	// Chopper timing below MRES is untouched.
	c.Assert(comm.regs[CHOPCONF]&0x00FFFFFF, qt.Equals, uint32(chopconfDefault&0x00FFFFFF))

	c.Assert(d.SetMicrosteps(3), qt.Not(qt.IsNil))
}

func TestCheckFaults(t *testing.T) {
	c := qt.New(t)
	comm := newFakeComm()
	d := NewDevice(comm, 0)

	comm.regs[DRV_STATUS] = drvOvertempWarn // warning only, not a fault
	c.Assert(d.CheckFaults(), qt.IsNil)

	comm.regs[DRV_STATUS] = drvShortGndA
	c.Assert(d.CheckFaults(), qt.Equals, ErrDriverFault)
}

func TestDatagramCRC(t *testing.T) {
	c := qt.New(t)
	// CRC over a known write datagram header is stable; a flipped bit
	// changes it.
	a := datagramCRC([]byte{0x05, 0x00, 0x80, 0x00, 0x00, 0x01, 0xF4})
	b := datagramCRC([]byte{0x05, 0x00, 0x80, 0x00, 0x00, 0x01, 0xF5})
	c.Assert(a == b, qt.IsFalse)
}
