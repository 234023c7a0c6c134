package thermal

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

type fakeBus struct {
	response [2]byte
	err      error
}

func (f *fakeBus) Tx(w, r []byte) error {
	if f.err != nil {
		return f.err
	}
	copy(r, f.response[:])
	return nil
}

type fakeCS struct {
	low bool
	n   int
}

func (f *fakeCS) Low()  { f.low = true; f.n++ }
func (f *fakeCS) High() { f.low = false }

func TestReadCelsius(t *testing.T) {
	c := qt.New(t)
	// 100.0 C = 400 counts = 0b0001_1001_0000, framed as
	// 0xxxxxxxX XXXXX---.
	bus := &fakeBus{response: [2]byte{400 >> 5, (400 & 0x1F) << 3}}
	cs := &fakeCS{}
	s := NewSensor(bus, cs)

	temp, err := s.ReadCelsius()
	c.Assert(err, qt.IsNil)
	c.Assert(temp, qt.Equals, 100.0)
	c.Assert(cs.low, qt.IsFalse)
	c.Assert(cs.n, qt.Equals, 1)
}

func TestOpenThermocouple(t *testing.T) {
	c := qt.New(t)
	bus := &fakeBus{response: [2]byte{0, 0x04}}
	s := NewSensor(bus, &fakeCS{})

	_, err := s.ReadCelsius()
	c.Assert(err, qt.Equals, ErrThermocoupleOpen)
}
