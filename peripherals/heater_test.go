package peripherals

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"tinygo.org/x/g2go/thermal"
)

type scriptedBus struct {
	temps []float64
	errs  []error
	i     int
}

func (s *scriptedBus) Tx(w, r []byte) error {
	i := s.i
	if i >= len(s.temps) {
		i = len(s.temps) - 1
	}
	s.i++
	if i < len(s.errs) && s.errs[i] != nil {
		return s.errs[i]
	}
	counts := uint16(s.temps[i] / 0.25)
	r[0] = byte(counts >> 5)
	r[1] = byte(counts&0x1F) << 3
	return nil
}

type nopCS struct{}

func (nopCS) Low()  {}
func (nopCS) High() {}

type recordElement struct {
	on     bool
	toggles int
}

func (r *recordElement) SetHeating(on bool) {
	r.on = on
	r.toggles++
}

func newBangBang(bus *scriptedBus) (*BangBang, *recordElement) {
	el := &recordElement{}
	return &BangBang{
		Sensor:  thermal.NewSensor(bus, nopCS{}),
		Element: el,
	}, el
}

func TestBangBangHysteresis(t *testing.T) {
	c := qt.New(t)
	bus := &scriptedBus{temps: []float64{20, 150, 199, 200, 199, 197.5, 190}}
	b, el := newBangBang(bus)
	b.SetTarget(200)

	b.Service() // 20: cold, heat on
	c.Assert(el.on, qt.IsTrue)
	b.Service() // 150: still heating
	b.Service() // 199: inside dead band, stays on
	c.Assert(el.on, qt.IsTrue)
	b.Service() // 200: at target, off
	c.Assert(el.on, qt.IsFalse)
	b.Service() // 199: inside dead band, stays off
	c.Assert(el.on, qt.IsFalse)
	b.Service() // 197.5: below band, back on
	c.Assert(el.on, qt.IsTrue)
	c.Assert(b.CurrentC(), qt.Equals, 197.5)
}

func TestBangBangLatchesOnSensorFault(t *testing.T) {
	c := qt.New(t)
	open := thermal.ErrThermocoupleOpen
	bus := &scriptedBus{
		temps: []float64{20, 0, 0, 0},
		errs:  []error{nil, open, open, open},
	}
	b, el := newBangBang(bus)
	b.SetTarget(60)

	b.Service()
	c.Assert(el.on, qt.IsTrue)

	b.Service()
	b.Service()
	b.Service()
	c.Assert(b.Faulted(), qt.IsTrue)
	c.Assert(el.on, qt.IsFalse)

	// Zeroing the target clears the latch.
	b.SetTarget(0)
	c.Assert(b.Faulted(), qt.IsFalse)
}
