package marlin

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

type recordSink struct {
	heaters map[int]float64
	fans    map[int]float64
}

func newRecordSink() *recordSink {
	return &recordSink{heaters: map[int]float64{}, fans: map[int]float64{}}
}

func (r *recordSink) Spindle(on, cw bool, rpm float64)  {}
func (r *recordSink) Coolant(mist, flood bool)          {}
func (r *recordSink) Heater(ch int, targetC float64)    { r.heaters[ch] = targetC }
func (r *recordSink) Fan(ch int, duty float64)          { r.fans[ch] = duty }

func TestTemperatureCommands(t *testing.T) {
	c := qt.New(t)
	sink := newRecordSink()
	tr := &Translator{Sink: sink}

	c.Assert(tr.Translate("M104 S210"), qt.HasLen, 0)
	c.Assert(sink.heaters[HotendChannel], qt.Equals, 210.0)

	c.Assert(tr.Translate("M140 S60"), qt.HasLen, 0)
	c.Assert(sink.heaters[BedChannel], qt.Equals, 60.0)

	// Wait variants set the same targets.
	tr.Translate("M109 S215")
	c.Assert(sink.heaters[HotendChannel], qt.Equals, 215.0)
}

func TestFanCommands(t *testing.T) {
	c := qt.New(t)
	sink := newRecordSink()
	tr := &Translator{Sink: sink}

	tr.Translate("M106 S255")
	c.Assert(sink.fans[0], qt.Equals, 1.0)
	tr.Translate("M106 S127.5")
	c.Assert(sink.fans[0], qt.Equals, 0.5)
	tr.Translate("M107")
	c.Assert(sink.fans[0], qt.Equals, 0.0)
}

func TestMotionPassesThrough(t *testing.T) {
	c := qt.New(t)
	tr := &Translator{Sink: newRecordSink()}

	out := tr.Translate("G1 X10 Y5 F3000")
	c.Assert(out, qt.DeepEquals, []string{"G1 X10 Y5 F3000"})

	out = tr.Translate("G28")
	c.Assert(out, qt.DeepEquals, []string{"G28"})
}

func TestUnsupportedDropped(t *testing.T) {
	c := qt.New(t)
	tr := &Translator{Sink: newRecordSink()}
	c.Assert(tr.Translate("M84"), qt.HasLen, 0)
	c.Assert(tr.Translate("G29"), qt.HasLen, 0)
	c.Assert(tr.Translate("M83"), qt.HasLen, 0)
}
