package transport

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

// fakeIO is an in-memory ByteIO with scripted input.
type fakeIO struct {
	in  []byte
	out []byte
}

func (f *fakeIO) Buffered() int { return len(f.in) }

func (f *fakeIO) ReadByte() (byte, error) {
	c := f.in[0]
	f.in = f.in[1:]
	return c, nil
}

func (f *fakeIO) Write(p []byte) (int, error) {
	f.out = append(f.out, p...)
	return len(p), nil
}

func TestLineAssembly(t *testing.T) {
	c := qt.New(t)
	io := &fakeIO{in: []byte("G1 X10\r\nG1 Y5\n")}
	l := NewLines(io)

	c.Assert(l.Pump(), qt.IsTrue)

	line, ok := l.NextLine()
	c.Assert(ok, qt.IsTrue)
	c.Assert(line, qt.Equals, "G1 X10")

	line, ok = l.NextLine()
	c.Assert(ok, qt.IsTrue)
	c.Assert(line, qt.Equals, "G1 Y5")

	_, ok = l.NextLine()
	c.Assert(ok, qt.IsFalse)
}

func TestRealtimeCharactersBypassLineQueue(t *testing.T) {
	c := qt.New(t)
	io := &fakeIO{in: []byte("G1 X1!0\n")}
	l := NewLines(io)

	var got []byte
	l.Realtime = func(ch byte) { got = append(got, ch) }

	l.Pump()
	c.Assert(got, qt.DeepEquals, []byte{'!'})

	// The '!' is excised from the surrounding line, not a terminator.
	line, ok := l.NextLine()
	c.Assert(ok, qt.IsTrue)
	c.Assert(line, qt.Equals, "G1 X10")
}

func TestXONXOFFGateOutput(t *testing.T) {
	c := qt.New(t)
	io := &fakeIO{}
	l := NewLines(io)

	l.WriteLine("ok")
	c.Assert(string(io.out), qt.Equals, "ok\r\n")

	io.in = []byte{XOFF}
	l.Pump()
	l.WriteLine("dropped")
	c.Assert(string(io.out), qt.Equals, "ok\r\n")

	io.in = []byte{XON}
	l.Pump()
	l.WriteLine("resumed")
	c.Assert(string(io.out), qt.Equals, "ok\r\nresumed\r\n")
}

func TestOverlongLineDiscarded(t *testing.T) {
	c := qt.New(t)
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'X'
	}
	io := &fakeIO{in: append(long, "\nG0 X0\n"...)}
	l := NewLines(io)
	l.Pump()

	line, ok := l.NextLine()
	c.Assert(ok, qt.IsTrue)
	c.Assert(line, qt.Equals, "G0 X0")
}

func TestBackPressureWhenQueueFull(t *testing.T) {
	c := qt.New(t)
	io := &fakeIO{in: []byte("a\nb\nc\nd\ne\nf\n")}
	l := NewLines(io)
	l.Pump()

	// Queue depth bounds how far the pump drained; the rest stays in
	// the device buffer.
	c.Assert(io.Buffered() > 0, qt.IsTrue)

	drained := 0
	for {
		if _, ok := l.NextLine(); !ok {
			break
		}
		drained++
	}
	c.Assert(drained, qt.Equals, lineQueueDepth)

	// Draining frees the queue; a second pump picks up the remainder.
	l.Pump()
	line, ok := l.NextLine()
	c.Assert(ok, qt.IsTrue)
	c.Assert(line, qt.Equals, "e")
}

func TestResetBaudHook(t *testing.T) {
	c := qt.New(t)
	l := NewLines(&fakeIO{})

	fired := false
	l.Reset = func() { fired = true }

	l.Open(115200)
	l.Close()
	c.Assert(fired, qt.IsFalse)

	l.Open(1200)
	l.Close()
	c.Assert(fired, qt.IsTrue)
}

func TestLineStateGatesConnected(t *testing.T) {
	c := qt.New(t)
	l := NewLines(&fakeIO{})
	c.Assert(l.Connected(), qt.IsFalse)

	l.SetLineState(true, false)
	c.Assert(l.Connected(), qt.IsFalse)

	l.SetLineState(true, true)
	c.Assert(l.Connected(), qt.IsTrue)
}
