package gcode

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseBasicMotion(t *testing.T) {
	c := qt.New(t)
	l, err := Parse("G21 G90 G0 X0 Y0 Z0")
	c.Assert(err, qt.IsNil)
	c.Assert(l.GCodes(), qt.DeepEquals, []string{"G21", "G90", "G0"})
	x, ok := l.Word('X')
	c.Assert(ok, qt.IsTrue)
	c.Assert(x.Value, qt.Equals, 0.0)
}

func TestParseLowerCaseAndWhitespace(t *testing.T) {
	c := qt.New(t)
	l, err := Parse("g1 x10 f600")
	c.Assert(err, qt.IsNil)
	c.Assert(l.GCodes(), qt.DeepEquals, []string{"G1"})
	f, ok := l.Word('F')
	c.Assert(ok, qt.IsTrue)
	c.Assert(f.Value, qt.Equals, 600.0)
}

func TestLeadingZeroStripped(t *testing.T) {
	c := qt.New(t)
	l, err := Parse("G01 X010")
	c.Assert(err, qt.IsNil)
	c.Assert(l.GCodes(), qt.DeepEquals, []string{"G1"})
	x, _ := l.Word('X')
	c.Assert(x.Value, qt.Equals, 10.0)
}

func TestChecksumOK(t *testing.T) {
	c := qt.New(t)
	payload := "N5G1X1"
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	line := payload + "*" + itoa(int(sum))
	l, err := Parse(line)
	c.Assert(err, qt.IsNil)
	c.Assert(l.HasLineNumber, qt.IsTrue)
	c.Assert(l.LineNumber, qt.Equals, int64(5))
}

func TestChecksumMismatch(t *testing.T) {
	c := qt.New(t)
	_, err := Parse("N5 G1 X1*1")
	c.Assert(err, qt.Equals, ErrChecksumMatchFailed)
}

func TestChecksumMissingLineNumber(t *testing.T) {
	c := qt.New(t)
	payload := "G1X1"
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	_, err := Parse(payload + "*" + itoa(int(sum)))
	c.Assert(err, qt.Equals, ErrMissingLineNumberWithChecksum)
}

func TestChecksumCoversBlockDeleteMarker(t *testing.T) {
	c := qt.New(t)
	// The checksum is computed over the line as transmitted, leading
	// '/' included.
	payload := "/N5G1X1"
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	l, err := Parse(payload + "*" + itoa(int(sum)))
	c.Assert(err, qt.IsNil)
	c.Assert(l.BlockDelete, qt.IsTrue)
	c.Assert(l.LineNumber, qt.Equals, int64(5))

	// The same sum without the marker in the XOR no longer matches.
	var bare byte
	for _, ch := range []byte("N5G1X1") {
		bare ^= ch
	}
	if bare != sum {
		_, err = Parse(payload + "*" + itoa(int(bare)))
		c.Assert(err, qt.Equals, ErrChecksumMatchFailed)
	}
}

func TestModalGroupViolation(t *testing.T) {
	c := qt.New(t)
	_, err := Parse("G0 G1 X1")
	c.Assert(err, qt.Equals, ErrModalGroupViolation)
}

func TestUnsupportedGCode(t *testing.T) {
	c := qt.New(t)
	_, err := Parse("G999 X1")
	c.Assert(err, qt.Equals, ErrGcodeCommandUnsupported)
}

func TestUnsupportedMCode(t *testing.T) {
	c := qt.New(t)
	_, err := Parse("M999")
	c.Assert(err, qt.Equals, ErrMcodeCommandUnsupported)
}

func TestBlockDelete(t *testing.T) {
	c := qt.New(t)
	l, err := Parse("/G1 X1")
	c.Assert(err, qt.IsNil)
	c.Assert(l.BlockDelete, qt.IsTrue)
}

func TestCommentElision(t *testing.T) {
	c := qt.New(t)
	l, err := Parse("G1 X1 (this is a comment) Y2")
	c.Assert(err, qt.IsNil)
	y, ok := l.Word('Y')
	c.Assert(ok, qt.IsTrue)
	c.Assert(y.Value, qt.Equals, 2.0)
}

func TestActiveCommentMsg(t *testing.T) {
	c := qt.New(t)
	l, err := Parse("G1 X1 (MSG homing X axis)")
	c.Assert(err, qt.IsNil)
	c.Assert(l.Comment, qt.Not(qt.IsNil))
	c.Assert(l.Comment.Msg, qt.Equals, "homing X axis")
}

func TestSemicolonComment(t *testing.T) {
	c := qt.New(t)
	l, err := Parse("G1 X1 ; trailing line comment")
	c.Assert(err, qt.IsNil)
	c.Assert(len(l.Words), qt.Equals, 2)
}

func TestBadNumberFormat(t *testing.T) {
	c := qt.New(t)
	_, err := Parse("G1 X1.2.3")
	c.Assert(err, qt.Equals, ErrBadNumberFormat)
}

func TestParseIdempotentOnCanonicalLine(t *testing.T) {
	c := qt.New(t)
	l1, err := Parse("G21 G90 G1 X100 F6000")
	c.Assert(err, qt.IsNil)
	// Re-parsing the already-canonical form must be the identity,
	// modulo whitespace.
	l2, err := Parse("G21G90G1X100F6000")
	c.Assert(err, qt.IsNil)
	c.Assert(l2.GCodes(), qt.DeepEquals, l1.GCodes())
	x1, _ := l1.Word('X')
	x2, _ := l2.Word('X')
	c.Assert(x1.Value, qt.Equals, x2.Value)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
