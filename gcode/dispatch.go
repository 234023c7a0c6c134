package gcode

import (
	"strconv"

	"tinygo.org/x/g2go/config"
)

// Dispatcher is implemented by the canonical machine. Dispatch calls
// exactly the methods whose triggering words are present on the line,
// in the fixed NIST dispatch order, regardless of the words' order in
// the source text.
type Dispatcher interface {
	SetLineNumber(n int64)
	EnableOverrides(enable bool)
	SetFeedRateMode(inverseTime bool)
	SetFeedRate(f float64)
	SetSpindleSpeed(s float64)
	SelectTool(t int)
	ToolChange()
	SpindleControl(code string)
	CoolantControl(code string)
	Dwell(seconds float64)
	SelectPlane(code string)
	SetUnits(mm bool)
	ToolLengthOffset(code string, words []Word)
	SetCoordSystem(code string)
	SetPathControl(code string)
	SetDistanceMode(absolute bool)
	SetArcDistanceMode(absolute bool)
	NonModalMove(code string, words []Word)
	Motion(code string, words []Word)
	JSONWait(code string, comment *config.ActiveComment)
	ProgramFlow(code string)
}

// Dispatch pushes line through d in the fixed order:
// line number -> override enable -> feed-rate mode -> feed rate -> S
// -> T -> M6 -> M3/4/5 -> M7/8/9 -> dwell -> plane -> units ->
// tool-length offset -> coord system -> path control -> distance mode
// -> arc distance mode -> G28.x/G30.x/G92.x/G10 -> G0/G1/G2/G3 ->
// program flow.
func Dispatch(l *Line, d Dispatcher) error {
	if l.HasLineNumber {
		d.SetLineNumber(l.LineNumber)
	}

	for _, code := range l.MCodes() {
		if code == "M48" {
			d.EnableOverrides(true)
		}
		if code == "M49" {
			d.EnableOverrides(false)
		}
	}

	for _, code := range l.GCodes() {
		if code == "G93" {
			d.SetFeedRateMode(true)
		}
		if code == "G94" {
			d.SetFeedRateMode(false)
		}
	}

	if w, ok := l.Word('F'); ok {
		d.SetFeedRate(w.Value)
	}
	if w, ok := l.Word('S'); ok {
		d.SetSpindleSpeed(w.Value)
	}
	if w, ok := l.Word('T'); ok {
		d.SelectTool(int(w.Value))
	}
	for _, code := range l.MCodes() {
		if code == "M6" {
			d.ToolChange()
		}
	}
	for _, code := range l.MCodes() {
		switch code {
		case "M3", "M4", "M5":
			d.SpindleControl(code)
		}
	}
	for _, code := range l.MCodes() {
		switch code {
		case "M7", "M8", "M9":
			d.CoolantControl(code)
		}
	}

	for _, code := range l.GCodes() {
		if code == "G4" {
			p, _ := l.Word('P')
			d.Dwell(p.Value)
		}
	}

	for _, code := range l.GCodes() {
		switch code {
		case "G17", "G18", "G19":
			d.SelectPlane(code)
		}
	}

	for _, code := range l.GCodes() {
		switch code {
		case "G20":
			d.SetUnits(false)
		case "G21":
			d.SetUnits(true)
		}
	}

	for _, code := range l.GCodes() {
		switch code {
		case "G40", "G43", "G43.2", "G49":
			d.ToolLengthOffset(code, l.Words)
		}
	}

	for _, code := range l.GCodes() {
		switch code {
		case "G54", "G55", "G56", "G57", "G58", "G59":
			d.SetCoordSystem(code)
		}
	}

	for _, code := range l.GCodes() {
		switch code {
		case "G61", "G61.1", "G64":
			d.SetPathControl(code)
		}
	}

	for _, code := range l.GCodes() {
		switch code {
		case "G90":
			d.SetDistanceMode(true)
		case "G91":
			d.SetDistanceMode(false)
		}
	}

	for _, code := range l.GCodes() {
		switch code {
		case "G90.1":
			d.SetArcDistanceMode(true)
		case "G91.1":
			d.SetArcDistanceMode(false)
		}
	}

	suspended := motionSuspendedByNonModal(l.Words)

	for _, code := range l.GCodes() {
		switch code {
		case "G10", "G28", "G28.1", "G28.2", "G28.3", "G28.4",
			"G30", "G30.1", "G92", "G92.1", "G92.2", "G92.3":
			d.NonModalMove(code, l.Words)
		}
	}

	// G53 claims this line's axis words for an absolute machine-space
	// move, overriding whatever motion mode is active.
	machineOverride := false
	for _, code := range l.GCodes() {
		if code == "G53" {
			machineOverride = true
			d.NonModalMove("G53", l.Words)
		}
	}

	if !suspended && !machineOverride {
		dispatched := false
		for _, code := range l.GCodes() {
			switch code {
			case "G0", "G1", "G2", "G3", "G38.2", "G38.3", "G38.4", "G38.5", "G80":
				d.Motion(code, l.Words)
				dispatched = true
			}
		}
		// Motion words are modal: a line carrying only axis words
		// replays the active motion mode.
		if !dispatched && len(l.AxisWords("XYZABC")) > 0 && !consumesAxisWords(l) {
			d.Motion("", l.Words)
		}
	}

	// M100-family inline JSON: executed (M100) or waited on
	// (M100.1/M101) at its exact position in the motion stream.
	for _, code := range l.MCodes() {
		switch code {
		case "M100", "M100.1", "M101":
			d.JSONWait(code, l.Comment)
		}
	}

	for _, code := range l.MCodes() {
		switch code {
		case "M0", "M1", "M2", "M30", "M60":
			d.ProgramFlow(code)
		}
	}

	return nil
}

// consumesAxisWords reports whether a non-modal code on the line
// already claims the axis words, so they must not re-trigger the
// sticky motion mode.
func consumesAxisWords(l *Line) bool {
	for _, code := range l.GCodes() {
		switch code {
		case "G10", "G28", "G28.1", "G28.2", "G28.3", "G28.4",
			"G30", "G30.1", "G92", "G92.1", "G92.2", "G92.3":
			return true
		}
	}
	return false
}

// ParseIntOrZero is a small helper used by dialect shims that need an
// integer word value without the float round-trip (e.g. M100 P/L
// sub-codes).
func ParseIntOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
