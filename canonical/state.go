// Package canonical implements the canonical machine: the modal state
// carried between lines, per-move parameter computation (length, unit
// vector, velocities, jerk, junction velocity), and arc expansion. It
// implements gcode.Dispatcher and is the sole producer of planner
// blocks; everything downstream of it only ever sees planner.Block
// values, never raw G-code.
package canonical

import (
	"github.com/golang/glog"

	"tinygo.org/x/g2go/config"
	"tinygo.org/x/g2go/gcode"
	"tinygo.org/x/g2go/kinematics"
	"tinygo.org/x/g2go/motion"
	"tinygo.org/x/g2go/peripherals"
	"tinygo.org/x/g2go/planner"
)

// mmPerInch converts G20 (inch) axis words into the machine's native
// millimeter space.
const mmPerInch = 25.4

// ModalState is everything a line of G-code can leave changed for the
// next line: the parts of the machine model that persist across
// blocks rather than being recomputed per line.
type ModalState struct {
	Units          bool   // true = millimeters (G21), false = inches (G20)
	MotionMode     string // sticky motion group: "G0".."G3", "G38.x", "G80"
	AbsoluteMode   bool // true = G90, false = G91
	ArcAbsolute    bool // true = G90.1, false = G91.1
	InverseTime    bool // true = G93, false = G94
	Plane          kinematics.Plane
	PathControl    string // "G61", "G61.1", "G64"
	CoordSystem    int    // 54..59 selects WorkOffsets index
	ToolLength     motion.Vector
	Tool           int
	FeedRate       float64 // mm/min or 1/min depending on InverseTime
	SpindleSpeed   float64
	SpindleOn      bool
	SpindleCW      bool
	CoolantMist    bool
	CoolantFlood   bool
	OverridesOn    bool
	Position       motion.Vector // current absolute machine position, mm
	WorkOffsets    [6]motion.Vector
}

// Machine is the canonical machine: modal state plus the collaborators
// it needs to turn a dispatched line into planner blocks.
type Machine struct {
	State      ModalState
	Config     *config.Registry
	Queue      *planner.Queue
	Kinematics kinematics.Transform
	Sink       peripherals.Sink

	// JSON receives the payload of an in-stream M100-family command
	// when the executor reaches it; the controller wires this to the
	// config/report surface. A nil payload is a bare status request.
	JSON func(payload *config.ActiveComment)
	StepsPerMM motion.Vector
	JerkPerMM  motion.Vector // per-axis jerk limit, mm/s^3
	VmaxPerMM  motion.Vector // per-axis absolute max feed, mm/s
	RapidVmax  motion.Vector // per-axis G0 max feed, mm/s

	lastLineNumber   int64
	lastMoveUnit     motion.Vector
	haveLastMoveUnit bool
}

// New builds a Machine defaulting to mm/absolute/G17/G94, matching the
// power-on modal defaults of most NIST dialects.
func New(q *planner.Queue, reg *config.Registry) *Machine {
	m := &Machine{
		Queue:      q,
		Config:     reg,
		Kinematics: kinematics.Cartesian{},
		Sink:       peripherals.LogSink{},
	}
	m.State.Units = true
	m.State.AbsoluteMode = true
	m.State.CoordSystem = 54
	for i := range m.JerkPerMM {
		m.JerkPerMM[i] = 500
		m.VmaxPerMM[i] = 200
		m.RapidVmax[i] = 300
		m.StepsPerMM[i] = 80
	}
	return m
}

func (m *Machine) SetLineNumber(n int64) {
	m.lastLineNumber = n
}

func (m *Machine) EnableOverrides(enable bool) {
	m.State.OverridesOn = enable
}

func (m *Machine) SetFeedRateMode(inverseTime bool) {
	m.State.InverseTime = inverseTime
}

func (m *Machine) SetFeedRate(f float64) {
	m.State.FeedRate = f
}

func (m *Machine) SetSpindleSpeed(s float64) {
	m.State.SpindleSpeed = s
}

func (m *Machine) SelectTool(t int) {
	m.State.Tool = t
}

func (m *Machine) ToolChange() {
	m.enqueueCommand(func() {
		glog.Infof("canonical: tool change to T%d", m.State.Tool)
	})
}

func (m *Machine) SpindleControl(code string) {
	switch code {
	case "M3":
		m.State.SpindleOn, m.State.SpindleCW = true, true
	case "M4":
		m.State.SpindleOn, m.State.SpindleCW = true, false
	case "M5":
		m.State.SpindleOn = false
	}
	on, cw, speed := m.State.SpindleOn, m.State.SpindleCW, m.State.SpindleSpeed
	m.enqueueSpindle(on, cw, speed)
}

func (m *Machine) CoolantControl(code string) {
	switch code {
	case "M7":
		m.State.CoolantMist = true
	case "M8":
		m.State.CoolantFlood = true
	case "M9":
		m.State.CoolantMist, m.State.CoolantFlood = false, false
	}
	mist, flood := m.State.CoolantMist, m.State.CoolantFlood
	m.enqueueCommand(func() {
		m.Sink.Coolant(mist, flood)
	})
}

func (m *Machine) Dwell(seconds float64) {
	b := m.Queue.GetWriteBlock()
	b.Type = planner.BlockDwell
	b.DwellSeconds = seconds
	b.GM = m.gcodeModel()
	m.Queue.CommitWrite(b)
}

func (m *Machine) SelectPlane(code string) {
	switch code {
	case "G17":
		m.State.Plane = kinematics.PlaneXY
	case "G18":
		m.State.Plane = kinematics.PlaneXZ
	case "G19":
		m.State.Plane = kinematics.PlaneYZ
	}
}

func (m *Machine) SetUnits(mm bool) {
	m.State.Units = mm
}

func (m *Machine) ToolLengthOffset(code string, words []gcode.Word) {
	switch code {
	case "G49":
		m.State.ToolLength = motion.Vector{}
	case "G43", "G43.2":
		if w, ok := wordFor(words, 'H'); ok {
			m.State.ToolLength[motion.AxisZ] = w.Value
		}
	}
}

func (m *Machine) SetCoordSystem(code string) {
	switch code {
	case "G54":
		m.State.CoordSystem = 54
	case "G55":
		m.State.CoordSystem = 55
	case "G56":
		m.State.CoordSystem = 56
	case "G57":
		m.State.CoordSystem = 57
	case "G58":
		m.State.CoordSystem = 58
	case "G59":
		m.State.CoordSystem = 59
	}
}

func (m *Machine) SetPathControl(code string) {
	m.State.PathControl = code
}

func (m *Machine) SetDistanceMode(absolute bool) {
	m.State.AbsoluteMode = absolute
}

func (m *Machine) SetArcDistanceMode(absolute bool) {
	m.State.ArcAbsolute = absolute
}

func (m *Machine) ProgramFlow(code string) {
	b := m.Queue.GetWriteBlock()
	switch code {
	case "M2", "M30":
		b.Type = planner.BlockEnd
	default:
		b.Type = planner.BlockStop
	}
	b.GM = m.gcodeModel()
	m.Queue.CommitWrite(b)
}

// JSONWait enqueues an M100-family inline JSON command. It rides the
// planner queue so the payload executes at its exact point in the
// motion stream; the .1/101 "wait" variants share the same in-stream
// synchronization, which is the waiting.
func (m *Machine) JSONWait(code string, comment *config.ActiveComment) {
	payload := comment
	b := m.Queue.GetWriteBlock()
	b.Type = planner.BlockJSONWait
	b.Command = func() {
		if m.JSON != nil {
			m.JSON(payload)
		} else {
			glog.Infof("canonical: %s with no JSON handler attached", code)
		}
	}
	b.GM = m.gcodeModel()
	m.Queue.CommitWrite(b)
}

func (m *Machine) gcodeModel() planner.GCodeModel {
	return planner.GCodeModel{
		LineNumber:  m.lastLineNumber,
		FeedRate:    m.State.FeedRate,
		Tool:        m.State.Tool,
		CoordSystem: m.State.CoordSystem,
		WorkOffset:  m.State.WorkOffsets[workOffsetIndex(m.State.CoordSystem)],
	}
}

func workOffsetIndex(coord int) int {
	if coord < 54 || coord > 59 {
		return 0
	}
	return coord - 54
}

func wordFor(words []gcode.Word, letter byte) (gcode.Word, bool) {
	for _, w := range words {
		if w.Letter == letter {
			return w, true
		}
	}
	return gcode.Word{}, false
}

func (m *Machine) enqueueCommand(fn func()) {
	b := m.Queue.GetWriteBlock()
	b.Type = planner.BlockCommand
	b.Command = fn
	b.GM = m.gcodeModel()
	m.Queue.CommitWrite(b)
}

func (m *Machine) enqueueSpindle(on, cw bool, speed float64) {
	b := m.Queue.GetWriteBlock()
	b.Type = planner.BlockSpindleSpeed
	b.Command = func() {
		m.Sink.Spindle(on, cw, speed)
	}
	b.GM = m.gcodeModel()
	m.Queue.CommitWrite(b)
}
