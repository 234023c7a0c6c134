package canonical

import (
	"math"

	"github.com/golang/glog"

	"tinygo.org/x/g2go/gcode"
	"tinygo.org/x/g2go/kinematics"
	"tinygo.org/x/g2go/motion"
	"tinygo.org/x/g2go/planner"
)

// Junction-integration bounds. The integration time is the tuned knob
// of the cornering-limit heuristic: larger values integrate the corner
// transient over a longer window, allowing faster cornering. It is a
// per-axis config value clamped to this range.
const (
	JunctionIntegrationMin     = 0.005
	JunctionIntegrationMax     = 2.0
	DefaultJunctionIntegration = 0.02
)

// NonModalMove handles the group-0 axis-consuming codes: G92 offset
// assignment, G28/G30 reference moves, G10 coordinate system write.
func (m *Machine) NonModalMove(code string, words []gcode.Word) {
	target := m.targetPosition(words)
	switch code {
	case "G92":
		idx := workOffsetIndex(m.State.CoordSystem)
		for i := 0; i < motion.AXES; i++ {
			m.State.WorkOffsets[idx][i] += m.State.Position[i] - target[i]
		}
		m.haveLastMoveUnit = false

	case "G92.1", "G92.2":
		m.State.WorkOffsets[workOffsetIndex(m.State.CoordSystem)] = motion.Vector{}

	case "G10":
		if p, ok := wordFor(words, 'L'); ok && p.IntValue == 2 {
			if pw, ok := wordFor(words, 'P'); ok {
				idx := int(pw.IntValue) - 1
				if idx >= 0 && idx < len(m.State.WorkOffsets) {
					m.State.WorkOffsets[idx] = target
				}
			}
		}

	case "G28", "G28.1", "G30", "G30.1":
		m.enqueueRapid(target)
		m.enqueueRapid(motion.Vector{}) // reference position, default origin
		m.State.Position = motion.Vector{}
		m.haveLastMoveUnit = false

	case "G53":
		// Absolute machine-space override: axis words are raw machine
		// coordinates, no work/G92/tool-length offsets applied.
		machineTarget := m.State.Position
		unitScale := 1.0
		if !m.State.Units {
			unitScale = mmPerInch
		}
		for i := 0; i < len(motion.AxisLetters); i++ {
			if w, ok := wordFor(words, motion.AxisLetters[i]); ok {
				machineTarget[i] = w.Value * unitScale
			}
		}
		m.enqueueRapid(machineTarget)
		m.State.Position = machineTarget
	}
}

// Motion handles G0/G1/G2/G3/G38.x, plus the modal replay case: an
// empty code means the line carried only axis words and the active
// motion mode applies.
func (m *Machine) Motion(code string, words []gcode.Word) {
	if code == "" {
		code = m.State.MotionMode
		if code == "" || code == "G80" {
			return
		}
	} else if code != "G80" {
		m.State.MotionMode = code
	}
	switch code {
	case "G0":
		target := m.targetPosition(words)
		m.enqueueALINE(target, m.RapidVmax, true)
	case "G1":
		target := m.targetPosition(words)
		m.enqueueALINE(target, m.feedVmax(), false)
	case "G2", "G3":
		m.enqueueArc(code, words)
	case "G38.2", "G38.3", "G38.4", "G38.5":
		target := m.targetPosition(words)
		// Treat the probe move like a feed move; the executor stops
		// early on a probe trip and reports the outcome through
		// ProbeResult. A run-out without contact is logged as an error
		// for G38.2/.4 and as information for G38.3/.5; neither raises
		// an alarm.
		b := m.enqueueALINE(target, m.feedVmax(), false)
		if b != nil {
			b.GM.LineNumber = m.lastLineNumber
			b.Probe = code
			b.ProbeAway = code == "G38.4" || code == "G38.5"
			b.ProbeErrorIfNoTrip = code == "G38.2" || code == "G38.4"
			errIfNoTrip := b.ProbeErrorIfNoTrip
			b.ProbeResult = func(tripped bool, pos motion.Vector) {
				if !tripped && errIfNoTrip {
					glog.Errorf("canonical: probe %s ran out without contact", code)
				} else {
					glog.Infof("canonical: probe %s tripped=%v pos=%v", code, tripped, pos)
				}
				m.State.Position = pos
			}
		}
	case "G80":
		// cancel canned cycle: no motion of its own, and axis words
		// on the line are not consumed as a move
		m.State.MotionMode = "G80"
	}
}

func (m *Machine) feedVmax() motion.Vector {
	feedPerSec := m.State.FeedRate / 60
	if m.State.InverseTime && m.State.FeedRate > 0 {
		feedPerSec = 1 / m.State.FeedRate
	}
	var out motion.Vector
	for i := range out {
		out[i] = math.Min(feedPerSec, m.VmaxPerMM[i])
	}
	return out
}

// targetPosition resolves axis words against the current modal state
// (units, absolute/incremental, active work offset) into an absolute
// machine-space position in millimeters.
func (m *Machine) targetPosition(words []gcode.Word) motion.Vector {
	target := m.State.Position
	offset := m.State.WorkOffsets[workOffsetIndex(m.State.CoordSystem)]
	unitScale := 1.0
	if !m.State.Units {
		unitScale = mmPerInch
	}
	for i := 0; i < len(motion.AxisLetters); i++ {
		letter := motion.AxisLetters[i]
		w, ok := wordFor(words, letter)
		if !ok {
			continue
		}
		v := w.Value * unitScale
		if m.State.AbsoluteMode {
			target[i] = v + offset[i] + m.State.ToolLength[i]
		} else {
			target[i] = m.State.Position[i] + v
		}
	}
	return target
}

// enqueueALINE computes one move's kinematic envelope and pushes a
// NOT_PLANNED ALINE block. vmax is the per-axis ceiling (rapid or
// feed); the move's scalar cruise_vset is the vector-ratio-limited
// projection of vmax onto the travel direction, the usual "slowest
// axis governs" rule for coordinated multi-axis motion.
func (m *Machine) enqueueALINE(target motion.Vector, vmax motion.Vector, rapid bool) *planner.Block {
	delta := sub(target, m.State.Position)
	length := norm(delta)
	if length < 1e-9 {
		return nil
	}
	unit := scale(delta, 1/length)

	cruiseVset := axisLimitedSpeed(unit, vmax)
	absoluteVmax := axisLimitedSpeed(unit, m.VmaxPerMM)
	if rapid {
		absoluteVmax = cruiseVset
	}
	jerk := axisLimitedSpeed(unit, m.JerkPerMM)

	b := m.Queue.GetWriteBlock()
	b.Type = planner.BlockALINE
	b.Length = length
	b.Unit = unit
	for i := range unit {
		b.AxisFlags[i] = unit[i] != 0
	}
	b.CruiseVset = cruiseVset
	b.CruiseVmax = cruiseVset
	b.AbsoluteVmax = absoluteVmax
	b.Jerk = jerk
	b.ExitVmax = cruiseVset
	b.JunctionVmax = m.junctionVelocity(unit, jerk, cruiseVset)
	b.GM = m.gcodeModel()
	m.Queue.CommitWrite(b)

	m.State.Position = target
	m.lastMoveUnit, m.haveLastMoveUnit = unit, true
	return b
}

func (m *Machine) enqueueRapid(target motion.Vector) {
	m.enqueueALINE(target, m.RapidVmax, true)
}

// junctionVelocity is the centripetal-acceleration cornering limit:
// model the corner as an arc of effective radius r = sin(theta/2) /
// (1 - sin(theta/2)) scaled by the junction-integration window, and
// bound the velocity so the centripetal acceleration through it stays
// inside what the jerk budget can build within that window
// (a_eff = jerk * Jt). A straight continuation allows full cruise
// speed; a full reversal forces zero.
func (m *Machine) junctionVelocity(unit motion.Vector, jerk, cruiseVset float64) float64 {
	if !m.haveLastMoveUnit {
		return cruiseVset
	}
	// The corner angle is measured between the reversed incoming and
	// the outgoing direction: collinear travel gives cosTheta = -1.
	cosTheta := -dot(m.lastMoveUnit, unit)
	cosTheta = math.Max(-1, math.Min(1, cosTheta))
	if cosTheta < -0.999 {
		return cruiseVset // straight line
	}
	if cosTheta > 0.999 {
		return 0 // full reversal
	}

	jt := m.junctionIntegrationTime(unit)
	sinHalf := math.Sqrt((1 - cosTheta) / 2)
	radius := jt * sinHalf / (1 - sinHalf)
	aEff := jerk * jt
	return math.Min(cruiseVset, math.Sqrt(aEff*radius))
}

// junctionIntegrationTime returns the clamped integration window,
// taking the most conservative configured value among the axes the
// move touches.
func (m *Machine) junctionIntegrationTime(unit motion.Vector) float64 {
	jt := math.Inf(1)
	if m.Config != nil {
		for i := range unit {
			if unit[i] == 0 {
				continue
			}
			key := "axis." + axisKey(i) + ".junction_integration_time"
			if v, ok := m.Config.Get(key); ok && v < jt {
				jt = v
			}
		}
	}
	if math.IsInf(jt, 1) {
		jt = DefaultJunctionIntegration
	}
	return math.Max(JunctionIntegrationMin, math.Min(JunctionIntegrationMax, jt))
}

// axisKey returns the lower-case letter used in config keys.
func axisKey(i int) string {
	const lower = "xyzabc"
	if i < 0 || i >= len(lower) {
		return "?"
	}
	return lower[i : i+1]
}

// enqueueArc expands a G2/G3 record via kinematics.Decompose into a
// chain of short ALINEs, each individually planned like any other move.
func (m *Machine) enqueueArc(code string, words []gcode.Word) {
	start := m.State.Position
	end := m.targetPosition(words)

	var offset motion.Vector
	unitScale := 1.0
	if !m.State.Units {
		unitScale = mmPerInch
	}
	if w, ok := wordFor(words, 'I'); ok {
		offset[motion.AxisX] = w.Value * unitScale
	}
	if w, ok := wordFor(words, 'J'); ok {
		offset[motion.AxisY] = w.Value * unitScale
	}
	if w, ok := wordFor(words, 'K'); ok {
		offset[motion.AxisZ] = w.Value * unitScale
	}
	turns := 0
	if w, ok := wordFor(words, 'P'); ok {
		turns = int(w.IntValue) - 1
		if turns < 0 {
			turns = 0
		}
	}

	segs := kinematics.Decompose(kinematics.ArcParams{
		Start:           start,
		End:             end,
		CenterOffset:    offset,
		Clockwise:       code == "G2",
		Plane:           m.State.Plane,
		Turns:           turns,
		SegmentLengthMM: 0.5,
	})
	if len(segs) == 0 {
		glog.Warningf("canonical: arc %s produced no segments", code)
		return
	}
	for _, pt := range segs {
		m.enqueueALINE(pt, m.feedVmax(), false)
	}
}

func sub(a, b motion.Vector) motion.Vector {
	var out motion.Vector
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func scale(a motion.Vector, s float64) motion.Vector {
	var out motion.Vector
	for i := range a {
		out[i] = a[i] * s
	}
	return out
}

func norm(a motion.Vector) float64 {
	var sum float64
	for _, v := range a {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func dot(a, b motion.Vector) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// axisLimitedSpeed finds the largest scalar speed along unit such that
// no axis component exceeds its entry in limits: the classic
// vector-ratio feed-rate-limiting rule for coordinated multi-axis moves.
func axisLimitedSpeed(unit, limits motion.Vector) float64 {
	best := math.Inf(1)
	any := false
	for i := range unit {
		if unit[i] == 0 {
			continue
		}
		any = true
		v := limits[i] / math.Abs(unit[i])
		if v < best {
			best = v
		}
	}
	if !any {
		return 0
	}
	return best
}
