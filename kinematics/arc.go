package kinematics

import (
	"github.com/orsinium-labs/tinymath"

	"tinygo.org/x/g2go/motion"
)

// Plane selects which two axes an arc's center offsets (I/J/K) lie in,
// matching G17/G18/G19.
type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

// ArcParams describes one G2/G3 record before decomposition.
type ArcParams struct {
	Start, End     motion.Vector
	CenterOffset   motion.Vector // I, J, K relative to Start
	Clockwise      bool
	Plane          Plane
	Turns          int     // P-word: additional full turns
	SegmentLengthMM float64 // target chord length per generated ALINE
}

// Decompose turns one arc move into a sequence of short, straight
// intermediate target positions (the Start point is not included; the
// final entry is exactly End, snapped to avoid residual error).
//
// Trig uses github.com/orsinium-labs/tinymath rather than math.Sin/Cos
// to keep the motion core's trig surface identical whether it is built
// hosted or under TinyGo (tinymath has no FPU/libm dependency), the
// same reasoning behind tmc5160/stepper.go's use of tinymath.Round.
func Decompose(p ArcParams) []motion.Vector {
	a0, a1 := planeAxes(p.Plane)

	cx := p.Start[a0] + p.CenterOffset[a0]
	cy := p.Start[a1] + p.CenterOffset[a1]

	sx, sy := p.Start[a0]-cx, p.Start[a1]-cy
	ex, ey := p.End[a0]-cx, p.End[a1]-cy

	radius := tinymath.Sqrt(float32(sx*sx + sy*sy))
	if radius <= 0 {
		return []motion.Vector{p.End}
	}

	startAngle := tinymath.Atan2(float32(sy), float32(sx))
	endAngle := tinymath.Atan2(float32(ey), float32(ex))

	var sweep float64
	if p.Clockwise {
		sweep = float64(startAngle - endAngle)
		for sweep < 0 {
			sweep += 2 * pi
		}
		sweep = -sweep
	} else {
		sweep = float64(endAngle - startAngle)
		for sweep < 0 {
			sweep += 2 * pi
		}
	}
	sweep += float64(p.Turns) * 2 * pi * sign(sweep)

	arcLen := float64(radius) * absf(sweep)
	segLen := p.SegmentLengthMM
	if segLen <= 0 {
		segLen = 0.5
	}
	n := int(arcLen/segLen + 0.5)
	if n < 1 {
		n = 1
	}

	out := make([]motion.Vector, 0, n)
	depthAxis := thirdAxis(p.Plane)
	depthStart := p.Start[depthAxis]
	depthEnd := p.End[depthAxis]

	for i := 1; i <= n; i++ {
		frac := float64(i) / float64(n)
		ang := float64(startAngle) + sweep*frac
		pt := p.Start
		pt[a0] = cx + float64(radius)*float64(tinymath.Cos(float32(ang)))
		pt[a1] = cy + float64(radius)*float64(tinymath.Sin(float32(ang)))
		pt[depthAxis] = depthStart + (depthEnd-depthStart)*frac
		if i == n {
			pt = p.End // snap final point, avoiding trig residual error
		}
		out = append(out, pt)
	}
	return out
}

const pi = 3.14159265358979323846

func planeAxes(p Plane) (int, int) {
	switch p {
	case PlaneXZ:
		return motion.AxisX, motion.AxisZ
	case PlaneYZ:
		return motion.AxisY, motion.AxisZ
	default:
		return motion.AxisX, motion.AxisY
	}
}

func thirdAxis(p Plane) int {
	switch p {
	case PlaneXZ:
		return motion.AxisY
	case PlaneYZ:
		return motion.AxisX
	default:
		return motion.AxisZ
	}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
