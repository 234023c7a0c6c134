// Package kinematics implements the pluggable Cartesian-to-motor-step
// transform used in the per-segment motion pipeline. Motor-angle/
// step-rate arithmetic follows the style of tmc5160/stepper.go (named
// angle/microstep constants and tinymath-based rounding).
package kinematics

import "tinygo.org/x/g2go/motion"

// Transform maps axis-space positions (millimeters or degrees) to
// motor-space step counts and back. The default is Cartesian identity;
// other implementations (CoreXY, delta) can be substituted without
// touching the executor.
type Transform interface {
	// ToSteps converts an absolute axis position into absolute motor
	// step counts, given the configured steps-per-unit for each motor.
	ToSteps(axisPos motion.Vector, stepsPerUnit motion.Vector) motion.Steps
	// FromSteps is the inverse, used when re-deriving axis position
	// from encoder counts for following-error computation.
	FromSteps(steps motion.Steps, stepsPerUnit motion.Vector) motion.Vector
}

// Cartesian is the identity-per-axis default transform.
type Cartesian struct{}

func (Cartesian) ToSteps(axisPos, stepsPerUnit motion.Vector) motion.Steps {
	var out motion.Steps
	for i := 0; i < motion.AXES; i++ {
		out[i] = int32(round(axisPos[i] * stepsPerUnit[i]))
	}
	return out
}

func (Cartesian) FromSteps(steps motion.Steps, stepsPerUnit motion.Vector) motion.Vector {
	var out motion.Vector
	for i := 0; i < motion.AXES; i++ {
		if stepsPerUnit[i] == 0 {
			continue
		}
		out[i] = float64(steps[i]) / stepsPerUnit[i]
	}
	return out
}

func round(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v - 0.5))
}
