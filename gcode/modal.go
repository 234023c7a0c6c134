package gcode

// Group identifies one of the NIST RS274/NGC modal groups. A block
// must not carry two words from the same group.
type Group int

const (
	GroupNone Group = iota
	GroupNonModal
	GroupMotion
	GroupPlane
	GroupDistanceMode
	GroupArcDistanceMode
	GroupFeedRateMode
	GroupUnits
	GroupToolLengthOffset
	GroupCoordSystem
	GroupPathControl
	GroupStopping
	GroupSpindle
	GroupCoolant
	GroupToolChange
	GroupOverride
)

// modalGroup maps a canonical G/M code string to its modal group.
// Codes absent from this table are GCODE_COMMAND_UNSUPPORTED /
// MCODE_COMMAND_UNSUPPORTED, never silently GroupNone.
var modalGroup = map[string]Group{
	"G4": GroupNonModal, "G10": GroupNonModal,
	"G28": GroupNonModal, "G28.1": GroupNonModal, "G28.2": GroupNonModal, "G28.3": GroupNonModal, "G28.4": GroupNonModal,
	"G30": GroupNonModal, "G30.1": GroupNonModal,
	"G53": GroupNonModal,
	"G92": GroupNonModal, "G92.1": GroupNonModal, "G92.2": GroupNonModal, "G92.3": GroupNonModal,

	"G0": GroupMotion, "G1": GroupMotion, "G2": GroupMotion, "G3": GroupMotion,
	"G38.2": GroupMotion, "G38.3": GroupMotion, "G38.4": GroupMotion, "G38.5": GroupMotion,
	"G80": GroupMotion,

	"G17": GroupPlane, "G18": GroupPlane, "G19": GroupPlane,

	"G90": GroupDistanceMode, "G91": GroupDistanceMode,
	"G90.1": GroupArcDistanceMode, "G91.1": GroupArcDistanceMode,

	"G93": GroupFeedRateMode, "G94": GroupFeedRateMode,

	"G20": GroupUnits, "G21": GroupUnits,

	"G40": GroupToolLengthOffset, "G43": GroupToolLengthOffset, "G43.2": GroupToolLengthOffset, "G49": GroupToolLengthOffset,

	"G54": GroupCoordSystem, "G55": GroupCoordSystem, "G56": GroupCoordSystem,
	"G57": GroupCoordSystem, "G58": GroupCoordSystem, "G59": GroupCoordSystem,

	"G61": GroupPathControl, "G61.1": GroupPathControl, "G64": GroupPathControl,

	"M0": GroupStopping, "M1": GroupStopping, "M2": GroupStopping, "M30": GroupStopping, "M60": GroupStopping,

	"M3": GroupSpindle, "M4": GroupSpindle, "M5": GroupSpindle,

	"M7": GroupCoolant, "M8": GroupCoolant, "M9": GroupCoolant,

	"M6": GroupToolChange,

	"M48": GroupOverride, "M49": GroupOverride, "M50": GroupOverride, "M50.1": GroupOverride, "M51": GroupOverride,

	// M100/M100.1/M101 are JSON-wait/user-io extensions; they carry no
	// motion semantics and are not modal.
	"M100": GroupNone, "M100.1": GroupNone, "M101": GroupNone,
}

// validateModalGroups enforces that a block must not contain two words
// from the same modal group. Unknown G/M codes are reported as
// unsupported rather than silently accepted.
func validateModalGroups(words []Word) error {
	seen := make(map[Group]string)
	for _, w := range words {
		if w.Letter != 'G' && w.Letter != 'M' {
			continue
		}
		code := w.Code()
		grp, known := modalGroup[code]
		if !known {
			if w.Letter == 'G' {
				return ErrGcodeCommandUnsupported
			}
			return ErrMcodeCommandUnsupported
		}
		if grp == GroupNone {
			continue
		}
		if prev, dup := seen[grp]; dup && prev != code {
			return ErrModalGroupViolation
		}
		seen[grp] = code
	}
	return nil
}

// motionSuspendedByNonModal implements a NIST dialect quirk: if a
// group-0 code and a motion code both carry axis words in the same
// block, the motion word is suspended for that block. G10/G28/G92 etc.
// are the group-0
// ("non-modal" in the loose sense used by the table above) codes that
// can themselves consume axis words; when one of those appears
// alongside a motion word in the same block, the motion word is
// suspended and the canonical machine must not also execute it as a
// move.
func motionSuspendedByNonModal(words []Word) bool {
	hasNonModalAxisConsumer := false
	hasMotion := false
	for _, w := range words {
		if w.Letter != 'G' {
			continue
		}
		code := w.Code()
		switch code {
		case "G10", "G28", "G28.1", "G92":
			hasNonModalAxisConsumer = true
		case "G0", "G1":
			hasMotion = true
		}
	}
	return hasNonModalAxisConsumer && hasMotion
}
