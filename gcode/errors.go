package gcode

import "errors"

// Sentinel parse/dispatch errors.
var (
	ErrInvalidOrMalformedCommand      = errors.New("INVALID_OR_MALFORMED_COMMAND")
	ErrBadNumberFormat                = errors.New("BAD_NUMBER_FORMAT")
	ErrGcodeCommandUnsupported        = errors.New("GCODE_COMMAND_UNSUPPORTED")
	ErrMcodeCommandUnsupported        = errors.New("MCODE_COMMAND_UNSUPPORTED")
	ErrModalGroupViolation            = errors.New("MODAL_GROUP_VIOLATION")
	ErrGcodeAxisIsMissing             = errors.New("GCODE_AXIS_IS_MISSING")
	ErrMissingLineNumberWithChecksum  = errors.New("MISSING_LINE_NUMBER_WITH_CHECKSUM")
	ErrChecksumMatchFailed            = errors.New("CHECKSUM_MATCH_FAILED")
)
