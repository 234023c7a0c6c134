package report

import "strconv"

// AppendFloat is the firmware's ASCII float formatter: fixed decimal
// notation at the given precision with trailing zeros (and a trailing
// '.') trimmed, so "10.000" goes to the wire as "10" and "10.250" as
// "10.25". Parsing the result back reproduces the value within
// 10^-precision.
func AppendFloat(b []byte, v float64, precision int) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, v, 'f', precision, 64)
	if precision <= 0 {
		return b
	}
	end := len(b)
	for end > start && b[end-1] == '0' {
		end--
	}
	if end > start && b[end-1] == '.' {
		end--
	}
	return b[:end]
}

// Ftoa is the string convenience form of AppendFloat.
func Ftoa(v float64, precision int) string {
	return string(AppendFloat(nil, v, precision))
}

// ParseFloat is the matching reader, shared with the G-code word
// scanner's number syntax.
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
