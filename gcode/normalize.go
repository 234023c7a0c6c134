package gcode

import (
	"strconv"
	"strings"

	"tinygo.org/x/g2go/config"
)

// normalizeResult carries the pieces normalization peels off a raw
// line before word extraction runs.
type normalizeResult struct {
	body          string // remaining text to extract words from
	lineNumber    int64
	hasLineNumber bool
	blockDelete   bool
	comment       *config.ActiveComment
}

// normalize runs normalization in order: checksum validation,
// block-delete detection, whitespace/control stripping + upper-casing,
// leading-zero stripping, and comment elision/active-comment merge.
func normalize(raw string) (normalizeResult, error) {
	var res normalizeResult

	line := raw

	// Checksum first: "*NN" — XOR of every character up to '*',
	// computed over the line as transmitted, block-delete marker
	// included.
	if star := strings.IndexByte(line, '*'); star >= 0 {
		checksumStr := strings.TrimSpace(line[star+1:])
		payload := line[:star]

		var sum byte
		for i := 0; i < len(payload); i++ {
			sum ^= payload[i]
		}
		want, err := strconv.ParseUint(checksumStr, 10, 8)
		if err != nil {
			return res, ErrBadNumberFormat
		}
		if !hasLineNumberWord(payload) {
			return res, ErrMissingLineNumberWithChecksum
		}
		if byte(want) != sum {
			return res, ErrChecksumMatchFailed
		}
		line = payload
	}

	// Block-delete marker, must be the very first character.
	if strings.HasPrefix(line, "/") {
		res.blockDelete = true
		line = line[1:]
	}

	// Strip whitespace/control chars, upper-case letters.
	var b strings.Builder
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c < 0x20 || c == 0x7f {
			continue // control character
		}
		if c == ' ' || c == '\t' {
			continue
		}
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		b.WriteByte(c)
	}
	line = b.String()

	// Comments. ';' and '%' end the line outright.
	if idx := strings.IndexAny(line, ";%"); idx >= 0 {
		line = line[:idx]
	}
	line, comment := extractParenComments(line)
	res.comment = comment

	// Strip leading zeros on numeric literals.
	line = stripLeadingZeros(line)

	// Pull the line number word (N..) out, if present, tracked
	// separately from the remaining words so checksum validation
	// above can see it was present.
	res.body, res.lineNumber, res.hasLineNumber = extractLineNumber(line)

	return res, nil
}

func hasLineNumberWord(payload string) bool {
	for i := 0; i < len(payload); i++ {
		c := payload[i]
		if c == 'n' || c == 'N' {
			return true
		}
	}
	return false
}

// extractLineNumber pulls the first "N<digits>" word out of the line,
// wherever it sits, returning the remainder unchanged.
func extractLineNumber(line string) (rest string, num int64, ok bool) {
	idx := strings.IndexByte(line, 'N')
	if idx < 0 {
		return line, 0, false
	}
	i := idx + 1
	start := i
	for i < len(line) && isNumberChar(line[i]) {
		i++
	}
	if start == i {
		return line, 0, false
	}
	n, err := strconv.ParseInt(line[start:i], 10, 64)
	if err != nil {
		return line, 0, false
	}
	return line[:idx] + line[i:], n, true
}

// extractParenComments elides parenthesized comments, merging "(MSG
// ...)" and "({...})" forms into one ActiveComment. Ordinary "(...)"
// comments are simply dropped.
func extractParenComments(line string) (string, *config.ActiveComment) {
	var out strings.Builder
	var comment *config.ActiveComment

	for i := 0; i < len(line); {
		if line[i] != '(' {
			out.WriteByte(line[i])
			i++
			continue
		}
		end := strings.IndexByte(line[i:], ')')
		if end < 0 {
			// Unterminated comment: treat the remainder as comment text.
			break
		}
		inner := line[i+1 : i+end]
		i += end + 1

		switch {
		case strings.HasPrefix(inner, "MSG"):
			if comment == nil {
				comment = &config.ActiveComment{}
			}
			comment.Msg = strings.TrimSpace(inner[len("MSG"):])
		case strings.HasPrefix(inner, "{") && strings.HasSuffix(inner, "}"):
			if comment == nil {
				comment = &config.ActiveComment{Fields: map[string]interface{}{}}
			} else if comment.Fields == nil {
				comment.Fields = map[string]interface{}{}
			}
			comment.Fields["raw"] = inner
		default:
			// plain comment text, discarded
		}
	}
	return out.String(), comment
}
