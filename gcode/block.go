package gcode

import "tinygo.org/x/g2go/config"

// Line is the canonical block the parser fills from one normalized
// input line. It carries no planner access itself; Dispatch below
// pushes it through a Dispatcher in the fixed NIST order.
type Line struct {
	Raw           string
	LineNumber    int64
	HasLineNumber bool
	BlockDelete   bool
	Words         []Word
	Comment       *config.ActiveComment
}

// Parse runs the full parse pipeline on one raw ASCII line:
// normalization, word extraction, and modal-group validation. It does
// not dispatch; call Dispatch with the result to drive a Dispatcher.
func Parse(raw string) (*Line, error) {
	norm, err := normalize(raw)
	if err != nil {
		return nil, err
	}
	words, err := extractWords(norm.body)
	if err != nil {
		return nil, err
	}
	if err := validateModalGroups(words); err != nil {
		return nil, err
	}
	return &Line{
		Raw:           raw,
		LineNumber:    norm.lineNumber,
		HasLineNumber: norm.hasLineNumber,
		BlockDelete:   norm.blockDelete,
		Words:         words,
		Comment:       norm.comment,
	}, nil
}

// Word looks up the first occurrence of letter in the line.
func (l *Line) Word(letter byte) (Word, bool) {
	for _, w := range l.Words {
		if w.Letter == letter {
			return w, true
		}
	}
	return Word{}, false
}

// Has reports whether letter appears anywhere in the line.
func (l *Line) Has(letter byte) bool {
	_, ok := l.Word(letter)
	return ok
}

// AxisWords returns the subset of words whose letters are axis
// identifiers, preserving source order.
func (l *Line) AxisWords(axisLetters string) []Word {
	var out []Word
	for _, w := range l.Words {
		for i := 0; i < len(axisLetters); i++ {
			if w.Letter == axisLetters[i] {
				out = append(out, w)
				break
			}
		}
	}
	return out
}

// GCodes returns every G-word's canonical code string, in source order.
func (l *Line) GCodes() []string {
	var out []string
	for _, w := range l.Words {
		if w.Letter == 'G' {
			out = append(out, w.Code())
		}
	}
	return out
}

// MCodes returns every M-word's canonical code string, in source order.
func (l *Line) MCodes() []string {
	var out []string
	for _, w := range l.Words {
		if w.Letter == 'M' {
			out = append(out, w.Code())
		}
	}
	return out
}
