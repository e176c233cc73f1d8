package patch

import (
	"fmt"
	"strings"
)

// Target names a bracketed literal by the token its assignment line starts
// with.
type Target struct {
	Marker string
	Open   byte
	Close  byte
}

// List targets a `marker = [ ... ]` literal.
func List(marker string) Target {
	return Target{Marker: marker, Open: '[', Close: ']'}
}

// Span holds the marker line and the terminal line of a literal, inclusive.
type Span struct {
	Start int
	End   int
}

// find returns the first line outside a string literal whose trimmed text
// starts with marker, or -1.
func (d *Document) find(marker string) (int, error) {
	var lx lexer
	for i, line := range d.Lines {
		inside := lx.inString()
		if _, err := lx.code(line); err != nil {
			return -1, fmt.Errorf("%w: line %d: %v", ErrParse, i+1, err)
		}
		if !inside && strings.HasPrefix(strings.TrimSpace(line), marker) {
			return i, nil
		}
	}
	return -1, nil
}

// Locate finds the literal named by t. Depth starts at the marker line's net
// bracket count; the terminal line is the first later line where depth is
// back to zero and that line itself closes a bracket. Nested literals inside
// the entries therefore do not end the scan early.
func (d *Document) Locate(t Target) (Span, error) {
	if t.Open == 0 {
		t.Open, t.Close = '[', ']'
	}
	start, err := d.find(t.Marker)
	if err != nil {
		return Span{}, err
	}
	if start < 0 {
		return Span{}, fmt.Errorf("%w: %s", ErrMarkerNotFound, t.Marker)
	}
	var lx lexer
	depth := 0
	opened := false
	for i := start; i < len(d.Lines); i++ {
		code, err := lx.code(d.Lines[i])
		if err != nil {
			return Span{}, fmt.Errorf("%w: line %d: %v", ErrParse, i+1, err)
		}
		opens := strings.Count(code, string(t.Open))
		closes := strings.Count(code, string(t.Close))
		depth += opens - closes
		if opens > 0 {
			opened = true
		}
		if depth < 0 {
			return Span{}, fmt.Errorf("%w: unbalanced %c at line %d", ErrParse, t.Close, i+1)
		}
		if opened && depth == 0 && closes > 0 {
			if i == start {
				return Span{}, fmt.Errorf("%w: %s literal opens and closes on line %d", ErrParse, t.Marker, i+1)
			}
			return Span{Start: start, End: i}, nil
		}
	}
	return Span{}, fmt.Errorf("%w: %s literal starting at line %d is never closed", ErrParse, t.Marker, start+1)
}
