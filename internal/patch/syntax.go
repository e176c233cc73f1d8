package patch

import "fmt"

var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

// CheckSyntax is the structural pass: every bracket closes in order and every
// string literal terminates. It does not validate Python grammar beyond that.
func (d *Document) CheckSyntax() error {
	var lx lexer
	var stack []byte
	var lines []int
	for i, line := range d.Lines {
		code, err := lx.code(line)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrParse, i+1, err)
		}
		for j := 0; j < len(code); j++ {
			c := code[j]
			switch c {
			case '(', '[', '{':
				stack = append(stack, c)
				lines = append(lines, i+1)
			case ')', ']', '}':
				if len(stack) == 0 || stack[len(stack)-1] != closers[c] {
					return fmt.Errorf("%w: unexpected %c at line %d", ErrParse, c, i+1)
				}
				stack = stack[:len(stack)-1]
				lines = lines[:len(lines)-1]
			}
		}
	}
	if lx.inString() {
		return fmt.Errorf("%w: unterminated triple-quoted string", ErrParse)
	}
	if len(stack) > 0 {
		return fmt.Errorf("%w: %c opened at line %d is never closed", ErrParse, stack[len(stack)-1], lines[len(lines)-1])
	}
	return nil
}
