package patch

import (
	"errors"
	"strings"
)

var errUnterminated = errors.New("unterminated string literal")

// lexer strips string literals and comments from Python source one line at a
// time. Triple-quoted strings and backslash continuations carry over to the
// next line.
type lexer struct {
	quote string
}

func (lx *lexer) inString() bool { return lx.quote != "" }

// code returns the line with comments and string bodies removed.
func (lx *lexer) code(line string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(line) {
		if lx.quote != "" {
			end := findClose(line, i, lx.quote)
			if end < 0 {
				i = len(line)
				break
			}
			i = end + len(lx.quote)
			lx.quote = ""
			b.WriteString("''")
			continue
		}
		c := line[i]
		switch c {
		case '#':
			return b.String(), nil
		case '\'', '"':
			q := string(c)
			if strings.HasPrefix(line[i:], strings.Repeat(q, 3)) {
				q = strings.Repeat(q, 3)
			}
			lx.quote = q
			i += len(q)
		default:
			b.WriteByte(c)
			i++
		}
	}
	if len(lx.quote) == 1 && !strings.HasSuffix(line, `\`) {
		lx.quote = ""
		return "", errUnterminated
	}
	return b.String(), nil
}

func findClose(line string, from int, q string) int {
	for i := from; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(line[i:], q) {
			return i
		}
	}
	return -1
}
