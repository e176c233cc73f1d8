package patch

import (
	"strings"
)

// Position selects where InsertOnce places new entries.
type Position int

const (
	BeforeClose Position = iota
	AfterOpen
)

type entryStyle struct {
	indent string
	quote  byte
}

// styleOf copies indentation and quote character from the first entry
// strictly between open and close. Empty literals get the opening line's
// indentation plus four spaces and single quotes.
func (d *Document) styleOf(open, close int) entryStyle {
	st := entryStyle{indent: leadingSpace(d.Lines[open]) + "    ", quote: '\''}
	for i := open + 1; i < close; i++ {
		trimmed := strings.TrimSpace(d.Lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		st.indent = leadingSpace(d.Lines[i])
		if q := firstQuote(trimmed); q != 0 {
			st.quote = q
		}
		break
	}
	return st
}

func (st entryStyle) render(entry string) string {
	return st.indent + restyle(strings.TrimSpace(entry), st.quote)
}

// InsertOnce adds each entry to the literal named by t unless an equivalent
// line already sits inside it. Entries keep the caller's order. It returns
// the number of lines added.
func (d *Document) InsertOnce(t Target, entries []string, pos Position) (int, error) {
	sp, err := d.Locate(t)
	if err != nil {
		return 0, err
	}
	present := map[string]bool{}
	for i := sp.Start; i <= sp.End; i++ {
		present[normalize(d.Lines[i])] = true
	}
	st := d.styleOf(sp.Start, sp.End)
	var add []string
	for _, e := range entries {
		key := normalize(e)
		if key == "" || present[key] {
			continue
		}
		present[key] = true
		add = append(add, st.render(e))
	}
	if len(add) == 0 {
		return 0, nil
	}
	at := sp.End
	if pos == AfterOpen {
		at = sp.Start + 1
	} else {
		d.terminatePrevious(sp.Start, sp.End)
	}
	d.insert(at, add...)
	return len(add), nil
}

// terminatePrevious adds the missing comma to the last entry before the
// closing line so appended entries stay valid. The opening line counts when
// an entry follows its bracket.
func (d *Document) terminatePrevious(open, close int) {
	for i := close - 1; i >= open; i-- {
		var lx lexer
		code, err := lx.code(d.Lines[i])
		if err != nil {
			return
		}
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		switch code[len(code)-1] {
		case ',', '[', '(', '{':
			return
		}
		line := d.Lines[i]
		if idx := commentIndex(line); idx >= 0 {
			d.Lines[i] = strings.TrimRight(line[:idx], " \t") + ", " + line[idx:]
		} else {
			d.Lines[i] = strings.TrimRight(line, " \t") + ","
		}
		return
	}
}

// SetEntry makes the structure named by t carry line as its entry for key.
// An existing entry is replaced in place; otherwise line is inserted before
// the closing line of the first dictionary inside the structure, or before
// the structure's own closing line when it holds no dictionary. It reports
// whether the document changed.
func (d *Document) SetEntry(t Target, key, line string) (bool, error) {
	sp, err := d.Locate(t)
	if err != nil {
		return false, err
	}
	for i := sp.Start + 1; i < sp.End; i++ {
		trimmed := strings.TrimSpace(d.Lines[i])
		if strings.HasPrefix(trimmed, "'"+key+"'") || strings.HasPrefix(trimmed, `"`+key+`"`) {
			q := firstQuote(trimmed)
			next := leadingSpace(d.Lines[i]) + restyle(strings.TrimSpace(line), q)
			if next == d.Lines[i] {
				return false, nil
			}
			d.Lines[i] = next
			return true, nil
		}
	}
	open, close := d.firstDict(sp)
	if open < 0 {
		open, close = sp.Start, sp.End
	}
	st := d.styleOf(open, close)
	d.terminatePrevious(open, close)
	d.insert(close, st.render(line))
	return true, nil
}

// firstDict returns the opening and closing lines of the first brace-delimited
// literal inside sp, or -1, -1.
func (d *Document) firstDict(sp Span) (int, int) {
	var lx lexer
	depth := 0
	open := -1
	for i := sp.Start + 1; i < sp.End; i++ {
		code, err := lx.code(d.Lines[i])
		if err != nil {
			return -1, -1
		}
		opens, closes := strings.Count(code, "{"), strings.Count(code, "}")
		if open < 0 && opens > 0 {
			open = i
		}
		depth += opens - closes
		if open >= 0 && depth <= 0 && closes > 0 {
			if i == open {
				return -1, -1
			}
			return open, i
		}
	}
	return -1, -1
}

// AppendOnce appends block at the end of the document unless some line
// already contains probe. A blank separator line is added when needed.
func (d *Document) AppendOnce(probe string, block []string) bool {
	if d.Contains(probe) {
		return false
	}
	if n := len(d.Lines); n > 0 && strings.TrimSpace(d.Lines[n-1]) != "" {
		d.Lines = append(d.Lines, "")
	}
	d.Lines = append(d.Lines, block...)
	d.trailingNewline = true
	return true
}

// EnsureImport guarantees `from module import name`, or `import module` when
// name is empty. Existing from-imports of module are extended in place; new
// import lines go after the last top-level import, or after the module
// docstring when there is none.
func (d *Document) EnsureImport(module, name string) bool {
	if name == "" {
		for _, l := range d.Lines {
			t := strings.TrimSpace(l)
			if t == "import "+module || strings.HasPrefix(t, "import "+module+" ") || strings.HasPrefix(t, "import "+module+",") {
				return false
			}
		}
		d.insert(d.importAnchor(), "import "+module)
		return true
	}
	prefix := "from " + module + " import "
	for i, l := range d.Lines {
		t := strings.TrimSpace(l)
		if !strings.HasPrefix(t, prefix) || leadingSpace(l) != "" {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(t, prefix))
		if idx := commentIndex(rest); idx >= 0 {
			rest = strings.TrimSpace(rest[:idx])
		}
		if strings.HasPrefix(rest, "(") {
			for j := i; j < len(d.Lines); j++ {
				seg := d.Lines[j]
				if j == i {
					seg = strings.TrimPrefix(rest, "(")
				}
				if importsName(strings.Trim(seg, " \t()"), name) {
					return false
				}
				if !strings.Contains(seg, ")") {
					continue
				}
				if j == i {
					d.Lines[i] = strings.Replace(l, ")", ", "+name+")", 1)
				} else {
					d.insert(j, "    "+name+",")
				}
				return true
			}
			return false
		}
		if importsName(rest, name) {
			return false
		}
		d.Lines[i] = prefix + rest + ", " + name
		return true
	}
	d.insert(d.importAnchor(), prefix+name)
	return true
}

func (d *Document) importAnchor() int {
	last := -1
	for i, l := range d.Lines {
		if leadingSpace(l) != "" {
			continue
		}
		if strings.HasPrefix(l, "import ") || strings.HasPrefix(l, "from ") {
			last = i
		}
	}
	if last >= 0 {
		return last + 1
	}
	return d.docstringEnd()
}

// docstringEnd returns the index of the first line after a leading module
// docstring, or 0.
func (d *Document) docstringEnd() int {
	if len(d.Lines) == 0 {
		return 0
	}
	first := strings.TrimSpace(d.Lines[0])
	if !strings.HasPrefix(first, `"""`) && !strings.HasPrefix(first, "'''") {
		return 0
	}
	var lx lexer
	for i, l := range d.Lines {
		if _, err := lx.code(l); err != nil {
			return 0
		}
		if !lx.inString() {
			return i + 1
		}
	}
	return 0
}

func importsName(list, name string) bool {
	for _, part := range strings.Split(list, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) > 0 && fields[0] == name {
			return true
		}
	}
	return false
}

// normalize reduces a line to a comparable form: trimmed, single quotes,
// without a trailing comment or comma.
func normalize(line string) string {
	if idx := commentIndex(line); idx >= 0 {
		line = line[:idx]
	}
	s := strings.TrimSpace(line)
	s = strings.TrimSuffix(s, ",")
	return strings.ReplaceAll(strings.TrimSpace(s), `"`, "'")
}

func restyle(entry string, quote byte) string {
	switch quote {
	case '"':
		if !strings.Contains(entry, `"`) {
			return strings.ReplaceAll(entry, "'", `"`)
		}
	case '\'':
		if !strings.Contains(entry, "'") {
			return strings.ReplaceAll(entry, `"`, "'")
		}
	}
	return entry
}

func firstQuote(s string) byte {
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' || s[i] == '"' {
			return s[i]
		}
	}
	return 0
}

func leadingSpace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

// commentIndex returns the byte offset of a trailing # comment outside any
// string literal, or -1.
func commentIndex(line string) int {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '#':
			return i
		}
	}
	return -1
}
