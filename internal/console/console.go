// Package console prints operator-facing status lines.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"golang.org/x/term"
)

// Tag classifies a status line.
type Tag int

const (
	Info Tag = iota
	OK
	Warn
	Fail
	Step
)

var tags = map[Tag]struct {
	label string
	theme *color.Theme
}{
	Info: {"INFO", color.Info},
	OK:   {" OK ", color.Success},
	Warn: {"WARN", color.Warn},
	Fail: {"FAIL", color.Danger},
	Step: {"STEP", color.Primary},
}

// Printer writes tagged lines, coloured when attached to a terminal.
type Printer struct {
	w      io.Writer
	colour bool
}

func New(w io.Writer, colour bool) *Printer {
	return &Printer{w: w, colour: colour}
}

// Stdout colours output only when stdout is a terminal.
func Stdout() *Printer {
	return New(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
}

// Discard swallows everything.
func Discard() *Printer { return New(io.Discard, false) }

func (p *Printer) Writer() io.Writer { return p.w }

func (p *Printer) Status(tag Tag, format string, args ...any) {
	t, ok := tags[tag]
	if !ok {
		t = tags[Info]
	}
	label := "[" + t.label + "]"
	if p.colour {
		label = t.theme.Sprint(label)
	}
	fmt.Fprintf(p.w, "%s %s\n", label, fmt.Sprintf(format, args...))
}

func (p *Printer) Infof(format string, args ...any) { p.Status(Info, format, args...) }
func (p *Printer) OKf(format string, args ...any) { p.Status(OK, format, args...) }
func (p *Printer) Warnf(format string, args ...any) { p.Status(Warn, format, args...) }
func (p *Printer) Failf(format string, args ...any) { p.Status(Fail, format, args...) }
