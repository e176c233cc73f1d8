// Package prompt asks the operator for values on a terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNonInteractive is returned when a value is needed but nobody can be asked.
var ErrNonInteractive = errors.New("input required but prompting is disabled")

// Prompter asks questions. Ask returns the trimmed answer, or def when the
// answer is empty.
type Prompter interface {
	Ask(label, def string) (string, error)
	Confirm(label string, defaultYes bool) (bool, error)
}

// Line reads answers line by line from R and writes questions to W.
type Line struct {
	r *bufio.Reader
	w io.Writer
}

func NewLine(r io.Reader, w io.Writer) *Line {
	return &Line{r: bufio.NewReader(r), w: w}
}

func (l *Line) Ask(label, def string) (string, error) {
	if strings.TrimSpace(def) != "" {
		fmt.Fprintf(l.w, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(l.w, "%s: ", label)
	}
	line, err := l.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	value := stripOuterQuotes(line)
	if value == "" {
		value = strings.TrimSpace(def)
	}
	if value == "" && errors.Is(err, io.EOF) {
		return "", errors.New("input closed before value was provided")
	}
	return value, nil
}

func (l *Line) Confirm(label string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	for {
		fmt.Fprintf(l.w, "%s (%s): ", label, hint)
		line, err := l.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			if errors.Is(err, io.EOF) && line == "" {
				return false, errors.New("input closed before answer was provided")
			}
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if errors.Is(err, io.EOF) {
			return false, errors.New("input closed before answer was provided")
		}
		fmt.Fprintln(l.w, "please answer y or n")
	}
}

// Disabled answers with defaults and refuses everything else.
type Disabled struct{}

func (Disabled) Ask(label, def string) (string, error) {
	if v := strings.TrimSpace(def); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", label, ErrNonInteractive)
}

func (Disabled) Confirm(label string, _ bool) (bool, error) {
	return false, fmt.Errorf("%s: %w", label, ErrNonInteractive)
}

// ForTerminal returns a line prompter on stdin/stdout when stdin is a
// terminal and Disabled otherwise.
func ForTerminal() Prompter {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return Disabled{}
	}
	return NewLine(os.Stdin, os.Stdout)
}

func stripOuterQuotes(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		if (value[0] == '\'' && value[len(value)-1] == '\'') || (value[0] == '"' && value[len(value)-1] == '"') {
			return strings.TrimSpace(value[1 : len(value)-1])
		}
	}
	return value
}
