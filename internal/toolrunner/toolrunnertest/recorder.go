// Package toolrunnertest provides a scripted toolrunner.Runner for tests.
package toolrunnertest

import (
	"context"
	"fmt"
	"os/exec"
	"slices"

	"github.com/fpp-125/djstarter/internal/toolrunner"
)

type Handler func(ctx context.Context, cmd toolrunner.Command) (toolrunner.Result, error)

type route struct {
	word    string
	handler Handler
}

// Recorder records every command. The first registered handler whose word
// appears in the command name or arguments answers the call; unmatched calls
// succeed with an empty result.
type Recorder struct {
	Calls   []toolrunner.Command
	Missing map[string]bool
	routes  []route
}

func New() *Recorder {
	return &Recorder{Missing: map[string]bool{}}
}

func (r *Recorder) Handle(word string, h Handler) {
	r.routes = append(r.routes, route{word: word, handler: h})
}

// Fail makes commands containing word exit with the given code.
func (r *Recorder) Fail(word string, code int) {
	r.Handle(word, func(_ context.Context, cmd toolrunner.Command) (toolrunner.Result, error) {
		res := toolrunner.Result{ExitCode: code, Stderr: "scripted failure"}
		return res, &toolrunner.ExitError{Command: cmd.String(), ExitCode: code, Stderr: res.Stderr, Err: fmt.Errorf("exit status %d", code)}
	})
}

func (r *Recorder) Run(ctx context.Context, cmd toolrunner.Command) (toolrunner.Result, error) {
	r.Calls = append(r.Calls, cmd)
	for _, rt := range r.routes {
		if cmd.Name == rt.word || slices.Contains(cmd.Args, rt.word) {
			return rt.handler(ctx, cmd)
		}
	}
	return toolrunner.Result{}, nil
}

func (r *Recorder) LookPath(name string) (string, error) {
	if r.Missing[name] {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return "/usr/bin/" + name, nil
}

// Find returns the first recorded command containing word.
func (r *Recorder) Find(word string) (toolrunner.Command, bool) {
	for _, c := range r.Calls {
		if c.Name == word || slices.Contains(c.Args, word) {
			return c, true
		}
	}
	return toolrunner.Command{}, false
}
