package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/fpp-125/djstarter/internal/console"
	"github.com/fpp-125/djstarter/internal/logging"
	"github.com/fpp-125/djstarter/internal/manager"
	"github.com/fpp-125/djstarter/internal/prompt"
	"github.com/fpp-125/djstarter/internal/steps"
	"github.com/fpp-125/djstarter/internal/templates"
	"github.com/fpp-125/djstarter/internal/toolrunner"
)

type Globals struct {
	StateDir  string `name:"state-dir" env:"DJSTARTER_STATE_DIR" default:".djstarter" help:"Directory holding run history."`
	LogLevel  string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Structured log level."`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Structured log format."`
	Verbose   bool   `short:"v" help:"Stream the output of python, pip and manage.py."`
}

type CLI struct {
	Globals

	New    NewCmd    `cmd:"" help:"Scaffold a new Django project."`
	Init   InitCmd   `cmd:"" help:"Write a commented djstarter.yaml."`
	Patch  PatchCmd  `cmd:"" help:"Re-apply settings and urls edits to an existing project."`
	Runs   RunsCmd   `cmd:"" help:"List recorded runs."`
	Events EventsCmd `cmd:"" help:"Show the event log of a run."`
	Tree   TreeCmd   `cmd:"" help:"Print a project tree."`
}

// App carries the process environment into commands. Nil collaborators are
// replaced with their production defaults.
type App struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Getenv   func(string) string
	WorkDir  string
	FS       billy.Filesystem
	Runner   toolrunner.Runner
	Prompter prompt.Prompter
	Console  *console.Printer
	Globals  *Globals
}

type exitCode int

func Execute(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "djstarter: %v\n", err)
		return 1
	}
	return run(ctx, args, &App{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		WorkDir: wd,
		Runner:  toolrunner.New(),
		Console: console.Stdout(),
	})
}

func run(ctx context.Context, args []string, app *App) (code int) {
	var root CLI
	parser, err := kong.New(&root,
		kong.Name("djstarter"),
		kong.Description("Scaffold a Django project: virtualenv, apps, settings, urls and a dev server."),
		kong.Writers(app.Stdout, app.Stderr),
		kong.Exit(func(c int) { panic(exitCode(c)) }),
	)
	if err != nil {
		fmt.Fprintf(app.Stderr, "djstarter: %v\n", err)
		return 1
	}
	defer func() {
		if r := recover(); r != nil {
			c, ok := r.(exitCode)
			if !ok {
				panic(r)
			}
			code = int(c)
		}
	}()

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(app.Stderr, "djstarter: %v (see --help)\n", err)
		return 1
	}
	app.Globals = &root.Globals
	app.defaults()
	log := logging.New(root.LogLevel, root.LogFormat, app.Stderr)
	app.Ctx = logging.WithLogger(ctx, log)

	if err := kctx.Run(app); err != nil {
		fmt.Fprintf(app.Stderr, "djstarter: %v\n", err)
		return 1
	}
	return 0
}

func (a *App) defaults() {
	if a.Getenv == nil {
		a.Getenv = os.Getenv
	}
	if a.FS == nil {
		a.FS = osfs.New(a.WorkDir)
	}
	if a.Runner == nil {
		a.Runner = toolrunner.New()
	}
	if a.Console == nil {
		a.Console = console.New(a.Stdout, false)
	}
}

func (a *App) deps(noInput bool) steps.Deps {
	p := a.Prompter
	switch {
	case noInput:
		p = prompt.Disabled{}
	case p == nil:
		p = prompt.ForTerminal()
	}
	d := steps.Deps{
		FS:        a.FS,
		WorkDir:   a.WorkDir,
		Runner:    a.Runner,
		Templates: &templates.Default{},
		Prompter:  p,
		Console:   a.Console,
	}
	if a.Globals.Verbose {
		d.ToolOutput = a.Stdout
	}
	return d
}

// manager opens the run history. A relative state dir is resolved against
// the working directory.
func (a *App) manager() (*manager.Manager, error) {
	dir := a.Globals.StateDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(a.WorkDir, dir)
	}
	m, err := manager.New(dir)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	return m, nil
}
