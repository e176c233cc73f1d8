package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5/util"

	"github.com/fpp-125/djstarter/internal/config"
	"github.com/fpp-125/djstarter/internal/manager"
	"github.com/fpp-125/djstarter/internal/scaffoldtree"
	store "github.com/fpp-125/djstarter/internal/store/sqlite"
)

type NewCmd struct {
	Name     string   `arg:"" optional:"" help:"Project name; asked for when omitted."`
	Apps     []string `short:"a" help:"App names, comma separated."`
	Config   string   `short:"c" help:"Path to djstarter.yaml."`
	EnvName  string   `name:"env-name" help:"Virtual environment directory."`
	Tool     string   `help:"Environment tool: venv or virtualenv."`
	Python   string   `help:"Interpreter used to create the environment."`
	Packages []string `help:"Packages to install, comma separated."`
	Host     string   `help:"Development server host."`
	Port     string   `help:"Development server port."`
	NoServer bool     `name:"no-server" help:"Do not start the development server."`
	Git      bool     `help:"Initialise a git repository in the project."`
	NoInput  bool     `name:"no-input" help:"Never prompt; fail when an answer is missing."`
}

func (c *NewCmd) Run(app *App) error {
	cfg, err := loadConfig(app, c.Config)
	if err != nil {
		return err
	}
	if c.Name != "" {
		cfg.Project.Name = c.Name
	}
	if len(c.Apps) > 0 {
		cfg.Project.Apps = c.Apps
	}
	if c.EnvName != "" {
		cfg.Environment.Name = c.EnvName
	}
	if c.Tool != "" {
		cfg.Environment.Tool = c.Tool
	}
	if c.Python != "" {
		cfg.Environment.Python = c.Python
	}
	if len(c.Packages) > 0 {
		cfg.Environment.Packages = c.Packages
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != "" {
		cfg.Server.Port = c.Port
	}
	if c.NoServer {
		cfg.Server.Run = false
	}
	if c.Git {
		cfg.Git.Init = true
	}
	if cfg, err = config.NormalizeAndValidate(cfg); err != nil {
		return err
	}

	deps := app.deps(c.NoInput)
	p, err := manager.Scaffold(cfg, deps)
	if err != nil {
		return err
	}
	m, err := app.manager()
	if err != nil {
		return err
	}
	defer m.Close()
	rec, err := m.Run(app.Ctx, manager.RunOptions{
		Command:  "new",
		WorkDir:  app.WorkDir,
		Pipeline: p,
		Context:  manager.ScaffoldInputs(deps),
		Console:  app.Console,
		FS:       app.FS,
	})
	return report(app, rec, err)
}

type InitCmd struct {
	Out   string `default:"djstarter.yaml" help:"Output path."`
	Force bool   `help:"Overwrite an existing file."`
}

func (c *InitCmd) Run(app *App) error {
	if _, err := app.FS.Stat(c.Out); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", c.Out)
	}
	if err := util.WriteFile(app.FS, c.Out, []byte(config.Template), 0o644); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	app.Console.OKf("created %s", c.Out)
	return nil
}

type PatchCmd struct {
	Name   string   `arg:"" optional:"" help:"Project directory name."`
	Apps   []string `short:"a" help:"Apps to wire; defaults to the apps found in the project."`
	Config string   `short:"c" help:"Path to djstarter.yaml."`
}

func (c *PatchCmd) Run(app *App) error {
	cfg, err := loadConfig(app, c.Config)
	if err != nil {
		return err
	}
	if c.Name != "" {
		cfg.Project.Name = c.Name
	}
	if len(c.Apps) > 0 {
		cfg.Project.Apps = c.Apps
	}
	if cfg, err = config.NormalizeAndValidate(cfg); err != nil {
		return err
	}
	deps := app.deps(true)
	bc, err := manager.PatchInputs(cfg, deps)
	if err != nil {
		return err
	}
	m, err := app.manager()
	if err != nil {
		return err
	}
	defer m.Close()
	rec, err := m.Run(app.Ctx, manager.RunOptions{
		Command:  "patch",
		WorkDir:  app.WorkDir,
		Pipeline: manager.Patch(deps),
		Context:  bc,
		Console:  app.Console,
		FS:       app.FS,
	})
	return report(app, rec, err)
}

type RunsCmd struct {
	Limit int  `default:"20" help:"Maximum number of runs."`
	JSON  bool `name:"json" help:"JSON output."`
}

func (c *RunsCmd) Run(app *App) error {
	m, err := app.manager()
	if err != nil {
		return err
	}
	defer m.Close()
	runs, err := m.ListRuns(c.Limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if c.JSON {
		return writeJSON(app, runs)
	}
	for _, r := range runs {
		fmt.Fprintf(app.Stdout, "%s\t%s\t%s\t%s\t%s\n", r.RunID, r.Status, r.Command, orDash(r.Project), r.StartedAt)
	}
	return nil
}

type EventsCmd struct {
	RunID string `arg:"" name:"run-id" help:"Run to show."`
	Steps bool   `help:"Print the step table instead of raw events." xor:"view"`
	Files bool   `help:"Print the files the run left in the project." xor:"view"`
	JSON  bool   `name:"json" help:"JSON output for --steps and --files."`
}

func (c *EventsCmd) Run(app *App) error {
	m, err := app.manager()
	if err != nil {
		return err
	}
	defer m.Close()
	rec, err := m.GetRun(c.RunID)
	if err != nil {
		return err
	}
	if c.Steps {
		steps, err := m.ListSteps(c.RunID)
		if err != nil {
			return fmt.Errorf("list steps: %w", err)
		}
		if c.JSON {
			return writeJSON(app, map[string]any{"run": rec, "steps": steps})
		}
		fmt.Fprintf(app.Stdout, "run_id: %s\nstatus: %s\n", rec.RunID, rec.Status)
		for _, s := range steps {
			fmt.Fprintf(app.Stdout, "%d\t%s\t%s\t%dms\t%s\n", s.Index, s.Name, s.Status, s.DurationMS, s.Error)
		}
		return nil
	}
	if c.Files {
		lock, err := m.Files(c.RunID)
		if err != nil {
			return fmt.Errorf("no file record for run %s: %w", c.RunID, err)
		}
		if c.JSON {
			return writeJSON(app, lock)
		}
		for _, f := range lock.Files {
			fmt.Fprintf(app.Stdout, "%s  %s\n", f.SHA256, f.Path)
		}
		return nil
	}
	lines, err := m.ReadEvents(c.RunID)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	for _, l := range lines {
		fmt.Fprintln(app.Stdout, l)
	}
	return nil
}

type TreeCmd struct {
	Dir   string `arg:"" optional:"" default:"." help:"Directory to print."`
	Depth int    `default:"3" help:"Maximum depth; 0 prints everything."`
}

func (c *TreeCmd) Run(app *App) error {
	skip := append([]string{filepath.Base(app.Globals.StateDir)}, scaffoldtree.DefaultSkip...)
	return scaffoldtree.Render(app.Stdout, app.FS, filepath.ToSlash(c.Dir), scaffoldtree.Options{MaxDepth: c.Depth, Skip: skip})
}

// loadConfig reads the config file, if any, and applies environment
// overrides. Flags are applied by the caller.
func loadConfig(app *App, explicit string) (config.Config, error) {
	cfg := config.Default()
	if path := config.Resolve(explicit, app.WorkDir, app.Getenv); path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(app.WorkDir, path)
		}
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	return cfg.ApplyEnv(app.Getenv), nil
}

func report(app *App, rec store.RunRecord, err error) error {
	if rec.RunID != "" {
		fmt.Fprintf(app.Stdout, "run_id: %s\nstatus: %s\n", rec.RunID, rec.Status)
	}
	if err == nil {
		return nil
	}
	if rec.ErrorKind != "" {
		return fmt.Errorf("run %s [%s]: %w", rec.Status, rec.ErrorKind, err)
	}
	return err
}

func writeJSON(app *App, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Stdout, string(b))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
