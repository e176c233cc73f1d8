// Package steps holds the concrete build steps that scaffold a Django
// project. Every step reads its inputs from the pipeline context, writes
// files through a billy filesystem rooted at the working directory and runs
// external tools through a toolrunner.Runner.
package steps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/fpp-125/djstarter/internal/console"
	"github.com/fpp-125/djstarter/internal/prompt"
	"github.com/fpp-125/djstarter/internal/templates"
	"github.com/fpp-125/djstarter/internal/toolrunner"
)

const (
	NameOSDetect     = "os-detect"
	NameVirtualenv   = "virtualenv"
	NameInstall      = "install-framework"
	NameProject      = "create-project"
	NameApps         = "create-apps"
	NameSettings     = "configure-settings"
	NameEnvFile      = "write-env"
	NameRequirements = "freeze-requirements"
	NameHomePage     = "home-page"
	NameMedia        = "media-files"
	NameMigrate      = "migrate"
	NameGitInit      = "git-init"
	NameSummary      = "summary"
	NameServer       = "run-server"
)

// Deps are the collaborators shared by all steps.
type Deps struct {
	// FS is rooted at WorkDir.
	FS        billy.Filesystem
	WorkDir   string
	Runner    toolrunner.Runner
	Templates templates.Provider
	Prompter  prompt.Prompter
	Console   *console.Printer
	// ToolOutput receives the output of long-running tools when set;
	// otherwise it is captured.
	ToolOutput io.Writer
}

func (d Deps) out() *console.Printer {
	if d.Console == nil {
		return console.Discard()
	}
	return d.Console
}

func (d Deps) prompter() prompt.Prompter {
	if d.Prompter == nil {
		return prompt.Disabled{}
	}
	return d.Prompter
}

func (d Deps) templates() templates.Provider {
	if d.Templates == nil {
		return &templates.Default{}
	}
	return d.Templates
}

// abs maps a filesystem path to a host path.
func (d Deps) abs(rel string) string {
	return filepath.Join(d.WorkDir, filepath.FromSlash(rel))
}

// rel maps a host path below WorkDir to a filesystem path.
func (d Deps) rel(abs string) (string, error) {
	r, err := filepath.Rel(d.WorkDir, abs)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", abs, err)
	}
	r = filepath.ToSlash(r)
	if r == ".." || strings.HasPrefix(r, "../") {
		return "", fmt.Errorf("%s is outside the working directory %s", abs, d.WorkDir)
	}
	return r, nil
}

func (d Deps) exists(name string) bool {
	_, err := d.FS.Stat(name)
	return err == nil
}

func (d Deps) writeFile(name string, data []byte) error {
	if err := d.FS.MkdirAll(path.Dir(name), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", path.Dir(name), err)
	}
	if err := util.WriteFile(d.FS, name, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// writeIfAbsent leaves existing files alone so re-runs keep operator edits.
func (d Deps) writeIfAbsent(name string, data []byte) (bool, error) {
	if _, err := d.FS.Stat(name); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", name, err)
	}
	return true, d.writeFile(name, data)
}

func (d Deps) renderIfAbsent(name, tpl string, data templates.Data) error {
	if d.exists(name) {
		return nil
	}
	body, err := d.templates().Render(tpl, data)
	if err != nil {
		return err
	}
	return d.writeFile(name, body)
}

func (d Deps) mkdir(name string) error {
	if err := d.FS.MkdirAll(name, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	return nil
}

func (d Deps) run(ctx context.Context, cmd toolrunner.Command) error {
	if d.ToolOutput != nil && cmd.Stdout == nil {
		cmd.Stdout = d.ToolOutput
		cmd.Stderr = d.ToolOutput
	}
	_, err := d.Runner.Run(ctx, cmd)
	return err
}

// isDirEmpty reports whether name is missing or has no entries.
func (d Deps) isDirEmpty(name string) (bool, error) {
	entries, err := d.FS.ReadDir(name)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	return len(entries) == 0, nil
}
