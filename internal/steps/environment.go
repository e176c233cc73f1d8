package steps

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fpp-125/djstarter/internal/logging"
	"github.com/fpp-125/djstarter/internal/pipeline"
	"github.com/fpp-125/djstarter/internal/toolrunner"
	"github.com/fpp-125/djstarter/internal/venv"
)

// DefaultPackages are installed when no package list is configured.
var DefaultPackages = []string{"django", "djangorestframework"}

// OSDetect publishes the host OS family. Family overrides detection.
type OSDetect struct {
	Family string
}

func (OSDetect) Name() string { return NameOSDetect }

func (s OSDetect) Execute(ctx context.Context, bc *pipeline.Context) error {
	family := s.Family
	if family == "" {
		family = osFamily(runtime.GOOS)
	}
	bc.Set(pipeline.KeyOSFamily, family)
	logging.FromContext(ctx).Debug("detected os", "family", family)
	return nil
}

func osFamily(goos string) string {
	switch goos {
	case "windows":
		return "Windows"
	case "darwin":
		return "Darwin"
	case "linux":
		return "Linux"
	case "":
		return "Unknown"
	}
	return strings.ToUpper(goos[:1]) + goos[1:]
}

// Virtualenv creates the isolated environment and publishes the interpreter
// and package manager paths inside it.
type Virtualenv struct {
	Deps
	EnvName string
	Creator venv.Creator
	// Layout is chosen from the detected OS family when nil.
	Layout venv.Layout
}

func (*Virtualenv) Name() string { return NameVirtualenv }

func (s *Virtualenv) Execute(ctx context.Context, bc *pipeline.Context) error {
	workDir, err := bc.String(pipeline.KeyWorkDir)
	if err != nil {
		return err
	}
	family, err := bc.String(pipeline.KeyOSFamily)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(s.EnvName)
	if name == "" {
		if name, err = s.prompter().Ask("Virtual environment name", ""); err != nil {
			return fmt.Errorf("%w: %w", &pipeline.ValidationError{Subject: "environment name", Reason: "is required"}, err)
		}
		name = strings.TrimSpace(name)
	}
	if name == "" {
		return &pipeline.ValidationError{Subject: "environment name", Reason: "must not be empty"}
	}

	root := filepath.Join(workDir, name)
	rel, err := s.rel(root)
	if err != nil {
		return err
	}
	if s.exists(rel + "/pyvenv.cfg") {
		s.out().Infof("reusing virtual environment at %s", root)
	} else {
		creator := s.Creator
		if creator == nil {
			creator = venv.StdlibVenv{}
		}
		if err := creator.Create(ctx, s.Runner, workDir, name); err != nil {
			s.out().Failf("could not create virtual environment %s with %s", name, creator.Name())
			return err
		}
		s.out().OKf("virtual environment created at %s", root)
	}

	layout := s.Layout
	if layout == nil {
		layout = venv.SelectLayout(family)
	}
	env := venv.Describe(root, layout)
	bc.Set(pipeline.KeyVenvRoot, env.Root)
	bc.Set(pipeline.KeyPythonCmd, env.Interpreter)
	bc.Set(pipeline.KeyPipCmd, env.PackageManager)
	bc.Set(pipeline.KeyEnvironment, env)
	logging.FromContext(ctx).Debug("environment ready", "root", env.Root, "layout", layout.Name())
	return nil
}

// InstallFramework installs Django and friends into the environment.
type InstallFramework struct {
	Deps
	Packages []string
}

func (*InstallFramework) Name() string { return NameInstall }

func (s *InstallFramework) Execute(ctx context.Context, bc *pipeline.Context) error {
	pip, err := bc.String(pipeline.KeyPipCmd)
	if err != nil {
		return err
	}
	pkgs := s.Packages
	if len(pkgs) == 0 {
		pkgs = DefaultPackages
	}
	s.out().Infof("installing %s", strings.Join(pkgs, ", "))
	err = s.run(ctx, toolrunner.Command{Name: pip, Args: append([]string{"install"}, pkgs...)})
	if err != nil {
		s.out().Failf("package installation failed")
		return fmt.Errorf("install %s: %w", strings.Join(pkgs, " "), err)
	}
	s.out().OKf("installed %s", strings.Join(pkgs, ", "))
	return nil
}
