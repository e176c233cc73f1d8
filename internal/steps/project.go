package steps

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fpp-125/djstarter/internal/naming"
	"github.com/fpp-125/djstarter/internal/pipeline"
	"github.com/fpp-125/djstarter/internal/toolrunner"
)

// CreateProject runs `django startproject`. An existing project with the
// same name is reused; any other non-empty directory is refused.
type CreateProject struct {
	Deps
	ProjectName string
}

func (*CreateProject) Name() string { return NameProject }

func (s *CreateProject) Execute(ctx context.Context, bc *pipeline.Context) error {
	if err := bc.Require(pipeline.KeyPythonCmd, pipeline.KeyWorkDir); err != nil {
		return err
	}
	python, _ := bc.String(pipeline.KeyPythonCmd)
	workDir, _ := bc.String(pipeline.KeyWorkDir)

	name, err := naming.Resolve(s.prompter(), "project name", s.ProjectName)
	if err != nil {
		return err
	}
	p := project{name: name, abs: filepath.Join(workDir, name)}
	if p.rel, err = s.rel(p.abs); err != nil {
		return err
	}

	switch {
	case s.exists(p.path("manage.py")) && s.exists(p.settings()):
		s.out().Infof("reusing existing project %s", p.abs)
	default:
		empty, err := s.isDirEmpty(p.rel)
		if err != nil {
			return err
		}
		if !empty {
			return &pipeline.ValidationError{Subject: "project directory " + p.abs, Reason: "exists and is not a Django project"}
		}
		err = s.run(ctx, toolrunner.Command{
			Name: python,
			Args: []string{"-m", "django", "startproject", name},
			Dir:  workDir,
		})
		if err != nil {
			s.out().Failf("could not create project %s", name)
			return fmt.Errorf("startproject %s: %w", name, err)
		}
		s.out().OKf("django project %s created", name)
	}

	bc.Set(pipeline.KeyProjectName, name)
	bc.Set(pipeline.KeyProjectRoot, p.abs)
	return nil
}

// CreateApps scaffolds each application module and wires it into settings
// and urls.
type CreateApps struct {
	Deps
	Apps []string
}

func (*CreateApps) Name() string { return NameApps }

func (s *CreateApps) Execute(ctx context.Context, bc *pipeline.Context) error {
	python, err := bc.String(pipeline.KeyPythonCmd)
	if err != nil {
		return err
	}
	p, err := s.project(bc)
	if err != nil {
		return err
	}

	candidates := s.Apps
	if len(candidates) == 0 {
		candidates = bc.StringsOr(pipeline.KeyAppNames)
	}
	if len(candidates) == 0 {
		answer, err := s.prompter().Ask("App names (comma separated)", "")
		if err != nil {
			return fmt.Errorf("%w: %w", &pipeline.ValidationError{Subject: "app names", Reason: "are required"}, err)
		}
		candidates = splitNames(answer)
	}
	apps, err := naming.ResolveAll(s.prompter(), "app name", candidates)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		return &pipeline.ValidationError{Subject: "app names", Reason: "must list at least one app"}
	}
	for _, app := range apps {
		if app == HomeApp {
			return &pipeline.ValidationError{Subject: "app name " + app, Reason: "is reserved for the landing page"}
		}
	}

	for _, app := range apps {
		if err := s.scaffoldApp(ctx, python, p, newAppModule(app, apps)); err != nil {
			return err
		}
		if err := s.register(p, apps, []string{app}); err != nil {
			return err
		}
		s.out().OKf("app %s created", app)
	}
	bc.Set(pipeline.KeyAppNames, apps)
	return nil
}

func splitNames(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
