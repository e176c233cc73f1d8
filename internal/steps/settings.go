package steps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/fpp-125/djstarter/internal/patch"
	"github.com/fpp-125/djstarter/internal/pipeline"
	"github.com/fpp-125/djstarter/internal/templates"
	"github.com/fpp-125/djstarter/internal/toolrunner"
)

var staticBlock = []string{
	"# Static files configuration",
	"STATICFILES_DIRS = [",
	"    BASE_DIR / 'static',",
	"]",
}

// ConfigureSettings creates the global templates and static directories and
// patches settings.py and urls.py for every app.
type ConfigureSettings struct {
	Deps
}

func (*ConfigureSettings) Name() string { return NameSettings }

func (s *ConfigureSettings) Execute(_ context.Context, bc *pipeline.Context) error {
	p, err := s.project(bc)
	if err != nil {
		return err
	}
	apps, err := bc.Strings(pipeline.KeyAppNames)
	if err != nil {
		return err
	}

	if err := s.mkdir(p.path("static")); err != nil {
		return err
	}
	data := templates.Data{Project: p.name, Apps: apps}
	if err := s.renderIfAbsent(p.path("templates", "base.html"), templates.BaseHTML, data); err != nil {
		return err
	}
	if err := s.renderIfAbsent(p.path("templates", "404.html"), templates.NotFoundHTML, data); err != nil {
		return err
	}

	if err := s.patchSettings(p, apps); err != nil {
		return err
	}
	routes := make([]string, len(apps))
	for i, a := range apps {
		routes[i] = appRoute(a)
	}
	if err := s.routeApps(p, apps, routes, patch.BeforeClose); err != nil {
		return err
	}
	s.out().OKf("settings and urls configured for %s", strings.Join(apps, ", "))
	return nil
}

func (s *ConfigureSettings) patchSettings(p project, apps []string) error {
	doc, err := patch.Load(s.FS, p.settings())
	if err != nil {
		return err
	}
	entries := make([]string, len(apps))
	for i, a := range apps {
		entries[i] = appEntry(a)
	}
	if _, err := doc.InsertOnce(patch.List("INSTALLED_APPS"), entries, patch.BeforeClose); err != nil {
		return fmt.Errorf("register apps in %s: %w", p.settings(), err)
	}
	if _, err := doc.SetEntry(patch.List("TEMPLATES"), "DIRS", "'DIRS': [BASE_DIR / 'templates'],"); err != nil {
		return fmt.Errorf("set template dirs in %s: %w", p.settings(), err)
	}
	doc.AppendOnce("STATIC_URL", []string{"STATIC_URL = 'static/'"})
	doc.AppendOnce("STATICFILES_DIRS", staticBlock)
	return patch.Save(s.FS, p.settings(), doc)
}

// WriteEnv writes the project's .env file. Keys already present keep their
// values.
type WriteEnv struct {
	Deps
	Host string
	Port string
}

func (*WriteEnv) Name() string { return NameEnvFile }

func (s *WriteEnv) Execute(_ context.Context, bc *pipeline.Context) error {
	p, err := s.project(bc)
	if err != nil {
		return err
	}
	name := p.path(".env")
	values := map[string]string{}
	raw, err := util.ReadFile(s.FS, name)
	switch {
	case err == nil:
		if values, err = godotenv.UnmarshalBytes(raw); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("read %s: %w", name, err)
	}

	defaults := map[string]string{
		"DEBUG":         "True",
		"SECRET_KEY":    secretKey(),
		"ALLOWED_HOSTS": "127.0.0.1,localhost",
		"DJANGO_HOST":   orDefault(s.Host, DefaultHost),
		"DJANGO_PORT":   orDefault(s.Port, DefaultPort),
	}
	added := 0
	for k, v := range defaults {
		if _, ok := values[k]; !ok {
			values[k] = v
			added++
		}
	}
	if added == 0 {
		return nil
	}
	body, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.writeFile(name, []byte(body+"\n")); err != nil {
		return err
	}
	s.out().OKf("environment file written to %s", s.abs(name))
	return nil
}

func secretKey() string {
	return "django-insecure-" + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// FreezeRequirements streams `pip freeze` into requirements.txt.
type FreezeRequirements struct {
	Deps
}

func (*FreezeRequirements) Name() string { return NameRequirements }

func (s *FreezeRequirements) Execute(ctx context.Context, bc *pipeline.Context) (err error) {
	pip, err := bc.String(pipeline.KeyPipCmd)
	if err != nil {
		return err
	}
	p, err := s.project(bc)
	if err != nil {
		return err
	}
	name := p.path("requirements.txt")
	f, err := s.FS.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", name, cerr)
		}
	}()
	if _, err := s.Runner.Run(ctx, toolrunner.Command{Name: pip, Args: []string{"freeze"}, Stdout: f}); err != nil {
		s.out().Failf("could not generate requirements.txt")
		return fmt.Errorf("pip freeze: %w", err)
	}
	s.out().OKf("requirements written to %s", s.abs(name))
	return nil
}
