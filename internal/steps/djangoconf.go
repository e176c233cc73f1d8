package steps

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/fpp-125/djstarter/internal/patch"
	"github.com/fpp-125/djstarter/internal/pipeline"
	"github.com/fpp-125/djstarter/internal/templates"
)

const adminRoute = "path('admin/', admin.site.urls),"

// project addresses a generated Django project both on the host and inside
// Deps.FS.
type project struct {
	name string
	abs  string
	rel  string
}

func (d Deps) project(bc *pipeline.Context) (project, error) {
	name, err := bc.String(pipeline.KeyProjectName)
	if err != nil {
		return project{}, err
	}
	abs, err := bc.String(pipeline.KeyProjectRoot)
	if err != nil {
		return project{}, err
	}
	rel, err := d.rel(abs)
	if err != nil {
		return project{}, err
	}
	return project{name: name, abs: abs, rel: rel}, nil
}

func (p project) path(elem ...string) string {
	return path.Join(append([]string{p.rel}, elem...)...)
}

func (p project) settings() string { return p.path(p.name, "settings.py") }

func (p project) urls() string { return p.path(p.name, "urls.py") }

func (p project) manage() string { return filepath.Join(p.abs, "manage.py") }

func appEntry(app string) string { return "'" + app + "'," }

func appRoute(app string) string {
	return fmt.Sprintf("path('%s/', include('%s.api_of_%s.urls')),", app, app, app)
}

func homeRoute(app string) string {
	return fmt.Sprintf("path('', include('%s.api_of_%s.urls')),", app, app)
}

// installApps adds apps to INSTALLED_APPS. A settings file without the list
// is fatal.
func (d Deps) installApps(p project, apps []string) error {
	entries := make([]string, len(apps))
	for i, a := range apps {
		entries[i] = appEntry(a)
	}
	doc, err := patch.Load(d.FS, p.settings())
	if err != nil {
		return err
	}
	n, err := doc.InsertOnce(patch.List("INSTALLED_APPS"), entries, patch.BeforeClose)
	if err != nil {
		return fmt.Errorf("register apps in %s: %w", p.settings(), err)
	}
	if n == 0 {
		return nil
	}
	return patch.Save(d.FS, p.settings(), doc)
}

// routeApps inserts routes into urlpatterns. A missing or unparsable urls.py
// is replaced by a synthesized one listing the admin route and every app in
// known; a parsable file without urlpatterns gets a new list appended.
func (d Deps) routeApps(p project, known []string, routes []string, pos patch.Position) error {
	name := p.urls()
	doc, err := patch.Load(d.FS, name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if doc, err = d.synthesizeURLs(known); err != nil {
			return err
		}
	case err != nil:
		return err
	case doc.CheckSyntax() != nil:
		d.out().Warnf("%s does not parse, rewriting it", name)
		if doc, err = d.synthesizeURLs(known); err != nil {
			return err
		}
	}

	doc.EnsureImport("django.contrib", "admin")
	doc.EnsureImport("django.urls", "path")
	doc.EnsureImport("django.urls", "include")

	target := patch.List("urlpatterns")
	if _, err := doc.Locate(target); errors.Is(err, patch.ErrMarkerNotFound) {
		doc.AppendOnce("urlpatterns = [", []string{"urlpatterns = [", "    " + adminRoute, "]"})
	}
	if pos == patch.BeforeClose {
		routes = append([]string{adminRoute}, routes...)
	}
	if _, err := doc.InsertOnce(target, routes, pos); err != nil {
		return fmt.Errorf("register routes in %s: %w", name, err)
	}
	return patch.Save(d.FS, name, doc)
}

func (d Deps) synthesizeURLs(apps []string) (*patch.Document, error) {
	body, err := d.templates().Render(templates.URLConf, templates.Data{Apps: apps})
	if err != nil {
		return nil, err
	}
	return patch.Parse(body), nil
}

// register wires apps into settings and urls with their default routes.
func (d Deps) register(p project, known, apps []string) error {
	if err := d.installApps(p, apps); err != nil {
		return err
	}
	routes := make([]string, len(apps))
	for i, a := range apps {
		routes[i] = appRoute(a)
	}
	return d.routeApps(p, known, routes, patch.BeforeClose)
}
