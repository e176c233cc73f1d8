package steps

import (
	"context"

	"github.com/fpp-125/djstarter/internal/patch"
	"github.com/fpp-125/djstarter/internal/pipeline"
	"github.com/fpp-125/djstarter/internal/templates"
)

// HomeApp is the landing app every scaffold gets; it is not a valid
// operator-chosen app name.
const HomeApp = "home"

// HomePage adds the landing app and routes it at the site root, ahead of
// every other route.
type HomePage struct {
	Deps
}

func (*HomePage) Name() string { return NameHomePage }

func (s *HomePage) Execute(ctx context.Context, bc *pipeline.Context) error {
	python, err := bc.String(pipeline.KeyPythonCmd)
	if err != nil {
		return err
	}
	p, err := s.project(bc)
	if err != nil {
		return err
	}
	apps := bc.StringsOr(pipeline.KeyAppNames)

	m := appModule{
		name:     HomeApp,
		views:    templates.HomeViews,
		urls:     templates.HomeURLs,
		page:     templates.HomeHTML,
		pageName: "home.html",
		data:     templates.Data{App: HomeApp, Apps: apps},
	}
	if err := s.scaffoldApp(ctx, python, p, m); err != nil {
		return err
	}
	if err := s.installApps(p, []string{HomeApp}); err != nil {
		return err
	}
	if err := s.routeApps(p, apps, []string{homeRoute(HomeApp)}, patch.AfterOpen); err != nil {
		return err
	}

	routes := []string{"home"}
	for _, a := range apps {
		routes = append(routes, a+"_home")
	}
	bc.Set(pipeline.KeyRoutes, routes)
	s.out().OKf("home page ready")
	return nil
}
