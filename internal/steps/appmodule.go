package steps

import (
	"context"
	"fmt"

	"github.com/go-git/go-billy/v5/util"

	"github.com/fpp-125/djstarter/internal/templates"
	"github.com/fpp-125/djstarter/internal/toolrunner"
)

// keepInApp lists what survives pruning besides api_of_<app>.
var keepInApp = []string{"__init__.py", "admin.py", "apps.py", "models.py", "migrations", "templates", "static"}

// appModule describes the files generated inside one Django app.
type appModule struct {
	name  string
	views string
	urls  string
	page  string
	// pageName is the file name under templates/<app>/.
	pageName string
	data     templates.Data
}

func newAppModule(app string, apps []string) appModule {
	return appModule{
		name:     app,
		views:    templates.AppViews,
		urls:     templates.AppURLs,
		page:     templates.AppHTML,
		pageName: app + ".html",
		data:     templates.Data{App: app, Apps: apps},
	}
}

// scaffoldApp runs startapp unless the app already exists, lays out the
// api_of_<app>, templates and static subtrees, then prunes the rest.
func (d Deps) scaffoldApp(ctx context.Context, python string, p project, m appModule) error {
	dir := p.path(m.name)
	if !d.exists(p.path(m.name, "apps.py")) {
		err := d.run(ctx, toolrunner.Command{
			Name: python,
			Args: []string{p.manage(), "startapp", m.name},
			Dir:  p.abs,
		})
		if err != nil {
			return fmt.Errorf("create app %s: %w", m.name, err)
		}
	}
	data := m.data
	data.Project = p.name

	api := dir + "/api_of_" + m.name
	if _, err := d.writeIfAbsent(api+"/__init__.py", nil); err != nil {
		return err
	}
	files := []struct{ name, tpl string }{
		{api + "/serializers.py", templates.AppSerializers},
		{api + "/views.py", m.views},
		{api + "/urls.py", m.urls},
		{dir + "/templates/" + m.name + "/" + m.pageName, m.page},
		{dir + "/static/" + m.name + "/css/style.css", templates.AppCSS},
		{dir + "/static/" + m.name + "/js/script.js", templates.AppJS},
	}
	for _, f := range files {
		if err := d.renderIfAbsent(f.name, f.tpl, data); err != nil {
			return err
		}
	}
	if _, err := d.writeIfAbsent(dir+"/static/"+m.name+"/images/.gitkeep", nil); err != nil {
		return err
	}
	return d.prune(dir, append([]string{"api_of_" + m.name}, keepInApp...))
}

// prune removes every entry of dir that is not in keep.
func (d Deps) prune(dir string, keep []string) error {
	allowed := make(map[string]bool, len(keep))
	for _, k := range keep {
		allowed[k] = true
	}
	entries, err := d.FS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if allowed[e.Name()] {
			continue
		}
		if err := util.RemoveAll(d.FS, dir+"/"+e.Name()); err != nil {
			return fmt.Errorf("prune %s/%s: %w", dir, e.Name(), err)
		}
	}
	return nil
}
