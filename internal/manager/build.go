package manager

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/fpp-125/djstarter/internal/config"
	"github.com/fpp-125/djstarter/internal/patch"
	"github.com/fpp-125/djstarter/internal/pipeline"
	"github.com/fpp-125/djstarter/internal/steps"
	"github.com/fpp-125/djstarter/internal/venv"
)

// Scaffold assembles the full project pipeline in its fixed order. The git
// and server steps are included only when cfg enables them.
func Scaffold(cfg config.Config, deps steps.Deps) (*pipeline.Pipeline, error) {
	tool, err := venv.ParseTool(cfg.Environment.Tool)
	if err != nil {
		return nil, err
	}
	creator, err := venv.NewCreator(tool, cfg.Environment.Python)
	if err != nil {
		return nil, err
	}
	list := []pipeline.Step{
		steps.OSDetect{Family: cfg.Environment.OS},
		&steps.Virtualenv{Deps: deps, EnvName: cfg.Environment.Name, Creator: creator},
		&steps.InstallFramework{Deps: deps, Packages: cfg.Environment.Packages},
		&steps.CreateProject{Deps: deps, ProjectName: cfg.Project.Name},
		&steps.CreateApps{Deps: deps, Apps: cfg.Project.Apps},
		&steps.ConfigureSettings{Deps: deps},
		&steps.WriteEnv{Deps: deps, Host: cfg.Server.Host, Port: cfg.Server.Port},
		&steps.FreezeRequirements{Deps: deps},
		&steps.HomePage{Deps: deps},
		&steps.MediaFiles{Deps: deps},
		&steps.Migrate{Deps: deps},
	}
	if cfg.Git.Init {
		list = append(list, &steps.GitInit{
			Deps:        deps,
			Commit:      cfg.Git.Commit,
			AuthorName:  cfg.Git.AuthorName,
			AuthorEmail: cfg.Git.AuthorEmail,
		})
	}
	list = append(list, &steps.Summary{Deps: deps})
	if cfg.Server.Run {
		list = append(list, &steps.RunServer{Deps: deps, Host: cfg.Server.Host, Port: cfg.Server.Port})
	}
	return pipeline.New(list...), nil
}

// ScaffoldInputs is the initial context of a scaffold run.
func ScaffoldInputs(deps steps.Deps) *pipeline.Context {
	return pipeline.NewContext(map[pipeline.Key]any{pipeline.KeyWorkDir: deps.WorkDir})
}

// Patch re-applies the settings, urls and media edits to an existing project.
func Patch(deps steps.Deps) *pipeline.Pipeline {
	return pipeline.New(
		&steps.ConfigureSettings{Deps: deps},
		&steps.MediaFiles{Deps: deps},
	)
}

// PatchInputs seeds the context Patch needs. Apps default to the app
// packages found in the project directory.
func PatchInputs(cfg config.Config, deps steps.Deps) (*pipeline.Context, error) {
	name := cfg.Project.Name
	if name == "" {
		return nil, &pipeline.ValidationError{Subject: "project name", Reason: "is required to patch a project"}
	}
	if _, err := deps.FS.Stat(path.Join(name, "manage.py")); err != nil {
		return nil, fmt.Errorf("%s is not a generated project: %w", name, err)
	}
	apps := cfg.Project.Apps
	if len(apps) == 0 {
		found, err := DiscoverApps(deps.FS, name)
		if err != nil {
			return nil, err
		}
		apps = found
	}
	if len(apps) == 0 {
		return nil, &pipeline.ValidationError{Subject: "app names", Reason: "none configured and none found in " + name}
	}
	return pipeline.NewContext(map[pipeline.Key]any{
		pipeline.KeyWorkDir:     deps.WorkDir,
		pipeline.KeyProjectName: name,
		pipeline.KeyProjectRoot: filepath.Join(deps.WorkDir, name),
		pipeline.KeyAppNames:    apps,
	}), nil
}

// DiscoverApps lists the app packages directly below the project directory.
// Apps already in INSTALLED_APPS keep that order so re-registration matches
// the original run; the rest follow sorted by name. The landing app is left
// out.
func DiscoverApps(fsys billy.Filesystem, project string) ([]string, error) {
	entries, err := fsys.ReadDir(project)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", project, err)
	}
	var apps []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == steps.HomeApp {
			continue
		}
		if _, err := fsys.Stat(path.Join(project, e.Name(), "apps.py")); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		apps = append(apps, e.Name())
	}
	rank := installedOrder(fsys, path.Join(project, project, "settings.py"))
	sort.Slice(apps, func(i, j int) bool {
		ri, iok := rank[apps[i]]
		rj, jok := rank[apps[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return apps[i] < apps[j]
	})
	return apps, nil
}

// installedOrder maps each INSTALLED_APPS entry to its position. A missing or
// unparseable settings file yields an empty map.
func installedOrder(fsys billy.Filesystem, settings string) map[string]int {
	rank := map[string]int{}
	doc, err := patch.Load(fsys, settings)
	if err != nil {
		return rank
	}
	sp, err := doc.Locate(patch.List("INSTALLED_APPS"))
	if err != nil {
		return rank
	}
	for i := sp.Start + 1; i < sp.End; i++ {
		entry := strings.TrimSpace(doc.Lines[i])
		if idx := strings.Index(entry, "#"); idx >= 0 {
			entry = strings.TrimSpace(entry[:idx])
		}
		entry = strings.Trim(strings.TrimSuffix(entry, ","), `'"`)
		if entry == "" {
			continue
		}
		if _, ok := rank[entry]; !ok {
			rank[entry] = len(rank)
		}
	}
	return rank
}
