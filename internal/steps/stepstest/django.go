// Package stepstest fakes the python, pip and django-admin processes the
// build steps invoke, materialising their output in a billy filesystem.
package stepstest

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/fpp-125/djstarter/internal/toolrunner"
	"github.com/fpp-125/djstarter/internal/toolrunner/toolrunnertest"
)

// Freeze is what the fake `pip freeze` prints.
const Freeze = "Django==5.0.6\ndjangorestframework==3.15.1\n"

// Django installs handlers on r that emulate startproject, startapp, venv
// creation, pip freeze and runserver against fsys, which is rooted at
// workDir.
func Django(r *toolrunnertest.Recorder, fsys billy.Filesystem, workDir string) {
	rel := func(dir string) string {
		p, err := filepath.Rel(workDir, dir)
		if err != nil || p == "." {
			return ""
		}
		return filepath.ToSlash(p)
	}
	last := func(cmd toolrunner.Command) string { return cmd.Args[len(cmd.Args)-1] }

	createEnv := func(_ context.Context, cmd toolrunner.Command) (toolrunner.Result, error) {
		return toolrunner.Result{}, write(fsys, path.Join(rel(cmd.Dir), last(cmd), "pyvenv.cfg"), "home = /usr/bin\n")
	}
	r.Handle("virtualenv", createEnv)
	r.Handle("venv", createEnv)
	r.Handle("startproject", func(_ context.Context, cmd toolrunner.Command) (toolrunner.Result, error) {
		return toolrunner.Result{}, StartProject(fsys, path.Join(rel(cmd.Dir), last(cmd)), last(cmd))
	})
	r.Handle("startapp", func(_ context.Context, cmd toolrunner.Command) (toolrunner.Result, error) {
		return toolrunner.Result{}, StartApp(fsys, path.Join(rel(cmd.Dir), last(cmd)), last(cmd))
	})
	r.Handle("freeze", func(_ context.Context, cmd toolrunner.Command) (toolrunner.Result, error) {
		if cmd.Stdout != nil {
			_, err := io.WriteString(cmd.Stdout, Freeze)
			return toolrunner.Result{}, err
		}
		return toolrunner.Result{Stdout: Freeze}, nil
	})
	r.Handle("runserver", func(ctx context.Context, cmd toolrunner.Command) (toolrunner.Result, error) {
		<-ctx.Done()
		return toolrunner.Result{ExitCode: -1}, &toolrunner.ExitError{Command: cmd.String(), ExitCode: -1, Err: ctx.Err()}
	})
}

// StartProject writes what `django-admin startproject name` generates into
// dir.
func StartProject(fsys billy.Filesystem, dir, name string) error {
	files := map[string]string{
		"manage.py":           managePy,
		name + "/__init__.py": "",
		name + "/settings.py": SettingsPy,
		name + "/urls.py":     URLsPy,
		name + "/asgi.py":     "application = None\n",
		name + "/wsgi.py":     "application = None\n",
	}
	for f, body := range files {
		if err := write(fsys, path.Join(dir, f), strings.ReplaceAll(body, "{{ project_name }}", name)); err != nil {
			return err
		}
	}
	return nil
}

// StartApp writes what `manage.py startapp name` generates into dir.
func StartApp(fsys billy.Filesystem, dir, name string) error {
	for _, f := range []string{"__init__.py", "admin.py", "apps.py", "models.py", "tests.py", "views.py", "migrations/__init__.py"} {
		if err := write(fsys, path.Join(dir, f), fmt.Sprintf("# %s %s\n", name, f)); err != nil {
			return err
		}
	}
	return nil
}

func write(fsys billy.Filesystem, name, body string) error {
	if err := fsys.MkdirAll(path.Dir(name), 0o755); err != nil {
		return err
	}
	return util.WriteFile(fsys, name, []byte(body), 0o644)
}

const managePy = `#!/usr/bin/env python
import os
import sys

if __name__ == "__main__":
    os.environ.setdefault("DJANGO_SETTINGS_MODULE", "{{ project_name }}.settings")
    from django.core.management import execute_from_command_line
    execute_from_command_line(sys.argv)
`

// SettingsPy is the settings module a current Django release generates.
const SettingsPy = `"""
Django settings for {{ project_name }} project.

Generated by 'django-admin startproject' using Django 5.0.6.
"""

from pathlib import Path

# Build paths inside the project like this: BASE_DIR / 'subdir'.
BASE_DIR = Path(__file__).resolve().parent.parent

SECRET_KEY = "django-insecure-test"

DEBUG = True

ALLOWED_HOSTS = []


# Application definition

INSTALLED_APPS = [
    "django.contrib.admin",
    "django.contrib.auth",
    "django.contrib.contenttypes",
    "django.contrib.sessions",
    "django.contrib.messages",
    "django.contrib.staticfiles",
]

MIDDLEWARE = [
    "django.middleware.security.SecurityMiddleware",
    "django.contrib.sessions.middleware.SessionMiddleware",
    "django.middleware.common.CommonMiddleware",
]

ROOT_URLCONF = "{{ project_name }}.urls"

TEMPLATES = [
    {
        "BACKEND": "django.template.backends.django.DjangoTemplates",
        "DIRS": [],
        "APP_DIRS": True,
        "OPTIONS": {
            "context_processors": [
                "django.template.context_processors.debug",
                "django.template.context_processors.request",
                "django.contrib.auth.context_processors.auth",
                "django.contrib.messages.context_processors.messages",
            ],
        },
    },
]

WSGI_APPLICATION = "{{ project_name }}.wsgi.application"

DATABASES = {
    "default": {
        "ENGINE": "django.db.backends.sqlite3",
        "NAME": BASE_DIR / "db.sqlite3",
    }
}

STATIC_URL = "static/"

DEFAULT_AUTO_FIELD = "django.db.models.BigAutoField"
`

// URLsPy is the URL configuration a current Django release generates.
const URLsPy = `"""
URL configuration for {{ project_name }} project.

The ` + "`urlpatterns`" + ` list routes URLs to views. For more information please see:
    https://docs.djangoproject.com/en/5.0/topics/http/urls/
Examples:
Function views
    1. Add an import:  from my_app import views
    2. Add a URL to urlpatterns:  path('', views.home, name='home')
Including another URLconf
    1. Import the include() function: from django.urls import include, path
    2. Add a URL to urlpatterns:  path('blog/', include('blog.urls'))
"""
from django.contrib import admin
from django.urls import path

urlpatterns = [
    path("admin/", admin.site.urls),
]
`
