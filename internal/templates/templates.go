// Package templates supplies the fixed file bodies written into a generated
// project. Bodies are text/template sources using [[ ]] delimiters so the
// Django {{ }} and {% %} syntax passes through untouched.
package templates

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/lithammer/dedent"
)

const (
	BaseHTML       = "templates/base.html"
	NotFoundHTML   = "templates/404.html"
	HomeHTML       = "home/home.html"
	HomeViews      = "home/views.py"
	HomeURLs       = "home/urls.py"
	AppHTML        = "app/app.html"
	AppViews       = "app/views.py"
	AppURLs        = "app/urls.py"
	AppSerializers = "app/serializers.py"
	AppCSS         = "app/style.css"
	AppJS          = "app/script.js"
	GitIgnore      = "gitignore"
	URLConf        = "project/urls.py"
)

// Data is the value every template is executed with.
type Data struct {
	Project string
	App     string
	Apps    []string
}

// Provider renders the named blob.
type Provider interface {
	Render(name string, data Data) ([]byte, error)
}

var blobs = map[string]string{
	BaseHTML: `
		<!DOCTYPE html>
		<html lang="en">
		<head>
		    <meta charset="UTF-8">
		    <meta name="viewport" content="width=device-width, initial-scale=1.0">
		    <title>{% block title %}[[.Project]]{% endblock %}</title>
		    <script src="https://cdn.tailwindcss.com"></script>
		    {% load static %}
		    {% block head %}{% endblock %}
		</head>
		<body>
		    {% block content %}
		    {% endblock %}
		    {% block scripts %}{% endblock %}
		</body>
		</html>
	`,
	NotFoundHTML: `
		<!DOCTYPE html>
		<html lang="en">
		<head>
		    <meta charset="UTF-8">
		    <meta name="viewport" content="width=device-width, initial-scale=1.0">
		    <title>404 - Page Not Found</title>
		    <script src="https://cdn.tailwindcss.com"></script>
		</head>
		<body class="min-h-screen bg-gray-100 flex flex-col items-center justify-center">
		    <h1 class="text-5xl font-bold text-red-600 mb-4">404 - Page Not Found</h1>
		    <p class="text-xl text-gray-700 mb-8">Sorry, the page you are looking for does not exist.</p>
		    <a href="{% url 'home' %}" class="bg-blue-600 text-white px-6 py-3 rounded-full font-semibold">Return to Home</a>
		</body>
		</html>
	`,
	HomeHTML: `
		{% extends 'base.html' %}
		{% block title %}[[.Project]] - Home{% endblock %}
		{% block content %}
		<div class="min-h-screen bg-gradient-to-r from-green-900 via-emerald-800 to-lime-700 flex flex-col items-center justify-center text-white">
		    <h1 class="text-5xl font-bold mb-4">Welcome to [[.Project]]!</h1>
		    <p class="text-xl mb-8">Your Django project is ready.</p>
		    <div class="space-x-4">
		        {% for app in apps %}
		        <a href="{% url app|add:'_home' %}" class="bg-emerald-600 text-white px-6 py-3 rounded-full font-semibold">
		            Visit {{ app|capfirst }}
		        </a>
		        {% endfor %}
		    </div>
		</div>
		{% endblock %}
	`,
	HomeViews: `
		from django.shortcuts import render

		APPS = [[pylist .Apps]]


		def home_view(request):
		    return render(request, 'home/home.html', {'apps': APPS})
	`,
	HomeURLs: `
		from django.urls import path

		from . import views

		urlpatterns = [
		    path('', views.home_view, name='home'),
		]
	`,
	AppHTML: `
		{% extends 'base.html' %}
		{% load static %}
		{% block title %}[[.App]]{% endblock %}
		{% block head %}<link rel="stylesheet" href="{% static '[[.App]]/css/style.css' %}">{% endblock %}
		{% block content %}
		<div class="min-h-screen flex flex-col items-center justify-center">
		    <h1 class="text-4xl font-bold mb-4">[[.App]]</h1>
		    <a href="{% url 'home' %}" class="underline">Back to home</a>
		</div>
		{% endblock %}
		{% block scripts %}<script src="{% static '[[.App]]/js/script.js' %}"></script>{% endblock %}
	`,
	AppViews: `
		from django.shortcuts import render


		def [[.App]]_home(request):
		    return render(request, '[[.App]]/[[.App]].html')
	`,
	AppURLs: `
		from django.urls import path

		from . import views

		urlpatterns = [
		    path('', views.[[.App]]_home, name='[[.App]]_home'),
		]
	`,
	AppSerializers: `
		from rest_framework import serializers
	`,
	AppCSS: `
		body {
		    font-family: system-ui, sans-serif;
		}
	`,
	AppJS: `
		document.addEventListener('DOMContentLoaded', () => {
		    console.log('[[.App]] loaded');
		});
	`,
	GitIgnore: `
		__pycache__/
		*.py[cod]
		*.sqlite3
		.env
		media/
		/staticfiles/
		venv/
		.venv/
	`,
	URLConf: `
		from django.contrib import admin
		from django.urls import path, include

		urlpatterns = [
		    path('admin/', admin.site.urls),
		[[- range .Apps]]
		    path('[[.]]/', include('[[.]].api_of_[[.]].urls')),
		[[- end]]
		]
	`,
}

var funcs = template.FuncMap{
	// pylist renders a Python list literal of single-quoted strings.
	"pylist": func(items []string) string {
		quoted := make([]string, len(items))
		for i, it := range items {
			quoted[i] = "'" + it + "'"
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	},
}

// Default is the built-in provider. The zero value is ready to use.
type Default struct {
	once sync.Once
	set  map[string]*template.Template
	err  error
}

func (d *Default) parse() {
	d.set = make(map[string]*template.Template, len(blobs))
	for name, body := range blobs {
		tpl, err := template.New(name).Delims("[[", "]]").Funcs(funcs).Parse(dedent.Dedent(body))
		if err != nil {
			d.err = fmt.Errorf("parse template %s: %w", name, err)
			return
		}
		d.set[name] = tpl
	}
}

func (d *Default) Render(name string, data Data) ([]byte, error) {
	d.once.Do(d.parse)
	if d.err != nil {
		return nil, d.err
	}
	tpl, ok := d.set[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	out := strings.TrimLeft(buf.String(), "\n")
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return []byte(out), nil
}

// Names lists the blobs Default knows about.
func Names() []string {
	out := make([]string, 0, len(blobs))
	for name := range blobs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
