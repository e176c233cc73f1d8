package scaffoldtree

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

func seed(t *testing.T) *bytes.Buffer {
	t.Helper()
	fsys := memfs.New()
	for _, name := range []string{
		"mysite/manage.py",
		"mysite/mysite/settings.py",
		"mysite/blog/models.py",
		"mysite/blog/api_of_blog/urls.py",
		"mysite/.git/HEAD",
	} {
		if err := util.WriteFile(fsys, name, []byte("x"), 0o644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	var buf bytes.Buffer
	if err := Render(&buf, fsys, "mysite", Options{Skip: DefaultSkip}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return &buf
}

func TestRender(t *testing.T) {
	out := seed(t).String()
	if !strings.HasPrefix(out, "mysite/\n") {
		t.Fatalf("tree should start with the root label:\n%s", out)
	}
	for _, want := range []string{"blog/", "api_of_blog/", "urls.py", "manage.py", "settings.py"} {
		if !strings.Contains(out, want) {
			t.Fatalf("tree missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, ".git") {
		t.Fatalf("skipped directory rendered:\n%s", out)
	}
	if strings.Index(out, "blog/") > strings.Index(out, "manage.py") {
		t.Fatalf("directories should sort before files:\n%s", out)
	}
}

func TestRenderMaxDepth(t *testing.T) {
	fsys := memfs.New()
	if err := util.WriteFile(fsys, "p/a/b/c.txt", []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var buf bytes.Buffer
	if err := Render(&buf, fsys, "p", Options{MaxDepth: 1}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(buf.String(), "a/") || strings.Contains(buf.String(), "b/") {
		t.Fatalf("depth limit not applied:\n%s", buf.String())
	}
}
