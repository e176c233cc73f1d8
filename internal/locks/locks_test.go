package locks

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

func seed(t *testing.T, fsys billy.Filesystem, files map[string]string) {
	t.Helper()
	for name, body := range files {
		if err := util.WriteFile(fsys, name, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestGenerateSortsAndExcludes(t *testing.T) {
	fsys := memfs.New()
	seed(t, fsys, map[string]string{
		"site/manage.py":                    "m",
		"site/site/settings.py":             "s",
		"site/blog/__pycache__/x.pyc":       "c",
		"site/.git/HEAD":                    "ref",
		"site/media/.gitkeep":               "",
		"site/blog/api_of_blog/__init__.py": "",
	})
	l, err := Generate(fsys, "site", DefaultExcludes)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	var paths []string
	for _, f := range l.Files {
		paths = append(paths, f.Path)
	}
	want := "blog/api_of_blog/__init__.py,manage.py,site/settings.py"
	if got := strings.Join(paths, ","); got != want {
		t.Fatalf("paths = %s, want %s", got, want)
	}
	if l.Version != Version || !strings.HasPrefix(l.Digest, "sha256:") {
		t.Fatalf("unexpected header: %+v", l)
	}
}

func TestExcludesMatchNestedSegments(t *testing.T) {
	fsys := memfs.New()
	seed(t, fsys, map[string]string{
		"site/site/__pycache__/settings.cpython-312.pyc": "c",
		"site/blog/migrations/__pycache__/0001.pyc":      "c",
		"site/blog/migrations/0001_initial.py":           "m",
		"site/static/blog/media/logo.png":                "p",
		"site/docs/build/index.html":                     "h",
		"site/build/out.txt":                             "o",
	})
	l, err := Generate(fsys, "site", []string{"__pycache__", "media", "build/out.txt"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	var paths []string
	for _, f := range l.Files {
		paths = append(paths, f.Path)
	}
	want := "blog/migrations/0001_initial.py,docs/build/index.html"
	if got := strings.Join(paths, ","); got != want {
		t.Fatalf("paths = %s, want %s", got, want)
	}
}

func TestDigestTracksContent(t *testing.T) {
	fsys := memfs.New()
	seed(t, fsys, map[string]string{"p/a.py": "one"})
	first, err := Generate(fsys, "p", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	again, err := Generate(fsys, "p", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if first.Digest != again.Digest {
		t.Fatal("digest should be stable for unchanged files")
	}
	seed(t, fsys, map[string]string{"p/a.py": "two"})
	changed, err := Generate(fsys, "p", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if changed.Digest == first.Digest {
		t.Fatal("digest should change with file content")
	}
}

func TestDiff(t *testing.T) {
	before := Lock{Files: []FileHash{{"a", "1"}, {"b", "2"}, {"c", "3"}}}
	after := Lock{Files: []FileHash{{"a", "1"}, {"b", "9"}, {"d", "4"}}}
	c := Diff(before, after)
	if strings.Join(c.Added, ",") != "d" || strings.Join(c.Modified, ",") != "b" || strings.Join(c.Removed, ",") != "c" {
		t.Fatalf("unexpected changes: %+v", c)
	}
	if c.String() != "1 added, 1 modified, 1 removed" {
		t.Fatalf("String() = %q", c.String())
	}
	if !Diff(after, after).Empty() {
		t.Fatal("identical locks should not differ")
	}
}

func TestWriteLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "runs", "r1", "files.json")
	l := Lock{Version: Version, Digest: "sha256:x", Files: []FileHash{{"manage.py", "abc"}}}
	if err := Write(file, l); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := Load(file)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Digest != l.Digest || len(got.Files) != 1 || got.Files[0].Path != "manage.py" {
		t.Fatalf("unexpected lock: %+v", got)
	}
	if err := Write(file, Lock{Version: "other"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := Load(file); err == nil {
		t.Fatal("expected unsupported version to be rejected")
	}
}
