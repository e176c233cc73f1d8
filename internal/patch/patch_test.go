package patch

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

const settingsPy = `"""
Django settings for mysite project.
"""

from pathlib import Path

BASE_DIR = Path(__file__).resolve().parent.parent

INSTALLED_APPS = [
    'django.contrib.admin',
    'django.contrib.auth',
    'django.contrib.staticfiles',
]

TEMPLATES = [
    {
        'BACKEND': 'django.template.backends.django.DjangoTemplates',
        'DIRS': [],
        'APP_DIRS': True,
        'OPTIONS': {
            'context_processors': [
                'django.template.context_processors.debug',
            ],
        },
    },
]

STATIC_URL = 'static/'
`

func doc(s string) *Document { return Parse([]byte(s)) }

func indexOf(d *Document, line string) int {
	for i, l := range d.Lines {
		if l == line {
			return i
		}
	}
	return -1
}

func count(d *Document, line string) int {
	n := 0
	for _, l := range d.Lines {
		if l == line {
			n++
		}
	}
	return n
}

func TestInsertOnceIsIdempotent(t *testing.T) {
	d := doc(settingsPy)
	apps := []string{"'blog',", "'shop',"}
	n, err := d.InsertOnce(List("INSTALLED_APPS"), apps, BeforeClose)
	if err != nil || n != 2 {
		t.Fatalf("first InsertOnce() = %d, %v", n, err)
	}
	once := d.String()
	n, err = d.InsertOnce(List("INSTALLED_APPS"), apps, BeforeClose)
	if err != nil || n != 0 {
		t.Fatalf("second InsertOnce() = %d, %v", n, err)
	}
	if d.String() != once {
		t.Fatalf("second application changed the document:\n%s", d.String())
	}
	blog := indexOf(d, "    'blog',")
	shop := indexOf(d, "    'shop',")
	static := indexOf(d, "    'django.contrib.staticfiles',")
	if !(static < blog && blog < shop) {
		t.Fatalf("unexpected order static=%d blog=%d shop=%d", static, blog, shop)
	}
	if d.Lines[shop+1] != "]" {
		t.Fatalf("entries must precede the closing bracket, next line %q", d.Lines[shop+1])
	}
	if count(d, "    'blog',") != 1 || count(d, "    'shop',") != 1 {
		t.Fatal("duplicate entries inserted")
	}
}

func TestInsertOnceSkipsDuplicatesInRequest(t *testing.T) {
	d := doc(settingsPy)
	n, err := d.InsertOnce(List("INSTALLED_APPS"), []string{"'blog',", "'blog',", "'django.contrib.auth',"}, BeforeClose)
	if err != nil || n != 1 {
		t.Fatalf("InsertOnce() = %d, %v", n, err)
	}
}

func TestLocateFindsTrueTerminalLine(t *testing.T) {
	d := doc(`urlpatterns = [
    path('a/', view, kwargs={'x': [1, 2]}),
    path('b/', include([
        path('c/', view),
    ])),
]
other = [1]
`)
	sp, err := d.Locate(List("urlpatterns"))
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if sp.Start != 0 || sp.End != 5 {
		t.Fatalf("Locate() = %+v, want {0 5}", sp)
	}
}

func TestLocateIgnoresBracketsInStringsAndComments(t *testing.T) {
	d := doc(`urlpatterns = [  # routes ]
    path('odd]/', view),
    path("also[", view),
]
`)
	sp, err := d.Locate(List("urlpatterns"))
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if sp.End != 3 {
		t.Fatalf("expected terminal line 3, got %d", sp.End)
	}
}

func TestLocateMarkerWithTrailingComment(t *testing.T) {
	d := doc("INSTALLED_APPS = [  # project apps\n    'a',\n]\n")
	if _, err := d.Locate(List("INSTALLED_APPS")); err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
}

func TestLocateSkipsMarkerInsideDocstring(t *testing.T) {
	d := doc(`"""
urlpatterns = [ example
"""
urlpatterns = [
    path('admin/', admin.site.urls),
]
`)
	sp, err := d.Locate(List("urlpatterns"))
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if sp.Start != 3 || sp.End != 5 {
		t.Fatalf("Locate() = %+v, want {3 5}", sp)
	}
}

func TestLocateErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want error
	}{
		{"missing marker", "X = [\n]\n", ErrMarkerNotFound},
		{"single line literal", "INSTALLED_APPS = ['a', 'b']\n", ErrParse},
		{"never closed", "INSTALLED_APPS = [\n    'a',\n", ErrParse},
		{"unterminated string", "INSTALLED_APPS = [\n    'a,\n]\n", ErrParse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := doc(tc.src).Locate(List("INSTALLED_APPS"))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestInsertOnceFollowsDoubleQuoteStyle(t *testing.T) {
	d := doc("INSTALLED_APPS = [\n    \"django.contrib.admin\",\n    \"blog\",\n]\n")
	n, err := d.InsertOnce(List("INSTALLED_APPS"), []string{"'blog',", "'shop',"}, BeforeClose)
	if err != nil || n != 1 {
		t.Fatalf("InsertOnce() = %d, %v", n, err)
	}
	if indexOf(d, `    "shop",`) != 3 {
		t.Fatalf("expected double-quoted shop entry, got:\n%s", d.String())
	}
}

func TestInsertOnceTerminatesPreviousEntry(t *testing.T) {
	d := doc("L = [\n    'a'  # first\n]\n")
	if _, err := d.InsertOnce(List("L"), []string{"'b',"}, BeforeClose); err != nil {
		t.Fatalf("InsertOnce() error = %v", err)
	}
	want := "L = [\n    'a', # first\n    'b',\n]\n"
	if d.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", d.String(), want)
	}
	if err := d.CheckSyntax(); err != nil {
		t.Fatalf("patched document should parse: %v", err)
	}
}

func TestInsertOnceTerminatesEntryOnOpeningLine(t *testing.T) {
	d := doc("INSTALLED_APPS = ['a'\n]\n")
	if _, err := d.InsertOnce(List("INSTALLED_APPS"), []string{"'b',"}, BeforeClose); err != nil {
		t.Fatalf("InsertOnce() error = %v", err)
	}
	want := "INSTALLED_APPS = ['a',\n    'b',\n]\n"
	if d.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", d.String(), want)
	}
}

func TestInsertOnceIgnoresTrailingComments(t *testing.T) {
	d := doc("INSTALLED_APPS = [\n    'django.contrib.admin',\n    'blog',  # blog app\n]\n")
	n, err := d.InsertOnce(List("INSTALLED_APPS"), []string{"'blog',", "'shop',"}, BeforeClose)
	if err != nil || n != 1 {
		t.Fatalf("InsertOnce() = %d, %v", n, err)
	}
	if strings.Count(d.String(), "'blog'") != 1 {
		t.Fatalf("commented entry should count as present:\n%s", d.String())
	}
}

func TestInsertOnceAfterOpen(t *testing.T) {
	d := doc("urlpatterns = [\n    path('admin/', admin.site.urls),\n]\n")
	entry := "path('', include('home.api_of_home.urls')),"
	if _, err := d.InsertOnce(List("urlpatterns"), []string{entry}, AfterOpen); err != nil {
		t.Fatalf("InsertOnce() error = %v", err)
	}
	if d.Lines[1] != "    "+entry {
		t.Fatalf("expected home route first, got %q", d.Lines[1])
	}
	if n, _ := d.InsertOnce(List("urlpatterns"), []string{entry}, AfterOpen); n != 0 {
		t.Fatalf("re-insert added %d lines", n)
	}
}

func TestInsertOnceEmptyLiteralIndent(t *testing.T) {
	d := doc("urlpatterns = [\n]\n")
	if _, err := d.InsertOnce(List("urlpatterns"), []string{"path('a/', v),"}, BeforeClose); err != nil {
		t.Fatalf("InsertOnce() error = %v", err)
	}
	if d.Lines[1] != "    path('a/', v)," {
		t.Fatalf("unexpected line %q", d.Lines[1])
	}
}

const dirsLine = "'DIRS': [BASE_DIR / 'templates'],"

func TestSetEntryReplacesExistingDirs(t *testing.T) {
	d := doc(settingsPy)
	before := d.Len()
	changed, err := d.SetEntry(List("TEMPLATES"), "DIRS", dirsLine)
	if err != nil || !changed {
		t.Fatalf("SetEntry() = %v, %v", changed, err)
	}
	if d.Len() != before {
		t.Fatalf("replacement must keep length %d, got %d", before, d.Len())
	}
	if count(d, "        "+dirsLine) != 1 {
		t.Fatalf("expected canonical DIRS line once:\n%s", d.String())
	}
	changed, err = d.SetEntry(List("TEMPLATES"), "DIRS", dirsLine)
	if err != nil || changed {
		t.Fatalf("second SetEntry() = %v, %v", changed, err)
	}
}

func TestSetEntryInsertsMissingDirs(t *testing.T) {
	d := doc(strings.Replace(settingsPy, "        'DIRS': [],\n", "", 1))
	before := d.Len()
	changed, err := d.SetEntry(List("TEMPLATES"), "DIRS", dirsLine)
	if err != nil || !changed {
		t.Fatalf("SetEntry() = %v, %v", changed, err)
	}
	if d.Len() != before+1 {
		t.Fatalf("insertion must add exactly one line: %d -> %d", before, d.Len())
	}
	i := indexOf(d, "        "+dirsLine)
	if i < 0 || d.Lines[i+1] != "    }," {
		t.Fatalf("DIRS must sit right before the dict's closing line:\n%s", d.String())
	}
	if err := d.CheckSyntax(); err != nil {
		t.Fatalf("patched settings should parse: %v", err)
	}
}

func TestSetEntryTerminatesLastDictEntry(t *testing.T) {
	d := doc("TEMPLATES = [\n    {\n        'BACKEND': 'x',\n        'APP_DIRS': True\n    },\n]\n")
	if _, err := d.SetEntry(List("TEMPLATES"), "DIRS", dirsLine); err != nil {
		t.Fatalf("SetEntry() error = %v", err)
	}
	if d.Lines[3] != "        'APP_DIRS': True," || d.Lines[4] != "        "+dirsLine {
		t.Fatalf("unexpected result:\n%s", d.String())
	}
	if err := d.CheckSyntax(); err != nil {
		t.Fatalf("patched settings should parse: %v", err)
	}
}

func TestSetEntryDoubleQuotedSettings(t *testing.T) {
	d := doc("TEMPLATES = [\n    {\n        \"BACKEND\": \"x\",\n        \"DIRS\": [],\n    },\n]\n")
	if _, err := d.SetEntry(List("TEMPLATES"), "DIRS", dirsLine); err != nil {
		t.Fatalf("SetEntry() error = %v", err)
	}
	if d.Lines[3] != `        "DIRS": [BASE_DIR / "templates"],` {
		t.Fatalf("unexpected DIRS line %q", d.Lines[3])
	}
}

func TestAppendOnce(t *testing.T) {
	d := doc(settingsPy)
	block := []string{"STATICFILES_DIRS = [", "    BASE_DIR / 'static',", "]"}
	if !d.AppendOnce("STATICFILES_DIRS", block) {
		t.Fatal("expected first append")
	}
	n := d.Len()
	if d.AppendOnce("STATICFILES_DIRS", block) || d.Len() != n {
		t.Fatal("second append must be a no-op")
	}
	if d.Lines[n-4] != "" {
		t.Fatalf("expected blank separator before block, got %q", d.Lines[n-4])
	}
}

func TestEnsureImport(t *testing.T) {
	d := doc("\"\"\"URLs.\"\"\"\nfrom django.contrib import admin\nfrom django.urls import path\n\nurlpatterns = [\n]\n")
	if !d.EnsureImport("django.urls", "include") {
		t.Fatal("expected include to be added")
	}
	if d.Lines[2] != "from django.urls import path, include" {
		t.Fatalf("unexpected import line %q", d.Lines[2])
	}
	if d.EnsureImport("django.urls", "include") || d.EnsureImport("django.urls", "path") {
		t.Fatal("existing names must not be re-added")
	}
	if !d.EnsureImport("django.conf", "settings") {
		t.Fatal("expected new from-import")
	}
	if d.Lines[3] != "from django.conf import settings" {
		t.Fatalf("new import should follow the last import, got %q", d.Lines[3])
	}
	if !d.EnsureImport("os", "") || d.EnsureImport("os", "") {
		t.Fatal("import os should be added exactly once")
	}
}

func TestEnsureImportAfterDocstring(t *testing.T) {
	d := doc("\"\"\"\nSettings.\n\"\"\"\n\nDEBUG = True\n")
	d.EnsureImport("os", "")
	if d.Lines[3] != "import os" {
		t.Fatalf("expected import after docstring, got:\n%s", d.String())
	}
}

func TestEnsureImportParenthesised(t *testing.T) {
	d := doc("from django.urls import (\n    path,\n)\n")
	if !d.EnsureImport("django.urls", "include") {
		t.Fatal("expected include to be added")
	}
	if d.Lines[2] != "    include," || d.Lines[3] != ")" {
		t.Fatalf("unexpected result:\n%s", d.String())
	}
}

func TestCheckSyntax(t *testing.T) {
	cases := []struct {
		name string
		src  string
		ok   bool
	}{
		{"settings", settingsPy, true},
		{"brackets in docstring", "\"\"\"\n[ ( {\n\"\"\"\nx = 1\n", true},
		{"mismatched", "urlpatterns = [\n    path('a/', v\n]\n", false},
		{"unclosed", "urlpatterns = [\n", false},
		{"unterminated triple", "\"\"\"\nabc\n", false},
		{"unterminated single", "x = 'abc\n", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := doc(tc.src).CheckSyntax()
			if tc.ok && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	fsys := memfs.New()
	if err := util.WriteFile(fsys, "mysite/mysite/settings.py", []byte(settingsPy), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	d, err := Load(fsys, "mysite/mysite/settings.py")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.String() != settingsPy {
		t.Fatal("round trip must preserve content")
	}
	if _, err := d.InsertOnce(List("INSTALLED_APPS"), []string{"'blog',"}, BeforeClose); err != nil {
		t.Fatalf("InsertOnce() error = %v", err)
	}
	if err := Save(fsys, "mysite/mysite/settings.py", d); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := util.ReadFile(fsys, "mysite/mysite/settings.py")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(got), "    'blog',\n]") {
		t.Fatalf("saved file missing insertion:\n%s", got)
	}
	entries, err := fsys.ReadDir("mysite/mysite")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("temporary files left behind: %v", names)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(memfs.New(), "nope.py"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
