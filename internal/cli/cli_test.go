package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/fpp-125/djstarter/internal/config"
	"github.com/fpp-125/djstarter/internal/console"
	"github.com/fpp-125/djstarter/internal/steps/stepstest"
	"github.com/fpp-125/djstarter/internal/toolrunner/toolrunnertest"
)

type cliHarness struct {
	t        *testing.T
	workDir  string
	stateDir string
	runner   *toolrunnertest.Recorder
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	app      *App
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	h := &cliHarness{
		t:        t,
		workDir:  t.TempDir(),
		stateDir: t.TempDir(),
		runner:   toolrunnertest.New(),
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
	}
	fsys := osfs.New(h.workDir)
	stepstest.Django(h.runner, fsys, h.workDir)
	h.app = &App{
		Stdout:  h.stdout,
		Stderr:  h.stderr,
		Getenv:  func(string) string { return "" },
		WorkDir: h.workDir,
		FS:      fsys,
		Runner:  h.runner,
		Console: console.New(h.stdout, false),
	}
	return h
}

func (h *cliHarness) exec(args ...string) int {
	h.t.Helper()
	h.stdout.Reset()
	h.stderr.Reset()
	return run(context.Background(), append(args, "--state-dir", h.stateDir), h.app)
}

var runIDLine = regexp.MustCompile(`(?m)^run_id: (\S+)$`)

func (h *cliHarness) runID() string {
	h.t.Helper()
	m := runIDLine.FindStringSubmatch(h.stdout.String())
	if m == nil {
		h.t.Fatalf("no run_id in output:\n%s", h.stdout)
	}
	return m[1]
}

func TestNewThenInspect(t *testing.T) {
	h := newCLIHarness(t)
	if code := h.exec("new", "mysite", "-a", "blog,shop", "--no-server", "--no-input"); code != 0 {
		t.Fatalf("new exit = %d\nstdout:\n%s\nstderr:\n%s", code, h.stdout, h.stderr)
	}
	if !strings.Contains(h.stdout.String(), "status: succeeded") {
		t.Fatalf("missing status line:\n%s", h.stdout)
	}
	id := h.runID()
	for _, f := range []string{"mysite/manage.py", "mysite/blog/api_of_blog/urls.py", "mysite/requirements.txt", "mysite/.env"} {
		if _, err := os.Stat(filepath.Join(h.workDir, filepath.FromSlash(f))); err != nil {
			t.Fatalf("%s not generated: %v", f, err)
		}
	}

	if code := h.exec("runs"); code != 0 {
		t.Fatalf("runs exit = %d: %s", code, h.stderr)
	}
	if !strings.Contains(h.stdout.String(), id+"\tsucceeded\tnew\tmysite\t") {
		t.Fatalf("runs output missing run:\n%s", h.stdout)
	}

	if code := h.exec("events", id, "--steps"); code != 0 {
		t.Fatalf("events exit = %d: %s", code, h.stderr)
	}
	if !strings.Contains(h.stdout.String(), "1\tos-detect\tsucceeded") {
		t.Fatalf("step table missing os-detect:\n%s", h.stdout)
	}

	if code := h.exec("events", id, "--files"); code != 0 {
		t.Fatalf("events --files exit = %d: %s", code, h.stderr)
	}
	if !strings.Contains(h.stdout.String(), "  mysite/settings.py\n") {
		t.Fatalf("file record missing settings.py:\n%s", h.stdout)
	}

	if code := h.exec("events", id); code != 0 {
		t.Fatalf("events exit = %d: %s", code, h.stderr)
	}
	if !strings.Contains(h.stdout.String(), `"phase":"run.end"`) {
		t.Fatalf("raw events missing run.end:\n%s", h.stdout)
	}

	if code := h.exec("tree", "mysite", "--depth", "1"); code != 0 {
		t.Fatalf("tree exit = %d: %s", code, h.stderr)
	}
	if !strings.Contains(h.stdout.String(), "manage.py") {
		t.Fatalf("tree output missing manage.py:\n%s", h.stdout)
	}

	if code := h.exec("patch", "mysite"); code != 0 {
		t.Fatalf("patch exit = %d: %s", code, h.stderr)
	}
	settings, err := os.ReadFile(filepath.Join(h.workDir, "mysite", "mysite", "settings.py"))
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	if n := strings.Count(string(settings), `"blog",`); n != 1 {
		t.Fatalf("patch must not duplicate apps, found %d:\n%s", n, settings)
	}
}

func TestNewReportsFailingStep(t *testing.T) {
	h := newCLIHarness(t)
	h.runner.Fail("install", 1)
	if code := h.exec("new", "mysite", "-a", "blog", "--no-server", "--no-input"); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(h.stderr.String(), "[external_tool]") || !strings.Contains(h.stderr.String(), "install-framework") {
		t.Fatalf("diagnostic should name the step and kind:\n%s", h.stderr)
	}
	if !strings.Contains(h.stdout.String(), "status: failed") {
		t.Fatalf("missing failed status:\n%s", h.stdout)
	}
}

func TestNewUsesConfigFile(t *testing.T) {
	h := newCLIHarness(t)
	cfg := "apiVersion: djstarter/v1\nproject:\n  name: fromfile\n  apps: [notes]\nserver:\n  run: false\n"
	if err := os.WriteFile(filepath.Join(h.workDir, config.FileName), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if code := h.exec("new", "--no-input"); code != 0 {
		t.Fatalf("new exit = %d: %s", code, h.stderr)
	}
	if _, err := os.Stat(filepath.Join(h.workDir, "fromfile", "notes", "apps.py")); err != nil {
		t.Fatalf("config apps not scaffolded: %v", err)
	}
}

func TestNewRejectsInvalidFlags(t *testing.T) {
	h := newCLIHarness(t)
	if code := h.exec("new", "mysite", "--port", "http", "--no-input"); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(h.stderr.String(), "invalid configuration") {
		t.Fatalf("unexpected stderr:\n%s", h.stderr)
	}
	if len(h.runner.Calls) != 0 {
		t.Fatalf("no tool should run on invalid input, got %d calls", len(h.runner.Calls))
	}
}

func TestInit(t *testing.T) {
	h := newCLIHarness(t)
	if code := h.exec("init"); code != 0 {
		t.Fatalf("init exit = %d: %s", code, h.stderr)
	}
	written, err := config.Load(filepath.Join(h.workDir, config.FileName))
	if err != nil {
		t.Fatalf("written template should load: %v", err)
	}
	if written.Project.Name != "mysite" {
		t.Fatalf("unexpected template content: %+v", written.Project)
	}
	if code := h.exec("init"); code != 1 {
		t.Fatalf("second init should refuse to overwrite, got %d", code)
	}
	if code := h.exec("init", "--force"); code != 0 {
		t.Fatalf("init --force exit = %d: %s", code, h.stderr)
	}
}

func TestUsageAndErrors(t *testing.T) {
	h := newCLIHarness(t)
	if code := h.exec("--help"); code != 0 {
		t.Fatalf("--help exit = %d", code)
	}
	if !strings.Contains(h.stdout.String(), "djstarter") {
		t.Fatalf("help output missing program name:\n%s", h.stdout)
	}
	if code := h.exec("bogus"); code != 1 {
		t.Fatalf("unknown command exit = %d", code)
	}
	if code := h.exec("events", "nope"); code != 1 {
		t.Fatalf("events for unknown run exit = %d", code)
	}
	if !strings.Contains(h.stderr.String(), "run not found") {
		t.Fatalf("unexpected stderr:\n%s", h.stderr)
	}
}
