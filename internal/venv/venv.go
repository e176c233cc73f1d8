// Package venv materialises the isolated Python environment and resolves the
// interpreter and package-manager paths inside it.
package venv

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/fpp-125/djstarter/internal/toolrunner"
)

type Tool string

const (
	ToolVenv       Tool = "venv"
	ToolVirtualenv Tool = "virtualenv"
)

func ParseTool(v string) (Tool, error) {
	switch Tool(strings.ToLower(strings.TrimSpace(v))) {
	case "", ToolVenv:
		return ToolVenv, nil
	case ToolVirtualenv:
		return ToolVirtualenv, nil
	default:
		return "", fmt.Errorf("invalid environment tool: %s (want venv or virtualenv)", v)
	}
}

// Descriptor is produced once per run by the environment step.
type Descriptor struct {
	Root           string
	Interpreter    string
	PackageManager string
}

// Creator builds an environment named envName inside dir.
type Creator interface {
	Name() Tool
	Create(ctx context.Context, runner toolrunner.Runner, dir, envName string) error
}

// StdlibVenv uses the interpreter's own venv module.
type StdlibVenv struct {
	Python string
}

func (s StdlibVenv) Name() Tool { return ToolVenv }

func (s StdlibVenv) Create(ctx context.Context, runner toolrunner.Runner, dir, envName string) error {
	python := s.Python
	if python == "" {
		python = "python3"
	}
	_, err := runner.Run(ctx, toolrunner.Command{Name: python, Args: []string{"-m", "venv", envName}, Dir: dir})
	if err != nil {
		return fmt.Errorf("create environment with %s -m venv: %w", python, err)
	}
	return nil
}

// VirtualenvTool shells out to the external virtualenv program.
type VirtualenvTool struct{}

func (VirtualenvTool) Name() Tool { return ToolVirtualenv }

func (VirtualenvTool) Create(ctx context.Context, runner toolrunner.Runner, dir, envName string) error {
	if _, err := runner.LookPath("virtualenv"); err != nil {
		return &toolrunner.ExitError{Command: "virtualenv " + envName, ExitCode: -1, Err: fmt.Errorf("virtualenv is not installed on this host: %w", err)}
	}
	_, err := runner.Run(ctx, toolrunner.Command{Name: "virtualenv", Args: []string{envName}, Dir: dir})
	if err != nil {
		return fmt.Errorf("create environment with virtualenv: %w", err)
	}
	return nil
}

func NewCreator(tool Tool, python string) (Creator, error) {
	switch tool {
	case ToolVenv, "":
		return StdlibVenv{Python: python}, nil
	case ToolVirtualenv:
		return VirtualenvTool{}, nil
	default:
		return nil, fmt.Errorf("invalid environment tool: %s", tool)
	}
}

// Layout maps an environment root to executable paths for one OS family.
// Implementations are pure string functions so either layout can be computed
// on any host.
type Layout interface {
	Name() string
	Interpreter(root string) string
	PackageManager(root string) string
}

type Windows struct{}

func (Windows) Name() string { return "windows" }

func (Windows) Interpreter(root string) string { return windowsJoin(root, "Scripts", "python.exe") }

func (Windows) PackageManager(root string) string { return windowsJoin(root, "Scripts", "pip.exe") }

type POSIX struct{}

func (POSIX) Name() string { return "posix" }

func (POSIX) Interpreter(root string) string { return path.Join(root, "bin", "python") }

func (POSIX) PackageManager(root string) string { return path.Join(root, "bin", "pip") }

// SelectLayout picks Windows when osFamily mentions windows and POSIX for
// everything else.
func SelectLayout(osFamily string) Layout {
	if strings.Contains(strings.ToLower(osFamily), "windows") {
		return Windows{}
	}
	return POSIX{}
}

func Describe(root string, layout Layout) Descriptor {
	return Descriptor{
		Root:           root,
		Interpreter:    layout.Interpreter(root),
		PackageManager: layout.PackageManager(root),
	}
}

func windowsJoin(root string, parts ...string) string {
	out := strings.TrimRight(root, `\/`)
	for _, p := range parts {
		out += `\` + p
	}
	return out
}
