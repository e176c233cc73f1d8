package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// Key names one fact in the build context.
type Key string

const (
	KeyWorkDir     Key = "work_dir"
	KeyOSFamily    Key = "os"
	KeyVenvRoot    Key = "venv_path"
	KeyPythonCmd   Key = "python_cmd"
	KeyPipCmd      Key = "pip_cmd"
	KeyEnvironment Key = "environment"
	KeyProjectName Key = "project_name"
	KeyProjectRoot Key = "project_path"
	KeyAppNames    Key = "app_names"
	KeyRoutes      Key = "routes"
)

// Context is the run-scoped state shared by all steps of one pipeline run.
// A step may only rely on keys that are run inputs or were written by an
// earlier step.
type Context struct {
	values map[Key]any
}

func NewContext(inputs map[Key]any) *Context {
	c := &Context{values: make(map[Key]any, len(inputs)+8)}
	for k, v := range inputs {
		c.values[k] = v
	}
	return c
}

func (c *Context) Set(k Key, v any) { c.values[k] = v }

func (c *Context) Get(k Key) (any, bool) {
	v, ok := c.values[k]
	return v, ok
}

func (c *Context) Has(k Key) bool {
	_, ok := c.values[k]
	return ok
}

func (c *Context) Keys() []Key {
	keys := make([]Key, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Value returns the value stored under k, failing when it is absent or of
// another type.
func Value[T any](c *Context, k Key) (T, error) {
	var zero T
	raw, ok := c.values[k]
	if !ok {
		return zero, &ValidationError{Subject: string(k), Reason: "missing from build context"}
	}
	v, ok := raw.(T)
	if !ok {
		return zero, &ValidationError{Subject: string(k), Reason: fmt.Sprintf("has type %T, want %T", raw, zero)}
	}
	return v, nil
}

// String returns a present, non-blank string value.
func (c *Context) String(k Key) (string, error) {
	v, err := Value[string](c, k)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(v) == "" {
		return "", &ValidationError{Subject: string(k), Reason: "is empty"}
	}
	return v, nil
}

// Strings returns a present, non-empty list.
func (c *Context) Strings(k Key) ([]string, error) {
	v, err := Value[[]string](c, k)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, &ValidationError{Subject: string(k), Reason: "is empty"}
	}
	return v, nil
}

// StringsOr returns the list under k or nil when it was never written.
func (c *Context) StringsOr(k Key) []string {
	v, _ := c.values[k].([]string)
	return v
}

// Require checks several string keys at once and reports the first problem.
func (c *Context) Require(keys ...Key) error {
	for _, k := range keys {
		if _, err := c.String(k); err != nil {
			return err
		}
	}
	return nil
}
