// Package config loads djstarter.yaml: the answers a scaffold run would
// otherwise prompt for.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/fpp-125/djstarter/internal/naming"
)

const (
	APIVersion = "djstarter/v1"
	// FileName is looked up in the working directory when no path is given.
	FileName = "djstarter.yaml"

	EnvConfig   = "DJSTARTER_CONFIG"
	EnvStateDir = "DJSTARTER_STATE_DIR"
	EnvHost     = "DJANGO_HOST"
	EnvPort     = "DJANGO_PORT"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	APIVersion  string          `yaml:"apiVersion" validate:"eq=djstarter/v1"`
	Project     ProjectSpec     `yaml:"project"`
	Environment EnvironmentSpec `yaml:"environment"`
	Server      ServerSpec      `yaml:"server"`
	Git         GitSpec         `yaml:"git"`
}

type ProjectSpec struct {
	// Name is prompted for when empty.
	Name string   `yaml:"name,omitempty" validate:"omitempty,pyident"`
	Apps []string `yaml:"apps,omitempty" validate:"omitempty,unique,dive,pyident,ne=home"`
}

type EnvironmentSpec struct {
	Name     string   `yaml:"name" validate:"required"`
	Tool     string   `yaml:"tool" validate:"oneof=venv virtualenv"`
	Python   string   `yaml:"python" validate:"required"`
	Packages []string `yaml:"packages" validate:"min=1,dive,required"`
	// OS overrides host detection, mostly for tests.
	OS string `yaml:"os,omitempty"`
}

type ServerSpec struct {
	Run  bool   `yaml:"run"`
	Host string `yaml:"host" validate:"required,hostname_rfc1123|ip"`
	Port string `yaml:"port" validate:"required,numeric"`
}

type GitSpec struct {
	Init        bool   `yaml:"init"`
	Commit      bool   `yaml:"commit"`
	AuthorName  string `yaml:"authorName,omitempty"`
	AuthorEmail string `yaml:"authorEmail,omitempty" validate:"omitempty,email"`
}

func Default() Config {
	return Config{
		APIVersion: APIVersion,
		Environment: EnvironmentSpec{
			Name:     "venv",
			Tool:     "venv",
			Python:   "python3",
			Packages: []string{"django", "djangorestframework"},
		},
		Server: ServerSpec{Run: true, Host: "127.0.0.1", Port: "8000"},
	}
}

// Load reads path over the defaults. Fields absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Decode(bytes.NewReader(b))
	if err != nil {
		return Config{}, fmt.Errorf("parse yaml (%s): %w", filepath.Base(path), err)
	}
	return cfg, nil
}

func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve returns the config path to use: explicit, then $DJSTARTER_CONFIG,
// then FileName in dir when it exists. An empty result means defaults only.
func Resolve(explicit, dir string, getenv func(string) string) string {
	if explicit != "" {
		return explicit
	}
	if v := getenv(EnvConfig); v != "" {
		return v
	}
	candidate := filepath.Join(dir, FileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// ApplyEnv lets DJANGO_HOST and DJANGO_PORT override the server address.
func (c Config) ApplyEnv(getenv func(string) string) Config {
	if v := strings.TrimSpace(getenv(EnvHost)); v != "" {
		c.Server.Host = v
	}
	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		c.Server.Port = v
	}
	return c
}

// NormalizeAndValidate fills defaults for blank fields and validates the
// result.
func NormalizeAndValidate(c Config) (Config, error) {
	def := Default()
	if c.APIVersion == "" {
		c.APIVersion = def.APIVersion
	}
	if strings.TrimSpace(c.Environment.Name) == "" {
		c.Environment.Name = def.Environment.Name
	}
	if c.Environment.Tool == "" {
		c.Environment.Tool = def.Environment.Tool
	}
	c.Environment.Tool = strings.ToLower(c.Environment.Tool)
	if c.Environment.Python == "" {
		c.Environment.Python = def.Environment.Python
	}
	if len(c.Environment.Packages) == 0 {
		c.Environment.Packages = def.Environment.Packages
	}
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == "" {
		c.Server.Port = def.Server.Port
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, describe(err)
	}
	return c, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("pyident", func(fl validator.FieldLevel) bool {
		return naming.IsIdentifier(fl.Field().String())
	})
	return v
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		msgs = append(msgs, fmt.Sprintf("%s %s", field, reason(fe)))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "pyident":
		return fmt.Sprintf("%q is not a valid Python identifier", fe.Value())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "eq":
		return "must be " + fe.Param()
	case "ne":
		return fmt.Sprintf("must not be %q", fe.Param())
	case "unique":
		return "must not repeat names"
	case "min":
		return "needs at least " + fe.Param() + " entries"
	case "numeric":
		return "must be a number"
	case "email":
		return "must be an email address"
	case "hostname_rfc1123|ip":
		return "must be a host name or IP address"
	}
	return "failed " + fe.Tag() + " check"
}

// Template is the commented file written by `djstarter init`.
const Template = `# djstarter scaffold configuration
apiVersion: djstarter/v1

project:
  # Leave name empty to be asked interactively.
  name: mysite
  apps:
    - blog
    - shop

environment:
  name: venv
  # venv uses "python -m venv"; virtualenv needs the virtualenv program.
  tool: venv
  python: python3
  packages:
    - django
    - djangorestframework

server:
  # Start "manage.py runserver" once the project is ready.
  # DJANGO_HOST and DJANGO_PORT override host and port.
  run: true
  host: 127.0.0.1
  port: "8000"

git:
  init: false
  commit: false
`
