package steps

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/fpp-125/djstarter/internal/pipeline"
	"github.com/fpp-125/djstarter/internal/toolrunner"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = "8000"
)

// RunServer starts the development server and blocks until it exits or ctx
// is cancelled. Cancellation counts as a clean stop.
type RunServer struct {
	Deps
	Host string
	Port string
}

func (*RunServer) Name() string { return NameServer }

func (s *RunServer) Execute(ctx context.Context, bc *pipeline.Context) error {
	python, err := bc.String(pipeline.KeyPythonCmd)
	if err != nil {
		return err
	}
	p, err := s.project(bc)
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(orDefault(s.Host, DefaultHost), orDefault(s.Port, DefaultPort))

	cmd := toolrunner.Command{
		Name:   python,
		Args:   []string{p.manage(), "runserver", addr},
		Dir:    p.abs,
		Stdin:  os.Stdin,
		Stdout: s.ToolOutput,
		Stderr: s.ToolOutput,
	}
	if cmd.Stdout == nil {
		cmd.Stdout = s.out().Writer()
		cmd.Stderr = s.out().Writer()
	}
	s.out().OKf("development server starting at http://%s/", addr)
	s.out().Infof("stop the server with CTRL+C")
	_, err = s.Runner.Run(ctx, cmd)
	if ctx.Err() != nil && (err == nil || errors.Is(err, ctx.Err())) {
		s.out().OKf("development server stopped")
		return nil
	}
	if err != nil {
		s.out().Failf("development server exited")
		return fmt.Errorf("runserver: %w", err)
	}
	return nil
}
