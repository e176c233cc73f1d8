package steps

import (
	"context"
	"fmt"

	"github.com/fpp-125/djstarter/internal/pipeline"
	"github.com/fpp-125/djstarter/internal/toolrunner"
)

// Migrate runs makemigrations then migrate.
type Migrate struct {
	Deps
}

func (*Migrate) Name() string { return NameMigrate }

func (s *Migrate) Execute(ctx context.Context, bc *pipeline.Context) error {
	python, err := bc.String(pipeline.KeyPythonCmd)
	if err != nil {
		return err
	}
	p, err := s.project(bc)
	if err != nil {
		return err
	}
	for _, sub := range []string{"makemigrations", "migrate"} {
		err := s.run(ctx, toolrunner.Command{Name: python, Args: []string{p.manage(), sub}, Dir: p.abs})
		if err != nil {
			s.out().Failf("%s failed", sub)
			return fmt.Errorf("%s: %w", sub, err)
		}
	}
	s.out().OKf("database migrated")
	return nil
}
