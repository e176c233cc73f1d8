package steps

import (
	"context"

	"github.com/fpp-125/djstarter/internal/pipeline"
	"github.com/fpp-125/djstarter/internal/scaffoldtree"
)

// Summary prints the generated project tree.
type Summary struct {
	Deps
	MaxDepth int
}

func (*Summary) Name() string { return NameSummary }

func (s *Summary) Execute(_ context.Context, bc *pipeline.Context) error {
	p, err := s.project(bc)
	if err != nil {
		return err
	}
	depth := s.MaxDepth
	if depth == 0 {
		depth = 3
	}
	s.out().Infof("project layout:")
	return scaffoldtree.Render(s.out().Writer(), s.FS, p.rel, scaffoldtree.Options{MaxDepth: depth, Skip: scaffoldtree.DefaultSkip})
}
