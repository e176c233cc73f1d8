// Package pipeline runs an ordered list of build steps over a shared
// context, stopping at the first failure.
package pipeline

import (
	"context"
	"time"

	"github.com/fpp-125/djstarter/internal/logging"
)

// Step is one named unit of scaffolding work.
type Step interface {
	Name() string
	Execute(ctx context.Context, bc *Context) error
}

// Observer is notified around every step. Index is 1-based.
type Observer interface {
	StepStarted(index int, name string)
	StepFinished(index int, name string, elapsed time.Duration, err error)
}

type Pipeline struct {
	steps     []Step
	observers []Observer
}

func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

func (p *Pipeline) Observe(o Observer) {
	p.observers = append(p.observers, o)
}

func (p *Pipeline) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Run executes the steps in order. Nothing is rolled back on failure: files
// written by earlier steps stay on disk.
func (p *Pipeline) Run(ctx context.Context, bc *Context) (*Context, error) {
	if bc == nil {
		bc = NewContext(nil)
	}
	log := logging.FromContext(ctx)
	for i, s := range p.steps {
		idx := i + 1
		if err := ctx.Err(); err != nil {
			return bc, &StepError{Index: idx, Step: s.Name(), Err: err}
		}
		for _, o := range p.observers {
			o.StepStarted(idx, s.Name())
		}
		log.Debug("step started", "step", s.Name(), "index", idx)
		start := time.Now()
		err := s.Execute(ctx, bc)
		elapsed := time.Since(start)
		for _, o := range p.observers {
			o.StepFinished(idx, s.Name(), elapsed, err)
		}
		if err != nil {
			log.Error("step failed", "step", s.Name(), "index", idx, "duration", elapsed, "error", err)
			return bc, &StepError{Index: idx, Step: s.Name(), Err: err}
		}
		log.Info("step completed", "step", s.Name(), "index", idx, "duration", elapsed)
	}
	return bc, nil
}

// Func adapts a function into a Step.
type Func struct {
	StepName string
	Fn       func(ctx context.Context, bc *Context) error
}

func (f Func) Name() string { return f.StepName }

func (f Func) Execute(ctx context.Context, bc *Context) error { return f.Fn(ctx, bc) }
