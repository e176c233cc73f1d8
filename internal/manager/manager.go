package manager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"

	"github.com/fpp-125/djstarter/internal/console"
	"github.com/fpp-125/djstarter/internal/locks"
	"github.com/fpp-125/djstarter/internal/logging"
	"github.com/fpp-125/djstarter/internal/logs"
	"github.com/fpp-125/djstarter/internal/pipeline"
	store "github.com/fpp-125/djstarter/internal/store/sqlite"
)

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

type Manager struct {
	stateDir string
	store    *store.Store
	newRunID func() string
}

type RunOptions struct {
	// Command names the CLI command that started the run.
	Command  string
	WorkDir  string
	Pipeline *pipeline.Pipeline
	// Context carries the run inputs; a fresh context is used when nil.
	Context *pipeline.Context
	Console *console.Printer
	// FS, when set, is hashed after a successful run to record the files
	// the project holds.
	FS billy.Filesystem
}

func New(stateDir string) (*Manager, error) {
	if stateDir == "" {
		stateDir = store.DefaultStateDir
	}
	s, err := store.Open(stateDir)
	if err != nil {
		return nil, err
	}
	return &Manager{stateDir: stateDir, store: s, newRunID: makeRunID}, nil
}

func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	return m.store.Close()
}

func (m *Manager) StateDir() string { return m.stateDir }

// Run executes the pipeline as one recorded run. The returned record is
// valid whenever its RunID is set, including on failure.
func (m *Manager) Run(ctx context.Context, opts RunOptions) (store.RunRecord, error) {
	if opts.Pipeline == nil {
		return store.RunRecord{}, fmt.Errorf("run %s: no pipeline", opts.Command)
	}
	out := opts.Console
	if out == nil {
		out = console.Discard()
	}
	runID := m.newRunID()
	rec := store.RunRecord{
		RunID:     runID,
		Command:   opts.Command,
		WorkDir:   opts.WorkDir,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := m.store.InsertRun(rec); err != nil {
		return store.RunRecord{}, err
	}
	log := logging.FromContext(ctx).With("run_id", runID)
	ctx = logging.WithLogger(ctx, log)
	_ = logs.AppendEvent(m.stateDir, runID, logs.Event{Phase: logs.PhaseRunStart, Message: opts.Command})

	obs := &recorder{m: m, runID: runID, out: out, total: len(opts.Pipeline.Steps())}
	opts.Pipeline.Observe(obs)
	bc, runErr := opts.Pipeline.Run(ctx, opts.Context)

	if name, err := bc.String(pipeline.KeyProjectName); err == nil {
		rec.Project = name
		_ = m.store.SetProject(runID, name)
	}

	rec.Status = StatusSucceeded
	if runErr != nil {
		rec.ErrorKind = Classify(runErr)
		rec.Status = StatusFailed
		if rec.ErrorKind == KindCancelled {
			rec.Status = StatusCancelled
		}
		var se *pipeline.StepError
		if errors.As(runErr, &se) {
			rec.FailedStep = se.Step
		}
		rec.LastError = runErr.Error()
	} else if rec.Project != "" {
		m.recordFiles(ctx, runID, rec.Project, opts, bc)
	}
	_ = m.store.UpdateRunCompletion(runID, rec.Status, rec.FailedStep, rec.ErrorKind, rec.LastError)
	rec.EndedAt = time.Now().UTC().Format(time.RFC3339Nano)
	_ = logs.AppendEvent(m.stateDir, runID, logs.Event{
		Phase:   logs.PhaseRunEnd,
		Step:    rec.FailedStep,
		Message: rec.Status,
		Kind:    rec.ErrorKind,
		Error:   rec.LastError,
	})
	if runErr != nil {
		log.Error("run failed", "status", rec.Status, "kind", rec.ErrorKind, "error", runErr)
		return rec, runErr
	}
	log.Info("run completed", "command", opts.Command)
	return rec, nil
}

func (m *Manager) ListRuns(limit int) ([]store.RunRecord, error) {
	return m.store.ListRuns(limit)
}

func (m *Manager) GetRun(runID string) (store.RunRecord, error) {
	return m.store.GetRun(runID)
}

func (m *Manager) ListSteps(runID string) ([]store.StepRecord, error) {
	return m.store.ListSteps(runID)
}

func (m *Manager) ReadEvents(runID string) ([]string, error) {
	return logs.ReadEvents(m.stateDir, runID)
}

// Files returns the file lock recorded by a successful run.
func (m *Manager) Files(runID string) (locks.Lock, error) {
	return locks.Load(m.lockPath(runID))
}

func (m *Manager) lockPath(runID string) string {
	return filepath.Join(m.stateDir, "runs", runID, "files.json")
}

// recordFiles hashes the project and logs how it differs from the last run
// that recorded the same project. Failures are logged, never fatal.
func (m *Manager) recordFiles(ctx context.Context, runID, project string, opts RunOptions, bc *pipeline.Context) {
	if opts.FS == nil {
		return
	}
	log := logging.FromContext(ctx)
	root, err := bc.String(pipeline.KeyProjectRoot)
	if err != nil {
		return
	}
	rel, err := filepath.Rel(opts.WorkDir, root)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		log.Warn("project outside working directory, files not recorded", "project_path", root)
		return
	}
	lock, err := locks.Generate(opts.FS, filepath.ToSlash(rel), locks.DefaultExcludes)
	if err != nil {
		log.Warn("hash project files", "error", err)
		return
	}
	if err := locks.Write(m.lockPath(runID), lock); err != nil {
		log.Warn("write file lock", "error", err)
		return
	}
	summary := "no earlier run"
	if prev, ok := m.previousLock(project, runID); ok {
		summary = locks.Diff(prev, lock).String()
	}
	_ = logs.AppendEvent(m.stateDir, runID, logs.Event{
		Phase:   logs.PhaseRunFiles,
		Message: fmt.Sprintf("%d files, %s", len(lock.Files), summary),
	})
}

func (m *Manager) previousLock(project, runID string) (locks.Lock, bool) {
	runs, err := m.store.ListRuns(100)
	if err != nil {
		return locks.Lock{}, false
	}
	for _, r := range runs {
		if r.RunID == runID || r.Project != project || r.Status != StatusSucceeded {
			continue
		}
		if l, err := locks.Load(m.lockPath(r.RunID)); err == nil {
			return l, true
		}
	}
	return locks.Lock{}, false
}

// recorder mirrors step progress into the store, the event log and the
// console.
type recorder struct {
	m     *Manager
	runID string
	out   *console.Printer
	total int
}

func (r *recorder) StepStarted(index int, name string) {
	r.out.Status(console.Step, "(%d/%d) %s", index, r.total, name)
	_ = r.m.store.RecordStep(store.StepRecord{RunID: r.runID, Index: index, Name: name, Status: StatusRunning})
	_ = logs.AppendEvent(r.m.stateDir, r.runID, logs.Event{Phase: logs.PhaseStepStart, Step: name, Index: index, Message: "started"})
}

func (r *recorder) StepFinished(index int, name string, elapsed time.Duration, err error) {
	st := store.StepRecord{RunID: r.runID, Index: index, Name: name, Status: StatusSucceeded, DurationMS: elapsed.Milliseconds()}
	ev := logs.Event{Phase: logs.PhaseStepEnd, Step: name, Index: index, Duration: elapsed.String(), Message: StatusSucceeded}
	if err != nil {
		kind := Classify(err)
		st.Status, st.Error = StatusFailed, err.Error()
		ev.Message, ev.Kind, ev.Error = StatusFailed, kind, err.Error()
		r.out.Failf("%s failed (%s): %v", name, kind, err)
	}
	_ = r.m.store.RecordStep(st)
	_ = logs.AppendEvent(r.m.stateDir, r.runID, ev)
}

// makeRunID returns a time-ordered id so listings sort naturally.
func makeRunID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
