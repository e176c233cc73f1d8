package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultStateDir holds state.db and the per-run event logs.
const DefaultStateDir = ".djstarter"

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

type Store struct {
	db *sql.DB
}

type RunRecord struct {
	RunID      string `json:"runId"`
	Command    string `json:"command"`
	WorkDir    string `json:"workDir"`
	Project    string `json:"project,omitempty"`
	Status     string `json:"status"`
	FailedStep string `json:"failedStep,omitempty"`
	ErrorKind  string `json:"errorKind,omitempty"`
	LastError  string `json:"lastError,omitempty"`
	StartedAt  string `json:"startedAt"`
	EndedAt    string `json:"endedAt,omitempty"`
}

type StepRecord struct {
	RunID      string `json:"runId"`
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMS int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

func Open(stateDir string) (*Store, error) {
	if stateDir == "" {
		stateDir = DefaultStateDir
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(stateDir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			command TEXT NOT NULL,
			work_dir TEXT NOT NULL,
			project TEXT,
			status TEXT NOT NULL,
			failed_step TEXT,
			error_kind TEXT,
			last_error TEXT,
			started_at TEXT NOT NULL,
			ended_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			run_id TEXT NOT NULL,
			step_index INTEGER NOT NULL,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			error TEXT,
			PRIMARY KEY (run_id, step_index),
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) InsertRun(r RunRecord) error {
	if r.StartedAt == "" {
		r.StartedAt = now()
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, command, work_dir, project, status, failed_step, error_kind, last_error, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Command, r.WorkDir, nullableString(r.Project), r.Status, nullableString(r.FailedStep),
		nullableString(r.ErrorKind), nullableString(r.LastError), r.StartedAt, nullableString(r.EndedAt),
	)
	return err
}

// SetProject records the project name once a step has resolved it.
func (s *Store) SetProject(runID, project string) error {
	_, err := s.db.Exec(`UPDATE runs SET project = ? WHERE run_id = ?`, nullableString(project), runID)
	return err
}

func (s *Store) UpdateRunCompletion(runID, status, failedStep, errorKind, lastError string) error {
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, failed_step = ?, error_kind = ?, last_error = ?, ended_at = ? WHERE run_id = ?`,
		status, nullableString(failedStep), nullableString(errorKind), nullableString(lastError), now(), runID,
	)
	return err
}

// RecordStep stores the outcome of one step. Recording the same index twice
// keeps the latest outcome.
func (s *Store) RecordStep(r StepRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO steps (run_id, step_index, name, status, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, step_index) DO UPDATE SET
		   name = excluded.name, status = excluded.status,
		   duration_ms = excluded.duration_ms, error = excluded.error`,
		r.RunID, r.Index, r.Name, r.Status, r.DurationMS, nullableString(r.Error),
	)
	return err
}

const runColumns = `run_id, command, work_dir, COALESCE(project,''), status, COALESCE(failed_step,''),
	COALESCE(error_kind,''), COALESCE(last_error,''), started_at, COALESCE(ended_at,'')`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var r RunRecord
	err := row.Scan(&r.RunID, &r.Command, &r.WorkDir, &r.Project, &r.Status, &r.FailedStep,
		&r.ErrorKind, &r.LastError, &r.StartedAt, &r.EndedAt)
	return r, err
}

func (s *Store) GetRun(runID string) (RunRecord, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return RunRecord{}, err
	}
	return r, nil
}

func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RunRecord, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListSteps(runID string) ([]StepRecord, error) {
	rows, err := s.db.Query(`SELECT run_id, step_index, name, status, duration_ms, COALESCE(error,'')
		FROM steps WHERE run_id = ? ORDER BY step_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]StepRecord, 0)
	for rows.Next() {
		var r StepRecord
		if err := rows.Scan(&r.RunID, &r.Index, &r.Name, &r.Status, &r.DurationMS, &r.Error); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
