package logs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Event phases written by the run manager.
const (
	PhaseRunStart  = "run.start"
	PhaseStepStart = "step.start"
	PhaseStepEnd   = "step.end"
	PhaseRunFiles  = "run.files"
	PhaseRunEnd    = "run.end"
)

type Event struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"runId"`
	Phase     string `json:"phase"`
	Step      string `json:"step,omitempty"`
	Index     int    `json:"index,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Message   string `json:"message"`
	Kind      string `json:"kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

func Path(stateDir, runID string) string {
	return filepath.Join(stateDir, "runs", runID, "events.jsonl")
}

func AppendEvent(stateDir string, runID string, e Event) error {
	e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	e.RunID = runID
	path := Path(stateDir, runID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}

// ReadEvents returns the raw JSON lines of a run's event log in write order.
func ReadEvents(stateDir string, runID string) ([]string, error) {
	f, err := os.Open(Path(stateDir, runID))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return lines, nil
}

// DecodeEvents parses lines produced by ReadEvents.
func DecodeEvents(lines []string) ([]Event, error) {
	out := make([]Event, 0, len(lines))
	for i, l := range lines {
		var e Event
		if err := json.Unmarshal([]byte(l), &e); err != nil {
			return nil, fmt.Errorf("event %d: %w", i+1, err)
		}
		out = append(out, e)
	}
	return out, nil
}
