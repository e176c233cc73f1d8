package pipeline

import "fmt"

// ValidationError reports a missing or malformed input: an absent context
// key, an invalid identifier, an empty environment name.
type ValidationError struct {
	Subject string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Subject, e.Reason)
}

// StepError identifies the step that aborted a run.
type StepError struct {
	Index int
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
