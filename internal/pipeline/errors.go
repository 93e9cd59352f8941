package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned by Submit while another job is still active.
	ErrBusy = errors.New("a conversion job is already active")

	// ErrCancelled is reported by Wait for a user-cancelled job.
	ErrCancelled = errors.New("conversion cancelled")

	// ErrNoActiveJob is returned by Cancel when nothing is running.
	ErrNoActiveJob = errors.New("no active job")

	// ErrUnknownJob is returned when a job id does not match the active
	// or most recently finished job.
	ErrUnknownJob = errors.New("unknown job")
)

// StageError wraps a failure with the pipeline stage it happened in.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage State, err error) error {
	return &StageError{Stage: stage, Err: err}
}
