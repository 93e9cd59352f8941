package pipeline

import (
	"context"
	"time"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/plan"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/scene"
)

// State is a job's position in the pipeline state machine.
type State string

const (
	StateLocating   State = "locating"
	StateStaging    State = "staging"
	StateConverting State = "converting"
	StateFinalizing State = "finalizing"
	StateDone       State = "done"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether s ends a job's lifecycle.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateFailed, StateCancelled:
		return true
	}
	return false
}

// validNext holds the forward edges of the state machine. Failed and
// Cancelled are reachable from every non-terminal state and are applied
// directly at finish time rather than through this table.
var validNext = map[State]State{
	StateLocating:   StateStaging,
	StateStaging:    StateConverting,
	StateConverting: StateFinalizing,
	StateFinalizing: StateDone,
}

// Job is the single pipeline job record. It is created at admission,
// mutated only by the orchestrator, and archived to the job log when it
// reaches a terminal state.
type Job struct {
	ID         string
	Direction  scene.Direction
	Options    plan.Options
	SourcePath string
	DestPath   string

	State       State
	Err         error
	ObjectCount int
	CreatedAt   time.Time
	FinishedAt  time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// Wait blocks until the job reaches a terminal state or ctx is done. A
// failed job returns its error; a cancelled job returns ErrCancelled so
// callers can report user-initiated cancellation distinctly.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-j.done:
	}
	if j.Err != nil {
		return j.Err
	}
	if j.State == StateCancelled {
		return ErrCancelled
	}
	return nil
}

// Snapshot is a read-only copy of a job's externally visible fields.
type Snapshot struct {
	ID          string    `json:"id"`
	Direction   string    `json:"direction"`
	State       string    `json:"state"`
	Error       string    `json:"error,omitempty"`
	ObjectCount int       `json:"object_count"`
	CreatedAt   time.Time `json:"created_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

// snapshotLocked copies the visible fields; callers hold the orchestrator
// lock.
func (j *Job) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:          j.ID,
		Direction:   string(j.Direction),
		State:       string(j.State),
		ObjectCount: j.ObjectCount,
		CreatedAt:   j.CreatedAt,
		FinishedAt:  j.FinishedAt,
	}
	if j.Err != nil {
		s.Error = j.Err.Error()
	}
	return s
}
