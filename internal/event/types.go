package event

import "time"

type Type string

const (
	// Job lifecycle
	TypeJobAccepted Type = "job.accepted"
	TypeJobStage    Type = "job.stage"
	TypeJobFinished Type = "job.finished"

	// Ambient
	TypeCleanupWarning Type = "cleanup.warning"
)

type Event struct {
	Type      Type
	Timestamp time.Time
	Payload   any
}

// JobEvent is the payload for every job lifecycle event: one is published
// per state transition.
type JobEvent struct {
	JobID     string
	Direction string
	Stage     string
	Status    string
	Error     string
}

// CleanupEvent reports a best-effort cleanup that did not fully succeed.
// These are logged, never escalated to job failure.
type CleanupEvent struct {
	JobID   string
	Path    string
	Message string
}
