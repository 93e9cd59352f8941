// Package joblog is the process-wide append-only diagnostic sink. It is
// opened once at startup, written to for the whole process lifetime, and
// read only out-of-band: there is no query surface here.
package joblog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/event"
)

// Entry is one appended record. Entries are never mutated after write.
type Entry struct {
	Time    time.Time `json:"time"`
	JobID   string    `json:"job_id"`
	Stage   string    `json:"stage"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
}

// Aggregator appends JSON-line entries to a fixed-path log file, one flush
// per entry.
type Aggregator struct {
	mu sync.Mutex
	f  *os.File
}

// Open creates or appends to the log file at path, creating parents.
func Open(path string) (*Aggregator, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open job log: %w", err)
	}
	return &Aggregator{f: f}, nil
}

// Append writes one entry. Failures are logged and swallowed: diagnostics
// must never take a conversion down with them.
func (a *Aggregator) Append(e Entry) {
	if a == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Msg("job log entry not serializable")
		return
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.f.Write(data); err != nil {
		log.Error().Err(err).Msg("job log append failed")
		return
	}
	_ = a.f.Sync()
}

// Close releases the underlying file. Only called at process shutdown.
func (a *Aggregator) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.f.Close()
}

// Attach subscribes the aggregator to job lifecycle and cleanup events on
// the bus. Returns an unsubscribe func.
func (a *Aggregator) Attach(bus event.Bus) func() {
	offStage := bus.Subscribe(event.TypeJobStage, a.onJobEvent)
	offAccepted := bus.Subscribe(event.TypeJobAccepted, a.onJobEvent)
	offFinished := bus.Subscribe(event.TypeJobFinished, a.onJobEvent)
	offCleanup := bus.Subscribe(event.TypeCleanupWarning, func(_ context.Context, e event.Event) error {
		payload, ok := e.Payload.(event.CleanupEvent)
		if !ok {
			return nil
		}
		a.Append(Entry{
			Time:    e.Timestamp,
			JobID:   payload.JobID,
			Stage:   "cleanup",
			Status:  "warning",
			Message: payload.Message,
		})
		return nil
	})

	return func() {
		offStage()
		offAccepted()
		offFinished()
		offCleanup()
	}
}

func (a *Aggregator) onJobEvent(_ context.Context, e event.Event) error {
	payload, ok := e.Payload.(event.JobEvent)
	if !ok {
		return nil
	}
	a.Append(Entry{
		Time:    e.Timestamp,
		JobID:   payload.JobID,
		Stage:   payload.Stage,
		Status:  payload.Status,
		Message: payload.Error,
	})
	return nil
}
