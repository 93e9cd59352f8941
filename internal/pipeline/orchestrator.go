package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/bridge"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/event"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/invoke"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/locate"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/plan"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/scene"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/telemetry"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/workspace"
)

// Locator resolves the external tool installation to run against.
type Locator interface {
	Resolve() (*locate.Installation, error)
}

// Invoker runs the external tool with a prepared control script.
type Invoker interface {
	Invoke(ctx context.Context, target invoke.Target, scriptPath, workdir, logPath string) (invoke.Result, error)
}

// Request describes one conversion to run.
type Request struct {
	Direction scene.Direction
	Options   plan.Options

	// Scene and DestPath are used for export jobs.
	Scene    []scene.Object
	DestPath string

	// SourcePath and Builder are used for import jobs.
	SourcePath string
	Builder    scene.Builder
}

func (r *Request) validate() error {
	if !r.Direction.Valid() {
		return fmt.Errorf("unknown direction %q", r.Direction)
	}
	if err := r.Options.Validate(); err != nil {
		return err
	}
	switch r.Direction {
	case scene.DirectionExport:
		if r.DestPath == "" {
			return errors.New("export requires a destination path")
		}
		abs, err := filepath.Abs(r.DestPath)
		if err != nil {
			return fmt.Errorf("resolve destination path: %w", err)
		}
		r.DestPath = abs
	case scene.DirectionImport:
		if r.SourcePath == "" {
			return errors.New("import requires a source path")
		}
		if r.Builder == nil {
			return errors.New("import requires a scene builder")
		}
		// Relative paths resolve against the submitter's working
		// directory, not the workspace the script later runs in.
		abs, err := filepath.Abs(r.SourcePath)
		if err != nil {
			return fmt.Errorf("resolve source path: %w", err)
		}
		r.SourcePath = abs
	}
	return nil
}

// NormalizeDestination ensures path carries exactly one ".max" suffix,
// collapsing any stacked ones a caller may have accumulated.
func NormalizeDestination(path string) string {
	for {
		trimmed := strings.TrimSuffix(path, ".max")
		if trimmed == path {
			break
		}
		path = trimmed
	}
	return path + ".max"
}

// Orchestrator drives the conversion pipeline. At most one job is active
// at a time; submissions during an active job are rejected with ErrBusy
// and leave the running job untouched.
type Orchestrator struct {
	locator    Locator
	workspaces *workspace.Manager
	invoker    Invoker
	bridge     *bridge.Bridge
	bus        event.Bus

	mu       sync.Mutex
	active   *Job
	previous *Job
}

func New(locator Locator, workspaces *workspace.Manager, invoker Invoker, bus event.Bus) *Orchestrator {
	return &Orchestrator{
		locator:    locator,
		workspaces: workspaces,
		invoker:    invoker,
		bridge:     bridge.New(),
		bus:        bus,
	}
}

// Submit admits a job and starts it in the background. The returned job
// can be watched with Wait or polled through Job. ErrBusy is returned
// without any side effects while another job is running.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Direction == scene.DirectionExport {
		req.DestPath = NormalizeDestination(req.DestPath)
	}
	if req.Direction == scene.DirectionImport && req.Options.SelectedOnly {
		// Selection filtering only makes sense on the exporting side.
		log.Warn().Msg("selected-only has no effect on import; ignoring")
		req.Options.SelectedOnly = false
	}

	job := &Job{
		ID:         uuid.NewString(),
		Direction:  req.Direction,
		Options:    req.Options,
		SourcePath: req.SourcePath,
		DestPath:   req.DestPath,
		State:      StateLocating,
		CreatedAt:  time.Now(),
		done:       make(chan struct{}),
	}

	o.mu.Lock()
	if o.active != nil && !o.active.State.Terminal() {
		o.mu.Unlock()
		telemetry.JobsRejected.Inc()
		log.Warn().Str("job_id", job.ID).Msg("submission rejected, pipeline busy")
		return nil, ErrBusy
	}
	if o.active != nil {
		o.previous = o.active
	}
	// The job outlives the submitting request; only Cancel and timeouts
	// may stop it once admitted.
	jctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job.cancel = cancel
	o.active = job
	o.mu.Unlock()

	o.bus.Publish(jctx, event.Event{Type: event.TypeJobAccepted, Payload: event.JobEvent{
		JobID:     job.ID,
		Direction: string(job.Direction),
		Stage:     string(StateLocating),
		Status:    "started",
	}})
	log.Info().
		Str("job_id", job.ID).
		Str("direction", string(job.Direction)).
		Msg("job accepted")

	go o.run(jctx, job, req)
	return job, nil
}

// Cancel requests cancellation of the active job. An empty id cancels
// whatever is running; a non-empty id must match it.
func (o *Orchestrator) Cancel(jobID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil || o.active.State.Terminal() {
		return ErrNoActiveJob
	}
	if jobID != "" && jobID != o.active.ID {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	o.active.cancel()
	return nil
}

// Job returns a snapshot of the job with the given id, checking the
// active job and the most recently finished one.
func (o *Orchestrator) Job(id string) (Snapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil && o.active.ID == id {
		return o.active.snapshotLocked(), true
	}
	if o.previous != nil && o.previous.ID == id {
		return o.previous.snapshotLocked(), true
	}
	return Snapshot{}, false
}

// Active returns the currently running job, if any.
func (o *Orchestrator) Active() (Snapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil || o.active.State.Terminal() {
		return Snapshot{}, false
	}
	return o.active.snapshotLocked(), true
}

func (o *Orchestrator) run(ctx context.Context, job *Job, req Request) {
	start := time.Now()
	err := o.execute(ctx, job, req)

	o.mu.Lock()
	job.FinishedAt = time.Now()
	switch {
	case err == nil:
		job.State = StateDone
	case errors.Is(err, context.Canceled):
		job.State = StateCancelled
	default:
		job.State = StateFailed
		job.Err = err
	}
	outcome := string(job.State)
	o.mu.Unlock()

	telemetry.JobsTotal.WithLabelValues(string(job.Direction), outcome).Inc()
	telemetry.JobSeconds.Observe(time.Since(start).Seconds())
	var se *StageError
	if job.State == StateFailed && errors.As(err, &se) {
		telemetry.StageFailures.WithLabelValues(string(se.Stage)).Inc()
	}

	ev := event.JobEvent{
		JobID:     job.ID,
		Direction: string(job.Direction),
		Status:    outcome,
	}
	if job.Err != nil {
		ev.Error = job.Err.Error()
	}
	o.bus.Publish(ctx, event.Event{Type: event.TypeJobFinished, Payload: ev})

	switch job.State {
	case StateDone:
		log.Info().
			Str("job_id", job.ID).
			Str("direction", string(job.Direction)).
			Int("objects", job.ObjectCount).
			Dur("took", time.Since(start)).
			Msg("job finished")
	case StateCancelled:
		log.Info().Str("job_id", job.ID).Msg("job cancelled")
	default:
		log.Error().Err(job.Err).Str("job_id", job.ID).Msg("job failed")
	}

	close(job.done)
}

// execute runs the stage sequence. It returns nil on success, a
// context.Canceled-wrapping error on cancellation, and a StageError on
// any stage failure.
func (o *Orchestrator) execute(ctx context.Context, job *Job, req Request) error {
	inst, err := o.locator.Resolve()
	if err != nil {
		return stageErr(StateLocating, err)
	}
	log.Debug().
		Str("job_id", job.ID).
		Str("version", inst.VersionTag).
		Str("engine", inst.Engine).
		Msg("installation resolved")
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := o.transition(ctx, job, StateStaging); err != nil {
		return err
	}
	ws, err := o.workspaces.Acquire(job.ID)
	if err != nil {
		return stageErr(StateStaging, err)
	}
	defer o.releaseWorkspace(ctx, job, ws)

	var expected string
	nativePath := ws.NativePath()
	switch job.Direction {
	case scene.DirectionExport:
		p, err := plan.Compute(req.Scene, job.Options)
		if err != nil {
			return stageErr(StateStaging, err)
		}
		n, err := o.bridge.Write(req.Scene, p, ws.ExchangePath())
		if err != nil {
			return stageErr(StateStaging, err)
		}
		if n == 0 {
			return stageErr(StateStaging, errors.New("no objects match the conversion options"))
		}
		o.setObjectCount(job, n)
		expected = ws.NativePath()
	case scene.DirectionImport:
		if _, err := os.Stat(job.SourcePath); err != nil {
			return stageErr(StateStaging, fmt.Errorf("source file: %w", err))
		}
		nativePath = job.SourcePath
		expected = ws.ExchangePath()
	}

	if err := invoke.WriteScript(ws.ScriptPath(), invoke.ScriptParams{
		Direction:    job.Direction,
		ExchangePath: ws.ExchangePath(),
		NativePath:   nativePath,
	}); err != nil {
		return stageErr(StateStaging, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := o.transition(ctx, job, StateConverting); err != nil {
		return err
	}
	target := invoke.Target{Engine: inst.Engine, Root: inst.Root}
	res, err := o.invoker.Invoke(ctx, target, ws.ScriptPath(), ws.Path(), ws.ToolLogPath())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return stageErr(StateConverting, err)
	}
	// Exit codes from the batch tool are unreliable; the produced
	// artifact is the real success signal.
	if fi, statErr := os.Stat(expected); statErr != nil || fi.Size() == 0 {
		return stageErr(StateConverting, fmt.Errorf("%w: exit code %d, no output artifact: %s",
			invoke.ErrLaunch, res.ExitCode, tail(res.Stderr)))
	}
	if res.ExitCode != 0 {
		log.Warn().
			Str("job_id", job.ID).
			Int("exit_code", res.ExitCode).
			Msg("tool exited non-zero but produced the artifact, continuing")
	}

	if err := o.transition(ctx, job, StateFinalizing); err != nil {
		return err
	}
	switch job.Direction {
	case scene.DirectionExport:
		if err := copyFile(ws.NativePath(), job.DestPath); err != nil {
			return stageErr(StateFinalizing, err)
		}
	case scene.DirectionImport:
		objects, err := o.bridge.Read(ws.ExchangePath())
		if err != nil {
			return stageErr(StateFinalizing, err)
		}
		o.setObjectCount(job, len(objects))
		if err := req.Builder.Build(ctx, objects); err != nil {
			return stageErr(StateFinalizing, err)
		}
	}
	return nil
}

func (o *Orchestrator) transition(ctx context.Context, job *Job, next State) error {
	o.mu.Lock()
	cur := job.State
	if validNext[cur] != next {
		o.mu.Unlock()
		return fmt.Errorf("invalid transition %s -> %s", cur, next)
	}
	job.State = next
	o.mu.Unlock()

	o.bus.Publish(ctx, event.Event{Type: event.TypeJobStage, Payload: event.JobEvent{
		JobID:     job.ID,
		Direction: string(job.Direction),
		Stage:     string(next),
		Status:    "started",
	}})
	log.Debug().Str("job_id", job.ID).Str("stage", string(next)).Msg("stage started")
	return nil
}

func (o *Orchestrator) setObjectCount(job *Job, n int) {
	o.mu.Lock()
	job.ObjectCount = n
	o.mu.Unlock()
}

// releaseWorkspace cleans up the job's staging directory. Failures are
// reported as warnings and never change the job's outcome.
func (o *Orchestrator) releaseWorkspace(ctx context.Context, job *Job, ws *workspace.Workspace) {
	if err := ws.Release(); err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Str("path", ws.Path()).Msg("workspace cleanup incomplete")
		o.bus.Publish(ctx, event.Event{Type: event.TypeCleanupWarning, Payload: event.CleanupEvent{
			JobID:   job.ID,
			Path:    ws.Path(),
			Message: err.Error(),
		}})
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// tail keeps error strings short when the tool dumps a lot of stderr.
func tail(s string) string {
	s = strings.TrimSpace(s)
	const max = 400
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
