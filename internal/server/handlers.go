package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/locate"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/pipeline"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/plan"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/scene"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/workspace"
)

// Handler serves the conversion API. The host side drops scene files on
// disk and drives jobs through these endpoints.
type Handler struct {
	orch       *pipeline.Orchestrator
	locator    *locate.Locator
	workspaces *workspace.Manager
}

func NewHandler(orch *pipeline.Orchestrator, locator *locate.Locator, workspaces *workspace.Manager) *Handler {
	return &Handler{orch: orch, locator: locator, workspaces: workspaces}
}

type SubmitExportInput struct {
	Body struct {
		ScenePath string       `json:"scene_path" minLength:"1" doc:"Scene descriptor file written by the host"`
		DestPath  string       `json:"dest_path" minLength:"1" doc:"Destination .max path"`
		Options   plan.Options `json:"options" doc:"Conversion options"`
	}
}

type SubmitImportInput struct {
	Body struct {
		SourcePath string       `json:"source_path" minLength:"1" doc:"Source .max path"`
		OutputPath string       `json:"output_path" minLength:"1" doc:"Where to write the imported scene descriptor"`
		Options    plan.Options `json:"options" doc:"Conversion options"`
	}
}

type SubmitBody struct {
	JobID string `json:"job_id" doc:"Job ID"`
	State string `json:"state" doc:"Initial job state"`
}

type JobIDInput struct {
	ID string `path:"id" doc:"Job ID"`
}

func (h *Handler) SubmitExport(ctx context.Context, input *SubmitExportInput) (*DataOutput[SubmitBody], error) {
	objects, err := scene.Load(input.Body.ScenePath)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("scene file unreadable", err)
	}
	job, err := h.orch.Submit(ctx, pipeline.Request{
		Direction: scene.DirectionExport,
		Options:   input.Body.Options,
		Scene:     objects,
		DestPath:  input.Body.DestPath,
	})
	return submitResult(h.orch, job, err)
}

func (h *Handler) SubmitImport(ctx context.Context, input *SubmitImportInput) (*DataOutput[SubmitBody], error) {
	job, err := h.orch.Submit(ctx, pipeline.Request{
		Direction:  scene.DirectionImport,
		Options:    input.Body.Options,
		SourcePath: input.Body.SourcePath,
		Builder:    scene.FileBuilder(input.Body.OutputPath),
	})
	return submitResult(h.orch, job, err)
}

func submitResult(orch *pipeline.Orchestrator, job *pipeline.Job, err error) (*DataOutput[SubmitBody], error) {
	if err != nil {
		if errors.Is(err, pipeline.ErrBusy) {
			return nil, huma.Error409Conflict(err.Error())
		}
		return nil, huma.Error422UnprocessableEntity("invalid conversion request", err)
	}
	snap, _ := orch.Job(job.ID)
	return OK(SubmitBody{JobID: job.ID, State: snap.State}), nil
}

func (h *Handler) GetJob(_ context.Context, input *JobIDInput) (*DataOutput[pipeline.Snapshot], error) {
	snap, ok := h.orch.Job(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("job not found")
	}
	return OK(snap), nil
}

func (h *Handler) GetActive(context.Context, *struct{}) (*DataOutput[pipeline.Snapshot], error) {
	snap, ok := h.orch.Active()
	if !ok {
		return nil, huma.Error404NotFound("no active job")
	}
	return OK(snap), nil
}

func (h *Handler) CancelJob(_ context.Context, input *JobIDInput) (*MsgOutput, error) {
	if err := h.orch.Cancel(input.ID); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoActiveJob):
			return nil, huma.Error409Conflict(err.Error())
		case errors.Is(err, pipeline.ErrUnknownJob):
			return nil, huma.Error404NotFound(err.Error())
		}
		return nil, huma.NewError(http.StatusInternalServerError, err.Error())
	}
	return Msg("cancellation requested"), nil
}

type InstallationBody struct {
	Version string `json:"version" doc:"Resolved tool version"`
	Root    string `json:"root" doc:"Install root"`
	Engine  string `json:"engine" doc:"Scripting engine executable"`
}

func (h *Handler) GetInstallation(context.Context, *struct{}) (*DataOutput[InstallationBody], error) {
	inst, err := h.locator.Resolve()
	if err != nil {
		if errors.Is(err, locate.ErrNotFound) {
			return nil, huma.Error404NotFound(err.Error())
		}
		return nil, huma.Error422UnprocessableEntity("installation unusable", err)
	}
	return OK(InstallationBody{Version: inst.VersionTag, Root: inst.Root, Engine: inst.Engine}), nil
}

type SweepBody struct {
	Removed int `json:"removed" doc:"Staging directories removed"`
}

func (h *Handler) SweepCache(context.Context, *struct{}) (*DataOutput[SweepBody], error) {
	if _, ok := h.orch.Active(); ok {
		return nil, huma.Error409Conflict("cannot sweep the cache while a job is active")
	}
	n, err := h.workspaces.Sweep()
	if err != nil {
		return nil, huma.NewError(http.StatusInternalServerError, "cache sweep incomplete", err)
	}
	return OK(SweepBody{Removed: n}), nil
}
