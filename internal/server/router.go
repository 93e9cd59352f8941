package server

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/locate"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/pipeline"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/telemetry"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/workspace"
)

type RouterConfig struct {
	Orchestrator *pipeline.Orchestrator
	Locator      *locate.Locator
	Workspaces   *workspace.Manager
}

// SetupRouter wires the conversion API onto e. The API is served under
// /api/v1 with an OpenAPI document generated from the handlers.
func SetupRouter(e *echo.Echo, cfg RouterConfig) {
	InitErrors()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(telemetry.Handler()))

	v1 := e.Group("/api/v1")
	config := huma.DefaultConfig("Max Bridge API", "1.0.0")
	config.Servers = []*huma.Server{{URL: "/api/v1"}}
	config.Info.Description = "Scene conversion pipeline between a host 3D application and Autodesk 3ds Max"

	api := humaecho.NewWithGroup(e, v1, config)
	h := NewHandler(cfg.Orchestrator, cfg.Locator, cfg.Workspaces)

	huma.Register(api, huma.Operation{
		OperationID:   "submit-export",
		Method:        http.MethodPost,
		Path:          "/jobs/export",
		Summary:       "Convert a host scene to a .max file",
		Tags:          []string{"Jobs"},
		DefaultStatus: http.StatusAccepted,
	}, h.SubmitExport)

	huma.Register(api, huma.Operation{
		OperationID:   "submit-import",
		Method:        http.MethodPost,
		Path:          "/jobs/import",
		Summary:       "Convert a .max file to a host scene descriptor",
		Tags:          []string{"Jobs"},
		DefaultStatus: http.StatusAccepted,
	}, h.SubmitImport)

	huma.Register(api, huma.Operation{
		OperationID: "get-active-job",
		Method:      http.MethodGet,
		Path:        "/jobs/active",
		Summary:     "Get the currently running job",
		Tags:        []string{"Jobs"},
	}, h.GetActive)

	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/jobs/{id}",
		Summary:     "Get a job by id",
		Tags:        []string{"Jobs"},
	}, h.GetJob)

	huma.Register(api, huma.Operation{
		OperationID: "cancel-job",
		Method:      http.MethodDelete,
		Path:        "/jobs/{id}",
		Summary:     "Cancel the running job",
		Tags:        []string{"Jobs"},
	}, h.CancelJob)

	huma.Register(api, huma.Operation{
		OperationID: "get-installation",
		Method:      http.MethodGet,
		Path:        "/installation",
		Summary:     "Resolve the tool installation",
		Tags:        []string{"Installation"},
	}, h.GetInstallation)

	huma.Register(api, huma.Operation{
		OperationID: "sweep-cache",
		Method:      http.MethodPost,
		Path:        "/cache/sweep",
		Summary:     "Remove leftover staging directories",
		Tags:        []string{"Cache"},
	}, h.SweepCache)
}
