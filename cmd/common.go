package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/config"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/event"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/invoke"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/joblog"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/locate"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/pipeline"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/plan"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/workspace"
)

// stack holds the wired pipeline components commands run against.
type stack struct {
	cfg        *config.Config
	locator    *locate.Locator
	workspaces *workspace.Manager
	orch       *pipeline.Orchestrator
	bus        event.Bus
	journal    *joblog.Aggregator
}

func (s *stack) close() {
	if err := s.journal.Close(); err != nil {
		log.Warn().Err(err).Msg("job log close")
	}
}

func buildStack(cmd *cli.Command) (*stack, error) {
	applyLogLevel(cmd.String("log-level"))

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cmd.IsSet("log-level") && cfg.Logging.Level != "" {
		applyLogLevel(cfg.Logging.Level)
	}

	locator, err := locate.New(locate.Config{
		Override:         cfg.Install.Override,
		Roots:            cfg.Install.Roots,
		EngineCandidates: cfg.Install.EngineCandidates,
		MinimumVersion:   cfg.Install.MinimumVersion,
		HighestAvailable: cfg.Install.HighestAvailable,
	})
	if err != nil {
		return nil, err
	}

	journal, err := joblog.Open(cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("open job log: %w", err)
	}

	bus := event.NewBus()
	journal.Attach(bus)

	workspaces := workspace.NewManager(cfg.CacheRoot)
	orch := pipeline.New(locator, workspaces, invoke.New(cfg.Convert.Timeout), bus)

	return &stack{
		cfg:        cfg,
		locator:    locator,
		workspaces: workspaces,
		orch:       orch,
		bus:        bus,
		journal:    journal,
	}, nil
}

func applyLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, keeping current")
		return
	}
	zerolog.SetGlobalLevel(parsed)
}

// optionFlags declares the per-job conversion option flags shared by the
// export and import commands.
func optionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "no-models", Usage: "Exclude models"},
		&cli.BoolFlag{Name: "no-lights", Usage: "Exclude lights"},
		&cli.BoolFlag{Name: "no-cameras", Usage: "Exclude cameras"},
		&cli.BoolFlag{Name: "no-splines", Usage: "Exclude splines"},
		&cli.BoolFlag{Name: "no-animations", Usage: "Exclude animations"},
		&cli.BoolFlag{Name: "no-materials", Usage: "Exclude materials"},
		&cli.BoolFlag{Name: "no-armatures", Usage: "Exclude armatures"},
		&cli.BoolFlag{Name: "apply-rotation", Usage: "Apply the axis-conversion rotation"},
		&cli.FloatFlag{Name: "scale", Usage: "Uniform scale factor (0 keeps the configured default)"},
	}
}

// jobOptions overlays command-line flags on the configured defaults.
func jobOptions(cmd *cli.Command, cfg *config.Config) plan.Options {
	opts := cfg.Convert.OptionDefaults()
	if cmd.Bool("no-models") {
		opts.Models = false
	}
	if cmd.Bool("no-lights") {
		opts.Lights = false
	}
	if cmd.Bool("no-cameras") {
		opts.Cameras = false
	}
	if cmd.Bool("no-splines") {
		opts.Splines = false
	}
	if cmd.Bool("no-animations") {
		opts.Animations = false
	}
	if cmd.Bool("no-materials") {
		opts.Materials = false
	}
	if cmd.Bool("no-armatures") {
		opts.Armatures = false
	}
	if cmd.Bool("apply-rotation") {
		opts.ApplyRotation = true
	}
	if v := cmd.Float("scale"); v != 0 {
		opts.ScaleFactor = float32(v)
	}
	return opts
}
