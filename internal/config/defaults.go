package config

import (
	"github.com/knadh/koanf/v2"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/plan"
)

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"install.roots": []string{
			`C:\Program Files\Autodesk`,
			`C:\Program Files (x86)\Autodesk`,
		},
		"install.minimum_version":   "2020",
		"install.highest_available": false,

		// Five minutes matches the batch tool's own conversion budget.
		"convert.timeout": "5m",

		"convert.models":         true,
		"convert.lights":         true,
		"convert.cameras":        true,
		"convert.splines":        true,
		"convert.animations":     true,
		"convert.materials":      true,
		"convert.armatures":      true,
		"convert.apply_rotation": false,
		"convert.scale_factor":   0.01,

		"server.host": "127.0.0.1",
		"server.port": 8732,

		"logging.level": "info",
	}

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return err
		}
	}
	return nil
}

// OptionDefaults returns the configured per-job conversion option defaults
// in the planner's shape.
func (c ConvertConfig) OptionDefaults() plan.Options {
	return plan.Options{
		Models:        c.Models,
		Lights:        c.Lights,
		Cameras:       c.Cameras,
		Splines:       c.Splines,
		Animations:    c.Animations,
		Materials:     c.Materials,
		Armatures:     c.Armatures,
		ApplyRotation: c.ApplyRotation,
		ScaleFactor:   float32(c.ScaleFactor),
	}
}
