package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "2020", cfg.Install.MinimumVersion)
	assert.False(t, cfg.Install.HighestAvailable)
	assert.Equal(t, 5*time.Minute, cfg.Convert.Timeout)
	assert.Equal(t, 8732, cfg.Server.Port)
	assert.NotEmpty(t, cfg.CacheRoot)
	assert.NotEmpty(t, cfg.LogFile)

	opts := cfg.Convert.OptionDefaults()
	assert.True(t, opts.Models)
	assert.True(t, opts.Armatures)
	assert.False(t, opts.ApplyRotation)
	assert.InDelta(t, 0.01, opts.ScaleFactor, 1e-9)
	require.NoError(t, opts.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache_root = "/tmp/bridge-cache"

[install]
override = "/opt/max/Python/python.exe"
minimum_version = "2022"

[convert]
timeout = "30s"
apply_rotation = true
scale_factor = 1.0

[server]
port = 9000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/bridge-cache", cfg.CacheRoot)
	assert.Equal(t, "/opt/max/Python/python.exe", cfg.Install.Override)
	assert.Equal(t, "2022", cfg.Install.MinimumVersion)
	assert.Equal(t, 30*time.Second, cfg.Convert.Timeout)
	assert.True(t, cfg.Convert.ApplyRotation)
	assert.Equal(t, 9000, cfg.Server.Port)
	// Host keeps its default when the file leaves it unset.
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9000\n"), 0o644))

	t.Setenv("MAXBRIDGE_SERVER_PORT", "9100")
	t.Setenv("MAXBRIDGE_LOGGING_LEVEL", "debug")
	t.Setenv("MAXBRIDGE_CACHE_ROOT", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Empty env values never clobber anything.
	assert.NotEmpty(t, cfg.CacheRoot)
}

// Snake_case keys must be reachable from the environment: only the first
// underscore separates the config section.
func TestEnvSnakeCaseKeys(t *testing.T) {
	t.Setenv("MAXBRIDGE_INSTALL_MINIMUM_VERSION", "2023")
	t.Setenv("MAXBRIDGE_INSTALL_HIGHEST_AVAILABLE", "true")
	t.Setenv("MAXBRIDGE_CONVERT_SCALE_FACTOR", "1.0")
	t.Setenv("MAXBRIDGE_CONVERT_APPLY_ROTATION", "true")
	t.Setenv("MAXBRIDGE_CACHE_ROOT", "/tmp/bridge-env-cache")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "2023", cfg.Install.MinimumVersion)
	assert.True(t, cfg.Install.HighestAvailable)
	assert.InDelta(t, 1.0, cfg.Convert.ScaleFactor, 1e-9)
	assert.True(t, cfg.Convert.ApplyRotation)
	assert.Equal(t, "/tmp/bridge-env-cache", cfg.CacheRoot)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[convert]\nscale_factor = -2.0\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[convert]\ntimeout = \"0s\"\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
