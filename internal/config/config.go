package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	CacheRoot string        `koanf:"cache_root"`
	LogFile   string        `koanf:"log_file"`
	Install   InstallConfig `koanf:"install"`
	Convert   ConvertConfig `koanf:"convert"`
	Server    ServerConfig  `koanf:"server"`
	Logging   LoggingConfig `koanf:"logging"`
}

type InstallConfig struct {
	Override         string   `koanf:"override"`
	Roots            []string `koanf:"roots"`
	EngineCandidates []string `koanf:"engine_candidates"`
	MinimumVersion   string   `koanf:"minimum_version"`
	HighestAvailable bool     `koanf:"highest_available"`
}

type ConvertConfig struct {
	Timeout time.Duration `koanf:"timeout"`

	// Per-job option defaults, applied when the caller leaves them unset.
	Models        bool    `koanf:"models"`
	Lights        bool    `koanf:"lights"`
	Cameras       bool    `koanf:"cameras"`
	Splines       bool    `koanf:"splines"`
	Animations    bool    `koanf:"animations"`
	Materials     bool    `koanf:"materials"`
	Armatures     bool    `koanf:"armatures"`
	ApplyRotation bool    `koanf:"apply_rotation"`
	ScaleFactor   float64 `koanf:"scale_factor"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Load reads config from a TOML file (if provided) then overlays env vars:
// MAXBRIDGE_SERVER_PORT -> server.port.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	// Env vars override file values, but only when non-empty.
	if err := k.Load(env.ProviderWithValue("MAXBRIDGE_", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return envKey(key), value
	}), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.fillPaths(); err != nil {
		return nil, err
	}
	if cfg.Convert.ScaleFactor <= 0 {
		return nil, fmt.Errorf("convert.scale_factor must be > 0, got %v", cfg.Convert.ScaleFactor)
	}
	if cfg.Convert.Timeout <= 0 {
		return nil, fmt.Errorf("convert.timeout must be > 0, got %v", cfg.Convert.Timeout)
	}
	return &cfg, nil
}

// envKey maps MAXBRIDGE_SECTION_SOME_KEY to "section.some_key". Only the
// first underscore separates the section, so snake_case keys like
// install.minimum_version stay addressable; top-level keys (cache_root,
// log_file) have no section and map as-is.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "MAXBRIDGE_"))
	if section, rest, ok := strings.Cut(key, "_"); ok {
		switch section {
		case "install", "convert", "server", "logging":
			return section + "." + rest
		}
	}
	return key
}

// fillPaths resolves the cache root and log file defaults relative to the
// user's home directory, mirroring where the host-side tooling keeps them.
func (c *Config) fillPaths() error {
	if c.CacheRoot != "" && c.LogFile != "" {
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	if c.CacheRoot == "" {
		c.CacheRoot = filepath.Join(home, "Documents", "maxbridge_cache")
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(home, "Documents", "maxbridge_log.jsonl")
	}
	return nil
}
