// Package locate discovers a usable 3ds Max installation on the host.
// Install locations and versions vary per machine, so the locator scans a
// set of known roots for version-tagged directories, filters by the minimum
// supported version and picks the highest remaining one.
package locate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotFound means no candidate installation met the constraints.
	ErrNotFound = errors.New("no compatible 3ds max installation found")

	// ErrInvalidInstall means an explicitly supplied install is unusable,
	// for example an override path that exists but is not executable.
	ErrInvalidInstall = errors.New("invalid 3ds max installation")
)

// dirPrefix is the install directory naming scheme under an Autodesk root.
const dirPrefix = "3ds Max "

// versionRe matches version-tagged directory names: "2024", "26.0", "25".
var versionRe = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

// Installation describes one resolved install. Immutable once resolved; the
// orchestrator re-resolves per job rather than trusting a stale descriptor.
type Installation struct {
	// Version is nil when the install came from an override path.
	Version    *semver.Version
	VersionTag string
	Root       string
	// Engine is the scripting-engine executable the invoker launches.
	Engine string
}

// Config controls the scan. Zero-value fields fall back to sane defaults
// via New.
type Config struct {
	// Override bypasses scanning entirely. It still gets the same
	// existence and executability check as scanned candidates.
	Override string

	// Roots are program-files-style directories holding versioned
	// "3ds Max <version>" installs.
	Roots []string

	// EngineCandidates are relative paths, probed in order, at which the
	// scripting engine may live inside an install directory.
	EngineCandidates []string

	// MinimumVersion is the version floor, e.g. "2020".
	MinimumVersion string

	// HighestAvailable ignores the version floor and takes the highest
	// install present. Off unless the caller explicitly asks.
	HighestAvailable bool
}

// DefaultEngineCandidates mirrors the layouts shipped across tool versions.
func DefaultEngineCandidates() []string {
	return []string{
		filepath.Join("Python", "python.exe"),
		filepath.Join("bin", "python.exe"),
		filepath.Join("Python37", "python.exe"),
		filepath.Join("Python39", "python.exe"),
	}
}

// Locator resolves installations against the filesystem.
type Locator struct {
	cfg     Config
	minimum *semver.Version
}

// New builds a locator, validating the minimum-version constraint up front.
func New(cfg Config) (*Locator, error) {
	if len(cfg.EngineCandidates) == 0 {
		cfg.EngineCandidates = DefaultEngineCandidates()
	}

	var minimum *semver.Version
	if cfg.MinimumVersion != "" {
		v, err := semver.NewVersion(cfg.MinimumVersion)
		if err != nil {
			return nil, fmt.Errorf("parse minimum version %q: %w", cfg.MinimumVersion, err)
		}
		minimum = v
	}
	return &Locator{cfg: cfg, minimum: minimum}, nil
}

// Resolve finds a usable installation or fails with ErrNotFound /
// ErrInvalidInstall. It never silently falls back below the minimum version.
func (l *Locator) Resolve() (*Installation, error) {
	if l.cfg.Override != "" {
		return l.resolveOverride()
	}

	var best *Installation
	for _, root := range l.cfg.Roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.Debug().Err(err).Str("root", root).Msg("install root not readable")
			}
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			cand := l.candidate(root, entry.Name())
			if cand == nil {
				continue
			}
			if best == nil || cand.Version.GreaterThan(best.Version) {
				best = cand
			}
		}
	}

	if best == nil {
		return nil, ErrNotFound
	}
	if l.minimum != nil && !l.cfg.HighestAvailable && best.Version.LessThan(l.minimum) {
		return nil, fmt.Errorf("%w: highest install %s is below minimum %s",
			ErrNotFound, best.VersionTag, l.cfg.MinimumVersion)
	}

	log.Info().Str("version", best.VersionTag).Str("engine", best.Engine).
		Msg("resolved 3ds max installation")
	return best, nil
}

// candidate parses one directory entry into an installation, or nil.
func (l *Locator) candidate(root, name string) *Installation {
	tag := strings.TrimPrefix(name, dirPrefix)
	if !versionRe.MatchString(tag) {
		return nil
	}
	version, err := semver.NewVersion(tag)
	if err != nil {
		return nil
	}

	dir := filepath.Join(root, name)
	engine, err := l.probeEngine(dir)
	if err != nil {
		log.Debug().Str("dir", dir).Msg("candidate has no usable scripting engine")
		return nil
	}

	return &Installation{
		Version:    version,
		VersionTag: tag,
		Root:       dir,
		Engine:     engine,
	}
}

// probeEngine returns the first engine candidate that exists and is
// executable inside dir.
func (l *Locator) probeEngine(dir string) (string, error) {
	for _, rel := range l.cfg.EngineCandidates {
		path := filepath.Join(dir, rel)
		if err := checkExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

func (l *Locator) resolveOverride() (*Installation, error) {
	if err := checkExecutable(l.cfg.Override); err != nil {
		return nil, fmt.Errorf("%w: override path %s: %v", ErrInvalidInstall, l.cfg.Override, err)
	}
	// Engine lives in <root>/<bindir>/<exe>; walk two levels up for the root.
	root := filepath.Dir(filepath.Dir(l.cfg.Override))
	return &Installation{
		VersionTag: "override",
		Root:       root,
		Engine:     l.cfg.Override,
	}, nil
}

// checkExecutable verifies path is a regular file the current user may
// execute. Windows has no exec bit, so presence of a file is enough there.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
