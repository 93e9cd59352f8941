// Package workspace owns per-job staging directories under a fixed cache
// root. Each job gets a directory of its own; release is idempotent and
// never fails on "already gone".
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// ErrStaging is returned when a staging directory cannot be prepared.
var ErrStaging = errors.New("staging workspace error")

// Artifact names inside a workspace. Paths are exposed through Workspace
// methods so they stay in one place.
const (
	exchangeArtifact = "exchange.scene"
	nativeArtifact   = "converted.max"
	controlScript    = "control_script.py"
	toolOutputLog    = "tool-output.log"
)

// Manager creates and removes staging workspaces under one cache root.
type Manager struct {
	root string
}

func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Root returns the cache root directory.
func (m *Manager) Root() string {
	return m.root
}

// Acquire creates the staging directory for jobID. The directory name embeds
// the job id, so concurrent or interleaved jobs can never collide.
func (m *Manager) Acquire(jobID string) (*Workspace, error) {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache root %s: %v", ErrStaging, m.root, err)
	}

	dir := filepath.Join(m.root, "job-"+jobID)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create staging dir %s: %v", ErrStaging, dir, err)
	}

	log.Debug().Str("job_id", jobID).Str("dir", dir).Msg("staging workspace acquired")
	return &Workspace{path: dir}, nil
}

// Sweep removes every leftover workspace under the cache root. Run at
// startup so a crash never leaks staging directories; when idle the cache
// root holds nothing. Returns how many entries were removed.
func (m *Manager) Sweep() (int, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("sweep cache root %s: %w", m.root, err)
	}

	removed := 0
	for _, entry := range entries {
		path := filepath.Join(m.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			// Cleanup is best-effort; a racing removal is not an error.
			log.Warn().Err(err).Str("path", path).Msg("cleanup: could not remove stale workspace")
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("swept stale staging workspaces")
	}
	return removed, nil
}

// Workspace is one job's staging directory and the artifacts inside it.
type Workspace struct {
	path     string
	released atomic.Bool
}

// Path returns the staging directory.
func (w *Workspace) Path() string { return w.path }

// ExchangePath is where the exchange artifact lives for this job.
func (w *Workspace) ExchangePath() string { return filepath.Join(w.path, exchangeArtifact) }

// NativePath is where the external tool writes the native artifact during
// export, before finalization copies it to the caller's destination.
func (w *Workspace) NativePath() string { return filepath.Join(w.path, nativeArtifact) }

// ScriptPath is where the generated control script is written.
func (w *Workspace) ScriptPath() string { return filepath.Join(w.path, controlScript) }

// ToolLogPath is where the external tool's captured output is persisted.
func (w *Workspace) ToolLogPath() string { return filepath.Join(w.path, toolOutputLog) }

// Release removes the workspace and everything in it. Safe to call more
// than once and safe on a partially populated or already-removed directory;
// "already gone" counts as success.
func (w *Workspace) Release() error {
	if w == nil || !w.released.CompareAndSwap(false, true) {
		return nil
	}
	if err := os.RemoveAll(w.path); err != nil {
		w.released.Store(false)
		return fmt.Errorf("release workspace %s: %w", w.path, err)
	}
	return nil
}
