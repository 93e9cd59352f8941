// Package invoke launches the external tool's scripting engine against a
// generated control script. The tool is a black box behind this boundary:
// the pipeline sees only an exit code, captured output streams, and whether
// the expected artifact appeared.
package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrLaunch means the child process could not be started or died in a
	// way that is not an ordinary non-zero exit.
	ErrLaunch = errors.New("external tool launch failed")

	// ErrTimeout means the wall-clock budget elapsed. The child is always
	// force-terminated before this is reported.
	ErrTimeout = errors.New("external tool timed out")
)

// waitDelay bounds how long Wait blocks on I/O after the child is killed.
const waitDelay = 5 * time.Second

// Result captures one tool invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Target is the resolved scripting engine plus the environment it needs.
// internal/locate produces compatible values.
type Target struct {
	// Engine is the scripting-engine executable.
	Engine string
	// Root is the tool's install root, exported to the child's
	// environment so in-process plugins resolve.
	Root string
}

// Invoker runs control scripts with a hard wall-clock timeout.
type Invoker struct {
	timeout time.Duration
}

func New(timeout time.Duration) *Invoker {
	return &Invoker{timeout: timeout}
}

// Invoke runs the engine against scriptPath with its working directory set
// to workdir, blocking until the child exits or the timeout fires. The
// combined output is also persisted to logPath ("" disables that).
func (iv *Invoker) Invoke(ctx context.Context, target Target, scriptPath, workdir, logPath string) (Result, error) {
	cctx := ctx
	if iv.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, iv.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cctx, target.Engine, scriptPath)
	cmd.Dir = workdir
	cmd.Env = engineEnv(target)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Info().Str("engine", target.Engine).Str("script", scriptPath).
		Dur("timeout", iv.timeout).Msg("invoking external tool")

	runErr := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if logPath != "" {
		persistOutput(logPath, res)
	}

	switch {
	case cctx.Err() == context.DeadlineExceeded && ctx.Err() == nil:
		// CommandContext already killed the child; Run has returned, so
		// nothing is left running detached.
		return res, fmt.Errorf("%w after %s", ErrTimeout, iv.timeout)
	case ctx.Err() != nil:
		return res, ctx.Err()
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			// Non-zero exit is reported as-is: some tool versions return
			// nonstandard codes on partial success, so the orchestrator
			// decides by checking for the output artifact.
			return res, nil
		}
		return res, fmt.Errorf("%w: %v", ErrLaunch, runErr)
	}
	return res, nil
}

// persistOutput mirrors the captured streams into the workspace so failed
// jobs leave something to inspect before cleanup archives the log entry.
func persistOutput(path string, res Result) {
	var buf bytes.Buffer
	buf.WriteString(res.Stdout)
	if res.Stderr != "" {
		buf.WriteString("\n--- stderr ---\n")
		buf.WriteString(res.Stderr)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not persist tool output")
	}
}

// engineEnv builds the child environment: the engine's bin directory is
// prepended to PATH and the install root is exported, matching what the
// tool's own launchers set up.
func engineEnv(target Target) []string {
	env := os.Environ()
	binDir := filepath.Dir(target.Engine)
	env = append(env,
		"PATH="+binDir+string(os.PathListSeparator)+os.Getenv("PATH"),
		"PYTHONIOENCODING=UTF-8",
	)
	if target.Root != "" {
		env = append(env, "ADSK_3DSMAX_ROOT="+target.Root)
		sitePackages := filepath.Join(target.Root, "Python", "Lib", "site-packages")
		if _, err := os.Stat(sitePackages); err == nil {
			env = append(env, "PYTHONPATH="+sitePackages+string(os.PathListSeparator)+os.Getenv("PYTHONPATH"))
		}
	}
	return env
}
