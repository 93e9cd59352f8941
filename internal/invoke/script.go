package invoke

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/scene"
)

// ErrBadScriptParam is returned when a control-script parameter fails
// validation. The script is built from structured templating with checked
// parameters, never from concatenated caller data.
var ErrBadScriptParam = errors.New("invalid control script parameter")

// ScriptParams parameterize one generated control script.
type ScriptParams struct {
	Direction scene.Direction
	// ExchangePath is the exchange artifact (input for export, output for
	// import, from the external tool's point of view).
	ExchangePath string
	// NativePath is the native .max file (output for export, input for
	// import).
	NativePath string
}

// WriteScript renders the control script for the given parameters into
// path. The script drives the tool's batch executable through a MAXScript
// stub; which stub is chosen by the conversion direction.
func WriteScript(path string, p ScriptParams) error {
	if !p.Direction.Valid() {
		return fmt.Errorf("%w: direction %q", ErrBadScriptParam, p.Direction)
	}
	for name, v := range map[string]string{
		"exchange path": p.ExchangePath,
		"native path":   p.NativePath,
	} {
		if err := checkPathParam(name, v); err != nil {
			return err
		}
	}

	var buf strings.Builder
	if err := controlTmpl.Execute(&buf, templateData{
		Export:       p.Direction == scene.DirectionExport,
		ExchangePath: toScriptPath(p.ExchangePath),
		NativePath:   toScriptPath(p.NativePath),
	}); err != nil {
		return fmt.Errorf("render control script: %w", err)
	}
	return os.WriteFile(path, []byte(buf.String()), 0o644)
}

// checkPathParam rejects values that could break out of the script's
// string literals or the MAXScript stub.
func checkPathParam(name, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s is empty", ErrBadScriptParam, name)
	}
	if !filepath.IsAbs(v) {
		return fmt.Errorf("%w: %s %q is not absolute", ErrBadScriptParam, name, v)
	}
	if strings.ContainsAny(v, "\"'\n\r\x00") {
		return fmt.Errorf("%w: %s contains forbidden characters", ErrBadScriptParam, name)
	}
	return nil
}

// toScriptPath normalizes separators for the MAXScript stub, which accepts
// forward slashes on every tool version.
func toScriptPath(p string) string {
	return strings.ReplaceAll(p, string(os.PathSeparator), "/")
}

type templateData struct {
	Export       bool
	ExchangePath string
	NativePath   string
}

// controlTmpl is the Python program handed to the install's scripting
// engine. It locates the batch executable next to the engine and runs a
// minimal MAXScript stub for the requested direction.
var controlTmpl = template.Must(template.New("control").Parse(`import os
import subprocess
import sys
import tempfile

EXCHANGE = "{{.ExchangePath}}"
NATIVE = "{{.NativePath}}"

def log(msg):
    print("[MAXBRIDGE] " + msg)
    sys.stdout.flush()

{{if .Export}}source, target = EXCHANGE, NATIVE
stub = 'resetMaxFile #noPrompt\nimportFile @"' + EXCHANGE + '" #noPrompt\nsaveMaxFile @"' + NATIVE + '" quiet:true\nquitMax exitCode:0\n'
{{else}}source, target = NATIVE, EXCHANGE
stub = 'loadMaxFile @"' + NATIVE + '" quiet:true\nexportFile @"' + EXCHANGE + '" #noPrompt selectedOnly:false\nquitMax exitCode:0\n'
{{end}}
if not os.path.exists(source):
    log("source artifact missing: " + source)
    sys.exit(1)

engine_dir = os.path.dirname(sys.executable)
batch = os.path.join(os.path.dirname(engine_dir), "3dsmaxbatch.exe")
if not os.path.exists(batch):
    log("3dsmaxbatch.exe not found at: " + batch)
    sys.exit(1)

fd, stub_path = tempfile.mkstemp(suffix=".ms", dir=os.getcwd(), text=True)
try:
    with os.fdopen(fd, "w", encoding="utf-8") as f:
        f.write(stub)
    log("running batch conversion")
    result = subprocess.run([batch, stub_path], capture_output=True, text=True)
    if result.stdout:
        log("batch stdout: " + result.stdout)
    if result.stderr:
        log("batch stderr: " + result.stderr)
    if not os.path.exists(target) or os.path.getsize(target) == 0:
        log("target artifact not produced: " + target)
        sys.exit(1)
    log("conversion finished, exit code " + str(result.returncode))
finally:
    try:
        os.unlink(stub_path)
    except OSError:
        pass
`))
