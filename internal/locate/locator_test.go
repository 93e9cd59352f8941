package locate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const engineRel = "Python/python.exe"

// fakeInstall lays out <root>/<name>/Python/python.exe with the given mode.
func fakeInstall(t *testing.T, root, name string, mode os.FileMode) string {
	t.Helper()
	dir := filepath.Join(root, name, "Python")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	engine := filepath.Join(dir, "python.exe")
	require.NoError(t, os.WriteFile(engine, []byte("#!/bin/sh\n"), mode))
	return engine
}

func newLocator(t *testing.T, cfg Config) *Locator {
	t.Helper()
	cfg.EngineCandidates = []string{filepath.FromSlash(engineRel)}
	l, err := New(cfg)
	require.NoError(t, err)
	return l
}

func TestResolvePicksHighestVersion(t *testing.T) {
	root := t.TempDir()
	for _, year := range []string{"2022", "2024", "2023"} {
		fakeInstall(t, root, "3ds Max "+year, 0o755)
	}

	l := newLocator(t, Config{Roots: []string{root}, MinimumVersion: "2020"})
	inst, err := l.Resolve()
	require.NoError(t, err)

	assert.Equal(t, "2024", inst.VersionTag)
	assert.Equal(t, filepath.Join(root, "3ds Max 2024"), inst.Root)
	assert.FileExists(t, inst.Engine)
}

func TestResolveAcceptsBareVersionDirs(t *testing.T) {
	root := t.TempDir()
	fakeInstall(t, root, "2021", 0o755)
	fakeInstall(t, root, "26.0", 0o755)

	l := newLocator(t, Config{Roots: []string{root}, MinimumVersion: "20"})
	inst, err := l.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "2021", inst.VersionTag)
}

func TestResolveNothingBelowMinimum(t *testing.T) {
	root := t.TempDir()
	fakeInstall(t, root, "3ds Max 2019", 0o755)

	l := newLocator(t, Config{Roots: []string{root}, MinimumVersion: "2020"})
	_, err := l.Resolve()
	assert.ErrorIs(t, err, ErrNotFound)

	// The floor is only ignored when explicitly requested.
	l = newLocator(t, Config{Roots: []string{root}, MinimumVersion: "2020", HighestAvailable: true})
	inst, err := l.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "2019", inst.VersionTag)
}

func TestResolveSkipsCandidatesWithoutEngine(t *testing.T) {
	root := t.TempDir()
	fakeInstall(t, root, "3ds Max 2022", 0o755)
	// 2025 exists but ships no scripting engine.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "3ds Max 2025"), 0o755))

	l := newLocator(t, Config{Roots: []string{root}, MinimumVersion: "2020"})
	inst, err := l.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "2022", inst.VersionTag)
}

func TestResolveEmptyRoots(t *testing.T) {
	l := newLocator(t, Config{Roots: []string{filepath.Join(t.TempDir(), "missing")}})
	_, err := l.Resolve()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveOverride(t *testing.T) {
	root := t.TempDir()
	engine := fakeInstall(t, root, "3ds Max 2026", 0o755)

	l := newLocator(t, Config{Override: engine})
	inst, err := l.Resolve()
	require.NoError(t, err)
	assert.Equal(t, engine, inst.Engine)
	assert.Equal(t, "override", inst.VersionTag)
	assert.Equal(t, filepath.Join(root, "3ds Max 2026"), inst.Root)
}

func TestResolveOverrideNotExecutable(t *testing.T) {
	root := t.TempDir()
	engine := fakeInstall(t, root, "3ds Max 2026", 0o644)

	l := newLocator(t, Config{Override: engine})
	_, err := l.Resolve()
	assert.ErrorIs(t, err, ErrInvalidInstall)
}

func TestResolveOverrideMissing(t *testing.T) {
	l := newLocator(t, Config{Override: filepath.Join(t.TempDir(), "nope.exe")})
	_, err := l.Resolve()
	assert.ErrorIs(t, err, ErrInvalidInstall)
}

func TestNewRejectsBadMinimum(t *testing.T) {
	_, err := New(Config{MinimumVersion: "not-a-version"})
	assert.Error(t, err)
}
