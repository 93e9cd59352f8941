package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// document is the on-disk shape of a host-boundary scene file.
type document struct {
	Objects []Object `json:"objects"`
}

// Load reads a scene descriptor file produced by the host side.
func Load(path string) ([]Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scene file %s: %w", path, err)
	}
	return doc.Objects, nil
}

// Save writes descriptors as an indented scene file, creating parents.
func Save(path string, objects []Object) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(document{Objects: objects}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// FileBuilder returns a Builder that persists imported descriptors to a
// scene file at path. It stands in for the host's scene-construction
// primitives when the pipeline runs outside the host process.
func FileBuilder(path string) Builder {
	return BuilderFunc(func(_ context.Context, objects []Object) error {
		return Save(path, objects)
	})
}
