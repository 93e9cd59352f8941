// Package bridge serializes filtered scene objects into the exchange
// artifact and reads them back. The artifact's encoding is this package's
// private business: everything else in the pipeline treats it as an opaque
// file that gets written once and read once per job.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/plan"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/scene"
)

var (
	// ErrSerialization means an object could not be expressed in the
	// exchange format.
	ErrSerialization = errors.New("object not serializable to exchange format")

	// ErrCorruptArtifact means the exchange artifact could not be parsed.
	ErrCorruptArtifact = errors.New("corrupt exchange artifact")
)

// formatVersion is bumped whenever the artifact layout changes; Read
// rejects artifacts from a different version outright.
const formatVersion = 1

type document struct {
	FormatVersion int      `json:"format_version"`
	Generator     string   `json:"generator"`
	Objects       []record `json:"objects"`
}

type record struct {
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	Class     scene.Class     `json:"class"`
	Transform mgl32.Mat4      `json:"transform"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const generator = "maxbridge"

// Bridge converts between scene descriptors and the exchange artifact.
type Bridge struct{}

func New() *Bridge { return &Bridge{} }

// Write serializes the objects the plan marks included to dest, with each
// object's planned coordinate transform pre-applied to its local transform.
// Returns the number of objects written.
func (b *Bridge) Write(objects []scene.Object, p *plan.Plan, dest string) (int, error) {
	doc := document{
		FormatVersion: formatVersion,
		Generator:     generator,
	}

	for _, obj := range objects {
		d, ok := p.Decision(obj.ID)
		if !ok || !d.Include {
			continue
		}
		if !obj.Class.Known() {
			return 0, fmt.Errorf("%w: object %s has class %q", ErrSerialization, obj.ID, obj.Class)
		}
		if len(obj.Payload) > 0 && !json.Valid(obj.Payload) {
			return 0, fmt.Errorf("%w: object %s carries a malformed payload", ErrSerialization, obj.ID)
		}

		doc.Objects = append(doc.Objects, record{
			ID:        obj.ID,
			Name:      obj.Name,
			Class:     obj.Class,
			Transform: d.Transform.Mul4(obj.Transform),
			Payload:   obj.Payload,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return 0, fmt.Errorf("write exchange artifact: %w", err)
	}
	return len(doc.Objects), nil
}

// Read deserializes the exchange artifact at src into scene descriptors.
func (b *Bridge) Read(src string) ([]scene.Object, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read exchange artifact: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	if doc.FormatVersion != formatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d",
			ErrCorruptArtifact, doc.FormatVersion, formatVersion)
	}

	objects := make([]scene.Object, 0, len(doc.Objects))
	for i, rec := range doc.Objects {
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: object #%d has no id", ErrCorruptArtifact, i)
		}
		if !rec.Class.Known() {
			return nil, fmt.Errorf("%w: object %s has class %q", ErrCorruptArtifact, rec.ID, rec.Class)
		}
		objects = append(objects, scene.Object{
			ID:        rec.ID,
			Name:      rec.Name,
			Class:     rec.Class,
			Transform: rec.Transform,
			Payload:   rec.Payload,
		})
	}
	return objects, nil
}
