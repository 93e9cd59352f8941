package scene

import (
	"context"
	"encoding/json"

	"github.com/go-gl/mathgl/mgl32"
)

// Class tags an object with the asset class it belongs to. Every object
// carries exactly one class; anything the bridge cannot express is tagged
// ClassUnclassified and never crosses the format boundary.
type Class string

const (
	ClassModel        Class = "model"
	ClassLight        Class = "light"
	ClassCamera       Class = "camera"
	ClassSpline       Class = "spline"
	ClassAnimation    Class = "animation"
	ClassMaterial     Class = "material"
	ClassArmature     Class = "armature"
	ClassUnclassified Class = "unclassified"
)

// Known reports whether c is one of the convertible asset classes.
func (c Class) Known() bool {
	switch c {
	case ClassModel, ClassLight, ClassCamera, ClassSpline,
		ClassAnimation, ClassMaterial, ClassArmature:
		return true
	}
	return false
}

// Direction selects which way scene data flows through the pipeline.
type Direction string

const (
	DirectionExport Direction = "export"
	DirectionImport Direction = "import"
)

// Valid reports whether d is a recognised conversion direction.
func (d Direction) Valid() bool {
	return d == DirectionExport || d == DirectionImport
}

// Object is the descriptor shape exchanged with the host application.
// The per-class payload is opaque to the pipeline; only id, class, feature
// tags and the local transform are interpreted here.
type Object struct {
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	Class     Class           `json:"class"`
	Transform mgl32.Mat4      `json:"transform"`
	Features  []string        `json:"features,omitempty"`
	Selected  bool            `json:"selected,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Builder is the scene-construction collaborator that receives descriptors
// produced by an import. The host's own primitives live behind it.
type Builder interface {
	Build(ctx context.Context, objects []Object) error
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, objects []Object) error

func (f BuilderFunc) Build(ctx context.Context, objects []Object) error {
	return f(ctx, objects)
}
