// Package plan derives the per-object inclusion and coordinate-transform
// plan for one conversion job. Planning is pure: no I/O, no clock, no
// randomness, so identical scene + options always produce an identical plan.
package plan

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/scene"
)

// ErrBadOptions is returned when conversion options fail validation.
var ErrBadOptions = errors.New("invalid conversion options")

// Options are the caller-supplied conversion options, immutable per job.
type Options struct {
	Models     bool `json:"models"`
	Lights     bool `json:"lights"`
	Cameras    bool `json:"cameras"`
	Splines    bool `json:"splines"`
	Animations bool `json:"animations"`
	Materials  bool `json:"materials"`
	Armatures  bool `json:"armatures"`

	// ApplyRotation rotates objects 180 degrees about the X axis, in the
	// pre-scale coordinate frame.
	ApplyRotation bool `json:"apply_rotation"`

	// ScaleFactor is the uniform scale applied to every included object.
	// Must be > 0.
	ScaleFactor float32 `json:"scale_factor"`

	// SelectedOnly restricts export to objects the host marked selected.
	SelectedOnly bool `json:"selected_only,omitempty"`
}

// Defaults mirrors the stock preference panel: every asset class enabled,
// no rotation, 0.01 scale.
func Defaults() Options {
	return Options{
		Models:      true,
		Lights:      true,
		Cameras:     true,
		Splines:     true,
		Animations:  true,
		Materials:   true,
		Armatures:   true,
		ScaleFactor: 0.01,
	}
}

// Validate checks option constraints before a job is admitted.
func (o Options) Validate() error {
	if o.ScaleFactor <= 0 || math.IsNaN(float64(o.ScaleFactor)) || math.IsInf(float64(o.ScaleFactor), 0) {
		return errors.Join(ErrBadOptions, errors.New("scale factor must be > 0"))
	}
	return nil
}

// unconvertible lists feature tags the exchange format cannot express.
// An object carrying any of these is excluded regardless of class flags.
var unconvertible = map[string]bool{
	"metaball":      true,
	"nurbs-surface": true,
	"volume":        true,
	"point-cloud":   true,
}

// Decision is the planned outcome for one scene object.
type Decision struct {
	Include   bool
	Transform mgl32.Mat4
}

// Plan is the read-only mapping from object id to its decision. It is
// computed once per job and never mutated afterwards.
type Plan struct {
	decisions map[string]Decision
}

// Decision looks up the planned decision for an object id.
func (p *Plan) Decision(id string) (Decision, bool) {
	d, ok := p.decisions[id]
	return d, ok
}

// IncludedCount reports how many objects the plan marks for conversion.
func (p *Plan) IncludedCount() int {
	n := 0
	for _, d := range p.decisions {
		if d.Include {
			n++
		}
	}
	return n
}

// Fingerprint returns a stable digest of the whole plan. Two plans computed
// from identical inputs always share a fingerprint.
func (p *Plan) Fingerprint() string {
	ids := make([]string, 0, len(p.decisions))
	for id := range p.decisions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := sha256.New()
	var buf [4]byte
	for _, id := range ids {
		d := p.decisions[id]
		h.Write([]byte(id))
		if d.Include {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
		for _, f := range d.Transform {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Compute builds the plan for the given scene objects and options.
func Compute(objects []scene.Object, opts Options) (*Plan, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	xform := Compose(opts)
	decisions := make(map[string]Decision, len(objects))
	for _, obj := range objects {
		decisions[obj.ID] = Decision{
			Include:   includes(obj, opts),
			Transform: xform,
		}
	}
	return &Plan{decisions: decisions}, nil
}

// Compose builds the job-wide coordinate transform: a 180-degree X rotation
// (when requested) followed by uniform scaling. The rotation happens in the
// pre-scale frame, so the scale factor applies uniformly either way.
func Compose(opts Options) mgl32.Mat4 {
	rot := mgl32.Ident4()
	if opts.ApplyRotation {
		rot = mgl32.HomogRotate3DX(math.Pi)
	}
	s := opts.ScaleFactor
	return mgl32.Scale3D(s, s, s).Mul4(rot)
}

func includes(obj scene.Object, opts Options) bool {
	if opts.SelectedOnly && !obj.Selected {
		return false
	}
	for _, f := range obj.Features {
		if unconvertible[f] {
			return false
		}
	}

	switch obj.Class {
	case scene.ClassModel:
		return opts.Models
	case scene.ClassLight:
		return opts.Lights
	case scene.ClassCamera:
		return opts.Cameras
	case scene.ClassSpline:
		return opts.Splines
	case scene.ClassAnimation:
		return opts.Animations
	case scene.ClassMaterial:
		return opts.Materials
	case scene.ClassArmature:
		// Armatures ride along with either models or animations.
		return opts.Armatures && (opts.Models || opts.Animations)
	default:
		return false
	}
}
