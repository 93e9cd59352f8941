package plan

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/scene"
)

func sampleScene() []scene.Object {
	return []scene.Object{
		{ID: "cube", Class: scene.ClassModel, Transform: mgl32.Ident4()},
		{ID: "sun", Class: scene.ClassLight, Transform: mgl32.Ident4()},
		{ID: "cam", Class: scene.ClassCamera, Transform: mgl32.Ident4()},
		{ID: "path", Class: scene.ClassSpline, Transform: mgl32.Ident4()},
		{ID: "walk", Class: scene.ClassAnimation, Transform: mgl32.Ident4()},
		{ID: "steel", Class: scene.ClassMaterial, Transform: mgl32.Ident4()},
		{ID: "rig", Class: scene.ClassArmature, Transform: mgl32.Ident4()},
		{ID: "helper", Class: scene.ClassUnclassified, Transform: mgl32.Ident4()},
	}
}

func TestComputeDeterministic(t *testing.T) {
	objects := sampleScene()
	opts := Defaults()
	opts.ApplyRotation = true

	a, err := Compute(objects, opts)
	require.NoError(t, err)
	b, err := Compute(objects, opts)
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	opts.ScaleFactor = 2
	c, err := Compute(objects, opts)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestComputeClassFlags(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Options)
		excluded []string
	}{
		{"no models", func(o *Options) { o.Models = false }, []string{"cube"}},
		{"no lights", func(o *Options) { o.Lights = false }, []string{"sun"}},
		{"no cameras", func(o *Options) { o.Cameras = false }, []string{"cam"}},
		{"no splines", func(o *Options) { o.Splines = false }, []string{"path"}},
		{"no materials", func(o *Options) { o.Materials = false }, []string{"steel"}},
		{"no armatures", func(o *Options) { o.Armatures = false }, []string{"rig"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Defaults()
			tt.mutate(&opts)
			p, err := Compute(sampleScene(), opts)
			require.NoError(t, err)

			for _, id := range tt.excluded {
				d, ok := p.Decision(id)
				require.True(t, ok)
				assert.False(t, d.Include, "object %s should be excluded", id)
			}
		})
	}
}

// Armatures stay convertible while either models or animations are on, and
// drop out only when both are off.
func TestComputeArmatureCoupling(t *testing.T) {
	objects := sampleScene()

	opts := Defaults()
	opts.Models = false
	p, err := Compute(objects, opts)
	require.NoError(t, err)
	d, _ := p.Decision("rig")
	assert.True(t, d.Include)

	opts.Animations = false
	p, err = Compute(objects, opts)
	require.NoError(t, err)
	d, _ = p.Decision("rig")
	assert.False(t, d.Include)
}

func TestComputeExcludesUnclassifiedAndUnconvertible(t *testing.T) {
	objects := append(sampleScene(), scene.Object{
		ID:       "blob",
		Class:    scene.ClassModel,
		Features: []string{"metaball"},
	})

	p, err := Compute(objects, Defaults())
	require.NoError(t, err)

	d, ok := p.Decision("helper")
	require.True(t, ok)
	assert.False(t, d.Include, "unclassified objects are always excluded")

	d, ok = p.Decision("blob")
	require.True(t, ok)
	assert.False(t, d.Include, "unconvertible feature must exclude the object")
}

func TestComputeSelectedOnly(t *testing.T) {
	objects := []scene.Object{
		{ID: "picked", Class: scene.ClassModel, Selected: true},
		{ID: "ignored", Class: scene.ClassModel},
	}
	opts := Defaults()
	opts.SelectedOnly = true

	p, err := Compute(objects, opts)
	require.NoError(t, err)

	d, _ := p.Decision("picked")
	assert.True(t, d.Include)
	d, _ = p.Decision("ignored")
	assert.False(t, d.Include)
}

func TestComputeRejectsBadScale(t *testing.T) {
	for _, s := range []float32{0, -1} {
		opts := Defaults()
		opts.ScaleFactor = s
		_, err := Compute(sampleScene(), opts)
		assert.ErrorIs(t, err, ErrBadOptions)
	}
}

// The composed transform is rotation-then-scale. Verified with an asymmetric
// point: rotating (1,2,3) by 180 degrees about X gives (1,-2,-3), then a
// 0.5 scale gives (0.5,-1,-1.5).
func TestComposeRotationBeforeScale(t *testing.T) {
	opts := Defaults()
	opts.ApplyRotation = true
	opts.ScaleFactor = 0.5

	m := Compose(opts)
	got := m.Mul4x1(mgl32.Vec4{1, 2, 3, 1})

	assert.InDelta(t, 0.5, got.X(), 1e-5)
	assert.InDelta(t, -1.0, got.Y(), 1e-5)
	assert.InDelta(t, -1.5, got.Z(), 1e-5)

	// Explicit order check against the reversed composition.
	want := mgl32.Scale3D(0.5, 0.5, 0.5).Mul4(mgl32.HomogRotate3DX(math.Pi))
	assert.Equal(t, want, m)
}
