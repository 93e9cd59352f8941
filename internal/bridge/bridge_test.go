package bridge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/plan"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/scene"
)

func mustPlan(t *testing.T, objects []scene.Object, opts plan.Options) *plan.Plan {
	t.Helper()
	p, err := plan.Compute(objects, opts)
	require.NoError(t, err)
	return p
}

func TestWriteReadRoundTrip(t *testing.T) {
	objects := []scene.Object{
		{ID: "cube", Class: scene.ClassModel, Transform: mgl32.Ident4(),
			Payload: json.RawMessage(`{"vertices":8}`)},
		{ID: "sun", Class: scene.ClassLight, Transform: mgl32.Ident4()},
		{ID: "rig", Class: scene.ClassArmature, Transform: mgl32.Ident4()},
		{ID: "helper", Class: scene.ClassUnclassified, Transform: mgl32.Ident4()},
	}
	p := mustPlan(t, objects, plan.Defaults())

	dest := filepath.Join(t.TempDir(), "exchange.scene")
	b := New()

	n, err := b.Write(objects, p, dest)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "unclassified object must not be serialized")

	got, err := b.Read(dest)
	require.NoError(t, err)
	require.Len(t, got, 3)

	classes := map[scene.Class]int{}
	for _, obj := range got {
		classes[obj.Class]++
	}
	assert.Equal(t, map[scene.Class]int{
		scene.ClassModel:    1,
		scene.ClassLight:    1,
		scene.ClassArmature: 1,
	}, classes)
	assert.JSONEq(t, `{"vertices":8}`, string(got[0].Payload))
}

// The planned transform is pre-applied at write time, not left for readers.
func TestWriteAppliesPlannedTransform(t *testing.T) {
	local := mgl32.Translate3D(1, 2, 3)
	objects := []scene.Object{{ID: "cube", Class: scene.ClassModel, Transform: local}}

	opts := plan.Defaults()
	opts.ScaleFactor = 2
	p := mustPlan(t, objects, opts)

	dest := filepath.Join(t.TempDir(), "exchange.scene")
	_, err := New().Write(objects, p, dest)
	require.NoError(t, err)

	got, err := New().Read(dest)
	require.NoError(t, err)
	require.Len(t, got, 1)

	want := mgl32.Scale3D(2, 2, 2).Mul4(local)
	assert.Equal(t, want, got[0].Transform)
}

func TestWriteRejectsMalformedPayload(t *testing.T) {
	objects := []scene.Object{{
		ID:      "bad",
		Class:   scene.ClassModel,
		Payload: json.RawMessage(`{"unterminated`),
	}}
	p := mustPlan(t, objects, plan.Defaults())

	_, err := New().Write(objects, p, filepath.Join(t.TempDir(), "exchange.scene"))
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestReadCorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	b := New()

	garbled := filepath.Join(dir, "garbled")
	require.NoError(t, os.WriteFile(garbled, []byte("not an artifact"), 0o644))
	_, err := b.Read(garbled)
	assert.ErrorIs(t, err, ErrCorruptArtifact)

	wrongVersion := filepath.Join(dir, "wrong-version")
	require.NoError(t, os.WriteFile(wrongVersion, []byte(`{"format_version":99,"objects":[]}`), 0o644))
	_, err = b.Read(wrongVersion)
	assert.ErrorIs(t, err, ErrCorruptArtifact)

	missingID := filepath.Join(dir, "missing-id")
	require.NoError(t, os.WriteFile(missingID,
		[]byte(`{"format_version":1,"objects":[{"class":"model"}]}`), 0o644))
	_, err = b.Read(missingID)
	assert.ErrorIs(t, err, ErrCorruptArtifact)
}
