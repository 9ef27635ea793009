package models

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/prism/pkg/gpu"
	"github.com/taigrr/prism/pkg/math3d"
)

func TestLoadGLTFInvalidPath(t *testing.T) {
	_, err := LoadGLTF(context.Background(), "/nonexistent/path.glb")
	assert.Error(t, err)
}

func TestGLTFLoaderDefaults(t *testing.T) {
	l := NewGLTFLoader()
	assert.True(t, l.CalculateNormals)
	assert.Positive(t, l.Workers)
}

// writeTriangleGLB saves a one-triangle document with a translucent red
// material and returns its path.
func writeTriangleGLB(t *testing.T) string {
	t.Helper()
	doc := gltf.NewDocument()
	doc.Materials = []*gltf.Material{{
		Name:      "red",
		AlphaMode: gltf.AlphaBlend,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{1, 0, 0, 0.5},
		},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Indices: gltf.Index(modeler.WriteIndices(doc, []uint16{0, 1, 2})),
			Attributes: map[string]int{
				gltf.POSITION:   modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}),
				gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}}),
			},
			Material: gltf.Index(0),
		}},
	}}
	path := filepath.Join(t.TempDir(), "tri.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))
	return path
}

func TestLoadGLB(t *testing.T) {
	im, err := LoadGLTF(context.Background(), writeTriangleGLB(t))
	require.NoError(t, err)
	defer im.Destroy()

	require.Len(t, im.Groups, 1)
	g := im.Groups[0]
	assert.Equal(t, "tri.0", g.Name)

	mesh := g.Mesh
	assert.Equal(t, IndexedTriangles, mesh.DrawMode())
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices())
	assert.True(t, mesh.Contents().Has(ContentPosition3D|ContentTexCoord2D|ContentNormal3D))

	vs := mesh.Vertices()
	require.Len(t, vs, 3)
	assert.Equal(t, math3d.V3(1, 0, 0), vs[1].Position3D)
	assert.Equal(t, math3d.V2(0, 1), vs[0].TexCoord, "v is flipped")
	assert.InDelta(t, 1, vs[0].Normal.Z, 1e-6, "normals are computed counter-clockwise")

	require.NotNil(t, g.Properties)
	assert.True(t, g.Properties.IsTranslucent())
	assert.Equal(t, math3d.V4(1, 0, 0, 0.5), g.Properties.Value(gpu.UniformBaseColor, nil))
}
