package models

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gobuffalo/packr"
	"github.com/sirupsen/logrus"

	"github.com/taigrr/prism/pkg/logging"
	"github.com/taigrr/prism/pkg/math3d"
)

var shaderBox = packr.NewBox("./shaders")

// StandardMesh names a built-in mesh.
type StandardMesh int

const (
	// Triangle2DMesh is a colored triangle in the XY plane.
	Triangle2DMesh StandardMesh = iota
	// ScreenQuadMesh covers clip space as a triangle strip.
	ScreenQuadMesh
	// UnitQuadMesh is a textured unit square in the XY plane facing +Z.
	UnitQuadMesh
	// CubeIndexedMesh is a unit cube with per-face normals and uvs.
	CubeIndexedMesh
	standardMeshCount
)

// StandardMaterial names a built-in material.
type StandardMaterial int

const (
	Basic2DMaterial StandardMaterial = iota
	Basic3DMaterial
	// SampleTranslucentMaterial lights like Basic3D and draws in the
	// order-independent transparency pass.
	SampleTranslucentMaterial
	LineMaterial
	SkyboxMaterial
	OITCompositeMaterial
	BRDFLUTMaterial
	IrradianceMaterial
	// BillboardMaterial draws a camera-facing quad textured by the albedo
	// slot, discarding transparent texels.
	BillboardMaterial
	standardMaterialCount
)

// StandardTexture names a built-in texture.
type StandardTexture int

const (
	// MissingTexture is a magenta and black checker bound in place of dead
	// textures.
	MissingTexture StandardTexture = iota
	WhiteTexture
	BlackTexture
	standardTextureCount
)

type materialSource struct {
	vertex, fragment string
	options          MaterialOption
}

var materialSources = [standardMaterialCount]materialSource{
	Basic2DMaterial:           {"transform.vert.soft", "basic2d.frag.soft", 0},
	Basic3DMaterial:           {"transform.vert.soft", "basic3d.frag.soft", 0},
	SampleTranslucentMaterial: {"transform.vert.soft", "translucent.frag.soft", Translucent},
	LineMaterial:              {"transform.vert.soft", "line.frag.soft", 0},
	SkyboxMaterial:            {"skybox.vert.soft", "skybox.frag.soft", 0},
	OITCompositeMaterial:      {"screen.vert.soft", "composite.frag.soft", 0},
	BRDFLUTMaterial:           {"screen.vert.soft", "brdf.frag.soft", 0},
	IrradianceMaterial:        {"screen.vert.soft", "irradiance.frag.soft", 0},
	BillboardMaterial:         {"billboard.vert.soft", "billboard.frag.soft", 0},
}

// Defaults holds the standard resources. Each is built on first access
// and lives until Destroy.
type Defaults struct {
	log       logrus.FieldLogger
	meshes    [standardMeshCount]*Mesh
	materials [standardMaterialCount]*Material
	textures  [standardTextureCount]*Texture
}

// NewDefaults returns an empty registry.
func NewDefaults(log logrus.FieldLogger) *Defaults {
	return &Defaults{log: logging.OrDefault(log).WithField("component", "defaults")}
}

// Mesh returns the standard mesh id.
func (d *Defaults) Mesh(id StandardMesh) *Mesh {
	if id < 0 || id >= standardMeshCount {
		return nil
	}
	if d.meshes[id] == nil {
		m := buildMesh(id)
		m.SetLogger(d.log)
		d.meshes[id] = m
	}
	return d.meshes[id]
}

// Material returns the standard material id.
func (d *Defaults) Material(id StandardMaterial) *Material {
	if id < 0 || id >= standardMaterialCount {
		return nil
	}
	if d.materials[id] == nil {
		src := materialSources[id]
		m := NewMaterial()
		m.SetLogger(d.log)
		m.SetName(fmt.Sprintf("standard material %d", id))
		m.SetRenderOptions(src.options)
		for stage, file := range map[ShaderStage]string{VertexStage: src.vertex, FragmentStage: src.fragment} {
			text, err := shaderBox.FindString(file)
			if err != nil {
				d.log.WithError(err).WithField("file", file).Error("standard shader missing")
				continue
			}
			m.SetShader(ShaderSoft, stage, text)
		}
		d.materials[id] = m
	}
	return d.materials[id]
}

// Texture returns the standard texture id.
func (d *Defaults) Texture(id StandardTexture) *Texture {
	if id < 0 || id >= standardTextureCount {
		return nil
	}
	if d.textures[id] == nil {
		t := buildTexture(id)
		t.SetLogger(d.log)
		d.textures[id] = t
	}
	return d.textures[id]
}

// Destroy destroys every standard resource built so far. Later accesses
// build fresh ones.
func (d *Defaults) Destroy() {
	for i, m := range d.meshes {
		if m != nil {
			m.Destroy()
			d.meshes[i] = nil
		}
	}
	for i, m := range d.materials {
		if m != nil {
			m.Destroy()
			d.materials[i] = nil
		}
	}
	for i, t := range d.textures {
		if t != nil {
			t.Destroy()
			d.textures[i] = nil
		}
	}
}

func buildTexture(id StandardTexture) *Texture {
	switch id {
	case WhiteTexture:
		return SolidTexture(color.White)
	case BlackTexture:
		return SolidTexture(color.Black)
	}
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	magenta := color.NRGBA{R: 255, B: 255, A: 255}
	for y := range 8 {
		for x := range 8 {
			c := color.NRGBA{A: 255}
			if (x+y)%2 == 0 {
				c = magenta
			}
			img.SetNRGBA(x, y, c)
		}
	}
	t := NewTexture(img)
	t.SetFilters(Nearest, Nearest)
	return t
}

func buildMesh(id StandardMesh) *Mesh {
	m := NewMesh()
	switch id {
	case Triangle2DMesh:
		m.SetContents(ContentPosition2D | ContentColor3D)
		m.SetVertices([]Vertex{
			{Position2D: math3d.V2(-0.5, -0.5), Color3D: math3d.V3(1, 0, 0)},
			{Position2D: math3d.V2(0.5, -0.5), Color3D: math3d.V3(0, 1, 0)},
			{Position2D: math3d.V2(0, 0.5), Color3D: math3d.V3(0, 0, 1)},
		})
	case ScreenQuadMesh:
		m.SetContents(ContentPosition2D | ContentTexCoord2D)
		m.SetDrawMode(TriangleStrips)
		m.SetVertices([]Vertex{
			{Position2D: math3d.V2(-1, -1), TexCoord: math3d.V2(0, 0)},
			{Position2D: math3d.V2(1, -1), TexCoord: math3d.V2(1, 0)},
			{Position2D: math3d.V2(-1, 1), TexCoord: math3d.V2(0, 1)},
			{Position2D: math3d.V2(1, 1), TexCoord: math3d.V2(1, 1)},
		})
	case UnitQuadMesh:
		m.SetContents(ContentPosition3D | ContentTexCoord2D | ContentNormal3D)
		m.SetDrawMode(IndexedTriangles)
		n := math3d.V3(0, 0, 1)
		m.SetVertices([]Vertex{
			{Position3D: math3d.V3(-0.5, -0.5, 0), TexCoord: math3d.V2(0, 0), Normal: n},
			{Position3D: math3d.V3(0.5, -0.5, 0), TexCoord: math3d.V2(1, 0), Normal: n},
			{Position3D: math3d.V3(0.5, 0.5, 0), TexCoord: math3d.V2(1, 1), Normal: n},
			{Position3D: math3d.V3(-0.5, 0.5, 0), TexCoord: math3d.V2(0, 1), Normal: n},
		})
		m.SetIndices([]uint32{0, 1, 2, 0, 2, 3})
	case CubeIndexedMesh:
		m.SetContents(ContentPosition3D | ContentTexCoord2D | ContentNormal3D)
		m.SetDrawMode(IndexedTriangles)
		vs, idx := cube()
		m.SetVertices(vs)
		m.SetIndices(idx)
	}
	return m
}

// cube builds a unit cube with counter-clockwise faces seen from outside.
func cube() ([]Vertex, []uint32) {
	// normal, u, v with u x v = normal
	faces := [6][3]math3d.Vec3{
		{math3d.V3(1, 0, 0), math3d.V3(0, 0, -1), math3d.V3(0, 1, 0)},
		{math3d.V3(-1, 0, 0), math3d.V3(0, 0, 1), math3d.V3(0, 1, 0)},
		{math3d.V3(0, 1, 0), math3d.V3(1, 0, 0), math3d.V3(0, 0, -1)},
		{math3d.V3(0, -1, 0), math3d.V3(1, 0, 0), math3d.V3(0, 0, 1)},
		{math3d.V3(0, 0, 1), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0)},
		{math3d.V3(0, 0, -1), math3d.V3(-1, 0, 0), math3d.V3(0, 1, 0)},
	}
	corners := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	vs := make([]Vertex, 0, 24)
	idx := make([]uint32, 0, 36)
	for _, f := range faces {
		n, u, v := f[0], f[1], f[2]
		base := uint32(len(vs))
		for _, c := range corners {
			p := n.Add(u.Scale(c[0])).Add(v.Scale(c[1])).Scale(0.5)
			vs = append(vs, Vertex{
				Position3D: p,
				Normal:     n,
				TexCoord:   math3d.V2((c[0]+1)/2, (c[1]+1)/2),
			})
		}
		idx = append(idx, base, base+1, base+2, base, base+2, base+3)
	}
	return vs, idx
}
