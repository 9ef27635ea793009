// Package models holds the CPU-side resources a renderer draws: meshes, line
// groups, materials, material properties, textures and cubemaps. Each one
// embeds resource.Base, so renderers can keep a cache per resource, and
// invalidates those caches whenever its GPU-visible content changes.
package models

import (
	"iter"
	"math"

	"github.com/taigrr/prism/pkg/math3d"
	"github.com/taigrr/prism/pkg/resource"
)

// Content flags name the vertex attributes a mesh carries.
type Content uint16

const (
	ContentPosition2D Content = 1 << iota
	ContentPosition3D
	ContentTexCoord2D
	ContentNormal3D
	ContentColor3D
	ContentColor4D
	ContentBoneIDs
	ContentBoneWeights
	ContentSmoothingGroup
)

// Has reports whether every flag in o is set.
func (c Content) Has(o Content) bool { return c&o == o }

// DrawMode is the topology of a mesh.
type DrawMode int

const (
	Triangles DrawMode = iota
	IndexedTriangles
	TriangleStrips
	IndexedTriangleStrips
)

// Indexed reports whether the mode reads the index list.
func (m DrawMode) Indexed() bool {
	return m == IndexedTriangles || m == IndexedTriangleStrips
}

// MeshOption flags change how a mesh is drawn.
type MeshOption uint8

const (
	// DisableCulling draws back faces too.
	DisableCulling MeshOption = 1 << iota
)

// Vertex holds every attribute a mesh vertex may carry. Only the attributes
// named by the mesh contents are packed.
type Vertex struct {
	Position2D     math3d.Vec2
	Position3D     math3d.Vec3
	TexCoord       math3d.Vec2
	Normal         math3d.Vec3
	Color3D        math3d.Vec3
	Color4D        math3d.Vec4
	BoneIDs        [4]uint8
	BoneWeights    math3d.Vec4
	SmoothingGroup uint8
}

// masked returns v with attributes outside c zeroed.
func (v Vertex) masked(c Content) Vertex {
	var out Vertex
	if c.Has(ContentPosition2D) {
		out.Position2D = v.Position2D
	}
	if c.Has(ContentPosition3D) {
		out.Position3D = v.Position3D
	}
	if c.Has(ContentTexCoord2D) {
		out.TexCoord = v.TexCoord
	}
	if c.Has(ContentNormal3D) {
		out.Normal = v.Normal
	}
	if c.Has(ContentColor3D) {
		out.Color3D = v.Color3D
	}
	if c.Has(ContentColor4D) {
		out.Color4D = v.Color4D
	}
	if c.Has(ContentBoneIDs) {
		out.BoneIDs = v.BoneIDs
	}
	if c.Has(ContentBoneWeights) {
		out.BoneWeights = v.BoneWeights
	}
	if c.Has(ContentSmoothingGroup) {
		out.SmoothingGroup = v.SmoothingGroup
	}
	return out
}

// Equal compares the attributes named by c.
func (v Vertex) Equal(o Vertex, c Content) bool {
	return v.masked(c) == o.masked(c)
}

// PackedAttribute locates one attribute in packed vertex data, in float32
// units.
type PackedAttribute struct {
	Content    Content
	Components int
	Offset     int
}

var packOrder = []PackedAttribute{
	{ContentPosition2D, 2, 0},
	{ContentPosition3D, 3, 0},
	{ContentTexCoord2D, 2, 0},
	{ContentNormal3D, 3, 0},
	{ContentColor3D, 3, 0},
	{ContentColor4D, 4, 0},
	{ContentBoneIDs, 4, 0},
	{ContentBoneWeights, 4, 0},
	{ContentSmoothingGroup, 1, 0},
}

// PackedLayout returns the attributes present in contents with their
// offsets, in packing order.
func PackedLayout(contents Content) []PackedAttribute {
	var out []PackedAttribute
	off := 0
	for _, a := range packOrder {
		if !contents.Has(a.Content) {
			continue
		}
		a.Offset = off
		out = append(out, a)
		off += a.Components
	}
	return out
}

// PackedVertexSize returns the size in bytes of one packed vertex.
func PackedVertexSize(contents Content) int {
	n := 0
	for _, a := range PackedLayout(contents) {
		n += a.Components
	}
	return 4 * n
}

func appendPacked(dst []float32, v Vertex, contents Content) []float32 {
	if contents.Has(ContentPosition2D) {
		dst = append(dst, float32(v.Position2D.X), float32(v.Position2D.Y))
	}
	if contents.Has(ContentPosition3D) {
		dst = append(dst, float32(v.Position3D.X), float32(v.Position3D.Y), float32(v.Position3D.Z))
	}
	if contents.Has(ContentTexCoord2D) {
		dst = append(dst, float32(v.TexCoord.X), float32(v.TexCoord.Y))
	}
	if contents.Has(ContentNormal3D) {
		dst = append(dst, float32(v.Normal.X), float32(v.Normal.Y), float32(v.Normal.Z))
	}
	if contents.Has(ContentColor3D) {
		dst = append(dst, float32(v.Color3D.X), float32(v.Color3D.Y), float32(v.Color3D.Z))
	}
	if contents.Has(ContentColor4D) {
		dst = append(dst, float32(v.Color4D.X), float32(v.Color4D.Y), float32(v.Color4D.Z), float32(v.Color4D.W))
	}
	if contents.Has(ContentBoneIDs) {
		for _, id := range v.BoneIDs {
			dst = append(dst, float32(id))
		}
	}
	if contents.Has(ContentBoneWeights) {
		dst = append(dst, float32(v.BoneWeights.X), float32(v.BoneWeights.Y), float32(v.BoneWeights.Z), float32(v.BoneWeights.W))
	}
	if contents.Has(ContentSmoothingGroup) {
		dst = append(dst, float32(v.SmoothingGroup))
	}
	return dst
}

// Mesh is triangle geometry.
type Mesh struct {
	resource.Base

	drawMode DrawMode
	options  MeshOption
	contents Content
	vertices []Vertex
	indices  []uint32

	packed []float32
	bounds *math3d.AABB
}

// NewMesh returns an empty mesh with 3D positions.
func NewMesh() *Mesh {
	m := &Mesh{contents: ContentPosition3D}
	m.Init(resource.KindMesh, nil)
	return m
}

func (m *Mesh) changed() {
	m.packed = nil
	m.bounds = nil
	m.InvalidateCache(resource.AllRenderers)
}

// DrawMode returns the topology.
func (m *Mesh) DrawMode() DrawMode { return m.drawMode }

// SetDrawMode sets the topology.
func (m *Mesh) SetDrawMode(mode DrawMode) {
	m.drawMode = mode
	m.changed()
}

// RenderOptions returns the draw flags.
func (m *Mesh) RenderOptions() MeshOption { return m.options }

// SetRenderOptions sets the draw flags.
func (m *Mesh) SetRenderOptions(o MeshOption) {
	m.options = o
	m.changed()
}

// Contents returns the packed attributes.
func (m *Mesh) Contents() Content { return m.contents }

// SetContents selects the packed attributes.
func (m *Mesh) SetContents(c Content) {
	m.contents = c
	m.changed()
}

// Vertices returns the vertex list. Callers that modify it must call
// SetVertices afterwards.
func (m *Mesh) Vertices() []Vertex { return m.vertices }

// SetVertices replaces the vertex list. The mesh keeps vs.
func (m *Mesh) SetVertices(vs []Vertex) {
	m.vertices = vs
	m.changed()
}

// Indices returns the index list.
func (m *Mesh) Indices() []uint32 { return m.indices }

// SetIndices replaces the index list. The mesh keeps idx.
func (m *Mesh) SetIndices(idx []uint32) {
	m.indices = idx
	m.changed()
}

// PackedData returns the interleaved float32 vertex data for upload.
func (m *Mesh) PackedData() []float32 {
	if m.packed == nil {
		m.packed = make([]float32, 0, len(m.vertices)*PackedVertexSize(m.contents)/4)
		for _, v := range m.vertices {
			m.packed = appendPacked(m.packed, v, m.contents)
		}
	}
	return m.packed
}

// ElementCount returns the number of vertices a draw submits.
func (m *Mesh) ElementCount() int {
	if m.drawMode.Indexed() {
		return len(m.indices)
	}
	return len(m.vertices)
}

// OptimizeIndices merges vertices equal in every packed attribute and
// switches the mesh to the indexed form of its draw mode.
func (m *Mesh) OptimizeIndices() {
	m.vertices, m.indices = dedupe(m.vertices, m.elements(), func(v Vertex) Vertex {
		return v.masked(m.contents)
	})
	switch m.drawMode {
	case Triangles:
		m.drawMode = IndexedTriangles
	case TriangleStrips:
		m.drawMode = IndexedTriangleStrips
	}
	m.changed()
}

// elements returns the vertex index sequence a draw walks.
func (m *Mesh) elements() []uint32 {
	if m.drawMode.Indexed() {
		return m.indices
	}
	seq := make([]uint32, len(m.vertices))
	for i := range seq {
		seq[i] = uint32(i)
	}
	return seq
}

func dedupe[V comparable](vertices []V, elements []uint32, key func(V) V) ([]V, []uint32) {
	seen := make(map[V]uint32, len(vertices))
	var out []V
	indices := make([]uint32, 0, len(elements))
	for _, e := range elements {
		k := key(vertices[e])
		idx, ok := seen[k]
		if !ok {
			idx = uint32(len(out))
			seen[k] = idx
			out = append(out, vertices[e])
		}
		indices = append(indices, idx)
	}
	return out, indices
}

// Triangles yields the vertex indices of each triangle, with strip winding
// corrected.
func (m *Mesh) Triangles() iter.Seq[[3]uint32] {
	elems := m.elements()
	strip := m.drawMode == TriangleStrips || m.drawMode == IndexedTriangleStrips
	return func(yield func([3]uint32) bool) {
		if strip {
			for i := 0; i+2 < len(elems); i++ {
				t := [3]uint32{elems[i], elems[i+1], elems[i+2]}
				if i%2 == 1 {
					t[0], t[1] = t[1], t[0]
				}
				if !yield(t) {
					return
				}
			}
			return
		}
		for i := 0; i+2 < len(elems); i += 3 {
			if !yield([3]uint32{elems[i], elems[i+1], elems[i+2]}) {
				return
			}
		}
	}
}

// position returns the vertex position, lifting 2D positions to z=0.
func (m *Mesh) position(i uint32) math3d.Vec3 {
	v := m.vertices[i]
	if !m.contents.Has(ContentPosition3D) && m.contents.Has(ContentPosition2D) {
		return math3d.V3(v.Position2D.X, v.Position2D.Y, 0)
	}
	return v.Position3D
}

// Bounds returns the local-space bounding box.
func (m *Mesh) Bounds() math3d.AABB {
	if m.bounds == nil {
		b := math3d.EmptyAABB()
		for i := range m.vertices {
			b = b.Extend(m.position(uint32(i)))
		}
		m.bounds = &b
	}
	return *m.bounds
}

// CalculateNormals sets each vertex normal to the area-weighted average of
// the faces using it and adds ContentNormal3D.
func (m *Mesh) CalculateNormals() {
	for i := range m.vertices {
		m.vertices[i].Normal = math3d.Zero3()
	}
	for t := range m.Triangles() {
		p0, p1, p2 := m.position(t[0]), m.position(t[1]), m.position(t[2])
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		for _, i := range t {
			m.vertices[i].Normal = m.vertices[i].Normal.Add(n)
		}
	}
	for i := range m.vertices {
		m.vertices[i].Normal = m.vertices[i].Normal.Normalize()
	}
	m.contents |= ContentNormal3D
	m.changed()
}

// Intersect returns the nearest point where the ray hits a triangle, in
// mesh space.
func (m *Mesh) Intersect(origin, dir math3d.Vec3) (math3d.Vec3, bool) {
	best := math.Inf(1)
	for t := range m.Triangles() {
		if d, ok := math3d.IntersectTriangle(origin, dir, m.position(t[0]), m.position(t[1]), m.position(t[2])); ok && d < best {
			best = d
		}
	}
	if math.IsInf(best, 1) {
		return math3d.Vec3{}, false
	}
	return origin.Add(dir.Scale(best)), true
}

// Clone returns an unregistered deep copy without caches.
func (m *Mesh) Clone() *Mesh {
	c := NewMesh()
	c.drawMode = m.drawMode
	c.options = m.options
	c.contents = m.contents
	c.vertices = append([]Vertex(nil), m.vertices...)
	c.indices = append([]uint32(nil), m.indices...)
	return c
}
