package models

import (
	"github.com/taigrr/prism/pkg/math3d"
	"github.com/taigrr/prism/pkg/resource"
)

// LineMode is the topology of a line group.
type LineMode int

const (
	Lines LineMode = iota
	IndexedLines
	LineStrips
	IndexedLineStrips
)

// Indexed reports whether the mode reads the index list.
func (m LineMode) Indexed() bool { return m == IndexedLines || m == IndexedLineStrips }

// lineContents are the attributes a line vertex may carry.
const lineContents = ContentPosition2D | ContentPosition3D | ContentColor3D | ContentColor4D

// LineGroup is line geometry with a thickness in pixels.
type LineGroup struct {
	resource.Base

	drawMode  LineMode
	contents  Content
	thickness float64
	vertices  []Vertex
	indices   []uint32

	packed []float32
}

// NewLineGroup returns an empty line group with 3D positions and a
// thickness of one pixel.
func NewLineGroup() *LineGroup {
	l := &LineGroup{contents: ContentPosition3D, thickness: 1}
	l.Init(resource.KindLineGroup, nil)
	return l
}

func (l *LineGroup) changed() {
	l.packed = nil
	l.InvalidateCache(resource.AllRenderers)
}

// DrawMode returns the topology.
func (l *LineGroup) DrawMode() LineMode { return l.drawMode }

// SetDrawMode sets the topology.
func (l *LineGroup) SetDrawMode(m LineMode) {
	l.drawMode = m
	l.changed()
}

// Contents returns the packed attributes.
func (l *LineGroup) Contents() Content { return l.contents }

// SetContents selects the packed attributes. Flags other than positions and
// colors are ignored.
func (l *LineGroup) SetContents(c Content) {
	l.contents = c & lineContents
	l.changed()
}

// Thickness returns the line width in pixels.
func (l *LineGroup) Thickness() float64 { return l.thickness }

// SetThickness sets the line width in pixels.
func (l *LineGroup) SetThickness(t float64) {
	l.thickness = t
	l.changed()
}

// Vertices returns the vertex list.
func (l *LineGroup) Vertices() []Vertex { return l.vertices }

// SetVertices replaces the vertex list.
func (l *LineGroup) SetVertices(vs []Vertex) {
	l.vertices = vs
	l.changed()
}

// Indices returns the index list.
func (l *LineGroup) Indices() []uint32 { return l.indices }

// SetIndices replaces the index list.
func (l *LineGroup) SetIndices(idx []uint32) {
	l.indices = idx
	l.changed()
}

// AddLine appends a segment between two 3D points.
func (l *LineGroup) AddLine(a, b math3d.Vec3) {
	l.vertices = append(l.vertices, Vertex{Position3D: a}, Vertex{Position3D: b})
	if l.drawMode.Indexed() {
		n := uint32(len(l.vertices))
		l.indices = append(l.indices, n-2, n-1)
	}
	l.changed()
}

// PackedData returns the interleaved float32 vertex data for upload.
func (l *LineGroup) PackedData() []float32 {
	if l.packed == nil {
		l.packed = make([]float32, 0, len(l.vertices)*PackedVertexSize(l.contents)/4)
		for _, v := range l.vertices {
			l.packed = appendPacked(l.packed, v, l.contents)
		}
	}
	return l.packed
}

// ElementCount returns the number of vertices a draw submits.
func (l *LineGroup) ElementCount() int {
	if l.drawMode.Indexed() {
		return len(l.indices)
	}
	return len(l.vertices)
}

// OptimizeIndices merges equal vertices and switches to the indexed form of
// the draw mode.
func (l *LineGroup) OptimizeIndices() {
	elems := l.indices
	if !l.drawMode.Indexed() {
		elems = make([]uint32, len(l.vertices))
		for i := range elems {
			elems[i] = uint32(i)
		}
	}
	l.vertices, l.indices = dedupe(l.vertices, elems, func(v Vertex) Vertex {
		return v.masked(l.contents)
	})
	switch l.drawMode {
	case Lines:
		l.drawMode = IndexedLines
	case LineStrips:
		l.drawMode = IndexedLineStrips
	}
	l.changed()
}

// Clone returns an unregistered deep copy without caches.
func (l *LineGroup) Clone() *LineGroup {
	c := NewLineGroup()
	c.drawMode = l.drawMode
	c.contents = l.contents
	c.thickness = l.thickness
	c.vertices = append([]Vertex(nil), l.vertices...)
	c.indices = append([]uint32(nil), l.indices...)
	return c
}
