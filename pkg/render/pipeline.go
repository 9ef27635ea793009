package render

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/prism/pkg/gpu"
)

func (d *Device) Draw(call gpu.DrawCall) {
	if !d.check() {
		return
	}
	p, ok := d.objects[d.state.Program].(*program)
	if !ok {
		d.record(gpu.ErrNoProgram)
		return
	}
	vb, ok := d.objects[call.Vertices].(*buffer)
	if !ok {
		d.record(fmt.Errorf("%w: vertex buffer %d", gpu.ErrInvalidHandle, call.Vertices))
		return
	}
	var ib *buffer
	if call.Indices != gpu.NoHandle {
		if ib, ok = d.objects[call.Indices].(*buffer); !ok {
			d.record(fmt.Errorf("%w: index buffer %d", gpu.ErrInvalidHandle, call.Indices))
			return
		}
	}
	if call.Layout.Stride <= 0 || call.First < 0 || call.Count < 0 {
		d.record(fmt.Errorf("%w: draw stride %d range %d+%d", gpu.ErrInvalidValue, call.Layout.Stride, call.First, call.Count))
		return
	}
	for _, a := range call.Layout.Attributes {
		if a.Location < 0 || a.Location >= gpu.AttribCount || a.Components < 1 || a.Components > 4 {
			d.record(fmt.Errorf("%w: attribute %+v", gpu.ErrInvalidValue, a))
			return
		}
	}
	fb, err := d.framebuffer(d.state.Framebuffer)
	if err != nil {
		d.record(err)
		return
	}
	if !fb.complete() {
		d.record(gpu.ErrIncomplete)
		return
	}

	vertexCount := len(vb.data) / call.Layout.Stride
	indices := make([]int, 0, call.Count)
	for i := call.First; i < call.First+call.Count; i++ {
		n := i
		if ib != nil {
			if 4*i+4 > len(ib.data) {
				d.record(fmt.Errorf("%w: index %d beyond buffer", gpu.ErrInvalidValue, i))
				return
			}
			n = int(binary.LittleEndian.Uint32(ib.data[4*i:]))
		}
		if n >= vertexCount {
			d.record(fmt.Errorf("%w: vertex %d of %d", gpu.ErrInvalidValue, n, vertexCount))
			return
		}
		indices = append(indices, n)
	}

	shaded := make(map[int]vertexOut, len(indices))
	vertex := func(n int) vertexOut {
		if out, ok := shaded[n]; ok {
			return out
		}
		in := fetchVertex(vb.data, call.Layout, n)
		out := p.vs.run(p, &in)
		shaded[n] = out
		return out
	}

	d.stats.DrawCalls++
	r := newRaster(d, p, fb, call.LineWidth)
	switch call.Primitive {
	case gpu.Triangles:
		for i := 0; i+2 < len(indices); i += 3 {
			r.triangle(vertex(indices[i]), vertex(indices[i+1]), vertex(indices[i+2]))
		}
	case gpu.TriangleStrip:
		for i := 0; i+2 < len(indices); i++ {
			a, b := vertex(indices[i]), vertex(indices[i+1])
			if i%2 == 1 {
				a, b = b, a
			}
			r.triangle(a, b, vertex(indices[i+2]))
		}
	case gpu.Lines:
		for i := 0; i+1 < len(indices); i += 2 {
			r.line(vertex(indices[i]), vertex(indices[i+1]))
		}
	case gpu.LineStrip:
		for i := 0; i+1 < len(indices); i++ {
			r.line(vertex(indices[i]), vertex(indices[i+1]))
		}
	default:
		d.record(fmt.Errorf("%w: primitive %d", gpu.ErrInvalidValue, call.Primitive))
	}
}

func (f *framebuffer) complete() bool {
	attached := false
	for _, a := range f.color {
		if a.tex == nil {
			continue
		}
		lvl := a.tex.layers[a.layer][0]
		if lvl.w != f.width || lvl.h != f.height {
			return false
		}
		attached = true
	}
	return attached
}

func fetchVertex(data []byte, layout gpu.VertexLayout, n int) vertexIn {
	var in vertexIn
	base := n * layout.Stride
	for _, a := range layout.Attributes {
		var v mgl32.Vec4
		if a.Components < 4 {
			v[3] = 1
		}
		for c := range a.Components {
			off := base + a.Offset + 4*c
			if off+4 > len(data) {
				break
			}
			v[c] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		}
		in.attrs[a.Location] = v
		in.has[a.Location] = true
	}
	return in
}
