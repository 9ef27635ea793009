package render

import (
	"math"

	"github.com/taigrr/prism/pkg/gpu"
)

// raster turns clip-space primitives into fragments for one draw call.
type raster struct {
	dev       *Device
	p         *program
	fb        *framebuffer
	state     gpu.State
	lineWidth float32

	// pixel bounds of the viewport inside the target, inclusive
	minX, maxX, minY, maxY int
	// viewport origin and size in target rows (top first)
	vx, vy, vw, vh float64
}

type screenVertex struct {
	x, y, z float64
	invW    float64
	v       varyings
}

func newRaster(d *Device, p *program, fb *framebuffer, lineWidth float32) *raster {
	vp := d.state.Viewport
	top := fb.height - vp.Y - vp.Height
	return &raster{
		dev:       d,
		p:         p,
		fb:        fb,
		state:     d.state,
		lineWidth: lineWidth,
		minX:      max(0, vp.X),
		maxX:      min(fb.width, vp.X+vp.Width) - 1,
		minY:      max(0, top),
		maxY:      min(fb.height, top+vp.Height) - 1,
		vx:        float64(vp.X),
		vy:        float64(top),
		vw:        float64(vp.Width),
		vh:        float64(vp.Height),
	}
}

// nearDistance is positive on the visible side of the near plane.
func nearDistance(v *vertexOut) float32 {
	return v.clip[2] + v.clip[3]
}

func lerpVertex(a, b *vertexOut, t float32) vertexOut {
	out := vertexOut{clip: a.clip.Add(b.clip.Sub(a.clip).Mul(t))}
	for i := range out.v {
		out.v[i] = a.v[i] + (b.v[i]-a.v[i])*t
	}
	return out
}

// clipNear clips a polygon against the near plane.
func clipNear(poly []vertexOut) []vertexOut {
	out := make([]vertexOut, 0, len(poly)+1)
	for i := range poly {
		a, b := &poly[i], &poly[(i+1)%len(poly)]
		da, db := nearDistance(a), nearDistance(b)
		if da >= 0 {
			out = append(out, *a)
		}
		if (da >= 0) != (db >= 0) {
			out = append(out, lerpVertex(a, b, da/(da-db)))
		}
	}
	return out
}

func (r *raster) project(v *vertexOut) screenVertex {
	w := float64(v.clip[3])
	if w == 0 {
		w = 1e-9
	}
	inv := 1 / w
	return screenVertex{
		x:    r.vx + (float64(v.clip[0])*inv+1)*0.5*r.vw,
		y:    r.vy + (1-float64(v.clip[1])*inv)*0.5*r.vh,
		z:    float64(v.clip[2])*inv*0.5 + 0.5,
		invW: inv,
		v:    v.v,
	}
}

// edgeCoeffs returns A, B, C for edge(x,y) = A*x + B*y + C.
func edgeCoeffs(x0, y0, x1, y1 float64) (a, b, c float64) {
	return y0 - y1, x1 - x0, x0*y1 - x1*y0
}

// ownsEdge breaks ties for pixel centers exactly on an edge so triangles
// sharing the edge do not both cover the pixel.
func ownsEdge(w, a, b float64) bool {
	return w > 0 || (w == 0 && (a > 0 || (a == 0 && b > 0)))
}

func (r *raster) triangle(a, b, c vertexOut) {
	poly := clipNear([]vertexOut{a, b, c})
	if len(poly) < 3 {
		return
	}
	sv := make([]screenVertex, len(poly))
	for i := range poly {
		sv[i] = r.project(&poly[i])
	}
	for i := 1; i+1 < len(sv); i++ {
		r.fill(sv[0], sv[i], sv[i+1])
	}
}

func (r *raster) fill(v0, v1, v2 screenVertex) {
	area := (v1.x-v0.x)*(v2.y-v0.y) - (v1.y-v0.y)*(v2.x-v0.x)
	if area == 0 {
		return
	}
	// Counter-clockwise in clip space is clockwise once rows grow downward.
	front := area < 0
	if r.state.Features[gpu.CullFace] && !front {
		return
	}
	if area < 0 {
		v1, v2 = v2, v1
		area = -area
	}

	minX := max(r.minX, int(math.Floor(min(v0.x, v1.x, v2.x))))
	maxX := min(r.maxX, int(math.Ceil(max(v0.x, v1.x, v2.x))))
	minY := max(r.minY, int(math.Floor(min(v0.y, v1.y, v2.y))))
	maxY := min(r.maxY, int(math.Ceil(max(v0.y, v1.y, v2.y))))
	if minX > maxX || minY > maxY {
		return
	}

	// Edge 0: v1 -> v2, edge 1: v2 -> v0, edge 2: v0 -> v1.
	a0, b0, c0 := edgeCoeffs(v1.x, v1.y, v2.x, v2.y)
	a1, b1, c1 := edgeCoeffs(v2.x, v2.y, v0.x, v0.y)
	a2, b2, c2 := edgeCoeffs(v0.x, v0.y, v1.x, v1.y)
	invArea := 1 / area

	var vary varyings
	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := a0*px + b0*py + c0
			w1 := a1*px + b1*py + c1
			w2 := a2*px + b2*py + c2
			if !ownsEdge(w0, a0, b0) || !ownsEdge(w1, a1, b1) || !ownsEdge(w2, a2, b2) {
				continue
			}

			bc0, bc1, bc2 := w0*invArea, w1*invArea, w2*invArea
			z := bc0*v0.z + bc1*v1.z + bc2*v2.z

			// Perspective-correct interpolation.
			pw0, pw1, pw2 := bc0*v0.invW, bc1*v1.invW, bc2*v2.invW
			sum := pw0 + pw1 + pw2
			if sum == 0 {
				continue
			}
			k0, k1, k2 := float32(pw0/sum), float32(pw1/sum), float32(pw2/sum)
			for i := range vary {
				vary[i] = k0*v0.v[i] + k1*v1.v[i] + k2*v2.v[i]
			}
			r.fragment(x, y, z, &vary, front)
		}
	}
}

// line rasterizes a segment with Bresenham's algorithm, widened
// perpendicular to its major axis.
func (r *raster) line(a, b vertexOut) {
	da, db := nearDistance(&a), nearDistance(&b)
	switch {
	case da < 0 && db < 0:
		return
	case da < 0:
		a = lerpVertex(&a, &b, da/(da-db))
	case db < 0:
		b = lerpVertex(&b, &a, db/(db-da))
	}
	s0, s1 := r.project(&a), r.project(&b)

	x0, y0 := int(math.Floor(s0.x)), int(math.Floor(s0.y))
	x1, y1 := int(math.Floor(s1.x)), int(math.Floor(s1.y))
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	steps := max(dx, -dy)
	xMajor := dx >= -dy
	half := max(0, int(r.lineWidth)-1) / 2
	extra := max(0, int(r.lineWidth)-1) - half

	var vary varyings
	err := dx + dy
	for step := 0; ; step++ {
		t := 0.0
		if steps > 0 {
			t = float64(step) / float64(steps)
		}
		z := s0.z + (s1.z-s0.z)*t
		w0, w1 := (1-t)*s0.invW, t*s1.invW
		if sum := w0 + w1; sum != 0 {
			k0, k1 := float32(w0/sum), float32(w1/sum)
			for i := range vary {
				vary[i] = k0*s0.v[i] + k1*s1.v[i]
			}
		}
		for off := -half; off <= extra; off++ {
			if xMajor {
				r.fragment(x0, y0+off, z, &vary, true)
			} else {
				r.fragment(x0+off, y0, z, &vary, true)
			}
		}

		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func depthPass(f gpu.DepthFunc, z, stored float32) bool {
	switch f {
	case gpu.DepthLessEqual:
		return z <= stored
	case gpu.DepthAlways:
		return true
	}
	return z < stored
}

func (r *raster) fragment(x, y int, z float64, vary *varyings, front bool) {
	if x < r.minX || x > r.maxX || y < r.minY || y > r.maxY {
		return
	}
	if z < -1e-6 || z > 1+1e-6 {
		return
	}
	depth := float32(max(0, min(1, z)))
	idx := y*r.fb.width + x

	test := r.state.Features[gpu.DepthTest]
	if test && !depthPass(r.state.DepthFunc, depth, r.fb.depth[idx]) {
		return
	}

	fc := fragCtx{dev: r.dev, p: r.p, v: *vary, front: front, depth: depth}
	out, keep := r.p.fs.run(&fc)
	if !keep {
		return
	}
	r.dev.stats.Fragments++

	blend := r.state.Features[gpu.Blend]
	for i, a := range r.fb.color {
		if a.tex == nil {
			continue
		}
		px := a.tex.layers[a.layer][0].pix[idx*4 : idx*4+4]
		c := [4]float32(out[i])
		if blend {
			c = blendColor(r.state.Blend, c, [4]float32(px))
		}
		c = a.tex.store(c)
		copy(px, c[:])
	}
	if test && r.state.DepthMask {
		r.fb.depth[idx] = depth
	}
}

func blendFactor(f gpu.BlendFactor, src [4]float32, channel int) float32 {
	switch f {
	case gpu.Zero:
		return 0
	case gpu.SrcAlpha:
		return clamp01(src[3])
	case gpu.OneMinusSrcAlpha:
		return 1 - clamp01(src[3])
	case gpu.OneMinusSrcColor:
		return 1 - clamp01(src[channel])
	}
	return 1
}

// blendColor computes src*Src + dst*Dst with factors clamped to [0,1].
func blendColor(fn gpu.BlendFunc, src, dst [4]float32) [4]float32 {
	var out [4]float32
	for i := range out {
		out[i] = src[i]*blendFactor(fn.Src, src, i) + dst[i]*blendFactor(fn.Dst, src, i)
	}
	return out
}
