package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/prism/pkg/gpu"
)

// Varying slots written by every vertex model.
const (
	varyWorld  = 0 // world position, or direction for skyboxes
	varyNormal = 3
	varyUV     = 6
	varyColor  = 8
	numVarying = 12
)

type varyings [numVarying]float32

func (v *varyings) vec3(at int) mgl32.Vec3 {
	return mgl32.Vec3{v[at], v[at+1], v[at+2]}
}

func (v *varyings) put(at int, values ...float32) {
	copy(v[at:], values)
}

type vertexIn struct {
	attrs [gpu.AttribCount]mgl32.Vec4
	has   [gpu.AttribCount]bool
}

// position returns the 3D position, falling back to the 2D one.
func (in *vertexIn) position() mgl32.Vec4 {
	if in.has[gpu.AttribPosition3D] {
		p := in.attrs[gpu.AttribPosition3D]
		return mgl32.Vec4{p[0], p[1], p[2], 1}
	}
	p := in.attrs[gpu.AttribPosition2D]
	return mgl32.Vec4{p[0], p[1], 0, 1}
}

func (in *vertexIn) color() mgl32.Vec4 {
	switch {
	case in.has[gpu.AttribColor4D]:
		return in.attrs[gpu.AttribColor4D]
	case in.has[gpu.AttribColor3D]:
		c := in.attrs[gpu.AttribColor3D]
		return mgl32.Vec4{c[0], c[1], c[2], 1}
	}
	return mgl32.Vec4{1, 1, 1, 1}
}

type vertexOut struct {
	clip mgl32.Vec4
	v    varyings
}

type vertexModel struct {
	uniforms []uniformDecl
	run      func(p *program, in *vertexIn) vertexOut
}

type fragCtx struct {
	dev   *Device
	p     *program
	v     varyings
	front bool
	depth float32
}

type fragOut [gpu.MaxColorAttachments]mgl32.Vec4

type fragmentModel struct {
	uniforms []uniformDecl
	run      func(f *fragCtx) (fragOut, bool)
}

// texture resolves the texture bound to the unit a sampler uniform names.
func (f *fragCtx) texture(sampler string) *texture {
	unit := f.p.integer(sampler)
	if unit < 0 || unit >= gpu.MaxTextureUnits {
		return nil
	}
	t, _ := f.dev.objects[f.dev.state.Textures[unit]].(*texture)
	return t
}

// sample2D returns white for an empty unit so untextured materials shade
// with their base color.
func (f *fragCtx) sample2D(sampler string) mgl32.Vec4 {
	t := f.texture(sampler)
	if t == nil {
		return mgl32.Vec4{1, 1, 1, 1}
	}
	return t.sample2D(float64(f.v[varyUV]), float64(f.v[varyUV+1]))
}

func (f *fragCtx) color() mgl32.Vec4 {
	return mgl32.Vec4{f.v[varyColor], f.v[varyColor+1], f.v[varyColor+2], f.v[varyColor+3]}
}

// Billboard fragments below this alpha are discarded so text backgrounds
// leave the depth buffer alone.
const billboardAlphaCutoff = 0.5

var (
	white    = mgl32.Vec4{1, 1, 1, 1}
	ident4   = mgl32.Ident4()
	ident3   = mgl32.Ident3()
	sampler0 = uniformDecl{gpu.UniformTexture(0), int32(0)}
	sampler1 = uniformDecl{gpu.UniformTexture(1), int32(1)}
)

func lightUniforms() []uniformDecl {
	decls := []uniformDecl{
		{gpu.UniformBaseColor, white},
		{gpu.UniformAmbient, mgl32.Vec3{0.25, 0.25, 0.25}},
		{gpu.UniformLightDirection, mgl32.Vec3{0.3, 1, 0.5}},
		{gpu.UniformLightCount, int32(0)},
		sampler0,
	}
	for i := range gpu.MaxPointLights {
		decls = append(decls,
			uniformDecl{gpu.UniformLightPosition(i), mgl32.Vec3{}},
			uniformDecl{gpu.UniformLightColor(i), mgl32.Vec3{}},
		)
	}
	return decls
}

var vertexModels = map[string]*vertexModel{
	"transform": {
		uniforms: []uniformDecl{
			{gpu.UniformModel, ident4},
			{gpu.UniformMVP, ident4},
			{gpu.UniformNormalMatrix, ident3},
		},
		run: func(p *program, in *vertexIn) vertexOut {
			pos := in.position()
			world := p.mat4(gpu.UniformModel).Mul4x1(pos)
			n := in.attrs[gpu.AttribNormal3D]
			normal := p.mat3(gpu.UniformNormalMatrix).Mul3x1(mgl32.Vec3{n[0], n[1], n[2]})
			uv := in.attrs[gpu.AttribTexCoord2D]
			c := in.color()

			out := vertexOut{clip: p.mat4(gpu.UniformMVP).Mul4x1(pos)}
			out.v.put(varyWorld, world[0], world[1], world[2])
			out.v.put(varyNormal, normal[0], normal[1], normal[2])
			out.v.put(varyUV, uv[0], uv[1])
			out.v.put(varyColor, c[:]...)
			return out
		},
	},
	"screen": {
		run: func(_ *program, in *vertexIn) vertexOut {
			pos := in.position()
			uv := mgl32.Vec2{pos[0]*0.5 + 0.5, pos[1]*0.5 + 0.5}
			if in.has[gpu.AttribTexCoord2D] {
				t := in.attrs[gpu.AttribTexCoord2D]
				uv = mgl32.Vec2{t[0], t[1]}
			}
			c := in.color()

			out := vertexOut{clip: mgl32.Vec4{pos[0], pos[1], 0, 1}}
			out.v.put(varyUV, uv[0], uv[1])
			out.v.put(varyColor, c[:]...)
			return out
		},
	},
	"billboard": {
		uniforms: []uniformDecl{
			{gpu.UniformModel, ident4},
			{gpu.UniformView, ident4},
			{gpu.UniformProjection, ident4},
		},
		run: func(p *program, in *vertexIn) vertexOut {
			pos := in.position()
			model := p.mat4(gpu.UniformModel)
			// The quad keeps the model scale but is laid out in view space
			// around the model origin.
			sx, sy := model.Col(0).Vec3().Len(), model.Col(1).Vec3().Len()
			origin := model.Col(3)
			center := p.mat4(gpu.UniformView).Mul4x1(origin)
			eye := center.Add(mgl32.Vec4{pos[0] * sx, pos[1] * sy, 0, 0})
			uv := mgl32.Vec2{pos[0]*0.5 + 0.5, pos[1]*0.5 + 0.5}
			if in.has[gpu.AttribTexCoord2D] {
				t := in.attrs[gpu.AttribTexCoord2D]
				uv = mgl32.Vec2{t[0], t[1]}
			}
			c := in.color()

			out := vertexOut{clip: p.mat4(gpu.UniformProjection).Mul4x1(eye)}
			out.v.put(varyWorld, origin[0], origin[1], origin[2])
			out.v.put(varyNormal, 0, 0, 1)
			out.v.put(varyUV, uv[0], uv[1])
			out.v.put(varyColor, c[:]...)
			return out
		},
	},
	"skybox": {
		uniforms: []uniformDecl{
			{gpu.UniformView, ident4},
			{gpu.UniformProjection, ident4},
		},
		run: func(p *program, in *vertexIn) vertexOut {
			pos := in.position()
			view := p.mat4(gpu.UniformView)
			view.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
			clip := p.mat4(gpu.UniformProjection).Mul4x1(view.Mul4x1(pos))
			// Depth of the far plane.
			clip[2] = clip[3]

			out := vertexOut{clip: clip}
			out.v.put(varyWorld, pos[0], pos[1], pos[2])
			out.v.put(varyColor, 1, 1, 1, 1)
			return out
		},
	},
}

var fragmentModels = map[string]*fragmentModel{
	"flat": {
		uniforms: []uniformDecl{{gpu.UniformBaseColor, white}},
		run: func(f *fragCtx) (fragOut, bool) {
			return fragOut{f.p.vec4(gpu.UniformBaseColor)}, true
		},
	},
	"vertexcolor": {
		uniforms: []uniformDecl{{gpu.UniformBaseColor, white}},
		run: func(f *fragCtx) (fragOut, bool) {
			return fragOut{mul4(f.color(), f.p.vec4(gpu.UniformBaseColor))}, true
		},
	},
	"line": {
		uniforms: []uniformDecl{{gpu.UniformBaseColor, white}},
		run: func(f *fragCtx) (fragOut, bool) {
			return fragOut{mul4(f.color(), f.p.vec4(gpu.UniformBaseColor))}, true
		},
	},
	"billboard": {
		uniforms: []uniformDecl{{gpu.UniformBaseColor, white}, sampler0},
		run: func(f *fragCtx) (fragOut, bool) {
			c := mul4(f.sample2D(gpu.UniformTexture(0)), f.p.vec4(gpu.UniformBaseColor))
			if c[3] < billboardAlphaCutoff {
				return fragOut{}, false
			}
			return fragOut{c}, true
		},
	},
	"lambert": {
		uniforms: lightUniforms(),
		run: func(f *fragCtx) (fragOut, bool) {
			return fragOut{lambert(f)}, true
		},
	},
	"oit": {
		uniforms: append(lightUniforms(), uniformDecl{gpu.UniformDepthWeight, int32(0)}),
		run: func(f *fragCtx) (fragOut, bool) {
			c := lambert(f)
			a := c[3]
			w := float32(1)
			if f.p.integer(gpu.UniformDepthWeight) != 0 {
				d := 1 - f.depth
				w = max(1e-2, min(3e3, 1e3*d*d*d))
			}
			aw := a * w
			return fragOut{
				{c[0] * aw, c[1] * aw, c[2] * aw, aw},
				{aw, aw, aw, aw},
			}, true
		},
	},
	"composite": {
		uniforms: []uniformDecl{sampler0, sampler1, {gpu.UniformEpsilon, float32(1e-5)}},
		run: func(f *fragCtx) (fragOut, bool) {
			accum := f.texture(gpu.UniformTexture(0))
			reveal := f.texture(gpu.UniformTexture(1))
			if accum == nil || reveal == nil {
				return fragOut{}, false
			}
			u, v := float64(f.v[varyUV]), float64(f.v[varyUV+1])
			acc := accum.sample2D(u, v)
			r := reveal.sample2D(u, v)[0]
			den := max(r, f.p.scalar(gpu.UniformEpsilon))
			return fragOut{{acc[0] / den, acc[1] / den, acc[2] / den, r}}, true
		},
	},
	"skybox": {
		uniforms: []uniformDecl{sampler0},
		run: func(f *fragCtx) (fragOut, bool) {
			t := f.texture(gpu.UniformTexture(0))
			if t == nil {
				return fragOut{}, false
			}
			c := t.sampleCube(f.v.vec3(varyWorld))
			c[3] = 1
			return fragOut{c}, true
		},
	},
	"brdf": {
		uniforms: []uniformDecl{{gpu.UniformSampleCount, int32(32)}},
		run: func(f *fragCtx) (fragOut, bool) {
			a, b := integrateBRDF(float64(f.v[varyUV]), float64(f.v[varyUV+1]), f.p.integer(gpu.UniformSampleCount))
			return fragOut{{float32(a), float32(b), 0, 1}}, true
		},
	},
	"irradiance": {
		uniforms: []uniformDecl{sampler0, {gpu.UniformFace, int32(0)}, {gpu.UniformSampleDelta, float32(0.5)}},
		run: func(f *fragCtx) (fragOut, bool) {
			env := f.texture(gpu.UniformTexture(0))
			if env == nil {
				return fragOut{}, false
			}
			n := cubeFaceDirection(f.p.integer(gpu.UniformFace), float64(f.v[varyUV]), 1-float64(f.v[varyUV+1]))
			irr := convolve(env, n, float64(f.p.scalar(gpu.UniformSampleDelta)))
			return fragOut{{irr[0], irr[1], irr[2], 1}}, true
		},
	},
}

// lambert shades base color, vertex color and texture 0 with an ambient
// term plus either the point lights or, with none set, one directional
// light.
func lambert(f *fragCtx) mgl32.Vec4 {
	base := mul4(mul4(f.p.vec4(gpu.UniformBaseColor), f.color()), f.sample2D(gpu.UniformTexture(0)))

	n := f.v.vec3(varyNormal)
	if n.Len() == 0 {
		return base
	}
	n = n.Normalize()
	if !f.front {
		n = n.Mul(-1)
	}

	light := f.p.vec3(gpu.UniformAmbient)
	count := min(f.p.integer(gpu.UniformLightCount), gpu.MaxPointLights)
	if count <= 0 {
		dir := f.p.vec3(gpu.UniformLightDirection)
		if dir.Len() > 0 {
			light = light.Add(mgl32.Vec3{1, 1, 1}.Mul(0.75 * max(0, n.Dot(dir.Normalize()))))
		}
	}
	world := f.v.vec3(varyWorld)
	for i := range count {
		l := f.p.vec3(gpu.UniformLightPosition(i)).Sub(world)
		d := l.Len()
		if d == 0 {
			continue
		}
		diffuse := max(0, n.Dot(l.Mul(1/d))) / (1 + 0.05*d*d)
		light = light.Add(f.p.vec3(gpu.UniformLightColor(i)).Mul(diffuse))
	}
	return mgl32.Vec4{base[0] * light[0], base[1] * light[1], base[2] * light[2], base[3]}
}

func mul4(a, b mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

// integrateBRDF evaluates the split-sum scale and bias for a GGX lobe.
func integrateBRDF(nDotV, roughness float64, samples int) (scale, bias float64) {
	nDotV = max(nDotV, 1e-3)
	samples = max(samples, 1)
	v := [3]float64{math.Sqrt(1 - nDotV*nDotV), 0, nDotV}
	a := roughness * roughness
	k := a / 2

	for i := range samples {
		x1 := float64(i) / float64(samples)
		x2 := radicalInverse(uint32(i))
		phi := 2 * math.Pi * x1
		cosT := math.Sqrt((1 - x2) / (1 + (a*a-1)*x2))
		sinT := math.Sqrt(1 - cosT*cosT)
		h := [3]float64{math.Cos(phi) * sinT, math.Sin(phi) * sinT, cosT}

		vh := v[0]*h[0] + v[1]*h[1] + v[2]*h[2]
		lz := 2*vh*h[2] - v[2]
		if lz <= 0 {
			continue
		}
		vh = max(vh, 0)
		g := (nDotV / (nDotV*(1-k) + k)) * (lz / (lz*(1-k) + k))
		vis := g * vh / (max(h[2], 1e-6) * nDotV)
		fc := math.Pow(1-vh, 5)
		scale += (1 - fc) * vis
		bias += fc * vis
	}
	return scale / float64(samples), bias / float64(samples)
}

func radicalInverse(bits uint32) float64 {
	bits = (bits << 16) | (bits >> 16)
	bits = ((bits & 0x55555555) << 1) | ((bits & 0xAAAAAAAA) >> 1)
	bits = ((bits & 0x33333333) << 2) | ((bits & 0xCCCCCCCC) >> 2)
	bits = ((bits & 0x0F0F0F0F) << 4) | ((bits & 0xF0F0F0F0) >> 4)
	bits = ((bits & 0x00FF00FF) << 8) | ((bits & 0xFF00FF00) >> 8)
	return float64(bits) * 2.3283064365386963e-10
}

// convolve integrates env over the hemisphere around n, cosine weighted.
func convolve(env *texture, n mgl32.Vec3, delta float64) mgl32.Vec3 {
	if delta <= 0 {
		delta = 0.5
	}
	up := mgl32.Vec3{0, 1, 0}
	if math.Abs(float64(n[1])) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	right := up.Cross(n).Normalize()
	up = n.Cross(right)

	var sum mgl32.Vec3
	count := 0
	for phi := 0.0; phi < 2*math.Pi; phi += delta {
		for theta := 0.0; theta < math.Pi/2; theta += delta {
			st, ct := math.Sin(theta), math.Cos(theta)
			t := [3]float32{float32(st * math.Cos(phi)), float32(st * math.Sin(phi)), float32(ct)}
			dir := right.Mul(t[0]).Add(up.Mul(t[1])).Add(n.Mul(t[2]))
			c := env.sampleCube(dir)
			sum = sum.Add(c.Vec3().Mul(float32(ct * st)))
			count++
		}
	}
	return sum.Mul(float32(math.Pi) / float32(count))
}
