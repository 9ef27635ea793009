package renderer

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"github.com/taigrr/prism/pkg/gpu"
	"github.com/taigrr/prism/pkg/math3d"
	"github.com/taigrr/prism/pkg/models"
	"github.com/taigrr/prism/pkg/resource"
)

type trackedCache interface {
	comparable
	resource.Cache
}

type cachedResource interface {
	Caches() *resource.Slots
	Kind() resource.Kind
	Name() string
}

// build fetches the cache of res for this renderer, creating it when
// absent, refreshes it when dirty and tracks it when new.
func build[C trackedCache](r *Renderer, res cachedResource, tracked set[C], create func() C, update func(C)) (C, error) {
	c, created, err := resource.GetOrEmplace(res.Caches(), r.id, create)
	if err != nil {
		return c, err
	}
	if c.IsDirty() {
		update(c)
		r.updated(res.Kind(), res.Name())
	}
	if created {
		tracked[c] = struct{}{}
		r.resourceLog(res).Debug("cache created")
	}
	return c, nil
}

// resourceLog scopes the renderer logger to res.
func (r *Renderer) resourceLog(res cachedResource) logrus.FieldLogger {
	return r.log.WithFields(logrus.Fields{"kind": res.Kind().String(), "name": res.Name()})
}

// BuildMeshCache returns the up to date cache of m.
func (r *Renderer) BuildMeshCache(m *models.Mesh) (c *MeshCache, err error) {
	err = r.withContext("build mesh cache", func() error {
		c, err = r.buildMesh(m)
		return err
	})
	return c, err
}

// BuildMaterialCache returns the up to date cache of m.
func (r *Renderer) BuildMaterialCache(m *models.Material) (c *MaterialCache, err error) {
	err = r.withContext("build material cache", func() error {
		c, err = r.buildMaterial(m)
		return err
	})
	return c, err
}

// BuildMaterialPropertiesCache returns the up to date cache of p.
func (r *Renderer) BuildMaterialPropertiesCache(p *models.MaterialProperties) (c *MaterialPropertiesCache, err error) {
	err = r.withContext("build material properties cache", func() error {
		c, err = r.buildProperties(p)
		return err
	})
	return c, err
}

// BuildTextureCache returns the up to date cache of t.
func (r *Renderer) BuildTextureCache(t *models.Texture) (c *TextureCache, err error) {
	err = r.withContext("build texture cache", func() error {
		c, err = r.buildTexture(t)
		return err
	})
	return c, err
}

// BuildCubemapCache returns the up to date cache of m.
func (r *Renderer) BuildCubemapCache(m *models.Cubemap) (c *CubemapCache, err error) {
	err = r.withContext("build cubemap cache", func() error {
		c, err = r.buildCubemap(m)
		return err
	})
	return c, err
}

// BuildLineGroupCache returns the up to date cache of l.
func (r *Renderer) BuildLineGroupCache(l *models.LineGroup) (c *LineGroupCache, err error) {
	err = r.withContext("build line group cache", func() error {
		c, err = r.buildLineGroup(l)
		return err
	})
	return c, err
}

func (r *Renderer) buildMesh(m *models.Mesh) (*MeshCache, error) {
	return build(r, m, r.meshes, func() *MeshCache {
		return &MeshCache{CacheBase: resource.NewCacheBase(r.owner()), mesh: resource.MakeWeak(m, m.Anchor())}
	}, func(c *MeshCache) {
		r.updateMesh(c, m)
	})
}

func (r *Renderer) updateMesh(c *MeshCache, m *models.Mesh) {
	prim := gpu.Triangles
	if mode := m.DrawMode(); mode == models.TriangleStrips || mode == models.IndexedTriangleStrips {
		prim = gpu.TriangleStrip
	}
	var indices []uint32
	if m.DrawMode().Indexed() {
		indices = m.Indices()
	}
	r.upload(&c.geometry, r.resourceLog(m), m.PackedData(), indices, m.Contents(), m.ElementCount())
	c.call.Primitive = prim
	c.cull = m.RenderOptions()&models.DisableCulling == 0
	c.MarkClean()
}

func (r *Renderer) buildLineGroup(l *models.LineGroup) (*LineGroupCache, error) {
	return build(r, l, r.lineGroups, func() *LineGroupCache {
		return &LineGroupCache{CacheBase: resource.NewCacheBase(r.owner()), lines: resource.MakeWeak(l, l.Anchor())}
	}, func(c *LineGroupCache) {
		r.updateLineGroup(c, l)
	})
}

func (r *Renderer) updateLineGroup(c *LineGroupCache, l *models.LineGroup) {
	prim := gpu.Lines
	if mode := l.DrawMode(); mode == models.LineStrips || mode == models.IndexedLineStrips {
		prim = gpu.LineStrip
	}
	var indices []uint32
	if l.DrawMode().Indexed() {
		indices = l.Indices()
	}
	r.upload(&c.geometry, r.resourceLog(l), l.PackedData(), indices, l.Contents(), l.ElementCount())
	c.call.Primitive = prim
	c.call.LineWidth = float32(l.Thickness())
	c.MarkClean()
}

// upload replaces the buffers of g with the given data.
func (r *Renderer) upload(g *geometry, log logrus.FieldLogger, vertices []float32, indices []uint32, contents models.Content, count int) {
	r.free(&g.vertices, &g.indices)
	g.call = gpu.DrawCall{}
	if len(vertices) == 0 {
		return
	}
	vb, err := r.dev.CreateBuffer(gpu.Float32Bytes(vertices))
	if err != nil {
		log.Warnf("upload vertices: %v", err)
		return
	}
	g.vertices = vb
	if len(indices) > 0 {
		ib, err := r.dev.CreateBuffer(gpu.Uint32Bytes(indices))
		if err != nil {
			log.Warnf("upload indices: %v", err)
			r.free(&g.vertices)
			return
		}
		g.indices = ib
	}
	g.call = gpu.DrawCall{
		Vertices: g.vertices,
		Indices:  g.indices,
		Layout:   vertexLayout(contents),
		Count:    count,
	}
}

func (r *Renderer) buildMaterial(m *models.Material) (*MaterialCache, error) {
	return build(r, m, r.materials, func() *MaterialCache {
		return &MaterialCache{CacheBase: resource.NewCacheBase(r.owner()), material: resource.MakeWeak(m, m.Anchor())}
	}, func(c *MaterialCache) {
		r.updateMaterial(c, m)
	})
}

func (r *Renderer) updateMaterial(c *MaterialCache, m *models.Material) {
	r.free(&c.program)
	c.uniforms = make(map[string]*uniformSlot)
	c.translucent = m.IsTranslucent()
	defer c.MarkClean()

	vs := m.Shader(r.mode, models.VertexStage)
	fs := m.Shader(r.mode, models.FragmentStage)
	if vs == "" || fs == "" {
		r.resourceLog(m).Warnf("no %s shader sources", r.mode)
		return
	}
	prog, err := r.dev.CreateProgram(vs, fs)
	if err != nil {
		r.resourceLog(m).Warnf("couldn't link program: %v", err)
		return
	}
	c.program = prog

	prev := r.dev.State().Program
	r.dev.UseProgram(prog)
	for i := range models.MaxTextures {
		r.applyUniform(c, gpu.UniformTexture(int(i)), int32(i))
	}
	r.dev.UseProgram(prev)
}

func (r *Renderer) buildProperties(p *models.MaterialProperties) (*MaterialPropertiesCache, error) {
	return build(r, p, r.properties, func() *MaterialPropertiesCache {
		return &MaterialPropertiesCache{CacheBase: resource.NewCacheBase(r.owner()), properties: resource.MakeWeak(p, p.Anchor())}
	}, func(c *MaterialPropertiesCache) {
		c.values = make(map[string]any, len(p.Values()))
		for name, v := range p.Values() {
			u, ok := uniformValue(v)
			if !ok {
				r.resourceLog(p).Warnf("property %q: unsupported type %T", name, v)
				continue
			}
			c.values[name] = u
		}
		c.translucent = p.IsTranslucent()
		c.MarkClean()
	})
}

// uniformValue converts a property value to a type device uniforms accept.
func uniformValue(v any) (any, bool) {
	switch v := v.(type) {
	case float32, int32, uint32, mgl32.Vec2, mgl32.Vec3, mgl32.Vec4, mgl32.Mat3, mgl32.Mat4:
		return v, true
	case float64:
		return float32(v), true
	case int:
		return int32(v), true
	case uint:
		return uint32(v), true
	case bool:
		if v {
			return int32(1), true
		}
		return int32(0), true
	case math3d.Vec2:
		return v.Float32(), true
	case math3d.Vec3:
		return v.Float32(), true
	case math3d.Vec4:
		return v.Float32(), true
	case math3d.Mat4:
		return v.Float32(), true
	case color.Color:
		cr, cg, cb, ca := v.RGBA()
		if ca == 0 {
			return mgl32.Vec4{}, true
		}
		a := float32(ca)
		return mgl32.Vec4{float32(cr) / a, float32(cg) / a, float32(cb) / a, a / 0xffff}, true
	}
	return nil, false
}

func (r *Renderer) buildTexture(t *models.Texture) (*TextureCache, error) {
	return build(r, t, r.textures, func() *TextureCache {
		return &TextureCache{CacheBase: resource.NewCacheBase(r.owner()), texture: resource.MakeWeak(t, t.Anchor())}
	}, func(c *TextureCache) {
		r.updateTexture(c, t)
	})
}

func (r *Renderer) updateTexture(c *TextureCache, t *models.Texture) {
	r.free(&c.handle)
	defer c.MarkClean()
	if t.Image() == nil {
		r.resourceLog(t).Warn("texture has no image")
		return
	}
	texels, w, h := gpu.TexelsFromImage(t.Image())
	ws, wt := t.Wrap()
	minify, magnify := t.Filters()
	desc := gpu.TextureDesc{
		Width:         w,
		Height:        h,
		Format:        gpu.RGBA8,
		WrapS:         wrapMode(ws),
		WrapT:         wrapMode(wt),
		Min:           filterModes[minify],
		Mag:           filterModes[magnify],
		LodBias:       float32(t.LodBias()),
		MaxAnisotropy: float32(t.MaxAnisotropy()),
		Mipmaps:       t.Options()&models.GenerateMipMaps != 0,
	}
	handle, err := r.dev.CreateTexture(desc, gpu.TextureData{texels})
	if err != nil {
		r.resourceLog(t).Warnf("upload texture: %v", err)
		return
	}
	c.handle = handle
}

func (r *Renderer) buildCubemap(m *models.Cubemap) (*CubemapCache, error) {
	return build(r, m, r.cubemaps, func() *CubemapCache {
		return &CubemapCache{CacheBase: resource.NewCacheBase(r.owner()), cubemap: resource.MakeWeak(m, m.Anchor())}
	}, func(c *CubemapCache) {
		r.updateCubemap(c, m)
	})
}

func (r *Renderer) updateCubemap(c *CubemapCache, m *models.Cubemap) {
	r.free(&c.handle, &c.irradiance)
	defer c.MarkClean()
	if err := m.Validate(); err != nil {
		r.resourceLog(m).Warnf("skipping cubemap: %v", err)
		return
	}
	size := m.Size()
	data := make(gpu.TextureData, models.CubeFaces)
	for f := range models.CubeFaces {
		texels, _, _ := gpu.TexelsFromImage(m.Face(models.CubeFace(f)))
		data[f] = texels
	}
	h, err := r.dev.CreateTexture(gpu.TextureDesc{
		Width:  size,
		Height: size,
		Format: gpu.RGBA8,
		Cube:   true,
		WrapS:  gpu.WrapClamp,
		WrapT:  gpu.WrapClamp,
		Min:    gpu.FilterLinear,
		Mag:    gpu.FilterLinear,
	}, data)
	if err != nil {
		r.resourceLog(m).Warnf("upload cubemap: %v", err)
		return
	}
	c.handle = h
	if err := r.convolveIrradiance(c); err != nil {
		r.resourceLog(m).Warnf("irradiance: %v", err)
	}
}

// standardMaterial builds the cache of a material from the defaults.
func (r *Renderer) standardMaterial(id models.StandardMaterial) (*MaterialCache, error) {
	m := r.defaults.Material(id)
	if m == nil {
		return nil, fmt.Errorf("renderer: standard material %d unavailable", id)
	}
	return r.buildMaterial(m)
}

func (r *Renderer) standardTexture(id models.StandardTexture) gpu.Handle {
	t := r.defaults.Texture(id)
	if t == nil {
		return gpu.NoHandle
	}
	c, err := r.buildTexture(t)
	if err != nil {
		r.log.Warnf("standard texture: %v", err)
		return gpu.NoHandle
	}
	return c.handle
}
