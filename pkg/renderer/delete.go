package renderer

import (
	"fmt"

	"github.com/taigrr/prism/pkg/resource"
)

type deletable interface {
	trackedCache
	MarkDeleted()
}

// forget marks c deleted and drops it from the tracking set and, while the
// resource lives, from its cache slots.
func forget[R cachedResource, C deletable](r *Renderer, w resource.Weak[R], c C, tracked set[C]) {
	c.MarkDeleted()
	delete(tracked, c)
	if res, ok := w.Get(); ok {
		res.Caches().Remove(r.id, c)
	}
}

// DeleteMeshCache releases the buffers of c.
func (r *Renderer) DeleteMeshCache(c *MeshCache) {
	r.deleteOne("delete mesh cache", c)
}

// DeleteMaterialCache releases the program of c.
func (r *Renderer) DeleteMaterialCache(c *MaterialCache) {
	r.deleteOne("delete material cache", c)
}

// DeleteMaterialPropertiesCache drops c.
func (r *Renderer) DeleteMaterialPropertiesCache(c *MaterialPropertiesCache) {
	r.deleteOne("delete material properties cache", c)
}

// DeleteTextureCache releases the texture of c.
func (r *Renderer) DeleteTextureCache(c *TextureCache) {
	r.deleteOne("delete texture cache", c)
}

// DeleteCubemapCache releases the cube textures of c.
func (r *Renderer) DeleteCubemapCache(c *CubemapCache) {
	r.deleteOne("delete cubemap cache", c)
}

// DeleteLineGroupCache releases the buffers of c.
func (r *Renderer) DeleteLineGroupCache(c *LineGroupCache) {
	r.deleteOne("delete line group cache", c)
}

// DeleteCache releases any cache this renderer built. Resources call it
// from Destroy.
func (r *Renderer) DeleteCache(c resource.Cache) {
	r.deleteOne(fmt.Sprintf("delete %T", c), c)
}

func (r *Renderer) deleteOne(op string, c resource.Cache) {
	if r.closed || c.Deleted() {
		return
	}
	r.release(op, func(live bool) {
		r.deleteCache(c, live)
	})
}

func (r *Renderer) deleteCache(c resource.Cache, live bool) {
	if c.Deleted() {
		return
	}
	switch c := c.(type) {
	case *MeshCache:
		if live {
			r.free(&c.vertices, &c.indices)
		}
		forget(r, c.mesh, c, r.meshes)
	case *LineGroupCache:
		if live {
			r.free(&c.vertices, &c.indices)
		}
		forget(r, c.lines, c, r.lineGroups)
	case *MaterialCache:
		if live {
			r.free(&c.program)
		}
		forget(r, c.material, c, r.materials)
	case *MaterialPropertiesCache:
		forget(r, c.properties, c, r.properties)
	case *TextureCache:
		if live {
			r.free(&c.handle)
		}
		forget(r, c.texture, c, r.textures)
	case *CubemapCache:
		if live {
			r.free(&c.handle, &c.irradiance)
		}
		forget(r, c.cubemap, c, r.cubemaps)
	default:
		r.log.Errorf("delete: cache type %T not built by this renderer", c)
	}
}

// deleteAll deletes every tracked cache.
func (r *Renderer) deleteAll(live bool) {
	for c := range r.meshes {
		r.deleteCache(c, live)
	}
	for c := range r.lineGroups {
		r.deleteCache(c, live)
	}
	for c := range r.materials {
		r.deleteCache(c, live)
	}
	for c := range r.properties {
		r.deleteCache(c, live)
	}
	for c := range r.textures {
		r.deleteCache(c, live)
	}
	for c := range r.cubemaps {
		r.deleteCache(c, live)
	}
}

// DeleteAllResources deletes every cache the renderer holds. The renderer
// stays usable and rebuilds caches on demand.
func (r *Renderer) DeleteAllResources() {
	if r.closed {
		return
	}
	r.release("delete all resources", func(live bool) {
		n := r.cacheCount()
		r.deleteAll(live)
		r.log.WithField("caches", n).Debug("all caches deleted")
	})
}

// CleanupRenderCache deletes the caches whose resource no longer exists
// and returns how many were dropped.
func (r *Renderer) CleanupRenderCache() int {
	if r.closed {
		return 0
	}
	n := 0
	r.release("cleanup render cache", func(live bool) {
		n += sweep(r, r.meshes, func(c *MeshCache) bool { return c.mesh.Alive() }, live)
		n += sweep(r, r.lineGroups, func(c *LineGroupCache) bool { return c.lines.Alive() }, live)
		n += sweep(r, r.materials, func(c *MaterialCache) bool { return c.material.Alive() }, live)
		n += sweep(r, r.properties, func(c *MaterialPropertiesCache) bool { return c.properties.Alive() }, live)
		n += sweep(r, r.textures, func(c *TextureCache) bool { return c.texture.Alive() }, live)
		n += sweep(r, r.cubemaps, func(c *CubemapCache) bool { return c.cubemap.Alive() }, live)
	})
	if n > 0 {
		r.log.WithField("caches", n).Debug("orphaned caches deleted")
	}
	return n
}

func sweep[C deletable](r *Renderer, tracked set[C], alive func(C) bool, live bool) int {
	n := 0
	for c := range tracked {
		if !alive(c) {
			r.deleteCache(c, live)
			n++
		}
	}
	return n
}

// cacheCount returns the number of tracked caches.
func (r *Renderer) cacheCount() int {
	return len(r.meshes) + len(r.lineGroups) + len(r.materials) +
		len(r.properties) + len(r.textures) + len(r.cubemaps)
}
