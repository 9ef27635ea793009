package renderer

import (
	"github.com/taigrr/prism/pkg/gpu"
	"github.com/taigrr/prism/pkg/models"
	"github.com/taigrr/prism/pkg/resource"
)

// geometry is uploaded vertex data with the call that draws it.
type geometry struct {
	vertices gpu.Handle
	indices  gpu.Handle
	call     gpu.DrawCall
}

func (g *geometry) empty() bool {
	return g.vertices == gpu.NoHandle || g.call.Count == 0
}

// MeshCache holds the vertex and index buffers of one mesh.
type MeshCache struct {
	resource.CacheBase
	geometry

	mesh resource.Weak[*models.Mesh]
	cull bool
}

// Mesh returns the cached mesh, nil once destroyed.
func (c *MeshCache) Mesh() *models.Mesh {
	m, _ := c.mesh.Get()
	return m
}

// Count returns the number of vertices a draw submits.
func (c *MeshCache) Count() int { return c.call.Count }

// LineGroupCache holds the buffers of one line group.
type LineGroupCache struct {
	resource.CacheBase
	geometry

	lines resource.Weak[*models.LineGroup]
}

// LineGroup returns the cached line group, nil once destroyed.
func (c *LineGroupCache) LineGroup() *models.LineGroup {
	l, _ := c.lines.Get()
	return l
}

// Count returns the number of vertices a draw submits.
func (c *LineGroupCache) Count() int { return c.call.Count }

type uniformSlot struct {
	location int
	last     any
	set      bool
}

// MaterialCache holds the linked program of one material and the uniform
// values last pushed to it.
type MaterialCache struct {
	resource.CacheBase

	material    resource.Weak[*models.Material]
	program     gpu.Handle
	translucent bool
	uniforms    map[string]*uniformSlot
}

// Material returns the cached material, nil once destroyed.
func (c *MaterialCache) Material() *models.Material {
	m, _ := c.material.Get()
	return m
}

// Program returns the program handle, gpu.NoHandle when compilation failed.
func (c *MaterialCache) Program() gpu.Handle { return c.program }

// MaterialPropertiesCache holds property values converted to uniform types.
type MaterialPropertiesCache struct {
	resource.CacheBase

	properties  resource.Weak[*models.MaterialProperties]
	values      map[string]any
	translucent bool
}

// MaterialProperties returns the cached properties, nil once destroyed.
func (c *MaterialPropertiesCache) MaterialProperties() *models.MaterialProperties {
	p, _ := c.properties.Get()
	return p
}

// Values returns the uniform values derived from the properties.
func (c *MaterialPropertiesCache) Values() map[string]any { return c.values }

// TextureCache holds one device texture.
type TextureCache struct {
	resource.CacheBase

	texture resource.Weak[*models.Texture]
	handle  gpu.Handle
}

// Texture returns the cached texture, nil once destroyed.
func (c *TextureCache) Texture() *models.Texture {
	t, _ := c.texture.Get()
	return t
}

// Handle returns the device texture, gpu.NoHandle when the image is missing.
func (c *TextureCache) Handle() gpu.Handle { return c.handle }

// CubemapCache holds an environment cube texture and its irradiance map.
type CubemapCache struct {
	resource.CacheBase

	cubemap    resource.Weak[*models.Cubemap]
	handle     gpu.Handle
	irradiance gpu.Handle
}

// Cubemap returns the cached cubemap, nil once destroyed.
func (c *CubemapCache) Cubemap() *models.Cubemap {
	m, _ := c.cubemap.Get()
	return m
}

// Handle returns the environment texture, gpu.NoHandle for invalid cubemaps.
func (c *CubemapCache) Handle() gpu.Handle { return c.handle }

// Irradiance returns the diffuse irradiance texture.
func (c *CubemapCache) Irradiance() gpu.Handle { return c.irradiance }

var attribLocations = map[models.Content]int{
	models.ContentPosition2D:     gpu.AttribPosition2D,
	models.ContentPosition3D:     gpu.AttribPosition3D,
	models.ContentTexCoord2D:     gpu.AttribTexCoord2D,
	models.ContentNormal3D:       gpu.AttribNormal3D,
	models.ContentColor3D:        gpu.AttribColor3D,
	models.ContentColor4D:        gpu.AttribColor4D,
	models.ContentBoneIDs:        gpu.AttribBoneIDs,
	models.ContentBoneWeights:    gpu.AttribBoneWeights,
	models.ContentSmoothingGroup: gpu.AttribSmoothingGroup,
}

func vertexLayout(contents models.Content) gpu.VertexLayout {
	layout := gpu.VertexLayout{Stride: models.PackedVertexSize(contents)}
	for _, a := range models.PackedLayout(contents) {
		layout.Attributes = append(layout.Attributes, gpu.Attribute{
			Location:   attribLocations[a.Content],
			Components: a.Components,
			Offset:     4 * a.Offset,
		})
	}
	return layout
}

func wrapMode(w models.Wrap) gpu.Wrap {
	switch w {
	case models.MirroredRepeat:
		return gpu.WrapMirroredRepeat
	case models.ClampToEdge:
		return gpu.WrapClamp
	}
	return gpu.WrapRepeat
}

var filterModes = map[models.Filter]gpu.Filter{
	models.Nearest:              gpu.FilterNearest,
	models.Linear:               gpu.FilterLinear,
	models.NearestMipmapNearest: gpu.FilterNearestMipmapNearest,
	models.NearestMipmapLinear:  gpu.FilterNearestMipmapLinear,
	models.LinearMipmapNearest:  gpu.FilterLinearMipmapNearest,
	models.LinearMipmapLinear:   gpu.FilterLinearMipmapLinear,
}
