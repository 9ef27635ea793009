package scene

import (
	"github.com/taigrr/prism/pkg/math3d"
	"github.com/taigrr/prism/pkg/models"
	"github.com/taigrr/prism/pkg/resource"
)

// RenderOption flags apply to entities, models and groups.
type RenderOption uint8

const (
	// Hidden skips the object and everything below it.
	Hidden RenderOption = 1 << iota
)

// Group binds geometry to shading inside a model. Resource references are
// weak: a destroyed resource reads as nil.
type Group struct {
	Transform

	name    string
	model   *Model
	options RenderOption

	mesh         resource.Weak[*models.Mesh]
	material     resource.Weak[*models.Material]
	properties   resource.Weak[*models.MaterialProperties]
	lineGroup    resource.Weak[*models.LineGroup]
	lineMaterial resource.Weak[*models.Material]
}

func newGroup(name string, m *Model) *Group {
	return &Group{Transform: identity(), name: name, model: m}
}

func weakOf[T interface{ Anchor() *resource.Anchor }](r T, isNil bool) resource.Weak[T] {
	if isNil {
		return resource.Weak[T]{}
	}
	return resource.MakeWeak(r, r.Anchor())
}

// Name returns the group name within its model.
func (g *Group) Name() string { return g.name }

// Model returns the owning model.
func (g *Group) Model() *Model { return g.model }

// RenderOptions returns the render flags.
func (g *Group) RenderOptions() RenderOption { return g.options }

// SetRenderOptions sets the render flags.
func (g *Group) SetRenderOptions(o RenderOption) { g.options = o }

// Hidden reports whether the Hidden flag is set.
func (g *Group) Hidden() bool { return g.options&Hidden != 0 }

// Mesh returns the triangle geometry, nil if unset or destroyed.
func (g *Group) Mesh() *models.Mesh {
	m, _ := g.mesh.Get()
	return m
}

// SetMesh sets the triangle geometry.
func (g *Group) SetMesh(m *models.Mesh) { g.mesh = weakOf(m, m == nil) }

// Material returns the shading program source.
func (g *Group) Material() *models.Material {
	m, _ := g.material.Get()
	return m
}

// SetMaterial sets the shading program source.
func (g *Group) SetMaterial(m *models.Material) { g.material = weakOf(m, m == nil) }

// MaterialProperties returns the per-group shader values.
func (g *Group) MaterialProperties() *models.MaterialProperties {
	p, _ := g.properties.Get()
	return p
}

// SetMaterialProperties sets the per-group shader values.
func (g *Group) SetMaterialProperties(p *models.MaterialProperties) {
	g.properties = weakOf(p, p == nil)
}

// LineGroup returns the line geometry.
func (g *Group) LineGroup() *models.LineGroup {
	l, _ := g.lineGroup.Get()
	return l
}

// SetLineGroup sets the line geometry.
func (g *Group) SetLineGroup(l *models.LineGroup) { g.lineGroup = weakOf(l, l == nil) }

// LineMaterial returns the material for the line geometry. Nil means the
// renderer's standard line material.
func (g *Group) LineMaterial() *models.Material {
	m, _ := g.lineMaterial.Get()
	return m
}

// SetLineMaterial sets the material for the line geometry.
func (g *Group) SetLineMaterial(m *models.Material) { g.lineMaterial = weakOf(m, m == nil) }

// Bounds returns the mesh bounds in model space, empty without a mesh.
func (g *Group) Bounds() math3d.AABB {
	m := g.Mesh()
	if m == nil {
		return math3d.EmptyAABB()
	}
	return m.Bounds().Transform(g.Matrix())
}

// Intersect casts a model-space ray against the mesh and returns the
// model-space hit point.
func (g *Group) Intersect(origin, dir math3d.Vec3) (math3d.Vec3, bool) {
	m := g.Mesh()
	if m == nil {
		return math3d.Vec3{}, false
	}
	mat := g.Matrix()
	inv := mat.Inverse()
	hit, ok := m.Intersect(inv.MulVec3(origin), inv.MulVec3Dir(dir))
	if !ok {
		return math3d.Vec3{}, false
	}
	return mat.MulVec3(hit), true
}

func (g *Group) clone(m *Model, deep bool) *Group {
	c := newGroup(g.name, m)
	c.Transform = g.Transform
	c.options = g.options
	c.mesh, c.material, c.properties = g.mesh, g.material, g.properties
	c.lineGroup, c.lineMaterial = g.lineGroup, g.lineMaterial
	if !deep {
		return c
	}
	if mesh := g.Mesh(); mesh != nil {
		c.SetMesh(mesh.Clone())
	}
	if mat := g.Material(); mat != nil {
		c.SetMaterial(mat.Clone())
	}
	if p := g.MaterialProperties(); p != nil {
		c.SetMaterialProperties(p.Clone())
	}
	if l := g.LineGroup(); l != nil {
		c.SetLineGroup(l.Clone())
	}
	if mat := g.LineMaterial(); mat != nil {
		c.SetLineMaterial(mat.Clone())
	}
	return c
}
