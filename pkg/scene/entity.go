package scene

import (
	"iter"
	"math"
	"slices"
	"time"

	"github.com/taigrr/prism/pkg/math3d"
)

// Entity is a node of the scene graph with an optional model.
type Entity struct {
	Transform

	parent      *Entity
	children    []*Entity
	model       *Model
	options     RenderOption
	controllers []EntityController
}

// NewEntity returns an entity attached under parent. A nil parent makes a
// detached root.
func NewEntity(parent *Entity) *Entity {
	e := &Entity{Transform: identity()}
	if parent != nil {
		parent.AddChild(e)
	}
	return e
}

// Parent returns the parent entity, nil for roots.
func (e *Entity) Parent() *Entity { return e.parent }

// Children returns the child entities. The slice must not be modified.
func (e *Entity) Children() []*Entity { return e.children }

// AddChild moves c under e.
func (e *Entity) AddChild(c *Entity) {
	c.Detach()
	c.parent = e
	e.children = append(e.children, c)
}

// Detach removes e from its parent.
func (e *Entity) Detach() {
	if e.parent == nil {
		return
	}
	e.parent.children = slices.DeleteFunc(e.parent.children, func(c *Entity) bool { return c == e })
	e.parent = nil
}

// Model returns the attached model.
func (e *Entity) Model() *Model { return e.model }

// SetModel attaches m, or detaches the model when m is nil.
func (e *Entity) SetModel(m *Model) { e.model = m }

// RenderOptions returns the render flags.
func (e *Entity) RenderOptions() RenderOption { return e.options }

// SetRenderOptions sets the render flags.
func (e *Entity) SetRenderOptions(o RenderOption) { e.options = o }

// Hidden reports whether the Hidden flag is set.
func (e *Entity) Hidden() bool { return e.options&Hidden != 0 }

// WorldMatrix returns the entity-to-world transform.
func (e *Entity) WorldMatrix() math3d.Mat4 {
	if e.parent == nil {
		return e.Matrix()
	}
	return e.parent.WorldMatrix().Mul(e.Matrix())
}

// AddController attaches c. Controllers run in attach order.
func (e *Entity) AddController(c EntityController) {
	e.controllers = append(e.controllers, c)
}

// RemoveController detaches c.
func (e *Entity) RemoveController(c EntityController) {
	e.controllers = slices.DeleteFunc(e.controllers, func(o EntityController) bool { return o == c })
}

// step runs the controllers of e and its descendants.
func (e *Entity) step(dt time.Duration) bool {
	changed := false
	for _, c := range e.controllers {
		if c.Update(e, dt) {
			changed = true
		}
	}
	for _, c := range e.children {
		if c.step(dt) {
			changed = true
		}
	}
	return changed
}

// VisibleGroups yields every group below e that no Hidden flag hides, with
// its group-to-world transform.
func (e *Entity) VisibleGroups() iter.Seq2[*Group, math3d.Mat4] {
	return func(yield func(*Group, math3d.Mat4) bool) {
		e.visibleGroups(math3d.Identity(), yield)
	}
}

func (e *Entity) visibleGroups(parent math3d.Mat4, yield func(*Group, math3d.Mat4) bool) bool {
	if e.Hidden() {
		return true
	}
	world := parent.Mul(e.Matrix())
	if m := e.model; m != nil && !m.Hidden() {
		mw := world.Mul(m.Matrix())
		for _, g := range m.Groups() {
			if g.Hidden() {
				continue
			}
			if !yield(g, mw.Mul(g.Matrix())) {
				return false
			}
		}
	}
	for _, c := range e.children {
		if !c.visibleGroups(world, yield) {
			return false
		}
	}
	return true
}

// Hit is a ray intersection with a group.
type Hit struct {
	Entity   *Entity
	Group    *Group
	Point    math3d.Vec3 // world space
	Distance float64
}

// Intersect returns the nearest visible group hit by the world-space ray.
func (e *Entity) Intersect(origin, dir math3d.Vec3) (Hit, bool) {
	best := Hit{Distance: math.Inf(1)}
	e.intersect(math3d.Identity(), origin, dir, &best)
	return best, best.Group != nil
}

func (e *Entity) intersect(parent math3d.Mat4, origin, dir math3d.Vec3, best *Hit) {
	if e.Hidden() {
		return
	}
	world := parent.Mul(e.Matrix())
	if m := e.model; m != nil && !m.Hidden() {
		mw := world.Mul(m.Matrix())
		inv := mw.Inverse()
		lo, ld := inv.MulVec3(origin), inv.MulVec3Dir(dir)
		for _, g := range m.Groups() {
			if g.Hidden() {
				continue
			}
			p, ok := g.Intersect(lo, ld)
			if !ok {
				continue
			}
			wp := mw.MulVec3(p)
			if d := wp.Distance(origin); d < best.Distance {
				*best = Hit{Entity: e, Group: g, Point: wp, Distance: d}
			}
		}
	}
	for _, c := range e.children {
		c.intersect(world, origin, dir, best)
	}
}
