// Package scene holds the scene graph a renderer walks: entities with
// optional models, models made of named groups, and groups binding geometry
// to shading. A Scene is the root entity and adds lights, a skybox and
// controllers driven by a run timer.
package scene

import "github.com/taigrr/prism/pkg/math3d"

// Transform is a position, rotation and scale with a lazily built matrix.
// The zero value is not usable; use identity().
type Transform struct {
	position math3d.Vec3
	rotation math3d.Quat
	scale    math3d.Vec3

	dirty  bool
	matrix math3d.Mat4
}

func identity() Transform {
	return Transform{
		rotation: math3d.IdentityQuat(),
		scale:    math3d.V3(1, 1, 1),
		matrix:   math3d.Identity(),
	}
}

// Position returns the translation.
func (t *Transform) Position() math3d.Vec3 { return t.position }

// SetPosition sets the translation.
func (t *Transform) SetPosition(p math3d.Vec3) {
	if p == t.position {
		return
	}
	t.position = p
	t.dirty = true
}

// Rotation returns the orientation.
func (t *Transform) Rotation() math3d.Quat { return t.rotation }

// SetRotation sets the orientation.
func (t *Transform) SetRotation(q math3d.Quat) {
	if q == t.rotation {
		return
	}
	t.rotation = q
	t.dirty = true
}

// Scale returns the per-axis scale.
func (t *Transform) Scale() math3d.Vec3 { return t.scale }

// SetScale sets the per-axis scale.
func (t *Transform) SetScale(s math3d.Vec3) {
	if s == t.scale {
		return
	}
	t.scale = s
	t.dirty = true
}

// Matrix returns translation * rotation * scale.
func (t *Transform) Matrix() math3d.Mat4 {
	if t.dirty {
		t.matrix = math3d.Compose(t.position, t.rotation, t.scale)
		t.dirty = false
	}
	return t.matrix
}
