package scene

import (
	"math"

	"github.com/taigrr/prism/pkg/math3d"
)

// ProjectionMode selects how a camera projects.
type ProjectionMode int

const (
	Perspective ProjectionMode = iota
	Orthographic
)

// maxPitch keeps the camera off the poles.
const maxPitch = math.Pi/2 - 0.01

// Camera is a view position with Euler orientation and a projection.
type Camera struct {
	position         math3d.Vec3
	pitch, yaw, roll float64 // radians around X, Y, Z

	mode       ProjectionMode
	fovY       float64 // radians
	aspect     float64
	ortho      [4]float64 // left, right, bottom, top
	near, far  float64
	view, proj math3d.Mat4
	viewDirty  bool
	projDirty  bool
}

// NewCamera returns a perspective camera at the origin looking down -Z.
func NewCamera() *Camera {
	return &Camera{
		fovY:      math.Pi / 4,
		aspect:    1,
		ortho:     [4]float64{-1, 1, -1, 1},
		near:      0.1,
		far:       1000,
		viewDirty: true,
		projDirty: true,
	}
}

// Position returns the eye position.
func (c *Camera) Position() math3d.Vec3 { return c.position }

// SetPosition moves the eye.
func (c *Camera) SetPosition(p math3d.Vec3) {
	c.position = p
	c.viewDirty = true
}

// OffsetPosition moves the eye by d.
func (c *Camera) OffsetPosition(d math3d.Vec3) { c.SetPosition(c.position.Add(d)) }

// Angle returns pitch, yaw and roll in radians.
func (c *Camera) Angle() math3d.Vec3 { return math3d.V3(c.pitch, c.yaw, c.roll) }

// SetAngle sets pitch, yaw and roll in radians. Pitch is clamped short of
// straight up or down.
func (c *Camera) SetAngle(a math3d.Vec3) {
	c.pitch = math.Max(-maxPitch, math.Min(maxPitch, a.X))
	c.yaw = a.Y
	c.roll = a.Z
	c.viewDirty = true
}

// OffsetOrientation adds d to pitch, yaw and roll.
func (c *Camera) OffsetOrientation(d math3d.Vec3) { c.SetAngle(c.Angle().Add(d)) }

// SetOrientationTarget turns the camera to look at target.
func (c *Camera) SetOrientationTarget(target math3d.Vec3) {
	dir := target.Sub(c.position)
	if dir.LenSq() == 0 {
		return
	}
	dir = dir.Normalize()
	c.SetAngle(math3d.V3(math.Asin(dir.Y), math.Atan2(-dir.X, -dir.Z), 0))
}

// Orientation returns the camera-to-world rotation.
func (c *Camera) Orientation() math3d.Mat4 {
	return math3d.RotateY(c.yaw).Mul(math3d.RotateX(c.pitch)).Mul(math3d.RotateZ(c.roll))
}

// Forward returns the view direction.
func (c *Camera) Forward() math3d.Vec3 {
	return math3d.V3(
		-math.Sin(c.yaw)*math.Cos(c.pitch),
		math.Sin(c.pitch),
		-math.Cos(c.yaw)*math.Cos(c.pitch),
	)
}

// Right returns the horizontal right vector.
func (c *Camera) Right() math3d.Vec3 {
	return math3d.V3(math.Cos(c.yaw), 0, -math.Sin(c.yaw))
}

// Up returns the camera up vector.
func (c *Camera) Up() math3d.Vec3 {
	return c.Right().Cross(c.Forward())
}

// View returns the world-to-camera matrix.
func (c *Camera) View() math3d.Mat4 {
	if c.viewDirty {
		rot := math3d.RotateZ(-c.roll).Mul(math3d.RotateX(-c.pitch)).Mul(math3d.RotateY(-c.yaw))
		c.view = rot.Mul(math3d.Translate(c.position.Negate()))
		c.viewDirty = false
	}
	return c.view
}

// ProjectionMode returns the active projection.
func (c *Camera) ProjectionMode() ProjectionMode { return c.mode }

// SetPerspective switches to a perspective projection.
func (c *Camera) SetPerspective(fovY, aspect float64) {
	c.mode = Perspective
	c.fovY = fovY
	c.aspect = aspect
	c.projDirty = true
}

// SetOrthographic switches to an orthographic projection of the given view
// rectangle.
func (c *Camera) SetOrthographic(left, right, bottom, top float64) {
	c.mode = Orthographic
	c.ortho = [4]float64{left, right, bottom, top}
	c.projDirty = true
}

// Planes returns the near and far clip distances.
func (c *Camera) Planes() (near, far float64) { return c.near, c.far }

// SetPlanes sets the near and far clip distances.
func (c *Camera) SetPlanes(near, far float64) {
	c.near, c.far = near, far
	c.projDirty = true
}

// Projection returns the camera-to-clip matrix.
func (c *Camera) Projection() math3d.Mat4 {
	if c.projDirty {
		if c.mode == Orthographic {
			o := c.ortho
			c.proj = math3d.Orthographic(o[0], o[1], o[2], o[3], c.near, c.far)
		} else {
			c.proj = math3d.Perspective(c.fovY, c.aspect, c.near, c.far)
		}
		c.projDirty = false
	}
	return c.proj
}

// ViewProjection returns Projection * View.
func (c *Camera) ViewProjection() math3d.Mat4 {
	return c.Projection().Mul(c.View())
}

// Frustum returns the world-space view volume.
func (c *Camera) Frustum() math3d.Frustum {
	return math3d.NewFrustumFromMatrix(c.ViewProjection())
}

// Unproject maps a normalized device point (x, y in [-1,1], z -1 at the
// near plane and 1 at the far plane) to world space.
func (c *Camera) Unproject(x, y, z float64) math3d.Vec3 {
	p := c.ViewProjection().Inverse().MulVec4(math3d.V4(x, y, z, 1))
	return p.PerspectiveDivide()
}

// Ray returns the world-space ray through the normalized device point
// (x, y), starting at the near plane.
func (c *Camera) Ray(x, y float64) (origin, dir math3d.Vec3) {
	origin = c.Unproject(x, y, -1)
	dir = c.Unproject(x, y, 1).Sub(origin).Normalize()
	return origin, dir
}
