// Package math3d provides the float64 vector, matrix, quaternion and volume
// types of the prism scene graph. Matrix algebra is delegated to mgl64;
// the named-field vectors exist so scene code reads as v.X rather than v[0].
package math3d

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec2 is a texture coordinate or 2D position.
type Vec2 struct{ X, Y float64 }

// V2 returns Vec2{x, y}.
func V2(x, y float64) Vec2 { return Vec2{x, y} }

// Vec3 is a point or direction.
type Vec3 struct{ X, Y, Z float64 }

// V3 returns Vec3{x, y, z}.
func V3(x, y, z float64) Vec3 { return Vec3{x, y, z} }

// Zero3 returns the origin.
func Zero3() Vec3 { return Vec3{} }

// Up returns +Y.
func Up() Vec3 { return Vec3{Y: 1} }

// Right returns +X.
func Right() Vec3 { return Vec3{X: 1} }

func vec3(v mgl64.Vec3) Vec3   { return Vec3{v[0], v[1], v[2]} }
func (a Vec3) mgl() mgl64.Vec3 { return mgl64.Vec3{a.X, a.Y, a.Z} }

func (a Vec3) Add(b Vec3) Vec3     { return vec3(a.mgl().Add(b.mgl())) }
func (a Vec3) Sub(b Vec3) Vec3     { return vec3(a.mgl().Sub(b.mgl())) }
func (a Vec3) Scale(s float64) Vec3 { return vec3(a.mgl().Mul(s)) }
func (a Vec3) Dot(b Vec3) float64  { return a.mgl().Dot(b.mgl()) }
func (a Vec3) Cross(b Vec3) Vec3   { return vec3(a.mgl().Cross(b.mgl())) }
func (a Vec3) Len() float64        { return a.mgl().Len() }
func (a Vec3) LenSq() float64      { return a.mgl().LenSqr() }
func (a Vec3) Negate() Vec3        { return Vec3{-a.X, -a.Y, -a.Z} }

// Mul multiplies component-wise.
func (a Vec3) Mul(b Vec3) Vec3 { return Vec3{a.X * b.X, a.Y * b.Y, a.Z * b.Z} }

// Distance returns |a - b|.
func (a Vec3) Distance(b Vec3) float64 { return a.Sub(b).Len() }

// Normalize returns a unit vector, or the zero vector for zero input.
func (a Vec3) Normalize() Vec3 {
	if a.LenSq() == 0 {
		return Vec3{}
	}
	return vec3(a.mgl().Normalize())
}

// Min and Max combine component-wise.
func (a Vec3) Min(b Vec3) Vec3 {
	return Vec3{math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)}
}

func (a Vec3) Max(b Vec3) Vec3 {
	return Vec3{math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z)}
}

// Vec4 is a homogeneous point, a plane equation or an RGBA color.
type Vec4 struct{ X, Y, Z, W float64 }

// V4 returns Vec4{x, y, z, w}.
func V4(x, y, z, w float64) Vec4 { return Vec4{x, y, z, w} }

func vec4(v mgl64.Vec4) Vec4   { return Vec4{v[0], v[1], v[2], v[3]} }
func (v Vec4) mgl() mgl64.Vec4 { return mgl64.Vec4{v.X, v.Y, v.Z, v.W} }

func (v Vec4) Add(b Vec4) Vec4      { return vec4(v.mgl().Add(b.mgl())) }
func (v Vec4) Sub(b Vec4) Vec4      { return vec4(v.mgl().Sub(b.mgl())) }
func (v Vec4) Scale(s float64) Vec4 { return vec4(v.mgl().Mul(s)) }
func (v Vec4) Dot(b Vec4) float64   { return v.mgl().Dot(b.mgl()) }

// Vec3 drops W.
func (v Vec4) Vec3() Vec3 { return Vec3{v.X, v.Y, v.Z} }

// PerspectiveDivide returns XYZ / W, or XYZ when W is zero.
func (v Vec4) PerspectiveDivide() Vec3 {
	if v.W == 0 {
		return v.Vec3()
	}
	return v.Vec3().Scale(1 / v.W)
}
