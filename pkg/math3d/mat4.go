package math3d

import "github.com/go-gl/mathgl/mgl64"

// Mat4 is a column-major 4x4 matrix with the layout of mgl64.Mat4: element
// (row, col) lives at index row+4*col and the translation at 12, 13, 14.
type Mat4 [16]float64

func (m Mat4) mgl() mgl64.Mat4 { return mgl64.Mat4(m) }

// Identity returns the identity matrix.
func Identity() Mat4 { return Mat4(mgl64.Ident4()) }

// Translate returns a translation by v.
func Translate(v Vec3) Mat4 { return Mat4(mgl64.Translate3D(v.X, v.Y, v.Z)) }

// Scale returns a per-axis scale by v.
func Scale(v Vec3) Mat4 { return Mat4(mgl64.Scale3D(v.X, v.Y, v.Z)) }

// RotateX, RotateY and RotateZ rotate counter-clockwise about one axis,
// looking down the axis towards the origin.
func RotateX(angle float64) Mat4 { return Mat4(mgl64.HomogRotate3DX(angle)) }

func RotateY(angle float64) Mat4 { return Mat4(mgl64.HomogRotate3DY(angle)) }

func RotateZ(angle float64) Mat4 { return Mat4(mgl64.HomogRotate3DZ(angle)) }

// LookAt returns the view matrix of an eye at eye looking at center.
func LookAt(eye, center, up Vec3) Mat4 {
	return Mat4(mgl64.LookAtV(eye.mgl(), center.mgl(), up.mgl()))
}

// Perspective returns an OpenGL style projection with clip z in [-w, w].
// fovy is the vertical field of view in radians.
func Perspective(fovy, aspect, near, far float64) Mat4 {
	return Mat4(mgl64.Perspective(fovy, aspect, near, far))
}

// Orthographic returns a parallel projection of the given view box.
func Orthographic(left, right, bottom, top, near, far float64) Mat4 {
	return Mat4(mgl64.Ortho(left, right, bottom, top, near, far))
}

// Mul returns a * b, which applies b first.
func (a Mat4) Mul(b Mat4) Mat4 { return Mat4(a.mgl().Mul4(b.mgl())) }

// MulVec4 returns m * v.
func (m Mat4) MulVec4(v Vec4) Vec4 { return vec4(m.mgl().Mul4x1(v.mgl())) }

// MulVec3 transforms the point v, dividing by w when the matrix projects.
func (m Mat4) MulVec3(v Vec3) Vec3 {
	p := m.mgl().Mul4x1(v.mgl().Vec4(1))
	if p[3] == 0 || p[3] == 1 {
		return vec3(p.Vec3())
	}
	return vec3(p.Vec3().Mul(1 / p[3]))
}

// MulVec3Dir transforms the direction v, ignoring translation.
func (m Mat4) MulVec3Dir(v Vec3) Vec3 {
	return vec3(m.mgl().Mul4x1(v.mgl().Vec4(0)).Vec3())
}

// Transpose returns the transpose of m.
func (m Mat4) Transpose() Mat4 { return Mat4(m.mgl().Transpose()) }

// Determinant returns the determinant of m.
func (m Mat4) Determinant() float64 { return m.mgl().Det() }

// Inverse returns the inverse of m, or the identity when m is singular.
func (m Mat4) Inverse() Mat4 {
	if m.Determinant() == 0 {
		return Identity()
	}
	return Mat4(m.mgl().Inv())
}

// Translation returns the translation column.
func (m Mat4) Translation() Vec3 { return Vec3{m[12], m[13], m[14]} }

// SetTranslation replaces the translation column.
func (m *Mat4) SetTranslation(v Vec3) { m[12], m[13], m[14] = v.X, v.Y, v.Z }
