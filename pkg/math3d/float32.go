package math3d

import "github.com/go-gl/mathgl/mgl32"

// Float32 converts the matrix to the single-precision layout used for GPU uniforms.
// Both layouts are column-major.
func (m Mat4) Float32() mgl32.Mat4 {
	var out mgl32.Mat4
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

// Mat4FromFloat32 widens a single-precision matrix.
func Mat4FromFloat32(m mgl32.Mat4) Mat4 {
	var out Mat4
	for i, v := range m {
		out[i] = float64(v)
	}
	return out
}

// Float32 converts the vector for GPU upload.
func (a Vec2) Float32() mgl32.Vec2 {
	return mgl32.Vec2{float32(a.X), float32(a.Y)}
}

// Float32 converts the vector for GPU upload.
func (a Vec3) Float32() mgl32.Vec3 {
	return mgl32.Vec3{float32(a.X), float32(a.Y), float32(a.Z)}
}

// Float32 converts the vector for GPU upload.
func (v Vec4) Float32() mgl32.Vec4 {
	return mgl32.Vec4{float32(v.X), float32(v.Y), float32(v.Z), float32(v.W)}
}

// NormalMatrix returns the inverse transpose of m, used to transform normals
// under non-uniform scale.
func (m Mat4) NormalMatrix() Mat4 {
	n := m.Inverse().Transpose()
	n[3], n[7], n[11] = 0, 0, 0
	n[12], n[13], n[14] = 0, 0, 0
	n[15] = 1
	return n
}
