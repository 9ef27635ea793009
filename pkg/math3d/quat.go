package math3d

import "math"

// Quat is a rotation quaternion with vector part (X, Y, Z) and scalar part W.
type Quat struct {
	X, Y, Z, W float64
}

// IdentityQuat returns the quaternion representing no rotation.
func IdentityQuat() Quat {
	return Quat{W: 1}
}

// QuatFromAxisAngle returns the rotation of angle radians around axis.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	axis = axis.Normalize()
	s, c := math.Sincos(angle / 2)
	return Quat{axis.X * s, axis.Y * s, axis.Z * s, c}
}

// QuatFromEuler builds a rotation from pitch (X), yaw (Y) and roll (Z) in
// radians, applied in yaw, pitch, roll order.
func QuatFromEuler(pitch, yaw, roll float64) Quat {
	qx := QuatFromAxisAngle(Right(), pitch)
	qy := QuatFromAxisAngle(Up(), yaw)
	qz := QuatFromAxisAngle(V3(0, 0, 1), roll)
	return qy.Mul(qx).Mul(qz)
}

// Mul composes two rotations; the result applies b first, then a.
func (a Quat) Mul(b Quat) Quat {
	return Quat{
		a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
		a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
	}
}

// Len returns the quaternion norm.
func (a Quat) Len() float64 {
	return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z + a.W*a.W)
}

// Normalize returns the unit quaternion. The zero quaternion becomes identity.
func (a Quat) Normalize() Quat {
	l := a.Len()
	if l == 0 {
		return IdentityQuat()
	}
	return Quat{a.X / l, a.Y / l, a.Z / l, a.W / l}
}

// Rotate applies the rotation to v.
func (a Quat) Rotate(v Vec3) Vec3 {
	u := V3(a.X, a.Y, a.Z)
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(a.W)).Add(u.Cross(t))
}

// Mat4 returns the rotation as a matrix.
func (a Quat) Mat4() Mat4 {
	q := a.Normalize()
	xx, yy, zz := q.X*q.X, q.Y*q.Y, q.Z*q.Z
	xy, xz, yz := q.X*q.Y, q.X*q.Z, q.Y*q.Z
	wx, wy, wz := q.W*q.X, q.W*q.Y, q.W*q.Z

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + wz), 2 * (xz - wy), 0,
		2 * (xy - wz), 1 - 2*(xx+zz), 2 * (yz + wx), 0,
		2 * (xz + wy), 2 * (yz - wx), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}

// Slerp spherically interpolates between a and b by t.
func (a Quat) Slerp(b Quat, t float64) Quat {
	cos := a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
	if cos < 0 {
		b = Quat{-b.X, -b.Y, -b.Z, -b.W}
		cos = -cos
	}
	if cos > 0.9995 {
		return Quat{
			a.X + (b.X-a.X)*t,
			a.Y + (b.Y-a.Y)*t,
			a.Z + (b.Z-a.Z)*t,
			a.W + (b.W-a.W)*t,
		}.Normalize()
	}
	theta := math.Acos(cos)
	sin := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	return Quat{
		a.X*wa + b.X*wb,
		a.Y*wa + b.Y*wb,
		a.Z*wa + b.Z*wb,
		a.W*wa + b.W*wb,
	}
}

// Compose builds a translation * rotation * scale transform.
func Compose(position Vec3, rotation Quat, scale Vec3) Mat4 {
	m := rotation.Mat4()
	m[0], m[1], m[2] = m[0]*scale.X, m[1]*scale.X, m[2]*scale.X
	m[4], m[5], m[6] = m[4]*scale.Y, m[5]*scale.Y, m[6]*scale.Y
	m[8], m[9], m[10] = m[8]*scale.Z, m[9]*scale.Z, m[10]*scale.Z
	m.SetTranslation(position)
	return m
}
