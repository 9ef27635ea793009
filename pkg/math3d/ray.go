package math3d

import "math"

// rayEpsilon rejects rays parallel to the triangle plane and hits behind the origin.
const rayEpsilon = 1e-9

// IntersectTriangle tests a ray against triangle (a, b, c) using the
// Möller-Trumbore algorithm. It returns the distance along dir to the hit.
// Both faces of the triangle are considered.
func IntersectTriangle(origin, dir, a, b, c Vec3) (float64, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)

	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < rayEpsilon {
		return 0, false
	}
	invDet := 1 / det

	s := origin.Sub(a)
	u := s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(e1)
	v := dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := e2.Dot(q) * invDet
	if t <= rayEpsilon {
		return 0, false
	}
	return t, true
}
