package math3d

import (
	"math"
	"testing"
)

func vecNear(a, b Vec3) bool {
	return a.Sub(b).Len() < 1e-9
}

func TestQuatRotate(t *testing.T) {
	tests := []struct {
		name string
		q    Quat
		in   Vec3
		want Vec3
	}{
		{"identity", IdentityQuat(), V3(1, 2, 3), V3(1, 2, 3)},
		{"quarter turn about Y", QuatFromAxisAngle(Up(), math.Pi/2), V3(1, 0, 0), V3(0, 0, -1)},
		{"half turn about X", QuatFromAxisAngle(Right(), math.Pi), V3(0, 1, 0), V3(0, -1, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.q.Rotate(tc.in); !vecNear(got, tc.want) {
				t.Errorf("Rotate(%v) = %v, want %v", tc.in, got, tc.want)
			}
			if got := tc.q.Mat4().MulVec3(tc.in); !vecNear(got, tc.want) {
				t.Errorf("Mat4().MulVec3(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestQuatSlerpEndpoints(t *testing.T) {
	a := IdentityQuat()
	b := QuatFromAxisAngle(Up(), math.Pi/2)

	if got := a.Slerp(b, 0).Rotate(Right()); !vecNear(got, Right()) {
		t.Errorf("Slerp(0) rotated = %v, want %v", got, Right())
	}
	if got := a.Slerp(b, 1).Rotate(Right()); !vecNear(got, V3(0, 0, -1)) {
		t.Errorf("Slerp(1) rotated = %v, want (0, 0, -1)", got)
	}
}

func TestCompose(t *testing.T) {
	m := Compose(V3(1, 2, 3), QuatFromAxisAngle(Up(), math.Pi/2), V3(2, 2, 2))
	got := m.MulVec3(V3(1, 0, 0))
	want := V3(1, 2, 1)
	if !vecNear(got, want) {
		t.Errorf("Compose transform = %v, want %v", got, want)
	}
}

func TestIntersectTriangle(t *testing.T) {
	a, b, c := V3(-1, -1, 0), V3(1, -1, 0), V3(0, 1, 0)

	tests := []struct {
		name   string
		origin Vec3
		dir    Vec3
		hit    bool
		dist   float64
	}{
		{"straight on", V3(0, 0, 5), V3(0, 0, -1), true, 5},
		{"from behind", V3(0, 0, -2), V3(0, 0, 1), true, 2},
		{"miss to the side", V3(5, 0, 5), V3(0, 0, -1), false, 0},
		{"parallel", V3(0, 0, 5), V3(1, 0, 0), false, 0},
		{"pointing away", V3(0, 0, 5), V3(0, 0, 1), false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dist, hit := IntersectTriangle(tc.origin, tc.dir, a, b, c)
			if hit != tc.hit {
				t.Fatalf("hit = %v, want %v", hit, tc.hit)
			}
			if hit && math.Abs(dist-tc.dist) > 1e-9 {
				t.Errorf("distance = %v, want %v", dist, tc.dist)
			}
		})
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	m := Translate(V3(1, 2, 3)).Mul(RotateY(0.25))
	back := Mat4FromFloat32(m.Float32())
	for i := range m {
		if math.Abs(m[i]-back[i]) > 1e-6 {
			t.Fatalf("element %d = %v, want %v", i, back[i], m[i])
		}
	}
}

func TestNormalMatrixUniformScale(t *testing.T) {
	n := Scale(V3(2, 2, 2)).NormalMatrix()
	got := n.MulVec3Dir(V3(0, 1, 0)).Normalize()
	if !vecNear(got, V3(0, 1, 0)) {
		t.Errorf("normal under uniform scale = %v, want (0, 1, 0)", got)
	}
}
