package math3d

import (
	"math"
	"testing"
)

func TestPlaneNormalize(t *testing.T) {
	plane := Plane{Normal: V3(0, 3, 4), D: 10}
	plane.Normalize()

	if math.Abs(plane.Normal.Len()-1.0) > 1e-9 {
		t.Errorf("normalized normal length = %v, want 1.0", plane.Normal.Len())
	}
	if math.Abs(plane.D-2.0) > 1e-9 {
		t.Errorf("D = %v, want 2.0", plane.D)
	}
}

func TestFrustumContainsPoint(t *testing.T) {
	proj := Perspective(math.Pi/3, 16.0/9.0, 0.1, 100)
	frustum := NewFrustumFromMatrix(proj.Mul(Identity()))

	tests := []struct {
		name     string
		point    Vec3
		expected bool
	}{
		{"center near", V3(0, 0, -1), true},
		{"center far", V3(0, 0, -99), true},
		{"behind camera", V3(0, 0, 1), false},
		{"too far", V3(0, 0, -200), false},
		{"too close", V3(0, 0, -0.01), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := frustum.ContainsPoint(tc.point); got != tc.expected {
				t.Errorf("ContainsPoint(%v) = %v, want %v", tc.point, got, tc.expected)
			}
		})
	}
}

func TestFrustumIntersectAABB(t *testing.T) {
	proj := Perspective(math.Pi/3, 16.0/9.0, 1.0, 100.0)
	frustum := NewFrustumFromMatrix(proj)

	tests := []struct {
		name     string
		box      AABB
		expected bool
	}{
		{"fully inside", AABB{V3(-1, -1, -10), V3(1, 1, -5)}, true},
		{"crossing near plane", AABB{V3(-1, -1, -2), V3(1, 1, 2)}, true},
		{"behind camera", AABB{V3(-1, -1, 5), V3(1, 1, 10)}, false},
		{"beyond far plane", AABB{V3(-1, -1, -150), V3(1, 1, -120)}, false},
		{"far to the right", AABB{V3(100, -1, -10), V3(110, 1, -5)}, false},
		{"containing frustum", AABB{V3(-200, -200, -200), V3(200, 200, 200)}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := frustum.IntersectAABB(tc.box); got != tc.expected {
				t.Errorf("IntersectAABB(%v) = %v, want %v", tc.box, got, tc.expected)
			}
		})
	}
}

func TestFrustumIntersectsSphere(t *testing.T) {
	frustum := NewFrustumFromMatrix(Perspective(math.Pi/3, 16.0/9.0, 1.0, 100.0))

	if !frustum.IntersectsSphere(V3(0, 0, -10), 1) {
		t.Error("sphere in front of the camera should intersect")
	}
	if frustum.IntersectsSphere(V3(0, 0, 20), 1) {
		t.Error("sphere behind the camera should not intersect")
	}
}

func TestAABBExtendAndTransform(t *testing.T) {
	box := EmptyAABB()
	if !box.IsEmpty() {
		t.Fatal("EmptyAABB should be empty")
	}

	box = box.Extend(V3(-1, -1, -1)).Extend(V3(1, 1, 1))
	if box.IsEmpty() {
		t.Fatal("box with two points should not be empty")
	}

	moved := box.Transform(Translate(V3(10, 0, 0)))
	if math.Abs(moved.Center().X-10) > 1e-9 {
		t.Errorf("translated center X = %v, want 10", moved.Center().X)
	}

	scaled := box.Transform(Scale(V3(2, 2, 2)))
	if scaled.Max != V3(2, 2, 2) {
		t.Errorf("scaled max = %v, want (2, 2, 2)", scaled.Max)
	}

	if got := box.Union(EmptyAABB()); got != box {
		t.Errorf("union with empty box = %v, want %v", got, box)
	}
}
