package math3d

import "testing"

var (
	benchWorld = Compose(V3(1, 2, -8), QuatFromEuler(0.1, 0.2, 0.3), V3(1, 2, 1))
	benchBox   = AABB{Min: V3(-1, -1, -1), Max: V3(1, 1, 1)}
	benchView  = Perspective(1.0, 4.0/3.0, 0.1, 100).Mul(LookAt(V3(0, 0, 10), Zero3(), Up()))
)

// The renderer runs these per group per frame.

func BenchmarkGroupTransform(b *testing.B) {
	parent := Translate(V3(0, 1, 0))
	for b.Loop() {
		_ = parent.Mul(benchWorld)
	}
}

func BenchmarkNormalMatrix(b *testing.B) {
	for b.Loop() {
		_ = benchWorld.NormalMatrix().Float32().Mat3()
	}
}

func BenchmarkCullBox(b *testing.B) {
	f := NewFrustumFromMatrix(benchView)
	for b.Loop() {
		_ = f.IntersectAABB(benchBox.Transform(benchWorld))
	}
}

func BenchmarkFrustumFromMatrix(b *testing.B) {
	for b.Loop() {
		_ = NewFrustumFromMatrix(benchView)
	}
}

func BenchmarkProject(b *testing.B) {
	v := V4(1, 2, 3, 1)
	for b.Loop() {
		_ = benchView.MulVec4(v).PerspectiveDivide()
	}
}

func BenchmarkPick(b *testing.B) {
	a, c, d := V3(-1, -1, 0), V3(1, -1, 0), V3(0, 1, 0)
	origin, dir := V3(0, 0, 5), V3(0, 0, -1)
	for b.Loop() {
		_, _ = IntersectTriangle(origin, dir, a, c, d)
	}
}
