package scene

import (
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/prism/pkg/math3d"
	"github.com/taigrr/prism/pkg/models"
	"github.com/taigrr/prism/pkg/resource"
)

func near(a, b math3d.Vec3) bool {
	return a.Sub(b).Len() < 1e-6
}

// plane returns a single triangle in the z=0 plane covering the unit square.
func plane() *models.Mesh {
	m := models.NewMesh()
	m.SetVertices([]models.Vertex{
		{Position3D: math3d.V3(-1, -1, 0)},
		{Position3D: math3d.V3(3, -1, 0)},
		{Position3D: math3d.V3(-1, 3, 0)},
	})
	return m
}

func modelWith(mesh *models.Mesh, groups ...string) *Model {
	m := NewModel()
	for _, name := range groups {
		m.AddGroup(name).SetMesh(mesh)
	}
	return m
}

func TestTransformMatrix(t *testing.T) {
	e := NewEntity(nil)
	e.SetPosition(math3d.V3(1, 2, 3))
	e.SetScale(math3d.V3(2, 2, 2))
	assert.True(t, near(e.Matrix().MulVec3(math3d.V3(1, 0, 0)), math3d.V3(3, 2, 3)))

	e.SetRotation(math3d.QuatFromAxisAngle(math3d.Up(), math.Pi/2))
	assert.True(t, near(e.Matrix().MulVec3(math3d.V3(1, 0, 0)), math3d.V3(1, 2, 1)))
}

func TestWorldMatrixComposesParents(t *testing.T) {
	root := NewEntity(nil)
	root.SetPosition(math3d.V3(10, 0, 0))
	child := NewEntity(root)
	child.SetPosition(math3d.V3(0, 5, 0))

	assert.True(t, near(child.WorldMatrix().Translation(), math3d.V3(10, 5, 0)))
	assert.Same(t, root, child.Parent())

	other := NewEntity(nil)
	other.AddChild(child)
	assert.Empty(t, root.Children())
	assert.True(t, near(child.WorldMatrix().Translation(), math3d.V3(0, 5, 0)))
}

func TestVisibleGroupsSkipsHidden(t *testing.T) {
	mesh := plane()
	s := New()

	a := NewEntity(&s.Entity)
	a.SetModel(modelWith(mesh, "a1", "a2"))
	a.Model().Group("a2").SetRenderOptions(Hidden)

	b := NewEntity(&s.Entity)
	b.SetModel(modelWith(mesh, "b1"))
	b.SetRenderOptions(Hidden)

	c := NewEntity(&s.Entity)
	c.SetPosition(math3d.V3(0, 0, -4))
	m := modelWith(mesh, "c1")
	m.SetPosition(math3d.V3(1, 0, 0))
	c.SetModel(m)

	var names []string
	var worlds []math3d.Mat4
	for g, world := range s.VisibleGroups() {
		names = append(names, g.Name())
		worlds = append(worlds, world)
	}
	require.Equal(t, []string{"a1", "c1"}, names)
	assert.True(t, near(worlds[1].Translation(), math3d.V3(1, 0, -4)))

	m.SetRenderOptions(Hidden)
	names = names[:0]
	for g := range s.VisibleGroups() {
		names = append(names, g.Name())
	}
	assert.Equal(t, []string{"a1"}, names)
}

func TestIntersectNearest(t *testing.T) {
	mesh := plane()
	s := New()
	far := NewEntity(&s.Entity)
	far.SetPosition(math3d.V3(0, 0, -10))
	far.SetModel(modelWith(mesh, "far"))
	nearest := NewEntity(&s.Entity)
	nearest.SetPosition(math3d.V3(0, 0, -5))
	nearest.SetModel(modelWith(mesh, "close"))

	hit, ok := s.Intersect(math3d.Zero3(), math3d.V3(0, 0, -1))
	require.True(t, ok)
	assert.Same(t, nearest, hit.Entity)
	assert.Equal(t, "close", hit.Group.Name())
	assert.InDelta(t, 5, hit.Distance, 1e-9)
	assert.True(t, near(hit.Point, math3d.V3(0, 0, -5)))

	nearest.SetRenderOptions(Hidden)
	hit, ok = s.Intersect(math3d.Zero3(), math3d.V3(0, 0, -1))
	require.True(t, ok)
	assert.Same(t, far, hit.Entity)

	_, ok = s.Intersect(math3d.Zero3(), math3d.V3(0, 0, 1))
	assert.False(t, ok)
}

func TestGroupReferencesAreWeak(t *testing.T) {
	mesh := plane()
	g := NewModel().AddGroup("g")
	g.SetMesh(mesh)
	require.Same(t, mesh, g.Mesh())

	mesh.Destroy()
	assert.Nil(t, g.Mesh())
	assert.True(t, g.Bounds().IsEmpty())

	g.SetMesh(nil)
	assert.Nil(t, g.Mesh())
}

func TestModelGroups(t *testing.T) {
	m := NewModel()
	b := m.AddGroup("b")
	assert.Same(t, b, m.AddGroup("b"))
	m.AddGroup("a")
	assert.Equal(t, []string{"a", "b"}, m.GroupNames())

	mesh := plane()
	b.SetMesh(mesh)
	shallow := m.Clone(false)
	assert.Same(t, mesh, shallow.Group("b").Mesh())
	deep := m.Clone(true)
	assert.NotSame(t, mesh, deep.Group("b").Mesh())
	assert.Same(t, deep, deep.Group("b").Model())

	m.RemoveGroup("b")
	assert.Nil(t, m.Group("b"))
}

func TestClosestLights(t *testing.T) {
	s := New()
	for id, x := range []float64{5, -1, 3, 10} {
		s.GetOrCreateLight(id).Position = math3d.V3(x, 0, 0)
	}

	got := s.ClosestLights(math3d.Zero3(), 2)
	require.Len(t, got, 2)
	assert.Equal(t, -1.0, got[0].Position.X)
	assert.Equal(t, 3.0, got[1].Position.X)

	assert.Len(t, s.ClosestLights(math3d.Zero3(), 10), 4)
	assert.Empty(t, s.ClosestLights(math3d.Zero3(), -1))

	l, ok := s.Light(0)
	require.True(t, ok)
	assert.Equal(t, math3d.V4(1, 1, 1, 1), l.Color)
	s.RemoveLight(0)
	_, ok = s.Light(0)
	assert.False(t, ok)
}

type recorder struct {
	steps []time.Duration
}

func (r *recorder) Update(_ *Scene, dt time.Duration) bool {
	r.steps = append(r.steps, dt)
	return true
}

func TestRunTimer(t *testing.T) {
	clock := time.Unix(1000, 0)
	s := New()
	s.now = func() time.Time { return clock }
	r := &recorder{}
	s.AddController(r)

	assert.False(t, s.Update(), "stopped scene must not step")

	s.Run()
	clock = clock.Add(2 * time.Second)
	s.SetRunTimeMultiplier(0.5)
	assert.True(t, s.Update())

	s.Stop()
	clock = clock.Add(time.Hour)
	s.Update()

	s.Run()
	clock = clock.Add(time.Second)
	s.Update()
	assert.Equal(t, []time.Duration{time.Second, 500 * time.Millisecond}, r.steps)

	s.RemoveController(r)
	assert.False(t, s.Step(time.Second))
}

func TestSpringControllerSettles(t *testing.T) {
	s := New()
	e := NewEntity(&s.Entity)
	target := math3d.V3(4, -2, 1)
	spring := NewSpringController(target, 6)
	e.AddController(spring)

	assert.True(t, s.Step(time.Second/60))
	assert.NotEqual(t, math3d.Zero3(), e.Position())

	for range 600 {
		s.Step(time.Second / 60)
	}
	assert.Equal(t, target, e.Position())
	assert.Equal(t, math3d.Zero3(), spring.Velocity())
	assert.False(t, s.Step(time.Second/60))
	assert.False(t, spring.Update(e, 0))
}

func TestKeyboardCameraController(t *testing.T) {
	c := NewCamera()
	k := NewKeyboardCameraController(c)

	assert.False(t, k.Update(time.Second))

	k.KeyDown("w")
	require.True(t, k.Update(time.Second))
	assert.True(t, near(c.Position(), math3d.V3(0, 0, -1)))

	k.KeyDown("shift")
	k.Update(time.Second)
	assert.True(t, near(c.Position(), math3d.V3(0, 0, -6)))
	k.KeyUp("shift")
	k.KeyUp("w")

	k.Tap("d")
	assert.True(t, k.Update(time.Second))
	assert.True(t, near(c.Position(), math3d.V3(1, 0, -6)))
	assert.False(t, k.Update(time.Second), "tap lasts one update")

	k.KeyDown("left")
	k.KeyDown("right")
	assert.False(t, k.Update(time.Second), "opposing keys cancel")
	k.Release()

	k.AddKeyBinding("x", TiltRight)
	k.KeyDown("x")
	k.Update(time.Second)
	assert.InDelta(t, -math.Pi/3, c.Angle().Z, 1e-9)
	k.Release()

	k.SetHomePosition(math3d.V3(1, 0, -10))
	k.Tap("h")
	k.Update(time.Second)
	assert.True(t, near(c.Forward(), math3d.V3(0, 0, -1)))
}

func TestCameraForwardMatchesView(t *testing.T) {
	c := NewCamera()
	c.SetPosition(math3d.V3(1, 2, 3))
	c.SetAngle(math3d.V3(0.3, 1.1, 0))

	// The view matrix maps a point ahead of the camera onto the -Z axis.
	ahead := c.Position().Add(c.Forward().Scale(5))
	assert.True(t, near(c.View().MulVec3(ahead), math3d.V3(0, 0, -5)))

	c.SetAngle(math3d.V3(10, 0, 0))
	assert.Less(t, c.Angle().X, math.Pi/2)

	c.SetOrientationTarget(math3d.V3(1, 2, -7))
	assert.True(t, near(c.Forward(), math3d.V3(0, 0, -1)))
}

func TestCameraRay(t *testing.T) {
	c := NewCamera()
	c.SetPerspective(math.Pi/2, 1)
	origin, dir := c.Ray(0, 0)
	assert.True(t, near(dir, math3d.V3(0, 0, -1)))
	assert.InDelta(t, -0.1, origin.Z, 1e-6)

	c.SetOrthographic(-2, 2, -2, 2)
	origin, dir = c.Ray(1, 0)
	assert.True(t, near(dir, math3d.V3(0, 0, -1)))
	assert.InDelta(t, 2, origin.X, 1e-6)
}

func TestNewModelFromImport(t *testing.T) {
	log, _ := test.NewNullLogger()
	d := models.NewDefaults(log)
	defer d.Destroy()

	glass := models.NewMaterialProperties()
	glass.SetAlwaysTranslucent(true)
	im := &models.Import{Groups: []models.ImportedGroup{
		{Name: "body.0", Mesh: plane()},
		{Name: "window.0", Mesh: plane(), Properties: glass},
	}}
	defer im.Destroy()

	m := NewModelFromImport(im, d)
	assert.Equal(t, []string{"body.0", "window.0"}, m.GroupNames())
	assert.Same(t, d.Material(models.Basic3DMaterial), m.Group("body.0").Material())
	assert.Same(t, d.Material(models.SampleTranslucentMaterial), m.Group("window.0").Material())
	assert.Same(t, glass, m.Group("window.0").MaterialProperties())
}

type stubCache struct{ resource.CacheBase }

func TestTextBillboard(t *testing.T) {
	d := models.NewDefaults(nil)
	defer d.Destroy()
	b := NewTextBillboard(d)
	defer b.Destroy()

	g := b.Group(TextGroup)
	require.NotNil(t, g)
	assert.Same(t, d.Mesh(models.ScreenQuadMesh), g.Mesh())
	assert.Same(t, d.Material(models.BillboardMaterial), g.Material())
	assert.Same(t, b.Texture(), g.MaterialProperties().Texture(models.AlbedoSlot))

	c, _, err := resource.GetOrEmplace(b.Texture().Caches(), resource.NewRendererID(), func() *stubCache {
		return &stubCache{CacheBase: resource.NewCacheBase(resource.Weak[resource.Deleter]{})}
	})
	require.NoError(t, err)
	c.MarkClean()

	b.SetText("hi")
	assert.Equal(t, "hi", b.Text())
	assert.True(t, c.IsDirty(), "new text invalidates the texture")

	// 7x13 glyphs inside a 2 texel border.
	w, h := b.Texture().Size()
	assert.Equal(t, 2*7+4, w)
	assert.Equal(t, 13+4, h)
	assert.InDelta(t, float64(w)/float64(h), g.Scale().X, 1e-9)

	img := b.Texture().Image()
	var lit int
	for y := range h {
		for x := range w {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				lit++
			}
		}
	}
	assert.Positive(t, lit)
	_, _, _, corner := img.At(0, 0).RGBA()
	assert.Zero(t, corner)

	c.MarkClean()
	b.SetText("hi")
	assert.False(t, c.IsDirty(), "same text keeps the texture")
}
