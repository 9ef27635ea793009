package renderer

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/prism/pkg/config"
	"github.com/taigrr/prism/pkg/gpu"
	"github.com/taigrr/prism/pkg/math3d"
	"github.com/taigrr/prism/pkg/models"
	"github.com/taigrr/prism/pkg/render"
	"github.com/taigrr/prism/pkg/resource"
	"github.com/taigrr/prism/pkg/scene"
)

type fixture struct {
	r        *Renderer
	disp     *render.Display
	ctx      *render.Context
	defaults *models.Defaults
	hook     *test.Hook
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Width, cfg.Height = 4, 4
	cfg.Background = "#000000"
	cfg.BRDFSize = 4
	cfg.IrradianceSize = 2
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	disp := render.NewDisplay()
	ctx := disp.NewContext(4, 4)
	defaults := models.NewDefaults(log)
	r, err := New(disp, ctx, Options{Config: testConfig(), Defaults: defaults, Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Close()
		defaults.Destroy()
	})
	return &fixture{r: r, disp: disp, ctx: ctx, defaults: defaults, hook: hook}
}

// quad returns a square covering the orthographic test view at depth z.
func quad(z float64) *models.Mesh {
	m := models.NewMesh()
	m.SetVertices([]models.Vertex{
		{Position3D: math3d.V3(-1, -1, z)}, {Position3D: math3d.V3(1, -1, z)}, {Position3D: math3d.V3(1, 1, z)},
		{Position3D: math3d.V3(-1, -1, z)}, {Position3D: math3d.V3(1, 1, z)}, {Position3D: math3d.V3(-1, 1, z)},
	})
	m.SetRenderOptions(models.DisableCulling)
	return m
}

func orthoCamera() *scene.Camera {
	cam := scene.NewCamera()
	cam.SetOrthographic(-1, 1, -1, 1)
	cam.SetPosition(math3d.V3(0, 0, 1))
	cam.SetPlanes(0.1, 10)
	return cam
}

// addQuad puts a colored quad group into s.
func (f *fixture) addQuad(s *scene.Scene, z float64, mat models.StandardMaterial, c math3d.Vec4) *scene.Group {
	props := models.NewMaterialProperties()
	props.SetValue(gpu.UniformBaseColor, c)
	m := scene.NewModel()
	g := m.AddGroup("quad")
	g.SetMesh(quad(z))
	g.SetMaterial(f.defaults.Material(mat))
	g.SetMaterialProperties(props)
	scene.NewEntity(&s.Entity).SetModel(m)
	return g
}

var colorRed = color.RGBA{R: 255, A: 255}

func solidFaces(size int) [models.CubeFaces]image.Image {
	var faces [models.CubeFaces]image.Image
	for i := range faces {
		img := image.NewRGBA(image.Rect(0, 0, size, size))
		draw.Draw(img, img.Bounds(), image.NewUniform(colorRed), image.Point{}, draw.Src)
		faces[i] = img
	}
	return faces
}

func (f *fixture) pixel(t *testing.T, x, y int) [4]float32 {
	t.Helper()
	pix, w, _, err := f.ctx.Soft().ReadPixels(gpu.NoHandle, 0)
	require.NoError(t, err)
	i := (y*w + x) * 4
	return [4]float32(pix[i : i+4])
}

func assertColor(t *testing.T, want [3]float32, got [4]float32) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 0.01, "channel %d of %v", i, got)
	}
}

func TestBuildReturnsSameCache(t *testing.T) {
	f := newFixture(t)
	m := quad(0)

	a, err := f.r.BuildMeshCache(m)
	require.NoError(t, err)
	b, err := f.r.BuildMeshCache(m)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.False(t, a.IsDirty())
	assert.Equal(t, 6, a.Count())
	assert.Same(t, m, a.Mesh())
	assert.Equal(t, 1, f.r.Stats().Updates[resource.KindMesh])
}

func TestDirtyCacheRebuilds(t *testing.T) {
	f := newFixture(t)
	m := quad(0)
	c, err := f.r.BuildMeshCache(m)
	require.NoError(t, err)

	var seen []string
	f.r.OnCacheUpdate(func(kind resource.Kind, name string) {
		seen = append(seen, kind.String())
	})

	m.SetVertices(m.Vertices()[:3])
	assert.True(t, c.IsDirty())

	again, err := f.r.BuildMeshCache(m)
	require.NoError(t, err)
	assert.Same(t, c, again)
	assert.False(t, again.IsDirty())
	assert.Equal(t, 3, again.Count())
	assert.Equal(t, 2, f.r.Stats().Updates[resource.KindMesh])
	assert.Len(t, seen, 1)
}

func TestRenderersKeepSeparateCaches(t *testing.T) {
	f := newFixture(t)
	ctx2 := f.disp.NewContext(4, 4)
	r2, err := New(f.disp, ctx2, Options{Config: testConfig(), Defaults: f.defaults})
	require.NoError(t, err)
	defer r2.Close()

	m := quad(0)
	a, err := f.r.BuildMeshCache(m)
	require.NoError(t, err)
	b, err := r2.BuildMeshCache(m)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.NotEqual(t, f.r.ID(), r2.ID())
	assert.Equal(t, 2, m.Caches().Len())

	m.InvalidateCache(f.r.ID())
	assert.True(t, a.IsDirty())
	assert.False(t, b.IsDirty())

	m.InvalidateCache(resource.AllRenderers)
	assert.True(t, b.IsDirty())
}

func TestRendererIDCollision(t *testing.T) {
	f := newFixture(t)
	m := quad(0)
	_, _, err := resource.GetOrEmplace(m.Caches(), f.r.ID(), func() *TextureCache {
		return &TextureCache{}
	})
	require.NoError(t, err)

	_, err = f.r.BuildMeshCache(m)
	require.ErrorIs(t, err, resource.ErrRendererCollision)
	var ce *resource.CollisionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, f.r.ID(), ce.RendererID)
}

func TestDrawAllAbortsOnCollision(t *testing.T) {
	f := newFixture(t)
	s := scene.New()
	g := f.addQuad(s, 0, models.Basic2DMaterial, math3d.V4(0, 1, 0, 1))
	_, _, err := resource.GetOrEmplace(g.Mesh().Caches(), f.r.ID(), func() *TextureCache {
		return &TextureCache{}
	})
	require.NoError(t, err)

	err = f.r.DrawAll(s, orthoCamera())
	require.ErrorIs(t, err, resource.ErrRendererCollision)
	assert.Zero(t, f.r.StateStack().Depth())
	assert.Nil(t, f.disp.Current())

	// The aborted frame is closed.
	require.NoError(t, f.r.BeginDrawing(orthoCamera(), nil))
	require.NoError(t, f.r.EndDrawing(nil))
}

func TestDrawOpaque(t *testing.T) {
	f := newFixture(t)
	s := scene.New()
	f.addQuad(s, 0, models.Basic2DMaterial, math3d.V4(0, 1, 0, 1))

	require.NoError(t, f.r.DrawAll(s, orthoCamera()))
	assertColor(t, [3]float32{0, 1, 0}, f.pixel(t, 1, 1))
	assert.Zero(t, f.r.StateStack().Depth())
	assert.Nil(t, f.disp.Current())

	st := f.r.Stats()
	assert.Equal(t, 1, st.Frames)
	assert.Positive(t, st.DrawCalls)
	assert.Equal(t, 2, st.Updates[resource.KindMesh], "quad and screen quad")
}

func TestFrameLifecycleErrors(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.r.Draw(nil, DrawInfo{}), ErrNoFrame)
	assert.ErrorIs(t, f.r.EndDrawing(nil), ErrNoFrame)

	require.NoError(t, f.r.BeginDrawing(orthoCamera(), nil))
	assert.ErrorIs(t, f.r.BeginDrawing(orthoCamera(), nil), ErrFrameInProgress)
	require.NoError(t, f.r.EndDrawing(nil))
}

func TestHiddenAndCulledGroupsAreSkipped(t *testing.T) {
	f := newFixture(t)
	s := scene.New()
	hidden := f.addQuad(s, 0, models.Basic2DMaterial, math3d.V4(1, 0, 0, 1))
	hidden.SetRenderOptions(scene.Hidden)
	f.addQuad(s, -50, models.Basic2DMaterial, math3d.V4(1, 0, 0, 1))

	require.NoError(t, f.r.DrawAll(s, orthoCamera()))
	assertColor(t, [3]float32{0, 0, 0}, f.pixel(t, 1, 1))
	assert.Equal(t, 1, f.r.Stats().Culled)
}

func TestTranslucentComposite(t *testing.T) {
	f := newFixture(t)
	s := scene.New()
	f.addQuad(s, 0, models.SampleTranslucentMaterial, math3d.V4(1, 0, 0, 0.25))
	f.addQuad(s, 0.2, models.SampleTranslucentMaterial, math3d.V4(0, 0, 1, 0.5))

	require.NoError(t, f.r.DrawAll(s, orthoCamera()))
	// accum / revealage = (0.25, 0, 0.5) / 0.75, blended with alpha 0.75.
	assertColor(t, [3]float32{0.25, 0, 0.5}, f.pixel(t, 1, 1))
	assert.Zero(t, f.r.StateStack().Depth())
}

func TestTranslucentBehindOpaqueIsHidden(t *testing.T) {
	f := newFixture(t)
	s := scene.New()
	f.addQuad(s, 0.5, models.Basic2DMaterial, math3d.V4(0, 1, 0, 1))
	f.addQuad(s, 0, models.SampleTranslucentMaterial, math3d.V4(1, 0, 0, 0.5))

	require.NoError(t, f.r.DrawAll(s, orthoCamera()))
	assertColor(t, [3]float32{0, 1, 0}, f.pixel(t, 1, 1))
}

func TestAlwaysTranslucentProperties(t *testing.T) {
	f := newFixture(t)
	s := scene.New()
	g := f.addQuad(s, 0, models.Basic3DMaterial, math3d.V4(1, 1, 1, 1))
	g.MaterialProperties().SetAlwaysTranslucent(true)

	require.NoError(t, f.r.BeginDrawing(orthoCamera(), s))
	for g, world := range s.VisibleGroups() {
		require.NoError(t, f.r.Draw(g, DrawInfo{World: world}))
	}
	assert.Len(t, f.r.frame.translucent, 1)
	require.NoError(t, f.r.EndDrawing(s))
}

func TestUnchangedUniformsAreNotPushed(t *testing.T) {
	f := newFixture(t)
	s := scene.New()
	f.addQuad(s, 0, models.Basic2DMaterial, math3d.V4(0, 1, 0, 1))
	cam := orthoCamera()

	require.NoError(t, f.r.DrawAll(s, cam))
	first := f.r.Stats().UniformPushes
	require.NoError(t, f.r.DrawAll(s, cam))
	second := f.r.Stats().UniformPushes - first

	assert.Positive(t, first)
	assert.Less(t, second, first)
}

func TestDeleteRestoresCurrentContext(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.BuildMeshCache(quad(0))
	require.NoError(t, err)

	other := f.disp.NewContext(2, 2)
	require.NoError(t, f.disp.MakeCurrent(other))
	f.r.DeleteAllResources()

	assert.Same(t, other, f.disp.Current())
	assert.Zero(t, f.r.cacheCount())
}

func TestDeleteWithoutContextWarns(t *testing.T) {
	f := newFixture(t)
	m := quad(0)
	c, err := f.r.BuildMeshCache(m)
	require.NoError(t, err)

	f.ctx.Destroy()
	f.hook.Reset()
	f.r.DeleteMeshCache(c)

	assert.True(t, c.Deleted())
	assert.Zero(t, m.Caches().Len())
	var warned bool
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "might leak") {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestResourceDestroyDeletesCaches(t *testing.T) {
	f := newFixture(t)
	m := quad(0)
	c, err := f.r.BuildMeshCache(m)
	require.NoError(t, err)
	objects := f.ctx.Soft().Objects()

	m.Destroy()
	assert.True(t, c.Deleted())
	assert.NotContains(t, f.r.meshes, c)
	assert.Less(t, f.ctx.Soft().Objects(), objects)
	assert.Nil(t, c.Mesh())
}

func TestCleanupRenderCache(t *testing.T) {
	f := newFixture(t)
	kept, gone := quad(0), quad(0)
	_, err := f.r.BuildMeshCache(kept)
	require.NoError(t, err)
	c, err := f.r.BuildMeshCache(gone)
	require.NoError(t, err)

	gone.Anchor().Release()
	assert.Equal(t, 1, f.r.CleanupRenderCache())
	assert.True(t, c.Deleted())
	assert.Equal(t, 1, kept.Caches().Len())
	assert.Zero(t, f.r.CleanupRenderCache())
}

func TestPreLoadEntity(t *testing.T) {
	f := newFixture(t)
	s := scene.New()
	g := f.addQuad(s, 0, models.Basic3DMaterial, math3d.V4(1, 1, 1, 1))
	g.SetRenderOptions(scene.Hidden)
	tex := models.SolidTexture(colorRed)
	g.MaterialProperties().SetTexture(tex, models.AlbedoSlot)
	lines := models.NewLineGroup()
	lines.AddLine(math3d.V3(0, 0, 0), math3d.V3(1, 1, 0))
	g.SetLineGroup(lines)

	require.NoError(t, f.r.PreLoadEntity(&s.Entity))
	assert.Equal(t, 1, g.Mesh().Caches().Len())
	assert.Equal(t, 1, g.Material().Caches().Len())
	assert.Equal(t, 1, g.MaterialProperties().Caches().Len())
	assert.Equal(t, 1, tex.Caches().Len())
	assert.Equal(t, 1, lines.Caches().Len())
	assert.Nil(t, f.disp.Current())
}

func TestSkyboxBuildsIrradiance(t *testing.T) {
	f := newFixture(t)
	sky, err := models.NewCubemapFromFaces(solidFaces(2))
	require.NoError(t, err)
	s := scene.New()
	s.SetSkybox(sky)

	require.NoError(t, f.r.BeginDrawing(scene.NewCamera(), s))
	require.NoError(t, f.r.EndDrawing(s))
	assertColor(t, [3]float32{1, 0, 0}, f.pixel(t, 1, 1))

	c, ok := sky.Caches().Get(f.r.ID())
	require.True(t, ok)
	cube := c.(*CubemapCache)
	assert.NotEqual(t, gpu.NoHandle, cube.Handle())
	assert.NotEqual(t, gpu.NoHandle, cube.Irradiance())
	assert.Zero(t, f.r.StateStack().Depth())
}

func TestBRDFIsComputedOnce(t *testing.T) {
	f := newFixture(t)
	a, err := f.r.BRDF()
	require.NoError(t, err)
	b, err := f.r.BRDF()
	require.NoError(t, err)
	assert.NotEqual(t, gpu.NoHandle, a)
	assert.Equal(t, a, b)
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	s := scene.New()
	f.addQuad(s, 0, models.SampleTranslucentMaterial, math3d.V4(1, 0, 0, 0.5))
	require.NoError(t, f.r.DrawAll(s, orthoCamera()))

	f.r.Close()
	assert.Zero(t, f.ctx.Soft().Objects())
	assert.Zero(t, f.r.cacheCount())
	_, err := f.r.BuildMeshCache(quad(0))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, f.r.DrawAll(s, orthoCamera()), ErrClosed)
	f.r.Close()
}
