package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/taigrr/prism/pkg/config"
	"github.com/taigrr/prism/pkg/gpu"
	"github.com/taigrr/prism/pkg/math3d"
	"github.com/taigrr/prism/pkg/models"
	"github.com/taigrr/prism/pkg/render"
	"github.com/taigrr/prism/pkg/renderer"
	"github.com/taigrr/prism/pkg/scene"
)

// session is one scene drawn by one renderer into a software context.
type session struct {
	log       logrus.FieldLogger
	cfg       config.Config
	resources *models.Manager
	defaults  *models.Defaults
	imported  *models.Import

	display  *render.Display
	ctx      *render.Context
	renderer *renderer.Renderer

	scene   *scene.Scene
	camera  *scene.Camera
	subject *scene.Entity
	spring  *scene.SpringController
	label   *scene.TextBillboard
}

// newSession loads the model at path, or the demo scene when path is
// empty, and prepares a width x height render target.
func newSession(ctx context.Context, cfg config.Config, log logrus.FieldLogger, path string, width, height int) (*session, error) {
	s := &session{
		log:       log,
		cfg:       cfg,
		resources: models.NewManager(log),
		defaults:  models.NewDefaults(log),
		display:   render.NewDisplay(),
		scene:     scene.New(),
		camera:    scene.NewCamera(),
	}
	s.ctx = s.display.NewContext(width, height)

	r, err := renderer.New(s.display, s.ctx, renderer.Options{Config: cfg, Defaults: s.defaults, Logger: log})
	if err != nil {
		s.close()
		return nil, err
	}
	s.renderer = r

	s.subject = scene.NewEntity(&s.scene.Entity)
	title := "prism"
	if path == "" {
		err = s.buildDemo()
	} else {
		err = s.load(ctx, path)
		title = filepath.Base(path)
	}
	if err != nil {
		s.close()
		return nil, err
	}
	s.addLabel(title)

	s.spring = scene.NewSpringController(s.subject.Position(), 6)
	s.subject.AddController(s.spring)
	s.subject.AddController(&spin{rate: 0.6})

	s.camera.SetPosition(math3d.V3(0, 0.6, 3.2))
	s.camera.SetAngle(math3d.V3(-0.18, 0, 0))
	s.resize(width, height)

	if err := s.renderer.PreLoadEntity(&s.scene.Entity); err != nil {
		s.close()
		return nil, fmt.Errorf("preload: %w", err)
	}
	return s, nil
}

// load imports a glTF file and fits it into a unit box at the origin.
func (s *session) load(ctx context.Context, path string) error {
	im, err := models.LoadGLTF(ctx, path)
	if err != nil {
		return err
	}
	s.imported = im
	m := scene.NewModelFromImport(im, s.defaults)

	bounds := math3d.EmptyAABB()
	for _, g := range m.Groups() {
		bounds = bounds.Union(g.Bounds())
	}
	if !bounds.IsEmpty() {
		size := bounds.Size()
		if d := max(size.X, size.Y, size.Z); d > 0 {
			s.subject.SetScale(math3d.V3(2/d, 2/d, 2/d))
		}
		m.SetPosition(bounds.Center().Negate())
	}
	s.subject.SetModel(m)

	light := s.scene.GetOrCreateLight(0)
	light.Position = math3d.V3(2, 3, 3)
	light.Color = math3d.V4(1, 1, 1, 3)
	s.log.WithFields(logrus.Fields{"file": im.Name, "groups": len(im.Groups)}).Info("model loaded")
	return nil
}

// buildDemo fills the scene with a lit cube behind a translucent pane, a
// set of axes and a gradient sky.
func (s *session) buildDemo() error {
	cubeProps, err := s.resources.Properties.Add("cube", models.NewMaterialProperties())
	if err != nil {
		return err
	}
	cubeProps.SetValue(gpu.UniformBaseColor, math3d.V4(0.9, 0.55, 0.2, 1))
	checker, err := s.resources.Textures.Add("checker", models.NewTexture(checkerImage(32, 4)))
	if err != nil {
		return err
	}
	checker.SetFilters(models.Nearest, models.Nearest)
	cubeProps.SetTexture(checker, models.AlbedoSlot)

	paneProps, err := s.resources.Properties.Add("pane", models.NewMaterialProperties())
	if err != nil {
		return err
	}
	paneProps.SetValue(gpu.UniformBaseColor, math3d.V4(0.3, 0.6, 1, 0.45))

	axes, err := s.resources.LineGroups.Add("axes", models.NewLineGroup())
	if err != nil {
		return err
	}
	axes.SetContents(models.ContentPosition3D | models.ContentColor3D)
	var vs []models.Vertex
	for _, dir := range []math3d.Vec3{math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), math3d.V3(0, 0, 1)} {
		vs = append(vs,
			models.Vertex{Position3D: math3d.Zero3(), Color3D: dir},
			models.Vertex{Position3D: dir.Scale(1.2), Color3D: dir},
		)
	}
	axes.SetVertices(vs)

	sky, err := models.NewCubemapFromFaces(gradientFaces(16))
	if err != nil {
		return err
	}
	if _, err := s.resources.Cubemaps.Add("sky", sky); err != nil {
		return err
	}
	s.scene.SetSkybox(sky)

	m := scene.NewModel()
	cube := m.AddGroup("cube")
	cube.SetMesh(s.defaults.Mesh(models.CubeIndexedMesh))
	cube.SetMaterial(s.defaults.Material(models.Basic3DMaterial))
	cube.SetMaterialProperties(cubeProps)
	cube.SetLineGroup(axes)
	s.subject.SetModel(m)

	paneModel := scene.NewModel()
	pane := paneModel.AddGroup("pane")
	pane.SetMesh(s.defaults.Mesh(models.UnitQuadMesh))
	pane.SetMaterial(s.defaults.Material(models.SampleTranslucentMaterial))
	pane.SetMaterialProperties(paneProps)
	paneEntity := scene.NewEntity(&s.scene.Entity)
	paneEntity.SetPosition(math3d.V3(0.3, 0, 1))
	paneEntity.SetScale(math3d.V3(1.4, 1.4, 1))
	paneEntity.SetModel(paneModel)

	key := s.scene.GetOrCreateLight(0)
	key.Position = math3d.V3(2, 2, 2)
	key.Color = math3d.V4(1, 0.95, 0.9, 4)
	fill := s.scene.GetOrCreateLight(1)
	fill.Position = math3d.V3(-3, 1, -1)
	fill.Color = math3d.V4(0.4, 0.5, 1, 2)
	return nil
}

// addLabel floats a camera-facing title above the subject.
func (s *session) addLabel(text string) {
	s.label = scene.NewTextBillboard(s.defaults)
	s.label.SetText(text)
	s.label.SetColor(color.NRGBA{R: 235, G: 235, B: 245, A: 255})
	e := scene.NewEntity(&s.scene.Entity)
	e.SetPosition(math3d.V3(0, 1.45, 0))
	e.SetScale(math3d.V3(0.14, 0.14, 0.14))
	e.SetModel(s.label.Model)
}

// resize points the camera at a width x height target.
func (s *session) resize(width, height int) {
	s.ctx.Soft().Resize(width, height)
	s.camera.SetPerspective(math.Pi/3, float64(width)/float64(max(height, 1)))
}

// draw renders one frame and returns it.
func (s *session) draw() (*render.Framebuffer, error) {
	if err := s.renderer.DrawAll(s.scene, s.camera); err != nil {
		return nil, err
	}
	return s.ctx.Soft().Snapshot(), nil
}

func (s *session) close() {
	if s.renderer != nil {
		st := s.renderer.Stats()
		s.log.WithFields(logrus.Fields{
			"frames":     st.Frames,
			"draw_calls": st.DrawCalls,
			"updates":    st.TotalUpdates(),
			"culled":     st.Culled,
		}).Info("renderer closed")
		s.renderer.Close()
	}
	if s.label != nil {
		s.label.Destroy()
	}
	if s.imported != nil {
		s.imported.Destroy()
	}
	s.resources.Destroy()
	s.defaults.Destroy()
	s.ctx.Destroy()
}

// spin turns an entity around +Y.
type spin struct {
	rate float64 // radians per second
}

func (s *spin) Update(e *scene.Entity, dt time.Duration) bool {
	if dt <= 0 {
		return false
	}
	q := math3d.QuatFromAxisAngle(math3d.Up(), s.rate*dt.Seconds())
	e.SetRotation(q.Mul(e.Rotation()).Normalize())
	return true
}

func checkerImage(size, cells int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	step := max(size/cells, 1)
	for y := range size {
		for x := range size {
			c := color.NRGBA{230, 230, 230, 255}
			if (x/step+y/step)%2 == 1 {
				c = color.NRGBA{120, 120, 120, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// gradientFaces paints a sky that runs from horizon haze to a deep zenith.
func gradientFaces(size int) [models.CubeFaces]image.Image {
	var faces [models.CubeFaces]image.Image
	for f := range faces {
		img := image.NewNRGBA(image.Rect(0, 0, size, size))
		for y := range size {
			t := float64(y) / float64(size-1)
			switch models.CubeFace(f) {
			case models.PosY:
				t = 0
			case models.NegY:
				t = 1
			}
			c := color.NRGBA{
				R: uint8(40 + 120*t),
				G: uint8(70 + 110*t),
				B: uint8(140 + 80*t),
				A: 255,
			}
			for x := range size {
				img.SetNRGBA(x, y, c)
			}
		}
		faces[f] = img
	}
	return faces
}
