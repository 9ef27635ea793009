package renderer

import (
	"errors"
	"fmt"

	"github.com/taigrr/prism/pkg/gpu"
	"github.com/taigrr/prism/pkg/math3d"
	"github.com/taigrr/prism/pkg/models"
	"github.com/taigrr/prism/pkg/scene"
)

// DrawInfo carries what the scene walk knows about one group.
type DrawInfo struct {
	World math3d.Mat4 // group to world
}

type queuedDraw struct {
	world    math3d.Mat4
	mesh     *MeshCache
	material *MaterialCache
	props    *MaterialPropertiesCache
	source   *models.MaterialProperties
}

func (d *queuedDraw) translucent() bool {
	return d.material.translucent || d.props.translucent
}

// frame is the state of one BeginDrawing / EndDrawing pair.
type frame struct {
	sw    *gpu.ContextSwitch
	scope *gpu.ErrorScope

	target   gpu.Handle
	viewport gpu.Viewport

	view, proj, viewProj math3d.Mat4
	eye                  math3d.Vec3
	frustum              math3d.Frustum

	scene       *scene.Scene
	env         *CubemapCache
	translucent []queuedDraw
}

// BeginDrawing opens a frame on the bound framebuffer: it makes the
// context current, clears, and draws the scene skybox if it has one. s may
// be nil for frames without lights or environment.
func (r *Renderer) BeginDrawing(cam *scene.Camera, s *scene.Scene) error {
	if r.closed {
		return ErrClosed
	}
	if r.frame != nil {
		return ErrFrameInProgress
	}
	if cam == nil {
		return errors.New("renderer: nil camera")
	}
	sw, err := gpu.SwitchContext(r.display, r.ctx)
	if err != nil {
		sw.Exit()
		return fmt.Errorf("begin drawing: %w", err)
	}

	st := r.dev.State()
	f := &frame{
		sw:       sw,
		scope:    gpu.EnterErrorScope(r.dev, r.log, "frame"),
		target:   st.Framebuffer,
		viewport: st.Viewport,
		view:     cam.View(),
		proj:     cam.Projection(),
		eye:      cam.Position(),
		frustum:  cam.Frustum(),
		scene:    s,
	}
	f.viewProj = f.proj.Mul(f.view)
	r.frame = f
	r.stats.Frames++

	r.stack.Push(false)
	r.dev.SetFeature(gpu.DepthTest, true)
	r.dev.SetDepthFunc(gpu.DepthLess)
	r.dev.SetDepthMask(true)
	r.dev.SetFeature(gpu.CullFace, true)
	r.dev.SetFeature(gpu.Blend, false)
	r.dev.Clear(gpu.ClearColor|gpu.ClearDepth, r.clear, 1)

	if err := r.ensureBRDF(); err != nil {
		r.log.Warnf("brdf lut: %v", err)
	}
	if s == nil {
		return nil
	}
	if sky := s.Skybox(); sky != nil {
		env, err := r.buildCubemap(sky)
		if err != nil {
			r.abortFrame()
			return err
		}
		f.env = env
		if err := r.drawSkybox(f); err != nil {
			r.log.Warnf("skybox: %v", err)
		}
	}
	return nil
}

// Draw renders g with the world transform in info. Translucent geometry is
// queued until EndDrawing.
func (r *Renderer) Draw(g *scene.Group, info DrawInfo) error {
	f := r.frame
	if f == nil {
		return ErrNoFrame
	}
	if g == nil || g.Hidden() {
		return nil
	}
	if mesh, mat := g.Mesh(), g.Material(); mesh != nil && mat != nil {
		if err := r.drawGroupGeometry(f, g, mesh, mat, info); err != nil {
			return err
		}
	}
	if lines := g.LineGroup(); lines != nil {
		if err := r.drawGroupLines(f, g, lines, info); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) drawGroupGeometry(f *frame, g *scene.Group, mesh *models.Mesh, mat *models.Material, info DrawInfo) error {
	bounds := mesh.Bounds().Transform(info.World)
	if !bounds.IsEmpty() && !f.frustum.IntersectAABB(bounds) {
		r.stats.Culled++
		return nil
	}

	mc, err := r.buildMesh(mesh)
	if err != nil {
		return err
	}
	matc, err := r.buildMaterial(mat)
	if err != nil {
		return err
	}
	props := g.MaterialProperties()
	if props == nil {
		props = r.noProperties
	}
	pc, err := r.buildProperties(props)
	if err != nil {
		return err
	}

	d := queuedDraw{world: info.World, mesh: mc, material: matc, props: pc, source: props}
	if d.translucent() {
		f.translucent = append(f.translucent, d)
		return nil
	}
	return r.drawGeometry(f, d)
}

// drawGeometry issues one triangle draw with the current pass state.
func (r *Renderer) drawGeometry(f *frame, d queuedDraw) error {
	if d.material.program == gpu.NoHandle || d.mesh.empty() {
		return nil
	}
	r.dev.UseProgram(d.material.program)
	if !d.mesh.cull || d.translucent() {
		prev := r.dev.State().Features[gpu.CullFace]
		r.dev.SetFeature(gpu.CullFace, false)
		defer r.dev.SetFeature(gpu.CullFace, prev)
	}

	r.transformUniforms(f, d.material, d.world)
	r.lightUniforms(f, d.material, d.world.Translation())
	r.applyUniforms(d.material, d.props.values)
	if err := r.bindTextures(f, d.source); err != nil {
		return err
	}
	r.dev.Draw(d.mesh.call)
	r.stats.DrawCalls++
	return nil
}

func (r *Renderer) drawGroupLines(f *frame, g *scene.Group, lines *models.LineGroup, info DrawInfo) error {
	mat := g.LineMaterial()
	if mat == nil {
		mat = r.defaults.Material(models.LineMaterial)
	}
	lc, err := r.buildLineGroup(lines)
	if err != nil {
		return err
	}
	mc, err := r.buildMaterial(mat)
	if err != nil {
		return err
	}
	if mc.program == gpu.NoHandle || lc.empty() {
		return nil
	}
	r.dev.UseProgram(mc.program)
	r.transformUniforms(f, mc, info.World)
	if props := g.MaterialProperties(); props != nil {
		pc, err := r.buildProperties(props)
		if err != nil {
			return err
		}
		r.applyUniforms(mc, pc.values)
	}
	r.dev.Draw(lc.call)
	r.stats.DrawCalls++
	return nil
}

func (r *Renderer) transformUniforms(f *frame, c *MaterialCache, world math3d.Mat4) {
	r.applyUniform(c, gpu.UniformModel, world.Float32())
	r.applyUniform(c, gpu.UniformView, f.view.Float32())
	r.applyUniform(c, gpu.UniformProjection, f.proj.Float32())
	r.applyUniform(c, gpu.UniformMVP, f.viewProj.Mul(world).Float32())
	r.applyUniform(c, gpu.UniformNormalMatrix, world.NormalMatrix().Float32().Mat3())
	r.applyUniform(c, gpu.UniformCameraPosition, f.eye.Float32())
}

// lightUniforms pushes the point lights closest to p.
func (r *Renderer) lightUniforms(f *frame, c *MaterialCache, p math3d.Vec3) {
	var lights []scene.PointLight
	if f.scene != nil {
		lights = f.scene.ClosestLights(p, min(r.cfg.MaxLights, gpu.MaxPointLights))
	}
	r.applyUniform(c, gpu.UniformLightCount, int32(len(lights)))
	for i, l := range lights {
		r.applyUniform(c, gpu.UniformLightPosition(i), l.Position.Float32())
		r.applyUniform(c, gpu.UniformLightColor(i), l.Radiance().Float32())
	}
}

// bindTextures binds every property slot to the texture unit of the same
// number. Unset slots get white, or the frame environment for the
// environment slots; slots whose texture died get the missing texture.
func (r *Renderer) bindTextures(f *frame, props *models.MaterialProperties) error {
	for slot := range models.MaxTextures {
		h, err := r.slotTexture(f, props, slot)
		if err != nil {
			return err
		}
		r.dev.SetActiveTexture(int(slot))
		r.dev.BindTexture(h)
	}
	r.dev.SetActiveTexture(0)
	return nil
}

func (r *Renderer) slotTexture(f *frame, props *models.MaterialProperties, slot models.TextureSlot) (gpu.Handle, error) {
	tex, set := props.TextureState(slot)
	if tex != nil {
		c, err := r.buildTexture(tex)
		if err != nil {
			return gpu.NoHandle, err
		}
		if c.handle != gpu.NoHandle {
			return c.handle, nil
		}
	}
	if set {
		return r.standardTexture(models.MissingTexture), nil
	}
	switch slot {
	case models.EnvironmentSlot:
		if f.env != nil {
			return f.env.handle, nil
		}
		return gpu.NoHandle, nil
	case models.PrefilterSlot:
		if f.env != nil {
			return f.env.irradiance, nil
		}
		return gpu.NoHandle, nil
	case models.BRDFSlot:
		return r.brdf, nil
	}
	return r.standardTexture(models.WhiteTexture), nil
}

// EndDrawing flushes the translucent queue through the OIT composite and
// restores the state and context that were current at BeginDrawing. A
// non-nil s supplies the lights of the queued draws in place of the scene
// given to BeginDrawing.
func (r *Renderer) EndDrawing(s *scene.Scene) error {
	f := r.frame
	if f == nil {
		return ErrNoFrame
	}
	if s != nil {
		f.scene = s
	}
	err := r.flushTranslucent(f)
	r.finishFrame()
	return err
}

// abortFrame closes the frame without drawing queued translucent geometry.
func (r *Renderer) abortFrame() {
	r.finishFrame()
}

func (r *Renderer) finishFrame() {
	f := r.frame
	r.frame = nil
	r.stack.Pop()
	f.scope.Exit()
	f.sw.Exit()
}

// DrawAll draws every visible group of s seen from cam onto the bound
// framebuffer. A renderer ID collision aborts the frame.
func (r *Renderer) DrawAll(s *scene.Scene, cam *scene.Camera) error {
	if err := r.BeginDrawing(cam, s); err != nil {
		return err
	}
	for g, world := range s.VisibleGroups() {
		if err := r.Draw(g, DrawInfo{World: world}); err != nil {
			r.abortFrame()
			return fmt.Errorf("draw group %q: %w", g.Name(), err)
		}
	}
	return r.EndDrawing(s)
}

// PreLoadEntity builds the caches of every group below e, hidden or not,
// so the first frame showing them does no uploads.
func (r *Renderer) PreLoadEntity(e *scene.Entity) error {
	return r.withContext("preload", func() error {
		return r.preload(e)
	})
}

func (r *Renderer) preload(e *scene.Entity) error {
	if m := e.Model(); m != nil {
		for _, g := range m.Groups() {
			if err := r.preloadGroup(g); err != nil {
				return fmt.Errorf("preload group %q: %w", g.Name(), err)
			}
		}
	}
	for _, c := range e.Children() {
		if err := r.preload(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) preloadGroup(g *scene.Group) error {
	if m := g.Mesh(); m != nil {
		if _, err := r.buildMesh(m); err != nil {
			return err
		}
	}
	for _, mat := range []*models.Material{g.Material(), g.LineMaterial()} {
		if mat == nil {
			continue
		}
		if _, err := r.buildMaterial(mat); err != nil {
			return err
		}
	}
	if p := g.MaterialProperties(); p != nil {
		if _, err := r.buildProperties(p); err != nil {
			return err
		}
		for slot := range models.MaxTextures {
			if t := p.Texture(slot); t != nil {
				if _, err := r.buildTexture(t); err != nil {
					return err
				}
			}
		}
	}
	if l := g.LineGroup(); l != nil {
		if _, err := r.buildLineGroup(l); err != nil {
			return err
		}
	}
	return nil
}
