package renderer

import (
	"fmt"

	"github.com/taigrr/prism/pkg/gpu"
	"github.com/taigrr/prism/pkg/models"
)

// offscreenState sets the toggles full-screen passes run with.
func (r *Renderer) offscreenState(vp gpu.Viewport) {
	r.dev.SetViewport(vp)
	r.dev.SetFeature(gpu.DepthTest, false)
	r.dev.SetFeature(gpu.CullFace, false)
	r.dev.SetFeature(gpu.Blend, false)
	r.dev.SetDepthMask(false)
}

// drawScreenQuad draws the standard clip-space quad with the bound program.
func (r *Renderer) drawScreenQuad() error {
	m := r.defaults.Mesh(models.ScreenQuadMesh)
	if m == nil {
		return fmt.Errorf("renderer: screen quad unavailable")
	}
	c, err := r.buildMesh(m)
	if err != nil {
		return err
	}
	if c.empty() {
		return nil
	}
	r.dev.Draw(c.call)
	r.stats.DrawCalls++
	return nil
}

// BRDF returns the split-sum lookup texture, computing it on first use.
func (r *Renderer) BRDF() (gpu.Handle, error) {
	err := r.withContext("brdf lut", r.ensureBRDF)
	return r.brdf, err
}

func (r *Renderer) ensureBRDF() error {
	if r.brdf != gpu.NoHandle {
		return nil
	}
	mat, err := r.standardMaterial(models.BRDFLUTMaterial)
	if err != nil {
		return err
	}
	if mat.program == gpu.NoHandle {
		return fmt.Errorf("renderer: brdf program unavailable")
	}
	size := r.cfg.BRDFSize
	tex, err := r.dev.CreateTexture(gpu.TextureDesc{
		Width:  size,
		Height: size,
		Format: gpu.RGBA16F,
		WrapS:  gpu.WrapClamp,
		WrapT:  gpu.WrapClamp,
		Min:    gpu.FilterLinear,
		Mag:    gpu.FilterLinear,
	}, nil)
	if err != nil {
		return fmt.Errorf("brdf texture: %w", err)
	}

	fb := r.stack.Push(true)
	defer r.stack.Pop()
	if fb == gpu.NoHandle {
		r.dev.Delete(tex)
		return fmt.Errorf("renderer: no framebuffer for brdf pass")
	}
	if err := r.dev.AttachTexture(fb, gpu.ColorAttachment0, tex, 0); err != nil {
		r.dev.Delete(tex)
		return fmt.Errorf("brdf attach: %w", err)
	}
	r.offscreenState(gpu.Viewport{Width: size, Height: size})
	r.dev.UseProgram(mat.program)
	if err := r.drawScreenQuad(); err != nil {
		r.dev.Delete(tex)
		return err
	}
	r.brdf = tex
	r.log.WithField("size", size).Debug("brdf lut computed")
	return nil
}

// convolveIrradiance renders the diffuse irradiance cube of c, one face per
// nested pass.
func (r *Renderer) convolveIrradiance(c *CubemapCache) error {
	mat, err := r.standardMaterial(models.IrradianceMaterial)
	if err != nil {
		return err
	}
	if mat.program == gpu.NoHandle {
		return fmt.Errorf("renderer: irradiance program unavailable")
	}
	size := r.cfg.IrradianceSize
	tex, err := r.dev.CreateTexture(gpu.TextureDesc{
		Width:  size,
		Height: size,
		Format: gpu.RGBA16F,
		Cube:   true,
		WrapS:  gpu.WrapClamp,
		WrapT:  gpu.WrapClamp,
		Min:    gpu.FilterLinear,
		Mag:    gpu.FilterLinear,
	}, nil)
	if err != nil {
		return fmt.Errorf("irradiance texture: %w", err)
	}
	for face := range models.CubeFaces {
		if err := r.irradianceFace(mat, c.handle, tex, int(face), size); err != nil {
			r.dev.Delete(tex)
			return err
		}
	}
	c.irradiance = tex
	return nil
}

func (r *Renderer) irradianceFace(mat *MaterialCache, env, target gpu.Handle, face, size int) error {
	fb := r.stack.Push(true)
	defer r.stack.Pop()
	if fb == gpu.NoHandle {
		return fmt.Errorf("renderer: no framebuffer for irradiance face %d", face)
	}
	if err := r.dev.AttachTexture(fb, gpu.ColorAttachment0, target, face); err != nil {
		return fmt.Errorf("irradiance attach face %d: %w", face, err)
	}
	r.offscreenState(gpu.Viewport{Width: size, Height: size})
	r.dev.UseProgram(mat.program)
	r.dev.SetActiveTexture(0)
	r.dev.BindTexture(env)
	r.applyUniform(mat, gpu.UniformFace, int32(face))
	return r.drawScreenQuad()
}

// drawSkybox draws the environment cube behind everything already in the
// depth buffer.
func (r *Renderer) drawSkybox(f *frame) error {
	if f.env == nil || f.env.handle == gpu.NoHandle {
		return nil
	}
	mat, err := r.standardMaterial(models.SkyboxMaterial)
	if err != nil {
		return err
	}
	mesh, err := r.buildMesh(r.defaults.Mesh(models.CubeIndexedMesh))
	if err != nil {
		return err
	}
	if mat.program == gpu.NoHandle || mesh.empty() {
		return nil
	}

	r.stack.Push(false)
	defer r.stack.Pop()
	r.dev.SetFeature(gpu.CullFace, false)
	r.dev.SetDepthFunc(gpu.DepthLessEqual)
	r.dev.SetDepthMask(false)
	r.dev.UseProgram(mat.program)
	r.applyUniform(mat, gpu.UniformView, f.view.Float32())
	r.applyUniform(mat, gpu.UniformProjection, f.proj.Float32())
	r.dev.SetActiveTexture(0)
	r.dev.BindTexture(f.env.handle)
	r.dev.Draw(mesh.call)
	r.stats.DrawCalls++
	return nil
}
