package renderer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/taigrr/prism/pkg/gpu"
	"github.com/taigrr/prism/pkg/models"
)

// oitTarget is the accumulation framebuffer of the translucent pass:
// attachment 0 sums weighted premultiplied color, attachment 1 sums the
// weights.
type oitTarget struct {
	fb     gpu.Handle
	accum  gpu.Handle
	reveal gpu.Handle
	width  int
	height int
}

func (o *oitTarget) release(r *Renderer) {
	r.free(&o.fb, &o.accum, &o.reveal)
	o.width, o.height = 0, 0
}

// ensure (re)allocates the target to width x height.
func (o *oitTarget) ensure(r *Renderer, width, height int) error {
	if o.fb != gpu.NoHandle && o.width == width && o.height == height {
		return nil
	}
	o.release(r)
	desc := gpu.TextureDesc{Width: width, Height: height, WrapS: gpu.WrapClamp, WrapT: gpu.WrapClamp}

	var err error
	desc.Format = gpu.RGBA16F
	if o.accum, err = r.dev.CreateTexture(desc, nil); err != nil {
		return fmt.Errorf("oit accumulation: %w", err)
	}
	desc.Format = gpu.R16F
	if o.reveal, err = r.dev.CreateTexture(desc, nil); err != nil {
		o.release(r)
		return fmt.Errorf("oit revealage: %w", err)
	}
	if o.fb, err = r.dev.CreateFramebuffer(); err != nil {
		o.release(r)
		return fmt.Errorf("oit framebuffer: %w", err)
	}
	if err := r.dev.AttachTexture(o.fb, gpu.ColorAttachment0, o.accum, 0); err != nil {
		o.release(r)
		return fmt.Errorf("oit attach: %w", err)
	}
	if err := r.dev.AttachTexture(o.fb, gpu.ColorAttachment1, o.reveal, 0); err != nil {
		o.release(r)
		return fmt.Errorf("oit attach: %w", err)
	}
	o.width, o.height = width, height
	r.log.WithFields(logrus.Fields{"width": width, "height": height}).Debug("oit target allocated")
	return nil
}

// flushTranslucent accumulates the queued translucent draws and composites
// them onto the frame target.
func (r *Renderer) flushTranslucent(f *frame) error {
	if len(f.translucent) == 0 {
		return nil
	}
	vp := f.viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		r.log.WithField("op", "oit").Debugf("skipping %d translucent draws on empty viewport", len(f.translucent))
		return nil
	}
	if err := r.oit.ensure(r, vp.Width, vp.Height); err != nil {
		return err
	}

	if err := r.accumulate(f); err != nil {
		return err
	}
	return r.composite()
}

// accumulate draws the translucent queue into the OIT target over a copy of
// the opaque depth.
func (r *Renderer) accumulate(f *frame) error {
	vp := f.viewport
	r.stack.Push(false)
	defer r.stack.Pop()
	r.dev.BindFramebuffer(r.oit.fb)
	r.dev.SetViewport(gpu.Viewport{Width: vp.Width, Height: vp.Height})
	r.dev.SetDepthMask(true)
	r.dev.Clear(gpu.ClearColor|gpu.ClearDepth, [4]float32{}, 1)
	if err := r.dev.CopyDepth(f.target, r.oit.fb); err != nil {
		r.log.WithField("op", "oit").Debugf("opaque depth not shared: %v", err)
	}
	r.dev.SetFeature(gpu.DepthTest, true)
	r.dev.SetDepthFunc(gpu.DepthLess)
	r.dev.SetDepthMask(false)
	r.dev.SetFeature(gpu.CullFace, false)
	r.dev.SetFeature(gpu.Blend, true)
	r.dev.SetBlendFunc(gpu.BlendAdditive)
	for _, d := range f.translucent {
		if err := r.drawGeometry(f, d); err != nil {
			return err
		}
	}
	return nil
}

// composite blends accum / max(revealage, epsilon) with alpha revealage
// onto the bound target.
func (r *Renderer) composite() error {
	mat, err := r.standardMaterial(models.OITCompositeMaterial)
	if err != nil {
		return err
	}
	if mat.program == gpu.NoHandle {
		return fmt.Errorf("renderer: composite program unavailable")
	}

	r.stack.Push(false)
	defer r.stack.Pop()
	r.dev.SetFeature(gpu.DepthTest, false)
	r.dev.SetFeature(gpu.CullFace, false)
	r.dev.SetDepthMask(false)
	r.dev.SetFeature(gpu.Blend, true)
	r.dev.SetBlendFunc(gpu.BlendAlpha)
	r.dev.UseProgram(mat.program)
	r.applyUniform(mat, gpu.UniformEpsilon, float32(r.cfg.OITEpsilon))
	r.dev.SetActiveTexture(0)
	r.dev.BindTexture(r.oit.accum)
	r.dev.SetActiveTexture(1)
	r.dev.BindTexture(r.oit.reveal)
	return r.drawScreenQuad()
}
