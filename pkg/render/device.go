// Package render is a software implementation of the gpu device contract. It
// keeps float render targets, rasterizes triangles and lines on the CPU and
// runs programs written in a small directive language naming built-in
// shading models. Results are presented through Framebuffer as PNG files or
// terminal half-block cells.
package render

import (
	"fmt"
	"slices"

	"github.com/taigrr/prism/pkg/gpu"
)

type buffer struct {
	data []byte
}

type attachment struct {
	handle gpu.Handle
	tex    *texture
	layer  int
}

type framebuffer struct {
	color  [gpu.MaxColorAttachments]attachment
	depth  []float32
	width  int
	height int
}

// Stats counts device work since creation.
type Stats struct {
	DrawCalls int
	Fragments int
}

// Device is the software gpu.Device. Every call requires the owning
// context to be current; otherwise gpu.ErrNotCurrent is queued or returned.
type Device struct {
	ctx     *Context
	objects map[gpu.Handle]any
	next    gpu.Handle
	state   gpu.State
	screen  *framebuffer
	errs    []error
	stats   Stats
}

var _ gpu.Device = (*Device)(nil)

func newDevice(ctx *Context, width, height int) *Device {
	d := &Device{
		ctx:     ctx,
		objects: make(map[gpu.Handle]any),
	}
	d.state.DepthMask = true
	d.state.Blend = gpu.BlendFunc{Src: gpu.One, Dst: gpu.Zero}
	d.Resize(width, height)
	return d
}

func (d *Device) current() bool {
	return d.ctx.valid && d.ctx.display.current == d.ctx
}

func (d *Device) check() bool {
	if d.current() {
		return true
	}
	d.record(gpu.ErrNotCurrent)
	return false
}

func (d *Device) record(err error) {
	d.errs = append(d.errs, err)
}

func (d *Device) add(obj any) gpu.Handle {
	d.next++
	d.objects[d.next] = obj
	return d.next
}

// Resize reallocates the default framebuffer and resets the viewport to
// cover it.
func (d *Device) Resize(width, height int) {
	screen := &texture{desc: gpu.TextureDesc{Width: width, Height: height, Format: gpu.RGBA8}}
	screen.allocate(nil)
	d.screen = &framebuffer{width: width, height: height}
	d.screen.color[0] = attachment{tex: screen}
	d.screen.depth = newDepth(width, height)
	d.state.Viewport = gpu.Viewport{Width: width, Height: height}
}

// Size returns the default framebuffer size.
func (d *Device) Size() (width, height int) {
	return d.screen.width, d.screen.height
}

// Stats returns work counters.
func (d *Device) Stats() Stats { return d.stats }

// Objects returns the number of live device objects.
func (d *Device) Objects() int { return len(d.objects) }

func newDepth(width, height int) []float32 {
	depth := make([]float32, width*height)
	for i := range depth {
		depth[i] = 1
	}
	return depth
}

func (d *Device) CreateBuffer(data []byte) (gpu.Handle, error) {
	if !d.current() {
		return gpu.NoHandle, gpu.ErrNotCurrent
	}
	return d.add(&buffer{data: slices.Clone(data)}), nil
}

func (d *Device) CreateTexture(desc gpu.TextureDesc, data gpu.TextureData) (gpu.Handle, error) {
	if !d.current() {
		return gpu.NoHandle, gpu.ErrNotCurrent
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return gpu.NoHandle, fmt.Errorf("%w: texture size %dx%d", gpu.ErrInvalidValue, desc.Width, desc.Height)
	}
	layers := 1
	if desc.Cube {
		layers = 6
	}
	if len(data) > layers {
		return gpu.NoHandle, fmt.Errorf("%w: %d layers for %d", gpu.ErrSizeMismatch, len(data), layers)
	}
	for i, layer := range data {
		if layer != nil && len(layer) != desc.Width*desc.Height*4 {
			return gpu.NoHandle, fmt.Errorf("%w: layer %d has %d texels, want %d",
				gpu.ErrSizeMismatch, i, len(layer)/4, desc.Width*desc.Height)
		}
	}
	t := &texture{desc: desc}
	t.allocate(data)
	return d.add(t), nil
}

func (d *Device) CreateProgram(vertex, fragment string) (gpu.Handle, error) {
	if !d.current() {
		return gpu.NoHandle, gpu.ErrNotCurrent
	}
	p, err := linkProgram(vertex, fragment)
	if err != nil {
		return gpu.NoHandle, err
	}
	return d.add(p), nil
}

func (d *Device) CreateFramebuffer() (gpu.Handle, error) {
	if !d.current() {
		return gpu.NoHandle, gpu.ErrNotCurrent
	}
	return d.add(&framebuffer{}), nil
}

func (d *Device) AttachTexture(fb gpu.Handle, index int, tex gpu.Handle, layer int) error {
	if !d.current() {
		return gpu.ErrNotCurrent
	}
	f, ok := d.objects[fb].(*framebuffer)
	if !ok {
		return fmt.Errorf("%w: framebuffer %d", gpu.ErrInvalidHandle, fb)
	}
	if index < 0 || index >= gpu.MaxColorAttachments {
		return fmt.Errorf("%w: attachment %d", gpu.ErrInvalidValue, index)
	}
	if tex == gpu.NoHandle {
		f.color[index] = attachment{}
		return nil
	}
	t, ok := d.objects[tex].(*texture)
	if !ok {
		return fmt.Errorf("%w: texture %d", gpu.ErrInvalidHandle, tex)
	}
	if layer < 0 || layer >= len(t.layers) {
		return fmt.Errorf("%w: layer %d", gpu.ErrInvalidValue, layer)
	}
	f.color[index] = attachment{handle: tex, tex: t, layer: layer}
	if f.width != t.desc.Width || f.height != t.desc.Height || f.depth == nil {
		f.width, f.height = t.desc.Width, t.desc.Height
		f.depth = newDepth(f.width, f.height)
	}
	return nil
}

func (d *Device) CopyDepth(src, dst gpu.Handle) error {
	if !d.current() {
		return gpu.ErrNotCurrent
	}
	s, err := d.framebuffer(src)
	if err != nil {
		return err
	}
	t, err := d.framebuffer(dst)
	if err != nil {
		return err
	}
	if s.depth == nil || t.depth == nil {
		return gpu.ErrIncomplete
	}
	if s.width != t.width || s.height != t.height {
		return fmt.Errorf("%w: depth %dx%d into %dx%d", gpu.ErrSizeMismatch, s.width, s.height, t.width, t.height)
	}
	copy(t.depth, s.depth)
	return nil
}

func (d *Device) framebuffer(h gpu.Handle) (*framebuffer, error) {
	if h == gpu.NoHandle {
		return d.screen, nil
	}
	f, ok := d.objects[h].(*framebuffer)
	if !ok {
		return nil, fmt.Errorf("%w: framebuffer %d", gpu.ErrInvalidHandle, h)
	}
	return f, nil
}

func (d *Device) Delete(h gpu.Handle) {
	if !d.check() {
		return
	}
	obj, ok := d.objects[h]
	if !ok {
		d.record(fmt.Errorf("%w: delete %d", gpu.ErrInvalidHandle, h))
		return
	}
	delete(d.objects, h)

	// Deleting a bound object unbinds it.
	switch obj.(type) {
	case *texture:
		for unit, bound := range d.state.Textures {
			if bound == h {
				d.state.Textures[unit] = gpu.NoHandle
			}
		}
		for _, o := range d.objects {
			if f, ok := o.(*framebuffer); ok {
				for i := range f.color {
					if f.color[i].handle == h {
						f.color[i] = attachment{}
					}
				}
			}
		}
	case *framebuffer:
		if d.state.Framebuffer == h {
			d.state.Framebuffer = gpu.NoHandle
		}
	case *program:
		if d.state.Program == h {
			d.state.Program = gpu.NoHandle
		}
	}
}

func (d *Device) UniformLocation(prog gpu.Handle, name string) int {
	if !d.check() {
		return -1
	}
	p, ok := d.objects[prog].(*program)
	if !ok {
		d.record(fmt.Errorf("%w: program %d", gpu.ErrInvalidHandle, prog))
		return -1
	}
	return p.location(name)
}

func (d *Device) SetUniform(location int, value any) {
	if !d.check() || location == -1 {
		return
	}
	p, ok := d.objects[d.state.Program].(*program)
	if !ok {
		d.record(gpu.ErrNoProgram)
		return
	}
	if err := p.set(location, value); err != nil {
		d.record(err)
	}
}

func (d *Device) State() gpu.State {
	return d.state
}

func (d *Device) BindFramebuffer(fb gpu.Handle) {
	if !d.check() {
		return
	}
	if _, err := d.framebuffer(fb); err != nil {
		d.record(err)
		return
	}
	d.state.Framebuffer = fb
}

func (d *Device) SetViewport(v gpu.Viewport) {
	if !d.check() {
		return
	}
	if v.Width < 0 || v.Height < 0 {
		d.record(fmt.Errorf("%w: viewport %dx%d", gpu.ErrInvalidValue, v.Width, v.Height))
		return
	}
	d.state.Viewport = v
}

func (d *Device) SetFeature(f gpu.Feature, enabled bool) {
	if !d.check() {
		return
	}
	if f < 0 || f >= gpu.FeatureCount {
		d.record(fmt.Errorf("%w: %v", gpu.ErrInvalidValue, f))
		return
	}
	d.state.Features[f] = enabled
}

func (d *Device) SetActiveTexture(unit int) {
	if !d.check() {
		return
	}
	if unit < 0 || unit >= gpu.MaxTextureUnits {
		d.record(fmt.Errorf("%w: texture unit %d", gpu.ErrInvalidValue, unit))
		return
	}
	d.state.ActiveUnit = unit
}

func (d *Device) BindTexture(tex gpu.Handle) {
	if !d.check() {
		return
	}
	if tex != gpu.NoHandle {
		if _, ok := d.objects[tex].(*texture); !ok {
			d.record(fmt.Errorf("%w: texture %d", gpu.ErrInvalidHandle, tex))
			return
		}
	}
	d.state.Textures[d.state.ActiveUnit] = tex
}

func (d *Device) SetDepthMask(write bool) {
	if !d.check() {
		return
	}
	d.state.DepthMask = write
}

func (d *Device) UseProgram(prog gpu.Handle) {
	if !d.check() {
		return
	}
	if prog != gpu.NoHandle {
		if _, ok := d.objects[prog].(*program); !ok {
			d.record(fmt.Errorf("%w: program %d", gpu.ErrInvalidHandle, prog))
			return
		}
	}
	d.state.Program = prog
}

func (d *Device) SetBlendFunc(b gpu.BlendFunc) {
	if !d.check() {
		return
	}
	d.state.Blend = b
}

func (d *Device) SetDepthFunc(f gpu.DepthFunc) {
	if !d.check() {
		return
	}
	d.state.DepthFunc = f
}

func (d *Device) Clear(mask gpu.ClearMask, color [4]float32, depth float32) {
	if !d.check() {
		return
	}
	f, err := d.framebuffer(d.state.Framebuffer)
	if err != nil {
		d.record(err)
		return
	}
	if mask&gpu.ClearColor != 0 {
		for _, a := range f.color {
			if a.tex == nil {
				continue
			}
			px := a.tex.layers[a.layer][0].pix
			c := a.tex.store(color)
			for i := 0; i < len(px); i += 4 {
				copy(px[i:i+4], c[:])
			}
		}
	}
	if mask&gpu.ClearDepth != 0 && d.state.DepthMask {
		for i := range f.depth {
			f.depth[i] = depth
		}
	}
}

func (d *Device) Error() error {
	if len(d.errs) == 0 {
		return nil
	}
	err := d.errs[0]
	d.errs = d.errs[1:]
	return err
}

// ReadPixels returns a copy of the RGBA texels of one color attachment of fb.
func (d *Device) ReadPixels(fb gpu.Handle, index int) (pix []float32, width, height int, err error) {
	f, err := d.framebuffer(fb)
	if err != nil {
		return nil, 0, 0, err
	}
	if index < 0 || index >= gpu.MaxColorAttachments || f.color[index].tex == nil {
		return nil, 0, 0, gpu.ErrIncomplete
	}
	a := f.color[index]
	lvl := a.tex.layers[a.layer][0]
	return slices.Clone(lvl.pix), lvl.w, lvl.h, nil
}

// ReadDepth returns a copy of the depth buffer of fb.
func (d *Device) ReadDepth(fb gpu.Handle) ([]float32, error) {
	f, err := d.framebuffer(fb)
	if err != nil {
		return nil, err
	}
	return slices.Clone(f.depth), nil
}

// Snapshot converts the default framebuffer into a presentable Framebuffer.
func (d *Device) Snapshot() *Framebuffer {
	return snapshot(d.screen.color[0].tex.layers[0][0])
}
