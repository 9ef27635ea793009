package render

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/prism/pkg/gpu"
)

const eps = 1e-5

func newTestDevice(t *testing.T, w, h int) *Device {
	t.Helper()
	disp := NewDisplay()
	ctx := disp.NewContext(w, h)
	require.NoError(t, disp.MakeCurrent(ctx))
	return ctx.Soft()
}

func requireNoDeviceErrors(t *testing.T, d *Device) {
	t.Helper()
	for err := d.Error(); err != nil; err = d.Error() {
		t.Errorf("device error: %v", err)
	}
}

var layout2D = gpu.VertexLayout{
	Stride:     8,
	Attributes: []gpu.Attribute{{Location: gpu.AttribPosition2D, Components: 2}},
}

// fullscreenQuad is two counter-clockwise triangles covering clip space.
func fullscreenQuad(t *testing.T, d *Device) gpu.DrawCall {
	t.Helper()
	vb, err := d.CreateBuffer(gpu.Float32Bytes([]float32{
		-1, -1, 1, -1, 1, 1,
		-1, -1, 1, 1, -1, 1,
	}))
	require.NoError(t, err)
	return gpu.DrawCall{Primitive: gpu.Triangles, Vertices: vb, Layout: layout2D, Count: 6}
}

func mustProgram(t *testing.T, d *Device, vs, fs string) gpu.Handle {
	t.Helper()
	p, err := d.CreateProgram(vs, fs)
	require.NoError(t, err)
	return p
}

func setUniform(d *Device, prog gpu.Handle, name string, v any) {
	d.SetUniform(d.UniformLocation(prog, name), v)
}

func TestRequiresCurrentContext(t *testing.T) {
	disp := NewDisplay()
	ctx := disp.NewContext(4, 4)
	d := ctx.Soft()

	_, err := d.CreateBuffer([]byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, gpu.ErrNotCurrent)

	d.SetViewport(gpu.Viewport{Width: 2, Height: 2})
	assert.ErrorIs(t, d.Error(), gpu.ErrNotCurrent)
	assert.NoError(t, d.Error())
	assert.Equal(t, 4, d.State().Viewport.Width)
}

func TestContextDestroy(t *testing.T) {
	disp := NewDisplay()
	ctx := disp.NewContext(4, 4)
	require.NoError(t, disp.MakeCurrent(ctx))
	_, err := ctx.Soft().CreateBuffer(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ctx.Soft().Objects())

	ctx.Destroy()
	assert.False(t, ctx.Valid())
	assert.Nil(t, disp.Current())
	assert.Equal(t, 0, ctx.Soft().Objects())
	assert.ErrorIs(t, disp.MakeCurrent(ctx), gpu.ErrContextUnavailable)

	other := NewDisplay().NewContext(1, 1)
	assert.Error(t, disp.MakeCurrent(other))
}

func TestCompileDiagnostics(t *testing.T) {
	d := newTestDevice(t, 2, 2)
	tests := []struct {
		name     string
		vs, fs   string
		stage    string
		contains string
	}{
		{"unknown directive", "model transform\nvarying x", "model flat", "vertex", "2: unknown directive"},
		{"unknown model", "model transform", "# comment\nmodel phong", "fragment", "2: unknown fragment model"},
		{"missing model", "", "model flat", "vertex", "no model directive"},
		{"duplicate model", "model screen\nmodel screen", "model flat", "vertex", "2: model already set"},
		{"extra argument", "model screen now", "model flat", "vertex", "1: model takes one argument"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.CreateProgram(tc.vs, tc.fs)
			var ce *gpu.CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.stage, ce.Stage)
			assert.Contains(t, ce.Log, tc.contains)
		})
	}
}

func TestUniforms(t *testing.T) {
	d := newTestDevice(t, 2, 2)
	prog := mustProgram(t, d, "model transform # comment", "model lambert")

	assert.GreaterOrEqual(t, d.UniformLocation(prog, gpu.UniformMVP), 0)
	assert.GreaterOrEqual(t, d.UniformLocation(prog, gpu.UniformLightColor(7)), 0)
	assert.Equal(t, -1, d.UniformLocation(prog, "Missing"))

	d.SetUniform(d.UniformLocation(prog, gpu.UniformBaseColor), mgl32.Vec4{1, 0, 0, 1})
	assert.ErrorIs(t, d.Error(), gpu.ErrNoProgram)

	d.UseProgram(prog)
	d.SetUniform(-1, float32(1))
	d.SetUniform(d.UniformLocation(prog, gpu.UniformBaseColor), mgl32.Vec3{1, 0, 0})
	assert.ErrorIs(t, d.Error(), gpu.ErrInvalidValue)
	requireNoDeviceErrors(t, d)
}

func TestFullscreenQuadCoversEachPixelOnce(t *testing.T) {
	d := newTestDevice(t, 4, 4)
	prog := mustProgram(t, d, "model screen", "model flat")
	d.UseProgram(prog)
	setUniform(d, prog, gpu.UniformBaseColor, mgl32.Vec4{1, 0, 0, 1})

	d.Draw(fullscreenQuad(t, d))
	requireNoDeviceErrors(t, d)

	assert.Equal(t, 16, d.Stats().Fragments)
	pix, w, h, err := d.ReadPixels(gpu.NoHandle, 0)
	require.NoError(t, err)
	require.Equal(t, 4, w)
	require.Equal(t, 4, h)
	for i := 0; i < len(pix); i += 4 {
		assert.Equal(t, []float32{1, 0, 0, 1}, pix[i:i+4])
	}
}

func TestCullFace(t *testing.T) {
	d := newTestDevice(t, 4, 4)
	prog := mustProgram(t, d, "model screen", "model flat")
	d.UseProgram(prog)

	// Clockwise winding.
	vb, err := d.CreateBuffer(gpu.Float32Bytes([]float32{-1, -1, 1, 1, 1, -1}))
	require.NoError(t, err)
	call := gpu.DrawCall{Primitive: gpu.Triangles, Vertices: vb, Layout: layout2D, Count: 3}

	d.SetFeature(gpu.CullFace, true)
	d.Draw(call)
	assert.Equal(t, 0, d.Stats().Fragments)

	d.SetFeature(gpu.CullFace, false)
	d.Draw(call)
	assert.Positive(t, d.Stats().Fragments)
	requireNoDeviceErrors(t, d)
}

func TestDepthTest(t *testing.T) {
	d := newTestDevice(t, 2, 2)
	prog := mustProgram(t, d, "model transform", "model flat")
	d.UseProgram(prog)
	d.SetFeature(gpu.DepthTest, true)

	quadAt := func(z float32) gpu.DrawCall {
		vb, err := d.CreateBuffer(gpu.Float32Bytes([]float32{
			-1, -1, z, 1, -1, z, 1, 1, z,
			-1, -1, z, 1, 1, z, -1, 1, z,
		}))
		require.NoError(t, err)
		return gpu.DrawCall{
			Primitive: gpu.Triangles,
			Vertices:  vb,
			Layout: gpu.VertexLayout{Stride: 12, Attributes: []gpu.Attribute{
				{Location: gpu.AttribPosition3D, Components: 3},
			}},
			Count: 6,
		}
	}

	setUniform(d, prog, gpu.UniformBaseColor, mgl32.Vec4{0, 1, 0, 1})
	d.Draw(quadAt(0))
	setUniform(d, prog, gpu.UniformBaseColor, mgl32.Vec4{1, 0, 0, 1})
	d.Draw(quadAt(0.6))
	requireNoDeviceErrors(t, d)

	pix, _, _, err := d.ReadPixels(gpu.NoHandle, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0, 1}, pix[:4])
	depth, err := d.ReadDepth(gpu.NoHandle)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, depth[0], eps)

	// Without depth writes the far quad passes the test but leaves depth.
	d.SetDepthFunc(gpu.DepthAlways)
	d.SetDepthMask(false)
	d.Draw(quadAt(0.6))
	depth, err = d.ReadDepth(gpu.NoHandle)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, depth[0], eps)
	pix, _, _, err = d.ReadPixels(gpu.NoHandle, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 1}, pix[:4])
}

func TestIndexedDraw(t *testing.T) {
	d := newTestDevice(t, 4, 4)
	prog := mustProgram(t, d, "model screen", "model vertexcolor")
	d.UseProgram(prog)

	vb, err := d.CreateBuffer(gpu.Float32Bytes([]float32{
		-1, -1, 0, 0, 1, 1,
		1, -1, 0, 0, 1, 1,
		1, 1, 0, 0, 1, 1,
		-1, 1, 0, 0, 1, 1,
	}))
	require.NoError(t, err)
	ib, err := d.CreateBuffer(gpu.Uint32Bytes([]uint32{0, 1, 2, 0, 2, 3}))
	require.NoError(t, err)
	layout := gpu.VertexLayout{Stride: 24, Attributes: []gpu.Attribute{
		{Location: gpu.AttribPosition2D, Components: 2},
		{Location: gpu.AttribColor4D, Components: 4, Offset: 8},
	}}

	d.Draw(gpu.DrawCall{Primitive: gpu.Triangles, Vertices: vb, Indices: ib, Layout: layout, Count: 6})
	requireNoDeviceErrors(t, d)
	pix, _, _, err := d.ReadPixels(gpu.NoHandle, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1, 1}, pix[20:24])

	d.Draw(gpu.DrawCall{Primitive: gpu.Triangles, Vertices: vb, Indices: ib, Layout: layout, Count: 9})
	assert.ErrorIs(t, d.Error(), gpu.ErrInvalidValue)
}

func TestLines(t *testing.T) {
	d := newTestDevice(t, 8, 8)
	prog := mustProgram(t, d, "model screen", "model line")
	d.UseProgram(prog)

	vb, err := d.CreateBuffer(gpu.Float32Bytes([]float32{-1, 0.1, 0.999, 0.1}))
	require.NoError(t, err)
	call := gpu.DrawCall{Primitive: gpu.Lines, Vertices: vb, Layout: layout2D, Count: 2, LineWidth: 1}

	d.Draw(call)
	assert.Equal(t, 8, d.Stats().Fragments)

	call.LineWidth = 3
	d.Draw(call)
	assert.Equal(t, 8+24, d.Stats().Fragments)
	requireNoDeviceErrors(t, d)
}

// TestWeightedBlendedComposite accumulates two translucent layers into float
// targets and resolves them.
func TestWeightedBlendedComposite(t *testing.T) {
	d := newTestDevice(t, 4, 4)
	quad := fullscreenQuad(t, d)

	newTarget := func(format gpu.TextureFormat) gpu.Handle {
		tex, err := d.CreateTexture(gpu.TextureDesc{Width: 4, Height: 4, Format: format}, nil)
		require.NoError(t, err)
		return tex
	}
	accum := newTarget(gpu.RGBA16F)
	reveal := newTarget(gpu.R16F)
	oitFB, err := d.CreateFramebuffer()
	require.NoError(t, err)
	require.NoError(t, d.AttachTexture(oitFB, 0, accum, 0))
	require.NoError(t, d.AttachTexture(oitFB, 1, reveal, 0))

	resolved := newTarget(gpu.RGBA16F)
	outFB, err := d.CreateFramebuffer()
	require.NoError(t, err)
	require.NoError(t, d.AttachTexture(outFB, 0, resolved, 0))

	oit := mustProgram(t, d, "model screen", "model oit")
	composite := mustProgram(t, d, "model screen", "model composite")

	accumulate := func(layers ...mgl32.Vec4) {
		d.BindFramebuffer(oitFB)
		d.SetFeature(gpu.Blend, false)
		d.Clear(gpu.ClearColor, [4]float32{}, 1)
		d.UseProgram(oit)
		d.SetFeature(gpu.Blend, true)
		d.SetBlendFunc(gpu.BlendAdditive)
		for _, c := range layers {
			setUniform(d, oit, gpu.UniformBaseColor, c)
			d.Draw(quad)
		}
	}
	resolve := func() []float32 {
		d.BindFramebuffer(outFB)
		d.SetFeature(gpu.Blend, false)
		d.UseProgram(composite)
		d.SetActiveTexture(0)
		d.BindTexture(accum)
		d.SetActiveTexture(1)
		d.BindTexture(reveal)
		d.Draw(quad)
		pix, _, _, err := d.ReadPixels(outFB, 0)
		require.NoError(t, err)
		return pix
	}

	accumulate(mgl32.Vec4{1, 0, 0, 0.25}, mgl32.Vec4{0, 0, 1, 0.5})
	pix, _, _, err := d.ReadPixels(oitFB, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.25, 0, 0.5, 0.75}, pix[:4], eps)
	pix, _, _, err = d.ReadPixels(oitFB, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, pix[0], eps)

	// color = (c1 + c2) / (a1 + a2), alpha = a1 + a2
	pix = resolve()
	for i := 0; i < len(pix); i += 4 {
		assert.InDeltaSlice(t, []float32{1.0 / 3, 0, 2.0 / 3, 0.75}, pix[i:i+4], eps)
	}

	// Blending the resolved layer over black scales it by its alpha.
	d.BindFramebuffer(gpu.NoHandle)
	d.Clear(gpu.ClearColor, [4]float32{0, 0, 0, 1}, 1)
	d.SetFeature(gpu.Blend, true)
	d.SetBlendFunc(gpu.BlendAlpha)
	d.UseProgram(composite)
	d.Draw(quad)
	screen, _, _, err := d.ReadPixels(gpu.NoHandle, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.25, 0, 0.5}, screen[:3], 1.0/255)

	// Nothing accumulated resolves to transparent black.
	accumulate()
	pix = resolve()
	assert.InDeltaSlice(t, []float32{0, 0, 0, 0}, pix[:4], eps)
	requireNoDeviceErrors(t, d)
}

func TestCopyDepth(t *testing.T) {
	d := newTestDevice(t, 2, 2)
	tex, err := d.CreateTexture(gpu.TextureDesc{Width: 2, Height: 2}, nil)
	require.NoError(t, err)
	fb, err := d.CreateFramebuffer()
	require.NoError(t, err)
	require.NoError(t, d.AttachTexture(fb, 0, tex, 0))

	d.Clear(gpu.ClearDepth, [4]float32{}, 0.25)
	require.NoError(t, d.CopyDepth(gpu.NoHandle, fb))
	depth, err := d.ReadDepth(fb)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, depth)

	small, err := d.CreateTexture(gpu.TextureDesc{Width: 1, Height: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, d.AttachTexture(fb, 0, small, 0))
	assert.ErrorIs(t, d.CopyDepth(gpu.NoHandle, fb), gpu.ErrSizeMismatch)
}

func TestDeleteUnbinds(t *testing.T) {
	d := newTestDevice(t, 2, 2)
	tex, err := d.CreateTexture(gpu.TextureDesc{Width: 1, Height: 1}, nil)
	require.NoError(t, err)
	d.SetActiveTexture(3)
	d.BindTexture(tex)
	assert.Equal(t, tex, d.State().Textures[3])

	d.Delete(tex)
	assert.Equal(t, gpu.NoHandle, d.State().Textures[3])
	assert.Equal(t, 0, d.Objects())

	d.Delete(tex)
	assert.ErrorIs(t, d.Error(), gpu.ErrInvalidHandle)
}

func TestSnapshotSavePNG(t *testing.T) {
	d := newTestDevice(t, 3, 2)
	d.Clear(gpu.ClearColor, [4]float32{1, 0.5, 0, 1}, 1)

	fb := d.Snapshot()
	assert.Equal(t, 3, fb.Width())
	assert.Equal(t, 2, fb.Height())
	assert.Equal(t, uint8(255), fb.GetPixel(2, 1).R)
	assert.Equal(t, uint8(128), fb.GetPixel(2, 1).G)
	assert.NoError(t, fb.SavePNG(filepath.Join(t.TempDir(), "frame.png")))
}
