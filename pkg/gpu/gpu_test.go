package gpu_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/prism/pkg/gpu"
	"github.com/taigrr/prism/pkg/logging"
	"github.com/taigrr/prism/pkg/render"
)

func newDevice(t *testing.T) (*render.Display, *render.Context) {
	t.Helper()
	disp := render.NewDisplay()
	ctx := disp.NewContext(8, 8)
	require.NoError(t, disp.MakeCurrent(ctx))
	return disp, ctx
}

func criticalEntries(hook *test.Hook) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if e.Data[logging.FieldSeverity] == logging.SeverityCritical {
			n++
		}
	}
	return n
}

// mutate changes every field a push saves.
func mutate(t *testing.T, dev gpu.Device, i int) {
	t.Helper()
	tex, err := dev.CreateTexture(gpu.TextureDesc{Width: 1, Height: 1}, nil)
	require.NoError(t, err)
	prog, err := dev.CreateProgram("model screen", "model flat")
	require.NoError(t, err)

	dev.SetViewport(gpu.Viewport{X: i, Y: i, Width: 8 - i, Height: 8 - i})
	dev.SetFeature(gpu.DepthTest, i%2 == 0)
	dev.SetFeature(gpu.CullFace, i%2 == 1)
	dev.SetFeature(gpu.Blend, i%3 == 0)
	dev.SetActiveTexture(i % gpu.MaxTextureUnits)
	dev.BindTexture(tex)
	dev.SetDepthMask(i%2 == 1)
	dev.UseProgram(prog)
	dev.SetBlendFunc(gpu.BlendFunc{Src: gpu.BlendFactor(i % 4), Dst: gpu.OneMinusSrcAlpha})
	dev.SetDepthFunc(gpu.DepthFunc(i % 3))
}

func TestStateStackRestoresEveryField(t *testing.T) {
	_, ctx := newDevice(t)
	dev := ctx.Device()
	log, hook := test.NewNullLogger()
	stack := gpu.NewStateStack(dev, 0, log)

	const depth = 5
	var saved []gpu.State
	for i := range depth {
		mutate(t, dev, i)
		saved = append(saved, dev.State())
		stack.Push(i%2 == 0)
	}
	mutate(t, dev, depth)
	assert.Equal(t, depth, stack.Depth())

	for i := depth - 1; i >= 0; i-- {
		stack.Pop()
		assert.Equal(t, saved[i], dev.State(), "after pop %d", i)
	}
	assert.Nil(t, dev.Error())
	assert.Zero(t, criticalEntries(hook))
}

func TestStateStackFramebuffer(t *testing.T) {
	_, ctx := newDevice(t)
	dev := ctx.Soft()
	stack := gpu.NewStateStack(dev, 4, logrus.New())

	before := dev.Objects()
	fb := stack.Push(true)
	require.NotEqual(t, gpu.NoHandle, fb)
	assert.Equal(t, fb, dev.State().Framebuffer)
	assert.Equal(t, before+1, dev.Objects())

	stack.Pop()
	assert.Equal(t, gpu.NoHandle, dev.State().Framebuffer)
	assert.Equal(t, before, dev.Objects())
}

func TestStateStackMisuse(t *testing.T) {
	_, ctx := newDevice(t)
	dev := ctx.Device()
	log, hook := test.NewNullLogger()
	stack := gpu.NewStateStack(dev, 2, log)

	stack.Pop()
	assert.Equal(t, 1, criticalEntries(hook))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, 0, stack.Depth())

	stack.Push(false)
	stack.Push(false)
	assert.Equal(t, gpu.NoHandle, stack.Push(true))
	assert.Equal(t, 2, stack.Depth())
	assert.Equal(t, 2, criticalEntries(hook))
}

func TestStateStackDefaultCap(t *testing.T) {
	_, ctx := newDevice(t)
	log, hook := test.NewNullLogger()
	stack := gpu.NewStateStack(ctx.Device(), 0, log)

	for range gpu.DefaultStateStackDepth + 1 {
		stack.Push(false)
	}
	assert.Equal(t, gpu.DefaultStateStackDepth, stack.Depth())
	assert.Equal(t, 1, criticalEntries(hook))
}

func TestSwitchContextRestoresPrevious(t *testing.T) {
	disp, first := newDevice(t)
	second := disp.NewContext(4, 4)

	sw, err := gpu.SwitchContext(disp, second)
	require.NoError(t, err)
	assert.Equal(t, gpu.Context(second), disp.Current())
	sw.Exit()
	assert.Equal(t, gpu.Context(first), disp.Current())

	// Exit clears the current context when nothing was current before.
	disp.DoneCurrent()
	sw, err = gpu.SwitchContext(disp, second)
	require.NoError(t, err)
	sw.Exit()
	assert.Nil(t, disp.Current())

	// A previous context destroyed in the meantime is not restored.
	require.NoError(t, disp.MakeCurrent(first))
	sw, err = gpu.SwitchContext(disp, second)
	require.NoError(t, err)
	first.Destroy()
	sw.Exit()
	assert.Nil(t, disp.Current())
}

func TestSwitchContextUnavailable(t *testing.T) {
	disp, first := newDevice(t)
	dead := disp.NewContext(1, 1)
	dead.Destroy()

	sw, err := gpu.SwitchContext(disp, dead)
	assert.ErrorIs(t, err, gpu.ErrContextUnavailable)
	sw.Exit()
	assert.Equal(t, gpu.Context(first), disp.Current())

	_, err = gpu.SwitchContext(disp, nil)
	assert.ErrorIs(t, err, gpu.ErrContextUnavailable)
}

func TestErrorScope(t *testing.T) {
	_, ctx := newDevice(t)
	dev := ctx.Device()
	log, hook := test.NewNullLogger()

	dev.Delete(999)
	scope := gpu.EnterErrorScope(dev, log, "upload")
	assert.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "before", hook.LastEntry().Data["when"])

	dev.SetActiveTexture(gpu.MaxTextureUnits)
	dev.Delete(998)
	assert.Equal(t, 2, scope.Exit())
	assert.Len(t, hook.AllEntries(), 3)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "upload", hook.LastEntry().Data["op"])
	assert.Nil(t, dev.Error())
}
