// Package renderer draws a scene graph through a gpu.Device. It keeps one
// cache per resource it has seen, rebuilds caches whose resource changed,
// splits each frame into an opaque pass and a weighted blended translucent
// pass, and releases device objects with its context current.
package renderer

import (
	"errors"
	"fmt"
	"maps"

	"github.com/sirupsen/logrus"

	"github.com/taigrr/prism/pkg/config"
	"github.com/taigrr/prism/pkg/gpu"
	"github.com/taigrr/prism/pkg/logging"
	"github.com/taigrr/prism/pkg/models"
	"github.com/taigrr/prism/pkg/resource"
)

var (
	// ErrClosed is returned by a renderer after Close.
	ErrClosed = errors.New("renderer: closed")
	// ErrNoFrame is returned by Draw and EndDrawing outside BeginDrawing.
	ErrNoFrame = errors.New("renderer: no frame in progress")
	// ErrFrameInProgress is returned by BeginDrawing when a frame is open.
	ErrFrameInProgress = errors.New("renderer: frame already in progress")
)

// Stats counts renderer work since creation.
type Stats struct {
	Updates       map[resource.Kind]int // cache updates per resource kind
	Frames        int
	DrawCalls     int
	Culled        int // groups skipped by frustum culling
	UniformPushes int
}

// TotalUpdates sums the cache updates of every kind.
func (s Stats) TotalUpdates() int {
	n := 0
	for _, v := range s.Updates {
		n += v
	}
	return n
}

// Options configure a renderer.
type Options struct {
	Config   config.Config
	Defaults *models.Defaults // standard resources, owned by the caller
	Logger   logrus.FieldLogger
}

type set[T comparable] map[T]struct{}

// Renderer realizes resources on one device context and draws scenes with
// them. It is not safe for concurrent use.
type Renderer struct {
	id       resource.RendererID
	anchor   resource.Anchor
	display  gpu.Display
	ctx      gpu.Context
	dev      gpu.Device
	defaults *models.Defaults
	cfg      config.Config
	mode     models.ShaderMode
	clear    [4]float32
	log      logrus.FieldLogger
	stack    *gpu.StateStack

	meshes     set[*MeshCache]
	materials  set[*MaterialCache]
	properties set[*MaterialPropertiesCache]
	textures   set[*TextureCache]
	cubemaps   set[*CubemapCache]
	lineGroups set[*LineGroupCache]

	// noProperties stands in for groups without material properties.
	noProperties *models.MaterialProperties

	frame *frame
	brdf  gpu.Handle
	oit   oitTarget

	stats    Stats
	onUpdate func(kind resource.Kind, name string)
	closed   bool
}

// New returns a renderer drawing with ctx, made current through display.
func New(display gpu.Display, ctx gpu.Context, opts Options) (*Renderer, error) {
	if opts.Defaults == nil {
		return nil, errors.New("renderer: nil defaults")
	}
	mode, err := models.ParseShaderMode(opts.Config.ShaderMode)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	bg, err := config.ParseColor(opts.Config.Background)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	id := resource.NewRendererID()
	log := logging.OrDefault(opts.Logger).WithField("renderer", uint64(id))
	r := &Renderer{
		id:           id,
		display:      display,
		ctx:          ctx,
		dev:          ctx.Device(),
		defaults:     opts.Defaults,
		cfg:          opts.Config,
		mode:         mode,
		clear:        [4]float32{bg[0], bg[1], bg[2], 1},
		log:          log,
		stack:        gpu.NewStateStack(ctx.Device(), opts.Config.StateStackDepth, log),
		meshes:       make(set[*MeshCache]),
		materials:    make(set[*MaterialCache]),
		properties:   make(set[*MaterialPropertiesCache]),
		textures:     make(set[*TextureCache]),
		cubemaps:     make(set[*CubemapCache]),
		lineGroups:   make(set[*LineGroupCache]),
		noProperties: models.NewMaterialProperties(),
		stats:        Stats{Updates: make(map[resource.Kind]int)},
	}
	r.noProperties.SetLogger(log)
	return r, nil
}

// ID returns the key of this renderer in resource cache slots.
func (r *Renderer) ID() resource.RendererID { return r.id }

// StateStack returns the stack used to save device state around passes.
func (r *Renderer) StateStack() *gpu.StateStack { return r.stack }

// Stats returns a copy of the work counters.
func (r *Renderer) Stats() Stats {
	s := r.stats
	s.Updates = maps.Clone(r.stats.Updates)
	return s
}

// OnCacheUpdate registers fn to run after every cache update.
func (r *Renderer) OnCacheUpdate(fn func(kind resource.Kind, name string)) {
	r.onUpdate = fn
}

// owner is the weak handle caches keep to their renderer.
func (r *Renderer) owner() resource.Weak[resource.Deleter] {
	return resource.MakeWeak[resource.Deleter](r, &r.anchor)
}

func (r *Renderer) updated(kind resource.Kind, name string) {
	r.stats.Updates[kind]++
	r.log.WithFields(logrus.Fields{"kind": kind.String(), "name": name}).Debug("cache updated")
	if r.onUpdate != nil {
		r.onUpdate(kind, name)
	}
}

// withContext runs fn with the renderer's context current inside an error
// scope for op, restoring the previous context afterwards.
func (r *Renderer) withContext(op string, fn func() error) error {
	if r.closed {
		return ErrClosed
	}
	sw, err := gpu.SwitchContext(r.display, r.ctx)
	defer sw.Exit()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	scope := gpu.EnterErrorScope(r.dev, r.log, op)
	defer scope.Exit()
	return fn()
}

// release runs fn for a deletion. When the context is gone fn runs with
// live false and must skip device calls.
func (r *Renderer) release(op string, fn func(live bool)) {
	sw, err := gpu.SwitchContext(r.display, r.ctx)
	defer sw.Exit()
	if err != nil {
		r.log.WithField("op", op).Warnf("context unavailable (%v): device objects might leak", err)
		fn(false)
		return
	}
	scope := gpu.EnterErrorScope(r.dev, r.log, op)
	defer scope.Exit()
	fn(true)
}

// free deletes the non-zero handles and zeroes them.
func (r *Renderer) free(handles ...*gpu.Handle) {
	for _, h := range handles {
		if *h != gpu.NoHandle {
			r.dev.Delete(*h)
			*h = gpu.NoHandle
		}
	}
}

// Close deletes every cache and device object the renderer created. Caches
// still referenced from resources stop resolving their renderer.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	if r.frame != nil {
		r.abortFrame()
	}
	r.release("close", func(live bool) {
		r.deleteAll(live)
		if live {
			r.free(&r.brdf)
			r.oit.release(r)
		}
	})
	r.noProperties.Destroy()
	r.anchor.Release()
	r.closed = true
}
