// Package resource holds the lifetime plumbing shared by every renderable
// resource: identity, weak handles, per-renderer cache slots and the dirty
// flag carried by GPU caches.
package resource

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/taigrr/prism/pkg/logging"
)

// Kind identifies a resource type.
type Kind int

const (
	KindMesh Kind = iota
	KindMaterial
	KindMaterialProperties
	KindTexture
	KindCubemap
	KindLineGroup
)

var kindNames = [...]string{
	KindMesh:               "Mesh",
	KindMaterial:           "Material",
	KindMaterialProperties: "MaterialProperties",
	KindTexture:            "Texture",
	KindCubemap:            "Cubemap",
	KindLineGroup:          "LineGroup",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// RendererID distinguishes renderer instances in cache slots.
type RendererID uint64

// AllRenderers selects every slot entry in InvalidateCache.
const AllRenderers RendererID = math.MaxUint64

var lastRendererID atomic.Uint64

// NewRendererID returns a process-unique renderer identifier.
func NewRendererID() RendererID {
	return RendererID(lastRendererID.Add(1))
}

// Base is embedded by every resource type. The zero value is usable once
// the kind is set with Init.
type Base struct {
	name   string
	anchor Anchor
	slots  Slots
	log    logrus.FieldLogger
}

// Init sets the resource kind and logger. log may be nil.
func (b *Base) Init(kind Kind, log logrus.FieldLogger) {
	b.slots.kind = kind
	b.log = log
}

// SetLogger replaces the logger used for lifecycle messages.
func (b *Base) SetLogger(log logrus.FieldLogger) { b.log = log }

// Kind returns the resource kind.
func (b *Base) Kind() Kind { return b.slots.kind }

// Name returns the registration name, empty for unregistered resources.
func (b *Base) Name() string { return b.name }

// SetName sets the registration name.
func (b *Base) SetName(name string) { b.name = name }

// Anchor returns the lifetime anchor caches use to reference the resource.
func (b *Base) Anchor() *Anchor { return &b.anchor }

// Alive reports whether the resource has not been destroyed.
func (b *Base) Alive() bool { return b.anchor.Alive() }

// Caches returns the per-renderer cache slots.
func (b *Base) Caches() *Slots { return &b.slots }

// Logger returns the resource logger.
func (b *Base) Logger() logrus.FieldLogger {
	return logging.OrDefault(b.log).WithField("kind", b.slots.kind.String())
}

// InvalidateCache marks the cache of rendererID dirty, or every cache for
// AllRenderers. Entries whose cache was already deleted are dropped.
func (b *Base) InvalidateCache(rendererID RendererID) {
	b.slots.Invalidate(rendererID)
}

// Destroy asks each renderer holding a cache for this resource to delete
// it, then releases the anchor. Caches whose renderer is gone are reported
// as a potential leak.
func (b *Base) Destroy() {
	if !b.anchor.Alive() {
		return
	}
	log := b.Logger()
	for id, c := range b.slots.live() {
		owner, ok := c.Owner()
		if !ok {
			log.WithField("renderer", id).Info("potential memory leak: renderer not available")
			continue
		}
		owner.DeleteCache(c)
	}
	b.slots.clear()
	b.anchor.Release()
}
