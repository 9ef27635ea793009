package resource

// Deleter is implemented by renderers: it releases a cache's GPU handles
// with the renderer's context current.
type Deleter interface {
	DeleteCache(c Cache)
}

// Cache is the realization of one resource inside one renderer.
type Cache interface {
	MarkDirty()
	IsDirty() bool
	// Deleted reports whether the renderer already released the cache.
	Deleted() bool
	// Owner resolves the renderer that built the cache.
	Owner() (Deleter, bool)
}

// CacheBase carries the dirty flag and owner handle of a cache. It is dirty
// from construction until the first MarkClean.
type CacheBase struct {
	clean   bool
	deleted bool
	owner   Weak[Deleter]
}

// NewCacheBase returns a dirty cache base owned by the renderer behind owner.
func NewCacheBase(owner Weak[Deleter]) CacheBase {
	return CacheBase{owner: owner}
}

// MarkDirty flags the cache for rebuild on next use.
func (c *CacheBase) MarkDirty() { c.clean = false }

// IsDirty reports whether the cache needs an update.
func (c *CacheBase) IsDirty() bool { return !c.clean }

// MarkClean is called by the cache's own update once GPU state matches the
// resource.
func (c *CacheBase) MarkClean() { c.clean = true }

// Deleted reports whether MarkDeleted was called.
func (c *CacheBase) Deleted() bool { return c.deleted }

// MarkDeleted is called by the renderer after releasing the GPU handles.
func (c *CacheBase) MarkDeleted() { c.deleted = true }

// Owner resolves the renderer that built the cache.
func (c *CacheBase) Owner() (Deleter, bool) { return c.owner.Get() }
