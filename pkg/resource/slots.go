package resource

import (
	"errors"
	"fmt"
	"iter"
	"maps"
)

// ErrRendererCollision means two renderer backends share one RendererID.
var ErrRendererCollision = errors.New("resource: conflicting renderer id")

// CollisionError describes a cache slot holding a cache of an unexpected type.
type CollisionError struct {
	Kind       Kind
	RendererID RendererID
	Have       string
	Want       string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("possibly conflicting rendererID %d for %s: slot holds %s, requested %s",
		e.RendererID, e.Kind, e.Have, e.Want)
}

func (e *CollisionError) Unwrap() error { return ErrRendererCollision }

// Slots maps renderer IDs to the caches built for one resource.
type Slots struct {
	kind    Kind
	entries map[RendererID]Cache
}

// Get returns the live cache for id.
func (s *Slots) Get(id RendererID) (Cache, bool) {
	c, ok := s.entries[id]
	if !ok || c.Deleted() {
		return nil, false
	}
	return c, true
}

// Len returns the number of live caches.
func (s *Slots) Len() int {
	n := 0
	for range s.live() {
		n++
	}
	return n
}

// GetOrEmplace returns the cache of type T stored for id, creating it with
// create when the slot is empty or holds a deleted cache. created reports
// whether create ran. A live cache of another type yields a *CollisionError
// and leaves the slot untouched.
func GetOrEmplace[T Cache](s *Slots, id RendererID, create func() T) (cache T, created bool, err error) {
	if existing, ok := s.Get(id); ok {
		typed, ok := existing.(T)
		if !ok {
			var want T
			return want, false, &CollisionError{
				Kind:       s.kind,
				RendererID: id,
				Have:       fmt.Sprintf("%T", existing),
				Want:       fmt.Sprintf("%T", want),
			}
		}
		return typed, false, nil
	}

	c := create()
	if s.entries == nil {
		s.entries = make(map[RendererID]Cache)
	}
	s.entries[id] = c
	return c, true, nil
}

// Invalidate marks the cache for id dirty, or all caches for AllRenderers.
// Entries holding deleted caches are removed.
func (s *Slots) Invalidate(id RendererID) {
	if id == AllRenderers {
		for k, c := range s.entries {
			if c.Deleted() {
				delete(s.entries, k)
				continue
			}
			c.MarkDirty()
		}
		return
	}

	c, ok := s.entries[id]
	if !ok {
		return
	}
	if c.Deleted() {
		delete(s.entries, id)
		return
	}
	c.MarkDirty()
}

// Remove drops the entry for id if it still holds c.
func (s *Slots) Remove(id RendererID, c Cache) {
	if cur, ok := s.entries[id]; ok && cur == c {
		delete(s.entries, id)
	}
}

// live yields a snapshot of the live entries, safe against removal during
// iteration.
func (s *Slots) live() iter.Seq2[RendererID, Cache] {
	snapshot := maps.Clone(s.entries)
	return func(yield func(RendererID, Cache) bool) {
		for id, c := range snapshot {
			if c.Deleted() {
				continue
			}
			if !yield(id, c) {
				return
			}
		}
	}
}

// All yields the live caches keyed by renderer.
func (s *Slots) All() iter.Seq2[RendererID, Cache] {
	return s.live()
}

func (s *Slots) clear() {
	clear(s.entries)
}
