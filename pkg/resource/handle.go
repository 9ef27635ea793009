package resource

// Anchor marks the lifetime of an object that others reference weakly.
// The zero value is alive. Release ends the lifetime; every Weak taken
// before the release stops resolving.
type Anchor struct {
	gen      uint64
	released bool
}

// Alive reports whether Release has not been called.
func (a *Anchor) Alive() bool {
	return a != nil && !a.released
}

// Release ends the anchored lifetime. Calling it twice is harmless.
func (a *Anchor) Release() {
	if a.released {
		return
	}
	a.released = true
	a.gen++
}

// Generation returns the current generation.
func (a *Anchor) Generation() uint64 {
	return a.gen
}

// Weak is a non-owning reference to target, valid while the anchor's
// generation matches the one captured by MakeWeak.
type Weak[T any] struct {
	target T
	anchor *Anchor
	gen    uint64
}

// MakeWeak captures a weak reference to target guarded by anchor.
// A reference made from a released anchor never resolves.
func MakeWeak[T any](target T, anchor *Anchor) Weak[T] {
	if !anchor.Alive() {
		return Weak[T]{}
	}
	return Weak[T]{target: target, anchor: anchor, gen: anchor.gen}
}

// Get resolves the reference.
func (w Weak[T]) Get() (T, bool) {
	if w.anchor == nil || w.anchor.released || w.anchor.gen != w.gen {
		var zero T
		return zero, false
	}
	return w.target, true
}

// Alive reports whether Get would succeed.
func (w Weak[T]) Alive() bool {
	_, ok := w.Get()
	return ok
}
