package gpu

// Context is a device context. Once invalid it must not be made current
// and its device must not be called.
type Context interface {
	Device() Device
	Valid() bool
}

// Display tracks which context is current, like a windowing system does for
// one thread.
type Display interface {
	Current() Context
	MakeCurrent(ctx Context) error
	DoneCurrent()
}

// ContextSwitch makes a context current for a bounded scope and restores
// the previous one. Exit must run on every path, usually deferred.
type ContextSwitch struct {
	display  Display
	previous Context
	entered  bool
}

// SwitchContext remembers the current context and makes ctx current. The
// returned error is ErrContextUnavailable when ctx is nil or invalid; Exit
// is safe to call regardless.
func SwitchContext(display Display, ctx Context) (*ContextSwitch, error) {
	sw := &ContextSwitch{display: display, previous: display.Current()}
	if ctx == nil || !ctx.Valid() {
		return sw, ErrContextUnavailable
	}
	if sw.previous == ctx {
		return sw, nil
	}
	if err := display.MakeCurrent(ctx); err != nil {
		return sw, err
	}
	sw.entered = true
	return sw, nil
}

// Exit restores the context that was current before SwitchContext, or
// clears the current context when there was none or it became invalid.
func (s *ContextSwitch) Exit() {
	if !s.entered {
		return
	}
	s.entered = false
	if s.previous != nil && s.previous.Valid() {
		if err := s.display.MakeCurrent(s.previous); err == nil {
			return
		}
	}
	s.display.DoneCurrent()
}
