package render

import (
	"errors"

	"github.com/taigrr/prism/pkg/gpu"
)

var errForeignContext = errors.New("render: context belongs to another display")

// Display tracks the current software context.
type Display struct {
	current *Context
}

// NewDisplay returns a display with no current context.
func NewDisplay() *Display {
	return &Display{}
}

// NewContext creates a context whose device renders to a width x height
// default framebuffer. The context is not made current.
func (d *Display) NewContext(width, height int) *Context {
	ctx := &Context{display: d, valid: true}
	ctx.dev = newDevice(ctx, width, height)
	return ctx
}

// Current returns the current context, or nil.
func (d *Display) Current() gpu.Context {
	if d.current == nil {
		return nil
	}
	return d.current
}

// MakeCurrent makes ctx current. ctx must be a valid context of d.
func (d *Display) MakeCurrent(ctx gpu.Context) error {
	c, ok := ctx.(*Context)
	if !ok || c.display != d {
		return errForeignContext
	}
	if !c.valid {
		return gpu.ErrContextUnavailable
	}
	d.current = c
	return nil
}

// DoneCurrent leaves no context current.
func (d *Display) DoneCurrent() {
	d.current = nil
}

// Context owns one software Device.
type Context struct {
	display *Display
	dev     *Device
	valid   bool
}

// Device returns the context's device.
func (c *Context) Device() gpu.Device { return c.dev }

// Soft returns the device with its inspection helpers.
func (c *Context) Soft() *Device { return c.dev }

// Valid reports whether the context has not been destroyed.
func (c *Context) Valid() bool { return c.valid }

// Destroy invalidates the context and frees every object of its device.
func (c *Context) Destroy() {
	if !c.valid {
		return
	}
	c.valid = false
	if c.display.current == c {
		c.display.current = nil
	}
	c.dev.objects = nil
}
