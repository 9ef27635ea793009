package renderer

import (
	"github.com/taigrr/prism/pkg/gpu"
)

// applyUniform sets name on the bound program of c unless the value last
// pushed there is equal. Locations are looked up once per program.
func (r *Renderer) applyUniform(c *MaterialCache, name string, value any) {
	if c.program == gpu.NoHandle {
		return
	}
	slot, ok := c.uniforms[name]
	if !ok {
		slot = &uniformSlot{location: r.dev.UniformLocation(c.program, name)}
		c.uniforms[name] = slot
	}
	if slot.location == -1 {
		return
	}
	if slot.set && slot.last == value {
		return
	}
	slot.last, slot.set = value, true
	r.dev.SetUniform(slot.location, value)
	r.stats.UniformPushes++
}

func (r *Renderer) applyUniforms(c *MaterialCache, values map[string]any) {
	for name, v := range values {
		r.applyUniform(c, name, v)
	}
}
