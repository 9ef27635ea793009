package models

import (
	"maps"

	"github.com/taigrr/prism/pkg/resource"
)

// TextureSlot names a material texture binding. Slots map to texture units
// of the same number.
type TextureSlot int

const (
	AlbedoSlot TextureSlot = iota
	NormalSlot
	MetallicSlot
	RoughnessSlot
	AOSlot
	EnvironmentSlot
	PrefilterSlot
	BRDFSlot
	MaxTextures
)

// MaterialProperties holds per-object shader values and textures.
type MaterialProperties struct {
	resource.Base

	textures          [MaxTextures]resource.Weak[*Texture]
	assigned          [MaxTextures]bool
	values            map[string]any
	alwaysTranslucent bool
}

// NewMaterialProperties returns an empty property set.
func NewMaterialProperties() *MaterialProperties {
	p := &MaterialProperties{values: make(map[string]any)}
	p.Init(resource.KindMaterialProperties, nil)
	return p
}

// Texture returns the live texture in slot, or nil.
func (p *MaterialProperties) Texture(slot TextureSlot) *Texture {
	t, _ := p.TextureState(slot)
	return t
}

// TextureState returns the texture in slot and whether the slot was ever
// assigned. A set slot whose texture was destroyed returns (nil, true).
func (p *MaterialProperties) TextureState(slot TextureSlot) (*Texture, bool) {
	if slot < 0 || slot >= MaxTextures {
		return nil, false
	}
	if !p.assigned[slot] {
		return nil, false
	}
	t, _ := p.textures[slot].Get()
	return t, true
}

// SetTexture assigns t to slot. A nil t clears the slot.
func (p *MaterialProperties) SetTexture(t *Texture, slot TextureSlot) {
	if slot < 0 || slot >= MaxTextures {
		return
	}
	if t == nil {
		p.textures[slot] = resource.Weak[*Texture]{}
		p.assigned[slot] = false
	} else {
		p.textures[slot] = resource.MakeWeak(t, t.Anchor())
		p.assigned[slot] = true
	}
	p.InvalidateCache(resource.AllRenderers)
}

// Value returns a raw shader value, or fallback when unset.
func (p *MaterialProperties) Value(name string, fallback any) any {
	if v, ok := p.values[name]; ok {
		return v
	}
	return fallback
}

// SetValue sets a raw shader value pushed to the uniform of the same name.
// A nil value removes it.
func (p *MaterialProperties) SetValue(name string, v any) {
	if v == nil {
		delete(p.values, name)
	} else {
		p.values[name] = v
	}
	p.InvalidateCache(resource.AllRenderers)
}

// Values returns the raw values. The map must not be modified.
func (p *MaterialProperties) Values() map[string]any { return p.values }

// SetAlwaysTranslucent forces draws with these properties into the
// translucent pass.
func (p *MaterialProperties) SetAlwaysTranslucent(always bool) {
	p.alwaysTranslucent = always
	p.InvalidateCache(resource.AllRenderers)
}

// IsTranslucent reports the always-translucent flag.
func (p *MaterialProperties) IsTranslucent() bool { return p.alwaysTranslucent }

// Clone returns an unregistered copy sharing the textures.
func (p *MaterialProperties) Clone() *MaterialProperties {
	c := NewMaterialProperties()
	c.textures = p.textures
	c.assigned = p.assigned
	c.values = maps.Clone(p.values)
	c.alwaysTranslucent = p.alwaysTranslucent
	return c
}
