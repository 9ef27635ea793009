package models

import (
	"errors"
	"fmt"
	"os"

	"github.com/taigrr/prism/pkg/resource"
)

// ErrUnknownShaderMode is returned by ParseShaderMode.
var ErrUnknownShaderMode = errors.New("unknown shader mode")

// ShaderMode is a shader language.
type ShaderMode int

const (
	// ShaderSoft is the directive language of the software device.
	ShaderSoft ShaderMode = iota
	ShaderGLSL
	shaderModeCount
)

func (m ShaderMode) String() string {
	switch m {
	case ShaderSoft:
		return "soft"
	case ShaderGLSL:
		return "glsl"
	}
	return fmt.Sprintf("ShaderMode(%d)", int(m))
}

// ParseShaderMode maps a configuration name to a mode.
func ParseShaderMode(s string) (ShaderMode, error) {
	for m := ShaderMode(0); m < shaderModeCount; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShaderMode, s)
}

// ShaderStage is a programmable pipeline stage.
type ShaderStage int

const (
	VertexStage ShaderStage = iota
	FragmentStage
	shaderStageCount
)

func (s ShaderStage) String() string {
	if s == VertexStage {
		return "vertex"
	}
	return "fragment"
}

// MaterialOption flags change how a material is drawn.
type MaterialOption uint8

const (
	// Translucent routes draws to the order-independent transparency pass.
	Translucent MaterialOption = 1 << iota
)

// Material holds shader sources per language and stage.
type Material struct {
	resource.Base

	options MaterialOption
	sources [shaderModeCount][shaderStageCount]string
}

// NewMaterial returns a material without sources.
func NewMaterial() *Material {
	m := &Material{}
	m.Init(resource.KindMaterial, nil)
	return m
}

// RenderOptions returns the draw flags.
func (m *Material) RenderOptions() MaterialOption { return m.options }

// SetRenderOptions sets the draw flags.
func (m *Material) SetRenderOptions(o MaterialOption) {
	m.options = o
	m.InvalidateCache(resource.AllRenderers)
}

// IsTranslucent reports whether the Translucent option is set.
func (m *Material) IsTranslucent() bool { return m.options&Translucent != 0 }

// Shader returns the source for mode and stage, empty if unset.
func (m *Material) Shader(mode ShaderMode, stage ShaderStage) string {
	if mode < 0 || mode >= shaderModeCount || stage < 0 || stage >= shaderStageCount {
		return ""
	}
	return m.sources[mode][stage]
}

// SetShader stores source for mode and stage.
func (m *Material) SetShader(mode ShaderMode, stage ShaderStage, source string) {
	if mode < 0 || mode >= shaderModeCount || stage < 0 || stage >= shaderStageCount {
		return
	}
	m.sources[mode][stage] = source
	m.InvalidateCache(resource.AllRenderers)
}

// SetShaderFile reads the source for mode and stage from path.
func (m *Material) SetShaderFile(mode ShaderMode, stage ShaderStage, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s shader: %w", stage, err)
	}
	m.SetShader(mode, stage, string(src))
	return nil
}

// Clone returns an unregistered copy without caches.
func (m *Material) Clone() *Material {
	c := NewMaterial()
	c.options = m.options
	c.sources = m.sources
	return c
}
