// Package gpu defines the device contract the renderer draws through, the
// global state it saves and restores around nested passes, and the context
// plumbing required to release GPU objects safely.
package gpu

import (
	"errors"
	"fmt"
)

// Handle names a device object. NoHandle is never a valid object.
type Handle uint32

// NoHandle is the zero handle. As a framebuffer it means the default target.
const NoHandle Handle = 0

// Feature is a global toggle.
type Feature int

const (
	DepthTest Feature = iota
	CullFace
	Blend
	FeatureCount
)

func (f Feature) String() string {
	switch f {
	case DepthTest:
		return "DepthTest"
	case CullFace:
		return "CullFace"
	case Blend:
		return "Blend"
	}
	return fmt.Sprintf("Feature(%d)", int(f))
}

// BlendFactor scales a blend operand.
type BlendFactor int

const (
	Zero BlendFactor = iota
	One
	SrcAlpha
	OneMinusSrcAlpha
	OneMinusSrcColor
)

// BlendFunc combines source and destination: src*Src + dst*Dst.
type BlendFunc struct {
	Src, Dst BlendFactor
}

// Common blend functions.
var (
	BlendAlpha    = BlendFunc{SrcAlpha, OneMinusSrcAlpha}
	BlendAdditive = BlendFunc{One, One}
)

// DepthFunc compares an incoming depth against the stored one.
type DepthFunc int

const (
	DepthLess DepthFunc = iota
	DepthLessEqual
	DepthAlways
)

// Viewport is the pixel rectangle draws are mapped to.
type Viewport struct {
	X, Y, Width, Height int
}

// MaxTextureUnits is the number of texture units a device exposes.
const MaxTextureUnits = 8

// MaxColorAttachments is the number of color outputs a framebuffer supports.
const MaxColorAttachments = 4

// Attachment points of a framebuffer.
const (
	ColorAttachment0 = iota
	ColorAttachment1
	ColorAttachment2
	ColorAttachment3
)

// TextureFormat describes texel storage. 8-bit formats clamp to [0,1].
type TextureFormat int

const (
	RGBA8 TextureFormat = iota
	RGBA16F
	R16F
)

// Wrap is a texture coordinate wrap mode.
type Wrap int

const (
	WrapRepeat Wrap = iota
	WrapMirroredRepeat
	WrapClamp
)

// Filter is a texture filter.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
	FilterNearestMipmapNearest
	FilterNearestMipmapLinear
	FilterLinearMipmapNearest
	FilterLinearMipmapLinear
)

// TextureDesc describes a 2D or cube texture.
type TextureDesc struct {
	Width, Height int
	Format        TextureFormat
	Cube          bool
	WrapS, WrapT  Wrap
	Min, Mag      Filter
	LodBias       float32
	MaxAnisotropy float32
	Mipmaps       bool
}

// TextureData holds RGBA float texels per layer, row-major from the top
// row. A 2D texture has one layer, a cube six (-X, -Y, -Z, +X, +Y, +Z).
// A nil layer leaves the texels zeroed.
type TextureData [][]float32

// Primitive is a draw topology.
type Primitive int

const (
	Triangles Primitive = iota
	TriangleStrip
	Lines
	LineStrip
)

// Vertex attribute locations shared by caches and shader stages.
const (
	AttribPosition3D = iota
	AttribPosition2D
	AttribTexCoord2D
	AttribNormal3D
	AttribColor3D
	AttribColor4D
	AttribBoneIDs
	AttribBoneWeights
	AttribSmoothingGroup
	AttribCount
)

// Attribute locates one float32 vertex attribute inside a vertex.
type Attribute struct {
	Location   int
	Components int
	Offset     int
}

// VertexLayout describes interleaved vertex data.
type VertexLayout struct {
	Stride     int
	Attributes []Attribute
}

// DrawCall submits geometry with the currently bound program and state.
type DrawCall struct {
	Primitive Primitive
	Vertices  Handle
	Indices   Handle // NoHandle draws vertices in order
	Layout    VertexLayout
	First     int
	Count     int
	LineWidth float32
}

// ClearMask selects buffers for Clear.
type ClearMask int

const (
	ClearColor ClearMask = 1 << iota
	ClearDepth
)

// Device is a GPU abstraction with OpenGL-like bind semantics: state set
// through it stays in effect until changed. Failures of state calls are
// queued and retrieved with Error.
type Device interface {
	CreateBuffer(data []byte) (Handle, error)
	CreateTexture(desc TextureDesc, data TextureData) (Handle, error)
	CreateProgram(vertex, fragment string) (Handle, error)
	CreateFramebuffer() (Handle, error)
	// AttachTexture attaches layer of tex (0 for 2D, the face index for a
	// cube) to fb. A NoHandle tex detaches.
	AttachTexture(fb Handle, attachment int, tex Handle, layer int) error
	// CopyDepth copies the depth buffer of src into dst. Sizes must match.
	CopyDepth(src, dst Handle) error
	Delete(h Handle)

	// UniformLocation returns -1 when the program has no such uniform.
	UniformLocation(program Handle, name string) int
	// SetUniform sets a uniform on the bound program. Values are float32,
	// int32, uint32 or mgl32 Vec2/Vec3/Vec4/Mat3/Mat4.
	SetUniform(location int, value any)

	State() State
	BindFramebuffer(fb Handle)
	SetViewport(v Viewport)
	SetFeature(f Feature, enabled bool)
	SetActiveTexture(unit int)
	BindTexture(tex Handle)
	SetDepthMask(write bool)
	UseProgram(program Handle)
	SetBlendFunc(b BlendFunc)
	SetDepthFunc(d DepthFunc)

	Clear(mask ClearMask, color [4]float32, depth float32)
	Draw(call DrawCall)

	// Error pops the oldest queued error, nil when the queue is empty.
	Error() error
}

// Device error sentinels.
var (
	ErrInvalidHandle      = errors.New("gpu: invalid handle")
	ErrInvalidValue       = errors.New("gpu: invalid value")
	ErrSizeMismatch       = errors.New("gpu: size mismatch")
	ErrIncomplete         = errors.New("gpu: incomplete framebuffer")
	ErrContextUnavailable = errors.New("gpu: context unavailable")
	ErrNotCurrent         = errors.New("gpu: context not current")
	ErrNoProgram          = errors.New("gpu: no program bound")
)

// CompileError reports a program that failed to compile or link.
type CompileError struct {
	Stage string
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("gpu: %s compile failed: %s", e.Stage, e.Log)
}
