package models

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // decoders for LoadTexture
	_ "image/png"
	"os"

	"github.com/taigrr/prism/pkg/resource"
)

// Wrap is the addressing mode outside [0,1].
type Wrap int

const (
	Repeat Wrap = iota
	MirroredRepeat
	ClampToEdge
)

// Filter is a texture minification or magnification filter.
type Filter int

const (
	Nearest Filter = iota
	Linear
	NearestMipmapNearest
	NearestMipmapLinear
	LinearMipmapNearest
	LinearMipmapLinear
)

// Mipmapped reports whether the filter reads mip levels.
func (f Filter) Mipmapped() bool { return f >= NearestMipmapNearest }

// TextureOption flags change how a texture is uploaded.
type TextureOption uint8

const (
	// GenerateMipMaps builds the mip chain at upload.
	GenerateMipMaps TextureOption = 1 << iota
)

// Texture is a 2D image with sampling parameters.
type Texture struct {
	resource.Base

	img           image.Image
	wrapS, wrapT  Wrap
	minify        Filter
	magnify       Filter
	lodBias       float64
	maxAnisotropy float64
	options       TextureOption
}

// NewTexture returns a texture over img with repeat wrapping, linear
// filtering and mipmaps.
func NewTexture(img image.Image) *Texture {
	t := &Texture{
		img:           img,
		minify:        LinearMipmapLinear,
		magnify:       Linear,
		maxAnisotropy: 1,
		options:       GenerateMipMaps,
	}
	t.Init(resource.KindTexture, nil)
	return t
}

// LoadTexture decodes a PNG or JPEG file into a texture.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", path, err)
	}
	t := NewTexture(img)
	t.SetName(path)
	return t, nil
}

// SolidTexture returns a 1x1 texture of c.
func SolidTexture(c color.Color) *Texture {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, c)
	return NewTexture(img)
}

// Image returns the texel source.
func (t *Texture) Image() image.Image { return t.img }

// SetImage replaces the texel source.
func (t *Texture) SetImage(img image.Image) {
	t.img = img
	t.InvalidateCache(resource.AllRenderers)
}

// Size returns the image dimensions, zero without an image.
func (t *Texture) Size() (w, h int) {
	if t.img == nil {
		return 0, 0
	}
	b := t.img.Bounds()
	return b.Dx(), b.Dy()
}

// Wrap returns the S and T addressing modes.
func (t *Texture) Wrap() (s, tt Wrap) { return t.wrapS, t.wrapT }

// SetWrap sets the S and T addressing modes.
func (t *Texture) SetWrap(s, tt Wrap) {
	t.wrapS, t.wrapT = s, tt
	t.InvalidateCache(resource.AllRenderers)
}

// Filters returns the minification and magnification filters.
func (t *Texture) Filters() (minify, magnify Filter) { return t.minify, t.magnify }

// SetFilters sets the minification and magnification filters.
// Magnification ignores mipmap variants and uses their base filter.
func (t *Texture) SetFilters(minify, magnify Filter) {
	switch magnify {
	case NearestMipmapNearest, NearestMipmapLinear:
		magnify = Nearest
	case LinearMipmapNearest, LinearMipmapLinear:
		magnify = Linear
	}
	t.minify, t.magnify = minify, magnify
	t.InvalidateCache(resource.AllRenderers)
}

// LodBias returns the mip level bias.
func (t *Texture) LodBias() float64 { return t.lodBias }

// SetLodBias sets the mip level bias.
func (t *Texture) SetLodBias(b float64) {
	t.lodBias = b
	t.InvalidateCache(resource.AllRenderers)
}

// MaxAnisotropy returns the anisotropic filtering limit.
func (t *Texture) MaxAnisotropy() float64 { return t.maxAnisotropy }

// SetMaxAnisotropy sets the anisotropic filtering limit, at least 1.
func (t *Texture) SetMaxAnisotropy(a float64) {
	t.maxAnisotropy = max(1, a)
	t.InvalidateCache(resource.AllRenderers)
}

// Options returns the upload flags.
func (t *Texture) Options() TextureOption { return t.options }

// SetOptions sets the upload flags.
func (t *Texture) SetOptions(o TextureOption) {
	t.options = o
	t.InvalidateCache(resource.AllRenderers)
}

// Clone returns an unregistered copy sharing the image.
func (t *Texture) Clone() *Texture {
	c := NewTexture(t.img)
	c.wrapS, c.wrapT = t.wrapS, t.wrapT
	c.minify, c.magnify = t.minify, t.magnify
	c.lodBias = t.lodBias
	c.maxAnisotropy = t.maxAnisotropy
	c.options = t.options
	return c
}
