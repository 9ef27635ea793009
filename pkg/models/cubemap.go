package models

import (
	"errors"
	"fmt"
	"image"

	"github.com/taigrr/prism/pkg/resource"
)

// ErrInvalidCubemap is returned when the faces do not form a cube.
var ErrInvalidCubemap = errors.New("invalid cubemap")

// CubeFace names one face of a cubemap.
type CubeFace int

// Faces in upload order.
const (
	NegX CubeFace = iota
	NegY
	NegZ
	PosX
	PosY
	PosZ
	CubeFaces
)

var faceNames = [CubeFaces]string{"-X", "-Y", "-Z", "+X", "+Y", "+Z"}

func (f CubeFace) String() string {
	if f < 0 || f >= CubeFaces {
		return fmt.Sprintf("CubeFace(%d)", int(f))
	}
	return faceNames[f]
}

// Cubemap is six square images of equal size, used for skyboxes and image
// based lighting.
type Cubemap struct {
	resource.Base

	faces [CubeFaces]image.Image
}

// NewCubemap returns a cubemap without faces.
func NewCubemap() *Cubemap {
	c := &Cubemap{}
	c.Init(resource.KindCubemap, nil)
	return c
}

// NewCubemapFromFaces returns a cubemap over faces in NegX..PosZ order.
func NewCubemapFromFaces(faces [CubeFaces]image.Image) (*Cubemap, error) {
	c := NewCubemap()
	c.faces = faces
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Face returns one face image.
func (c *Cubemap) Face(f CubeFace) image.Image {
	if f < 0 || f >= CubeFaces {
		return nil
	}
	return c.faces[f]
}

// SetFace replaces one face image.
func (c *Cubemap) SetFace(f CubeFace, img image.Image) {
	if f < 0 || f >= CubeFaces {
		return
	}
	c.faces[f] = img
	c.InvalidateCache(resource.AllRenderers)
}

// Size returns the face edge length, zero if a face is missing.
func (c *Cubemap) Size() int {
	if c.faces[0] == nil {
		return 0
	}
	return c.faces[0].Bounds().Dx()
}

// Validate reports why the faces do not form a cube.
func (c *Cubemap) Validate() error {
	var size image.Point
	for f, img := range c.faces {
		if img == nil {
			return fmt.Errorf("%w: face %s missing", ErrInvalidCubemap, CubeFace(f))
		}
		s := img.Bounds().Size()
		if s.X != s.Y || s.X == 0 {
			return fmt.Errorf("%w: face %s is %dx%d", ErrInvalidCubemap, CubeFace(f), s.X, s.Y)
		}
		if f == 0 {
			size = s
		} else if s != size {
			return fmt.Errorf("%w: face %s is %dx%d, want %dx%d", ErrInvalidCubemap, CubeFace(f), s.X, s.Y, size.X, size.Y)
		}
	}
	return nil
}

// IsValid reports whether all six faces are present, square and equal.
func (c *Cubemap) IsValid() bool { return c.Validate() == nil }

// Clone returns an unregistered copy sharing the face images.
func (c *Cubemap) Clone() *Cubemap {
	n := NewCubemap()
	n.faces = c.faces
	return n
}
