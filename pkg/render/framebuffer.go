package render

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// Framebuffer is a presented frame: the default target of a device
// quantized to 8 bits per channel, top row first.
type Framebuffer struct {
	*image.RGBA
}

// snapshot quantizes one texture level.
func snapshot(l level) *Framebuffer {
	img := image.NewRGBA(image.Rect(0, 0, l.w, l.h))
	for i := range l.w * l.h {
		c := toRGBA8(l.pix[4*i : 4*i+4])
		copy(img.Pix[4*i:4*i+4], []uint8{c.R, c.G, c.B, c.A})
	}
	return &Framebuffer{RGBA: img}
}

// Width returns the frame width in pixels.
func (fb *Framebuffer) Width() int { return fb.Rect.Dx() }

// Height returns the frame height in pixels.
func (fb *Framebuffer) Height() int { return fb.Rect.Dy() }

// GetPixel returns the color at (x, y), transparent black out of bounds.
func (fb *Framebuffer) GetPixel(x, y int) color.RGBA {
	if !image.Pt(x, y).In(fb.Rect) {
		return color.RGBA{}
	}
	return fb.RGBAAt(x, y)
}

// SavePNG writes the frame to path.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, fb.RGBA); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
