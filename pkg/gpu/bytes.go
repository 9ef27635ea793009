package gpu

import (
	"encoding/binary"
	"image"
	"math"
)

// Float32Bytes packs values little-endian for CreateBuffer.
func Float32Bytes(values []float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

// Uint32Bytes packs indices little-endian for CreateBuffer.
func Uint32Bytes(values []uint32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

// TexelsFromImage converts img into RGBA float texels in [0,1], top row first.
func TexelsFromImage(img image.Image) (texels []float32, width, height int) {
	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	texels = make([]float32, 0, width*height*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// RGBA returns alpha-premultiplied 16-bit values.
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				texels = append(texels, 0, 0, 0, 0)
				continue
			}
			fa := float32(a)
			texels = append(texels, float32(r)/fa, float32(g)/fa, float32(bl)/fa, fa/0xffff)
		}
	}
	return texels, width, height
}
