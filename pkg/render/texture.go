package render

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/prism/pkg/gpu"
)

// level is one mip level of one texture layer, RGBA float texels, top row
// first.
type level struct {
	w, h int
	pix  []float32
}

type texture struct {
	desc   gpu.TextureDesc
	layers [][]level // layer, then mip level
}

// Cube face layers.
const (
	faceNegX = iota
	faceNegY
	faceNegZ
	facePosX
	facePosY
	facePosZ
)

func (t *texture) allocate(data gpu.TextureData) {
	n := 1
	if t.desc.Cube {
		n = 6
	}
	t.layers = make([][]level, n)
	for i := range n {
		base := level{w: t.desc.Width, h: t.desc.Height, pix: make([]float32, t.desc.Width*t.desc.Height*4)}
		if i < len(data) && data[i] != nil {
			for j := 0; j < len(base.pix); j += 4 {
				c := t.store([4]float32(data[i][j : j+4]))
				copy(base.pix[j:j+4], c[:])
			}
		}
		t.layers[i] = []level{base}
		if t.desc.Mipmaps {
			t.layers[i] = buildMips(base)
		}
	}
}

// store converts c to what the texture format can hold.
func (t *texture) store(c [4]float32) [4]float32 {
	switch t.desc.Format {
	case gpu.RGBA8:
		for i := range c {
			c[i] = float32(math.Round(float64(clamp01(c[i]))*255) / 255)
		}
	case gpu.R16F:
		c = [4]float32{c[0], 0, 0, 1}
	}
	return c
}

// buildMips box-filters base down to 1x1.
func buildMips(base level) []level {
	levels := []level{base}
	for cur := base; cur.w > 1 || cur.h > 1; {
		next := level{w: max(1, cur.w/2), h: max(1, cur.h/2)}
		next.pix = make([]float32, next.w*next.h*4)
		for y := range next.h {
			for x := range next.w {
				var sum [4]float32
				n := float32(0)
				for dy := range 2 {
					for dx := range 2 {
						sx, sy := min(cur.w-1, 2*x+dx), min(cur.h-1, 2*y+dy)
						i := (sy*cur.w + sx) * 4
						for c := range 4 {
							sum[c] += cur.pix[i+c]
						}
						n++
					}
				}
				o := (y*next.w + x) * 4
				for c := range 4 {
					next.pix[o+c] = sum[c] / n
				}
			}
		}
		levels = append(levels, next)
		cur = next
	}
	return levels
}

// sample2D samples layer 0 at UV coordinates with V pointing up.
func (t *texture) sample2D(u, v float64) mgl32.Vec4 {
	return t.sample(0, u, 1-v, t.desc.WrapS, t.desc.WrapT)
}

// sampleCube samples the face dir points at.
func (t *texture) sampleCube(dir mgl32.Vec3) mgl32.Vec4 {
	if len(t.layers) != 6 {
		return t.sample2D(0.5, 0.5)
	}
	face, s, tc := cubeFaceCoords(dir)
	return t.sample(face, s, tc, gpu.WrapClamp, gpu.WrapClamp)
}

func (t *texture) sample(layer int, s, tc float64, wrapS, wrapT gpu.Wrap) mgl32.Vec4 {
	lvls := t.layers[layer]
	lod := float64(t.desc.LodBias)
	if lod <= 0 || len(lvls) == 1 {
		return sampleLevel(lvls[0], s, tc, wrapS, wrapT, t.desc.Mag)
	}

	lod = min(lod, float64(len(lvls)-1))
	filter := gpu.FilterNearest
	switch t.desc.Min {
	case gpu.FilterLinear, gpu.FilterLinearMipmapNearest, gpu.FilterLinearMipmapLinear:
		filter = gpu.FilterLinear
	}
	switch t.desc.Min {
	case gpu.FilterNearestMipmapNearest, gpu.FilterLinearMipmapNearest:
		return sampleLevel(lvls[int(math.Round(lod))], s, tc, wrapS, wrapT, filter)
	case gpu.FilterNearestMipmapLinear, gpu.FilterLinearMipmapLinear:
		lo := int(math.Floor(lod))
		hi := min(lo+1, len(lvls)-1)
		a := sampleLevel(lvls[lo], s, tc, wrapS, wrapT, filter)
		b := sampleLevel(lvls[hi], s, tc, wrapS, wrapT, filter)
		return lerp4(a, b, float32(lod-float64(lo)))
	}
	return sampleLevel(lvls[0], s, tc, wrapS, wrapT, filter)
}

// sampleLevel samples with s to the right and t down, both in [0,1].
func sampleLevel(l level, s, t float64, wrapS, wrapT gpu.Wrap, filter gpu.Filter) mgl32.Vec4 {
	if filter != gpu.FilterLinear {
		x := wrapTexel(int(math.Floor(wrapCoord(s, wrapS)*float64(l.w))), l.w, wrapS)
		y := wrapTexel(int(math.Floor(wrapCoord(t, wrapT)*float64(l.h))), l.h, wrapT)
		return l.texel(x, y)
	}

	fx := wrapCoord(s, wrapS)*float64(l.w) - 0.5
	fy := wrapCoord(t, wrapT)*float64(l.h) - 0.5
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := float32(fx - float64(x0))
	ty := float32(fy - float64(y0))

	x1 := wrapTexel(x0+1, l.w, wrapS)
	y1 := wrapTexel(y0+1, l.h, wrapT)
	x0 = wrapTexel(x0, l.w, wrapS)
	y0 = wrapTexel(y0, l.h, wrapT)

	top := lerp4(l.texel(x0, y0), l.texel(x1, y0), tx)
	bot := lerp4(l.texel(x0, y1), l.texel(x1, y1), tx)
	return lerp4(top, bot, ty)
}

func (l level) texel(x, y int) mgl32.Vec4 {
	i := (y*l.w + x) * 4
	return mgl32.Vec4{l.pix[i], l.pix[i+1], l.pix[i+2], l.pix[i+3]}
}

func wrapCoord(c float64, mode gpu.Wrap) float64 {
	switch mode {
	case gpu.WrapRepeat:
		return c - math.Floor(c)
	case gpu.WrapMirroredRepeat:
		c = math.Mod(math.Abs(c), 2)
		if c > 1 {
			c = 2 - c
		}
		return c
	}
	return math.Max(0, math.Min(1, c))
}

func wrapTexel(x, size int, mode gpu.Wrap) int {
	if mode == gpu.WrapRepeat {
		x %= size
		if x < 0 {
			x += size
		}
		return x
	}
	return max(0, min(size-1, x))
}

// cubeFaceCoords maps a direction to a face layer and face coordinates
// (s right, t down) in [0,1].
func cubeFaceCoords(dir mgl32.Vec3) (face int, s, t float64) {
	x, y, z := float64(dir[0]), float64(dir[1]), float64(dir[2])
	ax, ay, az := math.Abs(x), math.Abs(y), math.Abs(z)
	var sc, tc, ma float64
	switch {
	case ax >= ay && ax >= az:
		ma = ax
		if x > 0 {
			face, sc, tc = facePosX, -z, -y
		} else {
			face, sc, tc = faceNegX, z, -y
		}
	case ay >= az:
		ma = ay
		if y > 0 {
			face, sc, tc = facePosY, x, z
		} else {
			face, sc, tc = faceNegY, x, -z
		}
	default:
		ma = az
		if z > 0 {
			face, sc, tc = facePosZ, x, -y
		} else {
			face, sc, tc = faceNegZ, -x, -y
		}
	}
	if ma == 0 {
		return facePosZ, 0.5, 0.5
	}
	return face, (sc/ma + 1) / 2, (tc/ma + 1) / 2
}

// cubeFaceDirection is the inverse of cubeFaceCoords.
func cubeFaceDirection(face int, s, t float64) mgl32.Vec3 {
	sc, tc := 2*s-1, 2*t-1
	var x, y, z float64
	switch face {
	case facePosX:
		x, y, z = 1, -tc, -sc
	case faceNegX:
		x, y, z = -1, -tc, sc
	case facePosY:
		x, y, z = sc, 1, tc
	case faceNegY:
		x, y, z = sc, -1, -tc
	case facePosZ:
		x, y, z = sc, -tc, 1
	default:
		x, y, z = -sc, -tc, -1
	}
	return mgl32.Vec3{float32(x), float32(y), float32(z)}.Normalize()
}

func lerp4(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}

func clamp01(v float32) float32 {
	return max(0, min(1, v))
}

func toRGBA8(px []float32) color.RGBA {
	q := func(v float32) uint8 {
		return uint8(math.Round(float64(clamp01(v)) * 255))
	}
	return color.RGBA{q(px[0]), q(px[1]), q(px[2]), q(px[3])}
}
