package models

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"golang.org/x/sync/errgroup"

	"github.com/taigrr/prism/pkg/gpu"
	"github.com/taigrr/prism/pkg/math3d"
)

// Property names set from glTF materials.
const (
	ValueMetallic  = "Metallic"
	ValueRoughness = "Roughness"
)

// ImportedGroup is one glTF primitive with its material.
type ImportedGroup struct {
	Name       string
	Mesh       *Mesh
	Properties *MaterialProperties // nil when the primitive has no material
}

// Import is the content of a glTF document.
type Import struct {
	Name     string
	Groups   []ImportedGroup
	Textures []*Texture // by glTF image index
}

// Destroy destroys every resource in the import.
func (im *Import) Destroy() {
	seen := make(map[*MaterialProperties]bool)
	for _, g := range im.Groups {
		g.Mesh.Destroy()
		if g.Properties != nil && !seen[g.Properties] {
			seen[g.Properties] = true
			g.Properties.Destroy()
		}
	}
	for _, t := range im.Textures {
		if t != nil {
			t.Destroy()
		}
	}
}

// GLTFLoader loads glTF and GLB files.
type GLTFLoader struct {
	// CalculateNormals computes smooth normals for primitives without them.
	CalculateNormals bool
	// Workers bounds parallel image decoding. Zero means unbounded.
	Workers int
}

// NewGLTFLoader returns a loader that computes missing normals.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{CalculateNormals: true, Workers: 4}
}

// LoadGLTF loads a .gltf or .glb file with the default loader.
func LoadGLTF(ctx context.Context, path string) (*Import, error) {
	return NewGLTFLoader().Load(ctx, path)
}

// Load reads path. Triangle primitives become groups. Images are decoded in
// parallel.
func (l *GLTFLoader) Load(ctx context.Context, path string) (*Import, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	textures, err := l.decodeImages(ctx, doc, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	im := &Import{Name: filepath.Base(path), Textures: textures}

	props := make(map[int]*MaterialProperties)
	for mi, m := range doc.Meshes {
		for pi, prim := range m.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				continue
			}
			mesh, err := l.primitiveMesh(doc, prim)
			if err != nil {
				im.Destroy()
				return nil, fmt.Errorf("mesh %d %q primitive %d: %w", mi, m.Name, pi, err)
			}
			if mesh == nil {
				continue
			}
			g := ImportedGroup{Name: fmt.Sprintf("%s.%d", meshName(m, mi), pi), Mesh: mesh}
			if prim.Material != nil && *prim.Material < len(doc.Materials) {
				p, ok := props[*prim.Material]
				if !ok {
					p = materialProperties(doc, doc.Materials[*prim.Material], textures)
					props[*prim.Material] = p
				}
				g.Properties = p
			}
			im.Groups = append(im.Groups, g)
		}
	}
	return im, nil
}

func meshName(m *gltf.Mesh, i int) string {
	if m.Name != "" {
		return m.Name
	}
	return fmt.Sprintf("mesh%d", i)
}

func (l *GLTFLoader) primitiveMesh(doc *gltf.Document, prim *gltf.Primitive) (*Mesh, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}
	positions, err := readVec3Accessor(doc, posIdx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	contents := ContentPosition3D
	var normals []math3d.Vec3
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if normals, err = readVec3Accessor(doc, idx); err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
		contents |= ContentNormal3D
	}
	var uvs []math3d.Vec2
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if uvs, err = readVec2Accessor(doc, idx); err != nil {
			return nil, fmt.Errorf("read uvs: %w", err)
		}
		contents |= ContentTexCoord2D
	}

	vertices := make([]Vertex, len(positions))
	for i, p := range positions {
		v := Vertex{Position3D: p}
		if i < len(normals) {
			v.Normal = normals[i]
		}
		if i < len(uvs) {
			// glTF puts v=0 at the top of the image.
			v.TexCoord = math3d.V2(uvs[i].X, 1-uvs[i].Y)
		}
		vertices[i] = v
	}

	mesh := NewMesh()
	mesh.SetContents(contents)
	mesh.SetVertices(vertices)
	if prim.Indices != nil {
		indices, err := readIndices(doc, *prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		for _, i := range indices {
			if int(i) >= len(vertices) {
				return nil, fmt.Errorf("index %d out of range (%d vertices)", i, len(vertices))
			}
		}
		mesh.SetDrawMode(IndexedTriangles)
		mesh.SetIndices(indices)
	}
	if l.CalculateNormals && normals == nil {
		mesh.CalculateNormals()
	}
	return mesh, nil
}

func materialProperties(doc *gltf.Document, m *gltf.Material, textures []*Texture) *MaterialProperties {
	p := NewMaterialProperties()
	p.SetName(m.Name)
	texture := func(index int) *Texture {
		if index < 0 || index >= len(doc.Textures) || doc.Textures[index].Source == nil {
			return nil
		}
		src := *doc.Textures[index].Source
		if src < 0 || src >= len(textures) {
			return nil
		}
		return textures[src]
	}

	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if c := pbr.BaseColorFactor; c != nil {
			p.SetValue(gpu.UniformBaseColor, math3d.V4(c[0], c[1], c[2], c[3]))
		}
		if pbr.MetallicFactor != nil {
			p.SetValue(ValueMetallic, *pbr.MetallicFactor)
		}
		if pbr.RoughnessFactor != nil {
			p.SetValue(ValueRoughness, *pbr.RoughnessFactor)
		}
		if ti := pbr.BaseColorTexture; ti != nil {
			if t := texture(ti.Index); t != nil {
				p.SetTexture(t, AlbedoSlot)
			}
		}
		if ti := pbr.MetallicRoughnessTexture; ti != nil {
			if t := texture(ti.Index); t != nil {
				p.SetTexture(t, MetallicSlot)
				p.SetTexture(t, RoughnessSlot)
			}
		}
	}
	if nt := m.NormalTexture; nt != nil && nt.Index != nil {
		if t := texture(*nt.Index); t != nil {
			p.SetTexture(t, NormalSlot)
		}
	}
	if ot := m.OcclusionTexture; ot != nil && ot.Index != nil {
		if t := texture(*ot.Index); t != nil {
			p.SetTexture(t, AOSlot)
		}
	}
	if m.AlphaMode == gltf.AlphaBlend {
		p.SetAlwaysTranslucent(true)
	}
	return p
}

// decodeImages decodes every document image concurrently.
func (l *GLTFLoader) decodeImages(ctx context.Context, doc *gltf.Document, dir string) ([]*Texture, error) {
	textures := make([]*Texture, len(doc.Images))
	g, ctx := errgroup.WithContext(ctx)
	if l.Workers > 0 {
		g.SetLimit(l.Workers)
	}
	for i, img := range doc.Images {
		data, err := imageData(doc, img, dir)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			decoded, _, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("decode image %d: %w", i, err)
			}
			t := NewTexture(decoded)
			t.SetName(img.Name)
			textures[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return textures, nil
}

func imageData(doc *gltf.Document, img *gltf.Image, dir string) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		bv := doc.BufferViews[*img.BufferView]
		buf := doc.Buffers[bv.Buffer].Data
		if bv.ByteOffset+bv.ByteLength > len(buf) {
			return nil, fmt.Errorf("buffer view %d out of range", *img.BufferView)
		}
		return buf[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
	case strings.HasPrefix(img.URI, "data:"):
		return img.MarshalData()
	case img.URI != "":
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(img.URI)))
	}
	return nil, fmt.Errorf("image has no source")
}

func readVec3Accessor(doc *gltf.Document, idx int) ([]math3d.Vec3, error) {
	acc := doc.Accessors[idx]
	if acc.Type != gltf.AccessorVec3 || acc.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("expected float VEC3, got %v/%v", acc.Type, acc.ComponentType)
	}
	data, stride, err := accessorBytes(doc, acc, 12)
	if err != nil {
		return nil, err
	}
	out := make([]math3d.Vec3, acc.Count)
	for i := range out {
		b := data[i*stride:]
		out[i] = math3d.V3(readFloat32(b), readFloat32(b[4:]), readFloat32(b[8:]))
	}
	return out, nil
}

func readVec2Accessor(doc *gltf.Document, idx int) ([]math3d.Vec2, error) {
	acc := doc.Accessors[idx]
	if acc.Type != gltf.AccessorVec2 || acc.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("expected float VEC2, got %v/%v", acc.Type, acc.ComponentType)
	}
	data, stride, err := accessorBytes(doc, acc, 8)
	if err != nil {
		return nil, err
	}
	out := make([]math3d.Vec2, acc.Count)
	for i := range out {
		b := data[i*stride:]
		out[i] = math3d.V2(readFloat32(b), readFloat32(b[4:]))
	}
	return out, nil
}

func readIndices(doc *gltf.Document, idx int) ([]uint32, error) {
	acc := doc.Accessors[idx]
	if acc.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR indices, got %v", acc.Type)
	}
	var size int
	switch acc.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unsupported index type %v", acc.ComponentType)
	}
	data, stride, err := accessorBytes(doc, acc, size)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, acc.Count)
	for i := range out {
		b := data[i*stride:]
		switch size {
		case 1:
			out[i] = uint32(b[0])
		case 2:
			out[i] = uint32(binary.LittleEndian.Uint16(b))
		default:
			out[i] = binary.LittleEndian.Uint32(b)
		}
	}
	return out, nil
}

// accessorBytes returns the accessor's bytes starting at its first element
// and the element stride.
func accessorBytes(doc *gltf.Document, acc *gltf.Accessor, elemSize int) ([]byte, int, error) {
	if acc.BufferView == nil {
		return nil, 0, fmt.Errorf("accessor has no buffer view")
	}
	bv := doc.BufferViews[*acc.BufferView]
	buf := doc.Buffers[bv.Buffer].Data
	if buf == nil {
		return nil, 0, fmt.Errorf("buffer %d has no data", bv.Buffer)
	}
	stride := bv.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	start := bv.ByteOffset + acc.ByteOffset
	if acc.Count > 0 {
		end := start + (acc.Count-1)*stride + elemSize
		if end > len(buf) || end > bv.ByteOffset+bv.ByteLength {
			return nil, 0, fmt.Errorf("accessor exceeds buffer view")
		}
	}
	return buf[start:], stride, nil
}

func readFloat32(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}
