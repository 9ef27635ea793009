package scene

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/taigrr/prism/pkg/math3d"
	"github.com/taigrr/prism/pkg/models"
)

// TextGroup names the single group of a TextBillboard.
const TextGroup = "text"

// textPadding is the transparent border around the text, in texels.
const textPadding = 2

// TextBillboard is a model showing one line of text on a quad that always
// faces the camera. The quad is two units tall and as wide as the text
// aspect requires. The billboard owns the texture and properties of its
// group; Destroy releases them.
type TextBillboard struct {
	*Model

	group   *Group
	texture *models.Texture
	props   *models.MaterialProperties

	text  string
	face  font.Face
	color color.Color
}

// NewTextBillboard returns an empty billboard using the screen quad and
// billboard material of d, drawing white 7x13 text.
func NewTextBillboard(d *models.Defaults) *TextBillboard {
	b := &TextBillboard{
		Model:   NewModel(),
		texture: models.NewTexture(nil),
		props:   models.NewMaterialProperties(),
		face:    basicfont.Face7x13,
		color:   color.White,
	}
	b.texture.SetWrap(models.ClampToEdge, models.ClampToEdge)
	b.texture.SetFilters(models.Nearest, models.Nearest)
	b.props.SetTexture(b.texture, models.AlbedoSlot)

	b.group = b.AddGroup(TextGroup)
	b.group.SetMesh(d.Mesh(models.ScreenQuadMesh))
	b.group.SetMaterial(d.Material(models.BillboardMaterial))
	b.group.SetMaterialProperties(b.props)
	b.render()
	return b
}

// Text returns the displayed text.
func (b *TextBillboard) Text() string { return b.text }

// SetText replaces the displayed text.
func (b *TextBillboard) SetText(text string) {
	if text == b.text {
		return
	}
	b.text = text
	b.render()
}

// Font returns the face the text is drawn with.
func (b *TextBillboard) Font() font.Face { return b.face }

// SetFont sets the face the text is drawn with. A nil face restores the
// 7x13 default.
func (b *TextBillboard) SetFont(face font.Face) {
	if face == nil {
		face = basicfont.Face7x13
	}
	b.face = face
	b.render()
}

// Color returns the text color.
func (b *TextBillboard) Color() color.Color { return b.color }

// SetColor sets the text color.
func (b *TextBillboard) SetColor(c color.Color) {
	b.color = c
	b.render()
}

// Texture returns the texture the text is rendered into.
func (b *TextBillboard) Texture() *models.Texture { return b.texture }

// Destroy releases the texture and properties. The model reads as empty
// afterwards.
func (b *TextBillboard) Destroy() {
	b.props.Destroy()
	b.texture.Destroy()
}

// render draws the text into a fresh image and stretches the quad to its
// aspect ratio.
func (b *TextBillboard) render() {
	d := font.Drawer{Src: image.NewUniform(b.color), Face: b.face}
	m := b.face.Metrics()
	w := d.MeasureString(b.text).Ceil() + 2*textPadding
	h := (m.Ascent+m.Descent).Ceil() + 2*textPadding

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	d.Dst = img
	d.Dot = fixed.P(textPadding, textPadding+m.Ascent.Ceil())
	d.DrawString(b.text)

	b.texture.SetImage(img)
	b.group.SetScale(math3d.V3(float64(w)/float64(h), 1, 1))
}
