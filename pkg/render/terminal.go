package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// halfBlock paints its upper half with the foreground color.
const halfBlock = "▀"

// Draw paints the frame into area of scr. Each cell covers two pixel rows:
// the upper one as foreground, the lower as background. Columns and rows
// past the frame are left alone.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	cols := min(area.Dx(), fb.Width())
	rows := min(area.Dy(), (fb.Height()+1)/2)
	for row := range rows {
		for col := range cols {
			scr.SetCell(area.Min.X+col, area.Min.Y+row, &uv.Cell{
				Content: halfBlock,
				Width:   1,
				Style: uv.Style{
					Fg: terminalColor(fb.GetPixel(col, 2*row)),
					Bg: terminalColor(fb.GetPixel(col, 2*row+1)),
				},
			})
		}
	}
}

// terminalColor maps transparent pixels to the terminal default color.
func terminalColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}
