package render

import (
	"image/color"

	"github.com/gdamore/tcell/v2"
)

// TerminalSurface is a quadtree.Surface drawing onto a terminal screen, one
// cell per pixel. Rectangles are translated by the offset and clipped to the
// screen.
type TerminalSurface struct {
	Screen  tcell.Screen
	OffsetX int
	OffsetY int
}

func (s TerminalSurface) FillRect(x, y, width, height int, c color.Color) {
	style := tcell.StyleDefault.Background(tcell.FromImageColor(c))
	screenWidth, screenHeight := s.Screen.Size()

	x0 := max(x+s.OffsetX, 0)
	y0 := max(y+s.OffsetY, 0)
	x1 := min(x+s.OffsetX+width, screenWidth)
	y1 := min(y+s.OffsetY+height, screenHeight)

	for cy := y0; cy < y1; cy++ {
		for cx := x0; cx < x1; cx++ {
			s.Screen.SetContent(cx, cy, ' ', nil, style)
		}
	}
}
