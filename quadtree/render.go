package quadtree

import (
	"image/color"
)

// Surface is a drawing target able to fill axis-aligned rectangles.
type Surface interface {
	FillRect(x, y, width, height int, c color.Color)
}

// Palette maps categories to colors.
type Palette interface {
	Color(c Category) (color.Color, bool)
}

// MapPalette is a Palette backed by a map.
type MapPalette map[Category]color.Color

func (p MapPalette) Color(c Category) (color.Color, bool) {
	col, ok := p[c]
	return col, ok
}

// FallbackColor is used for categories missing from the palette.
var FallbackColor color.Color = color.RGBA{G: 0xff, A: 0xff}

// Render draws the subtree rooted at id into the rectangle (x, y, width,
// height) of s, one rectangle per leaf. Unset leaves are not drawn. Divided
// nodes split the rectangle in four; right and bottom quadrants take the odd
// pixel when a size is odd.
func Render(t *Tree, id NodeID, s Surface, x, y, width, height int, p Palette) {
	if width <= 0 || height <= 0 {
		return
	}

	n := t.node(id)
	if !n.divided {
		c, ok := n.value.Category()
		if !ok {
			return
		}

		col, ok := p.Color(c)
		if !ok {
			col = FallbackColor
		}
		s.FillRect(x, y, width, height, col)
		return
	}

	left := width / 2
	top := height / 2
	for q, c := range n.children {
		cx, cw := x, left
		if Quadrant(q).X() == 1 {
			cx, cw = x+left, width-left
		}

		cy, ch := y, top
		if Quadrant(q).Y() == 1 {
			cy, ch = y+top, height-top
		}

		Render(t, c, s, cx, cy, cw, ch, p)
	}
}
