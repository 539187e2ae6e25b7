package render

import (
	"image"
	"image/color"
	"math/bits"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/quadmap/quadtree"
)

// Classifier returns the value of the cell showing the given color.
type Classifier func(c color.Color) quadtree.Value

// DarkClassifier classifies dark pixels as 1 and light ones as 0, judging by
// their red channel.
func DarkClassifier(c color.Color) quadtree.Value {
	r, _, _, _ := c.RGBA()
	if r < 0x8000 {
		return quadtree.ValueOf(1)
	}
	return quadtree.ValueOf(0)
}

// TreeFromImage builds a tree with one cell per pixel of img. The image must
// be a square whose side is a power of two. Pixel columns and rows are
// converted to tree coordinates as path ints, so rendering the tree at the
// image size draws the image back.
func TreeFromImage(img image.Image, classify Classifier) (*quadtree.Tree, error) {
	b := img.Bounds()
	side := b.Dx()
	if side == 0 || side != b.Dy() || bits.OnesCount(uint(side)) != 1 {
		return nil, errors.New("image is not a square with a power of two side").
			WithType(ErrTypeInvalidImage).
			WithTag("width", b.Dx()).
			WithTag("height", b.Dy())
	}

	unit := bits.TrailingZeros(uint(side))
	if unit > quadtree.MaxDepth {
		return nil, errors.New("image is too large").
			WithType(ErrTypeInvalidImage).
			WithTag("side", side)
	}

	t := quadtree.New(classify(img.At(b.Min.X, b.Min.Y)))
	for row := 0; row < side; row++ {
		for col := 0; col < side; col++ {
			v := classify(img.At(b.Min.X+col, b.Min.Y+row))
			if _, err := t.PathIntSet(uint32(col), uint32(row), unit, v); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}
