package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/quadmap/quadtree"
)

// MaxImageSide is the largest side of an image rendered from a tree.
const MaxImageSide = 8192

// ImageSurface is a quadtree.Surface drawing into an RGBA image. Rectangles
// are composited over what is already drawn.
type ImageSurface struct {
	img *image.RGBA
}

// NewImageSurface returns a transparent surface of the given size.
func NewImageSurface(width, height int) *ImageSurface {
	return &ImageSurface{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

func (s *ImageSurface) FillRect(x, y, width, height int, c color.Color) {
	r := image.Rect(x, y, x+width, y+height).Intersect(s.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(s.img, r, image.NewUniform(c), image.Point{}, draw.Over)
}

func (s *ImageSurface) Image() *image.RGBA {
	return s.img
}

// Tree draws t onto a new image of the given size.
func Tree(t *quadtree.Tree, width, height int, p quadtree.Palette) (*image.RGBA, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}

	s := NewImageSurface(width, height)
	quadtree.Render(t, t.Root(), s, 0, 0, width, height, p)
	return s.Image(), nil
}

// ImageSize returns the side of an image showing every cell of a tree of the
// given depth as a square of scale pixels, capped to MaxImageSide.
func ImageSize(depth, scale int) int {
	if scale < 1 {
		scale = 1
	}
	if depth >= 31 || scale >= MaxImageSide {
		return MaxImageSide
	}
	return min(scale<<depth, MaxImageSide)
}

// WritePNG encodes img as PNG into w.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return errors.New("encoding png failed").Wrap(err)
	}
	return nil
}

func checkSize(width, height int) error {
	if width <= 0 || height <= 0 || width > MaxImageSide || height > MaxImageSide {
		return errors.New("invalid render size").
			WithType(ErrTypeInvalidSize).
			WithTag("width", width).
			WithTag("height", height)
	}
	return nil
}
