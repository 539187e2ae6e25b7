package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/quadmap/quadtree"
	"github.com/stretchr/testify/require"
)

func TestTreeFromImage(t *testing.T) {
	black := color.RGBA{A: 0xff}
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := white
			if x < 4 && y < 4 || x == 6 && y == 1 || x == 1 && y == 6 {
				c = black
			}
			src.SetRGBA(x, y, c)
		}
	}

	tree, err := TreeFromImage(src, DarkClassifier)
	require.NoError(t, err)
	require.True(t, tree.IsCanonical())

	t.Run("rendering draws the image back", func(t *testing.T) {
		img, err := Tree(tree, 8, 8, quadtree.MapPalette{0: white, 1: black})
		require.NoError(t, err)

		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				require.Equal(t, src.RGBAAt(x, y), img.RGBAAt(x, y), "pixel (%d, %d)", x, y)
			}
		}
	})

	t.Run("uniform quadrant is a single leaf", func(t *testing.T) {
		tl := tree.Child(tree.Root(), quadtree.TopLeft)
		require.False(t, tree.IsDivided(tl))
		require.Equal(t, quadtree.ValueOf(1), tree.Value(tl))
	})

	t.Run("uniform image is a single leaf", func(t *testing.T) {
		src := image.NewRGBA(image.Rect(0, 0, 4, 4))
		tree, err := TreeFromImage(src, DarkClassifier)
		require.NoError(t, err)
		require.True(t, tree.IsIdenticalWith(quadtree.New(quadtree.ValueOf(1))))
	})

	t.Run("image that is not a square returns an error", func(t *testing.T) {
		_, err := TreeFromImage(image.NewRGBA(image.Rect(0, 0, 4, 2)), DarkClassifier)
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidImage, errors.Type(err))
	})

	t.Run("side that is not a power of two returns an error", func(t *testing.T) {
		_, err := TreeFromImage(image.NewRGBA(image.Rect(0, 0, 6, 6)), DarkClassifier)
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidImage, errors.Type(err))
	})
}
