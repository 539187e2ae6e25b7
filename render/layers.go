package render

import (
	"context"
	"image"
	"image/draw"

	"github.com/aukilabs/quadmap/models"
	"golang.org/x/sync/errgroup"
)

// Layers renders the layers of m concurrently and composites them, the layer
// with the lowest id at the bottom.
func Layers(ctx context.Context, c *Cache, m *models.Map, width, height int) (*image.RGBA, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}

	layers := m.Layers()
	images := make([]*image.RGBA, len(layers))

	g, ctx := errgroup.WithContext(ctx)
	for i, l := range layers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			img, err := c.Render(l, width, height)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for _, img := range images {
		draw.Draw(out, out.Bounds(), img, image.Point{}, draw.Over)
	}
	return out, nil
}
