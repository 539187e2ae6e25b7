package render

import (
	"fmt"
	"image"
	"strings"

	"github.com/aukilabs/quadmap/featureflag"
	"github.com/aukilabs/quadmap/models"
	"github.com/aukilabs/quadmap/quadtree"
	"golang.org/x/sync/singleflight"
	"golang.org/x/sync/syncmap"
)

// Cache renders area layers and keeps the images, keyed by the fingerprint
// of the rendered tree, the layer colors and the image size. Concurrent
// renders of the same key draw the tree once. Returned images are shared and
// must not be modified.
type Cache struct {
	// The feature flags. FlagDisableRenderCache makes every render draw the
	// layer tree.
	Flags featureflag.FeatureFlag

	entries syncmap.Map
	group   singleflight.Group
}

// Render returns the image of the current tree of l.
func (c *Cache) Render(l *models.AreaLayer, width, height int) (*image.RGBA, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}

	data := l.AreaData()
	palette := l.Palette()

	var img *image.RGBA
	var err error
	l.View(func(t *quadtree.Tree) {
		if c.Flags.IsSet(featureflag.FlagDisableRenderCache) {
			img, err = Tree(t, width, height, palette)
			return
		}

		key := cacheKey(quadtree.Fingerprint(t), data, width, height)
		if v, ok := c.entries.Load(key); ok {
			instrumentCacheHit()
			img = v.(*image.RGBA)
			return
		}

		var v any
		v, err, _ = c.group.Do(key, func() (any, error) {
			if v, ok := c.entries.Load(key); ok {
				return v, nil
			}

			img, err := Tree(t, width, height, palette)
			if err != nil {
				return nil, err
			}

			c.entries.Store(key, img)
			instrumentCacheMiss()
			return img, nil
		})
		if err == nil {
			img = v.(*image.RGBA)
		}
	})
	return img, err
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Clear drops every cached image.
func (c *Cache) Clear() {
	c.entries.Range(func(k, _ any) bool {
		c.entries.Delete(k)
		return true
	})
}

func cacheKey(fingerprint string, data []models.AreaData, width, height int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%dx%d", fingerprint, width, height)
	for _, d := range data {
		fmt.Fprintf(&b, "/%d:%s", d.ID, d.Color.Clamped().Hex())
	}
	return b.String()
}
