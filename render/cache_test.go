package render

import (
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/quadmap/featureflag"
	"github.com/aukilabs/quadmap/models"
	"github.com/aukilabs/quadmap/quadtree"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestLayer(t *testing.T, id uint32, hex string) *models.AreaLayer {
	c, err := colorful.Hex(hex)
	require.NoError(t, err)

	l := models.NewAreaLayer(id, "", quadtree.New(quadtree.Unset))
	require.NoError(t, l.AddData(models.AreaData{ID: 1, Color: c}))
	return l
}

func TestCacheRender(t *testing.T) {
	var cache Cache
	l := newTestLayer(t, 1, "#ff0000")
	_, err := l.Set(0, 0, 1, quadtree.ValueOf(1), testTime)
	require.NoError(t, err)

	misses := testutil.ToFloat64(renderCacheMissTotal)
	hits := testutil.ToFloat64(renderCacheHitTotal)

	img, err := cache.Render(l, 4, 4)
	require.NoError(t, err)
	require.Equal(t, red, img.RGBAAt(0, 0))
	require.Equal(t, transparent, img.RGBAAt(3, 3))
	require.Equal(t, misses+1, testutil.ToFloat64(renderCacheMissTotal))

	t.Run("same tree is served from the cache", func(t *testing.T) {
		cached, err := cache.Render(l, 4, 4)
		require.NoError(t, err)
		require.Same(t, img, cached)
		require.Equal(t, hits+1, testutil.ToFloat64(renderCacheHitTotal))
	})

	t.Run("other size is rendered", func(t *testing.T) {
		other, err := cache.Render(l, 8, 8)
		require.NoError(t, err)
		require.NotSame(t, img, other)
		require.Equal(t, 2, cache.Len())
	})

	t.Run("changed tree is rendered", func(t *testing.T) {
		_, err := l.Set(1, 1, 1, quadtree.ValueOf(1), testTime)
		require.NoError(t, err)

		changed, err := cache.Render(l, 4, 4)
		require.NoError(t, err)
		require.Equal(t, red, changed.RGBAAt(3, 3))
	})

	t.Run("new area data is rendered", func(t *testing.T) {
		c, err := colorful.Hex("#0000ff")
		require.NoError(t, err)
		require.NoError(t, l.AddData(models.AreaData{ID: 2, Color: c}))
		_, err = l.Set(1, 0, 1, quadtree.ValueOf(2), testTime)
		require.NoError(t, err)

		img, err := cache.Render(l, 4, 4)
		require.NoError(t, err)
		require.Equal(t, blue, img.RGBAAt(3, 0))
	})

	t.Run("clear drops cached images", func(t *testing.T) {
		cache.Clear()
		require.Zero(t, cache.Len())
	})

	t.Run("concurrent renders share one image", func(t *testing.T) {
		var cache Cache
		l := newTestLayer(t, 2, "#ff0000")

		var wg sync.WaitGroup
		images := make([]any, 8)
		errs := make([]error, 8)
		for i := range images {
			wg.Add(1)
			go func() {
				defer wg.Done()
				images[i], errs[i] = cache.Render(l, 16, 16)
			}()
		}
		wg.Wait()

		for i, img := range images {
			require.NoError(t, errs[i])
			require.Same(t, images[0], img)
		}
		require.Equal(t, 1, cache.Len())
	})
}

func TestCacheRenderDisabled(t *testing.T) {
	cache := Cache{Flags: featureflag.New([]string{string(featureflag.FlagDisableRenderCache)})}
	l := newTestLayer(t, 3, "#ff0000")

	img, err := cache.Render(l, 4, 4)
	require.NoError(t, err)

	other, err := cache.Render(l, 4, 4)
	require.NoError(t, err)
	require.NotSame(t, img, other)
	require.Zero(t, cache.Len())
}
