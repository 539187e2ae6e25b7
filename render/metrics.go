package render

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderCacheHitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadmap_render_cache_hit_total",
		Help: "The total number of layer renders served from the cache.",
	})

	renderCacheMissTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadmap_render_cache_miss_total",
		Help: "The total number of layer renders that drew the layer tree.",
	})
)

func instrumentCacheHit() {
	renderCacheHitTotal.Inc()
}

func instrumentCacheMiss() {
	renderCacheMissTotal.Inc()
}
