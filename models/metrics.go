package models

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	mapIDLabel   = "map_id"
	layerIDLabel = "layer_id"
)

var (
	quadmapMapCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quadmap_map_count",
		Help: "The number of loaded maps.",
	})

	quadmapLayerCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quadmap_layer_count",
		Help: "The number of layers of a loaded map.",
	}, []string{mapIDLabel})

	quadmapLayerDeltaCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quadmap_layer_delta_count",
		Help: "The number of deltas recorded by an area layer.",
	}, []string{layerIDLabel})

	quadmapLayerNodeCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quadmap_layer_node_count",
		Help: "The number of nodes of the current tree of an area layer.",
	}, []string{layerIDLabel})
)

func instrumentIncreaseMapGauge(m *Map) {
	quadmapMapCount.Inc()
	quadmapLayerCount.
		With(prometheus.Labels{mapIDLabel: formatID(m.ID)}).
		Set(float64(len(m.Layers())))
}

func instrumentDecreaseMapGauge(m *Map) {
	quadmapMapCount.Dec()
	quadmapLayerCount.
		Delete(prometheus.Labels{mapIDLabel: formatID(m.ID)})
}

func instrumentLayer(layerID uint32, deltas, nodes int) {
	labels := prometheus.Labels{layerIDLabel: formatID(layerID)}
	quadmapLayerDeltaCount.With(labels).Set(float64(deltas))
	quadmapLayerNodeCount.With(labels).Set(float64(nodes))
}

func formatID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
