package quadtree

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deltaApplyTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadmap_delta_apply_total",
		Help: "The total number of deltas applied to a tree.",
	})

	deltaTraceTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadmap_delta_trace_total",
		Help: "The total number of deltas traced against a tree.",
	})

	simplifyCoalesceTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadmap_simplify_coalesce_total",
		Help: "The total number of nodes coalesced back into a leaf.",
	})
)

func instrumentApply() {
	deltaApplyTotal.Inc()
}

func instrumentTrace() {
	deltaTraceTotal.Inc()
}

func instrumentCoalesce() {
	simplifyCoalesceTotal.Inc()
}
