// Package metrics wraps the prometheus counters/histograms that the
// Router (C8) (RatlinesRouted, RatlinesFailed, RouteDuration) and Shover
// (C5) (ShoveDepth) update at their existing suspension points (spec.md
// §5); nothing in this module increments NavmeshRebuilds. No HTTP server is started here; a host process
// decides whether to expose /metrics by handing the Registry to
// promhttp.Handler. Grounded on the AleutianFOSS pack's promauto.NewCounter/
// NewHistogram usage (services/trace/config/tool_registry.go).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter/histogram the core emits, registered against
// its own Registry so embedding applications can scrape it without
// colliding with prometheus.DefaultRegisterer.
type Metrics struct {
	Registry *prometheus.Registry

	RatlinesRouted  prometheus.Counter
	RatlinesFailed  prometheus.Counter
	ShoveDepth      prometheus.Histogram
	NavmeshRebuilds prometheus.Counter
	RouteDuration   prometheus.Histogram
}

// New creates a Metrics bundle on a fresh Registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		RatlinesRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "topola",
			Name:      "ratlines_routed_total",
			Help:      "Ratlines successfully embedded as bands.",
		}),
		RatlinesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "topola",
			Name:      "ratlines_failed_total",
			Help:      "Ratlines that ended up in the autoroute report's undone list.",
		}),
		ShoveDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "topola",
			Name:      "shove_recursion_depth",
			Help:      "Depth reached by the shover's displacement worklist per shove.",
			Buckets:   prometheus.LinearBuckets(0, 1, 10),
		}),
		NavmeshRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "topola",
			Name:      "navmesh_rebuilds_total",
			Help:      "Times the navmesh was rebuilt after its dirty flag was set.",
		}),
		RouteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "topola",
			Name:      "route_duration_seconds",
			Help:      "Wall time spent routing a single ratline.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.RatlinesRouted, m.RatlinesFailed, m.ShoveDepth, m.NavmeshRebuilds, m.RouteDuration)
	return m
}
