// Package metrics holds the prometheus instruments for the resolution
// engine. Callers that want an exposition endpoint can mount the Registry
// themselves; the core only records.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registry *prometheus.Registry

	DepartureQueries     prometheus.Counter
	ShapeResolutions     *prometheus.CounterVec
	ShapeRebuildDuration prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		DepartureQueries: factory.NewCounter(prometheus.CounterOpts{
			Name: "transit_departure_queries_total",
			Help: "Number of next-departure queries served.",
		}),
		ShapeResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_shape_resolutions_total",
			Help: "Number of shape resolutions, by source tier.",
		}, []string{"source"}),
		ShapeRebuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "transit_shape_rebuild_duration_seconds",
			Help:    "Duration of generated shape rebuild runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
