// Package metrics provides Prometheus metrics for extraction runs
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the extraction collectors and the private registry they are
// registered on.
type Metrics struct {
	Registry *prometheus.Registry

	PackagesTotal       *prometheus.CounterVec
	PartsTotal          *prometheus.CounterVec
	RecordsTotal        *prometheus.CounterVec
	BehaviorsTotal      prometheus.Counter
	UnresolvedTotal     prometheus.Counter
	ConsistencyWarnings prometheus.Counter
	PackageDuration     prometheus.Histogram
	SinkErrorsTotal     *prometheus.CounterVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PackagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slidegraph_packages_total",
				Help: "Packages processed, by outcome",
			},
			[]string{"status"},
		),
		PartsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slidegraph_parts_total",
				Help: "XML parts extracted, by category",
			},
			[]string{"category"},
		),
		RecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slidegraph_records_total",
				Help: "Rows produced, by table",
			},
			[]string{"table"},
		),
		BehaviorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slidegraph_behaviors_total",
			Help: "Animation behaviors extracted",
		}),
		UnresolvedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slidegraph_unresolved_relationships_total",
			Help: "Asset values whose relationship id was not found",
		}),
		ConsistencyWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slidegraph_consistency_warnings_total",
			Help: "Parts whose timing and behavior counts differ",
		}),
		PackageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "slidegraph_package_duration_seconds",
			Help:    "Time taken to extract one package",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		SinkErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slidegraph_sink_errors_total",
				Help: "Failed sink writes, by sink",
			},
			[]string{"sink"},
		),
	}

	m.Registry.MustRegister(
		m.PackagesTotal,
		m.PartsTotal,
		m.RecordsTotal,
		m.BehaviorsTotal,
		m.UnresolvedTotal,
		m.ConsistencyWarnings,
		m.PackageDuration,
		m.SinkErrorsTotal,
		collectors.NewGoCollector(),
	)
	return m
}

// RecordPackage records the outcome of one package.
func (m *Metrics) RecordPackage(status string, duration time.Duration) {
	m.PackagesTotal.WithLabelValues(status).Inc()
	m.PackageDuration.Observe(duration.Seconds())
}

// WriteTextfile writes the registry in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
