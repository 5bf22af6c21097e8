package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a checker run. The registry is
// private so a one-shot run can dump it to a node-exporter textfile.
type Metrics struct {
	Registry        *prometheus.Registry
	QueriesTotal    *prometheus.CounterVec
	RowsExtracted   *prometheus.CounterVec
	RowsDropped     *prometheus.CounterVec
	NewEntries      *prometheus.GaugeVec
	NewLows         *prometheus.GaugeVec
	LogSize         *prometheus.GaugeVec
	RunDuration     *prometheus.GaugeVec
	LastSuccessUnix *prometheus.GaugeVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	queries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fare_queries_total",
			Help: "Searches issued, by outcome (ok, empty, failed).",
		},
		[]string{"trip", "outcome"},
	)
	extracted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fare_rows_extracted_total",
			Help: "Listing rows read off results pages, by layout.",
		},
		[]string{"layout"},
	)
	dropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fare_rows_dropped_total",
			Help: "Listing rows discarded before becoming observations, by reason.",
		},
		[]string{"reason"},
	)
	newEntries := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fare_new_entries",
			Help: "Observations appended to the history log by the last run.",
		},
		[]string{"trip"},
	)
	newLows := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fare_new_lows",
			Help: "Itineraries priced below their historical best in the last run.",
		},
		[]string{"trip"},
	)
	logSize := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fare_history_rows",
			Help: "Rows in the history log after the last run.",
		},
		[]string{"trip"},
	)
	runDuration := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fare_run_duration_seconds",
			Help: "Wall time of the last run.",
		},
		[]string{"trip"},
	)
	lastSuccess := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fare_last_success_timestamp_seconds",
			Help: "Unix time the last successful run finished.",
		},
		[]string{"trip"},
	)

	registry.MustRegister(queries, extracted, dropped, newEntries, newLows, logSize, runDuration, lastSuccess)

	return &Metrics{
		Registry:        registry,
		QueriesTotal:    queries,
		RowsExtracted:   extracted,
		RowsDropped:     dropped,
		NewEntries:      newEntries,
		NewLows:         newLows,
		LogSize:         logSize,
		RunDuration:     runDuration,
		LastSuccessUnix: lastSuccess,
	}
}

// IncQuery counts one finished search.
func (m *Metrics) IncQuery(trip, outcome string) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(trip, outcome).Inc()
}

// AddExtracted counts rows read under a layout.
func (m *Metrics) AddExtracted(layout string, n int) {
	if m == nil {
		return
	}
	m.RowsExtracted.WithLabelValues(layout).Add(float64(n))
}

// IncDropped counts one discarded row.
func (m *Metrics) IncDropped(reason string) {
	if m == nil {
		return
	}
	m.RowsDropped.WithLabelValues(reason).Inc()
}

// ObserveRun records the outcome gauges of a completed run.
func (m *Metrics) ObserveRun(trip string, newEntries, newLows, logSize int, took time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.NewEntries.WithLabelValues(trip).Set(float64(newEntries))
	m.NewLows.WithLabelValues(trip).Set(float64(newLows))
	m.LogSize.WithLabelValues(trip).Set(float64(logSize))
	m.RunDuration.WithLabelValues(trip).Set(took.Seconds())
	m.LastSuccessUnix.WithLabelValues(trip).Set(float64(finished.Unix()))
}

// WriteTextfile dumps the registry in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
