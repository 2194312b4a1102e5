package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "fuel_registry_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	mutationTotal   *prometheus.CounterVec
	mutationLatency *prometheus.HistogramVec

	queryTotal   *prometheus.CounterVec
	queryLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	snapshotRecords prometheus.Gauge
	streamClients   prometheus.Gauge
)

// Init registers registry metrics and, when db is set, DB-backed gauges.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		mutationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "record_mutations_total",
				Help: "Total fuel record mutations by operation and result",
			},
			[]string{"op", "result"},
		)
		mutationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "record_mutation_latency_seconds",
				Help:    "Fuel record mutation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op", "result"},
		)

		queryTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dashboard_queries_total",
				Help: "Total dashboard view computations by result",
			},
			[]string{"result"},
		)
		queryLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "dashboard_query_latency_seconds",
				Help:    "Dashboard view computation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		snapshotRecords = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "snapshot_records",
			Help: "Records in the last computed snapshot",
		})
		streamClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "stream_clients",
			Help: "Connected snapshot stream clients",
		})

		prometheus.MustRegister(
			mutationTotal,
			mutationLatency,
			queryTotal,
			queryLatency,
			exportTotal,
			exportLatency,
			snapshotRecords,
			streamClients,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveMutation records a create/update/delete latency and result.
func ObserveMutation(op, result string, duration time.Duration) {
	if op == "" {
		op = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if mutationTotal != nil {
		mutationTotal.WithLabelValues(op, result).Inc()
	}
	if mutationLatency != nil {
		mutationLatency.WithLabelValues(op, result).Observe(duration.Seconds())
	}
}

// ObserveQuery records a dashboard view computation.
func ObserveQuery(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if queryTotal != nil {
		queryTotal.WithLabelValues(result).Inc()
	}
	if queryLatency != nil {
		queryLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// SetSnapshotRecords sets the size of the last snapshot.
func SetSnapshotRecords(n int) {
	if snapshotRecords != nil {
		snapshotRecords.Set(float64(n))
	}
}

// AddStreamClients adjusts the connected stream client gauge.
func AddStreamClients(delta int) {
	if streamClients != nil {
		streamClients.Add(float64(delta))
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
