package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CarrierErrors   *prometheus.CounterVec
	PointsSynced    *prometheus.GaugeVec
	SyncRuns        *prometheus.CounterVec
	StatusEvents    *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cdek_bridge_requests_total",
				Help: "Total number of requests by operation, carrier, and status",
			},
			[]string{"operation", "carrier", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cdek_bridge_request_duration_seconds",
				Help:    "Request duration in seconds by operation and carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "carrier"},
		),
		CarrierErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cdek_bridge_carrier_errors_total",
				Help: "Total carrier API errors by carrier and error kind",
			},
			[]string{"carrier", "kind"},
		),
		PointsSynced: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cdek_bridge_pickup_points_synced",
				Help: "Pickup points seen in the latest sync run, by carrier",
			},
			[]string{"carrier"},
		),
		SyncRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cdek_bridge_sync_runs_total",
				Help: "Sync job runs by job name and outcome",
			},
			[]string{"job", "outcome"},
		),
		StatusEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cdek_bridge_status_events_total",
				Help: "Published shipment status events by normalized status",
			},
			[]string{"status"},
		),
	}
}

// RecordRequest records a request metric.
func (m *Metrics) RecordRequest(operation, carrier, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, carrier, status).Inc()
	m.RequestDuration.WithLabelValues(operation, carrier).Observe(duration)
}

// RecordError records a carrier error metric.
func (m *Metrics) RecordError(carrier, kind string) {
	m.CarrierErrors.WithLabelValues(carrier, kind).Inc()
}

// RecordSyncRun records one sync job cycle.
func (m *Metrics) RecordSyncRun(job string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SyncRuns.WithLabelValues(job, outcome).Inc()
}
