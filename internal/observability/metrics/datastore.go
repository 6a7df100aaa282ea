// Package metrics provides Prometheus metrics for the inspection store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for datastore operations
type DatastoreMetrics struct {
	registry *prometheus.Registry

	dbOperationsTotal   *prometheus.CounterVec
	dbOperationDuration *prometheus.HistogramVec

	inspectionsSavedTotal *prometheus.CounterVec
	boxFullEventsTotal    *prometheus.CounterVec
	loginFailuresTotal    prometheus.Counter

	collectors []prometheus.Collector
}

// NewDatastoreMetrics creates and registers new datastore metrics
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{registry: registry}
	m.initMetrics()
	for _, c := range m.collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.dbOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aoi_db_operations_total",
			Help: "Total number of database operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	m.dbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aoi_db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	m.inspectionsSavedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aoi_inspections_saved_total",
			Help: "Total number of inspection records persisted by defect category",
		},
		[]string{"defect"},
	)

	m.boxFullEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aoi_box_full_events_total",
			Help: "Total number of routing attempts rejected because a box was full",
		},
		[]string{"box"},
	)

	m.loginFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aoi_login_failures_total",
			Help: "Total number of rejected login attempts",
		},
	)

	m.collectors = []prometheus.Collector{
		m.dbOperationsTotal,
		m.dbOperationDuration,
		m.inspectionsSavedTotal,
		m.boxFullEventsTotal,
		m.loginFailuresTotal,
	}
}

// RecordOperation records a completed database operation. Nil-safe so the
// store can run without metrics wired.
func (m *DatastoreMetrics) RecordOperation(operation, status string) {
	if m == nil {
		return
	}
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordOperationDuration records how long a database operation took.
func (m *DatastoreMetrics) RecordOperationDuration(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.dbOperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordInspectionSaved counts a persisted inspection record.
func (m *DatastoreMetrics) RecordInspectionSaved(defect string) {
	if m == nil {
		return
	}
	m.inspectionsSavedTotal.WithLabelValues(defect).Inc()
}

// RecordBoxFull counts a routing attempt rejected by a full box.
func (m *DatastoreMetrics) RecordBoxFull(boxID string) {
	if m == nil {
		return
	}
	m.boxFullEventsTotal.WithLabelValues(boxID).Inc()
}

// RecordLoginFailure counts a rejected login attempt.
func (m *DatastoreMetrics) RecordLoginFailure() {
	if m == nil {
		return
	}
	m.loginFailuresTotal.Inc()
}
