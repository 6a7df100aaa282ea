package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatastoreMetricsRegistersCollectors(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewDatastoreMetrics(registry)
	require.NoError(t, err)

	m.RecordOperation("save", "ok")
	m.RecordOperationDuration("save", 0.003)
	m.RecordInspectionSaved("solder-defect")
	m.RecordBoxFull("box-solder")
	m.RecordLoginFailure()

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["aoi_db_operations_total"])
	assert.True(t, names["aoi_inspections_saved_total"])
	assert.True(t, names["aoi_box_full_events_total"])
	assert.True(t, names["aoi_login_failures_total"])
}

func TestNilMetricsAreSafe(t *testing.T) {
	t.Parallel()

	var m *DatastoreMetrics
	assert.NotPanics(t, func() {
		m.RecordOperation("save", "ok")
		m.RecordOperationDuration("save", 0.1)
		m.RecordInspectionSaved("normal")
		m.RecordBoxFull("box-normal")
		m.RecordLoginFailure()
	})
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewDatastoreMetrics(registry)
	require.NoError(t, err)

	_, err = NewDatastoreMetrics(registry)
	assert.Error(t, err)
}
