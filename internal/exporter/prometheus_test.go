package exporter

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/neox5/vitalsync/internal/channel"
	"github.com/neox5/vitalsync/internal/config"
	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/sample"
	"github.com/neox5/vitalsync/internal/state"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorValues(t *testing.T) {
	r := testRegistry()
	c := newCollector(r, testStore(r), nil, config.NamingFormatNative)

	expected := `
# HELP vitalsync_pulse Pulse rate
# TYPE vitalsync_pulse gauge
vitalsync_pulse{unit="count/min"} 72
# HELP vitalsync_bp Blood pressure
# TYPE vitalsync_bp gauge
vitalsync_bp{component="diastolic",unit="mmHg"} 80
vitalsync_bp{component="systolic",unit="mmHg"} 120
# HELP vitalsync_metric_observed_timestamp_seconds Observation time of the current sample per metric
# TYPE vitalsync_metric_observed_timestamp_seconds gauge
vitalsync_metric_observed_timestamp_seconds{metric="bp"} 1.7e+09
vitalsync_metric_observed_timestamp_seconds{metric="pulse"} 1.7e+09
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"vitalsync_pulse", "vitalsync_bp", "vitalsync_stage", observedMetricName)
	require.NoError(t, err)
}

func TestCollectorStatus(t *testing.T) {
	r := metric.MustNew(metric.Descriptor{
		Key:         "pulse",
		Identifiers: []string{"p"},
		Scopes:      []metric.Scope{"p"},
		Shape:       metric.ShapeScalar,
		Description: "Pulse rate",
	})
	store := state.New(r.Keys())
	store.Set("pulse", state.Entry{Status: state.StatusUnauthorized})

	c := newCollector(r, store, nil, config.NamingFormatNative)

	expected := `
# HELP vitalsync_metric_status Synchronization status per metric (1 for the current status)
# TYPE vitalsync_metric_status gauge
vitalsync_metric_status{metric="pulse",status="error"} 0
vitalsync_metric_status{metric="pulse",status="loading"} 0
vitalsync_metric_status{metric="pulse",status="no_data"} 0
vitalsync_metric_status{metric="pulse",status="ready"} 0
vitalsync_metric_status{metric="pulse",status="unauthorized"} 1
vitalsync_metric_status{metric="pulse",status="unavailable"} 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), statusMetricName))
	require.Equal(t, 0, testutil.CollectAndCount(c, "vitalsync_pulse"))
}

func TestCollectorCategorical(t *testing.T) {
	r := testRegistry()
	store := testStore(r)
	store.Set("stage", state.Ready(sample.New("stage", sample.Categorical(1, "b"), observedAt)))

	c := newCollector(r, store, nil, config.NamingFormatNative)

	expected := `
# HELP vitalsync_stage Stage
# TYPE vitalsync_stage gauge
vitalsync_stage 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "vitalsync_stage"))
}

func TestCollectorInternalCounters(t *testing.T) {
	r := testRegistry()
	stats := fixedStats(channel.Stats{Activations: 3, Fetches: 9, FetchFailures: 1, Writes: 8, Discarded: 2})
	c := newCollector(r, testStore(r), stats, config.NamingFormatNative)

	expected := `
# HELP vitalsync_sync_fetches_total Total number of sample fetches
# TYPE vitalsync_sync_fetches_total counter
vitalsync_sync_fetches_total 9
# HELP vitalsync_sync_discarded_total Total number of results discarded after release
# TYPE vitalsync_sync_discarded_total counter
vitalsync_sync_discarded_total 2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"vitalsync_sync_fetches_total", "vitalsync_sync_discarded_total"))
	require.Equal(t, len(internalCounters), testutil.CollectAndCount(c,
		"vitalsync_sync_activations_total",
		"vitalsync_sync_fetches_total",
		"vitalsync_sync_fetch_failures_total",
		"vitalsync_sync_writes_total",
		"vitalsync_sync_discarded_total"))
}

func TestPrometheusExporterHandler(t *testing.T) {
	r := testRegistry()
	e := NewPrometheusExporter(
		&config.PrometheusExportConfig{Enabled: true, Port: 0, Path: "/metrics"},
		config.InternalMetricsConfig{Enabled: true, Format: config.NamingFormatNative},
		r,
		testStore(r),
		fixedStats(channel.Stats{Fetches: 4}),
	)

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `vitalsync_pulse{unit="count/min"} 72`)
	require.Contains(t, body, "vitalsync_sync_fetches_total 4")
	require.Contains(t, body, "promhttp_metric_handler_requests_total")

	rec = httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
