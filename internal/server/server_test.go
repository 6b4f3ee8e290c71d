package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/neox5/vitalsync/internal/display"
	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/sample"
	"github.com/neox5/vitalsync/internal/state"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *state.Store) {
	t.Helper()
	registry := metric.Default()
	store := state.New(registry.Keys())
	ts := httptest.NewServer(New(0, registry, store).Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestTextScreen(t *testing.T) {
	ts, store := newTestServer(t)
	store.Set(metric.StepCount, state.Ready(sample.New(metric.StepCount, sample.Scalar(5234), time.Now())))

	resp, body := get(t, ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "Steps: 5234\n")
	require.Contains(t, string(body), "Heart Rate: Loading...\n")
}

func TestStatusJSON(t *testing.T) {
	ts, store := newTestServer(t)
	store.Set(metric.Sleep, state.NoData())

	resp, body := get(t, ts.URL+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var views []map[string]any
	require.NoError(t, json.Unmarshal(body, &views))
	require.Len(t, views, 6)
	require.Equal(t, "step_count", views[0]["metric"])
	require.Equal(t, "loading", views[0]["status"])
	require.Equal(t, "no_data", views[1]["status"])
	require.Equal(t, "No Data", views[1]["text"])
}

func TestMetricStatus(t *testing.T) {
	ts, store := newTestServer(t)
	store.Set(metric.BloodPressure, state.Ready(sample.New(metric.BloodPressure, sample.Paired(118, 76), time.Now())))

	resp, body := get(t, ts.URL+"/status/blood_pressure")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view display.View
	require.NoError(t, json.Unmarshal(body, &view))
	require.Equal(t, metric.BloodPressure, view.Metric)
	require.Equal(t, "118/76", view.Text)
	require.NotNil(t, view.ObservedAt)

	resp, _ = get(t, ts.URL+"/status/weight")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
