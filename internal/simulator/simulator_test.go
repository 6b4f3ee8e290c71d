package simulator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neox5/vitalsync/internal/config"
	"github.com/neox5/vitalsync/internal/metric"
	"github.com/stretchr/testify/require"
)

func newSimulator(t *testing.T, modify func(*config.SimulatorConfig)) *Simulator {
	t.Helper()

	cfg := &config.SimulatorConfig{
		Available:      true,
		Tick:           5 * time.Millisecond,
		NotifyInterval: 10 * time.Millisecond,
	}
	if modify != nil {
		modify(cfg)
	}
	require.NoError(t, cfg.Validate())

	sim, err := New(cfg, metric.Default(), nil)
	require.NoError(t, err)

	sim.Start()
	t.Cleanup(sim.Stop)
	return sim
}

func TestAvailability(t *testing.T) {
	ctx := context.Background()

	sim := newSimulator(t, nil)
	ok, err := sim.IsDataAvailable(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	off := newSimulator(t, func(c *config.SimulatorConfig) { c.Available = false })
	ok, err = off.IsDataAvailable(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAuthorization(t *testing.T) {
	ctx := context.Background()
	sim := newSimulator(t, func(c *config.SimulatorConfig) {
		c.Deny = []metric.Scope{metric.IdentifierBloodPressureDiastolic}
	})

	granted, err := sim.RequestAuthorization(ctx, []metric.Scope{metric.IdentifierHeartRate})
	require.NoError(t, err)
	require.True(t, granted)

	granted, err = sim.RequestAuthorization(ctx, []metric.Scope{
		metric.IdentifierBloodPressureSystolic,
		metric.IdentifierBloodPressureDiastolic,
	})
	require.NoError(t, err)
	require.False(t, granted)
}

func TestQuantitySampleInRange(t *testing.T) {
	ctx := context.Background()
	sim := newSimulator(t, func(c *config.SimulatorConfig) {
		c.Samples = map[string]config.SampleConfig{
			metric.IdentifierHeartRate: {Min: 60, Max: 70, Scale: 1},
		}
	})

	require.Eventually(t, func() bool {
		s, err := sim.MostRecentQuantitySample(ctx, metric.IdentifierHeartRate)
		require.NoError(t, err)
		require.NotNil(t, s)
		require.Equal(t, "count/min", s.Unit)
		return s.Quantity >= 60 && s.Quantity <= 70
	}, time.Second, 5*time.Millisecond)
}

func TestAccumulatedSampleNeverDecreases(t *testing.T) {
	ctx := context.Background()
	sim := newSimulator(t, nil)

	var last float64
	for range 10 {
		s, err := sim.MostRecentQuantitySample(ctx, metric.IdentifierStepCount)
		require.NoError(t, err)
		require.NotNil(t, s)
		require.GreaterOrEqual(t, s.Quantity, last)
		last = s.Quantity
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCategorySample(t *testing.T) {
	ctx := context.Background()
	sim := newSimulator(t, nil)

	s, err := sim.MostRecentCategorySample(ctx, metric.IdentifierSleepAnalysis)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.GreaterOrEqual(t, s.Value, 0)
	require.Less(t, s.Value, len(metric.SleepStages))
}

func TestAbsentAndUnknownIdentifiers(t *testing.T) {
	ctx := context.Background()
	sim := newSimulator(t, func(c *config.SimulatorConfig) {
		c.Samples = map[string]config.SampleConfig{
			metric.IdentifierOxygenSaturation: {Min: 94, Max: 100, Scale: 1, Absent: true},
		}
	})

	s, err := sim.MostRecentQuantitySample(ctx, metric.IdentifierOxygenSaturation)
	require.NoError(t, err)
	require.Nil(t, s)

	s, err = sim.MostRecentQuantitySample(ctx, "HKQuantityTypeIdentifierUnknown")
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestSubscribeNotifiesOnChange(t *testing.T) {
	sim := newSimulator(t, func(c *config.SimulatorConfig) {
		c.Samples = map[string]config.SampleConfig{
			metric.IdentifierStepCount: {Min: 1, Max: 1000, Scale: 1, Accumulate: true},
		}
	})

	var calls atomic.Int32
	unsubscribe, err := sim.SubscribeToChanges(context.Background(),
		[]string{metric.IdentifierStepCount}, func() { calls.Add(1) })
	require.NoError(t, err)
	require.Equal(t, 1, sim.Subscriptions())

	require.Eventually(t, func() bool { return calls.Load() > 0 }, time.Second, 5*time.Millisecond)

	unsubscribe()
	unsubscribe()
	require.Equal(t, 0, sim.Subscriptions())
}

func TestStopped(t *testing.T) {
	sim := newSimulator(t, nil)
	sim.Stop()

	_, err := sim.MostRecentQuantitySample(context.Background(), metric.IdentifierHeartRate)
	require.ErrorIs(t, err, ErrStopped)

	_, err = sim.SubscribeToChanges(context.Background(), []string{metric.IdentifierHeartRate}, func() {})
	require.ErrorIs(t, err, ErrStopped)
}

func TestCancelledContext(t *testing.T) {
	sim := newSimulator(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.IsDataAvailable(ctx)
	require.ErrorIs(t, err, context.Canceled)
	_, err = sim.MostRecentCategorySample(ctx, metric.IdentifierSleepAnalysis)
	require.ErrorIs(t, err, context.Canceled)
}
