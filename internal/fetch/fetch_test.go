package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/provider/providertest"
	"github.com/neox5/vitalsync/internal/sample"
	"github.com/stretchr/testify/require"
)

func TestFetchScalar(t *testing.T) {
	p := providertest.New()
	f := New(p, nil)
	d := metric.Default().DescriptorOf(metric.StepCount)
	ctx := context.Background()

	s, err := f.Fetch(ctx, d)
	require.NoError(t, err)
	require.Nil(t, s, "absent sample is no data")

	p.SetQuantity(metric.IdentifierStepCount, 5234)
	s, err = f.Fetch(ctx, d)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, metric.StepCount, s.Metric)
	require.Equal(t, sample.Scalar(5234), s.Value)
	require.False(t, s.ObservedAt.IsZero())
}

func TestFetchCategorical(t *testing.T) {
	p := providertest.New()
	f := New(p, nil)
	d := metric.Default().DescriptorOf(metric.Sleep)
	ctx := context.Background()

	s, err := f.Fetch(ctx, d)
	require.NoError(t, err)
	require.Nil(t, s)

	p.SetCategory(metric.IdentifierSleepAnalysis, 4)
	s, err = f.Fetch(ctx, d)
	require.NoError(t, err)
	require.Equal(t, sample.Categorical(4, "asleepDeep"), s.Value)
}

func TestFetchPaired(t *testing.T) {
	d := metric.Default().DescriptorOf(metric.BloodPressure)
	boom := errors.New("boom")

	tests := []struct {
		name      string
		setup     func(p *providertest.Fake)
		want      *sample.Value
		wantFault bool
	}{
		{
			name: "both legs present",
			setup: func(p *providertest.Fake) {
				p.SetQuantity(metric.IdentifierBloodPressureSystolic, 120)
				p.SetQuantity(metric.IdentifierBloodPressureDiastolic, 80)
			},
			want: &sample.Value{Shape: metric.ShapePaired, First: 120, Second: 80},
		},
		{
			name: "diastolic missing",
			setup: func(p *providertest.Fake) {
				p.SetQuantity(metric.IdentifierBloodPressureSystolic, 120)
			},
		},
		{
			name: "systolic missing",
			setup: func(p *providertest.Fake) {
				p.SetQuantity(metric.IdentifierBloodPressureDiastolic, 80)
			},
		},
		{
			name: "one leg fails",
			setup: func(p *providertest.Fake) {
				p.SetQuantity(metric.IdentifierBloodPressureSystolic, 120)
				p.SetQuantity(metric.IdentifierBloodPressureDiastolic, 80)
				p.FailFetch(metric.IdentifierBloodPressureDiastolic, boom)
			},
		},
		{
			name: "both legs fail",
			setup: func(p *providertest.Fake) {
				p.FailFetch(metric.IdentifierBloodPressureSystolic, boom)
				p.FailFetch(metric.IdentifierBloodPressureDiastolic, boom)
			},
			wantFault: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := providertest.New()
			tt.setup(p)

			s, err := New(p, nil).Fetch(context.Background(), d)
			if tt.wantFault {
				require.ErrorIs(t, err, ErrFetchFailed)
				require.ErrorIs(t, err, boom)
				require.Nil(t, s)
				return
			}

			require.NoError(t, err)
			if tt.want == nil {
				require.Nil(t, s)
				return
			}
			require.NotNil(t, s)
			require.Equal(t, *tt.want, s.Value)
			require.Equal(t, "120/80", s.Value.String())
		})
	}
}

func TestFetchFaultIsDistinctFromNoData(t *testing.T) {
	p := providertest.New()
	p.FailFetch(metric.IdentifierHeartRate, errors.New("provider offline"))
	d := metric.Default().DescriptorOf(metric.HeartRate)

	s, err := New(p, nil).Fetch(context.Background(), d)
	require.Nil(t, s)
	require.ErrorIs(t, err, ErrFetchFailed)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, metric.HeartRate, fetchErr.Metric)
	require.Equal(t, metric.IdentifierHeartRate, fetchErr.Identifier)
}
