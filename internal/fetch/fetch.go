// Package fetch turns raw provider samples into normalized metric samples.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/provider"
	"github.com/neox5/vitalsync/internal/sample"
	"golang.org/x/sync/errgroup"
)

// ErrFetchFailed marks a provider fault, as opposed to an absent sample.
var ErrFetchFailed = errors.New("fetch failed")

// Error describes a failed provider lookup.
type Error struct {
	Metric     metric.Key
	Identifier string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to fetch %s (%s): %v", e.Metric, e.Identifier, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}

// SampleSource is the subset of the provider the fetcher reads from.
type SampleSource interface {
	MostRecentQuantitySample(ctx context.Context, identifier string) (*provider.QuantitySample, error)
	MostRecentCategorySample(ctx context.Context, identifier string) (*provider.CategorySample, error)
}

// Fetcher reads the most recent sample for a metric. It never retries.
type Fetcher struct {
	source SampleSource
	logger *slog.Logger
}

// New creates a fetcher. A nil logger uses slog.Default().
func New(source SampleSource, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{source: source, logger: logger}
}

// Fetch returns the latest normalized sample for d, or nil when the provider
// holds no data. Provider faults are returned as *Error.
func (f *Fetcher) Fetch(ctx context.Context, d metric.Descriptor) (*sample.Sample, error) {
	switch d.Shape {
	case metric.ShapeScalar:
		return f.fetchScalar(ctx, d)
	case metric.ShapePaired:
		return f.fetchPaired(ctx, d)
	case metric.ShapeCategorical:
		return f.fetchCategorical(ctx, d)
	default:
		return nil, fmt.Errorf("metric %q: unsupported shape %q", d.Key, d.Shape)
	}
}

func (f *Fetcher) fetchScalar(ctx context.Context, d metric.Descriptor) (*sample.Sample, error) {
	q, err := f.source.MostRecentQuantitySample(ctx, d.Identifier())
	if err != nil {
		return nil, &Error{Metric: d.Key, Identifier: d.Identifier(), Err: err}
	}
	if q == nil {
		return nil, nil
	}
	return sample.New(d.Key, sample.Scalar(q.Quantity), q.EndDate), nil
}

func (f *Fetcher) fetchCategorical(ctx context.Context, d metric.Descriptor) (*sample.Sample, error) {
	c, err := f.source.MostRecentCategorySample(ctx, d.Identifier())
	if err != nil {
		return nil, &Error{Metric: d.Key, Identifier: d.Identifier(), Err: err}
	}
	if c == nil {
		return nil, nil
	}
	return sample.New(d.Key, sample.Categorical(c.Value, d.CategoryTag(c.Value)), c.EndDate), nil
}

// fetchPaired reads both legs independently and joins them. The two reads
// are not atomic, so a pair may combine samples from different moments.
// A missing or failed leg yields no data; only when both legs fail is the
// fetch reported as failed.
func (f *Fetcher) fetchPaired(ctx context.Context, d metric.Descriptor) (*sample.Sample, error) {
	var (
		legs [2]*provider.QuantitySample
		errs [2]error
		g    errgroup.Group
	)

	for i, id := range d.Identifiers {
		g.Go(func() error {
			q, err := f.source.MostRecentQuantitySample(ctx, id)
			if err != nil {
				errs[i] = &Error{Metric: d.Key, Identifier: id, Err: err}
				return nil
			}
			legs[i] = q
			return nil
		})
	}
	_ = g.Wait()

	if errs[0] != nil && errs[1] != nil {
		return nil, errors.Join(errs[0], errs[1])
	}
	if errs[0] != nil || errs[1] != nil {
		f.logger.Warn("paired fetch lost one leg, reporting no data",
			"metric", d.Key,
			"error", errors.Join(errs[0], errs[1]))
		return nil, nil
	}
	if legs[0] == nil || legs[1] == nil {
		return nil, nil
	}

	observedAt := legs[0].EndDate
	if legs[1].EndDate.After(observedAt) {
		observedAt = legs[1].EndDate
	}
	return sample.New(d.Key, sample.Paired(legs[0].Quantity, legs[1].Quantity), observedAt), nil
}
