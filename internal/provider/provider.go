// Package provider declares the health-data provider capability the
// synchronization core consumes.
package provider

import (
	"context"
	"time"

	"github.com/neox5/vitalsync/internal/metric"
)

// QuantitySample is a raw numeric provider observation.
type QuantitySample struct {
	Identifier string
	Quantity   float64
	Unit       string
	StartDate  time.Time
	EndDate    time.Time
}

// CategorySample is a raw categorical provider observation.
type CategorySample struct {
	Identifier string
	Value      int
	StartDate  time.Time
	EndDate    time.Time
}

// Provider is the external health-data system. Sample lookups return a nil
// sample when none exists; errors are reserved for faults.
type Provider interface {
	IsDataAvailable(ctx context.Context) (bool, error)
	RequestAuthorization(ctx context.Context, scopes []metric.Scope) (bool, error)
	MostRecentQuantitySample(ctx context.Context, identifier string) (*QuantitySample, error)
	MostRecentCategorySample(ctx context.Context, identifier string) (*CategorySample, error)
	Subscriber
}

// Subscriber delivers change notifications for provider identifiers.
type Subscriber interface {
	// SubscribeToChanges calls onChange whenever data for any of the
	// identifiers changes. The returned function cancels the subscription.
	SubscribeToChanges(ctx context.Context, identifiers []string, onChange func()) (unsubscribe func(), err error)
}
