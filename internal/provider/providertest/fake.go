// Package providertest provides a controllable in-memory provider for tests.
package providertest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/provider"
)

// Fake implements provider.Provider with scripted behavior. The zero value
// is not usable; call New.
type Fake struct {
	mu sync.Mutex

	available   bool
	denied      map[metric.Scope]bool
	authErr     error
	authGate    chan struct{}
	authCalls   int
	availCalls  int
	quantities  map[string]*provider.QuantitySample
	categories  map[string]*provider.CategorySample
	fetchErrs   map[string]error
	fetchGates  map[string]chan struct{}
	fetchCalls  map[string]int
	subscribers map[int]subscriber
	nextSubID   int
}

type subscriber struct {
	identifiers []string
	onChange    func()
}

var _ provider.Provider = (*Fake)(nil)

// New creates an available provider that grants every scope and holds no samples.
func New() *Fake {
	return &Fake{
		available:   true,
		denied:      make(map[metric.Scope]bool),
		quantities:  make(map[string]*provider.QuantitySample),
		categories:  make(map[string]*provider.CategorySample),
		fetchErrs:   make(map[string]error),
		fetchGates:  make(map[string]chan struct{}),
		fetchCalls:  make(map[string]int),
		subscribers: make(map[int]subscriber),
	}
}

// SetAvailable controls the result of IsDataAvailable.
func (f *Fake) SetAvailable(available bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available = available
}

// Deny makes authorization requests including any of scopes fail.
func (f *Fake) Deny(scopes ...metric.Scope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range scopes {
		f.denied[s] = true
	}
}

// FailAuthorization makes RequestAuthorization return err.
func (f *Fake) FailAuthorization(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authErr = err
}

// HoldAuthorization blocks RequestAuthorization until the returned release
// function is called.
func (f *Fake) HoldAuthorization() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.authGate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// SetQuantity stores a quantity sample for identifier observed now.
func (f *Fake) SetQuantity(identifier string, quantity float64) {
	now := time.Now()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quantities[identifier] = &provider.QuantitySample{
		Identifier: identifier,
		Quantity:   quantity,
		StartDate:  now,
		EndDate:    now,
	}
}

// SetCategory stores a category sample for identifier observed now.
func (f *Fake) SetCategory(identifier string, value int) {
	now := time.Now()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories[identifier] = &provider.CategorySample{
		Identifier: identifier,
		Value:      value,
		StartDate:  now,
		EndDate:    now,
	}
}

// Clear removes any sample stored for identifier.
func (f *Fake) Clear(identifier string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.quantities, identifier)
	delete(f.categories, identifier)
}

// FailFetch makes lookups for identifier return err; nil restores normal behavior.
func (f *Fake) FailFetch(identifier string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fetchErrs, identifier)
		return
	}
	f.fetchErrs[identifier] = err
}

// HoldFetch blocks lookups for identifier until the returned release function
// is called. The sample is read after release.
func (f *Fake) HoldFetch(identifier string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.fetchGates[identifier] = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.fetchGates[identifier] == gate {
				delete(f.fetchGates, identifier)
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Notify invokes every subscription covering identifier.
func (f *Fake) Notify(identifier string) {
	f.mu.Lock()
	var callbacks []func()
	for _, id := range sortedIDs(f.subscribers) {
		sub := f.subscribers[id]
		if slices.Contains(sub.identifiers, identifier) {
			callbacks = append(callbacks, sub.onChange)
		}
	}
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

// AuthorizationRequests returns how many times RequestAuthorization was called.
func (f *Fake) AuthorizationRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls
}

// AvailabilityChecks returns how many times IsDataAvailable was called.
func (f *Fake) AvailabilityChecks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availCalls
}

// Fetches returns how many sample lookups were issued for identifier.
func (f *Fake) Fetches(identifier string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls[identifier]
}

// Subscriptions returns the number of active subscriptions covering identifier.
func (f *Fake) Subscriptions(identifier string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, sub := range f.subscribers {
		if slices.Contains(sub.identifiers, identifier) {
			n++
		}
	}
	return n
}

// IsDataAvailable implements provider.Provider.
func (f *Fake) IsDataAvailable(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availCalls++
	return f.available, nil
}

// RequestAuthorization implements provider.Provider.
func (f *Fake) RequestAuthorization(ctx context.Context, scopes []metric.Scope) (bool, error) {
	f.mu.Lock()
	f.authCalls++
	gate := f.authGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authErr != nil {
		return false, f.authErr
	}
	for _, s := range scopes {
		if f.denied[s] {
			return false, nil
		}
	}
	return true, nil
}

// MostRecentQuantitySample implements provider.Provider.
func (f *Fake) MostRecentQuantitySample(ctx context.Context, identifier string) (*provider.QuantitySample, error) {
	f.enterFetch(identifier)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fetchErrs[identifier]; err != nil {
		return nil, err
	}
	if s, ok := f.quantities[identifier]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, nil
}

// MostRecentCategorySample implements provider.Provider.
func (f *Fake) MostRecentCategorySample(ctx context.Context, identifier string) (*provider.CategorySample, error) {
	f.enterFetch(identifier)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fetchErrs[identifier]; err != nil {
		return nil, err
	}
	if s, ok := f.categories[identifier]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, nil
}

// SubscribeToChanges implements provider.Subscriber.
func (f *Fake) SubscribeToChanges(ctx context.Context, identifiers []string, onChange func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextSubID
	f.nextSubID++
	f.subscribers[id] = subscriber{
		identifiers: slices.Clone(identifiers),
		onChange:    onChange,
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subscribers, id)
		})
	}, nil
}

// enterFetch counts the call and waits on any hold for identifier. Held
// lookups ignore ctx, like provider calls that cannot be cancelled.
func (f *Fake) enterFetch(identifier string) {
	f.mu.Lock()
	f.fetchCalls[identifier]++
	gate := f.fetchGates[identifier]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
}

func sortedIDs(m map[int]subscriber) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
