// Package simulator implements a health-data provider backed by simv
// value generators, so the sync core can run without a device.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/neox5/simv/clock"
	"github.com/neox5/simv/source"
	"github.com/neox5/simv/transform"
	"github.com/neox5/simv/value"
	"github.com/neox5/vitalsync/internal/config"
	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/provider"
)

// ErrStopped is returned by lookups after Stop.
var ErrStopped = errors.New("simulator stopped")

// Simulator manages simv components and serves their values as provider samples.
type Simulator struct {
	clock          clock.Clock
	values         map[string]*simulated
	available      bool
	denied         map[metric.Scope]bool
	notifyInterval time.Duration
	logger         *slog.Logger

	mu          sync.Mutex
	subscribers map[int]subscription
	nextID      int
	stopped     bool

	done chan struct{}
	wg   sync.WaitGroup
}

type simulated struct {
	value  value.Value[int]
	scale  float64
	unit   string
	absent bool

	// guarded by Simulator.mu
	last      float64
	changedAt time.Time
	notified  float64
}

type subscription struct {
	identifiers []string
	onChange    func()
}

var _ provider.Provider = (*Simulator)(nil)

// New creates a simulator from configuration. Units come from the registry
// descriptors that reference each identifier.
func New(cfg *config.SimulatorConfig, registry *metric.Registry, logger *slog.Logger) (*Simulator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NotifyInterval <= 0 {
		return nil, fmt.Errorf("invalid notify interval: %s", cfg.NotifyInterval)
	}

	units := make(map[string]string)
	for _, d := range registry.Metrics() {
		for _, id := range d.Identifiers {
			units[id] = d.Unit
		}
	}

	clk := clock.NewPeriodicClock(cfg.Tick)
	now := time.Now()

	values := make(map[string]*simulated, len(cfg.Samples))
	for id, s := range cfg.Samples {
		src := source.NewRandomIntSource(clk, s.Min, s.Max)

		var transforms []transform.Transformation[int]
		if s.Accumulate {
			transforms = append(transforms, transform.NewAccumulate[int]())
		}

		values[id] = &simulated{
			value:     value.New(src, transforms...),
			scale:     s.Scale,
			unit:      units[id],
			absent:    s.Absent,
			changedAt: now,
		}

		logger.Debug("registered simulated identifier",
			"identifier", id,
			"min", s.Min,
			"max", s.Max,
			"accumulate", s.Accumulate,
			"absent", s.Absent)
	}

	denied := make(map[metric.Scope]bool, len(cfg.Deny))
	for _, s := range cfg.Deny {
		denied[s] = true
	}

	return &Simulator{
		clock:          clk,
		values:         values,
		available:      cfg.Available,
		denied:         denied,
		notifyInterval: cfg.NotifyInterval,
		logger:         logger,
		subscribers:    make(map[int]subscription),
		done:           make(chan struct{}),
	}, nil
}

// Start begins value generation and change notification.
func (s *Simulator) Start() {
	s.mu.Lock()
	for _, v := range s.values {
		v.last = v.read()
		v.notified = v.last
	}
	s.mu.Unlock()

	s.clock.Start()
	s.wg.Go(s.notifyLoop)
	s.logger.Info("simulator started",
		"identifiers", len(s.values),
		"available", s.available,
		"notify_interval", s.notifyInterval)
}

// Stop halts value generation and waits for the notifier to exit.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
	s.clock.Stop()
}

// IsDataAvailable reports the configured availability.
func (s *Simulator) IsDataAvailable(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.available, nil
}

// RequestAuthorization grants scopes unless one of them is configured as denied.
func (s *Simulator) RequestAuthorization(ctx context.Context, scopes []metric.Scope) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for _, scope := range scopes {
		if s.denied[scope] {
			return false, nil
		}
	}
	return true, nil
}

// MostRecentQuantitySample returns the current simulated value of identifier.
func (s *Simulator) MostRecentQuantitySample(ctx context.Context, identifier string) (*provider.QuantitySample, error) {
	v, at, ok, err := s.lookup(ctx, identifier)
	if err != nil || !ok {
		return nil, err
	}
	return &provider.QuantitySample{
		Identifier: identifier,
		Quantity:   v.quantity,
		Unit:       v.unit,
		StartDate:  at,
		EndDate:    at,
	}, nil
}

// MostRecentCategorySample returns the current simulated value of identifier
// as a category code.
func (s *Simulator) MostRecentCategorySample(ctx context.Context, identifier string) (*provider.CategorySample, error) {
	v, at, ok, err := s.lookup(ctx, identifier)
	if err != nil || !ok {
		return nil, err
	}
	return &provider.CategorySample{
		Identifier: identifier,
		Value:      int(math.Round(v.quantity)),
		StartDate:  at,
		EndDate:    at,
	}, nil
}

type reading struct {
	quantity float64
	unit     string
}

func (s *Simulator) lookup(ctx context.Context, identifier string) (reading, time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return reading{}, time.Time{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return reading{}, time.Time{}, false, ErrStopped
	}

	v, ok := s.values[identifier]
	if !ok || v.absent {
		return reading{}, time.Time{}, false, nil
	}

	q := v.read()
	if q != v.last {
		v.last = q
		v.changedAt = time.Now()
	}
	return reading{quantity: q, unit: v.unit}, v.changedAt, true, nil
}

// SubscribeToChanges registers onChange for the identifiers. The callback
// runs on the notifier goroutine at most once per notify interval.
func (s *Simulator) SubscribeToChanges(ctx context.Context, identifiers []string, onChange func()) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, ErrStopped
	}

	id := s.nextID
	s.nextID++
	s.subscribers[id] = subscription{
		identifiers: slices.Clone(identifiers),
		onChange:    onChange,
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
		})
	}, nil
}

// Subscriptions returns the number of live subscriptions.
func (s *Simulator) Subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *Simulator) notifyLoop() {
	ticker := time.NewTicker(s.notifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			for _, fn := range s.changed() {
				fn()
			}
		}
	}
}

// changed records new values and returns the callbacks of subscribers
// whose identifiers moved since the previous check.
func (s *Simulator) changed() []func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	moved := make(map[string]bool)
	now := time.Now()
	for id, v := range s.values {
		if v.absent {
			continue
		}
		q := v.read()
		if q != v.last {
			v.last = q
			v.changedAt = now
		}
		if q != v.notified {
			v.notified = q
			moved[id] = true
		}
	}
	if len(moved) == 0 {
		return nil
	}

	var callbacks []func()
	for _, sub := range s.subscribers {
		if slices.ContainsFunc(sub.identifiers, func(id string) bool { return moved[id] }) {
			callbacks = append(callbacks, sub.onChange)
		}
	}

	s.logger.Debug("simulated values changed", "identifiers", len(moved), "notified", len(callbacks))
	return callbacks
}

// read scales the current value, rounded to two decimals.
func (v *simulated) read() float64 {
	return math.Round(float64(v.value.Value())*v.scale*100) / 100
}
