// Package channel drives per-metric update sources (initial fetch, push
// subscription and fallback polling) into the state store.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/neox5/vitalsync/internal/auth"
	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/provider"
	"github.com/neox5/vitalsync/internal/sample"
	"github.com/neox5/vitalsync/internal/state"
	"golang.org/x/sync/errgroup"
)

// DefaultPollInterval is the fallback poll period for polled metrics.
const DefaultPollInterval = 10 * time.Second

// ErrClosed is returned when activating a metric on a closed manager.
var ErrClosed = errors.New("channel manager closed")

// Trigger names the event that caused a fetch.
type Trigger int

const (
	TriggerInitial Trigger = iota
	TriggerSubscription
	TriggerPoll
)

func (t Trigger) String() string {
	switch t {
	case TriggerInitial:
		return "initial"
	case TriggerSubscription:
		return "subscription"
	case TriggerPoll:
		return "poll"
	default:
		return fmt.Sprintf("Trigger(%d)", int(t))
	}
}

// Authorizer resolves authorization for a scope set.
type Authorizer interface {
	EnsureAuthorized(ctx context.Context, scopes []metric.Scope) (auth.State, error)
}

// Fetcher reads the latest normalized sample for a metric; nil means no data.
type Fetcher interface {
	Fetch(ctx context.Context, d metric.Descriptor) (*sample.Sample, error)
}

// Options configures a Manager.
type Options struct {
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Stats are cumulative manager counters.
type Stats struct {
	Activations   int64
	Fetches       int64
	FetchFailures int64
	Writes        int64
	Discarded     int64
}

// Manager owns the channel sets of all activated metrics and is the only
// writer of the state store. Writes for a metric are applied in the order
// their fetches complete.
type Manager struct {
	registry     *metric.Registry
	gate         Authorizer
	fetcher      Fetcher
	subscriber   provider.Subscriber
	store        *state.Store
	scheduler    gocron.Scheduler
	pollInterval time.Duration
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	sets   map[metric.Key]*channelSet
	closed bool

	activations atomic.Int64
	fetches     atomic.Int64
	failures    atomic.Int64
	writes      atomic.Int64
	discarded   atomic.Int64
}

// New creates a manager and starts its poll scheduler.
func New(
	registry *metric.Registry,
	gate Authorizer,
	fetcher Fetcher,
	subscriber provider.Subscriber,
	store *state.Store,
	opts Options,
) (*Manager, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create poll scheduler: %w", err)
	}
	scheduler.Start()

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		registry:     registry,
		gate:         gate,
		fetcher:      fetcher,
		subscriber:   subscriber,
		store:        store,
		scheduler:    scheduler,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
		ctx:          ctx,
		cancel:       cancel,
		sets:         make(map[metric.Key]*channelSet),
	}, nil
}

// ActivateAll activates every registered metric concurrently and waits for
// all activations to finish.
func (m *Manager) ActivateAll(ctx context.Context) error {
	var g errgroup.Group
	for _, key := range m.registry.Keys() {
		g.Go(func() error {
			return m.Activate(ctx, key)
		})
	}
	return g.Wait()
}

// Activate authorizes key, writes an initial fetch, subscribes to changes and
// arms the fallback poll when the metric asks for it. Activating an active
// metric is a no-op. Unknown keys panic.
//
// Activate returns an error only when ctx ends before authorization resolves
// or the manager is closed; the metric can then be activated again.
func (m *Manager) Activate(ctx context.Context, key metric.Key) error {
	desc := m.registry.DescriptorOf(key)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if _, active := m.sets[key]; active {
		m.mu.Unlock()
		return nil
	}
	cs := newChannelSet(m.ctx, desc)
	m.sets[key] = cs
	m.mu.Unlock()

	m.activations.Add(1)
	logger := m.logger.With("metric", key)

	authState, err := m.gate.EnsureAuthorized(ctx, desc.Scopes)
	switch {
	case errors.Is(err, auth.ErrUnavailable):
		m.write(cs, TriggerInitial, state.Entry{Status: state.StatusUnavailable})
		return nil
	case err != nil && ctx.Err() != nil:
		m.forget(cs)
		return fmt.Errorf("failed to activate %s: %w", key, err)
	case err != nil:
		logger.Warn("authorization failed", "error", err)
		m.write(cs, TriggerInitial, state.Entry{Status: state.StatusUnauthorized})
		return nil
	case authState != auth.Granted:
		logger.Info("metric unauthorized", "state", authState)
		m.write(cs, TriggerInitial, state.Entry{Status: state.StatusUnauthorized})
		return nil
	}

	m.refresh(cs, TriggerInitial)

	unsubscribe, err := m.subscriber.SubscribeToChanges(cs.ctx, desc.Identifiers, func() {
		go m.refresh(cs, TriggerSubscription)
	})
	if err != nil {
		logger.Warn("failed to subscribe to changes", "error", err)
	} else if !cs.attachSubscription(unsubscribe) {
		unsubscribe()
	}

	if desc.Poll {
		if err := m.armPoll(cs); err != nil {
			logger.Warn("failed to arm poll timer", "error", err)
		}
	}

	subscribed, polling := cs.handles()
	logger.Info("metric activated", "subscribed", subscribed, "polling", polling)
	return nil
}

// armPoll schedules the fixed-interval fallback fetch for cs.
func (m *Manager) armPoll(cs *channelSet) error {
	job, err := m.scheduler.NewJob(
		gocron.DurationJob(m.pollInterval),
		gocron.NewTask(func() {
			m.refresh(cs, TriggerPoll)
		}),
		gocron.WithName("poll:"+string(cs.desc.Key)),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule poll for %s: %w", cs.desc.Key, err)
	}

	if !cs.attachPoll(job.ID()) {
		if err := m.scheduler.RemoveJob(job.ID()); err != nil {
			m.logger.Debug("failed to remove unused poll job", "metric", cs.desc.Key, "error", err)
		}
	}
	return nil
}

// refresh fetches the metric and writes the result unless cs was released.
func (m *Manager) refresh(cs *channelSet, trigger Trigger) {
	if cs.isReleased() {
		return
	}

	key := cs.desc.Key
	m.fetches.Add(1)
	s, err := m.fetcher.Fetch(cs.ctx, cs.desc)

	if cs.isReleased() {
		m.discarded.Add(1)
		m.logger.Debug("discarded fetch for released metric", "metric", key, "trigger", trigger)
		return
	}

	if err != nil {
		m.failures.Add(1)
		m.logger.Warn("fetch failed", "metric", key, "trigger", trigger, "error", err)

		// The previous value stays; only a metric that never resolved moves
		// out of loading.
		m.writeFunc(cs, trigger, func() (state.Entry, bool) {
			if m.store.Get(key).Status != state.StatusLoading {
				return state.Entry{}, false
			}
			return state.Entry{Status: state.StatusError, Err: err}, true
		})
		return
	}

	entry := state.NoData()
	if s != nil {
		entry = state.Ready(s)
	}
	m.write(cs, trigger, entry)
}

func (m *Manager) write(cs *channelSet, trigger Trigger, e state.Entry) {
	m.writeFunc(cs, trigger, func() (state.Entry, bool) { return e, true })
}

// writeFunc applies the entry produced by next while cs is still active.
func (m *Manager) writeFunc(cs *channelSet, trigger Trigger, next func() (state.Entry, bool)) {
	ok := cs.guard(func() {
		e, apply := next()
		if !apply {
			return
		}
		written := m.store.Set(cs.desc.Key, e)
		m.writes.Add(1)
		m.logger.Debug("store updated",
			"metric", cs.desc.Key,
			"trigger", trigger,
			"status", written.Status,
			"version", written.Version)
	})
	if !ok {
		m.discarded.Add(1)
		m.logger.Debug("discarded write for released metric", "metric", cs.desc.Key, "trigger", trigger)
	}
}

// Release tears down the channels of key. In-flight fetches complete without
// effect. Releasing an inactive metric is a no-op.
func (m *Manager) Release(key metric.Key) {
	m.mu.Lock()
	cs, ok := m.sets[key]
	if ok {
		delete(m.sets, key)
	}
	m.mu.Unlock()

	if ok {
		m.teardown(cs)
		m.logger.Info("metric released", "metric", key)
	}
}

// forget drops cs after an aborted activation.
func (m *Manager) forget(cs *channelSet) {
	m.mu.Lock()
	if m.sets[cs.desc.Key] == cs {
		delete(m.sets, cs.desc.Key)
	}
	m.mu.Unlock()
	m.teardown(cs)
}

func (m *Manager) teardown(cs *channelSet) {
	unsubscribe, pollJob, polling := cs.release()
	if unsubscribe != nil {
		unsubscribe()
	}
	if polling {
		if err := m.scheduler.RemoveJob(pollJob); err != nil {
			m.logger.Debug("failed to remove poll job", "metric", cs.desc.Key, "error", err)
		}
	}
}

// Close releases every metric and stops the poll scheduler. Later
// activations fail with ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sets := m.sets
	m.sets = make(map[metric.Key]*channelSet)
	m.mu.Unlock()

	for _, cs := range sets {
		m.teardown(cs)
	}
	m.cancel()

	if err := m.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop poll scheduler: %w", err)
	}
	return nil
}

// Channels reports whether key currently holds a subscription and a poll timer.
func (m *Manager) Channels(key metric.Key) (subscribed, polling bool) {
	m.mu.Lock()
	cs, ok := m.sets[key]
	m.mu.Unlock()
	if !ok {
		return false, false
	}
	return cs.handles()
}

// PollTimers returns the number of scheduled poll timers.
func (m *Manager) PollTimers() int {
	return len(m.scheduler.Jobs())
}

// Stats returns a snapshot of the manager counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Activations:   m.activations.Load(),
		Fetches:       m.fetches.Load(),
		FetchFailures: m.failures.Load(),
		Writes:        m.writes.Load(),
		Discarded:     m.discarded.Load(),
	}
}
