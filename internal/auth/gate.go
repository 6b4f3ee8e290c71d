// Package auth gates metric access behind a single provider authorization
// request per scope set.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/neox5/vitalsync/internal/metric"
	"golang.org/x/sync/singleflight"
)

// State is the authorization state of a scope set.
type State int

const (
	Unrequested State = iota
	Pending
	Granted
	Denied
)

func (s State) String() string {
	switch s {
	case Unrequested:
		return "unrequested"
	case Pending:
		return "pending"
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrUnavailable is returned with Denied when the provider reports that
// health data is not available on this device.
var ErrUnavailable = errors.New("health data is not available")

// Authorizer is the provider capability the gate drives.
type Authorizer interface {
	IsDataAvailable(ctx context.Context) (bool, error)
	RequestAuthorization(ctx context.Context, scopes []metric.Scope) (bool, error)
}

const availabilityKey = "\x00availability"

type availability int

const (
	availabilityUnknown availability = iota
	availabilityYes
	availabilityNo
)

type outcome struct {
	state State
	err   error
}

// Gate requests authorization at most once per scope set and caches the
// outcome for the process lifetime. It is safe for concurrent use.
type Gate struct {
	provider Authorizer
	logger   *slog.Logger
	group    singleflight.Group

	mu        sync.Mutex
	available availability
	states    map[string]State
	settled   map[string]outcome
}

// NewGate creates a gate over provider. A nil logger uses slog.Default().
func NewGate(provider Authorizer, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		provider: provider,
		logger:   logger,
		states:   make(map[string]State),
		settled:  make(map[string]outcome),
	}
}

// EnsureAuthorized resolves authorization for scopes. The first caller issues
// the provider request; callers arriving while it is pending share its result,
// and later callers receive the cached outcome. Denied is terminal. When the
// provider is unavailable every scope set resolves to Denied with
// ErrUnavailable and no authorization request is made.
//
// Cancelling ctx abandons the wait only; the shared request keeps running.
func (g *Gate) EnsureAuthorized(ctx context.Context, scopes []metric.Scope) (State, error) {
	key := scopeKey(scopes)

	g.mu.Lock()
	if o, ok := g.settled[key]; ok {
		g.mu.Unlock()
		return o.state, o.err
	}
	if g.states[key] == Unrequested {
		g.states[key] = Pending
	}
	g.mu.Unlock()

	requestCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(key, func() (any, error) {
		return g.authorize(requestCtx, key, scopes), nil
	})

	select {
	case res := <-ch:
		o := res.Val.(outcome)
		return o.state, o.err
	case <-ctx.Done():
		return Pending, ctx.Err()
	}
}

// State reports the current authorization state of scopes.
func (g *Gate) State(scopes []metric.Scope) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.states[scopeKey(scopes)]
}

// authorize runs inside the singleflight for key.
func (g *Gate) authorize(ctx context.Context, key string, scopes []metric.Scope) outcome {
	// A flight may start just after another one settled the same key.
	g.mu.Lock()
	if o, ok := g.settled[key]; ok {
		g.mu.Unlock()
		return o
	}
	g.mu.Unlock()

	if !g.checkAvailable(ctx) {
		return g.settle(key, outcome{state: Denied, err: ErrUnavailable})
	}

	granted, err := g.provider.RequestAuthorization(ctx, scopes)
	if err != nil {
		g.logger.Warn("authorization request failed", "scopes", key, "error", err)
		return g.settle(key, outcome{
			state: Denied,
			err:   fmt.Errorf("failed to request authorization: %w", err),
		})
	}

	if !granted {
		g.logger.Info("authorization denied", "scopes", key)
		return g.settle(key, outcome{state: Denied})
	}

	g.logger.Info("authorization granted", "scopes", key)
	return g.settle(key, outcome{state: Granted})
}

// checkAvailable asks the provider once per process. A failed check counts
// as unavailable.
func (g *Gate) checkAvailable(ctx context.Context) bool {
	g.mu.Lock()
	known := g.available
	g.mu.Unlock()
	if known != availabilityUnknown {
		return known == availabilityYes
	}

	v, _, _ := g.group.Do(availabilityKey, func() (any, error) {
		g.mu.Lock()
		if g.available != availabilityUnknown {
			defer g.mu.Unlock()
			return g.available, nil
		}
		g.mu.Unlock()

		ok, err := g.provider.IsDataAvailable(ctx)
		result := availabilityYes
		switch {
		case err != nil:
			g.logger.Warn("health data availability check failed", "error", err)
			result = availabilityNo
		case !ok:
			g.logger.Warn("health data is not available")
			result = availabilityNo
		}

		g.mu.Lock()
		g.available = result
		g.mu.Unlock()
		return result, nil
	})

	return v.(availability) == availabilityYes
}

func (g *Gate) settle(key string, o outcome) outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settled[key] = o
	g.states[key] = o.state
	return o
}

// scopeKey canonicalizes a scope set.
func scopeKey(scopes []metric.Scope) string {
	parts := make([]string, 0, len(scopes))
	for _, s := range scopes {
		parts = append(parts, string(s))
	}
	slices.Sort(parts)
	parts = slices.Compact(parts)
	return strings.Join(parts, ",")
}
