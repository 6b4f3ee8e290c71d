package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/provider/providertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	stepScopes  = []metric.Scope{metric.IdentifierStepCount}
	heartScopes = []metric.Scope{metric.IdentifierHeartRate}
)

func TestEnsureAuthorizedGrantedOnce(t *testing.T) {
	p := providertest.New()
	g := NewGate(p, nil)
	ctx := context.Background()

	require.Equal(t, Unrequested, g.State(stepScopes))

	for range 3 {
		state, err := g.EnsureAuthorized(ctx, stepScopes)
		require.NoError(t, err)
		require.Equal(t, Granted, state)
	}

	require.Equal(t, Granted, g.State(stepScopes))
	require.Equal(t, 1, p.AuthorizationRequests())
	require.Equal(t, 1, p.AvailabilityChecks())
}

func TestEnsureAuthorizedScopeSetIsOrderInsensitive(t *testing.T) {
	p := providertest.New()
	g := NewGate(p, nil)
	ctx := context.Background()

	_, err := g.EnsureAuthorized(ctx, []metric.Scope{"b", "a"})
	require.NoError(t, err)
	_, err = g.EnsureAuthorized(ctx, []metric.Scope{"a", "b", "a"})
	require.NoError(t, err)

	require.Equal(t, 1, p.AuthorizationRequests())
}

func TestEnsureAuthorizedConcurrentCallersShareRequest(t *testing.T) {
	p := providertest.New()
	release := p.HoldAuthorization()
	g := NewGate(p, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan State, callers)
	for range callers {
		wg.Go(func() {
			state, err := g.EnsureAuthorized(context.Background(), heartScopes)
			assert.NoError(t, err)
			results <- state
		})
	}

	require.Eventually(t, func() bool {
		return p.AuthorizationRequests() == 1 && g.State(heartScopes) == Pending
	}, time.Second, 5*time.Millisecond)

	release()
	wg.Wait()
	close(results)

	for state := range results {
		require.Equal(t, Granted, state)
	}
	require.Equal(t, 1, p.AuthorizationRequests())
}

func TestEnsureAuthorizedDeniedIsTerminal(t *testing.T) {
	p := providertest.New()
	p.Deny(metric.IdentifierHeartRate)
	g := NewGate(p, nil)
	ctx := context.Background()

	for range 3 {
		state, err := g.EnsureAuthorized(ctx, heartScopes)
		require.NoError(t, err)
		require.Equal(t, Denied, state)
	}
	require.Equal(t, 1, p.AuthorizationRequests())

	// Other scope sets are unaffected.
	state, err := g.EnsureAuthorized(ctx, stepScopes)
	require.NoError(t, err)
	require.Equal(t, Granted, state)
}

func TestEnsureAuthorizedUnavailableShortCircuits(t *testing.T) {
	p := providertest.New()
	p.SetAvailable(false)
	g := NewGate(p, nil)
	ctx := context.Background()

	for _, scopes := range [][]metric.Scope{stepScopes, heartScopes, stepScopes} {
		state, err := g.EnsureAuthorized(ctx, scopes)
		require.ErrorIs(t, err, ErrUnavailable)
		require.Equal(t, Denied, state)
	}

	require.Equal(t, 0, p.AuthorizationRequests())
	require.Equal(t, 1, p.AvailabilityChecks())
}

func TestEnsureAuthorizedProviderFaultSettlesDenied(t *testing.T) {
	p := providertest.New()
	p.FailAuthorization(errors.New("prompt dismissed"))
	g := NewGate(p, nil)
	ctx := context.Background()

	state, err := g.EnsureAuthorized(ctx, stepScopes)
	require.ErrorContains(t, err, "prompt dismissed")
	require.Equal(t, Denied, state)

	p.FailAuthorization(nil)
	state, _ = g.EnsureAuthorized(ctx, stepScopes)
	require.Equal(t, Denied, state)
	require.Equal(t, 1, p.AuthorizationRequests())
}

func TestEnsureAuthorizedCallerCancellation(t *testing.T) {
	p := providertest.New()
	release := p.HoldAuthorization()
	g := NewGate(p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := g.EnsureAuthorized(ctx, stepScopes)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Pending, state)

	release()

	// The abandoned request still settles for later callers.
	state, err = g.EnsureAuthorized(context.Background(), stepScopes)
	require.NoError(t, err)
	require.Equal(t, Granted, state)
	require.Equal(t, 1, p.AuthorizationRequests())
}
