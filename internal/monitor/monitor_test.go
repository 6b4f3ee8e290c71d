package monitor

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/neox5/vitalsync/internal/channel"
	"github.com/neox5/vitalsync/internal/state"
	"github.com/stretchr/testify/require"
)

type summary map[state.Status]int

func (s summary) Summary() map[state.Status]int { return s }

type stats channel.Stats

func (s stats) Stats() channel.Stats { return channel.Stats(s) }

func TestMonitorLogsResourcesAndSync(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	m, err := New(time.Hour, logger,
		summary{state.StatusReady: 4, state.StatusUnauthorized: 2},
		stats(channel.Stats{Fetches: 10, FetchFailures: 1}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	m.Run(ctx)
	cancel()
	m.Wait()

	out := buf.String()
	require.Contains(t, out, "msg=resource")
	require.Contains(t, out, "msg=sync")
	require.Contains(t, out, "ready=4")
	require.Contains(t, out, "unauthorized=2")
	require.Contains(t, out, "fetches=10")
	require.Contains(t, out, "failures=1")
	require.NotContains(t, out, "loading=")
}

func TestMonitorInvalidInterval(t *testing.T) {
	_, err := New(0, nil, nil, nil)
	require.Error(t, err)
}
