package channel

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/neox5/vitalsync/internal/metric"
)

// channelSet owns the update sources of one activated metric. Once released
// it never writes to the store again and its handles are gone.
type channelSet struct {
	desc   metric.Descriptor
	ctx    context.Context
	cancel context.CancelFunc

	released atomic.Bool

	// writeMu serializes store writes against release.
	writeMu sync.Mutex

	mu          sync.Mutex
	unsubscribe func()
	pollJob     uuid.UUID
	polling     bool
}

func newChannelSet(parent context.Context, desc metric.Descriptor) *channelSet {
	ctx, cancel := context.WithCancel(parent)
	return &channelSet{desc: desc, ctx: ctx, cancel: cancel}
}

// attachSubscription stores the subscription handle. It reports false when
// the set was released or already subscribed; the caller then owns unsubscribe.
func (cs *channelSet) attachSubscription(unsubscribe func()) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.released.Load() || cs.unsubscribe != nil {
		return false
	}
	cs.unsubscribe = unsubscribe
	return true
}

// attachPoll stores the poll job. It reports false when the set was released
// or already polling; the caller then owns the job.
func (cs *channelSet) attachPoll(id uuid.UUID) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.released.Load() || cs.polling {
		return false
	}
	cs.pollJob = id
	cs.polling = true
	return true
}

// release marks the set released, cancels in-flight work and hands back the
// handles to tear down. It waits for a write in progress, so no write lands
// after it returns. Later calls return nothing.
//
// A store observer must not release the metric it is being notified about.
func (cs *channelSet) release() (unsubscribe func(), pollJob uuid.UUID, polling bool) {
	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.released.Swap(true) {
		return nil, uuid.Nil, false
	}
	cs.cancel()

	unsubscribe, pollJob, polling = cs.unsubscribe, cs.pollJob, cs.polling
	cs.unsubscribe, cs.pollJob, cs.polling = nil, uuid.Nil, false
	return unsubscribe, pollJob, polling
}

// guard runs fn unless the set was released.
func (cs *channelSet) guard(fn func()) bool {
	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()
	if cs.released.Load() {
		return false
	}
	fn()
	return true
}

func (cs *channelSet) isReleased() bool {
	return cs.released.Load()
}

func (cs *channelSet) handles() (subscribed, polling bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.unsubscribe != nil, cs.polling
}
