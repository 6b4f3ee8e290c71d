// Package state holds the synchronized per-metric state observed by the
// presentation layer.
package state

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/sample"
)

// Status describes what a store entry currently holds.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusNoData
	StatusUnauthorized
	StatusUnavailable
	StatusError
)

// Statuses lists every status in declaration order.
var Statuses = []Status{
	StatusLoading,
	StatusReady,
	StatusNoData,
	StatusUnauthorized,
	StatusUnavailable,
	StatusError,
}

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusNoData:
		return "no_data"
	case StatusUnauthorized:
		return "unauthorized"
	case StatusUnavailable:
		return "unavailable"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range Statuses {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Entry is the latest known state of one metric. Sample is set only for
// StatusReady; Err only for StatusError.
type Entry struct {
	Metric    metric.Key
	Status    Status
	Sample    *sample.Sample
	Err       error
	UpdatedAt time.Time

	// Version is the store-wide write sequence number of this entry; zero
	// means never written.
	Version uint64
}

// Ready creates an entry holding s.
func Ready(s *sample.Sample) Entry {
	return Entry{Status: StatusReady, Sample: s}
}

// NoData creates an entry for a reachable provider without samples.
func NoData() Entry {
	return Entry{Status: StatusNoData}
}

// Observer is called after every write with the written entry.
type Observer func(Entry)

type observerSlot struct {
	id uint64
	fn Observer
}

// Store maps metric keys to their latest entry. Writes replace whole entries
// and the last write wins; no recency check is made. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	keys      []metric.Key
	entries   map[metric.Key]Entry
	version   uint64
	observers []observerSlot
	nextObsID uint64
}

// New creates a store with every key in StatusLoading.
func New(keys []metric.Key) *Store {
	s := &Store{
		keys:    slices.Clone(keys),
		entries: make(map[metric.Key]Entry, len(keys)),
	}
	for _, k := range keys {
		s.entries[k] = Entry{Metric: k, Status: StatusLoading}
	}
	return s
}

// Get returns the current entry for key without blocking on writers beyond
// the map access. Unknown keys read as StatusLoading.
func (s *Store) Get(key metric.Key) Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[key]; ok {
		return e
	}
	return Entry{Metric: key, Status: StatusLoading}
}

// Read is the presentation-facing name for Get.
func (s *Store) Read(key metric.Key) Entry {
	return s.Get(key)
}

// Set replaces the entry for key and notifies observers. Values are not
// validated.
func (s *Store) Set(key metric.Key, e Entry) Entry {
	s.mu.Lock()
	s.version++
	e.Metric = key
	e.Version = s.version
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}
	if _, known := s.entries[key]; !known {
		s.keys = append(s.keys, key)
	}
	s.entries[key] = e
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o.fn(e)
	}
	return e
}

// Subscribe registers fn to run after every Set. The returned function
// removes it and is safe to call more than once.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, observerSlot{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.observers = slices.DeleteFunc(s.observers, func(o observerSlot) bool {
			return o.id == id
		})
	}
}

// OnUpdate is the presentation-facing name for Subscribe.
func (s *Store) OnUpdate(fn Observer) (unsubscribe func()) {
	return s.Subscribe(fn)
}

// Snapshot returns all entries in key order.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.entries[k])
	}
	return out
}

// Summary counts entries per status.
func (s *Store) Summary() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int, len(Statuses))
	for _, e := range s.entries {
		counts[e.Status]++
	}
	return counts
}
