// Package state holds the single session-state value shared between the
// manual UI path and the agent mutation bridge. The value is only ever
// replaced wholesale: readers always observe one fully formed snapshot, never
// a partially updated one.
package state

import (
	"sync"
	"time"

	"github.com/nimeshgurung/okrbuilder/internal/okr"
)

// Subscriber receives the snapshot produced by every successful mutation.
type Subscriber func(next okr.SessionState)

// Store is the single source of truth for the session state. Mutations are
// applied atomically and sequentially: one Replace runs to completion,
// including subscriber notification, before the next is admitted. Subscribers
// must not call back into the store from their callback.
type Store struct {
	mu          sync.Mutex
	current     okr.SessionState
	subscribers []Subscriber
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store seeded with the initial session state. Seeding does not
// notify subscribers; only changes after initialization do.
func New(initial okr.SessionState, opts ...Option) *Store {
	s := &Store{
		current: initial.Clone(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.current.LastUpdated.IsZero() {
		s.current.LastUpdated = s.now()
	}
	return s
}

// Get returns a snapshot of the current session state.
func (s *Store) Get() okr.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Replace applies the updater to the previous state, refreshes LastUpdated,
// installs the result as the new snapshot, and notifies subscribers. The
// updater receives a private copy and may mutate it freely. Returns the
// installed snapshot.
func (s *Store) Replace(updater func(prev okr.SessionState) okr.SessionState) okr.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := updater(s.current.Clone()).Clone()
	next.LastUpdated = s.now()
	s.current = next

	snapshot := next.Clone()
	for _, notify := range s.subscribers {
		notify(snapshot)
	}
	return snapshot
}

// Update is the fallible form of Replace. When the updater returns an error,
// nothing is installed, LastUpdated is not refreshed, and subscribers are not
// notified: the session state is left exactly as it was.
func (s *Store) Update(updater func(prev okr.SessionState) (okr.SessionState, error)) (okr.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := updater(s.current.Clone())
	if err != nil {
		return s.current.Clone(), err
	}
	next = next.Clone()
	next.LastUpdated = s.now()
	s.current = next

	snapshot := next.Clone()
	for _, notify := range s.subscribers {
		notify(snapshot)
	}
	return snapshot, nil
}

// Subscribe registers a callback invoked after every successful mutation.
func (s *Store) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}
