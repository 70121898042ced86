// Package cache is the query-keyed collection store sitting between the
// services and the repositories. It deduplicates concurrent fetches, serves
// stale data while revalidating in the background, discards superseded
// responses, and coordinates optimistic mutations with rollback.
package cache

import (
	"context"
	"sync"
	"time"
)

// Key identifies one cached collection. Scope carries the caller identity
// (and any narrowing parameters) so rows visible to one caller are never
// served to another.
type Key struct {
	Collection string
	Scope      string
}

// State is the lifecycle of one cached collection
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateRevalidating
	StateError
)

// FetchFunc loads the authoritative collection for a key
type FetchFunc func(ctx context.Context) (any, error)

// Store is an injectable in-process cache. The zero value is not usable;
// construct with New. The freshness window and clock are constructor
// parameters so tests control both.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	fresh   time.Duration
	now     func() time.Time
}

type entry struct {
	state     State
	data      any
	err       error
	fetchedAt time.Time

	// monotonically increasing fetch sequence; a completed fetch only lands
	// if nothing newer has landed already
	nextSeq    uint64
	appliedSeq uint64

	inflight *flight
}

type flight struct {
	seq  uint64
	done chan struct{}
	data any
	err  error
}

// DefaultFreshness is how long fetched data is served without revalidation
const DefaultFreshness = 30 * time.Second

// New creates a store. A non-positive fresh falls back to DefaultFreshness;
// a nil clock falls back to time.Now.
func New(fresh time.Duration, now func() time.Time) *Store {
	if fresh <= 0 {
		fresh = DefaultFreshness
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		entries: make(map[Key]*entry),
		fresh:   fresh,
		now:     now,
	}
}

// Get returns the collection for key, fetching it with fetch when needed.
// Fresh data is returned directly. Stale data is returned immediately while a
// background revalidation refreshes the entry. Concurrent callers for the
// same key share one in-flight fetch. A fetch that resolves after a newer one
// never overwrites the newer data.
func (s *Store) Get(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	s.mu.Lock()
	e := s.entry(key)

	switch e.state {
	case StateReady, StateRevalidating:
		if s.now().Sub(e.fetchedAt) < s.fresh {
			data := e.data
			s.mu.Unlock()
			return data, nil
		}
		// stale: serve what we have, revalidate in the background
		data := e.data
		if e.inflight == nil {
			s.launch(key, e, fetch)
			e.state = StateRevalidating
		}
		s.mu.Unlock()
		return data, nil

	case StateLoading:
		fl := e.inflight
		s.mu.Unlock()
		return s.wait(ctx, fl)

	default: // StateUninitialized, StateError — error entries retry on access
		fl := e.inflight
		if fl == nil {
			fl = s.launch(key, e, fetch)
			e.state = StateLoading
			e.err = nil
		}
		s.mu.Unlock()
		return s.wait(ctx, fl)
	}
}

// Peek returns the cached data and state without triggering a fetch
func (s *Store) Peek(key Key) (any, State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, StateUninitialized
	}
	return e.data, e.state
}

// Invalidate marks keys stale so the next Get revalidates. Cached data stays
// available for stale-while-revalidate serving.
func (s *Store) Invalidate(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		if e, ok := s.entries[key]; ok {
			e.fetchedAt = time.Time{}
		}
	}
}

// Drop removes keys entirely, e.g. when a caller's visibility changed
func (s *Store) Drop(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
}

// launch starts a fetch for key. Caller holds s.mu.
func (s *Store) launch(key Key, e *entry, fetch FetchFunc) *flight {
	e.nextSeq++
	fl := &flight{seq: e.nextSeq, done: make(chan struct{})}
	e.inflight = fl

	// The fetch outlives any single waiter: a caller that navigates away
	// stops waiting, but the completed result still lands for the next
	// observer.
	go func() {
		data, err := fetch(context.Background())
		fl.data = data
		fl.err = err

		s.mu.Lock()
		cur := s.entry(key)
		if cur.inflight == fl {
			cur.inflight = nil
		}
		if fl.seq <= cur.appliedSeq {
			// superseded by a write that landed while this fetch ran. The
			// entry must not stay in a waiting state with no flight behind
			// it; settle it on whatever the write left in place.
			if cur.inflight == nil {
				if cur.data != nil {
					cur.state = StateReady
				} else {
					cur.state = StateUninitialized
				}
			}
		} else {
			cur.appliedSeq = fl.seq
			if err != nil {
				// keep serving previously fetched data on a failed
				// revalidation; only surface the error state when there is
				// nothing to serve
				if cur.data == nil {
					cur.state = StateError
					cur.err = err
				} else {
					cur.state = StateReady
				}
			} else {
				cur.state = StateReady
				cur.data = data
				cur.err = nil
				cur.fetchedAt = s.now()
			}
		}
		s.mu.Unlock()
		close(fl.done)
	}()

	return fl
}

// wait blocks until fl resolves or ctx is done. A cancelled waiter abandons
// the flight without cancelling it.
func (s *Store) wait(ctx context.Context, fl *flight) (any, error) {
	select {
	case <-fl.done:
		return fl.data, fl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Store) entry(key Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}
