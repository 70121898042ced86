package cache

import "context"

// Mutation is the three-phase optimistic update the coordinator runs against
// one cached collection: snapshot the prior value, apply the tentative value,
// then commit against the server and reconcile — or roll back on failure.
//
// The cached collection is guaranteed to hold either the pre-mutation value
// or the reconciled server value when Mutate returns; never the unconfirmed
// optimistic value.
type Mutation struct {
	// Key of the collection being mutated
	Key Key

	// Apply produces the tentative collection from the current one. It must
	// not modify current in place; return a copy. Called only when the
	// collection is cached; a cold cache skips the optimistic phase.
	Apply func(current any) any

	// Commit performs the authoritative server write and returns the
	// confirmed row (or result).
	Commit func(ctx context.Context) (any, error)

	// Reconcile folds the confirmed server row into the tentative collection.
	// Optional; when nil the tentative collection is kept as committed.
	Reconcile func(tentative any, confirmed any) any

	// Invalidate lists dependent collections to mark stale after a successful
	// commit (e.g. the department aggregates that derive from task state).
	Invalidate []Key
}

// Mutate runs m and returns the confirmed server result. On commit failure
// the cached collection is restored to its exact prior value and the error is
// returned to the caller untouched.
func (s *Store) Mutate(ctx context.Context, m Mutation) (any, error) {
	s.mu.Lock()
	e := s.entry(m.Key)
	snapshot := e.data
	seqAtApply := e.appliedSeq
	optimistic := snapshot != nil && m.Apply != nil
	if optimistic {
		e.data = m.Apply(snapshot)
	}
	s.mu.Unlock()

	confirmed, err := m.Commit(ctx)

	s.mu.Lock()
	if err != nil {
		// a fetch that landed during the failed commit replaced the
		// tentative value with fresher server rows; restoring the snapshot
		// over those would serve pre-fetch data as fresh
		if optimistic && e.appliedSeq == seqAtApply {
			e.data = snapshot
		}
		s.mu.Unlock()
		return nil, err
	}
	if optimistic && m.Reconcile != nil {
		e.data = m.Reconcile(e.data, confirmed)
	}
	// any fetch already in flight was issued before this write and would
	// regress the reconciled data; supersede it
	e.nextSeq++
	e.appliedSeq = e.nextSeq
	s.mu.Unlock()

	s.Invalidate(append([]Key{m.Key}, m.Invalidate...)...)
	return confirmed, nil
}
