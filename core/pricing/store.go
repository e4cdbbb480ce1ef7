package pricing

import "sync/atomic"

// Store holds the current snapshot. Readers take the pointer once per
// request and keep pricing against it; Swap never touches a snapshot that
// is already in use.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store, optionally seeded with a snapshot
func NewStore(initial *Snapshot) *Store {
	s := &Store{}
	if initial != nil {
		s.current.Store(initial)
	}
	return s
}

// Current returns the active snapshot, or nil before the first load
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Swap installs next and returns the snapshot it replaced
func (s *Store) Swap(next *Snapshot) *Snapshot {
	return s.current.Swap(next)
}
