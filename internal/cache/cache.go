package cache

import "sync/atomic"

// Snapshot is a lock-free, read-optimized container
// holding any immutable structure.
type Snapshot[T any] struct{ p atomic.Pointer[T] }

// Load returns the stored value and whether one has been stored yet.
func (s *Snapshot[T]) Load() (T, bool) {
	v := s.p.Load()
	if v == nil {
		var zero T
		return zero, false
	}
	return *v, true
}

// Store atomically swaps in the new value.
func (s *Snapshot[T]) Store(v T) {
	s.p.Store(&v)
}

// Swap stores v and returns the previous value, if any.
func (s *Snapshot[T]) Swap(v T) (T, bool) {
	old := s.p.Swap(&v)
	if old == nil {
		var zero T
		return zero, false
	}
	return *old, true
}
