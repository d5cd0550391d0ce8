// Package arena stores exclusively owned domain objects behind stable handles.
//
// A Handle is an (index, generation) pair. Destroying an object bumps the
// generation of its slot, so handles to destroyed objects are rejected even
// after the slot is reused. Handles compare with ==.
package arena

import "fmt"

// Handle identifies one object in a Store for the object's whole lifetime.
// The zero Handle is never issued.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("#%d.%d", h.index, h.gen)
}

type slot[C any] struct {
	gen   uint32
	live  bool
	value C
}

// Store owns the objects it creates. It is not safe for concurrent use.
type Store[C any] struct {
	slots []slot[C]
	free  []uint32
	live  int
}

// New creates an empty store.
func New[C any]() *Store[C] {
	return &Store[C]{}
}

// Create takes ownership of value and returns its handle.
func (s *Store[C]) Create(value C) Handle {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slot[C]{})
	}

	sl := &s.slots[idx]
	sl.gen++
	if sl.gen == 0 {
		// skip the zero generation so the zero Handle stays invalid
		sl.gen = 1
	}
	sl.live = true
	sl.value = value
	s.live++

	return Handle{index: idx, gen: sl.gen}
}

// Get returns the object behind h.
func (s *Store[C]) Get(h Handle) (C, bool) {
	var zero C
	if !s.Contains(h) {
		return zero, false
	}
	return s.slots[h.index].value, true
}

// Contains reports whether h refers to a live object.
func (s *Store[C]) Contains(h Handle) bool {
	if h.IsZero() || int(h.index) >= len(s.slots) {
		return false
	}
	sl := &s.slots[h.index]
	return sl.live && sl.gen == h.gen
}

// Destroy releases the object behind h. It reports false for stale handles.
func (s *Store[C]) Destroy(h Handle) bool {
	if !s.Contains(h) {
		return false
	}
	var zero C
	sl := &s.slots[h.index]
	sl.live = false
	sl.value = zero
	sl.gen++
	s.free = append(s.free, h.index)
	s.live--
	return true
}

// Len returns the number of live objects.
func (s *Store[C]) Len() int {
	return s.live
}

// Reset destroys every object. Handles issued before Reset stay invalid
// because slot generations are kept.
func (s *Store[C]) Reset() {
	var zero C
	s.free = s.free[:0]
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.live {
			sl.live = false
			sl.value = zero
			sl.gen++
		}
		s.free = append(s.free, uint32(i))
	}
	s.live = 0
}
