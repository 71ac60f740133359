package itemset

import (
	"slices"
	"sync"
)

// ItemSet is a node-owned collection of unique item identifiers.
// Only the owning node mutates it; other nodes see it through digests and filters.
type ItemSet struct {
	mu    sync.RWMutex
	owner string
	items map[int32]struct{}
}

// New creates an empty set owned by the given node.
func New(owner string) *ItemSet {
	return &ItemSet{
		owner: owner,
		items: make(map[int32]struct{}),
	}
}

// Of creates a set holding the given items. Repeated items are kept once.
func Of(owner string, items ...int32) *ItemSet {
	s := New(owner)
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Owner returns the identifier of the owning node.
func (s *ItemSet) Owner() string {
	return s.owner
}

// Add inserts item and reports whether it was absent.
// Adding an item that is already present is a no-op returning false.
func (s *ItemSet) Add(item int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item]; ok {
		return false
	}
	s.items[item] = struct{}{}
	return true
}

// Contains reports whether item is in the set.
func (s *ItemSet) Contains(item int32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[item]
	return ok
}

// Len returns the number of items.
func (s *ItemSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Sorted returns a fresh ascending copy of the items.
// The copy is taken under the read lock, so it is a consistent view of the set.
func (s *ItemSet) Sorted() []int32 {
	s.mu.RLock()
	out := make([]int32, 0, len(s.items))
	for item := range s.items {
		out = append(out, item)
	}
	s.mu.RUnlock()

	slices.Sort(out)
	return out
}
