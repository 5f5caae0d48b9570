package listing

import (
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sorter orders strings with the collation rules of a locale.
// A collate.Collator is not safe for concurrent use, so calls are serialized.
type Sorter struct {
	mu       sync.Mutex
	collator *collate.Collator
}

// NewSorter creates a Sorter for the given locale
func NewSorter(tag language.Tag) *Sorter {
	return &Sorter{collator: collate.New(tag)}
}

// Compare returns -1, 0 or 1 like strings.Compare, but locale-aware
func (s *Sorter) Compare(a, b string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collator.CompareString(a, b)
}

// SortStable sorts items ascending by key. Items with equal keys keep their order.
func SortStable[T any](s *Sorter, items []T, key func(T) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slices.SortStableFunc(items, func(a, b T) int {
		return s.collator.CompareString(key(a), key(b))
	})
}
