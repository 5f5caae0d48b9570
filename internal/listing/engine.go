// Package listing implements the fetch, sort, search and paginate cycle shared
// by every list view.
package listing

import (
	"context"
	"sync"

	"golang.org/x/text/language"
)

// DefaultPageSize is used when a Config does not set one
const DefaultPageSize = 10

// Config describes how an Engine reads its items
type Config[T any] struct {
	// Name is the sort key
	Name func(T) string
	// Fields are the values searched by Search
	Fields func(T) []string
	// PageSize is the number of items per page
	PageSize int
	// Locale selects the collation used for sorting
	Locale language.Tag
}

// Page is a snapshot of the visible part of an Engine
type Page[T any] struct {
	Items      []T
	Page       int
	TotalPages int
	Total      int
	Term       string
	Offset     int
	HasPrev    bool
	HasNext    bool
}

// FetchFunc loads the full collection from its source
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Engine holds a sorted collection, the current search term and the current page.
// It is safe for concurrent use.
type Engine[T any] struct {
	mu     sync.Mutex
	cfg    Config[T]
	sorter *Sorter

	all      []T
	filtered []T
	term     string
	page     int
	loaded   bool

	// gen is the newest generation handed out by Begin
	gen uint64
}

// New creates an empty Engine
func New[T any](cfg Config[T]) *Engine[T] {
	if cfg.PageSize < 1 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Fields == nil {
		name := cfg.Name
		cfg.Fields = func(item T) []string { return []string{name(item)} }
	}
	return &Engine[T]{
		cfg:    cfg,
		sorter: NewSorter(cfg.Locale),
		page:   1,
	}
}

// Begin starts a new load and returns its generation.
// Responses of older generations are rejected by Apply.
func (e *Engine[T]) Begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	return e.gen
}

// Apply replaces the collection with items if gen is still the newest generation.
// It reports whether the items were applied.
func (e *Engine[T]) Apply(gen uint64, items []T) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return false
	}
	e.all = append([]T(nil), items...)
	SortStable(e.sorter, e.all, e.cfg.Name)
	e.loaded = true
	e.refilter()
	return true
}

// Load fetches the collection and applies it. On error the previous collection
// is kept and the error returned. applied is false when a newer load started
// while this one was in flight.
func (e *Engine[T]) Load(ctx context.Context, fetch FetchFunc[T]) (applied bool, err error) {
	gen := e.Begin()
	items, err := fetch(ctx)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return e.Apply(gen, items), nil
}

// Loaded reports whether a collection has been applied since the last Invalidate
func (e *Engine[T]) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Invalidate marks the collection as outdated so the next view refetches it
func (e *Engine[T]) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = false
}

// Search filters the collection by term and goes back to the first page
func (e *Engine[T]) Search(term string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.term = term
	e.refilter()
}

// SetPage moves to page n, clamped to the available pages
func (e *Engine[T]) SetPage(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.page = clamp(n, 1, e.totalPages())
}

// NextPage moves one page forward unless already on the last page
func (e *Engine[T]) NextPage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.page < e.totalPages() {
		e.page++
	}
}

// PrevPage moves one page back unless already on the first page
func (e *Engine[T]) PrevPage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.page > 1 {
		e.page--
	}
}

// Upsert replaces the first item for which match returns true, or appends item
func (e *Engine[T]) Upsert(match func(T) bool, item T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	replaced := false
	for i := range e.all {
		if match(e.all[i]) {
			e.all[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		e.all = append(e.all, item)
	}
	SortStable(e.sorter, e.all, e.cfg.Name)
	e.refilter()
}

// Remove deletes every item for which match returns true and reports whether any was removed
func (e *Engine[T]) Remove(match func(T) bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.all[:0:0]
	for _, item := range e.all {
		if !match(item) {
			kept = append(kept, item)
		}
	}
	removed := len(kept) != len(e.all)
	e.all = kept
	if removed {
		e.refilter()
	}
	return removed
}

// Items returns a copy of the full sorted collection, ignoring the search term
func (e *Engine[T]) Items() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]T(nil), e.all...)
}

// Find returns the first item for which match returns true
func (e *Engine[T]) Find(match func(T) bool) (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, item := range e.all {
		if match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// View returns the current page
func (e *Engine[T]) View() Page[T] {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := len(e.filtered)
	pages := e.totalPages()
	start := (e.page - 1) * e.cfg.PageSize
	end := min(start+e.cfg.PageSize, total)
	if start > total {
		start = total
	}

	return Page[T]{
		Items:      append([]T(nil), e.filtered[start:end]...),
		Page:       e.page,
		TotalPages: pages,
		Total:      total,
		Term:       e.term,
		Offset:     start,
		HasPrev:    e.page > 1,
		HasNext:    e.page < pages,
	}
}

// refilter recomputes the filtered collection from the full one and resets the page.
// e.mu must be held.
func (e *Engine[T]) refilter() {
	filtered := make([]T, 0, len(e.all))
	for _, item := range e.all {
		if Matches(e.term, e.cfg.Fields(item)) {
			filtered = append(filtered, item)
		}
	}
	e.filtered = filtered
	e.page = 1
}

// totalPages is never less than 1 so that an empty list still shows page 1.
// e.mu must be held.
func (e *Engine[T]) totalPages() int {
	pages := (len(e.filtered) + e.cfg.PageSize - 1) / e.cfg.PageSize
	return max(pages, 1)
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}
