package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps names to implementations, e.g. custom validators referenced
// by name from schema files. It is safe for concurrent use.
type Registry[T any] struct {
	mu    sync.RWMutex
	kind  string
	items map[string]T
}

// New creates an empty registry. kind names the entries in error messages.
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:  kind,
		items: make(map[string]T),
	}
}

// Register adds an entry.
// If an entry with the same name exists, it is overwritten.
func (r *Registry[T]) Register(name string, item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[name] = item
}

// Lookup returns the entry registered under name.
func (r *Registry[T]) Lookup(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[name]
	return item, ok
}

// Get is Lookup returning an error for unknown names.
func (r *Registry[T]) Get(name string) (T, error) {
	item, ok := r.Lookup(name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s not found: %s", r.kind, name)
	}
	return item, nil
}

// Names lists registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
