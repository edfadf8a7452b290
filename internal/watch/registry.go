// Package watch implements the file-notifier registry consulted by
// SaveDocument (spec.md §4.5) and an optional fsnotify-backed watcher
// that plays the role of an external notifier, adapted from the
// teacher's debounced internal/indexing/watcher.go.
package watch

import "sync"

// Registry tracks how many external file-change notifiers are attached.
// It backs ServerState.connections' "file-change notifier sockets" half
// (spec.md §3): SaveDocument checks Any() under the server lock before
// deciding whether to run an inline type-check.
type Registry struct {
	mu    sync.RWMutex
	count int
}

// NewRegistry builds an empty registry (no notifiers attached).
func NewRegistry() *Registry {
	return &Registry{}
}

// Attach records one more external notifier as active.
func (r *Registry) Attach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

// Detach records one external notifier as gone. A no-op below zero.
func (r *Registry) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count > 0 {
		r.count--
	}
}

// Any reports whether at least one external notifier is attached.
func (r *Registry) Any() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count > 0
}
