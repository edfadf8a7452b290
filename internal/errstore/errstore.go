// Package errstore implements the error store and reporter (spec.md
// §4.6, component C6): a file→errors multimap plus the response-payload
// builder shared by DisplayTypeErrors, TypeCheckResponse, and
// FlushTypeErrorsRequest.
package errstore

import (
	"sync"

	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/handle"
)

// FileErrors is one entry of a file→errors report, in the order the
// report was built (spec.md §4.6 "deterministic by seed order").
type FileErrors struct {
	File   handle.Handle
	Errors []env.ErrorRecord
}

// Store is the mutation-guarded file→errors multimap. Every error's
// Path, itself a handle, equals the map key it lives under (spec.md §3
// invariant 1).
type Store struct {
	mu     sync.RWMutex
	order  []handle.Handle
	errors map[handle.Handle][]env.ErrorRecord
}

// New builds an empty error store.
func New() *Store {
	return &Store{errors: map[handle.Handle][]env.ErrorRecord{}}
}

// Insert appends one error under handle(e.Path), tracking first-seen key
// order for deterministic "all keys" reports.
func (s *Store) Insert(e env.ErrorRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.errors[e.Path]; !ok {
		s.order = append(s.order, e.Path)
	}
	s.errors[e.Path] = append(s.errors[e.Path], e)
}

// Remove clears every error keyed by h. Idempotent.
func (s *Store) Remove(h handle.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.errors[h]; !ok {
		return
	}
	delete(s.errors, h)
	for i, k := range s.order {
		if k == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// AllKeys returns every handle currently holding errors, in first-seen
// order.
func (s *Store) AllKeys() []handle.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]handle.Handle(nil), s.order...)
}

// Errors returns a copy of the errors currently stored for h.
func (s *Store) Errors(h handle.Handle) []env.ErrorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]env.ErrorRecord(nil), s.errors[h]...)
}

// Report builds a file→errors payload from the store's own contents:
// seeded by files if non-nil (even an empty-but-non-nil slice, meaning
// every requested file failed to resolve), else by every key currently
// in the store. This backs DisplayTypeErrors (spec.md §4.5): "if files
// is empty, return all errors; else filter by resolvable handles" — the
// nil-vs-empty distinction is what tells the two cases apart.
func (s *Store) Report(files []handle.Handle) []FileErrors {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seed := files
	if seed == nil {
		seed = s.order
	}
	out := make([]FileErrors, 0, len(seed))
	for _, h := range seed {
		out = append(out, FileErrors{File: h, Errors: append([]env.ErrorRecord(nil), s.errors[h]...)})
	}
	return out
}

// BuildFileToErrorMap seeds a report with checkedFiles (or, if
// checkedFiles is nil, every key currently in the store) with empty
// error lists, then overlays newErrors grouped by handle(error.Path)
// (spec.md §4.4 Stage 11 / §4.6). checkedFiles's order is preserved;
// files with zero new errors still appear, so clients can clear stale
// diagnostics.
func (s *Store) BuildFileToErrorMap(checkedFiles []handle.Handle, newErrors []env.ErrorRecord) []FileErrors {
	seed := checkedFiles
	if seed == nil {
		seed = s.AllKeys()
	}

	byFile := map[handle.Handle][]env.ErrorRecord{}
	for _, e := range newErrors {
		byFile[e.Path] = append(byFile[e.Path], e)
	}

	out := make([]FileErrors, 0, len(seed))
	seen := make(map[handle.Handle]bool, len(seed))
	for _, h := range seed {
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, FileErrors{File: h, Errors: byFile[h]})
	}
	return out
}
