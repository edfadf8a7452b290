// Package depgraph computes the deferred-work fan-out for the type-check
// pipeline (spec.md §4.4 Stage 3): given the files whose environment
// entries just changed, find every file that depends on one of them and
// isn't already being checked directly.
package depgraph

import (
	"github.com/pkraison/pyre-check/internal/handle"
)

// DependentsIndex is the subset of env.Environment this package
// consumes: a qualifier-keyed dependency oracle.
type DependentsIndex interface {
	Dependencies(q handle.Qualifier) []handle.Handle
}

// ComputeDeferred returns the set of files that depend on any qualifier
// derived from updated, excluding anything already in check. Order
// follows first discovery; duplicates across multiple updated files'
// dependents are deduped by handle, since one file can be reached via
// several updated modules.
func ComputeDeferred(idx DependentsIndex, updated, check []handle.Handle, stubSuffix string) []handle.Handle {
	if len(updated) == 0 {
		return nil
	}

	inCheck := make(map[handle.Handle]struct{}, len(check))
	for _, h := range check {
		inCheck[h] = struct{}{}
	}

	seen := make(map[handle.Handle]struct{})
	var out []handle.Handle
	for _, h := range updated {
		q := handle.QualifierFor(h, stubSuffix)
		for _, dependent := range idx.Dependencies(q) {
			if _, excluded := inCheck[dependent]; excluded {
				continue
			}
			if _, dup := seen[dependent]; dup {
				continue
			}
			seen[dependent] = struct{}{}
			out = append(out, dependent)
		}
	}
	return out
}
