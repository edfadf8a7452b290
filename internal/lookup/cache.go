// Package lookup implements the per-document lookup cache (spec.md §4.2,
// component C2): a lazily-built, explicitly-evicted map from relative
// path to a position-indexed annotation/definition table plus the raw
// source text used to resolve positions.
package lookup

import (
	"os"
	"sync"

	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/handle"
)

// Entry is the value owned by the cache: the position index built from
// a file's AST, and the source text snapshot used alongside it.
type Entry struct {
	Table  env.PositionIndex
	Source string
}

// Cache is the LookupCache. get and evict are its only mutators (spec.md
// §9 "Cache coherence").
type Cache struct {
	mu          sync.Mutex
	entries     map[handle.Handle]*Entry
	asts        env.ASTStore
	environment env.Environment
}

// New builds an empty cache over the given AST store and environment.
func New(asts env.ASTStore, environment env.Environment) *Cache {
	return &Cache{
		entries:     map[handle.Handle]*Entry{},
		asts:        asts,
		environment: environment,
	}
}

// Get returns the cached entry for f's relative path, building one on a
// miss: read the AST from shared memory, construct a position index via
// the environment, read the source text from disk (rooted at f.Root,
// empty string if missing), then populate and cache the entry. If the
// AST is not available, nothing is inserted and ok is false (spec.md
// §4.2, §8 scenario 1).
func (c *Cache) Get(f handle.File) (*Entry, bool) {
	h := f.Handle()

	c.mu.Lock()
	if e, ok := c.entries[h]; ok {
		c.mu.Unlock()
		return e, true
	}
	c.mu.Unlock()

	ast, ok := c.asts.Get(h)
	if !ok {
		return nil, false
	}

	table, err := c.environment.BuildPositionIndex(h, ast)
	if err != nil {
		return nil, false
	}

	source := readSource(f)
	entry := &Entry{Table: table, Source: source}

	c.mu.Lock()
	c.entries[h] = entry
	c.mu.Unlock()

	return entry, true
}

// Evict removes the entry keyed by f's relative path, if any. Idempotent
// (spec.md §8 invariant).
func (c *Cache) Evict(f handle.File) {
	h := f.Handle()
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, h)
}

// Has reports whether f currently has a cached entry, without building
// one — used by tests asserting the cache-coherence invariants.
func (c *Cache) Has(f handle.File) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[f.Handle()]
	return ok
}

// FindAnnotation resolves the annotation and location at pos in f, via
// Get.
func (c *Cache) FindAnnotation(f handle.File, pos env.Position) (env.Location, env.Type, bool) {
	entry, ok := c.Get(f)
	if !ok {
		return env.Location{}, env.Type{}, false
	}
	return entry.Table.AnnotationAt(pos)
}

// FindDefinition resolves the definition location at pos in f, via Get.
func (c *Cache) FindDefinition(f handle.File, pos env.Position) (env.Location, bool) {
	entry, ok := c.Get(f)
	if !ok {
		return env.Location{}, false
	}
	return entry.Table.DefinitionAt(pos)
}

// readSource reads f's content: the in-memory override if present,
// otherwise the file on disk rooted at f.Root, or "" if it cannot be
// read (spec.md §4.2).
func readSource(f handle.File) string {
	if f.Override != nil {
		return *f.Override
	}
	b, err := os.ReadFile(f.AbsPath())
	if err != nil {
		return ""
	}
	return string(b)
}
