package env

import (
	"context"

	"github.com/pkraison/pyre-check/internal/handle"
)

// Environment is the semantic-environment capability surface consumed by
// the type-check pipeline and the type-query handler (spec.md §6
// "Environment interface consumed").
type Environment interface {
	// ParseAnnotation parses and validates a type expression against the
	// type-order. It returns an *errs.QueryError of kind Untracked on
	// failure — never a bare error.
	ParseAnnotation(expr string) (Type, error)

	// HasClassDefinition looks up a class definition by type; false when
	// no class definition exists for t.
	HasClassDefinition(t Type) bool
	Attributes(t Type) ([]Attribute, bool)
	Methods(t Type) ([]Method, bool)
	Superclasses(t Type) ([]Type, bool)

	Join(a, b Type) (Type, error)
	Meet(a, b Type) (Type, error)
	LessOrEqual(a, b Type) (bool, error)

	// ResolveGlobal resolves a global name to a value with its
	// annotation.
	ResolveGlobal(name string) (Symbol, bool)
	// Signature returns the overloads for a callable global.
	Signature(name string) ([]Overload, bool)

	// Dependencies lists the file handles that depend on the module
	// qualifier q, per the dependency oracle (spec.md §4.4 Stage 3).
	Dependencies(q handle.Qualifier) []handle.Handle

	// Purge removes all environment records for the given handles
	// (spec.md §4.4 Stage 4).
	Purge(handles []handle.Handle)

	// ModuleDefinition resolves a qualifier to the canonical handle it
	// currently binds to, used by the shadowed-by-stub check (spec.md
	// §4.4 Stage 5).
	ModuleDefinition(q handle.Qualifier) (handle.Handle, bool)

	// Repopulate feeds one file's AST into the environment (Stage 6).
	Repopulate(h handle.Handle, ast AST)
	// InferProtocols runs protocol inference over the given handles'
	// classes (Stage 6, second half).
	InferProtocols(handles []handle.Handle)
	// RegisterIgnores runs the post-processing pass that registers
	// user-suppressed error markers (Stage 7).
	RegisterIgnores(handles []handle.Handle)

	// TopLevelDefines extracts the top-level define names from an AST,
	// used to invalidate resolution memoization (Stage 8).
	TopLevelDefines(ast AST) []string
	// PurgeResolutionMemo purges the given define names from the
	// resolution shared store (Stage 8).
	PurgeResolutionMemo(names []string)
	// ClearAttributeMemo clears per-class attribute memoization (Stage 1).
	ClearAttributeMemo()

	// BuildPositionIndex builds the position-indexed annotation/definition
	// table from an AST (spec.md §4.2 "Build order": AST first, then the
	// position index, then source text is read separately).
	BuildPositionIndex(h handle.Handle, ast AST) (PositionIndex, error)
}

// PositionIndex answers position-based queries against one file's AST,
// backing both the lookup cache (C2) and TypeAtLocation (C3).
type PositionIndex interface {
	AnnotationAt(pos Position) (Location, Type, bool)
	DefinitionAt(pos Position) (Location, bool)
}

// ASTStore is the shared-memory backing store for parsed ASTs (spec.md
// §1's "shared-memory backing store", consumed by name only).
type ASTStore interface {
	Get(h handle.Handle) (AST, bool)
	Put(h handle.Handle, ast AST)
	Delete(handles []handle.Handle)
	// GC runs an aggressive collection pass, invoked by the dispatcher
	// before every TypeCheckRequest (spec.md §4.5).
	GC()
}

// Parser is the lexer/parser producing ASTs (spec.md §1, out of scope
// beyond this interface).
type Parser interface {
	Parse(path, source string) (AST, error)
}

// Analyzer re-analyzes one file and returns the errors found. Pipeline
// stage 9 fans this out across the scheduler; a non-nil error is a fatal
// analyzer failure (spec.md §7.6), not a type error — those come back in
// the returned slice.
type Analyzer interface {
	AnalyzeFile(ctx context.Context, h handle.Handle) ([]ErrorRecord, error)
}
