// Package env declares the external collaborators the type-checking
// engine consumes but does not implement: the AST-producing parser, the
// semantic environment (resolution, type-order, class/method lookup),
// and the shared-memory AST store. spec.md §1 explicitly scopes these
// out; this package is the seam the rest of the module is built against.
//
// A minimal in-memory implementation lives in env/testenv for tests.
package env

import "github.com/pkraison/pyre-check/internal/handle"

// AST is an opaque parsed-source handle. The engine never inspects an
// AST directly; it is passed back into the Environment and Analyzer.
type AST interface{}

// Type is an opaque type-order member, printable via String().
type Type struct {
	Name string
}

func (t Type) String() string { return t.Name }

// Position is a location within a single file: 1-based line, 0-based
// column, matching spec.md §3 invariant 5 ("internal positions").
type Position struct {
	Line   int
	Column int
}

// Location pairs a handle with a position, the unit the lookup cache and
// LSP responses traffic in.
type Location struct {
	Path handle.Handle
	Pos  Position
}

// Attribute is one class attribute, as returned by TypeQuery's
// Attributes query.
type Attribute struct {
	Name       string
	Annotation Type
}

// Parameter is one positional/named parameter in a method or function
// signature.
type Parameter struct {
	Name       string
	Annotation Type
	Named      bool // false for positional-only parameters TypeQuery drops
}

// Method is one class method. Parameters still includes the receiver as
// element 0; TypeQuery's Methods query drops it and prepends "self"
// (spec.md §4.3).
type Method struct {
	Name             string
	Parameters       []Parameter
	ReturnAnnotation Type
}

// Overload is one signature overload, as returned by TypeQuery's
// Signature query.
type Overload struct {
	ReturnType Type
	Parameters []Parameter
}

// Symbol is a resolved global: a value together with its annotation.
type Symbol struct {
	Name       string
	Annotation Type
	Callable   bool
}

// ErrorRecord is opaque beyond Path (spec.md §3): the analyzer emits
// these, the error store indexes them by handle(Path).
type ErrorRecord struct {
	Path    handle.Handle
	Kind    string
	Pos     Position
	Message string
}
