// Package typequery implements the synchronous semantic query handler
// (spec.md §4.3, component C3): attributes, methods, join/meet,
// subtype, signature, superclasses, and type-at-location.
package typequery

import "github.com/pkraison/pyre-check/internal/env"

// Query is the tagged union of queries TypeQueryRequest can carry.
type Query interface {
	isQuery()
}

type AttributesQuery struct{ Class string }
type MethodsQuery struct{ Class string }
type JoinQuery struct{ A, B string }
type MeetQuery struct{ A, B string }
type LessOrEqualQuery struct{ A, B string }
type NormalizeTypeQuery struct{ Expr string }
type SignatureQuery struct{ Name string }
type SuperclassesQuery struct{ Class string }
type TypeAtLocationQuery struct {
	Path  string
	Start env.Position
}

func (AttributesQuery) isQuery()      {}
func (MethodsQuery) isQuery()         {}
func (JoinQuery) isQuery()            {}
func (MeetQuery) isQuery()            {}
func (LessOrEqualQuery) isQuery()     {}
func (NormalizeTypeQuery) isQuery()   {}
func (SignatureQuery) isQuery()       {}
func (SuperclassesQuery) isQuery()    {}
func (TypeAtLocationQuery) isQuery()  {}

// AttributeOut, ParamOut, MethodOut, OverloadOut and LocationOut are the
// wire-facing shapes for query payloads: plain strings for types so the
// response needs no knowledge of the environment's internal Type
// representation.
type AttributeOut struct {
	Name       string `json:"name"`
	Annotation string `json:"annotation"`
}

type ParamOut struct {
	Name       string `json:"name"`
	Annotation string `json:"annotation"`
}

type MethodOut struct {
	Name             string     `json:"name"`
	Parameters       []ParamOut `json:"parameters"`
	ReturnAnnotation string     `json:"return_annotation"`
}

type OverloadOut struct {
	ReturnType string     `json:"return_type"`
	Parameters []ParamOut `json:"parameters"`
}

type LocationOut struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Result is the TypeQueryResponse payload: exactly one populated field
// besides Error on success, or only Error set on failure (spec.md §4.3,
// §7 taxonomy entries 2-3).
type Result struct {
	Error string `json:"error,omitempty"`

	Attributes   []AttributeOut `json:"attributes,omitempty"`
	Methods      []MethodOut    `json:"methods,omitempty"`
	Type         string         `json:"type,omitempty"`
	LessOrEqual  *bool          `json:"less_or_equal,omitempty"`
	Signatures   []OverloadOut  `json:"signatures,omitempty"`
	Superclasses []string       `json:"superclasses,omitempty"`
	Location     *LocationOut   `json:"location,omitempty"`
	AnnotationAt string         `json:"annotation_at,omitempty"`
}

// ErrorResult builds a failure Result.
func ErrorResult(err error) Result {
	return Result{Error: err.Error()}
}
