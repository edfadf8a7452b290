package typequery

import (
	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/errs"
	"github.com/pkraison/pyre-check/internal/handle"
	"github.com/pkraison/pyre-check/internal/lookup"
)

// selfParameter is the primitive parameter Methods prepends after
// dropping the receiver, per spec.md §4.3.
var selfParameter = ParamOut{Name: "self", Annotation: "self"}

const topAnnotation = "Top"
const unknownAnnotation = "unknown"

// Process answers one synchronous semantic query against environment
// (and, for TypeAtLocation, cache), producing the TypeQueryResponse
// payload described in spec.md §4.3. It never returns a Go error: every
// failure mode is data, carried in Result.Error.
func Process(environment env.Environment, cache *lookup.Cache, localRoot string, q Query) Result {
	switch query := q.(type) {
	case AttributesQuery:
		return attributes(environment, query)
	case MethodsQuery:
		return methods(environment, query)
	case JoinQuery:
		return join(environment, query)
	case MeetQuery:
		return meet(environment, query)
	case LessOrEqualQuery:
		return lessOrEqual(environment, query)
	case NormalizeTypeQuery:
		return normalizeType(environment, query)
	case SignatureQuery:
		return signature(environment, query)
	case SuperclassesQuery:
		return superclasses(environment, query)
	case TypeAtLocationQuery:
		return typeAtLocation(cache, localRoot, query)
	default:
		return ErrorResult(errs.NotFound("query handler", "unknown query"))
	}
}

func resolveType(environment env.Environment, name string) (env.Type, error) {
	return environment.ParseAnnotation(name)
}

func attributes(environment env.Environment, q AttributesQuery) Result {
	t, err := resolveType(environment, q.Class)
	if err != nil {
		return ErrorResult(err)
	}
	attrs, ok := environment.Attributes(t)
	if !ok {
		return ErrorResult(errs.NotFound("class definition", q.Class))
	}
	out := make([]AttributeOut, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, AttributeOut{Name: a.Name, Annotation: a.Annotation.String()})
	}
	return Result{Attributes: out}
}

func methods(environment env.Environment, q MethodsQuery) Result {
	t, err := resolveType(environment, q.Class)
	if err != nil {
		return ErrorResult(err)
	}
	ms, ok := environment.Methods(t)
	if !ok {
		return ErrorResult(errs.NotFound("class definition", q.Class))
	}
	out := make([]MethodOut, 0, len(ms))
	for _, m := range ms {
		params := []ParamOut{selfParameter}
		// Drop the receiver: the environment's parameter list still
		// includes it as element 0.
		rest := m.Parameters
		if len(rest) > 0 {
			rest = rest[1:]
		}
		for _, p := range rest {
			params = append(params, ParamOut{Name: p.Name, Annotation: p.Annotation.String()})
		}
		out = append(out, MethodOut{
			Name:             m.Name,
			Parameters:       params,
			ReturnAnnotation: m.ReturnAnnotation.String(),
		})
	}
	return Result{Methods: out}
}

func join(environment env.Environment, q JoinQuery) Result {
	a, err := resolveType(environment, q.A)
	if err != nil {
		return ErrorResult(err)
	}
	b, err := resolveType(environment, q.B)
	if err != nil {
		return ErrorResult(err)
	}
	r, err := environment.Join(a, b)
	if err != nil {
		return ErrorResult(err)
	}
	return Result{Type: r.String()}
}

func meet(environment env.Environment, q MeetQuery) Result {
	a, err := resolveType(environment, q.A)
	if err != nil {
		return ErrorResult(err)
	}
	b, err := resolveType(environment, q.B)
	if err != nil {
		return ErrorResult(err)
	}
	r, err := environment.Meet(a, b)
	if err != nil {
		return ErrorResult(err)
	}
	return Result{Type: r.String()}
}

func lessOrEqual(environment env.Environment, q LessOrEqualQuery) Result {
	a, err := resolveType(environment, q.A)
	if err != nil {
		return ErrorResult(err)
	}
	b, err := resolveType(environment, q.B)
	if err != nil {
		return ErrorResult(err)
	}
	v, err := environment.LessOrEqual(a, b)
	if err != nil {
		return ErrorResult(err)
	}
	return Result{LessOrEqual: &v}
}

func normalizeType(environment env.Environment, q NormalizeTypeQuery) Result {
	t, err := resolveType(environment, q.Expr)
	if err != nil {
		return ErrorResult(err)
	}
	return Result{Type: t.String()}
}

func signature(environment env.Environment, q SignatureQuery) Result {
	overloads, ok := environment.Signature(q.Name)
	if !ok {
		return ErrorResult(errs.NotFound("signature", q.Name))
	}
	out := make([]OverloadOut, 0, len(overloads))
	for _, o := range overloads {
		var params []ParamOut
		for _, p := range o.Parameters {
			if !p.Named {
				continue
			}
			annotation := p.Annotation.String()
			if annotation == topAnnotation {
				annotation = unknownAnnotation
			}
			params = append(params, ParamOut{Name: p.Name, Annotation: annotation})
		}
		out = append(out, OverloadOut{ReturnType: o.ReturnType.String(), Parameters: params})
	}
	return Result{Signatures: out}
}

func superclasses(environment env.Environment, q SuperclassesQuery) Result {
	t, err := resolveType(environment, q.Class)
	if err != nil {
		return ErrorResult(err)
	}
	supers, ok := environment.Superclasses(t)
	if !ok {
		return ErrorResult(errs.NotFound("class definition", q.Class))
	}
	out := make([]string, 0, len(supers))
	for _, s := range supers {
		out = append(out, s.String())
	}
	return Result{Superclasses: out}
}

func typeAtLocation(cache *lookup.Cache, localRoot string, q TypeAtLocationQuery) Result {
	f := handle.New(localRoot, q.Path)
	_, typ, ok := cache.FindAnnotation(f, q.Start)
	if !ok {
		return ErrorResult(errs.NotFound("annotation", q.Path))
	}
	return Result{AnnotationAt: typ.String()}
}
