package typequery

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/env/testenv"
	"github.com/pkraison/pyre-check/internal/lookup"
)

func TestAttributesQuery(t *testing.T) {
	e := testenv.New()
	e.SetClass("Foo", testenv.Class{
		Attributes: []env.Attribute{{Name: "x", Annotation: env.Type{Name: "int"}}},
	})
	e.TrackType("int")

	r := Process(e, lookup.New(e, e), "/root", AttributesQuery{Class: "Foo"})
	require.Empty(t, r.Error)
	require.Equal(t, []AttributeOut{{Name: "x", Annotation: "int"}}, r.Attributes)
}

func TestAttributesQueryUntrackedType(t *testing.T) {
	e := testenv.New()
	r := Process(e, lookup.New(e, e), "/root", AttributesQuery{Class: "Missing"})
	require.Equal(t, `Type "Missing" was not found in the type order.`, r.Error)
}

func TestAttributesQueryNoClassDefinition(t *testing.T) {
	e := testenv.New()
	e.TrackType("Bare")
	r := Process(e, lookup.New(e, e), "/root", AttributesQuery{Class: "Bare"})
	require.NotEmpty(t, r.Error)
}

func TestMethodsQueryDropsReceiver(t *testing.T) {
	e := testenv.New()
	e.SetClass("Foo", testenv.Class{
		Methods: []env.Method{{
			Name: "bar",
			Parameters: []env.Parameter{
				{Name: "self", Annotation: env.Type{Name: "Foo"}},
				{Name: "n", Annotation: env.Type{Name: "int"}},
			},
			ReturnAnnotation: env.Type{Name: "int"},
		}},
	})

	r := Process(e, lookup.New(e, e), "/root", MethodsQuery{Class: "Foo"})
	require.Empty(t, r.Error)
	require.Len(t, r.Methods, 1)
	require.Equal(t, []ParamOut{
		{Name: "self", Annotation: "self"},
		{Name: "n", Annotation: "int"},
	}, r.Methods[0].Parameters)
}

func TestJoinQuery(t *testing.T) {
	e := testenv.New()
	e.TrackType("A")
	e.TrackType("B")
	e.SetJoin("A", "B", "C")

	r := Process(e, lookup.New(e, e), "/root", JoinQuery{A: "A", B: "B"})
	require.Equal(t, "C", r.Type)
}

func TestMeetQuery(t *testing.T) {
	e := testenv.New()
	e.TrackType("A")
	e.TrackType("B")
	e.SetMeet("A", "B", "D")

	r := Process(e, lookup.New(e, e), "/root", MeetQuery{A: "A", B: "B"})
	require.Equal(t, "D", r.Type)
}

func TestLessOrEqualQuery(t *testing.T) {
	e := testenv.New()
	e.TrackType("int")
	e.TrackType("float")
	e.SetLessOrEqual("int", "float", true)

	r := Process(e, lookup.New(e, e), "/root", LessOrEqualQuery{A: "int", B: "float"})
	require.NotNil(t, r.LessOrEqual)
	require.True(t, *r.LessOrEqual)
}

func TestLessOrEqualQueryUntracked(t *testing.T) {
	e := testenv.New()
	r := Process(e, lookup.New(e, e), "/root", LessOrEqualQuery{A: "int", B: "float"})
	require.Equal(t, `Type "int" was not found in the type order.`, r.Error)
}

func TestNormalizeTypeQuery(t *testing.T) {
	e := testenv.New()
	e.TrackType("int")
	r := Process(e, lookup.New(e, e), "/root", NormalizeTypeQuery{Expr: "int"})
	require.Equal(t, "int", r.Type)
}

func TestSignatureQueryDropsPositionalOnlyAndRewritesTop(t *testing.T) {
	e := testenv.New()
	e.SetSignature("f", []env.Overload{{
		ReturnType: env.Type{Name: "int"},
		Parameters: []env.Parameter{
			{Name: "pos", Annotation: env.Type{Name: "int"}, Named: false},
			{Name: "n", Annotation: env.Type{Name: "Top"}, Named: true},
		},
	}})

	r := Process(e, lookup.New(e, e), "/root", SignatureQuery{Name: "f"})
	require.Len(t, r.Signatures, 1)
	require.Equal(t, []ParamOut{{Name: "n", Annotation: "unknown"}}, r.Signatures[0].Parameters)
}

func TestSignatureQueryNotFound(t *testing.T) {
	e := testenv.New()
	r := Process(e, lookup.New(e, e), "/root", SignatureQuery{Name: "missing"})
	require.NotEmpty(t, r.Error)
}

func TestSuperclassesQuery(t *testing.T) {
	e := testenv.New()
	e.SetClass("Foo", testenv.Class{Superclasses: []env.Type{{Name: "object"}}})

	r := Process(e, lookup.New(e, e), "/root", SuperclassesQuery{Class: "Foo"})
	require.Equal(t, []string{"object"}, r.Superclasses)
}

func TestTypeAtLocationQuery(t *testing.T) {
	e := testenv.New()
	e.TrackType("int")
	pos := env.Position{Line: 1, Column: 0}
	e.SetFixture("a.py", testenv.Fixture{
		Source: "x = 1",
		Annotations: map[env.Position]struct {
			Type       env.Type
			Definition *env.Location
		}{
			pos: {Type: env.Type{Name: "int"}},
		},
	})
	ast, err := e.Parse("a.py", "x = 1")
	require.NoError(t, err)
	e.Put("a.py", ast)

	cache := lookup.New(e, e)
	r := Process(e, cache, "/root", TypeAtLocationQuery{Path: "a.py", Start: pos})
	require.Equal(t, "int", r.AnnotationAt)
}

func TestTypeAtLocationQueryNotFound(t *testing.T) {
	e := testenv.New()
	cache := lookup.New(e, e)
	r := Process(e, cache, "/root", TypeAtLocationQuery{Path: "missing.py", Start: env.Position{}})
	require.NotEmpty(t, r.Error)
}
