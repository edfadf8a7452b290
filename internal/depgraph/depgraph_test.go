package depgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkraison/pyre-check/internal/handle"
)

type fakeIndex map[handle.Qualifier][]handle.Handle

func (f fakeIndex) Dependencies(q handle.Qualifier) []handle.Handle { return f[q] }

func TestComputeDeferredReturnsNilWhenNoUpdates(t *testing.T) {
	idx := fakeIndex{}
	out := ComputeDeferred(idx, nil, nil, ".pyi")
	require.Nil(t, out)
}

func TestComputeDeferredCollectsDependents(t *testing.T) {
	updated := []handle.Handle{"pkg/a.py"}
	q := handle.QualifierFor(updated[0], ".pyi")
	idx := fakeIndex{q: {"pkg/b.py", "pkg/c.py"}}

	out := ComputeDeferred(idx, updated, nil, ".pyi")
	require.ElementsMatch(t, []handle.Handle{"pkg/b.py", "pkg/c.py"}, out)
}

func TestComputeDeferredExcludesFilesAlreadyInCheck(t *testing.T) {
	updated := []handle.Handle{"pkg/a.py"}
	q := handle.QualifierFor(updated[0], ".pyi")
	idx := fakeIndex{q: {"pkg/b.py", "pkg/c.py"}}

	out := ComputeDeferred(idx, updated, []handle.Handle{"pkg/b.py"}, ".pyi")
	require.Equal(t, []handle.Handle{"pkg/c.py"}, out)
}

func TestComputeDeferredDedupsAcrossUpdatedFiles(t *testing.T) {
	updated := []handle.Handle{"pkg/a.py", "pkg/d.py"}
	qa := handle.QualifierFor(updated[0], ".pyi")
	qd := handle.QualifierFor(updated[1], ".pyi")
	idx := fakeIndex{
		qa: {"pkg/shared.py"},
		qd: {"pkg/shared.py"},
	}

	out := ComputeDeferred(idx, updated, nil, ".pyi")
	require.Equal(t, []handle.Handle{"pkg/shared.py"}, out)
}
