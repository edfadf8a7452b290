package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewInvalidRequestWrapsSentinel(t *testing.T) {
	err := NewInvalidRequest("client_connection")
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Contains(t, err.Error(), "client_connection")
}

func TestPipelineErrorUnwrapsToFatal(t *testing.T) {
	inner := errors.New("scheduler died")
	err := &PipelineError{Stage: "analyze", Err: inner}

	require.ErrorIs(t, err, ErrFatal)
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "analyze")
}

func TestUntrackedMessage(t *testing.T) {
	qe := Untracked("Foo")
	require.Equal(t, QueryErrorUntracked, qe.Kind)
	require.Equal(t, `Type "Foo" was not found in the type order.`, qe.Error())
}

func TestNotFoundMessage(t *testing.T) {
	qe := NotFound("signature", "bar")
	require.Equal(t, QueryErrorNotFound, qe.Kind)
	require.Equal(t, "No signature found for bar", qe.Error())
}
