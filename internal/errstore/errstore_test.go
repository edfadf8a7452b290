package errstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/handle"
)

func TestInsertAndErrors(t *testing.T) {
	s := New()
	s.Insert(env.ErrorRecord{Path: "a.py", Message: "bad"})
	s.Insert(env.ErrorRecord{Path: "a.py", Message: "worse"})

	errs := s.Errors("a.py")
	require.Len(t, errs, 2)
}

func TestRemoveClearsErrorsAndOrder(t *testing.T) {
	s := New()
	s.Insert(env.ErrorRecord{Path: "a.py", Message: "bad"})
	s.Remove("a.py")

	require.Empty(t, s.Errors("a.py"))
	require.NotContains(t, s.AllKeys(), handle.Handle("a.py"))
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := New()
	s.Remove("a.py")
	require.Empty(t, s.AllKeys())
}

func TestAllKeysPreservesFirstSeenOrder(t *testing.T) {
	s := New()
	s.Insert(env.ErrorRecord{Path: "b.py"})
	s.Insert(env.ErrorRecord{Path: "a.py"})
	s.Insert(env.ErrorRecord{Path: "b.py"})

	require.Equal(t, []handle.Handle{"b.py", "a.py"}, s.AllKeys())
}

func TestReportSeedsByFilesWhenGiven(t *testing.T) {
	s := New()
	s.Insert(env.ErrorRecord{Path: "a.py", Message: "bad"})
	s.Insert(env.ErrorRecord{Path: "b.py", Message: "other"})

	report := s.Report([]handle.Handle{"a.py"})
	require.Len(t, report, 1)
	require.Equal(t, handle.Handle("a.py"), report[0].File)
}

func TestReportFallsBackToAllKeysWhenFilesNil(t *testing.T) {
	s := New()
	s.Insert(env.ErrorRecord{Path: "a.py"})
	s.Insert(env.ErrorRecord{Path: "b.py"})

	report := s.Report(nil)
	require.Len(t, report, 2)
}

func TestReportEmptyNonNilFilesReturnsEmpty(t *testing.T) {
	s := New()
	s.Insert(env.ErrorRecord{Path: "a.py"})
	s.Insert(env.ErrorRecord{Path: "b.py"})

	report := s.Report([]handle.Handle{})
	require.Empty(t, report)
}

func TestBuildFileToErrorMapKeepsZeroErrorFiles(t *testing.T) {
	s := New()
	checked := []handle.Handle{"a.py", "b.py"}
	newErrs := []env.ErrorRecord{{Path: "a.py", Message: "bad"}}

	out := s.BuildFileToErrorMap(checked, newErrs)
	require.Len(t, out, 2)
	require.Equal(t, handle.Handle("a.py"), out[0].File)
	require.Len(t, out[0].Errors, 1)
	require.Equal(t, handle.Handle("b.py"), out[1].File)
	require.Empty(t, out[1].Errors)
}

func TestBuildFileToErrorMapFallsBackToStoreKeys(t *testing.T) {
	s := New()
	s.Insert(env.ErrorRecord{Path: "a.py", Message: "stale"})

	out := s.BuildFileToErrorMap(nil, []env.ErrorRecord{{Path: "a.py", Message: "fresh"}})
	require.Len(t, out, 1)
	require.Equal(t, "fresh", out[0].Errors[0].Message)
}

func TestBuildFileToErrorMapDedupsCheckedFiles(t *testing.T) {
	s := New()
	out := s.BuildFileToErrorMap([]handle.Handle{"a.py", "a.py"}, nil)
	require.Len(t, out, 1)
}
