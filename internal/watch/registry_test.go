package watch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRegistryStartsEmpty(t *testing.T) {
	r := NewRegistry()
	require.False(t, r.Any())
}

func TestAttachMakesAnyTrue(t *testing.T) {
	r := NewRegistry()
	r.Attach()
	require.True(t, r.Any())
}

func TestDetachBelowZeroIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Detach()
	require.False(t, r.Any())
}

func TestAttachDetachBalances(t *testing.T) {
	r := NewRegistry()
	r.Attach()
	r.Attach()
	r.Detach()
	require.True(t, r.Any())
	r.Detach()
	require.False(t, r.Any())
}
