package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultsMaxWorkersToNumCPU(t *testing.T) {
	s := New(0)
	require.True(t, s.maxWorkers > 0)
}

func TestWithParallelLeavesReceiverUnmodified(t *testing.T) {
	s := New(2)
	require.False(t, s.IsParallel())

	parallel := s.WithParallel(true)
	require.True(t, parallel.IsParallel())
	require.False(t, s.IsParallel())
}

func TestMapSequentialPreservesOrder(t *testing.T) {
	s := New(4)
	items := []int{1, 2, 3, 4}
	out, err := Map(context.Background(), s, items, func(_ context.Context, i int) (int, error) {
		return i * 2, nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{2, 4, 6, 8}, out)
}

func TestMapParallelPreservesOrderAndBoundsConcurrency(t *testing.T) {
	s := New(2).WithParallel(true)
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	var inFlight int32
	var maxInFlight int32
	out, err := Map(context.Background(), s, items, func(_ context.Context, i int) (int, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		atomic.AddInt32(&inFlight, -1)
		return i, nil
	})
	require.NoError(t, err)
	require.Equal(t, items, out)
	require.LessOrEqual(t, int(atomic.LoadInt32(&maxInFlight)), 2)
}

func TestMapPropagatesFirstError(t *testing.T) {
	s := New(2).WithParallel(true)
	boom := errors.New("boom")
	_, err := Map(context.Background(), s, []int{1, 2, 3}, func(_ context.Context, i int) (int, error) {
		if i == 2 {
			return 0, boom
		}
		return i, nil
	})
	require.ErrorIs(t, err, boom)
}

func TestMapSequentialStopsOnFirstError(t *testing.T) {
	s := New(1)
	boom := errors.New("boom")
	var calls int32
	_, err := Map(context.Background(), s, []int{1, 2, 3}, func(_ context.Context, i int) (int, error) {
		atomic.AddInt32(&calls, 1)
		if i == 1 {
			return 0, boom
		}
		return i, nil
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, int32(1), calls)
}
